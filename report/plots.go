package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/fogleman/gg"
	"github.com/jasuspop/popgen/dapc"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	plotSize   = 800
	plotMargin = 60

	// sqrt of the 95% quantile of a chi square with 2 degrees of freedom
	ellipseScale = 2.447746830680816
)

// PlotScatter draws individuals on the first two discriminant axes, coloured
// by group, with 95% inertia ellipses and labelled centroids. With a single
// discriminant axis the group densities along it are drawn instead.
func PlotScatter(path string, res *dapc.Result, palette []string) error {
	colors, err := paletteFor(palette, len(res.GroupNames))
	if err != nil {
		return err
	}

	if res.NDA() < 2 {
		return plotDensities(path, res, colors)
	}

	xs := mat.Col(nil, 0, res.Coordinates.Dense())
	ys := mat.Col(nil, 1, res.Coordinates.Dense())

	ellipses := make([]ellipse, len(res.GroupNames))
	for g := range res.GroupNames {
		ellipses[g] = groupEllipse(xs, ys, res.Groups, g)
	}

	// Square data window around every point and ellipse
	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	for _, e := range ellipses {
		minX, maxX = math.Min(minX, e.cx-e.rx), math.Max(maxX, e.cx+e.rx)
		minY, maxY = math.Min(minY, e.cy-e.rx), math.Max(maxY, e.cy+e.rx)
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	scale := float64(plotSize-2*plotMargin) / span
	px := func(v float64) float64 { return plotMargin + (v-minX)*scale }
	py := func(v float64) float64 { return plotSize - plotMargin - (v-minY)*scale }

	dc := gg.NewContext(plotSize, plotSize)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	// Axes through the origin
	dc.SetRGB(0.8, 0.8, 0.8)
	dc.SetLineWidth(1)
	if minX <= 0 && maxX >= 0 {
		dc.DrawLine(px(0), plotMargin, px(0), plotSize-plotMargin)
	}
	if minY <= 0 && maxY >= 0 {
		dc.DrawLine(plotMargin, py(0), plotSize-plotMargin, py(0))
	}
	dc.Stroke()

	for i := range xs {
		dc.SetColor(colors[res.Groups[i]].WithAlpha(180))
		dc.DrawCircle(px(xs[i]), py(ys[i]), 4)
		dc.Fill()
	}

	dc.SetLineWidth(2)
	for g, e := range ellipses {
		if e.rx == 0 {
			continue
		}
		dc.Push()
		dc.SetColor(colors[g])
		dc.RotateAbout(-e.angle, px(e.cx), py(e.cy))
		dc.DrawEllipse(px(e.cx), py(e.cy), e.rx*scale, e.ry*scale)
		dc.Stroke()
		dc.Pop()
	}

	for g, name := range res.GroupNames {
		cx, cy := px(res.Centroids.At(g, 0)), py(res.Centroids.At(g, 1))
		w, h := dc.MeasureString(name)
		dc.SetRGB(1, 1, 1)
		dc.DrawRectangle(cx-w/2-3, cy-h/2-3, w+6, h+6)
		dc.Fill()
		dc.SetColor(colors[g])
		dc.DrawRectangle(cx-w/2-3, cy-h/2-3, w+6, h+6)
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(name, cx, cy, 0.5, 0.5)
	}

	// Legend
	for g, name := range res.GroupNames {
		y := float64(plotMargin + 18*g)
		dc.SetColor(colors[g])
		dc.DrawCircle(plotSize-plotMargin-100, y, 5)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(name, plotSize-plotMargin-88, y, 0, 0.5)
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(fmt.Sprintf("DAPC: %d PCs retained (%.1f%% of variance)", res.NPCA, 100*res.RetainedVariance), plotSize/2, plotMargin/2, 0.5, 0.5)
	dc.DrawStringAnchored(res.Coordinates.ColNames[0], plotSize/2, plotSize-plotMargin/2, 0.5, 0.5)
	dc.DrawStringAnchored(res.Coordinates.ColNames[1], plotMargin/2, plotSize/2, 0.5, 0.5)

	return pfx.Err(dc.SavePNG(path))
}

type ellipse struct {
	cx, cy float64

	// Semi-axes in data units; rx is the major one
	rx, ry float64

	// Of the major axis, counter-clockwise from the first coordinate axis
	angle float64
}

func groupEllipse(xs, ys []float64, groups []int, g int) ellipse {
	var gx, gy []float64
	for i, v := range groups {
		if v == g {
			gx = append(gx, xs[i])
			gy = append(gy, ys[i])
		}
	}

	e := ellipse{cx: stat.Mean(gx, nil), cy: stat.Mean(gy, nil)}
	if len(gx) < 3 {
		return e
	}

	cov := mat.NewSymDense(2, []float64{
		stat.Variance(gx, nil), stat.Covariance(gx, gy, nil),
		stat.Covariance(gx, gy, nil), stat.Variance(gy, nil),
	})

	var es mat.EigenSym
	if ok := es.Factorize(cov, true); !ok {
		return e
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	// Ascending eigenvalues: the major axis is the second
	e.rx = ellipseScale * math.Sqrt(math.Max(values[1], 0))
	e.ry = ellipseScale * math.Sqrt(math.Max(values[0], 0))
	e.angle = math.Atan2(vectors.At(1, 1), vectors.At(0, 1))

	return e
}

func plotDensities(path string, res *dapc.Result, colors []drawing.Color) error {
	xs := mat.Col(nil, 0, res.Coordinates.Dense())

	lo, hi := floats.Min(xs), floats.Max(xs)
	pad := 0.1*(hi-lo) + 1
	grid := make([]float64, 200)
	floats.Span(grid, lo-pad, hi+pad)

	var series []chart.Series
	for g, name := range res.GroupNames {
		var members []float64
		for i, v := range res.Groups {
			if v == g {
				members = append(members, xs[i])
			}
		}
		if len(members) == 0 {
			continue
		}

		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: grid,
			YValues: density(members, grid),
			Style: chart.Style{
				StrokeColor: colors[g],
				StrokeWidth: 2,
			},
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("DAPC: %d PCs retained (%.1f%% of variance)", res.NPCA, 100*res.RetainedVariance),
		Width:  plotSize,
		Height: plotSize / 2,
		XAxis: chart.XAxis{
			Name: res.Coordinates.ColNames[0],
		},
		YAxis: chart.YAxis{
			Name: "Density",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderChart(path, graph)
}

// density is a Gaussian kernel density estimate with Silverman's bandwidth.
func density(sample, grid []float64) []float64 {
	bw := 1.06 * stat.StdDev(sample, nil) * math.Pow(float64(len(sample)), -0.2)
	if bw == 0 || math.IsNaN(bw) {
		bw = 0.1
	}

	out := make([]float64, len(grid))
	norm := 1 / (float64(len(sample)) * bw * math.Sqrt(2*math.Pi))
	for k, x := range grid {
		for _, v := range sample {
			z := (x - v) / bw
			out[k] += math.Exp(-z * z / 2)
		}
		out[k] *= norm
	}

	return out
}

// PlotMembership draws one stacked bar of membership probabilities per
// individual, individuals ordered by their analysed group.
func PlotMembership(path string, res *dapc.Result, palette []string) error {
	colors, err := paletteFor(palette, len(res.GroupNames))
	if err != nil {
		return err
	}

	order := make([]int, len(res.Individuals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return res.Groups[order[a]] < res.Groups[order[b]]
	})

	const barWidth, barSpacing = 8, 1

	bars := make([]chart.StackedBar, 0, len(order))
	for _, i := range order {
		values := make([]chart.Value, 0, len(res.GroupNames))
		for g, p := range res.Posterior.Row(i) {
			values = append(values, chart.Value{
				Value: p,
				Style: chart.Style{
					FillColor:   colors[g],
					StrokeColor: colors[g],
				},
			})
		}
		bars = append(bars, chart.StackedBar{
			Width:  barWidth,
			Values: values,
		})
	}

	graph := chart.StackedBarChart{
		Title:      "Membership probability",
		Width:      120 + len(bars)*(barWidth+barSpacing),
		Height:     plotSize / 2,
		BarSpacing: barSpacing,
		XAxis:      chart.Hidden(),
		Bars:       bars,
	}

	return renderChart(path, graph)
}

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func renderChart(path string, graph renderer) error {
	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return pfx.Err(err)
	}

	outFile, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	if _, err := buffer.WriteTo(outFile); err != nil {
		outFile.Close()
		return pfx.Err(err)
	}

	return pfx.Err(outFile.Close())
}
