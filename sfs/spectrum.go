package sfs

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jasuspop/popgen/population"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"
)

// Spectrum is a two-population joint site frequency spectrum: entry (i, j)
// holds the number of sites with i copies of the counted allele in the first
// population's sample and j in the second's.
type Spectrum struct {
	PopIDs []string

	// Allele copies sampled from each population
	SampleSizes [2]int

	Data *mat.Dense

	// Masked entries are excluded from S and from inference
	Mask [][]bool

	Folded bool

	// Loci that contributed
	Sites int
}

func newSpectrum(pops []string, n1, n2 int) *Spectrum {
	sp := &Spectrum{
		PopIDs:      append([]string(nil), pops...),
		SampleSizes: [2]int{n1, n2},
		Data:        mat.NewDense(n1+1, n2+1, nil),
		Mask:        make([][]bool, n1+1),
	}
	for i := range sp.Mask {
		sp.Mask[i] = make([]bool, n2+1)
	}

	// Sites fixed for either allele carry no information
	sp.Mask[0][0] = true
	sp.Mask[n1][n2] = true

	return sp
}

// Joint builds the unfolded spectrum of the reference allele for two
// populations, each projected down to the given number of allele copies.
// Loci with fewer typed copies than the projection in either population,
// and loci that are not biallelic, are skipped.
func Joint(s *population.Stratified, pops []string, projections []int) (*Spectrum, error) {
	if len(pops) != 2 || len(projections) != 2 {
		return nil, fmt.Errorf("Joint: need exactly 2 populations and 2 projections, got %d and %d", len(pops), len(projections))
	}
	for i, v := range projections {
		if v < 1 {
			return nil, fmt.Errorf("Joint: projection for %s must be at least 1, got %d", pops[i], v)
		}
	}

	index, err := popIndices(s, pops)
	if err != nil {
		return nil, err
	}

	sp := newSpectrum(pops, projections[0], projections[1])
	membership := s.Membership()

	for l, locus := range s.Loci {
		if len(locus.Alleles) != 2 {
			continue
		}

		tallies := s.TallyGroups(l, membership, s.NPopulations())
		a, b := tallies[index[0]], tallies[index[1]]
		if a.Copies() < projections[0] || b.Copies() < projections[1] {
			continue
		}

		pa := Project(a.Counts[0], a.Copies(), projections[0])
		pb := Project(b.Counts[0], b.Copies(), projections[1])
		sp.Data.RankOne(sp.Data, 1, mat.NewVecDense(len(pa), pa), mat.NewVecDense(len(pb), pb))
		sp.Sites++
	}

	return sp, nil
}

// Project returns the hypergeometric probabilities of drawing 0..m copies of
// an allele seen k times among n copies, when m copies are drawn.
func Project(k, n, m int) []float64 {
	out := make([]float64, m+1)
	if m > n || k > n || k < 0 {
		return out
	}

	total := combin.LogGeneralizedBinomial(float64(n), float64(m))
	for j := 0; j <= m; j++ {
		if j > k || m-j > n-k {
			continue
		}
		out[j] = math.Exp(combin.LogGeneralizedBinomial(float64(k), float64(j)) + combin.LogGeneralizedBinomial(float64(n-k), float64(m-j)) - total)
	}

	return out
}

// Fold returns the minor allele spectrum. Entries beyond half the total
// sample size are added to their mirror image and masked; entries at exactly
// half are shared equally with their mirror.
func (sp *Spectrum) Fold() (*Spectrum, error) {
	if sp.Folded {
		return nil, fmt.Errorf("Fold: the spectrum is already folded")
	}

	n1, n2 := sp.SampleSizes[0], sp.SampleSizes[1]
	total := n1 + n2

	out := newSpectrum(sp.PopIDs, n1, n2)
	out.Folded = true
	out.Sites = sp.Sites

	value := func(i, j int) float64 {
		if sp.Mask[i][j] {
			return 0
		}
		return sp.Data.At(i, j)
	}

	for i := 0; i <= n1; i++ {
		for j := 0; j <= n2; j++ {
			ri, rj := n1-i, n2-j
			out.Mask[i][j] = sp.Mask[i][j] || sp.Mask[ri][rj]

			t := i + j
			switch {
			case 2*t > total:
				out.Mask[i][j] = true
			case 2*t == total:
				out.Data.Set(i, j, (value(i, j)+value(ri, rj))/2)
			default:
				out.Data.Set(i, j, value(i, j)+value(ri, rj))
			}
		}
	}

	return out, nil
}

// S is the number of segregating sites: the sum of the unmasked entries.
func (sp *Spectrum) S() float64 {
	sum := 0.0
	for i, row := range sp.Mask {
		for j, masked := range row {
			if !masked {
				sum += sp.Data.At(i, j)
			}
		}
	}

	return sum
}

// WriteTo writes the spectrum in dadi's text format: a header with the
// dimensions, folding state and population IDs, the entries in row-major
// order, then the mask.
func (sp *Spectrum) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	state := "unfolded"
	if sp.Folded {
		state = "folded"
	}
	ids := make([]string, len(sp.PopIDs))
	for i, v := range sp.PopIDs {
		ids[i] = strconv.Quote(v)
	}
	fmt.Fprintf(cw, "%d %d %s %s\n", sp.SampleSizes[0]+1, sp.SampleSizes[1]+1, state, strings.Join(ids, " "))

	var values, mask []string
	for i, row := range sp.Mask {
		for j, masked := range row {
			values = append(values, strconv.FormatFloat(sp.Data.At(i, j), 'g', -1, 64))
			if masked {
				mask = append(mask, "1")
			} else {
				mask = append(mask, "0")
			}
		}
	}
	fmt.Fprintln(cw, strings.Join(values, " "))
	fmt.Fprintln(cw, strings.Join(mask, " "))

	if cw.err != nil {
		return cw.n, pfx.Err(cw.err)
	}
	if err := bw.Flush(); err != nil {
		return cw.n, pfx.Err(err)
	}

	return cw.n, nil
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err

	return n, err
}
