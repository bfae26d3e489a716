// Package report writes analysis results as delimited tables, text
// histograms and PNG plots.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/jasuspop/popgen/dapc"
	"github.com/jasuspop/popgen/fst"
	"github.com/jasuspop/popgen/summary"
	"github.com/jasuspop/popgen/tabular"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/guregu/null.v3"
)

// NA marks undefined values in every table.
const NA = "NA"

func NullFloatFormatter(n null.Float) string {
	if !n.Valid {
		return NA
	}

	return strconv.FormatFloat(n.Float64, 'g', -1, 64)
}

// toNull treats NaN and infinities as undefined.
func toNull(v float64) null.Float {
	return null.NewFloat(v, !math.IsNaN(v) && !math.IsInf(v, 0))
}

func formatFloat(v float64) string {
	return NullFloatFormatter(toNull(v))
}

// naFloat is a table cell that prints NA when undefined.
type naFloat null.Float

func (n naFloat) MarshalCSV() (string, error) {
	return NullFloatFormatter(null.Float(n)), nil
}

func cell(v float64) naFloat {
	return naFloat(toNull(v))
}

// WriteMatrix writes a labelled table: a header of column names after the
// corner label, then one row per row name.
func WriteMatrix(path, corner string, m *tabular.Matrix) error {
	return writeFile(path, func(w io.Writer) error {
		return writeMatrix(w, corner, m)
	})
}

func writeMatrix(w io.Writer, corner string, m *tabular.Matrix) error {
	cw := gocsv.DefaultCSVWriter(w)

	if err := cw.Write(append([]string{corner}, m.ColNames...)); err != nil {
		return pfx.Err(err)
	}

	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		rec := make([]string, 0, cols+1)
		rec = append(rec, m.RowNames[i])
		for j := 0; j < cols; j++ {
			rec = append(rec, formatFloat(m.At(i, j)))
		}
		if err := cw.Write(rec); err != nil {
			return pfx.Err(err)
		}
	}

	cw.Flush()

	return pfx.Err(cw.Error())
}

type locusRow struct {
	Locus      string  `csv:"locus"`
	NAlleles   int     `csv:"n_alleles"`
	Typed      int     `csv:"n_typed"`
	Ho         naFloat `csv:"ho"`
	He         naFloat `csv:"he"`
	PctMissing naFloat `csv:"pct_missing"`
	HWEP       naFloat `csv:"hwe_p"`
}

// WriteLocusSummary writes one row per locus.
func WriteLocusSummary(path string, loci []summary.Locus) error {
	rows := make([]*locusRow, 0, len(loci))
	for _, v := range loci {
		rows = append(rows, &locusRow{
			Locus:      v.Name,
			NAlleles:   v.NAlleles,
			Typed:      v.Typed,
			Ho:         cell(v.Ho),
			He:         cell(v.He),
			PctMissing: cell(v.PctMissing),
			HWEP:       cell(v.HWEP),
		})
	}

	return writeFile(path, func(w io.Writer) error {
		return pfx.Err(gocsv.Marshal(&rows, w))
	})
}

type populationRow struct {
	Population string  `csv:"population"`
	N          int     `csv:"n"`
	MeanHo     naFloat `csv:"mean_ho"`
	MeanHe     naFloat `csv:"mean_he"`
	MeanFis    naFloat `csv:"mean_fis"`
	MeanAr     naFloat `csv:"mean_allelic_richness"`
}

// WritePopulationSummary writes per-population counts and locus averages.
// richness may be nil.
func WritePopulationSummary(path string, p summary.Populations, richness []float64) error {
	ho, he, fis := p.Ho.ColMeans(), p.He.ColMeans(), p.Fis.ColMeans()

	rows := make([]*populationRow, 0, len(p.Names))
	for k, name := range p.Names {
		ar := math.NaN()
		if k < len(richness) {
			ar = richness[k]
		}
		rows = append(rows, &populationRow{
			Population: name,
			N:          p.N[k],
			MeanHo:     cell(ho[k]),
			MeanHe:     cell(he[k]),
			MeanFis:    cell(fis[k]),
			MeanAr:     cell(ar),
		})
	}

	return writeFile(path, func(w io.Writer) error {
		return pfx.Err(gocsv.Marshal(&rows, w))
	})
}

// WriteCoordinates writes each individual's population, analysed group,
// assigned group, discriminant coordinates and membership probabilities.
func WriteCoordinates(path string, res *dapc.Result) error {
	return writeFile(path, func(w io.Writer) error {
		cw := gocsv.DefaultCSVWriter(w)

		header := []string{"individual", "population", "group", "assigned"}
		header = append(header, res.Coordinates.ColNames...)
		for _, g := range res.GroupNames {
			header = append(header, "p_"+g)
		}
		if err := cw.Write(header); err != nil {
			return pfx.Err(err)
		}

		for i, id := range res.Individuals {
			rec := []string{
				id,
				res.PopulationNames[res.Populations[i]],
				res.GroupNames[res.Groups[i]],
				res.GroupNames[res.Assigned[i]],
			}
			for _, v := range res.Coordinates.Row(i) {
				rec = append(rec, formatFloat(v))
			}
			for _, v := range res.Posterior.Row(i) {
				rec = append(rec, formatFloat(v))
			}
			if err := cw.Write(rec); err != nil {
				return pfx.Err(err)
			}
		}

		cw.Flush()

		return pfx.Err(cw.Error())
	})
}

// WriteNullHistograms renders, for each population pair, a text histogram
// of the permuted θ values with the observed value and P-value.
func WriteNullHistograms(path string, perm *fst.Permutation) error {
	return writeFile(path, func(w io.Writer) error {
		names := perm.Observed.RowNames
		for i := range names {
			for j := i + 1; j < len(names); j++ {
				if _, err := fmt.Fprintf(w, "%s vs %s: observed %s, null mean %s, P %s\n",
					names[i], names[j],
					formatFloat(perm.Observed.At(i, j)),
					formatFloat(perm.NullMean.At(i, j)),
					formatFloat(perm.PValues.At(i, j))); err != nil {
					return pfx.Err(err)
				}

				null := perm.PairNull(i, j)
				if len(null) == 0 {
					if _, err := fmt.Fprintln(w, "no permutation values"); err != nil {
						return pfx.Err(err)
					}
					continue
				}

				if lo, hi := floats.Min(null), floats.Max(null); lo == hi {
					if _, err := fmt.Fprintf(w, "all %d permutations gave %s\n\n", len(null), formatFloat(lo)); err != nil {
						return pfx.Err(err)
					}
					continue
				}

				hist := histogram.Hist(20, null)
				if err := histogram.Fprint(w, hist, histogram.Linear(40)); err != nil {
					return pfx.Err(err)
				}
				if _, err := fmt.Fprintln(w); err != nil {
					return pfx.Err(err)
				}
			}
		}

		return nil
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}

	return pfx.Err(f.Close())
}
