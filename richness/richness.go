// Package richness computes allelic richness by rarefaction: the expected
// number of distinct alleles in a subsample of g allele copies, which makes
// populations of different sizes comparable (El Mousadik and Petit 1996).
package richness

import (
	"fmt"
	"math"

	"github.com/jasuspop/popgen/genotype"
	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/tabular"
	"gonum.org/v1/gonum/stat/combin"
)

// Compute returns a loci × populations table of rarefied allele counts and
// the rarefaction size used. A minN of zero selects the smallest number of
// typed allele copies over all typed (locus, population) cells. Cells with no
// typed genotype, or fewer than minN typed copies, are NaN.
func Compute(s *population.Stratified, minN int) (*tabular.Matrix, int, error) {
	if minN < 0 {
		return nil, 0, fmt.Errorf("Compute: rarefaction size %d is negative", minN)
	}

	membership := s.Membership()
	tallies := make([][]genotype.Tally, s.NLoci())
	for l := range s.Loci {
		tallies[l] = s.TallyGroups(l, membership, s.NPopulations())
	}

	g := minN
	if g == 0 {
		g = smallestSample(tallies)
		if g == 0 {
			return nil, 0, fmt.Errorf("Compute: no population has a typed genotype at any locus")
		}
	}

	out := tabular.New(s.LocusNames(), s.Names)
	for l, row := range tallies {
		for k, t := range row {
			if t.Typed == 0 || t.Copies() < g {
				continue
			}
			out.Set(l, k, clamp(Rarefy(t.Counts, g), 1, float64(s.NAlleles(l))))
		}
	}

	return out, g, nil
}

func smallestSample(tallies [][]genotype.Tally) int {
	g := 0
	for _, row := range tallies {
		for _, t := range row {
			if t.Typed == 0 {
				continue
			}
			if g == 0 || t.Copies() < g {
				g = t.Copies()
			}
		}
	}

	return g
}

// Rarefy is the expected number of distinct alleles among g copies drawn
// without replacement from a sample with the given allele counts:
// Σ [1 - C(N-Ni, g) / C(N, g)].
func Rarefy(counts []int, g int) float64 {
	N := 0
	for _, v := range counts {
		N += v
	}
	if N == 0 || g <= 0 || g > N {
		return math.NaN()
	}

	total := combin.LogGeneralizedBinomial(float64(N), float64(g))
	r := 0.0
	for _, Ni := range counts {
		if Ni == 0 {
			continue
		}
		if N-Ni < g {
			// Every subsample of size g contains this allele
			r++
			continue
		}
		r += 1 - math.Exp(combin.LogGeneralizedBinomial(float64(N-Ni), float64(g))-total)
	}

	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

