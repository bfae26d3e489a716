// Package fst estimates pairwise population differentiation with Weir and
// Cockerham's (1984) θ and tests it by permuting population labels.
package fst

import (
	"math"

	"github.com/jasuspop/popgen/genotype"
	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/tabular"
)

// components are the variance components of θ summed over alleles and loci.
type components struct {
	a, b, c float64
	loci    int
}

func (v components) theta() float64 {
	if v.loci == 0 || v.a+v.b+v.c == 0 {
		return math.NaN()
	}

	return v.a / (v.a + v.b + v.c)
}

// Pairwise returns the symmetric populations × populations θ matrix with a
// zero diagonal. Pairs without an informative locus are NaN.
func Pairwise(s *population.Stratified) *tabular.Matrix {
	return pairwise(s.Container, s.Membership(), s.Names)
}

func pairwise(c *genotype.Container, membership []int, names []string) *tabular.Matrix {
	k := len(names)

	tallies := make([][]genotype.Tally, c.NLoci())
	for l := range tallies {
		tallies[l] = c.TallyGroups(l, membership, k)
	}

	out := tabular.NewSquare(names)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			var total components
			for l := range tallies {
				total.add(tallies[l][i], tallies[l][j])
			}
			theta := total.theta()
			out.Set(i, j, theta)
			out.Set(j, i, theta)
		}
	}

	return out
}

// add accumulates the components of one locus between two populations,
// summing over every allele present in either. Loci untyped in either
// population, or with a mean sample size of at most one, are skipped.
func (v *components) add(x, y genotype.Tally) {
	const r = 2.0

	n1, n2 := float64(x.Typed), float64(y.Typed)
	if n1 == 0 || n2 == 0 {
		return
	}

	nbar := (n1 + n2) / r
	if nbar <= 1 {
		return
	}
	nc := (r*nbar - (n1*n1+n2*n2)/(r*nbar)) / (r - 1)

	var a, b, c float64
	for allele := range x.Counts {
		if x.Counts[allele]+y.Counts[allele] == 0 {
			continue
		}

		p1, p2 := x.Frequency(allele), y.Frequency(allele)
		h1 := float64(x.HetCarriers[allele]) / n1
		h2 := float64(y.HetCarriers[allele]) / n2

		pbar := (n1*p1 + n2*p2) / (r * nbar)
		s2 := (n1*(p1-pbar)*(p1-pbar) + n2*(p2-pbar)*(p2-pbar)) / ((r - 1) * nbar)
		hbar := (n1*h1 + n2*h2) / (r * nbar)
		pq := pbar * (1 - pbar)

		a += nbar / nc * (s2 - (pq-(r-1)/r*s2-hbar/4)/(nbar-1))
		b += nbar / (nbar - 1) * (pq - (r-1)/r*s2 - (2*nbar-1)/(4*nbar)*hbar)
		c += hbar / 2
	}

	v.a += a
	v.b += b
	v.c += c
	v.loci++
}
