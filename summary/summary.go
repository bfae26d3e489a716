// Package summary computes per-locus diversity statistics: observed and
// expected heterozygosity, allele counts, missingness and Hardy-Weinberg
// P-values, overall and within populations.
package summary

import (
	"math"

	"github.com/jasuspop/popgen/genotype"
	"github.com/jasuspop/popgen/hwe"
	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/tabular"
)

// HWEAlpha is the significance level used when counting loci that depart
// from Hardy-Weinberg proportions.
const HWEAlpha = 0.05

type Locus struct {
	Name     string
	NAlleles int
	Typed    int

	// NaN when no genotype was called
	Ho float64
	He float64

	PctMissing float64

	// Exact test P-value; NaN unless the locus is biallelic in the sample or
	// monomorphic
	HWEP float64
}

// Overall describes the container as a whole.
type Overall struct {
	NIndividuals int
	NLoci        int
	PctMissing   float64
	MinAlleles   int
	MaxAlleles   int

	// Biallelic loci whose HWE P-value falls below HWEAlpha
	HWEDeviations int
}

// Summarize computes one record per locus, in locus order.
func Summarize(c *genotype.Container) []Locus {
	out := make([]Locus, c.NLoci())
	for l := range c.Loci {
		t := c.Tally(l, nil)

		out[l] = Locus{
			Name:       c.Loci[l].Name(),
			NAlleles:   c.NAlleles(l),
			Typed:      t.Typed,
			Ho:         ObservedHeterozygosity(t),
			He:         ExpectedHeterozygosity(t),
			PctMissing: 100 * float64(c.NIndividuals()-t.Typed) / float64(c.NIndividuals()),
			HWEP:       hweP(c, l, t, false),
		}
	}

	return out
}

// Describe summarises the whole container.
func Describe(c *genotype.Container) Overall {
	o := Overall{
		NIndividuals: c.NIndividuals(),
		NLoci:        c.NLoci(),
		PctMissing:   100 * c.MissingFraction(),
		MinAlleles:   math.MaxInt32,
	}

	for l := range c.Loci {
		n := c.NAlleles(l)
		if n < o.MinAlleles {
			o.MinAlleles = n
		}
		if n > o.MaxAlleles {
			o.MaxAlleles = n
		}

		if p := hweP(c, l, c.Tally(l, nil), true); p < HWEAlpha {
			o.HWEDeviations++
		}
	}

	if o.NLoci == 0 {
		o.MinAlleles = 0
	}

	return o
}

// ObservedHeterozygosity is the share of typed individuals that are
// heterozygous.
func ObservedHeterozygosity(t genotype.Tally) float64 {
	if t.Typed == 0 {
		return math.NaN()
	}

	return float64(t.Heterozygous) / float64(t.Typed)
}

// ExpectedHeterozygosity is 1 - Σp² over the typed allele copies.
func ExpectedHeterozygosity(t genotype.Tally) float64 {
	if t.Typed == 0 {
		return math.NaN()
	}

	sumSq := 0.0
	for a := range t.Counts {
		p := t.Frequency(a)
		sumSq += p * p
	}

	return 1 - sumSq
}

// hweP tests the two observed alleles of a biallelic locus. fast trades the
// exact test for the chi square approximation whenever the latter is clearly
// non-significant.
func hweP(c *genotype.Container, l int, t genotype.Tally, fast bool) float64 {
	alleles := c.Alleles(l)
	switch len(alleles) {
	case 0:
		return math.NaN()
	case 1:
		return 1
	case 2:
	default:
		return math.NaN()
	}

	a, b := alleles[0], alleles[1]
	het := int64(t.Heterozygous)
	homA := int64(t.Counts[a]-t.Heterozygous) / 2
	homB := int64(t.Counts[b]-t.Heterozygous) / 2

	if fast {
		return hwe.Fast(homA, het, homB, HWEAlpha)
	}

	return hwe.Exact(homA, het, homB)
}

// Populations holds within-population statistics, loci by populations.
type Populations struct {
	Names []string

	// Individuals assigned to each population
	N []int

	Typed *tabular.Matrix
	Ho    *tabular.Matrix
	He    *tabular.Matrix

	// Inbreeding coefficient 1 - Ho/He; NaN where He is 0 or undefined
	Fis *tabular.Matrix
}

// ByPopulation computes Ho, He and Fis within each population.
func ByPopulation(s *population.Stratified) Populations {
	rows := s.LocusNames()
	membership := s.Membership()

	p := Populations{
		Names: append([]string(nil), s.Names...),
		N:     s.Sizes(),
		Typed: tabular.New(rows, s.Names),
		Ho:    tabular.New(rows, s.Names),
		He:    tabular.New(rows, s.Names),
		Fis:   tabular.New(rows, s.Names),
	}

	for l := range s.Loci {
		for k, t := range s.TallyGroups(l, membership, s.NPopulations()) {
			ho, he := ObservedHeterozygosity(t), ExpectedHeterozygosity(t)
			p.Typed.Set(l, k, float64(t.Typed))
			p.Ho.Set(l, k, ho)
			p.He.Set(l, k, he)
			if he > 0 {
				p.Fis.Set(l, k, 1-ho/he)
			}
		}
	}

	return p
}
