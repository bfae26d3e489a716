package genotype

import (
	"fmt"
	"math"
	"sort"
)

// Container is the read-only view that statistics work on: the genotype
// matrix plus the alleles actually observed at each locus.
type Container struct {
	*Matrix
	Ploidy int

	alleles [][]int
}

// Tally summarises the calls of a set of individuals at one locus.
type Tally struct {
	// Individuals with a non-missing call
	Typed int

	Heterozygous int

	// Allele copies, indexed like Locus.Alleles
	Counts []int

	// Heterozygous individuals carrying each allele
	HetCarriers []int
}

// Copies is the number of typed allele copies.
func (t Tally) Copies() int {
	return 2 * t.Typed
}

// Frequency of allele a among typed copies; NaN when nothing was typed.
func (t Tally) Frequency(a int) float64 {
	if t.Typed == 0 {
		return math.NaN()
	}

	return float64(t.Counts[a]) / float64(t.Copies())
}

// Build derives a Container from a matrix without copying its calls.
func Build(m *Matrix) (*Container, error) {
	if m == nil {
		return nil, fmt.Errorf("Build: nil matrix")
	}
	if m.NIndividuals() == 0 || m.NLoci() == 0 {
		return nil, fmt.Errorf("Build: the genotype matrix is empty (%d individuals, %d loci)", m.NIndividuals(), m.NLoci())
	}

	c := &Container{
		Matrix:  m,
		Ploidy:  2,
		alleles: make([][]int, m.NLoci()),
	}

	for l := range m.Loci {
		seen := make(map[int]struct{})
		for i := 0; i < m.NIndividuals(); i++ {
			call := m.At(i, l)
			if call.IsMissing() {
				continue
			}
			for _, a := range call {
				seen[int(a)] = struct{}{}
			}
		}

		observed := make([]int, 0, len(seen))
		for a := range seen {
			observed = append(observed, a)
		}
		sort.Ints(observed)
		c.alleles[l] = observed
	}

	return c, nil
}

// Alleles returns the observed allele indices at a locus, ascending. The
// slice is shared and must not be modified.
func (c *Container) Alleles(locus int) []int {
	return c.alleles[locus]
}

// NAlleles is the number of distinct alleles observed at a locus.
func (c *Container) NAlleles(locus int) int {
	return len(c.alleles[locus])
}

// AlleleNames lists locus.allele labels for every observed allele of every
// locus, in the order used by allele tables.
func (c *Container) AlleleNames() []string {
	out := make([]string, 0)
	for l, locus := range c.Loci {
		for _, a := range c.alleles[l] {
			out = append(out, locus.Name()+"."+locus.Alleles[a])
		}
	}

	return out
}

// Tally counts the calls of the given individuals at a locus. A nil members
// slice means every individual.
func (c *Container) Tally(locus int, members []int) Tally {
	nAlleles := len(c.Loci[locus].Alleles)
	t := Tally{
		Counts:      make([]int, nAlleles),
		HetCarriers: make([]int, nAlleles),
	}

	add := func(i int) {
		call := c.At(i, locus)
		if call.IsMissing() {
			return
		}
		t.Typed++
		t.Counts[call[0]]++
		t.Counts[call[1]]++
		if call.IsHeterozygous() {
			t.Heterozygous++
			t.HetCarriers[call[0]]++
			t.HetCarriers[call[1]]++
		}
	}

	if members == nil {
		for i := 0; i < c.NIndividuals(); i++ {
			add(i)
		}
	} else {
		for _, i := range members {
			add(i)
		}
	}

	return t
}

// TallyGroups tallies every group of a partition at one locus in a single
// pass. membership[i] is the group of individual i; negative values are
// skipped.
func (c *Container) TallyGroups(locus int, membership []int, nGroups int) []Tally {
	nAlleles := len(c.Loci[locus].Alleles)
	out := make([]Tally, nGroups)
	for k := range out {
		out[k] = Tally{
			Counts:      make([]int, nAlleles),
			HetCarriers: make([]int, nAlleles),
		}
	}

	for i, k := range membership {
		if k < 0 {
			continue
		}
		call := c.At(i, locus)
		if call.IsMissing() {
			continue
		}
		t := &out[k]
		t.Typed++
		t.Counts[call[0]]++
		t.Counts[call[1]]++
		if call.IsHeterozygous() {
			t.Heterozygous++
			t.HetCarriers[call[0]]++
			t.HetCarriers[call[1]]++
		}
	}

	return out
}
