// Package genotype holds SNP genotype calls for a set of individuals and the
// read-only container that population statistics are computed from.
package genotype

import (
	"fmt"
	"strconv"
)

// Missing marks an uncalled allele.
const Missing int8 = -1

// MaxAlleles is the largest number of alleles a locus may carry.
const MaxAlleles = 127

// Call is one diploid genotype: two allele indices into Locus.Alleles, where
// 0 is the reference allele.
type Call [2]int8

var MissingCall = Call{Missing, Missing}

func (c Call) IsMissing() bool {
	return c[0] < 0 || c[1] < 0
}

func (c Call) IsHeterozygous() bool {
	return !c.IsMissing() && c[0] != c[1]
}

// Dosage counts the copies of allele a carried by the call.
func (c Call) Dosage(a int) int {
	n := 0
	for _, v := range c {
		if int(v) == a {
			n++
		}
	}

	return n
}

func (c Call) String() string {
	if c.IsMissing() {
		return "./."
	}

	return strconv.Itoa(int(c[0])) + "/" + strconv.Itoa(int(c[1]))
}

type Locus struct {
	Chromosome string
	Position   uint64
	ID         string

	// Reference allele first, then the alternates
	Alleles []string
}

// Name identifies the locus in exported tables: its ID when the VCF has one,
// otherwise chromosome_position.
func (l Locus) Name() string {
	if l.ID != "" && l.ID != "." {
		return l.ID
	}

	return l.Chromosome + "_" + strconv.FormatUint(l.Position, 10)
}

// Matrix is the individuals × loci genotype table. It is not modified after
// construction.
type Matrix struct {
	Individuals []string
	Loci        []Locus

	// Row-major: individual i, locus l is at i*len(Loci)+l
	calls []Call
}

// NewMatrix assembles a matrix from row-major calls.
func NewMatrix(individuals []string, loci []Locus, calls []Call) (*Matrix, error) {
	if x, y := len(calls), len(individuals)*len(loci); x != y {
		return nil, fmt.Errorf("NewMatrix: %d calls given for %d individuals and %d loci", x, len(individuals), len(loci))
	}

	seen := make(map[string]struct{}, len(individuals))
	for _, id := range individuals {
		if _, exists := seen[id]; exists {
			return nil, fmt.Errorf("NewMatrix: individual %q appears more than once", id)
		}
		seen[id] = struct{}{}
	}

	for l, locus := range loci {
		if len(locus.Alleles) > MaxAlleles {
			return nil, fmt.Errorf("NewMatrix: locus %s has %d alleles, more than the %d supported", locus.Name(), len(locus.Alleles), MaxAlleles)
		}
		for i := range individuals {
			c := calls[i*len(loci)+l]
			if c.IsMissing() {
				continue
			}
			for _, a := range c {
				if int(a) >= len(locus.Alleles) {
					return nil, fmt.Errorf("NewMatrix: individual %s has allele %d at %s, which lists %d alleles", individuals[i], a, locus.Name(), len(locus.Alleles))
				}
			}
		}
	}

	return &Matrix{
		Individuals: individuals,
		Loci:        loci,
		calls:       calls,
	}, nil
}

// NewMatrixFromColumns assembles a matrix from per-locus columns, each holding
// one call per individual.
func NewMatrixFromColumns(individuals []string, loci []Locus, columns [][]Call) (*Matrix, error) {
	if len(columns) != len(loci) {
		return nil, fmt.Errorf("NewMatrixFromColumns: %d columns for %d loci", len(columns), len(loci))
	}

	nInd, nLoci := len(individuals), len(loci)
	calls := make([]Call, nInd*nLoci)
	for l, col := range columns {
		if len(col) != nInd {
			return nil, fmt.Errorf("NewMatrixFromColumns: locus %s has %d calls for %d individuals", loci[l].Name(), len(col), nInd)
		}
		for i, c := range col {
			calls[i*nLoci+l] = c
		}
	}

	return NewMatrix(individuals, loci, calls)
}

func (m *Matrix) NIndividuals() int {
	return len(m.Individuals)
}

func (m *Matrix) NLoci() int {
	return len(m.Loci)
}

func (m *Matrix) At(individual, locus int) Call {
	return m.calls[individual*len(m.Loci)+locus]
}

// LocusNames lists Locus.Name for every locus, in order.
func (m *Matrix) LocusNames() []string {
	out := make([]string, len(m.Loci))
	for i, v := range m.Loci {
		out[i] = v.Name()
	}

	return out
}

// MissingFraction is the share of uncalled genotypes over the whole table.
func (m *Matrix) MissingFraction() float64 {
	if len(m.calls) == 0 {
		return 0
	}

	missing := 0
	for _, c := range m.calls {
		if c.IsMissing() {
			missing++
		}
	}

	return float64(missing) / float64(len(m.calls))
}
