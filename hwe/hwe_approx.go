package hwe

import (
	"math"

	"github.com/tokenme/probab/dst"
)

// Approximate returns the P-value of a 1 degree of freedom chi square test
// for departure from Hardy-Weinberg proportions.
func Approximate(AA, Aa, aa float64) (p float64) {
	// dst panics on degenerate input; treat that as "no evidence"
	defer func() {
		if recover() != nil {
			p = 1.0
		}
	}()

	return 1.0 - dst.ChiSquareCDF(1)(ChiSquare(AA, Aa, aa))
}

// ChiSquare compares observed genotype counts with those expected from the
// observed allele frequencies. A site that is monomorphic in the sample has
// chi square 0.
func ChiSquare(AA, Aa, aa float64) float64 {
	A := AA*2 + Aa
	a := aa*2 + Aa
	if A == 0 || a == 0 {
		return 0.0
	}

	N := AA + Aa + aa
	pA := A / (A + a)
	pa := a / (A + a)

	eAA := pA * pA * N
	eAa := 2.0 * pA * pa * N
	eaa := pa * pa * N

	return math.Pow(eAA-AA, 2)/eAA +
		math.Pow(eAa-Aa, 2)/eAa +
		math.Pow(eaa-aa, 2)/eaa
}
