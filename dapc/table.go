// Package dapc implements discriminant analysis of principal components
// (Jombart, Devillard and Balloux 2010): genotypes are reduced with PCA and
// the retained scores are fed to a linear discriminant analysis.
package dapc

import (
	"github.com/carbocation/runningvariance"
	"github.com/jasuspop/popgen/genotype"
	"gonum.org/v1/gonum/mat"
)

// AlleleTable returns the individuals × alleles table of allele frequencies
// within each individual (copies / ploidy), one column per observed allele,
// along with the column names. Missing calls take the column mean.
func AlleleTable(c *genotype.Container) (*mat.Dense, []string) {
	names := c.AlleleNames()
	x := mat.NewDense(c.NIndividuals(), len(names), nil)

	col := 0
	for l := range c.Loci {
		for _, a := range c.Alleles(l) {
			rs := runningvariance.NewRunningStat()
			missing := make([]int, 0)
			for i := 0; i < c.NIndividuals(); i++ {
				call := c.At(i, l)
				if call.IsMissing() {
					missing = append(missing, i)
					continue
				}
				v := float64(call.Dosage(a)) / float64(c.Ploidy)
				rs.Push(v)
				x.Set(i, col, v)
			}

			if len(missing) > 0 {
				mean := rs.Mean()
				for _, i := range missing {
					x.Set(i, col, mean)
				}
			}
			col++
		}
	}

	return x, names
}
