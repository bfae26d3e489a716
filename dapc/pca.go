package dapc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Components is a centered PCA of an individuals × variables table.
type Components struct {
	// Variance along every axis, descending
	Eigenvalues []float64

	// Variables × retained axes
	Loadings *mat.Dense

	// Individuals × retained axes
	Scores *mat.Dense

	// Share of the total variance carried by the retained axes
	RetainedVariance float64
}

// NPCA is the number of retained axes.
func (p *Components) NPCA() int {
	_, c := p.Scores.Dims()
	return c
}

// PCA centers the columns of x and retains the first nPCA principal axes.
// nPCA is capped at the number of axes with non-zero variance.
func PCA(x mat.Matrix, nPCA int) (*Components, error) {
	if nPCA < 1 {
		return nil, fmt.Errorf("PCA: at least one axis must be retained, got %d", nPCA)
	}

	n, p := x.Dims()
	if n < 2 || p < 1 {
		return nil, fmt.Errorf("PCA: need at least 2 individuals and 1 variable, got %dx%d", n, p)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("PCA: the decomposition did not converge")
	}

	vars := pc.VarsTo(nil)
	total, informative := 0.0, 0
	for _, v := range vars {
		total += v
	}
	for _, v := range vars {
		if v > total*1e-10 {
			informative++
		}
	}
	if informative == 0 {
		return nil, fmt.Errorf("PCA: the table has no variance")
	}
	if nPCA > informative {
		nPCA = informative
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	loadings := mat.DenseCopyOf(vecs.Slice(0, p, 0, nPCA))

	centered := center(x)
	scores := mat.NewDense(n, nPCA, nil)
	scores.Mul(centered, loadings)

	retained := 0.0
	for _, v := range vars[:nPCA] {
		retained += v
	}

	return &Components{
		Eigenvalues:      vars,
		Loadings:         loadings,
		Scores:           scores,
		RetainedVariance: retained / total,
	}, nil
}

func center(x mat.Matrix) *mat.Dense {
	n, p := x.Dims()
	out := mat.DenseCopyOf(x)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, out)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			out.Set(i, j, col[i]-mean)
		}
	}

	return out
}
