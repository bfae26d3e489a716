package dapc

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model is a linear discriminant analysis fitted on PC scores.
type Model struct {
	// Discriminant eigenvalues (between / within variance ratios), descending
	Eigenvalues []float64

	// PC axes × discriminant axes
	Coefficients *mat.Dense

	// Individuals × discriminant axes
	Coordinates *mat.Dense

	// Groups × discriminant axes; the group means of Coordinates
	Centroids *mat.Dense

	// Individuals × groups posterior membership probabilities
	Posterior *mat.Dense

	// Group with the highest posterior for each individual
	Assigned []int

	Priors []float64
	center []float64
}

// NDA is the number of discriminant axes.
func (m *Model) NDA() int {
	_, c := m.Coefficients.Dims()
	return c
}

// Fit finds the axes of z that best separate the groups: the leading
// eigenvectors of the between-group covariance after whitening by the pooled
// within-group covariance. groups[i] indexes a group in [0, nGroups); nda of
// zero keeps nGroups-1 axes, capped by the rank of the within-group scatter.
func Fit(z mat.Matrix, groups []int, nGroups, nda int) (*Model, error) {
	n, q := z.Dims()
	if len(groups) != n {
		return nil, fmt.Errorf("Fit: %d group labels for %d individuals", len(groups), n)
	}
	if nGroups < 2 {
		return nil, fmt.Errorf("Fit: discriminant analysis needs at least 2 groups, got %d", nGroups)
	}
	if n <= nGroups {
		return nil, fmt.Errorf("Fit: %d individuals are too few for %d groups", n, nGroups)
	}

	sizes := make([]int, nGroups)
	for i, g := range groups {
		if g < 0 || g >= nGroups {
			return nil, fmt.Errorf("Fit: individual %d has group %d of %d", i, g, nGroups)
		}
		sizes[g]++
	}
	for g, size := range sizes {
		if size == 0 {
			return nil, fmt.Errorf("Fit: group %d is empty", g)
		}
	}

	grand := make([]float64, q)
	means := mat.NewDense(nGroups, q, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < q; j++ {
			v := z.At(i, j)
			grand[j] += v / float64(n)
			means.Set(groups[i], j, means.At(groups[i], j)+v/float64(sizes[groups[i]]))
		}
	}

	within := mat.NewSymDense(q, nil)
	diff := make([]float64, q)
	for i := 0; i < n; i++ {
		for j := range diff {
			diff[j] = z.At(i, j) - means.At(groups[i], j)
		}
		within.SymRankOne(within, 1/float64(n-nGroups), mat.NewVecDense(q, diff))
	}

	between := mat.NewSymDense(q, nil)
	for g := 0; g < nGroups; g++ {
		for j := range diff {
			diff[j] = means.At(g, j) - grand[j]
		}
		between.SymRankOne(between, float64(sizes[g])/float64(nGroups-1), mat.NewVecDense(q, diff))
	}

	whiten, err := whitening(within)
	if err != nil {
		return nil, err
	}
	_, rank := whiten.Dims()

	// M = Sᵀ B S is symmetric; symmetrize to absorb rounding
	var m mat.Dense
	m.Product(whiten.T(), between, whiten)
	sym := mat.NewSymDense(rank, nil)
	for i := 0; i < rank; i++ {
		for j := i; j < rank; j++ {
			sym.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return nil, fmt.Errorf("Fit: eigendecomposition of the between-group scatter failed")
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	maxAxes := nGroups - 1
	if rank < maxAxes {
		maxAxes = rank
	}
	if nda <= 0 || nda > maxAxes {
		nda = maxAxes
	}

	// gonum returns eigenvalues ascending
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	coefs := mat.NewDense(q, nda, nil)
	eigen := make([]float64, nda)
	col := make([]float64, q)
	for axis := 0; axis < nda; axis++ {
		k := order[axis]
		eigen[axis] = math.Max(values[k], 0)
		v := mat.Col(nil, k, &vectors)
		mat.NewVecDense(q, col).MulVec(whiten, mat.NewVecDense(rank, v))

		// Fix the arbitrary eigenvector sign: largest coefficient positive
		if idx := floats.MaxIdx(absAll(col)); col[idx] < 0 {
			floats.Scale(-1, col)
		}
		coefs.SetCol(axis, col)
	}

	model := &Model{
		Eigenvalues:  eigen,
		Coefficients: coefs,
		Priors:       make([]float64, nGroups),
		center:       grand,
	}
	for g, size := range sizes {
		model.Priors[g] = float64(size) / float64(n)
	}

	model.Coordinates = model.Project(z)
	model.Centroids = groupMeans(model.Coordinates, groups, sizes)
	model.Posterior, model.Assigned = model.Predict(model.Coordinates)

	return model, nil
}

// whitening returns S with Sᵀ W S = I over the non-null space of W.
func whitening(w *mat.SymDense) (*mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(w, true); !ok {
		return nil, fmt.Errorf("whitening: eigendecomposition of the within-group scatter failed")
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	q := len(values)
	top := floats.Max(values)
	if top <= 0 {
		return nil, fmt.Errorf("whitening: no variance within groups")
	}

	var keep []int
	for i, v := range values {
		if v > top*1e-10 {
			keep = append(keep, i)
		}
	}

	s := mat.NewDense(q, len(keep), nil)
	for c, k := range keep {
		scale := 1 / math.Sqrt(values[k])
		for r := 0; r < q; r++ {
			s.Set(r, c, vectors.At(r, k)*scale)
		}
	}

	return s, nil
}

// Project places new individuals, given as PC scores, on the discriminant
// axes.
func (m *Model) Project(z mat.Matrix) *mat.Dense {
	n, q := z.Dims()
	centered := mat.NewDense(n, q, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < q; j++ {
			centered.Set(i, j, z.At(i, j)-m.center[j])
		}
	}

	out := mat.NewDense(n, m.NDA(), nil)
	out.Mul(centered, m.Coefficients)

	return out
}

// Predict returns posterior membership probabilities and the most probable
// group for coordinates on the discriminant axes.
func (m *Model) Predict(coords mat.Matrix) (*mat.Dense, []int) {
	n, nda := coords.Dims()
	nGroups := len(m.Priors)

	post := mat.NewDense(n, nGroups, nil)
	assigned := make([]int, n)
	logp := make([]float64, nGroups)
	for i := 0; i < n; i++ {
		for g := 0; g < nGroups; g++ {
			d2 := 0.0
			for a := 0; a < nda; a++ {
				d := coords.At(i, a) - m.Centroids.At(g, a)
				d2 += d * d
			}
			logp[g] = math.Log(m.Priors[g]) - d2/2
		}

		top := floats.Max(logp)
		sum := 0.0
		for g := range logp {
			logp[g] = math.Exp(logp[g] - top)
			sum += logp[g]
		}
		floats.Scale(1/sum, logp)
		post.SetRow(i, logp)
		assigned[i] = floats.MaxIdx(logp)
	}

	return post, assigned
}

// Reassignment is the share of individuals whose assigned group is their own,
// per group.
func (m *Model) Reassignment(groups []int) []float64 {
	nGroups := len(m.Priors)
	hits := make([]float64, nGroups)
	sizes := make([]float64, nGroups)
	for i, g := range groups {
		sizes[g]++
		if m.Assigned[i] == g {
			hits[g]++
		}
	}
	for g := range hits {
		hits[g] /= sizes[g]
	}

	return hits
}

// Contributions are the squared loadings of each original variable on each
// discriminant axis, normalised to sum to one per axis. loadings maps
// variables to PC axes.
func (m *Model) Contributions(loadings mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(loadings, m.Coefficients)

	r, c := out.Dims()
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, &out)
		for i := range col {
			col[i] *= col[i]
		}
		if sum := floats.Sum(col); sum > 0 {
			floats.Scale(1/sum, col)
		}
		for i := 0; i < r; i++ {
			out.Set(i, j, col[i])
		}
	}

	return &out
}

func groupMeans(x *mat.Dense, groups, sizes []int) *mat.Dense {
	_, c := x.Dims()
	out := mat.NewDense(len(sizes), c, nil)
	for i, g := range groups {
		for j := 0; j < c; j++ {
			out.Set(g, j, out.At(g, j)+x.At(i, j)/float64(sizes[g]))
		}
	}

	return out
}

func absAll(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}

	return out
}
