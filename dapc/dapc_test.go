package dapc

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/jasuspop/popgen/genotype"
	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/strata"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// crossPolytopes places, around each center, the 2d points center ± e_j.
// Splitting such a cluster barely lowers its sum of squares.
func crossPolytopes(centers [][]float64) (*mat.Dense, []int) {
	d := len(centers[0])
	var data []float64
	var groups []int
	for g, c := range centers {
		for j := 0; j < d; j++ {
			for _, sign := range []float64{1, -1} {
				p := append([]float64(nil), c...)
				p[j] += sign
				data = append(data, p...)
				groups = append(groups, g)
			}
		}
	}

	return mat.NewDense(len(groups), d, data), groups
}

func threeCenters(d int) [][]float64 {
	centers := make([][]float64, 3)
	for g := range centers {
		centers[g] = make([]float64, d)
	}
	centers[1][0] = 10
	centers[2][1] = 10

	return centers
}

func TestFit(t *testing.T) {
	z, groups := crossPolytopes(threeCenters(10))

	m, err := Fit(z, groups, 3, 0)
	if err != nil {
		t.Fatal(err)
	}

	if m.NDA() != 2 {
		t.Fatalf("Expected 2 discriminant axes, got %d", m.NDA())
	}
	if m.Eigenvalues[0] < m.Eigenvalues[1] {
		t.Errorf("Eigenvalues are not descending: %v", m.Eigenvalues)
	}

	// Centroids are the group means of the coordinates
	sizes := []int{20, 20, 20}
	means := groupMeans(m.Coordinates, groups, sizes)
	if !mat.EqualApprox(means, m.Centroids, 1e-9) {
		t.Errorf("Centroids %v differ from the group means %v", mat.Formatted(m.Centroids), mat.Formatted(means))
	}

	n, _ := z.Dims()
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, m.Posterior)
		if sum := floats.Sum(row); math.Abs(sum-1) > 1e-9 {
			t.Errorf("Posterior of individual %d sums to %v", i, sum)
		}
		if m.Assigned[i] != groups[i] {
			t.Errorf("Individual %d assigned to %d, expected %d", i, m.Assigned[i], groups[i])
		}
	}

	for g, v := range m.Reassignment(groups) {
		if v != 1 {
			t.Errorf("Group %d reassignment %v", g, v)
		}
	}

	// Projection of the training data reproduces the coordinates
	if !mat.EqualApprox(m.Project(z), m.Coordinates, 1e-9) {
		t.Error("Project does not reproduce the fitted coordinates")
	}
}

func TestFitRejects(t *testing.T) {
	z, groups := crossPolytopes(threeCenters(4))

	if _, err := Fit(z, groups, 1, 0); err == nil {
		t.Error("Expected an error for a single group")
	}
	if _, err := Fit(z, groups[:5], 3, 0); err == nil {
		t.Error("Expected an error for mismatched labels")
	}
	if _, err := Fit(z, groups, 4, 0); err == nil {
		t.Error("Expected an error for an empty group")
	}
}

func TestContributions(t *testing.T) {
	z, groups := crossPolytopes(threeCenters(4))
	m, err := Fit(z, groups, 3, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Six variables loading on the four axes
	loadings := mat.NewDense(6, 4, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 4; j++ {
			loadings.Set(i, j, float64((i+1)*(j+2)%5)-2)
		}
	}

	contr := m.Contributions(loadings)
	r, c := contr.Dims()
	if r != 6 || c != 2 {
		t.Fatalf("Contributions are %dx%d", r, c)
	}
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, contr)
		if sum := floats.Sum(col); math.Abs(sum-1) > 1e-9 {
			t.Errorf("Axis %d contributions sum to %v", j, sum)
		}
		if floats.Min(col) < 0 {
			t.Errorf("Negative contribution on axis %d", j)
		}
	}
}

func TestFindClusters(t *testing.T) {
	z, groups := crossPolytopes(threeCenters(10))

	cl, err := FindClusters(z, ClusterOptions{MaxK: 6, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if cl.K != 3 {
		t.Fatalf("Expected 3 clusters by BIC, got %d (BIC %v)", cl.K, cl.BIC)
	}
	for i := range groups {
		if cl.Membership[i] != groups[i] {
			t.Fatalf("Individual %d in cluster %d, expected %d", i, cl.Membership[i], groups[i])
		}
	}
	if len(cl.BIC) != 6 || len(cl.WSS) != 6 {
		t.Errorf("Expected statistics for K = 1..6, got %d and %d", len(cl.BIC), len(cl.WSS))
	}

	again, err := FindClusters(z, ClusterOptions{MaxK: 6, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	for k := range cl.BIC {
		if cl.BIC[k] != again.BIC[k] {
			t.Errorf("BIC for K=%d differs between identical runs", k+1)
		}
	}

	fixed, err := FindClusters(z, ClusterOptions{MaxK: 2, K: 3, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if fixed.K != 3 {
		t.Errorf("Expected the fixed K to be honoured, got %d", fixed.K)
	}
}

func TestAScore(t *testing.T) {
	z, groups := crossPolytopes(threeCenters(4))

	a, err := ComputeAScore(z, groups, 3, 0, 20, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.PerGroup) != 3 {
		t.Fatalf("Expected 3 group scores, got %d", len(a.PerGroup))
	}
	if a.Mean <= 0 || a.Mean > 1 {
		t.Errorf("Well separated groups should have an a-score in (0, 1], got %v", a.Mean)
	}
}

func diverged(t *testing.T, perPop, nLoci int) *population.Stratified {
	t.Helper()

	pops := []string{"JPA", "JTR", "JED"}
	rng := rand.New(rand.NewSource(11))

	var ids []string
	var table strings.Builder
	table.WriteString("ID\tPop\n")
	for _, p := range pops {
		for i := 0; i < perPop; i++ {
			id := p + "_" + strconv.Itoa(i)
			ids = append(ids, id)
			table.WriteString(id + "\t" + p + "\n")
		}
	}

	loci := make([]genotype.Locus, nLoci)
	columns := make([][]genotype.Call, nLoci)
	for l := range loci {
		loci[l] = genotype.Locus{Chromosome: "1", Position: uint64(l + 1), Alleles: []string{"A", "G"}}
		columns[l] = make([]genotype.Call, len(ids))
		for i := range ids {
			p := 0.1
			if (l+i/perPop)%3 == 0 {
				p = 0.9
			}
			if i == 2 && l == 0 {
				columns[l][i] = genotype.MissingCall
				continue
			}
			var call genotype.Call
			for j := range call {
				if rng.Float64() < p {
					call[j] = 1
				}
			}
			columns[l][i] = call
		}
	}

	m, err := genotype.NewMatrixFromColumns(ids, loci, columns)
	if err != nil {
		t.Fatal(err)
	}
	c, err := genotype.Build(m)
	if err != nil {
		t.Fatal(err)
	}
	tab, err := strata.Read(strings.NewReader(table.String()))
	if err != nil {
		t.Fatal(err)
	}
	s, err := population.Annotate(c, tab, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func TestAlleleTable(t *testing.T) {
	s := diverged(t, 5, 4)
	x, names := AlleleTable(s.Container)

	r, c := x.Dims()
	if r != 15 || c != len(names) {
		t.Fatalf("Table is %dx%d with %d names", r, c, len(names))
	}

	// Individual 2 is missing at locus 0 and takes the column mean
	col := mat.Col(nil, 0, x)
	sum := 0.0
	for i, v := range col {
		if i != 2 {
			sum += v
		}
	}
	if math.Abs(col[2]-sum/14) > 1e-12 {
		t.Errorf("Missing cell %v, expected the mean %v", col[2], sum/14)
	}

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := x.At(i, j); v < 0 || v > 1 {
				t.Errorf("Cell %d,%d is %v", i, j, v)
			}
		}
	}
}

func TestPCA(t *testing.T) {
	s := diverged(t, 8, 12)
	x, _ := AlleleTable(s.Container)

	pcs, err := PCA(x, 3)
	if err != nil {
		t.Fatal(err)
	}
	if pcs.NPCA() != 3 {
		t.Errorf("Expected 3 axes, got %d", pcs.NPCA())
	}
	if pcs.RetainedVariance <= 0 || pcs.RetainedVariance > 1 {
		t.Errorf("Retained variance %v", pcs.RetainedVariance)
	}
	for i := 1; i < len(pcs.Eigenvalues); i++ {
		if pcs.Eigenvalues[i] > pcs.Eigenvalues[i-1]+1e-12 {
			t.Errorf("Eigenvalues are not descending: %v", pcs.Eigenvalues)
			break
		}
	}

	// Scores are centered
	for j := 0; j < pcs.NPCA(); j++ {
		if mean := floats.Sum(mat.Col(nil, j, pcs.Scores)) / 24; math.Abs(mean) > 1e-9 {
			t.Errorf("Axis %d scores have mean %v", j, mean)
		}
	}

	all, err := PCA(x, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if all.NPCA() >= 24 {
		t.Errorf("Centered data of 24 individuals has at most 23 informative axes, got %d", all.NPCA())
	}

	if _, err := PCA(x, 0); err == nil {
		t.Error("Expected an error for zero axes")
	}
}

func TestRun(t *testing.T) {
	s := diverged(t, 10, 30)

	res, err := Run(s, Options{NPCA: 5, AScoreSimulations: 5, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}

	if res.NPCA != 5 || res.NDA() != 2 {
		t.Errorf("NPCA %d NDA %d", res.NPCA, res.NDA())
	}
	if res.RetainedVariance <= 0 || res.RetainedVariance > 1 {
		t.Errorf("Retained variance %v", res.RetainedVariance)
	}
	if r, c := res.Coordinates.Dims(); r != 30 || c != 2 {
		t.Errorf("Coordinates are %dx%d", r, c)
	}
	if r, _ := res.Contributions.Dims(); r != len(s.AlleleNames()) {
		t.Errorf("Contributions have %d rows for %d alleles", r, len(s.AlleleNames()))
	}
	if res.AScore == nil {
		t.Error("Expected an a-score")
	}

	// Centroids and coordinates come from the same model
	for g := range res.GroupNames {
		for a := 0; a < res.NDA(); a++ {
			sum, n := 0.0, 0
			for i, v := range res.Groups {
				if v == g {
					sum += res.Coordinates.At(i, a)
					n++
				}
			}
			if math.Abs(sum/float64(n)-res.Centroids.At(g, a)) > 1e-9 {
				t.Errorf("Centroid %d axis %d is %v, group mean %v", g, a, res.Centroids.At(g, a), sum/float64(n))
			}
		}
	}

	for i := range res.Individuals {
		if sum := floats.Sum(res.Posterior.Row(i)); math.Abs(sum-1) > 1e-9 {
			t.Errorf("Posterior of %s sums to %v", res.Individuals[i], sum)
		}
	}
}

func TestRunFindClusters(t *testing.T) {
	s := diverged(t, 10, 30)

	res, err := Run(s, Options{NPCA: 5, FindClusters: true, Clusters: ClusterOptions{K: 3}, Seed: 2})
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(res.GroupNames, ","); got != "Cluster1,Cluster2,Cluster3" {
		t.Errorf("Group names %s", got)
	}
	for i, v := range res.Groups {
		if v != res.Populations[i] {
			t.Fatalf("Clusters do not recover the populations: individual %d in cluster %d, population %d", i, v, res.Populations[i])
		}
	}
}
