package dapc

import (
	"fmt"
	"log"
	"strconv"

	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/tabular"
)

type Options struct {
	// PC axes retained before the discriminant analysis
	NPCA int

	// Discriminant axes; zero keeps groups - 1
	NDA int

	// Replace the population labels with k-means clusters
	FindClusters bool
	Clusters     ClusterOptions

	// Random-group refits for the a-score; zero skips it
	AScoreSimulations int

	Seed int64
}

// Result gathers everything derived from one fitted model.
type Result struct {
	Individuals []string

	// Groups analysed: the populations, or the discovered clusters
	GroupNames []string
	Groups     []int

	// Population of each individual, whatever the groups are
	PopulationNames []string
	Populations     []int

	NPCA             int
	RetainedVariance float64
	PCAEigenvalues   []float64

	// Discriminant eigenvalues
	Eigenvalues []float64

	Coordinates   *tabular.Matrix
	Centroids     *tabular.Matrix
	Contributions *tabular.Matrix
	Posterior     *tabular.Matrix
	Assigned      []int

	Clusters *Clusters
	AScore   *AScore
}

// Run performs the whole analysis on a stratified container.
func Run(s *population.Stratified, opts Options) (*Result, error) {
	x, alleles := AlleleTable(s.Container)

	pcs, err := PCA(x, opts.NPCA)
	if err != nil {
		return nil, err
	}
	if pcs.NPCA() < opts.NPCA {
		log.Printf("Only %d of the %d requested PC axes carry variance\n", pcs.NPCA(), opts.NPCA)
	}
	log.Printf("Retained %d PC axes holding %.1f%% of the variance\n", pcs.NPCA(), 100*pcs.RetainedVariance)

	res := &Result{
		Individuals:      append([]string(nil), s.Individuals...),
		PopulationNames:  append([]string(nil), s.Names...),
		Populations:      s.Membership(),
		NPCA:             pcs.NPCA(),
		RetainedVariance: pcs.RetainedVariance,
		PCAEigenvalues:   pcs.Eigenvalues,
		GroupNames:       append([]string(nil), s.Names...),
		Groups:           s.Membership(),
	}

	if opts.FindClusters {
		copts := opts.Clusters
		if copts.Seed == 0 {
			copts.Seed = opts.Seed
		}
		res.Clusters, err = FindClusters(pcs.Scores, copts)
		if err != nil {
			return nil, err
		}
		log.Printf("k-means chose %d clusters\n", res.Clusters.K)
		if res.Clusters.K < 2 {
			return nil, fmt.Errorf("k-means found a single cluster; set a fixed number of clusters to run the discriminant analysis")
		}

		res.Groups = res.Clusters.Membership
		res.GroupNames = make([]string, res.Clusters.K)
		for k := range res.GroupNames {
			res.GroupNames[k] = "Cluster" + strconv.Itoa(k+1)
		}
	}

	model, err := Fit(pcs.Scores, res.Groups, len(res.GroupNames), opts.NDA)
	if err != nil {
		return nil, err
	}

	axes := make([]string, model.NDA())
	for a := range axes {
		axes[a] = "LD" + strconv.Itoa(a+1)
	}

	res.Eigenvalues = model.Eigenvalues
	res.Assigned = model.Assigned

	if res.Coordinates, err = tabular.FromDense(res.Individuals, axes, model.Coordinates); err != nil {
		return nil, err
	}
	if res.Centroids, err = tabular.FromDense(res.GroupNames, axes, model.Centroids); err != nil {
		return nil, err
	}
	if res.Contributions, err = tabular.FromDense(alleles, axes, model.Contributions(pcs.Loadings)); err != nil {
		return nil, err
	}
	if res.Posterior, err = tabular.FromDense(res.Individuals, res.GroupNames, model.Posterior); err != nil {
		return nil, err
	}

	if opts.AScoreSimulations > 0 {
		res.AScore, err = ComputeAScore(pcs.Scores, res.Groups, len(res.GroupNames), opts.NDA, opts.AScoreSimulations, opts.Seed)
		if err != nil {
			return nil, fmt.Errorf("a-score: %w", err)
		}
		log.Printf("a-score over %d simulations: %.3f\n", opts.AScoreSimulations, res.AScore.Mean)
	}

	return res, nil
}

// NDA is the number of discriminant axes in the result.
func (r *Result) NDA() int {
	_, c := r.Coordinates.Dims()
	return c
}
