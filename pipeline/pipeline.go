// Package pipeline runs the whole analysis: load, annotate, summarise,
// differentiate, discriminate, then export. Each step derives new values from
// the previous ones; nothing is modified in place.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/storage"
	"github.com/jasuspop/popgen/config"
	"github.com/jasuspop/popgen/dapc"
	"github.com/jasuspop/popgen/fst"
	"github.com/jasuspop/popgen/genotype"
	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/report"
	"github.com/jasuspop/popgen/richness"
	"github.com/jasuspop/popgen/strata"
	"github.com/jasuspop/popgen/summary"
	"github.com/jasuspop/popgen/tabular"
)

type Result struct {
	Stratified *population.Stratified

	Overall     summary.Overall
	Loci        []summary.Locus
	Populations summary.Populations

	Richness        *tabular.Matrix
	RarefactionSize int

	FST *tabular.Matrix

	// Nil when permutations are disabled
	Permutation *fst.Permutation

	GenicDifferentiation *tabular.Matrix

	DAPC *dapc.Result
}

// Load reads the genotypes and the stratification table named by cfg and
// partitions the individuals into populations. client is needed only for
// gs:// paths.
func Load(ctx context.Context, cfg config.Config, client *storage.Client) (*population.Stratified, error) {
	m, err := genotype.LoadVCF(ctx, cfg.VCF, genotype.LoadOptions{
		MaxLoci:  cfg.MaxLoci,
		Region:   cfg.Region,
		Client:   client,
		LogEvery: 1000,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d individuals x %d loci\n", m.NIndividuals(), m.NLoci())

	c, err := genotype.Build(m)
	if err != nil {
		return nil, err
	}

	table, err := strata.ReadFile(ctx, cfg.Strata, client)
	if err != nil {
		return nil, err
	}

	s, err := population.Annotate(c, table, cfg.StrataColumn, cfg.PopulationOrder)
	if err != nil {
		return nil, err
	}
	for k, name := range s.Names {
		log.Printf("Population %s: %d individuals\n", name, len(s.Members(k)))
	}

	return s, nil
}

// Run loads the inputs and analyses them.
func Run(ctx context.Context, cfg config.Config, client *storage.Client) (*Result, error) {
	s, err := Load(ctx, cfg, client)
	if err != nil {
		return nil, err
	}

	return Analyze(ctx, s, cfg)
}

// Analyze computes every statistic for an already stratified container.
func Analyze(ctx context.Context, s *population.Stratified, cfg config.Config) (*Result, error) {
	if s.NPopulations() < 2 {
		return nil, fmt.Errorf("Analyze: need at least 2 populations, found %d", s.NPopulations())
	}

	groups := s.NPopulations()
	if cfg.FindClusters {
		groups = cfg.Clusters
	}
	if cfg.Outputs.Scatter != "" || cfg.Outputs.Membership != "" {
		if err := report.CheckPalette(cfg.Palette, groups); err != nil {
			return nil, fmt.Errorf("Analyze: %w", err)
		}
	}

	res := &Result{Stratified: s}
	var err error

	started := time.Now()
	res.Loci = summary.Summarize(s.Container)
	res.Overall = summary.Describe(s.Container)
	res.Populations = summary.ByPopulation(s)
	log.Printf("Summary: %d individuals, %d loci, %.2f%% missing, %d-%d alleles per locus, %d loci out of HWE\n",
		res.Overall.NIndividuals, res.Overall.NLoci, res.Overall.PctMissing,
		res.Overall.MinAlleles, res.Overall.MaxAlleles, res.Overall.HWEDeviations)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Richness, res.RarefactionSize, err = richness.Compute(s, cfg.RarefactionSize)
	if err != nil {
		return nil, err
	}
	log.Printf("Allelic richness rarefied to %d allele copies\n", res.RarefactionSize)

	if cfg.Permutations > 0 {
		res.Permutation, err = fst.Permute(ctx, s, fst.Options{
			N:       cfg.Permutations,
			Seed:    cfg.Seed,
			Workers: cfg.Workers,
		})
		if err != nil {
			return nil, err
		}
		res.FST = res.Permutation.Observed
	} else {
		res.FST = fst.Pairwise(s)
	}
	res.GenicDifferentiation = fst.GenicDifferentiation(s, cfg.GenicAlpha)
	log.Printf("Pairwise FST over %d populations done\n", s.NPopulations())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.DAPC, err = dapc.Run(s, dapc.Options{
		NPCA:         cfg.NPCA,
		NDA:          cfg.NDA,
		FindClusters: cfg.FindClusters,
		Clusters: dapc.ClusterOptions{
			MaxK: cfg.MaxClusters,
			K:    cfg.Clusters,
		},
		AScoreSimulations: cfg.AScoreSimulations,
		Seed:              cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("DAPC: %w", err)
	}

	log.Printf("Analysis finished in %s\n", time.Since(started))

	return res, nil
}
