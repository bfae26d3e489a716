package pipeline

import (
	"log"
	"os"

	"github.com/carbocation/pfx"
	"github.com/jasuspop/popgen/config"
	"github.com/jasuspop/popgen/report"
	"github.com/jasuspop/popgen/tabular"
)

type matrixOutput struct {
	name   string
	corner string
	m      *tabular.Matrix
}

// Export writes every table and plot named in cfg.Outputs under cfg.OutDir.
// Permutation outputs are skipped when the test was not run.
func Export(res *Result, cfg config.Config) error {
	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return pfx.Err(err)
	}

	out := cfg.Outputs

	matrices := []matrixOutput{
		{out.HoByPopulation, "locus", res.Populations.Ho},
		{out.HeByPopulation, "locus", res.Populations.He},
		{out.FisByPopulation, "locus", res.Populations.Fis},
		{out.AllelicRichness, "locus", res.Richness},
		{out.FST, "population", res.FST},
		{out.GenicDiff, "population", res.GenicDifferentiation},
		{out.Centroids, "group", res.DAPC.Centroids},
		{out.Contributions, "allele", res.DAPC.Contributions},
	}
	if res.Permutation != nil {
		matrices = append(matrices,
			matrixOutput{out.FSTNullMean, "population", res.Permutation.NullMean},
			matrixOutput{out.FSTQuantile95, "population", res.Permutation.Quantile95},
			matrixOutput{out.FSTPValues, "population", res.Permutation.PValues},
		)
	}

	for _, v := range matrices {
		if v.name == "" {
			continue
		}
		if err := report.WriteMatrix(cfg.Path(v.name), v.corner, v.m); err != nil {
			return err
		}
	}

	if path := cfg.Path(out.LocusSummary); path != "" {
		if err := report.WriteLocusSummary(path, res.Loci); err != nil {
			return err
		}
	}

	if path := cfg.Path(out.PopulationSummary); path != "" {
		if err := report.WritePopulationSummary(path, res.Populations, res.Richness.ColMeans()); err != nil {
			return err
		}
	}

	if path := cfg.Path(out.FSTNullHistograms); path != "" && res.Permutation != nil {
		if err := report.WriteNullHistograms(path, res.Permutation); err != nil {
			return err
		}
	}

	if path := cfg.Path(out.Coordinates); path != "" {
		if err := report.WriteCoordinates(path, res.DAPC); err != nil {
			return err
		}
	}

	if path := cfg.Path(out.Scatter); path != "" {
		if err := report.PlotScatter(path, res.DAPC, cfg.Palette); err != nil {
			return err
		}
	}

	if path := cfg.Path(out.Membership); path != "" {
		if err := report.PlotMembership(path, res.DAPC, cfg.Palette); err != nil {
			return err
		}
	}

	log.Printf("Wrote results to %s\n", cfg.OutDir)

	return nil
}
