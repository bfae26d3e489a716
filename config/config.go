// Package config holds the parameters of a pipeline run. Values come from
// Default, then an optional TOML file, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/carbocation/pfx"
	"github.com/jasuspop/popgen"
	"github.com/jasuspop/popgen/fst"
	"github.com/jasuspop/popgen/report"
)

var ErrInvalid = errors.New("invalid configuration")

// Outputs names the files written under OutDir. An empty name skips that
// output.
type Outputs struct {
	LocusSummary      string `toml:"locus_summary"`
	PopulationSummary string `toml:"population_summary"`
	HoByPopulation    string `toml:"ho_by_pop"`
	HeByPopulation    string `toml:"he_by_pop"`
	FisByPopulation   string `toml:"fis_by_pop"`
	AllelicRichness   string `toml:"allelic_richness"`
	FST               string `toml:"fst"`
	FSTNullMean       string `toml:"fst_null_mean"`
	FSTQuantile95     string `toml:"fst_null_q95"`
	FSTPValues        string `toml:"fst_pvalues"`
	FSTNullHistograms string `toml:"fst_null_histograms"`
	GenicDiff         string `toml:"fst_genic_differentiation"`
	Coordinates       string `toml:"dapc_coordinates"`
	Centroids         string `toml:"dapc_centroids"`
	Contributions     string `toml:"dapc_contributions"`
	Scatter           string `toml:"dapc_scatter"`
	Membership        string `toml:"dapc_membership"`
}

type Config struct {
	VCF    string `toml:"vcf"`
	Strata string `toml:"strata"`
	OutDir string `toml:"out_dir"`

	// Samtools-style region; needs a tabix index next to the VCF
	Region  string `toml:"region"`
	MaxLoci int    `toml:"max_loci"`

	// Stratification column holding the population labels; empty takes the
	// first label column
	StrataColumn    string   `toml:"strata_column"`
	PopulationOrder []string `toml:"population_order"`

	Permutations int   `toml:"permutations"`
	Seed         int64 `toml:"seed"`
	Workers      int   `toml:"workers"`

	// Share of loci with a Fisher P below this counts as differentiated
	GenicAlpha float64 `toml:"genic_alpha"`

	// Zero rarefies to the smallest typed sample
	RarefactionSize int `toml:"rarefaction_size"`

	NPCA              int  `toml:"n_pca"`
	NDA               int  `toml:"n_da"`
	FindClusters      bool `toml:"find_clusters"`
	MaxClusters       int  `toml:"max_clusters"`
	Clusters          int  `toml:"clusters"`
	AScoreSimulations int  `toml:"ascore_simulations"`

	Palette []string `toml:"palette"`

	Outputs Outputs `toml:"outputs"`
}

// Default mirrors the reference analysis: 2 retained PCs, 999 permutations
// and the six-colour palette.
func Default() Config {
	return Config{
		OutDir:            ".",
		Permutations:      fst.DefaultPermutations,
		Seed:              1,
		GenicAlpha:        0.05,
		NPCA:              2,
		MaxClusters:       10,
		AScoreSimulations: 10,
		Palette:           append([]string(nil), report.DefaultPalette...),
		Outputs: Outputs{
			LocusSummary:      "summary_loci.csv",
			PopulationSummary: "summary_populations.csv",
			HoByPopulation:    "ho_by_pop.csv",
			HeByPopulation:    "he_by_pop.csv",
			FisByPopulation:   "fis_by_pop.csv",
			AllelicRichness:   "allelic_richness.csv",
			FST:               "fst.csv",
			FSTNullMean:       "fst_null_mean.csv",
			FSTQuantile95:     "fst_null_q95.csv",
			FSTPValues:        "fst_pvalues.csv",
			FSTNullHistograms: "fst_null_histograms.txt",
			GenicDiff:         "fst_genic_differentiation.csv",
			Coordinates:       "dapc_coordinates.csv",
			Centroids:         "dapc_centroids.csv",
			Contributions:     "dapc_contributions.csv",
			Scatter:           "dapc_scatter.png",
			Membership:        "dapc_membership.png",
		},
	}
}

// Load decodes a TOML file over the defaults. Keys the file sets that no
// field takes are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	local, err := popgen.ExpandHome(path)
	if err != nil {
		return cfg, err
	}

	meta, err := toml.DecodeFile(local, &cfg)
	if err != nil {
		return cfg, pfx.Err(err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, v := range undecoded {
			keys = append(keys, v.String())
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// ExpandPaths resolves a leading ~ in the input and output locations.
func (c *Config) ExpandPaths() error {
	for _, v := range []*string{&c.VCF, &c.Strata, &c.OutDir} {
		expanded, err := popgen.ExpandHome(*v)
		if err != nil {
			return err
		}
		*v = expanded
	}

	return nil
}

// Path places an output file name under OutDir. It returns "" for a skipped
// output.
func (c Config) Path(name string) string {
	if name == "" {
		return ""
	}

	return filepath.Join(c.OutDir, name)
}

func (c Config) Validate() error {
	var problems []string
	fail := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.VCF == "" {
		fail("no VCF given")
	}
	if c.Strata == "" {
		fail("no stratification table given")
	}
	if c.OutDir == "" {
		fail("no output directory given")
	}
	if c.MaxLoci < 0 {
		fail("max_loci %d is negative", c.MaxLoci)
	}
	if c.Permutations < 0 {
		fail("permutations %d is negative", c.Permutations)
	}
	if c.Workers < 0 {
		fail("workers %d is negative", c.Workers)
	}
	if c.GenicAlpha <= 0 || c.GenicAlpha >= 1 {
		fail("genic_alpha %g is outside (0, 1)", c.GenicAlpha)
	}
	if c.RarefactionSize < 0 {
		fail("rarefaction_size %d is negative", c.RarefactionSize)
	}
	if c.NPCA < 1 {
		fail("n_pca %d must be at least 1", c.NPCA)
	}
	if c.NDA < 0 {
		fail("n_da %d is negative", c.NDA)
	}
	if c.FindClusters && c.Clusters == 0 && c.MaxClusters < 2 {
		fail("max_clusters %d must be at least 2", c.MaxClusters)
	}
	if c.Clusters < 0 {
		fail("clusters %d is negative", c.Clusters)
	}
	if c.AScoreSimulations < 0 {
		fail("ascore_simulations %d is negative", c.AScoreSimulations)
	}
	if len(c.Palette) == 0 {
		fail("the palette is empty")
	} else if _, err := report.ParsePalette(c.Palette); err != nil {
		fail("palette: %v", err)
	}

	seen := make(map[string]struct{}, len(c.PopulationOrder))
	for _, v := range c.PopulationOrder {
		if _, exists := seen[v]; exists {
			fail("population %q is listed twice in population_order", v)
		}
		seen[v] = struct{}{}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}

	return nil
}
