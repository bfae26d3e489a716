// jasuspop runs the population structure analysis of a SNP panel: locus
// summaries, allelic richness, pairwise FST with a permutation test and a
// discriminant analysis of principal components, written as CSV tables and
// PNG plots.
package main

import (
	"context"
	"flag"
	"log"

	"cloud.google.com/go/storage"
	"github.com/jasuspop/popgen"
	"github.com/jasuspop/popgen/compileinfo"
	"github.com/jasuspop/popgen/config"
	"github.com/jasuspop/popgen/pipeline"
)

func main() {
	compileinfo.PrintToStdErr()

	var (
		configPath   string
		vcf          string
		strataPath   string
		outDir       string
		maxLoci      int
		permutations int
		npca         int
		seed         int64
		workers      int
		findClusters bool
	)

	defaults := config.Default()

	flag.StringVar(&configPath, "config", "", "Optional. TOML file with the run configuration. Flags given on the command line override it.")
	flag.StringVar(&vcf, "vcf", "", "VCF file with the genotypes. May be compressed and may be a gs:// path.")
	flag.StringVar(&strataPath, "strata", "", "Stratification table: a header, then individual ID and population label(s).")
	flag.StringVar(&outDir, "out", defaults.OutDir, "Directory for the output tables and plots.")
	flag.IntVar(&maxLoci, "maxloci", defaults.MaxLoci, "Read at most this many loci. 0 reads all.")
	flag.IntVar(&permutations, "permutations", defaults.Permutations, "Label permutations for the FST significance test. 0 disables the test.")
	flag.IntVar(&npca, "npca", defaults.NPCA, "Principal components retained before the discriminant analysis.")
	flag.Int64Var(&seed, "seed", defaults.Seed, "Random seed for permutations, clustering and the a-score.")
	flag.IntVar(&workers, "workers", defaults.Workers, "Concurrent permutations. 0 uses one per CPU.")
	flag.BoolVar(&findClusters, "findclusters", defaults.FindClusters, "Replace the population labels with k-means clusters before the discriminant analysis?")
	flag.Parse()

	cfg := defaults
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatalln(err)
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "vcf":
			cfg.VCF = vcf
		case "strata":
			cfg.Strata = strataPath
		case "out":
			cfg.OutDir = outDir
		case "maxloci":
			cfg.MaxLoci = maxLoci
		case "permutations":
			cfg.Permutations = permutations
		case "npca":
			cfg.NPCA = npca
		case "seed":
			cfg.Seed = seed
		case "workers":
			cfg.Workers = workers
		case "findclusters":
			cfg.FindClusters = findClusters
		}
	})

	if cfg.VCF == "" || cfg.Strata == "" {
		flag.PrintDefaults()
		return
	}

	if err := cfg.ExpandPaths(); err != nil {
		log.Fatalln(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}

	ctx := context.Background()

	var client *storage.Client
	if popgen.IsGoogleStoragePath(cfg.VCF) || popgen.IsGoogleStoragePath(cfg.Strata) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	res, err := pipeline.Run(ctx, cfg, client)
	if err != nil {
		log.Fatalln(err)
	}

	if err := pipeline.Export(res, cfg); err != nil {
		log.Fatalln(err)
	}

	log.Println("Done")
}
