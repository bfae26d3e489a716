// vcf2dadi writes the inputs of a dadi demographic analysis for two
// populations of a VCF: the SNP data dictionary and the folded joint site
// frequency spectrum, projected down to fixed sample sizes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/jasuspop/popgen"
	"github.com/jasuspop/popgen/compileinfo"
	"github.com/jasuspop/popgen/config"
	"github.com/jasuspop/popgen/pipeline"
	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/sfs"
)

func main() {
	compileinfo.PrintToStdErr()

	var (
		vcf        string
		strataPath string
		column     string
		pops       string
		project    string
		maxLoci    int
		dictPath   string
		fsPath     string
		unfolded   bool
	)

	flag.StringVar(&vcf, "vcf", "", "VCF file with the genotypes. May be compressed and may be a gs:// path.")
	flag.StringVar(&strataPath, "strata", "", "Stratification table: a header, then individual ID and population label(s).")
	flag.StringVar(&column, "column", "", "Optional. Stratification column with the population labels. Defaults to the first label column.")
	flag.StringVar(&pops, "pops", "JPA,JTR", "Comma-separated pair of populations.")
	flag.StringVar(&project, "project", "49,41", "Comma-separated allele copies to project each population down to.")
	flag.IntVar(&maxLoci, "maxloci", 0, "Read at most this many loci. 0 reads all.")
	flag.StringVar(&dictPath, "dict", "", "Optional. Path for the dadi SNP data dictionary.")
	flag.StringVar(&fsPath, "fs", "", "Optional. Path for the joint spectrum in dadi .fs format.")
	flag.BoolVar(&unfolded, "unfolded", false, "Write the unfolded spectrum instead of the folded one?")
	flag.Parse()

	if vcf == "" || strataPath == "" || (dictPath == "" && fsPath == "") {
		flag.PrintDefaults()
		return
	}

	popIDs := strings.Split(pops, ",")
	projections, err := parseProjections(project)
	if err != nil {
		log.Fatalln(err)
	}
	if len(popIDs) != 2 || len(projections) != 2 {
		log.Fatalln("-pops and -project must each list exactly 2 values")
	}

	cfg := config.Default()
	cfg.VCF, cfg.Strata, cfg.MaxLoci, cfg.StrataColumn = vcf, strataPath, maxLoci, column
	if err := cfg.ExpandPaths(); err != nil {
		log.Fatalln(err)
	}

	ctx := context.Background()

	var client *storage.Client
	if popgen.IsGoogleStoragePath(cfg.VCF) || popgen.IsGoogleStoragePath(cfg.Strata) {
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	s, err := pipeline.Load(ctx, cfg, client)
	if err != nil {
		log.Fatalln(err)
	}

	if dictPath != "" {
		if err := writeDataDict(dictPath, s, popIDs); err != nil {
			log.Fatalln(err)
		}
	}

	if fsPath != "" {
		if err := writeSpectrum(fsPath, s, popIDs, projections, !unfolded); err != nil {
			log.Fatalln(err)
		}
	}
}

func parseProjections(v string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("projection %q: %w", field, err)
		}
		out = append(out, n)
	}

	return out, nil
}

func writeDataDict(path string, s *population.Stratified, pops []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := sfs.WriteDataDict(f, s, pops)
	if err != nil {
		return err
	}
	log.Printf("Wrote %d biallelic loci to %s\n", n, path)

	return f.Close()
}

func writeSpectrum(path string, s *population.Stratified, pops []string, projections []int, fold bool) error {
	sp, err := sfs.Joint(s, pops, projections)
	if err != nil {
		return err
	}
	log.Printf("%d loci typed in at least %d and %d allele copies entered the spectrum\n", sp.Sites, projections[0], projections[1])

	if fold {
		if sp, err = sp.Fold(); err != nil {
			return err
		}
	}
	log.Printf("Segregating sites: %.2f\n", sp.S())

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := sp.WriteTo(f); err != nil {
		return err
	}

	return f.Close()
}
