package genotype

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"

	"cloud.google.com/go/storage"
	"github.com/brentp/irelate/interfaces"
	"github.com/carbocation/bix"
	"github.com/carbocation/pfx"
	"github.com/carbocation/vcfgo"
	"github.com/jasuspop/popgen"
	"github.com/jasuspop/popgen/chrpos"
)

type LoadOptions struct {
	// Stop after this many variant records. Zero reads everything.
	MaxLoci int

	// Optional samtools-style region; requires a tabix-indexed VCF.
	Region string

	// Needed only for gs:// paths.
	Client *storage.Client

	// Log progress every this many loci. Zero disables.
	LogEvery int
}

// LoadVCF reads diploid genotype calls from a VCF into a Matrix. Files with
// fewer records than MaxLoci are read whole. Malformed records, non-diploid
// calls and allele indices beyond the listed alleles are errors.
func LoadVCF(ctx context.Context, path string, opts LoadOptions) (*Matrix, error) {
	if opts.Region != "" {
		return loadTabixVCF(ctx, path, opts)
	}

	rc, err := popgen.OpenInput(ctx, path, opts.Client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ReadVCF(ctx, rc, opts)
}

// ReadVCF is LoadVCF over an already opened, uncompressed stream.
func ReadVCF(ctx context.Context, r io.Reader, opts LoadOptions) (*Matrix, error) {
	rdr, err := vcfgo.NewReader(bufio.NewReaderSize(r, popgen.BufferSize), false)
	if rdr == nil {
		if err == nil {
			err = fmt.Errorf("VCF reader could not be initialized")
		}
		return nil, pfx.Err(err)
	}
	if err != nil {
		// Header irregularities are recoverable; record errors are not.
		log.Println("VCF header has invalid features; continuing:", err)
		rdr.Clear()
	}
	if err := rdr.Error(); err != nil {
		log.Println("VCF header has invalid features; continuing:", err)
		rdr.Clear()
	}

	samples := append([]string(nil), rdr.Header.SampleNames...)
	if len(samples) == 0 {
		return nil, fmt.Errorf("ReadVCF: the VCF has no samples")
	}

	b := newMatrixBuilder(samples, opts)
	for !b.full() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		variant := rdr.Read()
		if err := rdr.Error(); err != nil {
			return nil, fmt.Errorf("ReadVCF: malformed record after %d loci: %w", len(b.loci), err)
		}
		if variant == nil {
			break
		}

		if err := b.add(variant); err != nil {
			return nil, err
		}
	}

	return b.matrix()
}

func loadTabixVCF(ctx context.Context, path string, opts LoadOptions) (*Matrix, error) {
	locus, err := chrpos.ParseRegion(opts.Region)
	if err != nil {
		return nil, err
	}

	tbx, err := bix.NewGCP(path, opts.Client)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	defer tbx.Close()

	samples := append([]string(nil), tbx.VReader.Header.SampleNames...)
	if len(samples) == 0 {
		return nil, fmt.Errorf("loadTabixVCF: the VCF has no samples")
	}

	vals, err := tbx.Query(locus)
	if err != nil {
		return nil, pfx.Err(err)
	}

	b := newMatrixBuilder(samples, opts)
	for !b.full() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := vals.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		// Unwrap multiple layers to get to vcfgo.Variant{}
		v2, ok := v.(interfaces.VarWrap)
		if !ok {
			return nil, fmt.Errorf("%s:%d is not a valid VarWrap", v.Chrom(), v.Start())
		}
		snp, ok := v2.IVariant.(*vcfgo.Variant)
		if !ok {
			return nil, fmt.Errorf("%s:%d is not a valid IVariant", v.Chrom(), v.Start())
		}

		if err := tbx.VReader.Header.ParseSamples(snp); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", snp.Chromosome, snp.Pos, err)
		}

		if err := b.add(snp); err != nil {
			return nil, err
		}
	}

	log.Printf("Region %s yielded %d loci\n", locus, len(b.loci))

	return b.matrix()
}

type matrixBuilder struct {
	samples []string
	opts    LoadOptions
	loci    []Locus
	columns [][]Call
}

func newMatrixBuilder(samples []string, opts LoadOptions) *matrixBuilder {
	return &matrixBuilder{samples: samples, opts: opts}
}

func (b *matrixBuilder) full() bool {
	return b.opts.MaxLoci > 0 && len(b.loci) >= b.opts.MaxLoci
}

func (b *matrixBuilder) add(v *vcfgo.Variant) error {
	locus, column, err := variantCalls(v, len(b.samples))
	if err != nil {
		return err
	}

	b.loci = append(b.loci, locus)
	b.columns = append(b.columns, column)

	if b.opts.LogEvery > 0 && len(b.loci)%b.opts.LogEvery == 0 {
		log.Printf("Loaded %d loci. Last %s:%d\n", len(b.loci), locus.Chromosome, locus.Position)
	}

	return nil
}

func (b *matrixBuilder) matrix() (*Matrix, error) {
	if len(b.loci) == 0 {
		return nil, fmt.Errorf("no variant records were read")
	}

	if b.opts.MaxLoci > 0 && len(b.loci) < b.opts.MaxLoci {
		log.Printf("Requested up to %d loci but the input holds %d; using all of them\n", b.opts.MaxLoci, len(b.loci))
	}

	return NewMatrixFromColumns(b.samples, b.loci, b.columns)
}

func variantCalls(v *vcfgo.Variant, nSamples int) (Locus, []Call, error) {
	locus := Locus{
		Chromosome: v.Chromosome,
		Position:   v.Pos,
		ID:         v.Id(),
		Alleles:    append([]string{v.Ref()}, v.Alt()...),
	}

	if len(locus.Alleles) > MaxAlleles {
		return locus, nil, fmt.Errorf("%s:%d has %d alleles, more than the %d supported", locus.Chromosome, locus.Position, len(locus.Alleles), MaxAlleles)
	}

	if len(v.Samples) != nSamples {
		return locus, nil, fmt.Errorf("%s:%d has %d sample columns but the header lists %d samples", locus.Chromosome, locus.Position, len(v.Samples), nSamples)
	}

	column := make([]Call, nSamples)
	for i, sample := range v.Samples {
		call, err := sampleCall(sample, len(locus.Alleles))
		if err != nil {
			return locus, nil, fmt.Errorf("%s:%d sample %d: %w", locus.Chromosome, locus.Position, i, err)
		}
		column[i] = call
	}

	return locus, column, nil
}

func sampleCall(sample *vcfgo.SampleGenotype, nAlleles int) (Call, error) {
	if sample == nil || len(sample.GT) == 0 {
		return MissingCall, nil
	}

	// A lone . is a valid missing call of any ploidy
	allMissing := true
	for _, gt := range sample.GT {
		if gt >= 0 {
			allMissing = false
		}
	}
	if allMissing {
		return MissingCall, nil
	}

	if len(sample.GT) != 2 {
		return MissingCall, fmt.Errorf("genotype has ploidy %d; only diploid calls are supported", len(sample.GT))
	}

	var call Call
	for j, gt := range sample.GT {
		if gt < 0 {
			// A half-missing call such as 0/. carries no usable genotype
			return MissingCall, nil
		}
		if gt >= nAlleles {
			return MissingCall, fmt.Errorf("allele index %d exceeds the %d alleles listed", gt, nAlleles)
		}
		call[j] = int8(gt)
	}

	return call, nil
}
