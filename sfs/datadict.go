// Package sfs builds the inputs of dadi demographic inference: the SNP data
// dictionary table and folded, projected joint site frequency spectra.
package sfs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jasuspop/popgen/population"
)

// WriteDataDict writes the dadi SNP table for the named populations: one row
// per biallelic locus with the allele counts of each population. Flanking
// bases are unknown and written as dashes.
func WriteDataDict(w io.Writer, s *population.Stratified, pops []string) (int, error) {
	index, err := popIndices(s, pops)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)

	header := []string{"Ingroup", "Outgroup", "Allele1"}
	header = append(header, pops...)
	header = append(header, "Allele2")
	header = append(header, pops...)
	header = append(header, "Gene", "Position")
	if _, err := fmt.Fprintln(bw, strings.Join(header, "\t")); err != nil {
		return 0, pfx.Err(err)
	}

	membership := s.Membership()
	written := 0
	for l, locus := range s.Loci {
		if len(locus.Alleles) != 2 {
			continue
		}

		tallies := s.TallyGroups(l, membership, s.NPopulations())

		ref, alt := locus.Alleles[0], locus.Alleles[1]
		context := "-" + firstBase(ref) + "-"
		row := []string{context, context, ref}
		for _, k := range index {
			row = append(row, strconv.Itoa(tallies[k].Counts[0]))
		}
		row = append(row, alt)
		for _, k := range index {
			row = append(row, strconv.Itoa(tallies[k].Counts[1]))
		}
		row = append(row, locus.Chromosome, strconv.FormatUint(locus.Position, 10))

		if _, err := fmt.Fprintln(bw, strings.Join(row, "\t")); err != nil {
			return written, pfx.Err(err)
		}
		written++
	}

	if err := bw.Flush(); err != nil {
		return written, pfx.Err(err)
	}

	return written, nil
}

func popIndices(s *population.Stratified, pops []string) ([]int, error) {
	if len(pops) == 0 {
		return nil, fmt.Errorf("no populations requested")
	}

	out := make([]int, len(pops))
	for i, name := range pops {
		k := s.Index(name)
		if k < 0 {
			return nil, fmt.Errorf("population %s not found; populations are %s", name, strings.Join(s.Names, ", "))
		}
		out[i] = k
	}

	return out, nil
}

func firstBase(allele string) string {
	if allele == "" {
		return "N"
	}

	return allele[:1]
}
