package genotype

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustMatrix(t *testing.T, individuals []string, loci []Locus, columns [][]Call) *Matrix {
	t.Helper()

	m, err := NewMatrixFromColumns(individuals, loci, columns)
	if err != nil {
		t.Fatal(err)
	}

	return m
}

func biallelic(name string) Locus {
	return Locus{Chromosome: "1", ID: name, Alleles: []string{"A", "G"}}
}

func TestCall(t *testing.T) {
	cases := []struct {
		Call      Call
		Missing   bool
		Het       bool
		AltDosage int
		String    string
	}{
		{Call{0, 0}, false, false, 0, "0/0"},
		{Call{0, 1}, false, true, 1, "0/1"},
		{Call{1, 1}, false, false, 2, "1/1"},
		{MissingCall, true, false, 0, "./."},
		{Call{0, Missing}, true, false, 0, "./."},
	}

	for _, cs := range cases {
		if got := cs.Call.IsMissing(); got != cs.Missing {
			t.Errorf("%v: IsMissing %v, expected %v", cs.Call, got, cs.Missing)
		}
		if got := cs.Call.IsHeterozygous(); got != cs.Het {
			t.Errorf("%v: IsHeterozygous %v, expected %v", cs.Call, got, cs.Het)
		}
		if got := cs.Call.Dosage(1); got != cs.AltDosage {
			t.Errorf("%v: Dosage(1) %d, expected %d", cs.Call, got, cs.AltDosage)
		}
		if got := cs.Call.String(); got != cs.String {
			t.Errorf("String %q, expected %q", got, cs.String)
		}
	}
}

func TestLocusName(t *testing.T) {
	if got := (Locus{Chromosome: "3", Position: 12, ID: "rs1"}).Name(); got != "rs1" {
		t.Errorf("Expected rs1, got %s", got)
	}
	if got := (Locus{Chromosome: "3", Position: 12, ID: "."}).Name(); got != "3_12" {
		t.Errorf("Expected 3_12, got %s", got)
	}
}

func TestNewMatrixRejects(t *testing.T) {
	loci := []Locus{biallelic("a")}

	if _, err := NewMatrix([]string{"x", "x"}, loci, []Call{{0, 0}, {0, 1}}); err == nil {
		t.Error("Expected an error for duplicate individuals")
	}
	if _, err := NewMatrix([]string{"x"}, loci, []Call{{0, 0}, {0, 1}}); err == nil {
		t.Error("Expected an error for a wrong number of calls")
	}
	if _, err := NewMatrix([]string{"x"}, loci, []Call{{0, 2}}); err == nil {
		t.Error("Expected an error for an allele index beyond the locus alleles")
	}
}

func TestMatrixLayout(t *testing.T) {
	m := mustMatrix(t, []string{"i1", "i2", "i3"}, []Locus{biallelic("a"), biallelic("b")}, [][]Call{
		{{0, 0}, {0, 1}, MissingCall},
		{{1, 1}, MissingCall, {0, 1}},
	})

	if m.NIndividuals() != 3 || m.NLoci() != 2 {
		t.Fatalf("Unexpected dims %dx%d", m.NIndividuals(), m.NLoci())
	}
	if got := m.At(1, 0); got != (Call{0, 1}) {
		t.Errorf("At(1,0) = %v", got)
	}
	if got := m.At(0, 1); got != (Call{1, 1}) {
		t.Errorf("At(0,1) = %v", got)
	}
	if got := m.MissingFraction(); got != 2.0/6.0 {
		t.Errorf("MissingFraction %v, expected %v", got, 2.0/6.0)
	}
	if got := strings.Join(m.LocusNames(), ","); got != "a,b" {
		t.Errorf("LocusNames %s", got)
	}
}

func TestContainerTally(t *testing.T) {
	loci := []Locus{
		{Chromosome: "1", ID: "tri", Alleles: []string{"A", "C", "T"}},
		biallelic("mono"),
	}
	m := mustMatrix(t, []string{"i1", "i2", "i3", "i4"}, loci, [][]Call{
		{{0, 2}, {2, 2}, MissingCall, {0, 0}},
		{{0, 0}, {0, 0}, {0, 0}, MissingCall},
	})

	c, err := Build(m)
	if err != nil {
		t.Fatal(err)
	}

	if got := c.NAlleles(0); got != 2 {
		t.Errorf("Allele C was never observed; expected 2 observed alleles, got %d", got)
	}
	if got := c.NAlleles(1); got != 1 {
		t.Errorf("Expected a monomorphic locus, got %d alleles", got)
	}
	if got := strings.Join(c.AlleleNames(), ","); got != "tri.A,tri.T,mono.A" {
		t.Errorf("AlleleNames %s", got)
	}

	all := c.Tally(0, nil)
	if all.Typed != 3 || all.Heterozygous != 1 {
		t.Errorf("Typed %d het %d", all.Typed, all.Heterozygous)
	}
	if all.Counts[0] != 3 || all.Counts[1] != 0 || all.Counts[2] != 3 {
		t.Errorf("Counts %v", all.Counts)
	}
	if all.HetCarriers[0] != 1 || all.HetCarriers[2] != 1 {
		t.Errorf("HetCarriers %v", all.HetCarriers)
	}
	if got := all.Frequency(2); got != 0.5 {
		t.Errorf("Frequency %v", got)
	}

	sub := c.Tally(0, []int{1, 2})
	if sub.Typed != 1 || sub.Counts[2] != 2 {
		t.Errorf("Subset tally %+v", sub)
	}

	groups := c.TallyGroups(0, []int{0, 1, 1, -1}, 2)
	if groups[0].Typed != 1 || groups[1].Typed != 1 {
		t.Errorf("Group tallies %+v", groups)
	}
	if groups[0].Heterozygous != 1 || groups[1].Counts[2] != 2 {
		t.Errorf("Group tallies %+v", groups)
	}
}

func TestBuildEmpty(t *testing.T) {
	m := mustMatrix(t, []string{}, []Locus{biallelic("a")}, [][]Call{{}})
	if _, err := Build(m); err == nil {
		t.Error("Expected an error for a matrix without individuals")
	}
}

const testVCF = `##fileformat=VCFv4.2
##contig=<ID=chr1,length=100000>
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	s1	s2	s3
chr1	100	snp1	A	G	.	PASS	.	GT	0/0	0/1	1/1
chr1	200	.	C	T	.	PASS	.	GT	./.	0|1	0/0
chr1	300	snp3	G	A,C	.	PASS	.	GT	0/2	1/2	./.
chr1	400	snp4	T	C	.	PASS	.	GT	0/1	.	0/1
`

func writeTestFile(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadVCF(t *testing.T) {
	path := writeTestFile(t, "test.vcf", testVCF)

	m, err := LoadVCF(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(m.Individuals, ","); got != "s1,s2,s3" {
		t.Errorf("Individuals %s", got)
	}
	if m.NLoci() != 4 {
		t.Fatalf("Expected 4 loci, got %d", m.NLoci())
	}
	if got := m.Loci[1].Name(); got != "chr1_200" {
		t.Errorf("Unnamed locus got name %s", got)
	}
	if got := len(m.Loci[2].Alleles); got != 3 {
		t.Errorf("Expected 3 alleles at snp3, got %d", got)
	}
	if !m.At(0, 1).IsMissing() {
		t.Errorf("Expected s1 to be missing at chr1_200, got %v", m.At(0, 1))
	}
	if got := m.At(1, 1); got != (Call{0, 1}) {
		t.Errorf("Phased call parsed as %v", got)
	}
	if got := m.At(1, 2); got != (Call{1, 2}) {
		t.Errorf("Multiallelic call parsed as %v", got)
	}
	if !m.At(1, 3).IsMissing() {
		t.Errorf("Expected the lone . of s2 at snp4 to be missing, got %v", m.At(1, 3))
	}
	if got := m.At(2, 3); got != (Call{0, 1}) {
		t.Errorf("Call after a lone . parsed as %v", got)
	}
}

func TestLoadVCFMaxLoci(t *testing.T) {
	path := writeTestFile(t, "test.vcf", testVCF)

	m, err := LoadVCF(context.Background(), path, LoadOptions{MaxLoci: 2})
	if err != nil {
		t.Fatal(err)
	}
	if m.NLoci() != 2 {
		t.Errorf("Expected truncation to 2 loci, got %d", m.NLoci())
	}

	m, err = LoadVCF(context.Background(), path, LoadOptions{MaxLoci: 50})
	if err != nil {
		t.Fatal(err)
	}
	if m.NLoci() != 4 {
		t.Errorf("A limit above the record count should read all 4 loci, got %d", m.NLoci())
	}
}

func TestLoadVCFRejectsPolyploidCall(t *testing.T) {
	bad := strings.Replace(testVCF, "0/0\t0/1\t1/1", "0/0\t0/1/1\t1/1", 1)
	path := writeTestFile(t, "bad.vcf", bad)

	if _, err := LoadVCF(context.Background(), path, LoadOptions{}); err == nil {
		t.Error("Expected an error for a triploid call")
	}
}

func TestLoadVCFMissingFile(t *testing.T) {
	if _, err := LoadVCF(context.Background(), filepath.Join(t.TempDir(), "absent.vcf"), LoadOptions{}); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadVCFCancelled(t *testing.T) {
	path := writeTestFile(t, "test.vcf", testVCF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := LoadVCF(ctx, path, LoadOptions{}); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}
