package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jasuspop/popgen/dapc"
	"github.com/jasuspop/popgen/fst"
	"github.com/jasuspop/popgen/summary"
	"github.com/jasuspop/popgen/tabular"
)

func readFile(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	return string(b)
}

func TestWriteMatrix(t *testing.T) {
	m := tabular.NewSquare([]string{"JPA", "JTR"})
	m.Set(0, 1, 0.25)

	path := filepath.Join(t.TempDir(), "fst.csv")
	if err := WriteMatrix(path, "population", m); err != nil {
		t.Fatal(err)
	}

	expected := "population,JPA,JTR\nJPA,0,0.25\nJTR,NA,0\n"
	if got := readFile(t, path); got != expected {
		t.Errorf("Got %q, expected %q", got, expected)
	}
}

func TestWriteLocusSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loci.csv")
	err := WriteLocusSummary(path, []summary.Locus{
		{Name: "rs1", NAlleles: 2, Typed: 3, Ho: 0.5, He: 0.375, PctMissing: 25, HWEP: 1},
		{Name: "rs2", NAlleles: 0, Typed: 0, Ho: math.NaN(), He: math.NaN(), PctMissing: 100, HWEP: math.NaN()},
	})
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, path)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "locus,n_alleles,n_typed,ho,he,pct_missing,hwe_p" {
		t.Errorf("Header %q", lines[0])
	}
	if lines[2] != "rs2,0,0,NA,NA,100,NA" {
		t.Errorf("Undefined values must be written as NA: %q", lines[2])
	}
}

func TestWritePopulationSummary(t *testing.T) {
	ho := tabular.New([]string{"l1", "l2"}, []string{"A", "B"})
	ho.Set(0, 0, 0.2)
	ho.Set(1, 0, 0.4)
	p := summary.Populations{
		Names: []string{"A", "B"},
		N:     []int{5, 0},
		Ho:    ho,
		He:    tabular.New(ho.RowNames, ho.ColNames),
		Fis:   tabular.New(ho.RowNames, ho.ColNames),
	}

	path := filepath.Join(t.TempDir(), "pops.csv")
	if err := WritePopulationSummary(path, p, []float64{1.5}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, path)), "\n")
	if lines[1] != "A,5,0.30000000000000004,NA,NA,1.5" && lines[1] != "A,5,0.3,NA,NA,1.5" {
		t.Errorf("Row %q", lines[1])
	}
	if lines[2] != "B,0,NA,NA,NA,NA" {
		t.Errorf("Row %q", lines[2])
	}
}

func toyResult(t *testing.T, nda int) *dapc.Result {
	t.Helper()

	ids := []string{"a1", "a2", "a3", "b1", "b2", "b3", "c1", "c2", "c3"}
	groups := []int{0, 0, 0, 1, 1, 1, 2, 2, 2}
	names := []string{"JPA", "JTR", "JED"}

	axes := []string{"LD1", "LD2"}[:nda]
	coords := tabular.New(ids, axes)
	post := tabular.New(ids, names)
	for i, g := range groups {
		coords.Set(i, 0, float64(5*g)+float64(i%3)-1)
		if nda > 1 {
			coords.Set(i, 1, float64(3*(g%2))+0.5*float64(i%3))
		}
		for k := range names {
			p := 0.05
			if k == g {
				p = 0.9
			}
			post.Set(i, k, p)
		}
	}

	centroids := tabular.New(names, axes)
	for g := range names {
		for a := range axes {
			sum := 0.0
			for i, v := range groups {
				if v == g {
					sum += coords.At(i, a)
				}
			}
			centroids.Set(g, a, sum/3)
		}
	}

	return &dapc.Result{
		Individuals:      ids,
		GroupNames:       names,
		Groups:           groups,
		PopulationNames:  names,
		Populations:      groups,
		NPCA:             4,
		RetainedVariance: 0.42,
		Coordinates:      coords,
		Centroids:        centroids,
		Posterior:        post,
		Assigned:         groups,
	}
}

func isPNG(t *testing.T, path string) {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("%s is not a PNG", path)
	}
}

func TestWriteCoordinates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coords.csv")
	if err := WriteCoordinates(path, toyResult(t, 2)); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, path)), "\n")
	if len(lines) != 10 {
		t.Fatalf("Expected 10 lines, got %d", len(lines))
	}
	if lines[0] != "individual,population,group,assigned,LD1,LD2,p_JPA,p_JTR,p_JED" {
		t.Errorf("Header %q", lines[0])
	}
	if lines[1] != "a1,JPA,JPA,JPA,-1,0,0.9,0.05,0.05" {
		t.Errorf("First row %q", lines[1])
	}
}

func TestPlots(t *testing.T) {
	dir := t.TempDir()

	for _, nda := range []int{1, 2} {
		res := toyResult(t, nda)

		scatter := filepath.Join(dir, "scatter.png")
		if err := PlotScatter(scatter, res, DefaultPalette); err != nil {
			t.Fatalf("NDA %d: %v", nda, err)
		}
		isPNG(t, scatter)

		membership := filepath.Join(dir, "membership.png")
		if err := PlotMembership(membership, res, DefaultPalette); err != nil {
			t.Fatalf("NDA %d: %v", nda, err)
		}
		isPNG(t, membership)
	}
}

func TestPalette(t *testing.T) {
	res := toyResult(t, 2)
	path := filepath.Join(t.TempDir(), "scatter.png")

	if err := PlotScatter(path, res, DefaultPalette[:2]); err == nil {
		t.Error("Expected an error for a palette shorter than the group count")
	}
	if _, err := ParsePalette([]string{"#12345G"}); err == nil {
		t.Error("Expected an error for a bad colour")
	}
	if colors, err := ParsePalette([]string{"#FF0000", "00ff00"}); err != nil || len(colors) != 2 {
		t.Errorf("Expected two colours, got %v %v", colors, err)
	} else if colors[0].R != 255 || colors[1].G != 255 {
		t.Errorf("Colours parsed as %v", colors)
	}
}

func TestCheckPalette(t *testing.T) {
	if err := CheckPalette(DefaultPalette, 6); err != nil {
		t.Error(err)
	}
	if err := CheckPalette(DefaultPalette, 7); err == nil {
		t.Error("Expected an error for 7 groups and 6 colours")
	}
	if err := CheckPalette([]string{"red"}, 1); err == nil {
		t.Error("Expected an error for a colour name")
	}
}

func TestCell(t *testing.T) {
	for _, v := range []struct {
		in       float64
		expected string
	}{
		{0.25, "0.25"},
		{0, "0"},
		{math.NaN(), NA},
		{math.Inf(1), NA},
		{math.Inf(-1), NA},
	} {
		got, err := cell(v.in).MarshalCSV()
		if err != nil {
			t.Fatal(err)
		}
		if got != v.expected {
			t.Errorf("%v: expected %q, got %q", v.in, v.expected, got)
		}
	}
}

func TestWriteNullHistograms(t *testing.T) {
	names := []string{"A", "B", "C"}
	obs := tabular.NewSquare(names)
	perm := &fst.Permutation{
		Observed:   obs,
		NullMean:   tabular.NewSquare(names),
		Quantile95: tabular.NewSquare(names),
		PValues:    tabular.NewSquare(names),
	}
	for p := 0; p < 30; p++ {
		m := tabular.NewSquare(names)
		m.Set(0, 1, float64(p)/100)
		m.Set(1, 0, float64(p)/100)
		m.Set(0, 2, 0.1)
		m.Set(2, 0, 0.1)
		perm.Null = append(perm.Null, m)
	}

	path := filepath.Join(t.TempDir(), "null.txt")
	if err := WriteNullHistograms(path, perm); err != nil {
		t.Fatal(err)
	}

	got := readFile(t, path)
	for _, want := range []string{"A vs B:", "A vs C:", "all 30 permutations gave 0.1", "B vs C:", "no permutation values"} {
		if !strings.Contains(got, want) {
			t.Errorf("Output lacks %q:\n%s", want, got)
		}
	}
}
