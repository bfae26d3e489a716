package strata

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadDelimiters(t *testing.T) {
	cases := map[string]string{
		"comma":      "ID,Pop,Region\nJ1,PA,north\nJ2,TR,south\nJ3,PA,north\n",
		"tab":        "ID\tPop\tRegion\nJ1\tPA\tnorth\nJ2\tTR\tsouth\nJ3\tPA\tnorth\n",
		"whitespace": "ID  Pop   Region\nJ1 PA north\n\nJ2   TR south\nJ3 PA north\n",
	}

	for name, contents := range cases {
		tab, err := Read(strings.NewReader(contents))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !reflect.DeepEqual(tab.Header, []string{"ID", "Pop", "Region"}) {
			t.Errorf("%s: header %v", name, tab.Header)
		}
		if !reflect.DeepEqual(tab.IDs(), []string{"J1", "J2", "J3"}) {
			t.Errorf("%s: IDs %v", name, tab.IDs())
		}
		rows := tab.Lookup("J2")
		if len(rows) != 1 || rows[0][1] != "TR" || rows[0][2] != "south" {
			t.Errorf("%s: lookup J2 gave %v", name, rows)
		}
	}
}

func TestColumn(t *testing.T) {
	tab, err := Read(strings.NewReader("ID,Pop,Region\nJ1,PA,north\n"))
	if err != nil {
		t.Fatal(err)
	}

	if col, err := tab.Column(""); err != nil || col != 1 {
		t.Errorf("Default column: %d %v", col, err)
	}
	if col, err := tab.Column("Region"); err != nil || col != 2 {
		t.Errorf("Region column: %d %v", col, err)
	}
	if _, err := tab.Column("ID"); err == nil {
		t.Error("The ID column is not a label column")
	}
	if _, err := tab.Column("Species"); err == nil {
		t.Error("Expected an error for an absent column")
	}
}

func TestDuplicates(t *testing.T) {
	tab, err := Read(strings.NewReader("ID,Pop\nJ1,PA\nJ2,TR\nJ1,TR\n"))
	if err != nil {
		t.Fatal(err)
	}

	if got := tab.Duplicates(); !reflect.DeepEqual(got, []string{"J1"}) {
		t.Errorf("Duplicates %v", got)
	}
	if got := len(tab.Lookup("J1")); got != 2 {
		t.Errorf("Expected 2 rows for J1, got %d", got)
	}
}

func TestReadRejects(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"no labels": "ID\nJ1\nJ2\n",
		"ragged":    "ID,Pop\nJ1,PA\nJ2\n",
		"blank ID":  "ID,Pop\n,PA\n",
	}

	for name, contents := range cases {
		if _, err := Read(strings.NewReader(contents)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.tsv")
	if err := os.WriteFile(path, []byte("ID\tPop\nJ1\tPA\nJ2\tTR\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tab, err := ReadFile(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(tab.Rows))
	}
}
