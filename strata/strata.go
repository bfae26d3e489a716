// Package strata reads the table that assigns each individual to one or more
// groupings: a header row, an ID column, then one label column per grouping.
package strata

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/jasuspop/popgen"
)

type Table struct {
	// Header[0] names the ID column
	Header []string

	// Each row is ID followed by one value per label column, in file order
	Rows [][]string

	index map[string][]int
}

// ReadFile opens a local, ~/ or gs:// path, decompressing if needed.
func ReadFile(ctx context.Context, path string, client *storage.Client) (*Table, error) {
	rc, err := popgen.OpenInput(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := Read(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// Read parses a delimited table. Comma, tab and semicolon delimiters are
// detected; otherwise fields are split on runs of whitespace.
func Read(r io.Reader) (*Table, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var records [][]string
	delim := popgen.DetermineDelimiterBytes(firstLines(raw, 20))
	if delim == ' ' {
		records = whitespaceRecords(raw)
	} else {
		cr := csv.NewReader(bytes.NewReader(raw))
		cr.Comma = delim
		cr.TrimLeadingSpace = true
		cr.FieldsPerRecord = -1
		records, err = cr.ReadAll()
		if err != nil {
			return nil, pfx.Err(err)
		}
	}

	return fromRecords(records)
}

func fromRecords(records [][]string) (*Table, error) {
	// Drop blank lines
	kept := records[:0]
	for _, rec := range records {
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		kept = append(kept, rec)
	}
	records = kept

	if len(records) < 1 {
		return nil, fmt.Errorf("stratification table is empty")
	}

	t := &Table{
		Header: trimAll(records[0]),
		index:  make(map[string][]int),
	}
	if len(t.Header) < 2 {
		return nil, fmt.Errorf("stratification table needs an ID column and at least one label column; header has %d fields", len(t.Header))
	}

	for line, rec := range records[1:] {
		rec = trimAll(rec)
		if len(rec) != len(t.Header) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d", line+2, len(rec), len(t.Header))
		}
		if rec[0] == "" {
			return nil, fmt.Errorf("line %d has an empty ID", line+2)
		}
		t.index[rec[0]] = append(t.index[rec[0]], len(t.Rows))
		t.Rows = append(t.Rows, rec)
	}

	return t, nil
}

// Column returns the index of a label column within each row. An empty name
// selects the first label column.
func (t *Table) Column(name string) (int, error) {
	if name == "" {
		return 1, nil
	}

	for i, v := range t.Header {
		if i > 0 && v == name {
			return i, nil
		}
	}

	return -1, fmt.Errorf("column %q not found; label columns are %s", name, strings.Join(t.Header[1:], ", "))
}

// Lookup returns every row whose ID is id, in file order.
func (t *Table) Lookup(id string) [][]string {
	rows := t.index[id]
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, t.Rows[r])
	}

	return out
}

// IDs lists the ID column in file order, duplicates included.
func (t *Table) IDs() []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[0]
	}

	return out
}

// Duplicates lists IDs that occur on more than one row.
func (t *Table) Duplicates() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, row := range t.Rows {
		id := row[0]
		if _, done := seen[id]; done {
			continue
		}
		seen[id] = struct{}{}
		if len(t.index[id]) > 1 {
			out = append(out, id)
		}
	}

	return out
}

func firstLines(raw []byte, n int) []byte {
	end := 0
	for i := 0; i < n; i++ {
		next := bytes.IndexByte(raw[end:], '\n')
		if next < 0 {
			return raw
		}
		end += next + 1
	}

	return raw[:end]
}

func whitespaceRecords(raw []byte) [][]string {
	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	out := make([][]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.Fields(line))
	}

	return out
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}

	return out
}
