// Package population attaches a stratification table to a genotype container,
// partitioning its individuals into named populations.
package population

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jasuspop/popgen/genotype"
	"github.com/jasuspop/popgen/strata"
)

// ErrMismatch is returned when the individuals of the container and the rows
// of the stratification table do not correspond one to one.
var ErrMismatch = errors.New("individuals and stratification rows do not match")

// Stratified is a container partitioned into populations. Individuals keep
// the order of the container.
type Stratified struct {
	*genotype.Container
	Table *strata.Table

	// Names of the populations, in index order
	Names []string

	membership []int
}

// Annotate assigns each individual of c the label found in the named column
// of the table (the first label column if column is empty). Every individual
// must appear on exactly one row and the table must have no other rows.
// Population indices follow order when given, otherwise order of first
// appearance among the individuals.
func Annotate(c *genotype.Container, table *strata.Table, column string, order []string) (*Stratified, error) {
	col, err := table.Column(column)
	if err != nil {
		return nil, err
	}

	if err := checkCorrespondence(c.Individuals, table); err != nil {
		return nil, err
	}

	labels := make([]string, c.NIndividuals())
	for i, id := range c.Individuals {
		label := table.Lookup(id)[0][col]
		if label == "" || label == "NA" {
			return nil, fmt.Errorf("individual %s has no population label in column %s", id, table.Header[col])
		}
		labels[i] = label
	}

	names, err := populationNames(labels, order)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(names))
	for k, v := range names {
		index[v] = k
	}

	membership := make([]int, len(labels))
	for i, v := range labels {
		membership[i] = index[v]
	}

	return &Stratified{
		Container:  c,
		Table:      table,
		Names:      names,
		membership: membership,
	}, nil
}

func checkCorrespondence(individuals []string, table *strata.Table) error {
	var problems []string

	if len(individuals) != len(table.Rows) {
		problems = append(problems, fmt.Sprintf("%d individuals in the genotypes but %d rows in the table", len(individuals), len(table.Rows)))
	}

	if dups := table.Duplicates(); len(dups) > 0 {
		problems = append(problems, "duplicated in the table: "+abbreviate(dups))
	}

	inGenotypes := make(map[string]struct{}, len(individuals))
	var absent []string
	for _, id := range individuals {
		inGenotypes[id] = struct{}{}
		if len(table.Lookup(id)) == 0 {
			absent = append(absent, id)
		}
	}
	if len(absent) > 0 {
		problems = append(problems, "missing from the table: "+abbreviate(absent))
	}

	var extra []string
	for _, id := range table.IDs() {
		if _, exists := inGenotypes[id]; !exists {
			extra = append(extra, id)
		}
	}
	if len(extra) > 0 {
		problems = append(problems, "not in the genotypes: "+abbreviate(extra))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMismatch, strings.Join(problems, "; "))
	}

	return nil
}

func abbreviate(ids []string) string {
	const show = 10
	if len(ids) <= show {
		return strings.Join(ids, ", ")
	}

	return fmt.Sprintf("%s and %d more", strings.Join(ids[:show], ", "), len(ids)-show)
}

func populationNames(labels, order []string) ([]string, error) {
	if len(order) == 0 {
		var names []string
		seen := make(map[string]struct{})
		for _, v := range labels {
			if _, exists := seen[v]; !exists {
				seen[v] = struct{}{}
				names = append(names, v)
			}
		}
		return names, nil
	}

	present := make(map[string]struct{})
	for _, v := range labels {
		present[v] = struct{}{}
	}

	listed := make(map[string]struct{}, len(order))
	for _, v := range order {
		if _, dup := listed[v]; dup {
			return nil, fmt.Errorf("population %s is listed twice in the population order", v)
		}
		listed[v] = struct{}{}
		if _, exists := present[v]; !exists {
			return nil, fmt.Errorf("population %s is listed in the population order but no individual carries it", v)
		}
	}

	var unlisted []string
	for v := range present {
		if _, exists := listed[v]; !exists {
			unlisted = append(unlisted, v)
		}
	}
	if len(unlisted) > 0 {
		sort.Strings(unlisted)
		return nil, fmt.Errorf("populations missing from the population order: %s", strings.Join(unlisted, ", "))
	}

	return append([]string(nil), order...), nil
}

func (s *Stratified) NPopulations() int {
	return len(s.Names)
}

// Membership returns a copy of the population index of each individual.
func (s *Stratified) Membership() []int {
	return append([]int(nil), s.membership...)
}

// Population of individual i.
func (s *Stratified) Population(i int) int {
	return s.membership[i]
}

// Members lists the individuals of population k, ascending.
func (s *Stratified) Members(k int) []int {
	var out []int
	for i, v := range s.membership {
		if v == k {
			out = append(out, i)
		}
	}

	return out
}

// Sizes counts the individuals of each population.
func (s *Stratified) Sizes() []int {
	out := make([]int, len(s.Names))
	for _, v := range s.membership {
		out[v]++
	}

	return out
}

// Index returns the position of a population name, or -1.
func (s *Stratified) Index(name string) int {
	for k, v := range s.Names {
		if v == name {
			return k
		}
	}

	return -1
}

// Relabel returns a partition of the same container with a new membership,
// such as shuffled labels or discovered clusters. The receiver is unchanged.
func (s *Stratified) Relabel(membership []int, names []string) (*Stratified, error) {
	if len(membership) != s.NIndividuals() {
		return nil, fmt.Errorf("Relabel: %d labels for %d individuals", len(membership), s.NIndividuals())
	}
	for i, v := range membership {
		if v < 0 || v >= len(names) {
			return nil, fmt.Errorf("Relabel: individual %s has population %d of %d", s.Individuals[i], v, len(names))
		}
	}

	return &Stratified{
		Container:  s.Container,
		Table:      s.Table,
		Names:      append([]string(nil), names...),
		membership: append([]int(nil), membership...),
	}, nil
}
