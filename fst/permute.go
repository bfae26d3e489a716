package fst

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"runtime"

	"github.com/carbocation/pfx"
	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/tabular"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// DefaultPermutations matches the usual 999 label shuffles.
const DefaultPermutations = 999

type Options struct {
	// Number of label permutations; zero skips the test
	N int

	// Permutation i shuffles with a source seeded by Seed+i
	Seed int64

	// Concurrent permutations; zero means one per CPU
	Workers int
}

// Permutation holds the observed θ matrix and its permutation null.
type Permutation struct {
	Observed *tabular.Matrix

	// Mean and 95th percentile of each cell over the permutations
	NullMean   *tabular.Matrix
	Quantile95 *tabular.Matrix

	// One-sided empirical P-value (#{null >= observed} + 1) / (N + 1)
	PValues *tabular.Matrix

	// Permuted matrices in permutation order
	Null []*tabular.Matrix
}

// Permute recomputes the pairwise matrix after shuffling all population
// labels opts.N times. The result does not depend on opts.Workers.
func Permute(ctx context.Context, s *population.Stratified, opts Options) (*Permutation, error) {
	if opts.N < 0 {
		return nil, fmt.Errorf("Permute: %d permutations requested", opts.N)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	observed := Pairwise(s)
	membership := s.Membership()

	out := &Permutation{
		Observed: observed,
		Null:     make([]*tabular.Matrix, opts.N),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < opts.N; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			labels := append([]int(nil), membership...)
			rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
			rng.Shuffle(len(labels), func(a, b int) {
				labels[a], labels[b] = labels[b], labels[a]
			})

			out.Null[i] = pairwise(s.Container, labels, s.Names)

			if (i+1)%100 == 0 {
				log.Printf("Completed permutation %d of %d\n", i+1, opts.N)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := out.summarize(); err != nil {
		return nil, err
	}

	return out, nil
}

// PairNull returns the permuted values of cell (i, j), skipping NaNs.
func (p *Permutation) PairNull(i, j int) []float64 {
	out := make([]float64, 0, len(p.Null))
	for _, m := range p.Null {
		if v := m.At(i, j); !math.IsNaN(v) {
			out = append(out, v)
		}
	}

	return out
}

func (p *Permutation) summarize() error {
	names := p.Observed.RowNames
	p.NullMean = tabular.NewSquare(names)
	p.Quantile95 = tabular.NewSquare(names)
	p.PValues = tabular.NewSquare(names)

	for i := range names {
		p.PValues.Set(i, i, math.NaN())

		for j := i + 1; j < len(names); j++ {
			null := p.PairNull(i, j)
			obs := p.Observed.At(i, j)

			mean, q95, pval := math.NaN(), math.NaN(), math.NaN()
			if len(null) > 0 {
				var err error
				if mean, err = stats.Mean(null); err != nil {
					return pfx.Err(err)
				}
				if q95, err = stats.Percentile(null, 95); err != nil {
					return pfx.Err(err)
				}

				if !math.IsNaN(obs) {
					atLeast := 0
					for _, v := range null {
						if v >= obs {
							atLeast++
						}
					}
					pval = float64(atLeast+1) / float64(len(null)+1)
				}
			}

			for _, cell := range [][2]int{{i, j}, {j, i}} {
				p.NullMean.Set(cell[0], cell[1], mean)
				p.Quantile95.Set(cell[0], cell[1], q95)
				p.PValues.Set(cell[0], cell[1], pval)
			}
		}
	}

	return nil
}
