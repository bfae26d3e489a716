package fst

import (
	fet "github.com/glycerine/golang-fisher-exact"
	"github.com/jasuspop/popgen/population"
	"github.com/jasuspop/popgen/tabular"
)

// GenicDifferentiation tests, for each pair of populations and each locus
// with two observed alleles typed in both, whether allele counts differ (two-sided
// Fisher exact test on the 2x2 table of copies). The returned matrix holds
// the share of tested loci with P < alpha; the diagonal is zero.
func GenicDifferentiation(s *population.Stratified, alpha float64) *tabular.Matrix {
	k := s.NPopulations()
	membership := s.Membership()

	significant := make([][]int, k)
	tested := make([][]int, k)
	for i := range significant {
		significant[i] = make([]int, k)
		tested[i] = make([]int, k)
	}

	for l := range s.Loci {
		alleles := s.Alleles(l)
		if len(alleles) != 2 {
			continue
		}
		a, b := alleles[0], alleles[1]

		tallies := s.TallyGroups(l, membership, k)
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				x, y := tallies[i], tallies[j]
				if x.Typed == 0 || y.Typed == 0 {
					continue
				}

				_, _, _, twop := fet.FisherExactTest(x.Counts[a], x.Counts[b], y.Counts[a], y.Counts[b])
				tested[i][j]++
				if twop < alpha {
					significant[i][j]++
				}
			}
		}
	}

	out := tabular.NewSquare(s.Names)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if tested[i][j] == 0 {
				continue
			}
			share := float64(significant[i][j]) / float64(tested[i][j])
			out.Set(i, j, share)
			out.Set(j, i, share)
		}
	}

	return out
}
