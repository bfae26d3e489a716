package dapc

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// AScore measures overfitting: the share of individuals reassigned to their
// own group minus the same share when the groups are random.
type AScore struct {
	PerGroup []float64
	Mean     float64
}

// ComputeAScore refits the discriminant analysis on nSim random
// permutations of groups. Simulation i shuffles with a source seeded by
// seed+i.
func ComputeAScore(z mat.Matrix, groups []int, nGroups, nda, nSim int, seed int64) (*AScore, error) {
	model, err := Fit(z, groups, nGroups, nda)
	if err != nil {
		return nil, err
	}
	observed := model.Reassignment(groups)

	random := make([]float64, nGroups)
	shuffled := make([]int, len(groups))
	for sim := 0; sim < nSim; sim++ {
		copy(shuffled, groups)
		rng := rand.New(rand.NewSource(seed + int64(sim)))
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		m, err := Fit(z, shuffled, nGroups, nda)
		if err != nil {
			return nil, err
		}
		floats.Add(random, m.Reassignment(shuffled))
	}

	out := &AScore{PerGroup: make([]float64, nGroups)}
	for g := range observed {
		out.PerGroup[g] = observed[g]
		if nSim > 0 {
			out.PerGroup[g] -= random[g] / float64(nSim)
		}
	}
	out.Mean = floats.Sum(out.PerGroup) / float64(nGroups)

	return out, nil
}
