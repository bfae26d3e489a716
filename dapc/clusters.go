package dapc

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type ClusterOptions struct {
	// Largest number of clusters tried
	MaxK int

	// When positive, use this many clusters instead of choosing by BIC
	K int

	// k-means runs per K; the lowest within-cluster sum of squares wins
	Restarts int

	MaxIter int
	Seed    int64
}

// Clusters is the outcome of the k-means search.
type Clusters struct {
	K          int
	Membership []int

	// BIC and within-cluster sum of squares for K = 1 .. MaxK
	BIC []float64
	WSS []float64
}

// FindClusters runs k-means on the rows of z for every K from 1 to MaxK and
// keeps the K with the lowest BIC, n·ln(WSS/n) + K·ln(n). Cluster indices are
// numbered by first appearance among the rows.
func FindClusters(z mat.Matrix, opts ClusterOptions) (*Clusters, error) {
	n, _ := z.Dims()
	if opts.MaxK < 1 && opts.K < 1 {
		return nil, fmt.Errorf("FindClusters: MaxK must be at least 1")
	}
	if opts.Restarts < 1 {
		opts.Restarts = 10
	}
	if opts.MaxIter < 1 {
		opts.MaxIter = 100
	}

	maxK := opts.MaxK
	if opts.K > maxK {
		maxK = opts.K
	}
	if maxK > n {
		maxK = n
	}

	points := make([][]float64, n)
	for i := range points {
		points[i] = mat.Row(nil, i, z)
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	out := &Clusters{}
	var best []int
	bestBIC := math.Inf(1)
	for k := 1; k <= maxK; k++ {
		var labels []int
		wss := math.Inf(1)
		for r := 0; r < opts.Restarts; r++ {
			l, w := kmeans(points, k, opts.MaxIter, rng)
			if w < wss {
				labels, wss = l, w
			}
		}

		bic := float64(n)*math.Log(math.Max(wss, 1e-300)/float64(n)) + float64(k)*math.Log(float64(n))
		out.BIC = append(out.BIC, bic)
		out.WSS = append(out.WSS, wss)

		if opts.K > 0 {
			if k == opts.K {
				out.K, best = k, labels
			}
			continue
		}
		if bic < bestBIC {
			bestBIC = bic
			out.K, best = k, labels
		}
	}

	out.Membership = renumber(best)

	// Clusters emptied during the iterations do not count
	out.K = 0
	for _, v := range out.Membership {
		if v+1 > out.K {
			out.K = v + 1
		}
	}

	return out, nil
}

// kmeans is Lloyd's algorithm from k-means++ seeds. It returns the labels
// and the within-cluster sum of squares.
func kmeans(points [][]float64, k, maxIter int, rng *rand.Rand) ([]int, float64) {
	n := len(points)
	centers := seedCenters(points, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			c := nearest(p, centers)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(points[0]))
		}
		for i, p := range points {
			counts[labels[i]]++
			floats.Add(sums[labels[i]], p)
		}
		for c := range centers {
			// An emptied cluster keeps its previous center
			if counts[c] == 0 {
				continue
			}
			copy(centers[c], sums[c])
			floats.Scale(1/float64(counts[c]), centers[c])
		}
	}

	wss := 0.0
	for i, p := range points {
		d := floats.Distance(p, centers[labels[i]], 2)
		wss += d * d
	}

	return labels, wss
}

func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), points[rng.Intn(len(points))]...))

	d2 := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			d := floats.Distance(p, centers[nearest(p, centers)], 2)
			d2[i] = d * d
			total += d2[i]
		}

		next := rng.Intn(len(points))
		if total > 0 {
			target := rng.Float64() * total
			for i, v := range d2 {
				target -= v
				if target <= 0 {
					next = i
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), points[next]...))
	}

	return centers
}

func nearest(p []float64, centers [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := floats.Distance(p, center, 2); d < bestD {
			best, bestD = c, d
		}
	}

	return best
}

func renumber(labels []int) []int {
	mapping := make(map[int]int)
	out := make([]int, len(labels))
	for i, v := range labels {
		if _, exists := mapping[v]; !exists {
			mapping[v] = len(mapping)
		}
		out[i] = mapping[v]
	}

	return out
}
