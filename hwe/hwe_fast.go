package hwe

import "github.com/BenLubar/memoize"

var memoizedApproximate = memoize.Memoize(Approximate)

// Fast uses the chi square approximation and only pays for the exact test
// when the approximate P value falls below cutoff.
func Fast(AA, Aa, aa int64, cutoff float64) float64 {
	p := memoizedApproximate.(func(float64, float64, float64) float64)(float64(AA), float64(Aa), float64(aa))
	if p < cutoff {
		return Exact(AA, Aa, aa)
	}

	return p
}
