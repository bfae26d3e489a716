package hwe

import (
	"math"

	"github.com/BenLubar/memoize"
)

// Ties between genotype configurations are decided with this relative slack,
// matching plink's SNPHWE.
const tieTolerance = 1e-8

var memoizedExact = memoize.Memoize(exact)

// Exact computes the exact Hardy-Weinberg equilibrium P-value of a biallelic
// site from its genotype counts (Wigginton, Cutler and Abecasis 2005). The
// P-value sums the probability of every heterozygote count that is no more
// likely than the observed one, given the observed allele counts. Exact is
// safe to call from concurrent goroutines. With no genotypes it returns NaN.
func Exact(AA, Aa, aa int64) float64 {
	// The memoized function is keyed on the common/rare orientation
	if aa > AA {
		AA, aa = aa, AA
	}

	return memoizedExact.(func(int64, int64, int64) float64)(AA, Aa, aa)
}

func exact(homCommon, hets, homRare int64) float64 {
	genotypes := homCommon + hets + homRare
	if genotypes <= 0 || hets < 0 || homCommon < 0 || homRare < 0 {
		return math.NaN()
	}

	rareCopies := 2*homRare + hets
	if rareCopies == 0 {
		return 1.0
	}

	probs := make([]float64, rareCopies+1)

	// Start at the most likely heterozygote count, which has the parity of
	// rareCopies, and walk outwards using the ratio between neighbours.
	mid := rareCopies * (2*genotypes - rareCopies) / (2 * genotypes)
	if (rareCopies & 1) != (mid & 1) {
		mid++
	}

	probs[mid] = 1.0
	sum := 1.0

	het, rare := mid, (rareCopies-mid)/2
	common := genotypes - het - rare
	for het > 1 {
		probs[het-2] = probs[het] * float64(het) * float64(het-1) / (4.0 * float64(rare+1) * float64(common+1))
		sum += probs[het-2]
		het, rare, common = het-2, rare+1, common+1
	}

	het, rare = mid, (rareCopies-mid)/2
	common = genotypes - het - rare
	for het <= rareCopies-2 {
		probs[het+2] = probs[het] * 4.0 * float64(rare) * float64(common) / (float64(het+2) * float64(het+1))
		sum += probs[het+2]
		het, rare, common = het+2, rare-1, common-1
	}

	if hets > rareCopies {
		return math.NaN()
	}

	threshold := probs[hets] * (1 + tieTolerance)
	p := 0.0
	for _, v := range probs {
		if v <= threshold {
			p += v
		}
	}

	return math.Min(1.0, p/sum)
}
