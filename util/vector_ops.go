package util

import (
	"math/rand"
)

// sum the vector
func VectorSum(data []uint32) uint32 {
	sum := uint32(0)
	for _, d := range data {
		sum += d
	}
	return sum
}

// DrawCumulative samples an index from an unnormalized cumulative
// weight vector using one uniform variate from rng. The last element
// of cumsum must be the total mass.
func DrawCumulative(rng *rand.Rand, cumsum []float32) uint32 {
	u := rng.Float32() * cumsum[len(cumsum)-1]
	for i := uint32(0); i < uint32(len(cumsum)); i += 1 {
		if u < cumsum[i] {
			return i
		}
	}
	return uint32(len(cumsum)) - 1
}

// DrawCumulative64 is DrawCumulative over float64 weights
func DrawCumulative64(rng *rand.Rand, cumsum []float64) int {
	u := rng.Float64() * cumsum[len(cumsum)-1]
	for i := range cumsum {
		if u < cumsum[i] {
			return i
		}
	}
	return len(cumsum) - 1
}
