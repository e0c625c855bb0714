package search

import (
	"math"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

//////
// Helpers.
//////

// mean returns the arithmetic mean, or 0 for an empty slice.
func mean[F constraints.Float](xs []F) F {
	if len(xs) == 0 {
		return 0
	}

	var sum F

	for _, x := range xs {
		sum += x
	}

	return sum / F(len(xs))
}

// stdDev returns the population standard deviation, or 0 for fewer than
// two values.
func stdDev[F constraints.Float](xs []F) F {
	if len(xs) < 2 {
		return 0
	}

	m := mean(xs)

	var sum F

	for _, x := range xs {
		d := x - m
		sum += d * d
	}

	return F(math.Sqrt(float64(sum / F(len(xs)))))
}

// median returns the median of xs. The input is not modified.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	slices.Sort(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}
