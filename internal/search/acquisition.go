package search

import (
	"math"
	"math/rand"
)

//////
// Acquisition functions for the model-based sampler. Each one scores a
// candidate point from the surrogate's predicted cost and uncertainty;
// lower scores mark more promising candidates. They differ in how they
// trade exploring uncertain regions against exploiting known good ones.
//////

// AcquisitionParams carries the knobs shared by the acquisition functions.
type AcquisitionParams struct {
	// Beta is the exploration weight of UCB. Higher values favor uncertain
	// regions. Typical range 0.1 to 5.0.
	Beta float64

	// Xi is the minimum-improvement margin used by PI and EI. Typical range
	// 0.01 to 0.1.
	Xi float64

	// BestSoFar is the lowest cost observed so far. The sampler refreshes
	// it before every suggestion.
	BestSoFar float64

	// Rand is used by ThompsonSampling to draw from the posterior.
	Rand *rand.Rand
}

// AcquisitionFunc scores a candidate point. Lower is more promising.
type AcquisitionFunc func(mean, variance float64, params AcquisitionParams) float64

// UCB is the (lower) confidence bound: predicted cost minus Beta standard
// deviations. A robust general-purpose choice.
func UCB(mean, variance float64, params AcquisitionParams) float64 {
	return mean - params.Beta*math.Sqrt(variance)
}

// ProbabilityOfImprovement scores a candidate by the probability, under a
// normal assumption, that it beats the best observed cost by at least Xi.
// Conservative: favors small but likely improvements.
func ProbabilityOfImprovement(mean, variance float64, params AcquisitionParams) float64 {
	z := (mean - params.BestSoFar - params.Xi) / math.Sqrt(variance)

	return normalCDF(z)
}

// ExpectedImprovement weighs both the probability and the magnitude of an
// improvement over the best observed cost. The usual default.
func ExpectedImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(variance)

	z := (mean - params.BestSoFar - params.Xi) / sigma

	return (mean-params.BestSoFar-params.Xi)*normalCDF(z) + sigma*normalPDF(z)
}

// ThompsonSampling draws a posterior sample per candidate, which balances
// exploration and exploitation through randomness alone. Requires
// params.Rand to be set.
func ThompsonSampling(mean, variance float64, params AcquisitionParams) float64 {
	return mean + math.Sqrt(variance)*params.Rand.NormFloat64()
}

//////
// Helpers.
//////

// normalCDF is the standard normal cumulative distribution function.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normalPDF is the standard normal probability density function.
func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}
