package search

import (
	"math"
	"sync"
)

//////
// Const, vars, types.
//////

// gaussianProcess is a small RBF-kernel Gaussian Process regressor over
// unit-hypercube points. The sampler uses it as the surrogate model that
// predicts the cost of untested hyperparameter assignments from the
// assignments already evaluated.
//
// All inputs are expected to be encoded into [0, 1] coordinates (see
// hyper.Space.Encode), which is what makes the fixed kernel width workable
// across parameters of very different raw scales.
type gaussianProcess struct {
	// mu protects all fields below.
	mu sync.RWMutex

	// X holds the observed input points; all inner slices have equal length.
	X [][]float64

	// Y holds the observed cost at each point in X. len(Y) == len(X).
	Y []float64

	// sigma is the RBF kernel width. Larger values smooth the surrogate.
	sigma float64
}

//////
// Methods.
//////

// kernel computes the RBF (Gaussian) kernel between two points:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
//
// It returns 1.0 for identical points and decays towards 0 with distance.
// Panics if the points have different dimensionality.
func (gp *gaussianProcess) kernel(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	gp.mu.RLock()
	sigma := gp.sigma
	gp.mu.RUnlock()

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-sum / (2 * sigma * sigma))
}

// Predict estimates the cost and the uncertainty of that estimate at x.
// With no observations it returns (0, 1), i.e. total uncertainty.
//
// The mean is a kernel-weighted average of observed costs; the variance
// shrinks as x gets closer to observed points. O(n^2) in the number of
// observations, which stays trivial at trial-budget scale.
func (gp *gaussianProcess) Predict(x []float64) (mean, variance float64) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if len(gp.X) == 0 {
		return 0, 1
	}

	k := make([]float64, len(gp.X))
	for i := range gp.X {
		k[i] = gp.kernel(x, gp.X[i])
	}

	var sum float64

	for i := range gp.X {
		sum += k[i] * gp.Y[i]
	}

	mean = sum / float64(len(gp.X))

	variance = 1.0

	for i := range gp.X {
		for j := range gp.X {
			variance -= k[i] * k[j] / float64(len(gp.X))
		}
	}

	return mean, variance
}

// Update adds one observation to the model. The input point is copied so
// later mutation by the caller cannot corrupt the model.
func (gp *gaussianProcess) Update(x []float64, y float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	newX := make([]float64, len(x))
	copy(newX, x)

	gp.X = append(gp.X, newX)
	gp.Y = append(gp.Y, y)
}

// Len returns the number of observations the model holds.
func (gp *gaussianProcess) Len() int {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return len(gp.X)
}

//////
// Factory.
//////

// newGaussianProcess creates an empty model. The default kernel width of
// 0.5 suits unit-cube inputs where coordinate distances never exceed 1.
func newGaussianProcess() *gaussianProcess {
	return &gaussianProcess{
		sigma: 0.5,
	}
}
