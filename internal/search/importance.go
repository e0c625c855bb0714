package search

import (
	"math"

	"github.com/pkg/errors"
)

//////
// Exported functionalities.
//////

// ParamImportances scores how strongly each parameter is associated with
// the objective across the study's completed trials. The score per
// parameter is the absolute Pearson correlation between its unit-encoded
// coordinate and the objective value, normalized so the scores sum to 1.
//
// Requires at least two completed trials. Parameters with no variation
// across the study score 0.
func ParamImportances(study *Study) (map[string]float64, error) {
	completed := study.CompletedTrials()
	if len(completed) < 2 {
		return nil, errors.Errorf("need at least 2 completed trials, have %d", len(completed))
	}

	space := study.Space()
	names := space.Names()

	coords := make([][]float64, space.Len())
	for i := range coords {
		coords[i] = make([]float64, 0, len(completed))
	}

	values := make([]float64, 0, len(completed))

	for _, t := range completed {
		x, err := space.Encode(t.Params())
		if err != nil {
			return nil, errors.Wrapf(err, "encoding trial %d", t.Number)
		}

		for i, u := range x {
			coords[i] = append(coords[i], u)
		}

		v, _ := t.Value()
		values = append(values, v)
	}

	scores := make(map[string]float64, len(names))

	var total float64

	for i, name := range names {
		r := math.Abs(pearson(coords[i], values))
		if math.IsNaN(r) {
			r = 0
		}

		scores[name] = r
		total += r
	}

	if total > 0 {
		for name := range scores {
			scores[name] /= total
		}
	}

	return scores, nil
}

//////
// Helpers.
//////

// pearson returns the Pearson correlation coefficient of x and y, or NaN
// when either input has zero variance.
func pearson(x, y []float64) float64 {
	mx := mean(x)
	my := mean(y)

	var sxy, sxx, syy float64

	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my

		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}

	return sxy / math.Sqrt(sxx*syy)
}
