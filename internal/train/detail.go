package train

import (
	"math"

	"github.com/thalesfsp/tabtune/internal/hyper"
)

//////
// Const, vars, types.
//////

// DetailKey is the trial user-attribute key under which the evaluator
// attaches its Detail record.
const DetailKey = "detailed_results"

// Results aggregates the per-seed test metrics of one trial.
type Results struct {
	AUCsPerSeed   []float64 `json:"aucs_per_seed"`
	PRAUCsPerSeed []float64 `json:"pr_aucs_per_seed"`
	MeanAUC       float64   `json:"mean_auc"`
	StdAUC        float64   `json:"std_auc"`
	MeanPRAUC     float64   `json:"mean_pr_auc"`
	Seeds         []int64   `json:"seeds"`
}

// Detail is the full result record of one completed trial: the sampled
// hyperparameters plus the per-seed metrics and their aggregates. It is
// written verbatim into the persisted JSON artifacts.
type Detail struct {
	Hyperparams hyper.Assignment `json:"hyperparams"`
	Results     Results          `json:"results"`
}

//////
// Factory.
//////

// NewDetail builds the detail record for one trial. The trial's objective
// value is Results.MeanAUC; StdAUC is the population standard deviation.
func NewDetail(params hyper.Assignment, seeds []int64, aucs, prAUCs []float64) *Detail {
	return &Detail{
		Hyperparams: params.Clone(),
		Results: Results{
			AUCsPerSeed:   aucs,
			PRAUCsPerSeed: prAUCs,
			MeanAUC:       meanOf(aucs),
			StdAUC:        stdOf(aucs),
			MeanPRAUC:     meanOf(prAUCs),
			Seeds:         seeds,
		},
	}
}

//////
// Helpers.
//////

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	var sum float64

	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}

func stdOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	m := meanOf(xs)

	var sum float64

	for _, x := range xs {
		d := x - m
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(xs)))
}
