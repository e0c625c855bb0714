package search

//////
// Const, vars, types.
//////

// Pruner decides whether a running trial should be terminated early based
// on the intermediate values it has reported so far.
type Pruner interface {
	// ShouldPrune reports whether the trial looks unpromising enough to
	// stop. Called by the objective right after each Report.
	ShouldPrune(study *Study, trial *Trial) bool
}

// MedianPruner prunes a trial whose latest reported value is worse than the
// median of the values other completed trials reported at the same step.
//
// Intermediate values are per-epoch validation losses, so "worse" means
// higher, regardless of the study's objective direction.
type MedianPruner struct {
	// StartupTrials is the minimum number of completed trials before any
	// pruning can happen.
	StartupTrials int

	// WarmupSteps is the minimum number of values the running trial must
	// have reported before it can be pruned.
	WarmupSteps int

	// IntervalSteps makes the pruner check only every IntervalSteps-th
	// reported value.
	IntervalSteps int
}

//////
// Factory.
//////

// NewMedianPruner returns the pruner used by the telecom search: at least 5
// completed trials, at least 10 reported values, checked every 5th report.
func NewMedianPruner() MedianPruner {
	return MedianPruner{
		StartupTrials: 5,
		WarmupSteps:   10,
		IntervalSteps: 5,
	}
}

//////
// Methods.
//////

// ShouldPrune implements Pruner.
func (p MedianPruner) ShouldPrune(study *Study, trial *Trial) bool {
	n := trial.NumReported()
	if n == 0 {
		return false
	}

	if study.NumCompleted() < p.StartupTrials {
		return false
	}

	if n < p.WarmupSteps {
		return false
	}

	if p.IntervalSteps > 1 && n%p.IntervalSteps != 0 {
		return false
	}

	last, ok := trial.lastIntermediate()
	if !ok {
		return false
	}

	var others []float64

	for _, t := range study.Trials() {
		if t == trial || t.State() != StateComplete {
			continue
		}

		if v, ok := t.valueAtStep(last.step); ok {
			others = append(others, v)
		}
	}

	if len(others) == 0 {
		return false
	}

	return last.value > median(others)
}
