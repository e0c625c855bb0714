// Package search implements sequential model-based hyperparameter search:
// a study of trials, a Gaussian-process sampler with acquisition functions,
// median-based pruning of unpromising trials, and the driver that ties them
// together with incremental persistence.
package search

import (
	"errors"

	"github.com/thalesfsp/tabtune/internal/hyper"
)

//////
// Const, vars, types.
//////

// ErrPruned is the control signal raised by an objective when the pruner
// judges the running trial unpromising. It is not a failure: the driver
// records the trial as pruned, with no objective value, and moves on.
//
// Objectives must return it (optionally wrapped) as soon as
// Trial.ShouldPrune reports true, abandoning any partially computed result.
var ErrPruned = errors.New("trial pruned")

// Direction states whether larger or smaller objective values are better.
type Direction int

const (
	// Maximize treats larger objective values as better.
	Maximize Direction = iota

	// Minimize treats smaller objective values as better.
	Minimize
)

// TrialState is the terminal (or running) state of a trial.
type TrialState int

const (
	// StateRunning marks a trial whose objective is still being evaluated.
	StateRunning TrialState = iota

	// StateComplete marks a trial that produced an objective value.
	StateComplete

	// StatePruned marks a trial stopped early by the pruner.
	StatePruned

	// StateFailed marks a trial whose objective returned an error.
	StateFailed
)

// String returns the state name as persisted in artifacts.
func (s TrialState) String() string {
	switch s {
	case StateComplete:
		return "COMPLETE"
	case StatePruned:
		return "PRUNED"
	case StateFailed:
		return "FAIL"
	default:
		return "RUNNING"
	}
}

// intermediate is one reported (step, value) observation.
type intermediate struct {
	step  int
	value float64
}

// Trial is a single evaluation of one hyperparameter assignment. It is
// created by the study, handed to the objective while running, and
// finalized by the driver.
type Trial struct {
	// Number is the zero-based index of the trial within its study.
	Number int

	study    *Study
	params   hyper.Assignment
	state    TrialState
	value    float64
	hasValue bool

	// intermediates holds reported values in report order. steps guards
	// against duplicate steps: the first report for a step wins.
	intermediates []intermediate
	steps         map[int]struct{}

	userAttrs map[string]any
}

// Study is the aggregate of all trials for one optimization run, plus the
// search space, direction, and pruner they share.
//
// A study has a single writer (the driver) and is read by persistence
// callbacks between trials, so no locking is needed.
type Study struct {
	name      string
	direction Direction
	space     hyper.Space
	pruner    Pruner

	trials []*Trial
}

//////
// Factory.
//////

// NewStudy creates an empty study. A nil pruner disables pruning.
func NewStudy(name string, direction Direction, space hyper.Space, pruner Pruner) *Study {
	return &Study{
		name:      name,
		direction: direction,
		space:     space,
		pruner:    pruner,
	}
}

//////
// Methods.
//////

// Params returns the trial's hyperparameter assignment.
func (t *Trial) Params() hyper.Assignment { return t.params }

// State returns the trial's current state.
func (t *Trial) State() TrialState { return t.state }

// Value returns the trial's final objective value, if it completed.
func (t *Trial) Value() (float64, bool) { return t.value, t.hasValue }

// Report records an intermediate value for the given step. The step
// identifies the epoch within the whole evaluation (across seeds); a second
// report for the same step is ignored.
func (t *Trial) Report(step int, value float64) {
	if _, ok := t.steps[step]; ok {
		return
	}

	t.steps[step] = struct{}{}
	t.intermediates = append(t.intermediates, intermediate{step: step, value: value})
}

// ShouldPrune asks the study's pruner whether the trial should be stopped
// based on the values reported so far.
func (t *Trial) ShouldPrune() bool {
	if t.study == nil || t.study.pruner == nil {
		return false
	}

	return t.study.pruner.ShouldPrune(t.study, t)
}

// SetUserAttr attaches an opaque value to the trial. It is persisted
// verbatim in JSON artifacts.
func (t *Trial) SetUserAttr(key string, value any) {
	if t.userAttrs == nil {
		t.userAttrs = make(map[string]any)
	}

	t.userAttrs[key] = value
}

// UserAttr returns a previously attached value.
func (t *Trial) UserAttr(key string) (any, bool) {
	v, ok := t.userAttrs[key]

	return v, ok
}

// NumReported returns how many intermediate values the trial has reported.
func (t *Trial) NumReported() int { return len(t.intermediates) }

// lastIntermediate returns the most recently reported observation.
func (t *Trial) lastIntermediate() (intermediate, bool) {
	if len(t.intermediates) == 0 {
		return intermediate{}, false
	}

	return t.intermediates[len(t.intermediates)-1], true
}

// valueAtStep returns the value the trial reported at the given step.
func (t *Trial) valueAtStep(step int) (float64, bool) {
	for _, iv := range t.intermediates {
		if iv.step == step {
			return iv.value, true
		}
	}

	return 0, false
}

// Name returns the study name.
func (s *Study) Name() string { return s.name }

// Direction returns the study's optimization direction.
func (s *Study) Direction() Direction { return s.direction }

// Space returns the study's search space.
func (s *Study) Space() hyper.Space { return s.space }

// Trials returns all trials in creation order, whatever their state.
func (s *Study) Trials() []*Trial { return s.trials }

// CompletedTrials returns the trials that produced an objective value.
func (s *Study) CompletedTrials() []*Trial {
	out := make([]*Trial, 0, len(s.trials))

	for _, t := range s.trials {
		if t.state == StateComplete {
			out = append(out, t)
		}
	}

	return out
}

// NumCompleted returns the number of completed trials.
func (s *Study) NumCompleted() int { return len(s.CompletedTrials()) }

// BestTrial returns the completed trial with the best objective value for
// the study's direction, and false if no trial has completed. Pruned and
// failed trials never participate.
func (s *Study) BestTrial() (*Trial, bool) {
	var best *Trial

	for _, t := range s.trials {
		if t.state != StateComplete {
			continue
		}

		if best == nil || s.better(t.value, best.value) {
			best = t
		}
	}

	return best, best != nil
}

// Ask creates the next trial for the given assignment and registers it with
// the study in the running state.
func (s *Study) Ask(params hyper.Assignment) *Trial {
	t := &Trial{
		Number: len(s.trials),
		study:  s,
		params: params,
		state:  StateRunning,
		steps:  make(map[int]struct{}),
	}

	s.trials = append(s.trials, t)

	return t
}

// Tell finalizes a trial with the given terminal state. The value is
// recorded only when the state is StateComplete.
func (s *Study) Tell(t *Trial, state TrialState, value float64) {
	t.state = state

	if state == StateComplete {
		t.value = value
		t.hasValue = true
	}
}

// better reports whether a is a better objective value than b under the
// study's direction.
func (s *Study) better(a, b float64) bool {
	if s.direction == Minimize {
		return a < b
	}

	return a > b
}
