package search

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thalesfsp/tabtune/internal/hyper"
)

//////
// Const, vars, types.
//////

// Objective evaluates one trial and returns its objective value. It should
// return ErrPruned (possibly wrapped) when the trial's pruner fires, and
// the context error when the context is canceled mid-evaluation.
type Objective func(ctx context.Context, trial *Trial) (float64, error)

// Callback is invoked after every trial reaches a terminal state, in
// registration order. Callbacks observe the study between trials; they must
// not mutate it.
type Callback func(study *Study, trial *Trial)

// ProgressUpdate reports the state of the search after each finalized
// trial.
type ProgressUpdate struct {
	// TrialNumber is the trial that just finished.
	TrialNumber int

	// State is the trial's terminal state.
	State TrialState

	// Value is the trial's objective value; only meaningful when State is
	// StateComplete.
	Value float64

	// BestValue is the best objective value seen so far. HasBest is false
	// until the first trial completes.
	BestValue float64
	HasBest   bool

	// Completed and Total count completed trials and the trial budget.
	Completed int
	Total     int
}

// DriverConfig controls the search loop.
type DriverConfig struct {
	// MaxTrials is the trial budget.
	MaxTrials int

	// ProgressChan, when non-nil, receives one update per finalized trial.
	// Sends never block; updates are dropped if the channel is full.
	ProgressChan chan<- ProgressUpdate
}

// Driver owns the search loop: it asks the sampler for assignments, runs
// the objective one trial at a time, routes prune/failure/interrupt
// outcomes to trial states, and fires callbacks after every trial.
//
// Execution is strictly sequential. The only concurrency concern is the
// interrupt, which arrives as context cancellation and terminates the loop
// at the next trial boundary (or mid-trial, through the objective).
type Driver struct {
	cfg       DriverConfig
	study     *Study
	sampler   Sampler
	objective Objective
	callbacks []Callback
	log       *zap.SugaredLogger
}

//////
// Factory.
//////

// NewDriver wires a driver for the given study.
func NewDriver(
	study *Study,
	sampler Sampler,
	objective Objective,
	cfg DriverConfig,
	log *zap.SugaredLogger,
	callbacks ...Callback,
) *Driver {
	return &Driver{
		cfg:       cfg,
		study:     study,
		sampler:   sampler,
		objective: objective,
		callbacks: callbacks,
		log:       log,
	}
}

//////
// Methods.
//////

// Run executes up to MaxTrials trials. Context cancellation stops the loop
// cleanly without an error: whatever trials finished stay recorded in the
// study and every callback has already seen them, so the caller can always
// proceed to final reporting. A non-nil error is returned only when the
// sampler itself fails.
func (d *Driver) Run(ctx context.Context) error {
	for i := 0; i < d.cfg.MaxTrials; i++ {
		if ctx.Err() != nil {
			d.log.Infow("search interrupted, finalizing partial results",
				"completed", d.study.NumCompleted())

			return nil
		}

		params, err := d.sampler.Sample()
		if err != nil {
			return errors.Wrap(err, "sampling trial parameters")
		}

		trial := d.study.Ask(params)

		d.log.Infow("starting trial", "trial", trial.Number, "params", params)

		d.runTrial(ctx, trial, params)

		for _, cb := range d.callbacks {
			cb(d.study, trial)
		}

		d.sendProgress(trial)

		if ctx.Err() != nil {
			d.log.Infow("search interrupted, finalizing partial results",
				"completed", d.study.NumCompleted())

			return nil
		}
	}

	return nil
}

// runTrial evaluates one trial and assigns its terminal state. Failures
// are isolated here: one bad configuration never aborts the study.
func (d *Driver) runTrial(ctx context.Context, trial *Trial, params hyper.Assignment) {
	value, err := d.objective(ctx, trial)

	switch {
	case err == nil:
		d.study.Tell(trial, StateComplete, value)

		if oerr := d.sampler.Observe(params, value); oerr != nil {
			d.log.Warnw("sampler rejected observation", "trial", trial.Number, "error", oerr)
		}

		d.log.Infow("trial complete", "trial", trial.Number, "value", value)

	case errors.Is(err, ErrPruned):
		d.study.Tell(trial, StatePruned, 0)

		d.log.Infow("trial pruned", "trial", trial.Number, "reported", trial.NumReported())

	case ctx.Err() != nil:
		// Interrupt mid-evaluation: the trial's in-progress state is
		// discarded, the loop terminates at the top of Run.
		d.study.Tell(trial, StateFailed, 0)

		d.log.Infow("trial interrupted", "trial", trial.Number)

	default:
		d.study.Tell(trial, StateFailed, 0)

		d.log.Errorw("trial failed", "trial", trial.Number, "error", err)
	}
}

// sendProgress publishes a non-blocking progress update.
func (d *Driver) sendProgress(trial *Trial) {
	if d.cfg.ProgressChan == nil {
		return
	}

	update := ProgressUpdate{
		TrialNumber: trial.Number,
		State:       trial.state,
		Value:       trial.value,
		Completed:   d.study.NumCompleted(),
		Total:       d.cfg.MaxTrials,
	}

	if best, ok := d.study.BestTrial(); ok {
		update.BestValue = best.value
		update.HasBest = true
	}

	select {
	case d.cfg.ProgressChan <- update:
	default:
		// Skip update if the channel is full.
	}
}
