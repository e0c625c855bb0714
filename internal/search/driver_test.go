package search

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDriver(
	t *testing.T,
	objective Objective,
	cfg DriverConfig,
	callbacks ...Callback,
) (*Driver, *Study) {
	t.Helper()

	study := NewStudy("test", Maximize, testSpace(t), nil)
	sampler := NewRandomSampler(testSpace(t), 42)

	return NewDriver(study, sampler, objective, cfg, zap.NewNop().Sugar(), callbacks...), study
}

func TestDriverRunsBudget(t *testing.T) {
	objective := func(_ context.Context, trial *Trial) (float64, error) {
		return 0.5 + 0.01*float64(trial.Number), nil
	}

	driver, study := testDriver(t, objective, DriverConfig{MaxTrials: 7})

	require.NoError(t, driver.Run(context.Background()))

	assert.Len(t, study.Trials(), 7)
	assert.Equal(t, 7, study.NumCompleted())

	best, ok := study.BestTrial()
	require.True(t, ok)
	assert.Equal(t, 6, best.Number)
}

func TestDriverIsolatesFailures(t *testing.T) {
	objective := func(_ context.Context, trial *Trial) (float64, error) {
		if trial.Number%2 == 0 {
			return 0, errors.New("numerical instability")
		}

		return 0.8, nil
	}

	driver, study := testDriver(t, objective, DriverConfig{MaxTrials: 6})

	require.NoError(t, driver.Run(context.Background()))

	assert.Len(t, study.Trials(), 6)
	assert.Equal(t, 3, study.NumCompleted())

	for _, trial := range study.Trials() {
		if trial.Number%2 == 0 {
			assert.Equal(t, StateFailed, trial.State())

			_, ok := trial.Value()
			assert.False(t, ok, "failed trial %d must not carry a value", trial.Number)
		} else {
			assert.Equal(t, StateComplete, trial.State())
		}
	}
}

func TestDriverPrunedTrialHasNoValue(t *testing.T) {
	objective := func(_ context.Context, trial *Trial) (float64, error) {
		if trial.Number == 1 {
			return 0, errors.Wrap(ErrPruned, "seed 0 epoch 12")
		}

		return 0.8, nil
	}

	driver, study := testDriver(t, objective, DriverConfig{MaxTrials: 3})

	require.NoError(t, driver.Run(context.Background()))

	pruned := study.Trials()[1]
	assert.Equal(t, StatePruned, pruned.State())

	_, ok := pruned.Value()
	assert.False(t, ok)

	// Pruned trials do not count as completed.
	assert.Equal(t, 2, study.NumCompleted())
}

func TestDriverInterruptKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	objective := func(_ context.Context, trial *Trial) (float64, error) {
		if trial.Number == 2 {
			cancel()
		}

		return 0.7, nil
	}

	driver, study := testDriver(t, objective, DriverConfig{MaxTrials: 50})

	require.NoError(t, driver.Run(ctx))

	// The loop stops at the next trial boundary; the trials that finished
	// stay recorded.
	assert.Len(t, study.Trials(), 3)
	assert.Equal(t, 3, study.NumCompleted())
}

func TestDriverCallbacksSeeEveryTrial(t *testing.T) {
	var seen []int

	callback := func(_ *Study, trial *Trial) {
		seen = append(seen, trial.Number)
	}

	objective := func(_ context.Context, trial *Trial) (float64, error) {
		if trial.Number == 1 {
			return 0, errors.New("boom")
		}

		return 0.6, nil
	}

	driver, _ := testDriver(t, objective, DriverConfig{MaxTrials: 4}, callback)

	require.NoError(t, driver.Run(context.Background()))

	// Callbacks fire for failed trials too.
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
}

func TestDriverProgressUpdates(t *testing.T) {
	progress := make(chan ProgressUpdate, 16)

	objective := func(_ context.Context, trial *Trial) (float64, error) {
		return 0.5 + 0.1*float64(trial.Number), nil
	}

	driver, _ := testDriver(t, objective, DriverConfig{MaxTrials: 3, ProgressChan: progress})

	require.NoError(t, driver.Run(context.Background()))

	close(progress)

	var updates []ProgressUpdate

	for u := range progress {
		updates = append(updates, u)
	}

	require.Len(t, updates, 3)

	last := updates[2]
	assert.Equal(t, 2, last.TrialNumber)
	assert.Equal(t, StateComplete, last.State)
	assert.InDelta(t, 0.7, last.Value, 1e-9)
	assert.True(t, last.HasBest)
	assert.InDelta(t, 0.7, last.BestValue, 1e-9)
	assert.Equal(t, 3, last.Completed)
	assert.Equal(t, 3, last.Total)
}

func TestDriverFullProgressChannelDoesNotBlock(t *testing.T) {
	progress := make(chan ProgressUpdate) // unbuffered, never drained

	objective := func(_ context.Context, _ *Trial) (float64, error) {
		return 0.5, nil
	}

	driver, study := testDriver(t, objective, DriverConfig{MaxTrials: 5, ProgressChan: progress})

	require.NoError(t, driver.Run(context.Background()))

	assert.Equal(t, 5, study.NumCompleted())
}
