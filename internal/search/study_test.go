package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/tabtune/internal/hyper"
)

func testSpace(t *testing.T) hyper.Space {
	t.Helper()

	space, err := hyper.NewSpace(
		hyper.NewLogUniform("lr", 1e-5, 1e-1),
		hyper.NewIntUniform("n_layers", 1, 6),
	)
	require.NoError(t, err)

	return space
}

func TestBestTrialPicksMaximum(t *testing.T) {
	study := NewStudy("test", Maximize, testSpace(t), nil)

	// Completion order must not matter.
	for _, value := range []float64{0.70, 0.85, 0.60} {
		trial := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 2})
		study.Tell(trial, StateComplete, value)
	}

	best, ok := study.BestTrial()
	require.True(t, ok)
	assert.Equal(t, 1, best.Number)

	value, ok := best.Value()
	require.True(t, ok)
	assert.Equal(t, 0.85, value)
}

func TestBestTrialIgnoresPrunedAndFailed(t *testing.T) {
	study := NewStudy("test", Maximize, testSpace(t), nil)

	pruned := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 2})
	study.Tell(pruned, StatePruned, 0)

	failed := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 2})
	study.Tell(failed, StateFailed, 0)

	_, ok := study.BestTrial()
	assert.False(t, ok)

	completed := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 2})
	study.Tell(completed, StateComplete, 0.5)

	best, ok := study.BestTrial()
	require.True(t, ok)
	assert.Equal(t, completed.Number, best.Number)

	// Pruned trials carry no value at all.
	_, hasValue := pruned.Value()
	assert.False(t, hasValue)
}

func TestBestTrialMinimize(t *testing.T) {
	study := NewStudy("test", Minimize, testSpace(t), nil)

	for _, value := range []float64{0.70, 0.85, 0.60} {
		trial := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 2})
		study.Tell(trial, StateComplete, value)
	}

	best, ok := study.BestTrial()
	require.True(t, ok)
	assert.Equal(t, 2, best.Number)
}

func TestReportIgnoresDuplicateSteps(t *testing.T) {
	study := NewStudy("test", Maximize, testSpace(t), nil)
	trial := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 2})

	trial.Report(0, 0.5)
	trial.Report(0, 0.9)
	trial.Report(1, 0.4)

	assert.Equal(t, 2, trial.NumReported())

	v, ok := trial.valueAtStep(0)
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}

func TestShouldPruneWithoutPruner(t *testing.T) {
	study := NewStudy("test", Maximize, testSpace(t), nil)
	trial := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 2})

	trial.Report(0, 0.5)

	assert.False(t, trial.ShouldPrune())
}

func TestTrialStateString(t *testing.T) {
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "COMPLETE", StateComplete.String())
	assert.Equal(t, "PRUNED", StatePruned.String())
	assert.Equal(t, "FAIL", StateFailed.String())
}
