package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thalesfsp/tabtune/internal/hyper"
	"github.com/thalesfsp/tabtune/internal/search"
	"github.com/thalesfsp/tabtune/internal/train"
)

func testStudy(t *testing.T) *search.Study {
	t.Helper()

	space, err := hyper.NewSpace(
		hyper.NewLogUniform("lr", 1e-5, 1e-1),
		hyper.NewIntUniform("n_layers", 1, 6),
	)
	require.NoError(t, err)

	return search.NewStudy("telecom_ftt", search.Maximize, space, nil)
}

func testStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "trials.db"), zap.NewNop().Sugar())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRecordAndListTrials(t *testing.T) {
	ctx := context.Background()

	store := testStore(t)
	study := testStudy(t)

	completed := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 3})

	detail := train.NewDetail(completed.Params(), []int64{0}, []float64{0.82}, []float64{0.77})
	completed.SetUserAttr(train.DetailKey, detail)

	study.Tell(completed, search.StateComplete, 0.82)

	pruned := study.Ask(hyper.Assignment{"lr": 1e-2, "n_layers": 5})
	study.Tell(pruned, search.StatePruned, 0)

	require.NoError(t, store.RecordTrial(ctx, study, completed))
	require.NoError(t, store.RecordTrial(ctx, study, pruned))

	records, err := store.ListTrials(ctx, "telecom_ftt")
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 0, first.Number)
	assert.Equal(t, "COMPLETE", first.State)
	require.NotNil(t, first.Value)
	assert.Equal(t, 0.82, *first.Value)
	require.NotNil(t, first.Detail)

	var params map[string]any

	require.NoError(t, json.Unmarshal([]byte(first.Params), &params))
	assert.Equal(t, 1e-3, params["lr"])

	second := records[1]
	assert.Equal(t, "PRUNED", second.State)
	assert.Nil(t, second.Value)
	assert.Nil(t, second.Detail)
}

func TestRecordTrialUpserts(t *testing.T) {
	ctx := context.Background()

	store := testStore(t)
	study := testStudy(t)

	trial := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 2})
	study.Tell(trial, search.StateComplete, 0.7)

	require.NoError(t, store.RecordTrial(ctx, study, trial))
	require.NoError(t, store.RecordTrial(ctx, study, trial))

	records, err := store.ListTrials(ctx, "telecom_ftt")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListTrialsScopedToStudy(t *testing.T) {
	ctx := context.Background()

	store := testStore(t)
	study := testStudy(t)

	trial := study.Ask(hyper.Assignment{"lr": 1e-4, "n_layers": 1})
	study.Tell(trial, search.StateComplete, 0.6)

	require.NoError(t, store.RecordTrial(ctx, study, trial))

	records, err := store.ListTrials(ctx, "other_study")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCallbackRecordsTrials(t *testing.T) {
	store := testStore(t)
	study := testStudy(t)

	callback := store.Callback()

	trial := study.Ask(hyper.Assignment{"lr": 1e-3, "n_layers": 4})
	study.Tell(trial, search.StateComplete, 0.75)

	callback(study, trial)

	records, err := store.ListTrials(context.Background(), "telecom_ftt")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "COMPLETE", records[0].State)
}
