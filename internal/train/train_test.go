package train

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/tabtune/internal/hyper"
)

func TestIndexLoaderBatches(t *testing.T) {
	loader := NewIndexLoader(7, 3)

	batches := loader.Batches()

	require.Len(t, batches, 3)
	assert.Equal(t, []int{0, 1, 2}, batches[0])
	assert.Equal(t, []int{3, 4, 5}, batches[1])
	assert.Equal(t, []int{6}, batches[2])
}

func TestIndexLoaderEmpty(t *testing.T) {
	assert.Nil(t, NewIndexLoader(0, 32).Batches())
}

func TestBCELoss(t *testing.T) {
	// Perfect confident predictions approach zero loss.
	assert.InDelta(t, 0, BCELoss([]float64{1, 0}, []float64{1, 0}), 1e-5)

	// Maximally uncertain predictions cost ln 2.
	assert.InDelta(t, math.Ln2, BCELoss([]float64{0.5, 0.5}, []float64{1, 0}), 1e-9)

	// Confidently wrong predictions stay finite through clamping.
	loss := BCELoss([]float64{0, 1}, []float64{1, 0})
	assert.False(t, math.IsInf(loss, 1))
	assert.Greater(t, loss, 10.0)
}

func TestNewDetailAggregates(t *testing.T) {
	params := hyper.Assignment{"lr": 1e-3}

	detail := NewDetail(params, []int64{0, 1, 2}, []float64{0.8, 0.7, 0.9}, []float64{0.6, 0.5, 0.7})

	assert.InDelta(t, 0.8, detail.Results.MeanAUC, 1e-9)
	assert.InDelta(t, math.Sqrt(0.02/3), detail.Results.StdAUC, 1e-9)
	assert.InDelta(t, 0.6, detail.Results.MeanPRAUC, 1e-9)

	// Hyperparams are a snapshot, not an alias.
	params["lr"] = 1e-1
	assert.Equal(t, 1e-3, detail.Hyperparams.Float("lr"))
}
