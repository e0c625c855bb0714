package hyper

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformSampleBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewUniform("dropout", 0.0, 0.3)

	for i := 0; i < 200; i++ {
		v := d.Sample(rng).(float64)

		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 0.3)
	}
}

func TestLogUniformSampleBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewLogUniform("lr", 1e-5, 1e-1)

	for i := 0; i < 200; i++ {
		v := d.Sample(rng).(float64)

		assert.GreaterOrEqual(t, v, 1e-5)
		assert.LessOrEqual(t, v, 1e-1)
	}
}

func TestIntUniformSampleInclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewIntUniform("n_layers", 1, 6)

	seen := make(map[int]bool)

	for i := 0; i < 500; i++ {
		v := d.Sample(rng).(int)

		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 6)

		seen[v] = true
	}

	// Every value in the range should show up over 500 draws.
	assert.Len(t, seen, 6)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	space := TelecomFTTSpace()

	for i := 0; i < 50; i++ {
		a := space.Sample(rng)

		x, err := space.Encode(a)
		require.NoError(t, err)
		require.Len(t, x, space.Len())

		for _, u := range x {
			assert.GreaterOrEqual(t, u, 0.0)
			assert.LessOrEqual(t, u, 1.0)
		}

		decoded, err := space.Decode(x)
		require.NoError(t, err)

		// Discrete parameters round-trip exactly.
		assert.Equal(t, a.Int(ParamNLayers), decoded.Int(ParamNLayers))
		assert.Equal(t, a.Int(ParamNHeads), decoded.Int(ParamNHeads))
		assert.Equal(t, a.Int(ParamBatchSize), decoded.Int(ParamBatchSize))
		assert.Equal(t, a.String(ParamNumEmbeddingType), decoded.String(ParamNumEmbeddingType))

		// Continuous parameters round-trip within floating-point tolerance.
		assert.InDelta(t, a.Float(ParamLR), decoded.Float(ParamLR), a.Float(ParamLR)*1e-9)
		assert.InDelta(t, a.Float(ParamAttentionDropout), decoded.Float(ParamAttentionDropout), 1e-12)
	}
}

func TestCategoricalDecodeSnaps(t *testing.T) {
	d := Choice("batch_size", 32, 64, 128)

	assert.Equal(t, 32, d.Decode(0.0))
	assert.Equal(t, 32, d.Decode(0.2))
	assert.Equal(t, 64, d.Decode(0.5))
	assert.Equal(t, 128, d.Decode(0.9))
	assert.Equal(t, 128, d.Decode(1.0))
}

func TestCategoricalEncodeRejectsUnknownChoice(t *testing.T) {
	d := Choice("n_heads", 4, 8, 16)

	_, err := d.Encode(5)
	assert.Error(t, err)
}

func TestNewSpaceRejectsDuplicateNames(t *testing.T) {
	_, err := NewSpace(
		NewUniform("x", 0, 1),
		NewUniform("x", 0, 2),
	)
	assert.Error(t, err)
}

func TestTelecomFTTSpace(t *testing.T) {
	space := TelecomFTTSpace()

	assert.Equal(t, 10, space.Len())
	assert.Equal(t, []string{
		ParamLR,
		ParamWeightDecay,
		ParamNumEmbeddingType,
		ParamNHeads,
		ParamDEmbedding,
		ParamNLayers,
		ParamAttentionDropout,
		ParamFFNDropout,
		ParamResidualDropout,
		ParamBatchSize,
	}, space.Names())
}

func TestLabelAwareEmbedding(t *testing.T) {
	assert.True(t, LabelAwareEmbedding("T"))
	assert.True(t, LabelAwareEmbedding("T-LR-LR"))
	assert.False(t, LabelAwareEmbedding("L"))
	assert.False(t, LabelAwareEmbedding("P-LR"))
}

func TestAssignmentClone(t *testing.T) {
	a := Assignment{"lr": 0.01, "n_layers": 3}
	c := a.Clone()

	c["lr"] = 0.5

	assert.Equal(t, 0.01, a.Float("lr"))
}
