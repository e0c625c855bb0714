// Package surrogate provides deterministic, closed-form implementations of
// the train collaborator interfaces. The "model" is a response surface over
// the sampled hyperparameters whose validation loss decays epoch by epoch,
// so the full search pipeline (sampling, pruning, early stopping,
// artifacts) can run end to end without a deep-learning backend. It stands
// in where a real trainer would be injected.
package surrogate

import (
	"context"
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/thalesfsp/tabtune/internal/train"
)

//////
// Const, vars, types.
//////

// Provider generates a small synthetic telecom-style dataset per seed.
type Provider struct {
	// TrainRows, ValRows, TestRows size the splits.
	TrainRows, ValRows, TestRows int

	// NumFeatures is the number of numeric columns.
	NumFeatures int

	// CatCardinalities defines the categorical columns.
	CatCardinalities []int
}

// Factory builds surrogate embeddings, models, and optimizers.
type Factory struct{}

// Runner drives the surrogate model's loss curve and metrics.
type Runner struct{}

// embedding is the surrogate numeric-embedding handle.
type embedding struct {
	strategy   string
	dim        int
	labelAware bool
}

// Model is the surrogate model. Its validation loss follows a decaying
// curve whose floor and rate are determined by the hyperparameters, which
// is enough structure for the search to have a real optimum.
type Model struct {
	spec   train.ModelSpec
	emb    embedding
	device string

	// lr is captured when the optimizer is built; the loss curve's decay
	// rate depends on it.
	lr float64
	wd float64

	// trained is the number of completed training epochs.
	trained int

	closed bool
}

// optimizer is the surrogate optimizer; it only carries the learning rate.
type optimizer struct {
	model *Model
	lr    float64
}

//////
// Factories.
//////

// NewProvider returns a provider with a small default dataset shape.
func NewProvider() *Provider {
	return &Provider{
		TrainRows:        256,
		ValRows:          64,
		TestRows:         64,
		NumFeatures:      8,
		CatCardinalities: []int{3, 5, 2},
	}
}

// NewFactory returns a surrogate model factory.
func NewFactory() *Factory { return &Factory{} }

// NewRunner returns a surrogate epoch runner.
func NewRunner() *Runner { return &Runner{} }

//////
// Methods.
//////

// GetData implements train.DataProvider. The same seed always yields the
// same dataset.
func (p *Provider) GetData(_ context.Context, seed int64) (*train.Dataset, error) {
	rng := rand.New(rand.NewSource(seed))

	weights := make([]float64, p.NumFeatures)
	for i := range weights {
		weights[i] = rng.NormFloat64()
	}

	split := func(rows int) train.Split {
		s := train.Split{
			X: train.Table{
				Num: make([][]float64, rows),
				Cat: make([][]int, rows),
			},
			Y: make([]float64, rows),
		}

		for r := 0; r < rows; r++ {
			num := make([]float64, p.NumFeatures)

			var dot float64

			for c := range num {
				num[c] = rng.NormFloat64()
				dot += weights[c] * num[c]
			}

			cat := make([]int, len(p.CatCardinalities))
			for c, card := range p.CatCardinalities {
				cat[c] = rng.Intn(card)
			}

			s.X.Num[r] = num
			s.X.Cat[r] = cat

			if 1/(1+math.Exp(-dot)) > rng.Float64() {
				s.Y[r] = 1
			}
		}

		return s
	}

	return &train.Dataset{
		Train:            split(p.TrainRows),
		Val:              split(p.ValRows),
		Test:             split(p.TestRows),
		CatCardinalities: append([]int(nil), p.CatCardinalities...),
	}, nil
}

// BuildEmbedding implements train.ModelFactory.
func (f *Factory) BuildEmbedding(_ context.Context, strategy string, _ [][]float64, dEmbedding int, yTrain []float64) (train.Embedding, error) {
	return embedding{
		strategy:   strategy,
		dim:        dEmbedding,
		labelAware: yTrain != nil,
	}, nil
}

// BuildModel implements train.ModelFactory.
func (f *Factory) BuildModel(_ context.Context, spec train.ModelSpec) (train.Model, error) {
	return &Model{spec: spec}, nil
}

// NewOptimizer implements train.ModelFactory.
func (f *Factory) NewOptimizer(m train.Model, lr, weightDecay float64) (train.Optimizer, error) {
	sm, ok := m.(*Model)
	if !ok {
		return nil, errors.Errorf("expected surrogate model, got %T", m)
	}

	sm.lr = lr
	sm.wd = weightDecay

	return &optimizer{model: sm, lr: lr}, nil
}

// EmptyCache implements train.ModelFactory. The surrogate holds no
// accelerator memory.
func (f *Factory) EmptyCache() {}

// SetNumEmbedding implements train.Model.
func (m *Model) SetNumEmbedding(e train.Embedding) {
	if emb, ok := e.(embedding); ok {
		m.emb = emb
	}
}

// To implements train.Model.
func (m *Model) To(device string) error {
	m.device = device

	return nil
}

// Close implements train.Model.
func (m *Model) Close() error {
	if m.closed {
		return errors.New("model already closed")
	}

	m.closed = true

	return nil
}

// LearningRate implements train.Optimizer.
func (o *optimizer) LearningRate() float64 { return o.lr }

// SetLearningRate implements train.Optimizer.
func (o *optimizer) SetLearningRate(lr float64) { o.lr = lr }

// TrainPass implements train.EpochRunner.
func (r *Runner) TrainPass(_ context.Context, epoch int, m train.Model, _ train.Optimizer, _ *train.Dataset, _ *train.IndexLoader, _ train.LossFunc) (float64, error) {
	sm, err := asSurrogate(m)
	if err != nil {
		return 0, err
	}

	sm.trained = epoch + 1

	return sm.lossAt(epoch) * 0.95, nil
}

// ValPass implements train.EpochRunner.
func (r *Runner) ValPass(_ context.Context, epoch int, m train.Model, _ *train.Dataset, _ *train.IndexLoader, _ train.LossFunc) (float64, error) {
	sm, err := asSurrogate(m)
	if err != nil {
		return 0, err
	}

	return sm.lossAt(epoch), nil
}

// Evaluate implements train.EpochRunner.
func (r *Runner) Evaluate(_ context.Context, m train.Model, _ string, _ *train.Dataset, seed int64) (train.Metrics, error) {
	sm, err := asSurrogate(m)
	if err != nil {
		return train.Metrics{}, err
	}

	q := sm.quality()
	progress := 1 - math.Exp(-sm.rate()*float64(sm.trained))

	auc := 0.5 + 0.45*q*progress + 0.01*jitter(seed, sm.trained)
	prAUC := auc - 0.04 - 0.02*(1-q)

	return train.Metrics{AUC: clamp(auc), PRAUC: clamp(prAUC)}, nil
}

// quality scores the hyperparameter configuration in (0, 1): learning rates
// near 1e-3, moderate depth, and light dropout score highest.
func (m *Model) quality() float64 {
	lrTerm := math.Exp(-math.Pow(math.Log10(m.lr)+3, 2) / 3)
	wdTerm := math.Exp(-math.Pow(math.Log10(m.wd)+4, 2) / 8)
	depthTerm := 1 - math.Abs(float64(m.spec.NLayers)-3)/8
	dropTerm := 1 - 0.5*m.spec.AttentionDropout - 0.3*m.spec.FFNDropout - 0.2*m.spec.ResidualDropout

	q := lrTerm * (0.5 + 0.5*wdTerm) * depthTerm * dropTerm

	if q < 0.05 {
		return 0.05
	}

	if q > 0.95 {
		return 0.95
	}

	return q
}

// rate is the loss curve's exponential decay rate per epoch.
func (m *Model) rate() float64 {
	r := 0.05 + 40*m.lr

	if r > 1.5 {
		return 1.5
	}

	return r
}

// lossAt returns the validation loss after the given epoch.
func (m *Model) lossAt(epoch int) float64 {
	const start = 0.75

	floor := 0.7 - 0.4*m.quality()

	return floor + (start-floor)*math.Exp(-m.rate()*float64(epoch))
}

//////
// Helpers.
//////

func asSurrogate(m train.Model) (*Model, error) {
	sm, ok := m.(*Model)
	if !ok {
		return nil, errors.Errorf("expected surrogate model, got %T", m)
	}

	if sm.closed {
		return nil, errors.New("model is closed")
	}

	return sm, nil
}

// jitter is a deterministic pseudo-random value in [0, 1) derived from the
// seed and step, so repeated runs produce identical metrics.
func jitter(seed int64, step int) float64 {
	return rand.New(rand.NewSource(seed*1000003 + int64(step))).Float64()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
