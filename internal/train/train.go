// Package train holds the trial evaluator and the narrow interfaces behind
// which the actual deep-learning machinery lives: data loading, model and
// embedding construction, and the per-epoch train/validation/test passes.
// The evaluator orchestrates those collaborators; it never looks inside
// them.
package train

import (
	"context"
	"math"
)

//////
// Const, vars, types.
//////

// Table is a feature table: one row per sample, numeric and categorical
// columns kept separate.
type Table struct {
	Num [][]float64
	Cat [][]int
}

// Split is one data partition: features plus binary labels in {0, 1}.
type Split struct {
	X Table
	Y []float64
}

// Dataset is a seeded train/val/test partitioning of the task's data,
// together with the cardinality of each categorical column.
type Dataset struct {
	Train, Val, Test Split

	CatCardinalities []int
}

// ModelSpec describes the model to construct for one trial and seed.
type ModelSpec struct {
	NumFeatures      int
	CatCardinalities []int

	DToken  int
	NHeads  int
	NLayers int

	AttentionDropout float64
	FFNDropout       float64
	ResidualDropout  float64

	// DOut is the output dimension; 1 for binary classification.
	DOut int
}

// Metrics is the test-set evaluation result.
type Metrics struct {
	AUC   float64
	PRAUC float64
}

// Embedding is an opaque numeric-feature embedding module, produced by the
// factory and installed into a model.
type Embedding any

// Model is a trainable model instance. The evaluator only moves it between
// devices, installs the numeric embedding, and releases it; everything else
// happens inside the epoch runner.
type Model interface {
	// SetNumEmbedding installs the numeric-feature embedding module.
	SetNumEmbedding(e Embedding)

	// To moves the model to the given execution device.
	To(device string) error

	// Close releases the model's resources. Called exactly once per seed,
	// on every exit path.
	Close() error
}

// Optimizer updates a model's weights. Construction fixes the algorithm
// (an adaptive moment estimator with decoupled weight decay); the evaluator
// only adjusts the learning rate through the plateau scheduler.
type Optimizer interface {
	LearningRate() float64
	SetLearningRate(lr float64)
}

// DataProvider returns the dataset for a given seed.
type DataProvider interface {
	GetData(ctx context.Context, seed int64) (*Dataset, error)
}

// ModelFactory constructs embeddings, models, and optimizers for sampled
// hyperparameters.
type ModelFactory interface {
	// BuildEmbedding constructs the numeric-feature embedding for the given
	// strategy tag. yTrain is nil unless the strategy performs label-aware
	// binning.
	BuildEmbedding(ctx context.Context, strategy string, xTrain [][]float64, dEmbedding int, yTrain []float64) (Embedding, error)

	// BuildModel constructs a model matching spec.
	BuildModel(ctx context.Context, spec ModelSpec) (Model, error)

	// NewOptimizer constructs an optimizer over the model's parameters.
	NewOptimizer(m Model, lr, weightDecay float64) (Optimizer, error)

	// EmptyCache releases any accelerator memory held on behalf of models
	// already closed. Called after every seed so memory cannot grow across
	// the study's model constructions.
	EmptyCache()
}

// LossFunc reduces predictions and targets to a scalar loss.
type LossFunc func(pred, target []float64) float64

// EpochRunner performs the numeric work of one epoch.
type EpochRunner interface {
	// TrainPass runs one training pass, updating the model, and returns the
	// mean training loss.
	TrainPass(ctx context.Context, epoch int, m Model, opt Optimizer, ds *Dataset, loader *IndexLoader, loss LossFunc) (float64, error)

	// ValPass runs one validation pass and returns the mean validation
	// loss.
	ValPass(ctx context.Context, epoch int, m Model, ds *Dataset, loader *IndexLoader, loss LossFunc) (float64, error)

	// Evaluate computes ranking metrics on the named split.
	Evaluate(ctx context.Context, m Model, split string, ds *Dataset, seed int64) (Metrics, error)
}

// IndexLoader yields batches of sample indices over a split of n samples.
type IndexLoader struct {
	n         int
	batchSize int
}

//////
// Factory.
//////

// NewIndexLoader creates a loader over indices [0, n) with the given batch
// size. The final batch may be short.
func NewIndexLoader(n, batchSize int) *IndexLoader {
	return &IndexLoader{n: n, batchSize: batchSize}
}

//////
// Methods.
//////

// NumFeatures returns the number of numeric columns.
func (t Table) NumFeatures() int {
	if len(t.Num) == 0 {
		return 0
	}

	return len(t.Num[0])
}

// Len returns the number of samples the loader covers.
func (l *IndexLoader) Len() int { return l.n }

// BatchSize returns the configured batch size.
func (l *IndexLoader) BatchSize() int { return l.batchSize }

// Batches returns the index batches in order.
func (l *IndexLoader) Batches() [][]int {
	if l.n == 0 || l.batchSize <= 0 {
		return nil
	}

	batches := make([][]int, 0, (l.n+l.batchSize-1)/l.batchSize)

	for start := 0; start < l.n; start += l.batchSize {
		end := start + l.batchSize
		if end > l.n {
			end = l.n
		}

		batch := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, i)
		}

		batches = append(batches, batch)
	}

	return batches
}

//////
// Helpers.
//////

// BCELoss is binary cross-entropy over probabilities in (0, 1). Inputs are
// clamped away from 0 and 1 to keep the logs finite.
func BCELoss(pred, target []float64) float64 {
	if len(pred) == 0 {
		return 0
	}

	const eps = 1e-7

	var sum float64

	for i, p := range pred {
		if p < eps {
			p = eps
		} else if p > 1-eps {
			p = 1 - eps
		}

		sum += -(target[i]*math.Log(p) + (1-target[i])*math.Log(1-p))
	}

	return sum / float64(len(pred))
}
