package train

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thalesfsp/tabtune/internal/hyper"
	"github.com/thalesfsp/tabtune/internal/search"
)

//////
// Const, vars, types.
//////

// EvaluatorConfig holds the fixed protocol constants of one evaluation:
// which seeds to run, the epoch budget, and the early-stopping and
// learning-rate-schedule knobs.
type EvaluatorConfig struct {
	// Seeds is the ordered list of seeds each trial is trained under.
	Seeds []int64

	// Device is the execution device models are moved to.
	Device string

	// MaxEpochs caps the epoch loop per seed.
	MaxEpochs int

	// Patience is the number of consecutive epochs without validation-loss
	// improvement after which the seed's training stops.
	Patience int

	// MinDelta is the minimum decrease of the validation loss that counts
	// as an improvement.
	MinDelta float64

	// SchedulerPatience and SchedulerFactor configure the plateau
	// learning-rate scheduler.
	SchedulerPatience int
	SchedulerFactor   float64
}

// Evaluator runs the full multi-seed train/early-stop/evaluate protocol for
// one hyperparameter assignment and reduces it to a scalar objective plus a
// Detail record.
type Evaluator struct {
	cfg    EvaluatorConfig
	data   DataProvider
	models ModelFactory
	runner EpochRunner
	log    *zap.SugaredLogger
}

//////
// Factories.
//////

// DefaultEvaluatorConfig returns the telecom experiment's protocol: seeds
// 0..2, 100 epochs, early-stopping patience 10 with min delta 1e-4, and a
// plateau scheduler halving the learning rate after 5 flat epochs.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Seeds:             []int64{0, 1, 2},
		Device:            "cpu",
		MaxEpochs:         100,
		Patience:          10,
		MinDelta:          1e-4,
		SchedulerPatience: 5,
		SchedulerFactor:   0.5,
	}
}

// NewEvaluator wires an evaluator over the given collaborators.
func NewEvaluator(
	cfg EvaluatorConfig,
	data DataProvider,
	models ModelFactory,
	runner EpochRunner,
	log *zap.SugaredLogger,
) *Evaluator {
	return &Evaluator{
		cfg:    cfg,
		data:   data,
		models: models,
		runner: runner,
		log:    log,
	}
}

//////
// Methods.
//////

// Evaluate is the trial objective. It trains the sampled configuration
// under every configured seed, attaches the Detail record to the trial, and
// returns the mean of the per-seed best AUCs.
//
// A pruner decision aborts the whole evaluation with search.ErrPruned: no
// partial objective is returned and no detail is attached, whichever seed
// and epoch the decision fired at. Any other error is logged with the trial
// number and returned for the driver to record as a failed trial.
func (e *Evaluator) Evaluate(ctx context.Context, trial *search.Trial) (float64, error) {
	params := trial.Params()

	aucs := make([]float64, 0, len(e.cfg.Seeds))
	prAUCs := make([]float64, 0, len(e.cfg.Seeds))

	for seedIdx, seed := range e.cfg.Seeds {
		e.log.Infow("running seed",
			"trial", trial.Number,
			"seed", seedIdx+1,
			"seeds", len(e.cfg.Seeds))

		metrics, err := e.runSeed(ctx, trial, seedIdx, seed, params)
		if err != nil {
			if errors.Is(err, search.ErrPruned) || ctx.Err() != nil {
				return 0, err
			}

			e.log.Errorw("error in trial", "trial", trial.Number, "error", err)

			return 0, errors.Wrapf(err, "trial %d seed %d", trial.Number, seed)
		}

		aucs = append(aucs, metrics.AUC)
		prAUCs = append(prAUCs, metrics.PRAUC)
	}

	detail := NewDetail(params, e.cfg.Seeds, aucs, prAUCs)

	trial.SetUserAttr(DetailKey, detail)

	return detail.Results.MeanAUC, nil
}

// runSeed trains one seed to early stopping and returns the test metrics
// snapshot taken at the last validation-loss improvement. Model, optimizer,
// and scheduler are scoped to this call: they are released on every exit
// path, pruning and cancellation included.
func (e *Evaluator) runSeed(
	ctx context.Context,
	trial *search.Trial,
	seedIdx int,
	seed int64,
	params hyper.Assignment,
) (Metrics, error) {
	ds, err := e.data.GetData(ctx, seed)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "fetching data")
	}

	batchSize := params.Int(hyper.ParamBatchSize)

	trainLoader := NewIndexLoader(len(ds.Train.Y), batchSize)
	valLoader := NewIndexLoader(len(ds.Val.Y), batchSize)

	strategy := params.String(hyper.ParamNumEmbeddingType)

	var yTrain []float64
	if hyper.LabelAwareEmbedding(strategy) {
		yTrain = ds.Train.Y
	}

	embedding, err := e.models.BuildEmbedding(ctx, strategy, ds.Train.X.Num, params.Int(hyper.ParamDEmbedding), yTrain)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "building numeric embedding")
	}

	model, err := e.models.BuildModel(ctx, ModelSpec{
		NumFeatures:      ds.Train.X.NumFeatures(),
		CatCardinalities: ds.CatCardinalities,
		DToken:           params.Int(hyper.ParamDEmbedding),
		NHeads:           params.Int(hyper.ParamNHeads),
		NLayers:          params.Int(hyper.ParamNLayers),
		AttentionDropout: params.Float(hyper.ParamAttentionDropout),
		FFNDropout:       params.Float(hyper.ParamFFNDropout),
		ResidualDropout:  params.Float(hyper.ParamResidualDropout),
		DOut:             1,
	})
	if err != nil {
		return Metrics{}, errors.Wrap(err, "building model")
	}

	// Accelerator memory is an exhaustible resource shared across all the
	// study's model constructions; release happens here whatever path exits
	// the seed.
	defer func() {
		if cerr := model.Close(); cerr != nil {
			e.log.Warnw("closing model", "trial", trial.Number, "error", cerr)
		}

		e.models.EmptyCache()
	}()

	model.SetNumEmbedding(embedding)

	if err := model.To(e.cfg.Device); err != nil {
		return Metrics{}, errors.Wrapf(err, "moving model to %s", e.cfg.Device)
	}

	opt, err := e.models.NewOptimizer(model, params.Float(hyper.ParamLR), params.Float(hyper.ParamWeightDecay))
	if err != nil {
		return Metrics{}, errors.Wrap(err, "building optimizer")
	}

	scheduler := NewPlateauScheduler(opt, e.cfg.SchedulerPatience, e.cfg.SchedulerFactor)

	bestValLoss := math.Inf(1)

	var bestMetrics *Metrics

	patienceCount := 0

	for epoch := 0; epoch < e.cfg.MaxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}

		if _, err := e.runner.TrainPass(ctx, epoch, model, opt, ds, trainLoader, BCELoss); err != nil {
			return Metrics{}, errors.Wrapf(err, "train pass epoch %d", epoch)
		}

		valLoss, err := e.runner.ValPass(ctx, epoch, model, ds, valLoader, BCELoss)
		if err != nil {
			return Metrics{}, errors.Wrapf(err, "validation pass epoch %d", epoch)
		}

		scheduler.Step(valLoss)

		trial.Report(seedIdx*e.cfg.MaxEpochs+epoch, valLoss)

		if trial.ShouldPrune() {
			return Metrics{}, errors.Wrapf(search.ErrPruned, "seed %d epoch %d", seed, epoch)
		}

		if valLoss < bestValLoss-e.cfg.MinDelta {
			bestValLoss = valLoss
			patienceCount = 0

			// Test metrics are taken at the moment of improvement, not at
			// training end: the snapshot may be stale relative to later
			// epochs inside the patience window.
			m, err := e.runner.Evaluate(ctx, model, "test", ds, seed)
			if err != nil {
				return Metrics{}, errors.Wrapf(err, "test evaluation epoch %d", epoch)
			}

			bestMetrics = &m
		} else {
			patienceCount++

			if patienceCount >= e.cfg.Patience {
				e.log.Infow("early stopping",
					"trial", trial.Number,
					"seed", seed,
					"epoch", epoch)

				break
			}
		}
	}

	// The first epoch always improves on +Inf, so this is expected to be
	// unreachable; kept as a guard.
	if bestMetrics == nil {
		m, err := e.runner.Evaluate(ctx, model, "test", ds, seed)
		if err != nil {
			return Metrics{}, errors.Wrap(err, "fallback test evaluation")
		}

		bestMetrics = &m
	}

	return *bestMetrics, nil
}
