package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thalesfsp/tabtune/internal/config"
	"github.com/thalesfsp/tabtune/internal/hyper"
	"github.com/thalesfsp/tabtune/internal/report"
	"github.com/thalesfsp/tabtune/internal/search"
	"github.com/thalesfsp/tabtune/internal/storage"
	"github.com/thalesfsp/tabtune/internal/surrogate"
	"github.com/thalesfsp/tabtune/internal/train"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hyperparameter search",
	Long: `Runs the full search: samples configurations, evaluates each across
seeds with early stopping and pruning, and writes JSON artifacts to the
results directory. An interrupt stops the search cleanly and still
finalizes partial results.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		log := logger.Sugar()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runSearch(ctx, cfg, log)
	},
}

// runSearch wires the study, sampler, pruner, evaluator, and persistence
// together and drives the search to completion.
func runSearch(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	space := hyper.TelecomFTTSpace()

	study := search.NewStudy(cfg.StudyName, search.Maximize, space, search.MedianPruner{
		StartupTrials: cfg.Pruner.StartupTrials,
		WarmupSteps:   cfg.Pruner.WarmupSteps,
		IntervalSteps: cfg.Pruner.IntervalSteps,
	})

	samplerCfg := search.DefaultGPSamplerConfig()
	samplerCfg.Seed = cfg.Sampler.Seed
	samplerCfg.StartupTrials = cfg.Sampler.StartupTrials
	samplerCfg.NumCandidates = cfg.Sampler.NumCandidates

	sampler := search.NewGPSampler(space, samplerCfg)

	// The surrogate backend stands in for the real data pipeline, model
	// factory, and training runner, which are injected here when available.
	evaluator := train.NewEvaluator(
		train.EvaluatorConfig{
			Seeds:             cfg.Train.Seeds,
			Device:            cfg.Train.Device,
			MaxEpochs:         cfg.Train.MaxEpochs,
			Patience:          cfg.Train.Patience,
			MinDelta:          cfg.Train.MinDelta,
			SchedulerPatience: cfg.Train.SchedulerPatience,
			SchedulerFactor:   cfg.Train.SchedulerFactor,
		},
		surrogate.NewProvider(),
		surrogate.NewFactory(),
		surrogate.NewRunner(),
		log,
	)

	writer, err := report.New(cfg.ResultsDir, log)
	if err != nil {
		return err
	}

	callbacks := []search.Callback{writer.SnapshotCallback(cfg.SnapshotEvery)}

	if cfg.StoragePath != "" {
		store, err := storage.Open(cfg.StoragePath, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		callbacks = append(callbacks, store.Callback())
	}

	driver := search.NewDriver(
		study,
		sampler,
		evaluator.Evaluate,
		search.DriverConfig{MaxTrials: cfg.MaxTrials},
		log,
		callbacks...,
	)

	if err := driver.Run(ctx); err != nil {
		return err
	}

	if err := writer.WriteFinal(study); err != nil {
		return err
	}

	if best, ok := study.BestTrial(); ok {
		value, _ := best.Value()

		log.Infow("optimization completed",
			"best_trial", best.Number,
			"best_mean_auc", value,
			"best_params", best.Params())
	} else {
		log.Infow("optimization completed with no completed trials")
	}

	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
