// Package config defines the explicit configuration structure passed into
// the search driver at construction. Defaults live in code, an optional
// YAML file can override them, and environment variables override both.
package config

import (
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//////
// Const, vars, types.
//////

// defaultFile is searched when no config path is given.
const defaultFile = "tabtune.yaml"

// Sampler configures the sequential model-based sampler.
type Sampler struct {
	Seed          int64 `yaml:"seed" env:"TABTUNE_SAMPLER_SEED"`
	StartupTrials int   `yaml:"startup_trials" env:"TABTUNE_SAMPLER_STARTUP_TRIALS"`
	NumCandidates int   `yaml:"num_candidates" env:"TABTUNE_SAMPLER_NUM_CANDIDATES"`
}

// Pruner configures the median pruner.
type Pruner struct {
	StartupTrials int `yaml:"startup_trials" env:"TABTUNE_PRUNER_STARTUP_TRIALS"`
	WarmupSteps   int `yaml:"warmup_steps" env:"TABTUNE_PRUNER_WARMUP_STEPS"`
	IntervalSteps int `yaml:"interval_steps" env:"TABTUNE_PRUNER_INTERVAL_STEPS"`
}

// Train configures the per-trial evaluation protocol.
type Train struct {
	Seeds             []int64 `yaml:"seeds" env:"TABTUNE_SEEDS"`
	Device            string  `yaml:"device" env:"TABTUNE_DEVICE"`
	MaxEpochs         int     `yaml:"max_epochs" env:"TABTUNE_MAX_EPOCHS"`
	Patience          int     `yaml:"patience" env:"TABTUNE_PATIENCE"`
	MinDelta          float64 `yaml:"min_delta" env:"TABTUNE_MIN_DELTA"`
	SchedulerPatience int     `yaml:"scheduler_patience" env:"TABTUNE_SCHEDULER_PATIENCE"`
	SchedulerFactor   float64 `yaml:"scheduler_factor" env:"TABTUNE_SCHEDULER_FACTOR"`
}

// Config is the full configuration for one search run.
type Config struct {
	StudyName     string `yaml:"study_name" env:"TABTUNE_STUDY_NAME"`
	ResultsDir    string `yaml:"results_dir" env:"TABTUNE_RESULTS_DIR"`
	StoragePath   string `yaml:"storage_path" env:"TABTUNE_STORAGE_PATH"`
	MaxTrials     int    `yaml:"max_trials" env:"TABTUNE_MAX_TRIALS"`
	SnapshotEvery int    `yaml:"snapshot_every" env:"TABTUNE_SNAPSHOT_EVERY"`

	Sampler Sampler `yaml:"sampler"`
	Pruner  Pruner  `yaml:"pruner"`
	Train   Train   `yaml:"train"`
}

//////
// Factories.
//////

// Default returns the telecom experiment's configuration.
func Default() *Config {
	return &Config{
		StudyName:     "telecom_ftt",
		ResultsDir:    "results/telecom_ftt",
		StoragePath:   "",
		MaxTrials:     50,
		SnapshotEvery: 5,
		Sampler: Sampler{
			Seed:          42,
			StartupTrials: 10,
			NumCandidates: 24,
		},
		Pruner: Pruner{
			StartupTrials: 5,
			WarmupSteps:   10,
			IntervalSteps: 5,
		},
		Train: Train{
			Seeds:             []int64{0, 1, 2},
			Device:            "cpu",
			MaxEpochs:         100,
			Patience:          10,
			MinDelta:          1e-4,
			SchedulerPatience: 5,
			SchedulerFactor:   0.5,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// tabtune.yaml when path is empty and the file exists), then environment
// variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(defaultFile); err == nil {
			path = defaultFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

//////
// Methods.
//////

// Validate checks the configuration for values the search cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.StudyName == "":
		return errors.New("study_name must not be empty")
	case c.ResultsDir == "":
		return errors.New("results_dir must not be empty")
	case c.MaxTrials <= 0:
		return errors.New("max_trials must be positive")
	case len(c.Train.Seeds) == 0:
		return errors.New("train.seeds must not be empty")
	case c.Train.MaxEpochs <= 0:
		return errors.New("train.max_epochs must be positive")
	case c.Train.Patience <= 0:
		return errors.New("train.patience must be positive")
	case c.Sampler.NumCandidates <= 0:
		return errors.New("sampler.num_candidates must be positive")
	default:
		return nil
	}
}
