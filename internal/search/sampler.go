package search

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/thalesfsp/tabtune/internal/hyper"
)

//////
// Const, vars, types.
//////

// Sampler produces hyperparameter assignments for new trials and learns
// from the objective values of completed ones. Pruned and failed trials are
// never fed back.
type Sampler interface {
	// Sample suggests the assignment for the next trial.
	Sample() (hyper.Assignment, error)

	// Observe records a completed trial's assignment and objective value.
	Observe(params hyper.Assignment, value float64) error
}

// GPSamplerConfig controls the sequential model-based sampler.
type GPSamplerConfig struct {
	// Seed seeds the sampler's random source, making suggestion sequences
	// reproducible.
	Seed int64

	// StartupTrials is how many purely random observations are required
	// before model-based suggestions begin.
	StartupTrials int

	// NumCandidates is how many random candidate assignments are scored per
	// model-based suggestion.
	NumCandidates int

	// Direction is the study's optimization direction. The surrogate always
	// models cost, so maximized objectives are negated on the way in.
	Direction Direction

	// Acquisition scores candidates; lower is more promising.
	Acquisition AcquisitionFunc

	// AcqParams holds the acquisition function's knobs. BestSoFar and Rand
	// are managed by the sampler.
	AcqParams AcquisitionParams
}

// GPSampler is a sequential model-based sampler: random sampling while the
// surrogate warms up, then candidate generation scored by an acquisition
// function over a Gaussian-process model of observed cost.
type GPSampler struct {
	cfg   GPSamplerConfig
	space hyper.Space
	rng   *rand.Rand
	gp    *gaussianProcess

	// bestCost is the lowest observed cost, fed to PI/EI.
	bestCost float64
}

//////
// Factories.
//////

// DefaultGPSamplerConfig returns the configuration used by the telecom
// search: deterministic seed, 10 random startup trials, 24 candidates per
// suggestion, Expected Improvement acquisition.
func DefaultGPSamplerConfig() GPSamplerConfig {
	return GPSamplerConfig{
		Seed:          42,
		StartupTrials: 10,
		NumCandidates: 24,
		Direction:     Maximize,
		Acquisition:   ExpectedImprovement,
		AcqParams: AcquisitionParams{
			Beta: 2.0,
			Xi:   0.01,
		},
	}
}

// NewGPSampler creates a sampler over the given space.
func NewGPSampler(space hyper.Space, cfg GPSamplerConfig) *GPSampler {
	return &GPSampler{
		cfg:      cfg,
		space:    space,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		gp:       newGaussianProcess(),
		bestCost: math.MaxFloat64,
	}
}

//////
// Methods.
//////

// Sample implements Sampler. While fewer than StartupTrials observations
// exist it draws uniformly at random; afterwards it generates NumCandidates
// random assignments, predicts each with the surrogate, and returns the one
// the acquisition function scores best.
func (s *GPSampler) Sample() (hyper.Assignment, error) {
	if s.gp.Len() < s.cfg.StartupTrials {
		return s.space.Sample(s.rng), nil
	}

	acqParams := s.cfg.AcqParams
	acqParams.BestSoFar = s.bestCost
	acqParams.Rand = s.rng

	var next hyper.Assignment

	bestAcquisition := math.MaxFloat64

	for i := 0; i < s.cfg.NumCandidates; i++ {
		candidate := s.space.Sample(s.rng)

		x, err := s.space.Encode(candidate)
		if err != nil {
			return nil, errors.Wrap(err, "encoding candidate")
		}

		mean, variance := s.gp.Predict(x)

		acquisition := s.cfg.Acquisition(mean, variance, acqParams)

		if acquisition < bestAcquisition {
			bestAcquisition = acquisition
			next = candidate
		}
	}

	return next, nil
}

// Observe implements Sampler.
func (s *GPSampler) Observe(params hyper.Assignment, value float64) error {
	cost := value
	if s.cfg.Direction == Maximize {
		cost = -value
	}

	x, err := s.space.Encode(params)
	if err != nil {
		return errors.Wrap(err, "encoding observation")
	}

	s.gp.Update(x, cost)

	if cost < s.bestCost {
		s.bestCost = cost
	}

	return nil
}

// RandomSampler draws every assignment uniformly at random. Useful as a
// baseline and in tests.
type RandomSampler struct {
	space hyper.Space
	rng   *rand.Rand
}

// NewRandomSampler creates a seeded random sampler over the given space.
func NewRandomSampler(space hyper.Space, seed int64) *RandomSampler {
	return &RandomSampler{
		space: space,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Sample implements Sampler.
func (s *RandomSampler) Sample() (hyper.Assignment, error) {
	return s.space.Sample(s.rng), nil
}

// Observe implements Sampler.
func (s *RandomSampler) Observe(hyper.Assignment, float64) error { return nil }
