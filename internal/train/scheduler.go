package train

import "math"

//////
// Const, vars, types.
//////

// PlateauScheduler multiplies the optimizer's learning rate by a fixed
// factor once the monitored loss has stopped improving for more than
// patience consecutive steps.
type PlateauScheduler struct {
	opt      Optimizer
	patience int
	factor   float64

	best float64
	bad  int
}

//////
// Factory.
//////

// NewPlateauScheduler creates a scheduler in min mode: lower monitored
// values are better.
func NewPlateauScheduler(opt Optimizer, patience int, factor float64) *PlateauScheduler {
	return &PlateauScheduler{
		opt:      opt,
		patience: patience,
		factor:   factor,
		best:     math.Inf(1),
	}
}

//////
// Methods.
//////

// Step feeds the scheduler one observation of the monitored loss. After
// patience steps without improvement the learning rate is reduced and the
// no-improvement count restarts.
func (s *PlateauScheduler) Step(loss float64) {
	if loss < s.best {
		s.best = loss
		s.bad = 0

		return
	}

	s.bad++

	if s.bad > s.patience {
		s.opt.SetLearningRate(s.opt.LearningRate() * s.factor)
		s.bad = 0
	}
}
