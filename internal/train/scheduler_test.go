package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlateauSchedulerHalvesAfterPatience(t *testing.T) {
	opt := &fakeOptimizer{lr: 1e-3}
	scheduler := NewPlateauScheduler(opt, 5, 0.5)

	scheduler.Step(0.5)

	// Five flat steps sit inside the patience window.
	for i := 0; i < 5; i++ {
		scheduler.Step(0.5)

		assert.InDelta(t, 1e-3, opt.lr, 1e-12, "step %d must not reduce the rate", i)
	}

	// The sixth flat step exceeds patience.
	scheduler.Step(0.5)

	assert.InDelta(t, 5e-4, opt.lr, 1e-12)
}

func TestPlateauSchedulerResetsOnImprovement(t *testing.T) {
	opt := &fakeOptimizer{lr: 1e-3}
	scheduler := NewPlateauScheduler(opt, 2, 0.5)

	scheduler.Step(0.5)
	scheduler.Step(0.5)
	scheduler.Step(0.5)

	// Improvement resets the no-improvement count.
	scheduler.Step(0.4)

	scheduler.Step(0.4)
	scheduler.Step(0.4)

	assert.InDelta(t, 1e-3, opt.lr, 1e-12)

	scheduler.Step(0.4)

	assert.InDelta(t, 5e-4, opt.lr, 1e-12)
}

func TestPlateauSchedulerRepeatedReductions(t *testing.T) {
	opt := &fakeOptimizer{lr: 1e-2}
	scheduler := NewPlateauScheduler(opt, 1, 0.5)

	scheduler.Step(0.5)

	for i := 0; i < 4; i++ {
		scheduler.Step(0.5)
	}

	// Two reductions: the count restarts after each one.
	assert.InDelta(t, 2.5e-3, opt.lr, 1e-12)
}
