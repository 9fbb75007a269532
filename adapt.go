package main

import "math"

// StepSizeAdapter tunes the leapfrog step size during warm-up with the dual
// averaging scheme of Hoffman & Gelman (2014, "The No-U-Turn Sampler",
// Algorithm 5).
//
// Like a learning-rate schedule it has two phases:
//
//	warm-up:  step size follows the dual-averaging iterate, driven by the
//	          gap between the target and observed acceptance probability
//	frozen:   step size is the averaged iterate exp(log ε̄), constant
//
// Samples drawn during warm-up are valid chain entries but not from a
// stationary kernel; callers should discard at least that many as burn-in.
type StepSizeAdapter struct {
	target      float64
	warmupSteps int

	mu        float64
	hBar      float64
	logEps    float64
	logEpsBar float64
	step      int
}

const (
	dualAveragingGamma = 0.05
	dualAveragingT0    = 10
	dualAveragingKappa = 0.75
)

// NewStepSizeAdapter starts adaptation from the initial step size.
func NewStepSizeAdapter(initial, targetAccept float64, warmupSteps int) *StepSizeAdapter {
	return &StepSizeAdapter{
		target:      targetAccept,
		warmupSteps: warmupSteps,
		mu:          math.Log(10 * initial),
		logEps:      math.Log(initial),
		logEpsBar:   math.Log(initial),
	}
}

// Update feeds the acceptance probability of the latest proposal and returns
// the step size to use next.
func (a *StepSizeAdapter) Update(acceptProb float64) float64 {
	if a.step >= a.warmupSteps {
		return a.StepSize()
	}
	a.step++

	m := float64(a.step)
	w := 1 / (m + dualAveragingT0)
	a.hBar = (1-w)*a.hBar + w*(a.target-acceptProb)
	a.logEps = a.mu - math.Sqrt(m)/dualAveragingGamma*a.hBar

	eta := math.Pow(m, -dualAveragingKappa)
	a.logEpsBar = eta*a.logEps + (1-eta)*a.logEpsBar

	if a.step == a.warmupSteps {
		return a.StepSize()
	}
	return math.Exp(a.logEps)
}

// Warm reports whether adaptation is still running.
func (a *StepSizeAdapter) Warm() bool { return a.step < a.warmupSteps }

// StepSize returns the frozen step size, or the current iterate during warm-up.
func (a *StepSizeAdapter) StepSize() float64 {
	if a.Warm() {
		return math.Exp(a.logEps)
	}
	return math.Exp(a.logEpsBar)
}
