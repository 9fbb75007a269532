package main

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNumericalDivergence marks a proposal whose energy difference is not
	// finite (diverging leapfrog trajectory, overflow, NaN). Such proposals
	// are always rejected; the error is only surfaced through Chain.Divergences
	// and debug logs, never returned from Run.
	ErrNumericalDivergence = errors.New("sampler: numerical divergence")

	// ErrInvalidSamplerConfig indicates unusable tuning parameters.
	ErrInvalidSamplerConfig = errors.New("sampler: invalid configuration")

	// ErrInvalidInitialState indicates a starting point with non-finite log density.
	ErrInvalidInitialState = errors.New("sampler: initial state has non-finite log density")
)

// Sampler produces a Markov chain from a starting point.
type Sampler interface {
	Run(ctx context.Context, initial []float64) (*Chain, error)
}

// Chain is the output of a sampler run.
//
// Samples holds one row per iteration and one column per tracked
// coordinate. A rejected proposal repeats the previous row, so the row count
// always equals the number of completed iterations.
type Chain struct {
	Samples     *mat.Dense // nil when no iteration completed
	Track       []int      // coordinate index of each column
	LogProbs    []float64  // log density of the recorded state
	AcceptProbs []float64  // min(1, exp(-ΔH)) of each proposal, 0 when divergent
	Accepted    int
	Divergences int
	StepSize    float64   // final step size (HMC) or proposal scale (Metropolis)
	Final       []float64 // full state after the last iteration

	data []float64
}

func newChain(track []int, capacity int) *Chain {
	return &Chain{
		Track:       track,
		LogProbs:    make([]float64, 0, capacity),
		AcceptProbs: make([]float64, 0, capacity),
		data:        make([]float64, 0, capacity*len(track)),
	}
}

func (c *Chain) record(state []float64, logp, acceptProb float64) {
	for _, idx := range c.Track {
		c.data = append(c.data, state[idx])
	}
	c.LogProbs = append(c.LogProbs, logp)
	c.AcceptProbs = append(c.AcceptProbs, acceptProb)
}

func (c *Chain) finish(state []float64) *Chain {
	c.Final = append([]float64(nil), state...)
	if n := len(c.LogProbs); n > 0 {
		c.Samples = mat.NewDense(n, len(c.Track), c.data)
	}
	return c
}

// Len returns the number of recorded iterations.
func (c *Chain) Len() int { return len(c.LogProbs) }

// AcceptanceRate returns Accepted / Len, or 0 for an empty chain.
func (c *Chain) AcceptanceRate() float64 {
	if c.Len() == 0 {
		return 0
	}
	return float64(c.Accepted) / float64(c.Len())
}

// Trace returns a copy of the samples of column j.
func (c *Chain) Trace(j int) []float64 {
	if c.Samples == nil {
		return nil
	}
	return mat.Col(nil, j, c.Samples)
}

// Column returns the column that tracks coordinate idx, or -1.
func (c *Chain) Column(idx int) int {
	for j, t := range c.Track {
		if t == idx {
			return j
		}
	}
	return -1
}

// resolveTrack validates tracked indices; nil means every coordinate.
func resolveTrack(track []int, dim int) ([]int, error) {
	if len(track) == 0 {
		all := make([]int, dim)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	out := make([]int, len(track))
	for i, idx := range track {
		if idx < 0 || idx >= dim {
			return nil, errors.Wrapf(ErrInvalidSamplerConfig, "tracked index %d outside [0,%d)", idx, dim)
		}
		out[i] = idx
	}
	return out, nil
}

// metropolisAccept applies the Metropolis rule to an energy difference
// ΔH = H(current) - H(proposed) and a uniform draw u.
//
// A non-finite ΔH is rejected with ErrNumericalDivergence rather than
// compared, since every comparison with NaN is false and +Inf would always
// accept a state with undefined energy.
func metropolisAccept(deltaH, u float64) (accept bool, prob float64, err error) {
	if math.IsNaN(deltaH) || math.IsInf(deltaH, 0) {
		return false, 0, ErrNumericalDivergence
	}
	prob = math.Min(1, math.Exp(deltaH))
	return math.Log(u) <= deltaH, prob, nil
}

func checkContext(ctx context.Context, done, total int) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "sampler: stopped after %d of %d samples", done, total)
	}
	return nil
}
