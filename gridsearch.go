package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// Grid search is the brute-force baseline of the course: evaluate the
// posterior at every node of a regular grid over a few coefficients (the
// rest held fixed) and look at the resulting surface.
//
// It is hopeless beyond two or three dimensions (cost grows like n^d), and
// that is exactly the lesson: it motivates Metropolis-Hastings and then HMC.
// For the dipole it is still useful as ground truth for what the samplers
// should find.
//
// ===========================================================================

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidGrid indicates a malformed grid axis.
var ErrInvalidGrid = errors.New("gridsearch: invalid grid")

// maxGridPoints caps the Cartesian product to keep memory bounded.
const maxGridPoints = 1 << 22

// GridAxis spans one coefficient.
type GridAxis struct {
	Index int     `yaml:"index"` // flat coefficient index
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Nodes int     `yaml:"nodes"`
}

// Values returns the evenly spaced node values.
func (a GridAxis) Values() []float64 {
	if a.Nodes == 1 {
		return []float64{a.Min}
	}
	return floats.Span(make([]float64, a.Nodes), a.Min, a.Max)
}

// GridResult holds every evaluated node.
type GridResult struct {
	Axes        []GridAxis
	Points      *mat.Dense // one row per node, one column per axis
	LogProbs    []float64
	Best        []float64 // full coefficient vector at the best node
	BestLogProb float64
	BestNode    int
}

// Surface returns the log posterior reshaped as [i][j] for a 2-axis grid,
// with i indexing the first axis.
func (r *GridResult) Surface() ([][]float64, error) {
	if len(r.Axes) != 2 {
		return nil, errors.Wrapf(ErrInvalidGrid, "surface needs 2 axes, have %d", len(r.Axes))
	}
	n0, n1 := r.Axes[0].Nodes, r.Axes[1].Nodes
	out := make([][]float64, n0)
	for i := range out {
		out[i] = r.LogProbs[i*n1 : (i+1)*n1]
	}
	return out, nil
}

// GridSearch evaluates logProb over the Cartesian product of axes. Every
// coordinate not on an axis keeps its value from base.
func GridSearch(logProb func([]float64) float64, base []float64, axes []GridAxis) (*GridResult, error) {
	if len(axes) == 0 {
		return nil, errors.Wrap(ErrInvalidGrid, "no axes")
	}
	total := 1
	seen := make(map[int]bool)
	values := make([][]float64, len(axes))
	for k, a := range axes {
		if a.Index < 0 || a.Index >= len(base) {
			return nil, errors.Wrapf(ErrInvalidGrid, "axis %d index %d outside [0,%d)", k, a.Index, len(base))
		}
		if seen[a.Index] {
			return nil, errors.Wrapf(ErrInvalidGrid, "coefficient %d appears twice", a.Index)
		}
		seen[a.Index] = true
		if a.Nodes < 1 || !(a.Max >= a.Min) {
			return nil, errors.Wrapf(ErrInvalidGrid, "axis %d: nodes=%d range=[%g,%g]", k, a.Nodes, a.Min, a.Max)
		}
		total *= a.Nodes
		if total > maxGridPoints {
			return nil, errors.Wrapf(ErrInvalidGrid, "more than %d nodes", maxGridPoints)
		}
		values[k] = a.Values()
	}

	res := &GridResult{
		Axes:        axes,
		Points:      mat.NewDense(total, len(axes), nil),
		LogProbs:    make([]float64, total),
		BestLogProb: math.Inf(-1),
		BestNode:    -1,
	}

	x := append([]float64(nil), base...)
	idx := make([]int, len(axes))
	for node := 0; node < total; node++ {
		row := res.Points.RawRowView(node)
		for k, a := range axes {
			x[a.Index] = values[k][idx[k]]
			row[k] = x[a.Index]
		}

		lp := logProb(x)
		res.LogProbs[node] = lp
		if lp > res.BestLogProb {
			res.BestLogProb = lp
			res.BestNode = node
			res.Best = append(res.Best[:0], x...)
		}

		// Odometer increment, last axis fastest.
		for k := len(idx) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < axes[k].Nodes {
				break
			}
			idx[k] = 0
		}
	}

	if res.BestNode < 0 {
		return res, errors.Wrap(ErrInvalidGrid, "log posterior is not finite anywhere on the grid")
	}
	return res, nil
}
