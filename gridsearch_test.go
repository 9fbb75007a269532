package main

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridSearchFindsPeak(t *testing.T) {
	// Peak at (1, -2) in coordinates 0 and 2; coordinate 1 is held fixed.
	logProb := func(x []float64) float64 {
		return -(x[0]-1)*(x[0]-1) - (x[2]+2)*(x[2]+2) - x[1]*x[1]
	}
	res, err := GridSearch(logProb, []float64{0, 0.5, 0}, []GridAxis{
		{Index: 0, Min: -3, Max: 3, Nodes: 13},
		{Index: 2, Min: -4, Max: 0, Nodes: 9},
	})
	require.NoError(t, err)

	assert.Len(t, res.LogProbs, 13*9)
	rows, cols := res.Points.Dims()
	assert.Equal(t, 13*9, rows)
	assert.Equal(t, 2, cols)

	assert.InDelta(t, 1.0, res.Best[0], 1e-12)
	assert.Equal(t, 0.5, res.Best[1])
	assert.InDelta(t, -2.0, res.Best[2], 1e-12)
	assert.InDelta(t, -0.25, res.BestLogProb, 1e-12)

	surface, err := res.Surface()
	require.NoError(t, err)
	require.Len(t, surface, 13)
	require.Len(t, surface[0], 9)
	// Row 8 of axis 0 is x0 = 1, column 4 of axis 1 is x2 = -2.
	assert.Equal(t, res.BestLogProb, surface[8][4])
	assert.Equal(t, 8*9+4, res.BestNode)
}

func TestGridSearchSingleNodeAxis(t *testing.T) {
	res, err := GridSearch(func(x []float64) float64 { return -x[0] * x[0] }, []float64{0},
		[]GridAxis{{Index: 0, Min: 2, Max: 2, Nodes: 1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, res.Best)

	_, err = res.Surface()
	assert.True(t, errors.Is(err, ErrInvalidGrid))
}

func TestGridSearchValidation(t *testing.T) {
	lp := func([]float64) float64 { return 0 }
	base := []float64{0, 0}
	for _, axes := range [][]GridAxis{
		nil,
		{{Index: 2, Min: 0, Max: 1, Nodes: 2}},
		{{Index: 0, Min: 1, Max: 0, Nodes: 2}},
		{{Index: 0, Min: 0, Max: 1, Nodes: 0}},
		{{Index: 0, Min: 0, Max: 1, Nodes: 2}, {Index: 0, Min: 0, Max: 1, Nodes: 2}},
		{{Index: 0, Min: 0, Max: 1, Nodes: 1 << 12}, {Index: 1, Min: 0, Max: 1, Nodes: 1 << 12}},
	} {
		_, err := GridSearch(lp, base, axes)
		assert.Truef(t, errors.Is(err, ErrInvalidGrid), "%+v", axes)
	}

	_, err := GridSearch(func([]float64) float64 { return math.NaN() }, base,
		[]GridAxis{{Index: 0, Min: 0, Max: 1, Nodes: 3}})
	assert.True(t, errors.Is(err, ErrInvalidGrid))
}
