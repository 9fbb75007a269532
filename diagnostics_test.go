package main

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// ar1 generates x_t = φ x_{t-1} + ε_t, whose lag-k autocorrelation is φ^k
// and whose integrated autocorrelation time is (1+φ)/(1-φ).
func ar1(n int, phi float64, rng *rand.Rand) []float64 {
	x := make([]float64, n)
	for i := 1; i < n; i++ {
		x[i] = phi*x[i-1] + rng.NormFloat64()
	}
	return x
}

func TestAutocorrelationAR1(t *testing.T) {
	x := ar1(50000, 0.8, rand.New(rand.NewSource(1)))
	rho := Autocorrelation(x, 5)
	require.Len(t, rho, 6)
	assert.Equal(t, 1.0, rho[0])
	for k := 1; k <= 5; k++ {
		assert.InDeltaf(t, math.Pow(0.8, float64(k)), rho[k], 0.03, "lag %d", k)
	}
}

func TestAutocorrelationEdgeCases(t *testing.T) {
	assert.Nil(t, Autocorrelation(nil, 3))
	assert.Equal(t, []float64{1, 0, 0}, Autocorrelation([]float64{2, 2, 2}, 10))
}

func TestEffectiveSampleSize(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	iid := make([]float64, 20000)
	for i := range iid {
		iid[i] = rng.NormFloat64()
	}
	assert.InDelta(t, 20000, EffectiveSampleSize(iid), 2000)

	// τ = (1+0.9)/(1-0.9) = 19.
	corr := ar1(40000, 0.9, rng)
	assert.InDelta(t, 40000.0/19, EffectiveSampleSize(corr), 500)

	assert.Equal(t, 3.0, EffectiveSampleSize([]float64{1, 2, 3}))
	assert.Equal(t, 5.0, EffectiveSampleSize([]float64{1, 1, 1, 1, 1}))
}

func TestSummarize(t *testing.T) {
	x := make([]float64, 101)
	for i := range x {
		x[i] = float64(i)
	}
	s, err := Summarize("g10", x)
	require.NoError(t, err)
	assert.Equal(t, "g10", s.Label)
	assert.InDelta(t, 50.0, s.Mean, 1e-12)
	assert.InDelta(t, 50.0, s.Median, 1.0)
	assert.InDelta(t, 5.0, s.Q05, 1.0)
	assert.InDelta(t, 95.0, s.Q95, 1.0)
	assert.Equal(t, 101, s.Samples)

	_, err = Summarize("x", []float64{1})
	assert.True(t, errors.Is(err, ErrShortChain))
}

func TestSummarizeChain(t *testing.T) {
	chain := newChain([]int{0, 3}, 10)
	for i := 0; i < 10; i++ {
		chain.record([]float64{float64(i), 0, 0, -float64(i)}, 0, 1)
	}
	chain.finish([]float64{9, 0, 0, -9})

	sums, err := SummarizeChain(chain, 2, []string{"a"})
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "a", sums[0].Label)
	assert.Equal(t, "x3", sums[1].Label)
	assert.InDelta(t, 5.5, sums[0].Mean, 1e-12)
	assert.InDelta(t, -5.5, sums[1].Mean, 1e-12)
	assert.Equal(t, 8, sums[0].Samples)

	_, err = SummarizeChain(chain, 10, nil)
	assert.True(t, errors.Is(err, ErrShortChain))
}

func TestHistogram(t *testing.T) {
	x := []float64{0, 0.1, 0.5, 0.9, 1.0, 1.0}
	edges, counts, err := Histogram(x, 2)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, []float64{2, 4}, counts)
	assert.Equal(t, float64(len(x)), floats.Sum(counts))

	_, counts, err = Histogram([]float64{3, 3}, 4)
	require.NoError(t, err)
	assert.Equal(t, 2.0, floats.Sum(counts))

	_, _, err = Histogram(nil, 3)
	assert.Error(t, err)
	_, _, err = Histogram(x, 0)
	assert.Error(t, err)
}
