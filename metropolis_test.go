package main

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TestMetropolisShiftedNormal samples N(2, 0.5²) and checks the moments.
func TestMetropolisShiftedNormal(t *testing.T) {
	logProb := func(x []float64) float64 {
		z := (x[0] - 2) / 0.5
		return -0.5 * z * z
	}
	s, err := NewMetropolis(logProb, MetropolisConfig{ProposalScale: []float64{1}, Samples: 40000},
		rand.New(rand.NewSource(17)), nil)
	require.NoError(t, err)

	chain, err := s.Run(context.Background(), []float64{0})
	require.NoError(t, err)
	require.Equal(t, 40000, chain.Len())

	mean, variance := stat.MeanVariance(chain.Trace(0)[2000:], nil)
	assert.InDelta(t, 2.0, mean, 0.05)
	assert.InDelta(t, 0.25, variance, 0.03)
	assert.Greater(t, chain.AcceptanceRate(), 0.2)
	assert.Less(t, chain.AcceptanceRate(), 0.8)
}

func TestMetropolisDeterministic(t *testing.T) {
	logProb := standardNormalTarget().LogProb
	run := func(seed int64) *Chain {
		s, err := NewMetropolis(logProb, MetropolisConfig{ProposalScale: []float64{0.5, 2}, Samples: 200},
			rand.New(rand.NewSource(seed)), nil)
		require.NoError(t, err)
		chain, err := s.Run(context.Background(), []float64{0, 0})
		require.NoError(t, err)
		return chain
	}
	assert.True(t, mat.Equal(run(5).Samples, run(5).Samples))
}

// TestMetropolisOutsideSupport checks that proposals into a region of zero
// density (log p = -Inf) are rejected and the chain never leaves the support.
func TestMetropolisOutsideSupport(t *testing.T) {
	halfLine := func(x []float64) float64 {
		if x[0] < 0 {
			return math.Inf(-1)
		}
		return -x[0]
	}
	s, err := NewMetropolis(halfLine, MetropolisConfig{ProposalScale: []float64{2}, Samples: 2000},
		rand.New(rand.NewSource(3)), nil)
	require.NoError(t, err)
	chain, err := s.Run(context.Background(), []float64{1})
	require.NoError(t, err)

	for _, v := range chain.Trace(0) {
		assert.GreaterOrEqual(t, v, 0.0)
	}
	assert.Zero(t, chain.Divergences, "zero density is a rejection, not a divergence")
	assert.Less(t, chain.Accepted, chain.Len())
}

// TestMetropolisCountsDivergences checks that NaN and +Inf log densities are
// rejected and counted as divergences.
func TestMetropolisCountsDivergences(t *testing.T) {
	for name, bad := range map[string]float64{"nan": math.NaN(), "+inf": math.Inf(1)} {
		t.Run(name, func(t *testing.T) {
			target := func(x []float64) float64 {
				if x[0] < 0 {
					return bad
				}
				return -x[0]
			}
			s, err := NewMetropolis(target, MetropolisConfig{ProposalScale: []float64{2}, Samples: 500},
				rand.New(rand.NewSource(3)), nil)
			require.NoError(t, err)
			chain, err := s.Run(context.Background(), []float64{1})
			require.NoError(t, err)

			for _, v := range chain.Trace(0) {
				assert.GreaterOrEqual(t, v, 0.0)
			}
			assert.Greater(t, chain.Divergences, 0)
			assert.LessOrEqual(t, chain.Accepted+chain.Divergences, chain.Len())
		})
	}
}

func TestMetropolisValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	logProb := standardNormalTarget().LogProb

	s, err := NewMetropolis(logProb, MetropolisConfig{ProposalScale: []float64{1, 1, 1}, Samples: 10}, rng, nil)
	require.NoError(t, err)
	_, err = s.Run(context.Background(), []float64{0, 0})
	assert.True(t, errors.Is(err, ErrInvalidSamplerConfig))

	s, err = NewMetropolis(logProb, MetropolisConfig{ProposalScale: []float64{-1}, Samples: 10}, rng, nil)
	require.NoError(t, err)
	_, err = s.Run(context.Background(), []float64{0})
	assert.True(t, errors.Is(err, ErrInvalidSamplerConfig))

	_, err = NewMetropolis(nil, DefaultMetropolisConfig(), rng, nil)
	assert.Error(t, err)
	require.NoError(t, DefaultMetropolisConfig().Validate(4))
}

func TestMetropolisCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := NewMetropolis(standardNormalTarget().LogProb, DefaultMetropolisConfig(), rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)
	chain, err := s.Run(ctx, []float64{0})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, chain.Len())
}
