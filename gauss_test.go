package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumCoefficients(t *testing.T) {
	assert.Equal(t, 0, NumCoefficients(0))
	assert.Equal(t, 3, NumCoefficients(1))
	assert.Equal(t, 8, NumCoefficients(2))
	assert.Equal(t, 195, NumCoefficients(13))
}

// TestCoefficientIndexOrdering walks the whole triangle and checks the
// mapping is a bijection onto [0, LMax(LMax+2)) in the documented order.
func TestCoefficientIndexOrdering(t *testing.T) {
	const lmax = 6
	labels := CoefficientLabels(lmax)
	require.Len(t, labels, NumCoefficients(lmax))

	for want, label := range labels {
		got, err := CoefficientIndex(label.Family, label.Degree, label.Order, lmax)
		require.NoError(t, err)
		assert.Equalf(t, want, got, "index of %s", label)
	}

	assert.Equal(t, "g10", labels[0].String())
	assert.Equal(t, "g11", labels[1].String())
	assert.Equal(t, "h11", labels[2].String())
	assert.Equal(t, "g20", labels[3].String())
}

func TestCoefficientIndexErrors(t *testing.T) {
	_, err := CoefficientIndex(FamilyG, 0, 0, 3)
	assert.True(t, errors.Is(err, ErrInvalidDegree))

	_, err = CoefficientIndex(FamilyG, 4, 0, 3)
	assert.True(t, errors.Is(err, ErrInvalidDegree))

	_, err = CoefficientIndex(FamilyG, 2, 3, 3)
	assert.True(t, errors.Is(err, ErrInvalidDegree))

	_, err = CoefficientIndex(FamilyH, 2, 0, 3)
	assert.True(t, errors.Is(err, ErrNoSuchCoefficient))
}

func TestGaussCoefficientsAccessors(t *testing.T) {
	g := NewGaussCoefficients(2)
	require.NoError(t, g.Set(FamilyG, 1, 0, -29404.8))
	require.NoError(t, g.Set(FamilyG, 1, 1, -1450.9))
	require.NoError(t, g.Set(FamilyH, 1, 1, 4652.5))
	require.NoError(t, g.Set(FamilyH, 2, 2, -734.6))

	assert.Equal(t, -29404.8, g.G(1, 0))
	assert.Equal(t, 0.0, g.H(1, 0))
	assert.Equal(t, 4652.5, g.H(1, 1))
	assert.Equal(t, -734.6, g.Vector()[7])

	clone := g.Clone()
	clone.Vector()[0] = 0
	assert.Equal(t, -29404.8, g.G(1, 0), "clone must not alias")

	assert.Error(t, g.Set(FamilyH, 2, 0, 1))
	assert.Panics(t, func() { g.G(3, 0) })
	assert.Panics(t, func() { NewGaussCoefficients(0) })
}

func TestGaussCoefficientsFromVector(t *testing.T) {
	g, err := GaussCoefficientsFromVector(make([]float64, 15))
	require.NoError(t, err)
	assert.Equal(t, 3, g.LMax)

	_, err = GaussCoefficientsFromVector(make([]float64, 7))
	assert.True(t, errors.Is(err, ErrInvalidDegree))
}

// TestDegreePower checks the spectrum of a pure dipole.
func TestDegreePower(t *testing.T) {
	g := NewGaussCoefficients(2)
	require.NoError(t, g.Set(FamilyG, 1, 0, 3))
	require.NoError(t, g.Set(FamilyH, 1, 1, 4))

	power := g.DegreePower(1)
	require.Len(t, power, 2)
	assert.InDelta(t, 2*25.0, power[0], 1e-12)
	assert.Equal(t, 0.0, power[1])
}
