package main

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

// potential evaluates the scalar potential V directly from the coefficients.
func potential(g *GaussCoefficients, r, theta, phi float64) float64 {
	tab := NewLegendreTable(g.LMax, theta)
	v := 0.0
	for l := 1; l <= g.LMax; l++ {
		for m := 0; m <= l; m++ {
			mp := float64(m) * phi
			v += math.Pow(EarthRadius/r, float64(l+1)) *
				(g.G(l, m)*math.Cos(mp) + g.H(l, m)*math.Sin(mp)) * tab.P(l, m)
		}
	}
	return EarthRadius * v
}

// TestForwardMatchesPotentialGradient checks X, Y, Z against a numerical
// gradient of the potential: X = ∂V/(r∂θ), Y = -∂V/(r sinθ ∂φ), Z = ∂V/∂r.
func TestForwardMatchesPotentialGradient(t *testing.T) {
	g := NewGaussCoefficients(3)
	for i := range g.Vector() {
		g.Vector()[i] = float64((i*7)%11) - 5
	}

	site := Site{Radius: EarthRadius + 400, Colatitude: 1.1, Longitude: 0.8}
	fm, err := NewForwardModel(3, []Site{site}, []Component{ComponentX, ComponentY, ComponentZ})
	require.NoError(t, err)
	got := fm.Predict(nil, g.Vector())

	v := func(x []float64) float64 { return potential(g, x[0], x[1], x[2]) }
	grad := fd.Gradient(nil, v, []float64{site.Radius, site.Colatitude, site.Longitude},
		&fd.Settings{Formula: fd.Central})

	r, s := site.Radius, math.Sin(site.Colatitude)
	want := []float64{grad[1] / r, -grad[2] / (r * s), grad[0]}
	for i := range want {
		assert.InDeltaf(t, want[i], got[i], 1e-5*math.Max(1, math.Abs(want[i])), "component %d", i)
	}
}

// TestForwardAxialDipole checks the textbook axial dipole field on the
// reference sphere: X = -g10 sinθ, Y = 0, Z = -2 g10 cosθ.
func TestForwardAxialDipole(t *testing.T) {
	g := NewGaussCoefficients(1)
	require.NoError(t, g.Set(FamilyG, 1, 0, -30000))

	theta := 0.6
	site := Site{Radius: EarthRadius, Colatitude: theta, Longitude: 2}
	fm, err := NewForwardModel(1, []Site{site}, []Component{ComponentX, ComponentY, ComponentZ})
	require.NoError(t, err)

	d := fm.Predict(nil, g.Vector())
	assert.InDelta(t, 30000*math.Sin(theta), d[0], 1e-9)
	assert.InDelta(t, 0.0, d[1], 1e-9)
	assert.InDelta(t, 60000*math.Cos(theta), d[2], 1e-9)
}

func TestForwardRejectsPoleSite(t *testing.T) {
	_, err := NewForwardModel(2, []Site{{Radius: EarthRadius, Colatitude: 0}}, []Component{ComponentZ})
	assert.True(t, errors.Is(err, ErrPoleSite))
}

func TestForwardDesignShape(t *testing.T) {
	sites := []Site{
		{Radius: EarthRadius, Colatitude: 1, Longitude: 0},
		{Radius: EarthRadius, Colatitude: 2, Longitude: 1},
	}
	fm, err := NewForwardModel(4, sites, []Component{ComponentZ, ComponentX})
	require.NoError(t, err)

	r, c := fm.Design().Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, NumCoefficients(4), c)
	assert.Equal(t, 4, fm.NumObservations())
	assert.Panics(t, func() { fm.Predict(nil, make([]float64, 3)) })
}

func TestParseComponents(t *testing.T) {
	comps, err := ParseComponents("ZXZ")
	require.NoError(t, err)
	assert.Equal(t, []Component{ComponentZ, ComponentX}, comps)

	_, err = ParseComponents("ZQ")
	assert.True(t, errors.Is(err, ErrUnknownComponent))

	_, err = ParseComponents("")
	assert.Error(t, err)
}
