package main

// Synthetic data for the geomagnetic exercises.
//
// The course notebooks never use real observatory data: they build a "true"
// field model, predict it at a set of sites, add Gaussian noise, and ask the
// inversion to get the truth back. This file does the same with an explicit
// random source so every synthetic dataset is reproducible from its seed.

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// igrfDipole holds the degree-1 IGRF-13 (2020) coefficients in nT.
var igrfDipole = [3]float64{-29404.8, -1450.9, 4652.5}

// FibonacciSites spreads n sites almost uniformly over a sphere of the given
// radius. The golden-angle spiral never lands exactly on a pole.
func FibonacciSites(n int, radius float64) []Site {
	sites := make([]Site, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		z := 1 - (2*float64(i)+1)/float64(n)
		sites[i] = Site{
			Radius:     radius,
			Colatitude: math.Acos(z),
			Longitude:  math.Mod(golden*float64(i), 2*math.Pi),
		}
	}
	return sites
}

// TruthModel builds a reference model: the IGRF dipole at degree 1 and
// random coefficients for higher degrees whose rms falls off with degree
// like a Lowes spectrum flattened at the core surface.
func TruthModel(lmax int, rng *rand.Rand) *GaussCoefficients {
	g := NewGaussCoefficients(lmax)
	v := g.Vector()
	copy(v, igrfDipole[:])

	// Degree l occupies the flat block [NumCoefficients(l-1), NumCoefficients(l)).
	for l := 2; l <= lmax; l++ {
		rms := 3000 * math.Pow(CoreRadius/EarthRadius, float64(l-1))
		for i := NumCoefficients(l - 1); i < NumCoefficients(l); i++ {
			v[i] = rms * rng.NormFloat64()
		}
	}
	return g
}

// SyntheticDataset is a truth model together with noisy predictions of it.
type SyntheticDataset struct {
	Truth        *GaussCoefficients
	Forward      *ForwardModel
	Observations []float64
	NoiseStd     float64
}

// SyntheticConfig controls dataset generation.
type SyntheticConfig struct {
	LMax       int     `yaml:"lmax"`
	Sites      int     `yaml:"sites"`
	Altitude   float64 `yaml:"altitude"` // km above the reference radius
	Components string  `yaml:"components"`
	NoiseStd   float64 `yaml:"noise_std"`
}

// DefaultSyntheticConfig mirrors the notebook set-up: a degree-3 model seen
// by 300 satellite-altitude vector measurements with 10 nT noise.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		LMax:       3,
		Sites:      300,
		Altitude:   400,
		Components: "XYZ",
		NoiseStd:   10,
	}
}

// NewSyntheticDataset draws the truth model, then the noise, from rng.
func NewSyntheticDataset(cfg SyntheticConfig, rng *rand.Rand) (*SyntheticDataset, error) {
	if cfg.LMax < 1 {
		return nil, errors.Wrapf(ErrInvalidDegree, "lmax=%d", cfg.LMax)
	}
	if cfg.Sites < 1 {
		return nil, errors.Errorf("synthetic: need at least one site, got %d", cfg.Sites)
	}
	if cfg.NoiseStd < 0 {
		return nil, errors.Errorf("synthetic: negative noise std %g", cfg.NoiseStd)
	}
	comps, err := ParseComponents(cfg.Components)
	if err != nil {
		return nil, err
	}

	fm, err := NewForwardModel(cfg.LMax, FibonacciSites(cfg.Sites, EarthRadius+cfg.Altitude), comps)
	if err != nil {
		return nil, errors.Wrap(err, "synthetic: forward model")
	}

	truth := TruthModel(cfg.LMax, rng)
	obs := fm.Predict(nil, truth.Vector())
	for i := range obs {
		obs[i] += cfg.NoiseStd * rng.NormFloat64()
	}

	return &SyntheticDataset{
		Truth:        truth,
		Forward:      fm,
		Observations: obs,
		NoiseStd:     cfg.NoiseStd,
	}, nil
}
