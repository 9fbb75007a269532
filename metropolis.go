package main

import (
	"context"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MetropolisConfig holds random-walk Metropolis tuning parameters.
type MetropolisConfig struct {
	// ProposalScale is the standard deviation of the Gaussian step, either
	// one value for every coordinate or one per coordinate.
	ProposalScale []float64 `yaml:"proposal_scale"`
	Samples       int       `yaml:"samples"`
	Track         []int     `yaml:"track"`
	LogInterval   int       `yaml:"log_interval"`
}

// DefaultMetropolisConfig returns a unit-scale random walk.
func DefaultMetropolisConfig() MetropolisConfig {
	return MetropolisConfig{
		ProposalScale: []float64{1},
		Samples:       20000,
		LogInterval:   5000,
	}
}

// Validate checks the configuration against the state dimension.
func (c MetropolisConfig) Validate(dim int) error {
	if c.Samples < 1 {
		return errors.Wrapf(ErrInvalidSamplerConfig, "sample count must be positive, got %d", c.Samples)
	}
	if n := len(c.ProposalScale); n != 1 && n != dim {
		return errors.Wrapf(ErrInvalidSamplerConfig, "need 1 or %d proposal scales, got %d", dim, n)
	}
	for _, s := range c.ProposalScale {
		if !(s > 0) || math.IsInf(s, 0) {
			return errors.Wrapf(ErrInvalidSamplerConfig, "proposal scale must be positive, got %g", s)
		}
	}
	return nil
}

// Metropolis is a random-walk Metropolis sampler with a symmetric Gaussian
// proposal, so the Hastings correction cancels and only the target ratio
// enters the acceptance test.
//
// Draw order per iteration matches HMC: dim normals, then one uniform.
// With a zero gradient and scale Nt·dt the two samplers make the same
// decisions from the same seed.
type Metropolis struct {
	logProb func([]float64) float64
	cfg     MetropolisConfig
	rng     *rand.Rand
	log     logrus.FieldLogger
}

// NewMetropolis creates a sampler over the given log density.
func NewMetropolis(logProb func([]float64) float64, cfg MetropolisConfig, rng *rand.Rand, logger logrus.FieldLogger) (*Metropolis, error) {
	if logProb == nil {
		return nil, errors.Wrap(ErrInvalidSamplerConfig, "nil log density")
	}
	if rng == nil {
		return nil, errors.Wrap(ErrInvalidSamplerConfig, "nil random source")
	}
	return &Metropolis{
		logProb: logProb,
		cfg:     cfg,
		rng:     rng,
		log:     componentLogger(logger, "metropolis"),
	}, nil
}

// Run draws cfg.Samples states starting from initial.
func (s *Metropolis) Run(ctx context.Context, initial []float64) (*Chain, error) {
	dim := len(initial)
	if dim == 0 {
		return nil, errors.Wrap(ErrInvalidSamplerConfig, "empty initial state")
	}
	if err := s.cfg.Validate(dim); err != nil {
		return nil, err
	}
	track, err := resolveTrack(s.cfg.Track, dim)
	if err != nil {
		return nil, err
	}

	scale := s.cfg.ProposalScale
	if len(scale) == 1 {
		scale = make([]float64, dim)
		for i := range scale {
			scale[i] = s.cfg.ProposalScale[0]
		}
	}

	q := append([]float64(nil), initial...)
	logp := s.logProb(q)
	if math.IsNaN(logp) || math.IsInf(logp, 0) {
		return nil, errors.Wrapf(ErrInvalidInitialState, "log p = %g", logp)
	}
	proposal := make([]float64, dim)

	chain := newChain(track, s.cfg.Samples)
	chain.StepSize = scale[0]

	for i := 0; i < s.cfg.Samples; i++ {
		if err := checkContext(ctx, i, s.cfg.Samples); err != nil {
			return chain.finish(q), err
		}

		for j := range proposal {
			proposal[j] = q[j] + scale[j]*s.rng.NormFloat64()
		}
		logpNew := s.logProb(proposal)

		u := s.rng.Float64()
		accept, prob := false, 0.0
		// log p = -Inf is zero density, an ordinary rejection. Only NaN
		// and +Inf count as divergences.
		if !math.IsInf(logpNew, -1) {
			var err error
			if accept, prob, err = metropolisAccept(logpNew-logp, u); err != nil {
				chain.Divergences++
				s.log.WithField("iteration", i).WithError(err).Debug("rejecting non-finite proposal")
			}
		}
		if accept {
			q, proposal = proposal, q
			logp = logpNew
			chain.Accepted++
		}

		chain.record(q, logp, prob)
		logProgress(s.log, s.cfg.LogInterval, i, chain, scale[0])
	}

	return chain.finish(q), nil
}
