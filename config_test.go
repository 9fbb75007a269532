package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultRunConfigIsValid(t *testing.T) {
	cfg := DefaultRunConfig()
	assert.NoError(t, cfg.ValidateSample())
	assert.NoError(t, cfg.ValidateGridSearch())
	assert.NoError(t, cfg.ValidateTomography())
	assert.Equal(t, 15, cfg.Dim())

	cfg.Sample.Sampler = SamplerMetropolis
	assert.NoError(t, cfg.ValidateSample())
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
seed: 7
synthetic:
  lmax: 2
  components: Z
sample:
  sampler: metropolis
  burn_in: 100
  metropolis:
    proposal_scale: [0.5]
    samples: 500
gridsearch:
  axes:
    - {index: 0, min: -30000, max: -29000, nodes: 11}
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 2, cfg.Synthetic.LMax)
	assert.Equal(t, "Z", cfg.Synthetic.Components)
	assert.Equal(t, 300, cfg.Synthetic.Sites, "unset keys keep their defaults")
	assert.Equal(t, SamplerMetropolis, cfg.Sample.Sampler)
	assert.Equal(t, []float64{0.5}, cfg.Sample.Metropolis.ProposalScale)
	assert.Equal(t, 500, cfg.Sample.Metropolis.Samples)
	assert.Equal(t, DefaultHMCConfig().Steps, cfg.Sample.HMC.Steps)
	require.Len(t, cfg.GridSearch.Axes, 1)
	assert.Equal(t, 11, cfg.GridSearch.Axes[0].Nodes)
	assert.NoError(t, cfg.ValidateSample())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "sample:\n  samplr: hmc\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = LoadConfig(writeConfig(t, "seed: [1, 2]\n"))
	assert.Error(t, err)
}

func TestRunConfigValidation(t *testing.T) {
	cases := map[string]func(*RunConfig){
		"sampler":     func(c *RunConfig) { c.Sample.Sampler = "nuts" },
		"burn-in":     func(c *RunConfig) { c.Sample.BurnIn = c.Sample.HMC.Samples },
		"lmax":        func(c *RunConfig) { c.Synthetic.LMax = 0 },
		"sites":       func(c *RunConfig) { c.Synthetic.Sites = 0 },
		"track":       func(c *RunConfig) { c.Sample.HMC.Track = []int{15} },
		"noise":       func(c *RunConfig) { c.Synthetic.NoiseStd = -1 },
		"components":  func(c *RunConfig) { c.Synthetic.Components = "XW" },
		"posterior":   func(c *RunConfig) { c.Posterior.NoiseStd = 0 },
		"hmc steps":   func(c *RunConfig) { c.Sample.HMC.Steps = 0 },
		"hmc adapt":   func(c *RunConfig) { c.Sample.HMC.AdaptSteps = -1 },
		"hmc samples": func(c *RunConfig) { c.Sample.HMC.Samples = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			mutate(&cfg)
			assert.Error(t, cfg.ValidateSample())
		})
	}

	cfg := DefaultRunConfig()
	cfg.Sample.Sampler = "nuts"
	assert.True(t, errors.Is(cfg.ValidateSample(), ErrInvalidConfig))

	cfg = DefaultRunConfig()
	cfg.Sample.HMC.StepSize = -1
	assert.True(t, errors.Is(cfg.ValidateSample(), ErrInvalidSamplerConfig))

	cfg = DefaultRunConfig()
	cfg.GridSearch.Axes = []GridAxis{{Index: 99, Nodes: 2}}
	assert.True(t, errors.Is(cfg.ValidateGridSearch(), ErrInvalidConfig))
	cfg.GridSearch.Axes = make([]GridAxis, 4)
	assert.Error(t, cfg.ValidateGridSearch())
	cfg.GridSearch.Axes = nil
	cfg.GridSearch.Nodes = 1
	assert.Error(t, cfg.ValidateGridSearch())

	cfg = DefaultRunConfig()
	cfg.Tomography.NX = 1
	assert.True(t, errors.Is(cfg.ValidateTomography(), ErrInvalidConfig))
	cfg = DefaultRunConfig()
	cfg.Tomography.Amplitude = 1
	assert.Error(t, cfg.ValidateTomography())
	cfg = DefaultRunConfig()
	cfg.Tomography.Receivers = 0
	assert.Error(t, cfg.ValidateTomography())
}
