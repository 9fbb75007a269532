package main

// Run configuration shared by the CLI commands.
//
// Every command starts from DefaultRunConfig, overlays the YAML file named by
// -config (if any), then applies the flags the user set explicitly. Only the
// sections a command uses are validated by it.

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig indicates a run configuration that cannot be executed.
var ErrInvalidConfig = errors.New("config: invalid run configuration")

// Sampler names accepted by the sample command.
const (
	SamplerHMC        = "hmc"
	SamplerMetropolis = "metropolis"
)

// OutputConfig selects what a run writes and where.
type OutputConfig struct {
	Dir   string `yaml:"dir"`
	CSV   bool   `yaml:"csv"`
	Plots bool   `yaml:"plots"`
	HTML  bool   `yaml:"html"`
}

// SampleConfig configures the sample command.
type SampleConfig struct {
	Sampler    string           `yaml:"sampler"`
	BurnIn     int              `yaml:"burn_in"`
	HMC        HMCConfig        `yaml:"hmc"`
	Metropolis MetropolisConfig `yaml:"metropolis"`
	// ScaleByPosterior multiplies the Metropolis proposal scale by each
	// coefficient's posterior standard deviation.
	ScaleByPosterior bool `yaml:"scale_by_posterior"`
}

// GridSearchConfig configures the gridsearch command. When Axes is empty,
// one axis per entry of Indices is centred on the least-squares model.
type GridSearchConfig struct {
	Axes    []GridAxis `yaml:"axes"`
	Indices []int      `yaml:"indices"`
	// Width is the half-width of default axes in posterior standard
	// deviations.
	Width float64 `yaml:"width"`
	Nodes int     `yaml:"nodes"`
}

// TomographyConfig configures the tomography command.
type TomographyConfig struct {
	NX         int     `yaml:"nx"`
	NY         int     `yaml:"ny"`
	CellSize   float64 `yaml:"cell_size"`
	Sources    int     `yaml:"sources"`
	Receivers  int     `yaml:"receivers"`
	Background float64 `yaml:"background"` // slowness, s/km
	Amplitude  float64 `yaml:"amplitude"`  // relative checkerboard perturbation
	BlockSize  int     `yaml:"block_size"`
	Damping    float64 `yaml:"damping"`
	NoiseStd   float64 `yaml:"noise_std"` // travel-time noise, s
}

// RunConfig is the complete configuration file layout.
type RunConfig struct {
	Seed       int64            `yaml:"seed"`
	Logging    LoggingConfig    `yaml:"logging"`
	Synthetic  SyntheticConfig  `yaml:"synthetic"`
	Posterior  PosteriorConfig  `yaml:"posterior"`
	Sample     SampleConfig     `yaml:"sample"`
	GridSearch GridSearchConfig `yaml:"gridsearch"`
	Tomography TomographyConfig `yaml:"tomography"`
	Output     OutputConfig     `yaml:"output"`
}

// DefaultRunConfig returns a configuration every command can run as is.
func DefaultRunConfig() RunConfig {
	hmc := DefaultHMCConfig()
	hmc.AdaptSteps = 1000
	rwm := DefaultMetropolisConfig()
	rwm.ProposalScale = []float64{0.6}
	return RunConfig{
		Seed:      42,
		Logging:   DefaultLoggingConfig(),
		Synthetic: DefaultSyntheticConfig(),
		Posterior: DefaultPosteriorConfig(),
		Sample: SampleConfig{
			Sampler:          SamplerHMC,
			BurnIn:           1000,
			HMC:              hmc,
			Metropolis:       rwm,
			ScaleByPosterior: true,
		},
		GridSearch: GridSearchConfig{
			Indices: []int{0, 1},
			Width:   4,
			Nodes:   41,
		},
		Tomography: DefaultTomographyConfig(),
		Output: OutputConfig{
			Dir:   "output",
			CSV:   true,
			Plots: true,
			HTML:  true,
		},
	}
}

// DefaultTomographyConfig is a 20×20 km crosshole survey over a 2 km
// checkerboard.
func DefaultTomographyConfig() TomographyConfig {
	return TomographyConfig{
		NX:         20,
		NY:         20,
		CellSize:   1,
		Sources:    20,
		Receivers:  20,
		Background: 0.2,
		Amplitude:  0.1,
		BlockSize:  4,
		Damping:    0.1,
		NoiseStd:   0.001,
	}
}

// LoadConfig overlays the YAML file at path onto DefaultRunConfig. Unknown
// keys are an error.
func LoadConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: read")
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Dim returns the number of coefficients the synthetic model carries.
func (c RunConfig) Dim() int {
	if c.Synthetic.LMax < 1 {
		return 0
	}
	return NumCoefficients(c.Synthetic.LMax)
}

// ValidateSample checks everything the sample command reads.
func (c RunConfig) ValidateSample() error {
	if err := c.validateData(); err != nil {
		return err
	}
	s := c.Sample
	samples := 0
	switch s.Sampler {
	case SamplerHMC:
		if err := s.HMC.Validate(); err != nil {
			return errors.Wrap(err, "sample.hmc")
		}
		samples = s.HMC.Samples
		if err := validateTrack(s.HMC.Track, c.Dim()); err != nil {
			return err
		}
	case SamplerMetropolis:
		if err := s.Metropolis.Validate(c.Dim()); err != nil {
			return errors.Wrap(err, "sample.metropolis")
		}
		samples = s.Metropolis.Samples
		if err := validateTrack(s.Metropolis.Track, c.Dim()); err != nil {
			return err
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown sampler %q", s.Sampler)
	}
	if s.BurnIn < 0 || s.BurnIn >= samples-1 {
		return errors.Wrapf(ErrInvalidConfig, "burn-in %d must leave at least 2 of %d samples", s.BurnIn, samples)
	}
	return nil
}

// ValidateGridSearch checks everything the gridsearch command reads.
func (c RunConfig) ValidateGridSearch() error {
	if err := c.validateData(); err != nil {
		return err
	}
	g := c.GridSearch
	if len(g.Axes) == 0 {
		if !(g.Width > 0) || g.Nodes < 2 {
			return errors.Wrapf(ErrInvalidConfig, "default grid needs width > 0 and nodes >= 2, got %g and %d", g.Width, g.Nodes)
		}
		return validateGridIndices(g.Indices, c.Dim())
	}
	indices := make([]int, len(g.Axes))
	for k, a := range g.Axes {
		indices[k] = a.Index
	}
	return validateGridIndices(indices, c.Dim())
}

// ValidateTomography checks everything the tomography command reads.
func (c RunConfig) ValidateTomography() error {
	t := c.Tomography
	if t.NX < 2 || t.NY < 2 || !(t.CellSize > 0) {
		return errors.Wrapf(ErrInvalidConfig, "tomography grid %dx%d cell=%g", t.NX, t.NY, t.CellSize)
	}
	if t.Sources < 1 || t.Receivers < 1 {
		return errors.Wrapf(ErrInvalidConfig, "need sources and receivers, got %d and %d", t.Sources, t.Receivers)
	}
	if !(t.Background > 0) || !(t.Amplitude > 0) || t.Amplitude >= 1 {
		return errors.Wrapf(ErrInvalidConfig, "background %g amplitude %g", t.Background, t.Amplitude)
	}
	if t.Damping < 0 || t.NoiseStd < 0 {
		return errors.Wrapf(ErrInvalidConfig, "damping %g noise %g must be non-negative", t.Damping, t.NoiseStd)
	}
	return nil
}

func (c RunConfig) validateData() error {
	if c.Synthetic.LMax < 1 {
		return errors.Wrapf(ErrInvalidConfig, "lmax must be at least 1, got %d", c.Synthetic.LMax)
	}
	if c.Synthetic.Sites < 1 {
		return errors.Wrapf(ErrInvalidConfig, "need at least one site, got %d", c.Synthetic.Sites)
	}
	if c.Synthetic.NoiseStd < 0 {
		return errors.Wrapf(ErrInvalidConfig, "synthetic noise must be non-negative, got %g", c.Synthetic.NoiseStd)
	}
	if _, err := ParseComponents(c.Synthetic.Components); err != nil {
		return errors.Wrap(err, "synthetic.components")
	}
	if err := c.Posterior.Validate(); err != nil {
		return err
	}
	return nil
}

func validateTrack(track []int, dim int) error {
	for _, idx := range track {
		if idx < 0 || idx >= dim {
			return errors.Wrapf(ErrInvalidConfig, "tracked coordinate %d outside [0,%d)", idx, dim)
		}
	}
	return nil
}

func validateGridIndices(indices []int, dim int) error {
	if len(indices) < 1 || len(indices) > 3 {
		return errors.Wrapf(ErrInvalidConfig, "need 1 to 3 grid axes, got %d", len(indices))
	}
	seen := make(map[int]bool)
	for _, idx := range indices {
		if idx < 0 || idx >= dim {
			return errors.Wrapf(ErrInvalidConfig, "grid axis index %d outside [0,%d)", idx, dim)
		}
		if seen[idx] {
			return errors.Wrapf(ErrInvalidConfig, "grid axis index %d repeated", idx)
		}
		seen[idx] = true
	}
	return nil
}
