package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file turns the forward model into the Bayesian target the samplers
// explore.
//
// THE MODEL:
//
//   log p(m | d) = -½ |G m - d|² / σ²          (Gaussian data misfit)
//                  -½ λ Σ_i w_i m_i²           (energy-bounding prior)
//                  + const
//
// with w_i = (l+1) (a/c)^(2l+4) for the coefficient's degree l. Σ w_i m_i²
// is the mean-square field over the core–mantle boundary, so the prior
// penalises models whose field at the CMB carries implausible energy. High
// degrees get huge weights, which is what keeps a truncated inversion from
// dumping noise into them.
//
// THE GRADIENT:
//
//   ∇ log p = -Gᵀ (G m - d) / σ² - λ W m
//
// One matrix-vector product forward, one transposed product back.
//
// ===========================================================================

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidPosterior indicates an unusable noise level or prior strength.
var ErrInvalidPosterior = errors.New("posterior: invalid parameters")

// Target is the oracle pair a gradient-based sampler needs.
//
// LogProb returns the log density (up to a constant) at x. Grad writes
// ∇ log p(x) into grad, which has the same length as x. Both must be pure.
type Target struct {
	LogProb func(x []float64) float64
	Grad    func(grad, x []float64)
}

// GaussianTarget is an independent normal in every coordinate, the toy
// target used to check samplers against known moments.
func GaussianTarget(mean, std []float64) Target {
	if len(mean) != len(std) {
		panic("posterior: mean and std lengths differ")
	}
	dists := make([]distuv.Normal, len(mean))
	for i := range dists {
		dists[i] = distuv.Normal{Mu: mean[i], Sigma: std[i]}
	}
	return Target{
		LogProb: func(x []float64) float64 {
			lp := 0.0
			for i, d := range dists {
				lp += d.LogProb(x[i])
			}
			return lp
		},
		Grad: func(grad, x []float64) {
			for i, d := range dists {
				grad[i] = -(x[i] - d.Mu) / (d.Sigma * d.Sigma)
			}
		},
	}
}

// PosteriorConfig holds the noise and prior parameters.
type PosteriorConfig struct {
	NoiseStd      float64 `yaml:"noise_std"`      // σ, observation noise standard deviation (nT)
	PriorStrength float64 `yaml:"prior_strength"` // λ, zero disables the prior
	PriorRadius   float64 `yaml:"prior_radius"`   // radius at which the energy is bounded (km)
}

// DefaultPosteriorConfig returns the settings used by the course notebooks.
func DefaultPosteriorConfig() PosteriorConfig {
	return PosteriorConfig{
		NoiseStd:      10,
		PriorStrength: 1e-9,
		PriorRadius:   CoreRadius,
	}
}

// Validate reports whether the configuration can define a density.
func (c PosteriorConfig) Validate() error {
	if !(c.NoiseStd > 0) || math.IsInf(c.NoiseStd, 0) {
		return errors.Wrapf(ErrInvalidPosterior, "noise std must be positive, got %g", c.NoiseStd)
	}
	if c.PriorStrength < 0 || math.IsNaN(c.PriorStrength) {
		return errors.Wrapf(ErrInvalidPosterior, "prior strength must be non-negative, got %g", c.PriorStrength)
	}
	if c.PriorStrength > 0 && !(c.PriorRadius > 0) {
		return errors.Wrapf(ErrInvalidPosterior, "prior radius must be positive, got %g", c.PriorRadius)
	}
	return nil
}

// Posterior is the log posterior over Gauss coefficients.
type Posterior struct {
	forward  *ForwardModel
	data     *mat.VecDense
	invVar   float64
	prior    []float64 // λ w_i per coefficient
	residual *mat.VecDense
}

// NewPosterior binds a forward model to an observation vector.
// The observation vector is copied and never modified.
func NewPosterior(fm *ForwardModel, observations []float64, cfg PosteriorConfig) (*Posterior, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(observations) != fm.NumObservations() {
		return nil, errors.Errorf("posterior: %d observations for %d model rows",
			len(observations), fm.NumObservations())
	}

	obs := make([]float64, len(observations))
	copy(obs, observations)

	return &Posterior{
		forward:  fm,
		data:     mat.NewVecDense(len(obs), obs),
		invVar:   1 / (cfg.NoiseStd * cfg.NoiseStd),
		prior:    priorWeights(fm.LMax, cfg),
		residual: mat.NewVecDense(len(obs), nil),
	}, nil
}

// priorWeights returns λ (l+1) (a/c)^(2l+4) for every flat index.
func priorWeights(lmax int, cfg PosteriorConfig) []float64 {
	w := make([]float64, NumCoefficients(lmax))
	if cfg.PriorStrength == 0 {
		return w
	}
	ratio := EarthRadius / cfg.PriorRadius
	for i, label := range CoefficientLabels(lmax) {
		l := label.Degree
		w[i] = cfg.PriorStrength * float64(l+1) * math.Pow(ratio, float64(2*l+4))
	}
	return w
}

// Dim returns the number of coefficients.
func (p *Posterior) Dim() int { return len(p.prior) }

// Forward returns the underlying forward model.
func (p *Posterior) Forward() *ForwardModel { return p.forward }

// Observations returns a copy of the observation vector.
func (p *Posterior) Observations() []float64 {
	out := make([]float64, p.data.Len())
	copy(out, p.data.RawVector().Data)
	return out
}

// residualAt stores G m - d in p.residual.
func (p *Posterior) residualAt(x []float64) {
	p.residual.MulVec(p.forward.Design(), mat.NewVecDense(len(x), x))
	p.residual.SubVec(p.residual, p.data)
}

// Misfit returns ½ |G m - d|² / σ².
func (p *Posterior) Misfit(x []float64) float64 {
	p.checkDim(x)
	p.residualAt(x)
	return 0.5 * p.invVar * mat.Dot(p.residual, p.residual)
}

// PriorEnergy returns ½ λ Σ w_i m_i².
func (p *Posterior) PriorEnergy(x []float64) float64 {
	p.checkDim(x)
	e := 0.0
	for i, v := range x {
		e += p.prior[i] * v * v
	}
	return 0.5 * e
}

// LogProb returns the log posterior up to an additive constant.
func (p *Posterior) LogProb(x []float64) float64 {
	return -p.Misfit(x) - p.PriorEnergy(x)
}

// Grad writes ∇ log p(x) into grad.
func (p *Posterior) Grad(grad, x []float64) {
	p.checkDim(x)
	if len(grad) != len(x) {
		panic("posterior: gradient length mismatch")
	}
	p.residualAt(x)
	g := mat.NewVecDense(len(grad), grad)
	g.MulVec(p.forward.Design().T(), p.residual)
	for i := range grad {
		grad[i] = -p.invVar*grad[i] - p.prior[i]*x[i]
	}
}

// Target exposes the posterior as a sampler oracle.
//
// The returned functions share scratch space with p, so a Posterior must
// not back two samplers running at the same time.
func (p *Posterior) Target() Target {
	return Target{LogProb: p.LogProb, Grad: p.Grad}
}

// LeastSquares returns the maximum a posteriori model, solving
// (GᵀG/σ² + λW) m = Gᵀd/σ². Useful as a sampler starting point and as the
// reference answer the chain should scatter around.
func (p *Posterior) LeastSquares() ([]float64, error) {
	chol, err := p.normalFactor()
	if err != nil {
		return nil, err
	}
	var rhs mat.VecDense
	rhs.MulVec(p.forward.Design().T(), p.data)
	rhs.ScaleVec(p.invVar, &rhs)

	out := mat.NewVecDense(p.Dim(), nil)
	if err := chol.SolveVecTo(out, &rhs); err != nil {
		return nil, errors.Wrap(err, "posterior: solving normal equations")
	}
	return out.RawVector().Data, nil
}

// MarginalStdDevs returns the posterior standard deviation of every
// coefficient, the square roots of the diagonal of (GᵀG/σ² + λW)⁻¹. The
// posterior is Gaussian, so these are exact.
func (p *Posterior) MarginalStdDevs() ([]float64, error) {
	chol, err := p.normalFactor()
	if err != nil {
		return nil, err
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, errors.Wrap(err, "posterior: inverting normal matrix")
	}
	out := make([]float64, p.Dim())
	for i := range out {
		out[i] = math.Sqrt(cov.At(i, i))
	}
	return out, nil
}

func (p *Posterior) normalFactor() (*mat.Cholesky, error) {
	n := p.Dim()
	var normal mat.SymDense
	normal.SymOuterK(p.invVar, p.forward.Design().T())
	for i := 0; i < n; i++ {
		normal.SetSym(i, i, normal.At(i, i)+p.prior[i])
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(&normal); !ok {
		return nil, errors.New("posterior: normal equations are not positive definite")
	}
	return &chol, nil
}

func (p *Posterior) checkDim(x []float64) {
	if len(x) != len(p.prior) {
		panic("posterior: coefficient vector length mismatch")
	}
}
