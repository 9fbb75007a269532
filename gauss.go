package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file defines the container for Gauss coefficients, the spherical
// harmonic expansion coefficients of an internal geomagnetic field model.
//
// INTENTION:
// Every part of the inversion (truth generation, forward model, prior,
// sampler state) must agree on how the triangular (degree, order) table of
// g and h coefficients is flattened into a vector. Keeping that mapping in
// one typed place means there is exactly one convention to test.
//
// LAYOUT:
//
//   degree 1:  g10  g11  h11
//   degree 2:  g20  g21  h21  g22  h22
//   degree 3:  g30  g31  h31  g32  h32  g33  h33
//
// h_l0 does not exist (sin(0·φ) = 0), so degree l contributes 2l+1 entries
// and a model truncated at LMax has LMax·(LMax+2) coefficients.
//
// The flat vector is what the samplers move around; GaussCoefficients is a
// thin view over it and never copies unless asked.
//
// ===========================================================================

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidDegree indicates a (degree, order) pair outside the model.
	ErrInvalidDegree = errors.New("gauss: invalid degree or order")

	// ErrNoSuchCoefficient indicates a request for h_l0.
	ErrNoSuchCoefficient = errors.New("gauss: h coefficient with order 0 does not exist")
)

// Family selects the cosine (g) or sine (h) coefficient family.
type Family int

const (
	FamilyG Family = iota
	FamilyH
)

func (f Family) String() string {
	if f == FamilyH {
		return "h"
	}
	return "g"
}

// NumCoefficients returns the vector length of a model truncated at lmax.
func NumCoefficients(lmax int) int {
	if lmax < 1 {
		return 0
	}
	return lmax * (lmax + 2)
}

// CoefficientIndex maps (family, degree, order) onto the flat vector.
//
// Degree l starts at offset l²-1 (the number of coefficients of all lower
// degrees). Within the degree, g_l0 comes first, then (g_lm, h_lm) pairs.
func CoefficientIndex(f Family, l, m, lmax int) (int, error) {
	if l < 1 || l > lmax || m < 0 || m > l {
		return 0, errors.Wrapf(ErrInvalidDegree, "l=%d m=%d lmax=%d", l, m, lmax)
	}
	base := l*l - 1
	if m == 0 {
		if f == FamilyH {
			return 0, errors.Wrapf(ErrNoSuchCoefficient, "l=%d", l)
		}
		return base, nil
	}
	idx := base + 2*m - 1
	if f == FamilyH {
		idx++
	}
	return idx, nil
}

// CoefficientLabel describes a single entry of the flat vector.
type CoefficientLabel struct {
	Family Family
	Degree int
	Order  int
}

func (c CoefficientLabel) String() string {
	return fmt.Sprintf("%s%d%d", c.Family, c.Degree, c.Order)
}

// CoefficientLabels returns the label of every flat index, in order.
func CoefficientLabels(lmax int) []CoefficientLabel {
	labels := make([]CoefficientLabel, 0, NumCoefficients(lmax))
	for l := 1; l <= lmax; l++ {
		labels = append(labels, CoefficientLabel{FamilyG, l, 0})
		for m := 1; m <= l; m++ {
			labels = append(labels,
				CoefficientLabel{FamilyG, l, m},
				CoefficientLabel{FamilyH, l, m})
		}
	}
	return labels
}

// GaussCoefficients is a flat coefficient vector with a triangular index.
//
// Not safe for concurrent mutation; each chain owns its own vector.
type GaussCoefficients struct {
	LMax int
	data []float64
}

// NewGaussCoefficients allocates a zero model truncated at lmax.
// Panics if lmax < 1.
func NewGaussCoefficients(lmax int) *GaussCoefficients {
	if lmax < 1 {
		panic(fmt.Sprintf("gauss: lmax must be positive, got %d", lmax))
	}
	return &GaussCoefficients{
		LMax: lmax,
		data: make([]float64, NumCoefficients(lmax)),
	}
}

// GaussCoefficientsFromVector wraps an existing vector without copying.
// The vector length must be LMax(LMax+2) for some LMax ≥ 1.
func GaussCoefficientsFromVector(v []float64) (*GaussCoefficients, error) {
	for lmax := 1; NumCoefficients(lmax) <= len(v); lmax++ {
		if NumCoefficients(lmax) == len(v) {
			return &GaussCoefficients{LMax: lmax, data: v}, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidDegree, "vector length %d is not lmax(lmax+2)", len(v))
}

// Len returns the number of coefficients.
func (g *GaussCoefficients) Len() int { return len(g.data) }

// Vector returns the underlying flat vector (shared, not copied).
func (g *GaussCoefficients) Vector() []float64 { return g.data }

// Clone returns a deep copy.
func (g *GaussCoefficients) Clone() *GaussCoefficients {
	data := make([]float64, len(g.data))
	copy(data, g.data)
	return &GaussCoefficients{LMax: g.LMax, data: data}
}

// Index is CoefficientIndex bound to this model's truncation degree.
func (g *GaussCoefficients) Index(f Family, l, m int) (int, error) {
	return CoefficientIndex(f, l, m, g.LMax)
}

// G returns g_lm. Panics on an invalid index.
func (g *GaussCoefficients) G(l, m int) float64 {
	return g.data[g.mustIndex(FamilyG, l, m)]
}

// H returns h_lm; h_l0 is identically zero.
func (g *GaussCoefficients) H(l, m int) float64 {
	if m == 0 {
		return 0
	}
	return g.data[g.mustIndex(FamilyH, l, m)]
}

// Set assigns a coefficient.
func (g *GaussCoefficients) Set(f Family, l, m int, v float64) error {
	idx, err := g.Index(f, l, m)
	if err != nil {
		return err
	}
	g.data[idx] = v
	return nil
}

func (g *GaussCoefficients) mustIndex(f Family, l, m int) int {
	idx, err := g.Index(f, l, m)
	if err != nil {
		panic(err)
	}
	return idx
}

// DegreePower returns the Lowes–Mauersberger spectrum at radius ratio a/r:
//
//	R_l = (l+1) (a/r)^(2l+4) Σ_m (g_lm² + h_lm²)
//
// Index 0 of the result holds degree 1.
func (g *GaussCoefficients) DegreePower(radiusRatio float64) []float64 {
	out := make([]float64, g.LMax)
	for l := 1; l <= g.LMax; l++ {
		sum := 0.0
		for m := 0; m <= l; m++ {
			gv, hv := g.G(l, m), g.H(l, m)
			sum += gv*gv + hv*hv
		}
		out[l-1] = float64(l+1) * pow(radiusRatio, 2*l+4) * sum
	}
	return out
}

func (g *GaussCoefficients) String() string {
	var sb strings.Builder
	for i, label := range CoefficientLabels(g.LMax) {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s=%.2f", label, g.data[i])
	}
	return sb.String()
}

// pow is an integer power; math.Pow is overkill for small exponents.
func pow(x float64, n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= x
	}
	return r
}
