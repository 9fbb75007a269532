package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file implements the forward model: Gauss coefficients in, predicted
// magnetic field components at observation sites out.
//
// THE PHYSICS:
//
// Outside the source region the internal field is the gradient of a scalar
// potential
//
//   V(r,θ,φ) = a Σ_l Σ_m (a/r)^(l+1) [g_lm cos mφ + h_lm sin mφ] P_l^m(cos θ)
//
// and B = -∇V. In the local North/East/Down frame:
//
//   X = -B_θ =  Σ (a/r)^(l+2) [g cos mφ + h sin mφ] dP_l^m/dθ
//   Y =  B_φ =  Σ (a/r)^(l+2) m/sinθ [g sin mφ - h cos mφ] P_l^m
//   Z = -B_r = -Σ (l+1) (a/r)^(l+2) [g cos mφ + h sin mφ] P_l^m
//
// KEY OBSERVATION:
// Every component is linear in the coefficients, so the whole forward model
// is one matrix: d = G m. We assemble G once (rows: site × component,
// columns: flat Gauss index) and every posterior evaluation is a single
// matrix-vector product.
//
// ===========================================================================

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// EarthRadius is the geomagnetic reference radius a (km).
	EarthRadius = 6371.2

	// CoreRadius is the radius of the core–mantle boundary c (km).
	CoreRadius = 3485.0
)

var (
	// ErrPoleSite indicates a site on the rotation axis, where Y is undefined.
	ErrPoleSite = errors.New("forward: observation site on a geographic pole")

	// ErrUnknownComponent indicates a component other than X, Y or Z.
	ErrUnknownComponent = errors.New("forward: unknown field component")
)

// Component is one of the North (X), East (Y) or Down (Z) field components.
type Component byte

const (
	ComponentX Component = 'X'
	ComponentY Component = 'Y'
	ComponentZ Component = 'Z'
)

// ParseComponents turns a string such as "XYZ" or "Z" into components.
func ParseComponents(s string) ([]Component, error) {
	if s == "" {
		return nil, errors.Wrap(ErrUnknownComponent, "empty component list")
	}
	seen := make(map[Component]bool)
	out := make([]Component, 0, len(s))
	for _, ch := range s {
		c := Component(ch)
		switch c {
		case ComponentX, ComponentY, ComponentZ:
		default:
			return nil, errors.Wrapf(ErrUnknownComponent, "%q", ch)
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// Site is an observation location in geocentric spherical coordinates.
type Site struct {
	Radius     float64 // km
	Colatitude float64 // radians, in (0, π)
	Longitude  float64 // radians
}

// ForwardModel maps a Gauss coefficient vector onto field predictions.
type ForwardModel struct {
	LMax       int
	Sites      []Site
	Components []Component

	design *mat.Dense
}

// NewForwardModel assembles the design matrix for the given sites.
func NewForwardModel(lmax int, sites []Site, components []Component) (*ForwardModel, error) {
	if lmax < 1 {
		return nil, errors.Wrapf(ErrInvalidDegree, "lmax=%d", lmax)
	}
	if len(sites) == 0 {
		return nil, errors.New("forward: no observation sites")
	}
	if len(components) == 0 {
		return nil, errors.Wrap(ErrUnknownComponent, "no components requested")
	}

	nc := NumCoefficients(lmax)
	design := mat.NewDense(len(sites)*len(components), nc, nil)

	row := 0
	for i, site := range sites {
		s := math.Sin(site.Colatitude)
		if s < 1e-10 {
			return nil, errors.Wrapf(ErrPoleSite, "site %d colatitude=%g", i, site.Colatitude)
		}
		tab := NewLegendreTable(lmax, site.Colatitude)
		ratio := EarthRadius / site.Radius

		for _, comp := range components {
			fillDesignRow(design.RawRowView(row), comp, tab, ratio, s, site.Longitude, lmax)
			row++
		}
	}

	return &ForwardModel{
		LMax:       lmax,
		Sites:      sites,
		Components: components,
		design:     design,
	}, nil
}

// fillDesignRow writes ∂(component)/∂(coefficient) for every coefficient.
func fillDesignRow(dst []float64, comp Component, tab *LegendreTable, ratio, sinTheta, phi float64, lmax int) {
	for l := 1; l <= lmax; l++ {
		radial := pow(ratio, l+2)
		base := l*l - 1
		for m := 0; m <= l; m++ {
			cosm, sinm := math.Cos(float64(m)*phi), math.Sin(float64(m)*phi)
			p, dp := tab.P(l, m), tab.DP(l, m)

			var dg, dh float64
			switch comp {
			case ComponentX:
				dg, dh = radial*cosm*dp, radial*sinm*dp
			case ComponentY:
				k := radial * float64(m) / sinTheta * p
				dg, dh = k*sinm, -k*cosm
			case ComponentZ:
				k := -float64(l+1) * radial * p
				dg, dh = k*cosm, k*sinm
			}

			if m == 0 {
				dst[base] = dg
				continue
			}
			dst[base+2*m-1] = dg
			dst[base+2*m] = dh
		}
	}
}

// Design returns the design matrix G (shared, do not modify).
func (f *ForwardModel) Design() *mat.Dense { return f.design }

// NumObservations returns the number of rows of G.
func (f *ForwardModel) NumObservations() int {
	r, _ := f.design.Dims()
	return r
}

// Predict computes d = G m into dst, allocating when dst is nil.
// Panics if the coefficient vector has the wrong length.
func (f *ForwardModel) Predict(dst, coeffs []float64) []float64 {
	r, c := f.design.Dims()
	if len(coeffs) != c {
		panic("forward: coefficient vector length mismatch")
	}
	if dst == nil {
		dst = make([]float64, r)
	}
	out := mat.NewVecDense(r, dst)
	out.MulVec(f.design, mat.NewVecDense(c, coeffs))
	return dst
}
