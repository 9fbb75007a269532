package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file implements straight-ray travel-time tomography, the linear
// inversion exercise that opens the course.
//
// THE SET-UP:
// A rectangular region is cut into nx × ny cells, each with an unknown
// slowness s_j (1/velocity). A ray travels in a straight line from a source
// to a receiver, so its travel time is
//
//   t_i = Σ_j L_ij s_j
//
// where L_ij is the length of ray i inside cell j. Stacking all rays gives
// t = G s, linear in the slowness.
//
// COMPUTING L_ij:
// Parametrise the ray as P(u) = A + u (B - A), u ∈ [0,1]. Collect every u
// where the ray crosses a vertical or horizontal grid line, sort them, and
// each consecutive pair bounds a segment lying in exactly one cell (found
// from the segment midpoint). Segment length is Δu · |B - A|.
//
// THE INVERSION:
// Real surveys never illuminate every cell evenly, so GᵀG is singular or
// badly conditioned. Damped least squares adds ε² I:
//
//   (GᵀG + ε² I) ŝ = Gᵀ t
//
// solved with a Cholesky factorisation. Large ε smooths towards zero
// slowness perturbation; small ε fits noise.
//
// ===========================================================================

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidTomography indicates a malformed grid, ray or damping value.
var ErrInvalidTomography = errors.New("tomography: invalid input")

// TomographyGrid is a regular grid of cells anchored at the origin.
// Cell (ix, iy) has flat index iy*NX + ix.
type TomographyGrid struct {
	NX, NY   int
	CellSize float64
}

// NumCells returns NX·NY.
func (g TomographyGrid) NumCells() int { return g.NX * g.NY }

// Width returns the x extent.
func (g TomographyGrid) Width() float64 { return float64(g.NX) * g.CellSize }

// Height returns the y extent.
func (g TomographyGrid) Height() float64 { return float64(g.NY) * g.CellSize }

// Contains reports whether p lies in the closed grid rectangle.
func (g TomographyGrid) Contains(p Point) bool {
	return p.X >= 0 && p.X <= g.Width() && p.Y >= 0 && p.Y <= g.Height()
}

func (g TomographyGrid) validate() error {
	if g.NX < 1 || g.NY < 1 || !(g.CellSize > 0) {
		return errors.Wrapf(ErrInvalidTomography, "grid %dx%d cell=%g", g.NX, g.NY, g.CellSize)
	}
	return nil
}

// Point is a 2-D position.
type Point struct{ X, Y float64 }

// Ray is a straight source → receiver path.
type Ray struct{ Source, Receiver Point }

// Length returns the Euclidean source–receiver distance.
func (r Ray) Length() float64 {
	return math.Hypot(r.Receiver.X-r.Source.X, r.Receiver.Y-r.Source.Y)
}

// RayPathMatrix builds G with one row per ray and one column per cell.
// Both ray endpoints must lie inside the grid.
func RayPathMatrix(grid TomographyGrid, rays []Ray) (*mat.Dense, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	if len(rays) == 0 {
		return nil, errors.Wrap(ErrInvalidTomography, "no rays")
	}
	g := mat.NewDense(len(rays), grid.NumCells(), nil)
	for i, ray := range rays {
		if !grid.Contains(ray.Source) || !grid.Contains(ray.Receiver) {
			return nil, errors.Wrapf(ErrInvalidTomography, "ray %d leaves the grid", i)
		}
		traceRay(grid, ray, g.RawRowView(i))
	}
	return g, nil
}

// traceRay adds the length of ray inside every cell to row.
func traceRay(grid TomographyGrid, ray Ray, row []float64) {
	a, b := ray.Source, ray.Receiver
	dx, dy := b.X-a.X, b.Y-a.Y
	length := ray.Length()
	if length == 0 {
		return
	}

	cuts := []float64{0, 1}
	if dx != 0 {
		for i := 0; i <= grid.NX; i++ {
			if u := (float64(i)*grid.CellSize - a.X) / dx; u > 0 && u < 1 {
				cuts = append(cuts, u)
			}
		}
	}
	if dy != 0 {
		for j := 0; j <= grid.NY; j++ {
			if u := (float64(j)*grid.CellSize - a.Y) / dy; u > 0 && u < 1 {
				cuts = append(cuts, u)
			}
		}
	}
	sort.Float64s(cuts)

	for k := 1; k < len(cuts); k++ {
		du := cuts[k] - cuts[k-1]
		if du <= 0 {
			continue
		}
		mid := 0.5 * (cuts[k] + cuts[k-1])
		ix := cellIndex(a.X+mid*dx, grid.CellSize, grid.NX)
		iy := cellIndex(a.Y+mid*dy, grid.CellSize, grid.NY)
		row[iy*grid.NX+ix] += du * length
	}
}

// cellIndex clamps so that rays running exactly along the outer boundary
// are attributed to the edge cell.
func cellIndex(v, size float64, n int) int {
	i := int(math.Floor(v / size))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// TravelTimes computes t = G s.
func TravelTimes(g *mat.Dense, slowness []float64) []float64 {
	r, c := g.Dims()
	if len(slowness) != c {
		panic("tomography: slowness vector length mismatch")
	}
	out := mat.NewVecDense(r, nil)
	out.MulVec(g, mat.NewVecDense(c, slowness))
	return out.RawVector().Data
}

// DampedLeastSquares solves (GᵀG + ε² I) s = Gᵀ t.
func DampedLeastSquares(g *mat.Dense, times []float64, damping float64) ([]float64, error) {
	r, c := g.Dims()
	if len(times) != r {
		return nil, errors.Wrapf(ErrInvalidTomography, "%d travel times for %d rays", len(times), r)
	}
	if damping < 0 || math.IsNaN(damping) {
		return nil, errors.Wrapf(ErrInvalidTomography, "negative damping %g", damping)
	}

	var normal mat.SymDense
	normal.SymOuterK(1, g.T())
	d2 := damping * damping
	for i := 0; i < c; i++ {
		normal.SetSym(i, i, normal.At(i, i)+d2)
	}

	var rhs mat.VecDense
	rhs.MulVec(g.T(), mat.NewVecDense(r, times))

	var chol mat.Cholesky
	if ok := chol.Factorize(&normal); !ok {
		return nil, errors.Wrap(ErrInvalidTomography, "normal matrix is singular; increase damping")
	}
	s := mat.NewVecDense(c, nil)
	if err := chol.SolveVecTo(s, &rhs); err != nil {
		return nil, errors.Wrap(err, "tomography: cholesky solve")
	}
	return s.RawVector().Data, nil
}

// CrossholeRays places sources evenly on the left edge and receivers on the
// right edge and connects every source to every receiver.
func CrossholeRays(grid TomographyGrid, sources, receivers int) []Ray {
	rays := make([]Ray, 0, sources*receivers)
	h := grid.Height()
	for i := 0; i < sources; i++ {
		src := Point{0, (float64(i) + 0.5) * h / float64(sources)}
		for j := 0; j < receivers; j++ {
			rcv := Point{grid.Width(), (float64(j) + 0.5) * h / float64(receivers)}
			rays = append(rays, Ray{Source: src, Receiver: rcv})
		}
	}
	return rays
}

// Checkerboard returns a slowness model alternating between background·(1±amp)
// in blocks of size×size cells.
func Checkerboard(grid TomographyGrid, background, amp float64, size int) []float64 {
	if size < 1 {
		size = 1
	}
	s := make([]float64, grid.NumCells())
	for iy := 0; iy < grid.NY; iy++ {
		for ix := 0; ix < grid.NX; ix++ {
			sign := 1.0
			if (ix/size+iy/size)%2 == 1 {
				sign = -1
			}
			s[iy*grid.NX+ix] = background * (1 + sign*amp)
		}
	}
	return s
}

// RayCoverage returns the total ray length in each cell (column sums of G),
// the usual proxy for how well each cell is resolved.
func RayCoverage(g *mat.Dense) []float64 {
	_, c := g.Dims()
	out := make([]float64, c)
	for j := range out {
		out[j] = mat.Sum(g.ColView(j))
	}
	return out
}
