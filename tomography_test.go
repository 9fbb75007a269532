package main

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// TestRayPathRowSumsToLength: the pieces of a ray must add up to the ray.
func TestRayPathRowSumsToLength(t *testing.T) {
	grid := TomographyGrid{NX: 7, NY: 5, CellSize: 2}
	rays := []Ray{
		{Point{0, 0}, Point{14, 10}},
		{Point{0.3, 9.1}, Point{13.2, 0.4}},
		{Point{0, 3}, Point{14, 3}},   // horizontal, inside row 1
		{Point{4, 0}, Point{4, 10}},   // vertical, along a grid line
		{Point{1, 1}, Point{1, 1}},    // zero length
		{Point{0, 10}, Point{14, 10}}, // along the top boundary
	}
	g, err := RayPathMatrix(grid, rays)
	require.NoError(t, err)

	for i, ray := range rays {
		sum := floats.Sum(g.RawRowView(i))
		assert.InDeltaf(t, ray.Length(), sum, 1e-9, "ray %d", i)
	}

	// The horizontal ray at y=3 stays in row iy=1 and spends 2 units per cell.
	row := g.RawRowView(2)
	for ix := 0; ix < grid.NX; ix++ {
		assert.InDelta(t, 2.0, row[1*grid.NX+ix], 1e-12)
	}

	// The top-boundary ray is attributed to the last row.
	row = g.RawRowView(5)
	for ix := 0; ix < grid.NX; ix++ {
		assert.InDelta(t, 2.0, row[(grid.NY-1)*grid.NX+ix], 1e-12)
	}
}

// TestRayPathDiagonal: a 45° ray through a square grid crosses only the
// diagonal cells, each with length CellSize·√2.
func TestRayPathDiagonal(t *testing.T) {
	grid := TomographyGrid{NX: 4, NY: 4, CellSize: 1}
	g, err := RayPathMatrix(grid, []Ray{{Point{0, 0}, Point{4, 4}}})
	require.NoError(t, err)

	row := g.RawRowView(0)
	for iy := 0; iy < 4; iy++ {
		for ix := 0; ix < 4; ix++ {
			want := 0.0
			if ix == iy {
				want = math.Sqrt2
			}
			assert.InDelta(t, want, row[iy*4+ix], 1e-12)
		}
	}
}

// TestDampedLeastSquaresRecoversCheckerboard inverts noiseless crosshole
// data with light damping and checks the well-covered cells.
func TestDampedLeastSquaresRecoversCheckerboard(t *testing.T) {
	grid := TomographyGrid{NX: 6, NY: 6, CellSize: 1}
	rays := CrossholeRays(grid, 12, 12)
	// Add top-to-bottom rays so the system is well posed.
	for i := 0; i < 12; i++ {
		for j := 0; j < 12; j++ {
			rays = append(rays, Ray{
				Source:   Point{(float64(i) + 0.5) / 2, 0},
				Receiver: Point{(float64(j) + 0.5) / 2, grid.Height()},
			})
		}
	}
	g, err := RayPathMatrix(grid, rays)
	require.NoError(t, err)

	truth := Checkerboard(grid, 0.5, 0.1, 2)
	times := TravelTimes(g, truth)

	est, err := DampedLeastSquares(g, times, 1e-4)
	require.NoError(t, err)
	for j := range truth {
		assert.InDeltaf(t, truth[j], est[j], 1e-2, "cell %d", j)
	}

	heavy, err := DampedLeastSquares(g, times, 1e3)
	require.NoError(t, err)
	assert.Less(t, floats.Norm(heavy, 2), floats.Norm(est, 2))
}

func TestCheckerboardPattern(t *testing.T) {
	grid := TomographyGrid{NX: 4, NY: 2, CellSize: 1}
	s := Checkerboard(grid, 1, 0.5, 2)
	assert.Equal(t, []float64{1.5, 1.5, 0.5, 0.5, 1.5, 1.5, 0.5, 0.5}, s)
}

func TestRayCoverage(t *testing.T) {
	grid := TomographyGrid{NX: 3, NY: 1, CellSize: 1}
	g, err := RayPathMatrix(grid, []Ray{{Point{0, 0.5}, Point{3, 0.5}}, {Point{0, 0.5}, Point{1.5, 0.5}}})
	require.NoError(t, err)
	cov := RayCoverage(g)
	assert.InDeltaSlice(t, []float64{2, 1.5, 1}, cov, 1e-12)
}

func TestTomographyValidation(t *testing.T) {
	grid := TomographyGrid{NX: 2, NY: 2, CellSize: 1}

	_, err := RayPathMatrix(TomographyGrid{NX: 0, NY: 2, CellSize: 1}, []Ray{{}})
	assert.True(t, errors.Is(err, ErrInvalidTomography))
	_, err = RayPathMatrix(grid, nil)
	assert.True(t, errors.Is(err, ErrInvalidTomography))
	_, err = RayPathMatrix(grid, []Ray{{Point{0, 0}, Point{3, 1}}})
	assert.True(t, errors.Is(err, ErrInvalidTomography))

	g, err := RayPathMatrix(grid, []Ray{{Point{0, 0.5}, Point{2, 0.5}}})
	require.NoError(t, err)
	_, err = DampedLeastSquares(g, []float64{1, 2}, 0.1)
	assert.True(t, errors.Is(err, ErrInvalidTomography))
	_, err = DampedLeastSquares(g, []float64{1}, -1)
	assert.True(t, errors.Is(err, ErrInvalidTomography))
	// One ray cannot resolve four cells without damping.
	_, err = DampedLeastSquares(g, []float64{1}, 0)
	assert.Error(t, err)

	assert.Panics(t, func() { TravelTimes(g, []float64{1}) })
}
