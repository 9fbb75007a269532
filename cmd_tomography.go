package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ===========================================================================
// TOMOGRAPHY CLI - Linear Inversion Warm-Up
// ===========================================================================
//
// INTENTION:
// The simplest inverse problem that still shows every ingredient of the
// geomagnetic one: a linear forward operator built from geometry, noisy
// data, an under-determined system and a regulariser that decides what the
// data cannot.
//
// A checkerboard slowness model is probed by crosshole rays (sources down
// the left edge, receivers down the right). The inversion solves for the
// perturbation from the background slowness, so the damping pulls poorly
// covered cells back to the background rather than to zero.
//
// WHAT YOU'LL SEE:
// - The checkerboard recovered well in the middle of the section
// - Horizontal smearing near the top and bottom edges, where crosshole rays
//   are nearly parallel
// - Larger damping trading resolution for stability
//
// ===========================================================================

// RunTomographyCommand implements the tomography CLI.
func RunTomographyCommand(args []string) error {
	cfg, err := parseTomographyFlags(args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateTomography(); err != nil {
		return err
	}
	log, err := commandLogger(cfg, "tomography")
	if err != nil {
		return err
	}
	tc := cfg.Tomography
	rng := rand.New(rand.NewSource(cfg.Seed))

	fmt.Println("===========================================================================")
	fmt.Println("Straight-Ray Travel-Time Tomography")
	fmt.Println("===========================================================================")
	fmt.Println()

	// Step 1: Geometry
	fmt.Println("Step 1: Tracing rays...")
	grid := TomographyGrid{NX: tc.NX, NY: tc.NY, CellSize: tc.CellSize}
	rays := CrossholeRays(grid, tc.Sources, tc.Receivers)
	g, err := RayPathMatrix(grid, rays)
	if err != nil {
		return err
	}
	coverage := RayCoverage(g)
	empty := 0
	for _, c := range coverage {
		if c == 0 {
			empty++
		}
	}
	fmt.Printf("  %d rays through %d cells (%d cells unvisited)\n\n", len(rays), grid.NumCells(), empty)

	// Step 2: Synthetic travel times
	fmt.Println("Step 2: Computing travel times for a checkerboard...")
	truth := Checkerboard(grid, tc.Background, tc.Amplitude, tc.BlockSize)
	times := TravelTimes(g, truth)
	for i := range times {
		times[i] += tc.NoiseStd * rng.NormFloat64()
	}
	fmt.Printf("  travel times %.3f to %.3f s, noise σ = %g s\n\n", floats.Min(times), floats.Max(times), tc.NoiseStd)

	// Step 3: Invert
	fmt.Printf("Step 3: Damped least squares (ε = %g)...\n", tc.Damping)
	estimate, err := invertPerturbation(g, times, tc.Background, tc.Damping)
	if err != nil {
		return err
	}
	rms := rmsDifference(estimate, truth)
	log.WithFields(logrus.Fields{
		"rays":    len(rays),
		"cells":   grid.NumCells(),
		"damping": tc.Damping,
		"rms":     rms,
	}).Info("tomography inversion finished")
	fmt.Printf("  RMS slowness error: %.3g s/km (%.1f%% of the checkerboard amplitude)\n\n",
		rms, 100*rms/(tc.Background*tc.Amplitude))

	// Step 4: Write outputs
	fmt.Println("Step 4: Writing outputs...")
	path, err := prepareOutput(cfg.Output.Dir)
	if err != nil {
		return err
	}
	if cfg.Output.CSV {
		if err := SaveCSV(path("tomography.csv"), func(w io.Writer) error {
			return WriteSlownessCSV(w, grid, truth, estimate, coverage)
		}); err != nil {
			return err
		}
		fmt.Printf("  ✓ %s\n", path("tomography.csv"))
	}
	if cfg.Output.Plots {
		for _, fig := range []struct {
			name, title string
			cells       []float64
		}{
			{"slowness_true.png", "true slowness", truth},
			{"slowness_estimate.png", "estimated slowness", estimate},
			{"ray_coverage.png", "ray coverage", coverage},
		} {
			if err := SaveSlownessPlot(grid, fig.cells, fig.title, path(fig.name)); err != nil {
				return err
			}
			fmt.Printf("  ✓ %s\n", path(fig.name))
		}
	}
	fmt.Println()
	fmt.Println("✓ Done")
	return nil
}

func parseTomographyFlags(args []string) (RunConfig, error) {
	def := DefaultTomographyConfig()
	fs := flag.NewFlagSet("tomography", flag.ExitOnError)
	common := registerCommonFlags(fs)
	nx := fs.Int("nx", def.NX, "Cells along x")
	ny := fs.Int("ny", def.NY, "Cells along y")
	sources := fs.Int("sources", def.Sources, "Sources on the left edge")
	receivers := fs.Int("receivers", def.Receivers, "Receivers on the right edge")
	block := fs.Int("block", def.BlockSize, "Checkerboard block size in cells")
	damping := fs.Float64("damping", def.Damping, "Damping ε")
	tnoise := fs.Float64("tnoise", def.NoiseStd, "Travel-time noise standard deviation (s)")
	fs.Parse(args)

	cfg, err := common.resolve(fs)
	if err != nil {
		return cfg, err
	}
	visitSet(fs, map[string]func(){
		"nx":        func() { cfg.Tomography.NX = *nx },
		"ny":        func() { cfg.Tomography.NY = *ny },
		"sources":   func() { cfg.Tomography.Sources = *sources },
		"receivers": func() { cfg.Tomography.Receivers = *receivers },
		"block":     func() { cfg.Tomography.BlockSize = *block },
		"damping":   func() { cfg.Tomography.Damping = *damping },
		"tnoise":    func() { cfg.Tomography.NoiseStd = *tnoise },
	})
	return cfg, nil
}

// invertPerturbation solves for the slowness perturbation from background
// and returns the full slowness model.
func invertPerturbation(g *mat.Dense, times []float64, background, damping float64) ([]float64, error) {
	_, cells := g.Dims()
	reference := make([]float64, cells)
	for i := range reference {
		reference[i] = background
	}
	residual := TravelTimes(g, reference)
	floats.SubTo(residual, times, residual)

	delta, err := DampedLeastSquares(g, residual, damping)
	if err != nil {
		return nil, err
	}
	floats.Add(delta, reference)
	return delta, nil
}

func rmsDifference(a, b []float64) float64 {
	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a)))
}
