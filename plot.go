package main

// Static figures for a run, rendered with gonum/plot. The output format
// follows the file extension (.png, .svg, .pdf, .eps).

import (
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	figureWidth  = 8 * vg.Inch
	figureHeight = 4 * vg.Inch
	heatColours  = 64
)

// SaveTracePlot draws tracked column j of chain against iteration number.
func SaveTracePlot(chain *Chain, j int, label, filename string) error {
	trace := chain.Trace(j)
	if len(trace) == 0 {
		return errors.Wrap(ErrShortChain, "trace plot")
	}
	pts := make(plotter.XYs, len(trace))
	for i, v := range trace {
		pts[i].X = float64(i)
		pts[i].Y = v
	}

	p := plot.New()
	p.Title.Text = label + " trace"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = label

	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "plot: trace line")
	}
	p.Add(line, plotter.NewGrid())
	return savePlot(p, figureWidth, figureHeight, filename)
}

// SaveHistogramPlot draws the marginal histogram of x, normalised to unit
// area.
func SaveHistogramPlot(x []float64, nbins int, label, filename string) error {
	edges, counts, err := Histogram(x, nbins)
	if err != nil {
		return errors.Wrap(err, "histogram plot")
	}
	width := edges[1] - edges[0]
	bins := make([]plotter.HistogramBin, len(counts))
	for i, c := range counts {
		bins[i] = plotter.HistogramBin{
			Min:    edges[i],
			Max:    edges[i+1],
			Weight: c / (float64(len(x)) * width),
		}
	}

	p := plot.New()
	p.Title.Text = label + " marginal"
	p.X.Label.Text = label
	p.Y.Label.Text = "density"
	p.Add(&plotter.Histogram{
		Bins:      bins,
		Width:     width,
		FillColor: color.Gray{Y: 128},
		LineStyle: plotter.DefaultLineStyle,
	})
	return savePlot(p, figureHeight, figureHeight, filename)
}

// SaveAutocorrelationPlot draws the sample autocorrelation of x up to
// maxLag, with the ±2/√n band of an uncorrelated series.
func SaveAutocorrelationPlot(x []float64, maxLag int, label, filename string) error {
	rho := Autocorrelation(x, maxLag)
	if len(rho) < 2 {
		return errors.Wrap(ErrShortChain, "autocorrelation plot")
	}
	pts := make(plotter.XYs, len(rho))
	for k, r := range rho {
		pts[k].X = float64(k)
		pts[k].Y = r
	}

	p := plot.New()
	p.Title.Text = label + " autocorrelation"
	p.X.Label.Text = "lag"
	p.Y.Label.Text = "ACF"

	stems, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "plot: autocorrelation")
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "plot: autocorrelation")
	}
	p.Add(line, stems, plotter.NewGrid())

	band := 2 / math.Sqrt(float64(len(x)))
	last := float64(len(rho) - 1)
	for _, y := range []float64{band, -band} {
		ref, err := plotter.NewLine(plotter.XYs{{X: 0, Y: y}, {X: last, Y: y}})
		if err != nil {
			return errors.Wrap(err, "plot: autocorrelation band")
		}
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(ref)
	}
	return savePlot(p, figureWidth, figureHeight, filename)
}

// gridSurface adapts a 2-axis grid search to plotter.GridXYZ. Columns follow
// the first axis, rows the second.
type gridSurface struct {
	xs, ys []float64
	z      [][]float64
	floor  float64
}

func (g gridSurface) Dims() (c, r int) { return len(g.xs), len(g.ys) }
func (g gridSurface) X(c int) float64  { return g.xs[c] }
func (g gridSurface) Y(r int) float64  { return g.ys[r] }
func (g gridSurface) Z(c, r int) float64 {
	v := g.z[c][r]
	if math.IsInf(v, -1) || math.IsNaN(v) {
		return g.floor
	}
	return v
}

// SaveGridSurfacePlot draws the log posterior of a 2-axis grid search as a
// heat map. Nodes with -Inf log probability are shown at the lowest finite
// value.
func SaveGridSurfacePlot(res *GridResult, xLabel, yLabel, filename string) error {
	surface, err := res.Surface()
	if err != nil {
		return err
	}
	if res.Axes[0].Nodes < 2 || res.Axes[1].Nodes < 2 {
		return errors.Wrap(ErrInvalidGrid, "heat map needs at least 2 nodes per axis")
	}
	floor := math.Inf(1)
	for _, v := range res.LogProbs {
		if !math.IsInf(v, 0) && !math.IsNaN(v) && v < floor {
			floor = v
		}
	}
	if math.IsInf(floor, 1) {
		return errors.Wrap(ErrInvalidGrid, "no finite log probability on the grid")
	}

	grid := gridSurface{
		xs:    res.Axes[0].Values(),
		ys:    res.Axes[1].Values(),
		z:     surface,
		floor: floor,
	}
	p := plot.New()
	p.Title.Text = "log posterior"
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewHeatMap(grid, palette.Heat(heatColours, 1)))

	best := res.Points.RawRowView(res.BestNode)
	marker, err := plotter.NewScatter(plotter.XYs{{X: best[0], Y: best[1]}})
	if err != nil {
		return errors.Wrap(err, "plot: best node")
	}
	p.Add(marker)
	return savePlot(p, figureHeight+vg.Inch, figureHeight, filename)
}

// slownessMap adapts a tomography model to plotter.GridXYZ at cell centres.
type slownessMap struct {
	grid  TomographyGrid
	cells []float64
}

func (s slownessMap) Dims() (c, r int)   { return s.grid.NX, s.grid.NY }
func (s slownessMap) X(c int) float64    { return (float64(c) + 0.5) * s.grid.CellSize }
func (s slownessMap) Y(r int) float64    { return (float64(r) + 0.5) * s.grid.CellSize }
func (s slownessMap) Z(c, r int) float64 { return s.cells[r*s.grid.NX+c] }

// SaveSlownessPlot draws a tomography model as a heat map.
func SaveSlownessPlot(grid TomographyGrid, slowness []float64, title, filename string) error {
	if len(slowness) != grid.NumCells() {
		return errors.Wrapf(ErrInvalidTomography, "%d values for %d cells", len(slowness), grid.NumCells())
	}
	if grid.NX < 2 || grid.NY < 2 {
		return errors.Wrap(ErrInvalidTomography, "heat map needs at least 2x2 cells")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewHeatMap(slownessMap{grid: grid, cells: slowness}, palette.Heat(heatColours, 1)))
	return savePlot(p, figureHeight+vg.Inch, figureHeight, filename)
}

func savePlot(p *plot.Plot, w, h vg.Length, filename string) error {
	if err := p.Save(w, h, filename); err != nil {
		return errors.Wrapf(err, "plot: save %s", filename)
	}
	return nil
}
