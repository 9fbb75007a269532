package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// WriteChainCSV writes one row per iteration: iteration, log posterior,
// acceptance probability, then every tracked coordinate. labels name the
// tracked columns; missing labels fall back to the coordinate index.
func WriteChainCSV(w io.Writer, chain *Chain, labels []string) error {
	cw := csv.NewWriter(w)

	header := []string{"iteration", "log_prob", "accept_prob"}
	for j, idx := range chain.Track {
		if j < len(labels) {
			header = append(header, labels[j])
		} else {
			header = append(header, fmt.Sprintf("x%d", idx))
		}
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "chain csv: header")
	}

	row := make([]string, len(header))
	for i := 0; i < chain.Len(); i++ {
		row[0] = strconv.Itoa(i)
		row[1] = formatFloat(chain.LogProbs[i])
		row[2] = formatFloat(chain.AcceptProbs[i])
		for j := range chain.Track {
			row[3+j] = formatFloat(chain.Samples.At(i, j))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "chain csv: row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "chain csv: flush")
}

// WriteSummaryCSV writes one row per summarised coordinate; the columns
// follow the csv tags on Summary.
func WriteSummaryCSV(w io.Writer, sums []Summary) error {
	cw := csv.NewWriter(w)
	if err := gocsv.MarshalCSV(&sums, cw); err != nil {
		return errors.Wrap(err, "summary csv")
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "summary csv: flush")
}

// SaveChainCSV writes the chain to filename.
func SaveChainCSV(filename string, chain *Chain, labels []string) error {
	return SaveCSV(filename, func(w io.Writer) error {
		return WriteChainCSV(w, chain, labels)
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteGridCSV writes one row per grid node: the axis values then the log
// posterior.
func WriteGridCSV(w io.Writer, res *GridResult, labels []string) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(res.Axes)+1)
	for k, a := range res.Axes {
		if k < len(labels) {
			header = append(header, labels[k])
		} else {
			header = append(header, fmt.Sprintf("x%d", a.Index))
		}
	}
	if err := cw.Write(append(header, "log_prob")); err != nil {
		return errors.Wrap(err, "grid csv: header")
	}
	row := make([]string, len(res.Axes)+1)
	for node, lp := range res.LogProbs {
		for k, v := range res.Points.RawRowView(node) {
			row[k] = formatFloat(v)
		}
		row[len(res.Axes)] = formatFloat(lp)
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "grid csv: node %d", node)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "grid csv: flush")
}

// SaveCSV creates filename and fills it with write.
func SaveCSV(filename string, write func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "csv")
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "csv: close %s", filename)
}

// SlownessCell is one row of the tomography table: the cell centre, the
// true and estimated slowness and the ray coverage.
type SlownessCell struct {
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	True     float64 `csv:"true"`
	Estimate float64 `csv:"estimate"`
	Coverage float64 `csv:"coverage"`
}

// SlownessCells pairs the per-cell columns row by row, x fastest.
func SlownessCells(grid TomographyGrid, truth, estimate, coverage []float64) ([]SlownessCell, error) {
	n := grid.NumCells()
	if len(truth) != n || len(estimate) != n || len(coverage) != n {
		return nil, errors.Wrapf(ErrInvalidTomography, "cell columns must have %d entries", n)
	}
	cells := make([]SlownessCell, 0, n)
	for iy := 0; iy < grid.NY; iy++ {
		for ix := 0; ix < grid.NX; ix++ {
			j := iy*grid.NX + ix
			cells = append(cells, SlownessCell{
				X:        (float64(ix) + 0.5) * grid.CellSize,
				Y:        (float64(iy) + 0.5) * grid.CellSize,
				True:     truth[j],
				Estimate: estimate[j],
				Coverage: coverage[j],
			})
		}
	}
	return cells, nil
}

// WriteSlownessCSV writes one SlownessCell row per tomography cell.
func WriteSlownessCSV(w io.Writer, grid TomographyGrid, truth, estimate, coverage []float64) error {
	cells, err := SlownessCells(grid, truth, estimate, coverage)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := gocsv.MarshalCSV(&cells, cw); err != nil {
		return errors.Wrap(err, "slowness csv")
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "slowness csv: flush")
}
