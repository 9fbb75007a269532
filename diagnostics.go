package main

// Chain diagnostics: what the notebooks look at after a run.
//
// Autocorrelation tells how many iterations it takes the chain to forget
// where it was; the effective sample size turns that into "how many
// independent draws is this chain worth". ESS uses Geyer's initial positive
// sequence estimator: sum autocorrelations in adjacent pairs and stop at the
// first pair whose sum is not positive, which truncates the noisy tail
// without a hand-picked cutoff.

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrShortChain indicates too few samples for the requested statistic.
var ErrShortChain = errors.New("diagnostics: chain too short")

// Autocorrelation returns the normalised autocorrelation ρ(0..maxLag).
// A constant series has ρ(0) = 1 and ρ(k>0) = 0 by convention.
func Autocorrelation(x []float64, maxLag int) []float64 {
	n := len(x)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}
	rho := make([]float64, maxLag+1)
	rho[0] = 1

	mean := stat.Mean(x, nil)
	c0 := autocovariance(x, mean, 0)
	if c0 == 0 {
		return rho
	}
	for k := 1; k <= maxLag; k++ {
		rho[k] = autocovariance(x, mean, k) / c0
	}
	return rho
}

// EffectiveSampleSize estimates the number of independent draws x is worth.
// The result is capped at len(x) from above.
func EffectiveSampleSize(x []float64) float64 {
	n := len(x)
	if n < 4 {
		return float64(n)
	}
	mean := stat.Mean(x, nil)
	c0 := autocovariance(x, mean, 0)
	if c0 == 0 {
		return float64(n)
	}

	// Lags are computed lazily; well-mixed chains stop after a few pairs.
	tau := -1.0
	for k := 0; k+1 < n; k += 2 {
		pair := (autocovariance(x, mean, k) + autocovariance(x, mean, k+1)) / c0
		if pair <= 0 {
			break
		}
		tau += 2 * pair
	}
	if tau <= 0 {
		return float64(n)
	}
	return math.Min(float64(n), float64(n)/tau)
}

func autocovariance(x []float64, mean float64, lag int) float64 {
	c := 0.0
	for i := 0; i+lag < len(x); i++ {
		c += (x[i] - mean) * (x[i+lag] - mean)
	}
	return c
}

// Summary describes one tracked coordinate of a chain.
type Summary struct {
	Label   string  `csv:"label"`
	Mean    float64 `csv:"mean"`
	StdDev  float64 `csv:"std"`
	Q05     float64 `csv:"q05"`
	Median  float64 `csv:"median"`
	Q95     float64 `csv:"q95"`
	ESS     float64 `csv:"ess"`
	Samples int     `csv:"samples"`
}

// Summarize computes the marginal statistics of x.
func Summarize(label string, x []float64) (Summary, error) {
	if len(x) < 2 {
		return Summary{}, errors.Wrapf(ErrShortChain, "%s has %d samples", label, len(x))
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(x, nil)
	return Summary{
		Label:   label,
		Mean:    mean,
		StdDev:  std,
		Q05:     stat.Quantile(0.05, stat.Empirical, sorted, nil),
		Median:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q95:     stat.Quantile(0.95, stat.Empirical, sorted, nil),
		ESS:     EffectiveSampleSize(x),
		Samples: len(x),
	}, nil
}

// SummarizeChain summarises every tracked column after dropping burnIn rows.
// labels[j] names column j; missing labels fall back to the coordinate index.
func SummarizeChain(chain *Chain, burnIn int, labels []string) ([]Summary, error) {
	if burnIn < 0 || burnIn >= chain.Len() {
		return nil, errors.Wrapf(ErrShortChain, "burn-in %d leaves nothing of %d samples", burnIn, chain.Len())
	}
	out := make([]Summary, len(chain.Track))
	for j := range chain.Track {
		label := fmt.Sprintf("x%d", chain.Track[j])
		if j < len(labels) {
			label = labels[j]
		}
		s, err := Summarize(label, chain.Trace(j)[burnIn:])
		if err != nil {
			return nil, err
		}
		out[j] = s
	}
	return out, nil
}

// Histogram bins x into nbins equal-width bins spanning its range and
// returns the bin edges (nbins+1) and counts (nbins).
func Histogram(x []float64, nbins int) (edges, counts []float64, err error) {
	if len(x) == 0 {
		return nil, nil, errors.Wrap(ErrShortChain, "histogram of empty series")
	}
	if nbins < 1 {
		return nil, nil, errors.Errorf("diagnostics: need at least one bin, got %d", nbins)
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		hi = lo + 1
	}
	edges = floats.Span(make([]float64, nbins+1), lo, hi)
	// stat.Histogram bins are half-open; nudge the last edge so the maximum
	// lands in the final bin.
	edges[nbins] = math.Nextafter(hi, math.Inf(1))

	counts = stat.Histogram(nil, edges, sorted, nil)
	return edges, counts, nil
}
