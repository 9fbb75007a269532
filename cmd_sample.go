package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ===========================================================================
// SAMPLE CLI - Posterior Sampling of Gauss Coefficients End to End
// ===========================================================================
//
// INTENTION:
// Run the whole geomagnetic inversion on synthetic data in one command:
// simulate observations from a known field, build the posterior, start the
// chain at the least-squares model and sample it with HMC (or random-walk
// Metropolis for comparison). The truth is known, so the report shows at a
// glance whether the chain brackets it.
//
// WHAT YOU'LL SEE:
// - The least-squares model within a few nT of the truth for low degrees
// - HMC acceptance near the adaptation target, zero divergences
// - Metropolis needing many more iterations for the same effective sample
//   size, which is the point of the comparison
//
// Ctrl-C stops sampling early; whatever was drawn is still summarised and
// written out.
//
// ===========================================================================

// acfLags is the longest lag drawn in the autocorrelation plots.
const acfLags = 50

// RunSampleCommand implements the sample CLI.
func RunSampleCommand(args []string) error {
	cfg, err := parseSampleFlags(args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSample(); err != nil {
		return err
	}
	log, err := commandLogger(cfg, "sample")
	if err != nil {
		return err
	}

	fmt.Println("===========================================================================")
	fmt.Println("Bayesian Inversion of Gauss Coefficients")
	fmt.Println("===========================================================================")
	fmt.Printf("Sampler: %s | lmax: %d | sites: %d | components: %s | seed: %d\n",
		cfg.Sample.Sampler, cfg.Synthetic.LMax, cfg.Synthetic.Sites, cfg.Synthetic.Components, cfg.Seed)
	fmt.Println()

	rng := rand.New(rand.NewSource(cfg.Seed))

	// Step 1: Simulate observations
	fmt.Println("Step 1: Simulating observations...")
	ds, err := NewSyntheticDataset(cfg.Synthetic, rng)
	if err != nil {
		return err
	}
	fmt.Printf("  %d observations, noise σ = %.1f nT\n\n", len(ds.Observations), ds.NoiseStd)

	// Step 2: Build posterior
	fmt.Println("Step 2: Building posterior...")
	post, err := NewPosterior(ds.Forward, ds.Observations, cfg.Posterior)
	if err != nil {
		return err
	}
	mode, err := post.LeastSquares()
	if err != nil {
		return err
	}
	stds, err := post.MarginalStdDevs()
	if err != nil {
		return err
	}
	fmt.Printf("  Least-squares misfit: %.1f (expected ≈ %d)\n\n", 2*post.Misfit(mode), post.Forward().NumObservations())

	// Step 3: Sample
	fmt.Printf("Step 3: Sampling with %s...\n", cfg.Sample.Sampler)
	sampler, err := newSampler(cfg, post, stds, rng, log)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	chain, runErr := sampler.Run(ctx, mode)
	elapsed := time.Since(start)
	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) || chain == nil {
			return runErr
		}
		log.WithError(runErr).Warn("sampling interrupted, reporting partial chain")
	}
	fmt.Printf("  %d iterations in %v, acceptance %.1f%%, divergences %d, step size %.4g\n\n",
		chain.Len(), elapsed.Round(time.Millisecond), 100*chain.AcceptanceRate(), chain.Divergences, chain.StepSize)

	// Step 4: Summarise
	fmt.Println("Step 4: Summarising...")
	burnIn := cfg.Sample.BurnIn
	if burnIn >= chain.Len()-1 {
		burnIn = chain.Len() / 2
	}
	labels, truth := trackedLabels(chain, cfg.Synthetic.LMax, ds.Truth.Vector())
	sums, err := SummarizeChain(chain, burnIn, labels)
	if err != nil {
		return err
	}
	fmt.Printf("  %-6s %12s %10s %12s %10s %8s\n", "coef", "mean", "std", "truth", "σ_exact", "ESS")
	for j, s := range sums {
		fmt.Printf("  %-6s %12.2f %10.3f %12.2f %10.3f %8.0f\n",
			s.Label, s.Mean, s.StdDev, truth[j], stds[chain.Track[j]], s.ESS)
	}
	fmt.Println()
	mean, err := posteriorMeanModel(chain, sums, mode)
	if err != nil {
		return err
	}
	printDegreePower(ds.Truth, mean)

	// Step 5: Write outputs
	fmt.Println("Step 5: Writing outputs...")
	if err := writeSampleOutputs(cfg, chain, sums, labels, truth, burnIn); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("✓ Done")
	return nil
}

func parseSampleFlags(args []string) (RunConfig, error) {
	def := DefaultRunConfig()
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	common := registerCommonFlags(fs)
	sampler := fs.String("sampler", def.Sample.Sampler, "Sampler: hmc or metropolis")
	samples := fs.Int("samples", def.Sample.HMC.Samples, "Chain length")
	burnIn := fs.Int("burnin", def.Sample.BurnIn, "Iterations discarded before summarising")
	steps := fs.Int("steps", def.Sample.HMC.Steps, "HMC leapfrog steps per proposal")
	dt := fs.Float64("dt", def.Sample.HMC.StepSize, "HMC leapfrog step size")
	adapt := fs.Int("adapt", def.Sample.HMC.AdaptSteps, "HMC warm-up iterations with step-size adaptation (0 disables)")
	scale := fs.Float64("scale", def.Sample.Metropolis.ProposalScale[0], "Metropolis proposal scale")
	fs.Parse(args)

	cfg, err := common.resolve(fs)
	if err != nil {
		return cfg, err
	}
	visitSet(fs, map[string]func(){
		"sampler": func() { cfg.Sample.Sampler = *sampler },
		"samples": func() {
			cfg.Sample.HMC.Samples = *samples
			cfg.Sample.Metropolis.Samples = *samples
		},
		"burnin": func() { cfg.Sample.BurnIn = *burnIn },
		"steps":  func() { cfg.Sample.HMC.Steps = *steps },
		"dt":     func() { cfg.Sample.HMC.StepSize = *dt },
		"adapt":  func() { cfg.Sample.HMC.AdaptSteps = *adapt },
		"scale":  func() { cfg.Sample.Metropolis.ProposalScale = []float64{*scale} },
	})
	return cfg, nil
}

// newSampler builds the configured sampler over post.
func newSampler(cfg RunConfig, post *Posterior, stds []float64, rng *rand.Rand, log logrus.FieldLogger) (Sampler, error) {
	switch cfg.Sample.Sampler {
	case SamplerHMC:
		return NewHMC(post.Target(), cfg.Sample.HMC, rng, log)
	case SamplerMetropolis:
		mc := cfg.Sample.Metropolis
		if cfg.Sample.ScaleByPosterior {
			scales := make([]float64, len(stds))
			for i := range scales {
				base := mc.ProposalScale[0]
				if len(mc.ProposalScale) == len(stds) {
					base = mc.ProposalScale[i]
				}
				scales[i] = base * stds[i]
			}
			mc.ProposalScale = scales
		}
		return NewMetropolis(post.LogProb, mc, rng, log)
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unknown sampler %q", cfg.Sample.Sampler)
}

// trackedLabels returns the coefficient label and true value of every
// tracked column.
func trackedLabels(chain *Chain, lmax int, truth []float64) ([]string, []float64) {
	all := CoefficientLabels(lmax)
	labels := make([]string, len(chain.Track))
	values := make([]float64, len(chain.Track))
	for j, idx := range chain.Track {
		labels[j] = all[idx].String()
		values[j] = truth[idx]
	}
	return labels, values
}

// posteriorMeanModel replaces every tracked coordinate of fallback with its
// chain mean; untracked coordinates keep the fallback value.
func posteriorMeanModel(chain *Chain, sums []Summary, fallback []float64) (*GaussCoefficients, error) {
	v := append([]float64(nil), fallback...)
	for idx := range v {
		if j := chain.Column(idx); j >= 0 && j < len(sums) {
			v[idx] = sums[j].Mean
		}
	}
	return GaussCoefficientsFromVector(v)
}

// printDegreePower compares the surface power spectra of two models.
func printDegreePower(truth, mean *GaussCoefficients) {
	want, got := truth.DegreePower(1), mean.DegreePower(1)
	fmt.Printf("  %-6s %14s %14s\n", "degree", "R_l truth", "R_l mean")
	for l := range want {
		fmt.Printf("  %-6d %14.4g %14.4g\n", l+1, want[l], got[l])
	}
	fmt.Println()
}

func writeSampleOutputs(cfg RunConfig, chain *Chain, sums []Summary, labels []string, truth []float64, burnIn int) error {
	out := cfg.Output
	if !out.CSV && !out.Plots && !out.HTML {
		fmt.Println("  (all outputs disabled)")
		return nil
	}
	path, err := prepareOutput(out.Dir)
	if err != nil {
		return err
	}

	if out.CSV {
		if err := SaveChainCSV(path("chain.csv"), chain, labels); err != nil {
			return err
		}
		if err := SaveCSV(path("summary.csv"), func(w io.Writer) error { return WriteSummaryCSV(w, sums) }); err != nil {
			return err
		}
		fmt.Printf("  ✓ %s, %s\n", path("chain.csv"), path("summary.csv"))
	}

	if out.Plots {
		for j, label := range labels {
			if err := SaveTracePlot(chain, j, label, path("trace_"+label+".png")); err != nil {
				return err
			}
			kept := chain.Trace(j)[burnIn:]
			if err := SaveHistogramPlot(kept, 40, label, path("hist_"+label+".png")); err != nil {
				return err
			}
			if err := SaveAutocorrelationPlot(kept, acfLags, label, path("acf_"+label+".png")); err != nil {
				return err
			}
		}
		fmt.Printf("  ✓ %d trace, histogram and autocorrelation plots in %s\n", 3*len(labels), out.Dir)
	}

	if out.HTML {
		report, err := NewChainReport("Gauss coefficient posterior", cfg.Sample.Sampler, chain, labels, burnIn)
		if err != nil {
			return err
		}
		report.Truth = truth
		if err := report.SaveHTML(path("report.html")); err != nil {
			return err
		}
		fmt.Printf("  ✓ %s\n", path("report.html"))
	}
	return nil
}
