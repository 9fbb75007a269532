package main

/*
WHAT'S GOING ON HERE?

This file writes a self-contained HTML report of a sampler run: summary
cards, a table of marginal statistics and one trace plot per tracked
coefficient plus the log posterior.

WHY HTML?
- Opens in any browser, nothing to install
- One file per run, easy to archive next to the chain CSV
- Trace plots are the first thing to look at: a chain that has not mixed is
  obvious at a glance, long before any statistic flags it

Traces longer than maxTracePoints are thinned by a fixed stride before being
embedded; the statistics are always computed on the full chain.
*/

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const maxTracePoints = 2000

// ChainReport collects what the HTML page shows.
type ChainReport struct {
	Title     string
	Sampler   string
	Chain     *Chain
	Labels    []string  // one per tracked column
	Truth     []float64 // optional reference value per tracked column
	Summaries []Summary
	BurnIn    int
}

// NewChainReport summarises chain after burnIn and prepares the page data.
func NewChainReport(title, sampler string, chain *Chain, labels []string, burnIn int) (*ChainReport, error) {
	if chain == nil || chain.Len() == 0 {
		return nil, errors.New("report: empty chain")
	}
	sums, err := SummarizeChain(chain, burnIn, labels)
	if err != nil {
		return nil, err
	}
	return &ChainReport{
		Title:     title,
		Sampler:   sampler,
		Chain:     chain,
		Labels:    labels,
		Summaries: sums,
		BurnIn:    burnIn,
	}, nil
}

// SaveHTML writes the report to filename.
func (r *ChainReport) SaveHTML(filename string) error {
	if err := os.WriteFile(filename, []byte(r.HTML()), 0644); err != nil {
		return errors.Wrapf(err, "report: write %s", filename)
	}
	return nil
}

// HTML renders the page.
func (r *ChainReport) HTML() string {
	var sb strings.Builder
	chain := r.Chain

	fmt.Fprintf(&sb, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', sans-serif;
            background: #0d1117;
            color: #c9d1d9;
            padding: 20px;
            line-height: 1.6;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        h1 { font-size: 28px; margin-bottom: 10px; color: #58a6ff; }
        .subtitle { color: #8b949e; margin-bottom: 30px; font-size: 14px; }
        .stats {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 15px;
            margin-bottom: 30px;
        }
        .stat-card { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 15px; }
        .stat-label { font-size: 12px; color: #8b949e; text-transform: uppercase; letter-spacing: 0.5px; margin-bottom: 5px; }
        .stat-value { font-size: 24px; font-weight: 600; color: #58a6ff; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 30px; font-family: monospace; }
        th, td { border-bottom: 1px solid #30363d; padding: 6px 10px; text-align: right; }
        th { color: #8b949e; font-weight: normal; }
        td:first-child, th:first-child { text-align: left; }
        .chart-container { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 20px; margin-bottom: 20px; }
        .chart-title { font-size: 18px; font-weight: 600; margin-bottom: 15px; }
        canvas { width: 100%% !important; height: 220px !important; }
        .footer { text-align: center; color: #8b949e; font-size: 12px; margin-top: 40px; padding-top: 20px; border-top: 1px solid #30363d; }
    </style>
</head>
<body>
<div class="container">
    <h1>%s</h1>
    <div class="subtitle">%s sampler, burn-in %d of %d iterations</div>
    <div class="stats">
`, r.Title, r.Title, r.Sampler, r.BurnIn, chain.Len())

	card := func(label, value string) {
		fmt.Fprintf(&sb, `        <div class="stat-card"><div class="stat-label">%s</div><div class="stat-value">%s</div></div>
`, label, value)
	}
	card("Iterations", fmt.Sprintf("%d", chain.Len()))
	card("Acceptance", fmt.Sprintf("%.1f%%", 100*chain.AcceptanceRate()))
	card("Divergences", fmt.Sprintf("%d", chain.Divergences))
	card("Step size", fmt.Sprintf("%.4g", chain.StepSize))

	sb.WriteString(`    </div>
    <table>
        <tr><th>coefficient</th><th>mean</th><th>std</th><th>5%</th><th>median</th><th>95%</th><th>ESS</th>`)
	if len(r.Truth) > 0 {
		sb.WriteString(`<th>truth</th>`)
	}
	sb.WriteString("</tr>\n")
	for j, s := range r.Summaries {
		fmt.Fprintf(&sb, "        <tr><td>%s</td><td>%.3f</td><td>%.3f</td><td>%.3f</td><td>%.3f</td><td>%.3f</td><td>%.0f</td>",
			s.Label, s.Mean, s.StdDev, s.Q05, s.Median, s.Q95, s.ESS)
		if j < len(r.Truth) {
			fmt.Fprintf(&sb, "<td>%.3f</td>", r.Truth[j])
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("    </table>\n")

	sb.WriteString(`    <div class="chart-container"><div class="chart-title">log posterior</div><canvas id="trace-logp"></canvas></div>
`)
	for j, s := range r.Summaries {
		fmt.Fprintf(&sb, `    <div class="chart-container"><div class="chart-title">%s</div><canvas id="trace-%d"></canvas></div>
`, s.Label, j)
	}

	steps, stride := thinnedSteps(chain.Len())
	sb.WriteString(`    <div class="footer">Generated by geomag-inversion | Pure Go Implementation</div>
</div>
<script>
`)
	fmt.Fprintf(&sb, "const steps = %s;\n", formatJSArray(steps))
	fmt.Fprintf(&sb, "const traces = {\n  'trace-logp': %s,\n", formatJSArrayFloat(thin(chain.LogProbs, stride)))
	for j := range r.Summaries {
		fmt.Fprintf(&sb, "  'trace-%d': %s,\n", j, formatJSArrayFloat(thin(chain.Trace(j), stride)))
	}
	sb.WriteString(`};
const burnIn = ` + fmt.Sprintf("%d", r.BurnIn) + `;

function drawChart(canvasId, data, color) {
    const canvas = document.getElementById(canvasId);
    const ctx = canvas.getContext('2d');
    const dpr = window.devicePixelRatio || 1;
    const rect = canvas.getBoundingClientRect();
    canvas.width = rect.width * dpr;
    canvas.height = rect.height * dpr;
    ctx.scale(dpr, dpr);

    const width = rect.width, height = rect.height, padding = 50;
    const chartWidth = width - 2 * padding, chartHeight = height - 2 * padding;
    const finite = data.filter(v => v !== null);
    const minVal = Math.min(...finite), maxVal = Math.max(...finite);
    const range = (maxVal - minVal) || 1;
    const maxStep = steps[steps.length - 1] || 1;

    ctx.strokeStyle = '#30363d';
    ctx.beginPath();
    ctx.moveTo(padding, padding);
    ctx.lineTo(padding, height - padding);
    ctx.lineTo(width - padding, height - padding);
    ctx.stroke();

    ctx.fillStyle = '#8b949e';
    ctx.font = '11px monospace';
    ctx.textAlign = 'right';
    for (let i = 0; i <= 4; i++) {
        const y = padding + chartHeight * i / 4;
        ctx.fillText((maxVal - range * i / 4).toPrecision(6), padding - 6, y + 4);
    }

    const bx = padding + chartWidth * burnIn / maxStep;
    ctx.fillStyle = 'rgba(139,148,158,0.12)';
    ctx.fillRect(padding, padding, bx - padding, chartHeight);

    ctx.strokeStyle = color;
    ctx.lineWidth = 1;
    ctx.beginPath();
    for (let i = 0; i < data.length; i++) {
        if (data[i] === null) continue;
        const x = padding + chartWidth * steps[i] / maxStep;
        const y = height - padding - chartHeight * (data[i] - minVal) / range;
        if (i === 0) ctx.moveTo(x, y); else ctx.lineTo(x, y);
    }
    ctx.stroke();
}

function drawAll() {
    for (const id in traces) {
        drawChart(id, traces[id], id === 'trace-logp' ? '#56d364' : '#58a6ff');
    }
}
window.onload = drawAll;
window.onresize = drawAll;
</script>
</body>
</html>
`)
	return sb.String()
}

// thinnedSteps returns the iteration numbers kept after thinning n points
// down to at most maxTracePoints, and the stride used.
func thinnedSteps(n int) ([]int, int) {
	stride := 1
	if n > maxTracePoints {
		stride = int(math.Ceil(float64(n) / maxTracePoints))
	}
	steps := make([]int, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		steps = append(steps, i)
	}
	return steps, stride
}

func thin(x []float64, stride int) []float64 {
	out := make([]float64, 0, len(x)/stride+1)
	for i := 0; i < len(x); i += stride {
		out = append(out, x[i])
	}
	return out
}

// formatJSArray formats an int slice as a JavaScript array
func formatJSArray(arr []int) string {
	if len(arr) == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteString("[")
	for i, v := range arr {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%d", v)
	}
	sb.WriteString("]")
	return sb.String()
}

// formatJSArrayFloat formats a float64 slice as a JavaScript array.
// Non-finite values become null and are skipped by the chart.
func formatJSArrayFloat(arr []float64) string {
	if len(arr) == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteString("[")
	for i, v := range arr {
		if i > 0 {
			sb.WriteString(",")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			sb.WriteString("null")
		} else {
			fmt.Fprintf(&sb, "%.6g", v)
		}
	}
	sb.WriteString("]")
	return sb.String()
}
