package main

// Schmidt semi-normalised associated Legendre functions.
//
// Geomagnetism uses the Schmidt normalisation
//
//	P_l^m = sqrt(2 (l-m)! / (l+m)!) P_{l,m}   (m > 0)
//	P_l^0 = P_{l,0}
//
// without the Condon–Shortley phase. Values are built column by column in m:
// first the sectoral term P_m^m from P_{m-1}^{m-1}, then upwards in l with
// the three-term recurrence. The θ-derivative is carried through the same
// recurrences (differentiating them term by term) so it stays finite at the
// poles, where the closed form l·cosθ·P/sinθ would divide by zero.

import (
	"fmt"
	"math"
)

// LegendreTable holds P_l^m(cos θ) and dP_l^m/dθ for 0 ≤ m ≤ l ≤ LMax.
type LegendreTable struct {
	LMax int
	p    []float64
	dp   []float64
}

// legendreIndex is the triangular index including degree 0.
func legendreIndex(l, m int) int {
	return l*(l+1)/2 + m
}

// NewLegendreTable evaluates the table at colatitude theta (radians).
// Panics if lmax is negative.
func NewLegendreTable(lmax int, theta float64) *LegendreTable {
	if lmax < 0 {
		panic(fmt.Sprintf("legendre: lmax must be non-negative, got %d", lmax))
	}
	n := legendreIndex(lmax, lmax) + 1
	t := &LegendreTable{
		LMax: lmax,
		p:    make([]float64, n),
		dp:   make([]float64, n),
	}

	x, s := math.Cos(theta), math.Sin(theta)

	t.p[0] = 1
	t.dp[0] = 0

	for m := 0; m <= lmax; m++ {
		mm := legendreIndex(m, m)

		// Sectoral term.
		switch {
		case m == 1:
			t.p[mm] = s
			t.dp[mm] = x
		case m >= 2:
			prev := legendreIndex(m-1, m-1)
			k := math.Sqrt(float64(2*m-1) / float64(2*m))
			t.p[mm] = k * s * t.p[prev]
			t.dp[mm] = k * (x*t.p[prev] + s*t.dp[prev])
		}

		// Walk up in degree.
		for l := m + 1; l <= lmax; l++ {
			cur := legendreIndex(l, m)
			l1 := legendreIndex(l-1, m)
			denom := math.Sqrt(float64(l*l - m*m))
			a := float64(2*l - 1)

			p := a * x * t.p[l1]
			dp := a * (x*t.dp[l1] - s*t.p[l1])
			if l-2 >= m {
				l2 := legendreIndex(l-2, m)
				b := math.Sqrt(float64((l-1)*(l-1) - m*m))
				p -= b * t.p[l2]
				dp -= b * t.dp[l2]
			}
			t.p[cur] = p / denom
			t.dp[cur] = dp / denom
		}
	}
	return t
}

// P returns P_l^m(cos θ).
func (t *LegendreTable) P(l, m int) float64 {
	t.check(l, m)
	return t.p[legendreIndex(l, m)]
}

// DP returns dP_l^m/dθ.
func (t *LegendreTable) DP(l, m int) float64 {
	t.check(l, m)
	return t.dp[legendreIndex(l, m)]
}

func (t *LegendreTable) check(l, m int) {
	if l < 0 || l > t.LMax || m < 0 || m > l {
		panic(fmt.Sprintf("legendre: (l=%d, m=%d) outside table with lmax=%d", l, m, t.LMax))
	}
}
