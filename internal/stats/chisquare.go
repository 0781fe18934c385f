package stats

import (
	"errors"
	"math"
)

// Observation is one variant's (sends, replies) pair.
type Observation struct {
	Sends   int
	Replies int
}

// Backend computes a p-value for the hypothesis that reply rate is
// independent of variant. The in-package ChiSquare is the default
// implementation; a higher-precision external routine can be substituted.
type Backend interface {
	PValue(obs []Observation) (float64, error)
}

// Result holds the outcome of a chi-squared independence test.
type Result struct {
	ChiSquare float64
	DF        int
	PValue    float64
}

var (
	// ErrTooFewGroups is returned when fewer than two variants carry traffic.
	ErrTooFewGroups = errors.New("stats: need at least two groups with sends")
	// ErrDegenerate is returned when every observation has the same outcome
	// (all replies or no replies), making the test undefined.
	ErrDegenerate = errors.New("stats: degenerate contingency table")
)

// ChiSquare is the built-in Backend.
type ChiSquare struct{}

// PValue implements Backend.
func (ChiSquare) PValue(obs []Observation) (float64, error) {
	r, err := Independence(obs)
	if err != nil {
		return 0, err
	}
	return r.PValue, nil
}

// Independence runs a chi-squared test of independence on the k x 2 table
// of (replies, non-replies) per variant. Observations with zero sends are
// skipped: a variant with no traffic carries no evidence either way.
// For 2x2 tables the Yates continuity correction is applied, matching the
// convention of standard statistical packages.
func Independence(obs []Observation) (Result, error) {
	var rows [][2]float64
	for _, o := range obs {
		if o.Sends <= 0 {
			continue
		}
		replies := o.Replies
		if replies > o.Sends {
			replies = o.Sends // table cells cannot go negative; stored counters are untouched
		}
		rows = append(rows, [2]float64{float64(replies), float64(o.Sends - replies)})
	}
	if len(rows) < 2 {
		return Result{}, ErrTooFewGroups
	}

	var colTotal [2]float64
	var grand float64
	rowTotal := make([]float64, len(rows))
	for i, r := range rows {
		rowTotal[i] = r[0] + r[1]
		colTotal[0] += r[0]
		colTotal[1] += r[1]
		grand += rowTotal[i]
	}
	if colTotal[0] == 0 || colTotal[1] == 0 {
		return Result{}, ErrDegenerate
	}

	df := len(rows) - 1
	yates := df == 1

	var chi2 float64
	for i, r := range rows {
		for j := 0; j < 2; j++ {
			expected := rowTotal[i] * colTotal[j] / grand
			if expected == 0 {
				continue
			}
			diff := math.Abs(r[j] - expected)
			if yates {
				diff -= 0.5
				if diff < 0 {
					diff = 0
				}
			}
			chi2 += diff * diff / expected
		}
	}

	return Result{ChiSquare: chi2, DF: df, PValue: chiSquareSF(chi2, df)}, nil
}

// chiSquareSF is the survival function P(X > x) for a chi-squared
// distribution with df degrees of freedom. Exact for df 1 and 2; the
// Wilson-Hilferty cube-root normal approximation is used above that,
// which is accurate to a few parts in a thousand over the p-value ranges
// that matter for a 0.05 threshold.
func chiSquareSF(x float64, df int) float64 {
	if x <= 0 {
		return 1
	}
	switch df {
	case 1:
		return math.Erfc(math.Sqrt(x / 2))
	case 2:
		return math.Exp(-x / 2)
	}
	d := float64(df)
	t := math.Cbrt(x/d) - (1 - 2/(9*d))
	z := t / math.Sqrt(2/(9*d))
	return 0.5 * math.Erfc(z/math.Sqrt2)
}
