// Package stats implements the proportion comparison used to judge A/B
// test results: a chi-squared test of independence between variant and
// reply/no-reply outcome.
//
// This is deliberately not a general statistics library. The built-in
// p-value is a good approximation (exact for 1 and 2 degrees of freedom,
// Wilson-Hilferty above that); callers needing more precision can plug in
// an external Backend without touching the eligibility contract upstream.
package stats
