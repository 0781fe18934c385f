package abtest

import (
	"context"
	"fmt"

	"github.com/ignite/outbound-lab/internal/stats"
)

// SignificanceResult reports whether a test's observed reply-rate
// differences are unlikely to be noise.
//
// Eligibility is a cheap proxy (minimum sample size across all variants);
// the p-value comes from the configured statistical backend and is only
// present when the test was eligible and the backend could run.
type SignificanceResult struct {
	TestID       string             `json:"test_id"`
	Eligible     bool               `json:"eligible"`
	Reason       string             `json:"reason,omitempty"`
	MinSends     int                `json:"min_sends"`
	VariantCount int                `json:"variant_count"`
	ChiSquare    float64            `json:"chi_square,omitempty"`
	PValue       *float64           `json:"p_value,omitempty"`
	Significant  bool               `json:"significant"`
	VariantRates map[string]float64 `json:"variant_rates,omitempty"`
}

// Evaluate loads the test's variants and decides whether the reply-rate
// comparison is eligible and, if so, whether it is significant at the 0.05
// level.
//
// A variant with zero sends contributes rate 0 and no contingency row, but
// still counts toward min_sends, so its presence makes the test
// ineligible rather than letting it be declared inferior by default.
func (s *Service) Evaluate(ctx context.Context, testID string) (*SignificanceResult, error) {
	if _, err := s.repo.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	variants, err := s.repo.ListVariants(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	s.warnOverReportedOpens(variants)

	res := &SignificanceResult{
		TestID:       testID,
		VariantCount: len(variants),
		VariantRates: make(map[string]float64, len(variants)),
	}

	minSends := 0
	obs := make([]stats.Observation, 0, len(variants))
	for i := range variants {
		v := &variants[i]
		if i == 0 || v.Sends < minSends {
			minSends = v.Sends
		}
		res.VariantRates[v.ID] = v.ReplyRate()
		obs = append(obs, stats.Observation{Sends: v.Sends, Replies: v.Replies})
	}
	res.MinSends = minSends

	if len(variants) < 2 {
		res.Reason = "need at least 2 variants"
		return res, nil
	}
	if minSends < MinSampleSize {
		res.Reason = fmt.Sprintf("need %d+ sends per variant (min: %d)", MinSampleSize, minSends)
		return res, nil
	}
	res.Eligible = true

	chi, err := stats.Independence(obs)
	if err == nil {
		res.ChiSquare = chi.ChiSquare
	}

	p, err := s.backend.PValue(obs)
	if err != nil {
		// Degenerate table (e.g. zero replies everywhere): eligible but
		// nothing to distinguish.
		res.Reason = err.Error()
		return res, nil
	}
	res.PValue = &p
	res.Significant = p < SignificanceLevel
	return res, nil
}
