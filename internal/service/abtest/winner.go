package abtest

import (
	"context"
	"fmt"

	"github.com/ignite/outbound-lab/internal/domain"
)

// WinnerOutcome distinguishes the caller-visible results of winner
// selection. The three non-winner outcomes are deliberately not collapsed:
// "no variants", "variants but no traffic yet", and "traffic but nobody at
// minimum sample" call for different operator reactions.
type WinnerOutcome string

const (
	// WinnerFound: a variant qualified and leads on reply rate.
	WinnerFound WinnerOutcome = "winner"
	// NoVariants: the test has no variants at all.
	NoVariants WinnerOutcome = "no_variants"
	// AwaitingTraffic: every variant still has zero sends.
	AwaitingTraffic WinnerOutcome = "awaiting_traffic"
	// NoQualifier: traffic exists but no variant has reached the minimum
	// sample size yet.
	NoQualifier WinnerOutcome = "no_qualifying_winner_yet"
)

// WinnerResult reports the outcome of winner selection for a test.
type WinnerResult struct {
	TestID    string        `json:"test_id"`
	Outcome   WinnerOutcome `json:"outcome"`
	VariantID string        `json:"variant_id,omitempty"`
	Content   string        `json:"content,omitempty"`
	ReplyRate float64       `json:"reply_rate,omitempty"`
	Sends     int           `json:"sends,omitempty"`
}

// SelectWinner ranks the test's variants with sends >= MinSampleSize by
// reply rate descending and returns the leader. Ties resolve to the
// earliest-created variant, never an arbitrary one. ListVariants
// returns variants in created_at order, so the first qualifying variant
// with the top rate wins.
func (s *Service) SelectWinner(ctx context.Context, testID string) (*WinnerResult, error) {
	if _, err := s.repo.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	variants, err := s.repo.ListVariants(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}

	res := &WinnerResult{TestID: testID}
	if len(variants) == 0 {
		res.Outcome = NoVariants
		return res, nil
	}

	anyTraffic := false
	var best *domain.Variant
	for i := range variants {
		v := &variants[i]
		if v.Sends > 0 {
			anyTraffic = true
		}
		if v.Sends < MinSampleSize {
			continue
		}
		if best == nil || v.ReplyRate() > best.ReplyRate() {
			best = v
		}
	}

	switch {
	case best != nil:
		res.Outcome = WinnerFound
		res.VariantID = best.ID
		res.Content = best.Content
		res.ReplyRate = best.ReplyRate()
		res.Sends = best.Sends
	case !anyTraffic:
		res.Outcome = AwaitingTraffic
	default:
		res.Outcome = NoQualifier
	}
	return res, nil
}
