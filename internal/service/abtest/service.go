package abtest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/metrics"
	"github.com/ignite/outbound-lab/internal/pkg/logger"
	"github.com/ignite/outbound-lab/internal/stats"
)

// MinSampleSize is the minimum sends every variant must reach before a test
// contributes to significance or winner decisions.
const MinSampleSize = 50

// SignificanceLevel is the p-value threshold below which an observed
// difference is treated as real.
const SignificanceLevel = 0.05

// Service implements the experiment engine business logic. All public
// methods are safe for concurrent use if the underlying repository is
// concurrency-safe.
type Service struct {
	repo    Repository
	backend stats.Backend
	gen     ContentGenerator
}

// NewService creates an experiment engine backed by the given repository.
// The built-in chi-squared backend is used unless overridden.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, backend: stats.ChiSquare{}}
}

// WithBackend substitutes a higher-precision statistical backend. The
// eligibility gate is unaffected by the choice of backend.
func (s *Service) WithBackend(b stats.Backend) *Service {
	if b != nil {
		s.backend = b
	}
	return s
}

// WithGenerator attaches a copy-generation collaborator used when a test is
// created without explicit variant content.
func (s *Service) WithGenerator(g ContentGenerator) *Service {
	s.gen = g
	return s
}

// CreateTestInput holds the fields for creating a new test. Either Variants
// carries explicit content, or GenerateCount asks the content generator for
// that many variants.
type CreateTestInput struct {
	Name          string              `json:"name"`
	Category      domain.TestCategory `json:"category"`
	CampaignID    string              `json:"campaign_id"`
	Variants      []string            `json:"variants"`
	GenerateCount int                 `json:"generate_count"`
	ValueProp     string              `json:"value_prop"`
}

// CreateTest validates and persists a new test in running status, with its
// variants attached.
func (s *Service) CreateTest(ctx context.Context, input CreateTestInput) (*domain.Test, []domain.Variant, error) {
	if input.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}
	if !domain.ValidCategory(input.Category) {
		return nil, nil, ErrInvalidCategory
	}

	contents := input.Variants
	if len(contents) == 0 && input.GenerateCount > 0 {
		if s.gen == nil {
			return nil, nil, fmt.Errorf("no content generator configured")
		}
		var err error
		contents, err = s.gen.Generate(ctx, input.Category, input.ValueProp, input.GenerateCount)
		if err != nil {
			return nil, nil, fmt.Errorf("generate variants: %w", err)
		}
	}

	t := &domain.Test{
		ID:       uuid.New().String(),
		Name:     input.Name,
		Category: input.Category,
		Status:   domain.TestRunning,
	}
	if input.CampaignID != "" {
		t.CampaignID = &input.CampaignID
	}
	if err := s.repo.CreateTest(ctx, t); err != nil {
		return nil, nil, fmt.Errorf("create test: %w", err)
	}

	variants := make([]domain.Variant, 0, len(contents))
	for _, content := range contents {
		v := domain.Variant{
			ID:      uuid.New().String(),
			TestID:  t.ID,
			Content: content,
		}
		if err := s.repo.CreateVariant(ctx, &v); err != nil {
			return nil, nil, fmt.Errorf("create variant: %w", err)
		}
		variants = append(variants, v)
	}
	return t, variants, nil
}

// AddVariant attaches one more variant to an existing test.
func (s *Service) AddVariant(ctx context.Context, testID, content string) (*domain.Variant, error) {
	if _, err := s.repo.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	v := &domain.Variant{
		ID:      uuid.New().String(),
		TestID:  testID,
		Content: content,
	}
	if err := s.repo.CreateVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}
	return v, nil
}

// GetTest returns a single test.
func (s *Service) GetTest(ctx context.Context, id string) (*domain.Test, error) {
	return s.repo.GetTest(ctx, id)
}

// ListTests returns tests matching the filter.
func (s *Service) ListTests(ctx context.Context, f TestFilter) ([]domain.Test, int, error) {
	return s.repo.ListTests(ctx, f)
}

// DeleteTest removes the test, cascading to its variants and their sends.
// Destructive and irreversible; callers needing an audit trail must
// snapshot first.
func (s *Service) DeleteTest(ctx context.Context, id string) error {
	return s.repo.DeleteTest(ctx, id)
}

// GetVariant returns a single variant.
func (s *Service) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	return s.repo.GetVariant(ctx, id)
}

// ListVariants returns all variants of a test, earliest-created first.
func (s *Service) ListVariants(ctx context.Context, testID string) ([]domain.Variant, error) {
	if _, err := s.repo.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	return s.repo.ListVariants(ctx, testID)
}

// DeleteVariant removes a variant and its sends.
func (s *Service) DeleteVariant(ctx context.Context, id string) error {
	return s.repo.DeleteVariant(ctx, id)
}

// GetSend returns a single send record.
func (s *Service) GetSend(ctx context.Context, id string) (*domain.Send, error) {
	return s.repo.GetSend(ctx, id)
}

// ListSends returns a page of sends for a variant.
func (s *Service) ListSends(ctx context.Context, variantID string, limit, offset int) ([]domain.Send, error) {
	return s.repo.ListSends(ctx, variantID, limit, offset)
}

// ---------------------------------------------------------------------------
// Counter update protocol
//
// Each operation is one atomic increment keyed by variant id. The
// operations are intentionally not idempotent; at-most-once delivery per
// observed event is the caller's job (see the Track* methods, which gate on
// the send's nullable engagement timestamps).
// ---------------------------------------------------------------------------

// IncrementSend adds one send to the variant's counters.
func (s *Service) IncrementSend(ctx context.Context, variantID string) error {
	return s.logIntegrity("sends", variantID, s.repo.IncrementSends(ctx, variantID))
}

// IncrementOpen adds one open to the variant's counters.
func (s *Service) IncrementOpen(ctx context.Context, variantID string) error {
	return s.logIntegrity("opens", variantID, s.repo.IncrementOpens(ctx, variantID))
}

// IncrementReply adds one reply (and one positive reply when isPositive) to
// the variant's counters.
func (s *Service) IncrementReply(ctx context.Context, variantID string, isPositive bool) error {
	return s.logIntegrity("replies", variantID, s.repo.IncrementReplies(ctx, variantID, isPositive))
}

// logIntegrity surfaces the recoverable counter outcomes with the right
// noise level: not-found is a data-integrity warning for upstream sync to
// chase, inconsistency is alertable. Each outcome also feeds the matching
// counter series.
func (s *Service) logIntegrity(counter, variantID string, err error) error {
	switch err {
	case nil:
		metrics.IncCounterIncrement(counter)
		return nil
	case ErrVariantNotFound:
		metrics.IncCounterNotFound(counter)
		logger.Warn("counter increment for unknown variant", "counter", counter, "variant_id", variantID)
	case ErrDataInconsistency:
		metrics.IncCounterInconsistency()
		logger.Error("counter increment rejected: would break positive_replies <= replies", "counter", counter, "variant_id", variantID)
	}
	return err
}

// TrackSendInput describes one outbound message being recorded.
type TrackSendInput struct {
	VariantID      string  `json:"variant_id"`
	ProspectID     *string `json:"prospect_id"`
	RecipientEmail string  `json:"recipient_email"`
	CampaignID     *string `json:"campaign_id"`
}

// TrackSend creates the send record and applies the send increment.
func (s *Service) TrackSend(ctx context.Context, input TrackSendInput) (*domain.Send, error) {
	if _, err := s.repo.GetVariant(ctx, input.VariantID); err != nil {
		return nil, err
	}
	snd := &domain.Send{
		ID:             uuid.New().String(),
		VariantID:      input.VariantID,
		ProspectID:     input.ProspectID,
		RecipientEmail: input.RecipientEmail,
		CampaignID:     input.CampaignID,
		SentAt:         time.Now().UTC(),
	}
	if err := s.repo.CreateSend(ctx, snd); err != nil {
		return nil, fmt.Errorf("create send: %w", err)
	}
	if err := s.IncrementSend(ctx, snd.VariantID); err != nil {
		return nil, err
	}
	return snd, nil
}

// TrackOpen records an open for a send at-most-once: the opened_at
// timestamp is set and the variant's open counter incremented together, or
// not at all. A second call for the same send returns ErrAlreadyRecorded
// and changes nothing.
func (s *Service) TrackOpen(ctx context.Context, sendID string, at time.Time) error {
	snd, err := s.repo.GetSend(ctx, sendID)
	if err != nil {
		return err
	}
	if at.Before(snd.SentAt) {
		at = snd.SentAt // engagement is monotonic: opened_at >= sent_at
	}
	set, err := s.repo.MarkOpened(ctx, sendID, at)
	if err != nil {
		return fmt.Errorf("mark opened: %w", err)
	}
	if !set {
		return ErrAlreadyRecorded
	}
	return s.IncrementOpen(ctx, snd.VariantID)
}

// TrackReply records a reply for a send at-most-once, with sentiment.
func (s *Service) TrackReply(ctx context.Context, sendID string, at time.Time, sentiment domain.ReplySentiment) error {
	if !domain.ValidSentiment(sentiment) {
		return ErrInvalidSentiment
	}
	snd, err := s.repo.GetSend(ctx, sendID)
	if err != nil {
		return err
	}
	if at.Before(snd.SentAt) {
		at = snd.SentAt
	}
	set, err := s.repo.MarkReplied(ctx, sendID, at, sentiment)
	if err != nil {
		return fmt.Errorf("mark replied: %w", err)
	}
	if !set {
		return ErrAlreadyRecorded
	}
	return s.IncrementReply(ctx, snd.VariantID, sentiment == domain.SentimentPositive)
}

// TrackBounce flags a send as bounced. Bounces do not touch variant
// counters; they only feed the cleanup sweep and campaign health reporting.
func (s *Service) TrackBounce(ctx context.Context, sendID string) error {
	if _, err := s.repo.GetSend(ctx, sendID); err != nil {
		return err
	}
	return s.repo.MarkBounced(ctx, sendID)
}

// PickVariant returns a variant of the test for the next send. Assignment
// is uniform random so traffic splits evenly across variants.
func (s *Service) PickVariant(ctx context.Context, testID string) (*domain.Variant, error) {
	variants, err := s.ListVariants(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, ErrVariantNotFound
	}
	v := variants[rand.Intn(len(variants))]
	return &v, nil
}

func (s *Service) warnOverReportedOpens(variants []domain.Variant) {
	for i := range variants {
		if variants[i].OverReportedOpens() {
			logger.Warn("variant reports opens > sends; upstream open tracking may double-count",
				"variant_id", variants[i].ID,
				"opens", variants[i].Opens,
				"sends", variants[i].Sends)
		}
	}
}
