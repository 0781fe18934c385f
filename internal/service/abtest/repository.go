package abtest

import (
	"context"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
)

// Repository defines the data access contract for the experiment engine.
// Implementations must be safe for concurrent use.
//
// Counter increments must each execute as a single atomic read-modify-write
// against the target variant row: concurrent calls on the same variant may
// not lose updates, and calls on different variants must not block each
// other. Every mutating write sets the row's updated_at column.
type Repository interface {
	// CreateTest inserts a test. CreateVariant attaches a variant to an
	// existing test.
	CreateTest(ctx context.Context, t *domain.Test) error
	CreateVariant(ctx context.Context, v *domain.Variant) error

	// GetTest returns ErrTestNotFound when the id is unknown.
	GetTest(ctx context.Context, id string) (*domain.Test, error)
	// ListTests returns tests matching the filter plus the unpaged total,
	// ordered by created_at DESC.
	ListTests(ctx context.Context, f TestFilter) ([]domain.Test, int, error)
	// DeleteTest removes the test, its variants, and their sends.
	DeleteTest(ctx context.Context, id string) error

	// GetVariant returns ErrVariantNotFound when the id is unknown.
	GetVariant(ctx context.Context, id string) (*domain.Variant, error)
	// ListVariants returns all variants of a test ordered by created_at
	// ASC, then id ASC. The ordering is load-bearing: winner tie-breaks
	// resolve to the earliest-created variant.
	ListVariants(ctx context.Context, testID string) ([]domain.Variant, error)
	// DeleteVariant removes the variant and its sends.
	DeleteVariant(ctx context.Context, id string) error

	CreateSend(ctx context.Context, s *domain.Send) error
	GetSend(ctx context.Context, id string) (*domain.Send, error)
	ListSends(ctx context.Context, variantID string, limit, offset int) ([]domain.Send, error)

	// MarkOpened sets opened_at iff it is currently null. Returns false
	// (and no error) when the field was already set; gating on this result
	// is how callers guarantee at-most-once open accounting.
	MarkOpened(ctx context.Context, sendID string, at time.Time) (bool, error)
	// MarkReplied sets replied_at and reply_sentiment iff replied_at is
	// currently null, with the same gating contract as MarkOpened.
	MarkReplied(ctx context.Context, sendID string, at time.Time, sentiment domain.ReplySentiment) (bool, error)
	// MarkBounced flags the send as bounced (idempotent).
	MarkBounced(ctx context.Context, sendID string) error

	// IncrementSends / IncrementOpens add one to the respective counter.
	// A nonexistent variant id yields ErrVariantNotFound with no state
	// change (zero rows affected at the store).
	IncrementSends(ctx context.Context, variantID string) error
	IncrementOpens(ctx context.Context, variantID string) error
	// IncrementReplies adds one reply and, when positive, one positive
	// reply. An increment that would leave positive_replies > replies is
	// rejected with ErrDataInconsistency and no state change.
	IncrementReplies(ctx context.Context, variantID string, positive bool) error
}

// TestFilter controls pagination and filtering for test lists.
type TestFilter struct {
	Status     domain.TestStatus
	Category   domain.TestCategory
	CampaignID string
	Limit      int
	Offset     int
}

// ContentGenerator supplies variant copy at test-creation time. The engine
// only stores and measures the content; how it is written is a collaborator
// concern.
type ContentGenerator interface {
	Generate(ctx context.Context, category domain.TestCategory, valueProp string, n int) ([]string, error)
}
