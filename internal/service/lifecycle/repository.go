package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
)

// Sentinel errors for the lifecycle service layer.
var (
	ErrTestNotFound      = errors.New("test not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrWinnerNotInTest   = errors.New("winner variant does not belong to test")
)

// Repository defines the data access contract for lifecycle management.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetTest returns ErrTestNotFound when the id is unknown.
	GetTest(ctx context.Context, id string) (*domain.Test, error)

	// UpdateStatus transitions id from one status to another in a single
	// guarded write. When the test no longer has the expected from status
	// (a concurrent transition won), no rows match and ErrInvalidTransition
	// is returned.
	UpdateStatus(ctx context.Context, id string, from, to domain.TestStatus) error

	// CompleteWithWinner atomically marks the test completed and records
	// the winning variant. The write is guarded so that the winner must
	// belong to the test; ErrWinnerNotInTest otherwise.
	CompleteWithWinner(ctx context.Context, id, variantID string) error

	// ArchiveCompletedBefore moves completed tests whose completion is
	// older than cutoff to archived, returning how many rows changed.
	// Already-archived tests never match, so re-running is a no-op.
	ArchiveCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// PurgeBouncedSendsBefore deletes sends with bounced = true sent
	// before cutoff, returning how many rows were removed.
	PurgeBouncedSendsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
