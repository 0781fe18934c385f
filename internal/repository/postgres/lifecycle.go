package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/lifecycle"
)

// LifecycleRepo implements lifecycle.Repository. Status transitions carry the
// expected from-status in the WHERE clause, so a concurrent transition on the
// same test makes exactly one of the writers win.
type LifecycleRepo struct{ db *sql.DB }

func NewLifecycleRepo(db *sql.DB) *LifecycleRepo { return &LifecycleRepo{db: db} }

func (r *LifecycleRepo) GetTest(ctx context.Context, id string) (*domain.Test, error) {
	t, err := NewABTestRepo(r.db).GetTest(ctx, id)
	if err == abtest.ErrTestNotFound {
		return nil, lifecycle.ErrTestNotFound
	}
	return t, err
}

// UpdateStatus transitions the test with the expected from-status as guard.
// A transition into completed stamps completed_at; the archival sweep keys
// on that column, so a manual stop must set it the same way a winner
// completion does.
func (r *LifecycleRepo) UpdateStatus(ctx context.Context, id string, from, to domain.TestStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ab_tests SET status = $3,
		    completed_at = CASE WHEN $3 = 'completed' THEN COALESCE(completed_at, NOW()) ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ab_tests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check test: %w", err)
	}
	if !exists {
		return lifecycle.ErrTestNotFound
	}
	return lifecycle.ErrInvalidTransition
}

// CompleteWithWinner marks the test completed and records the winner in one
// statement. The EXISTS subquery rejects variant ids that belong to another
// test, and the status guard rejects tests that already left running/paused.
func (r *LifecycleRepo) CompleteWithWinner(ctx context.Context, id, variantID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ab_tests
		SET status = 'completed', winner_variant_id = $2,
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND status = 'running'
		  AND EXISTS (SELECT 1 FROM ab_variants WHERE id = $2 AND test_id = $1)
	`, id, variantID)
	if err != nil {
		return fmt.Errorf("complete with winner: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	t, err := r.GetTest(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != domain.TestRunning {
		return lifecycle.ErrInvalidTransition
	}
	return lifecycle.ErrWinnerNotInTest
}

func (r *LifecycleRepo) ArchiveCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ab_tests SET status = 'archived', updated_at = NOW()
		WHERE status = 'completed' AND completed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive sweep: %w", err)
	}
	return res.RowsAffected()
}

func (r *LifecycleRepo) PurgeBouncedSendsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sends WHERE bounced AND sent_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge bounced sends: %w", err)
	}
	return res.RowsAffected()
}
