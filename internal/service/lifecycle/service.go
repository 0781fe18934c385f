package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
)

// Default maintenance windows. Both are configurable on the service.
const (
	DefaultRetention    = 90 * 24 * time.Hour
	DefaultBounceMaxAge = 30 * 24 * time.Hour
)

// Service enforces the test status state machine and runs the maintenance
// sweeps. Safe for concurrent use if the repository is.
type Service struct {
	repo         Repository
	retention    time.Duration
	bounceMaxAge time.Duration
	now          func() time.Time
}

// NewService creates a lifecycle service with the default windows.
func NewService(repo Repository) *Service {
	return &Service{
		repo:         repo,
		retention:    DefaultRetention,
		bounceMaxAge: DefaultBounceMaxAge,
		now:          time.Now,
	}
}

// WithWindows overrides the archival retention and bounce purge windows.
// Non-positive values keep the defaults.
func (s *Service) WithWindows(retention, bounceMaxAge time.Duration) *Service {
	if retention > 0 {
		s.retention = retention
	}
	if bounceMaxAge > 0 {
		s.bounceMaxAge = bounceMaxAge
	}
	return s
}

// Pause moves a running test to paused.
func (s *Service) Pause(ctx context.Context, testID string) error {
	return s.transition(ctx, testID, domain.TestPaused)
}

// Resume moves a paused test back to running.
func (s *Service) Resume(ctx context.Context, testID string) error {
	return s.transition(ctx, testID, domain.TestRunning)
}

// Stop completes a test manually without declaring a winner.
func (s *Service) Stop(ctx context.Context, testID string) error {
	return s.transition(ctx, testID, domain.TestCompleted)
}

func (s *Service) transition(ctx context.Context, testID string, to domain.TestStatus) error {
	t, err := s.repo.GetTest(ctx, testID)
	if err != nil {
		return err
	}
	if !t.CanTransition(to) {
		return ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, testID, t.Status, to); err != nil {
		return fmt.Errorf("transition %s -> %s: %w", t.Status, to, err)
	}
	return nil
}

// CompleteWithWinner completes a running test and records its winning
// variant in one guarded write, so the winner reference can only ever point
// at a variant of this test and only exists on a completed test.
func (s *Service) CompleteWithWinner(ctx context.Context, testID, variantID string) error {
	t, err := s.repo.GetTest(ctx, testID)
	if err != nil {
		return err
	}
	if !t.CanTransition(domain.TestCompleted) {
		return ErrInvalidTransition
	}
	return s.repo.CompleteWithWinner(ctx, testID, variantID)
}

// ArchiveSweep archives completed tests older than the retention window.
// Idempotent; safe to run on any schedule and from multiple hosts.
func (s *Service) ArchiveSweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.repo.ArchiveCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive sweep: %w", err)
	}
	if n > 0 {
		log.Printf("[lifecycle.Service] archived %d completed tests older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// PurgeBouncedSends removes bounced sends older than the purge window.
func (s *Service) PurgeBouncedSends(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.bounceMaxAge)
	n, err := s.repo.PurgeBouncedSendsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge bounced sends: %w", err)
	}
	if n > 0 {
		log.Printf("[lifecycle.Service] purged %d bounced sends older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}
