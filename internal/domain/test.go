package domain

import "time"

// TestStatus enumerates the lifecycle states of an A/B test.
type TestStatus string

const (
	TestRunning   TestStatus = "running"
	TestPaused    TestStatus = "paused"
	TestCompleted TestStatus = "completed"
	TestArchived  TestStatus = "archived"
)

// TestCategory identifies which element of the message is under test.
type TestCategory string

const (
	CategorySubjectLine TestCategory = "subject_line"
	CategoryOpeningLine TestCategory = "opening_line"
	CategoryCTA         TestCategory = "cta"
	CategoryFullBody    TestCategory = "full_body"
)

// ValidCategory reports whether c is one of the known test categories.
func ValidCategory(c TestCategory) bool {
	switch c {
	case CategorySubjectLine, CategoryOpeningLine, CategoryCTA, CategoryFullBody:
		return true
	}
	return false
}

// Test is a controlled experiment over message copy. Variants attached to
// the test accumulate send/engagement counters over its active window.
//
// WinnerVariantID may only reference a variant belonging to this test, and
// is only set once the test is completed.
type Test struct {
	ID              string       `json:"id" db:"id"`
	Name            string       `json:"name" db:"name"`
	Category        TestCategory `json:"category" db:"category"`
	Status          TestStatus   `json:"status" db:"status"`
	WinnerVariantID *string      `json:"winner_variant_id" db:"winner_variant_id"`
	CampaignID      *string      `json:"campaign_id" db:"campaign_id"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
	CompletedAt     *time.Time   `json:"completed_at" db:"completed_at"`
}

// IsTerminal returns true once the test can no longer change state.
func (t *Test) IsTerminal() bool { return t.Status == TestArchived }

// CanTransition reports whether the status state machine allows moving
// from the test's current status to next. Archived is terminal.
func (t *Test) CanTransition(next TestStatus) bool {
	switch t.Status {
	case TestRunning:
		return next == TestPaused || next == TestCompleted
	case TestPaused:
		return next == TestRunning
	case TestCompleted:
		return next == TestArchived
	default:
		return false
	}
}
