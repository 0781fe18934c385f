package domain

import "time"

// Variant is one concrete piece of tested copy within a Test, with its own
// engagement counters. Counters are only ever mutated through the store's
// atomic increment operations; they are never written from loaded structs.
//
// positive_replies <= replies holds after every successful update.
// opens <= sends is a soft invariant only: upstream open tracking can
// double-report, so the store does not enforce or clamp it. Readers that
// care (reports, the evaluator) log when it is violated.
type Variant struct {
	ID              string    `json:"id" db:"id"`
	TestID          string    `json:"test_id" db:"test_id"`
	Content         string    `json:"content" db:"content"`
	Sends           int       `json:"sends" db:"sends"`
	Opens           int       `json:"opens" db:"opens"`
	Replies         int       `json:"replies" db:"replies"`
	PositiveReplies int       `json:"positive_replies" db:"positive_replies"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// OpenRate returns opens/sends, or 0 when the variant has no sends.
func (v *Variant) OpenRate() float64 {
	if v.Sends == 0 {
		return 0
	}
	return float64(v.Opens) / float64(v.Sends)
}

// ReplyRate returns replies/sends, or 0 when the variant has no sends.
func (v *Variant) ReplyRate() float64 {
	if v.Sends == 0 {
		return 0
	}
	return float64(v.Replies) / float64(v.Sends)
}

// PositiveRate returns positive_replies/replies, or 0 when there are no
// replies.
func (v *Variant) PositiveRate() float64 {
	if v.Replies == 0 {
		return 0
	}
	return float64(v.PositiveReplies) / float64(v.Replies)
}

// OverReportedOpens reports whether upstream tracking has recorded more
// opens than sends for this variant. Monitored, never clamped.
func (v *Variant) OverReportedOpens() bool { return v.Opens > v.Sends }
