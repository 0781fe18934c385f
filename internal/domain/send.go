package domain

import "time"

// ReplySentiment classifies a prospect's reply.
type ReplySentiment string

const (
	SentimentPositive ReplySentiment = "positive"
	SentimentNeutral  ReplySentiment = "neutral"
	SentimentNegative ReplySentiment = "negative"
)

// ValidSentiment reports whether s is a known reply sentiment.
func ValidSentiment(s ReplySentiment) bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

// Send records a single outbound message attributed to a variant.
//
// A send is immutable after creation except for the three nullable
// engagement fields (OpenedAt, RepliedAt, Sentiment), which transition from
// unset to set exactly once each. The engagement sync worker uses these
// fields to guarantee at-most-once counter accounting: it sets the
// timestamp and issues the matching variant increment together, or not at
// all.
//
// ProspectID is nullable so that deleting a prospect record (privacy /
// retention) preserves send history for analytics.
type Send struct {
	ID             string          `json:"id" db:"id"`
	VariantID      string          `json:"variant_id" db:"variant_id"`
	ProspectID     *string         `json:"prospect_id" db:"prospect_id"`
	RecipientEmail string          `json:"recipient_email" db:"recipient_email"`
	CampaignID     *string         `json:"campaign_id" db:"campaign_id"`
	SentAt         time.Time       `json:"sent_at" db:"sent_at"`
	OpenedAt       *time.Time      `json:"opened_at" db:"opened_at"`
	RepliedAt      *time.Time      `json:"replied_at" db:"replied_at"`
	Sentiment      *ReplySentiment `json:"reply_sentiment" db:"reply_sentiment"`
	Bounced        bool            `json:"bounced" db:"bounced"`
}

// Opened reports whether an open has already been accounted for this send.
func (s *Send) Opened() bool { return s.OpenedAt != nil }

// Replied reports whether a reply has already been accounted for this send.
func (s *Send) Replied() bool { return s.RepliedAt != nil }
