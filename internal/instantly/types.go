package instantly

import "time"

// Campaign is a sending campaign on the platform side.
type Campaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Lead is an outreach target pushed to a platform campaign.
// CustomVariables carries the local send id so engagement events can be
// attributed back without guessing by email alone.
type Lead struct {
	Email           string            `json:"email"`
	FirstName       string            `json:"first_name,omitempty"`
	LastName        string            `json:"last_name,omitempty"`
	CompanyName     string            `json:"company_name,omitempty"`
	Personalization string            `json:"personalization,omitempty"`
	CustomVariables map[string]string `json:"custom_variables,omitempty"`
}

// Activity is a single engagement event for a lead.
// EventType is one of "sent", "opened", "replied", "bounced".
type Activity struct {
	Email      string    `json:"email"`
	CampaignID string    `json:"campaign_id"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
}

// Reply is a reply record for a campaign. Sentiment is present only when
// the platform labels interest; empty means unclassified.
type Reply struct {
	Email      string    `json:"email"`
	CampaignID string    `json:"campaign_id"`
	Timestamp  time.Time `json:"timestamp"`
	Sentiment  string    `json:"sentiment,omitempty"`
}

// CampaignAnalytics is the platform's aggregate view of a campaign.
type CampaignAnalytics struct {
	CampaignID string `json:"campaign_id"`
	Sent       int    `json:"sent"`
	Opened     int    `json:"opened"`
	Replied    int    `json:"replied"`
	Bounced    int    `json:"bounced"`
}

// Account is a connected sending mailbox.
type Account struct {
	Email      string `json:"email"`
	Status     string `json:"status"`
	DailyLimit int    `json:"daily_limit"`
	SentToday  int    `json:"sent_today"`
}
