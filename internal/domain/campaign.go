package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
)

// Campaign is a reporting rollup over one or more tests targeting the same
// audience with the same value proposition. The denormalized totals are a
// dashboard convenience; they play no part in significance or winner
// decisions.
type Campaign struct {
	ID             string         `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	ValueProp      string         `json:"value_prop" db:"value_prop"`
	Status         CampaignStatus `json:"status" db:"status"`
	PlatformCampID *string        `json:"platform_campaign_id" db:"platform_campaign_id"`

	// Denormalized totals, refreshed by the stats rollup.
	ProspectsCount int `json:"prospects_count" db:"prospects_count"`
	SendsCount     int `json:"sends_count" db:"sends_count"`
	OpensCount     int `json:"opens_count" db:"opens_count"`
	RepliesCount   int `json:"replies_count" db:"replies_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
