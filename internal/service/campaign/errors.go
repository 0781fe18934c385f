package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrProspectNotFound  = errors.New("prospect not found")
	ErrDuplicateEmail    = errors.New("prospect email already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)
