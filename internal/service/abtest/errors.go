package abtest

import "errors"

// Sentinel errors for the experiment engine.
//
// Not-found and already-recorded outcomes are expected in normal operation
// (integrity warnings, duplicate webhook deliveries) and callers should
// branch on them. ErrDataInconsistency means a counter update would have
// violated positive_replies <= replies; it is reported distinctly so
// upstream sync logic can alert and investigate double-delivery.
var (
	ErrTestNotFound     = errors.New("test not found")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrSendNotFound     = errors.New("send not found")
	ErrProspectNotFound = errors.New("prospect not found")

	ErrDataInconsistency = errors.New("counter data inconsistency")
	ErrAlreadyRecorded   = errors.New("engagement already recorded for send")

	ErrInvalidCategory  = errors.New("invalid test category")
	ErrInvalidSentiment = errors.New("invalid reply sentiment")
)
