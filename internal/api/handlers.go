package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/outbound-lab/internal/leads"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/campaign"
	"github.com/ignite/outbound-lab/internal/service/lifecycle"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	tests     *abtest.Service
	lifecycle *lifecycle.Service
	campaigns *campaign.Service
	importer  *leads.Importer
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(tests *abtest.Service, lc *lifecycle.Service, campaigns *campaign.Service) *Handlers {
	return &Handlers{
		tests:     tests,
		lifecycle: lc,
		campaigns: campaigns,
		importer:  leads.NewImporter(campaigns),
	}
}

// SetImporter overrides the CSV importer, mainly for custom column mappings.
func (h *Handlers) SetImporter(im *leads.Importer) {
	h.importer = im
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service sentinel errors onto HTTP status codes.
// Unknown errors come back as a 500 with a generic message so internal
// details never leak to clients.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, abtest.ErrTestNotFound),
		errors.Is(err, abtest.ErrVariantNotFound),
		errors.Is(err, abtest.ErrSendNotFound),
		errors.Is(err, abtest.ErrProspectNotFound),
		errors.Is(err, lifecycle.ErrTestNotFound),
		errors.Is(err, campaign.ErrCampaignNotFound),
		errors.Is(err, campaign.ErrProspectNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, abtest.ErrAlreadyRecorded),
		errors.Is(err, campaign.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrWinnerNotInTest),
		errors.Is(err, campaign.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, abtest.ErrInvalidCategory),
		errors.Is(err, abtest.ErrInvalidSentiment):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, abtest.ErrDataInconsistency):
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
