package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/abtest"
)

// TrackSend records an outbound send against a variant and increments its
// send counter.
func (h *Handlers) TrackSend(w http.ResponseWriter, r *http.Request) {
	var input abtest.TrackSendInput
	if !decodeBody(w, r, &input) {
		return
	}
	if input.VariantID == "" {
		respondError(w, http.StatusBadRequest, "variant_id is required")
		return
	}
	if input.RecipientEmail == "" {
		respondError(w, http.StatusBadRequest, "recipient_email is required")
		return
	}

	send, err := h.tests.TrackSend(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, send)
}

// GetSend returns a single send record.
func (h *Handlers) GetSend(w http.ResponseWriter, r *http.Request) {
	send, err := h.tests.GetSend(r.Context(), chi.URLParam(r, "sendID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, send)
}

// ListVariantSends returns a variant's sends, newest first.
func (h *Handlers) ListVariantSends(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, 50, 500)
	sends, err := h.tests.ListSends(r.Context(), chi.URLParam(r, "variantID"), params.Limit, params.Offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sends)
}

// TrackOpen records the first open for a send. A repeat delivery returns
// 409 and leaves the counters untouched.
func (h *Handlers) TrackOpen(w http.ResponseWriter, r *http.Request) {
	if err := h.tests.TrackOpen(r.Context(), chi.URLParam(r, "sendID"), eventTime(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// TrackReply records the first reply for a send with its sentiment.
func (h *Handlers) TrackReply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Sentiment  string     `json:"sentiment"`
		OccurredAt *time.Time `json:"occurred_at"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	at := time.Now().UTC()
	if body.OccurredAt != nil {
		at = body.OccurredAt.UTC()
	}
	sentiment := domain.ReplySentiment(body.Sentiment)
	if sentiment == "" {
		sentiment = domain.SentimentNeutral
	}

	if err := h.tests.TrackReply(r.Context(), chi.URLParam(r, "sendID"), at, sentiment); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// TrackBounce flags a send as bounced.
func (h *Handlers) TrackBounce(w http.ResponseWriter, r *http.Request) {
	if err := h.tests.TrackBounce(r.Context(), chi.URLParam(r, "sendID")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// eventTime reads an optional occurred_at query param, defaulting to now.
// Pull-based sync passes the platform's event timestamp here so engagement
// times survive delayed processing.
func eventTime(r *http.Request) time.Time {
	if v := r.URL.Query().Get("occurred_at"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
