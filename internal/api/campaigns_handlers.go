package api

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/campaign"
)

// CreateCampaign creates a draft campaign.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !decodeBody(w, r, &input) {
		return
	}
	if input.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	c, err := h.campaigns.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// ListCampaigns returns campaigns with an optional status filter.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, 50, 200)
	filter := campaign.ListFilter{
		Status: domain.CampaignStatus(r.URL.Query().Get("status")),
		Limit:  params.Limit,
		Offset: params.Offset,
	}

	campaigns, total, err := h.campaigns.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(campaigns, params, int64(total)))
}

// GetCampaign returns a single campaign.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DeleteCampaign removes a campaign. Send records keep their rows with the
// campaign reference cleared.
func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Delete(r.Context(), chi.URLParam(r, "campaignID")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ActivateCampaign moves a draft campaign to active.
func (h *Handlers) ActivateCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignTransition(w, r, h.campaigns.Activate)
}

// CompleteCampaign moves an active campaign to completed.
func (h *Handlers) CompleteCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignTransition(w, r, h.campaigns.Complete)
}

func (h *Handlers) campaignTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "campaignID")
	if err := fn(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// RefreshCampaignStats recomputes the campaign's rollup counters from its
// send records and returns the refreshed campaign.
func (h *Handlers) RefreshCampaignStats(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.RefreshStats(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// AddProspect creates a prospect record.
func (h *Handlers) AddProspect(w http.ResponseWriter, r *http.Request) {
	var p domain.Prospect
	if !decodeBody(w, r, &p) {
		return
	}
	if p.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.campaigns.AddProspect(r.Context(), &p); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// ListProspects returns prospects, paginated.
func (h *Handlers) ListProspects(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, 50, 500)
	prospects, total, err := h.campaigns.ListProspects(r.Context(), params.Limit, params.Offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(prospects, params, int64(total)))
}

// GetProspect returns a single prospect by ID, or by email via the
// ?email= query param.
func (h *Handlers) GetProspect(w http.ResponseWriter, r *http.Request) {
	p, err := h.campaigns.GetProspect(r.Context(), chi.URLParam(r, "prospectID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// FindProspect looks a prospect up by email.
func (h *Handlers) FindProspect(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "email query param is required")
		return
	}
	p, err := h.campaigns.FindProspectByEmail(r.Context(), email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeleteProspect removes a prospect. Their send records survive with the
// prospect reference cleared.
func (h *Handlers) DeleteProspect(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.RemoveProspect(r.Context(), chi.URLParam(r, "prospectID")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ImportProspects ingests a CSV upload. The file comes either as the "file"
// part of a multipart form or as the raw request body.
func (h *Handlers) ImportProspects(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = r.Body
	if err := r.ParseMultipartForm(32 << 20); err == nil {
		file, _, ferr := r.FormFile("file")
		if ferr != nil {
			respondError(w, http.StatusBadRequest, "missing file upload")
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.importer.ImportCSV(r.Context(), body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ArchiveSweep archives completed tests past the retention window. The
// background sweeper runs this on a schedule; the endpoint exists for
// operational use.
func (h *Handlers) ArchiveSweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.lifecycle.ArchiveSweep(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"archived": n})
}

// PurgeBouncedSends removes bounced send records past the purge window.
func (h *Handlers) PurgeBouncedSends(w http.ResponseWriter, r *http.Request) {
	n, err := h.lifecycle.PurgeBouncedSends(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"purged": n})
}
