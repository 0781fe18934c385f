package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/abtest"
)

// CreateTest creates a new test with its variants.
func (h *Handlers) CreateTest(w http.ResponseWriter, r *http.Request) {
	var input abtest.CreateTestInput
	if !decodeBody(w, r, &input) {
		return
	}
	if input.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	test, variants, err := h.tests.CreateTest(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"test":     test,
		"variants": variants,
	})
}

// ListTests returns tests matching the optional status, category, and
// campaign_id filters, paginated.
func (h *Handlers) ListTests(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, 50, 200)
	q := r.URL.Query()

	filter := abtest.TestFilter{
		Status:     domain.TestStatus(q.Get("status")),
		Category:   domain.TestCategory(q.Get("category")),
		CampaignID: q.Get("campaign_id"),
		Limit:      params.Limit,
		Offset:     params.Offset,
	}

	tests, total, err := h.tests.ListTests(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(tests, params, int64(total)))
}

// GetTest returns a single test by ID.
func (h *Handlers) GetTest(w http.ResponseWriter, r *http.Request) {
	test, err := h.tests.GetTest(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, test)
}

// DeleteTest removes a test and, through the schema cascade, its variants
// and their send records.
func (h *Handlers) DeleteTest(w http.ResponseWriter, r *http.Request) {
	if err := h.tests.DeleteTest(r.Context(), chi.URLParam(r, "testID")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListTestVariants returns a test's variants in creation order.
func (h *Handlers) ListTestVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := h.tests.ListVariants(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, variants)
}

// AddVariant appends a variant with the given content to an existing test.
func (h *Handlers) AddVariant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	variant, err := h.tests.AddVariant(r.Context(), chi.URLParam(r, "testID"), body.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, variant)
}

// DeleteVariant removes a single variant.
func (h *Handlers) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	if err := h.tests.DeleteVariant(r.Context(), chi.URLParam(r, "variantID")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetSignificance runs the eligibility gate and chi-squared evaluation for a
// test and returns the result without changing any state.
func (h *Handlers) GetSignificance(w http.ResponseWriter, r *http.Request) {
	result, err := h.tests.Evaluate(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetWinner returns the current winner selection for a test. The outcome
// field distinguishes a found winner from the no-variant, awaiting-traffic,
// and no-qualifier cases.
func (h *Handlers) GetWinner(w http.ResponseWriter, r *http.Request) {
	result, err := h.tests.SelectWinner(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// PickVariant returns a randomly selected variant for the next send.
func (h *Handlers) PickVariant(w http.ResponseWriter, r *http.Request) {
	variant, err := h.tests.PickVariant(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, variant)
}

// GetTestReport returns the test with its variants, the significance
// evaluation, and the winner selection in one payload.
func (h *Handlers) GetTestReport(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testID")
	ctx := r.Context()

	test, err := h.tests.GetTest(ctx, testID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	variants, err := h.tests.ListVariants(ctx, testID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	significance, err := h.tests.Evaluate(ctx, testID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	winner, err := h.tests.SelectWinner(ctx, testID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"test":         test,
		"variants":     variants,
		"significance": significance,
		"winner":       winner,
	})
}

// PauseTest moves a running test to paused.
func (h *Handlers) PauseTest(w http.ResponseWriter, r *http.Request) {
	h.transitionTest(w, r, h.lifecycle.Pause)
}

// ResumeTest moves a paused test back to running.
func (h *Handlers) ResumeTest(w http.ResponseWriter, r *http.Request) {
	h.transitionTest(w, r, h.lifecycle.Resume)
}

// StopTest completes a running test without recording a winner.
func (h *Handlers) StopTest(w http.ResponseWriter, r *http.Request) {
	h.transitionTest(w, r, h.lifecycle.Stop)
}

func (h *Handlers) transitionTest(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, testID string) error) {
	testID := chi.URLParam(r, "testID")
	if err := fn(r.Context(), testID); err != nil {
		respondServiceError(w, err)
		return
	}
	test, err := h.tests.GetTest(r.Context(), testID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, test)
}

// CompleteTest completes a running test and records the given variant as
// its winner in the same statement.
func (h *Handlers) CompleteTest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VariantID string `json:"variant_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.VariantID == "" {
		respondError(w, http.StatusBadRequest, "variant_id is required")
		return
	}

	testID := chi.URLParam(r, "testID")
	if err := h.lifecycle.CompleteWithWinner(r.Context(), testID, body.VariantID); err != nil {
		respondServiceError(w, err)
		return
	}
	test, err := h.tests.GetTest(r.Context(), testID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, test)
}
