package http

import (
	"fmt"
	"net/http"

	"github.com/davidbz/switchboard/internal/domain"
)

// HandleAllProviderMetrics returns historical metrics for every provider with history.
func (h *Handler) HandleAllProviderMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days, err := queryInt(r, "days")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	all, err := h.repository.AllProviderMetrics(ctx, days)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, all)
}

// HandleProviderMetrics returns historical metrics for one provider.
func (h *Handler) HandleProviderMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days, err := queryInt(r, "days")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	m, err := h.repository.ProviderMetrics(ctx, r.PathValue("id"), days)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, m)
}

// HandleCapabilityMetrics returns historical metrics for the providers of a capability.
func (h *Handler) HandleCapabilityMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	capability, err := domain.ParseCapability(r.PathValue("capability"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	days, err := queryInt(r, "days")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	all, err := h.repository.MetricsByCapability(ctx, capability, days)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, all)
}

// HandleBestProvider picks the best provider for a capability from history.
func (h *Handler) HandleBestProvider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	capability, err := domain.ParseCapability(query.Get("capability"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	strategy, err := domain.ParseStrategy(query.Get("strategy"))
	if err != nil {
		h.writeError(ctx, w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	days, err := queryInt(r, "days")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	providerID, err := h.repository.BestProvider(ctx, capability, strategy, days)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]string{
		"provider_id": providerID,
		"capability":  string(capability),
		"strategy":    string(strategy),
	})
}

// HandleCostAnalysis returns successful spend grouped by provider, optionally for one capability.
func (h *Handler) HandleCostAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var capability domain.Capability
	if raw := r.URL.Query().Get("capability"); raw != "" {
		parsed, err := domain.ParseCapability(raw)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		capability = parsed
	}

	days, err := queryInt(r, "days")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	summaries, err := h.repository.CostAnalysis(ctx, capability, days)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, summaries)
}

// HandleTrends returns a provider's performance bucketed by day intervals.
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days, err := queryInt(r, "days")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	interval, err := queryInt(r, "interval")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	trends, err := h.repository.PerformanceTrends(ctx, r.PathValue("id"), days, interval)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, trends)
}

type compareRequest struct {
	ProviderIDs []string `json:"provider_ids"         validate:"required,min=1,dive,required"`
	Capability  string   `json:"capability,omitempty"`
	Days        int      `json:"days,omitempty"       validate:"gte=0"`
}

// HandleCompare returns historical metrics for the listed providers.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body compareRequest
	if err := h.decode(r, &body); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	var capability domain.Capability
	if body.Capability != "" {
		parsed, err := domain.ParseCapability(body.Capability)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		capability = parsed
	}

	comparison, err := h.repository.CompareProviders(ctx, body.ProviderIDs, capability, body.Days)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, comparison)
}

// HandleAverageRating returns a provider's mean user rating.
func (h *Handler) HandleAverageRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerID := r.PathValue("id")

	days, err := queryInt(r, "days")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	avg, err := h.repository.AverageUserRating(ctx, providerID, days)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{
		"provider_id":         providerID,
		"average_user_rating": avg,
	})
}

// HandleExecutions returns recent executions, newest first.
func (h *Handler) HandleExecutions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	executions, err := h.repository.ExecutionHistory(ctx, r.URL.Query().Get("provider_id"), limit)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, executions)
}

type feedbackRequest struct {
	Rating   *float64 `json:"rating"             validate:"required"`
	Feedback *string  `json:"feedback,omitempty"`
}

// HandleFeedback attaches a user rating and optional feedback to an execution.
func (h *Handler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body feedbackRequest
	if err := h.decode(r, &body); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	if err := h.repository.RecordUserFeedback(ctx, r.PathValue("id"), *body.Rating, body.Feedback); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
