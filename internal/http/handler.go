package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/history"
	"github.com/davidbz/switchboard/internal/observability"
	"github.com/davidbz/switchboard/internal/routing"
)

// Execution modes accepted by HandleExecute.
const (
	ModeFailover = "failover"
	ModeParallel = "parallel"
	ModeDirect   = "direct"
)

var errBadRequest = errors.New("bad request")

// Handler handles HTTP requests.
type Handler struct {
	router     *routing.Router
	registry   domain.ProviderRegistry
	repository *history.Repository
	validate   *validator.Validate
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(
	router *routing.Router,
	registry domain.ProviderRegistry,
	repository *history.Repository,
) *Handler {
	return &Handler{
		router:     router,
		registry:   registry,
		repository: repository,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

type executeRequest struct {
	Capability  string                       `json:"capability"            validate:"required"`
	Mode        string                       `json:"mode,omitempty"        validate:"omitempty,oneof=failover parallel direct"`
	ProviderID  string                       `json:"provider_id,omitempty" validate:"required_if=Mode direct"`
	Request     json.RawMessage              `json:"request"               validate:"required"`
	Constraints *domain.SelectionConstraints `json:"constraints,omitempty"`
	MaxRetries  int                          `json:"max_retries,omitempty" validate:"gte=0,lte=10"`
	Count       int                          `json:"count,omitempty"       validate:"gte=0"`
}

type executeResponse struct {
	Mode       string            `json:"mode"`
	Capability domain.Capability `json:"capability"`
	Response   domain.Response   `json:"response"`
}

type parallelResponse struct {
	Mode       string            `json:"mode"`
	Capability domain.Capability `json:"capability"`
	Responses  []domain.Response `json:"responses"`
}

// HandleExecute routes one capability request with failover, in parallel, or to a named provider.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body executeRequest
	if err := h.decode(r, &body); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	capability, err := domain.ParseCapability(body.Capability)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	req, err := domain.DecodeRequest(capability, body.Request)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	mode := body.Mode
	if mode == "" {
		mode = ModeFailover
	}

	ctx = observability.WithCapability(ctx, string(capability))
	logger := observability.FromContext(ctx)
	logger.Info("execute request received", observability.String("mode", mode))

	if mode == ModeParallel {
		responses, parallelErr := h.router.ExecuteParallel(ctx, req, capability, body.Count)
		if parallelErr != nil {
			logger.Error("parallel execute failed", observability.Error(parallelErr))
			h.writeError(ctx, w, parallelErr)
			return
		}

		h.writeJSON(ctx, w, http.StatusOK, parallelResponse{
			Mode:       mode,
			Capability: capability,
			Responses:  responses,
		})
		return
	}

	result := executeResponse{Mode: mode, Capability: capability}

	switch mode {
	case ModeDirect:
		var provider domain.Provider
		provider, err = h.registry.Get(ctx, body.ProviderID)
		if err == nil {
			ctx = observability.WithProvider(ctx, body.ProviderID)
			result.Response, err = h.router.Execute(ctx, provider, req)
		}
	default:
		result.Response, err = h.router.ExecuteWithFailover(ctx, req, capability, body.Constraints, body.MaxRetries)
	}

	if err != nil {
		logger.Error("execute failed", observability.Error(err))
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, result)
}

type selectRequest struct {
	Capability  string                       `json:"capability"            validate:"required"`
	Constraints *domain.SelectionConstraints `json:"constraints,omitempty"`
}

type candidateView struct {
	ProviderID string                 `json:"provider_id"`
	Score      float64                `json:"score"`
	Eligible   bool                   `json:"eligible"`
	Metrics    domain.ProviderMetrics `json:"metrics"`
}

type selectResponse struct {
	Selected   string          `json:"selected"`
	Candidates []candidateView `json:"candidates"`
}

// HandleSelect explains a selection: the chosen provider and every ranked candidate.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body selectRequest
	if err := h.decode(r, &body); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	capability, err := domain.ParseCapability(body.Capability)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	selector := h.router.Selector()

	selected, err := selector.Select(ctx, capability, body.Constraints)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	ranked, err := selector.Rank(ctx, capability, body.Constraints)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	result := selectResponse{
		Selected:   selected.Info().ID,
		Candidates: make([]candidateView, 0, len(ranked)),
	}
	for _, c := range ranked {
		result.Candidates = append(result.Candidates, candidateView{
			ProviderID: c.Provider.Info().ID,
			Score:      c.Score,
			Eligible:   c.Eligible,
			Metrics:    c.Metrics,
		})
	}

	h.writeJSON(ctx, w, http.StatusOK, result)
}

// HandleLiveMetrics returns the live metrics of every provider.
func (h *Handler) HandleLiveMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.router.AllLiveMetrics(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, all)
}

// HandleProviderLiveMetrics returns the live metrics of one provider.
func (h *Handler) HandleProviderLiveMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, err := h.router.LiveMetrics(ctx, r.PathValue("id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, m)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", errBadRequest, err)
	}

	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}

	return nil
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.FromContext(ctx).Error("request failed", observability.Error(err))
	}

	h.writeJSON(ctx, w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFailoverExhausted), errors.Is(err, domain.ErrProviderExecution):
		return http.StatusBadGateway
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidRequestShape),
		errors.Is(err, domain.ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProviderNotFound), errors.Is(err, domain.ErrExecutionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAllCandidatesZeroScored):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoProviderAvailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, key)
	}

	return value, nil
}
