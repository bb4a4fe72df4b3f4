package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/history"
	"github.com/dealsentry/dealsentry/internal/server/respond"
)

// Handler exposes the analysis HTTP surface.
type Handler struct {
	service *Service
	history *history.Service
	log     zerolog.Logger
}

// NewHandler creates an analysis handler.
func NewHandler(service *Service, historySvc *history.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		history: historySvc,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// RegisterRoutes registers the analysis routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk-analysis", func(r chi.Router) {
		r.Post("/batch", h.HandleBatch)
		r.Delete("/cache", h.HandleClearCache)
		r.Post("/{id}/analyze", h.HandleAnalyze)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/recommendations", h.HandleRecommendations)
		r.Get("/{id}/trend", h.HandleTrend)
		r.Get("/{id}/history", h.HandleHistory)
		r.Get("/{id}/flag-changes", h.HandleFlagChanges)
		r.Get("/{id}/statistics", h.HandleStatistics)
		r.Delete("/{id}/cache", h.HandleClearContractCache)
	})
}

// analyzeRequest is the body of POST /risk-analysis/{id}/analyze.
type analyzeRequest struct {
	SkipAI       bool `json:"skip_ai"`
	ForceRefresh bool `json:"force_refresh"`
	CacheTTLSecs int  `json:"cache_ttl_seconds"`
}

func (req analyzeRequest) options() Options {
	opts := Options{SkipAI: req.SkipAI, ForceRefresh: req.ForceRefresh}
	if req.CacheTTLSecs > 0 {
		opts.CacheTTL = time.Duration(req.CacheTTLSecs) * time.Second
	}
	return opts
}

// HandleAnalyze handles POST /risk-analysis/{id}/analyze.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req analyzeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be an analyze request")
			return
		}
	}

	analysis, err := h.service.Analyze(r.Context(), id, req.options())
	if err != nil {
		h.writeAnalysisError(w, id, err)
		return
	}
	respond.JSON(w, http.StatusOK, analysis)
}

// HandleGet handles GET /risk-analysis/{id}: cached-or-computed analysis
// with default options.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	analysis, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeAnalysisError(w, id, err)
		return
	}
	respond.JSON(w, http.StatusOK, analysis)
}

// HandleRecommendations handles GET /risk-analysis/{id}/recommendations.
func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	analysis, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeAnalysisError(w, id, err)
		return
	}
	respond.JSON(w, http.StatusOK, Recommend(analysis))
}

// HandleTrend handles GET /risk-analysis/{id}/trend.
func (h *Handler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	trend, err := h.history.Trend(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to compute trend")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to compute trend")
		return
	}
	respond.JSON(w, http.StatusOK, trend)
}

// HandleHistory handles GET /risk-analysis/{id}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	hist, err := h.history.Get(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to load history")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to load history")
		return
	}
	respond.JSON(w, http.StatusOK, hist)
}

// HandleFlagChanges handles GET /risk-analysis/{id}/flag-changes.
func (h *Handler) HandleFlagChanges(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	changes, err := h.history.FlagChanges(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to diff flags")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to diff flags")
		return
	}
	respond.JSON(w, http.StatusOK, changes)
}

// HandleStatistics handles GET /risk-analysis/{id}/statistics?days=30.
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respond.Error(w, http.StatusBadRequest, "INVALID_DAYS", "days must be a positive integer")
			return
		}
		days = parsed
	}

	stats, err := h.history.Statistics(r.Context(), id, days)
	if err != nil {
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to compute statistics")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to compute statistics")
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}

// batchRequest is the body of POST /risk-analysis/batch.
type batchRequest struct {
	ContractIDs []string `json:"contract_ids"`
	analyzeRequest
}

// HandleBatch handles POST /risk-analysis/batch.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a batch request")
		return
	}
	if len(req.ContractIDs) == 0 {
		respond.Error(w, http.StatusBadRequest, "VALIDATION", "contract_ids must not be empty")
		return
	}

	result := h.service.AnalyzeBatch(r.Context(), req.ContractIDs, req.options())
	respond.JSON(w, http.StatusOK, result)
}

// HandleClearCache handles DELETE /risk-analysis/cache.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache("")
	respond.Message(w, http.StatusOK, "Analysis cache cleared", nil)
}

// HandleClearContractCache handles DELETE /risk-analysis/{id}/cache.
func (h *Handler) HandleClearContractCache(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.service.ClearCache(id)
	respond.Message(w, http.StatusOK, "Analysis cache cleared for contract", nil)
}

func (h *Handler) writeAnalysisError(w http.ResponseWriter, contractID string, err error) {
	switch {
	case errors.Is(err, domain.ErrContractNotFound):
		respond.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Contract not found")
	case errors.Is(err, domain.ErrValidation):
		respond.Error(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrCancelled):
		respond.Error(w, http.StatusRequestTimeout, "CANCELLED", "Analysis was cancelled")
	default:
		h.log.Error().Err(err).Str("contract_id", contractID).Msg("Analysis failed")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Analysis failed")
	}
}
