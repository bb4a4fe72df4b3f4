package scoring

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/server/respond"
)

// Handler exposes the risk score HTTP surface.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a risk score handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "scoring").Logger(),
	}
}

// RegisterRoutes registers the risk score routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk-scores", func(r chi.Router) {
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/calculate", h.HandleCalculate)
	})
}

// HandleGet handles GET /risk-scores/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	score, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrScoreNotFound) {
			respond.Error(w, http.StatusNotFound, "SCORE_NOT_FOUND", "No risk score for this contract")
			return
		}
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to load risk score")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to load risk score")
		return
	}

	respond.JSON(w, http.StatusOK, score)
}

// HandleUpdate handles PUT /risk-scores/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var score domain.RiskScore
	if err := json.NewDecoder(r.Body).Decode(&score); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a risk score")
		return
	}
	score.ContractID = id

	if err := h.service.Update(r.Context(), &score); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			respond.Error(w, http.StatusBadRequest, "VALIDATION", err.Error())
			return
		}
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to update risk score")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to update risk score")
		return
	}

	respond.Message(w, http.StatusOK, "Risk score updated", score)
}

// HandleDelete handles DELETE /risk-scores/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to delete risk score")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to delete risk score")
		return
	}

	respond.Message(w, http.StatusOK, "Risk score deleted", nil)
}

// calculateRequest is the body of POST /risk-scores/{id}/calculate.
type calculateRequest struct {
	Flags   []domain.RiskFlag `json:"flags"`
	Weights *Weights          `json:"weights"`
}

// HandleCalculate handles POST /risk-scores/{id}/calculate.
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req calculateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a calculate request")
			return
		}
	}

	score, err := h.service.CalculateAndSave(r.Context(), id, req.Flags, req.Weights)
	if err != nil {
		if errors.Is(err, domain.ErrContractNotFound) {
			respond.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Contract not found")
			return
		}
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to calculate risk score")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to calculate risk score")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"score":      score,
		"risk_level": RiskLevel(score.Score),
	})
}
