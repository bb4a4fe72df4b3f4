package contracts

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/server/respond"
)

// Handler exposes the contract CRUD surface.
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a contract handler.
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "contracts").Logger(),
	}
}

// RegisterRoutes registers the contract routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/contracts", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleList handles GET /contracts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.FindAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list contracts")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to list contracts")
		return
	}
	respond.JSON(w, http.StatusOK, all)
}

// HandleCreate handles POST /contracts.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var c domain.Contract
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a contract")
		return
	}
	if c.Title == "" {
		respond.Error(w, http.StatusBadRequest, "VALIDATION", "title is required")
		return
	}

	if err := h.repo.Create(r.Context(), &c); err != nil {
		h.log.Error().Err(err).Msg("Failed to create contract")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to create contract")
		return
	}

	respond.Message(w, http.StatusCreated, "Contract created", c)
}

// HandleGet handles GET /contracts/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrContractNotFound) {
			respond.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Contract not found")
			return
		}
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to load contract")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to load contract")
		return
	}

	respond.JSON(w, http.StatusOK, c)
}

// HandleUpdate handles PUT /contracts/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c domain.Contract
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a contract")
		return
	}
	c.ID = id

	if err := h.repo.Update(r.Context(), &c); err != nil {
		if errors.Is(err, domain.ErrContractNotFound) {
			respond.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Contract not found")
			return
		}
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to update contract")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to update contract")
		return
	}

	respond.Message(w, http.StatusOK, "Contract updated", c)
}

// HandleDelete handles DELETE /contracts/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.repo.DeleteByID(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to delete contract")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to delete contract")
		return
	}
	if !deleted {
		respond.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Contract not found")
		return
	}

	respond.Message(w, http.StatusOK, "Contract deleted", nil)
}
