package scan

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
	"github.com/dealsentry/dealsentry/internal/server/respond"
)

// Handler exposes the scan HTTP surface.
type Handler struct {
	service   *Service
	contracts domain.ContractRepository
	log       zerolog.Logger
}

// NewHandler creates a scan handler.
func NewHandler(service *Service, contracts domain.ContractRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		contracts: contracts,
		log:       log.With().Str("handler", "scan").Logger(),
	}
}

// RegisterRoutes registers the scan routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/scans", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/execute", h.HandleExecute)
		r.Post("/{id}/retry", h.HandleRetry)
		r.Get("/{id}/progress", h.HandleProgress)
	})
}

// HandleCreate handles POST /scans.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a scan request")
		return
	}

	scan, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			respond.Error(w, http.StatusBadRequest, "VALIDATION", err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to create scan")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to create scan")
		return
	}

	respond.Message(w, http.StatusCreated, "Scan created", scan)
}

// HandleGet handles GET /scans/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	scan, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			respond.Error(w, http.StatusNotFound, "SCAN_NOT_FOUND", "Scan not found")
			return
		}
		h.log.Error().Err(err).Str("scan_id", id).Msg("Failed to load scan")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to load scan")
		return
	}

	respond.JSON(w, http.StatusOK, scan)
}

// executeRequest is the body of POST /scans/{id}/execute. Text may be
// supplied directly; otherwise it is rebuilt from the linked contract.
type executeRequest struct {
	ContractText string  `json:"contract_text"`
	Options      Options `json:"options"`
}

// HandleExecute handles POST /scans/{id}/execute.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req executeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be an execute request")
			return
		}
	}

	text := req.ContractText
	opts := req.Options
	if text == "" {
		scan, err := h.service.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrScanNotFound) {
				respond.Error(w, http.StatusNotFound, "SCAN_NOT_FOUND", "Scan not found")
				return
			}
			h.log.Error().Err(err).Str("scan_id", id).Msg("Failed to load scan")
			respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to load scan")
			return
		}
		if scan.ContractID != "" {
			contract, err := h.contracts.FindByID(r.Context(), scan.ContractID)
			if err != nil {
				h.writeScanError(w, id, err)
				return
			}
			text = rules.NewContext(contract).Text
			if opts.State == "" {
				opts.State = contract.State
			}
		}
	}

	result, err := h.service.Execute(r.Context(), id, text, opts)
	if err != nil {
		if failErr := h.service.MarkFailed(r.Context(), id, err.Error()); failErr != nil {
			h.log.Error().Err(failErr).Str("scan_id", id).Msg("Failed to mark scan failed")
		}
		h.writeScanError(w, id, err)
		return
	}

	respond.JSON(w, http.StatusOK, result)
}

// retryRequest is the body of POST /scans/{id}/retry.
type retryRequest struct {
	Options Options `json:"options"`
}

// HandleRetry handles POST /scans/{id}/retry.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req retryRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a retry request")
			return
		}
	}

	result, err := h.service.Retry(r.Context(), id, req.Options)
	if err != nil {
		h.writeScanError(w, id, err)
		return
	}

	respond.JSON(w, http.StatusOK, result)
}

// HandleProgress handles GET /scans/{id}/progress: a websocket stream of
// progress updates until the scan reaches a terminal state.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	scan, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			respond.Error(w, http.StatusNotFound, "SCAN_NOT_FOUND", "Scan not found")
			return
		}
		h.log.Error().Err(err).Str("scan_id", id).Msg("Failed to load scan")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to load scan")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("scan_id", id).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := r.Context()
	updates, cancel := h.service.Subscribe(id)
	defer cancel()

	// Current state first so late subscribers see where the scan stands.
	current := Progress{
		ScanID:    scan.ID,
		Status:    scan.Status,
		Progress:  scan.Progress,
		Message:   scan.Message,
		UpdatedAt: time.Now().UTC(),
	}
	if err := wsjson.Write(ctx, conn, current); err != nil {
		return
	}
	if scan.Status == StatusCompleted || scan.Status == StatusFailed {
		conn.Close(websocket.StatusNormalClosure, "scan finished")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-updates:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, p); err != nil {
				return
			}
			if p.Status == StatusCompleted || p.Status == StatusFailed {
				conn.Close(websocket.StatusNormalClosure, "scan finished")
				return
			}
		}
	}
}

func (h *Handler) writeScanError(w http.ResponseWriter, scanID string, err error) {
	switch {
	case errors.Is(err, domain.ErrScanNotFound):
		respond.Error(w, http.StatusNotFound, "SCAN_NOT_FOUND", "Scan not found")
	case errors.Is(err, domain.ErrContractNotFound):
		respond.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Linked contract not found")
	case errors.Is(err, domain.ErrValidation):
		respond.Error(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrCancelled):
		respond.Error(w, http.StatusRequestTimeout, "CANCELLED", "Scan was cancelled")
	default:
		h.log.Error().Err(err).Str("scan_id", scanID).Msg("Scan failed")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Scan failed")
	}
}
