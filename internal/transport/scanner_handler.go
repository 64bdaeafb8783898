package transport

import (
	"errors"
	"net/http"

	"stockroom/internal/barcode"
	"stockroom/internal/domain"
	"stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StartSessionRequest represents the session start payload
type StartSessionRequest struct {
	Mode string `json:"mode" validate:"required,oneof=add remove"`
}

// ScanRequest represents a single scanner read
type ScanRequest struct {
	Barcode string `json:"barcode" validate:"required"`
}

// UpdateItemsRequest updates one item's quantity or replaces the whole
// list, depending on which fields are present.
type UpdateItemsRequest struct {
	VariantID *uuid.UUID           `json:"variant_id,omitempty"`
	Quantity  *int                 `json:"quantity,omitempty"`
	Items     []domain.SessionItem `json:"items,omitempty"`
}

// SessionResponse is the session envelope returned to the scanner UI
type SessionResponse struct {
	SessionID     string               `json:"session_id"`
	Mode          string               `json:"mode"`
	Status        string               `json:"status"`
	Items         []domain.SessionItem `json:"items"`
	TotalItems    int                  `json:"total_items"`
	TotalQuantity int                  `json:"total_quantity"`
}

// ConfirmResponse reports how many variants a confirm actually changed
type ConfirmResponse struct {
	UpdatedCount int `json:"updated_count"`
}

// ScannerHandler handles HTTP requests for the barcode scanner flow
type ScannerHandler struct {
	scannerService service.ScannerService
	logger         *zap.Logger
}

// NewScannerHandler creates a new ScannerHandler
func NewScannerHandler(scannerService service.ScannerService, logger *zap.Logger) *ScannerHandler {
	return &ScannerHandler{
		scannerService: scannerService,
		logger:         logger,
	}
}

// RegisterRoutes registers all scanner routes
func (h *ScannerHandler) RegisterRoutes(r chi.Router, authMiddleware, permissionMiddleware, scanRateLimit func(http.Handler) http.Handler) {
	r.Route("/api/scanner", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(permissionMiddleware)

		r.Post("/sessions", h.StartSession)
		r.Get("/sessions/active", h.ActiveSession)
		r.With(scanRateLimit).Post("/scan", h.Scan)
		r.Put("/items", h.UpdateItems)
		r.Delete("/items/{variantID}", h.RemoveItem)
		r.Post("/clear", h.Clear)
		r.Post("/confirm", h.Confirm)
		r.Post("/cancel", h.Cancel)
		r.Get("/lookup/{barcode}", h.Lookup)
	})
}

// StartSession opens a new scan session for the authenticated user
func (h *ScannerHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	session, err := h.scannerService.Start(r.Context(), userID, domain.SessionMode(req.Mode))
	if err != nil {
		h.respondServiceError(w, err, "failed to start session")
		return
	}

	h.logger.Info("Scan session started",
		zap.String("session_id", session.ID.String()),
		zap.String("mode", string(session.Mode)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, sessionResponse(session))
}

// ActiveSession returns the user's current active session so the
// scanner page can resume after a reconnect
func (h *ScannerHandler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	session, err := h.scannerService.ActiveSession(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "failed to get active session")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sessionResponse(session))
}

// Scan resolves a barcode and accumulates it into the active session
func (h *ScannerHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	item, err := h.scannerService.Scan(r.Context(), session.ID, req.Barcode)
	if err != nil {
		if errors.Is(err, repository.ErrVariantNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found with barcode: "+req.Barcode)
			return
		}
		h.respondServiceError(w, err, "failed to scan barcode")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// UpdateItems updates one item's quantity or replaces the entire list
func (h *ScannerHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	var updated *domain.ScanSession
	var err error
	switch {
	case req.Items != nil:
		updated, err = h.scannerService.ReplaceItems(r.Context(), session.ID, req.Items)
	case req.VariantID != nil && req.Quantity != nil:
		updated, err = h.scannerService.UpdateItem(r.Context(), session.ID, *req.VariantID, *req.Quantity)
	default:
		middleware.RespondWithError(w, http.StatusBadRequest, "either items or variant_id and quantity are required")
		return
	}

	if err != nil {
		h.respondServiceError(w, err, "failed to update session items")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sessionResponse(updated))
}

// RemoveItem deletes one variant from the session item list
func (h *ScannerHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid variant ID")
		return
	}

	session, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	updated, err := h.scannerService.RemoveItem(r.Context(), session.ID, variantID)
	if err != nil {
		h.respondServiceError(w, err, "failed to remove item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sessionResponse(updated))
}

// Clear empties the active session's item list
func (h *ScannerHandler) Clear(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	if err := h.scannerService.Clear(r.Context(), session.ID); err != nil {
		h.respondServiceError(w, err, "failed to clear session")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "session cleared"})
}

// Confirm applies the session to stock and reports the updated count
func (h *ScannerHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	actor := h.actorName(r)
	count, err := h.scannerService.Confirm(r.Context(), session.ID, actor)
	if err != nil {
		h.logger.Error("Session confirm failed",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
		h.respondServiceError(w, err, "failed to confirm session")
		return
	}

	h.logger.Info("Scan session confirmed",
		zap.String("session_id", session.ID.String()),
		zap.Int("updated_count", count),
	)
	middleware.RespondWithJSON(w, http.StatusOK, ConfirmResponse{UpdatedCount: count})
}

// Cancel discards the active session without touching stock
func (h *ScannerHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	if err := h.scannerService.Cancel(r.Context(), session.ID); err != nil {
		h.respondServiceError(w, err, "failed to cancel session")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "session cancelled"})
}

// Lookup resolves a barcode to a variant snapshot without mutating anything
func (h *ScannerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "barcode")

	variant, err := h.scannerService.Lookup(r.Context(), code)
	if err != nil {
		h.respondServiceError(w, err, "failed to look up barcode")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, variant)
}

func (h *ScannerHandler) currentUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.logger.Error("Invalid user ID format", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user ID")
		return uuid.Nil, false
	}

	return userID, true
}

func (h *ScannerHandler) activeSession(w http.ResponseWriter, r *http.Request) (*domain.ScanSession, bool) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return nil, false
	}

	session, err := h.scannerService.ActiveSession(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveSession) {
			middleware.RespondWithError(w, http.StatusBadRequest, "no active session, start one first")
			return nil, false
		}
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get active session")
		return nil, false
	}

	return session, true
}

func (h *ScannerHandler) actorName(r *http.Request) string {
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		return userID
	}
	return "unknown"
}

func (h *ScannerHandler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrEmptySession),
		errors.Is(err, barcode.ErrInvalidBarcode):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrActiveSessionExists):
		middleware.RespondWithError(w, http.StatusConflict, "you already have an active session, close it first")
	case errors.Is(err, service.ErrSessionNotActive):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrNoActiveSession):
		middleware.RespondWithError(w, http.StatusBadRequest, "no active session, start one first")
	case errors.Is(err, repository.ErrVariantNotFound),
		errors.Is(err, repository.ErrBarcodeNotFound),
		errors.Is(err, repository.ErrSessionNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func sessionResponse(session *domain.ScanSession) SessionResponse {
	return SessionResponse{
		SessionID:     session.ID.String(),
		Mode:          string(session.Mode),
		Status:        string(session.Status),
		Items:         session.Items,
		TotalItems:    len(session.Items),
		TotalQuantity: session.TotalQuantity(),
	}
}
