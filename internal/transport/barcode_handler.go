package transport

import (
	"errors"
	"net/http"

	"stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateMissingRequest caps how many unlabelled variants one run covers
type GenerateMissingRequest struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,gte=1,lte=1000"`
}

// BarcodeHandler handles HTTP requests for barcode assignment
type BarcodeHandler struct {
	barcodeService service.BarcodeService
	logger         *zap.Logger
}

// NewBarcodeHandler creates a new BarcodeHandler
func NewBarcodeHandler(barcodeService service.BarcodeService, logger *zap.Logger) *BarcodeHandler {
	return &BarcodeHandler{
		barcodeService: barcodeService,
		logger:         logger,
	}
}

// RegisterRoutes registers all barcode routes
func (h *BarcodeHandler) RegisterRoutes(r chi.Router, authMiddleware, permissionMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/barcodes", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(permissionMiddleware)

		r.Post("/variants/{variantID}", h.GenerateForVariant)
		r.Get("/variants/{variantID}", h.GetByVariant)
		r.Post("/generate-missing", h.GenerateMissing)
	})
}

// GenerateForVariant assigns the variant its deterministic barcode
func (h *BarcodeHandler) GenerateForVariant(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid variant ID")
		return
	}

	record, err := h.barcodeService.GenerateForVariant(r.Context(), variantID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBarcodeExists):
			middleware.RespondWithError(w, http.StatusConflict, "variant already has a barcode")
		case errors.Is(err, repository.ErrVariantNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "variant not found")
		default:
			h.logger.Error("Failed to generate barcode",
				zap.String("variant_id", variantID.String()),
				zap.Error(err),
			)
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to generate barcode")
		}
		return
	}

	h.logger.Info("Barcode generated",
		zap.String("variant_id", variantID.String()),
		zap.String("barcode", record.Number),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, record)
}

// GetByVariant retrieves the barcode assigned to a variant
func (h *BarcodeHandler) GetByVariant(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid variant ID")
		return
	}

	record, err := h.barcodeService.GetByVariant(r.Context(), variantID)
	if err != nil {
		if errors.Is(err, repository.ErrBarcodeNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "no barcode assigned to this variant")
			return
		}
		h.logger.Error("Failed to get barcode", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get barcode")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, record)
}

// GenerateMissing assigns barcodes to every variant that has none yet
func (h *BarcodeHandler) GenerateMissing(w http.ResponseWriter, r *http.Request) {
	var req GenerateMissingRequest
	if r.ContentLength > 0 {
		if err := middleware.DecodeAndValidate(r, &req); err != nil {
			if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
				middleware.RespondWithValidationErrors(w, validationErrors)
				return
			}
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.barcodeService.GenerateMissing(r.Context(), req.Limit)
	if err != nil {
		h.logger.Error("Bulk barcode generation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to generate barcodes")
		return
	}

	h.logger.Info("Bulk barcode generation finished",
		zap.Int("generated", result.Generated),
		zap.Int("failed", result.Failed),
	)
	middleware.RespondWithJSON(w, http.StatusOK, result)
}
