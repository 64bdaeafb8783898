package transport

import (
	"errors"
	"net/http"
	"strconv"

	"stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateVariantRequest represents the variant intake payload
type CreateVariantRequest struct {
	ProductCode  string `json:"product_code" validate:"required,max=64"`
	ColorName    string `json:"color_name" validate:"required,max=64"`
	InitialStock int    `json:"initial_stock" validate:"gte=0"`
	ImageURL     string `json:"image_url,omitempty"`
}

// BulkUpdateRequest carries explicit stock assignments for many variants
type BulkUpdateRequest struct {
	Updates []service.StockUpdate `json:"updates" validate:"required,min=1,dive"`
}

// BulkUpdateResponse reports how many variants actually changed
type BulkUpdateResponse struct {
	UpdatedCount int `json:"updated_count"`
}

// VariantListResponse wraps a paginated variant listing
type VariantListResponse struct {
	Variants interface{} `json:"variants"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// InventoryHandler handles HTTP requests for variants and stock
type InventoryHandler struct {
	inventoryService service.InventoryService
	logger           *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(r chi.Router, authMiddleware, bulkPermission func(http.Handler) http.Handler) {
	r.Route("/api/inventory", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/variants", h.ListVariants)
		r.Post("/variants", h.CreateVariant)
		r.Get("/variants/{id}", h.GetVariant)
		r.With(bulkPermission).Post("/bulk-update", h.BulkUpdate)
		r.Get("/logs", h.ListStockLogs)
	})
}

// ListVariants returns variants with optional search and pagination
func (h *InventoryHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 50)

	variants, total, err := h.inventoryService.ListVariants(r.Context(), search, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list variants", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list variants")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, VariantListResponse{
		Variants: variants,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// CreateVariant registers a new product/color pair
func (h *InventoryHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req CreateVariantRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	variant, err := h.inventoryService.CreateVariant(r.Context(), req.ProductCode, req.ColorName, req.InitialStock, req.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVariant):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrVariantExists):
			middleware.RespondWithError(w, http.StatusConflict, "variant with this product code and color already exists")
		default:
			h.logger.Error("Failed to create variant", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create variant")
		}
		return
	}

	h.logger.Info("Variant created",
		zap.String("variant_id", variant.ID.String()),
		zap.String("product_code", variant.ProductCode),
		zap.String("color_name", variant.ColorName),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, variant)
}

// GetVariant retrieves one variant by ID
func (h *InventoryHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid variant ID")
		return
	}

	variant, err := h.inventoryService.GetVariant(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrVariantNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "variant not found")
			return
		}
		h.logger.Error("Failed to get variant", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get variant")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, variant)
}

// BulkUpdate applies explicit stock values to many variants at once
func (h *InventoryHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := "unknown"
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		actor = userID
	}

	count, err := h.inventoryService.BulkUpdateStock(r.Context(), req.Updates, actor)
	if err != nil {
		if errors.Is(err, repository.ErrVariantNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("Bulk stock update failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update stock")
		return
	}

	h.logger.Info("Bulk stock update applied",
		zap.Int("requested", len(req.Updates)),
		zap.Int("updated_count", count),
	)
	middleware.RespondWithJSON(w, http.StatusOK, BulkUpdateResponse{UpdatedCount: count})
}

// ListStockLogs returns recent audit entries, newest first
func (h *InventoryHandler) ListStockLogs(w http.ResponseWriter, r *http.Request) {
	operation := r.URL.Query().Get("operation")
	limit := queryInt(r, "limit", 100)

	logs, err := h.inventoryService.ListStockLogs(r.Context(), operation, limit)
	if err != nil {
		h.logger.Error("Failed to list stock logs", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list stock logs")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, logs)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
