package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/google/uuid"
)

// OperationBulkUpdate labels manual multi-variant stock edits in the audit log.
const OperationBulkUpdate = "Bulk Update"

var ErrInvalidVariant = errors.New("product code and color name are required")

// StockUpdate is one explicit stock assignment in a bulk manual edit.
type StockUpdate struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	NewStock  int       `json:"new_stock" validate:"gte=0"`
}

// InventoryService covers variant intake and the manual bulk stock-edit
// path, which shares the reconciliation transaction with the scanner.
type InventoryService interface {
	CreateVariant(ctx context.Context, productCode, colorName string, initialStock int, imageURL string) (*domain.Variant, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error)
	ListVariants(ctx context.Context, search string, page, pageSize int) ([]*domain.Variant, int, error)
	BulkUpdateStock(ctx context.Context, updates []StockUpdate, actor string) (int, error)
	ListStockLogs(ctx context.Context, operationFilter string, limit int) ([]*domain.StockLog, error)
}

type inventoryService struct {
	variantRepo  repository.VariantRepository
	stockLogRepo repository.StockLogRepository
}

// NewInventoryService creates a new instance of InventoryService
func NewInventoryService(
	variantRepo repository.VariantRepository,
	stockLogRepo repository.StockLogRepository,
) InventoryService {
	return &inventoryService{
		variantRepo:  variantRepo,
		stockLogRepo: stockLogRepo,
	}
}

// CreateVariant registers a new product/color pair with its opening stock
func (s *inventoryService) CreateVariant(ctx context.Context, productCode, colorName string, initialStock int, imageURL string) (*domain.Variant, error) {
	if productCode == "" || colorName == "" {
		return nil, ErrInvalidVariant
	}
	if initialStock < 0 {
		initialStock = 0
	}

	variant := &domain.Variant{
		ID:           uuid.New(),
		ProductCode:  productCode,
		ColorName:    colorName,
		CurrentStock: initialStock,
		ImageURL:     imageURL,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.variantRepo.Create(ctx, variant); err != nil {
		return nil, err
	}

	return variant, nil
}

// GetVariant retrieves a variant by ID
func (s *inventoryService) GetVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	return s.variantRepo.FindByID(ctx, id)
}

// ListVariants retrieves variants with search and pagination
func (s *inventoryService) ListVariants(ctx context.Context, search string, page, pageSize int) ([]*domain.Variant, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return s.variantRepo.List(ctx, search, pageSize, (page-1)*pageSize)
}

// BulkUpdateStock assigns explicit stock values to many variants in the
// same single-transaction, skip-log-if-unchanged discipline as a
// confirmed scan session. Returns the number of variants whose stock
// actually changed.
func (s *inventoryService) BulkUpdateStock(ctx context.Context, updates []StockUpdate, actor string) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	targets := make(map[uuid.UUID]int, len(updates))
	variantIDs := make([]uuid.UUID, 0, len(updates))
	for _, update := range updates {
		if _, seen := targets[update.VariantID]; !seen {
			variantIDs = append(variantIDs, update.VariantID)
		}
		targets[update.VariantID] = update.NewStock
	}

	changes, err := s.variantRepo.UpdateStockBatch(ctx, variantIDs, func(id uuid.UUID, current int) int {
		return targets[id]
	})
	if err != nil {
		return 0, err
	}

	for _, change := range changes {
		entry := &domain.StockLog{
			ID:            uuid.New(),
			OperationType: OperationBulkUpdate,
			VariantID:     change.VariantID,
			ProductCode:   change.ProductCode,
			ColorName:     change.ColorName,
			OldValue:      change.OldStock,
			NewValue:      change.NewStock,
			ChangeAmount:  change.Delta(),
			Username:      actor,
			Notes:         "Bulk inventory update",
			CreatedAt:     time.Now(),
		}
		if err := s.stockLogRepo.Append(ctx, entry); err != nil {
			return len(changes), fmt.Errorf("stock applied but audit logging failed: %w", err)
		}
	}

	return len(changes), nil
}

// ListStockLogs retrieves recent audit entries
func (s *inventoryService) ListStockLogs(ctx context.Context, operationFilter string, limit int) ([]*domain.StockLog, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.stockLogRepo.List(ctx, operationFilter, limit)
}
