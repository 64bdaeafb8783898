package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"stockroom/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrVariantNotFound = errors.New("variant not found")
	ErrVariantExists   = errors.New("variant with this product code and color already exists")
)

// StockComputeFunc maps a variant's current stock to its new stock.
// It is invoked inside the reconciliation transaction, after the row
// has been locked, so the input is never stale.
type StockComputeFunc func(variantID uuid.UUID, currentStock int) int

// VariantRepository defines the interface for variant data access.
type VariantRepository interface {
	Create(ctx context.Context, variant *domain.Variant) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Variant, error)
	FindByBarcode(ctx context.Context, barcodeNumber string) (*domain.Variant, error)
	List(ctx context.Context, search string, limit, offset int) ([]*domain.Variant, int, error)
	ListWithoutBarcode(ctx context.Context, limit int) ([]*domain.Variant, error)
	UpdateStockBatch(ctx context.Context, variantIDs []uuid.UUID, compute StockComputeFunc) ([]*domain.StockChange, error)
}

type variantRepository struct {
	db *sql.DB
}

// NewVariantRepository creates a new instance of VariantRepository
func NewVariantRepository(db *sql.DB) VariantRepository {
	return &variantRepository{db: db}
}

// Create inserts a new variant using parameterized queries
func (r *variantRepository) Create(ctx context.Context, variant *domain.Variant) error {
	query := `
		INSERT INTO variants (id, product_code, color_name, current_stock, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		variant.ID,
		variant.ProductCode,
		variant.ColorName,
		variant.CurrentStock,
		variant.ImageURL,
		variant.CreatedAt,
		variant.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrVariantExists
		}
		return fmt.Errorf("failed to create variant: %w", err)
	}

	return nil
}

// FindByID retrieves a variant by ID
func (r *variantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	query := `
		SELECT id, product_code, color_name, current_stock, image_url, created_at, updated_at
		FROM variants
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByBarcode resolves a 13-digit barcode number to its variant.
func (r *variantRepository) FindByBarcode(ctx context.Context, barcodeNumber string) (*domain.Variant, error) {
	query := `
		SELECT v.id, v.product_code, v.color_name, v.current_stock, v.image_url, v.created_at, v.updated_at
		FROM variants v
		JOIN barcodes b ON b.variant_id = v.id
		WHERE b.barcode_number = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, barcodeNumber))
}

// List retrieves variants with optional product code / color search and pagination
func (r *variantRepository) List(ctx context.Context, search string, limit, offset int) ([]*domain.Variant, int, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if strings.TrimSpace(search) != "" {
		whereClause = fmt.Sprintf("WHERE product_code ILIKE $%d OR color_name ILIKE $%d", argIndex, argIndex)
		args = append(args, "%"+search+"%")
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM variants %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count variants: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, product_code, color_name, current_stock, image_url, created_at, updated_at
		FROM variants
		%s
		ORDER BY product_code, color_name
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	variants := []*domain.Variant{}
	for rows.Next() {
		variant := &domain.Variant{}
		err := rows.Scan(
			&variant.ID,
			&variant.ProductCode,
			&variant.ColorName,
			&variant.CurrentStock,
			&variant.ImageURL,
			&variant.CreatedAt,
			&variant.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, variant)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, total, nil
}

// ListWithoutBarcode retrieves variants that have no barcode assigned yet
func (r *variantRepository) ListWithoutBarcode(ctx context.Context, limit int) ([]*domain.Variant, error) {
	query := `
		SELECT v.id, v.product_code, v.color_name, v.current_stock, v.image_url, v.created_at, v.updated_at
		FROM variants v
		LEFT JOIN barcodes b ON b.variant_id = v.id
		WHERE b.id IS NULL
		ORDER BY v.product_code, v.color_name
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants without barcode: %w", err)
	}
	defer rows.Close()

	variants := []*domain.Variant{}
	for rows.Next() {
		variant := &domain.Variant{}
		err := rows.Scan(
			&variant.ID,
			&variant.ProductCode,
			&variant.ColorName,
			&variant.CurrentStock,
			&variant.ImageURL,
			&variant.CreatedAt,
			&variant.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, variant)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}

// UpdateStockBatch applies stock changes to the given variants inside a
// single transaction. Each row is locked and read, the new value is
// computed from the just-read stock, and only rows whose value actually
// changes are written. Any failure rolls back the whole batch; partial
// application never happens. The returned changes carry the old/new
// snapshot for audit logging and exclude no-ops.
func (r *variantRepository) UpdateStockBatch(ctx context.Context, variantIDs []uuid.UUID, compute StockComputeFunc) ([]*domain.StockChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin stock transaction: %w", err)
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT product_code, color_name, current_stock
		FROM variants
		WHERE id = $1
		FOR UPDATE
	`
	updateQuery := `UPDATE variants SET current_stock = $2, updated_at = NOW() WHERE id = $1`

	changes := []*domain.StockChange{}
	for _, id := range variantIDs {
		var productCode, colorName string
		var currentStock int

		err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&productCode, &colorName, &currentStock)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, id)
			}
			return nil, fmt.Errorf("failed to read stock for variant %s: %w", id, err)
		}

		newStock := compute(id, currentStock)
		if newStock < 0 {
			newStock = 0
		}
		if newStock == currentStock {
			// No-op: counted by the caller but never written or logged.
			continue
		}

		if _, err := tx.ExecContext(ctx, updateQuery, id, newStock); err != nil {
			return nil, fmt.Errorf("failed to update stock for variant %s: %w", id, err)
		}

		changes = append(changes, &domain.StockChange{
			VariantID:   id,
			ProductCode: productCode,
			ColorName:   colorName,
			OldStock:    currentStock,
			NewStock:    newStock,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stock transaction: %w", err)
	}

	return changes, nil
}

func (r *variantRepository) scanOne(row *sql.Row) (*domain.Variant, error) {
	variant := &domain.Variant{}
	err := row.Scan(
		&variant.ID,
		&variant.ProductCode,
		&variant.ColorName,
		&variant.CurrentStock,
		&variant.ImageURL,
		&variant.CreatedAt,
		&variant.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to find variant: %w", err)
	}

	return variant, nil
}
