package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stockroom/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrBarcodeNotFound = errors.New("barcode not found")
	ErrBarcodeExists   = errors.New("barcode already exists")
)

// BarcodeRepository defines the interface for barcode data access.
// Numbers are immutable once created; uniqueness of both the variant
// assignment and the number itself is enforced by the schema.
type BarcodeRepository interface {
	Create(ctx context.Context, barcode *domain.Barcode) error
	FindByVariant(ctx context.Context, variantID uuid.UUID) (*domain.Barcode, error)
	FindByNumber(ctx context.Context, number string) (*domain.Barcode, error)
	UpdateImageRef(ctx context.Context, variantID uuid.UUID, imageRef string) error
}

type barcodeRepository struct {
	db *sql.DB
}

// NewBarcodeRepository creates a new instance of BarcodeRepository
func NewBarcodeRepository(db *sql.DB) BarcodeRepository {
	return &barcodeRepository{db: db}
}

// Create inserts a new barcode. A unique violation on either the
// variant or the number surfaces as ErrBarcodeExists; hash collisions
// are rejected here rather than retried.
func (r *barcodeRepository) Create(ctx context.Context, barcode *domain.Barcode) error {
	query := `
		INSERT INTO barcodes (id, variant_id, barcode_number, image_ref, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		barcode.ID,
		barcode.VariantID,
		barcode.Number,
		barcode.ImageRef,
		barcode.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrBarcodeExists
		}
		return fmt.Errorf("failed to create barcode: %w", err)
	}

	return nil
}

// FindByVariant retrieves the barcode assigned to a variant
func (r *barcodeRepository) FindByVariant(ctx context.Context, variantID uuid.UUID) (*domain.Barcode, error) {
	query := `
		SELECT id, variant_id, barcode_number, image_ref, created_at
		FROM barcodes
		WHERE variant_id = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, variantID))
}

// FindByNumber retrieves a barcode by its 13-digit number
func (r *barcodeRepository) FindByNumber(ctx context.Context, number string) (*domain.Barcode, error) {
	query := `
		SELECT id, variant_id, barcode_number, image_ref, created_at
		FROM barcodes
		WHERE barcode_number = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, number))
}

// UpdateImageRef replaces the stored label image reference. The number
// itself is never updated.
func (r *barcodeRepository) UpdateImageRef(ctx context.Context, variantID uuid.UUID, imageRef string) error {
	query := `UPDATE barcodes SET image_ref = $2 WHERE variant_id = $1`

	result, err := r.db.ExecContext(ctx, query, variantID, imageRef)
	if err != nil {
		return fmt.Errorf("failed to update barcode image ref: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBarcodeNotFound
	}

	return nil
}

func (r *barcodeRepository) scanOne(row *sql.Row) (*domain.Barcode, error) {
	barcode := &domain.Barcode{}
	err := row.Scan(
		&barcode.ID,
		&barcode.VariantID,
		&barcode.Number,
		&barcode.ImageRef,
		&barcode.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBarcodeNotFound
		}
		return nil, fmt.Errorf("failed to find barcode: %w", err)
	}

	return barcode, nil
}
