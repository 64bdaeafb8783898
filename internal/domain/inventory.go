package domain

import (
	"time"

	"github.com/google/uuid"
)

// Variant represents a single color instance of a base product.
// It is the stock-tracked unit; current_stock is mutated only through
// the reconciliation path.
type Variant struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ProductCode  string    `json:"product_code" db:"product_code"`
	ColorName    string    `json:"color_name" db:"color_name"`
	CurrentStock int       `json:"current_stock" db:"current_stock"`
	ImageURL     string    `json:"image_url" db:"image_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Barcode is the 1:1 EAN-13 assignment for a variant. The number is
// immutable once created; only the image reference may be regenerated.
type Barcode struct {
	ID        uuid.UUID `json:"id" db:"id"`
	VariantID uuid.UUID `json:"variant_id" db:"variant_id"`
	Number    string    `json:"barcode_number" db:"barcode_number"`
	ImageRef  string    `json:"image_ref" db:"image_ref"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StockLog is an append-only audit record of one stock change.
type StockLog struct {
	ID            uuid.UUID `json:"id" db:"id"`
	OperationType string    `json:"operation_type" db:"operation_type"`
	VariantID     uuid.UUID `json:"variant_id" db:"variant_id"`
	ProductCode   string    `json:"product_code" db:"product_code"`
	ColorName     string    `json:"color_name" db:"color_name"`
	OldValue      int       `json:"old_value" db:"old_value"`
	NewValue      int       `json:"new_value" db:"new_value"`
	ChangeAmount  int       `json:"change_amount" db:"change_amount"`
	Username      string    `json:"username" db:"username"`
	Notes         string    `json:"notes" db:"notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// StockChange captures one applied stock transition together with the
// variant snapshot needed for audit logging. Produced inside the
// reconciliation transaction.
type StockChange struct {
	VariantID   uuid.UUID
	ProductCode string
	ColorName   string
	OldStock    int
	NewStock    int
}

// Delta returns the signed stock movement.
func (c StockChange) Delta() int {
	return c.NewStock - c.OldStock
}
