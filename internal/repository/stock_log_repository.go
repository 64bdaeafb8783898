package repository

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/domain"
)

// StockLogRepository defines the interface for the append-only stock
// audit log. Entries are never updated or deleted.
type StockLogRepository interface {
	Append(ctx context.Context, entry *domain.StockLog) error
	List(ctx context.Context, operationFilter string, limit int) ([]*domain.StockLog, error)
}

type stockLogRepository struct {
	db *sql.DB
}

// NewStockLogRepository creates a new instance of StockLogRepository
func NewStockLogRepository(db *sql.DB) StockLogRepository {
	return &stockLogRepository{db: db}
}

// Append inserts one audit entry
func (r *stockLogRepository) Append(ctx context.Context, entry *domain.StockLog) error {
	query := `
		INSERT INTO stock_logs (id, operation_type, variant_id, product_code, color_name,
			old_value, new_value, change_amount, username, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.OperationType,
		entry.VariantID,
		entry.ProductCode,
		entry.ColorName,
		entry.OldValue,
		entry.NewValue,
		entry.ChangeAmount,
		entry.Username,
		entry.Notes,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append stock log: %w", err)
	}

	return nil
}

// List retrieves recent audit entries, newest first, optionally
// filtered by operation type.
func (r *stockLogRepository) List(ctx context.Context, operationFilter string, limit int) ([]*domain.StockLog, error) {
	query := `
		SELECT id, operation_type, variant_id, product_code, color_name,
			old_value, new_value, change_amount, username, notes, created_at
		FROM stock_logs
	`
	args := []interface{}{}

	if operationFilter != "" {
		query += ` WHERE operation_type = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, operationFilter, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock logs: %w", err)
	}
	defer rows.Close()

	entries := []*domain.StockLog{}
	for rows.Next() {
		entry := &domain.StockLog{}
		err := rows.Scan(
			&entry.ID,
			&entry.OperationType,
			&entry.VariantID,
			&entry.ProductCode,
			&entry.ColorName,
			&entry.OldValue,
			&entry.NewValue,
			&entry.ChangeAmount,
			&entry.Username,
			&entry.Notes,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock logs: %w", err)
	}

	return entries, nil
}
