package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound     = errors.New("scan session not found")
	ErrActiveSessionExists = errors.New("user already has an active scan session")
	ErrNoActiveSession     = errors.New("no active scan session for user")
)

// SessionRepository defines the interface for scan session data access.
// The item list is serialized to JSON only at this boundary; callers
// always work with the ordered slice.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.ScanSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ScanSession, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.ScanSession, error)
	UpdateItems(ctx context.Context, sessionID uuid.UUID, items []domain.SessionItem) error
	Close(ctx context.Context, sessionID uuid.UUID, status domain.SessionStatus) error
	CancelStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new instance of SessionRepository
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new active session. The partial unique index on
// (user_id) WHERE status = 'active' is the authority for the
// one-active-session-per-user invariant; a violation surfaces as
// ErrActiveSessionExists even when two starts race past the pre-check.
func (r *sessionRepository) Create(ctx context.Context, session *domain.ScanSession) error {
	itemsJSON, err := json.Marshal(session.Items)
	if err != nil {
		return fmt.Errorf("failed to serialize session items: %w", err)
	}

	query := `
		INSERT INTO scan_sessions (id, user_id, mode, items, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.Mode,
		itemsJSON,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveSessionExists
		}
		return fmt.Errorf("failed to create scan session: %w", err)
	}

	return nil
}

// FindByID retrieves a session by ID
func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ScanSession, error) {
	query := `
		SELECT id, user_id, mode, items, status, created_at, updated_at
		FROM scan_sessions
		WHERE id = $1
	`

	session, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return session, nil
}

// FindActiveByUser retrieves the user's single active session, or
// ErrNoActiveSession when none exists.
func (r *sessionRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.ScanSession, error) {
	query := `
		SELECT id, user_id, mode, items, status, created_at, updated_at
		FROM scan_sessions
		WHERE user_id = $1 AND status = 'active'
	`

	session, err := r.scanOne(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	return session, nil
}

// UpdateItems persists the full ordered item list for a session
func (r *sessionRepository) UpdateItems(ctx context.Context, sessionID uuid.UUID, items []domain.SessionItem) error {
	if items == nil {
		items = []domain.SessionItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to serialize session items: %w", err)
	}

	query := `UPDATE scan_sessions SET items = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, sessionID, itemsJSON)
	if err != nil {
		return fmt.Errorf("failed to update session items: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// Close moves a session to a terminal status (confirmed or cancelled)
func (r *sessionRepository) Close(ctx context.Context, sessionID uuid.UUID, status domain.SessionStatus) error {
	query := `UPDATE scan_sessions SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, sessionID, status)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// CancelStale flips active sessions older than the threshold to
// cancelled so an abandoned client cannot block future starts.
// Terminal sessions are untouched.
func (r *sessionRepository) CancelStale(ctx context.Context, olderThan time.Duration) (int, error) {
	query := `
		UPDATE scan_sessions
		SET status = 'cancelled', updated_at = NOW()
		WHERE status = 'active' AND created_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to cancel stale sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func (r *sessionRepository) scanOne(row *sql.Row) (*domain.ScanSession, error) {
	session := &domain.ScanSession{}
	var itemsJSON []byte

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Mode,
		&itemsJSON,
		&session.Status,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &session.Items); err != nil {
			return nil, fmt.Errorf("failed to decode session items: %w", err)
		}
	}
	if session.Items == nil {
		session.Items = []domain.SessionItem{}
	}

	return session, nil
}
