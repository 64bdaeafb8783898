package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionMode determines how confirmed quantities are applied to stock.
type SessionMode string

const (
	SessionModeAdd    SessionMode = "add"
	SessionModeRemove SessionMode = "remove"
)

// Valid reports whether the mode is one of the two supported modes.
func (m SessionMode) Valid() bool {
	return m == SessionModeAdd || m == SessionModeRemove
}

// SessionStatus is the lifecycle state of a scan session.
// Confirmed and cancelled are terminal.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// SessionItem is one accumulated scan line: a variant and how many times
// it was counted. Quantity is always >= 1.
type SessionItem struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// ScanSession is a bounded, user-owned sequence of barcode scans
// accumulated before being applied to stock. At most one active session
// exists per user; the store enforces this with a partial unique index.
type ScanSession struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	UserID    uuid.UUID     `json:"user_id" db:"user_id"`
	Mode      SessionMode   `json:"mode" db:"mode"`
	Items     []SessionItem `json:"items"`
	Status    SessionStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// TotalQuantity sums the quantities of all items in the session.
func (s *ScanSession) TotalQuantity() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}
