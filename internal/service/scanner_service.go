package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/barcode"
	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/google/uuid"
)

// Operation labels recorded in the audit log.
const (
	OperationBarcodeAdd    = "Barcode Scan - Add"
	OperationBarcodeRemove = "Barcode Scan - Remove"
)

var (
	ErrInvalidMode      = errors.New("session mode must be 'add' or 'remove'")
	ErrSessionNotActive = errors.New("scan session is no longer active")
	ErrEmptySession     = errors.New("scan session has no items")
)

// ScannedItem is the result of one successful scan: the resolved
// variant and its accumulated quantity within the session.
type ScannedItem struct {
	Variant  *domain.Variant `json:"variant"`
	Quantity int             `json:"quantity"`
}

// ScannerService drives the per-user scan-session state machine and the
// reconciliation that applies a confirmed session to stock.
type ScannerService interface {
	Start(ctx context.Context, userID uuid.UUID, mode domain.SessionMode) (*domain.ScanSession, error)
	ActiveSession(ctx context.Context, userID uuid.UUID) (*domain.ScanSession, error)
	Scan(ctx context.Context, sessionID uuid.UUID, rawBarcode string) (*ScannedItem, error)
	UpdateItem(ctx context.Context, sessionID, variantID uuid.UUID, quantity int) (*domain.ScanSession, error)
	ReplaceItems(ctx context.Context, sessionID uuid.UUID, items []domain.SessionItem) (*domain.ScanSession, error)
	RemoveItem(ctx context.Context, sessionID, variantID uuid.UUID) (*domain.ScanSession, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
	Confirm(ctx context.Context, sessionID uuid.UUID, actor string) (int, error)
	Cancel(ctx context.Context, sessionID uuid.UUID) error
	CleanupStale(ctx context.Context, olderThan time.Duration) (int, error)
	Lookup(ctx context.Context, rawBarcode string) (*domain.Variant, error)
}

type scannerService struct {
	sessionRepo  repository.SessionRepository
	variantRepo  repository.VariantRepository
	stockLogRepo repository.StockLogRepository
}

// NewScannerService creates a new instance of ScannerService
func NewScannerService(
	sessionRepo repository.SessionRepository,
	variantRepo repository.VariantRepository,
	stockLogRepo repository.StockLogRepository,
) ScannerService {
	return &scannerService{
		sessionRepo:  sessionRepo,
		variantRepo:  variantRepo,
		stockLogRepo: stockLogRepo,
	}
}

// Start opens a new active session for the user. The pre-check gives a
// friendly conflict for the common case; the store's unique constraint
// closes the race between two concurrent starts.
func (s *scannerService) Start(ctx context.Context, userID uuid.UUID, mode domain.SessionMode) (*domain.ScanSession, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	existing, err := s.sessionRepo.FindActiveByUser(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNoActiveSession) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrActiveSessionExists
	}

	session := &domain.ScanSession{
		ID:        uuid.New(),
		UserID:    userID,
		Mode:      mode,
		Items:     []domain.SessionItem{},
		Status:    domain.SessionStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// ActiveSession retrieves the user's current active session so a
// reconnecting client can resume it.
func (s *scannerService) ActiveSession(ctx context.Context, userID uuid.UUID) (*domain.ScanSession, error) {
	return s.sessionRepo.FindActiveByUser(ctx, userID)
}

// Scan normalizes the raw code, resolves it to a variant, and
// increments that variant's quantity in the session (appending a new
// entry on first scan). A lookup miss leaves the item list untouched.
func (s *scannerService) Scan(ctx context.Context, sessionID uuid.UUID, rawBarcode string) (*ScannedItem, error) {
	session, err := s.activeSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	code := barcode.Normalize(rawBarcode)
	if code == "" {
		return nil, fmt.Errorf("%w: empty barcode", barcode.ErrInvalidBarcode)
	}

	variant, err := s.variantRepo.FindByBarcode(ctx, code)
	if err != nil {
		return nil, err
	}

	quantity := 1
	found := false
	for i := range session.Items {
		if session.Items[i].VariantID == variant.ID {
			session.Items[i].Quantity++
			quantity = session.Items[i].Quantity
			found = true
			break
		}
	}
	if !found {
		session.Items = append(session.Items, domain.SessionItem{VariantID: variant.ID, Quantity: 1})
	}

	if err := s.sessionRepo.UpdateItems(ctx, session.ID, session.Items); err != nil {
		return nil, err
	}

	return &ScannedItem{Variant: variant, Quantity: quantity}, nil
}

// UpdateItem replaces one item's quantity, clamped to a minimum of 1.
func (s *scannerService) UpdateItem(ctx context.Context, sessionID, variantID uuid.UUID, quantity int) (*domain.ScanSession, error) {
	session, err := s.activeSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range session.Items {
		if session.Items[i].VariantID == variantID {
			session.Items[i].Quantity = clampQuantity(quantity)
			found = true
			break
		}
	}
	if !found {
		return nil, repository.ErrVariantNotFound
	}

	if err := s.sessionRepo.UpdateItems(ctx, session.ID, session.Items); err != nil {
		return nil, err
	}

	return session, nil
}

// ReplaceItems swaps in a whole new item list (bulk quantity editing).
// Quantities below 1 are clamped to 1. A variant listed more than once
// collapses into a single entry at its first position; the last
// quantity wins, same as the bulk stock path.
func (s *scannerService) ReplaceItems(ctx context.Context, sessionID uuid.UUID, items []domain.SessionItem) (*domain.ScanSession, error) {
	session, err := s.activeSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	replaced := make([]domain.SessionItem, 0, len(items))
	position := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if i, seen := position[item.VariantID]; seen {
			replaced[i].Quantity = clampQuantity(item.Quantity)
			continue
		}
		position[item.VariantID] = len(replaced)
		replaced = append(replaced, domain.SessionItem{
			VariantID: item.VariantID,
			Quantity:  clampQuantity(item.Quantity),
		})
	}
	session.Items = replaced

	if err := s.sessionRepo.UpdateItems(ctx, session.ID, session.Items); err != nil {
		return nil, err
	}

	return session, nil
}

// RemoveItem deletes the matching item from the session; removing an
// absent variant is a no-op.
func (s *scannerService) RemoveItem(ctx context.Context, sessionID, variantID uuid.UUID) (*domain.ScanSession, error) {
	session, err := s.activeSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	filtered := session.Items[:0]
	for _, item := range session.Items {
		if item.VariantID != variantID {
			filtered = append(filtered, item)
		}
	}
	session.Items = filtered

	if err := s.sessionRepo.UpdateItems(ctx, session.ID, session.Items); err != nil {
		return nil, err
	}

	return session, nil
}

// Clear empties the session's item list; the session stays active.
func (s *scannerService) Clear(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.activeSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}

	return s.sessionRepo.UpdateItems(ctx, session.ID, []domain.SessionItem{})
}

// Confirm applies the session's accumulated quantities to stock in one
// all-or-nothing transaction, appends one audit entry per changed
// variant, and moves the session to confirmed. On any persistence
// failure the session stays active and Confirm may be retried; deltas
// are always recomputed against the committed stock, so retries are
// idempotent.
func (s *scannerService) Confirm(ctx context.Context, sessionID uuid.UUID, actor string) (int, error) {
	session, err := s.activeSessionByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if len(session.Items) == 0 {
		return 0, ErrEmptySession
	}

	// Each variant must appear in the batch exactly once: a repeated ID
	// would re-read its own in-transaction write and apply the quantity
	// a second time. Duplicate stored items collapse last-wins here.
	quantities := make(map[uuid.UUID]int, len(session.Items))
	variantIDs := make([]uuid.UUID, 0, len(session.Items))
	for _, item := range session.Items {
		if _, seen := quantities[item.VariantID]; !seen {
			variantIDs = append(variantIDs, item.VariantID)
		}
		quantities[item.VariantID] = item.Quantity
	}

	mode := session.Mode
	changes, err := s.variantRepo.UpdateStockBatch(ctx, variantIDs, func(id uuid.UUID, current int) int {
		if mode == domain.SessionModeAdd {
			return current + quantities[id]
		}
		next := current - quantities[id]
		if next < 0 {
			next = 0
		}
		return next
	})
	if err != nil {
		// Transaction rolled back; the session stays active for retry.
		return 0, err
	}

	operation := OperationBarcodeAdd
	verb := "increased"
	if mode == domain.SessionModeRemove {
		operation = OperationBarcodeRemove
		verb = "decreased"
	}

	var logErrs []error
	for _, change := range changes {
		entry := &domain.StockLog{
			ID:            uuid.New(),
			OperationType: operation,
			VariantID:     change.VariantID,
			ProductCode:   change.ProductCode,
			ColorName:     change.ColorName,
			OldValue:      change.OldStock,
			NewValue:      change.NewStock,
			ChangeAmount:  change.Delta(),
			Username:      actor,
			Notes:         fmt.Sprintf("Stock %s by %d units via barcode scanner", verb, quantities[change.VariantID]),
			CreatedAt:     time.Now(),
		}
		if err := s.stockLogRepo.Append(ctx, entry); err != nil {
			logErrs = append(logErrs, err)
		}
	}

	if err := s.sessionRepo.Close(ctx, session.ID, domain.SessionStatusConfirmed); err != nil {
		logErrs = append(logErrs, err)
	}

	if len(logErrs) > 0 {
		// Stock is committed at this point; report the failures without
		// pretending the reconciliation didn't happen.
		return len(changes), fmt.Errorf("stock applied but post-commit bookkeeping failed: %w", errors.Join(logErrs...))
	}

	return len(changes), nil
}

// Cancel moves the session to cancelled, discarding its items without
// touching stock.
func (s *scannerService) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.activeSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}

	return s.sessionRepo.Close(ctx, session.ID, domain.SessionStatusCancelled)
}

// CleanupStale cancels active sessions older than the threshold.
func (s *scannerService) CleanupStale(ctx context.Context, olderThan time.Duration) (int, error) {
	return s.sessionRepo.CancelStale(ctx, olderThan)
}

// Lookup resolves a barcode to a variant snapshot without touching any
// session or stock.
func (s *scannerService) Lookup(ctx context.Context, rawBarcode string) (*domain.Variant, error) {
	code := barcode.Normalize(rawBarcode)
	if !barcode.Validate(code) {
		return nil, barcode.ErrInvalidBarcode
	}

	return s.variantRepo.FindByBarcode(ctx, code)
}

func (s *scannerService) activeSessionByID(ctx context.Context, sessionID uuid.UUID) (*domain.ScanSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusActive {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionNotActive, session.Status)
	}
	return session, nil
}

func clampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
