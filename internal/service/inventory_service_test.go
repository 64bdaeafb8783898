package service

import (
	"context"
	"errors"
	"testing"

	"stockroom/internal/repository"

	"github.com/google/uuid"
)

func newTestInventory() (InventoryService, *mockVariantRepository, *mockStockLogRepository) {
	variantRepo := newMockVariantRepository()
	stockLogRepo := newMockStockLogRepository()
	return NewInventoryService(variantRepo, stockLogRepo), variantRepo, stockLogRepo
}

func TestCreateVariantRejectsEmptyFields(t *testing.T) {
	svc, _, _ := newTestInventory()
	ctx := context.Background()

	if _, err := svc.CreateVariant(ctx, "", "Black", 5, ""); !errors.Is(err, ErrInvalidVariant) {
		t.Errorf("expected ErrInvalidVariant for empty product code, got %v", err)
	}
	if _, err := svc.CreateVariant(ctx, "SL-001", "", 5, ""); !errors.Is(err, ErrInvalidVariant) {
		t.Errorf("expected ErrInvalidVariant for empty color, got %v", err)
	}
}

func TestCreateVariantClampsNegativeStock(t *testing.T) {
	svc, _, _ := newTestInventory()

	variant, err := svc.CreateVariant(context.Background(), "SL-001", "Black", -3, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if variant.CurrentStock != 0 {
		t.Errorf("stock = %d, want 0", variant.CurrentStock)
	}
}

func TestCreateVariantRejectsDuplicatePair(t *testing.T) {
	svc, _, _ := newTestInventory()
	ctx := context.Background()

	if _, err := svc.CreateVariant(ctx, "SL-001", "Black", 5, ""); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.CreateVariant(ctx, "SL-001", "Black", 7, "")
	if !errors.Is(err, repository.ErrVariantExists) {
		t.Errorf("expected ErrVariantExists, got %v", err)
	}
}

func TestBulkUpdateStockAppliesAssignmentsAndLogs(t *testing.T) {
	svc, variantRepo, stockLogRepo := newTestInventory()
	ctx := context.Background()

	first := testVariant("SL-001", "Black", 10)
	second := testVariant("SL-002", "Red", 3)
	variantRepo.variants[first.ID] = first
	variantRepo.variants[second.ID] = second

	count, err := svc.BulkUpdateStock(ctx, []StockUpdate{
		{VariantID: first.ID, NewStock: 25},
		{VariantID: second.ID, NewStock: 0},
	}, "tester")
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if count != 2 {
		t.Errorf("updated count = %d, want 2", count)
	}

	if first.CurrentStock != 25 || second.CurrentStock != 0 {
		t.Errorf("stocks = %d/%d, want 25/0", first.CurrentStock, second.CurrentStock)
	}

	if len(stockLogRepo.entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(stockLogRepo.entries))
	}
	for _, entry := range stockLogRepo.entries {
		if entry.OperationType != OperationBulkUpdate {
			t.Errorf("operation = %q, want %q", entry.OperationType, OperationBulkUpdate)
		}
		if entry.Notes != "Bulk inventory update" {
			t.Errorf("unexpected notes: %q", entry.Notes)
		}
		if entry.Username != "tester" {
			t.Errorf("username = %q, want tester", entry.Username)
		}
	}
}

func TestBulkUpdateStockSkipsUnchangedVariants(t *testing.T) {
	svc, variantRepo, stockLogRepo := newTestInventory()
	ctx := context.Background()

	unchanged := testVariant("SL-001", "Black", 10)
	changed := testVariant("SL-002", "Red", 3)
	variantRepo.variants[unchanged.ID] = unchanged
	variantRepo.variants[changed.ID] = changed

	count, err := svc.BulkUpdateStock(ctx, []StockUpdate{
		{VariantID: unchanged.ID, NewStock: 10},
		{VariantID: changed.ID, NewStock: 8},
	}, "tester")
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if count != 1 {
		t.Errorf("updated count = %d, want 1 (no-op excluded)", count)
	}
	if len(stockLogRepo.entries) != 1 {
		t.Errorf("audit entries = %d, want 1 (no-op never logged)", len(stockLogRepo.entries))
	}
	if stockLogRepo.entries[0].VariantID != changed.ID {
		t.Error("audit entry written for the unchanged variant")
	}
}

func TestBulkUpdateStockLastAssignmentWinsOnDuplicates(t *testing.T) {
	svc, variantRepo, _ := newTestInventory()
	ctx := context.Background()

	variant := testVariant("SL-001", "Black", 10)
	variantRepo.variants[variant.ID] = variant

	count, err := svc.BulkUpdateStock(ctx, []StockUpdate{
		{VariantID: variant.ID, NewStock: 20},
		{VariantID: variant.ID, NewStock: 30},
	}, "tester")
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if count != 1 {
		t.Errorf("updated count = %d, want 1", count)
	}
	if variant.CurrentStock != 30 {
		t.Errorf("stock = %d, want 30 (last assignment wins)", variant.CurrentStock)
	}
}

func TestBulkUpdateStockEmptyInputIsNoOp(t *testing.T) {
	svc, _, stockLogRepo := newTestInventory()

	count, err := svc.BulkUpdateStock(context.Background(), nil, "tester")
	if err != nil {
		t.Fatalf("empty bulk update failed: %v", err)
	}
	if count != 0 || len(stockLogRepo.entries) != 0 {
		t.Errorf("empty bulk update did work: count=%d entries=%d", count, len(stockLogRepo.entries))
	}
}

func TestBulkUpdateStockUnknownVariantFailsWhole(t *testing.T) {
	svc, variantRepo, stockLogRepo := newTestInventory()
	ctx := context.Background()

	variant := testVariant("SL-001", "Black", 10)
	variantRepo.variants[variant.ID] = variant

	_, err := svc.BulkUpdateStock(ctx, []StockUpdate{
		{VariantID: variant.ID, NewStock: 20},
		{VariantID: uuid.New(), NewStock: 5},
	}, "tester")
	if !errors.Is(err, repository.ErrVariantNotFound) {
		t.Fatalf("expected ErrVariantNotFound, got %v", err)
	}
	if len(stockLogRepo.entries) != 0 {
		t.Errorf("failed bulk update wrote audit entries: %d", len(stockLogRepo.entries))
	}
}

func TestListStockLogsFiltersByOperation(t *testing.T) {
	svc, variantRepo, _ := newTestInventory()
	ctx := context.Background()

	variant := testVariant("SL-001", "Black", 10)
	variantRepo.variants[variant.ID] = variant

	if _, err := svc.BulkUpdateStock(ctx, []StockUpdate{{VariantID: variant.ID, NewStock: 20}}, "tester"); err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}

	logs, err := svc.ListStockLogs(ctx, OperationBulkUpdate, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("filtered logs = %d, want 1", len(logs))
	}

	logs, err = svc.ListStockLogs(ctx, OperationBarcodeAdd, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("filter leaked %d unrelated entries", len(logs))
	}
}
