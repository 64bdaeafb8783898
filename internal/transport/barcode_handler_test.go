package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"stockroom/internal/barcode"
	"stockroom/internal/domain"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockBarcodeRepository struct {
	byVariant map[uuid.UUID]*domain.Barcode
	byNumber  map[string]*domain.Barcode
}

func newMockBarcodeRepository() *mockBarcodeRepository {
	return &mockBarcodeRepository{
		byVariant: make(map[uuid.UUID]*domain.Barcode),
		byNumber:  make(map[string]*domain.Barcode),
	}
}

func (m *mockBarcodeRepository) Create(ctx context.Context, record *domain.Barcode) error {
	if _, exists := m.byVariant[record.VariantID]; exists {
		return repository.ErrBarcodeExists
	}
	if _, exists := m.byNumber[record.Number]; exists {
		return repository.ErrBarcodeExists
	}
	m.byVariant[record.VariantID] = record
	m.byNumber[record.Number] = record
	return nil
}

func (m *mockBarcodeRepository) FindByVariant(ctx context.Context, variantID uuid.UUID) (*domain.Barcode, error) {
	record, exists := m.byVariant[variantID]
	if !exists {
		return nil, repository.ErrBarcodeNotFound
	}
	return record, nil
}

func (m *mockBarcodeRepository) FindByNumber(ctx context.Context, number string) (*domain.Barcode, error) {
	record, exists := m.byNumber[number]
	if !exists {
		return nil, repository.ErrBarcodeNotFound
	}
	return record, nil
}

func (m *mockBarcodeRepository) UpdateImageRef(ctx context.Context, variantID uuid.UUID, imageRef string) error {
	record, exists := m.byVariant[variantID]
	if !exists {
		return repository.ErrBarcodeNotFound
	}
	record.ImageRef = imageRef
	return nil
}

func newBarcodeTestRouter(userID uuid.UUID) (*chi.Mux, *mockBarcodeRepository, *mockVariantRepository) {
	barcodeRepo := newMockBarcodeRepository()
	variantRepo := newMockVariantRepository()

	barcodeService := service.NewBarcodeService(barcodeRepo, variantRepo, nil)
	handler := NewBarcodeHandler(barcodeService, zap.NewNop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router, userMiddleware(userID), passthrough)
	return router, barcodeRepo, variantRepo
}

func TestGenerateForVariantEndpoint(t *testing.T) {
	router, _, variantRepo := newBarcodeTestRouter(uuid.New())

	variant := &domain.Variant{
		ID:           uuid.New(),
		ProductCode:  "SL-001",
		ColorName:    "Black",
		CurrentStock: 10,
	}
	variantRepo.variants[variant.ID] = variant

	rec := doJSON(t, router, http.MethodPost, "/api/barcodes/variants/"+variant.ID.String(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	var record domain.Barcode
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if record.Number != "7986439505985" {
		t.Errorf("number = %q, want 7986439505985", record.Number)
	}
	if !barcode.Validate(record.Number) {
		t.Errorf("generated number %q does not validate", record.Number)
	}

	// Second generation for the same variant conflicts
	rec = doJSON(t, router, http.MethodPost, "/api/barcodes/variants/"+variant.ID.String(), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second generation status = %d, want 409", rec.Code)
	}
}

func TestGenerateForUnknownVariantEndpoint(t *testing.T) {
	router, _, _ := newBarcodeTestRouter(uuid.New())

	rec := doJSON(t, router, http.MethodPost, "/api/barcodes/variants/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/barcodes/variants/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed ID status = %d, want 400", rec.Code)
	}
}

func TestGetBarcodeByVariantEndpoint(t *testing.T) {
	router, barcodeRepo, variantRepo := newBarcodeTestRouter(uuid.New())

	variant := &domain.Variant{
		ID:           uuid.New(),
		ProductCode:  "SL-001",
		ColorName:    "Black",
		CurrentStock: 10,
	}
	variantRepo.variants[variant.ID] = variant
	barcodeRepo.byVariant[variant.ID] = &domain.Barcode{
		ID:        uuid.New(),
		VariantID: variant.ID,
		Number:    "7986439505985",
	}

	rec := doJSON(t, router, http.MethodGet, "/api/barcodes/variants/"+variant.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/barcodes/variants/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unassigned variant status = %d, want 404", rec.Code)
	}
}

func TestGenerateMissingEndpoint(t *testing.T) {
	router, barcodeRepo, variantRepo := newBarcodeTestRouter(uuid.New())

	first := &domain.Variant{ID: uuid.New(), ProductCode: "SL-001", ColorName: "White", CurrentStock: 5}
	second := &domain.Variant{ID: uuid.New(), ProductCode: "SL-002", ColorName: "Red", CurrentStock: 3}
	variantRepo.variants[first.ID] = first
	variantRepo.variants[second.ID] = second

	rec := doJSON(t, router, http.MethodPost, "/api/barcodes/generate-missing", GenerateMissingRequest{Limit: 100})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var result service.BulkGenerateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Generated != 2 || result.Failed != 0 {
		t.Errorf("generated=%d failed=%d, want 2/0", result.Generated, result.Failed)
	}
	if len(barcodeRepo.byVariant) != 2 {
		t.Errorf("stored barcodes = %d, want 2", len(barcodeRepo.byVariant))
	}
}
