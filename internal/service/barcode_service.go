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

// LabelRenderer turns an encoded barcode number into a printable label
// and returns a reference to the produced artifact. Rendering itself is
// out of scope here; implementations live at the edge.
type LabelRenderer interface {
	Render(number, productCode, colorName string) (string, error)
}

// LabelRendererFunc adapts a function to the LabelRenderer interface.
type LabelRendererFunc func(number, productCode, colorName string) (string, error)

func (f LabelRendererFunc) Render(number, productCode, colorName string) (string, error) {
	return f(number, productCode, colorName)
}

// BulkGenerateResult summarizes a generate-missing run.
type BulkGenerateResult struct {
	Generated int      `json:"generated"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// BarcodeService assigns deterministic EAN-13 numbers to variants.
// A variant gets its number exactly once; regeneration only ever
// touches the label image reference.
type BarcodeService interface {
	GenerateForVariant(ctx context.Context, variantID uuid.UUID) (*domain.Barcode, error)
	GenerateMissing(ctx context.Context, limit int) (*BulkGenerateResult, error)
	GetByVariant(ctx context.Context, variantID uuid.UUID) (*domain.Barcode, error)
}

type barcodeService struct {
	barcodeRepo repository.BarcodeRepository
	variantRepo repository.VariantRepository
	renderer    LabelRenderer
}

// NewBarcodeService creates a new instance of BarcodeService
func NewBarcodeService(
	barcodeRepo repository.BarcodeRepository,
	variantRepo repository.VariantRepository,
	renderer LabelRenderer,
) BarcodeService {
	return &barcodeService{
		barcodeRepo: barcodeRepo,
		variantRepo: variantRepo,
		renderer:    renderer,
	}
}

// GenerateForVariant encodes and stores the variant's barcode. A second
// call for the same variant, or a hash collision with another variant's
// number, surfaces as ErrBarcodeExists from the store.
func (s *barcodeService) GenerateForVariant(ctx context.Context, variantID uuid.UUID) (*domain.Barcode, error) {
	existing, err := s.barcodeRepo.FindByVariant(ctx, variantID)
	if err != nil && !errors.Is(err, repository.ErrBarcodeNotFound) {
		return nil, fmt.Errorf("failed to check existing barcode: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrBarcodeExists
	}

	variant, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		return nil, err
	}

	number, err := barcode.Generate(variant.ProductCode, variant.ColorName)
	if err != nil {
		return nil, err
	}

	imageRef := ""
	if s.renderer != nil {
		imageRef, err = s.renderer.Render(number, variant.ProductCode, variant.ColorName)
		if err != nil {
			return nil, fmt.Errorf("failed to render barcode label: %w", err)
		}
	}

	record := &domain.Barcode{
		ID:        uuid.New(),
		VariantID: variant.ID,
		Number:    number,
		ImageRef:  imageRef,
		CreatedAt: time.Now(),
	}

	if err := s.barcodeRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// GenerateMissing assigns barcodes to variants that have none yet,
// continuing past individual failures.
func (s *barcodeService) GenerateMissing(ctx context.Context, limit int) (*BulkGenerateResult, error) {
	if limit < 1 || limit > 1000 {
		limit = 500
	}

	variants, err := s.variantRepo.ListWithoutBarcode(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &BulkGenerateResult{}
	for _, variant := range variants {
		if _, err := s.GenerateForVariant(ctx, variant.ID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s-%s: %v", variant.ProductCode, variant.ColorName, err))
			continue
		}
		result.Generated++
	}

	return result, nil
}

// GetByVariant retrieves the barcode assigned to a variant
func (s *barcodeService) GetByVariant(ctx context.Context, variantID uuid.UUID) (*domain.Barcode, error) {
	return s.barcodeRepo.FindByVariant(ctx, variantID)
}
