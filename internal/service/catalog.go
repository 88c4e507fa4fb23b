package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/nmalenkov/storefront/internal/events"
	"github.com/nmalenkov/storefront/internal/models"
	"github.com/nmalenkov/storefront/internal/repo"
	"github.com/nmalenkov/storefront/internal/search"
	"github.com/nmalenkov/storefront/internal/transport"
	"github.com/nmalenkov/storefront/pkg/logging"
)

type CatalogService struct {
	Repo     *repo.GormRepo
	Producer *events.Producer
	Index    *search.Index
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, offset, limit)
}

func (s *CatalogService) Stock(ctx context.Context, productID uint, variantID *uint) (uint, error) {
	stock, err := s.Repo.Stock(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: stock target", ErrNotFound)
		}
		return 0, err
	}
	return stock, nil
}

// ReduceStock applies a clamped decrement: the counter drops by qty or
// to zero, whichever comes first. Used by fulfillment and debug paths.
func (s *CatalogService) ReduceStock(ctx context.Context, req transport.ReduceStockRequest) (uint, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.reduce_stock")

	stock, err := s.Repo.ReduceStock(ctx, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: stock target", ErrNotFound)
		}
		return 0, err
	}

	if err := s.Producer.PublishEvent(ctx, events.TopicProductEvents, fmt.Sprint(req.ProductID), map[string]any{
		"type":       "stock_adjusted",
		"product_id": req.ProductID,
		"variant_id": req.VariantID,
		"quantity":   req.Quantity,
		"stock":      stock,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}

	return stock, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	for _, v := range req.Variants {
		if v.Price.IsNegative() {
			return nil, fmt.Errorf("%w: variant price cannot be negative", ErrValidation)
		}
		prod.Variants = append(prod.Variants, models.Variant{
			Name:  v.Name,
			Price: v.Price,
			Stock: v.Stock,
		})
	}

	if err := s.Repo.CreateProduct(ctx, &prod); err != nil {
		return nil, err
	}

	s.syncIndex(ctx, l, &prod)
	if err := s.Producer.PublishEvent(ctx, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]any{
		"type":       "product_created",
		"product_id": prod.ID,
		"name":       prod.Name,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}

	return &prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uint) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.patch_product")

	if req.Price != nil && req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}

	prod, err := s.Repo.PatchProduct(ctx, id, repo.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}

	s.syncIndex(ctx, l, prod)
	if err := s.Producer.PublishEvent(ctx, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]any{
		"type":       "product_updated",
		"product_id": prod.ID,
		"name":       prod.Name,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}

	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_product")

	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return err
	}

	if err := s.Index.DeleteProduct(ctx, id); err != nil {
		l.Warn("index delete failed", "error", err)
	}
	if err := s.Producer.PublishEvent(ctx, events.TopicProductEvents, fmt.Sprint(id), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}

	return nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	return s.Index.Search(ctx, query, from, size)
}

func (s *CatalogService) syncIndex(ctx context.Context, l *slog.Logger, prod *models.Product) {
	if err := s.Index.IndexProduct(ctx, prod); err != nil {
		l.Warn("index sync failed", "error", err)
	}
}
