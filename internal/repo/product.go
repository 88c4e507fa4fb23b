package repo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmalenkov/storefront/internal/models"
)

// ProductPatch carries the optional fields of a partial product
// update; nil fields are left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *uint
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Preload("Variants").First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	if err := r.DB.WithContext(ctx).Preload("Variants").Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetVariant(ctx context.Context, id uint) (*models.Variant, error) {
	var variant models.Variant
	if err := r.DB.WithContext(ctx).First(&variant, id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

func (r *GormRepo) PatchProduct(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		return nil, err
	}

	if patch.Name != nil {
		prod.Name = *patch.Name
	}
	if patch.Description != nil {
		prod.Description = *patch.Description
	}
	if patch.Price != nil {
		prod.Price = *patch.Price
	}
	if patch.Stock != nil {
		prod.Stock = *patch.Stock
	}

	if err := r.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Stock returns the current counter for a product, or for one of its
// variants when variantID is set.
func (r *GormRepo) Stock(ctx context.Context, productID uint, variantID *uint) (uint, error) {
	if variantID != nil {
		var variant models.Variant
		if err := r.DB.WithContext(ctx).Where("id = ? AND product_id = ?", *variantID, productID).First(&variant).Error; err != nil {
			return 0, err
		}
		return variant.Stock, nil
	}

	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, productID).Error; err != nil {
		return 0, err
	}
	return product.Stock, nil
}

// ReduceStock decrements a stock counter by qty, clamped at zero. The
// target must exist.
func (r *GormRepo) ReduceStock(ctx context.Context, productID uint, variantID *uint, qty uint) (uint, error) {
	var stock uint
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := stockTarget(tx, productID, variantID).
			UpdateColumn("stock", gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", qty, qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return stockTarget(tx, productID, variantID).Pluck("stock", &stock).Error
	})
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// decrementStock is the conditional update used inside the order
// transaction: it succeeds only when stock >= qty, so the check and the
// decrement are one atomic statement.
func decrementStock(tx *gorm.DB, productID uint, variantID *uint, qty uint) error {
	res := stockTarget(tx, productID, variantID).
		Where("stock >= ?", qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := stockTarget(tx, productID, variantID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrInsufficientStock
}

func restock(tx *gorm.DB, productID uint, variantID *uint, qty uint) error {
	return stockTarget(tx, productID, variantID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

// stockTarget scopes a query to either the variant row or the product
// row; an order line touches exactly one of the two counters.
func stockTarget(tx *gorm.DB, productID uint, variantID *uint) *gorm.DB {
	if variantID != nil {
		return tx.Model(&models.Variant{}).Where("id = ? AND product_id = ?", *variantID, productID)
	}
	return tx.Model(&models.Product{}).Where("id = ?", productID)
}
