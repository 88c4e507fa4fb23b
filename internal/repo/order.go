package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/nmalenkov/storefront/internal/models"
)

// CreateOrderWithStock persists the order and decrements every line's
// stock counter in one transaction. A line that cannot be satisfied
// rolls the whole order back, so no order row survives an insufficient
// stock failure.
func (r *GormRepo) CreateOrderWithStock(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			if err := decrementStock(tx, item.ProductID, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		return tx.Create(order).Error
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetUserOrder scopes the lookup to the owner: an existing order that
// belongs to somebody else reads as not found.
func (r *GormRepo) GetUserOrder(ctx context.Context, id, userID uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetGuestOrder(ctx context.Context, id uint, key string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").
		Where("id = ? AND guest_key = ?", id, key).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListUserOrders(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// SetPaymentStatus transitions payment_status and reports whether the
// row actually changed, which keeps webhook retries idempotent.
func (r *GormRepo) SetPaymentStatus(ctx context.Context, id uint, status string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", id, status).
		Update("payment_status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) SetOrderStatus(ctx context.Context, id uint, status string) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RestockOrder returns every line's quantity to its stock counter,
// used when a payment is denied, cancelled or expired.
func (r *GormRepo) RestockOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			if err := restock(tx, item.ProductID, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}
