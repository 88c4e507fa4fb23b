package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nmalenkov/storefront/internal/models"
)

func (r *GormRepo) AddRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(token).Error
}

// RedeemRefreshToken consumes the token identified by jti and stores
// its replacement in the same transaction. A token is redeemable once:
// the old row is deleted, so a second redemption finds nothing. An
// expired token is rejected without mutation.
func (r *GormRepo) RedeemRefreshToken(ctx context.Context, jti string, replacement *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("jti = ?", jti).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRefreshNotFound
			}
			return err
		}

		if stored.ExpiresAt < time.Now().Unix() {
			return ErrRefreshExpired
		}

		if err := tx.Delete(&stored).Error; err != nil {
			return err
		}
		return tx.Create(replacement).Error
	})
}

func (r *GormRepo) DeleteRefreshByDigest(ctx context.Context, digest string) error {
	return r.DB.WithContext(ctx).Where("token = ?", digest).Delete(&models.RefreshToken{}).Error
}
