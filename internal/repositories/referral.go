package repositories

import (
	"context"
	"errors"
	"time"

	"brontie/internal/models"

	"gorm.io/gorm"
)

// ReferralRepository is the data access contract for viral-loop referrals.
type ReferralRepository interface {
	Create(ctx context.Context, referral *models.Referral) error
	GetByToken(ctx context.Context, token string) (*models.Referral, error)
	MarkConverted(ctx context.Context, token string, voucherID uint, at time.Time) (bool, error)
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) Create(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *referralRepository) GetByToken(ctx context.Context, token string) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &referral, nil
}

// MarkConverted records the first conversion for a token. Returns false when
// the token is unknown or was already converted.
func (r *referralRepository) MarkConverted(ctx context.Context, token string, voucherID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("token = ? AND converted_voucher_id IS NULL", token).
		Updates(map[string]interface{}{
			"converted_voucher_id": voucherID,
			"converted_at":         at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
