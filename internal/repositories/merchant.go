package repositories

import (
	"context"
	"errors"
	"time"

	"brontie/internal/models"

	"gorm.io/gorm"
)

// MerchantRepository is the data access contract for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *models.Merchant) error
	GetByID(ctx context.Context, id uint) (*models.Merchant, error)
	GetByEmail(ctx context.Context, email string) (*models.Merchant, error)
	Update(ctx context.Context, merchant *models.Merchant) error
	UpdateConnectSettings(ctx context.Context, id uint, settings models.StripeConnectSettings) error
	SetCommissionActive(ctx context.Context, id uint, active bool, by, reason string, at time.Time) error
}

type merchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

func (r *merchantRepository) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.WithContext(ctx).First(&merchant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) GetByEmail(ctx context.Context, email string) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&merchant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) Update(ctx context.Context, merchant *models.Merchant) error {
	if merchant.ID == 0 {
		return errors.New("cannot update merchant with ID 0")
	}
	return r.db.WithContext(ctx).Save(merchant).Error
}

// UpdateConnectSettings mirrors the processor's capability flags onto the
// merchant row. Safe to call repeatedly.
func (r *merchantRepository) UpdateConnectSettings(ctx context.Context, id uint, settings models.StripeConnectSettings) error {
	result := r.db.WithContext(ctx).
		Model(&models.Merchant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stripe_account_id":            settings.AccountID,
			"stripe_is_connected":          settings.IsConnected,
			"stripe_onboarding_completed":  settings.OnboardingCompleted,
			"stripe_charges_enabled":       settings.ChargesEnabled,
			"stripe_payouts_enabled":       settings.PayoutsEnabled,
			"stripe_details_submitted":     settings.DetailsSubmitted,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMerchantNotFound
	}
	return nil
}

func (r *merchantRepository) SetCommissionActive(ctx context.Context, id uint, active bool, by, reason string, at time.Time) error {
	updates := map[string]interface{}{
		"fee_is_active": active,
	}
	if active {
		updates["fee_activated_at"] = at
		updates["fee_deactivated_at"] = nil
		updates["fee_deactivated_by"] = ""
		updates["fee_deactivation_reason"] = ""
	} else {
		updates["fee_deactivated_at"] = at
		updates["fee_deactivated_by"] = by
		updates["fee_deactivation_reason"] = reason
	}

	result := r.db.WithContext(ctx).
		Model(&models.Merchant{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMerchantNotFound
	}
	return nil
}
