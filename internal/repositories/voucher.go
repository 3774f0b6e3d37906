package repositories

import (
	"context"
	"errors"
	"time"

	"brontie/internal/models"

	"gorm.io/gorm"
)

// VoucherRepository is the data access contract for vouchers.
type VoucherRepository interface {
	Create(ctx context.Context, voucher *models.Voucher) error
	GetByID(ctx context.Context, id uint) (*models.Voucher, error)
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
	GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Voucher, error)
	GetChain(ctx context.Context, voucherID uint) (*models.VoucherChain, error)
	Update(ctx context.Context, voucher *models.Voucher) error
	TransitionStatus(ctx context.Context, id uint, from []models.VoucherStatus, to models.VoucherStatus, updates map[string]interface{}) (bool, error)
	SetSettlementAmounts(ctx context.Context, id uint, stripeFee, net float64) error
	MarkRedeemed(ctx context.Context, ids []uint, at time.Time) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type voucherRepository struct {
	db *gorm.DB
}

func NewVoucherRepository(db *gorm.DB) VoucherRepository {
	return &voucherRepository{db: db}
}

func (r *voucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

func (r *voucherRepository) GetByID(ctx context.Context, id uint) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).First(&voucher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

func (r *voucherRepository) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

func (r *voucherRepository) GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).Where("payment_ref = ?", paymentRef).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

// GetChain resolves the voucher's product and owning merchant with explicit
// lookups. No lazy traversal; callers get plain value objects.
func (r *voucherRepository) GetChain(ctx context.Context, voucherID uint) (*models.VoucherChain, error) {
	voucher, err := r.GetByID(ctx, voucherID)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, voucher.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	var merchant models.Merchant
	if err := r.db.WithContext(ctx).First(&merchant, product.MerchantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}

	return &models.VoucherChain{
		Voucher:  *voucher,
		Product:  product,
		Merchant: merchant,
	}, nil
}

func (r *voucherRepository) Update(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Save(voucher).Error
}

// TransitionStatus performs a guarded status change: the row is updated only
// when its current status is one of `from`. Returns false when the guard did
// not match, which callers map to an invalid-state error.
func (r *voucherRepository) TransitionStatus(ctx context.Context, id uint, from []models.VoucherStatus, to models.VoucherStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetSettlementAmounts stamps the processor fee and resulting net onto the
// voucher once settlement has computed them.
func (r *voucherRepository) SetSettlementAmounts(ctx context.Context, id uint, stripeFee, net float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stripe_fee": stripeFee,
			"amount":     net,
		}).Error
}

// MarkRedeemed stamps vouchers settled straight from issued. Rows already
// redeemed in-store are left untouched so settlement never overwrites the
// genuine redemption timestamp.
func (r *voucherRepository) MarkRedeemed(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id IN ? AND status = ?", ids, models.VoucherStatusIssued).
		Updates(map[string]interface{}{
			"status":      models.VoucherStatusRedeemed,
			"redeemed_at": at,
		}).Error
}

// ExpireOverdue sweeps issued vouchers past their expiry into the expired
// state and returns how many were affected.
func (r *voucherRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.VoucherStatusIssued, now).
		Update("status", models.VoucherStatusExpired)
	return result.RowsAffected, result.Error
}
