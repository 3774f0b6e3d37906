package repositories

import (
	"context"
	"errors"
	"time"

	"brontie/internal/models"

	"gorm.io/gorm"
)

// PayoutItemRepository is the data access contract for payout items.
type PayoutItemRepository interface {
	Create(ctx context.Context, item *models.PayoutItem) error
	GetActiveByVoucherID(ctx context.Context, voucherID uint) (*models.PayoutItem, error)
	ClaimPending(ctx context.Context, batchID string) ([]models.PayoutItem, error)
	MarkPaid(ctx context.Context, ids []uint, transferID string, paidAt time.Time) error
	Release(ctx context.Context, ids []uint) error
	ReverseByVoucherID(ctx context.Context, voucherID uint) (int64, error)
	FlagForReview(ctx context.Context, voucherID uint) (int64, error)
	StatusTotals(ctx context.Context) ([]models.PayoutStatusTotal, error)
}

type payoutItemRepository struct {
	db *gorm.DB
}

func NewPayoutItemRepository(db *gorm.DB) PayoutItemRepository {
	return &payoutItemRepository{db: db}
}

func (r *payoutItemRepository) Create(ctx context.Context, item *models.PayoutItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetActiveByVoucherID returns the one non-reversed item for a voucher,
// or ErrPayoutNotFound when the voucher has never been settled.
func (r *payoutItemRepository) GetActiveByVoucherID(ctx context.Context, voucherID uint) (*models.PayoutItem, error) {
	var item models.PayoutItem
	err := r.db.WithContext(ctx).
		Where("voucher_id = ? AND status <> ?", voucherID, models.PayoutStatusReversed).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ClaimPending atomically moves every pending item to processing, stamped
// with the run's batch id, and returns the claimed set. A concurrent run
// claims nothing because the single UPDATE only matches pending rows.
func (r *payoutItemRepository) ClaimPending(ctx context.Context, batchID string) ([]models.PayoutItem, error) {
	err := r.db.WithContext(ctx).
		Model(&models.PayoutItem{}).
		Where("status = ?", models.PayoutStatusPending).
		Updates(map[string]interface{}{
			"status":   models.PayoutStatusProcessing,
			"batch_id": batchID,
		}).Error
	if err != nil {
		return nil, err
	}

	var items []models.PayoutItem
	err = r.db.WithContext(ctx).
		Where("batch_id = ? AND status = ?", batchID, models.PayoutStatusProcessing).
		Order("merchant_id, id").
		Find(&items).Error
	return items, err
}

func (r *payoutItemRepository) MarkPaid(ctx context.Context, ids []uint, transferID string, paidAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PayoutItem{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":      models.PayoutStatusPaid,
			"transfer_id": transferID,
			"paid_out_at": paidAt,
		}).Error
}

// Release returns claimed items to pending after a failed transfer so a
// later run can retry them.
func (r *payoutItemRepository) Release(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PayoutItem{}).
		Where("id IN ? AND status = ?", ids, models.PayoutStatusProcessing).
		Updates(map[string]interface{}{
			"status":   models.PayoutStatusPending,
			"batch_id": "",
		}).Error
}

// ReverseByVoucherID reverses the voucher's non-reversed item, if any.
// Ledger-only: the money side of a clawback is handled manually.
func (r *payoutItemRepository) ReverseByVoucherID(ctx context.Context, voucherID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PayoutItem{}).
		Where("voucher_id = ? AND status <> ?", voucherID, models.PayoutStatusReversed).
		Update("status", models.PayoutStatusReversed)
	return result.RowsAffected, result.Error
}

func (r *payoutItemRepository) FlagForReview(ctx context.Context, voucherID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PayoutItem{}).
		Where("voucher_id = ?", voucherID).
		Update("flagged_for_review", true)
	return result.RowsAffected, result.Error
}

// StatusTotals aggregates counts and sums per payout status for the
// settlement report.
func (r *payoutItemRepository) StatusTotals(ctx context.Context) ([]models.PayoutStatusTotal, error) {
	var totals []models.PayoutStatusTotal
	err := r.db.WithContext(ctx).
		Model(&models.PayoutItem{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount_payable), 0) AS total").
		Group("status").
		Scan(&totals).Error
	return totals, err
}
