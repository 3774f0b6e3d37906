package models

import (
	"time"
)

// PayoutStatus is the lifecycle state of a payout item.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusReversed   PayoutStatus = "reversed"
)

// PayoutItem is the money owed to one merchant for one voucher.
// At most one non-reversed item may exist per voucher; the partial unique
// index enforces it at the database level.
type PayoutItem struct {
	ID         uint `gorm:"primarykey"`
	VoucherID  uint `gorm:"not null;index:idx_payout_items_voucher_active,unique,where:status <> 'reversed'"`
	MerchantID uint `gorm:"not null;index"`

	// AmountPayable = gross - stripe_fee - brontie_fee, floored at zero.
	AmountPayable float64 `gorm:"not null"`
	BrontieFee    float64 `gorm:"default:0"`
	StripeFee     float64 `gorm:"default:0"`
	Currency      string  `gorm:"default:'EUR'"`

	Status PayoutStatus `gorm:"not null;default:'pending';index"`

	// BatchID is the claim token of the settlement run that picked this
	// item up; empty while pending.
	BatchID    string `gorm:"index"`
	TransferID string
	PaidOutAt  *time.Time

	// FlaggedForReview marks items touched by a dispute on the voucher.
	FlaggedForReview bool `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PayoutStatusTotal is one row of the settlement report aggregation.
type PayoutStatusTotal struct {
	Status PayoutStatus
	Count  int64
	Total  float64
}
