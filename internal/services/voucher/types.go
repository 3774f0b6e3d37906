package voucher

import (
	"context"

	"brontie/internal/models"
)

// CreateInput describes a voucher purchase at checkout creation time.
type CreateInput struct {
	ProductID        uint
	AmountGross      float64
	SenderName       string
	SenderEmail      string
	RecipientName    string
	RecipientEmail   string
	Message          string
	ValidLocationIDs []uint

	// ReferralToken is the viral-loop token the purchase arrived with,
	// if any. It belongs to an earlier voucher's recipient.
	ReferralToken string
}

// Service is the voucher lifecycle contract.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Voucher, error)
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
	GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Voucher, error)

	// Issue completes checkout: pending -> issued, stamps the payment
	// reference used later for the actual fee lookup.
	Issue(ctx context.Context, code, paymentRef string) (*models.Voucher, error)
	IssueByPaymentRef(ctx context.Context, paymentRef string) (*models.Voucher, error)

	// Redeem performs the in-store redemption transition.
	Redeem(ctx context.Context, code string, locationID uint) (*models.Voucher, error)

	// Refund blocks settlement and reverses a paid payout item if one exists.
	Refund(ctx context.Context, code string) (*models.Voucher, error)

	// Dispute moves any non-terminal voucher to disputed and flags its
	// payout items for review.
	Dispute(ctx context.Context, code string) (*models.Voucher, error)

	// ExpireOverdue sweeps issued vouchers past expiry.
	ExpireOverdue(ctx context.Context) (int64, error)
}

// CacheOperator is the subset of caching the voucher service needs.
type CacheOperator interface {
	GetVoucher(ctx context.Context, code string) (*models.Voucher, error)
	CacheVoucher(ctx context.Context, voucher *models.Voucher) error
	InvalidateVoucher(ctx context.Context, code string) error
}
