package models

import (
	"time"
)

// VoucherStatus is the lifecycle state of a gift voucher.
type VoucherStatus string

const (
	VoucherStatusPending  VoucherStatus = "pending"
	VoucherStatusIssued   VoucherStatus = "issued"
	VoucherStatusRedeemed VoucherStatus = "redeemed"
	VoucherStatusRefunded VoucherStatus = "refunded"
	VoucherStatusExpired  VoucherStatus = "expired"
	VoucherStatusDisputed VoucherStatus = "disputed"
)

// Terminal reports whether no further transitions are allowed from s,
// dispute resolution aside.
func (s VoucherStatus) Terminal() bool {
	switch s {
	case VoucherStatusRefunded, VoucherStatusExpired, VoucherStatusDisputed:
		return true
	}
	return false
}

// DefaultVoucherValidity is how long a voucher stays redeemable after issuance.
const DefaultVoucherValidity = 5 * 365 * 24 * time.Hour

// Voucher is one purchased gift voucher. Lookups use the redemption Code,
// never the internal ID. Vouchers are never deleted; the status changes.
type Voucher struct {
	ID        uint          `gorm:"primarykey"`
	Code      string        `gorm:"uniqueIndex;not null"`
	Status    VoucherStatus `gorm:"not null;default:'pending';index"`
	ProductID uint          `gorm:"not null;index"`

	// Money fields in decimal EUR. AmountGross is what the buyer paid,
	// StripeFee the processor's cut, Amount the net.
	AmountGross float64 `gorm:"not null"`
	StripeFee   float64 `gorm:"default:0"`
	Amount      float64 `gorm:"default:0"`
	Currency    string  `gorm:"default:'EUR'"`

	// PaymentRef is the processor's payment reference from checkout,
	// used for the actual-fee lookup at settlement time.
	PaymentRef string `gorm:"index"`

	SenderName     string
	SenderEmail    string
	RecipientName  string
	RecipientEmail string
	Message        string

	ReferralToken string `gorm:"index"`

	ValidLocationIDs   []uint `gorm:"serializer:json;type:jsonb"`
	RedeemedLocationID *uint

	IssuedAt    *time.Time
	RedeemedAt  *time.Time
	ConfirmedAt *time.Time
	RefundedAt  *time.Time
	ExpiresAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidAtLocation reports whether the voucher may be redeemed at the given
// location. An empty set means any of the merchant's locations is accepted.
func (v *Voucher) ValidAtLocation(locationID uint) bool {
	if len(v.ValidLocationIDs) == 0 {
		return true
	}
	for _, id := range v.ValidLocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

// VoucherChain is a voucher joined to its product and owning merchant,
// resolved by an explicit repository call.
type VoucherChain struct {
	Voucher  Voucher
	Product  Product
	Merchant Merchant
}
