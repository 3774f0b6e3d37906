package models

import (
	"time"
)

// Merchant is a café or retailer selling voucher products on the platform.
type Merchant struct {
	ID              uint   `gorm:"primarykey"`
	BusinessName    string `gorm:"not null"`
	Email           string `gorm:"uniqueIndex;not null"`
	BusinessAddress string
	Status          string `gorm:"default:'active'"`

	BrontieFeeSettings    BrontieFeeSettings    `gorm:"embedded;embeddedPrefix:fee_"`
	StripeConnectSettings StripeConnectSettings `gorm:"embedded;embeddedPrefix:stripe_"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BrontieFeeSettings controls the platform commission for one merchant.
// Commission applies once the merchant's grace period has elapsed or the
// flag is switched on manually.
type BrontieFeeSettings struct {
	IsActive           bool    `gorm:"default:false"`
	CommissionRate     float64 `gorm:"default:0.1"`
	ActivatedAt        *time.Time
	DeactivatedAt      *time.Time
	DeactivatedBy      string
	DeactivationReason string
	ActivateFrom       *time.Time
}

// StripeConnectSettings mirrors the merchant's connected-account state at
// the payment processor. AccountID presence is the hard precondition for
// any transfer; the capability flags are informational.
type StripeConnectSettings struct {
	AccountID           string `gorm:"index"`
	IsConnected         bool   `gorm:"default:false"`
	OnboardingCompleted bool   `gorm:"default:false"`
	ChargesEnabled      bool   `gorm:"default:false"`
	PayoutsEnabled      bool   `gorm:"default:false"`
	DetailsSubmitted    bool   `gorm:"default:false"`
}

// Payable reports whether the merchant can receive transfers at all.
func (m *Merchant) Payable() bool {
	return m.StripeConnectSettings.AccountID != ""
}
