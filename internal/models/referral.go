package models

import (
	"time"
)

// Referral tracks the viral loop: every issued voucher carries a token the
// recipient can share; a purchase arriving with that token converts the
// referral for the original sender.
type Referral struct {
	ID          uint   `gorm:"primarykey"`
	Token       string `gorm:"uniqueIndex;not null"`
	VoucherID   uint   `gorm:"not null;index"`
	SenderEmail string

	ConvertedVoucherID *uint
	ConvertedAt        *time.Time

	CreatedAt time.Time
}
