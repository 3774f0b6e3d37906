package models

import (
	"time"
)

// Product is a purchasable voucher offering owned by one merchant.
type Product struct {
	ID          uint   `gorm:"primarykey"`
	MerchantID  uint   `gorm:"not null;index"`
	Name        string `gorm:"not null"`
	Description string
	Price       float64 `gorm:"not null"`
	Currency    string  `gorm:"default:'EUR'"`
	Active      bool    `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location is one physical store where vouchers can be redeemed.
type Location struct {
	ID         uint   `gorm:"primarykey"`
	MerchantID uint   `gorm:"not null;index"`
	Name       string `gorm:"not null"`
	Address    string
	Active     bool `gorm:"default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
