package models

import (
	"time"
)

// WebhookEvent records a processed payment-processor event so redeliveries
// are ignored. EventID is Stripe's event id.
type WebhookEvent struct {
	ID        uint   `gorm:"primarykey"`
	EventID   string `gorm:"uniqueIndex;not null"`
	Type      string `gorm:"not null"`
	Payload   JSON   `gorm:"type:jsonb"`
	CreatedAt time.Time
}
