package repositories

import (
	"context"

	"brontie/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository records processed processor events for
// webhook idempotency.
type WebhookEventRepository interface {
	// MarkProcessed inserts the event and returns false when it was
	// already recorded (redelivery).
	MarkProcessed(ctx context.Context, eventID, eventType string, payload models.JSON) (bool, error)
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string, payload models.JSON) (bool, error) {
	event := models.WebhookEvent{
		EventID: eventID,
		Type:    eventType,
		Payload: payload,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
