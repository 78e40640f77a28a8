package database

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"fulfillment-api/internal/models"
	"fulfillment-api/pkg/logging"
)

// ErrDuplicateEvent is returned when a webhook event with the same operation
// id has already been stored.
var ErrDuplicateEvent = errors.New("webhook event already recorded")

// WebhookStore persists inbound marketplace webhook events.
type WebhookStore struct {
	db     *gorm.DB
	logger logging.Logger
}

// NewWebhookStore creates a webhook store over the given connection.
func NewWebhookStore(db *gorm.DB, logger logging.Logger) *WebhookStore {
	return &WebhookStore{db: db, logger: logger}
}

// Record inserts a new event. The unique index on operation_id turns retried
// deliveries into ErrDuplicateEvent instead of duplicate rows.
func (s *WebhookStore) Record(event *models.WebhookEvent) error {
	var existing models.WebhookEvent
	err := s.db.Where("operation_id = ?", event.OperationID).First(&existing).Error
	if err == nil {
		return ErrDuplicateEvent
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.Create(event).Error
}

// MarkProcessed stamps the event as handled, recording the failure text when
// processing did not succeed.
func (s *WebhookStore) MarkProcessed(id uint, processingErr string) error {
	now := time.Now()
	return s.db.Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"processing_error": processingErr,
		}).Error
}

// ListBySubscription returns the stored events for one subscription, newest
// first.
func (s *WebhookStore) ListBySubscription(subscriptionID string) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := s.db.Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&events).Error
	return events, err
}
