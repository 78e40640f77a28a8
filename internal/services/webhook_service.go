package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fulfillment-api/internal/database"
	"fulfillment-api/internal/marketplace"
	"fulfillment-api/internal/models"
	"fulfillment-api/pkg/logging"
)

// marketplaceAck maps the accept-updates flag onto the vendor ack value.
func marketplaceAck(accept bool) marketplace.UpdateOperationStatus {
	if accept {
		return marketplace.UpdateStatusSuccess
	}
	return marketplace.UpdateStatusFailure
}

// WebhookNotification is the payload the marketplace posts when a
// subscription changes outside the portal.
type WebhookNotification struct {
	ID             uuid.UUID `json:"id"` // operation id
	ActivityID     uuid.UUID `json:"activityId"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	PublisherID    string    `json:"publisherId"`
	OfferID        string    `json:"offerId"`
	PlanID         string    `json:"planId"`
	Quantity       int       `json:"quantity"`
	Action         string    `json:"action"` // ChangePlan, ChangeQuantity, Suspend, Unsubscribe, Reinstate
	Status         string    `json:"status"`
	TimeStamp      time.Time `json:"timeStamp"`
}

// updateActions are vendor operations that must be acknowledged back through
// the operations endpoint.
var updateActions = map[string]bool{
	"ChangePlan":     true,
	"ChangeQuantity": true,
}

// WebhookService validates, deduplicates and processes inbound marketplace
// notifications.
type WebhookService struct {
	fulfillment   *FulfillmentService
	store         *database.WebhookStore
	plans         *database.PlanStore
	emails        *EmailService
	cache         *CacheService
	secret        string
	acceptUpdates bool
	logger        logging.Logger
}

// NewWebhookService wires the webhook pipeline.
func NewWebhookService(fulfillment *FulfillmentService, store *database.WebhookStore, plans *database.PlanStore,
	emails *EmailService, cache *CacheService, secret string, acceptUpdates bool, logger logging.Logger) *WebhookService {
	return &WebhookService{
		fulfillment:   fulfillment,
		store:         store,
		plans:         plans,
		emails:        emails,
		cache:         cache,
		secret:        secret,
		acceptUpdates: acceptUpdates,
		logger:        logger,
	}
}

// VerifySignature checks the HMAC-SHA256 hex signature over the raw payload.
// With no secret configured every payload passes.
func (s *WebhookService) VerifySignature(payload []byte, signature string) bool {
	if s.secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Process handles one delivery: replay check, persist, acknowledge
// update-type operations, refresh caches and notify. Re-deliveries of an
// already seen operation are dropped silently.
func (s *WebhookService) Process(ctx context.Context, payload []byte, signatureValid bool) error {
	var notification WebhookNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return fmt.Errorf("malformed webhook payload: %w", err)
	}
	if notification.ID == uuid.Nil || notification.SubscriptionID == uuid.Nil {
		return errors.New("webhook payload missing operation or subscription id")
	}

	first, err := s.cache.FirstDelivery(ctx, notification.ID.String())
	if err != nil {
		// Redis being down must not drop deliveries; the store's unique
		// index still catches duplicates.
		s.logger.Warnf("Replay check unavailable for operation %s: %v", notification.ID, err)
	} else if !first {
		s.logger.Infof("Duplicate webhook delivery for operation %s, ignoring", notification.ID)
		return nil
	}

	event := &models.WebhookEvent{
		OperationID:    notification.ID.String(),
		SubscriptionID: notification.SubscriptionID.String(),
		Action:         notification.Action,
		PlanID:         notification.PlanID,
		Quantity:       notification.Quantity,
		Status:         notification.Status,
		PayloadJSON:    string(payload),
		SignatureValid: signatureValid,
	}
	if err := s.store.Record(event); err != nil {
		if errors.Is(err, database.ErrDuplicateEvent) {
			s.logger.Infof("Webhook event %s already recorded, ignoring", notification.ID)
			return nil
		}
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	processingErr := s.handle(ctx, &notification)

	errText := ""
	if processingErr != nil {
		errText = processingErr.Error()
		s.logger.Errorf("Webhook processing failed for operation %s: %v", notification.ID, processingErr)
	}
	if err := s.store.MarkProcessed(event.ID, errText); err != nil {
		s.logger.Errorf("Failed to mark webhook event %d processed: %v", event.ID, err)
	}
	return processingErr
}

func (s *WebhookService) handle(ctx context.Context, notification *WebhookNotification) error {
	if updateActions[notification.Action] {
		ack := marketplaceAck(s.acceptUpdates)
		s.logger.Infof("Acknowledging %s operation %s with %s", notification.Action, notification.ID, ack)
		if err := s.fulfillment.UpdateOperationStatus(ctx, notification.SubscriptionID, notification.ID, ack); err != nil {
			return err
		}
		if !s.acceptUpdates {
			// Declined update: nothing changed on our side.
			return nil
		}
	}

	s.cache.InvalidateSubscription(ctx, notification.SubscriptionID.String())

	sub, err := s.fulfillment.GetSubscription(ctx, notification.SubscriptionID)
	if err != nil {
		return err
	}

	var planInternalID uint
	if notification.PlanID != "" {
		if plan, err := s.plans.GetByPlanID(notification.PlanID); err == nil {
			planInternalID = plan.ID
		}
	}

	if err := s.emails.SendLifecycleNotification(ctx, notification.Action, sub, planInternalID, true); err != nil {
		// Notification failure is logged, not fatal: the event itself
		// has been recorded and acknowledged.
		s.logger.Errorf("Lifecycle notification for %s failed: %v", notification.ID, err)
	}
	return nil
}
