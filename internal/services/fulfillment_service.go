package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fulfillment-api/internal/config"
	"fulfillment-api/internal/marketplace"
	"fulfillment-api/pkg/logging"
)

// MarketplaceAPI is the capability the orchestration layer needs from the
// marketplace client. Tests substitute a stub.
type MarketplaceAPI interface {
	ListSubscriptions(ctx context.Context) ([]marketplace.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID uuid.UUID) (*marketplace.Subscription, error)
	ListAvailablePlans(ctx context.Context, subscriptionID uuid.UUID) ([]marketplace.PlanDetail, error)
	Resolve(ctx context.Context, purchaseToken string) (*marketplace.ResolvedSubscription, error)
	Activate(ctx context.Context, subscriptionID uuid.UUID, planID string) error
	ChangePlan(ctx context.Context, subscriptionID uuid.UUID, planID string) (uuid.UUID, error)
	ChangeQuantity(ctx context.Context, subscriptionID uuid.UUID, quantity int) (uuid.UUID, error)
	Delete(ctx context.Context, subscriptionID uuid.UUID) (uuid.UUID, error)
	GetOperation(ctx context.Context, subscriptionID, operationID uuid.UUID) (*marketplace.Operation, error)
	UpdateOperation(ctx context.Context, subscriptionID, operationID uuid.UUID, status marketplace.UpdateOperationStatus) error
}

// OperationHandle identifies an asynchronous change accepted by the vendor.
type OperationHandle struct {
	OperationID    uuid.UUID `json:"operation_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
}

// OperationFailedError reports a poll that ended on anything other than
// Succeeded, including hitting the attempt cap while still in flight.
type OperationFailedError struct {
	SubscriptionID uuid.UUID
	OperationID    uuid.UUID
	LastStatus     marketplace.OperationStatus
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("operation %s on subscription %s did not succeed: last observed status %s",
		e.OperationID, e.SubscriptionID, e.LastStatus)
}

// FulfillmentService exposes the subscription lifecycle over the marketplace
// adapter.
type FulfillmentService struct {
	client       MarketplaceAPI
	pollInterval time.Duration
	maxAttempts  int
	logger       logging.Logger
}

// NewFulfillmentService wires the orchestration service. Poll interval and
// attempt cap come from configuration (defaults: 5s, 100 attempts).
func NewFulfillmentService(client MarketplaceAPI, cfg *config.Config, logger logging.Logger) *FulfillmentService {
	interval := time.Duration(cfg.OperationPollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	attempts := cfg.OperationPollMaxAttempts
	if attempts <= 0 {
		attempts = 100
	}
	return &FulfillmentService{
		client:       client,
		pollInterval: interval,
		maxAttempts:  attempts,
		logger:       logger,
	}
}

// GetSubscription fetches one subscription; vendor 404 surfaces as NotFound.
func (s *FulfillmentService) GetSubscription(ctx context.Context, subscriptionID uuid.UUID) (*marketplace.Subscription, error) {
	if subscriptionID == uuid.Nil {
		return nil, marketplace.NewInvalidArgument(marketplace.ActionGetSubscription, "invalid subscription ID")
	}
	return s.client.GetSubscription(ctx, subscriptionID)
}

// ListSubscriptions returns all subscriptions for the publisher. A vendor
// failure is logged and reported as an empty list rather than an error, so a
// flaky marketplace read never takes down the portal overview.
func (s *FulfillmentService) ListSubscriptions(ctx context.Context) []marketplace.Subscription {
	subscriptions, err := s.client.ListSubscriptions(ctx)
	if err != nil {
		s.logger.Errorf("Listing subscriptions failed: %v", err)
		return []marketplace.Subscription{}
	}
	if subscriptions == nil {
		return []marketplace.Subscription{}
	}
	return subscriptions
}

// ListPlans returns the plans a subscription can switch to. The zero UUID is
// rejected before any network call.
func (s *FulfillmentService) ListPlans(ctx context.Context, subscriptionID uuid.UUID) ([]marketplace.PlanDetail, error) {
	if subscriptionID == uuid.Nil {
		return nil, marketplace.NewInvalidArgument(marketplace.ActionGetAllPlans, "invalid subscription ID")
	}
	return s.client.ListAvailablePlans(ctx, subscriptionID)
}

// ActivateSubscription signals fulfillment start. Callers guard against
// activating a subscription that is already pending activation.
func (s *FulfillmentService) ActivateSubscription(ctx context.Context, subscriptionID uuid.UUID, planID string) error {
	if subscriptionID == uuid.Nil {
		return marketplace.NewInvalidArgument(marketplace.ActionActivate, "invalid subscription ID")
	}
	s.logger.Infof("Activating subscription %s on plan %s", subscriptionID, planID)
	return s.client.Activate(ctx, subscriptionID, planID)
}

// ChangePlan initiates an asynchronous plan change.
func (s *FulfillmentService) ChangePlan(ctx context.Context, subscriptionID uuid.UUID, newPlanID string) (OperationHandle, error) {
	if subscriptionID == uuid.Nil || newPlanID == "" {
		return OperationHandle{}, marketplace.NewInvalidArgument(marketplace.ActionChangePlan, "invalid subscription ID or plan")
	}
	s.logger.Infof("Changing plan for subscription %s to %s", subscriptionID, newPlanID)
	operationID, err := s.client.ChangePlan(ctx, subscriptionID, newPlanID)
	if err != nil {
		return OperationHandle{}, err
	}
	return OperationHandle{OperationID: operationID, SubscriptionID: subscriptionID}, nil
}

// ChangeQuantity initiates an asynchronous seat-count change.
func (s *FulfillmentService) ChangeQuantity(ctx context.Context, subscriptionID uuid.UUID, quantity int) (OperationHandle, error) {
	if subscriptionID == uuid.Nil || quantity <= 0 {
		return OperationHandle{}, marketplace.NewInvalidArgument(marketplace.ActionChangeQuantity, "invalid subscription ID or quantity")
	}
	s.logger.Infof("Changing quantity for subscription %s to %d", subscriptionID, quantity)
	operationID, err := s.client.ChangeQuantity(ctx, subscriptionID, quantity)
	if err != nil {
		return OperationHandle{}, err
	}
	return OperationHandle{OperationID: operationID, SubscriptionID: subscriptionID}, nil
}

// DeleteSubscription initiates unsubscribe. planID identifies the plan being
// cancelled; the vendor keys the call on the subscription alone.
func (s *FulfillmentService) DeleteSubscription(ctx context.Context, subscriptionID uuid.UUID, planID string) (OperationHandle, error) {
	if subscriptionID == uuid.Nil {
		return OperationHandle{}, marketplace.NewInvalidArgument(marketplace.ActionDelete, "invalid subscription ID")
	}
	s.logger.Infof("Deleting subscription %s (plan %s)", subscriptionID, planID)
	operationID, err := s.client.Delete(ctx, subscriptionID)
	if err != nil {
		return OperationHandle{}, err
	}
	return OperationHandle{OperationID: operationID, SubscriptionID: subscriptionID}, nil
}

// GetOperationStatus performs a single status read without polling.
func (s *FulfillmentService) GetOperationStatus(ctx context.Context, subscriptionID, operationID uuid.UUID) (marketplace.OperationStatus, error) {
	op, err := s.client.GetOperation(ctx, subscriptionID, operationID)
	if err != nil {
		return "", err
	}
	return op.Status, nil
}

// UpdateOperationStatus acknowledges a vendor-initiated operation.
func (s *FulfillmentService) UpdateOperationStatus(ctx context.Context, subscriptionID, operationID uuid.UUID, status marketplace.UpdateOperationStatus) error {
	return s.client.UpdateOperation(ctx, subscriptionID, operationID, status)
}

// ResolveToken exchanges a marketplace purchase token for subscription
// identity. Used once at first-purchase landing.
func (s *FulfillmentService) ResolveToken(ctx context.Context, purchaseToken string) (*marketplace.ResolvedSubscription, error) {
	if purchaseToken == "" {
		return nil, marketplace.NewInvalidArgument(marketplace.ActionResolve, "empty purchase token")
	}
	return s.client.Resolve(ctx, purchaseToken)
}

// WaitForOperation polls the operation at a fixed interval until it leaves
// {NotStarted, InProgress}, the attempt cap is reached, or ctx is cancelled.
// Succeeded is the only status reported as success; every other exit returns
// an OperationFailedError naming the last observed status.
func (s *FulfillmentService) WaitForOperation(ctx context.Context, subscriptionID, operationID uuid.UUID) (marketplace.OperationStatus, error) {
	var status marketplace.OperationStatus
	for attempt := 1; ; attempt++ {
		op, err := s.client.GetOperation(ctx, subscriptionID, operationID)
		if err != nil {
			return "", err
		}
		status = op.Status
		if !status.InFlight() {
			break
		}
		if attempt >= s.maxAttempts {
			s.logger.Warnf("Operation %s still %s after %d reads, giving up", operationID, status, attempt)
			break
		}

		select {
		case <-time.After(s.pollInterval):
		case <-ctx.Done():
			s.logger.Warnf("Operation %s wait aborted: %v", operationID, ctx.Err())
			return status, ctx.Err()
		}
	}

	if status != marketplace.OperationSucceeded {
		return status, &OperationFailedError{
			SubscriptionID: subscriptionID,
			OperationID:    operationID,
			LastStatus:     status,
		}
	}
	return status, nil
}
