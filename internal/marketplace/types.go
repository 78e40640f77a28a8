package marketplace

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the vendor-reported SaaS subscription state.
type SubscriptionStatus string

const (
	StatusNotStarted              SubscriptionStatus = "NotStarted"
	StatusPendingFulfillmentStart SubscriptionStatus = "PendingFulfillmentStart"
	StatusSubscribed              SubscriptionStatus = "Subscribed"
	StatusSuspended               SubscriptionStatus = "Suspended"
	StatusUnsubscribed            SubscriptionStatus = "Unsubscribed"
	StatusUnrecognized            SubscriptionStatus = "Unrecognized"
)

// normalizeStatus folds unknown vendor states into Unrecognized so callers
// only ever switch over the five known values.
func normalizeStatus(s SubscriptionStatus) SubscriptionStatus {
	switch s {
	case StatusNotStarted, StatusPendingFulfillmentStart, StatusSubscribed,
		StatusSuspended, StatusUnsubscribed:
		return s
	}
	return StatusUnrecognized
}

// OperationStatus is the state of an asynchronous vendor-tracked operation.
type OperationStatus string

const (
	OperationNotStarted OperationStatus = "NotStarted"
	OperationInProgress OperationStatus = "InProgress"
	OperationSucceeded  OperationStatus = "Succeeded"
	OperationFailed     OperationStatus = "Failed"
	OperationConflict   OperationStatus = "Conflict"
)

// InFlight reports whether the operation has not reached a terminal state.
func (s OperationStatus) InFlight() bool {
	return s == OperationNotStarted || s == OperationInProgress
}

// Purchaser identifies who bought the subscription.
type Purchaser struct {
	Email    string `json:"emailId"`
	ObjectID string `json:"objectId"`
	TenantID string `json:"tenantId"`
}

// Term is the current billing term of a subscription.
type Term struct {
	TermUnit  string     `json:"termUnit"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Subscription is the vendor subscription record, already normalized.
type Subscription struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	PublisherID string             `json:"publisherId"`
	OfferID     string             `json:"offerId"`
	PlanID      string             `json:"planId"`
	Quantity    int                `json:"quantity"`
	Status      SubscriptionStatus `json:"saasSubscriptionStatus"`
	AutoRenew   bool               `json:"autoRenew"`
	Purchaser   Purchaser          `json:"purchaser"`
	Beneficiary Purchaser          `json:"beneficiary"`
	Term        Term               `json:"term"`
}

// MeteringDimension is one billable usage axis of a plan component.
type MeteringDimension struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// PlanComponents carries the plan's metering setup.
type PlanComponents struct {
	MeteringDimensions []MeteringDimension `json:"meteringDimensions"`
}

// PlanDetail is one entry of the available-plan list for a subscription.
type PlanDetail struct {
	PlanID         string         `json:"planId"`
	DisplayName    string         `json:"displayName"`
	Description    string         `json:"description"`
	IsPrivate      bool           `json:"isPrivate"`
	IsStopSell     bool           `json:"isStopSell"`
	HasFreeTrials  bool           `json:"hasFreeTrials"`
	Market         string         `json:"market"`
	PlanComponents PlanComponents `json:"planComponents"`
}

// HasMeteredDimensions reports whether the plan bills on usage dimensions.
func (p *PlanDetail) HasMeteredDimensions() bool {
	return len(p.PlanComponents.MeteringDimensions) > 0
}

// ResolvedSubscription is the result of exchanging a purchase token.
type ResolvedSubscription struct {
	ID               uuid.UUID     `json:"id"`
	SubscriptionName string        `json:"subscriptionName"`
	OfferID          string        `json:"offerId"`
	PlanID           string        `json:"planId"`
	Quantity         int           `json:"quantity"`
	Subscription     *Subscription `json:"subscription,omitempty"`
}

// Operation is a vendor-tracked asynchronous change against a subscription.
// We only ever read it; the marketplace owns the record.
type Operation struct {
	ID             uuid.UUID       `json:"id"`
	ActivityID     uuid.UUID       `json:"activityId"`
	SubscriptionID uuid.UUID       `json:"subscriptionId"`
	OfferID        string          `json:"offerId"`
	PublisherID    string          `json:"publisherId"`
	PlanID         string          `json:"planId"`
	Quantity       int             `json:"quantity"`
	Action         string          `json:"action"`
	Status         OperationStatus `json:"status"`
	TimeStamp      time.Time       `json:"timeStamp"`
}

// UpdateOperationStatus is the value patched back to acknowledge an operation.
type UpdateOperationStatus string

const (
	UpdateStatusSuccess UpdateOperationStatus = "Success"
	UpdateStatusFailure UpdateOperationStatus = "Failure"
)

type subscriptionsPage struct {
	Subscriptions []Subscription `json:"subscriptions"`
	NextLink      string         `json:"@nextLink"`
}

type availablePlans struct {
	Plans []PlanDetail `json:"plans"`
}
