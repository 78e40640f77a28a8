package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"fulfillment-api/internal/marketplace"
)

func testSubscription() *marketplace.Subscription {
	return &marketplace.Subscription{
		ID:       uuid.MustParse("a7bb1c0e-62d9-4b3f-9f32-3a1e3f5b8a11"),
		Name:     "Contoso production",
		OfferID:  "contoso-saas",
		PlanID:   "silver",
		Quantity: 25,
		Status:   marketplace.StatusSubscribed,
		Purchaser: marketplace.Purchaser{
			Email:    "buyer@contoso.com",
			TenantID: "tenant-1",
		},
	}
}

func TestMapSubscriptionViewFlattensPurchaser(t *testing.T) {
	sub := testSubscription()

	view := MapSubscriptionView(sub, nil, nil)

	assert.Equal(t, sub.ID, view.ID)
	assert.Equal(t, "Contoso production", view.Name)
	assert.Equal(t, "silver", view.PlanID)
	assert.Equal(t, 25, view.Quantity)
	assert.Equal(t, "buyer@contoso.com", view.PurchaserEmail)
	assert.Equal(t, "tenant-1", view.PurchaserTenantID)
	assert.True(t, view.IsActive)
	assert.False(t, view.IsMeteringSupported)
}

func TestMapSubscriptionViewSelectedPlanOverrides(t *testing.T) {
	sub := testSubscription()
	selected := &marketplace.PlanDetail{
		PlanID: "gold",
		PlanComponents: marketplace.PlanComponents{
			MeteringDimensions: []marketplace.MeteringDimension{
				{ID: "api-calls", DisplayName: "API calls"},
			},
		},
	}

	view := MapSubscriptionView(sub, selected, nil)

	assert.Equal(t, "gold", view.PlanID, "selected plan wins over the subscription's plan")
	assert.True(t, view.IsMeteringSupported)
}

func TestMapSubscriptionViewKeepsPlanOrder(t *testing.T) {
	sub := testSubscription()
	plans := []marketplace.PlanDetail{
		{PlanID: "bronze"},
		{PlanID: "silver"},
		{PlanID: "gold"},
	}

	view := MapSubscriptionView(sub, nil, plans)

	assert.Len(t, view.PlanList, 3)
	for i := range plans {
		assert.Equal(t, plans[i].PlanID, view.PlanList[i].PlanID)
	}

	// The view owns its copy; mutating the source must not leak through.
	plans[0].PlanID = "mutated"
	assert.Equal(t, "bronze", view.PlanList[0].PlanID)
}

func TestMapSubscriptionViewInactiveStatuses(t *testing.T) {
	for _, status := range []marketplace.SubscriptionStatus{
		marketplace.StatusPendingFulfillmentStart,
		marketplace.StatusSuspended,
		marketplace.StatusUnsubscribed,
		marketplace.StatusUnrecognized,
	} {
		sub := testSubscription()
		sub.Status = status
		view := MapSubscriptionView(sub, nil, nil)
		assert.False(t, view.IsActive, "status %s must not render active", status)
	}
}
