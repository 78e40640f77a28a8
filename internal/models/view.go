package models

import (
	"github.com/google/uuid"

	"fulfillment-api/internal/marketplace"
)

// SubscriptionView is the flattened aggregate the portal renders for one
// subscription: vendor subscription fields, the selected plan's identity and
// the full plan list for the plan picker.
type SubscriptionView struct {
	ID                  uuid.UUID                `json:"id"`
	Name                string                   `json:"name"`
	OfferID             string                   `json:"offer_id"`
	PlanID              string                   `json:"plan_id"`
	Quantity            int                      `json:"quantity"`
	Status              string                   `json:"status"`
	IsActive            bool                     `json:"is_active"`
	PurchaserEmail      string                   `json:"purchaser_email"`
	PurchaserTenantID   string                   `json:"purchaser_tenant_id"`
	IsMeteringSupported bool                     `json:"is_metering_supported"`
	PlanList            []marketplace.PlanDetail `json:"plan_list"`
}

// MapSubscriptionView flattens a subscription and its plans into a view.
// Pure: no I/O, deterministic for identical inputs; the plan list keeps the
// vendor's order.
func MapSubscriptionView(sub *marketplace.Subscription, selected *marketplace.PlanDetail, allPlans []marketplace.PlanDetail) SubscriptionView {
	view := SubscriptionView{
		ID:                sub.ID,
		Name:              sub.Name,
		OfferID:           sub.OfferID,
		PlanID:            sub.PlanID,
		Quantity:          sub.Quantity,
		Status:            string(sub.Status),
		IsActive:          sub.Status == marketplace.StatusSubscribed,
		PurchaserEmail:    sub.Purchaser.Email,
		PurchaserTenantID: sub.Purchaser.TenantID,
	}
	if selected != nil {
		view.PlanID = selected.PlanID
		view.IsMeteringSupported = selected.HasMeteredDimensions()
	}
	view.PlanList = make([]marketplace.PlanDetail, len(allPlans))
	copy(view.PlanList, allPlans)
	return view
}
