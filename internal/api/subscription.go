package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fulfillment-api/internal/marketplace"
	"fulfillment-api/internal/models"
	"fulfillment-api/internal/response"
	"fulfillment-api/internal/services"
)

const subscriptionCacheTTL = 30 * time.Second

// ListSubscriptions returns every subscription with its available plans.
// GET /api/subscriptions
func (h *Handlers) ListSubscriptions(c *gin.Context) {
	subscriptions := h.fulfillment.ListSubscriptions(c.Request.Context())

	views := make([]models.SubscriptionView, 0, len(subscriptions))
	for i := range subscriptions {
		sub := &subscriptions[i]
		plans, err := h.fulfillment.ListPlans(c.Request.Context(), sub.ID)
		if err != nil {
			h.logger.Errorf("Listing plans for subscription %s failed: %v", sub.ID, err)
			plans = nil
		}
		h.planSync.Sync(sub.OfferID, plans)
		selected := findPlan(plans, sub.PlanID)
		views = append(views, models.MapSubscriptionView(sub, selected, plans))
	}

	response.OK(c, views)
}

// GetSubscription returns one subscription view, served from cache when the
// snapshot is fresh.
// GET /api/subscriptions/:id
func (h *Handlers) GetSubscription(c *gin.Context) {
	subscriptionID, ok := h.subscriptionID(c)
	if !ok {
		return
	}

	var cached models.SubscriptionView
	if h.cache.GetSubscription(c.Request.Context(), subscriptionID.String(), &cached) {
		response.OK(c, cached)
		return
	}

	view, ok := h.loadSubscriptionView(c, subscriptionID, c.Query("plan_id"))
	if !ok {
		return
	}

	h.cache.SetSubscription(c.Request.Context(), subscriptionID.String(), view, subscriptionCacheTTL)
	response.OK(c, view)
}

// ListSubscriptionPlans returns the plans the subscription can switch to.
// GET /api/subscriptions/:id/plans
func (h *Handlers) ListSubscriptionPlans(c *gin.Context) {
	subscriptionID, ok := h.subscriptionID(c)
	if !ok {
		return
	}

	plans, err := h.fulfillment.ListPlans(c.Request.Context(), subscriptionID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.OK(c, plans)
}

// ActivateSubscription signals fulfillment start for a pending subscription.
// POST /api/subscriptions/:id/activate
func (h *Handlers) ActivateSubscription(c *gin.Context) {
	subscriptionID, ok := h.subscriptionID(c)
	if !ok {
		return
	}

	var req struct {
		PlanID string `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	sub, err := h.fulfillment.GetSubscription(c.Request.Context(), subscriptionID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	// Already activating: nothing to do.
	if sub.Status == marketplace.StatusPendingFulfillmentStart {
		if err := h.fulfillment.ActivateSubscription(c.Request.Context(), subscriptionID, req.PlanID); err != nil {
			h.renderError(c, err)
			return
		}
	}

	h.cache.InvalidateSubscription(c.Request.Context(), subscriptionID.String())
	response.OK(c, gin.H{"subscription_id": subscriptionID, "plan_id": req.PlanID})
}

// ChangeSubscriptionPlan initiates a plan change and blocks until the vendor
// operation finishes or the request is cancelled.
// POST /api/subscriptions/:id/change-plan
func (h *Handlers) ChangeSubscriptionPlan(c *gin.Context) {
	subscriptionID, ok := h.subscriptionID(c)
	if !ok {
		return
	}

	var req struct {
		PlanID string `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	handle, err := h.fulfillment.ChangePlan(c.Request.Context(), subscriptionID, req.PlanID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	status, err := h.fulfillment.WaitForOperation(c.Request.Context(), handle.SubscriptionID, handle.OperationID)
	if err != nil {
		h.renderOperationError(c, err)
		return
	}

	h.cache.InvalidateSubscription(c.Request.Context(), subscriptionID.String())
	response.OK(c, gin.H{"operation_id": handle.OperationID, "status": status})
}

// ChangeSubscriptionQuantity initiates a seat-count change and blocks until
// the vendor operation finishes or the request is cancelled.
// POST /api/subscriptions/:id/change-quantity
func (h *Handlers) ChangeSubscriptionQuantity(c *gin.Context) {
	subscriptionID, ok := h.subscriptionID(c)
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	handle, err := h.fulfillment.ChangeQuantity(c.Request.Context(), subscriptionID, req.Quantity)
	if err != nil {
		h.renderError(c, err)
		return
	}

	status, err := h.fulfillment.WaitForOperation(c.Request.Context(), handle.SubscriptionID, handle.OperationID)
	if err != nil {
		h.renderOperationError(c, err)
		return
	}

	h.cache.InvalidateSubscription(c.Request.Context(), subscriptionID.String())
	response.OK(c, gin.H{"operation_id": handle.OperationID, "status": status})
}

// DeactivateSubscription initiates unsubscribe. The vendor completes it
// asynchronously; we return the operation handle without waiting.
// DELETE /api/subscriptions/:id
func (h *Handlers) DeactivateSubscription(c *gin.Context) {
	subscriptionID, ok := h.subscriptionID(c)
	if !ok {
		return
	}

	handle, err := h.fulfillment.DeleteSubscription(c.Request.Context(), subscriptionID, c.Query("plan_id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.cache.InvalidateSubscription(c.Request.Context(), subscriptionID.String())
	response.Accepted(c, handle)
}

// GetOperationStatus reads one operation status without polling.
// GET /api/subscriptions/:id/operations/:operationId
func (h *Handlers) GetOperationStatus(c *gin.Context) {
	subscriptionID, ok := h.subscriptionID(c)
	if !ok {
		return
	}
	operationID, err := uuid.Parse(c.Param("operationId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid operation id")
		return
	}

	status, err := h.fulfillment.GetOperationStatus(c.Request.Context(), subscriptionID, operationID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.OK(c, gin.H{"operation_id": operationID, "status": status})
}

// ListSubscriptionEvents returns the stored webhook events for one
// subscription, newest first.
// GET /api/subscriptions/:id/events
func (h *Handlers) ListSubscriptionEvents(c *gin.Context) {
	subscriptionID, ok := h.subscriptionID(c)
	if !ok {
		return
	}

	events, err := h.events.ListBySubscription(subscriptionID.String())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load events")
		return
	}
	response.OK(c, events)
}

// loadSubscriptionView fetches the subscription and its plans and maps the
// flattened view. Writes the error response itself on failure.
func (h *Handlers) loadSubscriptionView(c *gin.Context, subscriptionID uuid.UUID, planID string) (models.SubscriptionView, bool) {
	sub, err := h.fulfillment.GetSubscription(c.Request.Context(), subscriptionID)
	if err != nil {
		h.renderError(c, err)
		return models.SubscriptionView{}, false
	}

	plans, err := h.fulfillment.ListPlans(c.Request.Context(), sub.ID)
	if err != nil {
		h.renderError(c, err)
		return models.SubscriptionView{}, false
	}

	if planID == "" {
		planID = sub.PlanID
	}
	return models.MapSubscriptionView(sub, findPlan(plans, planID), plans), true
}

func (h *Handlers) subscriptionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.Fail(c, http.StatusBadRequest, "Invalid subscription id")
		return uuid.Nil, false
	}
	return id, true
}

// findPlan returns the plan with the given id, or nil.
func findPlan(plans []marketplace.PlanDetail, planID string) *marketplace.PlanDetail {
	for i := range plans {
		if plans[i].PlanID == planID {
			return &plans[i]
		}
	}
	return nil
}

// renderError maps domain errors onto HTTP statuses. Vendor detail stays in
// the logs; the client sees only the classification.
func (h *Handlers) renderError(c *gin.Context, err error) {
	var apiErr *marketplace.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case marketplace.CodeInvalidArgument, marketplace.CodeBadRequest:
			response.Fail(c, http.StatusBadRequest, string(apiErr.Code)+": "+string(apiErr.Action))
		case marketplace.CodeUnauthorized:
			response.Fail(c, http.StatusUnauthorized, "Marketplace credential rejected, please re-authenticate")
		case marketplace.CodeNotFound:
			response.Fail(c, http.StatusNotFound, "Resource not found")
		case marketplace.CodeConflict:
			response.Fail(c, http.StatusConflict, "Concurrent modification, please retry")
		default:
			h.logger.Errorf("Unclassified marketplace failure: %v", err)
			response.Fail(c, http.StatusBadGateway, "Marketplace request failed")
		}
		return
	}
	h.logger.Errorf("Unhandled error: %v", err)
	response.Fail(c, http.StatusInternalServerError, "Internal error")
}

// renderOperationError distinguishes a failed/capped poll from transport
// errors so the client can tell "the vendor said no" apart from "we could
// not ask".
func (h *Handlers) renderOperationError(c *gin.Context, err error) {
	var opErr *services.OperationFailedError
	if errors.As(err, &opErr) {
		response.Fail(c, http.StatusConflict, opErr.Error())
		return
	}
	if errors.Is(err, c.Request.Context().Err()) && c.Request.Context().Err() != nil {
		response.Fail(c, http.StatusGatewayTimeout, "Operation wait cancelled")
		return
	}
	h.renderError(c, err)
}
