package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/response"
)

// ResolveLanding exchanges the purchase token the marketplace appends to the
// landing-page redirect for subscription identity, then primes the plan
// store with the subscription's available plans.
// POST /api/landing
func (h *Handlers) ResolveLanding(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	resolved, err := h.fulfillment.ResolveToken(c.Request.Context(), req.Token)
	if err != nil {
		h.renderError(c, err)
		return
	}

	sub, err := h.fulfillment.GetSubscription(c.Request.Context(), resolved.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	plans, err := h.fulfillment.ListPlans(c.Request.Context(), sub.ID)
	if err != nil {
		h.logger.Errorf("Listing plans at landing for %s failed: %v", sub.ID, err)
		plans = nil
	}
	h.planSync.Sync(sub.OfferID, plans)

	view := models.MapSubscriptionView(sub, findPlan(plans, sub.PlanID), plans)
	response.OK(c, gin.H{
		"resolved":     resolved,
		"subscription": view,
	})
}
