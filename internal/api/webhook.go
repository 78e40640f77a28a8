package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fulfillment-api/internal/response"
)

// MarketplaceWebhook receives lifecycle notifications from the marketplace.
// The payload signature is verified before processing; deliveries with a bad
// signature are recorded but rejected.
// POST /api/webhook
func (h *Handlers) MarketplaceWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil || len(payload) == 0 {
		response.Fail(c, http.StatusBadRequest, "Empty webhook payload")
		return
	}

	signature := c.GetHeader("X-Marketplace-Signature")
	if !h.webhooks.VerifySignature(payload, signature) {
		h.logger.Warnf("Webhook delivery with invalid signature from %s", c.ClientIP())
		response.Fail(c, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	if err := h.webhooks.Process(c.Request.Context(), payload, true); err != nil {
		h.logger.Errorf("Webhook processing failed: %v", err)
		response.Fail(c, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	response.OK(c, gin.H{"received": true})
}
