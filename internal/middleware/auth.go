package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fulfillment-api/internal/response"
)

// PublisherAuth guards the portal API with the publisher's API key. The key
// is passed via the X-API-Key header (query fallback for browser links).
func PublisherAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}

		if apiKey == "" || key != apiKey {
			response.Fail(c, http.StatusUnauthorized, "Missing or invalid API key")
			c.Abort()
			return
		}

		c.Set("request_time", time.Now())
		c.Next()
	}
}
