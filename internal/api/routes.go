package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fulfillment-api/internal/config"
	"fulfillment-api/internal/database"
	"fulfillment-api/internal/middleware"
	"fulfillment-api/internal/services"
	"fulfillment-api/pkg/logging"
)

// Handlers bundles the services the HTTP layer dispatches into.
type Handlers struct {
	fulfillment *services.FulfillmentService
	planSync    *services.PlanSyncService
	webhooks    *services.WebhookService
	cache       *services.CacheService
	plans       *database.PlanStore
	events      *database.WebhookStore
	templates   *database.EmailTemplateStore
	cfg         *config.Config
	logger      logging.Logger
}

// NewHandlers wires the handler set.
func NewHandlers(fulfillment *services.FulfillmentService, planSync *services.PlanSyncService,
	webhooks *services.WebhookService, cache *services.CacheService, plans *database.PlanStore,
	events *database.WebhookStore, templates *database.EmailTemplateStore,
	cfg *config.Config, logger logging.Logger) *Handlers {
	return &Handlers{
		fulfillment: fulfillment,
		planSync:    planSync,
		webhooks:    webhooks,
		cache:       cache,
		plans:       plans,
		events:      events,
		templates:   templates,
		cfg:         cfg,
		logger:      logger,
	}
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")
	{
		// Publisher portal routes (require the publisher API key)
		portal := api.Group("")
		portal.Use(middleware.PublisherAuth(h.cfg.PublisherAPIKey))
		{
			subscriptions := portal.Group("/subscriptions")
			{
				subscriptions.GET("", h.ListSubscriptions)
				subscriptions.GET("/:id", h.GetSubscription)
				subscriptions.GET("/:id/plans", h.ListSubscriptionPlans)
				subscriptions.POST("/:id/activate", h.ActivateSubscription)
				subscriptions.POST("/:id/change-plan", h.ChangeSubscriptionPlan)
				subscriptions.POST("/:id/change-quantity", h.ChangeSubscriptionQuantity)
				subscriptions.DELETE("/:id", h.DeactivateSubscription)
				subscriptions.GET("/:id/operations/:operationId", h.GetOperationStatus)
				subscriptions.GET("/:id/events", h.ListSubscriptionEvents)
			}

			portal.POST("/landing", h.ResolveLanding)

			plans := portal.Group("/plans")
			{
				plans.GET("", h.ListPlans)
				plans.GET("/:id/attributes", h.GetPlanAttributes)
				plans.GET("/:id/events", h.GetPlanEvents)
				plans.POST("/:id/events", h.SavePlanEvent)
			}

			templates := portal.Group("/templates")
			{
				templates.GET("", h.ListEmailTemplates)
				templates.PUT("", h.SaveEmailTemplate)
			}
		}

		// Marketplace webhook (no portal auth; signature verified instead)
		api.POST("/webhook", h.MarketplaceWebhook)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": h.cfg.ServiceName,
		})
	})
}
