package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/response"
)

// ListPlans returns the locally stored plans with their metered dimensions.
// GET /api/plans
func (h *Handlers) ListPlans(c *gin.Context) {
	plans, err := h.plans.List()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load plans")
		return
	}
	response.OK(c, plans)
}

// GetPlanAttributes returns the offer parameters enabled for a plan.
// GET /api/plans/:id/attributes
func (h *Handlers) GetPlanAttributes(c *gin.Context) {
	planID, ok := planInternalID(c)
	if !ok {
		return
	}

	attributes, err := h.plans.GetPlanAttributes(planID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load plan attributes")
		return
	}
	response.OK(c, attributes)
}

// GetPlanEvents returns the notification events configured for a plan.
// GET /api/plans/:id/events
func (h *Handlers) GetPlanEvents(c *gin.Context) {
	planID, ok := planInternalID(c)
	if !ok {
		return
	}

	events, err := h.plans.GetEventsByPlan(planID, h.cfg.AutoProvisioningSupported)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load plan events")
		return
	}
	response.OK(c, events)
}

// SavePlanEventRequest configures one notification event for a plan.
type SavePlanEventRequest struct {
	EventName          string `json:"event_name" binding:"required"`
	IsActive           bool   `json:"is_active"`
	SuccessStateEmails string `json:"success_state_emails"`
	FailureStateEmails string `json:"failure_state_emails"`
	CopyToCustomer     bool   `json:"copy_to_customer"`
}

// SavePlanEvent upserts a notification event row for a plan.
// POST /api/plans/:id/events
func (h *Handlers) SavePlanEvent(c *gin.Context) {
	planID, ok := planInternalID(c)
	if !ok {
		return
	}

	var req SavePlanEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	event := &models.PlanEvent{
		PlanID:             planID,
		EventName:          req.EventName,
		IsActive:           req.IsActive,
		SuccessStateEmails: req.SuccessStateEmails,
		FailureStateEmails: req.FailureStateEmails,
		CopyToCustomer:     req.CopyToCustomer,
	}
	if err := h.plans.SavePlanEvent(event); err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to save plan event")
		return
	}
	response.OK(c, event)
}

// ListEmailTemplates returns all lifecycle email templates.
// GET /api/templates
func (h *Handlers) ListEmailTemplates(c *gin.Context) {
	templates, err := h.templates.List()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load templates")
		return
	}
	response.OK(c, templates)
}

// SaveEmailTemplateRequest upserts one lifecycle template.
type SaveEmailTemplateRequest struct {
	Status      string `json:"status" binding:"required"`
	Subject     string `json:"subject" binding:"required"`
	Body        string `json:"body" binding:"required"`
	InsertMerge bool   `json:"insert_merge"`
	IsActive    bool   `json:"is_active"`
}

// SaveEmailTemplate upserts a template keyed by lifecycle status.
// PUT /api/templates
func (h *Handlers) SaveEmailTemplate(c *gin.Context) {
	var req SaveEmailTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	tpl := &models.EmailTemplate{
		Status:      req.Status,
		Subject:     req.Subject,
		Body:        req.Body,
		InsertMerge: req.InsertMerge,
		IsActive:    req.IsActive,
	}
	if err := h.templates.Save(tpl); err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to save template")
		return
	}
	response.OK(c, tpl)
}

func planInternalID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.Fail(c, http.StatusBadRequest, "Invalid plan id")
		return 0, false
	}
	return uint(id), true
}
