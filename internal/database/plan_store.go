package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fulfillment-api/internal/models"
	"fulfillment-api/pkg/logging"
)

// PlanStore persists plan metadata and metered dimensions.
type PlanStore struct {
	db     *gorm.DB
	logger logging.Logger
}

// NewPlanStore creates a plan store over the given connection.
func NewPlanStore(db *gorm.DB, logger logging.Logger) *PlanStore {
	return &PlanStore{db: db, logger: logger}
}

// Upsert reconciles an incoming plan definition against storage, keyed by the
// external plan id. Scalar fields are overwritten; dimensions are reconciled
// additively (see reconcileDimensions). Returns the internal plan id, or 0
// when the definition carries no external id and nothing was saved.
func (s *PlanStore) Upsert(def *models.Plan) (uint, error) {
	if def == nil || def.PlanID == "" {
		return 0, nil
	}

	var planID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Plan
		err := tx.Preload("MeteredDimensions").
			Where("plan_id = ?", def.PlanID).
			First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// First sight of this plan id: insert with its dimension set.
			if err := tx.Create(def).Error; err != nil {
				return fmt.Errorf("failed to create plan %s: %w", def.PlanID, err)
			}
			planID = def.ID
			return nil
		}
		if err != nil {
			return err
		}

		existing.PlanID = def.PlanID
		existing.DisplayName = def.DisplayName
		existing.Description = def.Description
		existing.OfferID = def.OfferID
		existing.IsMeteringSupported = def.IsMeteringSupported
		if err := tx.Model(&models.Plan{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"plan_id":               existing.PlanID,
			"display_name":          existing.DisplayName,
			"description":           existing.Description,
			"offer_id":              existing.OfferID,
			"is_metering_supported": existing.IsMeteringSupported,
		}).Error; err != nil {
			return fmt.Errorf("failed to update plan %s: %w", def.PlanID, err)
		}

		if err := s.reconcileDimensions(tx, def, &existing); err != nil {
			return err
		}

		planID = existing.ID
		return nil
	})
	if err != nil {
		s.logger.Errorf("Plan upsert failed for %s: %v", def.PlanID, err)
		return 0, err
	}
	return planID, nil
}

// reconcileDimensions is additive: incoming dimensions are inserted when
// missing and their descriptions refreshed when changed. Stored dimensions
// absent from the incoming definition are left untouched.
func (s *PlanStore) reconcileDimensions(tx *gorm.DB, def, existing *models.Plan) error {
	for i := range def.MeteredDimensions {
		dim := &def.MeteredDimensions[i]
		dim.PlanID = existing.ID

		var stored models.MeteredDimension
		err := tx.Where("plan_id = ? AND dimension = ?", existing.ID, dim.Dimension).
			First(&stored).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			create := models.MeteredDimension{
				PlanID:      existing.ID,
				Dimension:   dim.Dimension,
				Description: dim.Description,
			}
			if err := tx.Create(&create).Error; err != nil {
				return fmt.Errorf("failed to add dimension %s: %w", dim.Dimension, err)
			}
			continue
		}
		if err != nil {
			return err
		}

		if stored.Description != dim.Description {
			if err := tx.Model(&stored).Update("description", dim.Description).Error; err != nil {
				return fmt.Errorf("failed to update dimension %s: %w", dim.Dimension, err)
			}
		}
	}
	return nil
}

// Remove deletes a plan by internal id. Missing rows are a no-op.
func (s *PlanStore) Remove(plan *models.Plan) error {
	var existing models.Plan
	err := s.db.Where("id = ?", plan.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.Delete(&existing).Error
}

// Get fetches a plan by internal id with its dimensions.
func (s *PlanStore) Get(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.Preload("MeteredDimensions").First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetByPlanID fetches a plan by external plan id with its dimensions.
func (s *PlanStore) GetByPlanID(planID string) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.Preload("MeteredDimensions").First(&plan, "plan_id = ?", planID).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// List returns all stored plans with their dimensions.
func (s *PlanStore) List() ([]models.Plan, error) {
	var plans []models.Plan
	if err := s.db.Preload("MeteredDimensions").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// GetPlanAttributes returns the offer parameters enabled for a plan.
func (s *PlanStore) GetPlanAttributes(planID uint) ([]models.PlanAttribute, error) {
	var attributes []models.PlanAttribute
	err := s.db.Raw(
		`SELECT * FROM plan_attribute WHERE plan_id = ? AND is_enabled = ? ORDER BY offer_attribute_id`,
		planID, true,
	).Scan(&attributes).Error
	if err != nil {
		return nil, err
	}
	return attributes, nil
}

// GetEventsByPlan returns the active notification events configured for a
// plan. "Pending Activation" rows are dropped when automatic provisioning is
// enabled, since that event never fires in that mode.
func (s *PlanStore) GetEventsByPlan(planID uint, autoProvisioningSupported bool) ([]models.PlanEvent, error) {
	var events []models.PlanEvent
	err := s.db.Raw(
		`SELECT * FROM plan_event WHERE plan_id = ? AND is_active = ? ORDER BY event_name`,
		planID, true,
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}

	filtered := make([]models.PlanEvent, 0, len(events))
	for _, event := range events {
		if event.EventName == "Pending Activation" && autoProvisioningSupported {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered, nil
}

// SavePlanEvent upserts one notification event row for a plan.
func (s *PlanStore) SavePlanEvent(event *models.PlanEvent) error {
	var existing models.PlanEvent
	err := s.db.Where("plan_id = ? AND event_name = ?", event.PlanID, event.EventName).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(event).Error
	}
	if err != nil {
		return err
	}

	existing.IsActive = event.IsActive
	existing.SuccessStateEmails = event.SuccessStateEmails
	existing.FailureStateEmails = event.FailureStateEmails
	existing.CopyToCustomer = event.CopyToCustomer
	return s.db.Save(&existing).Error
}
