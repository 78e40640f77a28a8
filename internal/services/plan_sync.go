package services

import (
	"fulfillment-api/internal/database"
	"fulfillment-api/internal/marketplace"
	"fulfillment-api/internal/models"
	"fulfillment-api/pkg/logging"
)

// PlanSyncService refreshes the local plan store from vendor plan payloads.
// Landing and listing flows run it so the store tracks what the marketplace
// currently offers.
type PlanSyncService struct {
	plans  *database.PlanStore
	logger logging.Logger
}

// NewPlanSyncService creates the sync service.
func NewPlanSyncService(plans *database.PlanStore, logger logging.Logger) *PlanSyncService {
	return &PlanSyncService{plans: plans, logger: logger}
}

// Sync upserts each vendor plan into the store and returns the internal ids
// keyed by external plan id. Individual failures are logged and skipped; one
// broken plan must not abort the sync of the rest.
func (s *PlanSyncService) Sync(offerID string, details []marketplace.PlanDetail) map[string]uint {
	ids := make(map[string]uint, len(details))
	for i := range details {
		def := mapPlanDefinition(offerID, &details[i])
		id, err := s.plans.Upsert(def)
		if err != nil {
			s.logger.Errorf("Plan sync failed for %s: %v", details[i].PlanID, err)
			continue
		}
		if id != 0 {
			ids[details[i].PlanID] = id
		}
	}
	return ids
}

// mapPlanDefinition converts a vendor plan into the stored shape.
func mapPlanDefinition(offerID string, detail *marketplace.PlanDetail) *models.Plan {
	def := &models.Plan{
		PlanID:              detail.PlanID,
		OfferID:             offerID,
		DisplayName:         detail.DisplayName,
		Description:         detail.Description,
		IsMeteringSupported: detail.HasMeteredDimensions(),
	}
	for _, dim := range detail.PlanComponents.MeteringDimensions {
		def.MeteredDimensions = append(def.MeteredDimensions, models.MeteredDimension{
			Dimension:   dim.ID,
			Description: dim.DisplayName,
		})
	}
	return def
}
