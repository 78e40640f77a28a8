package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"fulfillment-api/internal/models"
	"fulfillment-api/pkg/logging"
)

func newTestStore(t *testing.T) *PlanStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return NewPlanStore(db, logging.Nop{})
}

func TestUpsertCreatesPlanWithDimensions(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Upsert(&models.Plan{
		PlanID:              "gold",
		OfferID:             "contoso-saas",
		DisplayName:         "Gold",
		Description:         "Top tier",
		IsMeteringSupported: true,
		MeteredDimensions: []models.MeteredDimension{
			{Dimension: "api-calls", Description: "API calls"},
			{Dimension: "storage-gb", Description: "Storage in GB"},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	saved, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "gold", saved.PlanID)
	assert.Equal(t, "Gold", saved.DisplayName)
	assert.True(t, saved.IsMeteringSupported)
	require.Len(t, saved.MeteredDimensions, 2)
}

func TestUpsertIdempotent(t *testing.T) {
	store := newTestStore(t)

	def := func() *models.Plan {
		return &models.Plan{
			PlanID:      "gold",
			DisplayName: "Gold",
			MeteredDimensions: []models.MeteredDimension{
				{Dimension: "api-calls", Description: "API calls"},
			},
		}
	}

	first, err := store.Upsert(def())
	require.NoError(t, err)
	second, err := store.Upsert(def())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	saved, err := store.Get(first)
	require.NoError(t, err)
	require.Len(t, saved.MeteredDimensions, 1)
	assert.Equal(t, "API calls", saved.MeteredDimensions[0].Description)
}

func TestUpsertOverwritesScalarsKeepsIdentity(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Upsert(&models.Plan{PlanID: "silver", DisplayName: "Silver"})
	require.NoError(t, err)

	second, err := store.Upsert(&models.Plan{
		PlanID:      "silver",
		DisplayName: "Silver (updated)",
		Description: "Mid tier",
	})
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-upsert must reuse the existing row")

	saved, err := store.GetByPlanID("silver")
	require.NoError(t, err)
	assert.Equal(t, "Silver (updated)", saved.DisplayName)
	assert.Equal(t, "Mid tier", saved.Description)

	plans, err := store.List()
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestUpsertReconcilesDimensionsAdditively(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Upsert(&models.Plan{
		PlanID: "gold",
		MeteredDimensions: []models.MeteredDimension{
			{Dimension: "api-calls", Description: "API calls"},
			{Dimension: "storage-gb", Description: "Storage in GB"},
		},
	})
	require.NoError(t, err)

	// Second sync: one dimension gone from the feed, one renamed, one new.
	_, err = store.Upsert(&models.Plan{
		PlanID: "gold",
		MeteredDimensions: []models.MeteredDimension{
			{Dimension: "api-calls", Description: "API requests"},
			{Dimension: "bandwidth-gb", Description: "Bandwidth in GB"},
		},
	})
	require.NoError(t, err)

	saved, err := store.Get(id)
	require.NoError(t, err)
	require.Len(t, saved.MeteredDimensions, 3, "dimensions absent from the feed are retained")

	byName := map[string]string{}
	for _, dim := range saved.MeteredDimensions {
		byName[dim.Dimension] = dim.Description
	}
	assert.Equal(t, "API requests", byName["api-calls"])
	assert.Equal(t, "Storage in GB", byName["storage-gb"])
	assert.Equal(t, "Bandwidth in GB", byName["bandwidth-gb"])
}

func TestUpsertEmptyPlanIDIsNoop(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Upsert(&models.Plan{DisplayName: "nameless"})
	require.NoError(t, err)
	assert.Zero(t, id)

	id, err = store.Upsert(nil)
	require.NoError(t, err)
	assert.Zero(t, id)

	plans, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestRemoveMissingPlanIsNoop(t *testing.T) {
	store := newTestStore(t)

	err := store.Remove(&models.Plan{BaseModel: models.BaseModel{ID: 42}})
	assert.NoError(t, err)
}

func TestSavePlanEventUpserts(t *testing.T) {
	store := newTestStore(t)

	planID, err := store.Upsert(&models.Plan{PlanID: "gold"})
	require.NoError(t, err)

	require.NoError(t, store.SavePlanEvent(&models.PlanEvent{
		PlanID:             planID,
		EventName:          "Activate",
		IsActive:           true,
		SuccessStateEmails: "ops@contoso.com",
	}))
	require.NoError(t, store.SavePlanEvent(&models.PlanEvent{
		PlanID:             planID,
		EventName:          "Activate",
		IsActive:           true,
		SuccessStateEmails: "ops@contoso.com,billing@contoso.com",
		CopyToCustomer:     true,
	}))

	events, err := store.GetEventsByPlan(planID, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ops@contoso.com,billing@contoso.com", events[0].SuccessStateEmails)
	assert.True(t, events[0].CopyToCustomer)
}

func TestGetEventsByPlanFiltersPendingActivation(t *testing.T) {
	store := newTestStore(t)

	planID, err := store.Upsert(&models.Plan{PlanID: "gold"})
	require.NoError(t, err)

	require.NoError(t, store.SavePlanEvent(&models.PlanEvent{PlanID: planID, EventName: "Activate", IsActive: true}))
	require.NoError(t, store.SavePlanEvent(&models.PlanEvent{PlanID: planID, EventName: "Pending Activation", IsActive: true}))
	require.NoError(t, store.SavePlanEvent(&models.PlanEvent{PlanID: planID, EventName: "Unsubscribe", IsActive: false}))

	events, err := store.GetEventsByPlan(planID, false)
	require.NoError(t, err)
	assert.Len(t, events, 2, "inactive events are dropped")

	events, err = store.GetEventsByPlan(planID, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Activate", events[0].EventName)
}
