package models

// Plan mirrors a marketplace offer plan. Rows are written only through the
// upsert path: the marketplace owns plan identity, we persist a local copy
// keyed by the externally assigned plan id.
type Plan struct {
	BaseModel

	PlanID              string `json:"plan_id" gorm:"size:100;not null;uniqueIndex"` // external plan id, unique within an offer
	OfferID             string `json:"offer_id" gorm:"size:100;index"`
	DisplayName         string `json:"display_name" gorm:"size:200"`
	Description         string `json:"description" gorm:"type:text"`
	IsMeteringSupported bool   `json:"is_metering_supported"`

	MeteredDimensions []MeteredDimension `json:"metered_dimensions" gorm:"foreignKey:PlanID;references:ID"`
}

// MeteredDimension is a billable usage axis owned by exactly one plan.
// (plan_id, dimension) is unique.
type MeteredDimension struct {
	BaseModel

	PlanID      uint   `json:"plan_id" gorm:"not null;uniqueIndex:ux_metered_dimension_plan_dim,priority:1"`
	Dimension   string `json:"dimension" gorm:"size:100;not null;uniqueIndex:ux_metered_dimension_plan_dim,priority:2"`
	Description string `json:"description" gorm:"size:500"`
}

// PlanAttribute is an offer parameter enabled for a plan. Read through a raw
// parameterized query in the plan store.
type PlanAttribute struct {
	BaseModel

	PlanID           uint   `json:"plan_id" gorm:"not null;index"`
	OfferAttributeID int    `json:"offer_attribute_id"`
	DisplayName      string `json:"display_name" gorm:"size:200"`
	Type             string `json:"type" gorm:"size:50"`
	IsEnabled        bool   `json:"is_enabled" gorm:"default:true"`
}
