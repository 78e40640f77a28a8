package models

// PlanEvent wires a lifecycle event to the email recipients configured for a
// plan. SuccessStateEmails/FailureStateEmails hold comma separated addresses.
type PlanEvent struct {
	BaseModel

	PlanID             uint   `json:"plan_id" gorm:"not null;index:ux_plan_event_plan_event,unique,priority:1"`
	EventName          string `json:"event_name" gorm:"size:100;not null;index:ux_plan_event_plan_event,unique,priority:2"`
	IsActive           bool   `json:"is_active" gorm:"default:true"`
	SuccessStateEmails string `json:"success_state_emails" gorm:"type:text"`
	FailureStateEmails string `json:"failure_state_emails" gorm:"type:text"`
	CopyToCustomer     bool   `json:"copy_to_customer" gorm:"default:false"`
}
