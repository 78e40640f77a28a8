package models

import "time"

// WebhookEvent stores marketplace webhook payloads with deduplication
// metadata for idempotent processing.
type WebhookEvent struct {
	BaseModel

	OperationID     string     `json:"operation_id" gorm:"size:64;not null;default:'';uniqueIndex"`
	SubscriptionID  string     `json:"subscription_id" gorm:"size:64;not null;index"`
	Action          string     `json:"action" gorm:"size:50;not null;index"` // ChangePlan, ChangeQuantity, Unsubscribe, ...
	PlanID          string     `json:"plan_id" gorm:"size:100"`
	Quantity        int        `json:"quantity"`
	Status          string     `json:"status" gorm:"size:32"`
	PayloadJSON     string     `json:"payload_json" gorm:"type:text;not null"`
	SignatureValid  bool       `json:"signature_valid" gorm:"default:false;index"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `json:"processing_error" gorm:"type:text"`
}
