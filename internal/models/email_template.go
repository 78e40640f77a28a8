package models

// EmailTemplate is the persisted body/subject pair used for lifecycle
// notifications. %s placeholders are filled by the email service.
type EmailTemplate struct {
	BaseModel

	Status      string `json:"status" gorm:"size:50;not null;uniqueIndex"` // lifecycle status the template belongs to
	Subject     string `json:"subject" gorm:"size:200;not null"`
	Body        string `json:"body" gorm:"type:text;not null"`
	InsertMerge bool   `json:"insert_merge" gorm:"default:true"` // substitute subscription fields into the body
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}
