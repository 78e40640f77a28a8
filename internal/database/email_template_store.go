package database

import (
	"errors"

	"gorm.io/gorm"

	"fulfillment-api/internal/models"
)

// EmailTemplateStore reads and writes the lifecycle notification templates.
type EmailTemplateStore struct {
	db *gorm.DB
}

// NewEmailTemplateStore creates a template store over the given connection.
func NewEmailTemplateStore(db *gorm.DB) *EmailTemplateStore {
	return &EmailTemplateStore{db: db}
}

// GetByStatus returns the active template for a lifecycle status, or nil when
// none is configured.
func (s *EmailTemplateStore) GetByStatus(status string) (*models.EmailTemplate, error) {
	var tpl models.EmailTemplate
	err := s.db.Where("status = ? AND is_active = ?", status, true).First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Save upserts a template keyed by lifecycle status.
func (s *EmailTemplateStore) Save(tpl *models.EmailTemplate) error {
	var existing models.EmailTemplate
	err := s.db.Where("status = ?", tpl.Status).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(tpl).Error
	}
	if err != nil {
		return err
	}

	existing.Subject = tpl.Subject
	existing.Body = tpl.Body
	existing.InsertMerge = tpl.InsertMerge
	existing.IsActive = tpl.IsActive
	return s.db.Save(&existing).Error
}

// List returns all templates.
func (s *EmailTemplateStore) List() ([]models.EmailTemplate, error) {
	var templates []models.EmailTemplate
	err := s.db.Find(&templates).Error
	return templates, err
}
