package models

import (
	"time"

	"gorm.io/gorm"
)

// ContactInquiry is one contact-form submission. Rows are written once and
// never updated.
type ContactInquiry struct {
	ID           string  `gorm:"primaryKey;size:36"`
	ActorID      string  `gorm:"size:36;not null;index"`
	Name         string  `gorm:"size:128;not null"`
	Organization *string `gorm:"size:256"`
	Message      string  `gorm:"type:text;not null"`
	CreatedAt    time.Time
}

func (ContactInquiry) TableName() string { return "contact_inquiries" }

// BeforeCreate assigns an id and creation time when missing.
func (c *ContactInquiry) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}
