package models

import (
	"time"

	"gorm.io/gorm"
)

// Actor is the subject of profile views and inquiries. Only the columns the
// access-log views need are mapped.
type Actor struct {
	ID        string `gorm:"primaryKey;size:36"`
	NameKo    string `gorm:"size:128;not null"`
	CreatedAt time.Time
}

func (Actor) TableName() string { return "actors" }

// BeforeCreate assigns an id when the caller did not supply one.
func (a *Actor) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return nil
}

// DisplayName returns the Korean name, falling back to a short id prefix.
func DisplayName(actorID string, names map[string]string) string {
	if n := names[actorID]; n != "" {
		return n
	}
	if r := []rune(actorID); len(r) > 8 {
		return string(r[:8])
	}
	return actorID
}
