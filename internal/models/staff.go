package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff is a manager who can be assigned to actors. TelegramToken and
// TelegramChatID are nil when no messaging endpoint is configured.
type Staff struct {
	ID             string  `gorm:"primaryKey;size:36"`
	Name           string  `gorm:"size:128;not null;uniqueIndex"`
	Email          *string `gorm:"size:256"`
	Phone          *string `gorm:"size:64"`
	TelegramToken  *string `gorm:"size:128"`
	TelegramChatID *string `gorm:"size:64"`
	RoleType       string  `gorm:"size:32;default:manager"`
	CreatedAt      time.Time
}

func (Staff) TableName() string { return "staff" }

// BeforeCreate assigns an id when the caller did not supply one.
func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

// HasTelegram reports whether both Telegram credentials are present.
func (s *Staff) HasTelegram() bool {
	return s != nil &&
		s.TelegramToken != nil && *s.TelegramToken != "" &&
		s.TelegramChatID != nil && *s.TelegramChatID != ""
}

// StaffAssignment links a staff member to an actor under a free-form role
// label such as "sales" or "advertising". Uniqueness per (actor, type) is not
// enforced; the whole set for an actor is replaced on every admin save.
type StaffAssignment struct {
	ID             string `gorm:"primaryKey;size:36"`
	ActorID        string `gorm:"size:36;not null;index"`
	StaffID        string `gorm:"size:36;not null;index"`
	AssignmentType string `gorm:"size:64;not null"`
	Staff          *Staff `gorm:"foreignKey:StaffID"`
	CreatedAt      time.Time
}

func (StaffAssignment) TableName() string { return "actor_staff_assignment" }

// BeforeCreate assigns an id when the caller did not supply one.
func (a *StaffAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return nil
}
