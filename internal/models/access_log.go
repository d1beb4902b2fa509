package models

import (
	"time"

	"gorm.io/gorm"
)

// AccessLog is one visitor's viewing interval for one actor profile.
// ExitTime and DurationSeconds stay nil until the first exit signal lands.
type AccessLog struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	ActorID         string     `gorm:"size:36;not null;index" json:"actor_id"`
	SessionID       string     `gorm:"size:64;not null;index" json:"session_id"`
	IPAddress       *string    `gorm:"size:64" json:"ip_address"`
	UserAgent       *string    `gorm:"type:text" json:"user_agent"`
	EntryTime       time.Time  `gorm:"not null;index" json:"entry_time"`
	ExitTime        *time.Time `json:"exit_time"`
	DurationSeconds *int       `json:"duration_seconds"`
}

func (AccessLog) TableName() string { return "access_logs" }

// BeforeCreate assigns an id when the caller did not supply one.
func (l *AccessLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = newID()
	}
	return nil
}
