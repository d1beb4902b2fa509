package db

import (
	"fmt"

	"github.com/zulandar/marquee/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model owned by marquee for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Actor{},
		&models.Staff{},
		&models.StaffAssignment{},
		&models.AccessLog{},
		&models.ContactInquiry{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
