package store

import (
	"fmt"

	"github.com/yonetim/opsdesk/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.ChatMessage{},
		&models.Recipient{},
		&models.NotificationRecord{},
		&models.ServiceRequest{},
		&models.FileAttachment{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("store: auto-migrate: %w", err)
	}
	return nil
}

// Reset drops and recreates all tables. Destructive; used by `opsdesk db reset`.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("store: drop tables: %w", err)
	}
	return AutoMigrate(db)
}
