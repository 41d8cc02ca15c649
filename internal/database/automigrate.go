package database

import (
	"fmt"

	"gorm.io/gorm"

	"ibooks/internal/models"
)

// AutoMigrate creates the model schema directly. Used for sqlite and tests.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
