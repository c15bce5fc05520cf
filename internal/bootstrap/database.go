package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"quickride/internal/models"
)

// Migrate ensures all tables and indexes exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Car{},
		&models.Booking{},
		&models.Payment{},
		&models.PaymentRequest{},
	}
}
