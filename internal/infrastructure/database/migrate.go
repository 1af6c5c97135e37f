package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/model"
)

// Migrate creates or updates the billing tables
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(
		&model.BillingAccount{},
		&model.ProcessedEvent{},
	); err != nil {
		return fmt.Errorf("failed to migrate billing tables: %w", err)
	}
	log.Info("Database migrations completed")
	return nil
}
