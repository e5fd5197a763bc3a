package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/config"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
)

// leadLockActiveIndex enforces at most one live lock per lead. AutoMigrate
// cannot express a partial unique index, so it is created explicitly.
const leadLockActiveIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_lead_locks_active ON lead_locks (order_id) WHERE is_active`

// Run migrates the full schema on the provided connection.
func Run(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database connection required")
	}

	if err := conn.WithContext(ctx).AutoMigrate(
		&models.Customer{},
		&models.Partner{},
		&models.Agent{},
		&models.ServiceablePincode{},
		&models.CreditPlan{},
		&models.Order{},
		&models.LeadLock{},
		&models.CreditTransaction{},
		&models.OrderStatusHistory{},
		&models.OutboxEvent{},
	); err != nil {
		return fmt.Errorf("auto migrating schema: %w", err)
	}

	if err := conn.WithContext(ctx).Exec(leadLockActiveIndex).Error; err != nil {
		return fmt.Errorf("creating lead lock index: %w", err)
	}

	return nil
}

// MaybeRunDev migrates automatically when the app runs in dev mode with the
// feature flag enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, conn *gorm.DB) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "running schema migration (dev auto-run)")

	if err := Run(ctx, conn); err != nil {
		return err
	}

	logg.Info(ctx, "schema migration completed")
	return nil
}
