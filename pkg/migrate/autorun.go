package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/angelmondragon/kds-backend/pkg/db"
	"github.com/angelmondragon/kds-backend/pkg/logger"
)

// MaybeRunDev applies pending embedded migrations when running in dev with auto-migrate on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	dialect := Dialect(cfg.DB.Driver)
	applied, err := Run(ctx, sqlDB, dialect, EmbeddedDir, "up")
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	ctx = logg.WithFields(ctx, map[string]any{"dialect": dialect, "applied": len(applied)})
	if len(applied) == 0 {
		logg.Debug(ctx, "migrate.up_to_date")
		return nil
	}
	for _, r := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version": r.Version,
			"name":    r.Name,
			"took_ms": r.Took.Milliseconds(),
		}), "migrate.applied")
	}
	return nil
}
