package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"tourline/internal/config"
	"tourline/internal/db"
	"tourline/internal/engine"
	"tourline/internal/migrate"
)

// ResolveConfig loads the workspace config. An explicit path wins over the
// workspace file, and a workspace without a config file runs on the defaults.
func ResolveConfig(workspace, configPath string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.FromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		return cfg, nil
	}
	return config.LoadOptional(workspace)
}

// OpenEngine opens and migrates the workspace database, resolves the config and
// seeds the configured sensors into the sensor registry. The caller closes the
// returned DB.
func OpenEngine(ctx context.Context, workspace, configPath, actorID string, logger *slog.Logger) (engine.Engine, *sql.DB, error) {
	cfg, err := ResolveConfig(workspace, configPath)
	if err != nil {
		return engine.Engine{}, nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, cfg)
	e.Logger = logger
	if err := e.SeedSensors(ctx, cfg.Sensors, actorID); err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	return e, conn, nil
}
