// Package daemon bootstraps the application: logging, database,
// migrations, seeding and the web service.
package daemon

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/config"
	"github.com/silkcms/silk-admin/internal/db/dsn"
	"github.com/silkcms/silk-admin/internal/db/models"
	"github.com/silkcms/silk-admin/internal/logger"
	"github.com/silkcms/silk-admin/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService web.Service
}

// Start runs the web service on the configured port and blocks until it
// stops. Shutdown signals are handled in the background.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		panic(err)
	}

	db, err := openDB(cfg)
	if err != nil {
		panic(err)
	}

	if err := seed(cfg, db); err != nil {
		panic(err)
	}

	return &Daemon{
		cfg:        cfg,
		webService: *web.New(cfg, db),
	}
}

// openDB opens the configured database engine and migrates the schema.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserRole{},
		&models.AccessToken{},
		&models.WebContent{},
		&models.WebContentTranslation{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
