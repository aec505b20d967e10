// Copyright 2024 evolvedb.

// Package evolve provides a versioned-schema migration service: a
// relational schema is declared once with version annotations on every
// table, column and relationship, and evolve projects the concrete
// shape valid at any version and drives a live database through the
// ordered migration steps between two versions.
package evolve

import (
	"context"
	"strings"

	"github.com/juju/zaputil/zapctx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/evolvedb/evolve/internal/db"
	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/logger"
	"github.com/evolvedb/evolve/internal/migrate"
	"github.com/evolvedb/evolve/internal/schema"
	"github.com/evolvedb/evolve/internal/version"
)

// A Params structure contains the parameters required to initialise a new
// Service.
type Params struct {
	// DSN is the data source name of the database to migrate. DSNs with
	// a "postgres", "postgresql" or "pgx" scheme use the PostgreSQL
	// driver; "file:" DSNs use SQLite.
	DSN string `json:"dsn"`

	// LogLevel is the default logger's level, for example "info" or
	// "debug". If empty the default logger is left untouched.
	LogLevel string `json:"log-level"`

	// LogDevMode selects colorized plain-text logging instead of JSON
	// structured logging.
	LogDevMode bool `json:"log-dev-mode"`
}

// A Service is a migration service for a single database. Its zero value
// is not usable, use NewService.
type Service struct {
	model    *schema.Model
	database *db.Database
	engine   *migrate.Engine
}

// NewService creates a migration service for the given schema template
// and database. The differ computes dialect-specific DDL between two
// projections; hooks may be nil.
func NewService(ctx context.Context, model *schema.Model, differ migrate.Differ, hooks migrate.UpgradeHooks, p Params) (*Service, error) {
	const op = errors.Op("evolve.NewService")

	if p.LogLevel != "" {
		logger.SetupLogger(p.LogLevel, p.LogDevMode)
	}
	if model == nil {
		return nil, errors.E(op, errors.CodeServerConfiguration, "no schema model configured")
	}
	if differ == nil {
		return nil, errors.E(op, errors.CodeServerConfiguration, "no diff collaborator configured")
	}
	gdb, err := openDB(ctx, p.DSN)
	if err != nil {
		return nil, errors.E(op, err)
	}
	s := &Service{
		model:    model,
		database: &db.Database{DB: gdb},
	}
	if err := s.database.Init(ctx); err != nil {
		s.database.Close()
		return nil, errors.E(op, err)
	}
	s.engine = &migrate.Engine{
		Model:    model,
		Database: s.database,
		Differ:   differ,
		Hooks:    hooks,
	}
	return s, nil
}

// Upgrade migrates the database to the schema template's declared
// version. It returns the last successfully committed version; see
// migrate.Engine.Upgrade.
func (s *Service) Upgrade(ctx context.Context) (version.Version, error) {
	return s.engine.Upgrade(ctx)
}

// CurrentVersion returns the version currently recorded for the
// database. The bool reports whether a record exists.
func (s *Service) CurrentVersion(ctx context.Context) (version.Version, bool, error) {
	return s.database.CurrentVersion(ctx)
}

// ProjectAt returns the concrete schema shape valid at the target
// version.
func (s *Service) ProjectAt(target version.Version) (*schema.Projection, error) {
	p, _, err := schema.Project(s.model, target)
	return p, err
}

// Close closes the service's database connection.
func (s *Service) Close() error {
	return s.database.Close()
}

func openDB(ctx context.Context, dsn string) (*gorm.DB, error) {
	zapctx.Info(ctx, "connecting database")

	var dialect gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "pgx:"):
		dialect = postgres.Open(strings.TrimPrefix(dsn, "pgx:"))
	case strings.HasPrefix(dsn, "postgres:") || strings.HasPrefix(dsn, "postgresql:"):
		dialect = postgres.Open(dsn)
	case strings.HasPrefix(dsn, "file:"):
		dialect = sqlite.Open(dsn)
	default:
		return nil, errors.E(errors.CodeServerConfiguration, "unsupported DSN")
	}
	return gorm.Open(dialect, &gorm.Config{
		Logger: logger.GormLogger{},
	})
}
