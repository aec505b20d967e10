// Copyright 2024 evolvedb.

// Package db contains routines to execute DDL against a database and to
// store and retrieve the version record.
package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evolvedb/evolve/internal/dbmodel"
	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/version"
)

// dbError translates an error returned from the database into the error
// form understood by the evolve system.
func dbError(err error) error {
	code := errors.ErrorCode(err)
	if err == gorm.ErrRecordNotFound {
		code = errors.CodeNotFound
	}
	return errors.E(code, err)
}

// A Database provides access to the database being migrated. A Database
// instance is safe to use from multiple goroutines, although the
// migration engine itself only ever runs one migration at a time.
type Database struct {
	// DB contains the gorm database connection.
	DB *gorm.DB
}

// configured checks that the database is ready to accept requests. An
// error with a code of errors.CodeServerConfiguration is returned if the
// database has not been initialised.
func (d *Database) configured() error {
	if d == nil || d.DB == nil {
		return errors.E(errors.CodeServerConfiguration, "database not configured")
	}
	return nil
}

// Init ensures the version table exists. It must be called once before
// the version record is read or written.
func (d *Database) Init(ctx context.Context) error {
	const op = errors.Op("db.Init")
	if err := d.configured(); err != nil {
		return errors.E(op, err)
	}
	if err := d.DB.WithContext(ctx).AutoMigrate(&dbmodel.SchemaVersion{}); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Transaction starts a new transaction using the database. This allows a
// set of changes to be performed as a single atomic unit. All of the
// transaction steps should be performed in the given function, if this
// function returns an error then all changes in the transaction will be
// aborted and the error returned. Transactions may be nested.
func (d *Database) Transaction(f func(*Database) error) error {
	if err := d.configured(); err != nil {
		return err
	}
	return d.DB.Transaction(func(tx *gorm.DB) error {
		d := *d
		d.DB = tx
		return f(&d)
	})
}

// Exec executes a single raw statement against the database.
func (d *Database) Exec(ctx context.Context, stmt string) error {
	const op = errors.Op("db.Exec")
	if err := d.configured(); err != nil {
		return errors.E(op, err)
	}
	if err := d.DB.WithContext(ctx).Exec(stmt).Error; err != nil {
		return errors.E(op, dbError(err))
	}
	return nil
}

// Name returns the name of the SQL dialect in use.
func (d *Database) Name() string {
	if d == nil || d.DB == nil {
		return ""
	}
	return d.DB.Name()
}

// CurrentVersion returns the version currently recorded for the database.
// The returned bool reports whether a record exists at all; a fresh
// database has none.
func (d *Database) CurrentVersion(ctx context.Context) (version.Version, bool, error) {
	const op = errors.Op("db.CurrentVersion")
	if err := d.configured(); err != nil {
		return version.Version{}, false, errors.E(op, err)
	}
	var rec dbmodel.SchemaVersion
	err := d.DB.WithContext(ctx).First(&rec, "component = ?", dbmodel.Component).Error
	if err == gorm.ErrRecordNotFound {
		return version.Version{}, false, nil
	}
	if err != nil {
		return version.Version{}, false, errors.E(op, dbError(err))
	}
	v, err := version.Parse(rec.Version)
	if err != nil {
		return version.Version{}, false, errors.E(op, err)
	}
	return v, true, nil
}

// SetCurrentVersion records v as the version currently applied to the
// database. When called inside a Transaction the write commits, or rolls
// back, together with the rest of the transaction.
func (d *Database) SetCurrentVersion(ctx context.Context, v version.Version) error {
	const op = errors.Op("db.SetCurrentVersion")
	if err := d.configured(); err != nil {
		return errors.E(op, err)
	}
	rec := dbmodel.SchemaVersion{Component: dbmodel.Component, Version: v.String()}
	err := d.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "component"}},
		DoUpdates: clause.AssignmentColumns([]string{"version"}),
	}).Create(&rec).Error
	if err != nil {
		return errors.E(op, dbError(err))
	}
	return nil
}

// Close closes open connections to the underlying database backend.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
