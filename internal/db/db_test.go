// Copyright 2024 evolvedb.

package db_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/evolvedb/evolve/internal/db"
	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/evolvetest"
	"github.com/evolvedb/evolve/internal/version"
)

func newDatabase(c *qt.C) *db.Database {
	d := &db.Database{DB: evolvetest.MemoryDB(c)}
	c.Assert(d.Init(context.Background()), qt.IsNil)
	return d
}

func TestUnconfiguredDatabase(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	var d db.Database
	err := d.Init(ctx)
	c.Check(err, qt.ErrorMatches, `database not configured`)
	c.Check(errors.ErrorCode(err), qt.Equals, errors.CodeServerConfiguration)

	err = d.Transaction(func(d *db.Database) error {
		return errors.E("unexpected function call")
	})
	c.Check(err, qt.ErrorMatches, `database not configured`)

	err = d.Exec(ctx, "SELECT 1")
	c.Check(err, qt.ErrorMatches, `database not configured`)

	_, _, err = d.CurrentVersion(ctx)
	c.Check(err, qt.ErrorMatches, `database not configured`)

	c.Check(d.Name(), qt.Equals, "")
	c.Check(d.Close(), qt.IsNil)
}

func TestVersionRecord(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	d := newDatabase(c)

	// A fresh database has no record.
	_, ok, err := d.CurrentVersion(ctx)
	c.Assert(err, qt.IsNil)
	c.Check(ok, qt.IsFalse)

	err = d.SetCurrentVersion(ctx, version.MustParse("0.001"))
	c.Assert(err, qt.IsNil)
	v, ok, err := d.CurrentVersion(ctx)
	c.Assert(err, qt.IsNil)
	c.Check(ok, qt.IsTrue)
	c.Check(v.Equal(version.MustParse("0.001")), qt.IsTrue)

	// The record is a single row, writing again overwrites it.
	err = d.SetCurrentVersion(ctx, version.MustParse("0.002"))
	c.Assert(err, qt.IsNil)
	v, _, _ = d.CurrentVersion(ctx)
	c.Check(v.Equal(version.MustParse("0.002")), qt.IsTrue)
}

func TestTransactionRollsBack(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	d := newDatabase(c)
	err := d.Transaction(func(tx *db.Database) error {
		if err := tx.Exec(ctx, "CREATE TABLE txtest (id INTEGER PRIMARY KEY)"); err != nil {
			return err
		}
		if err := tx.SetCurrentVersion(ctx, version.MustParse("9.9")); err != nil {
			return err
		}
		return errors.E("test error")
	})
	c.Check(err, qt.ErrorMatches, `test error`)

	// Neither the DDL nor the version write survived.
	c.Check(d.DB.Migrator().HasTable("txtest"), qt.IsFalse)
	_, ok, err := d.CurrentVersion(ctx)
	c.Assert(err, qt.IsNil)
	c.Check(ok, qt.IsFalse)
}

func TestTransactionCommits(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	d := newDatabase(c)
	err := d.Transaction(func(tx *db.Database) error {
		return tx.Exec(ctx, "CREATE TABLE txtest (id INTEGER PRIMARY KEY)")
	})
	c.Assert(err, qt.IsNil)
	c.Check(d.DB.Migrator().HasTable("txtest"), qt.IsTrue)
}

func TestName(t *testing.T) {
	c := qt.New(t)

	c.Check(newDatabase(c).Name(), qt.Equals, "sqlite")
}
