// Copyright 2024 evolvedb.

package evolve_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/evolvedb/evolve"
	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/migrate"
	"github.com/evolvedb/evolve/internal/schema"
	"github.com/evolvedb/evolve/internal/version"
)

func testModel() *schema.Model {
	base := version.MustParse("0.001")
	since := version.MustParse("0.002")
	return &schema.Model{
		Name:        "widgets",
		Version:     version.MustParse("0.002"),
		BaseVersion: &base,
		Tables: []schema.Table{{
			Name:     "widgets",
			Validity: schema.Validity{Since: &since},
			Columns: []schema.Column{{
				Name:  "name",
				Attrs: schema.Attributes{"dataType": "TEXT"},
			}},
		}},
	}
}

// tableDiffer creates tables present in to but missing from from.
func tableDiffer() migrate.Differ {
	return migrate.DifferFunc(func(_ context.Context, from, to *schema.Projection, _ string) ([]string, error) {
		var stmts []string
		for _, t := range to.Tables {
			if from.Table(t.Name) != nil {
				continue
			}
			cols := make([]string, len(t.Columns))
			for i, col := range t.Columns {
				cols[i] = fmt.Sprintf("%s %s", col.Name, col.Attrs["dataType"])
			}
			stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (%s)", t.Name, strings.Join(cols, ", ")))
		}
		return stmts, nil
	})
}

func TestService(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	s, err := evolve.NewService(ctx, testModel(), tableDiffer(), nil, evolve.Params{
		DSN: "file:service_test?mode=memory&cache=shared",
	})
	c.Assert(err, qt.IsNil)
	defer s.Close()

	v, err := s.Upgrade(ctx)
	c.Assert(err, qt.IsNil)
	c.Check(v.Equal(version.MustParse("0.002")), qt.IsTrue)

	stored, ok, err := s.CurrentVersion(ctx)
	c.Assert(err, qt.IsNil)
	c.Check(ok, qt.IsTrue)
	c.Check(stored.Equal(version.MustParse("0.002")), qt.IsTrue)

	p, err := s.ProjectAt(version.MustParse("0.001"))
	c.Assert(err, qt.IsNil)
	c.Check(p.Table("widgets"), qt.IsNil)
	p, err = s.ProjectAt(version.MustParse("0.002"))
	c.Assert(err, qt.IsNil)
	c.Check(p.Table("widgets"), qt.Not(qt.IsNil))
}

func TestNewServiceUnsupportedDSN(t *testing.T) {
	c := qt.New(t)

	_, err := evolve.NewService(context.Background(), testModel(), tableDiffer(), nil, evolve.Params{
		DSN: "mysql://root@localhost/widgets",
	})
	c.Check(err, qt.ErrorMatches, `unsupported DSN`)
	c.Check(errors.ErrorCode(err), qt.Equals, errors.CodeServerConfiguration)
}

func TestNewServiceInitFailureClosesDB(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	const dsn = "file:service_initfail_test?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	c.Assert(err, qt.IsNil)
	// A view squatting on the version table's name makes schema
	// initialisation fail after the connection has been opened.
	c.Assert(gdb.Exec("CREATE VIEW schema_versions AS SELECT 'schema' AS component, '0.1' AS version").Error, qt.IsNil)

	_, err = evolve.NewService(ctx, testModel(), tableDiffer(), nil, evolve.Params{DSN: dsn})
	c.Assert(err, qt.Not(qt.IsNil))

	// Closing the last connection destroys a shared in-memory database.
	// If the failed service leaked its pool the view would survive the
	// reconnect below.
	sqlDB, err := gdb.DB()
	c.Assert(err, qt.IsNil)
	c.Assert(sqlDB.Close(), qt.IsNil)

	gdb, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	c.Assert(err, qt.IsNil)
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	var n int64
	err = gdb.Raw("SELECT COUNT(*) FROM sqlite_master WHERE name = 'schema_versions'").Scan(&n).Error
	c.Assert(err, qt.IsNil)
	c.Check(n, qt.Equals, int64(0))
}

func TestNewServiceMissingCollaborators(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	_, err := evolve.NewService(ctx, nil, tableDiffer(), nil, evolve.Params{})
	c.Check(err, qt.ErrorMatches, `no schema model configured`)

	_, err = evolve.NewService(ctx, testModel(), nil, nil, evolve.Params{})
	c.Check(err, qt.ErrorMatches, `no diff collaborator configured`)
}
