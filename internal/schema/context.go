// Copyright 2024 evolvedb.

package schema

import (
	"context"
	"fmt"

	"github.com/evolvedb/evolve/internal/db"
	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/version"
)

// ContextParams holds the parameters required to create a schema Context.
type ContextParams struct {
	// Model is the annotated schema template.
	Model *Model

	// Database is the database the context is bound to.
	Database *db.Database

	// Version is the version this context represents. The projections
	// produced by the context are made at this version.
	Version version.Version

	// SkipVersionCheck suppresses the safety check that the context's
	// version matches the version recorded in the database. It is set
	// only when deliberately building a context for a version the
	// database is not yet at, such as the target side of a migration
	// step. The flag is scoped to the single constructed context, there
	// is no global state to restore.
	SkipVersionCheck bool
}

// A Context pairs a schema template with a database connection at one
// specific version. It is the unit the step executor projects from.
type Context struct {
	params ContextParams
}

// NewContext creates a schema context for the given version. Unless
// p.SkipVersionCheck is set the version recorded in the database must
// match p.Version; a mismatch results in an error with a code of
// errors.CodeVersionMismatch. A database with no version record passes
// the check, it has not been migrated yet.
func NewContext(ctx context.Context, p ContextParams) (*Context, error) {
	const op = errors.Op("schema.NewContext")

	if p.Model == nil {
		return nil, errors.E(op, errors.CodeServerConfiguration, "no schema model configured")
	}
	if p.Version.IsZero() {
		p.Version = p.Model.Version
	}
	if !p.SkipVersionCheck {
		stored, ok, err := p.Database.CurrentVersion(ctx)
		if err != nil {
			return nil, errors.E(op, err)
		}
		if ok && !stored.Equal(p.Version) {
			return nil, errors.E(op, errors.CodeVersionMismatch, fmt.Sprintf("database is at version %s, not %s", stored, p.Version))
		}
	}
	return &Context{params: p}, nil
}

// Version returns the version the context represents.
func (c *Context) Version() version.Version {
	return c.params.Version
}

// Database returns the database the context is bound to.
func (c *Context) Database() *db.Database {
	return c.params.Database
}

// Project returns the projection of the context's model at the context's
// version, along with the set of version literals discovered in the
// template.
func (c *Context) Project() (*Projection, *version.Set, error) {
	return Project(c.params.Model, c.params.Version)
}
