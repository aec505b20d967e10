// Copyright 2024 evolvedb.

// Package migrate drives a live database through an ordered sequence of
// version-to-version steps. Each step projects the schema template at the
// step's two versions, asks the diff collaborator for the DDL that
// transforms one into the other, and executes that DDL together with the
// version-record write in a single transaction.
package migrate

import (
	"context"

	"github.com/evolvedb/evolve/internal/db"
	"github.com/evolvedb/evolve/internal/schema"
	"github.com/evolvedb/evolve/internal/version"
)

// A Differ is the external collaborator that computes the DDL needed to
// transform one concrete projected schema into another. Implementations
// are dialect specific and are expected to ignore cosmetic differences in
// index and constraint naming.
type Differ interface {
	// Diff returns the ordered DDL statements that transform the from
	// projection into the to projection for the given SQL dialect.
	Diff(ctx context.Context, from, to *schema.Projection, dialect string) ([]string, error)
}

// DifferFunc is a function adapter for the Differ interface.
type DifferFunc func(ctx context.Context, from, to *schema.Projection, dialect string) ([]string, error)

// Diff implements Differ.
func (f DifferFunc) Diff(ctx context.Context, from, to *schema.Projection, dialect string) ([]string, error) {
	return f(ctx, from, to, dialect)
}

// A Hook is a single upgrade callback. It receives the live database
// connection; hooks run inside the step transaction receive the
// transaction connection.
type Hook func(ctx context.Context, d *db.Database) error

// UpgradeHooks is the external collaborator that contributes caller
// supplied work to a migration run.
type UpgradeHooks interface {
	// Versions returns every version the collaborator declares hooks
	// or statements for. These versions become step boundaries.
	Versions() ([]version.Version, error)

	// Before returns the hooks to run before the DDL for the given
	// target version is generated.
	Before(v version.Version) []Hook

	// After returns the hooks to run, inside the step transaction,
	// after the DDL for the given target version has been executed.
	After(v version.Version) []Hook

	// UpgradeTo returns dialect-specific statements to run inside the
	// step transaction ahead of the generated diff.
	UpgradeTo(v version.Version) []string
}

// NoHooks is an UpgradeHooks implementation that declares nothing.
type NoHooks struct{}

// Versions implements UpgradeHooks.
func (NoHooks) Versions() ([]version.Version, error) { return nil, nil }

// Before implements UpgradeHooks.
func (NoHooks) Before(version.Version) []Hook { return nil }

// After implements UpgradeHooks.
func (NoHooks) After(version.Version) []Hook { return nil }

// UpgradeTo implements UpgradeHooks.
func (NoHooks) UpgradeTo(version.Version) []string { return nil }

var _ UpgradeHooks = NoHooks{}
