// Copyright 2024 evolvedb.

// Package dbmodel contains the model objects for the relational storage
// database.
package dbmodel

// Component is the component name in the version table. It mostly exists
// for the purposes of there being a primary key on the table, so that the
// record is a single row.
const Component = "schema"

// A SchemaVersion is the single persisted record of the version currently
// applied to the live database. It is read before planning a migration
// run and written in the same transaction as each step's DDL.
type SchemaVersion struct {
	// Component identifies the component the stored version is for.
	Component string `gorm:"primaryKey"`

	// Version is the stored version literal.
	Version string
}
