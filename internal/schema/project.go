// Copyright 2024 evolvedb.

package schema

import (
	"fmt"

	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/version"
)

// A Projection is the concrete schema shape valid at a single version:
// a snapshot derived from a Model with entities outside their validity
// interval removed and the changes overlays applied cumulatively up to
// the target version. Projections are transient, they are handed to the
// diff collaborator and then discarded.
type Projection struct {
	// Version is the version the projection was made at.
	Version version.Version

	// Tables holds the projected tables in declaration order.
	Tables []Table
}

// Table returns the named projected table, or nil.
func (p *Projection) Table(name string) *Table {
	for i := range p.Tables {
		if p.Tables[i].Name == name {
			return &p.Tables[i]
		}
	}
	return nil
}

// RemoveTable removes the named table from the projection.
func (p *Projection) RemoveTable(name string) {
	for i := range p.Tables {
		if p.Tables[i].Name == name {
			p.Tables = append(p.Tables[:i], p.Tables[i+1:]...)
			return
		}
	}
}

// RemoveColumn removes the named column from the named table.
func (p *Projection) RemoveColumn(table, name string) {
	t := p.Table(table)
	if t == nil {
		return
	}
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
			return
		}
	}
}

// RemoveRelationship removes the named relationship from the named table.
func (p *Projection) RemoveRelationship(table, name string) {
	t := p.Table(table)
	if t == nil {
		return
	}
	for i := range t.Relationships {
		if t.Relationships[i].Name == name {
			t.Relationships = append(t.Relationships[:i], t.Relationships[i+1:]...)
			return
		}
	}
}

// Project derives the concrete schema shape valid at the target version
// from the given template. The model itself is never touched, projection
// works on an independent copy. Alongside the projection it returns the
// set of every version literal encountered in the template's validity
// metadata, whether or not the owning entity survived.
//
// Structural problems in the template are reported before any database
// interaction: a since version after the until version results in an
// error with a code of errors.CodeInvalidRange naming the owning entity.
func Project(m *Model, target version.Version) (*Projection, *version.Set, error) {
	const op = errors.Op("schema.Project")

	discovered := version.NewSet()
	p := &Projection{Version: target}
	for _, t := range m.Tables {
		p.Tables = append(p.Tables, t.copy())

		// Columns and relationships are evaluated before the table's
		// own validity so that their version literals are discovered
		// even when the whole table ends up dropped.
		for _, col := range t.Columns {
			discovered.AddAll(version.NewSet(col.Validity.versions()...))
			if err := col.Validity.validateRange(fmt.Sprintf("column %s.%s", t.Name, col.Name)); err != nil {
				return nil, nil, errors.E(op, err)
			}
			if !col.Validity.visibleAt(target) {
				p.RemoveColumn(t.Name, col.Name)
				continue
			}
			pc := p.Table(t.Name).Column(col.Name)
			pc.Attrs = overlay(pc.Attrs, col.Validity.sortedChanges(), target)
		}
		for _, rel := range t.Relationships {
			discovered.AddAll(version.NewSet(rel.Validity.versions()...))
			if err := rel.Validity.validateRange(fmt.Sprintf("relationship %s.%s", t.Name, rel.Name)); err != nil {
				return nil, nil, errors.E(op, err)
			}
			if !rel.Validity.visibleAt(target) {
				p.RemoveRelationship(t.Name, rel.Name)
				continue
			}
			pr := p.Table(t.Name).Relationship(rel.Name)
			pr.Attrs = overlay(pr.Attrs, rel.Validity.sortedChanges(), target)
		}

		discovered.AddAll(version.NewSet(t.Validity.versions()...))
		if err := t.Validity.validateRange("table " + t.Name); err != nil {
			return nil, nil, errors.E(op, err)
		}
		if !t.Validity.visibleAt(target) {
			p.RemoveTable(t.Name)
			continue
		}
		pt := p.Table(t.Name)
		pt.Attrs = overlay(pt.Attrs, t.Validity.sortedChanges(), target)
	}
	return p, discovered, nil
}

// overlay applies every patch whose version is at or before the target,
// in ascending version order, cumulatively onto the attributes.
func overlay(attrs Attributes, changes []Change, target version.Version) Attributes {
	for _, c := range changes {
		if c.Version.Compare(target) > 0 {
			break
		}
		if len(c.Patch) == 0 {
			continue
		}
		if attrs == nil {
			attrs = make(Attributes)
		}
		for k, v := range c.Patch {
			attrs[k] = v
		}
	}
	return attrs
}
