// Copyright 2024 evolvedb.

// Package schema contains the annotated schema template and the
// version-projection algorithm that derives the concrete table shape
// valid at any requested version.
package schema

import (
	"fmt"
	"sort"

	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/version"
)

// Attributes holds the free-form attribute map of a schema entity, for
// example the data type and nullability of a column. The projector only
// ever copies and overlays these maps, it does not interpret them.
type Attributes map[string]interface{}

func (a Attributes) copy() Attributes {
	if a == nil {
		return nil
	}
	c := make(Attributes, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// A Change is a single entry in an entity's changes overlay: the
// attribute patch to apply from the given version onwards.
type Change struct {
	Version version.Version
	Patch   Attributes
}

// Validity is the version metadata attached to a table, column or
// relationship. It governs whether, and with which attributes, the entity
// appears in a projection at a given target version.
type Validity struct {
	// Since is the version the entity was introduced at. A nil Since
	// means the entity has been present since schema inception.
	Since *version.Version

	// Until is the last version the entity is present at. It is
	// evaluated before Since and is absolute: the entity is dropped at
	// any version after Until even if Since would admit it.
	Until *version.Version

	// RenamedFrom records the entity's previous name. It is tracked as
	// metadata only, no structural rename is ever performed: the old
	// name is dropped and the new one created.
	RenamedFrom string

	// Changes is the ordered attribute-patch overlay, applied
	// cumulatively in ascending version order up to the target version.
	Changes []Change
}

// versions returns every version literal mentioned by the validity.
func (v Validity) versions() []version.Version {
	var vs []version.Version
	if v.Since != nil {
		vs = append(vs, *v.Since)
	}
	if v.Until != nil {
		vs = append(vs, *v.Until)
	}
	for _, c := range v.Changes {
		vs = append(vs, c.Version)
	}
	return vs
}

// validateRange checks the since/until interval. The owner is the
// human-readable name of the entity the validity is attached to.
func (v Validity) validateRange(owner string) error {
	if v.Since != nil && v.Until != nil && v.Since.Compare(*v.Until) > 0 {
		return errors.E(errors.CodeInvalidRange, fmt.Sprintf("%s: since %s is after until %s", owner, v.Since, v.Until))
	}
	return nil
}

// visibleAt reports whether the entity is present at the target version.
// Until is tested first and is absolute.
func (v Validity) visibleAt(target version.Version) bool {
	if v.Until != nil && target.Compare(*v.Until) > 0 {
		return false
	}
	if v.Since != nil && target.Compare(*v.Since) < 0 {
		return false
	}
	return true
}

// sortedChanges returns the changes overlay in ascending version order.
func (v Validity) sortedChanges() []Change {
	changes := make([]Change, len(v.Changes))
	copy(changes, v.Changes)
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Version.Compare(changes[j].Version) < 0
	})
	return changes
}

func (v Validity) copy() Validity {
	c := v
	c.Changes = make([]Change, len(v.Changes))
	for i, ch := range v.Changes {
		c.Changes[i] = Change{Version: ch.Version, Patch: ch.Patch.copy()}
	}
	return c
}

// ParseValidity builds a Validity from the raw metadata exposed by the
// schema declaration surface. The recognised keys are:
//
//   - "since": either a bare version literal, or a mapping of version
//     literal to attribute patch describing cumulative changes. In the
//     mapping form the smallest version is the creation version; an
//     entry with an empty patch denotes pure creation and contributes no
//     attribute change.
//   - "until" (synonym "till"): a bare version literal.
//   - "renamedFrom": the entity's previous name.
//
// Malformed version literals result in an error with a code of
// errors.CodeInvalidVersionFormat; a changes entry whose patch is not an
// attribute map results in errors.CodeInvalidChanges.
func ParseValidity(meta map[string]interface{}) (Validity, error) {
	const op = errors.Op("schema.ParseValidity")

	var validity Validity
	if raw, ok := meta["since"]; ok {
		switch since := raw.(type) {
		case string:
			v, err := version.Parse(since)
			if err != nil {
				return Validity{}, errors.E(op, err)
			}
			validity.Since = &v
		case map[string]interface{}:
			changes := make([]Change, 0, len(since))
			for literal, patch := range since {
				v, err := version.Parse(literal)
				if err != nil {
					return Validity{}, errors.E(op, err)
				}
				change := Change{Version: v}
				switch patch := patch.(type) {
				case nil:
				case map[string]interface{}:
					change.Patch = Attributes(patch).copy()
				case Attributes:
					change.Patch = patch.copy()
				default:
					return Validity{}, errors.E(op, errors.CodeInvalidChanges, fmt.Sprintf("changes entry for version %s is not an attribute patch", v))
				}
				changes = append(changes, change)
			}
			sort.SliceStable(changes, func(i, j int) bool {
				return changes[i].Version.Compare(changes[j].Version) < 0
			})
			// Every entry is kept, empty patches included: the overlay
			// ignores them, but their version literals must still be
			// discoverable through versions().
			if len(changes) > 0 {
				since := changes[0].Version
				validity.Since = &since
				validity.Changes = changes
			}
		default:
			return Validity{}, errors.E(op, errors.CodeInvalidChanges, fmt.Sprintf("since metadata has unexpected type %T", raw))
		}
	}
	until, ok := meta["until"]
	if !ok {
		until, ok = meta["till"]
	}
	if ok {
		s, isString := until.(string)
		if !isString {
			return Validity{}, errors.E(op, errors.CodeInvalidVersionFormat, fmt.Sprintf("until metadata has unexpected type %T", until))
		}
		v, err := version.Parse(s)
		if err != nil {
			return Validity{}, errors.E(op, err)
		}
		validity.Until = &v
	}
	if renamed, ok := meta["renamedFrom"].(string); ok {
		validity.RenamedFrom = renamed
	}
	return validity, nil
}

// A Column is a single column of a table template.
type Column struct {
	Name     string
	Attrs    Attributes
	Validity Validity
}

func (c Column) copy() Column {
	c.Attrs = c.Attrs.copy()
	c.Validity = c.Validity.copy()
	return c
}

// A Relationship is a relationship declared on a table template, for
// example a foreign-key reference to another table.
type Relationship struct {
	Name     string
	Attrs    Attributes
	Validity Validity
}

func (r Relationship) copy() Relationship {
	r.Attrs = r.Attrs.copy()
	r.Validity = r.Validity.copy()
	return r
}

// A Table is a single table template with its columns and relationships.
type Table struct {
	Name          string
	Attrs         Attributes
	Columns       []Column
	Relationships []Relationship
	Validity      Validity
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Relationship returns the named relationship, or nil.
func (t *Table) Relationship(name string) *Relationship {
	for i := range t.Relationships {
		if t.Relationships[i].Name == name {
			return &t.Relationships[i]
		}
	}
	return nil
}

func (t Table) copy() Table {
	c := t
	c.Attrs = t.Attrs.copy()
	c.Validity = t.Validity.copy()
	c.Columns = make([]Column, len(t.Columns))
	for i, col := range t.Columns {
		c.Columns[i] = col.copy()
	}
	c.Relationships = make([]Relationship, len(t.Relationships))
	for i, rel := range t.Relationships {
		c.Relationships[i] = rel.copy()
	}
	return c
}

// A Model is the immutable annotated schema template. It is built once by
// the external declaration loader and never mutated by projection.
type Model struct {
	// Name identifies the schema.
	Name string

	// Version is the version the template currently declares.
	Version version.Version

	// BaseVersion, if non-nil, is the version a freshly created database
	// is seeded at before the first migration run.
	BaseVersion *version.Version

	// Tables holds the table templates in declaration order.
	Tables []Table
}
