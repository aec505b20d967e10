// Copyright 2024 evolvedb.

package migrate

import (
	"github.com/evolvedb/evolve/internal/version"
)

// A Step is one adjacent version pair in a migration plan.
type Step struct {
	From version.Version
	To   version.Version
}

// OrderedVersions returns the ascending, deduplicated union of the stored
// database version, the schema's declared version, the versions declared
// by the upgrade-hook collaborator and the version literals discovered
// while projecting the template.
func OrderedVersions(dbVersion, schemaVersion version.Version, hookVersions []version.Version, discovered *version.Set) []version.Version {
	s := version.NewSet(dbVersion, schemaVersion)
	s.AddAll(discovered)
	for _, v := range hookVersions {
		s.Add(v)
	}
	return s.Sorted()
}

// Plan returns the strictly increasing chain of adjacent version pairs in
// versions lying within [from, to]. When from equals to the plan is
// empty: a migration to the version already applied is a no-op, not an
// error. Downgrades are not planned, a from later than to also yields an
// empty plan.
func Plan(versions []version.Version, from, to version.Version) []Step {
	var steps []Step
	prev := version.Version{}
	for _, v := range versions {
		if v.Compare(from) < 0 || v.Compare(to) > 0 {
			continue
		}
		if !prev.IsZero() && prev.Compare(v) < 0 {
			steps = append(steps, Step{From: prev, To: v})
		}
		prev = v
	}
	return steps
}
