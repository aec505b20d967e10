// Copyright 2024 evolvedb.

package version

import "sort"

// A Set is a deduplicated collection of versions. Versions parsed from
// different, but equivalent, literals (for example "0.001" and "v0.001")
// occupy a single slot. The zero value is not usable, use NewSet.
type Set struct {
	m map[string]Version
}

// NewSet returns a new set containing the given versions.
func NewSet(versions ...Version) *Set {
	s := &Set{m: make(map[string]Version)}
	for _, v := range versions {
		s.Add(v)
	}
	return s
}

// Add adds v to the set. Adding a version that is already present, or the
// zero version, is a no-op.
func (s *Set) Add(v Version) {
	if v.IsZero() {
		return
	}
	k := v.key()
	if _, ok := s.m[k]; !ok {
		s.m[k] = v
	}
}

// AddAll adds every version in o to the set.
func (s *Set) AddAll(o *Set) {
	if o == nil {
		return
	}
	for _, v := range o.m {
		s.Add(v)
	}
}

// Len returns the number of distinct versions in the set.
func (s *Set) Len() int {
	return len(s.m)
}

// Contains reports whether the set holds a version equal to v.
func (s *Set) Contains(v Version) bool {
	_, ok := s.m[v.key()]
	return ok
}

// Sorted returns the versions in the set in ascending order.
func (s *Set) Sorted() []Version {
	versions := make([]Version, 0, len(s.m))
	for _, v := range s.m {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) < 0
	})
	return versions
}
