// Copyright 2024 evolvedb.

// Package version contains the representation of schema revision numbers
// and collections of them.
package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/evolvedb/evolve/internal/errors"
)

// A Version is a single schema revision parsed from its string form. The
// zero Version represents "no version" and orders before every parsed
// version.
type Version struct {
	s     string
	parts []int
}

// versionPat matches the accepted version literal forms: a dotted pair or
// triplet of decimal numbers, optionally prefixed with "v".
var versionPat = regexp.MustCompile(`^v?(\d+)\.(\d+)(?:\.(\d+))?$`)

// Parse parses a version literal. Accepted forms are "0.001", "v0.001"
// and "2.001.001". Anything else results in an error with a code of
// errors.CodeInvalidVersionFormat.
func Parse(s string) (Version, error) {
	const op = errors.Op("version.Parse")

	m := versionPat.FindStringSubmatch(s)
	if m == nil {
		return Version{}, errors.E(op, errors.CodeInvalidVersionFormat, `cannot parse version "`+s+`"`)
	}
	v := Version{s: strings.TrimPrefix(s, "v")}
	for _, p := range m[1:] {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			// Unreachable, the pattern only matches digits.
			return Version{}, errors.E(op, errors.CodeInvalidVersionFormat, err)
		}
		v.parts = append(v.parts, n)
	}
	return v, nil
}

// MustParse is like Parse except that it panics on error. It is intended
// for use with hard-coded version literals.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String implements fmt.Stringer. It returns the literal the version was
// parsed from, without any "v" prefix, so that the result round-trips
// through Parse.
func (v Version) String() string {
	return v.s
}

// IsZero reports whether v is the zero "no version" value.
func (v Version) IsZero() bool {
	return v.parts == nil
}

// key returns the canonical identity of the version, used to deduplicate
// equivalent literals such as "0.001" and "v0.1".
func (v Version) key() string {
	parts := make([]string, len(v.parts))
	for i, p := range v.parts {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// Compare compares v with w. It returns -1 if v is earlier than w, 0 if
// they are the same version and 1 if v is later than w. Comparison is by
// numeric component, left to right; a version that extends another with
// additional components orders after it, so 2.001.001 > 2.001 > 2.0.
func (v Version) Compare(w Version) int {
	n := len(v.parts)
	if len(w.parts) < n {
		n = len(w.parts)
	}
	for i := 0; i < n; i++ {
		switch {
		case v.parts[i] < w.parts[i]:
			return -1
		case v.parts[i] > w.parts[i]:
			return 1
		}
	}
	switch {
	case len(v.parts) < len(w.parts):
		return -1
	case len(v.parts) > len(w.parts):
		return 1
	}
	return 0
}

// Equal reports whether v and w represent the same version, even if they
// were parsed from different literals.
func (v Version) Equal(w Version) bool {
	return v.Compare(w) == 0
}
