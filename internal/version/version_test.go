// Copyright 2024 evolvedb.

package version_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/version"
)

var parseTests = []struct {
	s           string
	expectError string
}{{
	s: "0.001",
}, {
	s: "v0.001",
}, {
	s: "2.001.001",
}, {
	s: "v2.001.001",
}, {
	s: "10.20",
}, {
	s:           "xyz",
	expectError: `cannot parse version "xyz"`,
}, {
	s:           "1",
	expectError: `cannot parse version "1"`,
}, {
	s:           "1.2.3.4",
	expectError: `cannot parse version "1\.2\.3\.4"`,
}, {
	s:           "v",
	expectError: `cannot parse version "v"`,
}, {
	s:           "1.2-beta",
	expectError: `cannot parse version "1\.2-beta"`,
}, {
	s:           "",
	expectError: `cannot parse version ""`,
}}

func TestParse(t *testing.T) {
	c := qt.New(t)

	for _, test := range parseTests {
		c.Run(test.s, func(c *qt.C) {
			v, err := version.Parse(test.s)
			if test.expectError != "" {
				c.Check(err, qt.ErrorMatches, test.expectError)
				c.Check(errors.ErrorCode(err), qt.Equals, errors.CodeInvalidVersionFormat)
				return
			}
			c.Assert(err, qt.IsNil)
			c.Check(v.IsZero(), qt.IsFalse)
		})
	}
}

func TestCompare(t *testing.T) {
	c := qt.New(t)

	c.Check(version.MustParse("0.001").Compare(version.MustParse("v0.001")), qt.Equals, 0)
	c.Check(version.MustParse("2.001.001").Compare(version.MustParse("2.001")), qt.Equals, 1)
	c.Check(version.MustParse("2.001").Compare(version.MustParse("2.0")), qt.Equals, 1)
	c.Check(version.MustParse("2.0").Compare(version.MustParse("2.001.001")), qt.Equals, -1)
	c.Check(version.MustParse("0.4").Compare(version.MustParse("0.401")), qt.Equals, -1)
	c.Check(version.MustParse("1.0").Compare(version.MustParse("0.999")), qt.Equals, 1)

	// The zero version orders before everything.
	var zero version.Version
	c.Check(zero.Compare(version.MustParse("0.0")), qt.Equals, -1)
	c.Check(version.MustParse("0.0").Compare(zero), qt.Equals, 1)
	c.Check(zero.Compare(zero), qt.Equals, 0)
}

func TestString(t *testing.T) {
	c := qt.New(t)

	// The string form round-trips through Parse with the "v" prefix
	// stripped but component padding preserved.
	c.Check(version.MustParse("v0.001").String(), qt.Equals, "0.001")
	c.Check(version.MustParse("2.001.001").String(), qt.Equals, "2.001.001")
	v, err := version.Parse(version.MustParse("v0.003").String())
	c.Assert(err, qt.IsNil)
	c.Check(v.Equal(version.MustParse("0.003")), qt.IsTrue)
}

func TestSet(t *testing.T) {
	c := qt.New(t)

	s := version.NewSet()
	s.Add(version.MustParse("0.003"))
	s.Add(version.MustParse("0.001"))
	s.Add(version.MustParse("v0.001"))
	s.Add(version.MustParse("0.002"))
	s.Add(version.MustParse("0.002"))
	s.Add(version.Version{})

	c.Check(s.Len(), qt.Equals, 3)
	c.Check(s.Contains(version.MustParse("v0.002")), qt.IsTrue)
	c.Check(s.Contains(version.MustParse("0.004")), qt.IsFalse)

	sorted := s.Sorted()
	c.Assert(sorted, qt.HasLen, 3)
	c.Check(sorted[0].Equal(version.MustParse("0.001")), qt.IsTrue)
	c.Check(sorted[1].Equal(version.MustParse("0.002")), qt.IsTrue)
	c.Check(sorted[2].Equal(version.MustParse("0.003")), qt.IsTrue)
}

func TestSetAddAll(t *testing.T) {
	c := qt.New(t)

	s := version.NewSet(version.MustParse("0.001"))
	s.AddAll(version.NewSet(version.MustParse("0.002"), version.MustParse("v0.001")))
	s.AddAll(nil)
	c.Check(s.Len(), qt.Equals, 2)
}
