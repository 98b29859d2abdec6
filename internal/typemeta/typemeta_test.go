// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typemeta_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/fhirsql/internal/typemeta"
)

// Hook up gocheck into the "go test" runner.
func TestTypemeta(t *testing.T) { TestingT(t) }

type typemetaSuite struct {
	resolver *typemeta.Resolver
}

var _ = Suite(&typemetaSuite{})

func (s *typemetaSuite) SetUpSuite(c *C) {
	s.resolver = typemeta.NewResolver(typemeta.R4Lite())
}

func (s *typemetaSuite) TestCanonical(c *C) {
	tests := []struct {
		name      string
		canonical string
	}{
		{"code", "string"},
		{"Code", "string"},
		{"CODE", "string"},
		{"FHIR.code", "string"},
		{"System.String", "string"},
		{"unsignedInt", "integer"},
		{"instant", "dateTime"},
		{"string", "string"},
		{"Patient", "Patient"},
		{"patient", "Patient"},
	}
	for _, t := range tests {
		canonical, err := s.resolver.Canonical(t.name)
		c.Assert(err, IsNil, Commentf("name %q", t.name))
		c.Check(canonical, Equals, t.canonical, Commentf("name %q", t.name))
	}
}

func (s *typemetaSuite) TestCanonicalUnknown(c *C) {
	_, err := s.resolver.Canonical("NoSuchType")
	c.Assert(err, ErrorMatches, `unknown type "NoSuchType"`)
	typeErr, ok := err.(typemeta.UnknownTypeError)
	c.Assert(ok, Equals, true)
	c.Check(typeErr.Name, Equals, "NoSuchType")
}

func (s *typemetaSuite) TestIsSubtypeOf(c *C) {
	c.Check(s.resolver.IsSubtypeOf("Patient", "DomainResource"), Equals, true)
	c.Check(s.resolver.IsSubtypeOf("Patient", "Resource"), Equals, true)
	c.Check(s.resolver.IsSubtypeOf("Patient", "Patient"), Equals, true)
	c.Check(s.resolver.IsSubtypeOf("patient", "resource"), Equals, true)
	c.Check(s.resolver.IsSubtypeOf("Resource", "Patient"), Equals, false)
	c.Check(s.resolver.IsSubtypeOf("HumanName", "Resource"), Equals, false)
	c.Check(s.resolver.IsSubtypeOf("HumanName", "Element"), Equals, true)
}

func (s *typemetaSuite) TestIsSubtypeOfCycleTerminates(c *C) {
	// A cycle in the supertype data must report false, not hang.
	r := typemeta.NewResolver(typemeta.Tables{
		Supertypes: map[string][]string{
			"A": {"B"},
			"B": {"C"},
			"C": {"A"},
		},
	})
	c.Check(r.IsSubtypeOf("A", "D"), Equals, false)
	c.Check(r.IsSubtypeOf("A", "C"), Equals, true)
}

func (s *typemetaSuite) TestIsArrayElement(c *C) {
	c.Check(s.resolver.IsArrayElement("Patient", "name"), Equals, true)
	c.Check(s.resolver.IsArrayElement("Patient", "birthDate"), Equals, false)
	c.Check(s.resolver.IsArrayElement("Patient", "name.given"), Equals, true)
	c.Check(s.resolver.IsArrayElement("Patient", "name.family"), Equals, false)
	c.Check(s.resolver.IsArrayElement("HumanName", "family"), Equals, false)
	c.Check(s.resolver.IsArrayElement("HumanName", "given"), Equals, true)
	c.Check(s.resolver.IsArrayElement("Observation", "component.valueQuantity"), Equals, false)
}

func (s *typemetaSuite) TestIsArrayElementFailsClosed(c *C) {
	// Unknown types and missing segments feed a flattening decision, so
	// they report false rather than erroring.
	c.Check(s.resolver.IsArrayElement("NoSuchType", "name"), Equals, false)
	c.Check(s.resolver.IsArrayElement("Patient", "noSuchElement"), Equals, false)
	c.Check(s.resolver.IsArrayElement("Patient", "birthDate.given"), Equals, false)
	c.Check(s.resolver.IsArrayElement("Patient", "name.noSuchElement"), Equals, false)
}

func (s *typemetaSuite) TestElementType(c *C) {
	typ, ok := s.resolver.ElementType("Patient", "name")
	c.Assert(ok, Equals, true)
	c.Check(typ, Equals, "HumanName")

	typ, ok = s.resolver.ElementType("HumanName", "given")
	c.Assert(ok, Equals, true)
	c.Check(typ, Equals, "string")

	_, ok = s.resolver.ElementType("Patient", "noSuchElement")
	c.Check(ok, Equals, false)
}

func (s *typemetaSuite) TestIsBackbone(c *C) {
	c.Check(s.resolver.IsBackbone("Patient.Contact"), Equals, true)
	c.Check(s.resolver.IsBackbone("Observation.Component"), Equals, true)
	c.Check(s.resolver.IsBackbone("HumanName"), Equals, false)
	c.Check(s.resolver.IsBackbone("Patient"), Equals, false)
}

func (s *typemetaSuite) TestProfileBase(c *C) {
	base, ok := s.resolver.ProfileBase("bp")
	c.Assert(ok, Equals, true)
	c.Check(base, Equals, "Observation")

	base, ok = s.resolver.ProfileBase("us-core-patient")
	c.Assert(ok, Equals, true)
	c.Check(base, Equals, "Patient")

	_, ok = s.resolver.ProfileBase("Patient")
	c.Check(ok, Equals, false)
}
