// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fhirsql_test

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	. "gopkg.in/check.v1"

	"github.com/canonical/fhirsql"
	"github.com/canonical/fhirsql/fhirpath"
)

// Hook up gocheck into the "go test" runner.
func TestPackage(t *testing.T) { TestingT(t) }

type PackageSuite struct {
	translator *fhirsql.Translator
}

var _ = Suite(&PackageSuite{})

func (s *PackageSuite) SetUpSuite(c *C) {
	resolver := fhirsql.NewResolver(fhirsql.R4Lite())
	s.translator = fhirsql.NewTranslator(resolver, fhirsql.SQLite())
}

// patientDoc is the document used by the end-to-end tests. The repeated
// given name across the two HumanNames exercises ordering and dedup.
const patientDoc = `{
	"resourceType": "Patient",
	"gender": "female",
	"active": true,
	"birthDate": "1990-04-12",
	"name": [
		{"use": "official", "family": "Chalmers", "prefix": ["Mr"], "given": ["Peter", "James"]},
		{"use": "nickname", "given": ["Jim", "Peter"]}
	],
	"telecom": [
		{"system": "phone", "value": "555-1234"},
		{"system": "email", "value": "peter@example.com"}
	],
	"extension": [
		{"url": "http://example.org/place-of-birth", "valueString": "Leiden"}
	]
}`

func setupPatientDB(c *C) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	c.Assert(err, IsNil)
	_, err = db.Exec("CREATE TABLE patient (resource TEXT)")
	c.Assert(err, IsNil)
	_, err = db.Exec("INSERT INTO patient (resource) VALUES (?)", patientDoc)
	c.Assert(err, IsNil)
	return db
}

// queryValues runs the statement and returns the value column of every row
// in a backend-neutral form: JSON-quoted strings are unquoted and booleans
// render as 1/0.
func queryValues(c *C, db *sql.DB, query string) []string {
	rows, err := db.Query(query)
	c.Assert(err, IsNil, Commentf("query: %s", query))
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v any
		c.Assert(rows.Scan(&v), IsNil)
		out = append(out, normalizeValue(v))
	}
	c.Assert(rows.Err(), IsNil)
	return out
}

func normalizeValue(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return "<null>"
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		s = string(x)
	case string:
		s = x
	default:
		return fmt.Sprintf("%v", x)
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
			return unquoted
		}
	}
	return s
}

func ident(name string) *fhirpath.Identifier {
	return &fhirpath.Identifier{Name: name}
}

// chain builds a left-associated navigation path from bare identifiers.
func chain(names ...string) fhirpath.Node {
	var node fhirpath.Node = ident(names[0])
	for _, name := range names[1:] {
		node = &fhirpath.Path{Base: node, Segment: ident(name)}
	}
	return node
}

func dot(base, segment fhirpath.Node) *fhirpath.Path {
	return &fhirpath.Path{Base: base, Segment: segment}
}

func call(target fhirpath.Node, name string, args ...fhirpath.Node) *fhirpath.Call {
	return &fhirpath.Call{Name: name, Target: target, Args: args}
}

func str(v string) *fhirpath.Literal {
	return &fhirpath.Literal{Kind: fhirpath.KindString, Value: v}
}

func lit(v string) *fhirpath.Literal {
	return &fhirpath.Literal{Value: v}
}

func binary(op fhirpath.BinaryOp, left, right fhirpath.Node) *fhirpath.Binary {
	return &fhirpath.Binary{Op: op, Left: left, Right: right}
}

// endToEndTests drives both the SQLite suite below and the dual-backend
// conformance suite; every entry must return the same rows on every backend.
var endToEndTests = []struct {
	summary  string
	expr     fhirpath.Node
	expected []string
}{{
	"scalar field",
	chain("birthDate"),
	[]string{"1990-04-12"},
}, {
	"nested arrays flatten in document order",
	chain("name", "given"),
	[]string{"Peter", "James", "Jim", "Peter"},
}, {
	"filter keeps element order",
	dot(call(chain("name"), "where",
		binary(fhirpath.OpEqual, ident("use"), str("official"))), ident("given")),
	[]string{"Peter", "James"},
}, {
	"count collapses to one row",
	call(chain("name", "given"), "count"),
	[]string{"4"},
}, {
	"first",
	call(chain("name", "given"), "first"),
	[]string{"Peter"},
}, {
	"last",
	call(chain("name", "given"), "last"),
	[]string{"Peter"},
}, {
	"tail drops the first element",
	call(chain("name", "given"), "tail"),
	[]string{"James", "Jim", "Peter"},
}, {
	"take",
	call(chain("name", "given"), "take", lit("2")),
	[]string{"Peter", "James"},
}, {
	"skip",
	call(chain("name", "given"), "skip", lit("3")),
	[]string{"Peter"},
}, {
	"distinct keeps first-occurrence order",
	call(chain("name", "given"), "distinct"),
	[]string{"Peter", "James", "Jim"},
}, {
	"union concatenates left before right and dedups",
	binary(fhirpath.OpUnion, chain("name", "given"), chain("name", "prefix")),
	[]string{"Peter", "James", "Jim", "Mr"},
}, {
	"combine keeps duplicates",
	call(chain("name", "given"), "combine", chain("name", "prefix")),
	[]string{"Peter", "James", "Jim", "Peter", "Mr"},
}, {
	"exists with a condition",
	call(chain("telecom"), "exists",
		binary(fhirpath.OpEqual, ident("system"), str("phone"))),
	[]string{"1"},
}, {
	"empty",
	call(chain("address"), "empty"),
	[]string{"1"},
}, {
	"string function on a scalar",
	call(chain("gender"), "upper"),
	[]string{"FEMALE"},
}, {
	"comparison",
	binary(fhirpath.OpLess, chain("birthDate"), lit("2000-01-01")),
	[]string{"1"},
}, {
	"single on a one-element receiver",
	call(chain("birthDate"), "single"),
	[]string{"1990-04-12"},
}, {
	"extension lookup",
	dot(call(nil, "extension", str("http://example.org/place-of-birth")),
		ident("valueString")),
	[]string{"Leiden"},
}}

func (s *PackageSuite) TestSQLiteEndToEnd(c *C) {
	db := setupPatientDB(c)
	defer db.Close()

	for _, t := range endToEndTests {
		c.Logf("test: %s", t.summary)
		query, err := s.translator.AssembleQuery(t.expr, "Patient")
		c.Assert(err, IsNil)
		c.Check(queryValues(c, db, query), DeepEquals, t.expected)
	}
}

func (s *PackageSuite) TestDistinctAcrossArrays(c *C) {
	// Bob appears late in the first given array and first in the second;
	// dedup must keep its earliest overall position, not a fabricated one.
	db := setupPatientDB(c)
	defer db.Close()
	_, err := db.Exec("DELETE FROM patient")
	c.Assert(err, IsNil)
	_, err = db.Exec("INSERT INTO patient (resource) VALUES (?)",
		`{"resourceType": "Patient", "name": [{"given": ["Zed", "Amy", "Bob"]}, {"given": ["Bob"]}]}`)
	c.Assert(err, IsNil)

	query, err := s.translator.AssembleQuery(call(chain("name", "given"), "distinct"), "Patient")
	c.Assert(err, IsNil)
	c.Check(queryValues(c, db, query), DeepEquals, []string{"Zed", "Amy", "Bob"})

	query, err = s.translator.AssembleQuery(
		binary(fhirpath.OpUnion, chain("name", "given"), chain("name", "given")), "Patient")
	c.Assert(err, IsNil)
	c.Check(queryValues(c, db, query), DeepEquals, []string{"Zed", "Amy", "Bob"})
}

func (s *PackageSuite) TestSQLiteConditional(c *C) {
	db := setupPatientDB(c)
	defer db.Close()

	query, err := s.translator.AssembleQuery(
		call(nil, "iif", chain("active"), str("yes"), str("no")), "Patient")
	c.Assert(err, IsNil)
	c.Check(queryValues(c, db, query), DeepEquals, []string{"yes"})
}

func (s *PackageSuite) TestMultiplePatients(c *C) {
	db := setupPatientDB(c)
	defer db.Close()

	_, err := db.Exec("INSERT INTO patient (resource) VALUES (?)",
		`{"resourceType": "Patient", "gender": "male", "name": [{"given": ["Ada"]}]}`)
	c.Assert(err, IsNil)

	query, err := s.translator.AssembleQuery(call(chain("name", "given"), "count"), "Patient")
	c.Assert(err, IsNil)
	c.Check(queryValues(c, db, query), DeepEquals, []string{"5"})
}

func (s *PackageSuite) TestBuildCTEChain(c *C) {
	ctes, err := s.translator.BuildCTEChain(chain("name", "given"), "Patient")
	c.Assert(err, IsNil)
	c.Assert(ctes, HasLen, 2)
	c.Check(ctes[0].Name, Equals, "q1")
	c.Check(ctes[1].Name, Equals, "q2")
	c.Check(ctes[1].DependsOn, DeepEquals, []string{"q1"})
	c.Check(ctes[1].OrderingColumns, DeepEquals, []string{"ord0", "ord1"})
}

func (s *PackageSuite) TestTranslateErrors(c *C) {
	_, err := s.translator.AssembleQuery(call(chain("name"), "frobnicate"), "Patient")
	c.Assert(err, ErrorMatches, `cannot translate expression: unsupported function "frobnicate"`)

	_, err = s.translator.AssembleQuery(chain("birthDate"), "NoSuchResource")
	c.Assert(err, ErrorMatches, `cannot translate expression: unknown type "NoSuchResource"`)
}
