// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fhirsql_test

import (
	"database/sql"

	_ "github.com/duckdb/duckdb-go/v2"
	. "gopkg.in/check.v1"

	"github.com/canonical/fhirsql"
)

// ConformanceSuite runs the shared end-to-end expressions on both backends
// and requires identical rows in identical order.
type ConformanceSuite struct {
	sqlite *fhirsql.Translator
	duckdb *fhirsql.Translator
}

var _ = Suite(&ConformanceSuite{})

func (s *ConformanceSuite) SetUpSuite(c *C) {
	resolver := fhirsql.NewResolver(fhirsql.R4Lite())
	s.sqlite = fhirsql.NewTranslator(resolver, fhirsql.SQLite())
	s.duckdb = fhirsql.NewTranslator(resolver, fhirsql.DuckDB())
}

func setupDuckDBPatient(c *C) *sql.DB {
	db, err := sql.Open("duckdb", "")
	c.Assert(err, IsNil)
	_, err = db.Exec("CREATE TABLE patient (resource JSON)")
	c.Assert(err, IsNil)
	_, err = db.Exec("INSERT INTO patient (resource) VALUES (?)", patientDoc)
	c.Assert(err, IsNil)
	return db
}

func (s *ConformanceSuite) TestDialectsReturnIdenticalRows(c *C) {
	sqliteDB := setupPatientDB(c)
	defer sqliteDB.Close()
	duckDB := setupDuckDBPatient(c)
	defer duckDB.Close()

	for _, t := range endToEndTests {
		c.Logf("test: %s", t.summary)

		query, err := s.sqlite.AssembleQuery(t.expr, "Patient")
		c.Assert(err, IsNil)
		sqliteRows := queryValues(c, sqliteDB, query)

		query, err = s.duckdb.AssembleQuery(t.expr, "Patient")
		c.Assert(err, IsNil)
		duckRows := queryValues(c, duckDB, query)

		c.Check(sqliteRows, DeepEquals, t.expected)
		c.Check(duckRows, DeepEquals, t.expected)
	}
}
