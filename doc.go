// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package fhirsql compiles FHIRPath expression trees into SQL that runs
directly on FHIR resources stored as JSON documents in SQLite or DuckDB.

Rather than evaluating expressions resource by resource in application code,
the translator turns each expression into a chain of common table
expressions (CTEs) that the database executes as one statement. Each
navigation into a repeating element becomes a flattening sub-query, each
filter or aggregate becomes a further sub-query over the previous one, and
the chain ends in a single SELECT producing one row per result element.

# Data model

Resources are stored one per row, in a table named after the lower-cased
resource type, with the document in a JSON column named "resource". A
Patient therefore lives in:

	CREATE TABLE patient (resource TEXT);

Every generated sub-query yields its result in a column named "value", so
sub-queries compose without knowledge of what produced their input.

# Translation

A Translator is built from a type Resolver and a Dialect:

	resolver := fhirsql.NewResolver(fhirsql.R4Lite())
	translator := fhirsql.NewTranslator(resolver, fhirsql.SQLite())

	sql, err := translator.AssembleQuery(expr, "Patient")

The resolver decides everything semantic: canonical type names, subtype
relationships and which elements repeat. The dialect decides only syntax,
e.g. whether arrays flatten through SQLite's json_each or DuckDB's unnest.
The same expression tree can be assembled for both backends and returns the
same rows in the same order.

# Ordering

FHIR element order is meaningful. Each flattening step carries the element
index through an ordering column, and nested flattening appends one column
per level, so the final statement can order results exactly as the elements
appear in the source documents. Functions that reshape collections, such as
distinct or union, preserve first-occurrence order the same way.

# Errors

Translation failures are typed: an unknown type name, an unsupported
function, a wrong argument count, an invalid argument kind and a receiver
of unusable shape are each reported through their own error type, so
callers can distinguish a broken expression from one that merely does not
fit the data.
*/
package fhirsql
