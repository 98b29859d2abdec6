// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package dialect defines the syntax contract between the translator and a
// SQL backend, along with the SQLite and DuckDB implementations.
//
// A dialect is a pure syntax provider. Every method takes already-rendered
// SQL sub-expressions as strings and returns one new SQL string. A dialect
// must not consult type metadata, inspect expression semantics, or branch on
// anything other than its own literal inputs; two dialects given the same
// inputs may differ only in the rendered text, never in result semantics.
package dialect

// TypeKind names a JSON value shape for runtime type checks. The translator
// maps canonical model types onto these; the dialect only renders the
// corresponding predicate.
type TypeKind string

const (
	KindString  TypeKind = "string"
	KindInteger TypeKind = "integer"
	KindDecimal TypeKind = "decimal"
	KindBoolean TypeKind = "boolean"
	KindObject  TypeKind = "object"
	KindArray   TypeKind = "array"
)

// Dialect renders backend-specific SQL syntax for the primitive operations
// the translator and CTE builder need.
type Dialect interface {
	// Name identifies the dialect, e.g. "sqlite" or "duckdb".
	Name() string

	// ExtractField renders extraction of a scalar field at the given JSON
	// path, e.g. ExtractField("resource", "$.birthDate").
	ExtractField(src, path string) string

	// ExtractObject renders extraction of a sub-object or array at the
	// given JSON path, preserving its JSON representation.
	ExtractObject(src, path string) string

	// FieldExists renders a predicate that is true when a value exists at
	// the given JSON path.
	FieldExists(src, path string) string

	// TypeIs renders a predicate that is true when the JSON value expr has
	// the given runtime shape.
	TypeIs(expr string, kind TypeKind) string

	// FlattenArray renders a FROM-clause item that expands the JSON array
	// expr into one row per element, exposing the element as
	// FlattenValue(alias) and its zero-based position as
	// FlattenOrdinal(alias). Element order is preserved by the ordinal.
	FlattenArray(expr, alias string) string

	// FlattenValue renders a reference to the element column produced by
	// FlattenArray under the given alias.
	FlattenValue(alias string) string

	// FlattenOrdinal renders a reference to the ordering column produced
	// by FlattenArray under the given alias.
	FlattenOrdinal(alias string) string

	// CaseConvert renders upper or lower case conversion.
	CaseConvert(expr string, upper bool) string

	// Trim renders removal of leading and trailing whitespace.
	Trim(expr string) string

	// StartsWith, EndsWith and Contains render substring predicates. The
	// needle is a rendered SQL string expression, not a raw Go string.
	StartsWith(expr, prefix string) string
	EndsWith(expr, suffix string) string
	Contains(expr, substr string) string

	// RegexMatch renders a regular expression match predicate.
	RegexMatch(expr, pattern string) string

	// IndexOf renders the zero-based position of substr within expr, or -1
	// when absent.
	IndexOf(expr, substr string) string

	// Substring renders extraction of length characters starting at the
	// zero-based position start. A length of "" means to the end.
	Substring(expr, start, length string) string

	// StringLength renders the character length of expr.
	StringLength(expr string) string

	// Replace renders replacement of every occurrence of pattern in expr
	// with substitution.
	Replace(expr, pattern, substitution string) string

	// SafeCast renders a cast to the given SQL type that yields NULL on
	// conversion failure rather than raising.
	SafeCast(expr, sqlType string) string

	// SQLType names the backend column type corresponding to a JSON value
	// shape, for use with SafeCast.
	SQLType(kind TypeKind) string

	// Numeric renders a numeric function by canonical name: abs, ceiling,
	// floor, round, sqrt, power, exp, ln, log, truncate.
	Numeric(fn string, args ...string) string

	// DateTimePart renders extraction of a named part (year, month, day,
	// hour, minute, second) from a date/time value.
	DateTimePart(expr, part string) string

	// Case renders a conditional expression from WHEN/THEN pairs and an
	// optional ELSE ("" for none).
	Case(whens [][2]string, elseExpr string) string

	// Concat renders string concatenation of the given parts.
	Concat(parts ...string) string

	// UnionAll and Union render set concatenation of two complete SELECT
	// bodies, with and without duplicate elimination.
	UnionAll(left, right string) string
	Union(left, right string) string

	// AggregateFilter renders an aggregate expression restricted to rows
	// matching cond.
	AggregateFilter(agg, cond string) string

	// RowNumber renders a 1-based row number over the given ordering
	// columns.
	RowNumber(orderBy []string) string

	// LimitClause renders row limiting. A limit of zero means offset
	// only; a zero offset is omitted.
	LimitClause(limit, offset int) string

	// QuoteString renders a SQL string literal for the given Go string,
	// escaping as needed.
	QuoteString(s string) string

	// QuoteIdent renders a quoted SQL identifier.
	QuoteIdent(name string) string

	// BoolLiteral renders a boolean constant.
	BoolLiteral(v bool) string
}
