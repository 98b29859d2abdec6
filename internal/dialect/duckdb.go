// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dialect

import (
	"fmt"
	"strings"
)

// duckdb renders SQL for DuckDB's JSON extension.
type duckdb struct{}

// DuckDB returns the DuckDB dialect.
func DuckDB() Dialect {
	return duckdb{}
}

func (duckdb) Name() string { return "duckdb" }

func (duckdb) ExtractField(src, path string) string {
	// json_extract_string unwraps scalars to VARCHAR, matching the
	// unquoted representation SQLite's json_extract produces.
	return fmt.Sprintf("json_extract_string(%s, '%s')", src, path)
}

func (duckdb) ExtractObject(src, path string) string {
	return fmt.Sprintf("json_extract(%s, '%s')", src, path)
}

func (duckdb) FieldExists(src, path string) string {
	return fmt.Sprintf("json_extract(%s, '%s') IS NOT NULL", src, path)
}

func (duckdb) TypeIs(expr string, kind TypeKind) string {
	switch kind {
	case KindString:
		return fmt.Sprintf("json_type(CAST(%s AS JSON)) = 'VARCHAR'", expr)
	case KindInteger:
		return fmt.Sprintf("json_type(CAST(%s AS JSON)) IN ('BIGINT', 'UBIGINT')", expr)
	case KindDecimal:
		return fmt.Sprintf("json_type(CAST(%s AS JSON)) IN ('BIGINT', 'UBIGINT', 'DOUBLE')", expr)
	case KindBoolean:
		return fmt.Sprintf("json_type(CAST(%s AS JSON)) = 'BOOLEAN'", expr)
	case KindObject:
		return fmt.Sprintf("json_type(CAST(%s AS JSON)) = 'OBJECT'", expr)
	case KindArray:
		return fmt.Sprintf("json_type(CAST(%s AS JSON)) = 'ARRAY'", expr)
	}
	return "FALSE"
}

func (duckdb) FlattenArray(expr, alias string) string {
	// DuckDB has no json_each; unnest the extracted element list and zip
	// it with its subscripts for a stable ordinal.
	list := fmt.Sprintf("json_extract(%s, '$[*]')", expr)
	return fmt.Sprintf(
		"LATERAL (SELECT unnest(%s) AS value, generate_subscripts(%s, 1) AS idx) AS %s",
		list, list, alias)
}

func (duckdb) FlattenValue(alias string) string {
	return alias + ".value"
}

func (duckdb) FlattenOrdinal(alias string) string {
	return alias + ".idx"
}

func (duckdb) CaseConvert(expr string, upper bool) string {
	if upper {
		return fmt.Sprintf("upper(%s)", expr)
	}
	return fmt.Sprintf("lower(%s)", expr)
}

func (duckdb) Trim(expr string) string {
	return fmt.Sprintf("trim(%s)", expr)
}

func (duckdb) StartsWith(expr, prefix string) string {
	return fmt.Sprintf("starts_with(%s, %s)", expr, prefix)
}

func (duckdb) EndsWith(expr, suffix string) string {
	return fmt.Sprintf("ends_with(%s, %s)", expr, suffix)
}

func (duckdb) Contains(expr, substr string) string {
	return fmt.Sprintf("contains(%s, %s)", expr, substr)
}

func (duckdb) RegexMatch(expr, pattern string) string {
	return fmt.Sprintf("regexp_matches(%s, %s)", expr, pattern)
}

func (duckdb) IndexOf(expr, substr string) string {
	return fmt.Sprintf("strpos(%s, %s) - 1", expr, substr)
}

func (duckdb) Substring(expr, start, length string) string {
	if length == "" {
		return fmt.Sprintf("substring(%s, %s + 1)", expr, start)
	}
	return fmt.Sprintf("substring(%s, %s + 1, %s)", expr, start, length)
}

func (duckdb) StringLength(expr string) string {
	return fmt.Sprintf("length(%s)", expr)
}

func (duckdb) Replace(expr, pattern, substitution string) string {
	return fmt.Sprintf("replace(%s, %s, %s)", expr, pattern, substitution)
}

func (duckdb) SafeCast(expr, sqlType string) string {
	return fmt.Sprintf("TRY_CAST(%s AS %s)", expr, sqlType)
}

// duckdbTypes maps JSON value shapes onto DuckDB column types.
var duckdbTypes = map[TypeKind]string{
	KindString:  "VARCHAR",
	KindInteger: "BIGINT",
	KindDecimal: "DOUBLE",
	KindBoolean: "BOOLEAN",
}

func (duckdb) SQLType(kind TypeKind) string {
	if t, ok := duckdbTypes[kind]; ok {
		return t
	}
	return "VARCHAR"
}

// duckdbNumeric maps canonical numeric function names onto DuckDB's.
var duckdbNumeric = map[string]string{
	"abs":      "abs",
	"ceiling":  "ceiling",
	"floor":    "floor",
	"round":    "round",
	"sqrt":     "sqrt",
	"power":    "power",
	"exp":      "exp",
	"ln":       "ln",
	"log":      "log",
	"truncate": "trunc",
}

func (duckdb) Numeric(fn string, args ...string) string {
	name, ok := duckdbNumeric[fn]
	if !ok {
		name = fn
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

func (duckdb) DateTimePart(expr, part string) string {
	return fmt.Sprintf("date_part('%s', CAST(%s AS TIMESTAMP))", part, expr)
}

func (duckdb) Case(whens [][2]string, elseExpr string) string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, w := range whens {
		fmt.Fprintf(&sb, " WHEN %s THEN %s", w[0], w[1])
	}
	if elseExpr != "" {
		fmt.Fprintf(&sb, " ELSE %s", elseExpr)
	}
	sb.WriteString(" END")
	return sb.String()
}

func (duckdb) Concat(parts ...string) string {
	return fmt.Sprintf("concat(%s)", strings.Join(parts, ", "))
}

func (duckdb) UnionAll(left, right string) string {
	return left + " UNION ALL " + right
}

func (duckdb) Union(left, right string) string {
	return left + " UNION " + right
}

func (duckdb) AggregateFilter(agg, cond string) string {
	return fmt.Sprintf("%s FILTER (WHERE %s)", agg, cond)
}

func (duckdb) RowNumber(orderBy []string) string {
	if len(orderBy) == 0 {
		return "ROW_NUMBER() OVER ()"
	}
	return fmt.Sprintf("ROW_NUMBER() OVER (ORDER BY %s)", strings.Join(orderBy, ", "))
}

func (duckdb) LimitClause(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf("LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf("OFFSET %d", offset)
	}
	return ""
}

func (duckdb) QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (duckdb) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (duckdb) BoolLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
