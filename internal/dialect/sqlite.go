// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dialect

import (
	"fmt"
	"strings"
)

// sqlite renders SQL for the SQLite JSON1 functions. It requires SQLite
// 3.38 or later (bundled JSON support and FILTER clauses).
type sqlite struct{}

// SQLite returns the SQLite dialect.
func SQLite() Dialect {
	return sqlite{}
}

func (sqlite) Name() string { return "sqlite" }

func (sqlite) ExtractField(src, path string) string {
	return fmt.Sprintf("json_extract(%s, '%s')", src, path)
}

func (sqlite) ExtractObject(src, path string) string {
	return fmt.Sprintf("json_extract(%s, '%s')", src, path)
}

func (sqlite) FieldExists(src, path string) string {
	return fmt.Sprintf("json_extract(%s, '%s') IS NOT NULL", src, path)
}

func (sqlite) TypeIs(expr string, kind TypeKind) string {
	// json_type reports SQLite's own names; booleans come back as the
	// distinct 'true'/'false' atoms.
	switch kind {
	case KindString:
		return fmt.Sprintf("json_type(%s) = 'text'", expr)
	case KindInteger:
		return fmt.Sprintf("json_type(%s) = 'integer'", expr)
	case KindDecimal:
		return fmt.Sprintf("json_type(%s) IN ('integer', 'real')", expr)
	case KindBoolean:
		return fmt.Sprintf("json_type(%s) IN ('true', 'false')", expr)
	case KindObject:
		return fmt.Sprintf("json_type(%s) = 'object'", expr)
	case KindArray:
		return fmt.Sprintf("json_type(%s) = 'array'", expr)
	}
	return "FALSE"
}

func (sqlite) FlattenArray(expr, alias string) string {
	return fmt.Sprintf("json_each(%s) AS %s", expr, alias)
}

func (sqlite) FlattenValue(alias string) string {
	return alias + ".value"
}

func (sqlite) FlattenOrdinal(alias string) string {
	// For arrays json_each's key column is the element index.
	return alias + ".key"
}

func (sqlite) CaseConvert(expr string, upper bool) string {
	if upper {
		return fmt.Sprintf("upper(%s)", expr)
	}
	return fmt.Sprintf("lower(%s)", expr)
}

func (sqlite) Trim(expr string) string {
	return fmt.Sprintf("trim(%s)", expr)
}

func (sqlite) StartsWith(expr, prefix string) string {
	return fmt.Sprintf("substr(%s, 1, length(%s)) = %s", expr, prefix, prefix)
}

func (sqlite) EndsWith(expr, suffix string) string {
	return fmt.Sprintf("substr(%s, -length(%s)) = %s", expr, suffix, suffix)
}

func (sqlite) Contains(expr, substr string) string {
	return fmt.Sprintf("instr(%s, %s) > 0", expr, substr)
}

func (sqlite) RegexMatch(expr, pattern string) string {
	return fmt.Sprintf("%s REGEXP %s", expr, pattern)
}

func (sqlite) IndexOf(expr, substr string) string {
	return fmt.Sprintf("instr(%s, %s) - 1", expr, substr)
}

func (sqlite) Substring(expr, start, length string) string {
	if length == "" {
		return fmt.Sprintf("substr(%s, %s + 1)", expr, start)
	}
	return fmt.Sprintf("substr(%s, %s + 1, %s)", expr, start, length)
}

func (sqlite) StringLength(expr string) string {
	return fmt.Sprintf("length(%s)", expr)
}

func (sqlite) Replace(expr, pattern, substitution string) string {
	return fmt.Sprintf("replace(%s, %s, %s)", expr, pattern, substitution)
}

func (sqlite) SafeCast(expr, sqlType string) string {
	// SQLite casts coerce rather than raise, so a plain CAST is already
	// the non-raising form.
	return fmt.Sprintf("CAST(%s AS %s)", expr, sqlType)
}

// sqliteTypes maps JSON value shapes onto SQLite column types.
var sqliteTypes = map[TypeKind]string{
	KindString:  "TEXT",
	KindInteger: "INTEGER",
	KindDecimal: "REAL",
	KindBoolean: "INTEGER",
}

func (sqlite) SQLType(kind TypeKind) string {
	if t, ok := sqliteTypes[kind]; ok {
		return t
	}
	return "TEXT"
}

// sqliteNumeric maps canonical numeric function names onto SQLite's math
// functions (available since 3.35).
var sqliteNumeric = map[string]string{
	"abs":      "abs",
	"ceiling":  "ceil",
	"floor":    "floor",
	"round":    "round",
	"sqrt":     "sqrt",
	"power":    "pow",
	"exp":      "exp",
	"ln":       "ln",
	"log":      "log",
	"truncate": "trunc",
}

func (sqlite) Numeric(fn string, args ...string) string {
	name, ok := sqliteNumeric[fn]
	if !ok {
		name = fn
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

// sqliteParts maps date part names onto strftime format specifiers.
var sqliteParts = map[string]string{
	"year":   "%Y",
	"month":  "%m",
	"day":    "%d",
	"hour":   "%H",
	"minute": "%M",
	"second": "%S",
}

func (sqlite) DateTimePart(expr, part string) string {
	spec, ok := sqliteParts[part]
	if !ok {
		return "NULL"
	}
	return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", spec, expr)
}

func (sqlite) Case(whens [][2]string, elseExpr string) string {
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

func (sqlite) Concat(parts ...string) string {
	return strings.Join(parts, " || ")
}

func (sqlite) UnionAll(left, right string) string {
	return left + " UNION ALL " + right
}

func (sqlite) Union(left, right string) string {
	return left + " UNION " + right
}

func (sqlite) AggregateFilter(agg, cond string) string {
	return fmt.Sprintf("%s FILTER (WHERE %s)", agg, cond)
}

func (sqlite) RowNumber(orderBy []string) string {
	if len(orderBy) == 0 {
		return "ROW_NUMBER() OVER ()"
	}
	return fmt.Sprintf("ROW_NUMBER() OVER (ORDER BY %s)", strings.Join(orderBy, ", "))
}

func (sqlite) LimitClause(limit, offset int) string {
	// SQLite accepts OFFSET only after a LIMIT; -1 means unlimited.
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf("LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf("LIMIT -1 OFFSET %d", offset)
	}
	return ""
}

func (sqlite) QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (sqlite) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqlite) BoolLiteral(v bool) string {
	// Matches the representation json_extract produces for JSON booleans.
	if v {
		return "1"
	}
	return "0"
}
