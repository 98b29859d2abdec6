// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package cte turns the translator's fragment list into named sub-queries
// and assembles them into one executable WITH statement. All semantic
// decisions are already recorded on the fragments; this package only renders
// and orders them.
package cte

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/canonical/fhirsql/internal/dialect"
	"github.com/canonical/fhirsql/internal/translate"
)

// CTE is one named sub-query of the final statement.
type CTE struct {
	// Name is the sub-query's identifier in the WITH clause.
	Name string

	// Query is the SQL body.
	Query string

	// DependsOn names the other sub-queries this one's body references.
	DependsOn []string

	// RequiresUnnest marks an array-flattening step.
	RequiresUnnest bool

	// OrderingColumns are the columns that carry source element order
	// through this sub-query, outermost first.
	OrderingColumns []string

	// SourceFragment is the fragment this sub-query was built from, kept
	// for diagnostics.
	SourceFragment *translate.Fragment

	// Metadata mirrors the fragment's open annotations.
	Metadata map[string]string
}

var validNameRx = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z_0-9]*$`)

// New constructs a CTE, validating that the name is a usable SQL identifier.
func New(name, query string) (CTE, error) {
	if !validNameRx.MatchString(name) {
		return CTE{}, fmt.Errorf("invalid sub-query name %q", name)
	}
	if query == "" {
		return CTE{}, fmt.Errorf("sub-query %q has an empty body", name)
	}
	return CTE{Name: name, Query: query}, nil
}

// Builder wraps fragments into sub-queries.
type Builder struct {
	dialect   dialect.Dialect
	nameCount int
}

// NewBuilder returns a Builder rendering with the given dialect.
func NewBuilder(d dialect.Dialect) *Builder {
	return &Builder{dialect: d}
}

// GenerateCTEName returns a fresh sub-query name for a fragment that arrived
// without one. Translator-assigned names use a distinct prefix, so the two
// sequences never collide within a pass.
func (b *Builder) GenerateCTEName() string {
	b.nameCount++
	return fmt.Sprintf("c%d", b.nameCount)
}

// BuildChain wraps each fragment into a sub-query, choosing the flattening
// form for fragments marked as collection-valued.
func (b *Builder) BuildChain(frags []translate.Fragment) ([]CTE, error) {
	ctes := make([]CTE, 0, len(frags))
	for i := range frags {
		f := &frags[i]
		name := f.Name
		if name == "" {
			name = b.GenerateCTEName()
		}
		var query string
		var err error
		if f.RequiresUnnest {
			query, err = b.wrapUnnestQuery(f)
		} else {
			query, err = b.wrapSimpleQuery(f)
		}
		if err != nil {
			return nil, err
		}
		cte, err := New(name, query)
		if err != nil {
			return nil, err
		}
		cte.DependsOn = append([]string(nil), f.Dependencies...)
		cte.RequiresUnnest = f.RequiresUnnest
		cte.OrderingColumns = append([]string(nil), f.Ordering...)
		cte.SourceFragment = f
		cte.Metadata = f.Metadata
		ctes = append(ctes, cte)
	}
	return ctes, nil
}

// wrapSimpleQuery renders a plain sub-query body: the fragment's expression
// selected from its source, with any filter, dedup and row-window directives
// applied mechanically.
func (b *Builder) wrapSimpleQuery(f *translate.Fragment) (string, error) {
	if f.Body != "" {
		return f.Body, nil
	}
	if f.Expr == "" {
		return "", fmt.Errorf("fragment %q has no expression", f.Name)
	}

	if f.GroupByValue && len(f.Ordering) > 1 {
		// Per-column minimums would fabricate a position tuple no row
		// ever held; the translator collapses the ordering first.
		return "", fmt.Errorf("fragment %q deduplicates over more than one ordering column", f.Name)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if f.GroupByValue {
		// Dedup keeps the earliest ordering position of each value so
		// first-occurrence order survives downstream.
		sb.WriteString(valueSelect(f.Expr))
		for _, ord := range f.Ordering {
			fmt.Fprintf(&sb, ", MIN(%s) AS %s", ord, ord)
		}
	} else {
		sb.WriteString(valueSelect(f.Expr))
		if !f.IsAggregate {
			for _, ord := range f.Ordering {
				fmt.Fprintf(&sb, ", %s", ord)
			}
		}
	}
	if f.SourceTable != "" {
		fmt.Fprintf(&sb, " FROM %s", f.SourceTable)
	}
	if f.Where != "" {
		fmt.Fprintf(&sb, " WHERE %s", f.Where)
	}
	if f.GroupByValue {
		sb.WriteString(" GROUP BY value")
	}
	if f.Limit > 0 || f.Offset > 0 {
		if len(f.Ordering) > 0 {
			sb.WriteString(" ORDER BY ")
			sb.WriteString(orderBy(f.Ordering, f.OrderDesc))
		}
		if clause := b.dialect.LimitClause(f.Limit, f.Offset); clause != "" {
			sb.WriteString(" ")
			sb.WriteString(clause)
		}
	}
	return sb.String(), nil
}

// wrapUnnestQuery renders an array-flattening sub-query body. The parent's
// ordering columns pass through and a new one is appended for the element
// index, so the element sequence survives every later join.
func (b *Builder) wrapUnnestQuery(f *translate.Fragment) (string, error) {
	if f.Expr == "" {
		return "", fmt.Errorf("fragment %q has no expression", f.Name)
	}
	if f.SourceTable == "" {
		return "", fmt.Errorf("fragment %q flattens without a source", f.Name)
	}
	if len(f.Ordering) == 0 {
		return "", fmt.Errorf("fragment %q flattens without an ordering column", f.Name)
	}
	const alias = "u"
	parents := f.Ordering[:len(f.Ordering)-1]
	newOrd := f.Ordering[len(f.Ordering)-1]

	var sb strings.Builder
	sb.WriteString("SELECT ")
	for _, ord := range parents {
		fmt.Fprintf(&sb, "%s, ", ord)
	}
	fmt.Fprintf(&sb, "%s AS value, %s AS %s",
		b.dialect.FlattenValue(alias), b.dialect.FlattenOrdinal(alias), newOrd)
	fmt.Fprintf(&sb, " FROM %s, %s", f.SourceTable, b.dialect.FlattenArray(f.Expr, alias))
	if f.Where != "" {
		fmt.Fprintf(&sb, " WHERE %s", f.Where)
	}
	return sb.String(), nil
}

// valueSelect renders the result column, avoiding a redundant alias when the
// expression already is the value column.
func valueSelect(expr string) string {
	if expr == "value" {
		return "value"
	}
	return expr + " AS value"
}

func orderBy(ords []string, desc bool) string {
	cols := make([]string, len(ords))
	for i, ord := range ords {
		if desc {
			cols[i] = ord + " DESC"
		} else {
			cols[i] = ord
		}
	}
	return strings.Join(cols, ", ")
}
