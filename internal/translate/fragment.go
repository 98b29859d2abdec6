// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package translate

// Fragment is the unit of output from one translation step. The CTE builder
// turns each fragment into a named sub-query without making any further
// decisions: every choice that affects semantics is recorded here by the
// translator.
type Fragment struct {
	// Name is the sub-query name the builder must use when wrapping this
	// fragment. It is assigned from the translation context's monotonic
	// counter, so later fragments can list it in Dependencies before the
	// builder runs.
	Name string

	// Expr is the generated SQL text for this step. It is selected as the
	// single result column of the wrapping sub-query.
	Expr string

	// SourceTable is the table or earlier sub-query the fragment reads
	// from. Empty means the fragment needs no FROM clause.
	SourceTable string

	// Body, when non-empty, is a complete SQL body that replaces the
	// mechanical SELECT the builder would otherwise generate. Set
	// operations render full UNION bodies that must not be re-wrapped.
	Body string

	// Where is an optional filter condition on the source rows.
	Where string

	// Limit and Offset restrict the source rows after ordering. A Limit
	// of zero means no limit.
	Limit  int
	Offset int

	// OrderDesc reverses the ordering columns when applying Limit and
	// Offset, used for selection from the end of a collection.
	OrderDesc bool

	// GroupByValue collapses duplicate values, keeping the earliest
	// ordering position of each so first-occurrence order survives. A
	// dedup fragment carries at most one ordering column; the translator
	// collapses multi-level orderings into a single sequence first.
	GroupByValue bool

	// Ordering names the columns that carry source element order through
	// this fragment, outermost first.
	Ordering []string

	// RequiresUnnest marks a collection-valued result whose elements the
	// builder must flatten into rows before further navigation.
	RequiresUnnest bool

	// IsAggregate marks an expression that collapses the source rows to a
	// single row, such as a count.
	IsAggregate bool

	// Dependencies names the earlier sub-queries this fragment's SQL
	// references. It never contains forward references.
	Dependencies []string

	// Metadata carries open annotations, e.g. optimizer hints. The core
	// round-trips it unchanged.
	Metadata map[string]string
}
