// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package translate

import (
	"fmt"
	"strings"

	"github.com/canonical/fhirsql/internal/dialect"
	"github.com/canonical/fhirsql/internal/typemeta"
)

// scalar is the result of translating a node in expression position: a
// rendered SQL value expression plus the flags and dependencies it picked up.
// Flags from child expressions are OR-combined, never dropped.
type scalar struct {
	expr string
	// hint is the canonical type of the expression when known, "" when
	// not.
	hint      string
	unnest    bool
	aggregate bool
	deps      []string
}

// context carries the mutable state of one translation call. Every call owns
// its own context; nothing here is shared between concurrent translations.
type context struct {
	resolver *typemeta.Resolver
	dialect  dialect.Dialect

	// resourceType is the declared root type; rootTable the table holding
	// one resource document per row.
	resourceType string
	rootTable    string

	// table and tableIsCTE identify the current row source. expr is the
	// value expression for the focus relative to that source, before any
	// pending path navigation.
	table      string
	tableIsCTE bool
	expr       string

	// pathStack holds the JSON path segments navigated since the focus
	// was last materialised. Pushes are balanced by the pops in flush; an
	// unbalanced stack at the end of a translation is a programming
	// error.
	pathStack []string
	// stackType is the type the path stack is rooted at; curType the type
	// of the focus after the pending navigation, "" when unknown.
	stackType string
	curType   string

	// ords names the ordering columns carried by the current row source.
	ords []string

	// collection records whether the focus is a flattened collection.
	// Ordering columns alone cannot tell: a LIMIT 1 slice still carries
	// them so downstream sorts stay stable, yet its result is singular.
	collection bool

	// dirty records whether the focus has diverged from the last emitted
	// fragment and still needs a final flush.
	dirty bool

	// extraDeps collects dependencies picked up by scalar sub-expressions
	// since the last flush.
	extraDeps []string

	// vars holds the variable bindings in scope. Bindings introduced for
	// a sub-expression are restored on exit.
	vars map[string]scalar

	// nameCount seeds fragment names; it only increases within one call.
	nameCount int

	frags []Fragment
}

func newContext(resolver *typemeta.Resolver, d dialect.Dialect, resourceType, rootTable string) *context {
	ctx := &context{
		resolver:     resolver,
		dialect:      d,
		resourceType: resourceType,
		rootTable:    rootTable,
		table:        rootTable,
		expr:         "resource",
		stackType:    resourceType,
		curType:      resourceType,
		vars:         map[string]scalar{},
	}
	root := scalar{expr: "resource", hint: resourceType}
	ctx.vars["%resource"] = root
	ctx.vars["%context"] = root
	return ctx
}

// nextName returns a fresh sub-query name. Names are unique within one
// translation call and are valid SQL identifiers.
func (ctx *context) nextName() string {
	ctx.nameCount++
	return fmt.Sprintf("q%d", ctx.nameCount)
}

// jsonPath renders the pending path stack as a JSON path expression.
func (ctx *context) jsonPath() string {
	return "$." + strings.Join(ctx.pathStack, ".")
}

// primitiveTypes are the canonical types stored as JSON scalars.
var primitiveTypes = map[string]bool{
	"string":   true,
	"boolean":  true,
	"integer":  true,
	"decimal":  true,
	"date":     true,
	"dateTime": true,
	"time":     true,
}

// focusExpr renders the value expression for the current focus, applying any
// pending path navigation. Primitive and unknown types extract as scalars;
// complex types keep their JSON representation.
func (ctx *context) focusExpr() string {
	if len(ctx.pathStack) == 0 {
		return ctx.expr
	}
	if ctx.curType == "" || primitiveTypes[ctx.curType] {
		return ctx.dialect.ExtractField(ctx.expr, ctx.jsonPath())
	}
	return ctx.dialect.ExtractObject(ctx.expr, ctx.jsonPath())
}

// sourceDeps returns the dependency list for a fragment reading the current
// row source, including any picked up by scalar sub-expressions.
func (ctx *context) sourceDeps() []string {
	var deps []string
	if ctx.tableIsCTE {
		deps = append(deps, ctx.table)
	}
	deps = append(deps, ctx.extraDeps...)
	ctx.extraDeps = nil
	return deps
}

// emit appends a fragment and moves the focus onto it: the fragment's
// sub-query becomes the row source and its result column the value. The
// value reference is qualified with the sub-query name, since a later
// flattening step joins the sub-query against a table function that exposes
// a value column of its own.
func (ctx *context) emit(f Fragment) {
	ctx.frags = append(ctx.frags, f)
	ctx.table = f.Name
	ctx.tableIsCTE = true
	ctx.expr = f.Name + ".value"
	ctx.pathStack = nil
	ctx.stackType = ctx.curType
	ctx.ords = f.Ordering
	switch {
	case f.IsAggregate || f.Limit == 1:
		ctx.collection = false
	case f.RequiresUnnest:
		ctx.collection = true
	}
	ctx.dirty = false
}

// flush materialises the current focus as a simple fragment. It is a no-op
// when the focus already is the value column of the latest fragment.
func (ctx *context) flush() {
	if !ctx.dirty && ctx.tableIsCTE {
		return
	}
	f := Fragment{
		Name:         ctx.nextName(),
		Expr:         ctx.focusExpr(),
		SourceTable:  ctx.table,
		Ordering:     ctx.ords,
		Dependencies: ctx.sourceDeps(),
	}
	ctx.emit(f)
}

// flushUnnest materialises the pending navigation as an array-flattening
// fragment. The new ordering column keeps the source element order alive in
// everything built on top.
func (ctx *context) flushUnnest() {
	expr := ctx.expr
	if len(ctx.pathStack) > 0 {
		expr = ctx.dialect.ExtractObject(ctx.expr, ctx.jsonPath())
	}
	f := Fragment{
		Name:           ctx.nextName(),
		Expr:           expr,
		SourceTable:    ctx.table,
		RequiresUnnest: true,
		Ordering:       append(append([]string(nil), ctx.ords...), fmt.Sprintf("ord%d", len(ctx.ords))),
		Dependencies:   ctx.sourceDeps(),
	}
	ctx.emit(f)
}

// bind installs a variable binding and returns a function restoring the
// previous scope, for use with defer.
func (ctx *context) bind(name string, value scalar) func() {
	old, had := ctx.vars[name]
	ctx.vars[name] = value
	return func() {
		if had {
			ctx.vars[name] = old
		} else {
			delete(ctx.vars, name)
		}
	}
}

// focusScalar returns the current focus as a scalar for sub-expression
// translation, with any pending navigation applied, e.g. as the $this
// binding inside a filter.
func (ctx *context) focusScalar() scalar {
	return scalar{expr: ctx.focusExpr(), hint: ctx.curType}
}
