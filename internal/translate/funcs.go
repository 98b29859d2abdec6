// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package translate

import (
	"fmt"
	"strings"

	"github.com/canonical/fhirsql/fhirpath"
	"github.com/canonical/fhirsql/internal/dialect"
)

// handler translates one function call against the current focus.
type handler func(ctx *context, call *fhirpath.Call) error

// functions is the static dispatch table. A name missing here is an
// UnsupportedFunctionError, never a silent no-op.
var functions map[string]handler

func init() {
	functions = map[string]handler{
		// Collection functions.
		"where":    fnWhere,
		"select":   fnSelect,
		"first":    fnFirst,
		"last":     fnLast,
		"tail":     fnTail,
		"take":     fnTake,
		"skip":     fnSkip,
		"single":   fnSingle,
		"distinct": fnDistinct,
		"combine":  fnCombine,
		"union":    fnUnion,
		"exists":   fnExists,
		"empty":    fnEmpty,
		"count":    fnCount,

		// Conditional.
		"iif": fnIif,

		// Type functions. is/as/ofType usually arrive as TypeOp nodes but
		// some front-ends deliver them as calls; conformsTo always arrives
		// as a call.
		"is":         fnTypeCall(fhirpath.TypeIs),
		"as":         fnTypeCall(fhirpath.TypeAs),
		"ofType":     fnTypeCall(fhirpath.TypeOfType),
		"conformsTo": fnConformsTo,

		// FHIR extension lookup.
		"extension": fnExtension,
	}
	// Expression-shaped functions (string, numeric, conversion, not) share
	// one implementation between focus position and operand position.
	for name := range exprFunctions {
		functions[name] = makeExprHandler(name)
	}
}

// exprFunctions names the functions that map a scalar to a scalar, with
// their accepted argument counts.
var exprFunctions = map[string]struct{ min, max int }{
	"upper":      {0, 0},
	"lower":      {0, 0},
	"trim":       {0, 0},
	"startsWith": {1, 1},
	"endsWith":   {1, 1},
	"contains":   {1, 1},
	"matches":    {1, 1},
	"replace":    {2, 2},
	"length":     {0, 0},
	"indexOf":    {1, 1},
	"substring":  {1, 2},
	"abs":        {0, 0},
	"ceiling":    {0, 0},
	"floor":      {0, 0},
	"round":      {0, 1},
	"sqrt":       {0, 0},
	"power":      {1, 1},
	"exp":        {0, 0},
	"ln":         {0, 0},
	"log":        {1, 1},
	"truncate":   {0, 0},
	"toString":   {0, 0},
	"toInteger":  {0, 0},
	"toDecimal":  {0, 0},
	"toBoolean":  {0, 0},
	"not":        {0, 0},
}

// walkCall dispatches a function call in focus position.
func walkCall(ctx *context, call *fhirpath.Call) error {
	if call.Target != nil {
		if err := walk(ctx, call.Target); err != nil {
			return err
		}
	}
	h, ok := functions[call.Name]
	if !ok {
		return UnsupportedFunctionError{Name: call.Name}
	}
	return h(ctx, call)
}

func checkArity(name string, args []fhirpath.Node, min, max int) error {
	if len(args) < min || len(args) > max {
		want := fmt.Sprint(min)
		if max != min {
			want = fmt.Sprintf("%d-%d", min, max)
		}
		return ArgumentArityError{Op: name, Want: want, Got: len(args)}
	}
	return nil
}

// condExpr translates a boolean sub-expression with $this bound to the
// current focus. A collection-valued condition is reduced to an existence
// test, per the implicit boolean conversion rules of the language.
func condExpr(ctx *context, name string, node fhirpath.Node) (scalar, error) {
	restore := ctx.bind("$this", ctx.focusScalar())
	defer restore()
	cond, err := scalarExpr(ctx, node, ctx.focusScalar())
	if err != nil {
		return scalar{}, err
	}
	if cond.unnest {
		cond.expr = cond.expr + " IS NOT NULL"
		cond.unnest = false
		cond.hint = "boolean"
	}
	if cond.hint != "" && cond.hint != "boolean" {
		return scalar{}, SemanticValidationError{
			Op:     name,
			Reason: fmt.Sprintf("condition must be boolean, got %s", cond.hint),
		}
	}
	return cond, nil
}

func fnWhere(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("where", call.Args, 1, 1); err != nil {
		return err
	}
	ctx.flush()
	cond, err := condExpr(ctx, "where", call.Args[0])
	if err != nil {
		return err
	}
	ctx.emit(Fragment{
		Name:         ctx.nextName(),
		Expr:         "value",
		SourceTable:  ctx.table,
		Where:        cond.expr,
		Ordering:     ctx.ords,
		Dependencies: append(ctx.sourceDeps(), cond.deps...),
	})
	return nil
}

func fnSelect(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("select", call.Args, 1, 1); err != nil {
		return err
	}
	ctx.flush()
	restore := ctx.bind("$this", ctx.focusScalar())
	defer restore()
	proj, err := scalarExpr(ctx, call.Args[0], ctx.focusScalar())
	if err != nil {
		return err
	}
	ctx.curType = proj.hint
	f := Fragment{
		Name:         ctx.nextName(),
		Expr:         proj.expr,
		SourceTable:  ctx.table,
		Ordering:     ctx.ords,
		Dependencies: append(ctx.sourceDeps(), proj.deps...),
	}
	if proj.unnest {
		// The projection is itself a collection; flatten it, adding one
		// more ordering level.
		f.RequiresUnnest = true
		f.Ordering = append(append([]string(nil), ctx.ords...), fmt.Sprintf("ord%d", len(ctx.ords)))
	}
	ctx.emit(f)
	return nil
}

// sliceFragment emits a row-window fragment over the materialised focus.
func sliceFragment(ctx *context, limit, offset int, desc bool) {
	ctx.flush()
	ctx.emit(Fragment{
		Name:         ctx.nextName(),
		Expr:         "value",
		SourceTable:  ctx.table,
		Limit:        limit,
		Offset:       offset,
		OrderDesc:    desc,
		Ordering:     ctx.ords,
		Dependencies: ctx.sourceDeps(),
	})
}

func fnFirst(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("first", call.Args, 0, 0); err != nil {
		return err
	}
	sliceFragment(ctx, 1, 0, false)
	return nil
}

func fnLast(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("last", call.Args, 0, 0); err != nil {
		return err
	}
	sliceFragment(ctx, 1, 0, true)
	return nil
}

func fnTail(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("tail", call.Args, 0, 0); err != nil {
		return err
	}
	sliceFragment(ctx, 0, 1, false)
	return nil
}

// intArg extracts a non-negative integer literal argument.
func intArg(name string, arg fhirpath.Node) (int, error) {
	lit, ok := arg.(*fhirpath.Literal)
	if !ok || (lit.Kind != fhirpath.KindInteger && inferLiteralKind(lit.Value) != fhirpath.KindInteger) {
		return 0, SemanticValidationError{Op: name, Reason: "argument must be an integer literal"}
	}
	var n int
	if _, err := fmt.Sscanf(lit.Value, "%d", &n); err != nil || n < 0 {
		return 0, SemanticValidationError{Op: name, Reason: fmt.Sprintf("invalid count %q", lit.Value)}
	}
	return n, nil
}

func fnTake(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("take", call.Args, 1, 1); err != nil {
		return err
	}
	n, err := intArg("take", call.Args[0])
	if err != nil {
		return err
	}
	sliceFragment(ctx, n, 0, false)
	return nil
}

func fnSkip(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("skip", call.Args, 1, 1); err != nil {
		return err
	}
	n, err := intArg("skip", call.Args[0])
	if err != nil {
		return err
	}
	sliceFragment(ctx, 0, n, false)
	return nil
}

func fnSingle(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("single", call.Args, 0, 0); err != nil {
		return err
	}
	ctx.flush()
	// The value survives only when exactly one row exists; SQL cannot
	// raise at that point, so a violating receiver yields empty.
	body := fmt.Sprintf("SELECT %s AS value FROM %s",
		ctx.dialect.Case([][2]string{{"COUNT(*) = 1", "MIN(value)"}}, ""), ctx.table)
	ctx.emit(Fragment{
		Name:         ctx.nextName(),
		Body:         body,
		IsAggregate:  true,
		Dependencies: ctx.sourceDeps(),
	})
	return nil
}

func fnDistinct(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("distinct", call.Args, 0, 0); err != nil {
		return err
	}
	ctx.flush()
	ctx.collapseOrdering()
	ctx.emit(Fragment{
		Name:         ctx.nextName(),
		Expr:         "value",
		SourceTable:  ctx.table,
		GroupByValue: true,
		Ordering:     ctx.ords,
		Dependencies: ctx.sourceDeps(),
	})
	return nil
}

// collapseOrdering rewrites a multi-column ordering into a single sequence
// column. Dedup keeps the earliest position of each value with a per-column
// MIN, which over several columns would fabricate a position tuple that no
// row ever held, so the columns are collapsed to one sequence first.
func (ctx *context) collapseOrdering() {
	if len(ctx.ords) <= 1 {
		return
	}
	body := fmt.Sprintf("SELECT value, %s AS ord0 FROM %s",
		ctx.dialect.RowNumber(ctx.ords), ctx.table)
	ctx.emit(Fragment{
		Name:         ctx.nextName(),
		Body:         body,
		Expr:         "value",
		SourceTable:  ctx.table,
		Ordering:     []string{"ord0"},
		Dependencies: ctx.sourceDeps(),
	})
}

func fnCombine(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("combine", call.Args, 1, 1); err != nil {
		return err
	}
	return combineWith(ctx, call.Args[0], "combine", false)
}

func fnUnion(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("union", call.Args, 1, 1); err != nil {
		return err
	}
	return combineWith(ctx, call.Args[0], "union", true)
}

// combineWith concatenates the focus row set with the row set of other,
// left before right. Each branch keeps its internal order through a
// per-branch sequence number; dedup additionally collapses duplicates,
// keeping the earliest position.
func combineWith(ctx *context, other fhirpath.Node, op string, dedup bool) error {
	ctx.flush()
	leftTable, leftOrds, leftType := ctx.table, ctx.ords, ctx.curType
	leftDeps := ctx.sourceDeps()

	// Translate the right branch from a fresh root focus; it shares the
	// name counter so all names in the pass stay unique.
	ctx.table, ctx.tableIsCTE = ctx.rootTable, false
	ctx.expr = "resource"
	ctx.pathStack = nil
	ctx.stackType, ctx.curType = ctx.resourceType, ctx.resourceType
	ctx.ords = nil
	ctx.dirty = false
	if err := walk(ctx, other); err != nil {
		return err
	}
	ctx.flush()
	rightTable, rightOrds, rightType := ctx.table, ctx.ords, ctx.curType
	rightDeps := ctx.sourceDeps()

	branch := func(table string, ords []string, part int) string {
		return fmt.Sprintf("SELECT value, %d AS part, %s AS seq FROM %s",
			part, ctx.dialect.RowNumber(ords), table)
	}
	body := ctx.dialect.UnionAll(
		branch(leftTable, leftOrds, 0),
		branch(rightTable, rightOrds, 1))

	ctx.curType = ""
	if leftType == rightType {
		ctx.curType = leftType
	}
	deps := append(append(leftDeps, leftTable), append(rightDeps, rightTable)...)
	ctx.emit(Fragment{
		Name:         ctx.nextName(),
		Body:         body,
		Ordering:     []string{"part", "seq"},
		Dependencies: dedupeStrings(deps),
	})
	ctx.collection = true
	if dedup {
		ctx.collapseOrdering()
		ctx.emit(Fragment{
			Name:         ctx.nextName(),
			Expr:         "value",
			SourceTable:  ctx.table,
			GroupByValue: true,
			Ordering:     ctx.ords,
			Dependencies: ctx.sourceDeps(),
		})
	}
	return nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// aggregateFragment emits a row-collapsing fragment over the materialised
// focus, optionally restricted by a condition argument.
func aggregateFragment(ctx *context, name, agg, hint string, call *fhirpath.Call, condAllowed bool) error {
	max := 0
	if condAllowed {
		max = 1
	}
	if err := checkArity(name, call.Args, 0, max); err != nil {
		return err
	}
	ctx.flush()
	var deps []string
	expr := agg
	if len(call.Args) == 1 {
		cond, err := condExpr(ctx, name, call.Args[0])
		if err != nil {
			return err
		}
		expr = ctx.dialect.AggregateFilter(agg, cond.expr)
		deps = cond.deps
	}
	switch name {
	case "exists":
		expr = expr + " > 0"
	case "empty":
		expr = expr + " = 0"
	}
	ctx.curType = hint
	ctx.emit(Fragment{
		Name:         ctx.nextName(),
		Expr:         expr,
		SourceTable:  ctx.table,
		IsAggregate:  true,
		Dependencies: append(ctx.sourceDeps(), deps...),
	})
	return nil
}

func fnExists(ctx *context, call *fhirpath.Call) error {
	return aggregateFragment(ctx, "exists", "COUNT(value)", "boolean", call, true)
}

func fnEmpty(ctx *context, call *fhirpath.Call) error {
	return aggregateFragment(ctx, "empty", "COUNT(value)", "boolean", call, false)
}

func fnCount(ctx *context, call *fhirpath.Call) error {
	return aggregateFragment(ctx, "count", "COUNT(value)", "integer", call, false)
}

func fnIif(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("iif", call.Args, 2, 3); err != nil {
		return err
	}
	// iif requires a singular receiver. A flattened collection focus is a
	// shape violation in the data, reported distinctly from an invalid
	// expression so callers can tell the two apart.
	if ctx.collection {
		return EvaluationCardinalityError{
			Op:     "iif",
			Reason: "receiver is a collection with multiple elements",
		}
	}
	cond, err := condExpr(ctx, "iif", call.Args[0])
	if err != nil {
		return err
	}
	restore := ctx.bind("$this", ctx.focusScalar())
	defer restore()
	thenVal, err := scalarExpr(ctx, call.Args[1], ctx.focusScalar())
	if err != nil {
		return err
	}
	whens := [][2]string{{cond.expr, thenVal.expr}}
	hint := thenVal.hint
	deps := append(cond.deps, thenVal.deps...)
	if len(call.Args) == 3 {
		elseVal, err := scalarExpr(ctx, call.Args[2], ctx.focusScalar())
		if err != nil {
			return err
		}
		// An indeterminate condition matches neither branch and yields
		// empty, so the else branch is guarded rather than a bare ELSE.
		whens = append(whens, [2]string{fmt.Sprintf("NOT (%s)", cond.expr), elseVal.expr})
		if elseVal.hint != hint {
			hint = ""
		}
		deps = append(deps, elseVal.deps...)
	}
	ctx.extraDeps = append(ctx.extraDeps, deps...)
	ctx.setFocus(scalar{expr: ctx.dialect.Case(whens, ""), hint: hint})
	return nil
}

// fnTypeCall adapts the call form of a type operation, e.g.
// ofType(ContactPoint), to the TypeOp handling. The receiver was already
// walked by the dispatcher, so the operation applies to the current focus.
func fnTypeCall(op fhirpath.TypeOpKind) handler {
	return func(ctx *context, call *fhirpath.Call) error {
		if err := checkArity(string(op), call.Args, 1, 1); err != nil {
			return err
		}
		name, err := typeNameArg(string(op), call.Args[0])
		if err != nil {
			return err
		}
		return walkTypeOp(ctx, &fhirpath.TypeOp{Op: op, TypeName: name})
	}
}

// typeNameArg extracts the type name from a type operation's argument, which
// parsers deliver as an identifier, a dotted identifier path or a string
// literal.
func typeNameArg(op string, arg fhirpath.Node) (string, error) {
	switch n := arg.(type) {
	case *fhirpath.Identifier:
		return n.Name, nil
	case *fhirpath.Path:
		base, okBase := n.Base.(*fhirpath.Identifier)
		seg, okSeg := n.Segment.(*fhirpath.Identifier)
		if okBase && okSeg {
			return base.Name + "." + seg.Name, nil
		}
	case *fhirpath.Literal:
		if n.Kind == fhirpath.KindString || inferLiteralKind(n.Value) == fhirpath.KindString {
			return n.Value, nil
		}
	}
	return "", SemanticValidationError{Op: op, Reason: "argument must be a type name"}
}

func fnConformsTo(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("conformsTo", call.Args, 1, 1); err != nil {
		return err
	}
	lit, ok := call.Args[0].(*fhirpath.Literal)
	if !ok || (lit.Kind != fhirpath.KindString && inferLiteralKind(lit.Value) != fhirpath.KindString) {
		return SemanticValidationError{Op: "conformsTo", Reason: "argument must be a profile URL string"}
	}
	url := lit.Value
	profile := url
	if i := strings.LastIndex(url, "/"); i >= 0 {
		profile = url[i+1:]
	}
	if base, ok := ctx.resolver.ProfileBase(profile); ok {
		// The profile's base type is known, so conformance of the
		// declared type is decided statically; instance-level
		// conformance still requires the profile claim on the record.
		if !ctx.resolver.IsSubtypeOf(ctx.resourceType, base) {
			ctx.setFocus(scalar{expr: ctx.dialect.BoolLiteral(false), hint: "boolean"})
			return nil
		}
	}
	claimed := fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s = %s)",
		ctx.dialect.FlattenArray(ctx.dialect.ExtractObject(ctx.focusExpr(), "$.meta.profile"), "pr"),
		ctx.dialect.FlattenValue("pr"),
		ctx.dialect.QuoteString(url))
	ctx.setFocus(scalar{expr: claimed, hint: "boolean"})
	return nil
}

func fnExtension(ctx *context, call *fhirpath.Call) error {
	if err := checkArity("extension", call.Args, 1, 1); err != nil {
		return err
	}
	lit, ok := call.Args[0].(*fhirpath.Literal)
	if !ok || (lit.Kind != fhirpath.KindString && inferLiteralKind(lit.Value) != fhirpath.KindString) {
		return SemanticValidationError{Op: "extension", Reason: "argument must be a URL string"}
	}
	if err := navigate(ctx, "extension", "Extension"); err != nil {
		return err
	}
	ctx.flush()
	ctx.emit(Fragment{
		Name:        ctx.nextName(),
		Expr:        "value",
		SourceTable: ctx.table,
		Where: fmt.Sprintf("%s = %s",
			ctx.dialect.ExtractField("value", "$.url"),
			ctx.dialect.QuoteString(lit.Value)),
		Ordering:     ctx.ords,
		Dependencies: ctx.sourceDeps(),
	})
	return nil
}

// makeExprHandler adapts an expression-shaped function to focus position.
func makeExprHandler(name string) handler {
	return func(ctx *context, call *fhirpath.Call) error {
		arity := exprFunctions[name]
		if err := checkArity(name, call.Args, arity.min, arity.max); err != nil {
			return err
		}
		recv := ctx.focusScalar()
		out, err := applyExprFunction(ctx, name, recv, call.Args, recv)
		if err != nil {
			return err
		}
		ctx.extraDeps = append(ctx.extraDeps, out.deps...)
		ctx.setFocus(out)
		return nil
	}
}

// conversionTargets maps conversion function names onto value shapes. The
// shape is resolved before any cast is rendered; there is no path on which a
// conversion runs with an undetermined target type.
var conversionTargets = map[string]dialect.TypeKind{
	"toString":  dialect.KindString,
	"toInteger": dialect.KindInteger,
	"toDecimal": dialect.KindDecimal,
	"toBoolean": dialect.KindBoolean,
}

var conversionHints = map[string]string{
	"toString":  "string",
	"toInteger": "integer",
	"toDecimal": "decimal",
	"toBoolean": "boolean",
}

// applyExprFunction renders an expression-shaped function applied to recv.
// Arguments are translated relative to argFocus, the enclosing focus of the
// invocation.
func applyExprFunction(ctx *context, name string, recv scalar, argNodes []fhirpath.Node, argFocus scalar) (scalar, error) {
	args := make([]scalar, len(argNodes))
	deps := append([]string(nil), recv.deps...)
	for i, node := range argNodes {
		a, err := scalarExpr(ctx, node, argFocus)
		if err != nil {
			return scalar{}, err
		}
		args[i] = a
		deps = append(deps, a.deps...)
	}
	out := scalar{deps: deps, unnest: recv.unnest, aggregate: recv.aggregate}
	d := ctx.dialect
	switch name {
	case "upper":
		out.expr, out.hint = d.CaseConvert(recv.expr, true), "string"
	case "lower":
		out.expr, out.hint = d.CaseConvert(recv.expr, false), "string"
	case "trim":
		out.expr, out.hint = d.Trim(recv.expr), "string"
	case "startsWith":
		out.expr, out.hint = d.StartsWith(recv.expr, args[0].expr), "boolean"
	case "endsWith":
		out.expr, out.hint = d.EndsWith(recv.expr, args[0].expr), "boolean"
	case "contains":
		out.expr, out.hint = d.Contains(recv.expr, args[0].expr), "boolean"
	case "matches":
		out.expr, out.hint = d.RegexMatch(recv.expr, args[0].expr), "boolean"
	case "replace":
		out.expr, out.hint = d.Replace(recv.expr, args[0].expr, args[1].expr), "string"
	case "length":
		out.expr, out.hint = d.StringLength(recv.expr), "integer"
	case "indexOf":
		out.expr, out.hint = d.IndexOf(recv.expr, args[0].expr), "integer"
	case "substring":
		length := ""
		if len(args) == 2 {
			length = args[1].expr
		}
		out.expr, out.hint = d.Substring(recv.expr, args[0].expr, length), "string"
	case "abs", "ceiling", "floor", "sqrt", "exp", "ln", "truncate":
		out.expr, out.hint = d.Numeric(name, recv.expr), numericResult(name, recv.hint)
	case "round":
		if len(args) == 1 {
			out.expr = d.Numeric(name, recv.expr, args[0].expr)
		} else {
			out.expr = d.Numeric(name, recv.expr)
		}
		out.hint = "decimal"
	case "power":
		out.expr, out.hint = d.Numeric(name, recv.expr, args[0].expr), numericResult(name, recv.hint)
	case "log":
		// log(base): the base argument renders first in both backends.
		out.expr, out.hint = d.Numeric(name, args[0].expr, recv.expr), "decimal"
	case "not":
		if recv.hint != "" && recv.hint != "boolean" {
			return scalar{}, SemanticValidationError{Op: "not", Reason: fmt.Sprintf("receiver must be boolean, got %s", recv.hint)}
		}
		out.expr, out.hint = fmt.Sprintf("NOT (%s)", recv.expr), "boolean"
	case "toString", "toInteger", "toDecimal", "toBoolean":
		kind, ok := conversionTargets[name]
		if !ok {
			return scalar{}, SemanticValidationError{Op: name, Reason: "conversion target type is not resolved"}
		}
		out.expr, out.hint = d.SafeCast(recv.expr, d.SQLType(kind)), conversionHints[name]
	default:
		return scalar{}, UnsupportedFunctionError{Name: name}
	}
	return out, nil
}

// numericResult keeps integer typing where the function preserves it.
func numericResult(fn, hint string) string {
	switch fn {
	case "abs", "power", "truncate":
		if hint == "integer" {
			return "integer"
		}
		return "decimal"
	case "ceiling", "floor":
		return "integer"
	}
	return "decimal"
}

// scalarCall dispatches a function call in expression position. The
// expression-shaped functions work as in focus position; exists, empty and
// iif have value-level renderings; collection reshaping functions have no
// meaning in expression position and are rejected.
func scalarCall(ctx *context, n *fhirpath.Call, focus scalar) (scalar, error) {
	recv := focus
	if n.Target != nil {
		var err error
		recv, err = scalarExpr(ctx, n.Target, focus)
		if err != nil {
			return scalar{}, err
		}
	}
	if arity, ok := exprFunctions[n.Name]; ok {
		if err := checkArity(n.Name, n.Args, arity.min, arity.max); err != nil {
			return scalar{}, err
		}
		return applyExprFunction(ctx, n.Name, recv, n.Args, focus)
	}
	switch n.Name {
	case "is", "as", "ofType":
		if err := checkArity(n.Name, n.Args, 1, 1); err != nil {
			return scalar{}, err
		}
		name, err := typeNameArg(n.Name, n.Args[0])
		if err != nil {
			return scalar{}, err
		}
		return scalarTypeOp(ctx, &fhirpath.TypeOp{Op: fhirpath.TypeOpKind(n.Name), TypeName: name}, recv)
	case "exists":
		if err := checkArity("exists", n.Args, 0, 0); err != nil {
			return scalar{}, err
		}
		return scalar{
			expr:      fmt.Sprintf("%s IS NOT NULL", recv.expr),
			hint:      "boolean",
			aggregate: recv.aggregate,
			deps:      recv.deps,
		}, nil
	case "empty":
		if err := checkArity("empty", n.Args, 0, 0); err != nil {
			return scalar{}, err
		}
		return scalar{
			expr:      fmt.Sprintf("%s IS NULL", recv.expr),
			hint:      "boolean",
			aggregate: recv.aggregate,
			deps:      recv.deps,
		}, nil
	case "iif":
		if err := checkArity("iif", n.Args, 2, 3); err != nil {
			return scalar{}, err
		}
		if recv.unnest {
			return scalar{}, EvaluationCardinalityError{
				Op:     "iif",
				Reason: "receiver is a collection with multiple elements",
			}
		}
		cond, err := scalarExpr(ctx, n.Args[0], recv)
		if err != nil {
			return scalar{}, err
		}
		if cond.hint != "" && cond.hint != "boolean" {
			return scalar{}, SemanticValidationError{
				Op:     "iif",
				Reason: fmt.Sprintf("condition must be boolean, got %s", cond.hint),
			}
		}
		thenVal, err := scalarExpr(ctx, n.Args[1], recv)
		if err != nil {
			return scalar{}, err
		}
		whens := [][2]string{{cond.expr, thenVal.expr}}
		hint := thenVal.hint
		deps := append(append(recv.deps, cond.deps...), thenVal.deps...)
		if len(n.Args) == 3 {
			elseVal, err := scalarExpr(ctx, n.Args[2], recv)
			if err != nil {
				return scalar{}, err
			}
			whens = append(whens, [2]string{fmt.Sprintf("NOT (%s)", cond.expr), elseVal.expr})
			if elseVal.hint != hint {
				hint = ""
			}
			deps = append(deps, elseVal.deps...)
		}
		return scalar{expr: ctx.dialect.Case(whens, ""), hint: hint, deps: deps}, nil
	}
	if _, known := functions[n.Name]; known {
		return scalar{}, SemanticValidationError{
			Op:     n.Name,
			Reason: "function is not supported in this position",
		}
	}
	return scalar{}, UnsupportedFunctionError{Name: n.Name}
}
