// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package translate walks a FHIRPath expression tree and produces the
// ordered list of SQL fragments the CTE builder assembles into an executable
// statement. It consults the type resolver for semantic decisions and the
// dialect for syntax, and owns every decision that affects result semantics.
package translate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/canonical/fhirsql/fhirpath"
	"github.com/canonical/fhirsql/internal/dialect"
	"github.com/canonical/fhirsql/internal/typemeta"
)

// Translator turns expression trees into SQL fragment lists. It is stateless
// and safe for concurrent use; each Translate call builds its own context.
type Translator struct {
	resolver *typemeta.Resolver
	dialect  dialect.Dialect
}

// NewTranslator returns a Translator using the given resolver for semantic
// decisions and dialect for syntax.
func NewTranslator(resolver *typemeta.Resolver, d dialect.Dialect) *Translator {
	return &Translator{resolver: resolver, dialect: d}
}

// Translate walks the expression tree rooted at root against the given
// resource type and returns the ordered fragment list. The last fragment's
// Expr is the overall result expression.
func (t *Translator) Translate(root fhirpath.Node, resourceType string) (frags []Fragment, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot translate expression: %w", err)
		}
	}()

	if root == nil {
		return nil, fmt.Errorf("nil expression tree")
	}
	canonical, err := t.resolver.Canonical(resourceType)
	if err != nil {
		return nil, err
	}
	if base, ok := t.resolver.ProfileBase(canonical); ok {
		canonical = base
	}

	ctx := newContext(t.resolver, t.dialect, canonical, strings.ToLower(canonical))
	if err := walk(ctx, root); err != nil {
		return nil, err
	}
	ctx.flush()
	if len(ctx.pathStack) != 0 {
		return nil, fmt.Errorf("internal: unbalanced path stack after translation")
	}
	return ctx.frags, nil
}

// walk translates a node in focus position, updating the context's focus and
// emitting fragments as collection boundaries are crossed.
func walk(ctx *context, node fhirpath.Node) error {
	switch n := node.(type) {
	case *fhirpath.Identifier:
		return walkIdentifier(ctx, n)
	case *fhirpath.Path:
		if n.Base == nil || n.Segment == nil {
			return ArgumentArityError{Op: ".", Want: "2", Got: countNonNil(n.Base, n.Segment)}
		}
		if err := walk(ctx, n.Base); err != nil {
			return err
		}
		return walk(ctx, n.Segment)
	case *fhirpath.Call:
		return walkCall(ctx, n)
	case *fhirpath.TypeOp:
		return walkTypeOp(ctx, n)
	case *fhirpath.Binary:
		if n.Op == fhirpath.OpUnion {
			return walkUnion(ctx, n)
		}
		return focusFromScalar(ctx, node)
	case *fhirpath.Literal, *fhirpath.Unary, *fhirpath.VarRef:
		return focusFromScalar(ctx, node)
	}
	return fmt.Errorf("internal: unexpected node type %T", node)
}

// focusFromScalar translates a node in expression position and makes its
// result the current focus.
func focusFromScalar(ctx *context, node fhirpath.Node) error {
	s, err := scalarExpr(ctx, node, ctx.focusScalar())
	if err != nil {
		return err
	}
	ctx.extraDeps = append(ctx.extraDeps, s.deps...)
	ctx.setFocus(s)
	return nil
}

// setFocus replaces the focus value with a computed scalar.
func (ctx *context) setFocus(s scalar) {
	ctx.pathStack = nil
	ctx.expr = s.expr
	ctx.stackType = s.hint
	ctx.curType = s.hint
	if s.unnest {
		ctx.collection = true
	}
	ctx.dirty = true
}

// walkIdentifier handles a bare path segment. The root resource type name
// refers to the root table itself; anything else navigates one step deeper,
// flattening when the resolver reports list cardinality.
func walkIdentifier(ctx *context, n *fhirpath.Identifier) error {
	if n.Name == ctx.resourceType && len(ctx.pathStack) == 0 && ctx.expr == "resource" {
		return nil
	}
	return navigate(ctx, n.Name, n.TypeHint)
}

// navigate pushes one path segment and flattens if it lands on an array
// element.
func navigate(ctx *context, name, hint string) error {
	ctx.pathStack = append(ctx.pathStack, name)
	ctx.dirty = true

	dotted := strings.Join(ctx.pathStack, ".")
	isArray := false
	if ctx.stackType != "" {
		isArray = ctx.resolver.IsArrayElement(ctx.stackType, dotted)
	}

	elemType := hint
	if elemType == "" && ctx.curType != "" {
		if typ, ok := ctx.resolver.ElementType(ctx.curType, name); ok {
			if canonical, err := ctx.resolver.Canonical(typ); err == nil {
				elemType = canonical
			} else {
				elemType = typ
			}
		}
	}
	ctx.curType = elemType

	if isArray {
		ctx.flushUnnest()
	}
	return nil
}

// walkUnion handles the | operator by translating both sides from the root
// focus and concatenating their row sets, left before right, duplicates
// removed.
func walkUnion(ctx *context, n *fhirpath.Binary) error {
	if n.Left == nil || n.Right == nil {
		return ArgumentArityError{Op: "|", Want: "2", Got: countNonNil(n.Left, n.Right)}
	}
	if err := walk(ctx, n.Left); err != nil {
		return err
	}
	return combineWith(ctx, n.Right, "|", true)
}

// walkTypeOp handles is/as/ofType in focus position.
func walkTypeOp(ctx *context, n *fhirpath.TypeOp) error {
	if n.Operand != nil {
		if err := walk(ctx, n.Operand); err != nil {
			return err
		}
	}
	canonical, err := ctx.resolver.Canonical(n.TypeName)
	if err != nil {
		return err
	}
	switch n.Op {
	case fhirpath.TypeIs:
		pred, _ := typePredicate(ctx, ctx.focusExpr(), ctx.curType, canonical)
		ctx.setFocus(scalar{expr: pred, hint: "boolean"})
		return nil
	case fhirpath.TypeAs:
		expr := ctx.focusExpr()
		pred, static := typePredicate(ctx, expr, ctx.curType, canonical)
		if static == staticTrue {
			ctx.setFocus(scalar{expr: expr, hint: canonical})
			return nil
		}
		ctx.setFocus(scalar{
			expr: ctx.dialect.Case([][2]string{{pred, expr}}, ""),
			hint: canonical,
		})
		return nil
	case fhirpath.TypeOfType:
		ctx.flush()
		// ofType filters rows by runtime type rather than testing a
		// statically known one.
		pred, _ := typePredicate(ctx, "value", "", canonical)
		f := Fragment{
			Name:         ctx.nextName(),
			Expr:         "value",
			SourceTable:  ctx.table,
			Where:        pred,
			Ordering:     ctx.ords,
			Dependencies: ctx.sourceDeps(),
		}
		ctx.curType = canonical
		ctx.emit(f)
		return nil
	}
	return fmt.Errorf("internal: unexpected type operation %q", n.Op)
}

type staticness int

const (
	staticUnknown staticness = iota
	staticTrue
	staticFalse
)

// typeKinds maps canonical primitive type names onto JSON value shapes.
var typeKinds = map[string]dialect.TypeKind{
	"string":   dialect.KindString,
	"integer":  dialect.KindInteger,
	"decimal":  dialect.KindDecimal,
	"boolean":  dialect.KindBoolean,
	"date":     dialect.KindString,
	"dateTime": dialect.KindString,
	"time":     dialect.KindString,
}

// typePredicate renders a predicate testing whether expr is of the canonical
// target type. When the operand's static type is known the answer is decided
// by the subtype graph at translation time.
func typePredicate(ctx *context, expr, operandType, target string) (string, staticness) {
	if operandType != "" {
		if ctx.resolver.IsSubtypeOf(operandType, target) {
			return ctx.dialect.BoolLiteral(true), staticTrue
		}
		// A statically known, unrelated primitive cannot match at
		// runtime either.
		if primitiveTypes[operandType] && primitiveTypes[target] {
			return ctx.dialect.BoolLiteral(false), staticFalse
		}
	}
	if kind, ok := typeKinds[target]; ok {
		return ctx.dialect.TypeIs(expr, kind), staticUnknown
	}
	// Complex targets are identified by their resourceType property.
	return fmt.Sprintf("%s = %s",
		ctx.dialect.ExtractField(expr, "$.resourceType"),
		ctx.dialect.QuoteString(target)), staticUnknown
}

// scalarExpr translates a node in expression position, relative to the given
// focus. It renders plain value expressions and never emits fragments;
// collection-valued results are flagged via the unnest bit, which callers
// propagate rather than drop.
func scalarExpr(ctx *context, node fhirpath.Node, focus scalar) (scalar, error) {
	switch n := node.(type) {
	case *fhirpath.Literal:
		return renderLiteral(ctx, n)
	case *fhirpath.Identifier:
		return scalarNavigate(ctx, focus, n.Name, n.TypeHint)
	case *fhirpath.Path:
		if n.Base == nil || n.Segment == nil {
			return scalar{}, ArgumentArityError{Op: ".", Want: "2", Got: countNonNil(n.Base, n.Segment)}
		}
		base, err := scalarExpr(ctx, n.Base, focus)
		if err != nil {
			return scalar{}, err
		}
		return scalarExpr(ctx, n.Segment, base)
	case *fhirpath.VarRef:
		v, ok := ctx.vars[n.Name]
		if !ok {
			return scalar{}, SemanticValidationError{Op: n.Name, Reason: fmt.Sprintf("variable %q is not bound in this scope", n.Name)}
		}
		return v, nil
	case *fhirpath.Unary:
		return scalarUnary(ctx, n, focus)
	case *fhirpath.Binary:
		return scalarBinary(ctx, n, focus)
	case *fhirpath.TypeOp:
		return scalarTypeOp(ctx, n, focus)
	case *fhirpath.Call:
		return scalarCall(ctx, n, focus)
	}
	return scalar{}, fmt.Errorf("internal: unexpected node type %T", node)
}

// scalarNavigate renders one navigation step in expression position.
func scalarNavigate(ctx *context, focus scalar, name, hint string) (scalar, error) {
	elemType := hint
	isArray := false
	if focus.hint != "" {
		isArray = ctx.resolver.IsArrayElement(focus.hint, name)
		if elemType == "" {
			if typ, ok := ctx.resolver.ElementType(focus.hint, name); ok {
				if canonical, err := ctx.resolver.Canonical(typ); err == nil {
					elemType = canonical
				} else {
					elemType = typ
				}
			}
		}
	}
	path := "$." + name
	var expr string
	if isArray || (elemType != "" && !primitiveTypes[elemType]) {
		expr = ctx.dialect.ExtractObject(focus.expr, path)
	} else {
		expr = ctx.dialect.ExtractField(focus.expr, path)
	}
	return scalar{
		expr:      expr,
		hint:      elemType,
		unnest:    isArray || focus.unnest,
		aggregate: focus.aggregate,
		deps:      focus.deps,
	}, nil
}

func scalarUnary(ctx *context, n *fhirpath.Unary, focus scalar) (scalar, error) {
	if n.Operand == nil {
		return scalar{}, ArgumentArityError{Op: string(n.Op), Want: "1", Got: 0}
	}
	operand, err := scalarExpr(ctx, n.Operand, focus)
	if err != nil {
		return scalar{}, err
	}
	switch n.Op {
	case fhirpath.UnaryMinus:
		operand.expr = fmt.Sprintf("-(%s)", operand.expr)
	case fhirpath.UnaryPlus:
		// Unary plus is the identity.
	default:
		return scalar{}, fmt.Errorf("internal: unexpected unary operator %q", n.Op)
	}
	return operand, nil
}

func scalarBinary(ctx *context, n *fhirpath.Binary, focus scalar) (scalar, error) {
	if n.Left == nil || n.Right == nil {
		return scalar{}, ArgumentArityError{Op: string(n.Op), Want: "2", Got: countNonNil(n.Left, n.Right)}
	}
	left, err := scalarExpr(ctx, n.Left, focus)
	if err != nil {
		return scalar{}, err
	}
	right, err := scalarExpr(ctx, n.Right, focus)
	if err != nil {
		return scalar{}, err
	}

	out := scalar{
		unnest:    left.unnest || right.unnest,
		aggregate: left.aggregate || right.aggregate,
		deps:      append(append([]string(nil), left.deps...), right.deps...),
	}
	switch n.Op {
	case fhirpath.OpEqual:
		out.expr, out.hint = fmt.Sprintf("%s = %s", left.expr, right.expr), "boolean"
	case fhirpath.OpNotEqual:
		out.expr, out.hint = fmt.Sprintf("%s <> %s", left.expr, right.expr), "boolean"
	case fhirpath.OpLess:
		out.expr, out.hint = fmt.Sprintf("%s < %s", left.expr, right.expr), "boolean"
	case fhirpath.OpLessEqual:
		out.expr, out.hint = fmt.Sprintf("%s <= %s", left.expr, right.expr), "boolean"
	case fhirpath.OpGreater:
		out.expr, out.hint = fmt.Sprintf("%s > %s", left.expr, right.expr), "boolean"
	case fhirpath.OpGreaterEqual:
		out.expr, out.hint = fmt.Sprintf("%s >= %s", left.expr, right.expr), "boolean"
	case fhirpath.OpAnd:
		out.expr, out.hint = fmt.Sprintf("(%s AND %s)", left.expr, right.expr), "boolean"
	case fhirpath.OpOr:
		out.expr, out.hint = fmt.Sprintf("(%s OR %s)", left.expr, right.expr), "boolean"
	case fhirpath.OpXor:
		out.expr, out.hint = fmt.Sprintf("((%s AND NOT %s) OR (NOT %s AND %s))",
			left.expr, right.expr, left.expr, right.expr), "boolean"
	case fhirpath.OpImplies:
		out.expr, out.hint = fmt.Sprintf("(NOT %s OR %s)", left.expr, right.expr), "boolean"
	case fhirpath.OpAdd:
		if left.hint == "string" || right.hint == "string" {
			out.expr, out.hint = ctx.dialect.Concat(left.expr, right.expr), "string"
		} else {
			out.expr, out.hint = fmt.Sprintf("%s + %s", left.expr, right.expr), numericHint(left, right)
		}
	case fhirpath.OpSubtract:
		out.expr, out.hint = fmt.Sprintf("%s - %s", left.expr, right.expr), numericHint(left, right)
	case fhirpath.OpMultiply:
		out.expr, out.hint = fmt.Sprintf("%s * %s", left.expr, right.expr), numericHint(left, right)
	case fhirpath.OpDivide:
		out.expr, out.hint = fmt.Sprintf("%s * 1.0 / %s", left.expr, right.expr), "decimal"
	case fhirpath.OpDiv:
		out.expr = ctx.dialect.SafeCast(fmt.Sprintf("%s / %s", left.expr, right.expr), ctx.dialect.SQLType(dialect.KindInteger))
		out.hint = "integer"
	case fhirpath.OpMod:
		out.expr, out.hint = fmt.Sprintf("%s %% %s", left.expr, right.expr), "integer"
	case fhirpath.OpConcat:
		out.expr, out.hint = ctx.dialect.Concat(left.expr, right.expr), "string"
	case fhirpath.OpIn:
		out.expr, out.hint = membership(ctx, left, right), "boolean"
		out.unnest = left.unnest // the right side's flattening is consumed here
	case fhirpath.OpContains:
		out.expr, out.hint = membership(ctx, right, left), "boolean"
		out.unnest = right.unnest
	case fhirpath.OpUnion:
		return scalar{}, SemanticValidationError{Op: "|", Reason: "union is not supported in this position"}
	default:
		return scalar{}, fmt.Errorf("internal: unexpected binary operator %q", n.Op)
	}
	return out, nil
}

// membership renders "needle in haystack" where the haystack is a JSON
// collection.
func membership(ctx *context, needle, haystack scalar) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s = %s)",
		ctx.dialect.FlattenArray(haystack.expr, "m"),
		ctx.dialect.FlattenValue("m"),
		needle.expr)
}

func numericHint(left, right scalar) string {
	if left.hint == "decimal" || right.hint == "decimal" {
		return "decimal"
	}
	if left.hint == "integer" && right.hint == "integer" {
		return "integer"
	}
	return ""
}

func scalarTypeOp(ctx *context, n *fhirpath.TypeOp, focus scalar) (scalar, error) {
	operand := focus
	if n.Operand != nil {
		var err error
		operand, err = scalarExpr(ctx, n.Operand, focus)
		if err != nil {
			return scalar{}, err
		}
	}
	canonical, err := ctx.resolver.Canonical(n.TypeName)
	if err != nil {
		return scalar{}, err
	}
	switch n.Op {
	case fhirpath.TypeIs:
		pred, _ := typePredicate(ctx, operand.expr, operand.hint, canonical)
		return scalar{expr: pred, hint: "boolean", unnest: operand.unnest, aggregate: operand.aggregate, deps: operand.deps}, nil
	case fhirpath.TypeAs, fhirpath.TypeOfType:
		pred, static := typePredicate(ctx, operand.expr, operand.hint, canonical)
		if static == staticTrue {
			operand.hint = canonical
			return operand, nil
		}
		operand.expr = ctx.dialect.Case([][2]string{{pred, operand.expr}}, "")
		operand.hint = canonical
		return operand, nil
	}
	return scalar{}, fmt.Errorf("internal: unexpected type operation %q", n.Op)
}

var (
	integerShape  = regexp.MustCompile(`^[+-]?\d+$`)
	decimalShape  = regexp.MustCompile(`^[+-]?\d*\.\d+$`)
	dateShape     = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)
	dateTimeShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)
	timeShape     = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?`)
)

// inferLiteralKind determines a literal's kind from its lexical shape when
// the parser attached none.
func inferLiteralKind(value string) fhirpath.LiteralKind {
	switch {
	case value == "true" || value == "false":
		return fhirpath.KindBoolean
	case integerShape.MatchString(value):
		return fhirpath.KindInteger
	case decimalShape.MatchString(value):
		return fhirpath.KindDecimal
	case dateTimeShape.MatchString(value):
		return fhirpath.KindDateTime
	case dateShape.MatchString(value):
		return fhirpath.KindDate
	case timeShape.MatchString(value):
		return fhirpath.KindTime
	}
	return fhirpath.KindString
}

// renderLiteral renders a literal node. A literal without an attached kind is
// inferred from its lexical shape first; no conversion is ever attempted with
// an unresolved kind.
func renderLiteral(ctx *context, n *fhirpath.Literal) (scalar, error) {
	kind := n.Kind
	if kind == fhirpath.KindUnknown {
		kind = inferLiteralKind(n.Value)
	}
	switch kind {
	case fhirpath.KindBoolean:
		return scalar{expr: ctx.dialect.BoolLiteral(n.Value == "true"), hint: "boolean"}, nil
	case fhirpath.KindInteger:
		return scalar{expr: n.Value, hint: "integer"}, nil
	case fhirpath.KindDecimal:
		return scalar{expr: n.Value, hint: "decimal"}, nil
	case fhirpath.KindString:
		return scalar{expr: ctx.dialect.QuoteString(n.Value), hint: "string"}, nil
	case fhirpath.KindDate:
		return scalar{expr: ctx.dialect.QuoteString(n.Value), hint: "date"}, nil
	case fhirpath.KindDateTime:
		return scalar{expr: ctx.dialect.QuoteString(n.Value), hint: "dateTime"}, nil
	case fhirpath.KindTime:
		return scalar{expr: ctx.dialect.QuoteString(n.Value), hint: "time"}, nil
	case fhirpath.KindQuantity:
		// The comparable part of a quantity is its value; the unit is
		// kept as metadata for the caller.
		return scalar{expr: n.Value, hint: "decimal"}, nil
	case fhirpath.KindEmpty:
		return scalar{expr: "NULL", hint: ""}, nil
	}
	return scalar{}, SemanticValidationError{Op: "literal", Reason: fmt.Sprintf("cannot determine type of literal %q", n.Value)}
}

func countNonNil(nodes ...fhirpath.Node) int {
	n := 0
	for _, node := range nodes {
		if node != nil {
			n++
		}
	}
	return n
}
