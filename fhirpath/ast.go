// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package fhirpath defines the expression tree consumed by the translator.
//
// The tree is normally produced by a front-end parser from FHIRPath source
// text; that parser is not part of this module. Each node kind is a distinct
// variant carrying exactly the fields that kind needs, so the translator's
// dispatch can be exhaustive and a malformed tree fails at construction
// rather than deep inside translation. Nodes are read-only inputs: the
// translator never mutates them and the caller retains ownership.
package fhirpath

import (
	"fmt"
	"strings"
)

// Node is the interface implemented by all expression tree nodes.
type Node interface {
	// String returns a textual representation of the node for debugging
	// and testing purposes.
	String() string

	// node is a marker method.
	node()
}

// LiteralKind identifies the lexical type of a Literal.
type LiteralKind int

const (
	// KindUnknown marks a literal whose kind the parser could not
	// determine. The translator infers one from the lexical shape of the
	// value before any conversion takes place.
	KindUnknown LiteralKind = iota
	KindBoolean
	KindInteger
	KindDecimal
	KindString
	KindDate
	KindDateTime
	KindTime
	KindQuantity
	// KindEmpty is the empty collection literal {}.
	KindEmpty
)

func (k LiteralKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDateTime:
		return "dateTime"
	case KindTime:
		return "time"
	case KindQuantity:
		return "quantity"
	case KindEmpty:
		return "empty"
	}
	return "unknown"
}

// Literal is a constant value. Value holds the source text of the literal
// without delimiters; Unit is set for quantity literals only.
type Literal struct {
	Kind  LiteralKind
	Value string
	Unit  string
}

func (l *Literal) String() string {
	if l.Kind == KindQuantity {
		return fmt.Sprintf("Literal[%s %s '%s']", l.Kind, l.Value, l.Unit)
	}
	return fmt.Sprintf("Literal[%s %s]", l.Kind, l.Value)
}

func (l *Literal) node() {}

// Identifier is a bare path segment or a root resource type name.
type Identifier struct {
	Name string
	// TypeHint is the element type the parser inferred for this segment,
	// if any.
	TypeHint string
}

func (i *Identifier) String() string {
	if i.TypeHint != "" {
		return fmt.Sprintf("Ident[%s:%s]", i.Name, i.TypeHint)
	}
	return fmt.Sprintf("Ident[%s]", i.Name)
}

func (i *Identifier) node() {}

// Path is a dot navigation: Base.Segment. Segment is an Identifier or a
// Call.
type Path struct {
	Base    Node
	Segment Node
}

func (p *Path) String() string {
	return fmt.Sprintf("Path[%s %s]", p.Base, p.Segment)
}

func (p *Path) node() {}

// UnaryOp identifies a unary operator.
type UnaryOp string

const (
	UnaryMinus UnaryOp = "-"
	UnaryPlus  UnaryOp = "+"
)

// Unary applies a unary operator to its operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (u *Unary) String() string {
	return fmt.Sprintf("Unary[%s %s]", u.Op, u.Operand)
}

func (u *Unary) node() {}

// BinaryOp identifies a binary operator.
type BinaryOp string

const (
	OpEqual        BinaryOp = "="
	OpNotEqual     BinaryOp = "!="
	OpLess         BinaryOp = "<"
	OpLessEqual    BinaryOp = "<="
	OpGreater      BinaryOp = ">"
	OpGreaterEqual BinaryOp = ">="
	OpAnd          BinaryOp = "and"
	OpOr           BinaryOp = "or"
	OpXor          BinaryOp = "xor"
	OpImplies      BinaryOp = "implies"
	OpAdd          BinaryOp = "+"
	OpSubtract     BinaryOp = "-"
	OpMultiply     BinaryOp = "*"
	OpDivide       BinaryOp = "/"
	OpDiv          BinaryOp = "div"
	OpMod          BinaryOp = "mod"
	OpConcat       BinaryOp = "&"
	OpUnion        BinaryOp = "|"
	OpIn           BinaryOp = "in"
	OpContains     BinaryOp = "contains"
)

// Binary applies a binary operator to two operands.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (b *Binary) String() string {
	return fmt.Sprintf("Binary[%s %s %s]", b.Op, b.Left, b.Right)
}

func (b *Binary) node() {}

// Call is a function invocation. Target is the receiver the function is
// invoked on; a nil Target means the function applies to the current focus.
type Call struct {
	Name   string
	Target Node
	Args   []Node
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	if c.Target == nil {
		return fmt.Sprintf("Call[%s(%s)]", c.Name, strings.Join(args, " "))
	}
	return fmt.Sprintf("Call[%s %s(%s)]", c.Target, c.Name, strings.Join(args, " "))
}

func (c *Call) node() {}

// TypeOpKind identifies a type operation.
type TypeOpKind string

const (
	TypeIs     TypeOpKind = "is"
	TypeAs     TypeOpKind = "as"
	TypeOfType TypeOpKind = "ofType"
)

// TypeOp is a type test, cast or filter. TypeName is the literal type name
// as written; it is resolved to a canonical name during translation.
type TypeOp struct {
	Op       TypeOpKind
	Operand  Node
	TypeName string
}

func (t *TypeOp) String() string {
	return fmt.Sprintf("TypeOp[%s %s %s]", t.Op, t.Operand, t.TypeName)
}

func (t *TypeOp) node() {}

// VarRef references a bound variable such as $this or %resource.
type VarRef struct {
	Name string
}

func (v *VarRef) String() string {
	return fmt.Sprintf("Var[%s]", v.Name)
}

func (v *VarRef) node() {}
