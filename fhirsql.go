// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fhirsql

import (
	"github.com/canonical/fhirsql/fhirpath"
	"github.com/canonical/fhirsql/internal/cte"
	"github.com/canonical/fhirsql/internal/dialect"
	"github.com/canonical/fhirsql/internal/translate"
	"github.com/canonical/fhirsql/internal/typemeta"
)

// Fragment is the unit of output of one translation step. Callers that
// compose queries themselves consume the fragment list; most callers use
// [Translator.AssembleQuery] instead.
type Fragment = translate.Fragment

// CTE is one named sub-query of an assembled statement.
type CTE = cte.CTE

// Dialect renders backend-specific SQL syntax. A dialect is a pure syntax
// provider: implementations must not branch on anything other than their
// literal inputs.
type Dialect = dialect.Dialect

// SQLite returns the dialect for SQLite's JSON1 functions.
func SQLite() Dialect { return dialect.SQLite() }

// DuckDB returns the dialect for DuckDB's JSON extension.
func DuckDB() Dialect { return dialect.DuckDB() }

// Tables holds the type lookup data a Resolver is built from.
type Tables = typemeta.Tables

// Resolver answers canonical-name, subtype and cardinality questions during
// translation. It is immutable once built and safe for concurrent use.
type Resolver = typemeta.Resolver

// NewResolver builds a Resolver from the given lookup tables.
func NewResolver(t Tables) *Resolver {
	return typemeta.NewResolver(t)
}

// R4Lite returns lookup tables covering a small R4 subset, suitable for
// examples and tests.
func R4Lite() Tables {
	return typemeta.R4Lite()
}

// Error kinds surfaced by translation and assembly. All of them carry the
// offending operator, function or type name.
type (
	// UnknownTypeError reports a type name with no canonical mapping.
	UnknownTypeError = typemeta.UnknownTypeError
	// UnsupportedFunctionError reports a function name missing from the
	// dispatch table.
	UnsupportedFunctionError = translate.UnsupportedFunctionError
	// ArgumentArityError reports a wrong operand or argument count.
	ArgumentArityError = translate.ArgumentArityError
	// SemanticValidationError reports an argument of an invalid kind: the
	// expression itself is at fault.
	SemanticValidationError = translate.SemanticValidationError
	// EvaluationCardinalityError reports a construct applied to data of
	// an incompatible shape: the expression may be fine against other
	// records.
	EvaluationCardinalityError = translate.EvaluationCardinalityError
	// CycleDetectedError reports a cyclic sub-query dependency graph.
	CycleDetectedError = cte.CycleDetectedError
)

// Translator compiles FHIRPath expression trees into SQL for one dialect.
// It is stateless and safe for concurrent use; concurrent Translate calls
// share only the read-only resolver.
type Translator struct {
	translator *translate.Translator
	dialect    Dialect
	cache      *queryCache
}

// NewTranslator returns a Translator using the given resolver for semantic
// decisions and dialect for syntax.
func NewTranslator(resolver *Resolver, d Dialect) *Translator {
	return &Translator{
		translator: translate.NewTranslator(resolver, d),
		dialect:    d,
		cache:      newQueryCache(),
	}
}

// Translate walks the expression tree against the given resource type and
// returns the ordered fragment list. The last fragment's Expr is the overall
// result expression.
func (t *Translator) Translate(root fhirpath.Node, resourceType string) ([]Fragment, error) {
	return t.translator.Translate(root, resourceType)
}

// AssembleQuery translates the expression tree and assembles the fragments
// into one executable statement: a WITH preamble listing every sub-query in
// dependency order followed by the terminal SELECT. Assembled statements are
// cached on the Translator, keyed by resource type and expression.
func (t *Translator) AssembleQuery(root fhirpath.Node, resourceType string) (string, error) {
	var key cacheKey
	if root != nil {
		key = cacheKey{resourceType: resourceType, expr: root.String()}
		if sql, ok := t.cache.get(key); ok {
			return sql, nil
		}
	}
	frags, err := t.translator.Translate(root, resourceType)
	if err != nil {
		return "", err
	}
	sql, err := cte.AssembleQuery(t.dialect, frags)
	if err != nil {
		return "", err
	}
	return t.cache.put(key, sql), nil
}

// BuildCTEChain translates the expression tree and returns the named
// sub-queries without assembling them, for callers that embed the chain in a
// larger statement.
func (t *Translator) BuildCTEChain(root fhirpath.Node, resourceType string) ([]CTE, error) {
	frags, err := t.translator.Translate(root, resourceType)
	if err != nil {
		return nil, err
	}
	return cte.NewBuilder(t.dialect).BuildChain(frags)
}
