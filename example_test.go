// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fhirsql_test

import (
	"fmt"

	"github.com/canonical/fhirsql"
	"github.com/canonical/fhirsql/fhirpath"
)

// Example assembles the expression name.where(use = 'official').given for
// SQLite. The tree would normally come from a FHIRPath parser.
func ExampleTranslator_AssembleQuery() {
	expr := &fhirpath.Path{
		Base: &fhirpath.Call{
			Name:   "where",
			Target: &fhirpath.Identifier{Name: "name"},
			Args: []fhirpath.Node{&fhirpath.Binary{
				Op:    fhirpath.OpEqual,
				Left:  &fhirpath.Identifier{Name: "use"},
				Right: &fhirpath.Literal{Kind: fhirpath.KindString, Value: "official"},
			}},
		},
		Segment: &fhirpath.Identifier{Name: "given"},
	}

	translator := fhirsql.NewTranslator(fhirsql.NewResolver(fhirsql.R4Lite()), fhirsql.SQLite())
	query, err := translator.AssembleQuery(expr, "Patient")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(query)

	// Output:
	// WITH q1 AS (SELECT u.value AS value, u.key AS ord0 FROM patient, json_each(json_extract(resource, '$.name')) AS u), q2 AS (SELECT value, ord0 FROM q1 WHERE json_extract(q1.value, '$.use') = 'official'), q3 AS (SELECT ord0, u.value AS value, u.key AS ord1 FROM q2, json_each(json_extract(q2.value, '$.given')) AS u) SELECT value FROM q3 ORDER BY ord0, ord1;
}

// Example shows the fragment list produced for a nested repeating element.
// Each flattening step appends one ordering column, so element order
// survives into the final statement.
func ExampleTranslator_Translate() {
	expr := &fhirpath.Path{
		Base:    &fhirpath.Identifier{Name: "name"},
		Segment: &fhirpath.Identifier{Name: "given"},
	}

	translator := fhirsql.NewTranslator(fhirsql.NewResolver(fhirsql.R4Lite()), fhirsql.SQLite())
	frags, err := translator.Translate(expr, "Patient")
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, f := range frags {
		fmt.Printf("%s unnest=%t ordering=%v\n", f.Name, f.RequiresUnnest, f.Ordering)
	}

	// Output:
	// q1 unnest=true ordering=[ord0]
	// q2 unnest=true ordering=[ord0 ord1]
}
