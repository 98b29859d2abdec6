// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package cte

import (
	"fmt"
	"sort"
	"strings"

	"github.com/canonical/fhirsql/internal/dialect"
	"github.com/canonical/fhirsql/internal/translate"
)

// CycleDetectedError is returned when the sub-query dependency graph is not
// acyclic. Names lists the sub-queries participating in the cycle.
type CycleDetectedError struct {
	Names []string
}

func (e CycleDetectedError) Error() string {
	return fmt.Sprintf("dependency cycle between sub-queries: %s", strings.Join(e.Names, ", "))
}

// OrderCTEs sorts the sub-queries so that each appears strictly after every
// sub-query it depends on. The sort is stable with respect to the input
// order. A cycle is reported rather than looped on.
func OrderCTEs(ctes []CTE) ([]CTE, error) {
	known := make(map[string]bool, len(ctes))
	for _, c := range ctes {
		known[c.Name] = true
	}
	indegree := make(map[string]int, len(ctes))
	for _, c := range ctes {
		for _, dep := range c.DependsOn {
			// Dependencies on base tables are not part of the graph.
			if known[dep] {
				indegree[c.Name]++
			}
		}
	}

	ordered := make([]CTE, 0, len(ctes))
	placed := make(map[string]bool, len(ctes))
	remaining := len(ctes)
	for remaining > 0 {
		progressed := false
		for _, c := range ctes {
			if placed[c.Name] || indegree[c.Name] > 0 {
				continue
			}
			ordered = append(ordered, c)
			placed[c.Name] = true
			remaining--
			progressed = true
			for _, other := range ctes {
				if placed[other.Name] {
					continue
				}
				for _, dep := range other.DependsOn {
					if dep == c.Name {
						indegree[other.Name]--
					}
				}
			}
		}
		if !progressed {
			var cycle []string
			for _, c := range ctes {
				if !placed[c.Name] {
					cycle = append(cycle, c.Name)
				}
			}
			sort.Strings(cycle)
			return nil, CycleDetectedError{Names: cycle}
		}
	}
	return ordered, nil
}

// GenerateWithClause renders the WITH preamble listing each sub-query in the
// given dependency order.
func GenerateWithClause(ctes []CTE) string {
	var sb strings.Builder
	sb.WriteString("WITH ")
	for i, c := range ctes {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s AS (%s)", c.Name, c.Query)
	}
	return sb.String()
}

// GenerateFinalSelect renders the terminal statement reading the last
// sub-query, ordered by its carried ordering columns so flattened element
// sequence reaches the caller intact.
func GenerateFinalSelect(last CTE) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT value FROM %s", last.Name)
	if len(last.OrderingColumns) > 0 {
		fmt.Fprintf(&sb, " ORDER BY %s", strings.Join(last.OrderingColumns, ", "))
	}
	sb.WriteString(";")
	return sb.String()
}

// AssembleQuery builds the sub-query chain from the fragment list, orders it
// and renders the single executable statement.
func AssembleQuery(d dialect.Dialect, frags []translate.Fragment) (string, error) {
	if len(frags) == 0 {
		return "", fmt.Errorf("cannot assemble query: no fragments")
	}
	builder := NewBuilder(d)
	ctes, err := builder.BuildChain(frags)
	if err != nil {
		return "", fmt.Errorf("cannot assemble query: %w", err)
	}
	ordered, err := OrderCTEs(ctes)
	if err != nil {
		return "", fmt.Errorf("cannot assemble query: %w", err)
	}
	// The overall result is the last fragment's sub-query, which the
	// ordering necessarily places last in a single chain but not when
	// independent branches follow it.
	resultName := frags[len(frags)-1].Name
	last := ordered[len(ordered)-1]
	for _, c := range ordered {
		if c.Name == resultName {
			last = c
			break
		}
	}
	return GenerateWithClause(ordered) + " " + GenerateFinalSelect(last), nil
}
