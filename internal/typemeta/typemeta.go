// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typemeta

import (
	"fmt"
	"strings"
)

// Tables holds the lookup data the Resolver is built from. The tables are
// produced by an external loader from the published element definitions; this
// package only consumes them. All keys are matched case-insensitively.
type Tables struct {
	// Aliases maps a declared type name to its canonical name, e.g.
	// "code" -> "string". Canonical names map to themselves.
	Aliases map[string]string

	// Supertypes lists the immediate supertype(s) of each type.
	Supertypes map[string][]string

	// ArrayElements records, per type, which of its elements carry list
	// cardinality, e.g. ArrayElements["Patient"]["name"] == true.
	ArrayElements map[string]map[string]bool

	// ElementTypes records, per type, the declared type of each element,
	// e.g. ElementTypes["Patient"]["name"] == "HumanName". Used to resolve
	// the intermediate segments of dotted element paths.
	ElementTypes map[string]map[string]string

	// Backbones is the set of structurally nested element group types that
	// cannot be addressed independently of their parent resource.
	Backbones map[string]bool

	// ProfileBases maps a constrained profile name to its base type.
	ProfileBases map[string]string
}

// UnknownTypeError is returned when a type name has no canonical mapping.
type UnknownTypeError struct {
	Name string
}

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q", e.Name)
}

// namespacePrefixes are stripped from declared type names before lookup.
var namespacePrefixes = []string{"FHIR.", "System."}

// Resolver answers type questions during translation. It is built once from
// a set of Tables and is immutable afterwards, so a single Resolver can be
// shared by any number of concurrent translations without locking.
type Resolver struct {
	aliases       map[string]string
	supertypes    map[string][]string
	arrayElements map[string]map[string]bool
	elementTypes  map[string]map[string]string
	backbones     map[string]bool
	profileBases  map[string]string
}

// NewResolver builds a Resolver from the given lookup tables. The tables are
// copied with all keys folded to lower case; the caller may discard or reuse
// them afterwards.
func NewResolver(t Tables) *Resolver {
	r := &Resolver{
		aliases:       make(map[string]string, len(t.Aliases)),
		supertypes:    make(map[string][]string, len(t.Supertypes)),
		arrayElements: make(map[string]map[string]bool, len(t.ArrayElements)),
		elementTypes:  make(map[string]map[string]string, len(t.ElementTypes)),
		backbones:     make(map[string]bool, len(t.Backbones)),
		profileBases:  make(map[string]string, len(t.ProfileBases)),
	}
	for name, canonical := range t.Aliases {
		r.aliases[fold(name)] = canonical
	}
	for name, supers := range t.Supertypes {
		r.supertypes[fold(name)] = append([]string(nil), supers...)
	}
	for name, elems := range t.ArrayElements {
		m := make(map[string]bool, len(elems))
		for elem, isArray := range elems {
			m[fold(elem)] = isArray
		}
		r.arrayElements[fold(name)] = m
	}
	for name, elems := range t.ElementTypes {
		m := make(map[string]string, len(elems))
		for elem, typ := range elems {
			m[fold(elem)] = typ
		}
		r.elementTypes[fold(name)] = m
	}
	for name := range t.Backbones {
		r.backbones[fold(name)] = true
	}
	for name, base := range t.ProfileBases {
		r.profileBases[fold(name)] = base
	}
	return r
}

// fold normalises a type or element name for lookup: case is ignored and
// known namespace prefixes are dropped.
func fold(name string) string {
	for _, prefix := range namespacePrefixes {
		if len(name) > len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
			name = name[len(prefix):]
			break
		}
	}
	return strings.ToLower(name)
}

// Canonical returns the canonical name for the given declared type name.
// Matching is case-insensitive and ignores namespace prefixes.
func (r *Resolver) Canonical(name string) (string, error) {
	canonical, ok := r.aliases[fold(name)]
	if !ok {
		return "", UnknownTypeError{Name: name}
	}
	return canonical, nil
}

// IsSubtypeOf reports whether candidate is base or a direct or transitive
// subtype of base. A cycle in the supertype data terminates the walk and
// reports false rather than looping.
func (r *Resolver) IsSubtypeOf(candidate, base string) bool {
	target := fold(base)
	seen := map[string]bool{}
	queue := []string{fold(candidate)}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if name == target {
			return true
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		queue = append(queue, foldAll(r.supertypes[name])...)
	}
	return false
}

func foldAll(names []string) []string {
	folded := make([]string, len(names))
	for i, name := range names {
		folded[i] = fold(name)
	}
	return folded
}

// IsArrayElement reports whether the element at the given dotted path within
// resourceType carries list cardinality. The path is resolved segment by
// segment, e.g. "name.given" first resolves the type of Patient.name and then
// looks up given within it; the cardinality of the final segment is returned.
// A missing type or segment reports false: the answer feeds a flattening
// decision, not a validity check, so it fails closed.
func (r *Resolver) IsArrayElement(resourceType, elementPath string) bool {
	current := fold(resourceType)
	segments := strings.Split(elementPath, ".")
	for i, segment := range segments {
		segment = fold(segment)
		if i == len(segments)-1 {
			elems, ok := r.arrayElements[current]
			if !ok {
				return false
			}
			return elems[segment]
		}
		next, ok := r.elementTypes[current]
		if !ok {
			return false
		}
		current, ok = next[segment]
		if !ok {
			return false
		}
		current = fold(current)
	}
	return false
}

// ElementType returns the declared type of an element within the given type,
// or false if either is unknown.
func (r *Resolver) ElementType(typeName, element string) (string, bool) {
	elems, ok := r.elementTypes[fold(typeName)]
	if !ok {
		return "", false
	}
	typ, ok := elems[fold(element)]
	return typ, ok
}

// IsBackbone reports whether the named type is a structurally nested element
// group rather than an independently addressable type.
func (r *Resolver) IsBackbone(name string) bool {
	return r.backbones[fold(name)]
}

// ProfileBase returns the unconstrained base type of a profile, or false if
// the name is not a known profile.
func (r *Resolver) ProfileBase(name string) (string, bool) {
	base, ok := r.profileBases[fold(name)]
	return base, ok
}
