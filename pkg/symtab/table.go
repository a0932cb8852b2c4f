// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package symtab implements the cross-file symbol table built during Phase
// 1 (scan) and read during Phase 2 (resolve): short-name indexes for types
// and callables, field types, the type hierarchy, and module ids.
//
// A Table is populated by exactly one scanner goroutine and becomes
// read-only once Phase 1 finishes; there is no locking because ownership
// is exclusive per phase.
package symtab

import "sort"

// fieldKey is the (owner qualified name, field name) composite key for
// Table.fieldTypes.
type fieldKey struct {
	owner string
	field string
}

// Table is the symbol table: short name → ordered
// set of qualified names for types and callables, signature-keyed maps for
// overload storage, field types, type hierarchy, and module ids.
type Table struct {
	types     map[string]map[string]struct{} // short name -> set of qualified names
	typeQNs   map[string]struct{}            // every registered qualified type name
	callables map[string]map[string]struct{} // short name -> set of qualified names

	// callableSignatures and callableReturnTypes are keyed by
	// "qualifiedName#signature", an ergonomic shortcut for a two-level
	// qualified -> signature -> value map. signatures tracks every overload declared under a
	// qualified name so resolve_callable_with_receiver's disambiguation
	// step can ask "exactly one candidate declares this signature".
	callableSignatures  map[string]string              // key -> canonical signature string
	callableReturnTypes map[string]string              // key -> return type as written
	signaturesByQN      map[string]map[string]struct{} // qualifiedName -> set of signatures

	fieldTypes map[fieldKey]string // (owner, field) -> field type

	typeHierarchy map[string][]string // qualified name -> ordered supertype qualified names

	modules map[string]string // qualified name -> module id
}

// New returns an empty, writable Table.
func New() *Table {
	return &Table{
		types:               make(map[string]map[string]struct{}),
		typeQNs:             make(map[string]struct{}),
		callables:           make(map[string]map[string]struct{}),
		callableSignatures:  make(map[string]string),
		callableReturnTypes: make(map[string]string),
		signaturesByQN:      make(map[string]map[string]struct{}),
		fieldTypes:          make(map[fieldKey]string),
		typeHierarchy:       make(map[string][]string),
		modules:             make(map[string]string),
	}
}

func sigKey(qualifiedName, signature string) string {
	return qualifiedName + "#" + signature
}

// AddType registers a type's short name -> qualified name.
func (t *Table) AddType(shortName, qualifiedName string) {
	if t.types[shortName] == nil {
		t.types[shortName] = make(map[string]struct{})
	}
	t.types[shortName][qualifiedName] = struct{}{}
	t.typeQNs[qualifiedName] = struct{}{}
}

// HasTypeQN reports whether a qualified type name was registered during the
// scan, i.e. whether the type is declared inside the scanned tree. Callers
// use this to tell a genuinely unresolved in-tree method call apart from a
// call on an external library type, which is an expected condition and not
// reported as unresolved.
func (t *Table) HasTypeQN(qualifiedName string) bool {
	_, ok := t.typeQNs[qualifiedName]
	return ok
}

// AddCallable registers a callable overload. If a callable with the same
// qualified name already exists with a different signature, a new overload
// entry is added under the same short-name/qualified-name pair: the
// qualified name appears once in the short-name index regardless of how
// many overloads share it, while callableSignatures/callableReturnTypes/
// signaturesByQN distinguish overloads by signature.
func (t *Table) AddCallable(shortName, qualifiedName, signature, returnType string) {
	if t.callables[shortName] == nil {
		t.callables[shortName] = make(map[string]struct{})
	}
	t.callables[shortName][qualifiedName] = struct{}{}

	key := sigKey(qualifiedName, signature)
	t.callableSignatures[key] = signature
	if returnType != "" {
		t.callableReturnTypes[key] = returnType
	}
	if t.signaturesByQN[qualifiedName] == nil {
		t.signaturesByQN[qualifiedName] = make(map[string]struct{})
	}
	t.signaturesByQN[qualifiedName][signature] = struct{}{}
}

// AddFieldType registers the declared type of a field on a type.
func (t *Table) AddFieldType(ownerQualifiedName, fieldName, fieldType string) {
	t.fieldTypes[fieldKey{owner: ownerQualifiedName, field: fieldName}] = fieldType
}

// FieldType looks up a field's declared type.
func (t *Table) FieldType(ownerQualifiedName, fieldName string) (string, bool) {
	v, ok := t.fieldTypes[fieldKey{owner: ownerQualifiedName, field: fieldName}]
	return v, ok
}

// AddSupertype appends a supertype qualified name to a type's hierarchy
// entry, in source order (extends, implements, and embeds all flow through
// here; callers keep their own kind-specific lists for the IR and use this
// only for resolution).
func (t *Table) AddSupertype(qualifiedName, supertypeQualifiedName string) {
	t.typeHierarchy[qualifiedName] = append(t.typeHierarchy[qualifiedName], supertypeQualifiedName)
}

// Supertypes returns the ordered list of a type's direct supertypes.
func (t *Table) Supertypes(qualifiedName string) []string {
	return t.typeHierarchy[qualifiedName]
}

// hierarchyGenerations returns [qualifiedName], then its direct
// supertypes, then its indirect supertypes one generation at a time,
// breadth-first, skipping types already seen in an earlier generation
// (so a repeated ancestor in a diamond is only considered once, at its
// shortest distance from qualifiedName).
func (t *Table) hierarchyGenerations(qualifiedName string) [][]string {
	seen := map[string]struct{}{qualifiedName: {}}
	generations := [][]string{{qualifiedName}}
	frontier := []string{qualifiedName}
	for len(frontier) > 0 {
		var next []string
		for _, typ := range frontier {
			for _, super := range t.Supertypes(typ) {
				if _, ok := seen[super]; ok {
					continue
				}
				seen[super] = struct{}{}
				next = append(next, super)
			}
		}
		if len(next) == 0 {
			break
		}
		generations = append(generations, next)
		frontier = next
	}
	return generations
}

// OverriddenIn returns the qualified name of the nearest supertype of
// ownerQN that declares methodName with exactly the given signature, walking
// the hierarchy breadth-first and skipping ownerQN itself. Used to populate
// a callable's overridden-callable edge.
func (t *Table) OverriddenIn(ownerQN, methodName, signature string) (string, bool) {
	for i, generation := range t.hierarchyGenerations(ownerQN) {
		if i == 0 {
			continue
		}
		var matches []string
		for _, super := range generation {
			if t.HasSignature(super+"."+methodName, signature) {
				matches = append(matches, super)
			}
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], true
		}
	}
	return "", false
}

// AddModule registers a module's id under its qualified name.
func (t *Table) AddModule(qualifiedName, moduleID string) {
	t.modules[qualifiedName] = moduleID
}

// ModuleID looks up a module id by qualified name.
func (t *Table) ModuleID(qualifiedName string) (string, bool) {
	v, ok := t.modules[qualifiedName]
	return v, ok
}

// ReturnTypeOf looks up the declared return type for a qualified
// name + signature pair, as written in source (empty if unknown).
func (t *Table) ReturnTypeOf(qualifiedName, signature string) (string, bool) {
	v, ok := t.callableReturnTypes[sigKey(qualifiedName, signature)]
	return v, ok
}

// HasSignature reports whether qualifiedName declares signature among its
// overloads.
func (t *Table) HasSignature(qualifiedName, signature string) bool {
	_, ok := t.callableSignatures[sigKey(qualifiedName, signature)]
	return ok
}

// SignaturesOf returns the sorted set of signatures declared under a
// qualified name.
func (t *Table) SignaturesOf(qualifiedName string) []string {
	set := t.signaturesByQN[qualifiedName]
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// typeCandidates returns the sorted set of qualified names registered
// under a type short name.
func (t *Table) typeCandidates(shortName string) []string {
	return sortedKeys(t.types[shortName])
}

// callableCandidates returns the sorted set of qualified names registered
// under a callable short name.
func (t *Table) callableCandidates(shortName string) []string {
	return sortedKeys(t.callables[shortName])
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
