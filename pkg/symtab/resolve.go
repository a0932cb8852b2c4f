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

package symtab

import (
	"fmt"
	"sort"
	"strings"
)

// FileContext carries what resolve_type needs to know about the file a
// short name was seen in: its package/namespace, explicit imports,
// wildcard imports, and local type aliases (Go import aliases, Java
// single-type imports, PHP `use` statements all funnel through this).
type FileContext struct {
	Package string
	// Imports holds explicit imports ending in a short name, e.g. Java
	// "com.foo.Bar" or PHP "App\Models\User" (already dot-normalized).
	Imports []string
	// Wildcards holds wildcard-import prefixes without the trailing
	// ".*", e.g. "com.foo" for `import com.foo.*`.
	Wildcards []string
	// Aliases maps a local alias (Go import alias, `use X as Y`) straight
	// to a qualified name; checked first.
	Aliases map[string]string
}

// ResolveType maps a short type name to its qualified name: local alias,
// same-package, explicit import, wildcard import, then unique-candidate
// fallback, in that order, each step returning on first hit, every
// candidate set sorted before use for determinism.
func (t *Table) ResolveType(shortName string, fc FileContext) (string, bool) {
	// 1. Local alias table lookup.
	if fc.Aliases != nil {
		if qn, ok := fc.Aliases[shortName]; ok {
			return qn, true
		}
	}

	// 2. Candidates = sorted list of qualified names registered under
	// short_name. Empty => miss.
	candidates := t.typeCandidates(shortName)
	if len(candidates) == 0 {
		return "", false
	}

	contains := func(qn string) bool {
		idx := sort.SearchStrings(candidates, qn)
		return idx < len(candidates) && candidates[idx] == qn
	}

	// 3. Same-package qualified name, if present among candidates.
	if fc.Package != "" {
		samePkg := fc.Package + "." + shortName
		if contains(samePkg) {
			return samePkg, true
		}
	}

	// 4. Each explicit import ending with ".short_name", if it appears in
	// candidates. Imports are walked in their given order (source order);
	// only candidate sets, not this list, need sorting.
	suffix := "." + shortName
	for _, imp := range fc.Imports {
		if strings.HasSuffix(imp, suffix) && contains(imp) {
			return imp, true
		}
	}

	// 5. For each wildcard import "P.*", the first candidate (in sorted
	// order) starting with "P." and ending with ".short_name".
	for _, prefix := range fc.Wildcards {
		want := prefix + "."
		for _, c := range candidates {
			if strings.HasPrefix(c, want) && strings.HasSuffix(c, suffix) {
				return c, true
			}
		}
	}

	// 6. Exactly one candidate overall => hit; otherwise ambiguous miss.
	if len(candidates) == 1 {
		return candidates[0], true
	}
	return "", false
}

// ResolutionError carries the closed-vocabulary reason strings
// for a failed callable resolution.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string { return e.Reason }

// ResolveCallableWithReceiver resolves a method call against a receiver
// type and its supertype hierarchy, disambiguating overloads by signature
// when one is provided.
//
// receiverType == "" is treated as "absent"; signature == ""
// is treated as "not provided" (callers that genuinely have a zero-arity
// signature "()" must pass that literal string, not "").
func (t *Table) ResolveCallableWithReceiver(methodName, receiverType string, signature string) (string, error) {
	if receiverType == "" {
		return "", &ResolutionError{Reason: "Unknown receiver type"}
	}

	candidates := t.callableCandidates(methodName)
	if len(candidates) == 0 {
		return "", &ResolutionError{Reason: fmt.Sprintf("Method not found: %s", methodName)}
	}

	// Walk the hierarchy breadth-first, one generation at a time: the
	// receiver type itself, then its direct supertypes, then theirs, and
	// so on. The first generation with any matching candidate wins,
	// mirroring normal method-shadowing semantics (a type's own
	// declaration shadows an inherited one of the same name) while still
	// reporting a genuine ambiguity when two unrelated types at the same
	// distance from the receiver both declare the method (e.g. diamond
	// inheritance).
	var matching []string
	for _, generation := range t.hierarchyGenerations(receiverType) {
		matchSet := make(map[string]struct{})
		for _, typ := range generation {
			want := typ + "."
			for _, c := range candidates {
				if strings.HasPrefix(c, want) {
					matchSet[c] = struct{}{}
				}
			}
		}
		if len(matchSet) > 0 {
			matching = sortedKeys(matchSet)
			break
		}
	}
	if len(matching) == 0 {
		return "", &ResolutionError{Reason: fmt.Sprintf("Method not found on type %s", receiverType)}
	}

	if signature != "" {
		// Candidates whose qualified_name#signature key exists, which is
		// exactly "exactly one candidate declares this signature among
		// its overloads" — Table keeps a single signature index, so both
		// phrasings of the rule collapse to one lookup here.
		var sigMatches []string
		for _, c := range matching {
			if t.HasSignature(c, signature) {
				sigMatches = append(sigMatches, c)
			}
		}
		switch len(sigMatches) {
		case 1:
			return sigMatches[0], nil
		case 0:
			return "", &ResolutionError{Reason: fmt.Sprintf("Method not found on type %s", receiverType)}
		default:
			return "", &ResolutionError{Reason: fmt.Sprintf("Ambiguous: %d candidates", len(sigMatches))}
		}
	}

	switch len(matching) {
	case 1:
		return matching[0], nil
	default:
		return "", &ResolutionError{Reason: fmt.Sprintf("Ambiguous: %d candidates", len(matching))}
	}
}
