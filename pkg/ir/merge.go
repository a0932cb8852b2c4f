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

package ir

import "strings"

// Merge returns a new IR whose collections are the concatenation of r and
// other's. Every entity keeps its own language tag; Merge never rewrites an
// entity's Language field to the result's aggregate tag. The result's
// aggregate tag is informational only and reflects other's (the
// most-recently-merged scan), matching the "later wins" convention used for
// aggregate-only bookkeeping.
//
// Merge is pure: neither r nor other is mutated.
func Merge(r, other *IR) *IR {
	if r == nil {
		return other
	}
	if other == nil {
		return r
	}

	out := &IR{
		Modules:       make([]Module, 0, len(r.Modules)+len(other.Modules)),
		Types:         make([]Type, 0, len(r.Types)+len(other.Types)),
		Callables:     make([]Callable, 0, len(r.Callables)+len(other.Callables)),
		Unresolved:    make([]UnresolvedReference, 0, len(r.Unresolved)+len(other.Unresolved)),
		Relationships: make([]Relationship, 0, len(r.Relationships)+len(other.Relationships)),
		Version:       r.Version,
		Language:      other.Language,
	}
	if out.Version == "" {
		out.Version = other.Version
	}

	out.Modules = append(out.Modules, r.Modules...)
	out.Modules = append(out.Modules, other.Modules...)
	out.Types = append(out.Types, r.Types...)
	out.Types = append(out.Types, other.Types...)
	out.Callables = append(out.Callables, r.Callables...)
	out.Callables = append(out.Callables, other.Callables...)
	out.Unresolved = append(out.Unresolved, r.Unresolved...)
	out.Unresolved = append(out.Unresolved, other.Unresolved...)
	out.Relationships = append(out.Relationships, r.Relationships...)
	out.Relationships = append(out.Relationships, other.Relationships...)

	return out
}

// MergeAll folds Merge across a slice of IRs, e.g. one per language
// detected in a repository. An empty slice returns an empty IR.
func MergeAll(version string, lang Language, irs ...*IR) *IR {
	out := New(version, lang)
	for _, r := range irs {
		out = Merge(out, r)
	}
	return out
}

// LinkSubModules connects every module to its nearest ancestor module by
// qualified-name prefix, appending the child's id to the ancestor's
// SubModuleIDs. sep is the qualified-name separator ("." for Java/PHP, "/"
// for Go module paths). Modules are visited in slice order, so the output
// is deterministic, and a module is never linked to itself.
func LinkSubModules(modules []Module, sep string) {
	byQN := make(map[string]int, len(modules))
	for i, m := range modules {
		byQN[m.QualifiedName] = i
	}
	for i, m := range modules {
		qn := m.QualifiedName
		for {
			idx := strings.LastIndex(qn, sep)
			if idx < 0 {
				break
			}
			qn = qn[:idx]
			parent, ok := byQN[qn]
			if !ok {
				continue
			}
			if parent == i {
				break
			}
			modules[parent].SubModuleIDs = appendUnique(modules[parent].SubModuleIDs, m.ID)
			break
		}
	}
}

func appendUnique(list []string, v string) []string {
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}
