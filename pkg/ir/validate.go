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

import "fmt"

// ValidationError names the entity and field an invariant violation was
// found in, so callers can report it without re-walking the IR.
type ValidationError struct {
	EntityKind string // "Module", "Type", "Callable"
	EntityID   string
	Field      string
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s: field %s: %s", e.EntityKind, e.EntityID, e.Field, e.Message)
}

// Validate walks the IR and returns one ValidationError per dangling id
// reference, plus self-reference errors on sub-modules. It never mutates
// the IR; a clean IR returns a nil slice.
func Validate(r *IR) []*ValidationError {
	ids := indexIDs(r)
	var errs []*ValidationError

	checkRefs := func(kind, ownerID, field string, refs []string) {
		for _, ref := range refs {
			if _, ok := ids[ref]; !ok {
				errs = append(errs, &ValidationError{
					EntityKind: kind, EntityID: ownerID, Field: field,
					Message: fmt.Sprintf("dangling reference %q", ref),
				})
			}
		}
	}

	for _, m := range r.Modules {
		checkRefs("Module", m.ID, "declared_types", m.TypeIDs)
		checkRefs("Module", m.ID, "sub_modules", m.SubModuleIDs)
		for _, sub := range m.SubModuleIDs {
			if sub == m.ID {
				errs = append(errs, &ValidationError{
					EntityKind: "Module", EntityID: m.ID, Field: "sub_modules",
					Message: "module lists itself as a sub-module",
				})
			}
		}
	}

	for _, t := range r.Types {
		checkRefs("Type", t.ID, "extends", t.Extends)
		checkRefs("Type", t.ID, "implements", t.Implements)
		checkRefs("Type", t.ID, "embeds", t.Embeds)
		checkRefs("Type", t.ID, "callables", t.CallableIDs)
	}

	for _, c := range r.Callables {
		checkRefs("Callable", c.ID, "calls", c.CalleeIDs)
		if c.OverriddenID != "" {
			checkRefs("Callable", c.ID, "overrides", []string{c.OverriddenID})
		}
		if c.ReturnTypeID != "" {
			checkRefs("Callable", c.ID, "return_type", []string{c.ReturnTypeID})
		}
	}

	for _, rel := range r.Relationships {
		checkRefs("Relationship", rel.SourceID+">"+rel.Type, "source", []string{rel.SourceID})
		checkRefs("Relationship", rel.SourceID+">"+rel.Type, "target", []string{rel.TargetID})
	}

	return errs
}

func indexIDs(r *IR) map[string]struct{} {
	ids := make(map[string]struct{}, len(r.Modules)+len(r.Types)+len(r.Callables))
	for _, m := range r.Modules {
		ids[m.ID] = struct{}{}
	}
	for _, t := range r.Types {
		ids[t.ID] = struct{}{}
	}
	for _, c := range r.Callables {
		ids[c.ID] = struct{}{}
	}
	return ids
}
