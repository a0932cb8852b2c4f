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

import "testing"

func TestValidateClean(t *testing.T) {
	g := NewIDGenerator("p", 0)
	typID := g.TypeID(Go, "pkg.Animal")
	fnID := g.CallableID(Go, "pkg.Animal.Name", "()")

	r := &IR{
		Types:     []Type{{ID: typID, Name: "Animal", CallableIDs: []string{fnID}}},
		Callables: []Callable{{ID: fnID, Name: "Name"}},
	}

	if errs := Validate(r); len(errs) != 0 {
		t.Fatalf("expected clean IR, got errors: %v", errs)
	}
}

func TestValidateDanglingReference(t *testing.T) {
	g := NewIDGenerator("p", 0)
	typID := g.TypeID(Go, "pkg.Dog")

	r := &IR{
		Types: []Type{{ID: typID, Name: "Dog", Extends: []string{"mod:doesnotexist"}}},
	}

	errs := Validate(r)
	if len(errs) != 1 {
		t.Fatalf("expected one dangling reference error, got %d: %v", len(errs), errs)
	}
	if errs[0].Field != "extends" || errs[0].EntityID != typID {
		t.Fatalf("unexpected error shape: %+v", errs[0])
	}
}

func TestValidateSelfSubModule(t *testing.T) {
	r := &IR{
		Modules: []Module{{ID: "mod:1", SubModuleIDs: []string{"mod:1"}}},
	}
	errs := Validate(r)
	if len(errs) != 1 {
		t.Fatalf("expected self-reference error, got %v", errs)
	}
	if errs[0].Message == "" {
		t.Fatalf("expected a message describing the self-reference")
	}
}
