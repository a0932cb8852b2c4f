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

import "testing"

func TestResolveTypeLocalAlias(t *testing.T) {
	tab := New()
	tab.AddType("User", "app.models.User")
	tab.AddType("User", "app.other.User")

	fc := FileContext{Aliases: map[string]string{"User": "app.aliased.User"}}
	qn, ok := tab.ResolveType("User", fc)
	if !ok || qn != "app.aliased.User" {
		t.Fatalf("expected alias to win, got %q, %v", qn, ok)
	}
}

func TestResolveTypeMiss(t *testing.T) {
	tab := New()
	if _, ok := tab.ResolveType("Nope", FileContext{}); ok {
		t.Fatalf("expected miss for unregistered short name")
	}
}

func TestResolveTypeSamePackage(t *testing.T) {
	tab := New()
	tab.AddType("User", "app.models.User")
	tab.AddType("User", "app.other.User")

	qn, ok := tab.ResolveType("User", FileContext{Package: "app.models"})
	if !ok || qn != "app.models.User" {
		t.Fatalf("expected same-package match, got %q, %v", qn, ok)
	}
}

func TestResolveTypeExplicitImport(t *testing.T) {
	tab := New()
	tab.AddType("User", "app.models.User")
	tab.AddType("User", "app.other.User")

	qn, ok := tab.ResolveType("User", FileContext{
		Package: "app.controllers",
		Imports: []string{"app.other.User"},
	})
	if !ok || qn != "app.other.User" {
		t.Fatalf("expected explicit import match, got %q, %v", qn, ok)
	}
}

func TestResolveTypeWildcardImport(t *testing.T) {
	tab := New()
	tab.AddType("User", "app.models.User")
	tab.AddType("User", "app.other.User")

	qn, ok := tab.ResolveType("User", FileContext{
		Package:   "app.controllers",
		Wildcards: []string{"app.models"},
	})
	if !ok || qn != "app.models.User" {
		t.Fatalf("expected wildcard import match, got %q, %v", qn, ok)
	}
}

func TestResolveTypeUniqueFallback(t *testing.T) {
	tab := New()
	tab.AddType("Widget", "app.things.Widget")

	qn, ok := tab.ResolveType("Widget", FileContext{Package: "app.other"})
	if !ok || qn != "app.things.Widget" {
		t.Fatalf("expected unique-candidate fallback, got %q, %v", qn, ok)
	}
}

func TestResolveTypeAmbiguousNoFallback(t *testing.T) {
	tab := New()
	tab.AddType("Widget", "app.things.Widget")
	tab.AddType("Widget", "app.other.Widget")

	if _, ok := tab.ResolveType("Widget", FileContext{Package: "app.controllers"}); ok {
		t.Fatalf("expected ambiguous miss, resolver must never pick arbitrarily")
	}
}

func TestResolveCallableUnknownReceiver(t *testing.T) {
	tab := New()
	_, err := tab.ResolveCallableWithReceiver("Name", "", "")
	if err == nil || err.Error() != "Unknown receiver type" {
		t.Fatalf("expected Unknown receiver type, got %v", err)
	}
}

func TestResolveCallableMethodNotFound(t *testing.T) {
	tab := New()
	_, err := tab.ResolveCallableWithReceiver("Name", "Animal", "")
	if err == nil || err.Error() != "Method not found: Name" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveCallableNotOnType(t *testing.T) {
	tab := New()
	tab.AddCallable("Name", "Cat.Name", "()", "string")
	_, err := tab.ResolveCallableWithReceiver("Name", "Dog", "")
	if err == nil || err.Error() != "Method not found on type Dog" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveCallableViaSupertype(t *testing.T) {
	tab := New()
	tab.AddCallable("Name", "Animal.Name", "()", "string")
	tab.AddSupertype("Dog", "Animal")

	qn, err := tab.ResolveCallableWithReceiver("Name", "Dog", "")
	if err != nil || qn != "Animal.Name" {
		t.Fatalf("expected supertype resolution, got %q, %v", qn, err)
	}
}

func TestResolveCallableSameTypeWinsOverInherited(t *testing.T) {
	// Dog.speak overrides Animal.speak; same-type resolution wins.
	tab := New()
	tab.AddCallable("speak", "Animal.speak", "()", "void")
	tab.AddCallable("speak", "Dog.speak", "()", "void")
	tab.AddSupertype("Dog", "Animal")

	qn, err := tab.ResolveCallableWithReceiver("speak", "Dog", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qn != "Dog.speak" {
		t.Fatalf("expected Dog.speak to shadow the inherited Animal.speak, got %q", qn)
	}
}

func TestResolveCallableAmbiguous(t *testing.T) {
	tab := New()
	tab.AddCallable("f", "C.f", "(int)", "void")
	tab.AddCallable("f", "D.f", "(int)", "void")
	tab.AddSupertype("E", "C")
	tab.AddSupertype("E", "D")

	_, err := tab.ResolveCallableWithReceiver("f", "E", "")
	if err == nil {
		t.Fatalf("expected ambiguous error")
	}
	if err.Error() != "Ambiguous: 2 candidates" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveCallableOverloadBySignature(t *testing.T) {
	// Overload disambiguation by inferred argument signature.
	tab := New()
	tab.AddCallable("f", "C.f", "(int)", "void")
	tab.AddCallable("f", "C.f", "(String)", "void")

	qn, err := tab.ResolveCallableWithReceiver("f", "C", "(String)")
	if err != nil || qn != "C.f" {
		t.Fatalf("expected signature-disambiguated match, got %q, %v", qn, err)
	}
}

// TestResolutionOrderIndependence builds the same logical table via two
// insertion permutations and checks every resolution query answers
// identically: insertion order of the underlying maps must never affect
// outcomes.
func TestResolutionOrderIndependence(t *testing.T) {
	type entry struct{ short, qn string }
	types := []entry{
		{"User", "app.models.User"},
		{"User", "app.admin.User"},
		{"Widget", "app.ui.Widget"},
	}

	forward := New()
	for _, e := range types {
		forward.AddType(e.short, e.qn)
	}
	backward := New()
	for i := len(types) - 1; i >= 0; i-- {
		backward.AddType(types[i].short, types[i].qn)
	}

	contexts := []FileContext{
		{Package: "app.models"},
		{Package: "app.svc", Imports: []string{"app.admin.User"}},
		{Package: "app.svc", Wildcards: []string{"app.models"}},
		{Package: "app.svc"},
	}
	for _, fc := range contexts {
		for _, short := range []string{"User", "Widget", "Missing"} {
			aQN, aOK := forward.ResolveType(short, fc)
			bQN, bOK := backward.ResolveType(short, fc)
			if aQN != bQN || aOK != bOK {
				t.Fatalf("insertion order changed ResolveType(%q, %+v): (%q, %v) vs (%q, %v)",
					short, fc, aQN, aOK, bQN, bOK)
			}
		}
	}
}
