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

func TestAddCallableOverloadStorage(t *testing.T) {
	tab := New()
	tab.AddCallable("f", "C.f", "(int)", "void")
	tab.AddCallable("f", "C.f", "(String)", "void")

	// The qualified name appears once in the short-name index regardless
	// of how many overloads share it.
	cands := tab.callableCandidates("f")
	if len(cands) != 1 || cands[0] != "C.f" {
		t.Fatalf("expected single qualified name entry, got %v", cands)
	}

	sigs := tab.SignaturesOf("C.f")
	if len(sigs) != 2 {
		t.Fatalf("expected 2 overload signatures, got %v", sigs)
	}
	if !tab.HasSignature("C.f", "(int)") || !tab.HasSignature("C.f", "(String)") {
		t.Fatalf("expected both overload signatures to be registered")
	}
}

func TestFieldTypes(t *testing.T) {
	tab := New()
	tab.AddFieldType("app.Dog", "name", "string")

	typ, ok := tab.FieldType("app.Dog", "name")
	if !ok || typ != "string" {
		t.Fatalf("expected field type lookup to succeed, got %q, %v", typ, ok)
	}
	if _, ok := tab.FieldType("app.Dog", "age"); ok {
		t.Fatalf("expected miss for unregistered field")
	}
}

func TestModules(t *testing.T) {
	tab := New()
	tab.AddModule("app.models", "mod:abc123")
	id, ok := tab.ModuleID("app.models")
	if !ok || id != "mod:abc123" {
		t.Fatalf("unexpected module id lookup: %q, %v", id, ok)
	}
}

func TestHasTypeQN(t *testing.T) {
	tab := New()
	tab.AddType("Dog", "zoo.Dog")
	if !tab.HasTypeQN("zoo.Dog") {
		t.Fatalf("expected zoo.Dog to be registered")
	}
	if tab.HasTypeQN("java.util.List") {
		t.Fatalf("expected unscanned type to be absent")
	}
}

func TestOverriddenIn(t *testing.T) {
	tab := New()
	tab.AddType("Animal", "zoo.Animal")
	tab.AddType("Dog", "zoo.Dog")
	tab.AddSupertype("zoo.Dog", "zoo.Animal")
	tab.AddCallable("speak", "zoo.Animal.speak", "()", "")
	tab.AddCallable("speak", "zoo.Dog.speak", "()", "")

	super, ok := tab.OverriddenIn("zoo.Dog", "speak", "()")
	if !ok || super != "zoo.Animal" {
		t.Fatalf("expected Dog.speak to override Animal.speak, got %q, %v", super, ok)
	}

	// A different signature is an overload, not an override.
	if _, ok := tab.OverriddenIn("zoo.Dog", "speak", "(int)"); ok {
		t.Fatalf("expected no override for a signature the supertype never declares")
	}
}

func TestReturnTypeOf(t *testing.T) {
	tab := New()
	tab.AddCallable("f", "C.f", "(int)", "String")
	rt, ok := tab.ReturnTypeOf("C.f", "(int)")
	if !ok || rt != "String" {
		t.Fatalf("unexpected return type lookup: %q, %v", rt, ok)
	}
}
