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

func TestLinkSubModules(t *testing.T) {
	modules := []Module{
		{ID: "mod:a", QualifiedName: "app"},
		{ID: "mod:b", QualifiedName: "app.models"},
		{ID: "mod:c", QualifiedName: "app.models.internal"},
		{ID: "mod:d", QualifiedName: "other"},
	}
	LinkSubModules(modules, ".")

	if len(modules[0].SubModuleIDs) != 1 || modules[0].SubModuleIDs[0] != "mod:b" {
		t.Fatalf("expected app to contain app.models, got %v", modules[0].SubModuleIDs)
	}
	if len(modules[1].SubModuleIDs) != 1 || modules[1].SubModuleIDs[0] != "mod:c" {
		t.Fatalf("expected app.models to contain its sub-module, got %v", modules[1].SubModuleIDs)
	}
	if len(modules[3].SubModuleIDs) != 0 {
		t.Fatalf("expected no sub-modules for other, got %v", modules[3].SubModuleIDs)
	}

	// Linking twice must not duplicate entries.
	LinkSubModules(modules, ".")
	if len(modules[0].SubModuleIDs) != 1 {
		t.Fatalf("expected idempotent linking, got %v", modules[0].SubModuleIDs)
	}
}

func TestMergePreservesLanguageTags(t *testing.T) {
	a := &IR{Types: []Type{{ID: "typ:a", Language: Java}}, Language: Java}
	b := &IR{Types: []Type{{ID: "typ:b", Language: Go}}, Language: Go}

	merged := Merge(a, b)

	if len(merged.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(merged.Types))
	}
	got := map[string]Language{}
	for _, ty := range merged.Types {
		got[ty.ID] = ty.Language
	}
	if got["typ:a"] != Java || got["typ:b"] != Go {
		t.Fatalf("merge rewrote an entity's own language tag: %v", got)
	}
	// aggregate tag is informational only, reflects the most recent merge
	if merged.Language != Go {
		t.Fatalf("expected aggregate tag Go, got %s", merged.Language)
	}
}

func TestMergeIsPure(t *testing.T) {
	a := &IR{Types: []Type{{ID: "typ:a"}}}
	b := &IR{Types: []Type{{ID: "typ:b"}}}

	_ = Merge(a, b)

	if len(a.Types) != 1 || len(b.Types) != 1 {
		t.Fatalf("Merge must not mutate its inputs")
	}
}

func TestMergeAll(t *testing.T) {
	a := &IR{Types: []Type{{ID: "typ:a"}}}
	b := &IR{Types: []Type{{ID: "typ:b"}}}
	c := &IR{Types: []Type{{ID: "typ:c"}}}

	merged := MergeAll("v1", Go, a, b, c)
	if len(merged.Types) != 3 {
		t.Fatalf("expected 3 types, got %d", len(merged.Types))
	}
}
