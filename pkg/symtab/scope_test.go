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

func TestScopeCopyIsIndependent(t *testing.T) {
	parent := NewScope()
	parent.Set("x", "int")

	child := parent.Copy()
	child.Set("y", "string")
	child.Set("x", "float64")

	if _, ok := parent.Lookup("y"); ok {
		t.Fatalf("child write leaked into parent")
	}
	typ, _ := parent.Lookup("x")
	if typ != "int" {
		t.Fatalf("child overwrite leaked into parent: x=%s", typ)
	}
}

func TestScopeLookupMiss(t *testing.T) {
	s := NewScope()
	if _, ok := s.Lookup("missing"); ok {
		t.Fatalf("expected miss")
	}
}
