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

import (
	"encoding/json"
	"reflect"
	"testing"
)

// TestJSONRoundTrip covers lossless encoding: an IR with every collection
// populated must survive marshal/unmarshal unchanged.
func TestJSONRoundTrip(t *testing.T) {
	g := NewIDGenerator("proj", 0)
	modID := g.ModuleID(Go, "example.com/zoo")
	typID := g.TypeID(Go, "example.com/zoo.Dog")
	fnID := g.CallableID(Go, "example.com/zoo.Dog.Name", "()")

	original := &IR{
		Modules: []Module{{
			ID: modID, Name: "zoo", QualifiedName: "example.com/zoo",
			Path: ".", Language: Go, TypeIDs: []string{typID},
		}},
		Types: []Type{{
			ID: typID, Name: "Dog", QualifiedName: "example.com/zoo.Dog",
			Kind: KindStruct, Language: Go, CallableIDs: []string{fnID},
		}},
		Callables: []Callable{{
			ID: fnID, Name: "Name", QualifiedName: "example.com/zoo.Dog.Name",
			Signature: "()", Kind: CallableMethod, Language: Go,
			Visibility: VisibilityPublic, Routes: []string{"GET /dogs"},
		}},
		Unresolved: []UnresolvedReference{{
			SourceCallableID: fnID, TargetName: "Bark", Reason: "Unknown receiver type",
		}},
		Relationships: []Relationship{{SourceID: typID, TargetID: typID, Type: RelCalls}},
		Version:       "1",
		Language:      Go,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var decoded IR
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(original, &decoded) {
		t.Fatalf("round trip changed the IR:\n  in:  %+v\n  out: %+v", original, &decoded)
	}
}
