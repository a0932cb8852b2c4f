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

package java

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
)

func writeJavaFile(t *testing.T, dir, rel, content string) walk.File {
	t.Helper()
	abs := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return walk.File{Path: rel, AbsPath: abs, Language: ir.Java}
}

func findJavaCallable(r *ir.IR, qualifiedName string) *ir.Callable {
	for i := range r.Callables {
		if r.Callables[i].QualifiedName == qualifiedName {
			return &r.Callables[i]
		}
	}
	return nil
}

func containsJavaID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// TestResolveOverrideCallThis covers override shadowing: Dog.bark calling
// this.speak() must resolve to Dog.speak (the overriding method), not
// Animal.speak, because same-type resolution wins over inherited lookup.
func TestResolveOverrideCallThis(t *testing.T) {
	dir := t.TempDir()
	src := `package zoo;

class Animal {
    void speak() { }
}

class Dog extends Animal {
    void speak() { }
    void bark() {
        this.speak();
    }
}
`
	f := writeJavaFile(t, dir, "zoo/Dog.java", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := Scan(dir, files, idgen, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := Resolve(dir, files, tab, "proj", idgen, nil)
	if err != nil {
		t.Fatal(err)
	}

	bark := findJavaCallable(result, "zoo.Dog.bark")
	if bark == nil {
		t.Fatalf("expected zoo.Dog.bark callable in IR")
	}
	dogSpeakID := idgen.CallableID(ir.Java, "zoo.Dog.speak", "()")
	if !containsJavaID(bark.CalleeIDs, dogSpeakID) {
		t.Fatalf("expected bark to call Dog.speak, calls=%v", bark.CalleeIDs)
	}

	speak := findJavaCallable(result, "zoo.Dog.speak")
	if speak == nil {
		t.Fatalf("expected zoo.Dog.speak callable in IR")
	}
	animalSpeakID := idgen.CallableID(ir.Java, "zoo.Animal.speak", "()")
	if speak.OverriddenID != animalSpeakID {
		t.Fatalf("expected Dog.speak to override Animal.speak, got %q", speak.OverriddenID)
	}
}

// TestResolveExternalReceiverIgnored covers the external-call tolerance
// property: calls on a receiver type declared outside the scanned tree must
// not appear in unresolved references.
func TestResolveExternalReceiverIgnored(t *testing.T) {
	dir := t.TempDir()
	src := `package zoo;

import java.util.List;

class Names {
    void use(List<String> names) {
        names.add("rex");
    }
}
`
	f := writeJavaFile(t, dir, "zoo/Names.java", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := Scan(dir, files, idgen, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := Resolve(dir, files, tab, "proj", idgen, nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, u := range result.Unresolved {
		if u.TargetName == "add" {
			t.Fatalf("expected external List.add call to be silently ignored, got %+v", u)
		}
	}
}

// TestResolveOverloadBySignature covers overload disambiguation: a call site's
// argument types must disambiguate between overloaded methods.
func TestResolveOverloadBySignature(t *testing.T) {
	dir := t.TempDir()
	src := `package zoo;

class Printer {
    void write(String s) { }
    void write(int n) { }

    void run() {
        write("hello");
        write(1);
    }
}
`
	f := writeJavaFile(t, dir, "zoo/Printer.java", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := Scan(dir, files, idgen, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := Resolve(dir, files, tab, "proj", idgen, nil)
	if err != nil {
		t.Fatal(err)
	}

	run := findJavaCallable(result, "zoo.Printer.run")
	if run == nil {
		t.Fatalf("expected zoo.Printer.run callable in IR")
	}
	stringWriteID := idgen.CallableID(ir.Java, "zoo.Printer.write", "(String)")
	intWriteID := idgen.CallableID(ir.Java, "zoo.Printer.write", "(int)")
	if !containsJavaID(run.CalleeIDs, stringWriteID) {
		t.Fatalf("expected run to call write(String), calls=%v", run.CalleeIDs)
	}
	if !containsJavaID(run.CalleeIDs, intWriteID) {
		t.Fatalf("expected run to call write(int), calls=%v", run.CalleeIDs)
	}
}

// TestResolveUnknownMethod covers the "Method not found" unresolved
// reason for a call against a known receiver type with no matching
// method.
func TestResolveUnknownMethod(t *testing.T) {
	dir := t.TempDir()
	src := `package zoo;

class Widget {
    void use() {
        Helper h = new Helper();
        h.missing();
    }
}

class Helper {
}
`
	f := writeJavaFile(t, dir, "zoo/Widget.java", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := Scan(dir, files, idgen, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := Resolve(dir, files, tab, "proj", idgen, nil)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, u := range result.Unresolved {
		if u.TargetName == "missing" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unresolved reference for missing(), got %+v", result.Unresolved)
	}
}
