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

package golang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
)

func writeGoFile(t *testing.T, dir, rel, content string) walk.File {
	t.Helper()
	abs := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return walk.File{Path: rel, AbsPath: abs}
}

// TestScanEmbeddingAndMethods covers embedded-method resolution: Dog embeds Animal,
// Animal declares Name(), Dog does not redeclare it.
func TestScanEmbeddingAndMethods(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/zoo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := `package zoo

type Animal struct{}

func (a *Animal) Name() string { return "animal" }

type Dog struct {
	Animal
}

func main() {
	d := &Dog{}
	_ = d.Name()
}
`
	f := writeGoFile(t, dir, "zoo.go", src)

	tab, err := Scan(dir, []walk.File{f}, ir.NewIDGenerator("proj", 16), nil)
	if err != nil {
		t.Fatal(err)
	}

	supers := tab.Supertypes("example.com/zoo.Dog")
	if len(supers) != 1 || supers[0] != "example.com/zoo.Animal" {
		t.Fatalf("expected Dog to embed Animal, got %v", supers)
	}

	qn, err := tab.ResolveCallableWithReceiver("Name", "example.com/zoo.Dog", "")
	if err != nil {
		t.Fatalf("expected Name to resolve via embedding, got error: %v", err)
	}
	if qn != "example.com/zoo.Animal.Name" {
		t.Fatalf("expected inherited Animal.Name, got %s", qn)
	}
}

func TestScanSkipsTestFiles(t *testing.T) {
	dir := t.TempDir()
	f := writeGoFile(t, dir, "widget_test.go", `package widget

func TestSomething() {}
`)
	tab, err := Scan(dir, []walk.File{f}, ir.NewIDGenerator("proj", 16), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.SignaturesOf("widget.TestSomething")) != 0 {
		t.Fatalf("expected _test.go files to be skipped")
	}
}

func TestScanFunctionSignature(t *testing.T) {
	dir := t.TempDir()
	f := writeGoFile(t, dir, "math.go", `package mathx

func Add(a int, b int) int { return a + b }

func Sum(nums ...int) int { return 0 }
`)
	tab, err := Scan(dir, []walk.File{f}, ir.NewIDGenerator("proj", 16), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !tab.HasSignature("mathx.Add", "(int, int)") {
		t.Fatalf("expected Add signature (int, int)")
	}
	if !tab.HasSignature("mathx.Sum", "(int...)") {
		t.Fatalf("expected Sum variadic signature (int...)")
	}
	if rt, ok := tab.ReturnTypeOf("mathx.Add", "(int, int)"); !ok || rt != "int" {
		t.Fatalf("expected Add to return int, got %q (%v)", rt, ok)
	}
}
