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

package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kodemap/kodemap/pkg/ir"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkDetectsLanguagesAndSortsByPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b", "main.go"), "package b\n")
	writeFile(t, filepath.Join(root, "a", "App.java"), "class App {}\n")
	writeFile(t, filepath.Join(root, "c", "index.php"), "<?php\n")
	writeFile(t, filepath.Join(root, "README.md"), "ignored\n")
	writeFile(t, filepath.Join(root, "vendor", "lib", "main.go"), "package lib\n")

	files, err := Walk(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files (vendor and .md excluded), got %d: %+v", len(files), files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1].Path >= files[i].Path {
			t.Fatalf("files not sorted: %v", files)
		}
	}

	byLang := ByLanguage(files)
	if len(byLang[ir.Go]) != 1 || len(byLang[ir.Java]) != 1 || len(byLang[ir.PHP]) != 1 {
		t.Fatalf("unexpected language partition: %+v", byLang)
	}
}

func TestWalkRespectsExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gen", "thing.go"), "package gen\n")
	writeFile(t, filepath.Join(root, "src", "thing.go"), "package src\n")

	files, err := Walk(root, Options{ExcludeGlobs: []string{"gen/**"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Path != "src/thing.go" {
		t.Fatalf("expected only src/thing.go, got %+v", files)
	}
}

func TestModuleRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module github.com/example/widget\n\ngo 1.24\n")
	if got := ModuleRoot(root); got != "github.com/example/widget" {
		t.Fatalf("unexpected module path: %q", got)
	}
}

func TestModuleRootMissing(t *testing.T) {
	root := t.TempDir()
	if got := ModuleRoot(root); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
