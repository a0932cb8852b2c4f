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

// Package walk discovers source files under a repository root: a single
// sequential, glob-excluding directory walk, sorted by path so output is
// deterministic regardless of filesystem enumeration order.
//
// The walk is deliberately sequential rather than worker-pool parallel:
// the analysis core this package feeds is itself single-threaded per
// repository scan, so a parallel walk would only reorder work the scanner
// has to re-sort anyway.
package walk

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kodemap/kodemap/pkg/ir"
)

// File describes one discovered source file relative to the scanned root.
type File struct {
	// Path is relative to the repository root, slash-separated.
	Path string
	// AbsPath is the absolute filesystem path, for opening/reading.
	AbsPath  string
	Language ir.Language
	Size     int64
}

// defaultExcludes mirrors the directories every scanner treats as noise
// regardless of language: VCS metadata and dependency vendoring.
var defaultExcludes = []string{
	"**/.git/**",
	"**/vendor/**",
	"**/node_modules/**",
}

// extensionLanguage maps a lower-cased file extension to its language tag.
// Only the three languages this system analyzes are mapped; everything
// else is skipped by Walk.
var extensionLanguage = map[string]ir.Language{
	".java": ir.Java,
	".go":   ir.Go,
	".php":  ir.PHP,
}

// Options configures a repository walk.
type Options struct {
	// ExcludeGlobs are doublestar patterns (relative to root) in addition
	// to defaultExcludes.
	ExcludeGlobs []string
	// MaxFileSizeBytes skips files larger than this (0 = no limit).
	MaxFileSizeBytes int64
	Logger           *slog.Logger
}

// Walk discovers every Java, Go, and PHP source file under root, skipping
// excluded globs, sorted by relative path for deterministic downstream
// processing.
func Walk(root string, opts Options) ([]File, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	excludes := append(append([]string{}, defaultExcludes...), opts.ExcludeGlobs...)

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("walk.stat_error", "path", path, "error", err)
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if matchAny(rel, excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		lang, ok := extensionLanguage[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			logger.Warn("walk.stat_error", "path", path, "error", statErr)
			return nil
		}
		if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
			logger.Warn("walk.file_too_large", "path", rel, "size", info.Size())
			return nil
		}

		files = append(files, File{
			Path:     rel,
			AbsPath:  path,
			Language: lang,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ByLanguage partitions a sorted file slice by language, preserving each
// sub-slice's relative sort order.
func ByLanguage(files []File) map[ir.Language][]File {
	out := make(map[ir.Language][]File)
	for _, f := range files {
		out[f.Language] = append(out[f.Language], f)
	}
	return out
}

func matchAny(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
	}
	return false
}

// ModuleRoot reads a Go module path from a go.mod at root, first line of
// form `module <name>`.
// Returns "" if no go.mod is found or it cannot be parsed.
func ModuleRoot(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	lines := strings.SplitN(string(data), "\n", 2)
	if len(lines) == 0 {
		return ""
	}
	first := strings.TrimSpace(lines[0])
	const prefix = "module "
	if !strings.HasPrefix(first, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(first, prefix))
}
