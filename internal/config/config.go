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

// Package config loads a kodemap project configuration file: the root to
// scan, exclude globs, file-size limits, and the project id used to seed
// deterministic ids: a single struct with a DefaultConfig, loaded from
// ".kodemap/project.yaml".
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk project configuration for one repository scan.
type Config struct {
	// ProjectID seeds pkg/ir.IDGenerator; ids are only stable across runs
	// that share the same ProjectID.
	ProjectID string `yaml:"project_id"`

	// Root is the filesystem path to scan, relative to the config file's
	// directory unless absolute.
	Root string `yaml:"root"`

	// Languages lists languages by name. It is parsed from the file, but
	// the scan pipeline does not read it: every Java, Go, and PHP file found
	// under Root is analyzed whatever this list holds.
	Languages []string `yaml:"languages"`

	// ExcludeGlobs are doublestar patterns (relative to Root) for files
	// and directories to skip, in addition to the walker's built-in
	// VCS/vendor excludes.
	ExcludeGlobs []string `yaml:"exclude_globs"`

	// MaxFileSizeBytes skips files larger than this (0 = no limit).
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`

	// IDHexLen is the length, in hex characters, of generated entity ids
	// (default: 16).
	IDHexLen int `yaml:"id_hex_len"`
}

// DefaultConfig returns a Config with sensible defaults for a config file
// that only sets project_id.
func DefaultConfig() Config {
	return Config{
		Root:             ".",
		MaxFileSizeBytes: 1048576, // 1MB
		IDHexLen:         16,
		ExcludeGlobs: []string{
			"dist/**", "build/**", "bin/**", "**/bin/**", "out/**",
			".idea/**", ".vscode/**",
			".cache/**", "coverage/**", "tmp/**", ".tmp/**",
		},
	}
}

// Load reads and parses a project.yaml at path, filling in defaults for
// any field the file leaves zero-valued.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.ProjectID == "" {
		return Config{}, fmt.Errorf("config: %s: project_id is required", path)
	}
	if cfg.IDHexLen <= 0 {
		cfg.IDHexLen = 16
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}
