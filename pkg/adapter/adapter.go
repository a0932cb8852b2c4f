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

// Package adapter defines the per-language analysis contract
// (language tag, symbol-table build, reference resolution) and the
// Orchestrator that drives every registered language over one repository
// walk and merges their IRs.
package adapter

import (
	"fmt"
	"log/slog"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
	"github.com/kodemap/kodemap/pkg/lang/golang"
	"github.com/kodemap/kodemap/pkg/lang/java"
	"github.com/kodemap/kodemap/pkg/lang/php"
	"github.com/kodemap/kodemap/pkg/symtab"
)

// Analyzer is the contract every language adapter satisfies: a name tag and
// the two phases of the pipeline.
type Analyzer interface {
	// LanguageTag identifies which ir.Language this analyzer produces.
	LanguageTag() ir.Language

	// BuildSymbolTable is Phase 1: a read-only symtab.Table built from
	// every file of this language under root. The id generator registers
	// each module's id so Phase 2 and the callers downstream share one id
	// space.
	BuildSymbolTable(root string, files []walk.File, idgen *ir.IDGenerator, logger *slog.Logger) (*symtab.Table, error)

	// ResolveReferences is Phase 2: the IR for this language, built against
	// the symbol table that BuildSymbolTable produced for the same language
	// (Orchestrator never merges tables across languages).
	ResolveReferences(root string, files []walk.File, tab *symtab.Table, projectID string, idgen *ir.IDGenerator, logger *slog.Logger) (*ir.IR, error)
}

// javaAnalyzer, goAnalyzer and phpAnalyzer adapt each language package's
// free Scan/Resolve functions to the Analyzer interface.
type javaAnalyzer struct{}
type goAnalyzer struct{}
type phpAnalyzer struct{}

func (javaAnalyzer) LanguageTag() ir.Language { return ir.Java }
func (javaAnalyzer) BuildSymbolTable(root string, files []walk.File, idgen *ir.IDGenerator, logger *slog.Logger) (*symtab.Table, error) {
	return java.Scan(root, files, idgen, logger)
}
func (javaAnalyzer) ResolveReferences(root string, files []walk.File, tab *symtab.Table, projectID string, idgen *ir.IDGenerator, logger *slog.Logger) (*ir.IR, error) {
	return java.Resolve(root, files, tab, projectID, idgen, logger)
}

func (goAnalyzer) LanguageTag() ir.Language { return ir.Go }
func (goAnalyzer) BuildSymbolTable(root string, files []walk.File, idgen *ir.IDGenerator, logger *slog.Logger) (*symtab.Table, error) {
	return golang.Scan(root, files, idgen, logger)
}
func (goAnalyzer) ResolveReferences(root string, files []walk.File, tab *symtab.Table, projectID string, idgen *ir.IDGenerator, logger *slog.Logger) (*ir.IR, error) {
	return golang.Resolve(root, files, tab, projectID, idgen, logger)
}

func (phpAnalyzer) LanguageTag() ir.Language { return ir.PHP }
func (phpAnalyzer) BuildSymbolTable(root string, files []walk.File, idgen *ir.IDGenerator, logger *slog.Logger) (*symtab.Table, error) {
	return php.Scan(root, files, idgen, logger)
}
func (phpAnalyzer) ResolveReferences(root string, files []walk.File, tab *symtab.Table, projectID string, idgen *ir.IDGenerator, logger *slog.Logger) (*ir.IR, error) {
	return php.Resolve(root, files, tab, projectID, idgen, logger)
}

// Registry holds the Analyzer for every supported language, keyed by its
// LanguageTag, mirroring LanguageRegistry's name→analyzer map in the
// grounding file.
type Registry struct {
	byLang map[ir.Language]Analyzer
}

// NewRegistry returns a Registry pre-populated with the Java, Go, and PHP
// analyzers: the three languages this system analyzes.
func NewRegistry() *Registry {
	r := &Registry{byLang: make(map[ir.Language]Analyzer)}
	r.Register(javaAnalyzer{})
	r.Register(goAnalyzer{})
	r.Register(phpAnalyzer{})
	return r
}

// Register adds or replaces the analyzer for its own LanguageTag.
func (r *Registry) Register(a Analyzer) {
	r.byLang[a.LanguageTag()] = a
}

// Get returns the analyzer registered for lang, if any.
func (r *Registry) Get(lang ir.Language) (Analyzer, bool) {
	a, ok := r.byLang[lang]
	return a, ok
}

// Languages returns every language currently registered.
func (r *Registry) Languages() []ir.Language {
	out := make([]ir.Language, 0, len(r.byLang))
	for lang := range r.byLang {
		out = append(out, lang)
	}
	return out
}

// Orchestrator walks a repository once, then for every language present
// among the discovered files runs BuildSymbolTable followed by
// ResolveReferences, and merges the resulting IRs (the top-level
// control flow: "walk once; group files by language; scan each language
// independently; resolve each language independently against its own
// table; merge").
type Orchestrator struct {
	Registry *Registry
	IDHexLen int
}

// NewOrchestrator returns an Orchestrator backed by NewRegistry.
func NewOrchestrator(idHexLen int) *Orchestrator {
	return &Orchestrator{Registry: NewRegistry(), IDHexLen: idHexLen}
}

// Run executes the full pipeline for one project: walk, scan, resolve,
// merge. Only languages with at least one discovered file are analyzed;
// a root with no recognized source files returns an empty, non-nil IR.
func (o *Orchestrator) Run(root, projectID string, walkOpts walk.Options, logger *slog.Logger) (*ir.IR, error) {
	if logger == nil {
		logger = slog.Default()
	}
	files, err := walk.Walk(root, walkOpts)
	if err != nil {
		return nil, fmt.Errorf("adapter: walk %s: %w", root, err)
	}
	byLang := walk.ByLanguage(files)
	idgen := ir.NewIDGenerator(projectID, o.IDHexLen)

	var irs []*ir.IR
	for _, lang := range sortedLanguages(byLang) {
		langFiles, ok := byLang[lang]
		if !ok || len(langFiles) == 0 {
			continue
		}
		analyzer, ok := o.Registry.Get(lang)
		if !ok {
			logger.Warn("adapter.no_analyzer", "language", lang)
			continue
		}
		tab, err := analyzer.BuildSymbolTable(root, langFiles, idgen, logger)
		if err != nil {
			return nil, fmt.Errorf("adapter: %s: build symbol table: %w", lang, err)
		}
		langIR, err := analyzer.ResolveReferences(root, langFiles, tab, projectID, idgen, logger)
		if err != nil {
			return nil, fmt.Errorf("adapter: %s: resolve references: %w", lang, err)
		}
		irs = append(irs, langIR)
	}

	return ir.MergeAll("1", ir.Language(""), irs...), nil
}

// sortedLanguages returns byLang's keys in the fixed Java, Go, PHP order,
// so merge output is deterministic regardless of map iteration order.
func sortedLanguages(byLang map[ir.Language][]walk.File) []ir.Language {
	fixed := []ir.Language{ir.Java, ir.Go, ir.PHP}
	out := make([]ir.Language, 0, len(fixed))
	for _, l := range fixed {
		if _, ok := byLang[l]; ok {
			out = append(out, l)
		}
	}
	return out
}
