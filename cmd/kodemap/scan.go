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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kodemap/kodemap/internal/config"
	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/adapter"
	"github.com/kodemap/kodemap/pkg/collab"
	"github.com/kodemap/kodemap/pkg/enrich"
	"github.com/kodemap/kodemap/pkg/ir"
)

// scanSummary is the JSON-able result of one scan, deliberately not a
// serialization of the IR itself: just the counts a terminal user or a
// calling script needs.
type scanSummary struct {
	ProjectID     string        `json:"project_id"`
	Root          string        `json:"root"`
	Languages     []string      `json:"languages"`
	Modules       int           `json:"modules"`
	Types         int           `json:"types"`
	Callables     int           `json:"callables"`
	Unresolved    int           `json:"unresolved"`
	Relationships int           `json:"relationships"`
	Duration      time.Duration `json:"duration_ns"`
}

func runScan(args []string, configPath string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	projectID := fs.String("project-id", "", "Project id seeding deterministic entity ids (default: derived from the scanned path)")
	idHexLen := fs.Int("id-hex-len", 0, "Length, in hex chars, of generated entity ids (default: 16)")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kodemap scan [path] [options]

Description:
  Walk a repository (default: current directory), resolve its Java/Go/PHP
  code graph, run the Spring/Gin/Fiber/Laravel enrichers, and print a
  summary of the resulting graph.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		logError(globals, "resolve path %s: %v", root, err)
		return 1
	}

	cfg := config.DefaultConfig()
	cfg.Root = absRoot
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			logError(globals, "load config: %v", err)
			return 1
		}
		cfg = loaded
		if !filepath.IsAbs(cfg.Root) {
			cfg.Root = filepath.Join(filepath.Dir(configPath), cfg.Root)
		}
	}
	if *projectID != "" {
		cfg.ProjectID = *projectID
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = filepath.Base(absRoot)
	}
	if *idHexLen > 0 {
		cfg.IDHexLen = *idHexLen
	}

	logLevel := slog.LevelWarn
	if *debug || globals.Verbose >= 2 {
		logLevel = slog.LevelDebug
	} else if globals.Verbose >= 1 {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	bar := newScanProgressBar(globals, cfg.Root)
	bar.Describe("walking repository")

	walkOpts := walk.Options{ExcludeGlobs: cfg.ExcludeGlobs, MaxFileSizeBytes: cfg.MaxFileSizeBytes, Logger: logger}
	orch := adapter.NewOrchestrator(cfg.IDHexLen)

	started := time.Now()
	result, err := orch.Run(cfg.Root, cfg.ProjectID, walkOpts, logger)
	if err != nil {
		_ = bar.Close()
		logError(globals, "scan failed: %v", err)
		return 1
	}
	bar.Describe("enriching")
	_ = bar.Set(1)

	files, err := walk.Walk(cfg.Root, walkOpts)
	if err != nil {
		_ = bar.Close()
		logError(globals, "walk failed: %v", err)
		return 1
	}
	runEnrichers(result, cfg.Root, files, logger)
	_ = bar.Finish()

	writer := collab.NewMemoryGraphWriter()
	if err := writer.WriteIR(context.Background(), cfg.ProjectID, result); err != nil {
		logError(globals, "write graph: %v", err)
		return 1
	}

	summary := scanSummary{
		ProjectID:     cfg.ProjectID,
		Root:          cfg.Root,
		Languages:     languageStrings(result),
		Modules:       len(result.Modules),
		Types:         len(result.Types),
		Callables:     len(result.Callables),
		Unresolved:    len(result.Unresolved),
		Relationships: len(result.Relationships),
		Duration:      time.Since(started),
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			logError(globals, "encode summary: %v", err)
			return 1
		}
		return 0
	}

	printSummary(summary)
	return 0
}

func runEnrichers(result *ir.IR, root string, files []walk.File, logger *slog.Logger) {
	enrichers := []enrich.Enricher{enrich.Spring{}, enrich.Gin{}, enrich.Fiber{}, enrich.Laravel{}}
	for _, e := range enrichers {
		if err := e.Enrich(result, root, files, logger); err != nil {
			logger.Warn("enrich.error", "enricher", e.Name(), "error", err)
		}
	}
}

func languageStrings(result *ir.IR) []string {
	seen := make(map[ir.Language]bool)
	var out []string
	for _, m := range result.Modules {
		if !seen[m.Language] {
			seen[m.Language] = true
			out = append(out, string(m.Language))
		}
	}
	return out
}

func newScanProgressBar(globals GlobalFlags, root string) *progressbar.ProgressBar {
	if globals.Quiet {
		return progressbar.DefaultSilent(2)
	}
	return progressbar.NewOptions(2,
		progressbar.OptionSetDescription(fmt.Sprintf("scanning %s", root)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics.http.error", "error", err)
	}
}

func printSummary(s scanSummary) {
	headingColor.Printf("kodemap scan: %s\n", s.ProjectID)
	fmt.Printf("  root:          %s\n", s.Root)
	fmt.Printf("  languages:     %v\n", s.Languages)
	okColor.Printf("  modules:       %d\n", s.Modules)
	okColor.Printf("  types:         %d\n", s.Types)
	okColor.Printf("  callables:     %d\n", s.Callables)
	fmt.Printf("  relationships: %d\n", s.Relationships)
	if s.Unresolved > 0 {
		warnColor.Printf("  unresolved:    %d\n", s.Unresolved)
	} else {
		okColor.Printf("  unresolved:    0\n")
	}
	fmt.Printf("  duration:      %s\n", s.Duration.Round(time.Millisecond))
}
