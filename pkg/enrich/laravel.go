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

package enrich

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
)

// routeCallRE matches `Route::verb('/path', action)`, and resourceRE
// matches `Route::resource('base', Controller::class)` /
// `Route::apiResource(...)`.
var routeCallRE = regexp.MustCompile(
	`(?i)Route::(get|post|put|patch|delete|options|any)\s*\(\s*['"]([^'"]+)['"]\s*,\s*([^)]+)\)`,
)
var arrayActionRE = regexp.MustCompile(`([A-Za-z0-9_\\]+)::class\s*,\s*['"]([A-Za-z0-9_]+)['"]\s*\]`)
var stringActionRE = regexp.MustCompile(`['"]([A-Za-z0-9_\\]+)@([A-Za-z0-9_]+)['"]`)
var resourceRE = regexp.MustCompile(
	`(?i)Route::(resource|apiResource)\s*\(\s*['"]([^'"]+)['"]\s*,\s*([A-Za-z0-9_\\]+)::class`,
)

// Laravel is the PHP framework enricher: scans routes/*.php with regular
// expressions, tolerating the fact that the file itself was never parsed
// into this IR's symbol table, and resolves each route's controller action
// to a callable by fully-qualified name first, falling back to a unique
// short name.
type Laravel struct{}

func (Laravel) Name() string                     { return "laravel" }
func (Laravel) SupportedLanguages() []ir.Language { return []ir.Language{ir.PHP} }

func (Laravel) Enrich(result *ir.IR, root string, files []walk.File, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	routesDir := filepath.Join(root, "routes")
	if _, err := os.Stat(routesDir); err != nil {
		return nil
	}

	typeIdxByQN := make(map[string]int, len(result.Types))
	typeIdxByShortName := make(map[string][]int)
	for i, t := range result.Types {
		if t.Language != ir.PHP {
			continue
		}
		typeIdxByQN[t.QualifiedName] = i
		typeIdxByShortName[t.Name] = append(typeIdxByShortName[t.Name], i)
	}

	var routeFiles []string
	_ = filepath.Walk(routesDir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, ".php") {
			routeFiles = append(routeFiles, p)
		}
		return nil
	})
	sort.Strings(routeFiles)

	for _, p := range routeFiles {
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("enrich.laravel.read_error", "path", p, "error", err)
			continue
		}
		src := string(data)
		applyRouteCalls(result, typeIdxByQN, typeIdxByShortName, src)
		applyResourceRoutes(result, typeIdxByQN, typeIdxByShortName, src)
	}
	return nil
}

func applyRouteCalls(result *ir.IR, byQN map[string]int, byShort map[string][]int, src string) {
	for _, m := range routeCallRE.FindAllStringSubmatch(src, -1) {
		method := strings.ToUpper(m[1])
		path := m[2]
		action := m[3]

		class, methodName, ok := parseAction(action)
		if !ok {
			continue
		}
		idx, ok := findControllerCallable(result, byQN, byShort, class, methodName)
		if !ok {
			continue
		}
		addRoute(&result.Callables[idx].Routes, method+" "+path)
		addStereotype(&result.Callables[idx].Stereotypes, "laravel:route")
	}
}

func applyResourceRoutes(result *ir.IR, byQN map[string]int, byShort map[string][]int, src string) {
	for _, m := range resourceRE.FindAllStringSubmatch(src, -1) {
		kind := strings.ToLower(m[1])
		base := strings.Trim(m[2], "/")
		class := m[3]

		for _, rr := range resourceRouteMatrix(kind, base) {
			idx, ok := findControllerCallable(result, byQN, byShort, class, rr.action)
			if !ok {
				continue
			}
			addRoute(&result.Callables[idx].Routes, rr.method+" "+rr.path)
			addStereotype(&result.Callables[idx].Stereotypes, "laravel:route")
		}
	}
}

type resourceRoute struct {
	method, path, action string
}

// resourceRouteMatrix expands `Route::resource`/`Route::apiResource` into
// the conventional route strings: six for apiResource (five actions) and
// eight for resource (seven actions). Both kinds map
// both PUT and PATCH to "update" with the same path: both are emitted
// intentionally, preserving the source duplication rather than
// deduplicating it.
func resourceRouteMatrix(kind, base string) []resourceRoute {
	prefix := "/" + base
	if kind == "apiresource" {
		return []resourceRoute{
			{"GET", prefix, "index"},
			{"POST", prefix, "store"},
			{"GET", prefix + "/{id}", "show"},
			{"PUT", prefix + "/{id}", "update"},
			{"PATCH", prefix + "/{id}", "update"},
			{"DELETE", prefix + "/{id}", "destroy"},
		}
	}
	return []resourceRoute{
		{"GET", prefix, "index"},
		{"GET", prefix + "/create", "create"},
		{"POST", prefix, "store"},
		{"GET", prefix + "/{id}", "show"},
		{"GET", prefix + "/{id}/edit", "edit"},
		{"PUT", prefix + "/{id}", "update"},
		{"PATCH", prefix + "/{id}", "update"},
		{"DELETE", prefix + "/{id}", "destroy"},
	}
}

func parseAction(action string) (class, method string, ok bool) {
	if m := arrayActionRE.FindStringSubmatch(action); m != nil {
		return m[1], m[2], true
	}
	if m := stringActionRE.FindStringSubmatch(action); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// findControllerCallable resolves a controller action to an IR callable:
// match the fully-qualified name first (`\` normalized to `.`), then fall
// back to a unique short-name match, then find the named method among the
// resolved type's callables.
func findControllerCallable(result *ir.IR, byQN map[string]int, byShort map[string][]int, controllerClass, methodName string) (int, bool) {
	normalized := strings.ReplaceAll(strings.TrimPrefix(controllerClass, `\`), `\`, ".")
	typeIdx, ok := byQN[normalized]
	if !ok {
		short := normalized
		if i := strings.LastIndex(normalized, "."); i >= 0 {
			short = normalized[i+1:]
		}
		candidates := byShort[short]
		if len(candidates) != 1 {
			return 0, false
		}
		typeIdx = candidates[0]
	}

	for _, callableID := range result.Types[typeIdx].CallableIDs {
		for i, c := range result.Callables {
			if c.ID == callableID && c.Name == methodName {
				return i, true
			}
		}
	}
	return 0, false
}
