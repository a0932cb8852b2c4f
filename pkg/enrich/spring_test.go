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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
	"github.com/kodemap/kodemap/pkg/lang/java"
)

func writeJavaFile(t *testing.T, dir, rel, content string) walk.File {
	t.Helper()
	abs := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return walk.File{Path: rel, AbsPath: abs, Language: ir.Java}
}

// TestSpringRoutes covers Spring route extraction: a @RestController class with a
// class-level @RequestMapping prefix and a @GetMapping method must yield
// the concatenated route string and both stereotypes.
func TestSpringRoutes(t *testing.T) {
	dir := t.TempDir()
	src := `package app;

@RestController
@RequestMapping("/api")
class UsersCtrl {
    @GetMapping("/{id}")
    User find(long id) { return null; }
}
`
	f := writeJavaFile(t, dir, "app/UsersCtrl.java", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := java.Scan(dir, files, idgen, nil)
	require.NoError(t, err)
	result, err := java.Resolve(dir, files, tab, "proj", idgen, nil)
	require.NoError(t, err)

	require.NoError(t, (Spring{}).Enrich(result, dir, files, nil))

	var ctrl *ir.Type
	for i := range result.Types {
		if result.Types[i].Name == "UsersCtrl" {
			ctrl = &result.Types[i]
		}
	}
	require.NotNil(t, ctrl)
	require.Contains(t, ctrl.Stereotypes, "spring:controller")

	var find *ir.Callable
	for i := range result.Callables {
		if result.Callables[i].Name == "find" {
			find = &result.Callables[i]
		}
	}
	require.NotNil(t, find)
	require.Equal(t, []string{"GET /api/{id}"}, find.Routes)
	require.Contains(t, find.Stereotypes, "spring:route")
}

// TestSpringEnrichIdempotent covers enricher idempotence: enriching twice
// must not duplicate routes, stereotypes, or relationships.
func TestSpringEnrichIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := `package app;

@RestController
class Ctrl {
    @GetMapping("/ping")
    void ping() { }
}
`
	f := writeJavaFile(t, dir, "app/Ctrl.java", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := java.Scan(dir, files, idgen, nil)
	require.NoError(t, err)
	result, err := java.Resolve(dir, files, tab, "proj", idgen, nil)
	require.NoError(t, err)

	s := Spring{}
	require.NoError(t, s.Enrich(result, dir, files, nil))
	require.NoError(t, s.Enrich(result, dir, files, nil))

	var ping *ir.Callable
	for i := range result.Callables {
		if result.Callables[i].Name == "ping" {
			ping = &result.Callables[i]
		}
	}
	require.NotNil(t, ping)
	require.Equal(t, []string{"GET /ping"}, ping.Routes)
	require.Equal(t, []string{"spring:route"}, ping.Stereotypes)
}

// TestSpringConstructorInjectionRequiresSoleConstructor covers the implicit-injection gate:
// implicit constructor injection only applies when the class declares
// exactly one constructor. A second, non-annotated, parameterized
// constructor must suppress the implicit INJECTS edge for both.
func TestSpringConstructorInjectionRequiresSoleConstructor(t *testing.T) {
	dir := t.TempDir()
	src := `package app;

@Service
class Widget {
    Widget(Helper h) { }
    Widget(Helper h, String name) { }
}

@Component
class Helper {
}
`
	f := writeJavaFile(t, dir, "app/Widget.java", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := java.Scan(dir, files, idgen, nil)
	require.NoError(t, err)
	result, err := java.Resolve(dir, files, tab, "proj", idgen, nil)
	require.NoError(t, err)

	require.NoError(t, (Spring{}).Enrich(result, dir, files, nil))

	for _, rel := range result.Relationships {
		require.NotEqual(t, ir.RelInjects, rel.Type, "no implicit INJECTS edge expected with two constructors")
	}
}

// TestSpringBeanMethodInjection covers @Bean factory-method injection: a @Bean
// factory method's parameters are injected dependencies.
func TestSpringBeanMethodInjection(t *testing.T) {
	dir := t.TempDir()
	src := `package app;

@Configuration
class AppConfig {
    @Bean
    Widget widget(Helper h) {
        return null;
    }
}

@Component
class Helper {
}

class Widget {
}
`
	f := writeJavaFile(t, dir, "app/AppConfig.java", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := java.Scan(dir, files, idgen, nil)
	require.NoError(t, err)
	result, err := java.Resolve(dir, files, tab, "proj", idgen, nil)
	require.NoError(t, err)

	require.NoError(t, (Spring{}).Enrich(result, dir, files, nil))

	var appConfig, helper *ir.Type
	for i := range result.Types {
		switch result.Types[i].Name {
		case "AppConfig":
			appConfig = &result.Types[i]
		case "Helper":
			helper = &result.Types[i]
		}
	}
	require.NotNil(t, appConfig)
	require.NotNil(t, helper)

	found := false
	for _, rel := range result.Relationships {
		if rel.Type == ir.RelInjects && rel.SourceID == appConfig.ID && rel.TargetID == helper.ID {
			found = true
		}
	}
	require.True(t, found, "expected @Bean method parameter to produce an INJECTS edge, relationships=%+v", result.Relationships)
}
