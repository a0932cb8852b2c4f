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
	"github.com/kodemap/kodemap/pkg/lang/php"
)

func writeLaravelPHPFile(t *testing.T, dir, rel, content string) walk.File {
	t.Helper()
	abs := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return walk.File{Path: rel, AbsPath: abs, Language: ir.PHP}
}

// TestLaravelApiResource covers resource-route expansion: Route::apiResource
// expands into the six conventional CRUD routes, each attached to the
// matching controller method with a laravel:route stereotype.
func TestLaravelApiResource(t *testing.T) {
	dir := t.TempDir()
	controllerSrc := `<?php
namespace App\Http\Controllers;

class UserController {
    public function index() {}
    public function store() {}
    public function show() {}
    public function update() {}
    public function destroy() {}
}
`
	routesSrc := `<?php
use App\Http\Controllers\UserController;

Route::apiResource('users', UserController::class);
`
	controllerFile := writeLaravelPHPFile(t, dir, "app/Http/Controllers/UserController.php", controllerSrc)
	writeLaravelPHPFile(t, dir, "routes/api.php", routesSrc)
	files := []walk.File{controllerFile}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := php.Scan(dir, files, idgen, nil)
	require.NoError(t, err)
	result, err := php.Resolve(dir, files, tab, "proj", idgen, nil)
	require.NoError(t, err)

	require.NoError(t, (Laravel{}).Enrich(result, dir, files, nil))

	var show, update *ir.Callable
	for i := range result.Callables {
		switch result.Callables[i].Name {
		case "show":
			show = &result.Callables[i]
		case "update":
			update = &result.Callables[i]
		}
	}
	require.NotNil(t, show)
	require.Equal(t, []string{"GET /users/{id}"}, show.Routes)
	require.Contains(t, show.Stereotypes, "laravel:route")

	require.NotNil(t, update)
	require.ElementsMatch(t, []string{"PUT /users/{id}", "PATCH /users/{id}"}, update.Routes)
}

// TestLaravelExplicitRoute covers a single Route::get(...) call resolving
// to its controller method via the "Controller@method" action string.
func TestLaravelExplicitRoute(t *testing.T) {
	dir := t.TempDir()
	controllerSrc := `<?php
namespace App\Http\Controllers;

class HomeController {
    public function index() {}
}
`
	routesSrc := `<?php
Route::get('/', 'App\Http\Controllers\HomeController@index');
`
	controllerFile := writeLaravelPHPFile(t, dir, "app/Http/Controllers/HomeController.php", controllerSrc)
	writeLaravelPHPFile(t, dir, "routes/web.php", routesSrc)
	files := []walk.File{controllerFile}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := php.Scan(dir, files, idgen, nil)
	require.NoError(t, err)
	result, err := php.Resolve(dir, files, tab, "proj", idgen, nil)
	require.NoError(t, err)

	require.NoError(t, (Laravel{}).Enrich(result, dir, files, nil))

	var index *ir.Callable
	for i := range result.Callables {
		if result.Callables[i].Name == "index" {
			index = &result.Callables[i]
		}
	}
	require.NotNil(t, index)
	require.Equal(t, []string{"GET /"}, index.Routes)
}

// TestLaravelNoRoutesDir covers the no-op case: a repository with no
// routes/ directory must not error.
func TestLaravelNoRoutesDir(t *testing.T) {
	dir := t.TempDir()
	result := ir.New("1", ir.PHP)
	require.NoError(t, (Laravel{}).Enrich(result, dir, nil, nil))
}
