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
	"github.com/kodemap/kodemap/pkg/lang/golang"
)

func writeGoFile(t *testing.T, dir, rel, content string) walk.File {
	t.Helper()
	abs := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return walk.File{Path: rel, AbsPath: abs, Language: ir.Go}
}

// TestGinRouteRegistration covers a router.GET("/ping", handlePing) call
// inside a Gin-shaped Go file, resolved to the handler's own callable.
func TestGinRouteRegistration(t *testing.T) {
	dir := t.TempDir()
	src := `package svc

import "github.com/gin-gonic/gin"

func setup(router *gin.Engine) {
	router.GET("/ping", handlePing)
}

func handlePing(c *gin.Context) {
}
`
	f := writeGoFile(t, dir, "svc/routes.go", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := golang.Scan(dir, files, idgen, nil)
	require.NoError(t, err)
	result, err := golang.Resolve(dir, files, tab, "proj", idgen, nil)
	require.NoError(t, err)

	require.NoError(t, (Gin{}).Enrich(result, dir, files, nil))

	var handle *ir.Callable
	for i := range result.Callables {
		if result.Callables[i].Name == "handlePing" {
			handle = &result.Callables[i]
		}
	}
	require.NotNil(t, handle)
	require.Equal(t, []string{"GET /ping"}, handle.Routes)
	require.Contains(t, handle.Stereotypes, "gin:route")
}

// TestGinGroupPrefix covers a router.Group("/api") followed by a route
// registered on the returned group, verifying the prefix is prepended.
func TestGinGroupPrefix(t *testing.T) {
	dir := t.TempDir()
	src := `package svc

import "github.com/gin-gonic/gin"

func setup(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/users", createUser)
}

func createUser(c *gin.Context) {
}
`
	f := writeGoFile(t, dir, "svc/routes.go", src)
	files := []walk.File{f}

	idgen := ir.NewIDGenerator("proj", 16)
	tab, err := golang.Scan(dir, files, idgen, nil)
	require.NoError(t, err)
	result, err := golang.Resolve(dir, files, tab, "proj", idgen, nil)
	require.NoError(t, err)

	require.NoError(t, (Gin{}).Enrich(result, dir, files, nil))

	var create *ir.Callable
	for i := range result.Callables {
		if result.Callables[i].Name == "createUser" {
			create = &result.Callables[i]
		}
	}
	require.NotNil(t, create)
	require.Equal(t, []string{"POST /api/users"}, create.Routes)
}
