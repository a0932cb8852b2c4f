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

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
)

var fiberFramework = routeFramework{
	stereotype:   "fiber:route",
	importPrefix: "github.com/gofiber/fiber",
	verbMethods: map[string]string{
		"Get": "GET", "Post": "POST", "Put": "PUT", "Delete": "DELETE",
		"Patch": "PATCH", "Head": "HEAD", "Options": "OPTIONS", "All": "ANY",
	},
	handleMethod: "Add",
	groupMethod:  "Group",
}

// Fiber is the framework enricher for github.com/gofiber/fiber-shaped
// route registration, same walking strategy as Gin (shared routeFramework
// in gin.go) with Fiber's verb-name capitalization.
type Fiber struct{}

func (Fiber) Name() string                     { return "fiber" }
func (Fiber) SupportedLanguages() []ir.Language { return []ir.Language{ir.Go} }
func (Fiber) Enrich(result *ir.IR, root string, files []walk.File, logger *slog.Logger) error {
	return enrichGoRoutes(result, root, files, fiberFramework, logger)
}
