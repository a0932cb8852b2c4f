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
	"context"
	"log/slog"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	treesittergo "github.com/smacker/go-tree-sitter/golang"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
	"github.com/kodemap/kodemap/pkg/lang/golang"
)

// routeFramework parameterizes the shared Gin/Fiber walker: an
// import-path prefix that detects the framework's usage in a file, the
// verb methods where the first positional argument is the path, the
// verb-path methods whose first argument is the verb string itself, and
// the group method that introduces a path prefix.
type routeFramework struct {
	stereotype   string
	importPrefix string            // a file registers routes only if it imports this
	verbMethods  map[string]string // method name -> HTTP verb
	handleMethod string            // e.g. "Handle"/"Add": first arg is the verb
	groupMethod  string            // e.g. "Group"
}

var ginFramework = routeFramework{
	stereotype:   "gin:route",
	importPrefix: "github.com/gin-gonic/gin",
	verbMethods: map[string]string{
		"GET": "GET", "POST": "POST", "PUT": "PUT", "DELETE": "DELETE",
		"PATCH": "PATCH", "HEAD": "HEAD", "OPTIONS": "OPTIONS", "Any": "ANY",
	},
	handleMethod: "Handle",
	groupMethod:  "Group",
}

// Gin is the framework enricher for github.com/gin-gonic/gin-shaped route
// registration, grounded on the Go resolver's own selector_expression call
// walking in pkg/lang/golang/resolver.go, repurposed to match route-builder
// receiver calls instead of arbitrary function calls.
type Gin struct{}

func (Gin) Name() string                      { return "gin" }
func (Gin) SupportedLanguages() []ir.Language { return []ir.Language{ir.Go} }
func (Gin) Enrich(result *ir.IR, root string, files []walk.File, logger *slog.Logger) error {
	return enrichGoRoutes(result, root, files, ginFramework, logger)
}

func enrichGoRoutes(result *ir.IR, root string, files []walk.File, fw routeFramework, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	callableByQN := make(map[string]int, len(result.Callables))
	for i, c := range result.Callables {
		if c.Language == ir.Go {
			callableByQN[c.QualifiedName] = i
		}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(treesittergo.GetLanguage())

	for _, f := range files {
		if f.Language != ir.Go || strings.HasSuffix(f.Path, "_test.go") {
			continue
		}
		src, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("enrich.go_routes.read_error", "path", f.Path, "error", err)
			continue
		}
		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil || tree == nil {
			logger.Warn("enrich.go_routes.parse_error", "path", f.Path, "error", err)
			continue
		}
		if !importsPrefix(tree.RootNode(), src, fw.importPrefix) {
			continue
		}
		pkg := golang.PackageQualifiedName(root, f.Path, goPackageName(tree.RootNode(), src))
		groupPrefixes := make(map[string]string)
		walkGoRoutes(result, callableByQN, tree.RootNode(), src, fw, pkg, groupPrefixes)
	}
	return nil
}

// importsPrefix reports whether a file imports any path under the
// framework's import prefix; a file that never imports the framework
// cannot be registering its routes.
func importsPrefix(fileRoot *sitter.Node, src []byte, prefix string) bool {
	var found bool
	var scan func(n *sitter.Node)
	scan = func(n *sitter.Node) {
		if found {
			return
		}
		if n.Type() == "import_spec" {
			if p := n.ChildByFieldName("path"); p != nil {
				if strings.HasPrefix(strings.Trim(text(p, src), `"`), prefix) {
					found = true
				}
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			scan(n.Child(i))
		}
	}
	for i := 0; i < int(fileRoot.ChildCount()); i++ {
		if fileRoot.Child(i).Type() == "import_declaration" {
			scan(fileRoot.Child(i))
		}
	}
	return found
}

func walkGoRoutes(result *ir.IR, callableByQN map[string]int, n *sitter.Node, src []byte, fw routeFramework, pkg string, groupPrefixes map[string]string) {
	if n.Type() == "call_expression" {
		recordGoRoute(result, callableByQN, n, src, fw, pkg, groupPrefixes)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walkGoRoutes(result, callableByQN, n.Child(i), src, fw, pkg, groupPrefixes)
	}
}

func recordGoRoute(result *ir.IR, callableByQN map[string]int, n *sitter.Node, src []byte, fw routeFramework, pkg string, groupPrefixes map[string]string) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || fn.Type() != "selector_expression" || args == nil {
		return
	}
	operand := fn.ChildByFieldName("operand")
	field := fn.ChildByFieldName("field")
	if operand == nil || field == nil {
		return
	}
	method := text(field, src)
	receiver := text(operand, src)
	argNodes := callArgs(args)

	if method == fw.groupMethod {
		if len(argNodes) < 1 {
			return
		}
		prefix := stringLiteralValue(argNodes[0], src)
		// The call sits inside an expression_list on the declaration's
		// right-hand side; climb until the declaration itself.
		assign := n.Parent()
		for assign != nil && assign.Type() == "expression_list" {
			assign = assign.Parent()
		}
		if assign != nil {
			if target := assignmentTarget(assign, src); target != "" {
				groupPrefixes[target] = joinPath(groupPrefixes[receiver], prefix)
			}
		}
		return
	}

	base := groupPrefixes[receiver]

	if verb, ok := fw.verbMethods[method]; ok && len(argNodes) >= 2 {
		path := stringLiteralValue(argNodes[0], src)
		handler := argNodes[1]
		recordGoRouteHandler(result, callableByQN, verb, joinPath(base, path), handler, src, pkg, fw.stereotype)
		return
	}

	if method == fw.handleMethod && len(argNodes) >= 3 {
		verb := strings.ToUpper(stringLiteralValue(argNodes[0], src))
		path := stringLiteralValue(argNodes[1], src)
		handler := argNodes[2]
		recordGoRouteHandler(result, callableByQN, verb, joinPath(base, path), handler, src, pkg, fw.stereotype)
	}
}

// recordGoRouteHandler resolves a route's handler argument (a same-package
// function identifier, or `pkg.Func` referring to an imported package —
// which this enricher, like the core resolver, cannot follow without that
// package's own symbol table and so skips) and attaches the route string
// and stereotype.
func recordGoRouteHandler(result *ir.IR, callableByQN map[string]int, verb, path string, handler *sitter.Node, src []byte, pkg, stereotype string) {
	var qn string
	switch handler.Type() {
	case "identifier":
		qn = pkg + "." + text(handler, src)
	case "selector_expression":
		return
	default:
		return
	}
	idx, ok := callableByQN[qn]
	if !ok {
		return
	}
	addRoute(&result.Callables[idx].Routes, verb+" "+normalizeRoutePath(path))
	addStereotype(&result.Callables[idx].Stereotypes, stereotype)
}

func assignmentTarget(n *sitter.Node, src []byte) string {
	if n.Type() != "short_var_declaration" && n.Type() != "assignment_statement" {
		return ""
	}
	left := n.ChildByFieldName("left")
	if left == nil {
		return ""
	}
	return text(left, src)
}

func callArgs(argsNode *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(argsNode.ChildCount()); i++ {
		c := argsNode.Child(i)
		switch c.Type() {
		case "(", ")", ",":
		default:
			out = append(out, c)
		}
	}
	return out
}

func stringLiteralValue(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	s := text(n, src)
	return strings.Trim(s, "`\"")
}

func goPackageName(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		c := root.Child(i)
		if c.Type() == "package_clause" {
			if id := findChild(c, "package_identifier"); id != nil {
				return text(id, src)
			}
		}
	}
	return ""
}
