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

// Package golang implements the Go language adapter: AST utilities, the
// expression type inferrer, and the two-phase scanner/resolver over a
// tree-sitter Go grammar.
package golang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func text(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return string(src[node.StartByte():node.EndByte()])
}

// baseTypeName extracts the base type name from a Go type node, unwrapping
// pointers, generics, and package qualifiers: *Server -> Server,
// Server[T] -> Server, pkg.Type -> Type.
func baseTypeName(typeNode *sitter.Node, src []byte) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "pointer_type":
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			child := typeNode.Child(i)
			if child.Type() != "*" {
				return baseTypeName(child, src)
			}
		}
	case "generic_type":
		if n := typeNode.ChildByFieldName("type"); n != nil {
			return text(n, src)
		}
	case "qualified_type":
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			child := typeNode.Child(i)
			if child.Type() == "type_identifier" {
				return text(child, src)
			}
		}
	case "type_identifier":
		return text(typeNode, src)
	}
	name := text(typeNode, src)
	name = strings.TrimPrefix(name, "*")
	if idx := strings.Index(name, "["); idx > 0 {
		name = name[:idx]
	}
	return name
}

// rawTypeText returns the type exactly as written (pointer prefix kept),
// used for local-scope bindings where `&x`/`*x` unary semantics need
// to know whether a variable's static type is itself a pointer.
func rawTypeText(typeNode *sitter.Node, src []byte) string {
	return strings.TrimSpace(text(typeNode, src))
}

// canonicalParamType canonicalizes one Go parameter type: a leading "*" is
// stripped, so *User becomes User. A deliberate known limitation: it
// conflates value and pointer receivers at the signature level.
func canonicalParamType(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "*")
}

// receiverType extracts the declared receiver type name from a method's
// receiver parameter_list, e.g. "(s *Server)" -> "Server".
func receiverType(receiverNode *sitter.Node, src []byte) string {
	if receiverNode == nil {
		return ""
	}
	for i := 0; i < int(receiverNode.ChildCount()); i++ {
		child := receiverNode.Child(i)
		if child.Type() == "parameter_declaration" {
			if t := child.ChildByFieldName("type"); t != nil {
				return baseTypeName(t, src)
			}
		}
	}
	return ""
}

// receiverName extracts the receiver variable name, e.g. "(s *Server)" ->
// "s", for seeding the local scope; the resolver binds it to the pointer
// form of the receiver's base type ("*Server") whether the receiver is
// declared by value or by pointer.
func receiverName(receiverNode *sitter.Node, src []byte) string {
	if receiverNode == nil {
		return ""
	}
	for i := 0; i < int(receiverNode.ChildCount()); i++ {
		child := receiverNode.Child(i)
		if child.Type() == "parameter_declaration" {
			if n := child.ChildByFieldName("name"); n != nil {
				return text(n, src)
			}
		}
	}
	return ""
}

// paramSignature builds the canonical "(T1, T2)" signature string for a
// function/method's parameter_list: join parameter types in
// declaration order, comma-space separated, Go pointer types stripped of
// their leading "*".
func paramSignature(paramsNode *sitter.Node, src []byte) string {
	if paramsNode == nil {
		return "()"
	}
	var types []string
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "parameter_declaration" && child.Type() != "variadic_parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		raw := rawTypeText(typeNode, src)
		var canon string
		if child.Type() == "variadic_parameter_declaration" {
			canon = canonicalParamType(raw) + "..."
		} else {
			canon = canonicalParamType(raw)
		}
		// A single parameter_declaration node can declare multiple names
		// sharing one type ("a, b int"): count identifier children.
		names := paramNames(child)
		if names == 0 {
			names = 1
		}
		for j := 0; j < names; j++ {
			types = append(types, canon)
		}
	}
	return "(" + strings.Join(types, ", ") + ")"
}

func paramNames(decl *sitter.Node) int {
	count := 0
	for i := 0; i < int(decl.ChildCount()); i++ {
		if decl.Child(i).Type() == "identifier" {
			count++
		}
	}
	return count
}

// returnTypeOf extracts the declared return type text of a function/method
// declaration node, or "" if none (void-equivalent). Multi-value returns
// are reported whole, as written (e.g. "(int, error)"); returnTypeID in
// the resolver reduces such a list to its first element.
func returnTypeOf(declNode *sitter.Node, src []byte) string {
	if r := declNode.ChildByFieldName("result"); r != nil {
		return rawTypeText(r, src)
	}
	return ""
}

// isExported reports whether a Go identifier is exported (uppercase
// initial), used to determine Callable.Visibility.
func isExported(name string) bool {
	if name == "" {
		return false
	}
	r := name[0]
	return r >= 'A' && r <= 'Z'
}

// packageName extracts the declared package name from a Go source file's
// root node.
func packageName(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		n := root.Child(i)
		if n.Type() != "package_clause" {
			continue
		}
		if id := n.ChildByFieldName("name"); id != nil {
			return text(id, src)
		}
		for j := 0; j < int(n.ChildCount()); j++ {
			if c := n.Child(j); c.Type() == "package_identifier" {
				return text(c, src)
			}
		}
	}
	return ""
}

// goImport is one entry of a parsed import declaration.
type goImport struct {
	Alias string // "" if not aliased, "_" or "." for blank/dot imports
	Path  string // import path as written, unquoted
}

func imports(root *sitter.Node, src []byte) []goImport {
	var out []goImport
	for i := 0; i < int(root.ChildCount()); i++ {
		n := root.Child(i)
		if n.Type() == "import_declaration" {
			out = append(out, importSpecs(n, src)...)
		}
	}
	return out
}

func importSpecs(declNode *sitter.Node, src []byte) []goImport {
	var out []goImport
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "import_spec" {
			var alias string
			if a := n.ChildByFieldName("name"); a != nil {
				alias = text(a, src)
			}
			pathNode := n.ChildByFieldName("path")
			path := strings.Trim(text(pathNode, src), `"`)
			out = append(out, goImport{Alias: alias, Path: path})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(declNode)
	return out
}

// lastPathComponent returns the final "/"-separated component of a Go
// import path, which is the default package name absent an alias.
func lastPathComponent(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
