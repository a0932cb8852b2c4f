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

// Package java implements the Java language adapter: AST utilities, the
// expression type inferrer, and the two-phase scanner/resolver over a
// tree-sitter Java grammar.
package java

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

func findChild(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == nodeType {
			return node.Child(i)
		}
	}
	return nil
}

// qualify joins a package name and a short name Java-style.
func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func packageName(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		n := root.Child(i)
		if n.Type() == "package_declaration" {
			for j := 0; j < int(n.ChildCount()); j++ {
				c := n.Child(j)
				if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
					return text(c, src)
				}
			}
		}
	}
	return ""
}

// javaImport is one parsed import declaration: a fully qualified name, or
// a wildcard prefix with Wildcard set.
type javaImport struct {
	Qualified string
	Static    bool
	Wildcard  bool
}

func imports(root *sitter.Node, src []byte) []javaImport {
	var out []javaImport
	for i := 0; i < int(root.ChildCount()); i++ {
		n := root.Child(i)
		if n.Type() != "import_declaration" {
			continue
		}
		static := false
		var path string
		wildcard := false
		for j := 0; j < int(n.ChildCount()); j++ {
			c := n.Child(j)
			switch c.Type() {
			case "static":
				static = true
			case "scoped_identifier", "identifier":
				path = text(c, src)
			case "asterisk":
				wildcard = true
			}
		}
		if path == "" {
			continue
		}
		out = append(out, javaImport{Qualified: path, Static: static, Wildcard: wildcard})
	}
	return out
}

// typeIdentifier extracts the base name from a Java type node, unwrapping
// generic_type and array_type wrappers.
func typeIdentifier(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "generic_type":
		if n := node.ChildByFieldName("name"); n != nil {
			return typeIdentifier(n, src)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() == "type_identifier" || c.Type() == "scoped_type_identifier" {
				return text(c, src)
			}
		}
	case "array_type":
		if n := node.ChildByFieldName("element"); n != nil {
			return typeIdentifier(n, src)
		}
	case "scoped_type_identifier":
		return lastSegment(text(node, src))
	case "type_identifier", "identifier":
		return text(node, src)
	}
	name := text(node, src)
	if idx := strings.Index(name, "<"); idx > 0 {
		name = name[:idx]
	}
	return lastSegment(name)
}

func lastSegment(s string) string {
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func typeList(node *sitter.Node, src []byte) []string {
	var types []string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == "type_list" {
			for j := 0; j < int(c.ChildCount()); j++ {
				gc := c.Child(j)
				if gc.Type() == "type_identifier" || gc.Type() == "generic_type" || gc.Type() == "scoped_type_identifier" {
					types = append(types, typeIdentifier(gc, src))
				}
			}
		}
	}
	return types
}

// paramSignature builds the canonical "(T1, T2)" signature for a Java
// method/constructor's formal_parameters node.1: each
// parameter contributes its base type name from typeIdentifier (generic
// arguments, array brackets, and package qualifiers are dropped; varargs
// get a trailing "..."). There is no pointer stripping -- that rule is
// Go-specific.
func paramSignature(paramsNode *sitter.Node, src []byte) string {
	if paramsNode == nil {
		return "()"
	}
	var types []string
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "formal_parameter" && child.Type() != "spread_parameter" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		canon := typeIdentifier(typeNode, src)
		if child.Type() == "spread_parameter" {
			canon += "..."
		}
		types = append(types, canon)
	}
	return "(" + strings.Join(types, ", ") + ")"
}

func returnTypeOf(declNode *sitter.Node, src []byte) string {
	if r := declNode.ChildByFieldName("type"); r != nil {
		return typeIdentifier(r, src)
	}
	return ""
}

// modifiers collects a declaration's modifiers (public, private, static,
// abstract, ...) from its leading "modifiers" child, used for both
// Callable.Visibility/IsStatic and Type.Modifiers.
func modifiers(node *sitter.Node, src []byte) []string {
	m := findChild(node, "modifiers")
	if m == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(m.ChildCount()); i++ {
		c := m.Child(i)
		if c.Type() == "marker_annotation" || c.Type() == "annotation" {
			continue
		}
		out = append(out, text(c, src))
	}
	return out
}

// annotations collects a declaration's annotation names (without the "@"
// or constructor-call arguments), used to detect Spring/JPA stereotypes in
// pkg/enrich.
func annotations(node *sitter.Node, src []byte) []string {
	m := findChild(node, "modifiers")
	if m == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(m.ChildCount()); i++ {
		c := m.Child(i)
		switch c.Type() {
		case "marker_annotation":
			if n := c.ChildByFieldName("name"); n != nil {
				out = append(out, text(n, src))
			}
		case "annotation":
			if n := c.ChildByFieldName("name"); n != nil {
				out = append(out, text(n, src))
			}
		}
	}
	return out
}

func hasModifier(mods []string, want string) bool {
	for _, m := range mods {
		if m == want {
			return true
		}
	}
	return false
}

func visibilityOf(mods []string) string {
	switch {
	case hasModifier(mods, "public"):
		return "public"
	case hasModifier(mods, "private"):
		return "private"
	case hasModifier(mods, "protected"):
		return "protected"
	default:
		return "package"
	}
}
