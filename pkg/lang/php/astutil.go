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

// Package php implements the PHP language adapter: AST utilities and the
// two-phase scanner/resolver over a tree-sitter PHP grammar, sharing one
// parser family with pkg/lang/java and pkg/lang/golang.
package php

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

// qualified normalizes PHP's backslash namespace separator to the dotted
// form every IR qualified name uses.
func qualified(name string) string {
	name = strings.TrimPrefix(name, "\\")
	return strings.ReplaceAll(name, "\\", ".")
}

func qualify(ns, name string) string {
	if ns == "" {
		return qualified(name)
	}
	return qualified(ns) + "." + qualified(name)
}

// namespaceName extracts the declared namespace of a PHP file, "" if none
// (global namespace).
func namespaceName(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		n := root.Child(i)
		if n.Type() == "namespace_definition" {
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				return qualified(text(nameNode, src))
			}
		}
	}
	return ""
}

// phpUse is one parsed `use` import: its fully-qualified target and the
// local alias it is referenced by (the last path segment, absent an
// explicit `as`).
type phpUse struct {
	Qualified string
	Alias     string
}

func uses(root *sitter.Node, src []byte) []phpUse {
	var out []phpUse
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "namespace_use_clause" {
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			qn := qualified(text(nameNode, src))
			alias := lastSegment(qn)
			if aliasNode := n.ChildByFieldName("alias"); aliasNode != nil {
				alias = text(aliasNode, src)
			}
			out = append(out, phpUse{Qualified: qn, Alias: alias})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		n := root.Child(i)
		if n.Type() == "namespace_use_declaration" {
			walk(n)
		}
	}
	return out
}

func lastSegment(s string) string {
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// typeIdentifier extracts a base class/interface name from a PHP type
// node, unwrapping nullable ("?Foo") and namespace-qualified names.
func typeIdentifier(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "optional_type":
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() != "?" {
				return typeIdentifier(c, src)
			}
		}
	case "named_type":
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() == "name" || c.Type() == "qualified_name" {
				return lastSegment(qualified(text(c, src)))
			}
		}
	case "name", "qualified_name":
		return lastSegment(qualified(text(node, src)))
	}
	return lastSegment(qualified(text(node, src)))
}

// typeNameList walks a base_clause/class_interface_clause, returning every
// referenced type's short name in source order.
func typeNameList(node *sitter.Node, src []byte) []string {
	var out []string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == "name" || c.Type() == "qualified_name" {
			out = append(out, lastSegment(qualified(text(c, src))))
		}
	}
	return out
}

// paramSignature builds the canonical "(T1, T2)" signature for a PHP
// function/method's formal_parameters node. Untyped
// parameters contribute "mixed", matching PHP's own implicit parameter
// type.
func paramSignature(paramsNode *sitter.Node, src []byte) string {
	if paramsNode == nil {
		return "()"
	}
	var types []string
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "simple_parameter" && child.Type() != "variadic_parameter" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		canon := "mixed"
		if typeNode != nil {
			canon = typeIdentifier(typeNode, src)
		}
		if child.Type() == "variadic_parameter" {
			canon += "..."
		}
		types = append(types, canon)
	}
	return "(" + strings.Join(types, ", ") + ")"
}

func returnTypeOf(declNode *sitter.Node, src []byte) string {
	if r := declNode.ChildByFieldName("return_type"); r != nil {
		return typeIdentifier(r, src)
	}
	return ""
}

func modifiers(node *sitter.Node, src []byte) []string {
	var out []string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "visibility_modifier", "static_modifier", "abstract_modifier", "final_modifier":
			out = append(out, text(c, src))
		}
	}
	return out
}

func hasModifier(mods []string, want string) bool {
	for _, m := range mods {
		if strings.Contains(m, want) {
			return true
		}
	}
	return false
}

func visibilityOf(mods []string) string {
	switch {
	case hasModifier(mods, "private"):
		return "private"
	case hasModifier(mods, "protected"):
		return "protected"
	default:
		return "public"
	}
}

// paramTypeHints returns (paramName -> typeShortName) for every typed
// parameter, used to seed the local scope.
func paramTypeHints(paramsNode *sitter.Node, src []byte) map[string]string {
	hints := make(map[string]string)
	if paramsNode == nil {
		return hints
	}
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "simple_parameter" && child.Type() != "variadic_parameter" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		nameNode := child.ChildByFieldName("name")
		if typeNode == nil || nameNode == nil {
			continue
		}
		hints[text(nameNode, src)] = typeIdentifier(typeNode, src)
	}
	return hints
}
