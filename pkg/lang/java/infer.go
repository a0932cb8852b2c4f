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

package java

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kodemap/kodemap/pkg/symtab"
)

// inferCtx carries what the Java type inferrer needs at an expression node:
// the symbol table, the current local scope, the enclosing class's
// qualified name (used for bare method-invocation lookups; `this` itself
// infers as a miss), and
// the file context for qualifying short type names against imports.
type inferCtx struct {
	tab     *symtab.Table
	scope   *symtab.Scope
	ownerQN string
	fc      symtab.FileContext
}

func newInferCtx(tab *symtab.Table, scope *symtab.Scope, ownerQN string, fc symtab.FileContext) *inferCtx {
	return &inferCtx{tab: tab, scope: scope, ownerQN: ownerQN, fc: fc}
}

func (ic *inferCtx) qualify(shortName string) string {
	if shortName == "" {
		return ""
	}
	if qn, ok := ic.tab.ResolveType(shortName, ic.fc); ok {
		return qn
	}
	return shortName
}

// heuristicStringMethods, heuristicBoolMethods, heuristicIntMethods, and the
// rest below are the last-resort fallback tables, consulted
// only when the symbol table has no declared return type for the method.
var heuristicStringMethods = set(
	"toString", "substring", "toLowerCase", "toUpperCase", "trim", "strip",
	"concat", "replace", "replaceAll", "replaceFirst", "valueOf", "format", "join",
)

var heuristicBoolMethods = set(
	"equals", "equalsIgnoreCase", "isEmpty", "isBlank", "contains", "startsWith",
	"endsWith", "matches", "hasNext", "hasNextLine", "isPresent", "containsKey",
	"containsValue", "exists", "canRead", "canWrite", "isDirectory", "isFile", "isAbsolute",
)

var heuristicIntMethods = set(
	"length", "size", "indexOf", "lastIndexOf", "compareTo", "compareToIgnoreCase",
	"hashCode", "intValue", "read", "available",
)

var heuristicLongMethods = set("longValue", "currentTimeMillis", "nanoTime")
var heuristicDoubleMethods = set("doubleValue", "parseDouble")

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[s] = struct{}{}
	}
	return m
}

func heuristicMethodReturn(name string) (string, bool) {
	switch {
	case name == "charAt":
		return "char", true
	case name == "getBytes":
		return "byte[]", true
	case name == "toCharArray":
		return "char[]", true
	case name == "split":
		return "String[]", true
	case in(heuristicStringMethods, name):
		return "String", true
	case in(heuristicBoolMethods, name):
		return "boolean", true
	case in(heuristicLongMethods, name):
		return "long", true
	case in(heuristicDoubleMethods, name):
		return "double", true
	case in(heuristicIntMethods, name):
		return "int", true
	}
	return "", false
}

func in(m map[string]struct{}, s string) bool {
	_, ok := m[s]
	return ok
}

var heuristicFieldReturn = map[string]string{
	"length": "int",
	"class":  "Class",
	"out":    "PrintStream",
	"err":    "PrintStream",
	"in":     "InputStream",
}

// Infer computes the type of an expression node. Returns
// ("", false) on a miss.
func Infer(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Type() {
	case "string_literal":
		return "String", true
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if strings.HasSuffix(text(node, src), "L") || strings.HasSuffix(text(node, src), "l") {
			return "long", true
		}
		return "int", true
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		lit := text(node, src)
		if strings.HasSuffix(lit, "f") || strings.HasSuffix(lit, "F") {
			return "float", true
		}
		return "double", true
	case "true", "false":
		return "boolean", true
	case "character_literal":
		return "char", true
	case "null_literal":
		return "null", true

	case "identifier":
		return ic.scope.Lookup(text(node, src))

	case "object_creation_expression":
		if t := node.ChildByFieldName("type"); t != nil {
			return typeIdentifier(t, src), true
		}
		return "", false

	case "cast_expression":
		if t := node.ChildByFieldName("type"); t != nil {
			return typeIdentifier(t, src), true
		}
		return "", false

	case "method_invocation":
		return inferMethodInvocation(node, src, ic)

	case "field_access":
		return inferFieldAccess(node, src, ic)

	case "array_access":
		arr := node.ChildByFieldName("array")
		if arr == nil {
			return "", false
		}
		arrType, ok := Infer(arr, src, ic)
		if !ok {
			return "", false
		}
		return strings.TrimSuffix(arrType, "[]"), true

	case "binary_expression":
		return inferBinary(node, src, ic)

	case "ternary_expression":
		return inferTernary(node, src, ic)

	case "parenthesized_expression":
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() != "(" && c.Type() != ")" {
				return Infer(c, src, ic)
			}
		}
		return "", false

	case "unary_expression", "update_expression":
		if operand := node.ChildByFieldName("operand"); operand != nil {
			return Infer(operand, src, ic)
		}
		return "", false

	case "this":
		// Enclosing class unavailable in current scope by design: a
		// miss, not ic.ownerQN.
		return "", false

	case "array_creation_expression":
		if t := node.ChildByFieldName("type"); t != nil {
			dims := 0
			for i := 0; i < int(node.ChildCount()); i++ {
				if c := node.Child(i); c.Type() == "dimensions" || c.Type() == "dimensions_expr" {
					dims++
				}
			}
			if dims < 1 {
				dims = 1
			}
			return typeIdentifier(t, src) + strings.Repeat("[]", dims), true
		}
		return "", false
	}

	return "", false
}

func inferMethodInvocation(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	methodName := text(nameNode, src)

	objNode := node.ChildByFieldName("object")
	var receiverType string
	var haveReceiver bool
	if objNode != nil {
		receiverType, haveReceiver = Infer(objNode, src, ic)
	}

	if haveReceiver {
		qn, err := ic.tab.ResolveCallableWithReceiver(methodName, ic.qualify(receiverType), "")
		if err == nil {
			for _, sig := range ic.tab.SignaturesOf(qn) {
				if rt, ok := ic.tab.ReturnTypeOf(qn, sig); ok {
					return rt, true
				}
			}
		}
	} else {
		// Bare call: try the enclosing class's own declarations first.
		qn := ic.ownerQN + "." + methodName
		for _, sig := range ic.tab.SignaturesOf(qn) {
			if rt, ok := ic.tab.ReturnTypeOf(qn, sig); ok {
				return rt, true
			}
		}
	}

	return heuristicMethodReturn(methodName)
}

func inferFieldAccess(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	objNode := node.ChildByFieldName("object")
	fieldNode := node.ChildByFieldName("field")
	if fieldNode == nil {
		return "", false
	}
	fieldName := text(fieldNode, src)

	if objNode != nil {
		if ownerType, ok := Infer(objNode, src, ic); ok {
			if ft, ok := ic.tab.FieldType(ic.qualify(ownerType), fieldName); ok {
				return ft, true
			}
		}
	}
	if ft, ok := heuristicFieldReturn[fieldName]; ok {
		return ft, true
	}
	return "", false
}

// javaPromote implements numeric promotion.3: double > float >
// long > int, with byte/short/char widening to int.
func javaPromote(a, b string) string {
	rank := func(t string) int {
		switch t {
		case "double":
			return 4
		case "float":
			return 3
		case "long":
			return 2
		case "int", "byte", "short", "char":
			return 1
		default:
			return 0
		}
	}
	ra, rb := rank(a), rank(b)
	switch {
	case ra >= 4 || rb >= 4:
		return "double"
	case ra == 3 || rb == 3:
		return "float"
	case ra == 2 || rb == 2:
		return "long"
	default:
		return "int"
	}
}

var comparisonOps = set("==", "!=", "<", ">", "<=", ">=", "&&", "||")

func inferBinary(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	left := node.ChildByFieldName("left")
	opNode := node.ChildByFieldName("operator")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil || opNode == nil {
		return "", false
	}
	op := text(opNode, src)

	leftType, leftOK := Infer(left, src, ic)
	rightType, rightOK := Infer(right, src, ic)

	if op == "+" && ((leftOK && leftType == "String") || (rightOK && rightType == "String")) {
		return "String", true
	}
	if in(comparisonOps, op) {
		return "boolean", true
	}
	if !leftOK || !rightOK {
		return "", false
	}
	return javaPromote(leftType, rightType), true
}

func inferTernary(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	cons := node.ChildByFieldName("consequence")
	alt := node.ChildByFieldName("alternative")
	consType, consOK := Infer(cons, src, ic)
	altType, altOK := Infer(alt, src, ic)
	switch {
	case consOK && altOK && consType == "null":
		return altType, true
	case consOK && altOK && altType == "null":
		return consType, true
	case consOK && altOK && consType == altType:
		return consType, true
	case consOK && !altOK:
		return consType, true
	case altOK && !consOK:
		return altType, true
	case consOK && altOK:
		return javaPromote(consType, altType), true
	}
	return "", false
}
