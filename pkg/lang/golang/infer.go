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

package golang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kodemap/kodemap/pkg/symtab"
)

// inferCtx carries what the Go type inferrer needs at a given call site:
// the symbol table, the current local scope, the current package's
// qualified name (for bare function lookups and for qualifying short type
// names), the file context, and the cycle guard
// needed because Go selector chains can recurse arbitrarily.
type inferCtx struct {
	tab     *symtab.Table
	scope   *symtab.Scope
	pkg     string // current package qualified name, for bare-call lookups
	fc      symtab.FileContext
	visited map[uintptr]bool
}

func newInferCtx(tab *symtab.Table, scope *symtab.Scope, pkg string, fc symtab.FileContext) *inferCtx {
	return &inferCtx{tab: tab, scope: scope, pkg: pkg, fc: fc, visited: make(map[uintptr]bool)}
}

// qualify turns a short type name (everything Infer/baseTypeName produces
// is unqualified) into the qualified name the symbol table indexes types
// and callables under, via resolve_type, falling back to the current
// package when resolution misses (the common case for a type declared in
// the same file/package as the reference).
func (ic *inferCtx) qualify(shortName string) string {
	if shortName == "" {
		return ""
	}
	if qn, ok := ic.tab.ResolveType(shortName, ic.fc); ok {
		return qn
	}
	return ic.pkg + "." + shortName
}

// nodeKey gives a stable per-process identity for an AST node so the
// cycle guard can key on it; tree-sitter nodes do not expose a pointer, so
// this keys on (type, start byte, end byte), which is unique within one
// parsed tree.
type nodeKey struct {
	kind       string
	start, end uint32
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{kind: n.Type(), start: n.StartByte(), end: n.EndByte()}
}

// heuristicReturnType is the Go inferrer's last-resort fallback table for
// well-known standard-library-shaped method names, used only when the
// symbol table does not resolve the method on the receiver type (or the
// receiver type is unknown); a heuristic never overrides a known return
// type, and a method the table resolves but records no return type for
// infers as a miss.
var heuristicReturnType = map[string]string{
	"String": "string",
	"Error":  "string",
	"Len":    "int",
	"Cap":    "int",
	"Bytes":  "[]byte",
	"Close":  "error",
	"Write":  "int",
	"Read":   "int",
	"Err":    "error",
	"Result": "bool",
	"Ok":     "bool",
}

// Infer computes the type of an expression node. Returns
// ("", false) on a miss.
func Infer(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	if node == nil {
		return "", false
	}
	k := keyOf(node)
	if ic.visited[uintptrOf(k)] {
		return "", false
	}

	switch node.Type() {
	case "int_literal":
		return "int", true
	case "float_literal":
		return "float64", true
	case "interpreted_string_literal", "raw_string_literal":
		return "string", true
	case "true", "false":
		return "bool", true
	case "nil":
		return "", false

	case "identifier":
		name := text(node, src)
		return ic.scope.Lookup(name)

	case "composite_literal":
		if t := node.ChildByFieldName("type"); t != nil {
			return baseTypeName(t, src), true
		}
		return "", false

	case "call_expression":
		return inferCallExpression(node, src, ic)

	case "selector_expression":
		return inferSelector(node, src, ic)

	case "type_assertion_expression":
		if t := node.ChildByFieldName("type"); t != nil {
			return baseTypeName(t, src), true
		}
		return "", false

	case "unary_expression":
		return inferUnary(node, src, ic)

	case "parenthesized_expression":
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() != "(" && c.Type() != ")" {
				return Infer(c, src, ic)
			}
		}
		return "", false

	case "index_expression":
		return inferIndex(node, src, ic)

	case "slice_expression":
		if operand := node.ChildByFieldName("operand"); operand != nil {
			return Infer(operand, src, ic)
		}
		return "", false
	}

	return "", false
}

func uintptrOf(k nodeKey) uintptr {
	// A byte-range-based node identity packed into a single integer key;
	// the kind is not part of it, so two nodes spanning exactly the same
	// bytes share a key.
	return uintptr(k.start)<<32 | uintptr(k.end)
}

func inferCallExpression(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}

	if fn.Type() == "selector_expression" {
		operand := fn.ChildByFieldName("operand")
		method := fn.ChildByFieldName("field")
		if operand == nil || method == nil {
			return "", false
		}
		methodName := text(method, src)

		if operand.Type() == "call_expression" {
			// Chained call: the inner return type is required; a miss
			// here is a miss for the whole expression, no fallback to
			// "any callable of that name".
			k := keyOf(node)
			ic.visited[uintptrOf(k)] = true
			innerType, ok := Infer(operand, src, ic)
			delete(ic.visited, uintptrOf(k))
			if !ok {
				return "", false
			}
			return resolveMethodReturn(ic, methodName, innerType)
		}

		receiverType, ok := Infer(operand, src, ic)
		if ok {
			return resolveMethodReturn(ic, methodName, receiverType)
		}

		// Operand is not a call expression and no receiver type is
		// available: fall back on the method name alone, the only case
		// where that fallback is allowed. Only the heuristic table is
		// consulted; the symbol table's callables of that name are not.
		return anyCallableReturn(ic, methodName)
	}

	// Bare call: look up return type by qualified name in current
	// package.
	name := text(fn, src)
	qn := ic.pkg + "." + name
	sigs := ic.tab.SignaturesOf(qn)
	for _, sig := range sigs {
		if rt, ok := ic.tab.ReturnTypeOf(qn, sig); ok {
			return rt, true
		}
	}
	return "", false
}

func resolveMethodReturn(ic *inferCtx, methodName, receiverType string) (string, bool) {
	qn, err := ic.tab.ResolveCallableWithReceiver(methodName, ic.qualify(receiverType), "")
	if err != nil {
		return anyCallableReturn(ic, methodName)
	}
	for _, sig := range ic.tab.SignaturesOf(qn) {
		if rt, ok := ic.tab.ReturnTypeOf(qn, sig); ok {
			return rt, true
		}
	}
	return "", false
}

func anyCallableReturn(ic *inferCtx, methodName string) (string, bool) {
	if rt, ok := heuristicReturnType[methodName]; ok {
		return rt, true
	}
	return "", false
}

func inferSelector(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	operand := node.ChildByFieldName("operand")
	field := node.ChildByFieldName("field")
	if operand == nil || field == nil {
		return "", false
	}
	ownerType, ok := Infer(operand, src, ic)
	if !ok {
		return "", false
	}
	fieldName := text(field, src)
	ownerType = strings.TrimPrefix(ownerType, "*")
	return ic.tab.FieldType(ic.qualify(ownerType), fieldName)
}

func inferUnary(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	op := node.ChildByFieldName("operator")
	operand := node.ChildByFieldName("operand")
	if operand == nil {
		return "", false
	}
	operandType, ok := Infer(operand, src, ic)
	if !ok {
		return "", false
	}
	if op == nil {
		return operandType, true
	}
	switch text(op, src) {
	case "&":
		return "*" + operandType, true
	case "*":
		return strings.TrimPrefix(operandType, "*"), true
	default:
		return operandType, true
	}
}

func inferIndex(node *sitter.Node, src []byte, ic *inferCtx) (string, bool) {
	operand := node.ChildByFieldName("operand")
	if operand == nil {
		return "", false
	}
	containerType, ok := Infer(operand, src, ic)
	if !ok {
		return "", false
	}
	return elementType(containerType)
}

// elementType parses a bracket-balanced container type string ([]E or
// map[K]V) and returns the element/value type.
func elementType(containerType string) (string, bool) {
	containerType = strings.TrimSpace(containerType)
	if strings.HasPrefix(containerType, "[]") {
		return containerType[2:], true
	}
	if strings.HasPrefix(containerType, "map[") {
		depth := 0
		for i := len("map["); i < len(containerType); i++ {
			switch containerType[i] {
			case '[':
				depth++
			case ']':
				if depth == 0 {
					return containerType[i+1:], true
				}
				depth--
			}
		}
	}
	return "", false
}
