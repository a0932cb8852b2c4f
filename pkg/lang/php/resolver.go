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

package php

import (
	"context"
	"log/slog"
	"os"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
	"github.com/kodemap/kodemap/pkg/symtab"
)

type moduleState struct {
	index int
}

// Resolve implements Phase 2 for PHP: re-parse every file, build the
// FileContext from the namespace and `use` aliases, create Module/Type/
// Callable entities with deterministic ids, resolve extends/implements via
// the symbol table, and walk method/function bodies for member/scoped/bare
// call sites.
func Resolve(root string, files []walk.File, tab *symtab.Table, projectID string, idgen *ir.IDGenerator, logger *slog.Logger) (*ir.IR, error) {
	if logger == nil {
		logger = slog.Default()
	}
	result := ir.New("1", ir.PHP)
	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())

	modules := make(map[string]*moduleState)

	for _, f := range files {
		src, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("php.resolve.read_error", "path", f.Path, "error", err)
			continue
		}
		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil || tree == nil {
			logger.Warn("php.resolve.parse_error", "path", f.Path, "error", err)
			continue
		}
		fileRoot := tree.RootNode()
		ns := moduleQualifier(f.Path, namespaceName(fileRoot, src))
		fc := buildFileContext(fileRoot, src, ns)

		modID, ok := tab.ModuleID(ns)
		if !ok {
			modID = idgen.ModuleID(ir.PHP, ns)
		}
		state, ok := modules[ns]
		if !ok {
			result.Modules = append(result.Modules, ir.Module{
				ID:            modID,
				Name:          lastSegment(ns),
				QualifiedName: ns,
				Path:          path.Dir(f.Path),
				Language:      ir.PHP,
			})
			state = &moduleState{index: len(result.Modules) - 1}
			modules[ns] = state
		}

		resolveNode(result, tab, idgen, fileRoot, src, ns, fc, modID, state, logger)
	}

	ir.LinkSubModules(result.Modules, ".")

	if errs := ir.Validate(result); len(errs) > 0 {
		for _, e := range errs {
			logger.Warn("php.resolve.dangling_reference", "error", e.Error())
		}
	}
	return result, nil
}

func buildFileContext(fileRoot *sitter.Node, src []byte, ns string) symtab.FileContext {
	fc := symtab.FileContext{Package: ns, Aliases: make(map[string]string)}
	for _, u := range uses(fileRoot, src) {
		fc.Aliases[u.Alias] = u.Qualified
		fc.Imports = append(fc.Imports, u.Qualified)
	}
	return fc
}

func resolveNode(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, ns string, fc symtab.FileContext, modID string, mod *moduleState, logger *slog.Logger) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "namespace_definition":
			childNs := ns
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				childNs = qualified(text(nameNode, src))
			}
			childFc := fc
			childFc.Package = childNs
			if body := c.ChildByFieldName("body"); body != nil {
				resolveNode(result, tab, idgen, body, src, childNs, childFc, modID, mod, logger)
			} else {
				resolveNode(result, tab, idgen, c, src, childNs, childFc, modID, mod, logger)
			}
		case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
			resolveTypeDecl(result, tab, idgen, c, src, ns, fc, mod)
		case "function_definition":
			callable := resolveFunction(result, tab, idgen, c, src, ns, fc, logger)
			if callable != nil {
				result.Callables = append(result.Callables, *callable)
			}
		}
	}
}

func kindOf(nodeType string) ir.Kind {
	switch nodeType {
	case "interface_declaration":
		return ir.KindInterface
	case "trait_declaration":
		return ir.KindTrait
	case "enum_declaration":
		return ir.KindEnum
	default:
		return ir.KindClass
	}
}

func resolveTypeDecl(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, ns string, fc symtab.FileContext, mod *moduleState) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	qn := qualify(ns, name)

	t := ir.Type{
		ID:            idgen.TypeID(ir.PHP, qn),
		Name:          name,
		QualifiedName: qn,
		Kind:          kindOf(n.Type()),
		Language:      ir.PHP,
	}

	if base := findChild(n, "base_clause"); base != nil {
		t.Extends = resolveSupertypeIDs(tab, idgen, typeNameList(base, src), fc)
	}
	if iface := findChild(n, "class_interface_clause"); iface != nil {
		t.Implements = resolveSupertypeIDs(tab, idgen, typeNameList(iface, src), fc)
	}

	result.Types = append(result.Types, t)
	typeIdx := len(result.Types) - 1
	result.Modules[mod.index].TypeIDs = append(result.Modules[mod.index].TypeIDs, t.ID)

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		if member.Type() != "method_declaration" {
			continue
		}
		c := resolveMethod(result, tab, idgen, member, src, qn, fc)
		if c != nil {
			result.Callables = append(result.Callables, *c)
			result.Types[typeIdx].CallableIDs = append(result.Types[typeIdx].CallableIDs, c.ID)
		}
	}
}

func resolveSupertypeIDs(tab *symtab.Table, idgen *ir.IDGenerator, shortNames []string, fc symtab.FileContext) []string {
	var ids []string
	for _, short := range shortNames {
		resolved, ok := tab.ResolveType(short, fc)
		if !ok {
			resolved = qualify(fc.Package, short)
		}
		ids = append(ids, idgen.TypeID(ir.PHP, resolved))
	}
	return ids
}

func callableKindOf(name string) ir.CallableKind {
	if name == "__construct" {
		return ir.CallableConstructor
	}
	return ir.CallableMethod
}

func resolveMethod(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, ownerQN string, fc symtab.FileContext) *ir.Callable {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, src)
	qn := ownerQN + "." + name
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	ret := returnTypeOf(n, src)
	mods := modifiers(n, src)

	c := ir.Callable{
		ID:            idgen.CallableID(ir.PHP, qn, sig),
		Name:          name,
		QualifiedName: qn,
		Signature:     sig,
		Kind:          callableKindOf(name),
		Language:      ir.PHP,
		IsStatic:      hasModifier(mods, "static"),
		Visibility:    ir.Visibility(visibilityOf(mods)),
	}
	c.ReturnTypeID = returnTypeID(tab, idgen, ret, fc)
	if super, ok := tab.OverriddenIn(ownerQN, name, sig); ok {
		c.OverriddenID = idgen.CallableID(ir.PHP, super+"."+name, sig)
	}

	scope := symtab.NewScope()
	scope.Set("this", ownerQN)
	for name, typ := range paramTypeHints(n.ChildByFieldName("parameters"), src) {
		scope.Set(name, typ)
	}

	body := n.ChildByFieldName("body")
	if body != nil {
		walkCalls(body, src, scope, tab, idgen, ownerQN, fc, &c, result)
	}
	return &c
}

func resolveFunction(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, ns string, fc symtab.FileContext, logger *slog.Logger) *ir.Callable {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, src)
	qn := qualify(ns, name)
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	ret := returnTypeOf(n, src)

	c := ir.Callable{
		ID:            idgen.CallableID(ir.PHP, qn, sig),
		Name:          name,
		QualifiedName: qn,
		Signature:     sig,
		Kind:          ir.CallableFunction,
		Language:      ir.PHP,
		Visibility:    ir.VisibilityPublic,
	}
	c.ReturnTypeID = returnTypeID(tab, idgen, ret, fc)

	scope := symtab.NewScope()
	for name, typ := range paramTypeHints(n.ChildByFieldName("parameters"), src) {
		scope.Set(name, typ)
	}

	body := n.ChildByFieldName("body")
	if body != nil {
		walkCalls(body, src, scope, tab, idgen, "", fc, &c, result)
	}
	return &c
}

// walkCalls descends through a function/method body, tracking simple
// `$var = new ClassName(...)` bindings into scope and recording one
// resolved CalleeID or one UnresolvedReference per call site.
func walkCalls(node *sitter.Node, src []byte, scope *symtab.Scope, tab *symtab.Table, idgen *ir.IDGenerator, ownerQN string, fc symtab.FileContext, caller *ir.Callable, result *ir.IR) {
	switch node.Type() {
	case "assignment_expression":
		bindAssignment(node, src, scope)
	case "member_call_expression":
		recordMemberCall(node, src, scope, tab, idgen, ownerQN, fc, caller, result)
	case "scoped_call_expression":
		recordScopedCall(node, src, tab, idgen, ownerQN, fc, caller, result)
	case "function_call_expression":
		recordFunctionCall(node, src, tab, idgen, fc, caller, result)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkCalls(node.Child(i), src, scope, tab, idgen, ownerQN, fc, caller, result)
	}
}

func bindAssignment(node *sitter.Node, src []byte, scope *symtab.Scope) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "variable_name" {
		return
	}
	if right.Type() != "object_creation_expression" {
		return
	}
	classNode := right.ChildByFieldName("class")
	if classNode == nil {
		classNode = findChild(right, "name")
	}
	if classNode == nil {
		classNode = findChild(right, "qualified_name")
	}
	if classNode == nil {
		return
	}
	varName := strings.TrimPrefix(text(left, src), "$")
	scope.Set(varName, typeIdentifier(classNode, src))
}

func recordMemberCall(node *sitter.Node, src []byte, scope *symtab.Scope, tab *symtab.Table, idgen *ir.IDGenerator, ownerQN string, fc symtab.FileContext, caller *ir.Callable, result *ir.IR) {
	objNode := node.ChildByFieldName("object")
	nameNode := node.ChildByFieldName("name")
	if objNode == nil || nameNode == nil {
		return
	}
	methodName := text(nameNode, src)

	var receiverType string
	switch {
	case objNode.Type() == "variable_name" && text(objNode, src) == "$this":
		receiverType = ownerQN
	case objNode.Type() == "variable_name":
		varName := strings.TrimPrefix(text(objNode, src), "$")
		t, ok := scope.Lookup(varName)
		if !ok {
			addUnresolved(result, caller.ID, methodName, "Unknown receiver type")
			return
		}
		receiverType = qualifyShort(tab, fc, t)
	case objNode.Type() == "member_call_expression" || objNode.Type() == "scoped_call_expression" || objNode.Type() == "function_call_expression":
		addUnresolved(result, caller.ID, methodName, "Unknown receiver type from method call")
		return
	default:
		addUnresolved(result, caller.ID, methodName, "Unknown receiver type")
		return
	}

	qn, err := tab.ResolveCallableWithReceiver(methodName, receiverType, "")
	if err != nil {
		if !tab.HasTypeQN(receiverType) {
			// External library receiver: expected, not unresolved.
			return
		}
		addUnresolved(result, caller.ID, methodName, err.Error())
		return
	}
	sig := firstSignature(tab, qn)
	caller.CalleeIDs = append(caller.CalleeIDs, idgen.CallableID(ir.PHP, qn, sig))
}

func recordScopedCall(node *sitter.Node, src []byte, tab *symtab.Table, idgen *ir.IDGenerator, ownerQN string, fc symtab.FileContext, caller *ir.Callable, result *ir.IR) {
	scopeNode := node.ChildByFieldName("scope")
	nameNode := node.ChildByFieldName("name")
	if scopeNode == nil || nameNode == nil {
		return
	}
	methodName := text(nameNode, src)

	var receiverType string
	switch scopeName := text(scopeNode, src); scopeName {
	case "self", "static", "parent":
		receiverType = ownerQN
	default:
		receiverType = qualifyShort(tab, fc, typeIdentifier(scopeNode, src))
	}

	qn, err := tab.ResolveCallableWithReceiver(methodName, receiverType, "")
	if err != nil {
		if !tab.HasTypeQN(receiverType) {
			// A static call on an external class (Log::, DB::, ...):
			// expected, not unresolved.
			return
		}
		addUnresolved(result, caller.ID, methodName, err.Error())
		return
	}
	sig := firstSignature(tab, qn)
	caller.CalleeIDs = append(caller.CalleeIDs, idgen.CallableID(ir.PHP, qn, sig))
}

func recordFunctionCall(node *sitter.Node, src []byte, tab *symtab.Table, idgen *ir.IDGenerator, fc symtab.FileContext, caller *ir.Callable, result *ir.IR) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil || (fnNode.Type() != "name" && fnNode.Type() != "qualified_name") {
		return
	}
	name := lastSegment(qualified(text(fnNode, src)))
	qn := qualify(fc.Package, name)
	sigs := tab.SignaturesOf(qn)
	if len(sigs) == 0 {
		addUnresolved(result, caller.ID, name, "Function not found in symbol table")
		return
	}
	caller.CalleeIDs = append(caller.CalleeIDs, idgen.CallableID(ir.PHP, qn, sigs[0]))
}

// returnTypeID links a declared return type hint to a scanned Type
// entity's id, or "" for built-in types (void, string, int, ...) and
// external classes — the return-type id is optional and only set when the
// target type exists in the IR.
func returnTypeID(tab *symtab.Table, idgen *ir.IDGenerator, ret string, fc symtab.FileContext) string {
	if ret == "" {
		return ""
	}
	qn, ok := tab.ResolveType(ret, fc)
	if !ok {
		return ""
	}
	return idgen.TypeID(ir.PHP, qn)
}

func qualifyShort(tab *symtab.Table, fc symtab.FileContext, shortName string) string {
	if qn, ok := tab.ResolveType(shortName, fc); ok {
		return qn
	}
	return qualify(fc.Package, shortName)
}

func firstSignature(tab *symtab.Table, qn string) string {
	sigs := tab.SignaturesOf(qn)
	if len(sigs) == 0 {
		return ""
	}
	return sigs[0]
}

func addUnresolved(result *ir.IR, callerID, targetName, reason string) {
	result.Unresolved = append(result.Unresolved, ir.UnresolvedReference{
		SourceCallableID: callerID,
		TargetName:       targetName,
		Reason:           reason,
	})
}
