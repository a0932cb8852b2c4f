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
	"context"
	"log/slog"
	"os"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
	"github.com/kodemap/kodemap/pkg/symtab"
)

type moduleState struct {
	index int
}

// Resolve implements Phase 2 for Java: re-parse every file, build the
// FileContext from package/imports, create Module/Type/Callable entities
// with deterministic ids, resolve extends/implements via the symbol table,
// walk method/constructor bodies for method_invocation call sites, and emit
// either a resolved callee id or an UnresolvedReference with its
// closed-vocabulary reason string.
func Resolve(root string, files []walk.File, tab *symtab.Table, projectID string, idgen *ir.IDGenerator, logger *slog.Logger) (*ir.IR, error) {
	if logger == nil {
		logger = slog.Default()
	}
	result := ir.New("1", ir.Java)
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	modules := make(map[string]*moduleState)

	for _, f := range files {
		src, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("java.resolve.read_error", "path", f.Path, "error", err)
			continue
		}
		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil || tree == nil {
			logger.Warn("java.resolve.parse_error", "path", f.Path, "error", err)
			continue
		}
		fileRoot := tree.RootNode()
		pkg := moduleQualifier(f.Path, packageName(fileRoot, src))
		fc := buildFileContext(fileRoot, src, pkg)

		modID, ok := tab.ModuleID(pkg)
		if !ok {
			modID = idgen.ModuleID(ir.Java, pkg)
		}
		state, ok := modules[pkg]
		if !ok {
			result.Modules = append(result.Modules, ir.Module{
				ID:            modID,
				Name:          lastSegment(pkg),
				QualifiedName: pkg,
				Path:          path.Dir(f.Path),
				Language:      ir.Java,
			})
			state = &moduleState{index: len(result.Modules) - 1}
			modules[pkg] = state
		}

		for i := 0; i < int(fileRoot.ChildCount()); i++ {
			n := fileRoot.Child(i)
			switch n.Type() {
			case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
				resolveTypeDecl(result, tab, idgen, n, src, pkg, fc, modID, state, logger)
			}
		}
	}

	ir.LinkSubModules(result.Modules, ".")

	if errs := ir.Validate(result); len(errs) > 0 {
		for _, e := range errs {
			logger.Warn("java.resolve.dangling_reference", "error", e.Error())
		}
	}
	return result, nil
}

func buildFileContext(fileRoot *sitter.Node, src []byte, pkg string) symtab.FileContext {
	fc := symtab.FileContext{Package: pkg}
	for _, imp := range imports(fileRoot, src) {
		if imp.Static {
			continue
		}
		if imp.Wildcard {
			fc.Wildcards = append(fc.Wildcards, imp.Qualified)
			continue
		}
		fc.Imports = append(fc.Imports, imp.Qualified)
	}
	return fc
}

func kindOf(nodeType string) ir.Kind {
	switch nodeType {
	case "interface_declaration":
		return ir.KindInterface
	case "enum_declaration":
		return ir.KindEnum
	default:
		return ir.KindClass
	}
}

func resolveTypeDecl(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, pkg string, fc symtab.FileContext, modID string, mod *moduleState, logger *slog.Logger) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	qn := qualify(pkg, name)
	mods := modifiers(n, src)

	t := ir.Type{
		ID:            idgen.TypeID(ir.Java, qn),
		Name:          name,
		QualifiedName: qn,
		Kind:          kindOf(n.Type()),
		Language:      ir.Java,
		Modifiers:     mods,
		Annotations:   annotations(n, src),
	}

	switch n.Type() {
	case "class_declaration":
		if sc := findChild(n, "superclass"); sc != nil {
			t.Extends = resolveSupertypeIDs(tab, idgen, superTypeNames(sc, src), fc)
		}
		if si := findChild(n, "super_interfaces"); si != nil {
			t.Implements = resolveSupertypeIDs(tab, idgen, typeList(si, src), fc)
		}
	case "interface_declaration":
		if ei := findChild(n, "extends_interfaces"); ei != nil {
			t.Extends = resolveSupertypeIDs(tab, idgen, typeList(ei, src), fc)
		}
	case "enum_declaration", "record_declaration":
		if si := findChild(n, "super_interfaces"); si != nil {
			t.Implements = resolveSupertypeIDs(tab, idgen, typeList(si, src), fc)
		}
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
		switch member.Type() {
		case "method_declaration":
			c := resolveMethod(result, tab, idgen, member, src, qn, fc, logger)
			if c != nil {
				result.Callables = append(result.Callables, *c)
				result.Types[typeIdx].CallableIDs = append(result.Types[typeIdx].CallableIDs, c.ID)
			}
		case "constructor_declaration":
			c := resolveConstructor(result, tab, idgen, member, src, qn, fc, logger)
			if c != nil {
				result.Callables = append(result.Callables, *c)
				result.Types[typeIdx].CallableIDs = append(result.Types[typeIdx].CallableIDs, c.ID)
			}
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			resolveTypeDecl(result, tab, idgen, member, src, qn, fc, modID, mod, logger)
		}
	}
}

// superTypeNames extracts the single extended class name from a
// "superclass" node (wraps one type reference, generic or plain).
func superTypeNames(superclass *sitter.Node, src []byte) []string {
	if t := findChild(superclass, "generic_type"); t != nil {
		return []string{typeIdentifier(t, src)}
	}
	if t := findChild(superclass, "type_identifier"); t != nil {
		return []string{typeIdentifier(t, src)}
	}
	if t := findChild(superclass, "scoped_type_identifier"); t != nil {
		return []string{typeIdentifier(t, src)}
	}
	return nil
}

func resolveSupertypeIDs(tab *symtab.Table, idgen *ir.IDGenerator, shortNames []string, fc symtab.FileContext) []string {
	var ids []string
	for _, short := range shortNames {
		resolved, ok := tab.ResolveType(short, fc)
		if !ok {
			resolved = qualify(fc.Package, short)
		}
		ids = append(ids, idgen.TypeID(ir.Java, resolved))
	}
	return ids
}

func resolveMethod(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, ownerQN string, fc symtab.FileContext, logger *slog.Logger) *ir.Callable {
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
		ID:            idgen.CallableID(ir.Java, qn, sig),
		Name:          name,
		QualifiedName: qn,
		Signature:     sig,
		Kind:          ir.CallableMethod,
		Language:      ir.Java,
		IsStatic:      hasModifier(mods, "static"),
		Visibility:    ir.Visibility(visibilityOf(mods)),
		Annotations:   annotations(n, src),
	}
	c.ReturnTypeID = returnTypeID(tab, idgen, ret, fc)
	if super, ok := tab.OverriddenIn(ownerQN, name, sig); ok {
		c.OverriddenID = idgen.CallableID(ir.Java, super+"."+name, sig)
	}

	scope := symtab.NewScope()
	seedParams(scope, n.ChildByFieldName("parameters"), src)
	ic := newInferCtx(tab, scope, ownerQN, fc)

	body := n.ChildByFieldName("body")
	if body != nil {
		walkCalls(body, src, ic, tab, idgen, ownerQN, &c, result, logger)
	}
	return &c
}

// returnTypeID links a declared return type to a scanned Type entity's id,
// or "" for void, primitives, and external library types — the return-type
// id is optional and only set when the target type exists in the IR.
func returnTypeID(tab *symtab.Table, idgen *ir.IDGenerator, ret string, fc symtab.FileContext) string {
	if ret == "" || ret == "void" {
		return ""
	}
	qn, ok := tab.ResolveType(ret, fc)
	if !ok {
		return ""
	}
	return idgen.TypeID(ir.Java, qn)
}

func resolveConstructor(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, ownerQN string, fc symtab.FileContext, logger *slog.Logger) *ir.Callable {
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	qn := ownerQN + ".<init>"
	mods := modifiers(n, src)

	c := ir.Callable{
		ID:            idgen.CallableID(ir.Java, qn, sig),
		Name:          "<init>",
		QualifiedName: qn,
		Signature:     sig,
		Kind:          ir.CallableConstructor,
		Language:      ir.Java,
		Visibility:    ir.Visibility(visibilityOf(mods)),
		Annotations:   annotations(n, src),
	}

	scope := symtab.NewScope()
	seedParams(scope, n.ChildByFieldName("parameters"), src)
	ic := newInferCtx(tab, scope, ownerQN, fc)

	body := n.ChildByFieldName("body")
	if body != nil {
		walkCalls(body, src, ic, tab, idgen, ownerQN, &c, result, logger)
	}
	return &c
}

func seedParams(scope *symtab.Scope, paramsNode *sitter.Node, src []byte) {
	if paramsNode == nil {
		return
	}
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "formal_parameter" && child.Type() != "spread_parameter" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		nameNode := child.ChildByFieldName("name")
		if typeNode == nil || nameNode == nil {
			continue
		}
		scope.Set(text(nameNode, src), typeIdentifier(typeNode, src))
	}
}

// walkCalls descends through a method/constructor body, recording one
// resolved CalleeID or one UnresolvedReference per method_invocation
// encountered. Local variable declarations along the way
// update the scope (including Java 10+ `var`, whose type is derived by
// running the inferrer on the initializer.2).
func walkCalls(node *sitter.Node, src []byte, ic *inferCtx, tab *symtab.Table, idgen *ir.IDGenerator, ownerQN string, caller *ir.Callable, result *ir.IR, logger *slog.Logger) {
	switch node.Type() {
	case "local_variable_declaration":
		bindLocalDecl(node, src, ic)
	case "enhanced_for_statement":
		bindEnhancedFor(node, src, ic)
	case "catch_clause":
		bindCatchClause(node, src, ic)
	case "resource":
		bindResource(node, src, ic)
	case "method_invocation":
		recordCall(node, src, ic, tab, idgen, caller, result)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkCalls(node.Child(i), src, ic, tab, idgen, ownerQN, caller, result, logger)
	}
}

func bindLocalDecl(node *sitter.Node, src []byte, ic *inferCtx) {
	typeNode := node.ChildByFieldName("type")
	isVar := typeNode != nil && text(typeNode, src) == "var"
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() != "variable_declarator" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := text(nameNode, src)
		if !isVar && typeNode != nil {
			ic.scope.Set(name, typeIdentifier(typeNode, src))
			continue
		}
		if value := c.ChildByFieldName("value"); value != nil {
			if t, ok := Infer(value, src, ic); ok {
				ic.scope.Set(name, t)
			}
		}
	}
}

func bindEnhancedFor(node *sitter.Node, src []byte, ic *inferCtx) {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil {
		return
	}
	ic.scope.Set(text(nameNode, src), typeIdentifier(typeNode, src))
}

// bindResource binds one try-with-resources declaration (`try (Reader r =
// ...)`) into scope.
func bindResource(node *sitter.Node, src []byte, ic *inferCtx) {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	if nameNode != nil && typeNode != nil {
		ic.scope.Set(text(nameNode, src), typeIdentifier(typeNode, src))
	}
}

func bindCatchClause(node *sitter.Node, src []byte, ic *inferCtx) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() != "catch_formal_parameter" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		typeNode := c.ChildByFieldName("type")
		if nameNode != nil && typeNode != nil {
			ic.scope.Set(text(nameNode, src), typeIdentifier(typeNode, src))
		}
	}
}

// recordCall resolves one method_invocation's receiver and appends either
// its resolved id to caller.CalleeIDs or an UnresolvedReference. A bare
// call (no object) or a `this.` call resolves against the enclosing class
// (and its supertypes, via hierarchy walk): same-type resolution wins
// over inherited.
func recordCall(node *sitter.Node, src []byte, ic *inferCtx, tab *symtab.Table, idgen *ir.IDGenerator, caller *ir.Callable, result *ir.IR) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	methodName := text(nameNode, src)
	objNode := node.ChildByFieldName("object")

	var receiverType string
	if objNode == nil || objNode.Type() == "this" {
		receiverType = ic.ownerQN
	} else {
		t, ok := Infer(objNode, src, ic)
		switch {
		case ok:
			receiverType = ic.qualify(t)
		case objNode.Type() == "method_invocation":
			addUnresolved(result, caller.ID, methodName, "Unknown receiver type from method call")
			return
		case objNode.Type() == "identifier":
			// Not a local variable: a bare identifier receiver is a static
			// call on a class. A scanned class resolves like any receiver;
			// an external one (Math, System, ...) is expected and ignored.
			name := text(objNode, src)
			if qn, isType := ic.tab.ResolveType(name, ic.fc); isType {
				receiverType = qn
				break
			}
			if name != "" && name[0] >= 'A' && name[0] <= 'Z' {
				return
			}
			addUnresolved(result, caller.ID, methodName, "Unknown receiver type")
			return
		default:
			addUnresolved(result, caller.ID, methodName, "Unknown receiver type")
			return
		}
	}

	argSig := argumentSignature(node.ChildByFieldName("arguments"), src, ic)
	qn, err := tab.ResolveCallableWithReceiver(methodName, receiverType, argSig)
	if err != nil {
		if !tab.HasTypeQN(receiverType) {
			// The receiver is an external library type (a String, a List,
			// a System.out stream): an expected condition, not an
			// unresolved reference.
			return
		}
		addUnresolved(result, caller.ID, methodName, err.Error())
		return
	}
	sig := argSig
	if sig == "" || !tab.HasSignature(qn, sig) {
		sigs := tab.SignaturesOf(qn)
		if len(sigs) > 0 {
			sig = sigs[0]
		}
	}
	caller.CalleeIDs = append(caller.CalleeIDs, idgen.CallableID(ir.Java, qn, sig))
}

// argumentSignature infers each call argument's type and joins them into a
// canonical signature string for overload disambiguation;
// returns "" if any argument's type cannot be inferred, signalling "no
// signature-based filtering" to the caller.
func argumentSignature(argsNode *sitter.Node, src []byte, ic *inferCtx) string {
	if argsNode == nil {
		return "()"
	}
	var types []string
	for i := 0; i < int(argsNode.ChildCount()); i++ {
		c := argsNode.Child(i)
		if c.Type() == "(" || c.Type() == ")" || c.Type() == "," {
			continue
		}
		t, ok := Infer(c, src, ic)
		if !ok {
			return ""
		}
		types = append(types, t)
	}
	return "(" + strings.Join(types, ", ") + ")"
}

func addUnresolved(result *ir.IR, callerID, targetName, reason string) {
	result.Unresolved = append(result.Unresolved, ir.UnresolvedReference{
		SourceCallableID: callerID,
		TargetName:       targetName,
		Reason:           reason,
	})
}
