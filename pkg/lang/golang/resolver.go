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
	"context"
	"log/slog"
	"os"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
	"github.com/kodemap/kodemap/pkg/sigparse"
	"github.com/kodemap/kodemap/pkg/symtab"
)

// moduleState tracks the in-progress ir.Module for one package across
// however many files declare it, plus the index of that Module in the
// result's Modules slice so later files can append more TypeIDs to it.
type moduleState struct {
	index int
}

// Resolve implements Phase 2 for Go: re-parse every file, create Module,
// Type, and Callable entities with deterministic ids, resolve embeds via
// the symbol table built in Phase 1, build a local scope per callable and
// walk its body for call sites, and emit either a resolved callee id or
// an UnresolvedReference with its closed-vocabulary reason string.
func Resolve(root string, files []walk.File, tab *symtab.Table, projectID string, idgen *ir.IDGenerator, logger *slog.Logger) (*ir.IR, error) {
	if logger == nil {
		logger = slog.Default()
	}
	result := ir.New("1", ir.Go)
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	modules := make(map[string]*moduleState)

	for _, f := range files {
		if strings.HasSuffix(f.Path, "_test.go") {
			continue
		}
		src, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("golang.resolve.read_error", "path", f.Path, "error", err)
			continue
		}
		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil || tree == nil {
			logger.Warn("golang.resolve.parse_error", "path", f.Path, "error", err)
			continue
		}
		fileRoot := tree.RootNode()
		pkgName := packageName(fileRoot, src)
		qualPkg := PackageQualifiedName(root, f.Path, pkgName)
		fc := buildFileContext(fileRoot, src, qualPkg)

		modID, ok := tab.ModuleID(qualPkg)
		if !ok {
			modID = idgen.ModuleID(ir.Go, qualPkg)
		}
		state, seen := modules[qualPkg]
		if !seen {
			result.Modules = append(result.Modules, ir.Module{
				ID:            modID,
				Name:          pkgName,
				QualifiedName: qualPkg,
				Path:          path.Dir(f.Path),
				Language:      ir.Go,
			})
			state = &moduleState{index: len(result.Modules) - 1}
			modules[qualPkg] = state
		}

		resolveFile(result, tab, idgen, fileRoot, src, qualPkg, fc, modID, state, logger)
	}

	attachMethodsToTypes(result)
	ir.LinkSubModules(result.Modules, "/")

	if errs := ir.Validate(result); len(errs) > 0 {
		for _, e := range errs {
			logger.Warn("golang.resolve.dangling_reference", "error", e.Error())
		}
	}
	return result, nil
}

func buildFileContext(fileRoot *sitter.Node, src []byte, qualPkg string) symtab.FileContext {
	fc := symtab.FileContext{
		Package: qualPkg,
		Aliases: make(map[string]string),
	}
	for _, imp := range imports(fileRoot, src) {
		if imp.Alias == "_" || imp.Alias == "." {
			continue
		}
		short := imp.Alias
		if short == "" {
			short = lastPathComponent(imp.Path)
		}
		fc.Aliases[short] = imp.Path
		fc.Imports = append(fc.Imports, imp.Path)
	}
	return fc
}

func resolveFile(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, fileRoot *sitter.Node, src []byte, pkg string, fc symtab.FileContext, modID string, mod *moduleState, logger *slog.Logger) {
	for i := 0; i < int(fileRoot.ChildCount()); i++ {
		n := fileRoot.Child(i)
		switch n.Type() {
		case "type_declaration":
			resolveTypeDecl(result, tab, idgen, n, src, pkg, fc, modID, mod)
		case "function_declaration":
			callable := resolveFunction(result, tab, idgen, n, src, pkg, fc, logger)
			if callable != nil {
				result.Callables = append(result.Callables, *callable)
			}
		case "method_declaration":
			resolveMethodDecl(result, tab, idgen, n, src, pkg, fc, logger)
		}
	}
}

func resolveTypeDecl(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, pkg string, fc symtab.FileContext, modID string, mod *moduleState) {
	for i := 0; i < int(n.ChildCount()); i++ {
		spec := n.Child(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := text(nameNode, src)
		qn := pkg + "." + name
		typeNode := spec.ChildByFieldName("type")

		t := ir.Type{
			ID:            idgen.TypeID(ir.Go, qn),
			Name:          name,
			QualifiedName: qn,
			Language:      ir.Go,
		}

		if typeNode != nil {
			switch typeNode.Type() {
			case "struct_type":
				t.Kind = ir.KindStruct
				t.Embeds = resolveSupertypeIDs(tab, idgen, qn, fc)
			case "interface_type":
				t.Kind = ir.KindInterface
				t.Implements = resolveSupertypeIDs(tab, idgen, qn, fc)
			default:
				t.Kind = ir.KindStruct
			}
		}

		result.Types = append(result.Types, t)
		result.Modules[mod.index].TypeIDs = append(result.Modules[mod.index].TypeIDs, t.ID)

		if typeNode != nil && typeNode.Type() == "interface_type" {
			resolveInterfaceMethods(result, tab, idgen, typeNode, src, pkg, qn, fc)
		}
	}
}

// resolveInterfaceMethods creates a Callable for every method an interface
// declares, so call edges resolved against an interface-typed receiver have
// an in-IR target instead of dangling.
func resolveInterfaceMethods(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, ifaceType *sitter.Node, src []byte, pkg, ownerQN string, fc symtab.FileContext) {
	for i := 0; i < int(ifaceType.ChildCount()); i++ {
		elem := ifaceType.Child(i)
		if elem.Type() != "method_elem" && elem.Type() != "method_spec" {
			continue
		}
		nameNode := elem.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := text(nameNode, src)
		qn := ownerQN + "." + name
		sig := paramSignature(elem.ChildByFieldName("parameters"), src)

		c := ir.Callable{
			ID:            idgen.CallableID(ir.Go, qn, sig),
			Name:          name,
			QualifiedName: qn,
			Signature:     sig,
			Kind:          ir.CallableMethod,
			Language:      ir.Go,
			Visibility:    visibilityOf(name),
		}
		if r := elem.ChildByFieldName("result"); r != nil {
			c.ReturnTypeID = returnTypeID(tab, idgen, rawTypeText(r, src), fc)
		}
		result.Callables = append(result.Callables, c)
	}
}

// attachMethodsToTypes links every method callable to its owner type's
// CallableIDs once all files are processed; a method declared in a
// different file than its receiver type would otherwise miss a type that
// the per-file pass had not created yet.
func attachMethodsToTypes(result *ir.IR) {
	typeIdx := make(map[string]int, len(result.Types))
	for i, t := range result.Types {
		typeIdx[t.QualifiedName] = i
	}
	for _, c := range result.Callables {
		if c.Kind != ir.CallableMethod {
			continue
		}
		ownerQN := c.QualifiedName
		if idx := strings.LastIndex(ownerQN, "."); idx >= 0 {
			ownerQN = ownerQN[:idx]
		}
		if i, ok := typeIdx[ownerQN]; ok {
			result.Types[i].CallableIDs = appendUniqueID(result.Types[i].CallableIDs, c.ID)
		}
	}
}

func appendUniqueID(list []string, id string) []string {
	for _, have := range list {
		if have == id {
			return list
		}
	}
	return append(list, id)
}

// resolveSupertypeIDs turns the short embedded/interface-elem type names
// recorded by the scanner into resolved type ids, using resolve_type over
// the short name rather than trusting the scanner's package-local guess
// (the scanner assumes same-package; resolve_type confirms or corrects
// that against imports.5).
func resolveSupertypeIDs(tab *symtab.Table, idgen *ir.IDGenerator, qn string, fc symtab.FileContext) []string {
	var ids []string
	for _, super := range tab.Supertypes(qn) {
		short := super
		if idx := strings.LastIndex(super, "."); idx >= 0 {
			short = super[idx+1:]
		}
		resolved, ok := tab.ResolveType(short, fc)
		if !ok {
			resolved = super
		}
		ids = append(ids, idgen.TypeID(ir.Go, resolved))
	}
	return ids
}

func resolveFunction(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, pkg string, fc symtab.FileContext, logger *slog.Logger) *ir.Callable {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, src)
	qn := pkg + "." + name
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	ret := returnTypeOf(n, src)

	c := ir.Callable{
		ID:            idgen.CallableID(ir.Go, qn, sig),
		Name:          name,
		QualifiedName: qn,
		Signature:     sig,
		Kind:          ir.CallableFunction,
		Language:      ir.Go,
		Visibility:    visibilityOf(name),
	}
	c.ReturnTypeID = returnTypeID(tab, idgen, ret, fc)

	scope := symtab.NewScope()
	seedParams(scope, n.ChildByFieldName("parameters"), src)
	ic := newInferCtx(tab, scope, pkg, fc)

	body := n.ChildByFieldName("body")
	if body != nil {
		walkCalls(body, src, ic, tab, idgen, fc, c.ID, &c, result, logger)
	}
	return &c
}

func resolveMethodDecl(result *ir.IR, tab *symtab.Table, idgen *ir.IDGenerator, n *sitter.Node, src []byte, pkg string, fc symtab.FileContext, logger *slog.Logger) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	recvNode := n.ChildByFieldName("receiver")
	recvType := receiverType(recvNode, src)
	if recvType == "" {
		return
	}
	ownerQN := pkg + "." + recvType
	qn := ownerQN + "." + name
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	ret := returnTypeOf(n, src)

	c := ir.Callable{
		ID:            idgen.CallableID(ir.Go, qn, sig),
		Name:          name,
		QualifiedName: qn,
		Signature:     sig,
		Kind:          ir.CallableMethod,
		Language:      ir.Go,
		Visibility:    visibilityOf(name),
	}
	c.ReturnTypeID = returnTypeID(tab, idgen, ret, fc)
	if super, ok := tab.OverriddenIn(ownerQN, name, sig); ok {
		c.OverriddenID = idgen.CallableID(ir.Go, super+"."+name, sig)
	}

	scope := symtab.NewScope()
	if rn := receiverName(recvNode, src); rn != "" {
		scope.Set(rn, "*"+recvType)
	}
	seedParams(scope, n.ChildByFieldName("parameters"), src)
	ic := newInferCtx(tab, scope, pkg, fc)

	body := n.ChildByFieldName("body")
	if body != nil {
		walkCalls(body, src, ic, tab, idgen, fc, c.ID, &c, result, logger)
	}

	result.Callables = append(result.Callables, c)
}

func visibilityOf(name string) ir.Visibility {
	if isExported(name) {
		return ir.VisibilityPublic
	}
	return ir.VisibilityPackage
}

// returnTypeID links a declared return type to a scanned Type entity's id,
// or "" when the return type is a built-in, an external type, or absent —
// the return-type id is optional and only set when the target type exists
// in the IR. A multi-value result list reduces to its first element.
func returnTypeID(tab *symtab.Table, idgen *ir.IDGenerator, ret string, fc symtab.FileContext) string {
	ret = strings.TrimSpace(ret)
	if ret == "" {
		return ""
	}
	if strings.HasPrefix(ret, "(") {
		ret = strings.Trim(ret, "()")
		if idx := strings.Index(ret, ","); idx >= 0 {
			ret = ret[:idx]
		}
	}
	short := sigparse.NormalizeType(strings.TrimSpace(ret))
	qn, ok := tab.ResolveType(short, fc)
	if !ok {
		return ""
	}
	return idgen.TypeID(ir.Go, qn)
}

func seedParams(scope *symtab.Scope, paramsNode *sitter.Node, src []byte) {
	if paramsNode == nil {
		return
	}
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "parameter_declaration" && child.Type() != "variadic_parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		declType := rawTypeText(typeNode, src)
		for j := 0; j < int(child.ChildCount()); j++ {
			if child.Child(j).Type() == "identifier" {
				scope.Set(text(child.Child(j), src), declType)
			}
		}
	}
}

// unknownCallResult marks a scope binding whose initializer was a call
// expression with an unresolvable return type. A later method call on such
// a variable is a chained call: the receiver's type comes
// from a method call whose return is unknown, and the unresolved reason
// must say so.
const unknownCallResult = "\x00unknown-call-result"

// walkCalls descends through a callable's body, recording one resolved
// CalleeID or one UnresolvedReference per call_expression encountered.
// Variable declarations (":=", var), range clauses, and function literals
// along the way update the scope so later calls in the same block see
// locally inferred types.
func walkCalls(node *sitter.Node, src []byte, ic *inferCtx, tab *symtab.Table, idgen *ir.IDGenerator, fc symtab.FileContext, callerID string, caller *ir.Callable, result *ir.IR, logger *slog.Logger) {
	switch node.Type() {
	case "short_var_declaration":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		bindScope(ic.scope, left, right, src, ic)
	case "var_declaration":
		bindVarDeclaration(node, src, ic)
	case "range_clause":
		bindRangeClause(node, src, ic)
	case "call_expression":
		recordCall(node, src, ic, tab, idgen, fc, callerID, caller, result, logger)
	case "func_literal":
		// A closure gets an independent snapshot of the enclosing scope:
		// its own bindings must not leak back out.
		child := &inferCtx{tab: ic.tab, scope: ic.scope.Copy(), pkg: ic.pkg, fc: ic.fc, visited: ic.visited}
		seedParams(child.scope, node.ChildByFieldName("parameters"), src)
		if body := node.ChildByFieldName("body"); body != nil {
			walkCalls(body, src, child, tab, idgen, fc, callerID, caller, result, logger)
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkCalls(node.Child(i), src, ic, tab, idgen, fc, callerID, caller, result, logger)
	}
}

func bindScope(scope *symtab.Scope, left, right *sitter.Node, src []byte, ic *inferCtx) {
	if left == nil || right == nil {
		return
	}
	names := identifierList(left, src)
	values := exprList(right)
	for i, name := range names {
		if i >= len(values) {
			break
		}
		if t, ok := Infer(values[i], src, ic); ok {
			scope.Set(name, t)
			continue
		}
		if values[i].Type() == "call_expression" {
			scope.Set(name, unknownCallResult)
		}
	}
}

// bindRangeClause binds `for k, v := range expr` induction variables: the
// key is the map key type (or int for slices/arrays), the value is the
// element type.
func bindRangeClause(node *sitter.Node, src []byte, ic *inferCtx) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	containerType, ok := Infer(right, src, ic)
	if !ok {
		return
	}
	names := identifierList(left, src)
	if len(names) == 0 {
		return
	}
	keyType, elemType := rangeTypes(containerType)
	if keyType != "" {
		ic.scope.Set(names[0], keyType)
	}
	if len(names) > 1 && elemType != "" {
		ic.scope.Set(names[1], elemType)
	}
}

func rangeTypes(containerType string) (key, elem string) {
	if e, ok := elementType(containerType); ok {
		if strings.HasPrefix(containerType, "map[") {
			inner := containerType[len("map["):]
			if end := strings.IndexByte(inner, ']'); end >= 0 {
				return inner[:end], e
			}
		}
		return "int", e
	}
	if containerType == "string" {
		return "int", "rune"
	}
	return "", ""
}

func bindVarDeclaration(node *sitter.Node, src []byte, ic *inferCtx) {
	for i := 0; i < int(node.ChildCount()); i++ {
		spec := node.Child(i)
		if spec.Type() != "var_spec" {
			continue
		}
		typeNode := spec.ChildByFieldName("type")
		names := identifierList(spec, src)
		if typeNode != nil {
			declType := rawTypeText(typeNode, src)
			for _, name := range names {
				ic.scope.Set(name, declType)
			}
			continue
		}
		if value := spec.ChildByFieldName("value"); value != nil {
			if t, ok := Infer(value, src, ic); ok {
				for _, name := range names {
					ic.scope.Set(name, t)
				}
			} else if value.Type() == "call_expression" {
				for _, name := range names {
					ic.scope.Set(name, unknownCallResult)
				}
			}
		}
	}
}

func identifierList(node *sitter.Node, src []byte) []string {
	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == "identifier" {
			names = append(names, text(c, src))
		}
	}
	return names
}

func exprList(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "expression_list" {
		var out []*sitter.Node
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() != "," {
				out = append(out, c)
			}
		}
		return out
	}
	return []*sitter.Node{node}
}

// recordCall resolves one call_expression's callee and appends either its
// resolved id to caller.CalleeIDs or an UnresolvedReference to result,
// using the closed-vocabulary reason strings. External/cross-package
// calls (an unqualified import-aliased selector whose package is not this
// one) are silently dropped rather than reported unresolved, per the
// external-call stub-suppression decision.
func recordCall(node *sitter.Node, src []byte, ic *inferCtx, tab *symtab.Table, idgen *ir.IDGenerator, fc symtab.FileContext, callerID string, caller *ir.Callable, result *ir.IR, logger *slog.Logger) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}

	if fn.Type() == "selector_expression" {
		operand := fn.ChildByFieldName("operand")
		field := fn.ChildByFieldName("field")
		if operand == nil || field == nil {
			return
		}
		methodName := text(field, src)

		if operand.Type() == "identifier" {
			if _, isPkg := fc.Aliases[text(operand, src)]; isPkg {
				// Cross-package call: suppressed per the external-call
				// stub-suppression policy, not reported unresolved.
				return
			}
		}

		// The chained-call reason applies both to a syntactic chain
		// (operand is itself a call) and to a variable whose initializer
		// was a call with an unknown return type.
		missReason := "Unknown receiver type"
		if operand.Type() == "call_expression" {
			missReason = "Unknown receiver type from method call"
		} else if operand.Type() == "identifier" {
			if t, ok := ic.scope.Lookup(text(operand, src)); ok && t == unknownCallResult {
				missReason = "Unknown receiver type from method call"
			}
		}

		receiverType, ok := Infer(operand, src, ic)
		if !ok || receiverType == unknownCallResult {
			addUnresolved(result, callerID, methodName, missReason)
			return
		}
		receiverType = strings.TrimPrefix(receiverType, "*")
		qualified := ic.qualify(receiverType)
		qn, err := tab.ResolveCallableWithReceiver(methodName, qualified, "")
		if err != nil {
			if !tab.HasTypeQN(qualified) {
				// The receiver is an external library type: an expected
				// condition, not an unresolved reference.
				return
			}
			addUnresolved(result, callerID, methodName, err.Error())
			return
		}
		sig := firstSignature(tab, qn)
		caller.CalleeIDs = append(caller.CalleeIDs, idgen.CallableID(ir.Go, qn, sig))
		return
	}

	if fn.Type() != "identifier" {
		return
	}
	name := text(fn, src)
	qn := ic.pkg + "." + name
	sigs := tab.SignaturesOf(qn)
	if len(sigs) == 0 {
		addUnresolved(result, callerID, name, "Function not found in symbol table")
		return
	}
	caller.CalleeIDs = append(caller.CalleeIDs, idgen.CallableID(ir.Go, qn, sigs[0]))
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
