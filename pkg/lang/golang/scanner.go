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
	"github.com/kodemap/kodemap/pkg/symtab"
)

// PackageQualifiedName computes the qualified package name a file belongs
// to: "<module>/<relative/path>" when a go.mod is present at root (the
// module path alone for files at the root). Without a go.mod (fixtures and
// module-less scan roots) it is the file's directory, or the declared
// package name for files at the root. Exported because the Gin/Fiber
// enrichers re-derive the same qualified names to match handler functions
// back to resolved callables.
func PackageQualifiedName(root, relPath, pkgName string) string {
	dir := path.Dir(relPath)
	modPath := walk.ModuleRoot(root)
	if modPath == "" {
		if dir == "." {
			return pkgName
		}
		return dir
	}
	if dir == "." {
		return modPath
	}
	return modPath + "/" + dir
}

// Scan implements Phase 1 for Go: walk every file in sorted order,
// registering every top-level type and function with its canonical
// signature, recording the type hierarchy (embeds, interface type_elem),
// and registering each package's module id.
func Scan(root string, files []walk.File, idgen *ir.IDGenerator, logger *slog.Logger) (*symtab.Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tab := symtab.New()
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	for _, f := range files {
		if strings.HasSuffix(f.Path, "_test.go") {
			continue
		}
		src, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("golang.scan.read_error", "path", f.Path, "error", err)
			continue
		}
		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil || tree == nil {
			logger.Warn("golang.scan.parse_error", "path", f.Path, "error", err)
			continue
		}
		fileRoot := tree.RootNode()
		pkgName := packageName(fileRoot, src)
		qualPkg := PackageQualifiedName(root, f.Path, pkgName)

		if _, ok := tab.ModuleID(qualPkg); !ok {
			tab.AddModule(qualPkg, idgen.ModuleID(ir.Go, qualPkg))
		}
		scanFile(tab, fileRoot, src, qualPkg)
	}
	return tab, nil
}

func scanFile(tab *symtab.Table, root *sitter.Node, src []byte, pkg string) {
	for i := 0; i < int(root.ChildCount()); i++ {
		n := root.Child(i)
		switch n.Type() {
		case "function_declaration":
			scanFunction(tab, n, src, pkg)
		case "method_declaration":
			scanMethod(tab, n, src, pkg)
		case "type_declaration":
			scanTypeDecl(tab, n, src, pkg)
		}
	}
}

func scanFunction(tab *symtab.Table, n *sitter.Node, src []byte, pkg string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	qn := pkg + "." + name
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	ret := returnTypeOf(n, src)
	tab.AddCallable(name, qn, sig, ret)
}

func scanMethod(tab *symtab.Table, n *sitter.Node, src []byte, pkg string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	recvType := receiverType(n.ChildByFieldName("receiver"), src)
	if recvType == "" {
		return
	}
	ownerQN := pkg + "." + recvType
	qn := ownerQN + "." + name
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	ret := returnTypeOf(n, src)
	tab.AddCallable(name, qn, sig, ret)
}

func scanTypeDecl(tab *symtab.Table, n *sitter.Node, src []byte, pkg string) {
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
		tab.AddType(name, qn)

		typeNode := spec.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		switch typeNode.Type() {
		case "struct_type":
			scanStructEmbeds(tab, typeNode, src, qn, pkg)
		case "interface_type":
			scanInterfaceElems(tab, typeNode, src, qn, pkg)
		}
	}
}

// scanStructEmbeds records embedded-field type hierarchy edges: a struct
// field declaration with a type but no field identifier is embedded.
// Resolution of same-package-first / single-cross-package-fallback happens
// in the resolver once the full symbol table is built; the scanner records
// the literal type name seen here so the resolver has something to resolve
// against.
func scanStructEmbeds(tab *symtab.Table, structType *sitter.Node, src []byte, ownerQN, pkg string) {
	fieldList := findChild(structType, "field_declaration_list")
	if fieldList == nil {
		return
	}
	for i := 0; i < int(fieldList.ChildCount()); i++ {
		field := fieldList.Child(i)
		if field.Type() != "field_declaration" {
			continue
		}
		nameNode := field.ChildByFieldName("name")
		typeNode := field.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		if nameNode != nil {
			// Named field: record its declared type for field_types.
			fieldName := text(nameNode, src)
			tab.AddFieldType(ownerQN, fieldName, baseTypeName(typeNode, src))
			continue
		}
		// Embedded: no field identifier.
		embedded := baseTypeName(typeNode, src)
		tab.AddSupertype(ownerQN, pkg+"."+embedded)
	}
}

// scanInterfaceElems records an interface's embedded interfaces (type_elem
// children whose first child is a type identifier or qualified type) and
// registers its declared method set, so calls on interface-typed receivers
// resolve the same way calls on concrete receivers do.
func scanInterfaceElems(tab *symtab.Table, ifaceType *sitter.Node, src []byte, ownerQN, pkg string) {
	for i := 0; i < int(ifaceType.ChildCount()); i++ {
		elem := ifaceType.Child(i)
		switch elem.Type() {
		case "type_elem":
			for j := 0; j < int(elem.ChildCount()); j++ {
				child := elem.Child(j)
				if child.Type() == "type_identifier" || child.Type() == "qualified_type" {
					embedded := baseTypeName(child, src)
					tab.AddSupertype(ownerQN, pkg+"."+embedded)
				}
			}
		case "method_elem", "method_spec":
			nameNode := elem.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := text(nameNode, src)
			sig := paramSignature(elem.ChildByFieldName("parameters"), src)
			ret := ""
			if r := elem.ChildByFieldName("result"); r != nil {
				ret = rawTypeText(r, src)
			}
			tab.AddCallable(name, ownerQN+"."+name, sig, ret)
		}
	}
}

func findChild(n *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == kind {
			return n.Child(i)
		}
	}
	return nil
}
