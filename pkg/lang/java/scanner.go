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

// Scan implements Phase 1 for Java: walk every file in sorted order,
// registering every (possibly nested) type declaration and its methods and
// constructors with their canonical signatures, recording the
// extends/implements type hierarchy, and registering each package's module
// id.
func Scan(root string, files []walk.File, idgen *ir.IDGenerator, logger *slog.Logger) (*symtab.Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tab := symtab.New()
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	for _, f := range files {
		src, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("java.scan.read_error", "path", f.Path, "error", err)
			continue
		}
		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil || tree == nil {
			logger.Warn("java.scan.parse_error", "path", f.Path, "error", err)
			continue
		}
		fileRoot := tree.RootNode()
		pkg := moduleQualifier(f.Path, packageName(fileRoot, src))
		imps := imports(fileRoot, src)

		if _, ok := tab.ModuleID(pkg); !ok {
			tab.AddModule(pkg, idgen.ModuleID(ir.Java, pkg))
		}
		for i := 0; i < int(fileRoot.ChildCount()); i++ {
			scanTopLevel(tab, fileRoot.Child(i), src, pkg, imps)
		}
	}
	return tab, nil
}

func scanTopLevel(tab *symtab.Table, n *sitter.Node, src []byte, pkg string, imps []javaImport) {
	switch n.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		scanTypeDecl(tab, n, src, pkg, imps)
	}
}

// qualifySupertype maps a supertype's short name to the qualified name the
// hierarchy is keyed by: an explicit import wins, otherwise the short name
// is assumed to live in the current package (a forward reference the
// resolver re-checks against the full table in Phase 2).
func qualifySupertype(short, pkg string, imps []javaImport) string {
	suffix := "." + short
	for _, imp := range imps {
		if !imp.Static && !imp.Wildcard && strings.HasSuffix(imp.Qualified, suffix) {
			return imp.Qualified
		}
	}
	return qualify(pkg, short)
}

// scanTypeDecl registers one type (class/interface/enum/record) under its
// qualified name, records its supertype edges, and recurses into its body
// for nested type declarations and members.
func scanTypeDecl(tab *symtab.Table, n *sitter.Node, src []byte, pkg string, imps []javaImport) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	qn := qualify(pkg, name)
	tab.AddType(name, qn)

	switch n.Type() {
	case "class_declaration":
		if sc := findChild(n, "superclass"); sc != nil {
			for _, super := range superTypeNames(sc, src) {
				tab.AddSupertype(qn, qualifySupertype(super, pkg, imps))
			}
		}
		if si := findChild(n, "super_interfaces"); si != nil {
			for _, iface := range typeList(si, src) {
				tab.AddSupertype(qn, qualifySupertype(iface, pkg, imps))
			}
		}
	case "interface_declaration":
		if ei := findChild(n, "extends_interfaces"); ei != nil {
			for _, iface := range typeList(ei, src) {
				tab.AddSupertype(qn, qualifySupertype(iface, pkg, imps))
			}
		}
	case "enum_declaration", "record_declaration":
		if si := findChild(n, "super_interfaces"); si != nil {
			for _, iface := range typeList(si, src) {
				tab.AddSupertype(qn, qualifySupertype(iface, pkg, imps))
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		switch member.Type() {
		case "method_declaration":
			scanMethod(tab, member, src, qn)
		case "constructor_declaration":
			scanConstructor(tab, member, src, qn)
		case "field_declaration":
			scanField(tab, member, src, qn)
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			scanTypeDecl(tab, member, src, qn, imps)
		}
	}
}

func scanMethod(tab *symtab.Table, n *sitter.Node, src []byte, ownerQN string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	qn := ownerQN + "." + name
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	ret := returnTypeOf(n, src)
	tab.AddCallable(name, qn, sig, ret)
}

func scanConstructor(tab *symtab.Table, n *sitter.Node, src []byte, ownerQN string) {
	nameNode := n.ChildByFieldName("name")
	name := "<init>"
	if nameNode != nil {
		name = text(nameNode, src)
	}
	qn := ownerQN + ".<init>"
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	tab.AddCallable(name, qn, sig, "")
}

func scanField(tab *symtab.Table, n *sitter.Node, src []byte, ownerQN string) {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	fieldType := typeIdentifier(typeNode, src)
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "variable_declarator" {
			continue
		}
		if nameNode := c.ChildByFieldName("name"); nameNode != nil {
			tab.AddFieldType(ownerQN, text(nameNode, src), fieldType)
		}
	}
}

// moduleQualifier computes the qualified package name for a Java file,
// falling back to the directory path (dot-joined) when no package
// declaration is present.
func moduleQualifier(relPath, pkg string) string {
	if pkg != "" {
		return pkg
	}
	dir := path.Dir(relPath)
	if dir == "." {
		return ""
	}
	return strings.ReplaceAll(dir, "/", ".")
}
