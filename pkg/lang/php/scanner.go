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

// Scan implements Phase 1 for PHP: walk every file in sorted order,
// registering every class/interface/trait declaration and its methods with
// their canonical signatures, plus free functions and each namespace's
// module id, and recording the extends/implements hierarchy via
// base_clause/class_interface_clause.
func Scan(root string, files []walk.File, idgen *ir.IDGenerator, logger *slog.Logger) (*symtab.Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tab := symtab.New()
	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())

	for _, f := range files {
		src, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("php.scan.read_error", "path", f.Path, "error", err)
			continue
		}
		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil || tree == nil {
			logger.Warn("php.scan.parse_error", "path", f.Path, "error", err)
			continue
		}
		fileRoot := tree.RootNode()
		ns := namespaceName(fileRoot, src)
		qualNS := moduleQualifier(f.Path, ns)
		if _, ok := tab.ModuleID(qualNS); !ok {
			tab.AddModule(qualNS, idgen.ModuleID(ir.PHP, qualNS))
		}
		scanNode(tab, fileRoot, src, ns, uses(fileRoot, src))
	}
	return tab, nil
}

func scanNode(tab *symtab.Table, n *sitter.Node, src []byte, ns string, imps []phpUse) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "namespace_definition":
			childNs := ns
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				childNs = qualified(text(nameNode, src))
			}
			if body := c.ChildByFieldName("body"); body != nil {
				scanNode(tab, body, src, childNs, imps)
			} else {
				scanNode(tab, c, src, childNs, imps)
			}
		case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
			scanTypeDecl(tab, c, src, ns, imps)
		case "function_definition":
			scanFunction(tab, c, src, ns)
		}
	}
}

// qualifySupertype maps a supertype's short name to the qualified name the
// hierarchy is keyed by: a `use` import wins, otherwise the short name is
// assumed to live in the current namespace (a forward reference the
// resolver re-checks against the full table in Phase 2).
func qualifySupertype(short, ns string, imps []phpUse) string {
	for _, u := range imps {
		if u.Alias == short {
			return u.Qualified
		}
	}
	return qualify(ns, short)
}

func scanTypeDecl(tab *symtab.Table, n *sitter.Node, src []byte, ns string, imps []phpUse) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	qn := qualify(ns, name)
	tab.AddType(name, qn)

	if base := findChild(n, "base_clause"); base != nil {
		for _, super := range typeNameList(base, src) {
			tab.AddSupertype(qn, qualifySupertype(super, ns, imps))
		}
	}
	if iface := findChild(n, "class_interface_clause"); iface != nil {
		for _, super := range typeNameList(iface, src) {
			tab.AddSupertype(qn, qualifySupertype(super, ns, imps))
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
		case "property_declaration":
			scanProperty(tab, member, src, qn)
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

func scanFunction(tab *symtab.Table, n *sitter.Node, src []byte, ns string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, src)
	qn := qualify(ns, name)
	sig := paramSignature(n.ChildByFieldName("parameters"), src)
	ret := returnTypeOf(n, src)
	tab.AddCallable(name, qn, sig, ret)
}

func scanProperty(tab *symtab.Table, n *sitter.Node, src []byte, ownerQN string) {
	typeNode := n.ChildByFieldName("type")
	fieldType := "mixed"
	if typeNode != nil {
		fieldType = typeIdentifier(typeNode, src)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "property_element" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		fieldName := strings.TrimPrefix(text(nameNode, src), "$")
		tab.AddFieldType(ownerQN, fieldName, fieldType)
	}
}

// moduleQualifier falls back to a directory-derived namespace for files
// with no explicit `namespace` declaration, mirroring the Java convention
// of sub-packages following directory structure.
func moduleQualifier(relPath, ns string) string {
	if ns != "" {
		return ns
	}
	dir := path.Dir(relPath)
	if dir == "." {
		return ""
	}
	return strings.ReplaceAll(dir, "/", ".")
}
