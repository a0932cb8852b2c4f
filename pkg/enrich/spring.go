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

// Package enrich implements the framework enrichers: post-phase passes that
// re-scan source and attach HTTP routes, DI edges, and stereotypes onto an
// already-resolved IR. Every enricher mutates its IR in place, tolerates
// unknown annotations, and is idempotent: running it twice on the same IR
// never appends a duplicate stereotype, route, or relationship.
package enrich

import (
	"context"
	"log/slog"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/kodemap/kodemap/internal/walk"
	"github.com/kodemap/kodemap/pkg/ir"
)

// Enricher is the contract every framework enricher satisfies: a name, the
// languages it applies to, and an in-place enrichment pass over one IR.
type Enricher interface {
	Name() string
	SupportedLanguages() []ir.Language
	Enrich(result *ir.IR, root string, files []walk.File, logger *slog.Logger) error
}

var springStereotypes = map[string]string{
	"Controller":            "spring:controller",
	"RestController":        "spring:controller",
	"Component":             "spring:component",
	"Service":               "spring:component",
	"Repository":            "spring:component",
	"Configuration":         "spring:component",
	"SpringBootApplication": "spring:component",
	"Entity":                "jpa:entity",
}

var springRouteAnnotations = map[string]string{
	"GetMapping":    "GET",
	"PostMapping":   "POST",
	"PutMapping":    "PUT",
	"DeleteMapping": "DELETE",
	"PatchMapping":  "PATCH",
}

var springRepoSupertypes = map[string]bool{
	"JpaRepository":              true,
	"CrudRepository":             true,
	"PagingAndSortingRepository": true,
}

var springInjectAnnotations = map[string]bool{
	"Autowired": true,
	"Inject":    true,
	"Resource":  true,
}

// Spring is the Java framework enricher: stereotype and route annotations,
// dependency-injection edges, and JpaRepository<Entity, ID> entity links.
type Spring struct{}

func (Spring) Name() string                     { return "spring" }
func (Spring) SupportedLanguages() []ir.Language { return []ir.Language{ir.Java} }

// Enrich re-parses every Java file, walking each type declaration for
// stereotype/route annotations and DI targets, and attaches the results to
// the matching IR entities by qualified name.
func (s Spring) Enrich(result *ir.IR, root string, files []walk.File, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	typeByQN := make(map[string]int, len(result.Types))
	for i, t := range result.Types {
		if t.Language == ir.Java {
			typeByQN[t.QualifiedName] = i
		}
	}
	callableByQN := make(map[string]int, len(result.Callables))
	for i, c := range result.Callables {
		if c.Language == ir.Java {
			callableByQN[c.QualifiedName] = i
		}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	for _, f := range files {
		if f.Language != ir.Java {
			continue
		}
		src, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("enrich.spring.read_error", "path", f.Path, "error", err)
			continue
		}
		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil || tree == nil {
			logger.Warn("enrich.spring.parse_error", "path", f.Path, "error", err)
			continue
		}
		s.walkFile(result, typeByQN, callableByQN, tree.RootNode(), src, "")
	}
	return nil
}

func (s Spring) walkFile(result *ir.IR, typeByQN, callableByQN map[string]int, n *sitter.Node, src []byte, pkg string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "package_declaration":
			pkg = packageText(c, src)
		case "class_declaration", "interface_declaration":
			s.enrichType(result, typeByQN, callableByQN, c, src, pkg)
		}
	}
}

func (s Spring) enrichType(result *ir.IR, typeByQN, callableByQN map[string]int, n *sitter.Node, src []byte, pkg string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	qn := pkg + "." + text(nameNode, src)
	if pkg == "" {
		qn = text(nameNode, src)
	}
	typeIdx, ok := typeByQN[qn]
	if !ok {
		return
	}

	classPrefix := ""
	for _, anno := range annotationTexts(n, src) {
		name := annotationName(anno)
		if stereotype, ok := springStereotypes[name]; ok {
			addStereotype(&result.Types[typeIdx].Stereotypes, stereotype)
		}
		if name == "RequestMapping" {
			classPrefix = normalizeRoutePath(annotationStringParam(anno))
		}
	}

	if n.Type() == "interface_declaration" {
		entity := jpaRepositoryEntity(n, src)
		if entity != "" {
			entityQN := resolveShortName(typeByQN, entity)
			if entityQN != "" {
				addRelationship(result, result.Types[typeIdx].ID, typeByQN[entityQN], ir.RelPersists)
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	ctorCount := 0
	for i := 0; i < int(body.ChildCount()); i++ {
		if body.Child(i).Type() == "constructor_declaration" {
			ctorCount++
		}
	}
	singleCtor := ctorCount == 1
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		switch member.Type() {
		case "method_declaration":
			s.enrichMethod(result, callableByQN, typeByQN, member, src, qn, classPrefix)
		case "constructor_declaration":
			s.enrichInjection(result, typeByQN, member, src, qn, singleCtor)
		case "field_declaration":
			s.enrichFieldInjection(result, typeByQN, member, src, qn)
		}
	}
}

func (s Spring) enrichMethod(result *ir.IR, callableByQN, typeByQN map[string]int, n *sitter.Node, src []byte, ownerQN, classPrefix string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	methodQN := ownerQN + "." + text(nameNode, src)
	callableIdx, ok := callableByQN[methodQN]
	if !ok {
		return
	}

	isBean := false
	for _, anno := range annotationTexts(n, src) {
		name := annotationName(anno)
		if verb, ok := springRouteAnnotations[name]; ok {
			path := normalizeRoutePath(joinPath(classPrefix, annotationStringParam(anno)))
			addRoute(&result.Callables[callableIdx].Routes, verb+" "+path)
			addStereotype(&result.Callables[callableIdx].Stereotypes, "spring:route")
		}
		if name == "RequestMapping" {
			method := "ANY"
			if m := annotationNamedParam(anno, "method"); m != "" {
				method = strings.ToUpper(lastDotSegment(m))
			}
			path := normalizeRoutePath(joinPath(classPrefix, annotationStringParam(anno)))
			addRoute(&result.Callables[callableIdx].Routes, method+" "+path)
			addStereotype(&result.Callables[callableIdx].Stereotypes, "spring:route")
		}
		if name == "Bean" {
			isBean = true
		}
	}

	// @Bean factory methods: every parameter is an injected dependency,
	// resolved the same way constructor/field injection targets are.
	if isBean {
		ownerIdx, ok := typeByQN[ownerQN]
		if !ok {
			return
		}
		params := n.ChildByFieldName("parameters")
		if params == nil {
			return
		}
		for i := 0; i < int(params.ChildCount()); i++ {
			p := params.Child(i)
			if p.Type() != "formal_parameter" {
				continue
			}
			typeNode := p.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			depShort := lastDotSegment(text(typeNode, src))
			depQN := resolveShortName(typeByQN, depShort)
			if depQN == "" {
				continue
			}
			addRelationship(result, result.Types[ownerIdx].ID, typeByQN[depQN], ir.RelInjects)
		}
	}
}

func (s Spring) enrichInjection(result *ir.IR, typeByQN map[string]int, n *sitter.Node, src []byte, ownerQN string, singleCtor bool) {
	ownerIdx, ok := typeByQN[ownerQN]
	if !ok {
		return
	}
	hasAnno := hasAnyAnnotation(n, src, springInjectAnnotations)
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	hasParams := false
	for i := 0; i < int(params.ChildCount()); i++ {
		if params.Child(i).Type() == "formal_parameter" {
			hasParams = true
			break
		}
	}
	// A sole non-default constructor is treated as implicit @Autowired,
	//.7; a second, non-annotated constructor is not.
	if !hasAnno && !(singleCtor && hasParams) {
		return
	}
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		if p.Type() != "formal_parameter" {
			continue
		}
		typeNode := p.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		depShort := lastDotSegment(text(typeNode, src))
		depQN := resolveShortName(typeByQN, depShort)
		if depQN == "" {
			continue
		}
		addRelationship(result, result.Types[ownerIdx].ID, typeByQN[depQN], ir.RelInjects)
	}
}

func (s Spring) enrichFieldInjection(result *ir.IR, typeByQN map[string]int, n *sitter.Node, src []byte, ownerQN string) {
	if !hasAnyAnnotation(n, src, springInjectAnnotations) {
		return
	}
	ownerIdx, ok := typeByQN[ownerQN]
	if !ok {
		return
	}
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	depShort := lastDotSegment(text(typeNode, src))
	depQN := resolveShortName(typeByQN, depShort)
	if depQN == "" {
		return
	}
	addRelationship(result, result.Types[ownerIdx].ID, typeByQN[depQN], ir.RelInjects)
}

// jpaRepositoryEntity returns the entity short-name from an `extends
// JpaRepository<Entity, ID>`-shaped extends_interfaces clause, "" if the
// interface does not extend a known Spring Data repository base.
func jpaRepositoryEntity(n *sitter.Node, src []byte) string {
	ei := findChild(n, "extends_interfaces")
	if ei == nil {
		return ""
	}
	raw := text(ei, src)
	for base := range springRepoSupertypes {
		idx := strings.Index(raw, base+"<")
		if idx < 0 {
			continue
		}
		rest := raw[idx+len(base)+1:]
		end := strings.IndexByte(rest, ',')
		if end < 0 {
			end = strings.IndexByte(rest, '>')
		}
		if end < 0 {
			continue
		}
		return strings.TrimSpace(rest[:end])
	}
	return ""
}

func resolveShortName(typeByQN map[string]int, short string) string {
	if _, ok := typeByQN[short]; ok {
		return short
	}
	var match string
	matches := 0
	for qn := range typeByQN {
		if lastDotSegment(qn) == short {
			match = qn
			matches++
		}
	}
	if matches == 1 {
		return match
	}
	return ""
}

func addRelationship(result *ir.IR, sourceID string, targetIdx int, relType string) {
	if targetIdx < 0 || targetIdx >= len(result.Types) {
		return
	}
	targetID := result.Types[targetIdx].ID
	for _, rel := range result.Relationships {
		if rel.SourceID == sourceID && rel.TargetID == targetID && rel.Type == relType {
			return
		}
	}
	result.Relationships = append(result.Relationships, ir.Relationship{
		SourceID: sourceID, TargetID: targetID, Type: relType,
	})
}

func addStereotype(list *[]string, value string) {
	for _, s := range *list {
		if s == value {
			return
		}
	}
	*list = append(*list, value)
}

func addRoute(list *[]string, value string) {
	for _, r := range *list {
		if r == value {
			return
		}
	}
	*list = append(*list, value)
}

func normalizeRoutePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func joinPath(prefix, suffix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if suffix == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	return prefix + suffix
}

func lastDotSegment(s string) string {
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func hasAnyAnnotation(n *sitter.Node, src []byte, want map[string]bool) bool {
	for _, a := range annotationTexts(n, src) {
		if want[annotationName(a)] {
			return true
		}
	}
	return false
}

func annotationTexts(n *sitter.Node, src []byte) []string {
	var out []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "marker_annotation" || c.Type() == "annotation" {
			out = append(out, text(c, src))
		}
		if c.Type() == "modifiers" {
			out = append(out, annotationTexts(c, src)...)
		}
	}
	return out
}

// annotationName returns the bare annotation identifier ("GetMapping" from
// "@GetMapping(\"/x\")").
func annotationName(anno string) string {
	anno = strings.TrimPrefix(anno, "@")
	if idx := strings.IndexAny(anno, "( "); idx >= 0 {
		anno = anno[:idx]
	}
	return strings.TrimSpace(anno)
}

// annotationStringParam extracts the first string literal argument, used
// for both the unnamed value of `@GetMapping("/x")` and `@RequestMapping`.
func annotationStringParam(anno string) string {
	idx := strings.IndexByte(anno, '"')
	if idx < 0 {
		return ""
	}
	rest := anno[idx+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// annotationNamedParam extracts `name = <value>` from an annotation body,
// e.g. `method = RequestMethod.POST` → "RequestMethod.POST".
func annotationNamedParam(anno, name string) string {
	idx := strings.Index(anno, name)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(anno[idx+len(name):])
	if !strings.HasPrefix(rest, "=") {
		return ""
	}
	rest = strings.TrimSpace(rest[1:])
	end := strings.IndexAny(rest, ",)")
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimSpace(rest[:end])
}

func packageText(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return text(c, src)
		}
	}
	return ""
}

func text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func findChild(n *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == nodeType {
			return n.Child(i)
		}
	}
	return nil
}
