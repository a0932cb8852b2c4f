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

// Package ir defines the language-neutral intermediate representation
// produced by the scanners and resolvers in pkg/lang/*: modules, types,
// callables, unresolved references, and the relationships between them.
package ir

// Language tags the source language an entity was extracted from. Every
// entity carries its own tag; merging collections never rewrites it.
type Language string

const (
	Java Language = "java"
	Go   Language = "go"
	PHP  Language = "php"
)

// Kind distinguishes the flavors of Type.
type Kind string

const (
	KindClass     Kind = "CLASS"
	KindInterface Kind = "INTERFACE"
	KindStruct    Kind = "STRUCT"
	KindEnum      Kind = "ENUM"
	KindTrait     Kind = "TRAIT"
)

// CallableKind distinguishes functions, methods, and constructors.
type CallableKind string

const (
	CallableFunction    CallableKind = "FUNCTION"
	CallableMethod      CallableKind = "METHOD"
	CallableConstructor CallableKind = "CONSTRUCTOR"
)

// Visibility mirrors the four access levels the supported languages can
// express; PHP and Java both have all four, Go only public/package.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityPackage   Visibility = "package"
)

// Module represents a namespace or package boundary: a Java package, a Go
// package, or a PHP namespace.
type Module struct {
	ID            string
	Name          string
	QualifiedName string
	Path          string
	Language      Language
	TypeIDs       []string
	SubModuleIDs  []string
}

// Type represents a class, interface, struct, trait, or enum.
type Type struct {
	ID            string
	Name          string
	QualifiedName string
	Kind          Kind
	Language      Language
	Modifiers     []string
	Annotations   []string
	Stereotypes   []string
	Extends       []string
	Implements    []string
	Embeds        []string
	CallableIDs   []string
}

// Callable represents a function, method, or constructor.
type Callable struct {
	ID            string
	Name          string
	QualifiedName string
	Signature     string
	Kind          CallableKind
	Language      Language
	IsStatic      bool
	Visibility    Visibility
	ReturnTypeID  string
	Annotations   []string
	Stereotypes   []string
	Routes        []string
	CalleeIDs     []string
	OverriddenID  string
}

// UnresolvedReference records a call site that could not be statically
// bound to a declared callable.
type UnresolvedReference struct {
	SourceCallableID string
	TargetName       string
	Context          string
	Reason           string
}

// Relationship is a semantic edge added by an enricher, not intrinsic to
// the source language's own syntax (e.g. INJECTS, PERSISTS).
type Relationship struct {
	SourceID string
	TargetID string
	Type     string
}

// Well-known relationship type names used by the core resolver and by
// enrichers.
const (
	RelContains  = "CONTAINS"
	RelDeclares  = "DECLARES"
	RelExtends   = "EXTENDS"
	RelImplement = "IMPLEMENTS"
	RelEmbeds    = "EMBEDS"
	RelCalls     = "CALLS"
	RelOverrides = "OVERRIDES"
	RelReturns   = "RETURNS"
	RelInjects   = "INJECTS"
	RelPersists  = "PERSISTS"
)

// IR is the root of the intermediate representation for one or more
// merged language scans.
type IR struct {
	Modules       []Module
	Types         []Type
	Callables     []Callable
	Unresolved    []UnresolvedReference
	Relationships []Relationship
	Version       string
	// Language is an aggregate tag, informational only: it reflects the
	// language of whichever scan most recently contributed to this IR and
	// must never be trusted over an individual entity's own tag.
	Language Language
}

// New returns an empty IR carrying the given aggregate language tag.
func New(version string, lang Language) *IR {
	return &IR{Version: version, Language: lang}
}
