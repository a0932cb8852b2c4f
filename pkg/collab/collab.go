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

// Package collab declares the two out-of-scope collaborators this system
// hands its IR to: a labeled-property-graph writer and a project registry.
// Neither is implemented here — persistence and project
// lifecycle management are explicitly out of scope — only their contracts,
// plus an in-memory GraphWriter suitable for tests and for a caller that
// wants the pipeline's output without standing up a real graph store.
//
// The in-memory writer re-derives dedup sets from entity ids on every
// write, so re-running a scan never changes node or edge counts.
package collab

import (
	"context"
	"sync"
	"time"

	"github.com/kodemap/kodemap/pkg/ir"
)

// GraphWriter consumes a resolved, enriched IR for one project and persists
// it to a labeled property graph. Labels: Module, Type, Callable, Project.
// Relationship types: CONTAINS, DECLARES, EXTENDS, IMPLEMENTS, EMBEDS,
// CALLS, OVERRIDES, RETURNS. Writes must be idempotent:
// re-running WriteIR for the same project id and the same IR content must
// not change the resulting node or edge counts.
type GraphWriter interface {
	WriteIR(ctx context.Context, projectID string, result *ir.IR) error
	Stats(ctx context.Context, projectID string) (GraphStats, error)
}

// GraphStats summarizes one project's persisted graph.
type GraphStats struct {
	ModuleCount   int
	TypeCount     int
	CallableCount int
	EdgeCount     int
}

// ProjectRegistry provides project lifecycle management: create/lookup by
// path or id/list/archive/restore/purge. Purge requires the project to
// already be archived; archive stamps ArchivedAt; archived projects are
// hidden from List by default.
type ProjectRegistry interface {
	Create(ctx context.Context, path string) (Project, error)
	GetByPath(ctx context.Context, path string) (Project, error)
	GetByID(ctx context.Context, id string) (Project, error)
	List(ctx context.Context, includeArchived bool) ([]Project, error)
	Archive(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) error
}

// Project is one registered repository.
type Project struct {
	ID         string
	Path       string
	CreatedAt  time.Time
	ArchivedAt *time.Time
}

// MemoryGraphWriter is an in-memory GraphWriter, keyed by project id, whose
// node/edge counts are derived by re-deriving a dedup set from each write's
// entity ids rather than accumulating counters, which is what makes
// repeated writes of the same IR idempotent.
type MemoryGraphWriter struct {
	mu    sync.Mutex
	graph map[string]*projectGraph
}

type projectGraph struct {
	moduleIDs   map[string]struct{}
	typeIDs     map[string]struct{}
	callableIDs map[string]struct{}
	edges       map[string]struct{}
}

// NewMemoryGraphWriter returns an empty MemoryGraphWriter.
func NewMemoryGraphWriter() *MemoryGraphWriter {
	return &MemoryGraphWriter{graph: make(map[string]*projectGraph)}
}

func (w *MemoryGraphWriter) WriteIR(ctx context.Context, projectID string, result *ir.IR) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, ok := w.graph[projectID]
	if !ok {
		g = &projectGraph{
			moduleIDs:   make(map[string]struct{}),
			typeIDs:     make(map[string]struct{}),
			callableIDs: make(map[string]struct{}),
			edges:       make(map[string]struct{}),
		}
		w.graph[projectID] = g
	}

	for _, m := range result.Modules {
		g.moduleIDs[m.ID] = struct{}{}
		for _, typeID := range m.TypeIDs {
			g.edges[edgeKey(m.ID, typeID, ir.RelContains)] = struct{}{}
		}
		for _, subID := range m.SubModuleIDs {
			g.edges[edgeKey(m.ID, subID, ir.RelContains)] = struct{}{}
		}
	}
	for _, t := range result.Types {
		g.typeIDs[t.ID] = struct{}{}
		for _, callableID := range t.CallableIDs {
			g.edges[edgeKey(t.ID, callableID, ir.RelDeclares)] = struct{}{}
		}
		for _, superID := range t.Extends {
			g.edges[edgeKey(t.ID, superID, ir.RelExtends)] = struct{}{}
		}
		for _, ifaceID := range t.Implements {
			g.edges[edgeKey(t.ID, ifaceID, ir.RelImplement)] = struct{}{}
		}
		for _, embedID := range t.Embeds {
			g.edges[edgeKey(t.ID, embedID, ir.RelEmbeds)] = struct{}{}
		}
	}
	for _, c := range result.Callables {
		g.callableIDs[c.ID] = struct{}{}
		for _, calleeID := range c.CalleeIDs {
			g.edges[edgeKey(c.ID, calleeID, ir.RelCalls)] = struct{}{}
		}
		if c.OverriddenID != "" {
			g.edges[edgeKey(c.ID, c.OverriddenID, ir.RelOverrides)] = struct{}{}
		}
		if c.ReturnTypeID != "" {
			g.edges[edgeKey(c.ID, c.ReturnTypeID, ir.RelReturns)] = struct{}{}
		}
	}
	for _, rel := range result.Relationships {
		g.edges[edgeKey(rel.SourceID, rel.TargetID, rel.Type)] = struct{}{}
	}
	return nil
}

func (w *MemoryGraphWriter) Stats(ctx context.Context, projectID string) (GraphStats, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, ok := w.graph[projectID]
	if !ok {
		return GraphStats{}, nil
	}
	return GraphStats{
		ModuleCount:   len(g.moduleIDs),
		TypeCount:     len(g.typeIDs),
		CallableCount: len(g.callableIDs),
		EdgeCount:     len(g.edges),
	}, nil
}

func edgeKey(sourceID, targetID, relType string) string {
	return sourceID + "\x00" + targetID + "\x00" + relType
}
