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

package collab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kodemap/kodemap/pkg/ir"
)

func sampleIR() *ir.IR {
	r := ir.New("1", ir.Go)
	r.Modules = append(r.Modules, ir.Module{ID: "mod1", Name: "svc", TypeIDs: []string{"type1"}})
	r.Types = append(r.Types, ir.Type{ID: "type1", Name: "Widget", CallableIDs: []string{"call1"}})
	r.Callables = append(r.Callables, ir.Callable{ID: "call1", Name: "Run", CalleeIDs: []string{"call1"}})
	return r
}

// TestMemoryGraphWriterIdempotent covers write idempotence: re-running
// WriteIR with the same IR must not change the resulting node/edge counts.
func TestMemoryGraphWriterIdempotent(t *testing.T) {
	w := NewMemoryGraphWriter()
	ctx := context.Background()
	result := sampleIR()

	require.NoError(t, w.WriteIR(ctx, "proj", result))
	first, err := w.Stats(ctx, "proj")
	require.NoError(t, err)

	require.NoError(t, w.WriteIR(ctx, "proj", result))
	second, err := w.Stats(ctx, "proj")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, second.ModuleCount)
	require.Equal(t, 1, second.TypeCount)
	require.Equal(t, 1, second.CallableCount)
	require.True(t, second.EdgeCount > 0)
}

// TestMemoryGraphWriterStatsUnknownProject covers the lookup-miss case:
// Stats for a project never written must return a zero value, not an error.
func TestMemoryGraphWriterStatsUnknownProject(t *testing.T) {
	w := NewMemoryGraphWriter()
	stats, err := w.Stats(context.Background(), "missing")
	require.NoError(t, err)
	require.Equal(t, GraphStats{}, stats)
}

// TestMemoryGraphWriterSeparatesProjects covers per-project isolation: a
// write to one project id must not affect another's stats.
func TestMemoryGraphWriterSeparatesProjects(t *testing.T) {
	w := NewMemoryGraphWriter()
	ctx := context.Background()
	require.NoError(t, w.WriteIR(ctx, "a", sampleIR()))

	statsB, err := w.Stats(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, GraphStats{}, statsB)

	statsA, err := w.Stats(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 1, statsA.ModuleCount)
}
