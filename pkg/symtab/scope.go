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

package symtab

// Scope is the per-function local variable -> type name map, owned by the resolver for the duration of a single callable body
// walk. It is deliberately a thin wrapper over a map rather than a
// reference-counted structure: Copy() always takes an independent snapshot,
// so writes to a child scope (nested blocks, for/if/try branches, closures)
// never leak back to the parent.
type Scope struct {
	vars map[string]string
}

// NewScope returns an empty Scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]string)}
}

// Set records (or overwrites) the type of a variable name.
func (s *Scope) Set(name, typ string) {
	s.vars[name] = typ
}

// Lookup returns the declared type of a variable name, if known.
func (s *Scope) Lookup(name string) (string, bool) {
	t, ok := s.vars[name]
	return t, ok
}

// Copy returns an independent snapshot of the scope for a nested block,
// branch, or closure. Mutating the copy never affects s.
func (s *Scope) Copy() *Scope {
	cp := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		cp[k] = v
	}
	return &Scope{vars: cp}
}
