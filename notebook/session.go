// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package notebook

import (
	"sync"

	"go.cellref.dev/resolve"
	"go.cellref.dev/syntax"
)

// A Session holds the evolving binding table of a live notebook and
// resolves cell edits against it. Resolution itself is pure, so a
// Session only has to guard the table and discard results that arrive
// for a superseded edit.
type Session struct {
	mu    sync.Mutex
	table resolve.Table
	setup string
	gen   map[string]uint64 // per-cell edit generation
}

// NewSession returns a Session seeded with the given table. The table
// may be nil; cells folded in with Commit extend it.
func NewSession(table resolve.Table, setup string) *Session {
	if table == nil {
		table = make(resolve.Table)
	}
	return &Session{table: table, setup: setup, gen: make(map[string]uint64)}
}

// Table returns a snapshot of the session's binding table.
func (s *Session) Table() resolve.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(resolve.Table, len(s.table))
	for name, b := range s.table {
		snap[name] = resolve.Binding{
			Cells: append([]string(nil), b.Cells...),
			Kind:  b.Kind,
		}
	}
	return snap
}

// Analyze resolves one revision of a cell's source. The returned refs
// are nil, and ok is false, if a newer revision of the same cell was
// analyzed first; callers then drop the result rather than display it.
func (s *Session) Analyze(cell Cell) (refs []resolve.Ref, ok bool) {
	s.mu.Lock()
	s.gen[cell.ID]++
	gen := s.gen[cell.ID]
	table := s.table
	s.mu.Unlock()

	tree := syntax.Parse(cell.Source)
	refs = resolve.Resolve(cell.Source, tree, table, resolve.Options{
		Cell:  cell.ID,
		Setup: s.setup,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[cell.ID] != gen {
		return nil, false
	}
	return refs, true
}

// Commit folds a cell's module-scope definitions into the session
// table, replacing whatever the cell defined before.
func (s *Session) Commit(cell Cell) {
	tree := syntax.Parse(cell.Source)
	defs := resolve.Defs(cell.Source, tree)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Analyze resolves against its snapshot outside the lock, so the
	// table is replaced rather than mutated in place.
	next := make(resolve.Table, len(s.table)+len(defs))
	for name, b := range s.table {
		var cells []string
		for _, id := range b.Cells {
			if id != cell.ID {
				cells = append(cells, id)
			}
		}
		if len(cells) > 0 {
			next[name] = resolve.Binding{Cells: cells, Kind: b.Kind}
		}
	}
	for _, def := range defs {
		b := next[def.Name]
		if len(b.Cells) == 0 || def.Kind == resolve.KindValue {
			b.Kind = def.Kind
		}
		b.Cells = append(b.Cells, cell.ID)
		next[def.Name] = b
	}
	s.table = next
}
