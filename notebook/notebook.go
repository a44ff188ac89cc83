// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package notebook models the environment side of the resolver's
// contract: cells, the cross-cell binding table, and the dependency
// graph between cells.
//
// A notebook file is a sequence of cell sources separated by "---"
// lines. A cell may name itself with a first-line comment of the form
// "# cell: ident"; unnamed cells are numbered cell1, cell2, ...
package notebook // import "go.cellref.dev/notebook"

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.cellref.dev/resolve"
	"go.cellref.dev/syntax"
)

// A Cell is one independently identified unit of source text.
type Cell struct {
	ID     string
	Source string
}

// Split splits notebook text into cells.
func Split(text string) []Cell {
	var cells []Cell
	for i, chunk := range strings.Split(text, "\n---\n") {
		id := fmt.Sprintf("cell%d", i+1)
		if name, rest, ok := cellHeader(chunk); ok {
			id = name
			chunk = rest
		}
		cells = append(cells, Cell{ID: id, Source: chunk})
	}
	return cells
}

// ReadFile reads a notebook file and splits it into cells.
func ReadFile(path string) ([]Cell, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading notebook: %w", err)
	}
	return Split(string(data)), nil
}

// cellHeader recognizes a "# cell: ident" first line and returns the
// identifier and the remaining source.
func cellHeader(chunk string) (id, rest string, ok bool) {
	line := chunk
	if i := strings.IndexByte(chunk, '\n'); i >= 0 {
		line, rest = chunk[:i], chunk[i+1:]
	}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "# cell:") {
		return "", "", false
	}
	id = strings.TrimSpace(strings.TrimPrefix(trimmed, "# cell:"))
	if id == "" {
		return "", "", false
	}
	return id, rest, true
}

// BuildTable assembles the binding table for a set of cells: every name
// any cell binds at module scope, attributed to its defining cell(s).
// Imported names carry KindModule so they are excluded from candidate
// sets.
func BuildTable(cells []Cell) resolve.Table {
	table := make(resolve.Table)
	for _, cell := range cells {
		tree := syntax.Parse(cell.Source)
		for _, def := range resolve.Defs(cell.Source, tree) {
			b := table[def.Name]
			// A value binding anywhere outranks a module binding: the
			// name then carries real data between cells.
			if len(b.Cells) == 0 || def.Kind == resolve.KindValue {
				b.Kind = def.Kind
			}
			b.Cells = append(b.Cells, cell.ID)
			table[def.Name] = b
		}
	}
	return table
}

// Refs resolves one cell of the notebook against the given table.
func Refs(cell Cell, table resolve.Table, setup string) []resolve.Ref {
	tree := syntax.Parse(cell.Source)
	return resolve.Resolve(cell.Source, tree, table, resolve.Options{
		Cell:  cell.ID,
		Setup: setup,
	})
}

// Graph resolves every cell against the notebook's own table and
// returns the dependency graph: for each cell, the sorted identifiers
// of the cells it reads values from. Cells with no dependencies map to
// a nil slice.
func Graph(cells []Cell, setup string) map[string][]string {
	table := BuildTable(cells)
	graph := make(map[string][]string, len(cells))
	for _, cell := range cells {
		seen := make(map[string]bool)
		for _, ref := range Refs(cell, table, setup) {
			for _, owner := range table.Owners(ref.Name) {
				if owner != cell.ID {
					seen[owner] = true
				}
			}
		}
		var deps []string
		for owner := range seen {
			deps = append(deps, owner)
		}
		sort.Strings(deps)
		graph[cell.ID] = deps
	}
	return graph
}
