// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package notebook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.cellref.dev/resolve"
)

const sample = `# cell: setup
import numpy as np
---
# cell: load
data = np.arange(10)
---
# cell: stats
mean = np.mean(data)
spread = data.std()
---
total = mean + spread
`

func TestSplit(t *testing.T) {
	cells := Split(sample)
	wantIDs := []string{"setup", "load", "stats", "cell4"}
	if len(cells) != len(wantIDs) {
		t.Fatalf("Split: got %d cells, want %d", len(cells), len(wantIDs))
	}
	for i, id := range wantIDs {
		if cells[i].ID != id {
			t.Errorf("cell %d has ID %q, want %q", i, cells[i].ID, id)
		}
	}
	if want := "data = np.arange(10)"; cells[1].Source != want {
		t.Errorf("load source = %q, want %q", cells[1].Source, want)
	}
}

func TestBuildTable(t *testing.T) {
	table := BuildTable(Split(sample))
	for name, want := range map[string]resolve.Binding{
		"np":     {Cells: []string{"setup"}, Kind: resolve.KindModule},
		"data":   {Cells: []string{"load"}},
		"mean":   {Cells: []string{"stats"}},
		"spread": {Cells: []string{"stats"}},
		"total":  {Cells: []string{"cell4"}},
	} {
		if diff := cmp.Diff(want, table[name]); diff != "" {
			t.Errorf("table[%q] mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestBuildTableConflict(t *testing.T) {
	cells := []Cell{
		{ID: "c1", Source: "x = 1\n"},
		{ID: "c2", Source: "x = 2\n"},
	}
	table := BuildTable(cells)
	if got := table.Owners("x"); !cmp.Equal(got, []string{"c1", "c2"}) {
		t.Errorf("Owners(x) = %v, want both defining cells", got)
	}
}

func TestGraph(t *testing.T) {
	graph := Graph(Split(sample), "")
	want := map[string][]string{
		"setup": nil,
		"load":  nil, // np is module-like, not a reactive edge
		"stats": {"load"},
		"cell4": {"stats"},
	}
	if diff := cmp.Diff(want, graph); diff != "" {
		t.Errorf("Graph mismatch (-want +got):\n%s", diff)
	}
}

func TestGraphSetupCell(t *testing.T) {
	cells := []Cell{
		{ID: "setup", Source: "base = 10\n"},
		{ID: "calc", Source: "y = base + 1\n"},
	}
	graph := Graph(cells, "setup")
	if len(graph["calc"]) != 0 {
		t.Errorf("calc depends on %v; setup bindings must not be reactive", graph["calc"])
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nb.py")
	if err := os.WriteFile(path, []byte(sample), 0o666); err != nil {
		t.Fatal(err)
	}
	cells, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 4 {
		t.Fatalf("got %d cells, want 4", len(cells))
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Error("ReadFile on a missing file: got nil error")
	}
}

func TestTableRoundTrip(t *testing.T) {
	table := resolve.Table{
		"data": {Cells: []string{"load"}},
		"np":   {Cells: []string{"setup"}, Kind: resolve.KindModule},
		"mean": {Cells: []string{"stats", "alt"}},
	}
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	if err := SaveTable(path, table); err != nil {
		t.Fatal(err)
	}
	got, err := LoadTable(path)
	if err != nil {
		t.Fatal(err)
	}
	want := resolve.Table{
		"data": {Cells: []string{"load"}},
		"np":   {Cells: []string{"setup"}, Kind: resolve.KindModule},
		"mean": {Cells: []string{"alt", "stats"}}, // owners are sorted on save
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTableBadKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	src := "bindings:\n  x:\n    cells: [c1]\n    kind: banana\n"
	if err := os.WriteFile(path, []byte(src), 0o666); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Error("LoadTable with unknown kind: got nil error")
	}
}

func TestSessionCommitReplaces(t *testing.T) {
	s := NewSession(nil, "")
	s.Commit(Cell{ID: "c1", Source: "a = 1\nb = 2\n"})
	s.Commit(Cell{ID: "c1", Source: "a = 1\n"})

	table := s.Table()
	if _, ok := table["b"]; ok {
		t.Error("b still in table after recommit without it")
	}
	if got := table.Owners("a"); !cmp.Equal(got, []string{"c1"}) {
		t.Errorf("Owners(a) = %v, want [c1]", got)
	}
}

func TestSessionAnalyze(t *testing.T) {
	s := NewSession(resolve.Table{"base": {Cells: []string{"c0"}}}, "")
	refs, ok := s.Analyze(Cell{ID: "c1", Source: "y = base * 2\n"})
	if !ok || len(refs) != 1 || refs[0].Name != "base" {
		t.Errorf("Analyze: refs = %v, ok = %v, want one ref to base", refs, ok)
	}
}
