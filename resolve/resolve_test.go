// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.cellref.dev/internal/chunkedfile"
	"go.cellref.dev/resolve"
	"go.cellref.dev/syntax"
)

// table is a fixed environment used by the scenario tests: every name
// is a value binding owned by a cell other than the one under analysis,
// except np, which is module-like.
var table = resolve.Table{
	"a":      {Cells: []string{"other"}},
	"b":      {Cells: []string{"other"}},
	"z":      {Cells: []string{"other"}},
	"x":      {Cells: []string{"other"}},
	"data":   {Cells: []string{"other"}},
	"polars": {Cells: []string{"other"}},
	"np":     {Cells: []string{"other"}, Kind: resolve.KindModule},
}

func resolveNames(t *testing.T, src string) []string {
	t.Helper()
	refs := resolve.Resolve(src, syntax.Parse(src), table, resolve.Options{Cell: "this"})
	var names []string
	for _, ref := range refs {
		if got := src[ref.From:ref.To]; got != ref.Name {
			t.Errorf("%q: ref %q has span [%d,%d) covering %q", src, ref.Name, ref.From, ref.To, got)
		}
		names = append(names, ref.Name)
	}
	sort.Strings(names)
	return names
}

func TestResolveScenarios(t *testing.T) {
	for _, test := range []struct {
		src  string
		want []string
	}{
		// Free references under each scope-introducing form.
		{"def foo(a): return a + b\n", []string{"b"}},
		{"result = [a for a in data]\n", []string{"data"}},
		{"f = lambda x, y: x + y + z\n", []string{"z"}},
		{"class MyClass:\n    value = a + b\n", []string{"a", "b"}},

		// A class-body name becomes an attribute, never a lexical
		// variable visible to the methods beneath it.
		{"class C:\n    a = 1\n    def m(self):\n        return a\n", []string{"a"}},
		{"def run(polars): return polars + x\n", []string{"x"}},

		// A name read twice is reported twice.
		{"y = a + a\n", []string{"a", "a"}},

		// Module-scope assignment hides the external binding
		// everywhere in the cell, regardless of position.
		{"print(a)\na = 1\n", nil},

		// Comprehension variables stay inside the comprehension.
		{"out = [x for x in data]\nprint(x)\n", []string{"data", "x"}},

		// Walrus inside a comprehension escapes it.
		{"out = [b := n for n in data]\nprint(b)\n", []string{"data"}},

		// Imports bind; star-imports conservatively do not.
		{"import numpy as a\nprint(a)\n", nil},
		{"from math import *\nprint(a)\n", []string{"a"}},

		// Module-like bindings are not candidates.
		{"np.mean(data)\n", []string{"data"}},

		// Keyword labels and attribute selectors are not reads.
		{"plot(a=1)\n", nil},
		{"obj.a\n", nil},

		// Targets bind; only the right-hand side is read.
		{"a, c = data, b\n", []string{"b", "data"}},
		{"a, *b, c = data\nprint(b)\n", []string{"data"}}, // the star target binds b
		{"a += b\n", []string{"b"}}, // a is bound by the statement itself
		{"for a in data:\n    pass\n", []string{"data"}},

		// global and nonlocal are not interpreted.
		{"def f():\n    global a\n    a = 1\n    return b\n", []string{"b"}},
	} {
		got := resolveNames(t, test.src)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestResolveSpans(t *testing.T) {
	src := "y = a + b\n"
	refs := resolve.Resolve(src, syntax.Parse(src), table, resolve.Options{Cell: "this"})
	want := []resolve.Ref{
		{From: 4, To: 5, Name: "a"},
		{From: 8, To: 9, Name: "b"},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", src, diff)
	}
}

func TestResolveIdempotent(t *testing.T) {
	src := "def f(n):\n    return [a * n for n in data]\n"
	tree := syntax.Parse(src)
	first := resolve.Resolve(src, tree, table, resolve.Options{Cell: "this"})
	second := resolve.Resolve(src, tree, table, resolve.Options{Cell: "this"})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated resolution differs (-first +second):\n%s", diff)
	}
}

func TestResolveMalformed(t *testing.T) {
	for _, src := range []string{
		"def f(:\n",
		"x = (a +\n",
		"class\n",
	} {
		if refs := resolve.Resolve(src, syntax.Parse(src), table, resolve.Options{Cell: "this"}); refs != nil {
			t.Errorf("Resolve(%q) = %v, want nil for malformed input", src, refs)
		}
	}
}

func TestResolveOptions(t *testing.T) {
	tbl := resolve.Table{
		"a": {Cells: []string{"c1"}},
		"b": {Cells: []string{"setup"}},
	}
	src := "y = a + b\n"
	tree := syntax.Parse(src)

	// From a third cell both names resolve.
	if got := len(resolve.Resolve(src, tree, tbl, resolve.Options{Cell: "c9"})); got != 2 {
		t.Errorf("got %d refs, want 2", got)
	}
	// The cell's own names are not candidates.
	refs := resolve.Resolve(src, tree, tbl, resolve.Options{Cell: "c1"})
	if len(refs) != 1 || refs[0].Name != "b" {
		t.Errorf("from c1: got %v, want only b", refs)
	}
	// Neither are the setup cell's.
	refs = resolve.Resolve(src, tree, tbl, resolve.Options{Cell: "c9", Setup: "setup"})
	if len(refs) != 1 || refs[0].Name != "a" {
		t.Errorf("with setup: got %v, want only a", refs)
	}
}

func TestCandidatesOwners(t *testing.T) {
	tbl := resolve.Table{
		"a":  {Cells: []string{"c2", "c1"}},
		"b":  {Cells: []string{"c1"}},
		"np": {Cells: []string{"c3"}, Kind: resolve.KindModule},
	}
	cands := tbl.Candidates("c1", "")
	if cands["a"] || cands["b"] || cands["np"] {
		t.Errorf("Candidates(c1) = %v: own and module names must be excluded", cands)
	}
	cands = tbl.Candidates("c9", "")
	if !cands["a"] || !cands["b"] || cands["np"] {
		t.Errorf("Candidates(c9) = %v, want a and b only", cands)
	}
	if got := tbl.Owners("a"); !cmp.Equal(got, []string{"c1", "c2"}) {
		t.Errorf("Owners(a) = %v, want [c1 c2]", got)
	}
	if got := tbl.Owners("missing"); got != nil {
		t.Errorf("Owners(missing) = %v, want nil", got)
	}
}

func TestDefs(t *testing.T) {
	src := "import numpy as np\nfrom sys import argv\n" +
		"x = 1\ndef f(): pass\nclass C: pass\n" +
		"for i in x: pass\n(w := 2)\n"
	defs := resolve.Defs(src, syntax.Parse(src))
	want := []resolve.Def{
		{Name: "C", Kind: resolve.KindValue},
		{Name: "argv", Kind: resolve.KindModule},
		{Name: "f", Kind: resolve.KindValue},
		{Name: "i", Kind: resolve.KindValue},
		{Name: "np", Kind: resolve.KindModule},
		{Name: "w", Kind: resolve.KindValue},
		{Name: "x", Kind: resolve.KindValue},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Defs mismatch (-want +got):\n%s", diff)
	}

	if defs := resolve.Defs("def f(:\n", syntax.Parse("def f(:\n")); defs != nil {
		t.Errorf("Defs on malformed input = %v, want nil", defs)
	}
}

// TestChunkedData runs the resolver over the chunked fixtures in
// testdata. Each chunk declares its environment in comments:
// "# candidates: a b" adds value bindings owned by another cell, and
// "# module: np" adds module-like ones. "### name" comments mark the
// references expected on that line.
func TestChunkedData(t *testing.T) {
	for _, chunk := range chunkedfile.Read("testdata/resolve.txt", t) {
		tbl := chunkTable(chunk.Source)
		refs := resolve.Resolve(chunk.Source, syntax.Parse(chunk.Source), tbl, resolve.Options{Cell: "this"})
		for _, ref := range refs {
			line := 1 + strings.Count(chunk.Source[:ref.From], "\n")
			chunk.GotRef(line, ref.Name)
		}
		chunk.Done()
	}
}

func chunkTable(src string) resolve.Table {
	tbl := make(resolve.Table)
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# candidates:") {
			for _, name := range strings.Fields(trimmed[len("# candidates:"):]) {
				tbl[name] = resolve.Binding{Cells: []string{"other"}}
			}
		} else if strings.HasPrefix(trimmed, "# module:") {
			for _, name := range strings.Fields(trimmed[len("# module:"):]) {
				tbl[name] = resolve.Binding{Cells: []string{"other"}, Kind: resolve.KindModule}
			}
		}
	}
	return tbl
}
