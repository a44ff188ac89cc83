// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tspython

import (
	"context"
	"sort"
	"testing"

	"go.cellref.dev/resolve"
	"go.cellref.dev/syntax"
)

func refNames(refs []resolve.Ref) []string {
	var names []string
	for _, r := range refs {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

func TestResolveOverConvertedTree(t *testing.T) {
	table := resolve.Table{
		"a":    {Cells: []string{"c1"}},
		"b":    {Cells: []string{"c1"}},
		"data": {Cells: []string{"c2"}},
		"np":   {Cells: []string{"c2"}, Kind: resolve.KindModule},
	}

	for _, test := range []struct {
		src  string
		want []string
	}{
		{"x = a + b\n", []string{"a", "b"}},
		{"a = 1\ny = a + b\n", []string{"b"}},
		{"def f(a):\n    return a + b\n", []string{"b"}},
		{"rows = [a for a in data]\n", []string{"data"}},
		{"np.mean(data)\n", []string{"data"}},
		{"import numpy as np\nnp.mean(a)\n", []string{"a"}},
	} {
		tree, err := Parse(context.Background(), []byte(test.src))
		if err != nil {
			t.Fatalf("%q: parse: %v", test.src, err)
		}
		refs := resolve.Resolve(test.src, tree, table, resolve.Options{Cell: "c0"})
		got := refNames(refs)
		if len(got) != len(test.want) {
			t.Errorf("%q: got refs %v, want %v", test.src, got, test.want)
			continue
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("%q: got refs %v, want %v", test.src, got, test.want)
				break
			}
		}
	}
}

func TestConvertMarksErrors(t *testing.T) {
	src := "def f(:\n"
	tree, err := Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	bad := false
	syntax.Walk(tree, func(n *syntax.Node) bool {
		if n.Kind() == syntax.Error {
			bad = true
			return false
		}
		return true
	})
	if !bad {
		t.Errorf("Convert(%q): no error node in tree", src)
	}
}
