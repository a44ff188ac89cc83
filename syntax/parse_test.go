// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax_test

import (
	"strings"
	"testing"

	"go.cellref.dev/syntax"
)

// treeString formats a parse tree as a compact s-expression. Names,
// attribute names, module paths, numbers, and name constants print
// their source text; other childless nodes print their kind.
func treeString(n *syntax.Node, src string) string {
	var b strings.Builder
	writeTree(&b, n, src)
	return b.String()
}

func writeTree(b *strings.Builder, n *syntax.Node, src string) {
	switch n.Kind() {
	case syntax.Name, syntax.AttrName, syntax.ModulePath,
		syntax.NumberLit, syntax.NameConstant:
		b.WriteString(n.Text(src))
		return
	}
	if n.FirstChild() == nil {
		b.WriteString(n.Kind().String())
		return
	}
	b.WriteByte('(')
	b.WriteString(n.Kind().String())
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.WriteByte(' ')
		writeTree(b, c, src)
	}
	b.WriteByte(')')
}

func TestParseTrees(t *testing.T) {
	for _, test := range []struct {
		input, want string
	}{
		{"x = a + b\n",
			"(module (assign x (binary a b)))"},
		{"x, y = y, x\n",
			"(module (assign (tuple x y) (tuple y x)))"},
		{"a = b = c\n",
			"(module (assign a b c))"},
		{"x: int = 1\n",
			"(module (annassign x int 1))"},
		{"total += n\n",
			"(module (augassign total n))"},
		{"def f(a, b=1):\n    return a\n",
			"(module (functiondef f (params (param a) (param b 1)) (return a)))"},
		{"def g(*args, **kw):\n    pass\n",
			"(module (functiondef g (params (splatparam args) (kwsplatparam kw)) pass))"},
		{"@dec\ndef f():\n    pass\n",
			"(module (decorator dec) (functiondef f params pass))"},
		{"f = lambda x: x + z\n",
			"(module (assign f (lambda (params (param x)) (binary x z))))"},
		{"class C(Base):\n    v = 1\n",
			"(module (classdef C (args Base) (assign v 1)))"},
		{"for i in data:\n    total += i\n",
			"(module (for i data (augassign total i)))"},
		{"for k, v in items:\n    pass\n",
			"(module (for (tuple k v) items pass))"},
		{"result = [a for a in data if a]\n",
			"(module (assign result (listcomp a (compfor a data) (compif a))))"},
		{"pairs = {k: v for k in keys}\n",
			"(module (assign pairs (dictcomp (dictentry k v) (compfor k keys))))"},
		{"g = (x * x for x in xs)\n",
			"(module (assign g (generatorexp (binary x x) (compfor x xs))))"},
		{"import numpy as np, os\n",
			"(module (import (importalias numpy np) (importalias os)))"},
		{"from a.b import c as d, e\n",
			"(module (importfrom a.b (importalias c d) (importalias e)))"},
		{"from x import *\n",
			"(module (importfrom x importstar))"},
		{"with open(p) as f:\n    pass\n",
			"(module (with (withitem (call open (args p)) (astarget f)) pass))"},
		{"try:\n    pass\nexcept E as e:\n    pass\n",
			"(module (try pass (except E (astarget e) pass)))"},
		{"x.y.z = 1\n",
			"(module (assign (attribute (attribute x y) z) 1))"},
		{"obj.m(k=v, *a, **b)\n",
			"(module (exprstmt (call (attribute obj m) (args (keyword k v) (splat a) (doublesplat b)))))"},
		{"x = a if c else b\n",
			"(module (assign x (condexpr a c b)))"},
		{"if (n := f(x)) > 0:\n    pass\n",
			"(module (if (compare (namedexpr n (call f (args x))) 0) pass))"},
		{"if x: y = 1; z = 2\n",
			"(module (if x (assign y 1) (assign z 2)))"},
		{"a, *rest = values\n",
			"(module (assign (tuple a (splat rest)) values))"},
		{"xs[1:n]\n",
			"(module (exprstmt (subscript xs (slice 1 n))))"},
		{"del x, y\n",
			"(module (delete (tuple x y)))"},
		{"global a, b\n",
			"(module (global a b))"},
		{"assert x, 'msg'\n",
			"(module (assert x string))"},
		{"async def f():\n    await g()\n",
			"(module (functiondef f params (exprstmt (await (call g args)))))"},
	} {
		tree := syntax.Parse(test.input)
		if got := treeString(tree, test.input); got != test.want {
			t.Errorf("parse(%q):\ngot  %s\nwant %s", test.input, got, test.want)
		}
	}
}

func hasError(tree *syntax.Node) bool {
	found := false
	syntax.Walk(tree, func(n *syntax.Node) bool {
		if n.Kind() == syntax.Error {
			found = true
			return false
		}
		return true
	})
	return found
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"def f(:\n",
		"x = = 1\n",
		"class :\n    pass\n",
		"for x data:\n    pass\n",
		"x = (1 +\n",
		"    x = 1\n", // unexpected indent
		"if a:\n",      // header with no body
		"x = 'unterminated\n",
	} {
		tree := syntax.Parse(src)
		if tree == nil {
			t.Fatalf("parse(%q) = nil", src)
		}
		if !hasError(tree) {
			t.Errorf("parse(%q): expected an error node, got %s", src, treeString(tree, src))
		}
	}

	// Well-formed input must not produce error nodes.
	src := "def f(x):\n    return [y for y in x]\n"
	if tree := syntax.Parse(src); hasError(tree) {
		t.Errorf("parse(%q): unexpected error node in %s", src, treeString(tree, src))
	}
}

func TestParseSpans(t *testing.T) {
	src := "def f(a):\n    return a + b\n\nclass C:\n    x = f(1)\n"
	tree := syntax.Parse(src)
	if from, to := tree.Span(); from != 0 || to != len(src) {
		t.Fatalf("root spans [%d,%d), want [0,%d)", from, to, len(src))
	}
	syntax.Walk(tree, func(n *syntax.Node) bool {
		from, to := n.Span()
		if from > to {
			t.Errorf("%s: inverted span [%d,%d)", n.Kind(), from, to)
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if c.From() < from || c.To() > to {
				t.Errorf("%s child %s span [%d,%d) outside parent [%d,%d)",
					n.Kind(), c.Kind(), c.From(), c.To(), from, to)
			}
			if c.Parent() != n {
				t.Errorf("%s child %s has wrong parent", n.Kind(), c.Kind())
			}
		}
		return true
	})
}
