// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolve determines which identifier occurrences in one
// notebook cell are free references to variables defined by other
// cells.
//
// Given a cell's syntax tree and the environment's binding table, it
// runs two scope-aware traversals: the first discovers every lexical
// scope in the cell and the names each binds; the second visits every
// identifier occurrence, applies shadowing rules along the enclosing
// scope chain, and reports the occurrences that resolve to an external
// binding. The result drives reactive-dependency highlighting and
// jump-to-definition in an editor.
//
// Resolution is best effort and total: a tree containing parse errors
// yields an empty result, and nothing here returns an error or panics.
// Every call is independent; the resolver holds no state between calls
// and is safe to invoke concurrently.
package resolve // import "go.cellref.dev/resolve"

import (
	"sort"

	"go.cellref.dev/syntax"
)

// A Ref is one resolved reactive reference: an identifier occurrence at
// [From, To) whose name is supplied by another cell. A name used twice
// yields two Refs.
type Ref struct {
	From, To int
	Name     string
}

// Options selects the analysis perspective.
type Options struct {
	// Cell is the identifier of the cell under analysis. Names the
	// table attributes to this cell are not candidates.
	Cell string

	// Setup optionally names a non-reactive setup cell whose bindings
	// are likewise excluded.
	Setup string
}

// Resolve analyzes one cell and returns its reactive references, in no
// particular order. It returns nil when the tree contains parse errors,
// when the candidate set is empty, or when nothing resolves.
func Resolve(src string, tree *syntax.Node, table Table, opts Options) []Ref {
	if tree == nil || hasErrors(tree) {
		return nil
	}
	cands := table.Candidates(opts.Cell, opts.Setup)
	if len(cands) == 0 {
		return nil
	}
	scopes := buildScopes(src, tree)
	return classify(src, tree, scopes, cands)
}

// A Def is one name a cell binds at module scope.
type Def struct {
	Name string
	Kind BindingKind
}

// Defs reports the names a cell binds at module scope, sorted by name.
// Imported names are reported with KindModule. Like Resolve, it returns
// nil for an error-containing tree.
func Defs(src string, tree *syntax.Node) []Def {
	if tree == nil || hasErrors(tree) {
		return nil
	}
	ss := buildScopes(src, tree)
	module := ss.scopes[0]
	out := make([]Def, 0, len(module.bound))
	for name := range module.bound {
		kind := KindValue
		if ss.moduleLike[name] {
			kind = KindModule
		}
		out = append(out, Def{Name: name, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// hasErrors reports whether the tree contains any parse-error node.
// Partial trees produce misleading results, so the resolver refuses
// them wholesale.
func hasErrors(tree *syntax.Node) bool {
	found := false
	syntax.Walk(tree, func(n *syntax.Node) bool {
		if found || n.Kind() == syntax.Error {
			found = true
			return false
		}
		return true
	})
	return found
}

// classify runs the second traversal: it visits every identifier
// occurrence that is a read, walks the enclosing scope chain from
// innermost to module scope, and emits a Ref for each occurrence no
// scope shadows.
func classify(src string, root *syntax.Node, ss *scopeSet, cands map[string]bool) []Ref {
	var refs []Ref

	type frame struct {
		n     *syntax.Node
		scope int
	}
	stack := []frame{{root, 0}}

	// push enqueues children for the walk; skip leading children that
	// are declarations rather than reads.
	push := func(n *syntax.Node, sc int, skip int) {
		kids := n.Children()
		for i := len(kids) - 1; i >= skip; i-- {
			stack = append(stack, frame{kids[i], sc})
		}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, sc := f.n, f.scope

		switch n.Kind() {
		case syntax.Name:
			name := n.Text(src)
			if !cands[name] {
				break
			}
			if !shadowed(ss, sc, name, n.From()) {
				from, to := n.Span()
				refs = append(refs, Ref{From: from, To: to, Name: name})
			}

		case syntax.FunctionDef, syntax.ClassDef:
			// Skip the declared name; the body is a new scope.
			push(n, ss.at(n.From()), 1)

		case syntax.Lambda, syntax.ListComp, syntax.SetComp, syntax.DictComp, syntax.GeneratorExp:
			push(n, ss.at(n.From()), 0)

		case syntax.Assign:
			// Everything before the last child is a target: a
			// declaration, not a read.
			if v := n.LastChild(); v != nil && v != n.FirstChild() {
				stack = append(stack, frame{v, sc})
			}

		case syntax.AnnAssign, syntax.AugAssign, syntax.NamedExpr, syntax.ForStmt, syntax.CompFor:
			push(n, sc, 1) // first child is the target

		case syntax.Param:
			push(n, sc, 1) // annotation and default are reads

		case syntax.SplatParam, syntax.KwSplatParam, syntax.AsTarget:
			// Declarations only.

		case syntax.Keyword:
			push(n, sc, 1) // the label is a parameter name, not a variable

		case syntax.ImportStmt, syntax.ImportFrom, syntax.GlobalStmt, syntax.NonlocalStmt:
			// No reads inside.

		default:
			push(n, sc, 0)
		}
	}
	return refs
}

// shadowed walks the scope chain from the occurrence's scope out to the
// module scope, applying each scope's shadowing rule. A class-body name
// is an attribute, not a lexical variable: once the walk has crossed a
// function, lambda, or comprehension scope, enclosing class scopes no
// longer hide the name.
func shadowed(ss *scopeSet, sc int, name string, pos int) bool {
	crossed := false
	for id := sc; id != 0; id = ss.scopes[id].parent {
		if ss.scopes[id].kind == scopeClass {
			if crossed {
				continue
			}
		} else {
			crossed = true
		}
		if ss.shadows(id, name, pos) {
			return true
		}
	}
	// Module-level bindings shadow too: a name this cell assigns at top
	// level is this cell's own, even if another cell also defines it.
	return ss.scopes[0].bound[name]
}
