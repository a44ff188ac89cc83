// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"strings"

	"go.cellref.dev/syntax"
)

// This file implements the scope builder: the first of the resolver's
// two traversals. It discovers every lexical scope in a cell and
// records, per scope, the names bound directly in it.
//
// Scopes live in an arena indexed by small integers, with parent links;
// index 0 is the module pseudo-scope, whose "span" is a sentinel
// covering everything. Scope-introducing nodes are keyed by their start
// offset so the second traversal can recover the scope for a node in
// constant time.

type scopeKind uint8

const (
	scopeModule scopeKind = iota
	scopeFunction
	scopeLambda
	scopeComprehension
	scopeClass
)

var scopeKindNames = [...]string{
	scopeModule:        "module",
	scopeFunction:      "function",
	scopeLambda:        "lambda",
	scopeComprehension: "comprehension",
	scopeClass:         "class",
}

func (k scopeKind) String() string { return scopeKindNames[k] }

// A classBinding is one class-body binding in textual order. Class
// bodies execute sequentially, so a name hides an external binding only
// for occurrences after its own assignment.
type classBinding struct {
	name string
	pos  int
}

type scope struct {
	kind     scopeKind
	from, to int
	parent   int // arena index; -1 for the module scope
	bound    map[string]bool
	ordered  []classBinding // class scopes only
}

type scopeSet struct {
	scopes     []scope     // scopes[0] is the module pseudo-scope
	byStart    map[int]int // scope-introducing node start offset -> arena index
	moduleLike map[string]bool
}

func newScopeSet() *scopeSet {
	ss := &scopeSet{
		byStart:    make(map[int]int),
		moduleLike: make(map[string]bool),
	}
	ss.scopes = append(ss.scopes, scope{
		kind:   scopeModule,
		from:   -1, // sentinel: the module scope has no span restriction
		parent: -1,
		bound:  make(map[string]bool),
	})
	return ss
}

func (ss *scopeSet) open(kind scopeKind, n *syntax.Node, parent int) int {
	id := len(ss.scopes)
	from, to := n.Span()
	ss.scopes = append(ss.scopes, scope{
		kind:   kind,
		from:   from,
		to:     to,
		parent: parent,
		bound:  make(map[string]bool),
	})
	ss.byStart[from] = id
	return id
}

// at returns the arena index of the scope introduced by the node
// starting at the given offset, or 0 if none was recorded.
func (ss *scopeSet) at(start int) int {
	if id, ok := ss.byStart[start]; ok {
		return id
	}
	return 0
}

func (ss *scopeSet) bind(id int, name string, pos int) {
	if name == "" || name == "_" {
		return
	}
	sc := &ss.scopes[id]
	sc.bound[name] = true
	if sc.kind == scopeClass {
		sc.ordered = append(sc.ordered, classBinding{name, pos})
	}
}

// shadows reports whether the scope hides name for an occurrence at pos.
// For class scopes the binding must textually precede the occurrence.
func (ss *scopeSet) shadows(id int, name string, pos int) bool {
	sc := &ss.scopes[id]
	if sc.kind == scopeClass {
		for _, cb := range sc.ordered {
			if cb.name == name && cb.pos < pos {
				return true
			}
		}
		return false
	}
	return sc.bound[name]
}

// hoistTarget returns the scope a walrus binding lands in: the nearest
// enclosing non-comprehension scope. A comprehension does not capture
// its own inline assignments.
func (ss *scopeSet) hoistTarget(id int) int {
	for ss.scopes[id].kind == scopeComprehension {
		id = ss.scopes[id].parent
	}
	return id
}

// buildScopes runs the first traversal over an error-free tree and
// returns the populated scope set. The walk uses an explicit stack; each
// frame carries the arena index of the scope its node belongs to.
func buildScopes(src string, root *syntax.Node) *scopeSet {
	ss := newScopeSet()

	type frame struct {
		n     *syntax.Node
		scope int
	}
	stack := []frame{{root, 0}}

	pushChildren := func(n *syntax.Node, sc int, skipFirst bool) {
		kids := n.Children()
		start := 0
		if skipFirst {
			start = 1
		}
		for i := len(kids) - 1; i >= start; i-- {
			stack = append(stack, frame{kids[i], sc})
		}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, sc := f.n, f.scope

		switch n.Kind() {
		case syntax.FunctionDef:
			// The function's name binds in the enclosing scope, not in
			// its own body.
			if name := n.FirstChild(); name != nil && name.Kind() == syntax.Name {
				ss.bind(sc, name.Text(src), name.From())
			}
			inner := ss.open(scopeFunction, n, sc)
			bindParams(ss, src, inner, n.ChildOfKind(syntax.Params))
			pushChildren(n, inner, false)

		case syntax.Lambda:
			inner := ss.open(scopeLambda, n, sc)
			bindParams(ss, src, inner, n.ChildOfKind(syntax.Params))
			pushChildren(n, inner, false)

		case syntax.ClassDef:
			if name := n.FirstChild(); name != nil && name.Kind() == syntax.Name {
				ss.bind(sc, name.Text(src), name.From())
			}
			inner := ss.open(scopeClass, n, sc)
			pushChildren(n, inner, false)

		case syntax.ListComp, syntax.SetComp, syntax.DictComp, syntax.GeneratorExp:
			inner := ss.open(scopeComprehension, n, sc)
			pushChildren(n, inner, false)

		case syntax.CompFor:
			bindTargets(ss, src, sc, n.FirstChild())
			pushChildren(n, sc, false)

		case syntax.Assign:
			for c, last := n.FirstChild(), n.LastChild(); c != nil && c != last; c = c.NextSibling() {
				bindTargets(ss, src, sc, c)
			}
			pushChildren(n, sc, false)

		case syntax.AnnAssign, syntax.AugAssign:
			bindTargets(ss, src, sc, n.FirstChild())
			pushChildren(n, sc, false)

		case syntax.NamedExpr:
			if target := n.FirstChild(); target != nil && target.Kind() == syntax.Name {
				ss.bind(ss.hoistTarget(sc), target.Text(src), target.From())
			}
			pushChildren(n, sc, false)

		case syntax.ForStmt:
			bindTargets(ss, src, sc, n.FirstChild())
			pushChildren(n, sc, false)

		case syntax.AsTarget:
			bindTargets(ss, src, sc, n.FirstChild())

		case syntax.ImportStmt, syntax.ImportFrom:
			bindImports(ss, src, sc, n)

		case syntax.GlobalStmt, syntax.NonlocalStmt:
			// Not interpreted: resolution stays purely lexical.

		default:
			pushChildren(n, sc, false)
		}
	}
	return ss
}

func bindParams(ss *scopeSet, src string, id int, params *syntax.Node) {
	if params == nil {
		return
	}
	for c := params.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.Kind() {
		case syntax.Param, syntax.SplatParam, syntax.KwSplatParam:
			if name := c.FirstChild(); name != nil && name.Kind() == syntax.Name {
				ss.bind(id, name.Text(src), name.From())
			}
		}
	}
}

// bindTargets binds every plain name in an assignment target pattern,
// unpacking tuple/list nesting and star elements. Attribute and
// subscript targets bind nothing.
func bindTargets(ss *scopeSet, src string, id int, target *syntax.Node) {
	if target == nil {
		return
	}
	stack := []*syntax.Node{target}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch n.Kind() {
		case syntax.Name:
			ss.bind(id, n.Text(src), n.From())
		case syntax.Tuple, syntax.List:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				stack = append(stack, c)
			}
		case syntax.Splat:
			if c := n.FirstChild(); c != nil {
				stack = append(stack, c)
			}
		}
	}
}

func bindImports(ss *scopeSet, src string, id int, n *syntax.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.Kind() {
		case syntax.ImportAlias:
			bindImportAlias(ss, src, id, c)
		case syntax.ImportStar:
			// A star-import cannot be resolved to concrete names.
			// Conservatively assume it does not hide candidate names,
			// so it binds nothing here.
		}
	}
}

func bindImportAlias(ss *scopeSet, src string, id int, al *syntax.Node) {
	first := al.FirstChild()
	if first == nil {
		return
	}
	if last := al.LastChild(); last != first && last.Kind() == syntax.Name {
		// import x as y / from m import x as y
		ss.bindImported(id, last.Text(src), last.From())
		return
	}
	switch first.Kind() {
	case syntax.Name:
		// from m import x
		ss.bindImported(id, first.Text(src), first.From())
	case syntax.ModulePath:
		// import a.b binds "a".
		text := strings.TrimLeft(first.Text(src), ".")
		if i := strings.IndexByte(text, '.'); i >= 0 {
			text = text[:i]
		}
		if text != "" {
			ss.bindImported(id, text, first.From())
		}
	}
}

// bindImported is bind plus bookkeeping for module-like names, which
// Defs reports with KindModule so that cross-cell tables can exclude
// them from the candidate set.
func (ss *scopeSet) bindImported(id int, name string, pos int) {
	ss.bind(id, name, pos)
	if id == 0 {
		ss.moduleLike[name] = true
	}
}
