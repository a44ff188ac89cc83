// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syntax provides a parser-independent concrete syntax tree for
// Python-like cell source, and a bundled error-tolerant parser that
// produces it.
//
// A tree is a hierarchy of Nodes, each carrying a Kind tag and a
// half-open [From, To) offset span into the source text. Nodes offer
// first-child/next-sibling navigation; a node's span always contains the
// spans of its children. Trees are immutable once built.
//
// Syntax errors do not abort parsing: malformed regions appear in the
// tree as nodes of kind Error, so consumers can detect and reject
// partial trees without handling a Go error.
package syntax // import "go.cellref.dev/syntax"

// A Kind identifies the grammatical construct a Node represents.
//
// The catalogue is closed: consumers switch exhaustively over the kinds
// they care about and treat every other kind generically. Unlisted
// constructs produced by future parsers map to Unknown and contribute
// structure but no special meaning.
type Kind uint8

const (
	Unknown Kind = iota
	Error        // malformed region; poisons the whole tree for analysis
	Module       // root of a cell

	// Statements.
	FunctionDef  // def name(params): body   (also async def)
	ClassDef     // class name(bases): body
	Assign       // a = b = expr; children are targets..., value
	AnnAssign    // target: ann [= value]
	AugAssign    // target op= value
	ForStmt      // for target in iter: body
	WhileStmt    // while cond: body
	IfStmt       // if cond: body [elif/else appended as trailing stmts]
	TryStmt      // try body, then ExceptClause nodes, then else/finally stmts
	ExceptClause // except [type [AsTarget]]: body
	WithStmt     // with items: body
	WithItem     // expr [AsTarget]
	AsTarget     // wrapper around the target of an "as" binding
	ImportStmt   // import a.b [as c], ...
	ImportFrom   // from mod import names | *
	ImportAlias  // one imported name: path-or-name [alias]
	ImportStar   // the * of a star-import
	ModulePath   // dotted module path, a single leaf
	GlobalStmt   // global a, b
	NonlocalStmt // nonlocal a, b
	ReturnStmt
	DeleteStmt
	RaiseStmt
	AssertStmt
	PassStmt
	BreakStmt
	ContinueStmt
	ExprStmt
	Decorator // @expr, preceding a def or class in the same block

	// Parameters.
	Params       // parameter list of a def or lambda
	Param        // name [ann] [default]
	SplatParam   // *args (or a bare * marker with no child)
	KwSplatParam // **kwargs

	// Expressions.
	Name         // identifier occurrence
	AttrName     // the name after a dot; never a variable reference
	Attribute    // expr . AttrName
	Subscript    // expr [ indices ]
	Slice        // lo : hi : step inside a subscript
	Call         // callee ( Args )
	Args         // argument list of a call or class bases
	Keyword      // name=value in a call; first child is the label
	Splat        // *expr
	DoubleSplat  // **expr
	Lambda       // lambda params: body
	ListComp     // [body for ... if ...]
	SetComp      // {body for ... if ...}
	DictComp     // {k: v for ... if ...}
	GeneratorExp // (body for ... if ...)
	CompFor      // one "for target in iter" clause of a comprehension
	CompIf       // one "if cond" clause of a comprehension
	Tuple
	List
	Set
	Dict
	DictEntry // key: value inside a dict display
	Unary
	Binary
	BoolOp
	Compare
	CondExpr  // true if cond else false
	NamedExpr // target := value (walrus)
	YieldExpr
	AwaitExpr
	StringLit
	NumberLit
	NameConstant // True, False, None, ...
)

var kindNames = [...]string{
	Unknown:      "unknown",
	Error:        "error",
	Module:       "module",
	FunctionDef:  "functiondef",
	ClassDef:     "classdef",
	Assign:       "assign",
	AnnAssign:    "annassign",
	AugAssign:    "augassign",
	ForStmt:      "for",
	WhileStmt:    "while",
	IfStmt:       "if",
	TryStmt:      "try",
	ExceptClause: "except",
	WithStmt:     "with",
	WithItem:     "withitem",
	AsTarget:     "astarget",
	ImportStmt:   "import",
	ImportFrom:   "importfrom",
	ImportAlias:  "importalias",
	ImportStar:   "importstar",
	ModulePath:   "modulepath",
	GlobalStmt:   "global",
	NonlocalStmt: "nonlocal",
	ReturnStmt:   "return",
	DeleteStmt:   "delete",
	RaiseStmt:    "raise",
	AssertStmt:   "assert",
	PassStmt:     "pass",
	BreakStmt:    "break",
	ContinueStmt: "continue",
	ExprStmt:     "exprstmt",
	Decorator:    "decorator",
	Params:       "params",
	Param:        "param",
	SplatParam:   "splatparam",
	KwSplatParam: "kwsplatparam",
	Name:         "name",
	AttrName:     "attrname",
	Attribute:    "attribute",
	Subscript:    "subscript",
	Slice:        "slice",
	Call:         "call",
	Args:         "args",
	Keyword:      "keyword",
	Splat:        "splat",
	DoubleSplat:  "doublesplat",
	Lambda:       "lambda",
	ListComp:     "listcomp",
	SetComp:      "setcomp",
	DictComp:     "dictcomp",
	GeneratorExp: "generatorexp",
	CompFor:      "compfor",
	CompIf:       "compif",
	Tuple:        "tuple",
	List:         "list",
	Set:          "set",
	Dict:         "dict",
	DictEntry:    "dictentry",
	Unary:        "unary",
	Binary:       "binary",
	BoolOp:       "boolop",
	Compare:      "compare",
	CondExpr:     "condexpr",
	NamedExpr:    "namedexpr",
	YieldExpr:    "yield",
	AwaitExpr:    "await",
	StringLit:    "string",
	NumberLit:    "number",
	NameConstant: "nameconstant",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScope reports whether nodes of this kind introduce a lexical scope.
func (k Kind) IsScope() bool {
	switch k {
	case FunctionDef, Lambda, ClassDef, ListComp, SetComp, DictComp, GeneratorExp:
		return true
	}
	return false
}

// IsComprehension reports whether this kind is one of the four
// comprehension forms.
func (k Kind) IsComprehension() bool {
	switch k {
	case ListComp, SetComp, DictComp, GeneratorExp:
		return true
	}
	return false
}

// A Node is one node of a concrete syntax tree.
type Node struct {
	kind     Kind
	from, to int

	parent      *Node
	firstChild  *Node
	lastChild   *Node
	nextSibling *Node
}

// NewNode returns a childless node. It is exported so that adapters for
// external parsers can build trees; the bundled parser uses it too.
func NewNode(kind Kind, from, to int) *Node {
	return &Node{kind: kind, from: from, to: to}
}

// Kind returns the node's type tag.
func (n *Node) Kind() Kind { return n.kind }

// Span returns the node's half-open [from, to) source offsets.
func (n *Node) Span() (from, to int) { return n.from, n.to }

// From returns the node's start offset.
func (n *Node) From() int { return n.from }

// To returns the node's end offset.
func (n *Node) To() int { return n.to }

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// FirstChild returns the node's first child, or nil.
func (n *Node) FirstChild() *Node { return n.firstChild }

// NextSibling returns the node's next sibling, or nil.
func (n *Node) NextSibling() *Node { return n.nextSibling }

// LastChild returns the node's last child, or nil.
func (n *Node) LastChild() *Node { return n.lastChild }

// Append adds child as the node's new last child.
func (n *Node) Append(child *Node) {
	if child == nil {
		return
	}
	child.parent = n
	if n.lastChild == nil {
		n.firstChild = child
	} else {
		n.lastChild.nextSibling = child
	}
	n.lastChild = child
}

// NumChildren returns the number of direct children.
func (n *Node) NumChildren() int {
	count := 0
	for c := n.firstChild; c != nil; c = c.nextSibling {
		count++
	}
	return count
}

// Child returns the i'th direct child, or nil if out of range.
func (n *Node) Child(i int) *Node {
	c := n.firstChild
	for ; c != nil && i > 0; c = c.nextSibling {
		i--
	}
	return c
}

// Children returns the direct children as a slice. The slice is freshly
// allocated; callers may keep it.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.firstChild; c != nil; c = c.nextSibling {
		out = append(out, c)
	}
	return out
}

// ChildOfKind returns the first direct child of the given kind, or nil.
func (n *Node) ChildOfKind(k Kind) *Node {
	for c := n.firstChild; c != nil; c = c.nextSibling {
		if c.kind == k {
			return c
		}
	}
	return nil
}

// Contains reports whether the offset falls within the node's span.
func (n *Node) Contains(pos int) bool { return n.from <= pos && pos < n.to }

// Text returns the source text the node spans.
func (n *Node) Text(src string) string {
	from, to := n.from, n.to
	if from < 0 {
		from = 0
	}
	if to > len(src) {
		to = len(src)
	}
	if from >= to {
		return ""
	}
	return src[from:to]
}

// Walk visits every node of the subtree rooted at n in source order,
// parents before children. If f returns false for a node, its subtree is
// not descended into. The traversal uses an explicit stack, so its depth
// is independent of the Go call stack.
func Walk(n *Node, f func(*Node) bool) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f(cur) {
			continue
		}
		// Push children in reverse so the first child is visited next.
		var kids []*Node
		for c := cur.firstChild; c != nil; c = c.nextSibling {
			kids = append(kids, c)
		}
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}
