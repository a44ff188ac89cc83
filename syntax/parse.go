// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// A recursive-descent parser for the Python-like cell grammar.
//
// The parser is tolerant: it always returns a tree covering the whole
// input, and represents malformed regions as Error nodes. Analyses that
// need a well-formed tree check for Error nodes and bail out; nothing
// here returns a Go error.
//
// Child layout conventions (relied upon by package resolve):
//
//	Assign       targets..., value (value is the last child)
//	AnnAssign    target, annotation, value?
//	AugAssign    target, value
//	ForStmt      target, iter, body stmts..., else stmts...
//	CompFor      target, iter
//	FunctionDef  Name, Params, return-annotation?, body stmts...
//	Lambda       Params, body expr
//	ClassDef     Name, Args?, body stmts...
//	ExceptClause type?, AsTarget?, body stmts...
//	WithItem     expr, AsTarget?
//	Keyword      label Name, value
//	Attribute    expr, AttrName
//	ImportAlias  ModulePath|Name, alias Name?

// Parse parses cell source and returns the root Module node.
// The root spans the entire input.
func Parse(src string) *Node {
	p := &parser{sc: newScanner(src)}
	p.next()
	module := NewNode(Module, 0, len(src))
	p.parseBlockInto(module, tokEOF)
	return module
}

type parser struct {
	sc      *scanner
	tok     tokenValue
	prevEnd int // end offset of the last consumed token
}

func (p *parser) next() {
	p.prevEnd = p.tok.to
	p.tok = p.sc.nextToken()
}

func (p *parser) at(t token) bool { return p.tok.tok == t }

func (p *parser) got(t token) bool {
	if p.at(t) {
		p.next()
		return true
	}
	return false
}

// errorHere returns an Error node at the current token without
// consuming it.
func (p *parser) errorHere() *Node {
	return NewNode(Error, p.tok.from, p.tok.to)
}

// syncLine consumes tokens through the end of the logical line.
func (p *parser) syncLine() {
	for !p.at(tokNewline) && !p.at(tokEOF) && !p.at(tokOutdent) {
		p.next()
	}
	p.got(tokNewline)
}

func (p *parser) atExprStart() bool {
	switch p.tok.tok {
	case tokIdent, tokNumber, tokString, tokLParen, tokLBrack, tokLBrace,
		tokMinus, tokPlus, tokTilde, tokNot, tokLambda, tokAwait, tokYield,
		tokTrue, tokFalse, tokNone, tokEllipsis, tokStar, tokStarStar:
		return true
	}
	return false
}

// parseBlockInto parses statements into parent until the given
// terminator (tokEOF or tokOutdent) is reached.
func (p *parser) parseBlockInto(parent *Node, until token) {
	for !p.at(until) && !p.at(tokEOF) {
		switch p.tok.tok {
		case tokNewline, tokSemi:
			p.next()
		case tokIndent:
			// Unexpected indentation; flag it but keep the block
			// balanced by parsing its contents in place.
			parent.Append(p.errorHere())
			p.next()
			p.parseBlockInto(parent, tokOutdent)
			p.got(tokOutdent)
		case tokOutdent:
			parent.Append(p.errorHere())
			p.next()
		default:
			p.parseStatement(parent)
		}
	}
}

func (p *parser) parseStatement(parent *Node) {
	switch p.tok.tok {
	case tokAt:
		parent.Append(p.parseDecorator())
	case tokAsync:
		start := p.tok.from
		p.next()
		switch p.tok.tok {
		case tokDef:
			parent.Append(p.parseFunctionDef(start))
		case tokFor:
			parent.Append(p.parseFor(start))
		case tokWith:
			parent.Append(p.parseWith(start))
		default:
			parent.Append(NewNode(Error, start, p.tok.to))
			p.syncLine()
		}
	case tokDef:
		parent.Append(p.parseFunctionDef(p.tok.from))
	case tokClass:
		parent.Append(p.parseClass())
	case tokIf:
		parent.Append(p.parseIf())
	case tokWhile:
		parent.Append(p.parseWhile())
	case tokFor:
		parent.Append(p.parseFor(p.tok.from))
	case tokTry:
		parent.Append(p.parseTry())
	case tokWith:
		parent.Append(p.parseWith(p.tok.from))
	default:
		p.parseSimpleLine(parent)
	}
}

func (p *parser) parseSimpleLine(parent *Node) {
	parent.Append(p.parseSmallStmt())
	switch p.tok.tok {
	case tokNewline, tokSemi, tokEOF, tokOutdent:
	default:
		// Trailing garbage after a statement.
		parent.Append(p.errorHere())
		p.syncLine()
	}
}

func (p *parser) parseSmallStmt() *Node {
	start := p.tok.from
	switch p.tok.tok {
	case tokPass:
		return p.leaf(PassStmt)
	case tokBreak:
		return p.leaf(BreakStmt)
	case tokContinue:
		return p.leaf(ContinueStmt)
	case tokReturn:
		p.next()
		n := NewNode(ReturnStmt, start, p.prevEnd)
		if p.atExprStart() {
			n.Append(p.parseExprList(true))
			n.to = p.prevEnd
		}
		return n
	case tokDel:
		p.next()
		n := NewNode(DeleteStmt, start, 0)
		n.Append(p.parseExprList(false))
		n.to = p.prevEnd
		return n
	case tokRaise:
		p.next()
		n := NewNode(RaiseStmt, start, p.prevEnd)
		if p.atExprStart() {
			n.Append(p.parseTest())
			if p.got(tokFrom) {
				n.Append(p.parseTest())
			}
			n.to = p.prevEnd
		}
		return n
	case tokAssert:
		p.next()
		n := NewNode(AssertStmt, start, 0)
		n.Append(p.parseTest())
		if p.got(tokComma) {
			n.Append(p.parseTest())
		}
		n.to = p.prevEnd
		return n
	case tokGlobal:
		return p.parseNameList(GlobalStmt)
	case tokNonlocal:
		return p.parseNameList(NonlocalStmt)
	case tokImport:
		return p.parseImport()
	case tokFrom:
		return p.parseImportFrom()
	}

	// Assignment or bare expression.
	first := p.parseExprList(true)
	switch p.tok.tok {
	case tokEq:
		n := NewNode(Assign, start, 0)
		n.Append(first)
		for p.got(tokEq) {
			n.Append(p.parseExprList(true))
		}
		n.to = p.prevEnd
		return n
	case tokColon:
		p.next()
		n := NewNode(AnnAssign, start, 0)
		n.Append(first)
		n.Append(p.parseTest())
		if p.got(tokEq) {
			n.Append(p.parseExprList(true))
		}
		n.to = p.prevEnd
		return n
	case tokAugEq:
		p.next()
		n := NewNode(AugAssign, start, 0)
		n.Append(first)
		n.Append(p.parseExprList(false))
		n.to = p.prevEnd
		return n
	}
	n := NewNode(ExprStmt, first.from, first.to)
	n.Append(first)
	return n
}

func (p *parser) leaf(kind Kind) *Node {
	n := NewNode(kind, p.tok.from, p.tok.to)
	p.next()
	return n
}

func (p *parser) parseNameList(kind Kind) *Node {
	n := NewNode(kind, p.tok.from, 0)
	p.next()
	for p.at(tokIdent) {
		n.Append(p.leaf(Name))
		if !p.got(tokComma) {
			break
		}
	}
	n.to = p.prevEnd
	return n
}

func (p *parser) parseDecorator() *Node {
	start := p.tok.from
	p.next() // @
	n := NewNode(Decorator, start, 0)
	n.Append(p.parseTest())
	n.to = p.prevEnd
	return n
}

// parseColonBlock parses ": suite" and appends the suite's statements to
// parent. The suite is either an indented block or simple statements on
// the same line.
func (p *parser) parseColonBlock(parent *Node) {
	if !p.got(tokColon) {
		parent.Append(p.errorHere())
		p.syncLine()
		if p.got(tokIndent) {
			p.parseBlockInto(parent, tokOutdent)
			p.got(tokOutdent)
		}
		return
	}
	if p.got(tokNewline) {
		if p.got(tokIndent) {
			p.parseBlockInto(parent, tokOutdent)
			p.got(tokOutdent)
		} else {
			// A header with no body.
			parent.Append(p.errorHere())
		}
		return
	}
	// Inline suite.
	for {
		parent.Append(p.parseSmallStmt())
		if !p.got(tokSemi) {
			break
		}
		if p.at(tokNewline) || p.at(tokEOF) {
			break
		}
	}
}

func (p *parser) parseFunctionDef(start int) *Node {
	p.next() // def
	n := NewNode(FunctionDef, start, 0)
	if p.at(tokIdent) {
		n.Append(p.leaf(Name))
	} else {
		n.Append(p.errorHere())
	}
	n.Append(p.parseParams(true))
	if p.got(tokArrow) {
		n.Append(p.parseTest())
	}
	p.parseColonBlock(n)
	n.to = p.prevEnd
	return n
}

// parseParams parses a parameter list. For defs the list is
// parenthesized; for lambdas it runs to the colon.
func (p *parser) parseParams(parenthesized bool) *Node {
	start := p.tok.from
	params := NewNode(Params, start, start)
	if parenthesized && !p.got(tokLParen) {
		params.Append(p.errorHere())
		return params
	}
loop:
	for {
		switch p.tok.tok {
		case tokRParen:
			if parenthesized {
				p.next()
			}
			break loop
		case tokColon, tokNewline, tokEOF, tokOutdent:
			break loop
		case tokComma:
			p.next()
		case tokSlash:
			p.next() // positional-only marker
		case tokStar:
			s := p.tok.from
			p.next()
			sp := NewNode(SplatParam, s, p.prevEnd)
			if p.at(tokIdent) {
				sp.Append(p.leaf(Name))
				sp.to = p.prevEnd
			}
			params.Append(sp)
		case tokStarStar:
			s := p.tok.from
			p.next()
			sp := NewNode(KwSplatParam, s, p.prevEnd)
			if p.at(tokIdent) {
				sp.Append(p.leaf(Name))
				sp.to = p.prevEnd
			}
			params.Append(sp)
		case tokIdent:
			prm := NewNode(Param, p.tok.from, 0)
			prm.Append(p.leaf(Name))
			if parenthesized && p.got(tokColon) {
				prm.Append(p.parseTest()) // annotation
			}
			if p.got(tokEq) {
				prm.Append(p.parseTest()) // default
			}
			prm.to = p.prevEnd
			params.Append(prm)
		default:
			params.Append(p.errorHere())
			p.next()
		}
	}
	params.to = p.prevEnd
	return params
}

func (p *parser) parseClass() *Node {
	start := p.tok.from
	p.next() // class
	n := NewNode(ClassDef, start, 0)
	if p.at(tokIdent) {
		n.Append(p.leaf(Name))
	} else {
		n.Append(p.errorHere())
	}
	if p.at(tokLParen) {
		n.Append(p.parseCallArgs())
	}
	p.parseColonBlock(n)
	n.to = p.prevEnd
	return n
}

func (p *parser) parseIf() *Node {
	start := p.tok.from
	p.next() // if
	n := NewNode(IfStmt, start, 0)
	n.Append(p.parseTest())
	p.parseColonBlock(n)
	p.got(tokNewline)
	for p.at(tokElif) {
		p.next()
		n.Append(p.parseTest())
		p.parseColonBlock(n)
		p.got(tokNewline)
	}
	if p.at(tokElse) {
		p.next()
		p.parseColonBlock(n)
	}
	n.to = p.prevEnd
	return n
}

func (p *parser) parseWhile() *Node {
	start := p.tok.from
	p.next() // while
	n := NewNode(WhileStmt, start, 0)
	n.Append(p.parseTest())
	p.parseColonBlock(n)
	p.got(tokNewline)
	if p.at(tokElse) {
		p.next()
		p.parseColonBlock(n)
	}
	n.to = p.prevEnd
	return n
}

func (p *parser) parseFor(start int) *Node {
	p.next() // for
	n := NewNode(ForStmt, start, 0)
	n.Append(p.parseTargetList())
	if !p.got(tokIn) {
		n.Append(p.errorHere())
		p.syncLine()
		if p.got(tokIndent) {
			p.parseBlockInto(n, tokOutdent)
			p.got(tokOutdent)
		}
		n.to = p.prevEnd
		return n
	}
	n.Append(p.parseExprList(false))
	p.parseColonBlock(n)
	p.got(tokNewline)
	if p.at(tokElse) {
		p.next()
		p.parseColonBlock(n)
	}
	n.to = p.prevEnd
	return n
}

func (p *parser) parseTry() *Node {
	start := p.tok.from
	p.next() // try
	n := NewNode(TryStmt, start, 0)
	p.parseColonBlock(n)
	p.got(tokNewline)
	for p.at(tokExcept) {
		ec := NewNode(ExceptClause, p.tok.from, 0)
		p.next()
		p.got(tokStar) // except* group marker
		if p.atExprStart() {
			ec.Append(p.parseTest())
			if p.got(tokAs) {
				at := NewNode(AsTarget, p.tok.from, 0)
				if p.at(tokIdent) {
					at.Append(p.leaf(Name))
				} else {
					at.Append(p.errorHere())
				}
				at.to = p.prevEnd
				ec.Append(at)
			}
		}
		p.parseColonBlock(ec)
		ec.to = p.prevEnd
		n.Append(ec)
		p.got(tokNewline)
	}
	if p.at(tokElse) {
		p.next()
		p.parseColonBlock(n)
		p.got(tokNewline)
	}
	if p.at(tokFinally) {
		p.next()
		p.parseColonBlock(n)
	}
	n.to = p.prevEnd
	return n
}

func (p *parser) parseWith(start int) *Node {
	p.next() // with
	n := NewNode(WithStmt, start, 0)
	for {
		item := NewNode(WithItem, p.tok.from, 0)
		item.Append(p.parseTest())
		if p.got(tokAs) {
			at := NewNode(AsTarget, p.tok.from, 0)
			at.Append(p.parseTarget())
			at.to = p.prevEnd
			item.Append(at)
		}
		item.to = p.prevEnd
		n.Append(item)
		if !p.got(tokComma) {
			break
		}
	}
	p.parseColonBlock(n)
	n.to = p.prevEnd
	return n
}

func (p *parser) parseImport() *Node {
	n := NewNode(ImportStmt, p.tok.from, 0)
	p.next() // import
	for {
		al := NewNode(ImportAlias, p.tok.from, 0)
		al.Append(p.parseModulePath())
		if p.got(tokAs) {
			if p.at(tokIdent) {
				al.Append(p.leaf(Name))
			} else {
				al.Append(p.errorHere())
			}
		}
		al.to = p.prevEnd
		n.Append(al)
		if !p.got(tokComma) {
			break
		}
	}
	n.to = p.prevEnd
	return n
}

func (p *parser) parseModulePath() *Node {
	start := p.tok.from
	if !p.at(tokIdent) {
		return p.errorHere()
	}
	p.next()
	for p.at(tokDot) {
		p.next()
		if !p.at(tokIdent) {
			break
		}
		p.next()
	}
	return NewNode(ModulePath, start, p.prevEnd)
}

func (p *parser) parseImportFrom() *Node {
	n := NewNode(ImportFrom, p.tok.from, 0)
	p.next() // from
	pathStart := p.tok.from
	sawPath := false
	for p.at(tokDot) || p.at(tokEllipsis) {
		p.next()
		sawPath = true
	}
	if p.at(tokIdent) {
		p.next()
		for p.at(tokDot) {
			p.next()
			if !p.at(tokIdent) {
				break
			}
			p.next()
		}
		sawPath = true
	}
	if sawPath {
		n.Append(NewNode(ModulePath, pathStart, p.prevEnd))
	} else {
		n.Append(p.errorHere())
	}
	if !p.got(tokImport) {
		n.Append(p.errorHere())
		p.syncLine()
		n.to = p.prevEnd
		return n
	}
	if p.at(tokStar) {
		n.Append(p.leaf(ImportStar))
		n.to = p.prevEnd
		return n
	}
	paren := p.got(tokLParen)
	for {
		if paren && p.at(tokRParen) {
			break
		}
		if !p.at(tokIdent) {
			n.Append(p.errorHere())
			break
		}
		al := NewNode(ImportAlias, p.tok.from, 0)
		al.Append(p.leaf(Name))
		if p.got(tokAs) {
			if p.at(tokIdent) {
				al.Append(p.leaf(Name))
			} else {
				al.Append(p.errorHere())
			}
		}
		al.to = p.prevEnd
		n.Append(al)
		if !p.got(tokComma) {
			break
		}
	}
	if paren {
		p.got(tokRParen)
	}
	n.to = p.prevEnd
	return n
}

// Expressions.

// parseExprList parses "test (, test)*"; more than one element yields a
// Tuple. Starred elements are permitted when allowStar is set.
func (p *parser) parseExprList(allowStar bool) *Node {
	start := p.tok.from
	first := p.parseTestOrStar(allowStar)
	if !p.at(tokComma) {
		return first
	}
	t := NewNode(Tuple, start, 0)
	t.Append(first)
	for p.got(tokComma) {
		if !p.atExprStart() {
			break
		}
		t.Append(p.parseTestOrStar(allowStar))
	}
	t.to = p.prevEnd
	return t
}

func (p *parser) parseTestOrStar(allowStar bool) *Node {
	if allowStar && p.at(tokStar) {
		start := p.tok.from
		p.next()
		n := NewNode(Splat, start, 0)
		n.Append(p.parseOr())
		n.to = p.prevEnd
		return n
	}
	return p.parseTest()
}

func (p *parser) parseTest() *Node {
	if p.at(tokLambda) {
		return p.parseLambda()
	}
	start := p.tok.from
	e := p.parseOr()
	switch p.tok.tok {
	case tokWalrus:
		p.next()
		n := NewNode(NamedExpr, start, 0)
		n.Append(e)
		n.Append(p.parseTest())
		n.to = p.prevEnd
		return n
	case tokIf:
		p.next()
		n := NewNode(CondExpr, start, 0)
		n.Append(e)
		n.Append(p.parseOr())
		if p.got(tokElse) {
			n.Append(p.parseTest())
		} else {
			n.Append(p.errorHere())
		}
		n.to = p.prevEnd
		return n
	}
	return e
}

func (p *parser) parseLambda() *Node {
	start := p.tok.from
	p.next() // lambda
	n := NewNode(Lambda, start, 0)
	n.Append(p.parseParams(false))
	if !p.got(tokColon) {
		n.Append(p.errorHere())
	}
	n.Append(p.parseTest())
	n.to = p.prevEnd
	return n
}

func (p *parser) parseOr() *Node {
	start := p.tok.from
	e := p.parseAnd()
	if !p.at(tokOr) {
		return e
	}
	n := NewNode(BoolOp, start, 0)
	n.Append(e)
	for p.got(tokOr) {
		n.Append(p.parseAnd())
	}
	n.to = p.prevEnd
	return n
}

func (p *parser) parseAnd() *Node {
	start := p.tok.from
	e := p.parseNot()
	if !p.at(tokAnd) {
		return e
	}
	n := NewNode(BoolOp, start, 0)
	n.Append(e)
	for p.got(tokAnd) {
		n.Append(p.parseNot())
	}
	n.to = p.prevEnd
	return n
}

func (p *parser) parseNot() *Node {
	if p.at(tokNot) {
		start := p.tok.from
		p.next()
		n := NewNode(Unary, start, 0)
		n.Append(p.parseNot())
		n.to = p.prevEnd
		return n
	}
	return p.parseComparison()
}

func (p *parser) atCompareOp() bool {
	switch p.tok.tok {
	case tokLt, tokGt, tokLe, tokGe, tokEqEq, tokNe, tokIn, tokIs, tokNot:
		return true
	}
	return false
}

func (p *parser) parseComparison() *Node {
	start := p.tok.from
	e := p.parseBitOr()
	if !p.atCompareOp() {
		return e
	}
	n := NewNode(Compare, start, 0)
	n.Append(e)
	for p.atCompareOp() {
		switch p.tok.tok {
		case tokNot: // not in
			p.next()
			p.got(tokIn)
		case tokIs: // is / is not
			p.next()
			p.got(tokNot)
		default:
			p.next()
		}
		n.Append(p.parseBitOr())
	}
	n.to = p.prevEnd
	return n
}

// binaryChain parses a left-associative chain of binary operators at one
// precedence level.
func (p *parser) binaryChain(sub func() *Node, ops ...token) *Node {
	start := p.tok.from
	e := sub()
	for {
		match := false
		for _, op := range ops {
			if p.at(op) {
				match = true
				break
			}
		}
		if !match {
			return e
		}
		p.next()
		n := NewNode(Binary, start, 0)
		n.Append(e)
		n.Append(sub())
		n.to = p.prevEnd
		e = n
	}
}

func (p *parser) parseBitOr() *Node {
	return p.binaryChain(p.parseBitXor, tokPipe)
}

func (p *parser) parseBitXor() *Node {
	return p.binaryChain(p.parseBitAnd, tokCaret)
}

func (p *parser) parseBitAnd() *Node {
	return p.binaryChain(p.parseShift, tokAmp)
}

func (p *parser) parseShift() *Node {
	return p.binaryChain(p.parseArith, tokLtLt, tokGtGt)
}

func (p *parser) parseArith() *Node {
	return p.binaryChain(p.parseTerm, tokPlus, tokMinus)
}

func (p *parser) parseTerm() *Node {
	return p.binaryChain(p.parseFactor, tokStar, tokSlash, tokSlashSlash, tokPercent, tokAt)
}

func (p *parser) parseFactor() *Node {
	switch p.tok.tok {
	case tokPlus, tokMinus, tokTilde:
		start := p.tok.from
		p.next()
		n := NewNode(Unary, start, 0)
		n.Append(p.parseFactor())
		n.to = p.prevEnd
		return n
	case tokAwait:
		start := p.tok.from
		p.next()
		n := NewNode(AwaitExpr, start, 0)
		n.Append(p.parseFactor())
		n.to = p.prevEnd
		return n
	}
	return p.parsePower()
}

func (p *parser) parsePower() *Node {
	start := p.tok.from
	e := p.parsePostfix(p.parseAtom())
	if !p.at(tokStarStar) {
		return e
	}
	p.next()
	n := NewNode(Binary, start, 0)
	n.Append(e)
	n.Append(p.parseFactor()) // right-associative
	n.to = p.prevEnd
	return n
}

// parsePostfix parses call, subscript, and attribute trailers.
func (p *parser) parsePostfix(e *Node) *Node {
	for {
		switch p.tok.tok {
		case tokLParen:
			n := NewNode(Call, e.from, 0)
			n.Append(e)
			n.Append(p.parseCallArgs())
			n.to = p.prevEnd
			e = n
		case tokLBrack:
			p.next()
			n := NewNode(Subscript, e.from, 0)
			n.Append(e)
			for !p.at(tokRBrack) && !p.at(tokEOF) {
				n.Append(p.parseSliceItem())
				if !p.got(tokComma) {
					break
				}
			}
			p.got(tokRBrack)
			n.to = p.prevEnd
			e = n
		case tokDot:
			p.next()
			n := NewNode(Attribute, e.from, 0)
			n.Append(e)
			if p.at(tokIdent) {
				n.Append(p.leaf(AttrName))
			} else {
				n.Append(p.errorHere())
			}
			n.to = p.prevEnd
			e = n
		default:
			return e
		}
	}
}

func (p *parser) parseSliceItem() *Node {
	start := p.tok.from
	var lo *Node
	if !p.at(tokColon) {
		lo = p.parseTest()
		if !p.at(tokColon) {
			return lo
		}
	}
	sl := NewNode(Slice, start, 0)
	if lo != nil {
		sl.Append(lo)
	}
	p.next() // first ':'
	if p.atExprStart() {
		sl.Append(p.parseTest())
	}
	if p.got(tokColon) && p.atExprStart() {
		sl.Append(p.parseTest())
	}
	sl.to = p.prevEnd
	return sl
}

// parseCallArgs parses a parenthesized argument list into an Args node.
// The current token must be '('.
func (p *parser) parseCallArgs() *Node {
	start := p.tok.from
	p.next() // (
	args := NewNode(Args, start, 0)
	for !p.at(tokRParen) && !p.at(tokEOF) {
		switch p.tok.tok {
		case tokComma:
			p.next()
		case tokStar:
			s := p.tok.from
			p.next()
			n := NewNode(Splat, s, 0)
			n.Append(p.parseTest())
			n.to = p.prevEnd
			args.Append(n)
		case tokStarStar:
			s := p.tok.from
			p.next()
			n := NewNode(DoubleSplat, s, 0)
			n.Append(p.parseTest())
			n.to = p.prevEnd
			args.Append(n)
		default:
			e := p.parseTest()
			switch {
			case p.at(tokEq) && e.Kind() == Name:
				p.next()
				kw := NewNode(Keyword, e.from, 0)
				kw.Append(e)
				kw.Append(p.parseTest())
				kw.to = p.prevEnd
				args.Append(kw)
			case p.at(tokFor) || p.at(tokAsync):
				g := NewNode(GeneratorExp, e.from, 0)
				g.Append(e)
				p.parseCompClauses(g)
				g.to = p.prevEnd
				args.Append(g)
			default:
				args.Append(e)
			}
		}
	}
	p.got(tokRParen)
	args.to = p.prevEnd
	return args
}

// Assignment targets.

func (p *parser) atTargetStart() bool {
	switch p.tok.tok {
	case tokIdent, tokStar, tokLParen, tokLBrack:
		return true
	}
	return false
}

// parseTargetList parses the target of a for statement or comprehension
// clause, where "in" must terminate the list rather than being read as a
// comparison operator.
func (p *parser) parseTargetList() *Node {
	start := p.tok.from
	first := p.parseTarget()
	if !p.at(tokComma) {
		return first
	}
	t := NewNode(Tuple, start, 0)
	t.Append(first)
	for p.got(tokComma) {
		if !p.atTargetStart() {
			break
		}
		t.Append(p.parseTarget())
	}
	t.to = p.prevEnd
	return t
}

func (p *parser) parseTarget() *Node {
	switch p.tok.tok {
	case tokStar:
		start := p.tok.from
		p.next()
		n := NewNode(Splat, start, 0)
		n.Append(p.parseTarget())
		n.to = p.prevEnd
		return n
	case tokLParen:
		p.next()
		inner := p.parseTargetList()
		p.got(tokRParen)
		return inner
	case tokLBrack:
		start := p.tok.from
		p.next()
		l := NewNode(List, start, 0)
		for !p.at(tokRBrack) && !p.at(tokEOF) {
			if p.at(tokComma) {
				p.next()
				continue
			}
			if !p.atTargetStart() {
				l.Append(p.errorHere())
				p.next()
				continue
			}
			l.Append(p.parseTarget())
		}
		p.got(tokRBrack)
		l.to = p.prevEnd
		return l
	default:
		// Name, attribute target, or subscript target.
		return p.parsePostfix(p.parseAtom())
	}
}

// Comprehensions.

func (p *parser) parseCompClauses(parent *Node) {
	for {
		switch p.tok.tok {
		case tokAsync:
			p.next() // async for
		case tokFor:
			cf := NewNode(CompFor, p.tok.from, 0)
			p.next()
			cf.Append(p.parseTargetList())
			if p.got(tokIn) {
				// The iterable is an or-expression: a trailing "if"
				// starts the next clause, not a conditional.
				cf.Append(p.parseOr())
			} else {
				cf.Append(p.errorHere())
			}
			cf.to = p.prevEnd
			parent.Append(cf)
		case tokIf:
			ci := NewNode(CompIf, p.tok.from, 0)
			p.next()
			ci.Append(p.parseOr())
			ci.to = p.prevEnd
			parent.Append(ci)
		default:
			return
		}
	}
}

// Atoms.

func (p *parser) parseAtom() *Node {
	start := p.tok.from
	switch p.tok.tok {
	case tokIdent:
		return p.leaf(Name)
	case tokNumber:
		return p.leaf(NumberLit)
	case tokString:
		n := NewNode(StringLit, start, p.tok.to)
		p.next()
		for p.at(tokString) { // implicit concatenation
			n.to = p.tok.to
			p.next()
		}
		return n
	case tokTrue, tokFalse, tokNone, tokEllipsis:
		return p.leaf(NameConstant)
	case tokLambda:
		return p.parseLambda()
	case tokYield:
		p.next()
		n := NewNode(YieldExpr, start, p.prevEnd)
		p.got(tokFrom) // yield from
		if p.atExprStart() {
			n.Append(p.parseExprList(false))
			n.to = p.prevEnd
		}
		return n
	case tokLParen:
		p.next()
		if p.at(tokRParen) {
			p.next()
			return NewNode(Tuple, start, p.prevEnd)
		}
		e := p.parseTestOrStar(true)
		switch {
		case p.at(tokFor) || p.at(tokAsync):
			g := NewNode(GeneratorExp, start, 0)
			g.Append(e)
			p.parseCompClauses(g)
			p.got(tokRParen)
			g.to = p.prevEnd
			return g
		case p.at(tokComma):
			t := NewNode(Tuple, start, 0)
			t.Append(e)
			for p.got(tokComma) {
				if !p.atExprStart() {
					break
				}
				t.Append(p.parseTestOrStar(true))
			}
			p.got(tokRParen)
			t.to = p.prevEnd
			return t
		}
		p.got(tokRParen)
		return e
	case tokLBrack:
		p.next()
		if p.at(tokRBrack) {
			p.next()
			return NewNode(List, start, p.prevEnd)
		}
		e := p.parseTestOrStar(true)
		if p.at(tokFor) || p.at(tokAsync) {
			lc := NewNode(ListComp, start, 0)
			lc.Append(e)
			p.parseCompClauses(lc)
			p.got(tokRBrack)
			lc.to = p.prevEnd
			return lc
		}
		l := NewNode(List, start, 0)
		l.Append(e)
		for p.got(tokComma) {
			if !p.atExprStart() {
				break
			}
			l.Append(p.parseTestOrStar(true))
		}
		p.got(tokRBrack)
		l.to = p.prevEnd
		return l
	case tokLBrace:
		return p.parseBraceDisplay()
	}
	// Not an expression: flag and make progress without eating line
	// structure tokens.
	n := p.errorHere()
	switch p.tok.tok {
	case tokNewline, tokEOF, tokOutdent, tokIndent:
	default:
		p.next()
	}
	return n
}

// parseBraceDisplay parses dict and set displays and their
// comprehension forms. The current token is '{'.
func (p *parser) parseBraceDisplay() *Node {
	start := p.tok.from
	p.next() // {
	if p.at(tokRBrace) {
		p.next()
		return NewNode(Dict, start, p.prevEnd)
	}
	if p.at(tokStarStar) {
		// {**a, ...} is always a dict.
		d := NewNode(Dict, start, 0)
		p.parseDictItems(d)
		p.got(tokRBrace)
		d.to = p.prevEnd
		return d
	}
	first := p.parseTestOrStar(true)
	if p.got(tokColon) {
		entry := NewNode(DictEntry, first.from, 0)
		entry.Append(first)
		entry.Append(p.parseTest())
		entry.to = p.prevEnd
		if p.at(tokFor) || p.at(tokAsync) {
			dc := NewNode(DictComp, start, 0)
			dc.Append(entry)
			p.parseCompClauses(dc)
			p.got(tokRBrace)
			dc.to = p.prevEnd
			return dc
		}
		d := NewNode(Dict, start, 0)
		d.Append(entry)
		if p.got(tokComma) {
			p.parseDictItems(d)
		}
		p.got(tokRBrace)
		d.to = p.prevEnd
		return d
	}
	if p.at(tokFor) || p.at(tokAsync) {
		sc := NewNode(SetComp, start, 0)
		sc.Append(first)
		p.parseCompClauses(sc)
		p.got(tokRBrace)
		sc.to = p.prevEnd
		return sc
	}
	s := NewNode(Set, start, 0)
	s.Append(first)
	for p.got(tokComma) {
		if !p.atExprStart() {
			break
		}
		s.Append(p.parseTestOrStar(true))
	}
	p.got(tokRBrace)
	s.to = p.prevEnd
	return s
}

// parseDictItems parses the remaining "k: v" and "**m" items of a dict
// display, up to the closing brace.
func (p *parser) parseDictItems(d *Node) {
	for !p.at(tokRBrace) && !p.at(tokEOF) {
		if p.at(tokComma) {
			p.next()
			continue
		}
		if p.at(tokStarStar) {
			s := p.tok.from
			p.next()
			n := NewNode(DoubleSplat, s, 0)
			n.Append(p.parseTest())
			n.to = p.prevEnd
			d.Append(n)
			continue
		}
		k := p.parseTest()
		if !p.got(tokColon) {
			d.Append(k)
			d.Append(p.errorHere())
			return
		}
		entry := NewNode(DictEntry, k.from, 0)
		entry.Append(k)
		entry.Append(p.parseTest())
		entry.to = p.prevEnd
		d.Append(entry)
	}
}
