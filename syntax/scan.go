// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// An indentation-aware tokenizer for the Python-like cell grammar.
//
// Newlines inside brackets are suppressed (implicit line joining), and
// changes of leading indentation on a logical line produce synthetic
// indent/outdent tokens. Malformed input (stray characters, unterminated
// strings, inconsistent dedents) yields illegal tokens; the parser turns
// those into Error nodes rather than failing.

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type token uint8

const (
	tokEOF token = iota
	tokNewline
	tokIndent
	tokOutdent
	tokIllegal

	tokIdent
	tokNumber
	tokString

	// Punctuation.
	tokLParen
	tokRParen
	tokLBrack
	tokRBrack
	tokLBrace
	tokRBrace
	tokComma
	tokColon
	tokSemi
	tokDot
	tokEllipsis
	tokArrow
	tokAt

	// Assignment operators.
	tokEq     // =
	tokWalrus // :=
	tokAugEq  // +=, -=, *=, /=, //=, %=, @=, &=, |=, ^=, <<=, >>=, **=

	// Operators.
	tokPlus
	tokMinus
	tokStar
	tokStarStar
	tokSlash
	tokSlashSlash
	tokPercent
	tokAmp
	tokPipe
	tokCaret
	tokTilde
	tokLtLt
	tokGtGt
	tokLt
	tokGt
	tokLe
	tokGe
	tokEqEq
	tokNe

	// Keywords.
	tokAnd
	tokAs
	tokAssert
	tokAsync
	tokAwait
	tokBreak
	tokClass
	tokContinue
	tokDef
	tokDel
	tokElif
	tokElse
	tokExcept
	tokFalse
	tokFinally
	tokFor
	tokFrom
	tokGlobal
	tokIf
	tokImport
	tokIn
	tokIs
	tokLambda
	tokNone
	tokNonlocal
	tokNot
	tokOr
	tokPass
	tokRaise
	tokReturn
	tokTrue
	tokTry
	tokWhile
	tokWith
	tokYield
)

var tokenNames = [...]string{
	tokEOF:        "EOF",
	tokNewline:    "newline",
	tokIndent:     "indent",
	tokOutdent:    "outdent",
	tokIllegal:    "illegal",
	tokIdent:      "ident",
	tokNumber:     "number",
	tokString:     "string",
	tokLParen:     "(",
	tokRParen:     ")",
	tokLBrack:     "[",
	tokRBrack:     "]",
	tokLBrace:     "{",
	tokRBrace:     "}",
	tokComma:      ",",
	tokColon:      ":",
	tokSemi:       ";",
	tokDot:        ".",
	tokEllipsis:   "...",
	tokArrow:      "->",
	tokAt:         "@",
	tokEq:         "=",
	tokWalrus:     ":=",
	tokAugEq:      "augassign",
	tokPlus:       "+",
	tokMinus:      "-",
	tokStar:       "*",
	tokStarStar:   "**",
	tokSlash:      "/",
	tokSlashSlash: "//",
	tokPercent:    "%",
	tokAmp:        "&",
	tokPipe:       "|",
	tokCaret:      "^",
	tokTilde:      "~",
	tokLtLt:       "<<",
	tokGtGt:       ">>",
	tokLt:         "<",
	tokGt:         ">",
	tokLe:         "<=",
	tokGe:         ">=",
	tokEqEq:       "==",
	tokNe:         "!=",
	tokAnd:        "and",
	tokAs:         "as",
	tokAssert:     "assert",
	tokAsync:      "async",
	tokAwait:      "await",
	tokBreak:      "break",
	tokClass:      "class",
	tokContinue:   "continue",
	tokDef:        "def",
	tokDel:        "del",
	tokElif:       "elif",
	tokElse:       "else",
	tokExcept:     "except",
	tokFalse:      "False",
	tokFinally:    "finally",
	tokFor:        "for",
	tokFrom:       "from",
	tokGlobal:     "global",
	tokIf:         "if",
	tokImport:     "import",
	tokIn:         "in",
	tokIs:         "is",
	tokLambda:     "lambda",
	tokNone:       "None",
	tokNonlocal:   "nonlocal",
	tokNot:        "not",
	tokOr:         "or",
	tokPass:       "pass",
	tokRaise:      "raise",
	tokReturn:     "return",
	tokTrue:       "True",
	tokTry:        "try",
	tokWhile:      "while",
	tokWith:       "with",
	tokYield:      "yield",
}

func (t token) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "illegal"
}

var keywords = map[string]token{
	"and":      tokAnd,
	"as":       tokAs,
	"assert":   tokAssert,
	"async":    tokAsync,
	"await":    tokAwait,
	"break":    tokBreak,
	"class":    tokClass,
	"continue": tokContinue,
	"def":      tokDef,
	"del":      tokDel,
	"elif":     tokElif,
	"else":     tokElse,
	"except":   tokExcept,
	"False":    tokFalse,
	"finally":  tokFinally,
	"for":      tokFor,
	"from":     tokFrom,
	"global":   tokGlobal,
	"if":       tokIf,
	"import":   tokImport,
	"in":       tokIn,
	"is":       tokIs,
	"lambda":   tokLambda,
	"None":     tokNone,
	"nonlocal": tokNonlocal,
	"not":      tokNot,
	"or":       tokOr,
	"pass":     tokPass,
	"raise":    tokRaise,
	"return":   tokReturn,
	"True":     tokTrue,
	"try":      tokTry,
	"while":    tokWhile,
	"with":     tokWith,
	"yield":    tokYield,
}

// A tokenValue is one scanned token with its source span.
type tokenValue struct {
	tok      token
	from, to int
	text     string
}

type scanner struct {
	src       string
	pos       int
	depth     int          // bracket nesting depth; newlines are suppressed inside
	indents   []int        // stack of indentation columns; indents[0] == 0
	queue     []tokenValue // pending synthetic tokens (indent/outdent/newline)
	lineStart bool         // next token begins a logical line
	eofDone   bool         // end-of-file synthetic tokens already queued
	prev      token        // last token handed to the parser
}

func newScanner(src string) *scanner {
	return &scanner{
		src:       src,
		indents:   []int{0},
		lineStart: true,
		prev:      tokNewline,
	}
}

func (s *scanner) synth(t token) tokenValue {
	return tokenValue{tok: t, from: s.pos, to: s.pos}
}

// nextToken returns the next token of the input.
// After the input is exhausted it returns tokEOF forever.
func (s *scanner) nextToken() tokenValue {
	v := s.scan()
	s.prev = v.tok
	return v
}

func (s *scanner) scan() tokenValue {
	for {
		if len(s.queue) > 0 {
			v := s.queue[0]
			s.queue = s.queue[1:]
			return v
		}

		if s.lineStart && s.depth == 0 {
			s.startLine()
			continue
		}

		s.skipSpace()

		if s.pos >= len(s.src) {
			if !s.eofDone {
				s.eofDone = true
				if s.prev != tokNewline && s.prev != tokOutdent {
					s.queue = append(s.queue, s.synth(tokNewline))
				}
				for len(s.indents) > 1 {
					s.indents = s.indents[:len(s.indents)-1]
					s.queue = append(s.queue, s.synth(tokOutdent))
				}
				s.queue = append(s.queue, s.synth(tokEOF))
				continue
			}
			return s.synth(tokEOF)
		}

		c := s.src[s.pos]
		switch {
		case c == '#':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			continue
		case c == '\n':
			s.pos++
			if s.depth > 0 {
				continue
			}
			s.lineStart = true
			return tokenValue{tok: tokNewline, from: s.pos - 1, to: s.pos}
		case c == '\'' || c == '"':
			return s.scanString(s.pos, false)
		case isDigit(c) || (c == '.' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1])):
			return s.scanNumber()
		case isIdentStart(c):
			return s.scanIdent()
		default:
			return s.scanOperator()
		}
	}
}

// startLine measures the indentation of the next non-blank line and
// queues indent/outdent tokens for any change of level.
func (s *scanner) startLine() {
	s.lineStart = false
	for {
		col := 0
		p := s.pos
		for p < len(s.src) {
			switch s.src[p] {
			case ' ':
				col++
			case '\t':
				col += 8 - col%8
			default:
				goto measured
			}
			p++
		}
	measured:
		if p >= len(s.src) {
			s.pos = p
			return
		}
		switch s.src[p] {
		case '\n':
			// Blank line: no tokens.
			s.pos = p + 1
			continue
		case '#':
			for p < len(s.src) && s.src[p] != '\n' {
				p++
			}
			s.pos = p
			continue
		}
		s.pos = p

		cur := s.indents[len(s.indents)-1]
		switch {
		case col > cur:
			s.indents = append(s.indents, col)
			s.queue = append(s.queue, s.synth(tokIndent))
		case col < cur:
			for len(s.indents) > 1 && col < s.indents[len(s.indents)-1] {
				s.indents = s.indents[:len(s.indents)-1]
				s.queue = append(s.queue, s.synth(tokOutdent))
			}
			if col != s.indents[len(s.indents)-1] {
				// Dedent to a level never seen; align and flag.
				s.indents[len(s.indents)-1] = col
				s.queue = append(s.queue, s.synth(tokIllegal))
			}
		}
		return
	}
}

// skipSpace advances over spaces, tabs, carriage returns, and
// backslash-newline continuations.
func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\r':
			s.pos++
		case '\\':
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\n' {
				s.pos += 2
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *scanner) scanIdent() tokenValue {
	from := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c < utf8.RuneSelf {
			if !isIdentStart(c) && !isDigit(c) {
				break
			}
			s.pos++
			continue
		}
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		s.pos += size
	}
	word := s.src[from:s.pos]

	// A short run of prefix letters directly before a quote begins a
	// string literal (r"...", b'...', f"...", rb"...").
	if len(word) <= 2 && s.pos < len(s.src) &&
		(s.src[s.pos] == '\'' || s.src[s.pos] == '"') &&
		isStringPrefix(word) {
		raw := strings.ContainsAny(word, "rR")
		return s.scanString(from, raw)
	}

	if kw, ok := keywords[word]; ok {
		return tokenValue{tok: kw, from: from, to: s.pos, text: word}
	}
	return tokenValue{tok: tokIdent, from: from, to: s.pos, text: word}
}

func isStringPrefix(word string) bool {
	for i := 0; i < len(word); i++ {
		switch word[i] {
		case 'r', 'R', 'b', 'B', 'f', 'F', 'u', 'U':
		default:
			return false
		}
	}
	return true
}

// scanString scans a quoted literal beginning at the current quote
// character. from is the start of the literal including any prefix.
// The contents of f-strings are not tokenized; the whole literal is one
// opaque token.
func (s *scanner) scanString(from int, raw bool) tokenValue {
	quote := s.src[s.pos]
	triple := s.pos+2 < len(s.src) && s.src[s.pos+1] == quote && s.src[s.pos+2] == quote
	if triple {
		s.pos += 3
	} else {
		s.pos++
	}
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\' && !raw && s.pos+1 < len(s.src):
			s.pos += 2
		case c == quote:
			if !triple {
				s.pos++
				return tokenValue{tok: tokString, from: from, to: s.pos}
			}
			if s.pos+2 < len(s.src) && s.src[s.pos+1] == quote && s.src[s.pos+2] == quote {
				s.pos += 3
				return tokenValue{tok: tokString, from: from, to: s.pos}
			}
			s.pos++
		case c == '\n' && !triple:
			// Unterminated single-quoted string.
			return tokenValue{tok: tokIllegal, from: from, to: s.pos}
		default:
			s.pos++
		}
	}
	return tokenValue{tok: tokIllegal, from: from, to: s.pos}
}

func (s *scanner) scanNumber() tokenValue {
	from := s.pos
	if s.src[s.pos] == '0' && s.pos+1 < len(s.src) {
		switch s.src[s.pos+1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			s.pos += 2
			for s.pos < len(s.src) && (isHexDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
				s.pos++
			}
			return tokenValue{tok: tokNumber, from: from, to: s.pos}
		}
	}
	digits := func() {
		for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
			s.pos++
		}
	}
	digits()
	if s.pos < len(s.src) && s.src[s.pos] == '.' {
		s.pos++
		digits()
	}
	if s.pos < len(s.src) && (s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
		p := s.pos + 1
		if p < len(s.src) && (s.src[p] == '+' || s.src[p] == '-') {
			p++
		}
		if p < len(s.src) && isDigit(s.src[p]) {
			s.pos = p
			digits()
		}
	}
	if s.pos < len(s.src) && (s.src[s.pos] == 'j' || s.src[s.pos] == 'J') {
		s.pos++
	}
	return tokenValue{tok: tokNumber, from: from, to: s.pos}
}

func (s *scanner) scanOperator() tokenValue {
	from := s.pos
	one := func(t token) tokenValue {
		s.pos++
		return tokenValue{tok: t, from: from, to: s.pos}
	}
	two := func(t token) tokenValue {
		s.pos += 2
		return tokenValue{tok: t, from: from, to: s.pos}
	}
	three := func(t token) tokenValue {
		s.pos += 3
		return tokenValue{tok: t, from: from, to: s.pos}
	}
	rest := s.src[s.pos:]
	c := rest[0]
	switch c {
	case '(':
		s.depth++
		return one(tokLParen)
	case '[':
		s.depth++
		return one(tokLBrack)
	case '{':
		s.depth++
		return one(tokLBrace)
	case ')':
		if s.depth > 0 {
			s.depth--
		}
		return one(tokRParen)
	case ']':
		if s.depth > 0 {
			s.depth--
		}
		return one(tokRBrack)
	case '}':
		if s.depth > 0 {
			s.depth--
		}
		return one(tokRBrace)
	case ',':
		return one(tokComma)
	case ';':
		return one(tokSemi)
	case '~':
		return one(tokTilde)
	case '.':
		if strings.HasPrefix(rest, "...") {
			return three(tokEllipsis)
		}
		return one(tokDot)
	case ':':
		if strings.HasPrefix(rest, ":=") {
			return two(tokWalrus)
		}
		return one(tokColon)
	case '=':
		if strings.HasPrefix(rest, "==") {
			return two(tokEqEq)
		}
		return one(tokEq)
	case '!':
		if strings.HasPrefix(rest, "!=") {
			return two(tokNe)
		}
		return one(tokIllegal)
	case '*':
		switch {
		case strings.HasPrefix(rest, "**="):
			return three(tokAugEq)
		case strings.HasPrefix(rest, "**"):
			return two(tokStarStar)
		case strings.HasPrefix(rest, "*="):
			return two(tokAugEq)
		}
		return one(tokStar)
	case '/':
		switch {
		case strings.HasPrefix(rest, "//="):
			return three(tokAugEq)
		case strings.HasPrefix(rest, "//"):
			return two(tokSlashSlash)
		case strings.HasPrefix(rest, "/="):
			return two(tokAugEq)
		}
		return one(tokSlash)
	case '<':
		switch {
		case strings.HasPrefix(rest, "<<="):
			return three(tokAugEq)
		case strings.HasPrefix(rest, "<<"):
			return two(tokLtLt)
		case strings.HasPrefix(rest, "<="):
			return two(tokLe)
		}
		return one(tokLt)
	case '>':
		switch {
		case strings.HasPrefix(rest, ">>="):
			return three(tokAugEq)
		case strings.HasPrefix(rest, ">>"):
			return two(tokGtGt)
		case strings.HasPrefix(rest, ">="):
			return two(tokGe)
		}
		return one(tokGt)
	case '-':
		switch {
		case strings.HasPrefix(rest, "-="):
			return two(tokAugEq)
		case strings.HasPrefix(rest, "->"):
			return two(tokArrow)
		}
		return one(tokMinus)
	case '+':
		if strings.HasPrefix(rest, "+=") {
			return two(tokAugEq)
		}
		return one(tokPlus)
	case '%':
		if strings.HasPrefix(rest, "%=") {
			return two(tokAugEq)
		}
		return one(tokPercent)
	case '&':
		if strings.HasPrefix(rest, "&=") {
			return two(tokAugEq)
		}
		return one(tokAmp)
	case '|':
		if strings.HasPrefix(rest, "|=") {
			return two(tokAugEq)
		}
		return one(tokPipe)
	case '^':
		if strings.HasPrefix(rest, "^=") {
			return two(tokAugEq)
		}
		return one(tokCaret)
	case '@':
		if strings.HasPrefix(rest, "@=") {
			return two(tokAugEq)
		}
		return one(tokAt)
	}
	// Skip one rune so the scanner always makes progress.
	_, size := utf8.DecodeRuneInString(rest)
	s.pos += size
	return tokenValue{tok: tokIllegal, from: from, to: s.pos}
}

func isIdentStart(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c >= utf8.RuneSelf
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
