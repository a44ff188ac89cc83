// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

import (
	"strings"
	"testing"
)

// tokenize returns the token stream for src as a single string, using
// the identifier text for ident tokens.
func tokenize(src string) string {
	sc := newScanner(src)
	var parts []string
	for {
		v := sc.nextToken()
		s := v.tok.String()
		if v.tok == tokIdent {
			s = v.text
		}
		parts = append(parts, s)
		if v.tok == tokEOF {
			return strings.Join(parts, " ")
		}
	}
}

func TestScanner(t *testing.T) {
	for _, test := range []struct {
		input, want string
	}{
		{"x = 1\n", "x = number newline EOF"},
		{"x = 1", "x = number newline EOF"}, // no trailing newline
		{"x\n\n\ny\n", "x newline y newline EOF"},
		{"# comment\nx = 1\n", "x = number newline EOF"},
		{"def f(a, b):\n    return a\n",
			"def f ( a , b ) : newline indent return a newline outdent EOF"},
		{"if a:\n    if b:\n        c\nd\n",
			"if a : newline indent if b : newline indent c newline outdent outdent d newline EOF"},
		{"x = (1 +\n     2)\n", "x = ( number + number ) newline EOF"},
		{"x = 1 + \\\n2\n", "x = number + number newline EOF"},
		{"s = 'hi' + r\"raw\"\n", "s = string + string newline EOF"},
		{"s = '''a\nb'''\n", "s = string newline EOF"},
		{"s = f\"hi {name}\"\n", "s = string newline EOF"},
		{"x := y\nx += 1\n", "x := y newline x augassign number newline EOF"},
		{"x //= 2\nx **= 2\nx >>= 1\n",
			"x augassign number newline x augassign number newline x augassign number newline EOF"},
		{"x = 0x1f + 1_000 + 1.5e-3 + 2j\n",
			"x = number + number + number + number newline EOF"},
		{"def f() -> int: ...\n", "def f ( ) -> int : ... newline EOF"},
		{"a < b <= c == d != e\n", "a < b <= c == d != e newline EOF"},
		{"a << b >> c\n", "a << b >> c newline EOF"},
		{"x = a if b else c\n", "x = a if b else c newline EOF"},
		{"lambda *args, **kw: 0\n", "lambda * args , ** kw : number newline EOF"},
		{"x = $\n", "x = illegal newline EOF"},
		{"s = 'oops\nx\n", "s = illegal newline x newline EOF"},
		// Dedent to a level never seen.
		{"if a:\n        b\n  c\n",
			"if a : newline indent b newline outdent illegal c newline EOF"},
	} {
		if got := tokenize(test.input); got != test.want {
			t.Errorf("scan(%q):\ngot  %s\nwant %s", test.input, got, test.want)
		}
	}
}

func TestScannerSpans(t *testing.T) {
	src := "total = price * qty\n"
	sc := newScanner(src)
	for {
		v := sc.nextToken()
		if v.tok == tokEOF {
			break
		}
		if v.from > v.to || v.to > len(src) {
			t.Fatalf("token %s has span [%d,%d) outside source", v.tok, v.from, v.to)
		}
		if v.tok == tokIdent && src[v.from:v.to] != v.text {
			t.Errorf("ident span [%d,%d) = %q, text %q", v.from, v.to, src[v.from:v.to], v.text)
		}
	}
}
