// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tspython adapts tree-sitter's Python grammar to the resolver.
//
// The resolver is parser-independent: it consumes the generic trees of
// the syntax package. This package produces such trees from the
// tree-sitter runtime, for hosts that already keep incremental
// tree-sitter parses of their cells. Hosts without one can use
// syntax.Parse instead.
package tspython // import "go.cellref.dev/tspython"

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"go.cellref.dev/syntax"
)

// Parse parses Python source with tree-sitter and converts the result.
func Parse(ctx context.Context, src []byte) (*syntax.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	return Convert(tree.RootNode()), nil
}

// Convert converts a tree-sitter parse tree rooted at a module node.
// Tree-sitter ERROR and missing nodes become Error nodes, which the
// resolver treats as poisoning the tree.
func Convert(root *sitter.Node) *syntax.Node {
	mod := syntax.NewNode(syntax.Module, int(root.StartByte()), int(root.EndByte()))
	convertChildren(mod, root)
	return mod
}

// kinds maps tree-sitter node types onto syntax kinds. Types absent
// here are either spliced (see splice) or passed through to their
// children.
var kinds = map[string]syntax.Kind{
	"function_definition":      syntax.FunctionDef,
	"class_definition":         syntax.ClassDef,
	"lambda":                   syntax.Lambda,
	"augmented_assignment":     syntax.AugAssign,
	"named_expression":         syntax.NamedExpr,
	"for_statement":            syntax.ForStmt,
	"while_statement":          syntax.WhileStmt,
	"if_statement":             syntax.IfStmt,
	"try_statement":            syntax.TryStmt,
	"with_statement":           syntax.WithStmt,
	"with_item":                syntax.WithItem,
	"global_statement":         syntax.GlobalStmt,
	"nonlocal_statement":       syntax.NonlocalStmt,
	"return_statement":         syntax.ReturnStmt,
	"delete_statement":         syntax.DeleteStmt,
	"raise_statement":          syntax.RaiseStmt,
	"assert_statement":         syntax.AssertStmt,
	"pass_statement":           syntax.PassStmt,
	"break_statement":          syntax.BreakStmt,
	"continue_statement":       syntax.ContinueStmt,
	"expression_statement":     syntax.ExprStmt,
	"decorator":                syntax.Decorator,
	"identifier":               syntax.Name,
	"subscript":                syntax.Subscript,
	"slice":                    syntax.Slice,
	"call":                     syntax.Call,
	"argument_list":            syntax.Args,
	"keyword_argument":         syntax.Keyword,
	"list_splat":               syntax.Splat,
	"dictionary_splat":         syntax.DoubleSplat,
	"list_comprehension":       syntax.ListComp,
	"set_comprehension":        syntax.SetComp,
	"dictionary_comprehension": syntax.DictComp,
	"generator_expression":     syntax.GeneratorExp,
	"for_in_clause":            syntax.CompFor,
	"if_clause":                syntax.CompIf,
	"tuple":                    syntax.Tuple,
	"tuple_pattern":            syntax.Tuple,
	"pattern_list":             syntax.Tuple,
	"expression_list":          syntax.Tuple,
	"list":                     syntax.List,
	"list_pattern":             syntax.List,
	"set":                      syntax.Set,
	"dictionary":               syntax.Dict,
	"pair":                     syntax.DictEntry,
	"unary_operator":           syntax.Unary,
	"not_operator":             syntax.Unary,
	"binary_operator":          syntax.Binary,
	"boolean_operator":         syntax.BoolOp,
	"comparison_operator":      syntax.Compare,
	"conditional_expression":   syntax.CondExpr,
	"await":                    syntax.AwaitExpr,
	"yield":                    syntax.YieldExpr,
	"string":                   syntax.StringLit,
	"concatenated_string":      syntax.StringLit,
	"integer":                  syntax.NumberLit,
	"float":                    syntax.NumberLit,
	"true":                     syntax.NameConstant,
	"false":                    syntax.NameConstant,
	"none":                     syntax.NameConstant,
	"ellipsis":                 syntax.NameConstant,
	"dotted_name":              syntax.ModulePath,
	"relative_import":          syntax.ModulePath,
	"wildcard_import":          syntax.ImportStar,
}

// leaf kinds carry no children worth converting. Strings in particular
// are left opaque: interpolated expressions inside f-strings are not
// analyzed, matching the bundled parser.
var leaf = map[syntax.Kind]bool{
	syntax.Name:         true,
	syntax.AttrName:     true,
	syntax.StringLit:    true,
	syntax.NumberLit:    true,
	syntax.NameConstant: true,
	syntax.ModulePath:   true,
	syntax.ImportStar:   true,
	syntax.PassStmt:     true,
	syntax.BreakStmt:    true,
	syntax.ContinueStmt: true,
}

// splice lists wrapper types whose children are folded directly into
// the parent node.
var splice = map[string]bool{
	"block":                    true,
	"elif_clause":              true,
	"else_clause":              true,
	"finally_clause":           true,
	"with_clause":              true,
	"decorated_definition":     true,
	"type":                     true,
	"parenthesized_expression": true,
	"interpolation":            true,
}

func newNode(k syntax.Kind, n *sitter.Node) *syntax.Node {
	return syntax.NewNode(k, int(n.StartByte()), int(n.EndByte()))
}

func convertChildren(parent *syntax.Node, n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		convertInto(parent, n.NamedChild(i))
	}
}

func convertInto(parent *syntax.Node, n *sitter.Node) {
	t := n.Type()
	if t == "ERROR" || n.IsMissing() {
		parent.Append(syntax.NewNode(syntax.Error, int(n.StartByte()), int(n.EndByte())))
		return
	}
	if t == "comment" {
		return
	}
	if splice[t] {
		convertChildren(parent, n)
		return
	}

	switch t {
	case "assignment":
		kind := syntax.Assign
		if n.ChildByFieldName("type") != nil {
			kind = syntax.AnnAssign
		}
		node := newNode(kind, n)
		convertChildren(node, n)
		parent.Append(node)

	case "attribute":
		node := newNode(syntax.Attribute, n)
		if obj := n.ChildByFieldName("object"); obj != nil {
			convertInto(node, obj)
		}
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			node.Append(newNode(syntax.AttrName, attr))
		}
		parent.Append(node)

	case "parameters", "lambda_parameters":
		node := newNode(syntax.Params, n)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			convertParam(node, n.NamedChild(i))
		}
		parent.Append(node)

	case "as_pattern":
		// "x as y" flattens to the value followed by an AsTarget, in
		// with items, except clauses, and patterns alike.
		if v := n.NamedChild(0); v != nil {
			convertInto(parent, v)
		}
		if alias := n.ChildByFieldName("alias"); alias != nil {
			as := newNode(syntax.AsTarget, alias)
			convertChildren(as, alias) // as_pattern_target wraps an identifier
			parent.Append(as)
		}

	case "except_clause":
		parent.Append(convertExcept(n))

	case "import_statement", "future_import_statement", "import_from_statement":
		parent.Append(convertImport(n))

	case "aliased_import":
		node := newNode(syntax.ImportAlias, n)
		convertChildren(node, n)
		parent.Append(node)

	case "list_splat_pattern", "dictionary_splat_pattern":
		kind := syntax.Splat
		if parent.Kind() == syntax.Params {
			kind = syntax.SplatParam
			if t == "dictionary_splat_pattern" {
				kind = syntax.KwSplatParam
			}
		}
		node := newNode(kind, n)
		convertChildren(node, n)
		parent.Append(node)

	default:
		kind, ok := kinds[t]
		if !ok {
			// Unmodeled syntax: keep whatever it contains visible.
			convertChildren(parent, n)
			return
		}
		node := newNode(kind, n)
		if !leaf[kind] {
			convertChildren(node, n)
		}
		parent.Append(node)
	}
}

// convertParam produces one Params child. Bare identifiers are wrapped
// in Param so every parameter has a uniform shape with the name first.
func convertParam(params *syntax.Node, n *sitter.Node) {
	switch n.Type() {
	case "identifier":
		p := newNode(syntax.Param, n)
		p.Append(newNode(syntax.Name, n))
		params.Append(p)
	case "default_parameter", "typed_parameter", "typed_default_parameter":
		p := newNode(syntax.Param, n)
		convertChildren(p, n)
		params.Append(p)
	case "positional_separator", "keyword_separator":
		// "/" and "*" markers bind nothing.
	default:
		convertInto(params, n)
	}
}

// convertExcept wraps the as-alias of the pre-3.11 two-expression form
// in AsTarget; the as_pattern form is already handled by convertInto.
func convertExcept(n *sitter.Node) *syntax.Node {
	node := newNode(syntax.ExceptClause, n)
	exprs := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "comment":
		case "block":
			convertChildren(node, c)
		default:
			exprs++
			if exprs == 2 && c.Type() == "identifier" {
				as := newNode(syntax.AsTarget, c)
				as.Append(newNode(syntax.Name, c))
				node.Append(as)
				continue
			}
			convertInto(node, c)
		}
	}
	return node
}

// convertImport normalizes import statements so that every imported
// item is an ImportAlias, mirroring the bundled parser's shape.
func convertImport(n *sitter.Node) *syntax.Node {
	kind := syntax.ImportStmt
	if n.Type() != "import_statement" {
		kind = syntax.ImportFrom
	}
	node := newNode(kind, n)

	var modStart = -1
	if mod := n.ChildByFieldName("module_name"); mod != nil {
		modStart = int(mod.StartByte())
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "comment":
		case "dotted_name", "relative_import", "identifier":
			if int(c.StartByte()) == modStart {
				// The module being imported from, not a bound name.
				node.Append(newNode(syntax.ModulePath, c))
				continue
			}
			al := newNode(syntax.ImportAlias, c)
			if kind == syntax.ImportStmt {
				al.Append(newNode(syntax.ModulePath, c))
			} else {
				al.Append(newNode(syntax.Name, c))
			}
			node.Append(al)
		default:
			convertInto(node, c)
		}
	}
	return node
}

