// Package locator parses declaration files into span-addressed statements.
//
// A declaration file is plain Python-syntax source where each record is a
// top-level statement of the shape `key = Constructor(args...)`. The locator
// never rewrites anything: it builds an index of byte spans over the original
// text, which the editor splices. Anything that is not a recognized
// declaration or bare call statement stays opaque raw text.
package locator

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/driftdb/snowdrift/internal/apperr"
)

var (
	languageOnce sync.Once
	language     *tree_sitter.Language
	parserPool   *sync.Pool
)

func initLanguage() {
	languageOnce.Do(func() {
		language = tree_sitter.NewLanguage(tree_sitter_python.Language())
		parserPool = &sync.Pool{
			New: func() any {
				p := tree_sitter.NewParser()
				if err := p.SetLanguage(language); err != nil {
					panic(fmt.Sprintf("set language: %v", err))
				}
				return p
			},
		}
	})
}

// Parse parses source into a File. Parsers are pooled via sync.Pool to avoid
// per-file allocation. Syntax errors are reported with file and line and wrap
// apperr.ErrParse.
func Parse(path string, source []byte) (*File, error) {
	initLanguage()

	p, _ := parserPool.Get().(*tree_sitter.Parser)
	if p == nil {
		return nil, fmt.Errorf("locator: failed to get parser")
	}
	tree := p.Parse(source, nil)
	parserPool.Put(p)

	if tree == nil {
		return nil, fmt.Errorf("locator: %s: parse failed: %w", path, apperr.ErrParse)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		return nil, fmt.Errorf("locator: %s:%d: invalid declaration syntax: %w", path, line, apperr.ErrParse)
	}

	f := &File{Path: path, Source: source}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		if node == nil {
			continue
		}
		f.Statements = append(f.Statements, convertStatement(node, source))
	}
	return f, nil
}

// firstErrorLine returns the 1-based line of the first error node.
func firstErrorLine(root *tree_sitter.Node) int {
	line := int(root.StartPosition().Row) + 1
	var walk func(n *tree_sitter.Node) bool
	walk = func(n *tree_sitter.Node) bool {
		if n.IsError() || n.IsMissing() {
			line = int(n.StartPosition().Row) + 1
			return true
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil && walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return line
}

func nodeSpan(n *tree_sitter.Node) Span {
	return Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func nodeText(n *tree_sitter.Node, source []byte) string {
	return string(source[n.StartByte():n.EndByte()])
}

func findChildByKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// convertStatement classifies one top-level statement.
//
// The declaration shape is strict: expression_statement → assignment with a
// single identifier target and a call value whose function is an identifier.
// A bare call statement with an identifier function becomes a CallInfo.
// Everything else is opaque.
func convertStatement(node *tree_sitter.Node, source []byte) Statement {
	stmt := Statement{Span: nodeSpan(node)}
	if node.Kind() != "expression_statement" {
		return stmt
	}

	if assign := findChildByKind(node, "assignment"); assign != nil {
		left := assign.ChildByFieldName("left")
		right := assign.ChildByFieldName("right")
		if left != nil && right != nil && left.Kind() == "identifier" && right.Kind() == "call" {
			if decl := convertCallDecl(left, right, source); decl != nil {
				stmt.Decl = decl
			}
		}
		return stmt
	}

	if call := findChildByKind(node, "call"); call != nil {
		fn := call.ChildByFieldName("function")
		args := call.ChildByFieldName("arguments")
		if fn != nil && args != nil && fn.Kind() == "identifier" {
			info := &CallInfo{Constructor: nodeText(fn, source)}
			for i := uint(0); i < args.NamedChildCount(); i++ {
				child := args.NamedChild(i)
				if child == nil || child.Kind() == "comment" || child.Kind() == "keyword_argument" {
					continue
				}
				info.Args = append(info.Args, convertExpr(child, source))
			}
			stmt.Call = info
		}
	}
	return stmt
}

func convertCallDecl(left, call *tree_sitter.Node, source []byte) *Declaration {
	fn := call.ChildByFieldName("function")
	args := call.ChildByFieldName("arguments")
	if fn == nil || args == nil || fn.Kind() != "identifier" {
		return nil
	}

	decl := &Declaration{
		Key:             nodeText(left, source),
		KeySpan:         nodeSpan(left),
		Constructor:     nodeText(fn, source),
		ConstructorSpan: nodeSpan(fn),
		ArgListSpan:     nodeSpan(args),
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		child := args.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		if child.Kind() == "keyword_argument" {
			name := child.ChildByFieldName("name")
			value := child.ChildByFieldName("value")
			if name == nil || value == nil {
				continue
			}
			decl.Keywords = append(decl.Keywords, Keyword{
				Name:     nodeText(name, source),
				NameSpan: nodeSpan(name),
				Value:    convertExpr(value, source),
				Span:     nodeSpan(child),
			})
			continue
		}
		decl.Positional = append(decl.Positional, convertExpr(child, source))
	}
	return decl
}

// convertExpr builds the span tree for an argument expression. Leaf kinds
// (names, strings, numbers) keep no children; containers and calls carry
// their named children so the reference scan can recurse.
func convertExpr(node *tree_sitter.Node, source []byte) Expr {
	e := Expr{Span: nodeSpan(node)}
	switch node.Kind() {
	case "identifier":
		e.Kind = ExprName
		e.Name = nodeText(node, source)
		return e
	case "string", "concatenated_string":
		e.Kind = ExprString
		return e
	case "integer", "float":
		e.Kind = ExprNumber
		return e
	case "true", "false", "none":
		e.Kind = ExprOther
		return e
	case "list", "tuple", "set":
		e.Kind = ExprList
	case "dictionary":
		e.Kind = ExprDict
	case "call":
		e.Kind = ExprCall
	default:
		e.Kind = ExprOther
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		e.Elements = append(e.Elements, convertExpr(child, source))
	}
	return e
}
