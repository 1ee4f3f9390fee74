// Package css holds the small stylesheet tree the text stages operate on.
//
// Parsing is delegated to tdewolff/parse; the printer emits one canonical
// layout so that parse(print(tree)) yields the same tree and stages that
// re-parse their own output stay idempotent.
package css

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	tcss "github.com/tdewolff/parse/v2/css"
)

// Node is one item of a stylesheet or block.
type Node interface {
	isNode()
}

// Comment is a /* ... */ comment, delimiters included.
type Comment struct {
	Text string
}

// Decl is a declaration such as "color: red !important".
type Decl struct {
	Property  string
	Value     string
	Important bool
}

// AtRule is an at-rule. Name excludes the "@". Block rules (e.g. @media)
// carry their children in Nodes; statement rules (e.g. @import) do not.
type AtRule struct {
	Name    string
	Prelude string
	Block   bool
	Nodes   []Node
}

// Rule is a qualified rule: a selector list and its block.
type Rule struct {
	Selector string
	Nodes    []Node
}

func (*Comment) isNode() {}
func (*Decl) isNode()    {}
func (*AtRule) isNode()  {}
func (*Rule) isNode()    {}

// Stylesheet is a parsed file.
type Stylesheet struct {
	Origin string
	Nodes  []Node
}

// Token is one lexical token of a value or prelude.
type Token struct {
	Type tcss.TokenType
	Text string
}

// ParseError reports a syntax error in origin.
type ParseError struct {
	Origin string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Origin, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse builds a tree from text. origin is only used in error messages.
func Parse(origin, text string) (*Stylesheet, error) {
	if err := checkBraces(text); err != nil {
		return nil, &ParseError{Origin: origin, Err: err}
	}
	p := tcss.NewParser(parse.NewInputString(text), false)

	root := &AtRule{Block: true}
	stack := []*[]Node{&root.Nodes}
	var selectorParts []string

	push := func(n Node) {
		top := stack[len(stack)-1]
		*top = append(*top, n)
	}

	for {
		gt, _, data := p.Next()
		switch gt {
		case tcss.ErrorGrammar:
			err := p.Err()
			if err == nil {
				// Recoverable: the parser skipped an offending token.
				continue
			}
			if !errors.Is(err, io.EOF) {
				return nil, &ParseError{Origin: origin, Err: err}
			}
			return &Stylesheet{Origin: origin, Nodes: root.Nodes}, nil

		case tcss.CommentGrammar:
			push(&Comment{Text: string(data)})

		case tcss.AtRuleGrammar:
			push(&AtRule{Name: atName(data), Prelude: JoinTokens(p.Values())})

		case tcss.BeginAtRuleGrammar:
			at := &AtRule{Name: atName(data), Prelude: JoinTokens(p.Values()), Block: true}
			push(at)
			stack = append(stack, &at.Nodes)

		case tcss.QualifiedRuleGrammar:
			selectorParts = append(selectorParts, JoinTokens(p.Values()))

		case tcss.BeginRulesetGrammar:
			selectorParts = append(selectorParts, JoinTokens(p.Values()))
			rule := &Rule{Selector: strings.Join(selectorParts, ", ")}
			selectorParts = nil
			push(rule)
			stack = append(stack, &rule.Nodes)

		case tcss.EndAtRuleGrammar, tcss.EndRulesetGrammar:
			if len(stack) == 1 {
				return nil, &ParseError{Origin: origin, Err: errors.New("unexpected '}'")}
			}
			stack = stack[:len(stack)-1]

		case tcss.DeclarationGrammar:
			value, important := splitImportant(p.Values())
			push(&Decl{Property: strings.ToLower(string(data)), Value: value, Important: important})

		case tcss.CustomPropertyGrammar:
			push(&Decl{Property: string(data), Value: strings.TrimSpace(JoinTokens(p.Values()))})

		case tcss.TokenGrammar:
			// Stray tokens outside any construct carry no meaning; drop them.
		}
	}
}

// checkBraces reports a block left open at the end of text. The grammar
// parser closes such blocks silently.
func checkBraces(text string) error {
	depth := 0
	for _, tok := range Lex(text) {
		switch tok.Type {
		case tcss.LeftBraceToken:
			depth++
		case tcss.RightBraceToken:
			if depth > 0 {
				depth--
			}
		}
	}
	if depth > 0 {
		return errors.New("unclosed block")
	}
	return nil
}

// MustParse is Parse for tests and fixtures. It panics on error.
func MustParse(text string) *Stylesheet {
	s, err := Parse("inline", text)
	if err != nil {
		panic(err)
	}
	return s
}

func atName(data []byte) string {
	return strings.ToLower(strings.TrimPrefix(string(data), "@"))
}

// JoinTokens renders parser values, collapsing runs of whitespace to a single
// space and trimming the ends.
func JoinTokens(values []tcss.Token) string {
	var b strings.Builder
	pendingSpace := false
	for _, v := range values {
		if v.TokenType == tcss.WhitespaceToken {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.Write(v.Data)
	}
	return b.String()
}

func splitImportant(values []tcss.Token) (string, bool) {
	end := len(values)
	for end > 0 && values[end-1].TokenType == tcss.WhitespaceToken {
		end--
	}
	if end >= 2 && values[end-1].TokenType == tcss.IdentToken &&
		strings.EqualFold(string(values[end-1].Data), "important") {
		bang := end - 2
		for bang >= 0 && values[bang].TokenType == tcss.WhitespaceToken {
			bang--
		}
		if bang >= 0 && values[bang].TokenType == tcss.DelimToken && string(values[bang].Data) == "!" {
			return JoinTokens(values[:bang]), true
		}
	}
	return JoinTokens(values[:end]), false
}

// Lex splits a value or prelude into tokens. Concatenating the Text of every
// token reproduces s.
func Lex(s string) []Token {
	l := tcss.NewLexer(parse.NewInputString(s))
	var out []Token
	for {
		tt, data := l.Next()
		if tt == tcss.ErrorToken {
			return out
		}
		out = append(out, Token{Type: tt, Text: string(data)})
	}
}

// Unquote strips matching single or double quotes.
func Unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Rewrite walks nodes depth-first, children before parents, and replaces each
// node with the slice fn returns. Returning nil removes the node; returning
// []Node{n} keeps it. The input slice is not modified.
func Rewrite(nodes []Node, fn func(Node) ([]Node, error)) ([]Node, error) {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case *Rule:
			children, err := Rewrite(v.Nodes, fn)
			if err != nil {
				return nil, err
			}
			n = &Rule{Selector: v.Selector, Nodes: children}
		case *AtRule:
			if v.Block {
				children, err := Rewrite(v.Nodes, fn)
				if err != nil {
					return nil, err
				}
				n = &AtRule{Name: v.Name, Prelude: v.Prelude, Block: true, Nodes: children}
			}
		}
		repl, err := fn(n)
		if err != nil {
			return nil, err
		}
		out = append(out, repl...)
	}
	return out, nil
}

// Keep is the identity rewrite result.
func Keep(n Node) ([]Node, error) {
	return []Node{n}, nil
}
