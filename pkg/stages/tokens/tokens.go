// Package tokens implements the stage that expands utilities and resolves
// theme token references against a theme.Config.
package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	tcss "github.com/tdewolff/parse/v2/css"

	"github.com/gnana997/stylepipe/pkg/css"
	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/theme"
)

// Stage rewrites the stylesheet against the theme:
//
//   - `@tailwind utilities;` becomes one rule per generated utility;
//     `@tailwind base;` and `@tailwind components;` are removed.
//   - `@apply a b;` inside a rule is replaced by the declarations of the
//     named utilities. A trailing `!important` marks them important.
//   - `theme('colors.x')` in declaration values and at-rule preludes is
//     replaced by the token value.
//   - A bare identifier in a declaration value that names a color token is
//     replaced by its value. CSS-wide keywords such as auto, none and normal
//     are never replaced.
//
// Values written into declarations are resolved until they name no further
// color token, so the stage leaves its own output unchanged. A color whose
// value leads back to itself is an error, except a color whose value is
// exactly its own name.
//
// Every token referenced directly through @apply, theme() or a bare
// identifier is reported as usage. Unknown utilities and theme paths are
// errors.
type Stage struct {
	theme  *theme.Config
	logger *slog.Logger
}

// New creates the stage for cfg.
func New(cfg *theme.Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{theme: cfg, logger: logger.With("stage", stage.NameTokens)}
}

// Name implements stage.Stage.
func (s *Stage) Name() string { return stage.NameTokens }

// Process implements stage.Stage.
func (s *Stage) Process(ctx context.Context, in stage.Input) (stage.Output, error) {
	if err := ctx.Err(); err != nil {
		return stage.Output{}, err
	}

	sheet, err := css.Parse(in.Source.Origin, in.Source.Text)
	if err != nil {
		return stage.Output{}, err
	}
	if err := checkApplyPlacement(sheet.Nodes, false); err != nil {
		return stage.Output{}, err
	}

	x := &expander{theme: s.theme, used: map[string]bool{}}
	nodes, err := css.Rewrite(sheet.Nodes, x.rewrite)
	if err != nil {
		return stage.Output{}, err
	}

	usage := make([]string, 0, len(x.used))
	for name := range x.used {
		usage = append(usage, name)
	}
	slices.Sort(usage)

	s.logger.Debug("tokens resolved", "used", len(usage), "utilities", x.generated)
	return stage.Output{Source: in.Source.WithText(css.Print(nodes)), Usage: usage}, nil
}

type expander struct {
	theme     *theme.Config
	used      map[string]bool
	generated int
}

func (x *expander) rewrite(n css.Node) ([]css.Node, error) {
	switch v := n.(type) {
	case *css.AtRule:
		switch v.Name {
		case "tailwind":
			return x.tailwind(v.Prelude)
		case "apply":
			return x.apply(v.Prelude)
		}
		prelude, err := x.resolveValue(v.Prelude, false)
		if err != nil {
			return nil, fmt.Errorf("@%s %s: %w", v.Name, v.Prelude, err)
		}
		if prelude == v.Prelude {
			return css.Keep(v)
		}
		return []css.Node{&css.AtRule{Name: v.Name, Prelude: prelude, Block: v.Block, Nodes: v.Nodes}}, nil

	case *css.Decl:
		value, err := x.resolveValue(v.Value, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Property, err)
		}
		return []css.Node{&css.Decl{Property: v.Property, Value: value, Important: v.Important}}, nil
	}
	return css.Keep(n)
}

func (x *expander) tailwind(layer string) ([]css.Node, error) {
	switch strings.TrimSpace(layer) {
	case "base", "components":
		return nil, nil
	case "utilities":
		utils := x.theme.Utilities()
		out := make([]css.Node, 0, len(utils))
		for _, u := range utils {
			decls := make([]css.Node, 0, len(u.Decls))
			for _, d := range u.Decls {
				decls = append(decls, &css.Decl{Property: d.Property, Value: d.Value})
			}
			out = append(out, &css.Rule{Selector: u.Selector(), Nodes: decls})
		}
		x.generated += len(out)
		return out, nil
	default:
		return nil, fmt.Errorf("unknown @tailwind layer %q", layer)
	}
}

func (x *expander) apply(prelude string) ([]css.Node, error) {
	fields := strings.Fields(prelude)
	important := false
	if n := len(fields); n > 0 && strings.EqualFold(fields[n-1], "!important") {
		important = true
		fields = fields[:n-1]
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("@apply without utilities")
	}

	var out []css.Node
	for _, class := range fields {
		u, ok := x.theme.Utility(class)
		if !ok {
			return nil, fmt.Errorf("@apply: unknown utility %q", class)
		}
		x.used[u.Token.Name] = true
		for _, d := range u.Decls {
			value, err := x.closeValue(d.Value, u.Token)
			if err != nil {
				return nil, fmt.Errorf("@apply %s: %w", class, err)
			}
			out = append(out, &css.Decl{Property: d.Property, Value: value, Important: important})
		}
	}
	return out, nil
}

// resolveValue substitutes theme() calls and, when bare is set, identifiers
// naming a color token. With bare set the substituted values are closed
// over further color references.
func (x *expander) resolveValue(value string, bare bool) (string, error) {
	if value == "" {
		return value, nil
	}
	toks := css.Lex(value)

	var (
		b   strings.Builder
		err error
	)
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok.Type == tcss.FunctionToken && strings.EqualFold(tok.Text, "theme("):
			end, arg := themeArgument(toks, i+1)
			if end < 0 {
				return "", fmt.Errorf("unterminated theme() in %q", value)
			}
			t, ok := x.theme.Resolve(arg)
			if !ok {
				return "", fmt.Errorf("unknown theme path %q", arg)
			}
			x.used[t.Name] = true
			v := t.Value
			if bare {
				if v, err = x.closeValue(v, t); err != nil {
					return "", err
				}
			}
			b.WriteString(v)
			i = end

		case bare && tok.Type == tcss.IdentToken:
			t, ok := x.bareToken(tok.Text)
			if !ok {
				b.WriteString(tok.Text)
				continue
			}
			x.used[t.Name] = true
			v, err := x.closeValue(t.Value, t)
			if err != nil {
				return "", err
			}
			b.WriteString(v)

		default:
			b.WriteString(tok.Text)
		}
	}
	return b.String(), nil
}

// cssKeywords are identifiers never treated as token references.
var cssKeywords = map[string]bool{
	"inherit":      true,
	"initial":      true,
	"unset":        true,
	"revert":       true,
	"revert-layer": true,
	"auto":         true,
	"none":         true,
	"normal":       true,
	"currentcolor": true,
}

// bareToken returns the color token a bare identifier refers to.
func (x *expander) bareToken(ident string) (theme.Token, bool) {
	if cssKeywords[strings.ToLower(ident)] {
		return theme.Token{}, false
	}
	t, ok := x.theme.Lookup(theme.CategoryColors, ident)
	if !ok || t.Value == t.Name {
		return theme.Token{}, false
	}
	return t, true
}

// closeValue resolves color references inside value, which came from origin,
// until none remain.
func (x *expander) closeValue(value string, origin theme.Token) (string, error) {
	var chain []string
	if origin.Category == theme.CategoryColors {
		chain = []string{origin.Name}
	}
	return x.closeWith(value, chain)
}

func (x *expander) closeWith(value string, chain []string) (string, error) {
	toks := css.Lex(value)
	var b strings.Builder
	for _, tok := range toks {
		if tok.Type != tcss.IdentToken {
			b.WriteString(tok.Text)
			continue
		}
		t, ok := x.bareToken(tok.Text)
		if !ok {
			b.WriteString(tok.Text)
			continue
		}
		if slices.Contains(chain, t.Name) {
			return "", fmt.Errorf("color %s refers to itself: %s", t.Name, strings.Join(append(chain, t.Name), " -> "))
		}
		v, err := x.closeWith(t.Value, append(slices.Clone(chain), t.Name))
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// themeArgument returns the index of the closing parenthesis of a theme()
// call whose arguments start at toks[start], and the unquoted path.
func themeArgument(toks []css.Token, start int) (int, string) {
	depth := 0
	var arg strings.Builder
	for i := start; i < len(toks); i++ {
		switch toks[i].Type {
		case tcss.LeftParenthesisToken, tcss.FunctionToken:
			depth++
		case tcss.RightParenthesisToken:
			if depth == 0 {
				return i, css.Unquote(strings.TrimSpace(arg.String()))
			}
			depth--
		}
		arg.WriteString(toks[i].Text)
	}
	return -1, ""
}

func checkApplyPlacement(nodes []css.Node, inRule bool) error {
	for _, n := range nodes {
		switch v := n.(type) {
		case *css.Rule:
			if err := checkApplyPlacement(v.Nodes, true); err != nil {
				return err
			}
		case *css.AtRule:
			if v.Name == "apply" && !inRule {
				return fmt.Errorf("@apply %s must be used inside a rule", v.Prelude)
			}
			if v.Block {
				if err := checkApplyPlacement(v.Nodes, false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
