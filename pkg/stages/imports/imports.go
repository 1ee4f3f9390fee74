// Package imports implements the stage that inlines local @import rules.
package imports

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	tcss "github.com/tdewolff/parse/v2/css"

	"github.com/gnana997/stylepipe/pkg/css"
	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/util"
)

// Options configures the stage.
type Options struct {
	// Cache serves file reads. When nil the stage reads from disk directly.
	Cache util.FileCache
	// Logger is used for debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Stage inlines `@import "x.css";`, `@import 'x.css';` and
// `@import url(x.css);` relative to the importing file. Glob targets expand
// in sorted order. Remote imports and imports carrying media, supports or
// layer conditions are kept and hoisted to the top of the output, after a
// single @charset.
type Stage struct {
	cache  util.FileCache
	logger *slog.Logger
}

// New creates the stage.
func New(opts Options) *Stage {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{cache: opts.Cache, logger: logger.With("stage", stage.NameImports)}
}

// Name implements stage.Stage.
func (s *Stage) Name() string { return stage.NameImports }

// Process implements stage.Stage.
func (s *Stage) Process(ctx context.Context, in stage.Input) (stage.Output, error) {
	origin := in.Source.Origin
	if origin != "" {
		abs, err := filepath.Abs(origin)
		if err != nil {
			return stage.Output{}, fmt.Errorf("resolve %s: %w", origin, err)
		}
		origin = abs
	}

	r := &resolver{
		ctx:   ctx,
		stage: s,
		seen:  map[string]bool{},
	}
	if origin != "" {
		r.seen[filepath.Clean(origin)] = true
		r.stack = []string{filepath.Clean(origin)}
	}

	nodes, err := r.inline(origin, in.Source.Text)
	if err != nil {
		return stage.Output{}, err
	}

	var head []css.Node
	if r.charset != "" {
		head = append(head, &css.AtRule{Name: "charset", Prelude: r.charset})
	}
	head = append(head, r.kept...)

	s.logger.Debug("imports inlined", "files", len(r.seen), "kept", len(r.kept))
	return stage.Output{Source: in.Source.WithText(css.Print(append(head, nodes...)))}, nil
}

type resolver struct {
	ctx     context.Context
	stage   *Stage
	seen    map[string]bool
	stack   []string
	charset string
	kept    []css.Node
}

func (r *resolver) inline(origin, text string) ([]css.Node, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	sheet, err := css.Parse(displayName(origin), text)
	if err != nil {
		return nil, err
	}

	var out []css.Node
	for _, n := range sheet.Nodes {
		at, ok := n.(*css.AtRule)
		if !ok || at.Block {
			out = append(out, n)
			continue
		}

		switch at.Name {
		case "charset":
			if r.charset == "" {
				r.charset = at.Prelude
			}

		case "import":
			target, conditional, err := parsePrelude(at.Prelude)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", displayName(origin), err)
			}
			if conditional || isRemote(target) {
				r.keep(at)
				continue
			}
			nodes, err := r.importTarget(origin, target)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)

		default:
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *resolver) keep(at *css.AtRule) {
	for _, k := range r.kept {
		if k.(*css.AtRule).Prelude == at.Prelude {
			return
		}
	}
	r.kept = append(r.kept, at)
}

func (r *resolver) importTarget(origin, target string) ([]css.Node, error) {
	paths, err := r.expand(origin, target)
	if err != nil {
		return nil, err
	}

	glob := isGlob(target)
	var out []css.Node
	for _, p := range paths {
		if slices.Contains(r.stack, p) {
			if glob {
				// A pattern may match the file that contains it.
				r.stage.logger.Debug("skipping importing file matched by pattern", "file", p, "pattern", target)
				continue
			}
			chain := append(slices.Clone(r.stack), p)
			for i := range chain {
				chain[i] = displayName(chain[i])
			}
			return nil, fmt.Errorf("import cycle: %s", strings.Join(chain, " -> "))
		}
		if r.seen[p] {
			r.stage.logger.Debug("skipping already inlined import", "file", p)
			continue
		}
		r.seen[p] = true

		text, err := r.read(p)
		if err != nil {
			return nil, fmt.Errorf("%s: cannot read import %q: %w", displayName(origin), target, err)
		}

		r.stack = append(r.stack, p)
		nodes, err := r.inline(p, text)
		r.stack = r.stack[:len(r.stack)-1]
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (r *resolver) expand(origin, target string) ([]string, error) {
	base := "."
	if origin != "" {
		base = filepath.Dir(origin)
	}
	p := filepath.FromSlash(target)
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}

	if !isGlob(target) {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%s: cannot resolve import %q", displayName(origin), target)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s: import %q is a directory", displayName(origin), target)
		}
		return []string{p}, nil
	}

	if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
		return nil, fmt.Errorf("%s: invalid import pattern %q", displayName(origin), target)
	}
	matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%s: expand import %q: %w", displayName(origin), target, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s: import pattern %q matches no files", displayName(origin), target)
	}
	slices.Sort(matches)
	return matches, nil
}

func (r *resolver) read(path string) (string, error) {
	if r.stage.cache != nil {
		return r.stage.cache.Read(path)
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// parsePrelude extracts the import target. conditional is true when anything
// follows the target (media queries, supports(), layer).
func parsePrelude(prelude string) (target string, conditional bool, err error) {
	var rest []css.Token
	toks := css.Lex(prelude)
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Type == tcss.WhitespaceToken || tok.Type == tcss.CommentToken {
			continue
		}
		if target != "" || rest != nil {
			rest = append(rest, tok)
			continue
		}
		switch {
		case tok.Type == tcss.StringToken:
			target = css.Unquote(tok.Text)
		case tok.Type == tcss.URLToken:
			target = urlArgument(tok.Text)
		case tok.Type == tcss.FunctionToken && strings.EqualFold(tok.Text, "url("):
			j := i + 1
			for j < len(toks) && toks[j].Type == tcss.WhitespaceToken {
				j++
			}
			if j >= len(toks) || toks[j].Type != tcss.StringToken {
				return "", false, fmt.Errorf("malformed @import %s", prelude)
			}
			target = css.Unquote(toks[j].Text)
			for j < len(toks) && toks[j].Type != tcss.RightParenthesisToken {
				j++
			}
			i = j
		default:
			return "", false, fmt.Errorf("malformed @import %s", prelude)
		}
	}
	if target == "" {
		return "", false, fmt.Errorf("@import without a target")
	}
	return target, len(rest) > 0, nil
}

func urlArgument(tok string) string {
	inner := tok[strings.IndexByte(tok, '(')+1:]
	inner = strings.TrimSuffix(inner, ")")
	return css.Unquote(strings.TrimSpace(inner))
}

func isRemote(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http:") ||
		strings.HasPrefix(lower, "https:") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "//")
}

func isGlob(target string) bool {
	return strings.ContainsAny(target, "*?[{")
}

func displayName(path string) string {
	if path == "" {
		return "<input>"
	}
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return path
}
