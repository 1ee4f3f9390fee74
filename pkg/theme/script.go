package theme

import (
	"fmt"
	"log/slog"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/stylepipe/pkg/parser"
)

// maxResolveDepth bounds identifier chasing so self-referencing bindings
// cannot loop.
const maxResolveDepth = 16

// LoadScript reads the theme out of a tailwind-style JavaScript or TypeScript
// config without executing it. The exported object is found through
// `export default`, `module.exports =`, an identifier bound to an object, or a
// wrapping call such as defineConfig({...}). Object spreads and shorthand
// properties resolve against top-level const/let/var bindings in the file.
// Entries that need evaluation (functions, imports) are skipped with a warning.
func LoadScript(path string, source []byte, pm *parser.ParserManager, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tree, err := pm.ParseFile(source, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%s: syntax error near line %d", path, firstErrorLine(root))
	}

	l := &scriptLoader{
		src:    source,
		path:   path,
		vars:   make(map[string]*ts.Node),
		logger: logger.With("file", path),
		b:      NewBuilder(logger.With("file", path)),
	}
	l.collectBindings(root)

	exported := l.findExport(root)
	if exported == nil {
		return nil, fmt.Errorf("%s: no exported config (expected `export default` or `module.exports =`)", path)
	}
	cfg := l.resolveObject(exported)
	if cfg == nil {
		return nil, fmt.Errorf("%s: exported config is not an object literal", path)
	}

	var themeNode *ts.Node
	l.forEachEntry(cfg, func(key string, value *ts.Node) {
		if key == "theme" {
			themeNode = value
		}
	})
	if themeNode == nil {
		l.logger.Warn("config has no theme section")
		return l.b.Build(), nil
	}

	themeObj := l.resolveObject(themeNode)
	if themeObj == nil {
		return nil, fmt.Errorf("%s: theme is not an object literal", path)
	}
	l.loadTheme(themeObj)
	return l.b.Build(), nil
}

type scriptLoader struct {
	src    []byte
	path   string
	vars   map[string]*ts.Node
	logger *slog.Logger
	b      *Builder
}

func (l *scriptLoader) text(n *ts.Node) string {
	return n.Utf8Text(l.src)
}

func (l *scriptLoader) line(n *ts.Node) uint {
	return n.StartPosition().Row + 1
}

// collectBindings records top-level `const x = ...` declarations, including
// exported ones.
func (l *scriptLoader) collectBindings(root *ts.Node) {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		if stmt.Kind() == "export_statement" {
			if decl := stmt.ChildByFieldName("declaration"); decl != nil {
				stmt = decl
			}
		}
		switch stmt.Kind() {
		case "lexical_declaration", "variable_declaration":
			for j := uint(0); j < stmt.NamedChildCount(); j++ {
				d := stmt.NamedChild(j)
				if d.Kind() != "variable_declarator" {
					continue
				}
				name := d.ChildByFieldName("name")
				value := d.ChildByFieldName("value")
				if name != nil && value != nil && name.Kind() == "identifier" {
					l.vars[l.text(name)] = value
				}
			}
		}
	}
}

func (l *scriptLoader) findExport(root *ts.Node) *ts.Node {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Kind() {
		case "export_statement":
			if v := stmt.ChildByFieldName("value"); v != nil {
				return v
			}
		case "expression_statement":
			expr := stmt.NamedChild(0)
			if expr == nil || expr.Kind() != "assignment_expression" {
				continue
			}
			left := expr.ChildByFieldName("left")
			if left != nil && l.text(left) == "module.exports" {
				return expr.ChildByFieldName("right")
			}
		}
	}
	return nil
}

// resolve strips wrappers and follows identifiers to the expression they
// stand for.
func (l *scriptLoader) resolve(n *ts.Node) *ts.Node {
	for depth := 0; n != nil && depth < maxResolveDepth; depth++ {
		switch n.Kind() {
		case "parenthesized_expression", "satisfies_expression", "as_expression", "non_null_expression":
			n = n.NamedChild(0)
		case "identifier":
			bound, ok := l.vars[l.text(n)]
			if !ok {
				return n
			}
			n = bound
		case "call_expression":
			args := n.ChildByFieldName("arguments")
			if args == nil || args.NamedChildCount() == 0 {
				return n
			}
			n = args.NamedChild(0)
		default:
			return n
		}
	}
	return n
}

func (l *scriptLoader) resolveObject(n *ts.Node) *ts.Node {
	n = l.resolve(n)
	if n == nil || n.Kind() != "object" {
		return nil
	}
	return n
}

// forEachEntry visits the key/value pairs of an object literal in source
// order, expanding spreads and shorthand properties.
func (l *scriptLoader) forEachEntry(obj *ts.Node, fn func(key string, value *ts.Node)) {
	l.walkEntries(obj, fn, 0)
}

func (l *scriptLoader) walkEntries(obj *ts.Node, fn func(string, *ts.Node), depth int) {
	if depth > maxResolveDepth {
		l.logger.Warn("spread nesting too deep", "line", l.line(obj))
		return
	}
	for i := uint(0); i < obj.NamedChildCount(); i++ {
		entry := obj.NamedChild(i)
		switch entry.Kind() {
		case "pair":
			key := entry.ChildByFieldName("key")
			value := entry.ChildByFieldName("value")
			if key == nil || value == nil {
				continue
			}
			name, ok := l.keyName(key)
			if !ok {
				l.logger.Warn("skipping computed key", "line", l.line(key), "key", l.text(key))
				continue
			}
			fn(name, value)

		case "spread_element":
			inner := l.resolveObject(entry.NamedChild(0))
			if inner == nil {
				l.logger.Warn("skipping spread of non-literal value", "line", l.line(entry), "expr", l.text(entry))
				continue
			}
			l.walkEntries(inner, fn, depth+1)

		case "shorthand_property_identifier":
			name := l.text(entry)
			bound, ok := l.vars[name]
			if !ok {
				l.logger.Warn("skipping unbound shorthand property", "line", l.line(entry), "name", name)
				continue
			}
			fn(name, bound)

		case "comment":

		default:
			l.logger.Warn("skipping unsupported object entry", "line", l.line(entry), "kind", entry.Kind())
		}
	}
}

func (l *scriptLoader) keyName(key *ts.Node) (string, bool) {
	switch key.Kind() {
	case "property_identifier", "number":
		return l.text(key), true
	case "string":
		return unquoteJS(l.text(key)), true
	default:
		return "", false
	}
}

func (l *scriptLoader) loadTheme(themeObj *ts.Node) {
	var extend *ts.Node
	l.forEachEntry(themeObj, func(key string, value *ts.Node) {
		if key == "extend" {
			extend = value
			return
		}
		l.loadCategory(key, value)
	})

	if extend == nil {
		return
	}
	extObj := l.resolveObject(extend)
	if extObj == nil {
		l.logger.Warn("theme.extend is not an object literal; ignored", "line", l.line(extend))
		return
	}
	l.forEachEntry(extObj, l.loadCategory)
}

func (l *scriptLoader) loadCategory(category string, value *ts.Node) {
	obj := l.resolveObject(value)
	if obj == nil {
		l.logger.Warn("skipping theme section that is not an object literal",
			"section", category, "line", l.line(value))
		return
	}
	l.flatten(category, "", obj, 0)
}

func (l *scriptLoader) flatten(category, prefix string, obj *ts.Node, depth int) {
	if depth > maxResolveDepth {
		return
	}
	l.forEachEntry(obj, func(key string, value *ts.Node) {
		name := joinName(prefix, key)
		resolved := l.resolve(value)
		if resolved != nil && resolved.Kind() == "object" {
			l.flatten(category, name, resolved, depth+1)
			return
		}
		scalar, ok := l.scalar(resolved)
		if !ok {
			l.logger.Warn("skipping token with non-literal value",
				"section", category, "name", name, "line", l.line(value))
			return
		}
		l.b.SetOrWarn(category, name, scalar)
	})
}

func (l *scriptLoader) scalar(n *ts.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case "string":
		return unquoteJS(l.text(n)), true
	case "template_string":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if n.NamedChild(i).Kind() == "template_substitution" {
				return "", false
			}
		}
		return strings.Trim(l.text(n), "`"), true
	case "number", "unary_expression":
		return l.text(n), true
	case "array":
		parts := make([]string, 0, n.NamedChildCount())
		for i := uint(0); i < n.NamedChildCount(); i++ {
			el := n.NamedChild(i)
			if el.Kind() == "comment" {
				continue
			}
			s, ok := l.scalar(l.resolve(el))
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), len(parts) > 0
	}
	return "", false
}

func joinName(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == defaultKey:
		return prefix
	default:
		return prefix + "-" + key
	}
}

func unquoteJS(s string) string {
	if len(s) >= 2 {
		switch q := s[0]; q {
		case '"', '\'', '`':
			if s[len(s)-1] == q {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

func firstErrorLine(n *ts.Node) uint {
	if n.IsError() || n.IsMissing() {
		return n.StartPosition().Row + 1
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c.HasError() {
			return firstErrorLine(c)
		}
	}
	return n.StartPosition().Row + 1
}
