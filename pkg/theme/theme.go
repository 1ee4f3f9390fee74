// Package theme holds the resolved design tokens a build runs against.
//
// A Config is built once from a tailwind.config.{js,mjs,cjs,ts} file or a
// YAML theme file and is read-only afterwards, so it can be shared by every
// stage and the inspection server without locking.
package theme

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// CategoryColors is the category whose tokens may be referenced by bare name
// in declaration values.
const CategoryColors = "colors"

// Token is one named design value such as a color.
type Token struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Category string `json:"category"`
}

var (
	validName     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	validCategory = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// Config is an immutable token set. Categories are kept in sorted order and
// tokens within a category in declaration order.
type Config struct {
	categories []string
	byCategory map[string][]Token
	index      map[string]map[string]int
	utilities  map[string]Utility
}

// New builds a Config from tokens. Later tokens override earlier ones with the
// same category and name. Invalid names or values are errors.
func New(tokens ...Token) (*Config, error) {
	b := NewBuilder(nil)
	for _, t := range tokens {
		if err := b.Set(t.Category, t.Name, t.Value); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// MustNew is New for tests and fixtures. It panics on error.
func MustNew(tokens ...Token) *Config {
	c, err := New(tokens...)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of tokens.
func (c *Config) Len() int {
	n := 0
	for _, ts := range c.byCategory {
		n += len(ts)
	}
	return n
}

// Categories returns the category names in sorted order.
func (c *Config) Categories() []string {
	return slices.Clone(c.categories)
}

// Category returns the tokens of one category in declaration order.
func (c *Config) Category(name string) []Token {
	return slices.Clone(c.byCategory[name])
}

// Tokens returns every token, grouped by category in sorted order.
func (c *Config) Tokens() []Token {
	out := make([]Token, 0, c.Len())
	for _, cat := range c.categories {
		out = append(out, c.byCategory[cat]...)
	}
	return out
}

// Lookup finds a token by category and name.
func (c *Config) Lookup(category, name string) (Token, bool) {
	i, ok := c.index[category][name]
	if !ok {
		return Token{}, false
	}
	return c.byCategory[category][i], true
}

// Find finds a token by name alone. When several categories define the name
// the first category in sorted order wins.
func (c *Config) Find(name string) (Token, bool) {
	for _, cat := range c.categories {
		if t, ok := c.Lookup(cat, name); ok {
			return t, true
		}
	}
	return Token{}, false
}

// Resolve looks up a dotted theme path such as "colors.gv-primary" or
// "colors.blue.500". A trailing ".DEFAULT" names the parent token.
func (c *Config) Resolve(path string) (Token, bool) {
	category, rest, ok := strings.Cut(strings.TrimSpace(path), ".")
	if !ok || rest == "" {
		return Token{}, false
	}
	if t, ok := c.Lookup(category, rest); ok {
		return t, true
	}
	parts := strings.Split(rest, ".")
	if len(parts) > 1 && parts[len(parts)-1] == defaultKey {
		parts = parts[:len(parts)-1]
	}
	return c.Lookup(category, strings.Join(parts, "-"))
}

const defaultKey = "DEFAULT"

// Builder accumulates tokens for a Config. Set on an existing category and
// name replaces the value but keeps the original position.
type Builder struct {
	logger *slog.Logger
	order  map[string][]string
	values map[string]map[string]string
}

// NewBuilder returns an empty builder. A nil logger discards warnings.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		logger: logger,
		order:  make(map[string][]string),
		values: make(map[string]map[string]string),
	}
}

// Set records one token.
func (b *Builder) Set(category, name, value string) error {
	if !validCategory.MatchString(category) {
		return fmt.Errorf("invalid theme category %q", category)
	}
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid token name %q in %s", name, category)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("token %s.%s has an empty value", category, name)
	}
	if strings.ContainsAny(value, ";{}") {
		return fmt.Errorf("token %s.%s value %q is not a plain css value", category, name, value)
	}

	vals, ok := b.values[category]
	if !ok {
		vals = make(map[string]string)
		b.values[category] = vals
	}
	if _, exists := vals[name]; !exists {
		b.order[category] = append(b.order[category], name)
	} else {
		b.logger.Debug("token overridden", "category", category, "name", name, "value", value)
	}
	vals[name] = value
	return nil
}

// SetOrWarn is Set that logs and skips invalid tokens. Loaders use it so one
// unusual entry does not reject a whole config file.
func (b *Builder) SetOrWarn(category, name, value string) {
	if err := b.Set(category, name, value); err != nil {
		b.logger.Warn("skipping theme entry", "error", err)
	}
}

// Build freezes the builder into a Config.
func (b *Builder) Build() *Config {
	c := &Config{
		byCategory: make(map[string][]Token, len(b.order)),
		index:      make(map[string]map[string]int, len(b.order)),
	}
	for cat, names := range b.order {
		c.categories = append(c.categories, cat)
		idx := make(map[string]int, len(names))
		tokens := make([]Token, 0, len(names))
		for i, name := range names {
			tokens = append(tokens, Token{Name: name, Value: b.values[cat][name], Category: cat})
			idx[name] = i
		}
		c.byCategory[cat] = tokens
		c.index[cat] = idx
	}
	slices.Sort(c.categories)
	c.utilities = buildUtilities(c)
	return c
}
