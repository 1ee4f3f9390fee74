package theme

import (
	"slices"
	"strings"
)

// Family is a group of utility classes generated from one theme category,
// e.g. "bg-<color>" setting background-color.
type Family struct {
	Prefix     string
	Category   string
	Properties []string
}

var families = []Family{
	{Prefix: "text", Category: CategoryColors, Properties: []string{"color"}},
	{Prefix: "bg", Category: CategoryColors, Properties: []string{"background-color"}},
	{Prefix: "border", Category: CategoryColors, Properties: []string{"border-color"}},
	{Prefix: "p", Category: "spacing", Properties: []string{"padding"}},
	{Prefix: "m", Category: "spacing", Properties: []string{"margin"}},
	{Prefix: "gap", Category: "spacing", Properties: []string{"gap"}},
}

// Families returns the utility families in generation order.
func Families() []Family {
	out := make([]Family, len(families))
	for i, f := range families {
		out[i] = f
		out[i].Properties = slices.Clone(f.Properties)
	}
	return out
}

// FamiliesFor returns the families generated from category.
func FamiliesFor(category string) []Family {
	var out []Family
	for _, f := range Families() {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// Declaration is one property/value pair of a utility.
type Declaration struct {
	Property string
	Value    string
}

// Utility is one generated class.
type Utility struct {
	Class  string
	Family string
	Token  Token
	Decls  []Declaration
}

// Selector returns the class selector with CSS escaping applied.
func (u Utility) Selector() string {
	return "." + EscapeClass(u.Class)
}

// EscapeClass escapes characters of a class name that are not valid in a
// selector identifier.
func EscapeClass(class string) string {
	var b strings.Builder
	for i, r := range class {
		switch {
		case r == '.' || r == '/' || r == ':':
			b.WriteByte('\\')
			b.WriteRune(r)
		case i == 0 && r >= '0' && r <= '9':
			b.WriteString(`\3`)
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Utilities returns every generated utility: families in generation order,
// tokens in declaration order within each.
func (c *Config) Utilities() []Utility {
	var out []Utility
	for _, f := range families {
		for _, t := range c.byCategory[f.Category] {
			if u, ok := c.utilities[classFor(f, t)]; ok && u.Family == f.Prefix {
				out = append(out, u)
			}
		}
	}
	return out
}

// Utility finds a generated utility by class name, e.g. "bg-gv-primary".
func (c *Config) Utility(class string) (Utility, bool) {
	u, ok := c.utilities[class]
	return u, ok
}

func buildUtilities(c *Config) map[string]Utility {
	out := make(map[string]Utility)
	for _, f := range families {
		for _, t := range c.byCategory[f.Category] {
			decls := make([]Declaration, 0, len(f.Properties))
			for _, p := range f.Properties {
				decls = append(decls, Declaration{Property: p, Value: t.Value})
			}
			class := classFor(f, t)
			if _, taken := out[class]; taken {
				continue
			}
			out[class] = Utility{Class: class, Family: f.Prefix, Token: t, Decls: decls}
		}
	}
	return out
}

func classFor(f Family, t Token) string {
	if t.Name == defaultKey {
		return f.Prefix
	}
	return f.Prefix + "-" + t.Name
}
