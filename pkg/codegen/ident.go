package codegen

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gnana997/stylepipe/pkg/theme"
)

// singular names the Go type generated for plural theme sections.
var singular = map[string]string{
	"colors":  "Color",
	"screens": "Screen",
}

// TypeName returns the Go type generated for a theme category,
// e.g. "colors" -> "Color", "fontFamily" -> "FontFamily".
func TypeName(category string) string {
	if s, ok := singular[category]; ok {
		return s
	}
	return camel(category)
}

// Identifier returns the exported variable generated for a token,
// e.g. colors/gv-primary -> "ColorGvPrimary", spacing/0.5 -> "Spacing0_5".
func Identifier(t theme.Token) string {
	return TypeName(t.Category) + nameIdent(t.Name)
}

// MethodName returns the accessor generated for a utility family prefix,
// e.g. "bg" -> "Bg".
func MethodName(prefix string) string {
	return camel(prefix)
}

// FileName returns the Go file generated for a category,
// e.g. "fontFamily" -> "font_family.go".
func FileName(category string) string {
	var b strings.Builder
	for i, r := range category {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		if r == '-' {
			r = '_'
		}
		b.WriteRune(r)
	}
	return b.String() + ".go"
}

func nameIdent(name string) string {
	if name == "DEFAULT" {
		return "Default"
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = camel(p)
	}
	return strings.Join(parts, "_")
}

func camel(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	// Casers are stateful and must not be shared between goroutines.
	titler := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range words {
		b.WriteString(titler.String(w))
	}
	return b.String()
}
