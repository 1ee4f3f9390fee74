// Package codegen turns the resolved theme into Go bindings: one exported
// identifier per token, typed utility class accessors, and optional
// documentation.
package codegen

import (
	"bytes"
	"fmt"
	"go/token"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/theme"
)

const generatedHeader = "// Code generated by stylepipe. DO NOT EDIT.\n"

// Default option values.
const (
	DefaultDirectory  = "gen"
	DefaultModuleName = "Tailwind"
)

// Options configures code generation.
type Options struct {
	// Directory is the root the generated package directory is created in.
	Directory string `yaml:"directory"`
	// ModuleName names the generated package; the package name is its
	// lowercase form.
	ModuleName string `yaml:"module_name"`
	// Documentation adds README.md and README.html to the package.
	Documentation bool `yaml:"documentation"`
	// Concurrency bounds parallel file writes. Zero picks a CPU-based size.
	Concurrency int `yaml:"concurrency"`
}

// DefaultOptions returns the options used when the config file sets none.
func DefaultOptions() Options {
	return Options{
		Directory:     DefaultDirectory,
		ModuleName:    DefaultModuleName,
		Documentation: true,
	}
}

// PackageName returns the generated Go package name.
func (o Options) PackageName() string {
	return strings.ToLower(o.ModuleName)
}

// PackageDir returns the directory the generated files are committed to.
func (o Options) PackageDir() string {
	return filepath.Join(o.Directory, o.PackageName())
}

// Validate checks that the options can produce a package.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Directory) == "" {
		return fmt.Errorf("codegen directory is required")
	}
	pkg := o.PackageName()
	if !token.IsIdentifier(pkg) || token.IsKeyword(pkg) {
		return fmt.Errorf("module name %q does not form a valid Go package name", o.ModuleName)
	}
	if o.Concurrency < 0 {
		return fmt.Errorf("codegen concurrency must not be negative")
	}
	return nil
}

// Artifact is one generated file. Path is relative to the package directory.
type Artifact struct {
	Path    string
	Content []byte
}

// ArtifactSet is the complete output of one generation, sorted by path.
type ArtifactSet struct {
	Package   string
	Artifacts []Artifact
}

// Paths lists the artifact paths.
func (s ArtifactSet) Paths() []string {
	out := make([]string, len(s.Artifacts))
	for i, a := range s.Artifacts {
		out[i] = a.Path
	}
	return out
}

// Lookup returns the artifact at path.
func (s ArtifactSet) Lookup(path string) (Artifact, bool) {
	for _, a := range s.Artifacts {
		if a.Path == path {
			return a, true
		}
	}
	return Artifact{}, false
}

// Generate renders the bindings for cfg. usage marks tokens the stylesheet
// referenced. The result depends only on its inputs.
func Generate(cfg *theme.Config, usage stage.Usage, opts Options) (ArtifactSet, error) {
	if err := opts.Validate(); err != nil {
		return ArtifactSet{}, err
	}
	pkg := opts.PackageName()
	set := ArtifactSet{Package: pkg}

	names := newNameSet("Token", "All", "Lookup")
	files := map[string]string{"tokens.go": "generated index"}

	for _, category := range cfg.Categories() {
		typ := TypeName(category)
		if typ == "" || !token.IsExported(typ) {
			return ArtifactSet{}, fmt.Errorf("theme section %q does not map to an exported Go name", category)
		}
		if err := names.add(typ, category); err != nil {
			return ArtifactSet{}, err
		}
		if err := names.add(typ+"Tokens", category); err != nil {
			return ArtifactSet{}, err
		}

		file := FileName(category)
		if owner, taken := files[file]; taken {
			return ArtifactSet{}, fmt.Errorf("theme section %q would overwrite %s (%s)", category, file, owner)
		}
		files[file] = category

		tokens := cfg.Category(category)
		for _, t := range tokens {
			id := Identifier(t)
			if !token.IsIdentifier(id) {
				return ArtifactSet{}, fmt.Errorf("token %s.%s does not map to a Go identifier (got %q)", category, t.Name, id)
			}
			if err := names.add(id, category+"."+t.Name); err != nil {
				return ArtifactSet{}, err
			}
		}

		src, err := format(file, renderCategory(pkg, category, tokens))
		if err != nil {
			return ArtifactSet{}, err
		}
		set.Artifacts = append(set.Artifacts, Artifact{Path: file, Content: src})
	}

	src, err := format("tokens.go", renderIndex(pkg, cfg, usage))
	if err != nil {
		return ArtifactSet{}, err
	}
	set.Artifacts = append(set.Artifacts, Artifact{Path: "tokens.go", Content: src})

	if opts.Documentation {
		md := renderReadme(pkg, cfg, usage)
		html, err := renderHTML(md)
		if err != nil {
			return ArtifactSet{}, err
		}
		set.Artifacts = append(set.Artifacts,
			Artifact{Path: "README.md", Content: md},
			Artifact{Path: "README.html", Content: html},
		)
	}

	slices.SortFunc(set.Artifacts, func(a, b Artifact) int { return strings.Compare(a.Path, b.Path) })
	return set, nil
}

func renderCategory(pkg, category string, tokens []theme.Token) []byte {
	typ := TypeName(category)
	var b bytes.Buffer

	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "\npackage %s\n\n", pkg)

	fmt.Fprintf(&b, "// %s is a token from the %q theme section.\n", typ, category)
	fmt.Fprintf(&b, "type %s struct {\n\tName string\n\tValue string\n}\n\n", typ)
	fmt.Fprintf(&b, "// String returns the CSS value.\nfunc (t %s) String() string { return t.Value }\n\n", typ)

	for _, f := range theme.FamiliesFor(category) {
		m := MethodName(f.Prefix)
		fmt.Fprintf(&b, "// %s returns the %s-* utility class for the token.\n", m, f.Prefix)
		fmt.Fprintf(&b, "func (t %s) %s() string { return class(%q, t.Name) }\n\n", typ, m, f.Prefix)
	}

	if len(tokens) > 0 {
		b.WriteString("var (\n")
		for _, t := range tokens {
			id := Identifier(t)
			fmt.Fprintf(&b, "\t// %s is %s: %q.\n", id, t.Name, t.Value)
			fmt.Fprintf(&b, "\t%s = %s{Name: %q, Value: %q}\n", id, typ, t.Name, t.Value)
		}
		b.WriteString(")\n\n")
	}

	fmt.Fprintf(&b, "// %sTokens lists the %s tokens in theme order.\n", typ, category)
	fmt.Fprintf(&b, "var %sTokens = []%s{\n", typ, typ)
	for _, t := range tokens {
		fmt.Fprintf(&b, "\t%s,\n", Identifier(t))
	}
	b.WriteString("}\n")

	return b.Bytes()
}

func renderIndex(pkg string, cfg *theme.Config, usage stage.Usage) []byte {
	var b bytes.Buffer

	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "\n// Package %s exposes the stylesheet theme tokens as Go identifiers.\n", pkg)
	fmt.Fprintf(&b, "package %s\n\n", pkg)

	b.WriteString(`// Token is a theme token of any category.
type Token struct {
	Category string
	Name     string
	Value    string
	// Used reports whether the stylesheet referenced the token.
	Used bool
}

`)
	b.WriteString("// All lists every token, grouped by category.\nvar All = []Token{\n")
	for _, t := range cfg.Tokens() {
		fmt.Fprintf(&b, "\t{Category: %q, Name: %q, Value: %q, Used: %t},\n",
			t.Category, t.Name, t.Value, usage.Contains(t.Name))
	}
	b.WriteString("}\n\n")

	b.WriteString(`// Lookup finds a token by category and name.
func Lookup(category, name string) (Token, bool) {
	for _, t := range All {
		if t.Category == category && t.Name == name {
			return t, true
		}
	}
	return Token{}, false
}

func class(prefix, name string) string {
	if name == "DEFAULT" {
		return prefix
	}
	return prefix + "-" + name
}
`)
	return b.Bytes()
}

func format(name string, src []byte) ([]byte, error) {
	out, err := imports.Process(name, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("format generated %s: %w", name, err)
	}
	return out, nil
}

// nameSet detects two theme entries mapping to the same Go identifier.
type nameSet map[string]string

func newNameSet(reserved ...string) nameSet {
	s := nameSet{}
	for _, r := range reserved {
		s[r] = "generated code"
	}
	return s
}

func (s nameSet) add(name, owner string) error {
	if prev, ok := s[name]; ok {
		return fmt.Errorf("identifier %s for %s collides with %s", name, owner, prev)
	}
	s[name] = owner
	return nil
}
