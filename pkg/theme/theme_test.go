package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/stylepipe/pkg/parser"
	"github.com/gnana997/stylepipe/pkg/util"
)

func loadFixture(t *testing.T, name string) *Config {
	t.Helper()
	pm := parser.NewParserManager(util.DiscardLogger())
	t.Cleanup(func() { pm.Close() })

	cfg, err := Load(filepath.Join("testdata", name), LoadOptions{Parsers: pm, Logger: util.DiscardLogger()})
	require.NoError(t, err)
	return cfg
}

func TestLoadScript_SpreadIntoExtend(t *testing.T) {
	cfg := loadFixture(t, "tailwind.config.js")

	assert.Equal(t, []string{"colors"}, cfg.Categories())
	assert.Equal(t, 7, cfg.Len())

	tok, ok := cfg.Lookup("colors", "gv-primary")
	require.True(t, ok)
	assert.Equal(t, "#60b5cc", tok.Value)

	names := make([]string, 0, cfg.Len())
	for _, tk := range cfg.Category("colors") {
		names = append(names, tk.Name)
	}
	assert.Equal(t, []string{
		"gv-primary-darkest", "gv-primary-darker", "gv-primary-dark", "gv-primary",
		"gv-primary-light", "gv-primary-lighter", "gv-primary-lightest",
	}, names)
}

func TestLoadScript_TypeScriptConfig(t *testing.T) {
	cfg := loadFixture(t, "tailwind.config.ts")

	want := []Token{
		{Name: "brand", Value: "#60b5cc", Category: "colors"},
		{Name: "brand-500", Value: "#27859b", Category: "colors"},
		{Name: "ink", Value: "#000000", Category: "colors"},
		{Name: "sans", Value: "Inter, sans-serif", Category: "fontFamily"},
		{Name: "gutter", Value: "1.5rem", Category: "spacing"},
	}
	if diff := cmp.Diff(want, cfg.Tokens()); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadScript_ModuleExports(t *testing.T) {
	src := `const palette = { red: "#f00" };
module.exports = {
  theme: { colors: { ...palette, blue: "#00f" }, screens: require("./screens") },
};
`
	pm := parser.NewParserManager(util.DiscardLogger())
	defer pm.Close()

	cfg, err := LoadScript("tailwind.config.cjs", []byte(src), pm, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"colors"}, cfg.Categories())

	tok, ok := cfg.Find("blue")
	require.True(t, ok)
	assert.Equal(t, "#00f", tok.Value)
}

func TestLoadScript_DefineConfigWrapper(t *testing.T) {
	src := `export default defineConfig({ theme: { spacing: { "1": "0.25rem" } } });`
	pm := parser.NewParserManager(util.DiscardLogger())
	defer pm.Close()

	cfg, err := LoadScript("tailwind.config.mjs", []byte(src), pm, nil)
	require.NoError(t, err)
	tok, ok := cfg.Lookup("spacing", "1")
	require.True(t, ok)
	assert.Equal(t, "0.25rem", tok.Value)
}

func TestLoadScript_Errors(t *testing.T) {
	pm := parser.NewParserManager(util.DiscardLogger())
	defer pm.Close()

	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"syntax error", "export default { theme: {", "syntax error"},
		{"no export", "const theme = {};", "no exported config"},
		{"not an object", "export default makeConfig;", "not an object literal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScript("tailwind.config.js", []byte(tt.src), pm, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScript_NoThemeIsEmpty(t *testing.T) {
	pm := parser.NewParserManager(util.DiscardLogger())
	defer pm.Close()

	cfg, err := LoadScript("tailwind.config.js", []byte(`export default { plugins: [] };`), pm, nil)
	require.NoError(t, err)
	assert.Zero(t, cfg.Len())
}

func TestParseYAML(t *testing.T) {
	cfg := loadFixture(t, "theme.yaml")

	want := []Token{
		{Name: "gv-primary", Value: "#60b5cc", Category: "colors"},
		{Name: "brand", Value: "#ff0000", Category: "colors"},
		{Name: "brand-dark", Value: "#990000", Category: "colors"},
		{Name: "gutter", Value: "1.5rem", Category: "spacing"},
		{Name: "0.5", Value: "0.125rem", Category: "spacing"},
	}
	if diff := cmp.Diff(want, cfg.Tokens()); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestParseYAML_BareThemeMapping(t *testing.T) {
	cfg, err := ParseYAML([]byte("colors:\n  red: \"#f00\"\n"), nil)
	require.NoError(t, err)
	_, ok := cfg.Lookup("colors", "red")
	assert.True(t, ok)
}

func TestParseYAML_Invalid(t *testing.T) {
	_, err := ParseYAML([]byte("- a\n- b\n"), nil)
	assert.Error(t, err)

	_, err = ParseYAML([]byte("theme: [1, 2]\n"), nil)
	assert.Error(t, err)
}

func TestLoad_UnsupportedOrMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.js"), LoadOptions{})
	assert.Error(t, err)

	txt := filepath.Join(dir, "theme.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	_, err = Load(txt, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")

	_, err = Load(dir, LoadOptions{})
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(dir)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "theme.yaml"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tailwind.config.js"), nil, 0o644))

	got, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tailwind.config.js"), got)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Token{Name: "", Value: "x", Category: "colors"})
	assert.Error(t, err)
	_, err = New(Token{Name: "a b", Value: "x", Category: "colors"})
	assert.Error(t, err)
	_, err = New(Token{Name: "a", Value: "  ", Category: "colors"})
	assert.Error(t, err)
	_, err = New(Token{Name: "a", Value: "red; color: blue", Category: "colors"})
	assert.Error(t, err)
	_, err = New(Token{Name: "a", Value: "red", Category: "1colors"})
	assert.Error(t, err)
}

func TestConfig_OverrideKeepsPosition(t *testing.T) {
	cfg := MustNew(
		Token{Name: "a", Value: "1", Category: "colors"},
		Token{Name: "b", Value: "2", Category: "colors"},
		Token{Name: "a", Value: "3", Category: "colors"},
	)
	assert.Equal(t, []Token{
		{Name: "a", Value: "3", Category: "colors"},
		{Name: "b", Value: "2", Category: "colors"},
	}, cfg.Tokens())
}

func TestConfig_Resolve(t *testing.T) {
	cfg := MustNew(
		Token{Name: "gv-primary", Value: "#60b5cc", Category: "colors"},
		Token{Name: "blue-500", Value: "#00f", Category: "colors"},
		Token{Name: "brand", Value: "#f00", Category: "colors"},
		Token{Name: "0.5", Value: "0.125rem", Category: "spacing"},
	)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"colors.gv-primary", "#60b5cc", true},
		{"colors.blue.500", "#00f", true},
		{"colors.brand.DEFAULT", "#f00", true},
		{"spacing.0.5", "0.125rem", true},
		{" colors.brand ", "#f00", true},
		{"colors.missing", "", false},
		{"colors", "", false},
		{"fonts.sans", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tok, ok := cfg.Resolve(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, tok.Value)
		})
	}
}

func TestConfig_FindPrefersSortedCategory(t *testing.T) {
	cfg := MustNew(
		Token{Name: "base", Value: "1rem", Category: "spacing"},
		Token{Name: "base", Value: "#fff", Category: "colors"},
	)
	tok, ok := cfg.Find("base")
	require.True(t, ok)
	assert.Equal(t, "colors", tok.Category)
}

func TestConfig_Utilities(t *testing.T) {
	cfg := MustNew(
		Token{Name: "gv-primary", Value: "#60b5cc", Category: "colors"},
		Token{Name: "gutter", Value: "1.5rem", Category: "spacing"},
		Token{Name: "sans", Value: "Inter", Category: "fontFamily"},
	)

	var classes []string
	for _, u := range cfg.Utilities() {
		classes = append(classes, u.Class)
	}
	assert.Equal(t, []string{
		"text-gv-primary", "bg-gv-primary", "border-gv-primary",
		"p-gutter", "m-gutter", "gap-gutter",
	}, classes)

	u, ok := cfg.Utility("bg-gv-primary")
	require.True(t, ok)
	assert.Equal(t, []Declaration{{Property: "background-color", Value: "#60b5cc"}}, u.Decls)
	assert.Equal(t, ".bg-gv-primary", u.Selector())

	_, ok = cfg.Utility("bg-nope")
	assert.False(t, ok)
}

func TestEscapeClass(t *testing.T) {
	assert.Equal(t, `p-0\.5`, EscapeClass("p-0.5"))
	assert.Equal(t, `\31 0`, EscapeClass("10"))
}
