package tokens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/theme"
	"github.com/gnana997/stylepipe/pkg/util"
)

func gvTheme() *theme.Config {
	return theme.MustNew(
		theme.Token{Name: "gv-primary-dark", Value: "#27859b", Category: "colors"},
		theme.Token{Name: "gv-primary", Value: "#60b5cc", Category: "colors"},
		theme.Token{Name: "gutter", Value: "1.5rem", Category: "spacing"},
		theme.Token{Name: "md", Value: "768px", Category: "screens"},
	)
}

func process(t *testing.T, cfg *theme.Config, text string) (stage.Output, error) {
	t.Helper()
	s := New(cfg, util.DiscardLogger())
	return s.Process(context.Background(), stage.Input{Source: stage.Source{Text: text, Origin: "global.css"}})
}

func TestProcess_BareTokenIdentifier(t *testing.T) {
	out, err := process(t, gvTheme(), `.btn { color: gv-primary; border: 1px solid gv-primary-dark; }`)
	require.NoError(t, err)

	assert.Equal(t, ".btn {\n  color: #60b5cc;\n  border: 1px solid #27859b;\n}\n", out.Source.Text)
	assert.Equal(t, []string{"gv-primary", "gv-primary-dark"}, out.Usage)
	assert.Equal(t, "global.css", out.Source.Origin)
}

func TestProcess_ThemeFunction(t *testing.T) {
	out, err := process(t, gvTheme(), `.a { margin: theme('spacing.gutter') auto; background: theme("colors.gv-primary"); }
@media (min-width: theme('screens.md')) { .b { color: red; } }`)
	require.NoError(t, err)

	assert.Equal(t, `.a {
  margin: 1.5rem auto;
  background: #60b5cc;
}

@media (min-width: 768px) {
  .b {
    color: red;
  }
}
`, out.Source.Text)
	assert.Equal(t, []string{"gutter", "gv-primary", "md"}, out.Usage)
}

func TestProcess_UnknownThemePathIsError(t *testing.T) {
	_, err := process(t, gvTheme(), `.a { color: theme('colors.gv-nope'); }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown theme path "colors.gv-nope"`)
}

func TestProcess_TailwindLayers(t *testing.T) {
	cfg := theme.MustNew(
		theme.Token{Name: "gv-primary", Value: "#60b5cc", Category: "colors"},
		theme.Token{Name: "gutter", Value: "1.5rem", Category: "spacing"},
	)
	out, err := process(t, cfg, "@tailwind base;\n@tailwind components;\n@tailwind utilities;")
	require.NoError(t, err)

	assert.Equal(t, `.text-gv-primary {
  color: #60b5cc;
}

.bg-gv-primary {
  background-color: #60b5cc;
}

.border-gv-primary {
  border-color: #60b5cc;
}

.p-gutter {
  padding: 1.5rem;
}

.m-gutter {
  margin: 1.5rem;
}

.gap-gutter {
  gap: 1.5rem;
}
`, out.Source.Text)
	assert.Empty(t, out.Usage, "generating utilities does not count as usage")
}

func TestProcess_UnknownTailwindLayer(t *testing.T) {
	_, err := process(t, gvTheme(), "@tailwind screens;")
	assert.Error(t, err)
}

func TestProcess_Apply(t *testing.T) {
	out, err := process(t, gvTheme(), `.card { @apply bg-gv-primary p-gutter; display: block; }
.alert { @apply text-gv-primary-dark !important; }`)
	require.NoError(t, err)

	assert.Equal(t, `.card {
  background-color: #60b5cc;
  padding: 1.5rem;
  display: block;
}

.alert {
  color: #27859b !important;
}
`, out.Source.Text)
	assert.Equal(t, []string{"gutter", "gv-primary", "gv-primary-dark"}, out.Usage)
}

func TestProcess_ApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"unknown utility", `.a { @apply bg-gv-nope; }`, `unknown utility "bg-gv-nope"`},
		{"top level", `@apply bg-gv-primary;`, "inside a rule"},
		{"inside media without rule", `@media print { @apply bg-gv-primary; }`, "inside a rule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := process(t, gvTheme(), tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProcess_LeavesUnrelatedIdentifiersAlone(t *testing.T) {
	src := ".a {\n  display: flex;\n  color: var(--gv-primary);\n  font-family: gutterless, sans-serif;\n}\n"
	out, err := process(t, gvTheme(), src)
	require.NoError(t, err)
	assert.Equal(t, src, out.Source.Text)
	assert.Empty(t, out.Usage)
}

func referenceTheme() *theme.Config {
	return theme.MustNew(
		theme.Token{Name: "accent", Value: "brand", Category: "colors"},
		theme.Token{Name: "brand", Value: "#60b5cc", Category: "colors"},
		theme.Token{Name: "white", Value: "white", Category: "colors"},
		theme.Token{Name: "gutter", Value: "1.5rem", Category: "spacing"},
		theme.Token{Name: "auto", Value: "1 1 auto", Category: "flex"},
		theme.Token{Name: "normal", Value: "400", Category: "fontWeight"},
	)
}

func TestProcess_IdempotentOnOwnOutput(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *theme.Config
		src       string
		want      string
		wantUsage []string
	}{
		{
			name: "utilities and apply",
			cfg:  gvTheme(),
			src:  "@tailwind utilities;\n.a { @apply m-gutter; color: gv-primary; }",
		},
		{
			name:      "token value containing a keyword",
			cfg:       referenceTheme(),
			src:       ".a { flex: 1 1 auto; }",
			want:      ".a {\n  flex: 1 1 auto;\n}\n",
			wantUsage: []string{},
		},
		{
			name:      "color naming another color",
			cfg:       referenceTheme(),
			src:       ".a { color: accent; background: theme('colors.accent'); }\n.b { @apply text-accent; }",
			want:      ".a {\n  color: #60b5cc;\n  background: #60b5cc;\n}\n\n.b {\n  color: #60b5cc;\n}\n",
			wantUsage: []string{"accent"},
		},
		{
			name:      "keywords beside a font weight token",
			cfg:       referenceTheme(),
			src:       ".a { line-height: normal; font-style: normal; margin: auto; color: white; }",
			want:      ".a {\n  line-height: normal;\n  font-style: normal;\n  margin: auto;\n  color: white;\n}\n",
			wantUsage: []string{},
		},
		{
			name:      "bare names outside colors",
			cfg:       referenceTheme(),
			src:       ".a { padding: gutter; }",
			want:      ".a {\n  padding: gutter;\n}\n",
			wantUsage: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := process(t, tt.cfg, tt.src)
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, first.Source.Text)
				assert.Equal(t, tt.wantUsage, first.Usage)
			}

			text := first.Source.Text
			for pass := 2; pass <= 3; pass++ {
				next, err := process(t, tt.cfg, text)
				require.NoError(t, err)
				assert.Equal(t, first.Source.Text, next.Source.Text, "pass %d", pass)
				text = next.Source.Text
			}
		})
	}
}

func TestProcess_ColorReferenceCycle(t *testing.T) {
	cfg := theme.MustNew(
		theme.Token{Name: "ink", Value: "shade", Category: "colors"},
		theme.Token{Name: "shade", Value: "1px ink", Category: "colors"},
	)
	_, err := process(t, cfg, ".a { color: ink; }")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ink -> shade -> ink")
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(gvTheme(), nil).Process(ctx, stage.Input{})
	assert.ErrorIs(t, err, context.Canceled)
}
