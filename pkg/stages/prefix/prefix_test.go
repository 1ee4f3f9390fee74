package prefix

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/util"
)

func process(t *testing.T, text string) string {
	t.Helper()
	out, err := New(util.DiscardLogger()).Process(context.Background(), stage.Input{Source: stage.Source{Text: text}})
	require.NoError(t, err)
	return out.Source.Text
}

func TestProcess_InsertsPrefixesBeforeStandard(t *testing.T) {
	got := process(t, `.a { color: red; user-select: none; backdrop-filter: blur(2px) !important; }`)

	assert.Equal(t, `.a {
  color: red;
  -webkit-user-select: none;
  -moz-user-select: none;
  -ms-user-select: none;
  user-select: none;
  -webkit-backdrop-filter: blur(2px) !important;
  backdrop-filter: blur(2px) !important;
}
`, got)
}

func TestProcess_KeepsExistingPrefixes(t *testing.T) {
	got := process(t, `.a { -webkit-appearance: button; appearance: none; }`)

	assert.Equal(t, `.a {
  -webkit-appearance: button;
  -moz-appearance: none;
  appearance: none;
}
`, got)
}

func TestProcess_NestedBlocks(t *testing.T) {
	got := process(t, `@media print { .a { tab-size: 4; } }`)
	assert.Contains(t, got, "    -moz-tab-size: 4;\n    tab-size: 4;\n")
}

func TestProcess_DisplayValuesUntouched(t *testing.T) {
	src := ".a {\n  display: flex;\n}\n\n.b {\n  display: inline-flex;\n}\n\n.c {\n  display: grid;\n}\n"
	assert.Equal(t, src, process(t, src))
}

func TestProcess_Idempotent(t *testing.T) {
	first := process(t, `.a { hyphens: auto; mask-image: url(m.svg); text-size-adjust: 100%; user-drag: none; }`)
	assert.Equal(t, first, process(t, first))
}

func TestProperties(t *testing.T) {
	assert.Equal(t, []string{
		"appearance", "backdrop-filter", "hyphens", "mask-image",
		"tab-size", "text-size-adjust", "user-drag", "user-select",
	}, Properties())
	assert.Equal(t, []string{"-webkit-mask-image"}, Prefixes("mask-image"))
	assert.Empty(t, Prefixes("color"))
}
