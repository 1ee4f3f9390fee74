package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/stylepipe/pkg/theme"
)

func TestFiles(t *testing.T) {
	assert.Equal(t, []string{"global.css", "stylepipe.yaml", "theme.yaml"}, Files())
}

func TestStarterThemeParses(t *testing.T) {
	data, err := Content("theme.yaml")
	require.NoError(t, err)

	cfg, err := theme.ParseYAML(data, nil)
	require.NoError(t, err)
	tok, ok := cfg.Lookup("colors", "gv-primary")
	require.True(t, ok)
	assert.Equal(t, "#60b5cc", tok.Value)
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")

	res, err := Write(dir, false)
	require.NoError(t, err)
	assert.Len(t, res.Written, 3)
	assert.Empty(t, res.Skipped)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "global.css"), []byte("mine"), 0o644))

	res, err = Write(dir, false)
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Len(t, res.Skipped, 3)
	got, _ := os.ReadFile(filepath.Join(dir, "global.css"))
	assert.Equal(t, "mine", string(got))

	res, err = Write(dir, true)
	require.NoError(t, err)
	assert.Len(t, res.Written, 3)
	got, _ = os.ReadFile(filepath.Join(dir, "global.css"))
	assert.NotEqual(t, "mine", string(got))
}
