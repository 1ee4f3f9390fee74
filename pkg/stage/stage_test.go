package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsage_Merge(t *testing.T) {
	u := Usage{"b", "d"}
	merged := u.Merge("c", "a", "b")

	assert.Equal(t, Usage{"a", "b", "c", "d"}, merged)
	assert.Equal(t, Usage{"b", "d"}, u, "receiver must not change")
	assert.True(t, merged.Contains("c"))
	assert.False(t, merged.Contains("e"))
}

func TestUsage_MergeEmpty(t *testing.T) {
	var u Usage
	assert.Empty(t, u.Merge())
	assert.False(t, u.Contains("a"))
}

func TestSource_WithText(t *testing.T) {
	src := Source{Text: "a{}", Origin: "global.css"}
	next := src.WithText("b{}")

	assert.Equal(t, "b{}", next.Text)
	assert.Equal(t, "global.css", next.Origin)
	assert.Equal(t, "a{}", src.Text)
}

func TestPassthrough(t *testing.T) {
	s := Passthrough("noop")
	assert.Equal(t, "noop", s.Name())

	out, err := s.Process(context.Background(), Input{Source: Source{Text: "x{}", Origin: "in.css"}})
	require.NoError(t, err)
	assert.Equal(t, Source{Text: "x{}", Origin: "in.css"}, out.Source)
	assert.Nil(t, out.Completion)
}

func TestCanonicalOrder(t *testing.T) {
	assert.Equal(t, []string{"imports", "tokens", "prefix", "codegen"}, CanonicalOrder())
}
