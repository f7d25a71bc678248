package splitter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCorrespondence(t *testing.T) {
	src := h("src")

	got, replant, ok := parseCorrespondence("tool", SplitTagName("tool", src))
	assert.True(t, ok)
	assert.False(t, replant)
	assert.Equal(t, src, got)

	got, replant, ok = parseCorrespondence("tool", ReplantTagName("tool", src))
	assert.True(t, ok)
	assert.True(t, replant)
	assert.Equal(t, src, got)

	for _, tag := range []string{
		"v1.0",
		"tool-x-abc",
		"other-x-" + src.String(),
		"tool-x-" + src.String() + "-" + src.String(),
		"tool-x---" + src.String(),
	} {
		_, _, ok := parseCorrespondence("tool", tag)
		assert.False(t, ok, tag)
	}
}

func TestTagManagerRefspecs(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	tm := newTagManager(s, ModeSplit, "tool")

	src, derived := h("src"), h("derived")
	tm.index(Ref{Name: "v1", Target: src})
	tm.index(Ref{Name: "tool-x-" + h("old").String(), Target: src})

	require.NoError(t, tm.record(ctx, src, derived, 1, 1))
	// same derived commit, complete mapping: nothing new
	require.NoError(t, tm.record(ctx, h("other"), derived, 1, 1))
	tm.stage(src, derived)

	tag := SplitTagName("tool", src)
	assert.Equal(t, []string{
		"+refs/tags/" + tag + ":refs/tags/" + tag,
		derived.String() + ":refs/tags/v1",
	}, tm.refspecs())
	assert.Equal(t, 1, s.tagWrites)
}
