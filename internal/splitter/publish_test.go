package splitter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refList(n int) []string {
	refs := make([]string, n)
	for i := range refs {
		refs[i] = fmt.Sprintf("r%d", i)
	}
	return refs
}

func TestBatchRefspecs(t *testing.T) {
	t.Run("no refs still pushes the branch", func(t *testing.T) {
		got := batchRefspecs("b", nil, 3)
		if diff := cmp.Diff([][]string{{"b"}}, got); diff != "" {
			t.Errorf("batches mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("exact fit", func(t *testing.T) {
		got := batchRefspecs("b", refList(4), 3)
		want := [][]string{{"b", "r0", "r1"}, {"b", "r2", "r3"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("batches mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("remainder", func(t *testing.T) {
		got := batchRefspecs("b", refList(5), 3)
		want := [][]string{{"b", "r0", "r1"}, {"b", "r2", "r3"}, {"b", "r4"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("batches mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("default size", func(t *testing.T) {
		got := batchRefspecs("b", refList(250), MaxRefspecsPerPush)
		require.Len(t, got, 3)
		total := 0
		for _, batch := range got {
			assert.LessOrEqual(t, len(batch), MaxRefspecsPerPush)
			assert.Equal(t, "b", batch[0])
			total += len(batch) - 1
		}
		assert.Equal(t, 250, total)
	})
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	head := h("head")

	t.Run("without destination only moves the branch", func(t *testing.T) {
		s := newFakeStore()
		p := &publisher{store: s, branch: "out"}
		n, err := p.publish(ctx, head, []string{"x"})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, head, s.branches["out"])
		assert.Empty(t, s.pushes)
	})

	t.Run("pushes branch and refs", func(t *testing.T) {
		s := newFakeStore()
		p := &publisher{store: s, branch: "out", destination: "dest"}
		n, err := p.publish(ctx, head, []string{"+refs/tags/a:refs/tags/a"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		want := [][]string{{"refs/heads/out:refs/heads/out", "+refs/tags/a:refs/tags/a"}}
		if diff := cmp.Diff(want, s.pushes); diff != "" {
			t.Errorf("pushes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejected branch update", func(t *testing.T) {
		s := newFakeStore()
		s.failUpdate = errors.New("locked")
		p := &publisher{store: s, branch: "out", destination: "dest"}
		_, err := p.publish(ctx, head, nil)
		assert.ErrorIs(t, err, ErrPublish)
		assert.Contains(t, err.Error(), "create branch out")
		assert.Empty(t, s.pushes)
	})

	t.Run("failed push", func(t *testing.T) {
		s := newFakeStore()
		s.failPush = errors.New("connection refused")
		p := &publisher{store: s, branch: "out", destination: "dest"}
		_, err := p.publish(ctx, head, nil)
		assert.ErrorIs(t, err, ErrPublish)
		assert.Contains(t, err.Error(), "connection refused")
	})
}
