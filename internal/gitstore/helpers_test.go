package gitstore

import (
	"path"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	t     *testing.T
	repo  *git.Repository
	clock time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	return &testRepo{
		t:     t,
		repo:  repo,
		clock: time.Date(2019, 5, 6, 7, 8, 9, 0, time.FixedZone("", 3600)),
	}
}

func (r *testRepo) signature(name string) *object.Signature {
	return &object.Signature{Name: name, Email: name + "@example.com", When: r.clock}
}

// commit replaces the worktree content with files and commits it.
func (r *testRepo) commit(message string, files map[string]string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	w, err := r.repo.Worktree()
	require.NoError(r.t, err)

	idx, err := r.repo.Storer.Index()
	require.NoError(r.t, err)
	var stale []string
	for _, e := range idx.Entries {
		if _, keep := files[e.Name]; !keep {
			stale = append(stale, e.Name)
		}
	}
	for _, name := range stale {
		_, err := w.Remove(name)
		require.NoError(r.t, err)
	}
	for name, content := range files {
		require.NoError(r.t, w.Filesystem.MkdirAll(path.Dir(name), 0o755))
		require.NoError(r.t, util.WriteFile(w.Filesystem, name, []byte(content), 0o644))
		_, err := w.Add(name)
		require.NoError(r.t, err)
	}

	r.clock = r.clock.Add(time.Hour)
	h, err := w.Commit(message, &git.CommitOptions{
		Author:            r.signature("alice"),
		Committer:         r.signature("bob"),
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	require.NoError(r.t, err)
	return h
}

func (r *testRepo) tag(name string, target plumbing.Hash) {
	r.t.Helper()
	_, err := r.repo.CreateTag(name, target, nil)
	require.NoError(r.t, err)
}

func (r *testRepo) commitObject(h plumbing.Hash) *object.Commit {
	r.t.Helper()
	c, err := r.repo.CommitObject(h)
	require.NoError(r.t, err)
	return c
}

func (r *testRepo) treeFiles(tree plumbing.Hash) map[string]string {
	r.t.Helper()
	t, err := r.repo.TreeObject(tree)
	require.NoError(r.t, err)

	files := make(map[string]string)
	err = t.Files().ForEach(func(f *object.File) error {
		content, err := f.Contents()
		if err != nil {
			return err
		}
		files[f.Name] = content
		return nil
	})
	require.NoError(r.t, err)
	return files
}
