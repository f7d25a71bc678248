package gitstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/operasoftware/git-splitter/internal/splitter"
)

var ErrWorkspaceClosed = errors.New("workspace is closed")

// workspace is a disposable scratch area for grafting trees: an index and
// object storage held in memory, reading through to the repository. Only
// the trees of a finished graft are copied into the repository.
type workspace struct {
	repo    *Store
	objects *overlay
	closed  bool
}

// Workspace implements [splitter.Store]. Bare repositories are refused.
func (s *Store) Workspace(ctx context.Context) (splitter.Workspace, error) {
	if s.bare {
		return nil, splitter.ErrBareRepo
	}

	return &workspace{
		repo:    s,
		objects: newOverlay(s.repo.Storer),
	}, nil
}

// clear throws away everything staged by a previous graft.
func (w *workspace) clear() error {
	w.objects.reset()
	return w.objects.SetIndex(&index.Index{Version: 2})
}

// Graft implements [splitter.Workspace].
func (w *workspace) Graft(ctx context.Context, prefix string, commit plumbing.Hash) (plumbing.Hash, error) {
	if w.closed {
		return plumbing.ZeroHash, ErrWorkspaceClosed
	}
	if err := w.clear(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to clear workspace: %w", err)
	}

	if err := w.readTree(ctx, prefix, commit); err != nil {
		return plumbing.ZeroHash, err
	}

	root, err := w.writeTree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if root.IsZero() {
		return root, nil
	}

	if err := copyTree(w.objects, w.repo.repo.Storer, root); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to save grafted tree %s: %w", root, err)
	}

	return root, nil
}

// readTree stages every file of commit under prefix.
func (w *workspace) readTree(ctx context.Context, prefix string, commit plumbing.Hash) error {
	c, err := object.GetCommit(w.objects, commit)
	if err != nil {
		return fmt.Errorf("cannot get commit %s: %w", commit, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return fmt.Errorf("failed to obtain tree for commit %s: %w", commit, err)
	}

	idx := &index.Index{Version: 2}
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name, entry, err := walker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to walk tree of %s: %w", commit, err)
		}
		if entry.Mode == filemode.Dir {
			continue
		}

		idx.Entries = append(idx.Entries, &index.Entry{
			Name: path.Join(prefix, name),
			Hash: entry.Hash,
			Mode: entry.Mode,
		})
	}

	sort.Slice(idx.Entries, func(i, j int) bool {
		return idx.Entries[i].Name < idx.Entries[j].Name
	})

	return w.objects.SetIndex(idx)
}

// writeTree builds the trees of the staged index into the scratch storage
// and returns the root tree, or a zero hash for an empty index.
func (w *workspace) writeTree() (plumbing.Hash, error) {
	idx, err := w.objects.Index()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to read index: %w", err)
	}
	if len(idx.Entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	trees := map[string]*object.Tree{"": {}}
	var addDir func(dir string)
	addDir = func(dir string) {
		if _, found := trees[dir]; found {
			return
		}
		trees[dir] = &object.Tree{}
		parent, name := splitPath(dir)
		addDir(parent)
		trees[parent].Entries = append(trees[parent].Entries, object.TreeEntry{Name: name, Mode: filemode.Dir})
	}

	for _, e := range idx.Entries {
		dir, name := splitPath(e.Name)
		addDir(dir)
		trees[dir].Entries = append(trees[dir].Entries, object.TreeEntry{Name: name, Mode: e.Mode, Hash: e.Hash})
	}

	dirs := make([]string, 0, len(trees))
	for dir := range trees {
		dirs = append(dirs, dir)
	}
	// children before parents
	sort.Slice(dirs, func(i, j int) bool {
		return depth(dirs[i]) > depth(dirs[j])
	})

	hashes := make(map[string]plumbing.Hash, len(trees))
	for _, dir := range dirs {
		t := trees[dir]
		for i := range t.Entries {
			if t.Entries[i].Mode == filemode.Dir {
				t.Entries[i].Hash = hashes[path.Join(dir, t.Entries[i].Name)]
			}
		}
		sortTreeEntries(t.Entries)

		h, err := storeObject(w.objects.Storage, t)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to write tree %q: %w", dir, err)
		}
		hashes[dir] = h
	}

	return hashes[""], nil
}

// Close implements [splitter.Workspace].
func (w *workspace) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.objects.reset()
	return nil
}

func splitPath(p string) (dir, name string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

func depth(dir string) int {
	if dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

// sortTreeEntries orders entries the way git does: directories compare as if
// their name ended with a slash.
func sortTreeEntries(entries []object.TreeEntry) {
	key := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool {
		return key(entries[i]) < key(entries[j])
	})
}
