package splitter

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// TreeResult is either a resolved tree or no content at all.
type TreeResult struct {
	tree plumbing.Hash
}

// Resolved wraps a tree that will become the content of a derived commit.
func Resolved(tree plumbing.Hash) TreeResult {
	return TreeResult{tree: tree}
}

// NoContent means the commit has nothing under the prefix. Such a commit gets
// no mapping, so edges to it are dropped.
var NoContent = TreeResult{}

func (t TreeResult) Tree() (plumbing.Hash, bool) {
	return t.tree, !t.tree.IsZero()
}

type treeSynthesizer interface {
	synthesize(ctx context.Context, commit plumbing.Hash) (TreeResult, error)
}

// splitTrees extracts the subtree at prefix.
type splitTrees struct {
	store  Store
	prefix string
}

func (s *splitTrees) synthesize(ctx context.Context, commit plumbing.Hash) (TreeResult, error) {
	entry, found, err := s.store.ReadPathEntry(ctx, commit, s.prefix)
	if err != nil {
		return NoContent, storeError("read tree entry", commit, err)
	}
	if !found {
		return NoContent, nil
	}
	if entry.Mode != filemode.Dir {
		logger.Warn("prefix is not a directory", "hash", commit, "prefix", s.prefix, "mode", entry.Mode)
		return NoContent, nil
	}

	return Resolved(entry.Hash), nil
}

// replantTrees grafts the whole tree under prefix inside a workspace.
type replantTrees struct {
	ws     Workspace
	prefix string
}

func (s *replantTrees) synthesize(ctx context.Context, commit plumbing.Hash) (TreeResult, error) {
	tree, err := s.ws.Graft(ctx, s.prefix, commit)
	if err != nil {
		return NoContent, storeError("graft tree", commit, err)
	}

	return Resolved(tree), nil
}
