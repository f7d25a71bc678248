package splitter

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RangeCommit is one commit of a resolved [RevisionRange] with its full,
// ordered parent list. Parents outside of the range are still listed.
type RangeCommit struct {
	Hash    plumbing.Hash
	Parents []plumbing.Hash
}

// RevisionRange is the resolved commit list of a run, oldest first: every
// commit comes after all of its parents that are part of the range.
type RevisionRange struct {
	Commits []RangeCommit
}

// Tip returns the newest commit of the range.
func (r *RevisionRange) Tip() (RangeCommit, bool) {
	if r == nil || len(r.Commits) == 0 {
		return RangeCommit{}, false
	}
	return r.Commits[len(r.Commits)-1], true
}

// PathEntry is a tree entry found at a path inside a commit.
type PathEntry struct {
	Hash plumbing.Hash
	Mode filemode.FileMode
}

// Ref is a tag, peeled to the commit it points at.
type Ref struct {
	Name   string
	Target plumbing.Hash
}

// CommitRequest holds everything needed to write a derived commit. Author and
// Committer are copied from the source commit, never taken from the process
// running the rewrite.
type CommitRequest struct {
	Tree      plumbing.Hash
	Parents   []plumbing.Hash
	Author    object.Signature
	Committer object.Signature
	Message   string
}

// Workspace is an exclusive scratch area used to graft trees under a prefix.
// It must be closed once the run is over.
type Workspace interface {
	// Graft stages the full tree of commit under prefix and writes the
	// resulting root tree. A zero hash means there was nothing to stage.
	Graft(ctx context.Context, prefix string, commit plumbing.Hash) (plumbing.Hash, error)
	Close() error
}

// Store is the object store the rewrite engine works against.
type Store interface {
	// ResolveRange resolves revision specifiers into an ordered range.
	ResolveRange(ctx context.Context, specs []RevSpec) (*RevisionRange, error)
	// RevList lists rev and all of its ancestors.
	RevList(ctx context.Context, rev string) ([]plumbing.Hash, error)
	// ReadPathEntry looks up path in the tree of commit.
	ReadPathEntry(ctx context.Context, commit plumbing.Hash, path string) (PathEntry, bool, error)
	// TreeOf returns the root tree of commit.
	TreeOf(ctx context.Context, commit plumbing.Hash) (plumbing.Hash, error)
	// ReadLogRecord returns author name, email and date, committer name, email
	// and date, then the message lines (subject first).
	ReadLogRecord(ctx context.Context, commit plumbing.Hash) ([]string, error)
	Workspace(ctx context.Context) (Workspace, error)
	WriteCommit(ctx context.Context, req *CommitRequest) (plumbing.Hash, error)
	ListTags(ctx context.Context) ([]Ref, error)
	// WriteTag creates or overwrites a lightweight tag.
	WriteTag(ctx context.Context, name string, target plumbing.Hash) error
	UpdateBranch(ctx context.Context, name string, target plumbing.Hash) error
	PushRefs(ctx context.Context, destination string, refspecs []string) error
	// IsBare reports whether the store has no worktree.
	IsBare() bool
}
