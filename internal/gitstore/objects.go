package gitstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/operasoftware/git-splitter/internal/splitter"
)

var ErrNotCommit = errors.New("object is not a commit")

// peelCommit follows annotated tags until it reaches a commit.
func peelCommit(s storer.EncodedObjectStorer, h plumbing.Hash) (*object.Commit, error) {
	for {
		obj, err := s.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return nil, fmt.Errorf("cannot read object %s: %w", h, err)
		}

		switch obj.Type() {
		case plumbing.CommitObject:
			return object.DecodeCommit(s, obj)
		case plumbing.TagObject:
			tag, err := object.DecodeTag(s, obj)
			if err != nil {
				return nil, fmt.Errorf("cannot decode tag %s: %w", h, err)
			}
			h = tag.Target
		default:
			return nil, fmt.Errorf("%s is a %s: %w", h, obj.Type(), ErrNotCommit)
		}
	}
}

// ReadPathEntry implements [splitter.Store].
func (s *Store) ReadPathEntry(ctx context.Context, commit plumbing.Hash, path string) (splitter.PathEntry, bool, error) {
	c, err := object.GetCommit(s.repo.Storer, commit)
	if err != nil {
		return splitter.PathEntry{}, false, fmt.Errorf("cannot get commit %s: %w", commit, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return splitter.PathEntry{}, false, fmt.Errorf("failed to obtain tree for commit %s: %w", commit, err)
	}

	entry, err := tree.FindEntry(path)
	switch {
	case errors.Is(err, object.ErrEntryNotFound),
		errors.Is(err, object.ErrDirectoryNotFound),
		errors.Is(err, plumbing.ErrObjectNotFound):
		return splitter.PathEntry{}, false, nil
	case err != nil:
		return splitter.PathEntry{}, false, fmt.Errorf("failed to look up %s in %s: %w", path, commit, err)
	}

	return splitter.PathEntry{Hash: entry.Hash, Mode: entry.Mode}, true, nil
}

// TreeOf implements [splitter.Store].
func (s *Store) TreeOf(ctx context.Context, commit plumbing.Hash) (plumbing.Hash, error) {
	c, err := object.GetCommit(s.repo.Storer, commit)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("cannot get commit %s: %w", commit, err)
	}
	return c.TreeHash, nil
}

// ReadLogRecord implements [splitter.Store].
func (s *Store) ReadLogRecord(ctx context.Context, commit plumbing.Hash) ([]string, error) {
	c, err := object.GetCommit(s.repo.Storer, commit)
	if err != nil {
		return nil, fmt.Errorf("cannot get commit %s: %w", commit, err)
	}
	return LogRecord(c), nil
}

// LogRecord renders the identity lines and message lines of c.
func LogRecord(c *object.Commit) []string {
	lines := []string{
		c.Author.Name,
		c.Author.Email,
		splitter.FormatRawDate(c.Author.When),
		c.Committer.Name,
		c.Committer.Email,
		splitter.FormatRawDate(c.Committer.When),
	}

	subject, body, _ := strings.Cut(strings.TrimRight(c.Message, "\n"), "\n")
	lines = append(lines, subject)
	if body != "" {
		lines = append(lines, strings.Split(body, "\n")...)
	}

	return lines
}

// WriteCommit implements [splitter.Store]. GPG signatures are never copied.
func (s *Store) WriteCommit(ctx context.Context, req *splitter.CommitRequest) (plumbing.Hash, error) {
	c := &object.Commit{
		Author:       req.Author,
		Committer:    req.Committer,
		Message:      req.Message,
		TreeHash:     req.Tree,
		ParentHashes: req.Parents,
	}

	return storeObject(s.repo.Storer, c)
}

type encoder interface {
	Encode(plumbing.EncodedObject) error
}

func storeObject(s storer.EncodedObjectStorer, v encoder) (plumbing.Hash, error) {
	obj := s.NewEncodedObject()
	if err := v.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode object: %w", err)
	}
	h, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to save object: %w", err)
	}
	return h, nil
}
