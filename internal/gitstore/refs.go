package gitstore

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/operasoftware/git-splitter/internal/splitter"
)

// ListTags implements [splitter.Store]. Annotated tags are peeled to their
// commit; tags that do not lead to a commit are skipped.
func (s *Store) ListTags(ctx context.Context) ([]splitter.Ref, error) {
	iter, err := s.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer iter.Close()

	var result []splitter.Ref
	err = iter.ForEach(func(r *plumbing.Reference) error {
		c, err := peelCommit(s.repo.Storer, r.Hash())
		if err != nil {
			logger.Debug("skipping tag", "tag", r.Name().Short(), "err", err)
			return nil
		}
		result = append(result, splitter.Ref{Name: r.Name().Short(), Target: c.Hash})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	return result, nil
}

// WriteTag implements [splitter.Store]. An existing tag is overwritten.
func (s *Store) WriteTag(ctx context.Context, name string, target plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), target)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("could not tag commit %s with %s: %w", target, name, err)
	}
	return nil
}

// UpdateBranch implements [splitter.Store]. The branch is moved even if the
// update is not a fast forward.
func (s *Store) UpdateBranch(ctx context.Context, name string, target plumbing.Hash) error {
	refName := plumbing.NewBranchReferenceName(name)

	if old, err := s.repo.Reference(refName, true); err == nil && old.Hash() != target {
		ff, err := isFastForward(s.repo.Storer, old.Hash(), target)
		if err != nil {
			return fmt.Errorf("failed to compare %s with %s: %w", old.Hash(), target, err)
		}
		if !ff {
			logger.Warn("branch rewritten", "branch", name, "old", old.Hash(), "new", target)
		}
	}

	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName, target)); err != nil {
		return fmt.Errorf("could not create branch %s for %s: %w", name, target, err)
	}
	return nil
}
