package gitstore

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/operasoftware/git-splitter/internal/splitter"
)

// resolveCommit resolves a revision and peels tags down to a commit.
func (s *Store) resolveCommit(rev string) (*object.Commit, error) {
	h, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a revision: %w", splitter.ErrInvalidRange, rev, err)
	}

	return peelCommit(s.repo.Storer, *h)
}

// ResolveRange implements [splitter.Store].
//
// Commits reachable from an included revision and not from an excluded one
// are listed in a depth first post order from the tips, visiting the first
// parent first, so every commit comes after its parents.
func (s *Store) ResolveRange(ctx context.Context, specs []splitter.RevSpec) (*splitter.RevisionRange, error) {
	var includes, excludes []*object.Commit

	for _, spec := range specs {
		c, err := s.resolveCommit(spec.Rev)
		if err != nil {
			return nil, err
		}

		if spec.SymmetricWith != "" {
			other, err := s.resolveCommit(spec.SymmetricWith)
			if err != nil {
				return nil, err
			}
			bases, err := c.MergeBase(other)
			if err != nil {
				return nil, fmt.Errorf("failed to find merge base of %s and %s: %w", spec.Rev, spec.SymmetricWith, err)
			}
			includes = append(includes, c, other)
			excludes = append(excludes, bases...)
			continue
		}

		if spec.Exclude {
			excludes = append(excludes, c)
		} else {
			includes = append(includes, c)
		}
	}

	excluded, err := s.ancestors(ctx, excludes)
	if err != nil {
		return nil, err
	}

	commits, err := s.dfsPath(ctx, includes, excluded)
	if err != nil {
		return nil, err
	}

	return &splitter.RevisionRange{Commits: commits}, nil
}

// RevList implements [splitter.Store].
func (s *Store) RevList(ctx context.Context, rev string) ([]plumbing.Hash, error) {
	c, err := s.resolveCommit(rev)
	if err != nil {
		return nil, err
	}

	seen, err := s.ancestors(ctx, []*object.Commit{c})
	if err != nil {
		return nil, err
	}

	result := make([]plumbing.Hash, 0, len(seen))
	for h := range seen {
		result = append(result, h)
	}

	return result, nil
}

// ancestors collects tips and everything reachable from them, breadth first.
func (s *Store) ancestors(ctx context.Context, tips []*object.Commit) (splitter.HashSet, error) {
	seen := make(splitter.HashSet)
	queue := make([]plumbing.Hash, 0, len(tips))
	for _, c := range tips {
		queue = append(queue, c.Hash)
	}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		current := queue[0]
		queue = queue[1:]

		if _, found := seen[current]; found {
			continue
		}
		seen[current] = struct{}{}

		c, err := object.GetCommit(s.repo.Storer, current)
		if err != nil {
			return nil, fmt.Errorf("cannot get commit %s: %w", current, err)
		}
		queue = append(queue, c.ParentHashes...)
	}

	return seen, nil
}

type dfsNode struct {
	hash      plumbing.Hash
	parents   []plumbing.Hash
	nextvisit int
}

func (s *Store) dfsPath(ctx context.Context, tips []*object.Commit, excluded splitter.HashSet) ([]splitter.RangeCommit, error) {
	result := make([]splitter.RangeCommit, 0)
	seen := make(splitter.HashSet)
	stack := make([]*dfsNode, 0)

	add := func(h plumbing.Hash) error {
		if _, found := seen[h]; found {
			return nil
		}
		if _, found := excluded[h]; found {
			return nil
		}
		seen[h] = struct{}{}

		c, err := object.GetCommit(s.repo.Storer, h)
		if err != nil {
			return fmt.Errorf("cannot get commit %s: %w", h, err)
		}
		stack = append(stack, &dfsNode{hash: h, parents: c.ParentHashes})
		return nil
	}

	for _, tip := range tips {
		if err := add(tip.Hash); err != nil {
			return nil, err
		}

		for len(stack) > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			current := stack[len(stack)-1]
			if current.nextvisit == len(current.parents) {
				result = append(result, splitter.RangeCommit{Hash: current.hash, Parents: current.parents})
				stack = stack[:len(stack)-1]
				continue
			}

			p := current.parents[current.nextvisit]
			current.nextvisit++
			if err := add(p); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}
