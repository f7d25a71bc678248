package splitter

import "github.com/go-git/go-git/v5/plumbing"

// Survivors selects the commits of rng that need a derived commit.
//
// The walk starts at the tip of the range and goes back in history. A commit
// already in the mapping stops the walk on that path: its ancestors are
// reached through it. Every other commit visited survives and queues its
// parents. The survivors are returned oldest first, in range order.
func Survivors(rng *RevisionRange, m *Mapping) []RangeCommit {
	tip, ok := rng.Tip()
	if !ok {
		return nil
	}

	frontier := NewHashSet(tip.Hash)
	included := make(HashSet)

	for i := len(rng.Commits) - 1; i >= 0; i-- {
		c := rng.Commits[i]
		if _, queued := frontier[c.Hash]; !queued {
			continue
		}
		delete(frontier, c.Hash)

		if _, memoized := m.Lookup(c.Hash); memoized {
			continue
		}

		included[c.Hash] = empty{}
		for _, p := range c.Parents {
			frontier[p] = empty{}
		}
	}

	result := make([]RangeCommit, 0, len(included))
	for _, c := range rng.Commits {
		if _, found := included[c.Hash]; found {
			result = append(result, c)
		}
	}

	return result
}

// RelinkParents maps the original parents of a commit to derived commits.
//
// Order is kept. A parent without a mapping is dropped, without looking
// further back, and a derived commit reached through two parents is only
// listed once. mapped is the number of original parents that had a mapping,
// duplicates included.
func RelinkParents(m *Mapping, parents []plumbing.Hash) (derived []plumbing.Hash, mapped int) {
	derived = make([]plumbing.Hash, 0, len(parents))
	seen := make(HashSet, len(parents))

	for _, p := range parents {
		np, found := m.Lookup(p)
		if !found {
			continue
		}
		mapped++
		if _, dup := seen[np]; dup {
			continue
		}
		seen[np] = empty{}
		derived = append(derived, np)
	}

	return derived, mapped
}
