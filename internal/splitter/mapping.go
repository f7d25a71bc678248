package splitter

import "github.com/go-git/go-git/v5/plumbing"

// Mapping maps source commits to the derived commits that replace them.
//
// Entries are seeded before the walk (from tags and the onto history) and
// then only ever added: a key keeps its value for the rest of the run.
// Several source commits may map to the same derived commit.
type Mapping struct {
	m map[plumbing.Hash]plumbing.Hash
}

func NewMapping() *Mapping {
	return &Mapping{m: make(map[plumbing.Hash]plumbing.Hash)}
}

// Seed records a mapping found before processing started. Later seeds win.
func (m *Mapping) Seed(source, derived plumbing.Hash) {
	m.m[source] = derived
}

// Record adds the result of processing source. It reports false, and leaves
// the table untouched, if source is already mapped.
func (m *Mapping) Record(source, derived plumbing.Hash) bool {
	if _, found := m.m[source]; found {
		return false
	}
	m.m[source] = derived
	return true
}

func (m *Mapping) Lookup(source plumbing.Hash) (plumbing.Hash, bool) {
	v, found := m.m[source]
	return v, found
}

func (m *Mapping) Len() int {
	return len(m.m)
}
