package splitter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// fakeCommit is a commit of the fake store. Trees are flat file maps.
type fakeCommit struct {
	parents   []plumbing.Hash
	tree      plumbing.Hash
	author    object.Signature
	committer object.Signature
	message   string
}

// fakeStore is an in-memory Store. Hashes are content addressed like git, so
// writing the same commit twice gives the same id.
type fakeStore struct {
	commits  map[plumbing.Hash]*fakeCommit
	order    []plumbing.Hash
	trees    map[plumbing.Hash]map[string]string
	branches map[string]plumbing.Hash
	tags     map[string]plumbing.Hash
	pushes   [][]string
	bare     bool
	clock    time.Time

	logRecords map[plumbing.Hash][]string

	failWriteCommit error
	failUpdate      error
	failPush        error
	tagWrites       int
	grafts          int
	closed          int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		commits:    make(map[plumbing.Hash]*fakeCommit),
		trees:      make(map[plumbing.Hash]map[string]string),
		branches:   make(map[string]plumbing.Hash),
		tags:       make(map[string]plumbing.Hash),
		logRecords: make(map[plumbing.Hash][]string),
		clock:      time.Date(2020, 1, 2, 3, 4, 5, 0, time.FixedZone("", 2*3600)),
	}
}

var _ Store = (*fakeStore)(nil)

func (s *fakeStore) putTree(files map[string]string) plumbing.Hash {
	if len(files) == 0 {
		return plumbing.ZeroHash
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s=%s\n", name, files[name])
	}
	h := plumbing.ComputeHash(plumbing.TreeObject, []byte(sb.String()))
	s.trees[h] = files
	return h
}

func (s *fakeStore) putCommit(c *fakeCommit) plumbing.Hash {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tree %s\n", c.tree)
	for _, p := range c.parents {
		fmt.Fprintf(&sb, "parent %s\n", p)
	}
	fmt.Fprintf(&sb, "author %s\ncommitter %s\n\n%s", c.author.String(), c.committer.String(), c.message)
	fmt.Fprintf(&sb, "%d %d", c.author.When.Unix(), c.committer.When.Unix())

	h := plumbing.ComputeHash(plumbing.CommitObject, []byte(sb.String()))
	if _, found := s.commits[h]; !found {
		s.commits[h] = c
		s.order = append(s.order, h)
	}
	return h
}

// commit adds a source commit on master with the given files.
func (s *fakeStore) commit(message string, files map[string]string, parents ...plumbing.Hash) plumbing.Hash {
	s.clock = s.clock.Add(time.Hour)
	h := s.putCommit(&fakeCommit{
		parents:   parents,
		tree:      s.putTree(files),
		author:    object.Signature{Name: "Alice", Email: "alice@example.com", When: s.clock},
		committer: object.Signature{Name: "Bob", Email: "bob@example.com", When: s.clock.Add(time.Minute)},
		message:   message + "\n",
	})
	s.branches["master"] = h
	return h
}

func (s *fakeStore) files(commit plumbing.Hash) map[string]string {
	c, found := s.commits[commit]
	if !found {
		return nil
	}
	return s.trees[c.tree]
}

func (s *fakeStore) resolve(rev string) (plumbing.Hash, error) {
	if h, found := s.branches[rev]; found {
		return h, nil
	}
	if h, found := s.tags[rev]; found {
		return h, nil
	}
	if h, ok := decodeHash(rev); ok {
		if _, found := s.commits[h]; found {
			return h, nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("%w: unknown revision %q", ErrInvalidRange, rev)
}

func (s *fakeStore) ancestors(tips ...plumbing.Hash) HashSet {
	seen := make(HashSet)
	queue := append([]plumbing.Hash(nil), tips...)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, found := seen[h]; found {
			continue
		}
		seen[h] = empty{}
		queue = append(queue, s.commits[h].parents...)
	}
	return seen
}

func (s *fakeStore) ResolveRange(ctx context.Context, specs []RevSpec) (*RevisionRange, error) {
	var include, exclude []plumbing.Hash
	for _, spec := range specs {
		if spec.SymmetricWith != "" {
			return nil, errors.New("symmetric ranges are not supported by the fake store")
		}
		h, err := s.resolve(spec.Rev)
		if err != nil {
			return nil, err
		}
		if spec.Exclude {
			exclude = append(exclude, h)
		} else {
			include = append(include, h)
		}
	}

	in := s.ancestors(include...)
	out := s.ancestors(exclude...)
	rng := &RevisionRange{}
	for _, h := range s.order {
		_, i := in[h]
		_, o := out[h]
		if i && !o {
			rng.Commits = append(rng.Commits, RangeCommit{Hash: h, Parents: s.commits[h].parents})
		}
	}
	return rng, nil
}

func (s *fakeStore) RevList(ctx context.Context, rev string) ([]plumbing.Hash, error) {
	h, err := s.resolve(rev)
	if err != nil {
		return nil, err
	}
	all := s.ancestors(h)
	var result []plumbing.Hash
	for _, c := range s.order {
		if _, found := all[c]; found {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *fakeStore) ReadPathEntry(ctx context.Context, commit plumbing.Hash, path string) (PathEntry, bool, error) {
	files := s.files(commit)
	if content, found := files[path]; found {
		return PathEntry{Hash: plumbing.ComputeHash(plumbing.BlobObject, []byte(content)), Mode: filemode.Regular}, true, nil
	}

	sub := make(map[string]string)
	for name, content := range files {
		if rest, found := strings.CutPrefix(name, path+"/"); found {
			sub[rest] = content
		}
	}
	if len(sub) == 0 {
		return PathEntry{}, false, nil
	}
	return PathEntry{Hash: s.putTree(sub), Mode: filemode.Dir}, true, nil
}

func (s *fakeStore) TreeOf(ctx context.Context, commit plumbing.Hash) (plumbing.Hash, error) {
	c, found := s.commits[commit]
	if !found {
		return plumbing.ZeroHash, fmt.Errorf("commit %s: %w", commit, plumbing.ErrObjectNotFound)
	}
	return c.tree, nil
}

func (s *fakeStore) ReadLogRecord(ctx context.Context, commit plumbing.Hash) ([]string, error) {
	if lines, found := s.logRecords[commit]; found {
		return lines, nil
	}
	c, found := s.commits[commit]
	if !found {
		return nil, fmt.Errorf("commit %s: %w", commit, plumbing.ErrObjectNotFound)
	}
	lines := []string{
		c.author.Name, c.author.Email, FormatRawDate(c.author.When),
		c.committer.Name, c.committer.Email, FormatRawDate(c.committer.When),
	}
	return append(lines, strings.Split(strings.TrimSuffix(c.message, "\n"), "\n")...), nil
}

type fakeWorkspace struct {
	s *fakeStore
}

func (s *fakeStore) Workspace(ctx context.Context) (Workspace, error) {
	if s.bare {
		return nil, ErrBareRepo
	}
	return &fakeWorkspace{s: s}, nil
}

func (w *fakeWorkspace) Graft(ctx context.Context, prefix string, commit plumbing.Hash) (plumbing.Hash, error) {
	w.s.grafts++
	grafted := make(map[string]string)
	for name, content := range w.s.files(commit) {
		grafted[prefix+"/"+name] = content
	}
	return w.s.putTree(grafted), nil
}

func (w *fakeWorkspace) Close() error {
	w.s.closed++
	return nil
}

func (s *fakeStore) WriteCommit(ctx context.Context, req *CommitRequest) (plumbing.Hash, error) {
	if s.failWriteCommit != nil {
		return plumbing.ZeroHash, s.failWriteCommit
	}
	if _, found := s.trees[req.Tree]; !found {
		return plumbing.ZeroHash, fmt.Errorf("tree %s: %w", req.Tree, plumbing.ErrObjectNotFound)
	}
	return s.putCommit(&fakeCommit{
		parents:   append([]plumbing.Hash(nil), req.Parents...),
		tree:      req.Tree,
		author:    req.Author,
		committer: req.Committer,
		message:   req.Message,
	}), nil
}

func (s *fakeStore) ListTags(ctx context.Context) ([]Ref, error) {
	names := make([]string, 0, len(s.tags))
	for name := range s.tags {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]Ref, 0, len(names))
	for _, name := range names {
		refs = append(refs, Ref{Name: name, Target: s.tags[name]})
	}
	return refs, nil
}

func (s *fakeStore) WriteTag(ctx context.Context, name string, target plumbing.Hash) error {
	s.tagWrites++
	s.tags[name] = target
	return nil
}

func (s *fakeStore) UpdateBranch(ctx context.Context, name string, target plumbing.Hash) error {
	if s.failUpdate != nil {
		return s.failUpdate
	}
	s.branches[name] = target
	return nil
}

func (s *fakeStore) PushRefs(ctx context.Context, destination string, refspecs []string) error {
	if s.failPush != nil {
		return s.failPush
	}
	s.pushes = append(s.pushes, append([]string(nil), refspecs...))
	return nil
}

func (s *fakeStore) IsBare() bool {
	return s.bare
}
