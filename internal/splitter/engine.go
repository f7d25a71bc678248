// Package splitter rewrites commit history: split extracts the history of a
// subdirectory into its own branch, replant moves a whole history under a
// path prefix.
//
// A run is resumable. Every derived commit is recorded as a tag named after
// the source commit, and those tags are read back on the next run so that
// already processed commits are skipped.
package splitter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// Mode selects how trees are derived.
type Mode int

const (
	ModeSplit Mode = iota
	ModeReplant
)

func (m Mode) String() string {
	switch m {
	case ModeSplit:
		return "split"
	case ModeReplant:
		return "replant"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// DefaultBranch is the output branch used when none is given.
const DefaultBranch = "split_repo"

// Options configures a run.
type Options struct {
	Mode Mode
	// Prefix is the subdirectory to split out, or the path to replant under.
	Prefix string
	// Branch receives the last derived commit.
	Branch string
	// Onto names a ref whose history is already part of the derived history.
	Onto string
	// TagName enables correspondence tags "<TagName>-x-<id>".
	TagName string
	// Destination is where the branch and tags are pushed. Empty skips pushing.
	Destination string
	// Annotate is prepended to every derived commit message.
	Annotate  string
	Revisions []string
}

// NormalizePrefix uses forward slashes and drops a trailing separator.
func NormalizePrefix(prefix string) string {
	prefix = strings.ReplaceAll(prefix, "\\", "/")
	return strings.TrimSuffix(prefix, "/")
}

// Result summarizes a run.
type Result struct {
	Mode   Mode
	Branch string
	// Head is the last derived commit, zero if nothing was processed.
	Head plumbing.Hash

	// Memoized is the number of mappings known before the run started.
	Memoized  int
	Processed int
	Created   int
	Reused    int
	NoContent int

	TagsWritten    int
	RefspecsPushed int
}

// Run is the state of a single rewrite. It is not safe for concurrent use.
type Run struct {
	store Store
	opts  Options

	mapping *Mapping
	tags    *tagManager
	commits *commitSynthesizer

	result Result
}

// NewRun prepares a run over store.
func NewRun(store Store, opts Options) *Run {
	opts.Prefix = NormalizePrefix(opts.Prefix)
	if opts.Branch == "" {
		opts.Branch = DefaultBranch
	}

	return &Run{
		store:   store,
		opts:    opts,
		mapping: NewMapping(),
		tags:    newTagManager(store, opts.Mode, opts.TagName),
		commits: newCommitSynthesizer(store, opts.Annotate, opts.Mode == ModeSplit),
		result: Result{
			Mode:   opts.Mode,
			Branch: opts.Branch,
		},
	}
}

// Mapping exposes the source to derived table of the run.
func (r *Run) Mapping() *Mapping {
	return r.mapping
}

// Execute runs the rewrite to completion. Any error aborts the run; the
// tags written so far let the next run pick up where this one stopped.
func (r *Run) Execute(ctx context.Context) (*Result, error) {
	if r.opts.Prefix == "" {
		return nil, newError(ErrValidation, r.opts.Mode.String(), plumbing.ZeroHash, ErrNoPrefix)
	}
	if r.opts.Mode == ModeReplant && r.store.IsBare() {
		return nil, newError(ErrRepoState, r.opts.Mode.String(), plumbing.ZeroHash, ErrBareRepo)
	}

	rng, err := r.loadRange(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.loadMapping(ctx); err != nil {
		return nil, err
	}

	survivors := Survivors(rng, r.mapping)
	logger.Info("commits to process", "mode", r.opts.Mode, "range", len(rng.Commits), "surviving", len(survivors), "memoized", r.result.Memoized)

	trees, release, err := r.acquireTrees(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	n := len(survivors)
	for i, c := range survivors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := r.process(ctx, i, n, c, trees); err != nil {
			return nil, err
		}
	}

	if r.result.Head.IsZero() {
		logger.Info("no revisions found")
		return &r.result, nil
	}

	p := &publisher{
		store:       r.store,
		branch:      r.opts.Branch,
		destination: r.opts.Destination,
	}
	refs := r.tags.refspecs()
	r.result.TagsWritten = len(r.tags.written)
	r.result.RefspecsPushed, err = p.publish(ctx, r.result.Head, refs)
	if err != nil {
		return nil, err
	}

	logger.Info("done",
		"processed", r.result.Processed,
		"created", r.result.Created,
		"reused", r.result.Reused,
		"no-content", r.result.NoContent,
		"tags", r.result.TagsWritten,
		"pushed", r.result.RefspecsPushed)

	return &r.result, nil
}

func (r *Run) acquireTrees(ctx context.Context) (treeSynthesizer, func(), error) {
	if r.opts.Mode != ModeReplant {
		return &splitTrees{store: r.store, prefix: r.opts.Prefix}, func() {}, nil
	}

	ws, err := r.store.Workspace(ctx)
	if err != nil {
		return nil, nil, storeError("acquire workspace", plumbing.ZeroHash, err)
	}
	release := func() {
		if err := ws.Close(); err != nil {
			logger.Warn("failed to release workspace", "err", err)
		}
	}

	return &replantTrees{ws: ws, prefix: r.opts.Prefix}, release, nil
}

func (r *Run) process(ctx context.Context, i, n int, c RangeCommit, trees treeSynthesizer) error {
	if mapped, found := r.mapping.Lookup(c.Hash); found {
		logger.Debug("already processed", "hash", c.Hash, "derived", mapped)
		return nil
	}
	r.result.Processed++

	tr, err := trees.synthesize(ctx, c.Hash)
	if err != nil {
		return err
	}
	tree, ok := tr.Tree()
	if !ok {
		logger.Debug("no content", "id", i, "total", n, "hash", c.Hash)
		r.result.NoContent++
		return nil
	}

	parents, mapped := RelinkParents(r.mapping, c.Parents)
	if len(parents) == 0 && len(c.Parents) > 0 {
		logger.Info("new root", "hash", c.Hash, "parents", len(c.Parents))
	}

	derived, reused, err := r.commits.synthesize(ctx, c.Hash, tree, parents)
	if err != nil {
		return err
	}
	if reused {
		r.result.Reused++
		logger.Debug("reuse parent commit", "id", i, "total", n, "hash", c.Hash, "commit", derived)
	} else {
		r.result.Created++
		logger.Info("processing commit", "id", i, "total", n, "hash", c.Hash, "newcommit", derived)
	}

	if err := r.tags.record(ctx, c.Hash, derived, len(c.Parents), mapped); err != nil {
		return err
	}
	r.mapping.Record(c.Hash, derived)
	r.tags.stage(c.Hash, derived)
	r.result.Head = derived

	return nil
}

// Action runs one kind of rewrite.
type Action func(ctx context.Context, store Store, opts Options) (*Result, error)

var registry = make(map[string]Action)

// RegisterAction makes an action available to [Dispatch].
func RegisterAction(name string, action Action) {
	registry[name] = action
}

func init() {
	RegisterAction(ModeSplit.String(), Split)
	RegisterAction(ModeReplant.String(), Replant)
}

// Dispatch runs the action registered under name.
func Dispatch(ctx context.Context, name string, store Store, opts Options) (*Result, error) {
	action, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q, expected one of %s", ErrValidation, name, strings.Join(Actions(), ", "))
	}
	return action(ctx, store, opts)
}

// Actions lists the registered action names, sorted.
func Actions() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Split extracts the history of opts.Prefix.
func Split(ctx context.Context, store Store, opts Options) (*Result, error) {
	opts.Mode = ModeSplit
	return NewRun(store, opts).Execute(ctx)
}

// Replant moves the history under opts.Prefix.
func Replant(ctx context.Context, store Store, opts Options) (*Result, error) {
	opts.Mode = ModeReplant
	return NewRun(store, opts).Execute(ctx)
}
