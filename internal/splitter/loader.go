package splitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// RevSpec is one parsed revision specifier.
type RevSpec struct {
	Rev     string
	Exclude bool
	// SymmetricWith is set for "a...b": both sides are included and their
	// merge bases excluded.
	SymmetricWith string
}

// ParseRange parses revision arguments the way rev-list takes them: plain
// revisions, ^rev, a..b, a...b and --not. Anything else (paths, "--",
// options) is rejected with [ErrInvalidRange].
func ParseRange(args []string) ([]RevSpec, error) {
	specs := make([]RevSpec, 0, len(args))
	negate := false
	included := 0

	for _, arg := range args {
		switch {
		case arg == "--not":
			negate = !negate
			continue
		case arg == "--":
			return nil, fmt.Errorf("%w: path filters are not supported", ErrInvalidRange)
		case arg == "" || strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("%w: unexpected argument %q", ErrInvalidRange, arg)
		}

		if a, b, found := strings.Cut(arg, "..."); found {
			if negate {
				return nil, fmt.Errorf("%w: cannot negate %q", ErrInvalidRange, arg)
			}
			specs = append(specs, RevSpec{Rev: orHead(a), SymmetricWith: orHead(b)})
			included++
			continue
		}

		if a, b, found := strings.Cut(arg, ".."); found {
			specs = append(specs,
				RevSpec{Rev: orHead(a), Exclude: !negate},
				RevSpec{Rev: orHead(b), Exclude: negate},
			)
			included++
			continue
		}

		exclude := negate
		if rev, found := strings.CutPrefix(arg, "^"); found {
			exclude = !exclude
			arg = rev
		}
		if arg == "" {
			return nil, fmt.Errorf("%w: empty revision", ErrInvalidRange)
		}
		specs = append(specs, RevSpec{Rev: arg, Exclude: exclude})
		if !exclude {
			included++
		}
	}

	if included == 0 {
		return nil, fmt.Errorf("%w: no revision to start from", ErrInvalidRange)
	}

	return specs, nil
}

func orHead(rev string) string {
	if rev == "" {
		return "HEAD"
	}
	return rev
}

// loadRange resolves the revisions of the run.
func (r *Run) loadRange(ctx context.Context) (*RevisionRange, error) {
	specs, err := ParseRange(r.opts.Revisions)
	if err != nil {
		return nil, newError(ErrValidation, "parse revisions", plumbing.ZeroHash, err)
	}

	rng, err := r.store.ResolveRange(ctx, specs)
	if err != nil {
		return nil, storeError("resolve revisions", plumbing.ZeroHash, err)
	}

	logger.Debug("revision list", "revisions", r.opts.Revisions, "commits", len(rng.Commits))

	return rng, nil
}

// loadMapping seeds the mapping table from the onto history and from the
// correspondence tags left behind by earlier runs, and indexes every tag by
// the commit it points at. Commits that already carry a correspondence tag
// count as tagged, so commits elided into them are not tagged on reruns.
func (r *Run) loadMapping(ctx context.Context) error {
	if r.opts.Onto != "" {
		onto, err := r.store.RevList(ctx, r.opts.Onto)
		if err != nil {
			return storeError("list onto history", plumbing.ZeroHash, err)
		}
		for _, h := range onto {
			r.mapping.Seed(h, h)
		}
		logger.Debug("onto history", "onto", r.opts.Onto, "commits", len(onto))
	}

	tags, err := r.store.ListTags(ctx)
	if err != nil {
		return storeError("list tags", plumbing.ZeroHash, err)
	}

	for _, tag := range tags {
		if strings.Contains(tag.Name, "/") {
			continue
		}
		r.tags.index(tag)

		if r.opts.TagName == "" {
			continue
		}

		source, replant, ok := parseCorrespondence(r.opts.TagName, tag.Name)
		if !ok {
			continue
		}
		switch {
		case replant == (r.opts.Mode == ModeReplant):
			r.mapping.Seed(source, tag.Target)
			r.tags.tagged[tag.Target] = empty{}
		case !replant && r.opts.Mode == ModeReplant:
			r.tags.inbound[tag.Target] = append(r.tags.inbound[tag.Target], tag.Name)
		}
	}

	r.result.Memoized = r.mapping.Len()

	return nil
}
