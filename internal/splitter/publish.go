package splitter

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// MaxRefspecsPerPush bounds the refspecs of a single push, branch included.
const MaxRefspecsPerPush = 100

// batchRefspecs splits refs into pushes of at most size refspecs, each one
// starting with branch. There is always at least one batch.
func batchRefspecs(branch string, refs []string, size int) [][]string {
	per := size - 1
	if per < 1 {
		per = 1
	}

	batches := make([][]string, 0, len(refs)/per+1)
	for start := 0; ; start += per {
		end := min(start+per, len(refs))
		batch := make([]string, 0, end-start+1)
		batch = append(batch, branch)
		batch = append(batch, refs[start:end]...)
		batches = append(batches, batch)
		if end == len(refs) {
			break
		}
	}

	return batches
}

type publisher struct {
	store       Store
	branch      string
	destination string
}

// publish points the branch at head and pushes it, together with refs, to
// the destination. Batches already pushed stay pushed if a later one fails.
func (p *publisher) publish(ctx context.Context, head plumbing.Hash, refs []string) (int, error) {
	if err := p.store.UpdateBranch(ctx, p.branch, head); err != nil {
		return 0, newError(ErrPublish, fmt.Sprintf("create branch %s", p.branch), head, err)
	}
	logger.Info("branch updated", "branch", p.branch, "head", head)

	if p.destination == "" {
		return 0, nil
	}

	ref := plumbing.NewBranchReferenceName(p.branch).String()
	pushed := 0
	for i, batch := range batchRefspecs(ref+":"+ref, refs, MaxRefspecsPerPush) {
		select {
		case <-ctx.Done():
			return pushed, ctx.Err()
		default:
		}

		if err := p.store.PushRefs(ctx, p.destination, batch); err != nil {
			return pushed, newError(ErrPublish, fmt.Sprintf("push batch %d to %s", i, p.destination), plumbing.ZeroHash, err)
		}
		logger.Debug("pushed", "batch", i, "refspecs", len(batch), "destination", p.destination)
		pushed += len(batch)
	}

	return pushed, nil
}
