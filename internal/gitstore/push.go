package gitstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const pushRemoteName = "splitter"

var ErrRejected = errors.New("rejected")

// IsRemote reports whether destination is a URL served by a transport other
// than the local file system.
func IsRemote(destination string) bool {
	ep, err := transport.NewEndpoint(destination)
	if err != nil {
		return false
	}
	return ep.Protocol != "file"
}

// PushRefs implements [splitter.Store]. Remote destinations go through the
// go-git transports; local repositories receive the objects directly.
func (s *Store) PushRefs(ctx context.Context, destination string, refspecs []string) error {
	specs := make([]config.RefSpec, 0, len(refspecs))
	for _, r := range refspecs {
		spec := config.RefSpec(r)
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("invalid refspec %q: %w", r, err)
		}
		specs = append(specs, spec)
	}

	if IsRemote(destination) {
		return s.pushRemote(ctx, destination, specs)
	}
	return s.pushLocal(ctx, destination, specs)
}

func (s *Store) pushRemote(ctx context.Context, url string, specs []config.RefSpec) error {
	remote := git.NewRemote(s.repo.Storer, &config.RemoteConfig{
		Name: pushRemoteName,
		URLs: []string{url},
	})

	err := remote.PushContext(ctx, &git.PushOptions{
		RemoteName: pushRemoteName,
		RefSpecs:   specs,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push to %s failed: %w", url, err)
	}
	return nil
}

func (s *Store) pushLocal(ctx context.Context, destination string, specs []config.RefSpec) error {
	path := destination
	if ep, err := transport.NewEndpoint(destination); err == nil {
		path = ep.Path
	}

	dst, err := openLocal(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	for _, spec := range specs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.pushLocalRef(dst, spec); err != nil {
			return fmt.Errorf("push %s to %s: %w", spec, destination, err)
		}
	}
	return nil
}

// openLocal opens a repository on disk, using the .git directory when the
// path holds a worktree.
func openLocal(path string) (*git.Repository, error) {
	fs := osfs.New(path)

	var worktree billy.Filesystem
	dot := fs
	if fi, err := fs.Stat(git.GitDirName); err == nil && fi.IsDir() {
		worktree = fs
		if dot, err = fs.Chroot(git.GitDirName); err != nil {
			return nil, err
		}
	}

	st := filesystem.NewStorage(dot, cache.NewObjectLRUDefault())
	return git.Open(st, worktree)
}

func (s *Store) pushLocalRef(dst *git.Repository, spec config.RefSpec) error {
	src := spec.Src()
	var target plumbing.Hash
	if plumbing.IsHash(src) {
		target = plumbing.NewHash(src)
	} else {
		ref, err := s.repo.Reference(plumbing.ReferenceName(src), true)
		if err != nil {
			return fmt.Errorf("cannot resolve %s: %w", src, err)
		}
		target = ref.Hash()
	}

	if err := copyCommits(s.repo.Storer, dst.Storer, target); err != nil {
		return fmt.Errorf("failed to copy objects: %w", err)
	}

	name := spec.Dst(plumbing.ReferenceName(src))
	if old, err := dst.Reference(name, true); err == nil && old.Hash() != target && !spec.IsForceUpdate() {
		switch {
		case name.IsTag():
			return fmt.Errorf("%w: tag %s already exists", ErrRejected, name.Short())
		case name.IsBranch():
			ff, err := isFastForward(dst.Storer, old.Hash(), target)
			if err != nil {
				return fmt.Errorf("failed to compare %s with %s: %w", old.Hash(), target, err)
			}
			if !ff {
				return fmt.Errorf("%w: non-fast-forward update of %s", ErrRejected, name.Short())
			}
		}
	}

	return dst.Storer.SetReference(plumbing.NewHashReference(name, target))
}
