// Package gitstore implements the splitter object store on top of go-git.
package gitstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/operasoftware/git-splitter/internal/splitter"
)

var logger = slog.Default()

// SetLogger replaces the logger used by the package.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

var (
	ErrNotRepository = fmt.Errorf("%w: not a git repository", splitter.ErrValidation)
	ErrNotDirectory  = fmt.Errorf("%w: not a directory", splitter.ErrValidation)
)

// Store is a [splitter.Store] backed by a go-git repository.
type Store struct {
	repo *git.Repository
	bare bool
}

var _ splitter.Store = (*Store)(nil)

// New wraps an already opened repository.
func New(repo *git.Repository) *Store {
	_, err := repo.Worktree()
	return &Store{
		repo: repo,
		bare: errors.Is(err, git.ErrIsBareRepository),
	}
}

// Open opens the repository containing path, bare or not.
func Open(path string) (*Store, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotRepository)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return New(repo), nil
}

func (s *Store) IsBare() bool {
	return s.bare
}

// DefaultRevision picks the primary branch: master, then main, then HEAD.
func (s *Store) DefaultRevision() string {
	for _, name := range []string{"master", "main"} {
		if _, err := s.repo.Reference(plumbing.NewBranchReferenceName(name), true); err == nil {
			return name
		}
	}
	return "HEAD"
}

// CheckDestination makes sure a push destination can receive objects. Remote
// URLs are left alone. A local path must hold a repository; a missing path is
// initialized as a bare repository.
func CheckDestination(destination string) error {
	if IsRemote(destination) {
		return nil
	}

	fi, err := os.Stat(destination)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("initializing destination", "path", destination)
		if _, err := git.PlainInit(destination, true); err != nil {
			return fmt.Errorf("could not initialize git repository %s: %w", destination, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to check %s: %w", destination, err)
	case !fi.IsDir():
		return fmt.Errorf("%s: %w", destination, ErrNotDirectory)
	}

	if _, err := git.PlainOpen(destination); err != nil {
		return fmt.Errorf("%s: %w", destination, ErrNotRepository)
	}

	return nil
}
