package splitter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// Error kinds. Every error returned by a run wraps exactly one of them.
var (
	ErrValidation     = errors.New("invalid options")
	ErrRepoState      = errors.New("unsuitable repository")
	ErrStoreIO        = errors.New("object store failure")
	ErrLogParse       = errors.New("malformed log record")
	ErrCommitCreation = errors.New("could not create commit")
	ErrPublish        = errors.New("could not publish")
)

var (
	ErrInvalidRange = fmt.Errorf("%w: incorrect revision specification", ErrValidation)
	ErrNoPrefix     = fmt.Errorf("%w: no prefix path provided", ErrValidation)
	ErrBareRepo     = fmt.Errorf("%w: replant needs a repository with a worktree", ErrRepoState)
)

// Error describes a failed step of a run: which operation, on which source
// commit (if any), and what kind of failure it was.
type Error struct {
	Kind   error
	Op     string
	Commit plumbing.Hash
	Err    error
}

func newError(kind error, op string, commit plumbing.Hash, err error) *Error {
	return &Error{
		Kind:   kind,
		Op:     op,
		Commit: commit,
		Err:    err,
	}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if !e.Commit.IsZero() {
		sb.WriteString(" ")
		sb.WriteString(e.Commit.String())
	}
	if e.Err == nil || !errors.Is(e.Err, e.Kind) {
		sb.WriteString(": ")
		sb.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// storeError classifies an error coming out of a [Store]. Errors that already
// carry a kind pass through untouched, everything else is an I/O failure.
func storeError(op string, commit plumbing.Hash, err error) error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, ErrValidation):
		return newError(ErrValidation, op, commit, err)
	case errors.Is(err, ErrRepoState):
		return newError(ErrRepoState, op, commit, err)
	default:
		return newError(ErrStoreIO, op, commit, err)
	}
}
