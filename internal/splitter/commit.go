package splitter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// logRecordFields is the minimum number of lines of a log record: six
// identity lines and the subject.
const logRecordFields = 7

// LogRecord is the metadata copied from a source commit.
type LogRecord struct {
	Author    object.Signature
	Committer object.Signature
	// Lines holds the subject followed by the rest of the message.
	Lines []string
}

// ParseLogRecord parses the lines returned by [Store.ReadLogRecord].
func ParseLogRecord(lines []string) (*LogRecord, error) {
	if len(lines) < logRecordFields {
		return nil, fmt.Errorf("%w: got %d fields, want at least %d", ErrLogParse, len(lines), logRecordFields)
	}

	authorDate, err := ParseRawDate(lines[2])
	if err != nil {
		return nil, fmt.Errorf("%w: author date: %w", ErrLogParse, err)
	}
	committerDate, err := ParseRawDate(lines[5])
	if err != nil {
		return nil, fmt.Errorf("%w: committer date: %w", ErrLogParse, err)
	}

	return &LogRecord{
		Author:    object.Signature{Name: lines[0], Email: lines[1], When: authorDate},
		Committer: object.Signature{Name: lines[3], Email: lines[4], When: committerDate},
		Lines:     lines[6:],
	}, nil
}

// Message rebuilds the commit message with an optional prefix.
func (l *LogRecord) Message(annotate string) string {
	return annotate + strings.Join(l.Lines, "\n") + "\n"
}

// FormatRawDate formats t the way git stores dates: seconds and zone offset.
func FormatRawDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Unix(), t.Format("-0700"))
}

// ParseRawDate parses "<unix seconds> <+hhmm>".
func ParseRawDate(s string) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}

	sec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", fields[0], err)
	}

	tz := fields[1]
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return time.Time{}, fmt.Errorf("invalid zone %q", tz)
	}
	hh, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid zone %q: %w", tz, err)
	}
	mm, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid zone %q: %w", tz, err)
	}
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}

	return time.Unix(sec, 0).In(time.FixedZone("", offset)), nil
}

// commitSynthesizer writes derived commits, or reuses a parent when the
// derived tree did not change.
type commitSynthesizer struct {
	store    Store
	annotate string
	dedup    bool

	// tree of each derived commit seen so far
	trees map[plumbing.Hash]plumbing.Hash
}

func newCommitSynthesizer(store Store, annotate string, dedup bool) *commitSynthesizer {
	return &commitSynthesizer{
		store:    store,
		annotate: annotate,
		dedup:    dedup,
		trees:    make(map[plumbing.Hash]plumbing.Hash),
	}
}

func (cs *commitSynthesizer) treeOf(ctx context.Context, commit plumbing.Hash) (plumbing.Hash, error) {
	if t, found := cs.trees[commit]; found {
		return t, nil
	}
	t, err := cs.store.TreeOf(ctx, commit)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	cs.trees[commit] = t
	return t, nil
}

// synthesize returns the derived commit for source. reused is true when an
// existing parent was returned instead of a new commit.
func (cs *commitSynthesizer) synthesize(
	ctx context.Context,
	source plumbing.Hash,
	tree plumbing.Hash,
	parents []plumbing.Hash,
) (derived plumbing.Hash, reused bool, err error) {
	if cs.dedup {
		// the last parent with a matching tree wins
		identical := plumbing.ZeroHash
		for _, p := range parents {
			ptree, err := cs.treeOf(ctx, p)
			if err != nil {
				return plumbing.ZeroHash, false, storeError("read parent tree", p, err)
			}
			if ptree == tree {
				identical = p
			}
		}
		if !identical.IsZero() {
			return identical, true, nil
		}
	}

	lines, err := cs.store.ReadLogRecord(ctx, source)
	if err != nil {
		return plumbing.ZeroHash, false, storeError("read log record", source, err)
	}
	record, err := ParseLogRecord(lines)
	if err != nil {
		return plumbing.ZeroHash, false, newError(ErrLogParse, "parse log record", source, err)
	}

	derived, err = cs.store.WriteCommit(ctx, &CommitRequest{
		Tree:      tree,
		Parents:   parents,
		Author:    record.Author,
		Committer: record.Committer,
		Message:   record.Message(cs.annotate),
	})
	if err != nil {
		return plumbing.ZeroHash, false, newError(ErrCommitCreation, "copy commit", source, err)
	}
	cs.trees[derived] = tree

	return derived, false, nil
}
