package splitter

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

const correspondenceMarker = "-x-"

// SplitTagName names the tag recording that source was split into the
// commit the tag points at.
func SplitTagName(tagName string, source plumbing.Hash) string {
	return tagName + correspondenceMarker + source.String()
}

// ReplantTagName names the tag recording that source was replanted into the
// commit the tag points at.
func ReplantTagName(tagName string, source plumbing.Hash) string {
	return tagName + correspondenceMarker + "-" + source.String()
}

// parseCorrespondence recognizes "<tagName>-x-<id>" (split) and
// "<tagName>-x--<id>" (replant).
func parseCorrespondence(tagName, tag string) (source plumbing.Hash, replant bool, ok bool) {
	rest, found := strings.CutPrefix(tag, tagName+correspondenceMarker)
	if !found {
		return plumbing.ZeroHash, false, false
	}
	if id, found := strings.CutPrefix(rest, "-"); found {
		h, ok := decodeHash(id)
		return h, true, ok
	}
	h, ok := decodeHash(rest)
	return h, false, ok
}

// tagManager writes correspondence tags and collects what has to be pushed.
type tagManager struct {
	store   Store
	mode    Mode
	tagName string

	// derived commits tagged during this run
	tagged HashSet
	// all tags, by the commit they point at
	byCommit map[plumbing.Hash][]string
	// split correspondence tags on the commits being replanted
	inbound map[plumbing.Hash][]string

	written    []string
	writtenSet map[string]empty

	staged     map[string]plumbing.Hash
	stagedList []string
}

func newTagManager(store Store, mode Mode, tagName string) *tagManager {
	return &tagManager{
		store:      store,
		mode:       mode,
		tagName:    tagName,
		tagged:     make(HashSet),
		byCommit:   make(map[plumbing.Hash][]string),
		inbound:    make(map[plumbing.Hash][]string),
		writtenSet: make(map[string]empty),
		staged:     make(map[string]plumbing.Hash),
	}
}

func (tm *tagManager) index(ref Ref) {
	tm.byCommit[ref.Target] = append(tm.byCommit[ref.Target], ref.Name)
}

// record tags derived as the result of source. Tags are (re)written the
// first time derived is seen in this run, and again whenever some parents of
// source could not be mapped: the mapping was partial and a later run may
// complete it.
func (tm *tagManager) record(ctx context.Context, source, derived plumbing.Hash, parents, mapped int) error {
	if tm.tagName == "" {
		return nil
	}
	if _, done := tm.tagged[derived]; done && parents == mapped {
		return nil
	}

	var names []string
	switch tm.mode {
	case ModeReplant:
		for _, t := range tm.inbound[source] {
			names = append(names, t+"-"+source.String())
		}
		names = append(names, ReplantTagName(tm.tagName, source))
	default:
		names = append(names, SplitTagName(tm.tagName, source))
	}

	for _, name := range names {
		if err := tm.store.WriteTag(ctx, name, derived); err != nil {
			return storeError("tag commit as "+name, source, err)
		}
		logger.Debug("tagged", "commit", derived, "tag", name)
		if _, found := tm.writtenSet[name]; !found {
			tm.writtenSet[name] = empty{}
			tm.written = append(tm.written, name)
		}
	}
	tm.tagged[derived] = empty{}

	return nil
}

// stage moves every user tag of source over to derived for publishing.
// Correspondence tags are bookkeeping and stay where they are.
func (tm *tagManager) stage(source, derived plumbing.Hash) {
	for _, name := range tm.byCommit[source] {
		if tm.tagName != "" && strings.HasPrefix(name, tm.tagName+correspondenceMarker) {
			continue
		}
		if _, found := tm.staged[name]; !found {
			tm.stagedList = append(tm.stagedList, name)
		}
		tm.staged[name] = derived
	}
}

// refspecs lists what has to be pushed besides the branch: every tag written
// in this run, forced since they are rewritten in place, then the staged
// user tags.
func (tm *tagManager) refspecs() []string {
	result := make([]string, 0, len(tm.written)+len(tm.stagedList))
	for _, name := range tm.written {
		ref := plumbing.NewTagReferenceName(name).String()
		result = append(result, "+"+ref+":"+ref)
	}
	for _, name := range tm.stagedList {
		result = append(result, tm.staged[name].String()+":"+plumbing.NewTagReferenceName(name).String())
	}
	return result
}
