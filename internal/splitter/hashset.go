package splitter

import (
	"encoding/hex"

	"github.com/go-git/go-git/v5/plumbing"
)

type empty = struct{}

// HashSet is a set of [plumbing.Hash].
type HashSet = map[plumbing.Hash]empty

// NewHashSet creates a new set holding hashes.
func NewHashSet(hashes ...plumbing.Hash) HashSet {
	result := make(HashSet, len(hashes))
	for _, h := range hashes {
		result[h] = empty{}
	}
	return result
}

// decodeHash decodes a full hex object id. Unlike [plumbing.NewHash] it
// rejects anything that is not exactly one id.
func decodeHash(s string) (plumbing.Hash, bool) {
	if len(s) != hex.EncodedLen(len(plumbing.ZeroHash)) {
		return plumbing.ZeroHash, false
	}
	v, err := hex.DecodeString(s)
	if err != nil {
		return plumbing.ZeroHash, false
	}

	var h plumbing.Hash
	copy(h[:], v)

	return h, true
}
