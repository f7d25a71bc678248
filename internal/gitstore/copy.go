package gitstore

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// isFastForward reports whether oldHash is reachable from newHash.
func isFastForward(s storer.EncodedObjectStorer, oldHash, newHash plumbing.Hash) (bool, error) {
	if oldHash == newHash {
		return true, nil
	}

	cNew, err := object.GetCommit(s, newHash)
	if err != nil {
		return false, err
	}
	cOld, err := object.GetCommit(s, oldHash)
	if err != nil {
		return false, err
	}

	bases, err := cNew.MergeBase(cOld)
	if err != nil {
		return false, err
	}

	for _, b := range bases {
		if b.Hash == oldHash {
			return true, nil
		}
	}

	return false, nil
}

// copyCommits copies hash and its whole history from src into dst, stopping
// at commits dst already has.
func copyCommits(src, dst storer.EncodedObjectStorer, hash plumbing.Hash) error {
	stack := []plumbing.Hash{hash}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if hasObject(dst, h) {
			continue
		}

		obj, err := src.EncodedObject(plumbing.CommitObject, h)
		if err != nil {
			return err
		}
		commit, err := object.DecodeCommit(src, obj)
		if err != nil {
			return err
		}

		// tree first so dst never holds a commit without its content
		if err := copyTree(src, dst, commit.TreeHash); err != nil {
			return err
		}
		if _, err := dst.SetEncodedObject(obj); err != nil {
			return err
		}

		stack = append(stack, commit.ParentHashes...)
	}
	return nil
}

func copyTree(src, dst storer.EncodedObjectStorer, hash plumbing.Hash) error {
	if hasObject(dst, hash) {
		return nil
	}

	obj, err := src.EncodedObject(plumbing.TreeObject, hash)
	if err != nil {
		return err
	}
	tree, err := object.DecodeTree(src, obj)
	if err != nil {
		return err
	}

	for _, entry := range tree.Entries {
		switch {
		case entry.Mode == filemode.Submodule:
			continue
		case entry.Mode == filemode.Dir:
			err = copyTree(src, dst, entry.Hash)
		default:
			err = copyBlob(src, dst, entry.Hash)
		}
		if err != nil {
			return err
		}
	}

	_, err = dst.SetEncodedObject(obj)
	return err
}

func copyBlob(src, dst storer.EncodedObjectStorer, hash plumbing.Hash) error {
	if hasObject(dst, hash) {
		return nil
	}
	obj, err := src.EncodedObject(plumbing.BlobObject, hash)
	if err != nil {
		return err
	}
	_, err = dst.SetEncodedObject(obj)
	return err
}

func hasObject(s storer.EncodedObjectStorer, hash plumbing.Hash) bool {
	return s.HasEncodedObject(hash) == nil
}
