package gitstore

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/memory"
)

// overlay is the object view of a workspace. New objects land in the
// in-memory layer; lookups that miss it are answered by the repository
// underneath, which is never written through the overlay.
type overlay struct {
	*memory.Storage
	base storer.EncodedObjectStorer
}

var _ storer.EncodedObjectStorer = (*overlay)(nil)

func newOverlay(base storer.EncodedObjectStorer) *overlay {
	return &overlay{Storage: memory.NewStorage(), base: base}
}

// reset drops the in-memory layer.
func (o *overlay) reset() {
	o.Storage = memory.NewStorage()
}

func (o *overlay) EncodedObject(t plumbing.ObjectType, h plumbing.Hash) (plumbing.EncodedObject, error) {
	if obj, err := o.Storage.EncodedObject(t, h); err == nil {
		return obj, nil
	}
	return o.base.EncodedObject(t, h)
}

func (o *overlay) HasEncodedObject(h plumbing.Hash) error {
	if o.Storage.HasEncodedObject(h) == nil {
		return nil
	}
	return o.base.HasEncodedObject(h)
}

func (o *overlay) EncodedObjectSize(h plumbing.Hash) (int64, error) {
	if size, err := o.Storage.EncodedObjectSize(h); err == nil {
		return size, nil
	}
	return o.base.EncodedObjectSize(h)
}
