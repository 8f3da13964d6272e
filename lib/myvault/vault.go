package myvault

import (
	"context"

	"github.com/runningcoach/backend/lib/mystore"
)

type storeBackedVault[T any] struct {
	store mystore.Store[T]
}

// New returns a vault persisted in the configured store backend.
func New[T any](c context.Context) (VaultReadWriter[T], func(), error) {
	store, cleanup, err := mystore.New[T](c)
	if err != nil {
		return nil, nil, err
	}

	return &storeBackedVault[T]{
		store: store,
	}, cleanup, nil
}

func (v *storeBackedVault[T]) Get(c context.Context, uid string) (T, bool, error) {
	return v.store.Get(c, uid)
}

func (v *storeBackedVault[T]) Put(c context.Context, uid string, value T) error {
	return v.store.Put(c, uid, value)
}
