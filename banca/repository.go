package banca

import (
	"context"
	"errors"

	"github.com/aqlanhadi/gestionale/store"
)

// Repository persists banks together with their movements.
type Repository interface {
	Get(ctx context.Context, id string) (*Banca, error)
	All(ctx context.Context) ([]Banca, error)
	Save(ctx context.Context, b *Banca) error
	Delete(ctx context.Context, id string) (bool, error)
}

// StoreRepository keeps each bank as one document in the embedded store.
type StoreRepository struct {
	coll *store.Collection[Banca]
}

func NewStoreRepository(db *store.DB) *StoreRepository {
	return &StoreRepository{coll: store.NewCollection[Banca](db, store.CollBanche)}
}

func (r *StoreRepository) Get(ctx context.Context, id string) (*Banca, error) {
	b, err := r.coll.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBancaNonTrovata
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *StoreRepository) All(ctx context.Context) ([]Banca, error) {
	return r.coll.All(ctx)
}

func (r *StoreRepository) Save(ctx context.Context, b *Banca) error {
	return r.coll.Upsert(ctx, b.ID, *b)
}

func (r *StoreRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.coll.Delete(ctx, id)
}
