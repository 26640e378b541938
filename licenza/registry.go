package licenza

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aqlanhadi/gestionale/store"
)

var ErrLicenzaNonTrovata = errors.New("license not in registry")

// Licenza is a key as recorded in the central registry.
type Licenza struct {
	Chiave       string     `json:"chiave"`
	Modulo       string     `json:"modulo"`
	GUID         string     `json:"guid"`
	Intestatario string     `json:"intestatario"`
	EmessaIl     time.Time  `json:"emessa_il"`
	RevocataIl   *time.Time `json:"revocata_il,omitempty"`
}

func (l Licenza) Attiva() bool {
	return l.RevocataIl == nil
}

// Registry is the central record of issued keys.
type Registry interface {
	Registra(ctx context.Context, l Licenza) error
	Trova(ctx context.Context, chiave string) (*Licenza, error)
	Revoca(ctx context.Context, chiave string, quando time.Time) error
}

// StoreRegistry keeps the registry in the embedded store, keyed by the key itself.
type StoreRegistry struct {
	coll *store.Collection[Licenza]
}

func NewStoreRegistry(db *store.DB) *StoreRegistry {
	return &StoreRegistry{coll: store.NewCollection[Licenza](db, store.CollLicenze)}
}

func (r *StoreRegistry) Registra(ctx context.Context, l Licenza) error {
	return r.coll.Upsert(ctx, l.Chiave, l)
}

func (r *StoreRegistry) Trova(ctx context.Context, chiave string) (*Licenza, error) {
	l, err := r.coll.Get(ctx, chiave)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLicenzaNonTrovata
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *StoreRegistry) Revoca(ctx context.Context, chiave string, quando time.Time) error {
	l, err := r.Trova(ctx, chiave)
	if err != nil {
		return err
	}
	l.RevocataIl = &quando
	if err := r.coll.Upsert(ctx, chiave, *l); err != nil {
		return fmt.Errorf("failed to revoke license: %w", err)
	}
	return nil
}

// Elenco lists every key in the registry.
func (r *StoreRegistry) Elenco(ctx context.Context) ([]Licenza, error) {
	return r.coll.All(ctx)
}
