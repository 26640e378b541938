package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nota struct {
	ID    string `json:"id"`
	Testo string `json:"testo"`
	Anno  int    `json:"anno"`
}

func openTemp(t *testing.T, password string) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(context.Background(), path, password)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	db, _ := openTemp(t, "")
	coll := NewCollection[nota](db, CollAttivita)

	require.NoError(t, coll.Upsert(ctx, "a", nota{ID: "a", Testo: "uno", Anno: 2023}))
	require.NoError(t, coll.Upsert(ctx, "b", nota{ID: "b", Testo: "due", Anno: 2024}))

	got, err := coll.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "uno", got.Testo)

	require.NoError(t, coll.Upsert(ctx, "a", nota{ID: "a", Testo: "uno bis", Anno: 2023}))
	got, err = coll.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "uno bis", got.Testo)

	all, err := coll.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	recent, err := coll.Find(ctx, func(n nota) bool { return n.Anno == 2024 })
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].ID)

	deleted, err := coll.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = coll.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollection_ReplaceWhere(t *testing.T) {
	ctx := context.Background()
	db, _ := openTemp(t, "")
	coll := NewCollection[nota](db, CollBilanci)

	require.NoError(t, coll.Upsert(ctx, "x1", nota{ID: "x1", Anno: 1}))
	require.NoError(t, coll.Upsert(ctx, "x2", nota{ID: "x2", Anno: 1}))
	require.NoError(t, coll.Upsert(ctx, "y1", nota{ID: "y1", Anno: 2}))

	removed, err := coll.ReplaceWhere(ctx, func(n nota) bool { return n.Anno == 1 }, []Entry[nota]{
		{ID: "x3", Doc: nota{ID: "x3", Anno: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	ones, err := coll.Find(ctx, func(n nota) bool { return n.Anno == 1 })
	require.NoError(t, err)
	require.Len(t, ones, 1)
	assert.Equal(t, "x3", ones[0].ID)

	removed, err = coll.DeleteWhere(ctx, func(n nota) bool { return n.Anno == 2 })
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestDropAll(t *testing.T) {
	ctx := context.Background()
	db, _ := openTemp(t, "")
	coll := NewCollection[nota](db, CollUtenti)
	require.NoError(t, coll.Upsert(ctx, "u", nota{ID: "u"}))

	require.NoError(t, db.DropAll(ctx))

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEncryption_Rekey(t *testing.T) {
	ctx := context.Background()
	db, path := openTemp(t, "")
	coll := NewCollection[nota](db, CollCircolari)
	require.NoError(t, coll.Upsert(ctx, "c", nota{ID: "c", Testo: "riservato"}))

	require.NoError(t, db.Rekey(ctx, "segreta"))
	assert.True(t, db.Encrypted())

	got, err := coll.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "riservato", got.Testo)
	require.NoError(t, db.Close())

	_, err = Open(ctx, path, "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = Open(ctx, path, "sbagliata")
	assert.ErrorIs(t, err, ErrWrongPassword)

	reopened, err := Open(ctx, path, "segreta")
	require.NoError(t, err)
	defer reopened.Close()

	got, err = NewCollection[nota](reopened, CollCircolari).Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "riservato", got.Testo)

	require.NoError(t, reopened.Rekey(ctx, ""))
	assert.False(t, reopened.Encrypted())
	got, err = NewCollection[nota](reopened, CollCircolari).Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "riservato", got.Testo)
}

func TestOpen_PasswordEncryptsExistingDocuments(t *testing.T) {
	ctx := context.Background()
	db, path := openTemp(t, "")
	require.NoError(t, NewCollection[nota](db, CollClienti).Upsert(ctx, "k", nota{ID: "k", Testo: "ok"}))
	require.NoError(t, db.Close())

	enc, err := Open(ctx, path, "pw")
	require.NoError(t, err)
	defer enc.Close()

	got, err := NewCollection[nota](enc, CollClienti).Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Testo)
}

func TestRekey_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	db, path := openTemp(t, "prima")
	coll := NewCollection[nota](db, CollAttivita)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				if err := coll.Upsert(ctx, id, nota{ID: id, Anno: 2024}); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	passwords := []string{"seconda", "", "terza", "finale"}
	for _, pw := range passwords {
		require.NoError(t, db.Rekey(ctx, pw))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	// Every document must decode with the last key.
	reopened, err := Open(ctx, path, "finale")
	require.NoError(t, err)
	defer reopened.Close()
	all, err := NewCollection[nota](reopened, CollAttivita).All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 100)
}
