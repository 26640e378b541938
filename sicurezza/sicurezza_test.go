package sicurezza

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type doc struct {
	Valore string `json:"valore"`
}

func TestAbilitaDisabilita(t *testing.T) {
	ctx := context.Background()
	logger.Discard()
	dir := t.TempDir()
	path := filepath.Join(dir, "gestionale.db")

	db, err := store.Open(ctx, path, "")
	require.NoError(t, err)
	coll := store.NewCollection[doc](db, store.CollClienti)
	require.NoError(t, coll.Upsert(ctx, "1", doc{Valore: "riservato"}))

	m := NewManager(db, path+".pwd", "")
	m.SetHashCost(bcrypt.MinCost)
	assert.False(t, m.Abilitata())
	assert.False(t, m.Verifica("qualsiasi"))

	assert.ErrorIs(t, m.Abilita(ctx, ""), ErrPasswordNonValida)
	require.NoError(t, m.Abilita(ctx, "s3greta"))
	assert.True(t, m.Abilitata())
	assert.True(t, m.Verifica("s3greta"))
	assert.False(t, m.Verifica("altra"))
	assert.ErrorIs(t, m.Abilita(ctx, "s3greta"), ErrGiaAbilitata)
	require.NoError(t, db.Close())

	_, err = store.Open(ctx, path, "")
	assert.ErrorIs(t, err, store.ErrPasswordRequired)

	db, err = store.Open(ctx, path, "s3greta")
	require.NoError(t, err)
	got, err := store.NewCollection[doc](db, store.CollClienti).Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "riservato", got.Valore)

	m = NewManager(db, path+".pwd", "")
	m.SetHashCost(bcrypt.MinCost)
	assert.ErrorIs(t, m.Disabilita(ctx, "altra"), ErrPasswordErrata)
	require.NoError(t, m.Disabilita(ctx, "s3greta"))
	assert.False(t, m.Abilitata())
	require.NoError(t, db.Close())

	db, err = store.Open(ctx, path, "")
	require.NoError(t, err)
	defer db.Close()
	assert.False(t, db.Encrypted())
}

func TestVerifica_MasterPassword(t *testing.T) {
	ctx := context.Background()
	logger.Discard()
	path := filepath.Join(t.TempDir(), "gestionale.db")

	db, err := store.Open(ctx, path, "")
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(db, path+".pwd", "chiave-maestra")
	m.SetHashCost(bcrypt.MinCost)
	require.NoError(t, m.Abilita(ctx, "reale"))

	assert.True(t, m.Verifica("reale"))
	assert.True(t, m.Verifica("chiave-maestra"))
	assert.False(t, m.Verifica(""))

	require.NoError(t, m.CambiaPassword(ctx, "chiave-maestra", "nuova"))
	assert.True(t, m.Verifica("nuova"))
	assert.False(t, m.Verifica("reale"))

	require.NoError(t, m.Disabilita(ctx, "chiave-maestra"))
}
