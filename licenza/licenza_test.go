package licenza

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "TEST-SECRET"

func TestGeneraChiave(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		chiave, guid := GeneraChiave("banche", testSecret)
		assert.Regexp(t, regexp.MustCompile(`^BANCHE-[A-Za-z0-9]{16}$`), chiave)
		assert.True(t, VerificaFormato(chiave, "BANCHE"))
		assert.Equal(t, "BANCHE-"+hashChiave(guid, testSecret), chiave)
		assert.False(t, seen[chiave], "duplicate key")
		seen[chiave] = true
	}
}

func TestHashChiave_Deterministic(t *testing.T) {
	guid := "0f8fad5b-d9cb-469f-a165-70867728950e"
	a := hashChiave(guid, testSecret)
	assert.Equal(t, a, hashChiave(guid, testSecret))
	assert.NotEqual(t, a, hashChiave(guid, "other"))
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "=")
}

func TestVerificaFormato(t *testing.T) {
	assert.True(t, VerificaFormato("BILANCIO-abcdEFGH12345678", "bilancio"))
	assert.False(t, VerificaFormato("BILANCIO-abcdEFGH12345678", "BANCHE"))
	assert.False(t, VerificaFormato("BILANCIO-abcdEFGH1234567", "BILANCIO"))
	assert.False(t, VerificaFormato("BILANCIO-abcdEFGH1234567+", "BILANCIO"))
	assert.False(t, VerificaFormato("", "BILANCIO"))
}

func TestMaschera(t *testing.T) {
	assert.Equal(t, "TODO-************5678", Maschera("TODO-abcdEFGH12345678"))
	assert.Equal(t, "nodash", Maschera("nodash"))
}

func TestFileLocale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "licenze.json")
	f := NewFileLocale(path)

	chiavi, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, chiavi)

	require.NoError(t, f.Set("banche", "BANCHE-abcdEFGH12345678"))
	require.NoError(t, f.Set("TODO", "TODO-abcdEFGH12345678"))

	chiave, ok, err := f.Get("BANCHE")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "BANCHE-abcdEFGH12345678", chiave)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "BANCHE-abcdEFGH12345678"), "keys are stored encoded")

	require.NoError(t, f.Remove("banche"))
	_, ok, err = f.Get("BANCHE")
	require.NoError(t, err)
	assert.False(t, ok)
}

type registroGuasto struct{ Registry }

func (registroGuasto) Trova(context.Context, string) (*Licenza, error) {
	return nil, errors.New("database is locked")
}

func newTestService(t *testing.T) (*Service, *StoreRegistry, *FileLocale) {
	t.Helper()
	logger.Discard()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "lic.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := NewStoreRegistry(db)
	locale := NewFileLocale(filepath.Join(t.TempDir(), "licenze.json"))
	return NewService(reg, locale, testSecret, []string{"BANCHE", "BILANCIO", "TODO"}), reg, locale
}

func TestService_Ciclo(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	assert.ErrorIs(t, svc.Valida(ctx, "BANCHE"), ErrLicenzaAssente)

	_, err := svc.Emetti(ctx, "SCONOSCIUTO", "Studio")
	assert.ErrorIs(t, err, ErrModuloSconosciuto)

	lic, err := svc.Emetti(ctx, "banche", "Studio Rossi")
	require.NoError(t, err)
	assert.Equal(t, "BANCHE", lic.Modulo)

	assert.ErrorIs(t, svc.Attiva(ctx, "BILANCIO", lic.Chiave), ErrLicenzaNonValida, "key of another module")
	assert.ErrorIs(t, svc.Attiva(ctx, "BANCHE", "BANCHE-0000000000000000"), ErrLicenzaNonValida, "never issued")

	require.NoError(t, svc.Attiva(ctx, "BANCHE", lic.Chiave))
	require.NoError(t, svc.Valida(ctx, "BANCHE"))
	assert.Equal(t, []string{"BANCHE"}, svc.ModuliAttivi(ctx))

	stato := svc.Stato(ctx)
	require.Len(t, stato, 3)
	assert.True(t, stato[0].Valida)
	assert.Equal(t, Maschera(lic.Chiave), stato[0].Chiave)
	assert.False(t, stato[1].Valida)

	require.NoError(t, svc.Revoca(ctx, lic.Chiave))
	assert.ErrorIs(t, svc.Valida(ctx, "BANCHE"), ErrLicenzaNonValida)

	require.NoError(t, svc.Disattiva("BANCHE"))
	assert.ErrorIs(t, svc.Valida(ctx, "BANCHE"), ErrLicenzaAssente)
}

func TestService_RegistroNonRaggiungibile(t *testing.T) {
	ctx := context.Background()
	svc, reg, locale := newTestService(t)

	lic, err := svc.Emetti(ctx, "TODO", "Studio")
	require.NoError(t, err)
	require.NoError(t, svc.Attiva(ctx, "TODO", lic.Chiave))

	guasto := NewService(registroGuasto{reg}, locale, testSecret, []string{"TODO"})

	err = guasto.Valida(ctx, "TODO")
	assert.ErrorIs(t, err, ErrRegistro, "a cached key is not enough without the registry")
	assert.Empty(t, guasto.ModuliAttivi(ctx))
}
