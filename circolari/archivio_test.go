package circolari

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchivio(t *testing.T) *Archivio {
	t.Helper()
	logger.Discard()
	dir := t.TempDir()
	db, err := store.Open(context.Background(), filepath.Join(dir, "circolari.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := NewArchivio(db, filepath.Join(dir, "circolari"))
	// Fake extractor: the "PDF" body is the text itself, one page per form feed.
	a.SetEstrattore(func(r io.Reader) (string, int, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", 0, err
		}
		if strings.HasPrefix(string(b), "broken") {
			return "", 0, errors.New("malformed PDF")
		}
		return string(b), strings.Count(string(b), "\f") + 1, nil
	})
	return a
}

func TestArchivia(t *testing.T) {
	ctx := context.Background()
	a := newTestArchivio(t)

	c, err := a.Archivia(ctx, Circolare{
		Titolo: "Legge di bilancio",
		Numero: 3,
		Data:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}, strings.NewReader("Novità IRPEF\fDetrazioni"))
	require.NoError(t, err)
	assert.Equal(t, 2024, c.Anno)
	assert.Equal(t, 2, c.Pagine)
	assert.Equal(t, c.ID+".pdf", c.File)

	content, err := os.ReadFile(a.Percorso(*c))
	require.NoError(t, err)
	assert.Equal(t, "Novità IRPEF\fDetrazioni", string(content))

	rotta, err := a.Archivia(ctx, Circolare{Titolo: "Scansione"}, strings.NewReader("broken"))
	require.NoError(t, err, "unreadable text still archives the file")
	assert.Empty(t, rotta.Testo)
	assert.Zero(t, rotta.Pagine)
	assert.FileExists(t, a.Percorso(*rotta))

	var verr *common.ValidationError
	_, err = a.Archivia(ctx, Circolare{}, strings.NewReader("x"))
	assert.ErrorAs(t, err, &verr)
}

func TestArchiviaFile(t *testing.T) {
	ctx := context.Background()
	a := newTestArchivio(t)

	src := filepath.Join(t.TempDir(), "Circolare 5-2024.pdf")
	require.NoError(t, os.WriteFile(src, []byte("scadenze di giugno"), 0o644))

	c, err := a.ArchiviaFile(ctx, Circolare{}, src)
	require.NoError(t, err)
	assert.Equal(t, "Circolare 5-2024", c.Titolo)
	assert.FileExists(t, src, "the source is copied, not moved")

	_, err = a.ArchiviaFile(ctx, Circolare{}, filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestCerca_Elimina(t *testing.T) {
	ctx := context.Background()
	a := newTestArchivio(t)

	mk := func(titolo, testo string, data time.Time) *Circolare {
		t.Helper()
		c, err := a.Archivia(ctx, Circolare{Titolo: titolo, Data: data}, strings.NewReader(testo))
		require.NoError(t, err)
		return c
	}
	vecchia := mk("IMU acconto", "versamento entro il 16 giugno", time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC))
	mk("Bonus edilizi", "detrazione IMU non prevista", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	mk("Dichiarativi", "modello redditi", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	imu, err := a.Cerca(ctx, "imu", 0)
	require.NoError(t, err)
	require.Len(t, imu, 2)
	assert.Equal(t, "Bonus edilizi", imu[0].Titolo, "newest first, matches text too")

	imu2023, err := a.Cerca(ctx, "IMU", 2023)
	require.NoError(t, err)
	require.Len(t, imu2023, 1)
	assert.Equal(t, vecchia.ID, imu2023[0].ID)

	tutte, err := a.Elenco(ctx)
	require.NoError(t, err)
	assert.Len(t, tutte, 3)

	require.NoError(t, a.Elimina(ctx, vecchia.ID))
	assert.NoFileExists(t, a.Percorso(*vecchia))
	assert.ErrorIs(t, a.Elimina(ctx, vecchia.ID), ErrNonTrovata)
	_, err = a.Get(ctx, vecchia.ID)
	assert.ErrorIs(t, err, ErrNonTrovata)
}

func TestEstraiTesto_InvalidPDF(t *testing.T) {
	logger.Discard()
	_, _, err := EstraiTesto(strings.NewReader("not a pdf"))
	assert.Error(t, err)
}
