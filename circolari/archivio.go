// Package circolari archives the firm's circular letters as PDF files and
// makes their text searchable.
package circolari

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNonTrovata = errors.New("circular not found")

type Circolare struct {
	ID        string    `json:"id"`
	Titolo    string    `json:"titolo"`
	Numero    int       `json:"numero,omitempty"`
	Anno      int       `json:"anno"`
	Data      time.Time `json:"data"`
	File      string    `json:"file"`
	Testo     string    `json:"testo,omitempty"`
	Pagine    int       `json:"pagine"`
	CreatedAt time.Time `json:"created_at"`
}

// Estrattore turns a PDF into plain text and a page count.
type Estrattore func(io.Reader) (string, int, error)

// Archivio stores circular metadata in the database and the PDFs in dir.
type Archivio struct {
	coll   *store.Collection[Circolare]
	dir    string
	estrai Estrattore
	now    func() time.Time
	log    zerolog.Logger
}

func NewArchivio(db *store.DB, dir string) *Archivio {
	return &Archivio{
		coll:   store.NewCollection[Circolare](db, store.CollCircolari),
		dir:    dir,
		estrai: EstraiTesto,
		now:    time.Now,
		log:    logger.WithComponent("circolari"),
	}
}

// SetEstrattore replaces the PDF text extractor.
func (a *Archivio) SetEstrattore(fn Estrattore) {
	a.estrai = fn
}

func (a *Archivio) Dir() string {
	return a.dir
}

// Archivia copies the PDF into the archive as <id>.pdf and indexes its text.
// A PDF whose text cannot be extracted is still archived, without text.
// Anno defaults to the year of Data, and Data to today.
func (a *Archivio) Archivia(ctx context.Context, c Circolare, src io.Reader) (*Circolare, error) {
	const op = "Archivia"
	c.Titolo = strings.TrimSpace(c.Titolo)
	if c.Titolo == "" {
		return nil, fmt.Errorf("%s: %w", op, common.NewValidationError("titolo", c.Titolo, "must not be empty"))
	}
	if c.Data.IsZero() {
		c.Data = common.Giorno(a.now())
	}
	if c.Anno == 0 {
		c.Anno = c.Data.Year()
	}

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read PDF: %w", op, err)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: failed to create archive directory: %w", op, err)
	}

	c.ID = uuid.NewString()
	c.File = c.ID + ".pdf"
	c.CreatedAt = a.now()
	dest := filepath.Join(a.dir, c.File)
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return nil, fmt.Errorf("%s: failed to copy PDF: %w", op, err)
	}

	testo, pagine, err := a.estrai(bytes.NewReader(content))
	if err != nil {
		a.log.Warn().Err(err).Str("titolo", c.Titolo).Msg("Failed to extract PDF text, archiving without text")
	} else {
		c.Testo, c.Pagine = testo, pagine
	}

	if err := a.coll.Upsert(ctx, c.ID, c); err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("%s: failed to save circular: %w", op, err)
	}
	a.log.Info().Str("circolare_id", c.ID).Str("titolo", c.Titolo).Int("pagine", c.Pagine).Msg("Circular archived")
	return &c, nil
}

// ArchiviaFile archives the PDF at path.
func (a *Archivio) ArchiviaFile(ctx context.Context, c Circolare, path string) (*Circolare, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if c.Titolo == "" {
		c.Titolo = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return a.Archivia(ctx, c, f)
}

func (a *Archivio) Get(ctx context.Context, id string) (*Circolare, error) {
	c, err := a.coll.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNonTrovata
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Percorso is the absolute path of the archived PDF.
func (a *Archivio) Percorso(c Circolare) string {
	return filepath.Join(a.dir, c.File)
}

// Cerca returns circulars whose title or text contains testo, ignoring case.
// A zero anno matches every year. Results are newest first.
func (a *Archivio) Cerca(ctx context.Context, testo string, anno int) ([]Circolare, error) {
	q := strings.ToLower(strings.TrimSpace(testo))
	out, err := a.coll.Find(ctx, func(c Circolare) bool {
		if anno != 0 && c.Anno != anno {
			return false
		}
		return q == "" ||
			strings.Contains(strings.ToLower(c.Titolo), q) ||
			strings.Contains(strings.ToLower(c.Testo), q)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Data.Equal(out[j].Data) {
			return out[i].Data.After(out[j].Data)
		}
		return out[i].Numero > out[j].Numero
	})
	return out, nil
}

// Elenco lists every circular, newest first.
func (a *Archivio) Elenco(ctx context.Context) ([]Circolare, error) {
	return a.Cerca(ctx, "", 0)
}

// Elimina removes the record and its PDF. A PDF already missing is not an error.
func (a *Archivio) Elimina(ctx context.Context, id string) error {
	c, err := a.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := a.coll.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(a.Percorso(*c)); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn().Err(err).Str("file", c.File).Msg("Failed to remove archived PDF")
	}
	a.log.Info().Str("circolare_id", id).Msg("Circular deleted")
	return nil
}
