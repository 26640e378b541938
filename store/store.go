// Package store is the embedded document database: named collections of JSON
// documents kept in a single SQLite file, optionally encrypted at rest.
package store

import (
	"context"
	"crypto/cipher"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// Known collection names. DropAll removes exactly these.
const (
	CollBanche         = "banche"
	CollBilanci        = "bilanci_contabili"
	CollTemplate       = "bilanci_template"
	CollAssociazioni   = "associazioni_mastrino"
	CollUtenti         = "utenti"
	CollAudit          = "audit_log"
	CollLicenze        = "licenze"
	CollClienti        = "clienti"
	CollProfessionisti = "professionisti"
	CollAttivita       = "attivita"
	CollCircolari      = "circolari"
)

// Collections lists every collection the application knows about.
var Collections = []string{
	CollBanche,
	CollBilanci,
	CollTemplate,
	CollAssociazioni,
	CollUtenti,
	CollAudit,
	CollLicenze,
	CollClienti,
	CollProfessionisti,
	CollAttivita,
	CollCircolari,
}

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrWrongPassword is returned when the database is encrypted with a different password.
	ErrWrongPassword = errors.New("wrong database password")
	// ErrPasswordRequired is returned when opening an encrypted database without a password.
	ErrPasswordRequired = errors.New("database is encrypted: password required")
)

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const metaDDL = `CREATE TABLE IF NOT EXISTS _meta (key TEXT PRIMARY KEY, value BLOB NOT NULL)`

// DB holds the SQLite handle and the document cipher.
type DB struct {
	sql  *sql.DB
	path string
	log  zerolog.Logger

	// keyMu guards aead for the whole of each read or write, so documents
	// are never encoded with a key that Rekey has already replaced.
	keyMu sync.RWMutex
	aead  cipher.AEAD

	mu      sync.Mutex
	ensured map[string]bool
}

// Open opens (creating if needed) the database file at path. A non-empty
// password enables document encryption; it must match the one the file was
// encrypted with.
func Open(ctx context.Context, path, password string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers, which SQLite requires anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, metaDDL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	db := &DB{
		sql:     conn,
		path:    path,
		log:     logger.WithComponent("store"),
		ensured: make(map[string]bool),
	}

	aead, err := db.unlock(ctx, password)
	if err != nil {
		conn.Close()
		return nil, err
	}
	db.aead = aead

	for _, name := range Collections {
		if err := db.ensure(ctx, name); err != nil {
			conn.Close()
			return nil, err
		}
	}

	db.log.Debug().Str("path", path).Bool("encrypted", aead != nil).Msg("Database opened")
	return db, nil
}

// Close closes the underlying connection
func (db *DB) Close() error {
	return db.sql.Close()
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

// Encrypted reports whether documents are written encrypted.
func (db *DB) Encrypted() bool {
	db.keyMu.RLock()
	defer db.keyMu.RUnlock()
	return db.aead != nil
}

func (db *DB) ensure(ctx context.Context, name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.ensured[name] {
		return nil
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		id TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`, name)
	if _, err := db.sql.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	db.ensured[name] = true
	return nil
}

// DropAll drops every known collection. The next access recreates them empty.
func (db *DB) DropAll(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, name := range Collections {
		if _, err := db.sql.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, name)); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", name, err)
		}
		delete(db.ensured, name)
		db.log.Info().Str("collection", name).Msg("Collection dropped")
	}
	return nil
}
