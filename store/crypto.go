package store

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	metaSalt  = "salt"
	metaCheck = "check"
	checkText = "gestionale"
)

func deriveKey(password string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(password), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func seal(aead cipher.AEAD, plain []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func open(aead cipher.AEAD, data []byte) ([]byte, error) {
	if len(data) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := data[:aead.NonceSize()], data[aead.NonceSize():]
	return aead.Open(nil, nonce, body, nil)
}

func (db *DB) meta(ctx context.Context, q querier, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM _meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return value, err
}

// unlock derives the document cipher for password and checks it against the
// verifier stored in _meta. A plain database with an empty password yields nil.
func (db *DB) unlock(ctx context.Context, password string) (cipher.AEAD, error) {
	check, err := db.meta(ctx, db.sql, metaCheck)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	if password == "" {
		if check != nil {
			return nil, ErrPasswordRequired
		}
		return nil, nil
	}

	if check == nil {
		tx, err := db.sql.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		var plain int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name != '_meta'`).Scan(&plain); err != nil {
			return nil, err
		}
		aead, err := writeVerifier(ctx, tx, password)
		if err != nil {
			return nil, err
		}
		// Existing plain documents get encrypted on first unlock.
		if plain > 0 {
			if err := db.recode(ctx, tx, nil, aead); err != nil {
				return nil, err
			}
		}
		return aead, tx.Commit()
	}

	salt, err := db.meta(ctx, db.sql, metaSalt)
	if err != nil || salt == nil {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}
	aead, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	plain, err := open(aead, check)
	if err != nil || string(plain) != checkText {
		return nil, ErrWrongPassword
	}
	return aead, nil
}

func writeVerifier(ctx context.Context, tx *sql.Tx, password string) (cipher.AEAD, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	aead, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	check, err := seal(aead, []byte(checkText))
	if err != nil {
		return nil, err
	}
	for key, value := range map[string][]byte{metaSalt: salt, metaCheck: check} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO _meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return nil, fmt.Errorf("failed to write metadata: %w", err)
		}
	}
	return aead, nil
}

func (db *DB) encode(aead cipher.AEAD, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if aead == nil {
		return data, nil
	}
	return seal(aead, data)
}

func (db *DB) decode(aead cipher.AEAD, data []byte, v any) error {
	if aead != nil {
		plain, err := open(aead, data)
		if err != nil {
			return fmt.Errorf("failed to decrypt document: %w", err)
		}
		data = plain
	}
	return json.Unmarshal(data, v)
}

// recode rewrites every document of every known collection from one cipher
// to another inside tx.
func (db *DB) recode(ctx context.Context, tx *sql.Tx, from, to cipher.AEAD) error {
	for _, name := range Collections {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			continue
		}

		rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id, data FROM %q`, name))
		if err != nil {
			return fmt.Errorf("failed to read collection %s: %w", name, err)
		}
		recoded := make(map[string][]byte)
		for rows.Next() {
			var id string
			var data []byte
			if err := rows.Scan(&id, &data); err != nil {
				rows.Close()
				return err
			}
			var doc json.RawMessage
			if err := db.decode(from, data, &doc); err != nil {
				rows.Close()
				return fmt.Errorf("collection %s id %s: %w", name, id, err)
			}
			out, err := db.encode(to, doc)
			if err != nil {
				rows.Close()
				return err
			}
			recoded[id] = out
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for id, data := range recoded {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %q SET data = ? WHERE id = ?`, name), data, id); err != nil {
				return fmt.Errorf("failed to rewrite %s/%s: %w", name, id, err)
			}
		}
	}
	return nil
}

// Rekey re-encrypts every document with newPassword. An empty newPassword
// removes encryption.
func (db *DB) Rekey(ctx context.Context, newPassword string) error {
	db.keyMu.Lock()
	defer db.keyMu.Unlock()

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next cipher.AEAD
	if newPassword != "" {
		next, err = writeVerifier(ctx, tx, newPassword)
		if err != nil {
			return err
		}
	} else if _, err := tx.ExecContext(ctx, `DELETE FROM _meta WHERE key IN (?, ?)`, metaSalt, metaCheck); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	if err := db.recode(ctx, tx, db.aead, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rekey: %w", err)
	}

	db.aead = next
	db.log.Info().Bool("encrypted", next != nil).Msg("Database rekeyed")
	return nil
}
