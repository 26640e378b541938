// Package sicurezza toggles encryption at rest of the document database.
// A password file next to the database holds a bcrypt hash of the password
// and its presence means encryption is in effect.
package sicurezza

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrGiaAbilitata      = errors.New("encryption already enabled")
	ErrNonAbilitata      = errors.New("encryption not enabled")
	ErrPasswordErrata    = errors.New("wrong encryption password")
	ErrPasswordNonValida = errors.New("encryption password must not be empty")
)

// Rekeyer re-encrypts the database with a new password, or removes
// encryption when the password is empty.
type Rekeyer interface {
	Rekey(ctx context.Context, newPassword string) error
}

// Manager coordinates the password file with the database key.
type Manager struct {
	db     Rekeyer
	file   string
	master string
	cost   int
	log    zerolog.Logger
}

// NewManager returns a manager for the password file at file. A non-empty
// master password is accepted by Verifica in place of the real one.
func NewManager(db Rekeyer, file, master string) *Manager {
	return &Manager{
		db:     db,
		file:   file,
		master: master,
		cost:   bcrypt.DefaultCost,
		log:    logger.WithComponent("sicurezza"),
	}
}

// SetHashCost changes the bcrypt cost for the password file.
func (m *Manager) SetHashCost(cost int) {
	m.cost = cost
}

// Abilitata reports whether the password file exists.
func (m *Manager) Abilitata() bool {
	_, err := os.Stat(m.file)
	return err == nil
}

// Verifica checks password against the stored hash. The master password,
// when configured, is accepted as well.
func (m *Manager) Verifica(password string) bool {
	if m.master != "" && subtle.ConstantTimeCompare([]byte(password), []byte(m.master)) == 1 {
		return true
	}
	hash, err := os.ReadFile(m.file)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(string(hash))), []byte(password)) == nil
}

// Abilita encrypts the database with password and writes the password file.
func (m *Manager) Abilita(ctx context.Context, password string) error {
	const op = "Abilita"
	if m.Abilitata() {
		return fmt.Errorf("%s: %w", op, ErrGiaAbilitata)
	}
	if password == "" {
		return fmt.Errorf("%s: %w", op, ErrPasswordNonValida)
	}
	if err := m.db.Rekey(ctx, password); err != nil {
		return fmt.Errorf("%s: failed to encrypt database: %w", op, err)
	}
	if err := m.scrivi(password); err != nil {
		// Undo the rekey so the file and the database stay in agreement
		if rerr := m.db.Rekey(ctx, ""); rerr != nil {
			m.log.Error().Err(rerr).Msg("Failed to roll back encryption")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info().Str("file", m.file).Msg("Database encryption enabled")
	return nil
}

// Disabilita decrypts the database and removes the password file.
func (m *Manager) Disabilita(ctx context.Context, password string) error {
	const op = "Disabilita"
	if !m.Abilitata() {
		return fmt.Errorf("%s: %w", op, ErrNonAbilitata)
	}
	if !m.Verifica(password) {
		return fmt.Errorf("%s: %w", op, ErrPasswordErrata)
	}
	if err := m.db.Rekey(ctx, ""); err != nil {
		return fmt.Errorf("%s: failed to decrypt database: %w", op, err)
	}
	if err := os.Remove(m.file); err != nil {
		return fmt.Errorf("%s: failed to remove password file: %w", op, err)
	}
	m.log.Info().Msg("Database encryption disabled")
	return nil
}

// CambiaPassword re-encrypts the database under nuova.
func (m *Manager) CambiaPassword(ctx context.Context, vecchia, nuova string) error {
	const op = "CambiaPassword"
	if !m.Abilitata() {
		return fmt.Errorf("%s: %w", op, ErrNonAbilitata)
	}
	if !m.Verifica(vecchia) {
		return fmt.Errorf("%s: %w", op, ErrPasswordErrata)
	}
	if nuova == "" {
		return fmt.Errorf("%s: %w", op, ErrPasswordNonValida)
	}
	if err := m.db.Rekey(ctx, nuova); err != nil {
		return fmt.Errorf("%s: failed to rekey database: %w", op, err)
	}
	if err := m.scrivi(nuova); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info().Msg("Database encryption password changed")
	return nil
}

func (m *Manager) scrivi(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := os.WriteFile(m.file, hash, 0o600); err != nil {
		return fmt.Errorf("failed to write password file: %w", err)
	}
	return nil
}
