package utenti

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is what a logged-in user carries around: the user, their
// permissions and the licensed modules validated at login. It lives from
// Login to Logout and is passed explicitly to whoever needs it.
type Session struct {
	ID     string    `json:"id"`
	Utente Utente    `json:"utente"`
	Moduli []string  `json:"moduli"`
	Inizio time.Time `json:"inizio"`

	mu     sync.Mutex
	chiusa bool
}

func nuovaSessione(u Utente, moduli []string, now time.Time) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Utente: u.Pubblico(),
		Moduli: moduli,
		Inizio: now,
	}
}

// SessioneSistema is used by local maintenance commands that act with full
// rights and no logged-in user.
func SessioneSistema() *Session {
	return &Session{
		ID:     "system",
		Utente: Utente{Username: "system", Permessi: slices.Clone(TuttiPermessi), Attivo: true},
		Inizio: time.Now(),
	}
}

// Attiva reports whether the session has not been closed.
func (s *Session) Attiva() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.chiusa
}

func (s *Session) chiudi() {
	s.mu.Lock()
	s.chiusa = true
	s.mu.Unlock()
}

// Puo reports whether the session is open and grants permesso.
func (s *Session) Puo(permesso string) bool {
	return s.Attiva() && s.Utente.HaPermesso(permesso)
}

// HaModulo reports whether modulo was licensed when the session started.
func (s *Session) HaModulo(modulo string) bool {
	return s != nil && slices.Contains(s.Moduli, modulo)
}

func (s *Session) Username() string {
	if s == nil {
		return ""
	}
	return s.Utente.Username
}
