// Package attivita tracks the firm's TODO tasks.
package attivita

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNonTrovata = errors.New("task not found")

const (
	StatoAperta     = "aperta"
	StatoCompletata = "completata"
)

const (
	PrioritaBassa = iota + 1
	PrioritaNormale
	PrioritaAlta
)

type Attivita struct {
	ID           string     `json:"id"`
	Titolo       string     `json:"titolo"`
	Descrizione  string     `json:"descrizione,omitempty"`
	ClienteID    string     `json:"cliente_id,omitempty"`
	Assegnatario string     `json:"assegnatario,omitempty"`
	Scadenza     *time.Time `json:"scadenza,omitempty"`
	Priorita     int        `json:"priorita"`
	Stato        string     `json:"stato"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletataIl *time.Time `json:"completata_il,omitempty"`
}

// Scaduta reports whether an open task is past its due date at now.
func (a Attivita) Scaduta(now time.Time) bool {
	return a.Stato == StatoAperta && a.Scadenza != nil && a.Scadenza.Before(now)
}

// Filtro selects tasks for Elenco. Zero fields match everything.
type Filtro struct {
	Assegnatario string
	ClienteID    string
	SoloAperte   bool
}

func (f Filtro) match(a Attivita) bool {
	if f.Assegnatario != "" && !strings.EqualFold(a.Assegnatario, f.Assegnatario) {
		return false
	}
	if f.ClienteID != "" && a.ClienteID != f.ClienteID {
		return false
	}
	return !f.SoloAperte || a.Stato == StatoAperta
}

type Service struct {
	coll *store.Collection[Attivita]
	now  func() time.Time
	log  zerolog.Logger
}

func NewService(db *store.DB) *Service {
	return &Service{
		coll: store.NewCollection[Attivita](db, store.CollAttivita),
		now:  time.Now,
		log:  logger.WithComponent("attivita"),
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Crea stores a new open task. Priority defaults to normal.
func (s *Service) Crea(ctx context.Context, a Attivita) (*Attivita, error) {
	const op = "Crea"
	a.Titolo = strings.TrimSpace(a.Titolo)
	if a.Titolo == "" {
		return nil, fmt.Errorf("%s: %w", op, common.NewValidationError("titolo", a.Titolo, "must not be empty"))
	}
	if a.Priorita == 0 {
		a.Priorita = PrioritaNormale
	}
	if a.Priorita < PrioritaBassa || a.Priorita > PrioritaAlta {
		return nil, fmt.Errorf("%s: %w", op, common.NewValidationError("priorita", a.Priorita, "must be between 1 and 3"))
	}
	a.ID = uuid.NewString()
	a.Assegnatario = strings.ToLower(strings.TrimSpace(a.Assegnatario))
	a.Stato = StatoAperta
	a.CreatedAt = s.now()
	a.CompletataIl = nil
	if err := s.coll.Upsert(ctx, a.ID, a); err != nil {
		return nil, fmt.Errorf("%s: failed to save task: %w", op, err)
	}
	s.log.Info().Str("attivita_id", a.ID).Str("titolo", a.Titolo).Str("assegnatario", a.Assegnatario).Msg("Task created")
	return &a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Attivita, error) {
	a, err := s.coll.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNonTrovata
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) aggiorna(ctx context.Context, id string, fn func(*Attivita)) (*Attivita, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(a)
	if err := s.coll.Upsert(ctx, a.ID, *a); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return a, nil
}

// Assegna hands a task to username. An empty username unassigns it.
func (s *Service) Assegna(ctx context.Context, id, username string) (*Attivita, error) {
	a, err := s.aggiorna(ctx, id, func(a *Attivita) {
		a.Assegnatario = strings.ToLower(strings.TrimSpace(username))
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("attivita_id", id).Str("assegnatario", a.Assegnatario).Msg("Task assigned")
	return a, nil
}

// Completa closes a task. Completing a closed task keeps the first completion time.
func (s *Service) Completa(ctx context.Context, id string) (*Attivita, error) {
	a, err := s.aggiorna(ctx, id, func(a *Attivita) {
		if a.Stato == StatoCompletata {
			return
		}
		now := s.now()
		a.Stato = StatoCompletata
		a.CompletataIl = &now
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("attivita_id", id).Msg("Task completed")
	return a, nil
}

func (s *Service) Riapri(ctx context.Context, id string) (*Attivita, error) {
	a, err := s.aggiorna(ctx, id, func(a *Attivita) {
		a.Stato = StatoAperta
		a.CompletataIl = nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("attivita_id", id).Msg("Task reopened")
	return a, nil
}

func (s *Service) Elimina(ctx context.Context, id string) error {
	ok, err := s.coll.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNonTrovata
	}
	s.log.Info().Str("attivita_id", id).Msg("Task deleted")
	return nil
}

// Elenco lists matching tasks: open before completed, then by due date
// (undated last), then by priority descending.
func (s *Service) Elenco(ctx context.Context, f Filtro) ([]Attivita, error) {
	out, err := s.coll.Find(ctx, f.match)
	if err != nil {
		return nil, err
	}
	ordina(out)
	return out, nil
}

// Scadute lists open tasks whose due date is before now.
func (s *Service) Scadute(ctx context.Context, assegnatario string) ([]Attivita, error) {
	now := s.now()
	f := Filtro{Assegnatario: assegnatario, SoloAperte: true}
	out, err := s.coll.Find(ctx, func(a Attivita) bool { return f.match(a) && a.Scaduta(now) })
	if err != nil {
		return nil, err
	}
	ordina(out)
	return out, nil
}

func ordina(out []Attivita) {
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Stato != b.Stato {
			return a.Stato == StatoAperta
		}
		switch {
		case a.Scadenza == nil && b.Scadenza != nil:
			return false
		case a.Scadenza != nil && b.Scadenza == nil:
			return true
		case a.Scadenza != nil && !a.Scadenza.Equal(*b.Scadenza):
			return a.Scadenza.Before(*b.Scadenza)
		}
		if a.Priorita != b.Priorita {
			return a.Priorita > b.Priorita
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
