// Package anagrafica keeps the registry of the firm's clients and professionals.
package anagrafica

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNonTrovato             = errors.New("record not found")
	ErrCodiceFiscaleDoppio    = errors.New("fiscal code already registered")
	ErrCodiceFiscaleNonValido = errors.New("invalid fiscal code")
)

// A fiscal code is either the 16-character personal code or an 11-digit
// company number.
var (
	cfPersona = regexp.MustCompile(`^[A-Z]{6}[0-9LMNPQRSTUV]{2}[A-Z][0-9LMNPQRSTUV]{2}[A-Z][0-9LMNPQRSTUV]{3}[A-Z]$`)
	cfSocieta = regexp.MustCompile(`^[0-9]{11}$`)
)

// NormalizzaCodiceFiscale uppercases and strips spaces, then checks the format.
func NormalizzaCodiceFiscale(cf string) (string, error) {
	cf = strings.ToUpper(strings.Join(strings.Fields(cf), ""))
	if cf == "" {
		return "", nil
	}
	if !cfPersona.MatchString(cf) && !cfSocieta.MatchString(cf) {
		return "", fmt.Errorf("%w: %s", ErrCodiceFiscaleNonValido, cf)
	}
	return cf, nil
}

type Cliente struct {
	ID               string    `json:"id"`
	RagioneSociale   string    `json:"ragione_sociale"`
	CodiceFiscale    string    `json:"codice_fiscale,omitempty"`
	PartitaIVA       string    `json:"partita_iva,omitempty"`
	Email            string    `json:"email,omitempty"`
	Telefono         string    `json:"telefono,omitempty"`
	Indirizzo        string    `json:"indirizzo,omitempty"`
	ProfessionistaID string    `json:"professionista_id,omitempty"`
	Note             string    `json:"note,omitempty"`
	Attivo           bool      `json:"attivo"`
	CreatedAt        time.Time `json:"created_at"`
}

type Professionista struct {
	ID            string    `json:"id"`
	Nome          string    `json:"nome"`
	Cognome       string    `json:"cognome"`
	CodiceFiscale string    `json:"codice_fiscale,omitempty"`
	Email         string    `json:"email,omitempty"`
	Ruolo         string    `json:"ruolo,omitempty"`
	Attivo        bool      `json:"attivo"`
	CreatedAt     time.Time `json:"created_at"`
}

func (p Professionista) NomeCompleto() string {
	return strings.TrimSpace(p.Nome + " " + p.Cognome)
}

// Service manages clients and professionals.
type Service struct {
	clienti        *store.Collection[Cliente]
	professionisti *store.Collection[Professionista]
	now            func() time.Time
	log            zerolog.Logger
}

func NewService(db *store.DB) *Service {
	return &Service{
		clienti:        store.NewCollection[Cliente](db, store.CollClienti),
		professionisti: store.NewCollection[Professionista](db, store.CollProfessionisti),
		now:            time.Now,
		log:            logger.WithComponent("anagrafica"),
	}
}

// SalvaCliente creates (empty ID) or updates a client.
func (s *Service) SalvaCliente(ctx context.Context, c Cliente) (*Cliente, error) {
	const op = "SalvaCliente"
	c.RagioneSociale = strings.TrimSpace(c.RagioneSociale)
	if c.RagioneSociale == "" {
		return nil, fmt.Errorf("%s: %w", op, common.NewValidationError("ragione_sociale", c.RagioneSociale, "must not be empty"))
	}
	cf, err := NormalizzaCodiceFiscale(c.CodiceFiscale)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.CodiceFiscale = cf

	if c.ProfessionistaID != "" {
		if _, err := s.Professionista(ctx, c.ProfessionistaID); err != nil {
			return nil, fmt.Errorf("%s: professional %s: %w", op, c.ProfessionistaID, err)
		}
	}

	if cf != "" {
		_, dup, err := s.clienti.FindOne(ctx, func(x Cliente) bool { return x.CodiceFiscale == cf && x.ID != c.ID })
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if dup {
			return nil, fmt.Errorf("%s: %w: %s", op, ErrCodiceFiscaleDoppio, cf)
		}
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
		c.CreatedAt = s.now()
		c.Attivo = true
	} else if _, err := s.Cliente(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.clienti.Upsert(ctx, c.ID, c); err != nil {
		return nil, fmt.Errorf("%s: failed to save client: %w", op, err)
	}
	s.log.Info().Str("cliente_id", c.ID).Str("ragione_sociale", c.RagioneSociale).Msg("Client saved")
	return &c, nil
}

func (s *Service) Cliente(ctx context.Context, id string) (*Cliente, error) {
	c, err := s.clienti.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNonTrovato
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Clienti lists clients by name, filtered by a case-insensitive search over
// name, fiscal code and VAT number.
func (s *Service) Clienti(ctx context.Context, cerca string) ([]Cliente, error) {
	q := strings.ToLower(strings.TrimSpace(cerca))
	clienti, err := s.clienti.Find(ctx, func(c Cliente) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(c.RagioneSociale), q) ||
			strings.Contains(strings.ToLower(c.CodiceFiscale), q) ||
			strings.Contains(strings.ToLower(c.PartitaIVA), q)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(clienti, func(i, j int) bool { return clienti[i].RagioneSociale < clienti[j].RagioneSociale })
	return clienti, nil
}

func (s *Service) EliminaCliente(ctx context.Context, id string) error {
	ok, err := s.clienti.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNonTrovato
	}
	s.log.Info().Str("cliente_id", id).Msg("Client deleted")
	return nil
}

// SalvaProfessionista creates (empty ID) or updates a professional.
func (s *Service) SalvaProfessionista(ctx context.Context, p Professionista) (*Professionista, error) {
	const op = "SalvaProfessionista"
	p.Nome, p.Cognome = strings.TrimSpace(p.Nome), strings.TrimSpace(p.Cognome)
	if p.Cognome == "" {
		return nil, fmt.Errorf("%s: %w", op, common.NewValidationError("cognome", p.Cognome, "must not be empty"))
	}
	cf, err := NormalizzaCodiceFiscale(p.CodiceFiscale)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.CodiceFiscale = cf
	if cf != "" {
		_, dup, err := s.professionisti.FindOne(ctx, func(x Professionista) bool { return x.CodiceFiscale == cf && x.ID != p.ID })
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if dup {
			return nil, fmt.Errorf("%s: %w: %s", op, ErrCodiceFiscaleDoppio, cf)
		}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = s.now()
		p.Attivo = true
	} else if _, err := s.Professionista(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.professionisti.Upsert(ctx, p.ID, p); err != nil {
		return nil, fmt.Errorf("%s: failed to save professional: %w", op, err)
	}
	s.log.Info().Str("professionista_id", p.ID).Str("nome", p.NomeCompleto()).Msg("Professional saved")
	return &p, nil
}

func (s *Service) Professionista(ctx context.Context, id string) (*Professionista, error) {
	p, err := s.professionisti.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNonTrovato
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Professionisti lists professionals by surname and name.
func (s *Service) Professionisti(ctx context.Context) ([]Professionista, error) {
	out, err := s.professionisti.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cognome != out[j].Cognome {
			return out[i].Cognome < out[j].Cognome
		}
		return out[i].Nome < out[j].Nome
	})
	return out, nil
}

// EliminaProfessionista refuses to delete a professional still assigned to clients.
func (s *Service) EliminaProfessionista(ctx context.Context, id string) error {
	assegnati, err := s.clienti.Find(ctx, func(c Cliente) bool { return c.ProfessionistaID == id })
	if err != nil {
		return err
	}
	if len(assegnati) > 0 {
		return common.NewValidationError("professionista_id", id, fmt.Sprintf("still assigned to %d clients", len(assegnati)))
	}
	ok, err := s.professionisti.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNonTrovato
	}
	s.log.Info().Str("professionista_id", id).Msg("Professional deleted")
	return nil
}
