package bilancio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AssociazioneService maintains the account-to-template mappings.
type AssociazioneService struct {
	archivio *Archivio
	now      func() time.Time
	log      zerolog.Logger
}

func NewAssociazioneService(a *Archivio) *AssociazioneService {
	return &AssociazioneService{archivio: a, now: time.Now, log: logger.WithComponent("associazioni")}
}

// Crea opens an empty mapping for the period. Only one header may exist per
// client and month.
func (s *AssociazioneService) Crea(ctx context.Context, p Periodo) (*AssociazioneMastrino, error) {
	const op = "Crea"
	if err := p.Valida(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err := s.archivio.associazione(ctx, p)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: %s: %w", op, p, ErrAssociazioneDuplicata)
	case !errors.Is(err, ErrAssociazioneNonTrovata):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	assoc := AssociazioneMastrino{
		ID:        uuid.NewString(),
		ClienteID: p.ClienteID,
		Mese:      p.Mese,
		Anno:      p.Anno,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.archivio.associazioni.Upsert(ctx, assoc.ID, assoc); err != nil {
		return nil, fmt.Errorf("%s: failed to save account mapping: %w", op, err)
	}
	s.log.Info().Str("periodo", p.String()).Str("id", assoc.ID).Msg("Account mapping created")
	return &assoc, nil
}

// Get returns the mapping of the period or ErrAssociazioneNonTrovata.
func (s *AssociazioneService) Get(ctx context.Context, p Periodo) (*AssociazioneMastrino, error) {
	return s.archivio.associazione(ctx, p)
}

// Associa links a ledger account of the current trial balance to a template
// line, replacing any previous link of the same account.
func (s *AssociazioneService) Associa(ctx context.Context, p Periodo, codice, descrizione, templateID string) error {
	const op = "Associa"
	assoc, err := s.archivio.associazione(ctx, p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	voce, err := s.archivio.template.Get(ctx, templateID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !p.contiene(voce.ClienteID, voce.Mese, voce.Anno)) {
		return fmt.Errorf("%s: template line %s: %w", op, templateID, ErrTemplateNonTrovato)
	}
	if err != nil {
		return fmt.Errorf("%s: failed to load template line: %w", op, err)
	}
	if voce.Formula != "" {
		return fmt.Errorf("%s: template line %s is computed by formula", op, voce.Codice)
	}

	righe, err := s.archivio.righePeriodo(ctx, p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	k := chiaveMastrino{codice, descrizione}
	importi := importiCorrenti(righe)
	importo, ok := importi[k]
	if !ok {
		return fmt.Errorf("%s: %s %q: %w", op, codice, descrizione, ErrMastrinoNonTrovato)
	}

	dettagli := assoc.Dettagli[:0]
	for _, d := range assoc.Dettagli {
		if d.chiave() != k {
			dettagli = append(dettagli, d)
		}
	}
	assoc.Dettagli = append(dettagli, AssociazioneDettaglio{
		CodiceMastrino:      codice,
		DescrizioneMastrino: descrizione,
		TemplateID:          templateID,
		Importo:             importo,
	})
	if err := s.salva(ctx, assoc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug().Str("periodo", p.String()).Str("mastrino", codice).Str("template", voce.Codice).Msg("Account mapped")
	return nil
}

// Rimuovi unlinks a ledger account. It reports whether a link was removed.
func (s *AssociazioneService) Rimuovi(ctx context.Context, p Periodo, codice, descrizione string) (bool, error) {
	assoc, err := s.archivio.associazione(ctx, p)
	if err != nil {
		return false, err
	}
	k := chiaveMastrino{codice, descrizione}
	n := len(assoc.Dettagli)
	dettagli := assoc.Dettagli[:0]
	for _, d := range assoc.Dettagli {
		if d.chiave() != k {
			dettagli = append(dettagli, d)
		}
	}
	assoc.Dettagli = dettagli
	if len(dettagli) == n {
		return false, nil
	}
	if err := s.salva(ctx, assoc); err != nil {
		return false, err
	}
	return true, nil
}

// Elimina deletes the mapping of the period with all its links.
func (s *AssociazioneService) Elimina(ctx context.Context, p Periodo) error {
	assoc, err := s.archivio.associazione(ctx, p)
	if err != nil {
		return err
	}
	if _, err := s.archivio.associazioni.Delete(ctx, assoc.ID); err != nil {
		return fmt.Errorf("failed to delete account mapping: %w", err)
	}
	s.log.Info().Str("periodo", p.String()).Msg("Account mapping deleted")
	return nil
}

// MastriniNonAssociati lists the trial-balance rows of the period not yet
// linked to any template line.
func (s *AssociazioneService) MastriniNonAssociati(ctx context.Context, p Periodo) ([]BilancioContabile, error) {
	righe, err := s.archivio.righePeriodo(ctx, p)
	if err != nil {
		return nil, err
	}
	associati := make(map[chiaveMastrino]bool)
	assoc, err := s.archivio.associazione(ctx, p)
	switch {
	case err == nil:
		for _, d := range assoc.Dettagli {
			associati[d.chiave()] = true
		}
	case !errors.Is(err, ErrAssociazioneNonTrovata):
		return nil, err
	}

	var liberi []BilancioContabile
	for _, r := range righe {
		if !associati[r.chiave()] {
			liberi = append(liberi, r)
		}
	}
	return liberi, nil
}

func (s *AssociazioneService) salva(ctx context.Context, assoc *AssociazioneMastrino) error {
	assoc.NumeroAssociazioni = len(assoc.Dettagli)
	assoc.UpdatedAt = s.now()
	if err := s.archivio.associazioni.Upsert(ctx, assoc.ID, *assoc); err != nil {
		return fmt.Errorf("failed to save account mapping: %w", err)
	}
	return nil
}

// importiCorrenti sums the current trial balance by (code, description).
// The same account can appear in several description groups.
func importiCorrenti(righe []BilancioContabile) map[chiaveMastrino]decimal.Decimal {
	out := make(map[chiaveMastrino]decimal.Decimal, len(righe))
	for _, r := range righe {
		out[r.chiave()] = out[r.chiave()].Add(r.Importo)
	}
	return out
}
