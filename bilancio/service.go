package bilancio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RigaImport is one (code, description, amount) row read from a worksheet.
type RigaImport struct {
	Riga        int             `json:"riga"`
	Codice      string          `json:"codice"`
	Descrizione string          `json:"descrizione"`
	Importo     decimal.Decimal `json:"importo"`
}

// Service manages imported trial balances.
type Service struct {
	archivio *Archivio
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(a *Archivio) *Service {
	return &Service{archivio: a, now: time.Now, log: logger.WithComponent("bilancio")}
}

// Importa replaces the trial balance of one description group for the
// period with righe. The old rows go and the new ones land in a single
// transaction.
func (s *Service) Importa(ctx context.Context, p Periodo, descrizione string, righe []RigaImport) (int, error) {
	const op = "Importa"
	if err := p.Valida(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	descrizione = strings.TrimSpace(descrizione)

	now := s.now()
	docs := make([]store.Entry[BilancioContabile], 0, len(righe))
	for _, r := range righe {
		if strings.TrimSpace(r.Codice) == "" {
			continue
		}
		row := BilancioContabile{
			ID:                  uuid.NewString(),
			ClienteID:           p.ClienteID,
			Mese:                p.Mese,
			Anno:                p.Anno,
			DescrizioneBilancio: descrizione,
			CodiceMastrino:      strings.TrimSpace(r.Codice),
			DescrizioneMastrino: strings.TrimSpace(r.Descrizione),
			Importo:             r.Importo,
			ImportedAt:          now,
		}
		docs = append(docs, store.Entry[BilancioContabile]{ID: row.ID, Doc: row})
	}

	removed, err := s.archivio.righe.ReplaceWhere(ctx, func(r BilancioContabile) bool {
		return p.contiene(r.ClienteID, r.Mese, r.Anno) && r.DescrizioneBilancio == descrizione
	}, docs)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to replace trial balance: %w", op, err)
	}

	s.log.Info().
		Str("periodo", p.String()).
		Str("descrizione", descrizione).
		Int("removed", removed).
		Int("imported", len(docs)).
		Msg("Trial balance imported")
	return len(docs), nil
}

// Righe returns every trial-balance row of the period ordered by group and code.
func (s *Service) Righe(ctx context.Context, p Periodo) ([]BilancioContabile, error) {
	return s.archivio.righePeriodo(ctx, p)
}

// Gruppi lists the description groups imported for the period.
func (s *Service) Gruppi(ctx context.Context, p Periodo) ([]string, error) {
	righe, err := s.archivio.righePeriodo(ctx, p)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var gruppi []string
	for _, r := range righe {
		if !seen[r.DescrizioneBilancio] {
			seen[r.DescrizioneBilancio] = true
			gruppi = append(gruppi, r.DescrizioneBilancio)
		}
	}
	return gruppi, nil
}

// Elimina removes one description group of the period.
func (s *Service) Elimina(ctx context.Context, p Periodo, descrizione string) (int, error) {
	n, err := s.archivio.righe.DeleteWhere(ctx, func(r BilancioContabile) bool {
		return p.contiene(r.ClienteID, r.Mese, r.Anno) && r.DescrizioneBilancio == descrizione
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete trial balance: %w", err)
	}
	s.log.Info().Str("periodo", p.String()).Str("descrizione", descrizione).Int("removed", n).Msg("Trial balance deleted")
	return n, nil
}

func (a *Archivio) righePeriodo(ctx context.Context, p Periodo) ([]BilancioContabile, error) {
	righe, err := a.righe.Find(ctx, func(r BilancioContabile) bool {
		return p.contiene(r.ClienteID, r.Mese, r.Anno)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load trial balance: %w", err)
	}
	sort.SliceStable(righe, func(i, j int) bool {
		if righe[i].DescrizioneBilancio != righe[j].DescrizioneBilancio {
			return righe[i].DescrizioneBilancio < righe[j].DescrizioneBilancio
		}
		return righe[i].CodiceMastrino < righe[j].CodiceMastrino
	})
	return righe, nil
}

func (a *Archivio) templatePeriodo(ctx context.Context, p Periodo) ([]BilancioTemplate, error) {
	voci, err := a.template.Find(ctx, func(t BilancioTemplate) bool {
		return p.contiene(t.ClienteID, t.Mese, t.Anno)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	sort.SliceStable(voci, func(i, j int) bool {
		if voci[i].Ordine != voci[j].Ordine {
			return voci[i].Ordine < voci[j].Ordine
		}
		return voci[i].Codice < voci[j].Codice
	})
	return voci, nil
}

func (a *Archivio) associazione(ctx context.Context, p Periodo) (*AssociazioneMastrino, error) {
	assoc, ok, err := a.associazioni.FindOne(ctx, func(m AssociazioneMastrino) bool {
		return p.contiene(m.ClienteID, m.Mese, m.Anno)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load account mapping: %w", err)
	}
	if !ok {
		return nil, ErrAssociazioneNonTrovata
	}
	return &assoc, nil
}
