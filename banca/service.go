package banca

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrBancaNonTrovata is returned by mutations on a bank id that does not exist.
	ErrBancaNonTrovata = errors.New("bank not found")
	// ErrMovimentoNonTrovato is returned when an incasso or pagamento id is unknown.
	ErrMovimentoNonTrovato = errors.New("movement not found")
)

// Service applies the cash-flow rules to persisted banks. Read-side methods
// treat an unknown bank id as an empty bank and return zero values.
type Service struct {
	repo   Repository
	soglie Soglie
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(repo Repository, soglie Soglie) *Service {
	return &Service{
		repo:   repo,
		soglie: soglie,
		now:    time.Now,
		log:    logger.WithComponent("banca"),
	}
}

// SetClock replaces the time source used for interest and alerts.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// carica loads a bank, mapping "not found" to nil without error.
func (s *Service) carica(ctx context.Context, id string) (*Banca, error) {
	b, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrBancaNonTrovata) {
		s.log.Debug().Str("banca_id", id).Msg("Bank not found, using empty result")
		return nil, nil
	}
	return b, err
}

func valida(b *Banca) error {
	if strings.TrimSpace(b.Nome) == "" {
		return common.NewValidationError("nome", b.Nome, "must not be empty")
	}
	if b.FidoAccordato.IsNegative() {
		return common.NewValidationError("fido_accordato", b.FidoAccordato, "must not be negative")
	}
	if b.PlafondAnticipi.IsNegative() {
		return common.NewValidationError("plafond_anticipi", b.PlafondAnticipi, "must not be negative")
	}
	if b.TassoAnticipo.IsNegative() {
		return common.NewValidationError("tasso_anticipo", b.TassoAnticipo, "must not be negative")
	}
	return nil
}

// Crea stores a new bank and returns it with its generated id.
func (s *Service) Crea(ctx context.Context, b Banca) (*Banca, error) {
	const op = "Crea"
	if err := valida(&b); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b.ID = uuid.NewString()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	if err := s.repo.Save(ctx, &b); err != nil {
		return nil, fmt.Errorf("%s: failed to save bank: %w", op, err)
	}
	s.log.Info().Str("banca_id", b.ID).Str("nome", b.Nome).Msg("Bank created")
	return &b, nil
}

// Aggiorna replaces the header fields of an existing bank, keeping its movements.
func (s *Service) Aggiorna(ctx context.Context, b Banca) error {
	const op = "Aggiorna"
	if err := valida(&b); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.modifica(ctx, b.ID, func(cur *Banca) error {
		cur.Nome = b.Nome
		cur.IBAN = b.IBAN
		cur.Saldo = b.Saldo
		cur.FidoAccordato = b.FidoAccordato
		cur.PlafondAnticipi = b.PlafondAnticipi
		cur.TassoAnticipo = b.TassoAnticipo
		return nil
	})
}

// Elimina deletes a bank.
func (s *Service) Elimina(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete bank: %w", err)
	}
	if !ok {
		return ErrBancaNonTrovata
	}
	s.log.Info().Str("banca_id", id).Msg("Bank deleted")
	return nil
}

// Get returns a bank or ErrBancaNonTrovata.
func (s *Service) Get(ctx context.Context, id string) (*Banca, error) {
	return s.repo.Get(ctx, id)
}

// Elenco lists the banks by name.
func (s *Service) Elenco(ctx context.Context) ([]Banca, error) {
	banche, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	sort.Slice(banche, func(i, j int) bool { return banche[i].Nome < banche[j].Nome })
	return banche, nil
}

func (s *Service) FidoDisponibile(ctx context.Context, id string) (decimal.Decimal, error) {
	b, err := s.carica(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return FidoDisponibile(b), nil
}

func (s *Service) SaldoPrevisto(ctx context.Context, id string, d time.Time) (decimal.Decimal, error) {
	b, err := s.carica(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return SaldoPrevisto(b, d), nil
}

func (s *Service) InteressiMaturati(ctx context.Context, id string) (decimal.Decimal, error) {
	b, err := s.carica(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return InteressiMaturati(b, s.now()).Round(2), nil
}

func (s *Service) Proiezione(ctx context.Context, id string, from, to time.Time) ([]PuntoProiezione, error) {
	b, err := s.carica(ctx, id)
	if err != nil {
		return nil, err
	}
	return Proiezione(b, from, to), nil
}

// Alert evaluates the alert rules for one bank.
func (s *Service) Alert(ctx context.Context, id string) ([]Alert, error) {
	b, err := s.carica(ctx, id)
	if err != nil {
		return nil, err
	}
	alerts := Alerts(b, s.now(), s.soglie)
	OrdinaAlert(alerts)
	return alerts, nil
}

// AlertTutte evaluates the alert rules for every bank.
func (s *Service) AlertTutte(ctx context.Context) ([]Alert, error) {
	banche, err := s.Elenco(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var alerts []Alert
	for i := range banche {
		alerts = append(alerts, Alerts(&banche[i], now, s.soglie)...)
	}
	OrdinaAlert(alerts)
	return alerts, nil
}

func (s *Service) Riepilogo(ctx context.Context) (Riepilogo, error) {
	banche, err := s.Elenco(ctx)
	if err != nil {
		return Riepilogo{}, err
	}
	return Riepiloga(banche, s.now()), nil
}

// Pivot builds the yearly incassi or pagamenti pivot across all banks.
func (s *Service) Pivot(ctx context.Context, tipo string, anno int, r Raggruppamento) (Pivot, error) {
	banche, err := s.Elenco(ctx)
	if err != nil {
		return Pivot{}, err
	}
	switch tipo {
	case TipoIncassi:
		return PivotIncassi(banche, anno, r), nil
	case TipoPagamenti:
		return PivotPagamenti(banche, anno, r), nil
	}
	return Pivot{}, common.NewValidationError("tipo", tipo, "must be incassi or pagamenti")
}

func (s *Service) modifica(ctx context.Context, id string, fn func(*Banca) error) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(b); err != nil {
		return err
	}
	b.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, b); err != nil {
		return fmt.Errorf("failed to save bank: %w", err)
	}
	return nil
}

func (s *Service) AggiungiIncasso(ctx context.Context, bancaID string, inc Incasso) (*Incasso, error) {
	if !inc.Importo.IsPositive() {
		return nil, common.NewValidationError("importo", inc.Importo, "must be positive")
	}
	inc.ID = uuid.NewString()
	err := s.modifica(ctx, bancaID, func(b *Banca) error {
		b.Incassi = append(b.Incassi, inc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("banca_id", bancaID).Str("incasso_id", inc.ID).Str("importo", inc.Importo.String()).Msg("Receivable added")
	return &inc, nil
}

func (s *Service) AggiungiPagamento(ctx context.Context, bancaID string, pag Pagamento) (*Pagamento, error) {
	if !pag.Importo.IsPositive() {
		return nil, common.NewValidationError("importo", pag.Importo, "must be positive")
	}
	pag.ID = uuid.NewString()
	err := s.modifica(ctx, bancaID, func(b *Banca) error {
		b.Pagamenti = append(b.Pagamenti, pag)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("banca_id", bancaID).Str("pagamento_id", pag.ID).Str("importo", pag.Importo.String()).Msg("Payable added")
	return &pag, nil
}

// SegnaIncassato marks a receivable collected on data. That date also closes
// the interest accrual of any advance on it.
func (s *Service) SegnaIncassato(ctx context.Context, bancaID, incassoID string, data time.Time) error {
	return s.modifica(ctx, bancaID, func(b *Banca) error {
		for i := range b.Incassi {
			if b.Incassi[i].ID == incassoID {
				b.Incassi[i].Incassato = true
				b.Incassi[i].DataIncasso = &data
				return nil
			}
		}
		return ErrMovimentoNonTrovato
	})
}

func (s *Service) SegnaPagato(ctx context.Context, bancaID, pagamentoID string, data time.Time) error {
	return s.modifica(ctx, bancaID, func(b *Banca) error {
		for i := range b.Pagamenti {
			if b.Pagamenti[i].ID == pagamentoID {
				b.Pagamenti[i].Pagato = true
				b.Pagamenti[i].DataPagamento = &data
				return nil
			}
		}
		return ErrMovimentoNonTrovato
	})
}

// RegistraAnticipo discounts part or all of a receivable. Exceeding the
// plafond is allowed and surfaces as an alert.
func (s *Service) RegistraAnticipo(ctx context.Context, bancaID, incassoID string, importo decimal.Decimal, inizio time.Time) error {
	if !importo.IsPositive() {
		return common.NewValidationError("importo", importo, "must be positive")
	}
	return s.modifica(ctx, bancaID, func(b *Banca) error {
		for i := range b.Incassi {
			inc := &b.Incassi[i]
			if inc.ID != incassoID {
				continue
			}
			if inc.Incassato {
				return common.NewValidationError("incasso", incassoID, "already collected")
			}
			if importo.GreaterThan(inc.Importo) {
				return common.NewValidationError("importo", importo, "exceeds the receivable amount")
			}
			inc.Anticipo = &Anticipo{Importo: importo, DataInizio: inizio}
			b.Utilizzi = append(b.Utilizzi, UtilizzoAnticipo{Data: inizio, Importo: importo, IncassoID: incassoID})
			s.log.Info().Str("banca_id", bancaID).Str("incasso_id", incassoID).Str("importo", importo.String()).Msg("Advance registered")
			return nil
		}
		return ErrMovimentoNonTrovato
	})
}

// RegistraSaldo sets the current balance and records the day's snapshot.
func (s *Service) RegistraSaldo(ctx context.Context, bancaID string, data time.Time, saldo decimal.Decimal) error {
	return s.modifica(ctx, bancaID, func(b *Banca) error {
		b.Saldo = saldo
		b.Saldi = unisciSaldi(b.Saldi, []SaldoGiornaliero{{Data: common.Giorno(data), Saldo: saldo}})
		return nil
	})
}

// ApplicaEstratto takes the closing balance and daily snapshots from a parsed statement.
func (s *Service) ApplicaEstratto(ctx context.Context, bancaID string, e *Estratto) error {
	if ok, msg := ValidaSaldo(e); !ok {
		s.log.Warn().Str("banca_id", bancaID).Str("fonte", e.Fonte).Msg(msg)
	}
	err := s.modifica(ctx, bancaID, func(b *Banca) error {
		b.Saldo = e.SaldoFinale
		b.Saldi = unisciSaldi(b.Saldi, e.SaldiGiornalieri())
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("banca_id", bancaID).Str("fonte", e.Fonte).Int("movimenti", len(e.Movimenti)).Msg("Statement applied")
	return nil
}

// unisciSaldi merges snapshots by day, the newer value winning, sorted by date.
func unisciSaldi(esistenti, nuovi []SaldoGiornaliero) []SaldoGiornaliero {
	perGiorno := make(map[time.Time]decimal.Decimal, len(esistenti)+len(nuovi))
	for _, s := range esistenti {
		perGiorno[common.Giorno(s.Data)] = s.Saldo
	}
	for _, s := range nuovi {
		perGiorno[common.Giorno(s.Data)] = s.Saldo
	}
	saldi := make([]SaldoGiornaliero, 0, len(perGiorno))
	for d, v := range perGiorno {
		saldi = append(saldi, SaldoGiornaliero{Data: d, Saldo: v})
	}
	sort.Slice(saldi, func(i, j int) bool { return saldi[i].Data.Before(saldi[j].Data) })
	return saldi
}
