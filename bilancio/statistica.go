package bilancio

import (
	"context"
	"fmt"
	"strings"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var cento = decimal.NewFromInt(100)

// StatisticaService turns a mapped trial balance into a statement.
type StatisticaService struct {
	archivio *Archivio
	log      zerolog.Logger
}

func NewStatisticaService(a *Archivio) *StatisticaService {
	return &StatisticaService{archivio: a, log: logger.WithComponent("statistica")}
}

// Genera builds the statement of the period. Saved links whose account is
// missing from the current trial balance are left out and the remaining
// amounts are read from the current rows. Formula lines are evaluated after
// every base line, in template order; a formula that cannot be parsed yields 0.
func (s *StatisticaService) Genera(ctx context.Context, p Periodo) (*Statistica, error) {
	const op = "Genera"
	if err := p.Valida(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	assoc, err := s.archivio.associazione(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, p, err)
	}
	voci, err := s.archivio.templatePeriodo(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(voci) == 0 {
		return nil, fmt.Errorf("%s: %s: %w", op, p, ErrTemplateNonTrovato)
	}
	righe, err := s.archivio.righePeriodo(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stat := &Statistica{Periodo: p, TotaleFatturato: decimal.Zero}

	correnti := importiCorrenti(righe)
	perTemplate := make(map[string][]AssociazioneDettaglio)
	for _, d := range assoc.Dettagli {
		importo, ok := correnti[d.chiave()]
		if !ok {
			stat.Esclusi++
			s.log.Debug().Str("mastrino", d.CodiceMastrino).Str("descrizione", d.DescrizioneMastrino).Msg("Dropping stale mapping")
			continue
		}
		d.Importo = importo
		perTemplate[d.TemplateID] = append(perTemplate[d.TemplateID], d)
	}

	valori := make(map[string]decimal.Decimal, len(voci))
	stat.Righe = make([]RigaStatistica, len(voci))
	for i, v := range voci {
		riga := RigaStatistica{
			TemplateID:  v.ID,
			Codice:      v.Codice,
			Descrizione: v.Descrizione,
			Ordine:      v.Ordine,
			Formula:     v.Formula,
			Valore:      decimal.Zero,
			Percentuale: decimal.Zero,
		}
		if v.Formula == "" {
			riga.Mastrini = perTemplate[v.ID]
			for _, d := range riga.Mastrini {
				riga.Valore = riga.Valore.Add(d.Importo)
			}
			if v.Negativo() {
				riga.Valore = riga.Valore.Neg()
			}
			valori[v.Codice] = valori[v.Codice].Add(riga.Valore)
		}
		stat.Righe[i] = riga
	}

	for i := range stat.Righe {
		riga := &stat.Righe[i]
		if riga.Formula == "" {
			continue
		}
		valore, err := Valuta(riga.Formula, valori)
		if err != nil {
			s.log.Warn().Err(err).Str("codice", riga.Codice).Msg("Formula evaluation failed, using 0")
			valore = decimal.Zero
		}
		riga.Valore = valore
		valori[riga.Codice] = valore
	}

	stat.TotaleFatturato = calcolaPercentuali(stat.Righe)

	if stat.Esclusi > 0 {
		s.log.Info().Str("periodo", p.String()).Int("esclusi", stat.Esclusi).Msg("Stale mappings excluded from statement")
	}
	return stat, nil
}

// calcolaPercentuali sets every line's share of the revenue line and returns
// the revenue value. Without a revenue line, or with a zero one, all
// percentages stay 0.
func calcolaPercentuali(righe []RigaStatistica) decimal.Decimal {
	fatturato := decimal.Zero
	trovato := false
	for _, r := range righe {
		if strings.Contains(r.Descrizione, MarcatoreFatturato) {
			fatturato = r.Valore
			trovato = true
			break
		}
	}
	if !trovato || fatturato.IsZero() {
		for i := range righe {
			righe[i].Percentuale = decimal.Zero
		}
		return fatturato
	}

	base := fatturato.Abs()
	for i := range righe {
		righe[i].Percentuale = righe[i].Valore.Abs().Div(base).Mul(cento).Round(2)
	}
	return fatturato
}

// RigaConfronto compares one statement line across two periods.
type RigaConfronto struct {
	Codice      string          `json:"codice"`
	Descrizione string          `json:"descrizione"`
	ValoreA     decimal.Decimal `json:"valore_a"`
	ValoreB     decimal.Decimal `json:"valore_b"`
	Differenza  decimal.Decimal `json:"differenza"`
	Variazione  decimal.Decimal `json:"variazione"` // percent of |A|; 0 when A is 0
}

// Confronto is the line-by-line comparison of two statements.
type Confronto struct {
	PeriodoA Periodo         `json:"periodo_a"`
	PeriodoB Periodo         `json:"periodo_b"`
	Righe    []RigaConfronto `json:"righe"`
}

// Confronta matches the lines of a and b by code, in a's order followed by
// the lines only b has.
func Confronta(a, b *Statistica) Confronto {
	c := Confronto{PeriodoA: a.Periodo, PeriodoB: b.Periodo}

	inB := make(map[string]RigaStatistica, len(b.Righe))
	for _, r := range b.Righe {
		inB[r.Codice] = r
	}
	visti := make(map[string]bool, len(a.Righe))

	for _, ra := range a.Righe {
		visti[ra.Codice] = true
		valoreB := decimal.Zero
		if rb, ok := inB[ra.Codice]; ok {
			valoreB = rb.Valore
		}
		c.Righe = append(c.Righe, confrontaValori(ra.Codice, ra.Descrizione, ra.Valore, valoreB))
	}
	for _, rb := range b.Righe {
		if !visti[rb.Codice] {
			c.Righe = append(c.Righe, confrontaValori(rb.Codice, rb.Descrizione, decimal.Zero, rb.Valore))
		}
	}
	return c
}

func confrontaValori(codice, descrizione string, a, b decimal.Decimal) RigaConfronto {
	r := RigaConfronto{
		Codice:      codice,
		Descrizione: descrizione,
		ValoreA:     a,
		ValoreB:     b,
		Differenza:  b.Sub(a),
		Variazione:  decimal.Zero,
	}
	if !a.IsZero() {
		r.Variazione = r.Differenza.Div(a.Abs()).Mul(cento).Round(2)
	}
	return r
}
