package banca

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/shopspring/decimal"
)

// CSV column indices of a bank statement export
const (
	colData        = 0
	colValuta      = 1
	colDescrizione = 2
	colImporto     = 3
	colSaldo       = 4
)

const minColonne = 4

// Movimento is one booked line of a bank statement.
type Movimento struct {
	Sequenza    int             `json:"sequenza"`
	Data        time.Time       `json:"data"`
	Valuta      time.Time       `json:"valuta"`
	Descrizione string          `json:"descrizione"`
	Importo     decimal.Decimal `json:"importo"` // positive in, negative out
	Saldo       decimal.Decimal `json:"saldo"`
	HaSaldo     bool            `json:"ha_saldo"`
}

// Estratto is a parsed bank statement.
type Estratto struct {
	Fonte          string          `json:"fonte"`
	Movimenti      []Movimento     `json:"movimenti"`
	SaldoIniziale  decimal.Decimal `json:"saldo_iniziale"`
	SaldoFinale    decimal.Decimal `json:"saldo_finale"`
	TotaleEntrate  decimal.Decimal `json:"totale_entrate"`
	TotaleUscite   decimal.Decimal `json:"totale_uscite"`
	SaldoCalcolato decimal.Decimal `json:"saldo_calcolato"`
	DataInizio     time.Time       `json:"data_inizio"`
	DataFine       time.Time       `json:"data_fine"`
}

// ParseEstratto reads a statement CSV (data;valuta;descrizione;importo[;saldo]).
// The delimiter is detected from the header row. Rows that cannot be parsed
// are logged and skipped.
func ParseEstratto(reader io.Reader, filename string) (*Estratto, error) {
	log := logger.WithComponent("estratto")

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	text := string(content)

	csvReader := csv.NewReader(strings.NewReader(text))
	firstLine, _, _ := strings.Cut(text, "\n")
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		csvReader.Comma = ';'
	}
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < minColonne {
		return nil, fmt.Errorf("invalid CSV format: expected at least %d columns, got %d", minColonne, len(header))
	}

	var movimenti []Movimento
	riga := 1
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		riga++
		if err != nil {
			log.Warn().Err(err).Int("row", riga).Msg("Skipping unreadable row")
			continue
		}
		if len(record) < minColonne {
			log.Warn().Int("row", riga).Int("columns", len(record)).Msg("Skipping row with insufficient columns")
			continue
		}

		mov, err := parseMovimento(record)
		if err != nil {
			log.Warn().Err(err).Int("row", riga).Msg("Skipping invalid row")
			continue
		}
		movimenti = append(movimenti, mov)
	}

	if len(movimenti) == 0 {
		return nil, fmt.Errorf("no valid movements found in %s", filepath.Base(filename))
	}
	return creaEstratto(movimenti, filename), nil
}

func parseMovimento(record []string) (Movimento, error) {
	var mov Movimento

	data, err := common.ParseData(record[colData])
	if err != nil {
		return mov, fmt.Errorf("invalid booking date: %w", err)
	}
	mov.Data = data

	valuta, err := common.ParseData(record[colValuta])
	if err != nil {
		// Not critical, fall back to the booking date
		valuta = data
	}
	mov.Valuta = valuta

	mov.Descrizione = strings.Join(strings.Fields(record[colDescrizione]), " ")

	importo, err := common.ParseImporto(record[colImporto])
	if err != nil {
		return mov, fmt.Errorf("invalid amount: %w", err)
	}
	mov.Importo = importo

	if len(record) > colSaldo && strings.TrimSpace(record[colSaldo]) != "" {
		saldo, err := common.ParseImporto(record[colSaldo])
		if err != nil {
			return mov, fmt.Errorf("invalid balance: %w", err)
		}
		mov.Saldo = saldo
		mov.HaSaldo = true
	}
	return mov, nil
}

func creaEstratto(movimenti []Movimento, filename string) *Estratto {
	// Oldest first; stable keeps the file order within a day
	sort.SliceStable(movimenti, func(i, j int) bool {
		return movimenti[i].Data.Before(movimenti[j].Data)
	})

	e := &Estratto{
		Fonte:         strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		TotaleEntrate: decimal.Zero,
		TotaleUscite:  decimal.Zero,
	}
	for i := range movimenti {
		movimenti[i].Sequenza = i + 1
		if movimenti[i].Importo.IsNegative() {
			e.TotaleUscite = e.TotaleUscite.Add(movimenti[i].Importo.Abs())
		} else {
			e.TotaleEntrate = e.TotaleEntrate.Add(movimenti[i].Importo)
		}
	}
	e.Movimenti = movimenti

	first, last := movimenti[0], movimenti[len(movimenti)-1]
	e.DataInizio, e.DataFine = first.Data, last.Data
	// balance_after = balance_before + amount
	if first.HaSaldo {
		e.SaldoIniziale = first.Saldo.Sub(first.Importo)
	}
	e.SaldoCalcolato = e.SaldoIniziale.Add(e.TotaleEntrate).Sub(e.TotaleUscite)
	if last.HaSaldo {
		e.SaldoFinale = last.Saldo
	} else {
		e.SaldoFinale = e.SaldoCalcolato
	}
	return e
}

// ValidaSaldo checks that the computed closing balance matches the stated one.
func ValidaSaldo(e *Estratto) (bool, string) {
	if e.SaldoFinale.Equal(e.SaldoCalcolato) {
		return true, fmt.Sprintf("Saldo verificato: iniziale=%s, finale=%s, calcolato=%s",
			e.SaldoIniziale.StringFixed(2), e.SaldoFinale.StringFixed(2), e.SaldoCalcolato.StringFixed(2))
	}
	diff := e.SaldoFinale.Sub(e.SaldoCalcolato)
	return false, fmt.Sprintf("Saldo non quadra: iniziale=%s, finale=%s, calcolato=%s, differenza=%s",
		e.SaldoIniziale.StringFixed(2), e.SaldoFinale.StringFixed(2), e.SaldoCalcolato.StringFixed(2), diff.StringFixed(2))
}

// SaldiGiornalieri returns the end-of-day balance for every day with movements.
func (e *Estratto) SaldiGiornalieri() []SaldoGiornaliero {
	var saldi []SaldoGiornaliero
	corrente := e.SaldoIniziale
	for _, mov := range e.Movimenti {
		corrente = corrente.Add(mov.Importo)
		if mov.HaSaldo {
			corrente = mov.Saldo
		}
		giorno := common.Giorno(mov.Data)
		if n := len(saldi); n > 0 && saldi[n-1].Data.Equal(giorno) {
			saldi[n-1].Saldo = corrente
			continue
		}
		saldi = append(saldi, SaldoGiornaliero{Data: giorno, Saldo: corrente})
	}
	return saldi
}
