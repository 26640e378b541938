// Package banca computes overdraft usage, projected balances, invoice-advance
// interest and alerts for the firm's bank accounts.
package banca

import (
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/shopspring/decimal"
)

var giorniAnno = decimal.NewFromInt(36500)

// FidoUtilizzato is the part of the overdraft in use: |saldo| when negative, else 0.
func FidoUtilizzato(b *Banca) decimal.Decimal {
	if b == nil || !b.Saldo.IsNegative() {
		return decimal.Zero
	}
	return b.Saldo.Abs()
}

// FidoDisponibile is the overdraft still available. With a non-negative
// balance the whole approved line is available. The result goes negative once
// the line is exceeded.
func FidoDisponibile(b *Banca) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	return b.FidoAccordato.Sub(FidoUtilizzato(b))
}

// FidoSuperato reports whether the negative balance exceeds the approved line.
func FidoSuperato(b *Banca) bool {
	if b == nil {
		return false
	}
	return FidoUtilizzato(b).GreaterThan(b.FidoAccordato)
}

// PercentualeUtilizzoFido returns used/approved as a ratio; 0 without a line.
func PercentualeUtilizzoFido(b *Banca) decimal.Decimal {
	if b == nil || !b.FidoAccordato.IsPositive() {
		return decimal.Zero
	}
	return FidoUtilizzato(b).Div(b.FidoAccordato)
}

// SaldoPrevisto projects the balance at date d: current balance plus
// uncollected receivables due on or before d, minus unpaid payables due on or before d.
func SaldoPrevisto(b *Banca, d time.Time) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	limite := common.Giorno(d)
	saldo := b.Saldo
	for _, inc := range b.Incassi {
		if !inc.Incassato && !common.Giorno(inc.DataScadenza).After(limite) {
			saldo = saldo.Add(inc.Importo)
		}
	}
	for _, pag := range b.Pagamenti {
		if !pag.Pagato && !common.Giorno(pag.DataScadenza).After(limite) {
			saldo = saldo.Sub(pag.Importo)
		}
	}
	return saldo
}

// Interessi is simple interest at an annual percentage rate over days:
// importo × tasso × giorni / 36500. Non-positive spans accrue nothing.
func Interessi(importo, tasso decimal.Decimal, giorni int) decimal.Decimal {
	if giorni <= 0 {
		return decimal.Zero
	}
	return importo.Mul(tasso).Mul(decimal.NewFromInt(int64(giorni))).Div(giorniAnno)
}

// InteressiAnticipo accrues interest on an advanced invoice from the advance
// start to the collection date, or to now while still outstanding.
func InteressiAnticipo(inc Incasso, tasso decimal.Decimal, now time.Time) decimal.Decimal {
	if inc.Anticipo == nil {
		return decimal.Zero
	}
	fine := now
	if inc.Incassato && inc.DataIncasso != nil {
		fine = *inc.DataIncasso
	}
	return Interessi(inc.Anticipo.Importo, tasso, common.GiorniTra(inc.Anticipo.DataInizio, fine))
}

// InteressiMaturati sums the advance interest over every invoice of the bank.
func InteressiMaturati(b *Banca, now time.Time) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	totale := decimal.Zero
	for _, inc := range b.Incassi {
		totale = totale.Add(InteressiAnticipo(inc, b.TassoAnticipo, now))
	}
	return totale
}

// AnticipiUtilizzati sums the advances on receivables not yet collected.
func AnticipiUtilizzati(b *Banca) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	totale := decimal.Zero
	for _, inc := range b.Incassi {
		if inc.Anticipo != nil && !inc.Incassato {
			totale = totale.Add(inc.Anticipo.Importo)
		}
	}
	return totale
}

// PlafondDisponibile is the advance ceiling minus what is in use.
func PlafondDisponibile(b *Banca) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	return b.PlafondAnticipi.Sub(AnticipiUtilizzati(b))
}

// IncassiDaRicevere sums the receivables not yet collected.
func IncassiDaRicevere(b *Banca) decimal.Decimal {
	totale := decimal.Zero
	if b == nil {
		return totale
	}
	for _, inc := range b.Incassi {
		if !inc.Incassato {
			totale = totale.Add(inc.Importo)
		}
	}
	return totale
}

// PagamentiDaEffettuare sums the payables not yet paid.
func PagamentiDaEffettuare(b *Banca) decimal.Decimal {
	totale := decimal.Zero
	if b == nil {
		return totale
	}
	for _, pag := range b.Pagamenti {
		if !pag.Pagato {
			totale = totale.Add(pag.Importo)
		}
	}
	return totale
}

// Proiezione returns the projected balance for each day in [from, to].
func Proiezione(b *Banca, from, to time.Time) []PuntoProiezione {
	if b == nil {
		return nil
	}
	from, to = common.Giorno(from), common.Giorno(to)
	if to.Before(from) {
		return nil
	}

	entrate := make(map[time.Time]decimal.Decimal)
	uscite := make(map[time.Time]decimal.Decimal)
	saldo := b.Saldo
	for _, inc := range b.Incassi {
		if inc.Incassato {
			continue
		}
		giorno := common.Giorno(inc.DataScadenza)
		if giorno.Before(from) {
			saldo = saldo.Add(inc.Importo)
			continue
		}
		entrate[giorno] = entrate[giorno].Add(inc.Importo)
	}
	for _, pag := range b.Pagamenti {
		if pag.Pagato {
			continue
		}
		giorno := common.Giorno(pag.DataScadenza)
		if giorno.Before(from) {
			saldo = saldo.Sub(pag.Importo)
			continue
		}
		uscite[giorno] = uscite[giorno].Add(pag.Importo)
	}

	var punti []PuntoProiezione
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		saldo = saldo.Add(entrate[d]).Sub(uscite[d])
		punti = append(punti, PuntoProiezione{
			Data:      d,
			Entrate:   entrate[d],
			Uscite:    uscite[d],
			Saldo:     saldo,
			SottoFido: saldo.IsNegative() && saldo.Abs().GreaterThan(b.FidoAccordato),
		})
	}
	return punti
}
