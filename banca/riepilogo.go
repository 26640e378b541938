package banca

import (
	"time"

	"github.com/shopspring/decimal"
)

// Riepiloga rolls the banks up into one summary. Utilized fido only counts
// banks currently below zero; a bank in credit never offsets another's overdraft.
func Riepiloga(banche []Banca, now time.Time) Riepilogo {
	r := Riepilogo{
		NumeroBanche:          len(banche),
		SaldoTotale:           decimal.Zero,
		FidoAccordato:         decimal.Zero,
		FidoUtilizzato:        decimal.Zero,
		FidoDisponibile:       decimal.Zero,
		PlafondAnticipi:       decimal.Zero,
		AnticipiUtilizzati:    decimal.Zero,
		InteressiMaturati:     decimal.Zero,
		IncassiDaRicevere:     decimal.Zero,
		PagamentiDaEffettuare: decimal.Zero,
	}

	for i := range banche {
		b := &banche[i]
		r.SaldoTotale = r.SaldoTotale.Add(b.Saldo)
		r.FidoAccordato = r.FidoAccordato.Add(b.FidoAccordato)
		r.FidoUtilizzato = r.FidoUtilizzato.Add(FidoUtilizzato(b))
		r.PlafondAnticipi = r.PlafondAnticipi.Add(b.PlafondAnticipi)
		r.AnticipiUtilizzati = r.AnticipiUtilizzati.Add(AnticipiUtilizzati(b))
		r.InteressiMaturati = r.InteressiMaturati.Add(InteressiMaturati(b, now))
		r.IncassiDaRicevere = r.IncassiDaRicevere.Add(IncassiDaRicevere(b))
		r.PagamentiDaEffettuare = r.PagamentiDaEffettuare.Add(PagamentiDaEffettuare(b))
		if b.Saldo.IsNegative() {
			r.BancheInNegativo++
		}
		if FidoSuperato(b) {
			r.BancheFidoSuperato++
		}
	}

	r.FidoDisponibile = r.FidoAccordato.Sub(r.FidoUtilizzato)
	r.InteressiMaturati = r.InteressiMaturati.Round(2)
	return r
}
