package banca

import (
	"fmt"
	"sort"
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/shopspring/decimal"
)

var cento = decimal.NewFromInt(100)

// Alerts evaluates the alert rules for one bank at time now.
func Alerts(b *Banca, now time.Time, soglie Soglie) []Alert {
	if b == nil {
		return nil
	}

	var alerts []Alert
	add := func(sev Severita, tipo string, importo decimal.Decimal, scadenza *time.Time, format string, args ...any) {
		alerts = append(alerts, Alert{
			BancaID:   b.ID,
			Banca:     b.Nome,
			Severita:  sev,
			Tipo:      tipo,
			Messaggio: fmt.Sprintf(format, args...),
			Importo:   importo,
			Scadenza:  scadenza,
		})
	}

	if b.Saldo.IsNegative() {
		utilizzato := FidoUtilizzato(b)
		switch {
		case FidoSuperato(b):
			add(SeveritaCritical, AlertFidoSuperato, utilizzato.Sub(b.FidoAccordato), nil,
				"%s: fido superato di %s (utilizzato %s su %s)", b.Nome,
				utilizzato.Sub(b.FidoAccordato).StringFixed(2), utilizzato.StringFixed(2), b.FidoAccordato.StringFixed(2))
		case b.FidoAccordato.IsPositive() && PercentualeUtilizzoFido(b).GreaterThan(soglie.SogliaFido):
			add(SeveritaWarning, AlertFidoInEsaurimento, FidoDisponibile(b), nil,
				"%s: fido in esaurimento (utilizzato al %s%%, disponibili %s)", b.Nome,
				PercentualeUtilizzoFido(b).Mul(cento).StringFixed(1), FidoDisponibile(b).StringFixed(2))
		}
		add(SeveritaWarning, AlertSaldoNegativo, b.Saldo, nil,
			"%s: saldo negativo %s", b.Nome, b.Saldo.StringFixed(2))
	}

	anticipi := AnticipiUtilizzati(b)
	if anticipi.IsPositive() && anticipi.GreaterThan(b.PlafondAnticipi) {
		add(SeveritaCritical, AlertPlafondSuperato, anticipi.Sub(b.PlafondAnticipi), nil,
			"%s: plafond anticipi superato di %s", b.Nome, anticipi.Sub(b.PlafondAnticipi).StringFixed(2))
	}

	oggi := common.Giorno(now)
	for i := range b.Incassi {
		inc := b.Incassi[i]
		if inc.Incassato {
			continue
		}
		scadenza := inc.DataScadenza
		giorni := common.GiorniTra(oggi, scadenza)
		switch {
		case giorni < 0:
			add(SeveritaWarning, AlertIncassoScaduto, inc.Importo, &scadenza,
				"%s: incasso scaduto da %d giorni: %s (%s)", b.Nome, -giorni, inc.Descrizione, inc.Importo.StringFixed(2))
		case giorni <= soglie.GiorniIncassi:
			add(SeveritaInfo, AlertIncassoInScadenza, inc.Importo, &scadenza,
				"%s: incasso in scadenza tra %d giorni: %s (%s)", b.Nome, giorni, inc.Descrizione, inc.Importo.StringFixed(2))
		}
		if inc.Anticipo != nil && giorni >= 0 && giorni <= soglie.GiorniAnticipi {
			add(SeveritaWarning, AlertAnticipoInScadenza, inc.Anticipo.Importo, &scadenza,
				"%s: anticipo su %s in scadenza tra %d giorni (%s)", b.Nome, inc.Descrizione, giorni, inc.Anticipo.Importo.StringFixed(2))
		}
	}

	for i := range b.Pagamenti {
		pag := b.Pagamenti[i]
		if pag.Pagato {
			continue
		}
		scadenza := pag.DataScadenza
		giorni := common.GiorniTra(oggi, scadenza)
		switch {
		case giorni < 0:
			add(SeveritaCritical, AlertPagamentoScaduto, pag.Importo, &scadenza,
				"%s: pagamento scaduto da %d giorni: %s (%s)", b.Nome, -giorni, pag.Descrizione, pag.Importo.StringFixed(2))
		case giorni <= soglie.GiorniPagamenti:
			add(SeveritaWarning, AlertPagamentoScadenza, pag.Importo, &scadenza,
				"%s: pagamento in scadenza tra %d giorni: %s (%s)", b.Nome, giorni, pag.Descrizione, pag.Importo.StringFixed(2))
		}
	}

	return alerts
}

var rango = map[Severita]int{SeveritaCritical: 0, SeveritaWarning: 1, SeveritaInfo: 2}

// OrdinaAlert sorts alerts by severity, then by due date (undated first).
func OrdinaAlert(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if rango[alerts[i].Severita] != rango[alerts[j].Severita] {
			return rango[alerts[i].Severita] < rango[alerts[j].Severita]
		}
		a, b := alerts[i].Scadenza, alerts[j].Scadenza
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
}
