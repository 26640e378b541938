package banca

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func tipi(alerts []Alert) []string {
	var out []string
	for _, a := range alerts {
		out = append(out, a.Tipo)
	}
	return out
}

func TestAlerts_FidoQuarantaPercento(t *testing.T) {
	b := &Banca{ID: "b1", Nome: "Banca Uno", Saldo: d("-2000"), FidoAccordato: d("5000")}

	alerts := Alerts(b, giorno(2024, 6, 1), DefaultSoglie())

	assert.NotContains(t, tipi(alerts), AlertFidoInEsaurimento)
	assert.NotContains(t, tipi(alerts), AlertFidoSuperato)
	assert.Contains(t, tipi(alerts), AlertSaldoNegativo)
}

func TestAlerts_FidoInEsaurimento(t *testing.T) {
	b := &Banca{Nome: "Banca Due", Saldo: d("-4600"), FidoAccordato: d("5000")}

	alerts := Alerts(b, giorno(2024, 6, 1), DefaultSoglie())

	assert.Contains(t, tipi(alerts), AlertFidoInEsaurimento)
	assert.NotContains(t, tipi(alerts), AlertFidoSuperato)
}

func TestAlerts_FidoSuperato(t *testing.T) {
	b := &Banca{Nome: "Banca Tre", Saldo: d("-6000"), FidoAccordato: d("5000")}

	alerts := Alerts(b, giorno(2024, 6, 1), DefaultSoglie())

	assert.Contains(t, tipi(alerts), AlertFidoSuperato)
	assert.NotContains(t, tipi(alerts), AlertFidoInEsaurimento)
	for _, a := range alerts {
		if a.Tipo == AlertFidoSuperato {
			assert.Equal(t, SeveritaCritical, a.Severita)
			assert.True(t, a.Importo.Equal(d("1000")))
		}
	}
}

func TestAlerts_SaldoPositivoNessunAlert(t *testing.T) {
	b := &Banca{Nome: "Banca Quattro", Saldo: d("100"), FidoAccordato: d("5000")}
	assert.Empty(t, Alerts(b, giorno(2024, 6, 1), DefaultSoglie()))
}

func TestAlerts_PlafondSuperato(t *testing.T) {
	b := &Banca{
		Nome:            "Banca Cinque",
		PlafondAnticipi: d("1000"),
		Incassi: []Incasso{
			{Importo: d("2000"), DataScadenza: giorno(2024, 9, 1), Anticipo: &Anticipo{Importo: d("1500")}},
		},
	}

	alerts := Alerts(b, giorno(2024, 6, 1), DefaultSoglie())

	assert.Equal(t, []string{AlertPlafondSuperato}, tipi(alerts))
}

func TestAlerts_Scadenze(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	b := &Banca{
		Nome:  "Banca Sei",
		Saldo: d("10000"),
		Incassi: []Incasso{
			{Descrizione: "fra 7", Importo: d("10"), DataScadenza: giorno(2024, 6, 17)},
			{Descrizione: "fra 8", Importo: d("10"), DataScadenza: giorno(2024, 6, 18)},
			{Descrizione: "scaduto", Importo: d("10"), DataScadenza: giorno(2024, 6, 9)},
			{Descrizione: "anticipato", Importo: d("10"), DataScadenza: giorno(2024, 6, 15), Anticipo: &Anticipo{Importo: d("5")}},
			{Descrizione: "chiuso", Importo: d("10"), DataScadenza: giorno(2024, 6, 11), Incassato: true},
		},
		Pagamenti: []Pagamento{
			{Descrizione: "fra 3", Importo: d("20"), DataScadenza: giorno(2024, 6, 13)},
			{Descrizione: "fra 4", Importo: d("20"), DataScadenza: giorno(2024, 6, 14)},
			{Descrizione: "scaduto", Importo: d("20"), DataScadenza: giorno(2024, 6, 1)},
		},
	}
	b.PlafondAnticipi = d("100")

	alerts := Alerts(b, now, DefaultSoglie())
	conta := map[string]int{}
	for _, a := range alerts {
		conta[a.Tipo]++
	}

	assert.Equal(t, 2, conta[AlertIncassoInScadenza])
	assert.Equal(t, 1, conta[AlertIncassoScaduto])
	assert.Equal(t, 1, conta[AlertAnticipoInScadenza])
	assert.Equal(t, 1, conta[AlertPagamentoScadenza])
	assert.Equal(t, 1, conta[AlertPagamentoScaduto])

	OrdinaAlert(alerts)
	assert.Equal(t, SeveritaCritical, alerts[0].Severita)
	assert.Equal(t, SeveritaInfo, alerts[len(alerts)-1].Severita)
}
