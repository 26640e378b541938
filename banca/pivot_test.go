package banca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPivotIncassi_PerCategoria(t *testing.T) {
	banche := []Banca{
		{ID: "1", Nome: "Alfa", Incassi: []Incasso{
			{ID: "i1", Categoria: "Parcelle", Importo: d("100"), DataScadenza: giorno(2024, 1, 20)},
			{ID: "i2", Categoria: "Parcelle", Importo: d("50"), DataScadenza: giorno(2024, 1, 5)},
			{ID: "i3", Categoria: "", Importo: d("30"), DataScadenza: giorno(2024, 3, 1)},
			{ID: "i4", Categoria: "Parcelle", Importo: d("999"), DataScadenza: giorno(2023, 1, 1)},
		}},
		{ID: "2", Nome: "Beta", Incassi: []Incasso{
			{ID: "i5", Categoria: "Consulenze", Importo: d("70"), DataScadenza: giorno(2024, 1, 10), Incassato: true},
		}},
	}

	p := PivotIncassi(banche, 2024, PerCategoria)

	require.Len(t, p.Righe, 3)
	assert.Equal(t, "Consulenze", p.Righe[0].Etichetta)
	assert.Equal(t, "Parcelle", p.Righe[1].Etichetta)
	assert.Equal(t, senzaCategoria, p.Righe[2].Etichetta)

	gennaio := p.Righe[1].Mesi[0]
	assert.True(t, gennaio.Totale.Equal(d("150")))
	require.Len(t, gennaio.Dettagli, 2)
	assert.Equal(t, "i2", gennaio.Dettagli[0].ID)

	assert.True(t, p.TotaliMese[0].Equal(d("220")))
	assert.True(t, p.TotaliMese[2].Equal(d("30")))
	assert.True(t, p.Totale.Equal(d("250")))
	assert.True(t, p.Righe[0].Mesi[0].Dettagli[0].Chiuso)
}

func TestPivotPagamenti_PerBanca(t *testing.T) {
	banche := []Banca{
		{ID: "1", Nome: "Alfa", Pagamenti: []Pagamento{
			{ID: "p1", Categoria: "Affitto", Importo: d("1000"), DataScadenza: giorno(2024, 2, 1)},
			{ID: "p2", Categoria: "Utenze", Importo: d("200"), DataScadenza: giorno(2024, 2, 15)},
		}},
		{ID: "2", Nome: "Beta", Pagamenti: []Pagamento{
			{ID: "p3", Categoria: "Affitto", Importo: d("500"), DataScadenza: giorno(2024, 12, 1)},
		}},
	}

	p := PivotPagamenti(banche, 2024, PerBanca)

	require.Len(t, p.Righe, 2)
	assert.Equal(t, "Alfa", p.Righe[0].Etichetta)
	assert.True(t, p.Righe[0].Mesi[1].Totale.Equal(d("1200")))
	assert.True(t, p.Righe[0].Totale.Equal(d("1200")))
	assert.True(t, p.Righe[1].Mesi[11].Totale.Equal(d("500")))
	assert.True(t, p.Righe[1].Mesi[0].Totale.IsZero())
	assert.Equal(t, TipoPagamenti, p.Tipo)
}

func TestPivotPagamenti_PerBancaStessoNome(t *testing.T) {
	banche := []Banca{
		{ID: "2", Nome: "Banca Popolare", Pagamenti: []Pagamento{
			{ID: "p1", Importo: d("300"), DataScadenza: giorno(2024, 3, 1)},
		}},
		{ID: "1", Nome: "Banca Popolare", Pagamenti: []Pagamento{
			{ID: "p2", Importo: d("100"), DataScadenza: giorno(2024, 3, 5)},
		}},
	}

	p := PivotPagamenti(banche, 2024, PerBanca)

	require.Len(t, p.Righe, 2, "same-named banks stay separate rows")
	assert.Equal(t, "1", p.Righe[0].Chiave)
	assert.Equal(t, "Banca Popolare", p.Righe[0].Etichetta)
	assert.True(t, p.Righe[0].Totale.Equal(d("100")))
	assert.Equal(t, "2", p.Righe[1].Chiave)
	assert.True(t, p.Righe[1].Totale.Equal(d("300")))
	assert.True(t, p.TotaliMese[2].Equal(d("400")))
}
