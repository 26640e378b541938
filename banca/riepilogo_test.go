package banca

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiepiloga_FidoSoloBancheNegative(t *testing.T) {
	banche := []Banca{
		{Nome: "A", Saldo: d("-2000"), FidoAccordato: d("5000")},
		{Nome: "B", Saldo: d("8000"), FidoAccordato: d("10000")},
		{Nome: "C", Saldo: d("-7000"), FidoAccordato: d("5000")},
	}

	r := Riepiloga(banche, giorno(2024, 1, 1))

	assert.Equal(t, 3, r.NumeroBanche)
	assert.True(t, r.SaldoTotale.Equal(d("-1000")))
	assert.True(t, r.FidoAccordato.Equal(d("20000")))
	assert.True(t, r.FidoUtilizzato.Equal(d("9000")), "got %s", r.FidoUtilizzato)
	assert.True(t, r.FidoDisponibile.Equal(d("11000")))
	assert.Equal(t, 2, r.BancheInNegativo)
	assert.Equal(t, 1, r.BancheFidoSuperato)
}

func TestRiepiloga_TutteInAttivo(t *testing.T) {
	banche := []Banca{
		{Nome: "A", Saldo: d("1"), FidoAccordato: d("5000")},
		{Nome: "B", Saldo: d("0"), FidoAccordato: d("1000")},
	}

	r := Riepiloga(banche, giorno(2024, 1, 1))

	assert.True(t, r.FidoUtilizzato.IsZero())
	assert.True(t, r.FidoDisponibile.Equal(d("6000")))
}

func TestRiepiloga_AnticipiEInteressi(t *testing.T) {
	banche := []Banca{
		{
			Nome:            "A",
			PlafondAnticipi: d("50000"),
			TassoAnticipo:   d("10"),
			Incassi: []Incasso{
				{Importo: d("40000"), Anticipo: &Anticipo{Importo: d("36500"), DataInizio: giorno(2024, 1, 1)}},
			},
		},
		{Nome: "B", PlafondAnticipi: d("20000")},
	}

	r := Riepiloga(banche, giorno(2024, 1, 11))

	assert.True(t, r.PlafondAnticipi.Equal(d("70000")))
	assert.True(t, r.AnticipiUtilizzati.Equal(d("36500")))
	assert.True(t, r.InteressiMaturati.Equal(d("100")), "got %s", r.InteressiMaturati)
	assert.True(t, r.IncassiDaRicevere.Equal(d("40000")))
}

func TestRiepiloga_Vuoto(t *testing.T) {
	r := Riepiloga(nil, giorno(2024, 1, 1))
	assert.Equal(t, 0, r.NumeroBanche)
	assert.True(t, r.SaldoTotale.IsZero())
}
