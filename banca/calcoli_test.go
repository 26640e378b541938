package banca

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func giorno(y int, m time.Month, g int) time.Time {
	return time.Date(y, m, g, 0, 0, 0, 0, time.UTC)
}

func TestFidoDisponibile_SaldoPositivo(t *testing.T) {
	for _, saldo := range []string{"0", "0.01", "12500"} {
		b := &Banca{Saldo: d(saldo), FidoAccordato: d("5000")}

		assert.True(t, FidoDisponibile(b).Equal(d("5000")), "saldo %s", saldo)
		assert.False(t, FidoSuperato(b), "saldo %s", saldo)
		assert.True(t, FidoUtilizzato(b).IsZero(), "saldo %s", saldo)
	}
}

func TestFidoDisponibile_SaldoNegativo(t *testing.T) {
	tests := []struct {
		saldo    string
		fido     string
		disponib string
		superato bool
	}{
		{"-2000", "5000", "3000", false},
		{"-5000", "5000", "0", false},
		{"-5000.01", "5000", "-0.01", true},
		{"-100", "0", "-100", true},
	}

	for _, test := range tests {
		b := &Banca{Saldo: d(test.saldo), FidoAccordato: d(test.fido)}
		assert.True(t, FidoDisponibile(b).Equal(d(test.disponib)), "saldo %s: got %s", test.saldo, FidoDisponibile(b))
		assert.Equal(t, test.superato, FidoSuperato(b), "saldo %s", test.saldo)
	}
}

func TestNilBanca(t *testing.T) {
	assert.True(t, FidoDisponibile(nil).IsZero())
	assert.False(t, FidoSuperato(nil))
	assert.True(t, SaldoPrevisto(nil, time.Now()).IsZero())
	assert.True(t, AnticipiUtilizzati(nil).IsZero())
	assert.Nil(t, Proiezione(nil, time.Now(), time.Now()))
	assert.Nil(t, Alerts(nil, time.Now(), DefaultSoglie()))
}

func TestSaldoPrevisto(t *testing.T) {
	b := &Banca{
		Saldo: d("1000"),
		Incassi: []Incasso{
			{Importo: d("500"), DataScadenza: giorno(2024, 3, 10)},
			{Importo: d("300"), DataScadenza: giorno(2024, 3, 20)},
			{Importo: d("999"), DataScadenza: giorno(2024, 3, 5), Incassato: true},
		},
		Pagamenti: []Pagamento{
			{Importo: d("200"), DataScadenza: giorno(2024, 3, 10)},
			{Importo: d("800"), DataScadenza: giorno(2024, 3, 25)},
			{Importo: d("50"), DataScadenza: giorno(2024, 3, 1), Pagato: true},
		},
	}

	assert.True(t, SaldoPrevisto(b, giorno(2024, 3, 9)).Equal(d("1000")))
	assert.True(t, SaldoPrevisto(b, giorno(2024, 3, 10)).Equal(d("1300")))
	assert.True(t, SaldoPrevisto(b, time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)).Equal(d("1300")))
	assert.True(t, SaldoPrevisto(b, giorno(2024, 3, 20)).Equal(d("1600")))
	assert.True(t, SaldoPrevisto(b, giorno(2024, 3, 31)).Equal(d("800")))
}

func TestInteressi(t *testing.T) {
	assert.True(t, Interessi(d("10000"), d("5"), 0).IsZero())
	assert.True(t, Interessi(d("10000"), d("5"), -3).IsZero())
	assert.True(t, Interessi(d("36500"), d("10"), 1).Equal(d("10")))
	assert.True(t, Interessi(d("10000"), d("3.65"), 100).Equal(d("100")))
}

func TestInteressi_Monotonic(t *testing.T) {
	prev := decimal.Zero
	for giorni := 0; giorni <= 400; giorni++ {
		cur := Interessi(d("12345.67"), d("4.25"), giorni)
		assert.False(t, cur.LessThan(prev), "day %d decreased", giorni)
		prev = cur
	}
}

func TestInteressiAnticipo(t *testing.T) {
	now := giorno(2024, 4, 10)
	aperto := Incasso{
		Importo:  d("20000"),
		Anticipo: &Anticipo{Importo: d("36500"), DataInizio: giorno(2024, 4, 1)},
	}
	assert.True(t, InteressiAnticipo(aperto, d("4"), now).Equal(d("36")))

	incassatoIl := giorno(2024, 4, 5)
	chiuso := aperto
	chiuso.Incassato = true
	chiuso.DataIncasso = &incassatoIl
	assert.True(t, InteressiAnticipo(chiuso, d("4"), now).Equal(d("16")))

	senza := Incasso{Importo: d("100")}
	assert.True(t, InteressiAnticipo(senza, d("4"), now).IsZero())
}

func TestAnticipiUtilizzati(t *testing.T) {
	b := &Banca{
		PlafondAnticipi: d("10000"),
		Incassi: []Incasso{
			{Importo: d("5000"), Anticipo: &Anticipo{Importo: d("4000")}},
			{Importo: d("3000"), Anticipo: &Anticipo{Importo: d("3000")}, Incassato: true},
			{Importo: d("2000")},
		},
	}
	assert.True(t, AnticipiUtilizzati(b).Equal(d("4000")))
	assert.True(t, PlafondDisponibile(b).Equal(d("6000")))
	assert.True(t, IncassiDaRicevere(b).Equal(d("7000")))
}

func TestProiezione(t *testing.T) {
	b := &Banca{
		Saldo:         d("100"),
		FidoAccordato: d("50"),
		Incassi: []Incasso{
			{Importo: d("40"), DataScadenza: giorno(2024, 5, 1)},
			{Importo: d("10"), DataScadenza: giorno(2024, 5, 3)},
		},
		Pagamenti: []Pagamento{
			{Importo: d("300"), DataScadenza: giorno(2024, 5, 2)},
		},
	}

	punti := Proiezione(b, giorno(2024, 5, 2), giorno(2024, 5, 4))
	if assert.Len(t, punti, 3) {
		assert.True(t, punti[0].Saldo.Equal(d("-160")))
		assert.True(t, punti[0].SottoFido)
		assert.True(t, punti[1].Saldo.Equal(d("-150")))
		assert.True(t, punti[2].Saldo.Equal(d("-150")))
		assert.True(t, punti[2].Saldo.Equal(SaldoPrevisto(b, giorno(2024, 5, 4))))
	}

	assert.Nil(t, Proiezione(b, giorno(2024, 5, 4), giorno(2024, 5, 1)))
}
