package banca

import (
	"strings"
	"testing"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEstratto(t *testing.T) {
	logger.Discard()

	// Starting balance 1.000,00
	// +500 -> 1.500,00 ; -200 -> 1.300,00 ; -50,50 -> 1.249,50
	csvData := `Data contabile;Data valuta;Descrizione;Importo;Saldo
02/01/2024;02/01/2024;BONIFICO DA   CLIENTE ROSSI;500,00;1.500,00
03/01/2024;03/01/2024;ADDEBITO F24;-200,00;1.300,00
riga;non;valida;x;y
03/01/2024;;COMMISSIONI;-50,50;1.249,50`

	e, err := ParseEstratto(strings.NewReader(csvData), "/tmp/estratto_gennaio.csv")
	require.NoError(t, err)

	assert.Equal(t, "estratto_gennaio", e.Fonte)
	require.Len(t, e.Movimenti, 3)
	assert.Equal(t, "BONIFICO DA CLIENTE ROSSI", e.Movimenti[0].Descrizione)
	assert.Equal(t, 3, e.Movimenti[2].Sequenza)
	assert.Equal(t, e.Movimenti[2].Data, e.Movimenti[2].Valuta)

	assert.True(t, e.SaldoIniziale.Equal(d("1000")), "got %s", e.SaldoIniziale)
	assert.True(t, e.SaldoFinale.Equal(d("1249.5")))
	assert.True(t, e.TotaleEntrate.Equal(d("500")))
	assert.True(t, e.TotaleUscite.Equal(d("250.5")))

	ok, msg := ValidaSaldo(e)
	assert.True(t, ok, msg)

	saldi := e.SaldiGiornalieri()
	require.Len(t, saldi, 2)
	assert.True(t, saldi[0].Saldo.Equal(d("1500")))
	assert.True(t, saldi[1].Saldo.Equal(d("1249.5")))
}

func TestParseEstratto_SenzaSaldo(t *testing.T) {
	logger.Discard()

	csvData := `data,valuta,descrizione,importo
2024-02-01,2024-02-01,Incasso,100.00
2024-02-02,2024-02-02,Spese,-30.00`

	e, err := ParseEstratto(strings.NewReader(csvData), "feb.csv")
	require.NoError(t, err)

	assert.True(t, e.SaldoIniziale.IsZero())
	assert.True(t, e.SaldoFinale.Equal(d("70")))
	ok, _ := ValidaSaldo(e)
	assert.True(t, ok)
}

func TestParseEstratto_Mismatch(t *testing.T) {
	logger.Discard()

	csvData := `Data;Valuta;Descrizione;Importo;Saldo
01/03/2024;01/03/2024;A;100,00;100,00
02/03/2024;02/03/2024;B;-10,00;95,00`

	e, err := ParseEstratto(strings.NewReader(csvData), "mar.csv")
	require.NoError(t, err)

	ok, msg := ValidaSaldo(e)
	assert.False(t, ok)
	assert.Contains(t, msg, "differenza=5.00")
}

func TestParseEstratto_Invalid(t *testing.T) {
	logger.Discard()

	_, err := ParseEstratto(strings.NewReader("solo;due\n"), "x.csv")
	assert.Error(t, err)

	_, err = ParseEstratto(strings.NewReader("a;b;c;d\nx;y;z;w\n"), "x.csv")
	assert.Error(t, err)
}
