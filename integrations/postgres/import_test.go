package postgres

import (
	"testing"

	"github.com/aqlanhadi/gestionale/bilancio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodoDaNomeFile(t *testing.T) {
	tests := []struct {
		path        string
		periodo     bilancio.Periodo
		descrizione string
	}{
		{"/tmp/ACME_2024_3.xlsx", bilancio.Periodo{ClienteID: "ACME", Anno: 2024, Mese: 3}, ""},
		{"C0042_2023_12_verifica_finale.xlsx", bilancio.Periodo{ClienteID: "C0042", Anno: 2023, Mese: 12}, "verifica finale"},
		{"x_2024_01_Provvisorio.XLSX", bilancio.Periodo{ClienteID: "x", Anno: 2024, Mese: 1}, "Provvisorio"},
	}
	for _, test := range tests {
		p, descrizione, err := PeriodoDaNomeFile(test.path)
		require.NoError(t, err, test.path)
		assert.Equal(t, test.periodo, p)
		assert.Equal(t, test.descrizione, descrizione)
	}

	for _, bad := range []string{"bilancio.xlsx", "ACME_2024.xlsx", "ACME_2024_13.xlsx", "ACME_24_3.xlsx"} {
		_, _, err := PeriodoDaNomeFile(bad)
		assert.Error(t, err, bad)
	}
}
