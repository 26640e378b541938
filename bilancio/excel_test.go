package bilancio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportaExcel(t *testing.T) {
	logger.Discard()

	buf := workbook(t, [][]interface{}{
		{"Codice", "Descrizione", "Importo"},
		{"01.01", "Cassa", 1250.75},
		{"01.02", "Banca", "1.234,56"},
		{"01.03", "Crediti", "1,234.56"},
		{"01.04", "Fornitori", -300},
		{"", "", ""},
		{"", "Senza codice", 10},
		{"01.05", "Errato", "abc"},
		{"01.06", "Senza importo"},
	})

	res, err := ImportaExcel(buf)
	require.NoError(t, err)

	require.Len(t, res.Righe, 4)
	assert.Equal(t, "01.01", res.Righe[0].Codice)
	assert.Equal(t, "Cassa", res.Righe[0].Descrizione)
	assert.True(t, res.Righe[0].Importo.Equal(d("1250.75")), "got %s", res.Righe[0].Importo)
	assert.True(t, res.Righe[1].Importo.Equal(d("1234.56")))
	assert.True(t, res.Righe[2].Importo.Equal(d("1234.56")))
	assert.True(t, res.Righe[3].Importo.Equal(d("-300")))
	assert.Equal(t, 5, res.Righe[3].Riga)

	assert.Equal(t, 3, res.Saltate)
	assert.Len(t, res.Errori, 3)
}

func TestImportaExcel_NotAWorkbook(t *testing.T) {
	_, err := ImportaExcel(bytes.NewBufferString("not a zip"))
	assert.Error(t, err)
}

func TestEsportaExcel(t *testing.T) {
	righe := []BilancioContabile{
		{ClienteID: "c1", Mese: 1, Anno: 2024, CodiceMastrino: "A01", DescrizioneMastrino: "Vendite", Importo: d("100.5"),
			ImportedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ClienteID: "c1", Mese: 1, Anno: 2024, CodiceMastrino: "B01", DescrizioneMastrino: "Acquisti", Importo: d("-40")},
	}

	var buf bytes.Buffer
	require.NoError(t, EsportaExcel(&buf, righe))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(foglioEsportazione, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 10)
	assert.Equal(t, "Cliente", rows[0][0])
	assert.Equal(t, "Importato il", rows[0][9])

	assert.Equal(t, "A01", rows[1][4])
	assert.Equal(t, "100.5", rows[1][6])
	assert.Equal(t, "0", rows[1][7])
	assert.Equal(t, "40", rows[2][7])
	assert.Equal(t, "-40", rows[2][8])

	style, err := f.GetCellStyle(foglioEsportazione, "G2")
	require.NoError(t, err)
	assert.NotZero(t, style)
}

func TestLeggiTemplate(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Codice", "Descrizione", "Segno", "Formula"},
		{"A", "TOTALE FATTURATO"},
		{"B", "Costi", "-"},
		{},
		{"C", "Utile", "", "A - B"},
	})
	voci, err := LeggiTemplate(buf, "voci.xlsx")
	require.NoError(t, err)
	require.Len(t, voci, 3)
	assert.Equal(t, "B", voci[1].Codice)
	assert.Equal(t, "-", voci[1].Segno)
	assert.Equal(t, "A - B", voci[2].Formula)
	assert.Equal(t, 3, voci[2].Ordine)

	voci, err = LeggiTemplate(strings.NewReader(`[{"codice":"A","descrizione":"Ricavi","segno":"+"}]`), "voci.JSON")
	require.NoError(t, err)
	require.Len(t, voci, 1)
	assert.Equal(t, "Ricavi", voci[0].Descrizione)

	_, err = LeggiTemplate(workbook(t, [][]interface{}{{"Codice"}, {"", "Senza codice"}}), "voci.xlsx")
	assert.Error(t, err)
	_, err = LeggiTemplate(strings.NewReader("{"), "voci.json")
	assert.Error(t, err)
	_, err = LeggiTemplate(strings.NewReader(""), "voci.csv")
	assert.Error(t, err)
}
