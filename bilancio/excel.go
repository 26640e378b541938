package bilancio

import (
	"fmt"
	"io"
	"strings"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Worksheet columns of a trial-balance import
const (
	colCodice      = 0
	colDescrizione = 1
	colImporto     = 2
)

// RisultatoExcel holds the rows read from a workbook and the rows rejected.
type RisultatoExcel struct {
	Righe   []RigaImport `json:"righe"`
	Saltate int          `json:"saltate"`
	Errori  []string     `json:"errori"`
}

// ImportaExcel reads the first worksheet of a trial-balance workbook laid out
// as code, description, amount. The header row is skipped. Numeric cells are
// taken as they are; text cells are parsed in Italian or invariant format.
// Bad rows are reported in the result and do not stop the import.
func ImportaExcel(r io.Reader) (*RisultatoExcel, error) {
	log := logger.WithComponent("excel")

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no worksheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", sheet, err)
	}

	res := &RisultatoExcel{}
	for i, row := range rows {
		numero := i + 1
		if i == 0 || rigaVuota(row) {
			continue
		}

		codice := cella(row, colCodice)
		if codice == "" {
			res.Saltate++
			res.Errori = append(res.Errori, fmt.Sprintf("row %d: missing account code", numero))
			continue
		}
		raw := cella(row, colImporto)
		if raw == "" {
			res.Saltate++
			res.Errori = append(res.Errori, fmt.Sprintf("row %d: missing amount for %s", numero, codice))
			continue
		}

		axis, _ := excelize.CoordinatesToCellName(colImporto+1, numero)
		importo, err := leggiImporto(f, sheet, axis, raw)
		if err != nil {
			log.Warn().Err(err).Int("row", numero).Msg("Skipping row with invalid amount")
			res.Saltate++
			res.Errori = append(res.Errori, fmt.Sprintf("row %d: %v", numero, err))
			continue
		}

		res.Righe = append(res.Righe, RigaImport{
			Riga:        numero,
			Codice:      codice,
			Descrizione: cella(row, colDescrizione),
			Importo:     importo,
		})
	}

	log.Debug().Str("sheet", sheet).Int("righe", len(res.Righe)).Int("saltate", res.Saltate).Msg("Workbook read")
	return res, nil
}

func leggiImporto(f *excelize.File, sheet, axis, raw string) (decimal.Decimal, error) {
	tipo, err := f.GetCellType(sheet, axis)
	if err != nil {
		return decimal.Zero, err
	}
	switch tipo {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return common.ParseImporto(raw)
	}
	if v, err := decimal.NewFromString(raw); err == nil {
		return v, nil
	}
	return common.ParseImporto(raw)
}

func cella(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func rigaVuota(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Worksheet columns of a template import
const (
	colVoceCodice      = 0
	colVoceDescrizione = 1
	colVoceSegno       = 2
	colVoceFormula     = 3
)

// ImportaTemplateExcel reads template lines laid out as code, description,
// sign, formula from the first worksheet. The header row is skipped and row
// order becomes statement order. A line without a code fails the whole read.
func ImportaTemplateExcel(r io.Reader) ([]BilancioTemplate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no worksheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", sheets[0], err)
	}

	var voci []BilancioTemplate
	for i, row := range rows {
		if i == 0 || rigaVuota(row) {
			continue
		}
		codice := cella(row, colVoceCodice)
		if codice == "" {
			return nil, common.NewValidationError("codice", "", fmt.Sprintf("row %d: missing template code", i+1))
		}
		voci = append(voci, BilancioTemplate{
			Codice:      codice,
			Descrizione: cella(row, colVoceDescrizione),
			Segno:       cella(row, colVoceSegno),
			Formula:     cella(row, colVoceFormula),
			Ordine:      len(voci) + 1,
		})
	}
	return voci, nil
}

const foglioEsportazione = "Bilancio"

var intestazioneEsportazione = []interface{}{
	"Cliente", "Mese", "Anno", "Descrizione bilancio", "Codice mastrino",
	"Descrizione mastrino", "Dare", "Avere", "Saldo", "Importato il",
}

// EsportaExcel writes trial-balance rows as a ten-column worksheet with
// currency formatting on the amount columns.
func EsportaExcel(w io.Writer, righe []BilancioContabile) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", foglioEsportazione); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return err
	}
	euro := `#,##0.00 "€";-#,##0.00 "€"`
	valuta, err := f.NewStyle(&excelize.Style{CustomNumFmt: &euro})
	if err != nil {
		return err
	}
	dataFmt := "dd/mm/yyyy"
	data, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dataFmt})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(foglioEsportazione, "A1", &intestazioneEsportazione); err != nil {
		return err
	}
	if err := f.SetCellStyle(foglioEsportazione, "A1", "J1", header); err != nil {
		return err
	}

	for i, r := range righe {
		dare, avere := decimal.Zero, decimal.Zero
		if r.Importo.IsNegative() {
			avere = r.Importo.Abs()
		} else {
			dare = r.Importo
		}
		var importato interface{} = ""
		if !r.ImportedAt.IsZero() {
			importato = r.ImportedAt
		}
		row := []interface{}{
			r.ClienteID, r.Mese, r.Anno, r.DescrizioneBilancio, r.CodiceMastrino, r.DescrizioneMastrino,
			dare.InexactFloat64(), avere.InexactFloat64(), r.Importo.InexactFloat64(), importato,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(foglioEsportazione, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if last := len(righe) + 1; last > 1 {
		if err := f.SetCellStyle(foglioEsportazione, "G2", fmt.Sprintf("I%d", last), valuta); err != nil {
			return err
		}
		if err := f.SetCellStyle(foglioEsportazione, "J2", fmt.Sprintf("J%d", last), data); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(foglioEsportazione, "A", "J", 16); err != nil {
		return err
	}
	if err := f.SetColWidth(foglioEsportazione, "F", "F", 40); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
