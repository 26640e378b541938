package banca

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Raggruppamento selects the row dimension of a pivot.
type Raggruppamento string

const (
	PerCategoria Raggruppamento = "categoria"
	PerBanca     Raggruppamento = "banca"
)

// Movement kinds used in pivots.
const (
	TipoIncassi   = "incassi"
	TipoPagamenti = "pagamenti"
)

const senzaCategoria = "Senza categoria"

// DettaglioPivot is one movement behind a pivot cell.
type DettaglioPivot struct {
	BancaID     string          `json:"banca_id"`
	Banca       string          `json:"banca"`
	ID          string          `json:"id"`
	Descrizione string          `json:"descrizione"`
	Data        time.Time       `json:"data"`
	Importo     decimal.Decimal `json:"importo"`
	Chiuso      bool            `json:"chiuso"`
}

// CellaPivot is the total of one row for one month plus the drill-down.
type CellaPivot struct {
	Totale   decimal.Decimal  `json:"totale"`
	Dettagli []DettaglioPivot `json:"dettagli"`
}

// RigaPivot is one row: a category, or a bank identified by Chiave.
type RigaPivot struct {
	Chiave    string          `json:"chiave"`
	Etichetta string          `json:"etichetta"`
	Mesi      [12]CellaPivot  `json:"mesi"`
	Totale    decimal.Decimal `json:"totale"`
}

// Pivot is a rows × months aggregation of incassi or pagamenti for one year.
// It carries no presentation concerns; renderers map it to widgets.
type Pivot struct {
	Anno           int                 `json:"anno"`
	Tipo           string              `json:"tipo"`
	Raggruppamento Raggruppamento      `json:"raggruppamento"`
	Righe          []RigaPivot         `json:"righe"`
	TotaliMese     [12]decimal.Decimal `json:"totali_mese"`
	Totale         decimal.Decimal     `json:"totale"`
}

type voce struct {
	categoria string
	dettaglio DettaglioPivot
}

// PivotIncassi aggregates receivables by due month.
func PivotIncassi(banche []Banca, anno int, r Raggruppamento) Pivot {
	var voci []voce
	for _, b := range banche {
		for _, inc := range b.Incassi {
			voci = append(voci, voce{
				categoria: inc.Categoria,
				dettaglio: DettaglioPivot{
					BancaID: b.ID, Banca: b.Nome, ID: inc.ID, Descrizione: inc.Descrizione,
					Data: inc.DataScadenza, Importo: inc.Importo, Chiuso: inc.Incassato,
				},
			})
		}
	}
	return costruisciPivot(voci, anno, TipoIncassi, r)
}

// PivotPagamenti aggregates payables by due month.
func PivotPagamenti(banche []Banca, anno int, r Raggruppamento) Pivot {
	var voci []voce
	for _, b := range banche {
		for _, pag := range b.Pagamenti {
			voci = append(voci, voce{
				categoria: pag.Categoria,
				dettaglio: DettaglioPivot{
					BancaID: b.ID, Banca: b.Nome, ID: pag.ID, Descrizione: pag.Descrizione,
					Data: pag.DataScadenza, Importo: pag.Importo, Chiuso: pag.Pagato,
				},
			})
		}
	}
	return costruisciPivot(voci, anno, TipoPagamenti, r)
}

func costruisciPivot(voci []voce, anno int, tipo string, r Raggruppamento) Pivot {
	p := Pivot{Anno: anno, Tipo: tipo, Raggruppamento: r, Totale: decimal.Zero}
	for m := range p.TotaliMese {
		p.TotaliMese[m] = decimal.Zero
	}

	righe := make(map[string]*RigaPivot)
	for _, v := range voci {
		if v.dettaglio.Data.Year() != anno {
			continue
		}
		chiave, etichetta := v.categoria, v.categoria
		if r == PerBanca {
			// Banks may share a name; rows are per bank id.
			chiave, etichetta = v.dettaglio.BancaID, v.dettaglio.Banca
		}
		if etichetta == "" {
			etichetta = senzaCategoria
		}
		if chiave == "" {
			chiave = etichetta
		}

		riga, ok := righe[chiave]
		if !ok {
			riga = &RigaPivot{Chiave: chiave, Etichetta: etichetta, Totale: decimal.Zero}
			for m := range riga.Mesi {
				riga.Mesi[m].Totale = decimal.Zero
			}
			righe[chiave] = riga
		}

		m := int(v.dettaglio.Data.Month()) - 1
		cella := &riga.Mesi[m]
		cella.Totale = cella.Totale.Add(v.dettaglio.Importo)
		cella.Dettagli = append(cella.Dettagli, v.dettaglio)
		riga.Totale = riga.Totale.Add(v.dettaglio.Importo)
		p.TotaliMese[m] = p.TotaliMese[m].Add(v.dettaglio.Importo)
		p.Totale = p.Totale.Add(v.dettaglio.Importo)
	}

	for _, riga := range righe {
		for m := range riga.Mesi {
			sort.SliceStable(riga.Mesi[m].Dettagli, func(i, j int) bool {
				return riga.Mesi[m].Dettagli[i].Data.Before(riga.Mesi[m].Dettagli[j].Data)
			})
		}
		p.Righe = append(p.Righe, *riga)
	}
	sort.Slice(p.Righe, func(i, j int) bool {
		if p.Righe[i].Etichetta != p.Righe[j].Etichetta {
			return p.Righe[i].Etichetta < p.Righe[j].Etichetta
		}
		return p.Righe[i].Chiave < p.Righe[j].Chiave
	})
	return p
}
