// Package bilancio imports client trial balances, maps their ledger accounts
// onto a statement template and generates the resulting statement.
package bilancio

import (
	"errors"
	"fmt"
	"time"

	"github.com/aqlanhadi/gestionale/store"
	"github.com/shopspring/decimal"
)

var (
	ErrAssociazioneNonTrovata = errors.New("no account mapping for this client and period")
	ErrAssociazioneDuplicata  = errors.New("account mapping already exists for this client and period")
	ErrPeriodoNonValido       = errors.New("invalid period")
	ErrTemplateNonTrovato     = errors.New("no statement template for this client and period")
	ErrMastrinoNonTrovato     = errors.New("ledger account not in the current trial balance")
)

// MarcatoreFatturato identifies the revenue line percentages are computed against.
const MarcatoreFatturato = "TOTALE FATTURATO"

// Periodo identifies one client's month.
type Periodo struct {
	ClienteID string `json:"cliente_id"`
	Mese      int    `json:"mese"`
	Anno      int    `json:"anno"`
}

// Valida rejects empty clients, months outside 1-12 and implausible years.
func (p Periodo) Valida() error {
	if p.ClienteID == "" {
		return fmt.Errorf("%w: client is required", ErrPeriodoNonValido)
	}
	if p.Mese < 1 || p.Mese > 12 {
		return fmt.Errorf("%w: month %d", ErrPeriodoNonValido, p.Mese)
	}
	if p.Anno < 1900 || p.Anno > 9999 {
		return fmt.Errorf("%w: year %d", ErrPeriodoNonValido, p.Anno)
	}
	return nil
}

func (p Periodo) String() string {
	return fmt.Sprintf("%s %02d/%d", p.ClienteID, p.Mese, p.Anno)
}

func (p Periodo) contiene(clienteID string, mese, anno int) bool {
	return p.ClienteID == clienteID && p.Mese == mese && p.Anno == anno
}

// BilancioContabile is one imported trial-balance row.
type BilancioContabile struct {
	ID                  string          `json:"id"`
	ClienteID           string          `json:"cliente_id"`
	Mese                int             `json:"mese"`
	Anno                int             `json:"anno"`
	DescrizioneBilancio string          `json:"descrizione_bilancio"`
	CodiceMastrino      string          `json:"codice_mastrino"`
	DescrizioneMastrino string          `json:"descrizione_mastrino"`
	Importo             decimal.Decimal `json:"importo"`
	ImportedAt          time.Time       `json:"imported_at"`
}

// BilancioTemplate is one statement line of a client's template.
type BilancioTemplate struct {
	ID                  string `json:"id"`
	ClienteID           string `json:"cliente_id"`
	Mese                int    `json:"mese"`
	Anno                int    `json:"anno"`
	DescrizioneBilancio string `json:"descrizione_bilancio"`
	Codice              string `json:"codice"`
	Descrizione         string `json:"descrizione"`
	Segno               string `json:"segno"` // "+" or "-"
	Formula             string `json:"formula,omitempty"`
	Ordine              int    `json:"ordine"`
}

// Negativo reports whether mapped amounts are subtracted.
func (t BilancioTemplate) Negativo() bool {
	return t.Segno == "-"
}

// AssociazioneMastrino is the mapping header for a client's month.
type AssociazioneMastrino struct {
	ID                 string                  `json:"id"`
	ClienteID          string                  `json:"cliente_id"`
	Mese               int                     `json:"mese"`
	Anno               int                     `json:"anno"`
	NumeroAssociazioni int                     `json:"numero_associazioni"`
	Dettagli           []AssociazioneDettaglio `json:"dettagli"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// AssociazioneDettaglio links one ledger account to a template line.
// Importo is the value seen when the link was saved.
type AssociazioneDettaglio struct {
	CodiceMastrino      string          `json:"codice_mastrino"`
	DescrizioneMastrino string          `json:"descrizione_mastrino"`
	TemplateID          string          `json:"template_id"`
	Importo             decimal.Decimal `json:"importo"`
}

type chiaveMastrino struct {
	codice      string
	descrizione string
}

func (d AssociazioneDettaglio) chiave() chiaveMastrino {
	return chiaveMastrino{d.CodiceMastrino, d.DescrizioneMastrino}
}

func (r BilancioContabile) chiave() chiaveMastrino {
	return chiaveMastrino{r.CodiceMastrino, r.DescrizioneMastrino}
}

// RigaStatistica is one generated statement line.
type RigaStatistica struct {
	TemplateID  string                  `json:"template_id"`
	Codice      string                  `json:"codice"`
	Descrizione string                  `json:"descrizione"`
	Ordine      int                     `json:"ordine"`
	Formula     string                  `json:"formula,omitempty"`
	Valore      decimal.Decimal         `json:"valore"`
	Percentuale decimal.Decimal         `json:"percentuale"`
	Mastrini    []AssociazioneDettaglio `json:"mastrini,omitempty"`
}

// Statistica is a generated statement for one client's month.
type Statistica struct {
	Periodo         Periodo          `json:"periodo"`
	Righe           []RigaStatistica `json:"righe"`
	TotaleFatturato decimal.Decimal  `json:"totale_fatturato"`
	Esclusi         int              `json:"esclusi"` // stale mappings left out
}

// Archivio groups the collections the bilancio services share.
type Archivio struct {
	righe        *store.Collection[BilancioContabile]
	template     *store.Collection[BilancioTemplate]
	associazioni *store.Collection[AssociazioneMastrino]
}

func NewArchivio(db *store.DB) *Archivio {
	return &Archivio{
		righe:        store.NewCollection[BilancioContabile](db, store.CollBilanci),
		template:     store.NewCollection[BilancioTemplate](db, store.CollTemplate),
		associazioni: store.NewCollection[AssociazioneMastrino](db, store.CollAssociazioni),
	}
}
