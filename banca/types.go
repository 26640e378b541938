package banca

import (
	"time"

	"github.com/shopspring/decimal"
)

// Banca is a checking account with its credit lines and scheduled movements.
type Banca struct {
	ID              string             `json:"id"`
	Nome            string             `json:"nome"`
	IBAN            string             `json:"iban,omitempty"`
	Saldo           decimal.Decimal    `json:"saldo"`
	FidoAccordato   decimal.Decimal    `json:"fido_accordato"`
	PlafondAnticipi decimal.Decimal    `json:"plafond_anticipi"`
	TassoAnticipo   decimal.Decimal    `json:"tasso_anticipo"` // annual percentage
	Incassi         []Incasso          `json:"incassi"`
	Pagamenti       []Pagamento        `json:"pagamenti"`
	Saldi           []SaldoGiornaliero `json:"saldi"`
	Utilizzi        []UtilizzoAnticipo `json:"utilizzi_anticipo"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Incasso is an expected receivable.
type Incasso struct {
	ID           string          `json:"id"`
	Descrizione  string          `json:"descrizione"`
	Categoria    string          `json:"categoria"`
	Cliente      string          `json:"cliente,omitempty"`
	DataScadenza time.Time       `json:"data_scadenza"`
	Importo      decimal.Decimal `json:"importo"`
	Incassato    bool            `json:"incassato"`
	DataIncasso  *time.Time      `json:"data_incasso,omitempty"`
	Anticipo     *Anticipo       `json:"anticipo,omitempty"`
}

// Pagamento is an expected payable.
type Pagamento struct {
	ID            string          `json:"id"`
	Descrizione   string          `json:"descrizione"`
	Categoria     string          `json:"categoria"`
	Fornitore     string          `json:"fornitore,omitempty"`
	DataScadenza  time.Time       `json:"data_scadenza"`
	Importo       decimal.Decimal `json:"importo"`
	Pagato        bool            `json:"pagato"`
	DataPagamento *time.Time      `json:"data_pagamento,omitempty"`
}

// Anticipo records that an invoice was discounted with the bank.
type Anticipo struct {
	Importo    decimal.Decimal `json:"importo"`
	DataInizio time.Time       `json:"data_inizio"`
}

// SaldoGiornaliero is a balance snapshot for one day.
type SaldoGiornaliero struct {
	Data  time.Time       `json:"data"`
	Saldo decimal.Decimal `json:"saldo"`
}

// UtilizzoAnticipo is the history of advance drawdowns.
type UtilizzoAnticipo struct {
	Data      time.Time       `json:"data"`
	Importo   decimal.Decimal `json:"importo"`
	IncassoID string          `json:"incasso_id"`
}

// Severita ranks alerts.
type Severita string

const (
	SeveritaInfo     Severita = "info"
	SeveritaWarning  Severita = "warning"
	SeveritaCritical Severita = "critical"
)

// Alert is a message produced by the alert rules for one bank.
type Alert struct {
	BancaID   string          `json:"banca_id"`
	Banca     string          `json:"banca"`
	Severita  Severita        `json:"severita"`
	Tipo      string          `json:"tipo"`
	Messaggio string          `json:"messaggio"`
	Importo   decimal.Decimal `json:"importo"`
	Scadenza  *time.Time      `json:"scadenza,omitempty"`
}

// Alert kinds.
const (
	AlertFidoSuperato       = "fido_superato"
	AlertFidoInEsaurimento  = "fido_in_esaurimento"
	AlertSaldoNegativo      = "saldo_negativo"
	AlertPlafondSuperato    = "plafond_superato"
	AlertIncassoInScadenza  = "incasso_in_scadenza"
	AlertPagamentoScadenza  = "pagamento_in_scadenza"
	AlertAnticipoInScadenza = "anticipo_in_scadenza"
	AlertPagamentoScaduto   = "pagamento_scaduto"
	AlertIncassoScaduto     = "incasso_scaduto"
)

// Soglie configures the alert rules.
type Soglie struct {
	GiorniIncassi   int
	GiorniPagamenti int
	GiorniAnticipi  int
	SogliaFido      decimal.Decimal // ratio, e.g. 0.90
}

// DefaultSoglie returns the standard lookahead windows.
func DefaultSoglie() Soglie {
	return Soglie{
		GiorniIncassi:   7,
		GiorniPagamenti: 3,
		GiorniAnticipi:  5,
		SogliaFido:      decimal.NewFromFloat(0.9),
	}
}

// Riepilogo is the rollup across all banks.
type Riepilogo struct {
	NumeroBanche          int             `json:"numero_banche"`
	SaldoTotale           decimal.Decimal `json:"saldo_totale"`
	FidoAccordato         decimal.Decimal `json:"fido_accordato"`
	FidoUtilizzato        decimal.Decimal `json:"fido_utilizzato"`
	FidoDisponibile       decimal.Decimal `json:"fido_disponibile"`
	PlafondAnticipi       decimal.Decimal `json:"plafond_anticipi"`
	AnticipiUtilizzati    decimal.Decimal `json:"anticipi_utilizzati"`
	InteressiMaturati     decimal.Decimal `json:"interessi_maturati"`
	IncassiDaRicevere     decimal.Decimal `json:"incassi_da_ricevere"`
	PagamentiDaEffettuare decimal.Decimal `json:"pagamenti_da_effettuare"`
	BancheInNegativo      int             `json:"banche_in_negativo"`
	BancheFidoSuperato    int             `json:"banche_fido_superato"`
}

// PuntoProiezione is one day of a projected balance series.
type PuntoProiezione struct {
	Data      time.Time       `json:"data"`
	Entrate   decimal.Decimal `json:"entrate"`
	Uscite    decimal.Decimal `json:"uscite"`
	Saldo     decimal.Decimal `json:"saldo"`
	SottoFido bool            `json:"sotto_fido"`
}
