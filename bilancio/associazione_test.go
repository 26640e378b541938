package bilancio

import (
	"context"
	"testing"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociazione_Crea(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := Periodo{ClienteID: "c1", Mese: 4, Anno: 2024}

	assoc, err := s.associazioni.Crea(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 0, assoc.NumeroAssociazioni)

	_, err = s.associazioni.Crea(ctx, p)
	assert.ErrorIs(t, err, ErrAssociazioneDuplicata)

	_, err = s.associazioni.Crea(ctx, Periodo{ClienteID: "c1", Mese: 5, Anno: 2024})
	assert.NoError(t, err, "a different month is a different header")

	for _, bad := range []Periodo{
		{ClienteID: "c1", Mese: 0, Anno: 2024},
		{ClienteID: "c1", Mese: 13, Anno: 2024},
		{ClienteID: "c1", Mese: 1, Anno: 0},
		{Mese: 1, Anno: 2024},
	} {
		_, err := s.associazioni.Crea(ctx, bad)
		assert.ErrorIs(t, err, ErrPeriodoNonValido, "periodo %+v", bad)
	}
}

func TestAssociazione_AssociaRimuovi(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := Periodo{ClienteID: "c1", Mese: 4, Anno: 2024}

	_, err := s.bilanci.Importa(ctx, p, "Gestione", []RigaImport{
		{Codice: "A01", Descrizione: "Vendite", Importo: d("100")},
		{Codice: "A02", Descrizione: "Servizi", Importo: d("40")},
		{Codice: "B01", Descrizione: "Acquisti", Importo: d("-30")},
	})
	require.NoError(t, err)
	require.NoError(t, s.template.Salva(ctx, p, []BilancioTemplate{
		{Codice: "R", Descrizione: "Ricavi"},
		{Codice: "C", Descrizione: "Costi"},
		{Codice: "M", Descrizione: "Margine", Formula: "R+C"},
	}))

	err = s.associazioni.Associa(ctx, p, "A01", "Vendite", voce(s, t, p, "R").ID)
	assert.ErrorIs(t, err, ErrAssociazioneNonTrovata)

	_, err = s.associazioni.Crea(ctx, p)
	require.NoError(t, err)

	r, c := voce(s, t, p, "R").ID, voce(s, t, p, "C").ID
	require.NoError(t, s.associazioni.Associa(ctx, p, "A01", "Vendite", r))
	require.NoError(t, s.associazioni.Associa(ctx, p, "A02", "Servizi", r))
	require.NoError(t, s.associazioni.Associa(ctx, p, "B01", "Acquisti", r))
	// Moving an account to another line replaces its link
	require.NoError(t, s.associazioni.Associa(ctx, p, "B01", "Acquisti", c))

	assert.ErrorIs(t, s.associazioni.Associa(ctx, p, "Z99", "Nulla", r), ErrMastrinoNonTrovato)
	assert.ErrorIs(t, s.associazioni.Associa(ctx, p, "A01", "Vendite", "missing"), ErrTemplateNonTrovato)
	assert.Error(t, s.associazioni.Associa(ctx, p, "A01", "Vendite", voce(s, t, p, "M").ID), "formula lines take no accounts")

	assoc, err := s.associazioni.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3, assoc.NumeroAssociazioni)
	assert.Len(t, assoc.Dettagli, 3)

	liberi, err := s.associazioni.MastriniNonAssociati(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, liberi)

	removed, err := s.associazioni.Rimuovi(ctx, p, "A02", "Servizi")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.associazioni.Rimuovi(ctx, p, "A02", "Servizi")
	require.NoError(t, err)
	assert.False(t, removed)

	assoc, err = s.associazioni.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, assoc.NumeroAssociazioni)

	liberi, err = s.associazioni.MastriniNonAssociati(ctx, p)
	require.NoError(t, err)
	require.Len(t, liberi, 1)
	assert.Equal(t, "A02", liberi[0].CodiceMastrino)

	require.NoError(t, s.associazioni.Elimina(ctx, p))
	_, err = s.associazioni.Get(ctx, p)
	assert.ErrorIs(t, err, ErrAssociazioneNonTrovata)
}

func TestImporta_SostituisceGruppo(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := Periodo{ClienteID: "c1", Mese: 1, Anno: 2024}

	n, err := s.bilanci.Importa(ctx, p, "Economico", []RigaImport{
		{Codice: "A", Importo: d("1")},
		{Codice: "B", Importo: d("2")},
		{Codice: "  ", Importo: d("3")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.bilanci.Importa(ctx, p, "Patrimoniale", []RigaImport{{Codice: "P", Importo: d("9")}})
	require.NoError(t, err)
	_, err = s.bilanci.Importa(ctx, Periodo{ClienteID: "c1", Mese: 2, Anno: 2024}, "Economico", []RigaImport{{Codice: "X", Importo: d("9")}})
	require.NoError(t, err)

	_, err = s.bilanci.Importa(ctx, p, "Economico", []RigaImport{{Codice: "C", Importo: d("5")}})
	require.NoError(t, err)

	righe, err := s.bilanci.Righe(ctx, p)
	require.NoError(t, err)
	var codici []string
	for _, r := range righe {
		codici = append(codici, r.CodiceMastrino)
	}
	assert.Equal(t, []string{"C", "P"}, codici)

	gruppi, err := s.bilanci.Gruppi(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Economico", "Patrimoniale"}, gruppi)

	removed, err := s.bilanci.Elimina(ctx, p, "Patrimoniale")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.bilanci.Importa(ctx, Periodo{ClienteID: "c1", Mese: 0, Anno: 2024}, "", nil)
	assert.ErrorIs(t, err, ErrPeriodoNonValido)
}

func TestTemplate_SalvaCopia(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	da := Periodo{ClienteID: "c1", Mese: 1, Anno: 2024}
	a := Periodo{ClienteID: "c1", Mese: 2, Anno: 2024}

	require.NoError(t, s.template.Salva(ctx, da, []BilancioTemplate{
		{Codice: "1", Descrizione: "TOTALE FATTURATO"},
		{Codice: "2", Descrizione: "Costi", Segno: "-"},
		{Codice: "3", Descrizione: "Utile", Formula: "1 - 2"},
	}))

	voci, err := s.template.Elenco(ctx, da)
	require.NoError(t, err)
	require.Len(t, voci, 3)
	assert.Equal(t, "+", voci[0].Segno)
	assert.Equal(t, 3, voci[2].Ordine)

	n, err := s.template.Copia(ctx, da, a)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	copiate, err := s.template.Elenco(ctx, a)
	require.NoError(t, err)
	require.Len(t, copiate, 3)
	assert.NotEqual(t, voci[0].ID, copiate[0].ID)
	assert.Equal(t, 2, copiate[0].Mese)

	_, err = s.template.Copia(ctx, Periodo{ClienteID: "c9", Mese: 1, Anno: 2024}, a)
	assert.ErrorIs(t, err, ErrTemplateNonTrovato)

	var verr *common.ValidationError
	err = s.template.Salva(ctx, da, []BilancioTemplate{{Codice: "1"}, {Codice: "1"}})
	assert.ErrorAs(t, err, &verr)
	err = s.template.Salva(ctx, da, []BilancioTemplate{{Codice: "1", Segno: "*"}})
	assert.ErrorAs(t, err, &verr)
	err = s.template.Salva(ctx, da, []BilancioTemplate{{Codice: "1", Formula: "A+"}})
	assert.ErrorIs(t, err, ErrFormulaNonValida)
}

func TestTemplate_SalvaIDAltroPeriodo(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	gennaio := Periodo{ClienteID: "c1", Mese: 1, Anno: 2024}
	febbraio := Periodo{ClienteID: "c1", Mese: 2, Anno: 2024}

	require.NoError(t, s.template.Salva(ctx, gennaio, []BilancioTemplate{{Codice: "T1", Descrizione: "Ricavi"}}))
	voci, err := s.template.Elenco(ctx, gennaio)
	require.NoError(t, err)
	require.Len(t, voci, 1)

	require.NoError(t, s.template.Salva(ctx, febbraio, voci))

	restano, err := s.template.Elenco(ctx, gennaio)
	require.NoError(t, err)
	require.Len(t, restano, 1, "january keeps its template")
	assert.Equal(t, voci[0].ID, restano[0].ID)

	nuove, err := s.template.Elenco(ctx, febbraio)
	require.NoError(t, err)
	require.Len(t, nuove, 1)
	assert.NotEqual(t, voci[0].ID, nuove[0].ID)

	// Saving the same period again keeps the ids its mappings point at.
	restano[0].Descrizione = "Ricavi netti"
	require.NoError(t, s.template.Salva(ctx, gennaio, restano))
	dopo, err := s.template.Elenco(ctx, gennaio)
	require.NoError(t, err)
	require.Len(t, dopo, 1)
	assert.Equal(t, voci[0].ID, dopo[0].ID)
	assert.Equal(t, "Ricavi netti", dopo[0].Descrizione)
}
