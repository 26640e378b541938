package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aqlanhadi/gestionale/bilancio"
	"github.com/aqlanhadi/gestionale/config"
	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStudio writes a config file pointing at a fresh database with an
// activated BILANCIO license and one imported trial balance.
func setupStudio(t *testing.T, p bilancio.Periodo) (cfgPath, dbPath string) {
	t.Helper()
	ctx := context.Background()
	logger.Discard()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "studio.db")
	licPath := filepath.Join(dir, "licenze.json")

	yaml := strings.NewReplacer(
		"path: gestionale.db", "path: "+dbPath,
		"file: licenze.json", "file: "+licPath,
		"level: info", "level: error",
	).Replace(config.DefaultYAML)
	cfgPath = filepath.Join(dir, "gestionale.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	db, err := store.Open(ctx, dbPath, "")
	require.NoError(t, err)
	defer db.Close()

	lic := licenza.NewService(licenza.NewStoreRegistry(db), licenza.NewFileLocale(licPath),
		config.Default().License.Secret, []string{licenza.ModuloBilancio})
	l, err := lic.Emetti(ctx, licenza.ModuloBilancio, "Studio")
	require.NoError(t, err)
	require.NoError(t, lic.Attiva(ctx, licenza.ModuloBilancio, l.Chiave))

	_, err = bilancio.NewService(bilancio.NewArchivio(db)).Importa(ctx, p, "Marzo", []bilancio.RigaImport{
		{Riga: 2, Codice: "M1", Descrizione: "Ricavi", Importo: decimal.NewFromInt(1000)},
		{Riga: 3, Codice: "M2", Descrizione: "Costi", Importo: decimal.NewFromInt(400)},
	})
	require.NoError(t, err)
	return cfgPath, dbPath
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	templateDa, templateFile = "", ""
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestBilancioTemplate_DaFileAStatistica(t *testing.T) {
	ctx := context.Background()
	p := bilancio.Periodo{ClienteID: "c1", Mese: 3, Anno: 2024}
	cfgPath, dbPath := setupStudio(t, p)
	periodoArgs := []string{"--cliente", "c1", "--mese", "3", "--anno", "2024"}

	voci := filepath.Join(t.TempDir(), "voci.json")
	require.NoError(t, os.WriteFile(voci, []byte(`[
		{"codice": "A", "descrizione": "TOTALE FATTURATO"},
		{"codice": "B", "descrizione": "Costi", "segno": "-"},
		{"codice": "C", "descrizione": "Margine", "formula": "A - B"}
	]`), 0o644))

	args := append([]string{"--config", cfgPath, "bilancio", "template", "--file", voci}, periodoArgs...)
	require.NoError(t, runCLI(t, args...))

	read := func() (*store.DB, []bilancio.BilancioTemplate) {
		db, err := store.Open(ctx, dbPath, "")
		require.NoError(t, err)
		righe, err := bilancio.NewTemplateService(bilancio.NewArchivio(db)).Elenco(ctx, p)
		require.NoError(t, err)
		return db, righe
	}
	db, righe := read()
	require.Len(t, righe, 3)
	require.NoError(t, db.Close())

	for _, link := range [][]string{{"M1", "Ricavi", righe[0].ID}, {"M2", "Costi", righe[1].ID}} {
		args := append([]string{"--config", cfgPath, "bilancio", "associa"}, link...)
		require.NoError(t, runCLI(t, append(args, periodoArgs...)...))
	}

	db, _ = read()
	stat, err := bilancio.NewStatisticaService(bilancio.NewArchivio(db)).Genera(ctx, p)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.True(t, stat.TotaleFatturato.Equal(decimal.NewFromInt(1000)), "got %s", stat.TotaleFatturato)

	args = append([]string{"--config", cfgPath, "bilancio", "dissocia", "M2", "Costi"}, periodoArgs...)
	require.NoError(t, runCLI(t, args...))
	assert.Error(t, runCLI(t, args...), "already unlinked")

	db, _ = read()
	defer db.Close()
	assoc, err := bilancio.NewAssociazioneService(bilancio.NewArchivio(db)).Get(ctx, p)
	require.NoError(t, err)
	require.Len(t, assoc.Dettagli, 1)
	assert.Equal(t, "M1", assoc.Dettagli[0].CodiceMastrino)
}

func TestBilancioTemplate_FileNonValido(t *testing.T) {
	p := bilancio.Periodo{ClienteID: "c1", Mese: 3, Anno: 2024}
	cfgPath, _ := setupStudio(t, p)

	voci := filepath.Join(t.TempDir(), "voci.csv")
	require.NoError(t, os.WriteFile(voci, []byte("A;Ricavi"), 0o644))
	assert.Error(t, runCLI(t, "--config", cfgPath, "bilancio", "template", "--file", voci,
		"--cliente", "c1", "--mese", "3", "--anno", "2024"))
	assert.Error(t, runCLI(t, "--config", cfgPath, "bilancio", "template", "--file", voci, "--da", "02/2024",
		"--cliente", "c1", "--mese", "3", "--anno", "2024"))
}
