package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/aqlanhadi/gestionale/bilancio"
)

// ImportResult tracks the outcome of an import operation
type ImportResult struct {
	Processed int
	Skipped   int
	Failed    int
	Errors    []string
}

// ImportOptions configures the import behavior
type ImportOptions struct {
	Force       bool              // Replace trial balances already in the database
	Periodo     *bilancio.Periodo // Overrides the period read from the file name
	Descrizione string            // Overrides the description read from the file name
	Locale      *bilancio.Service // When set, imported balances are also loaded into the local store
	Verbose     bool
}

// Workbook names follow <cliente>_<anno>_<mese>[_<descrizione>].xlsx
var nomeBilancio = regexp.MustCompile(`^([^_]+)_(\d{4})_(\d{1,2})(?:_(.+))?$`)

// PeriodoDaNomeFile reads the period and description encoded in a workbook name.
func PeriodoDaNomeFile(path string) (bilancio.Periodo, string, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m := nomeBilancio.FindStringSubmatch(base)
	if m == nil {
		return bilancio.Periodo{}, "", fmt.Errorf("file name %q does not match <cliente>_<anno>_<mese>[_<descrizione>]", filepath.Base(path))
	}
	anno, _ := strconv.Atoi(m[2])
	mese, _ := strconv.Atoi(m[3])
	p := bilancio.Periodo{ClienteID: m[1], Anno: anno, Mese: mese}
	if err := p.Valida(); err != nil {
		return bilancio.Periodo{}, "", err
	}
	return p, strings.ReplaceAll(m[4], "_", " "), nil
}

// ImportFile loads a single xlsx workbook into the database.
// Returns: processed count, skipped count, failed count, error messages
func (db *DB) ImportFile(ctx context.Context, filePath string, opts ImportOptions) (processed int, skipped int, failed int, errors []string) {
	fileName := filepath.Base(filePath)

	p, descrizione, err := PeriodoDaNomeFile(filePath)
	if opts.Periodo != nil {
		p, err = *opts.Periodo, opts.Periodo.Valida()
	}
	if opts.Descrizione != "" {
		descrizione = opts.Descrizione
	}
	if err != nil {
		return 0, 0, 1, []string{fmt.Sprintf("%s: %v", fileName, err)}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return 0, 0, 1, []string{fmt.Sprintf("%s: failed to open file: %v", fileName, err)}
	}
	defer f.Close()

	res, err := bilancio.ImportaExcel(f)
	if err != nil {
		return 0, 0, 1, []string{fmt.Sprintf("%s: %v", fileName, err)}
	}
	for _, e := range res.Errori {
		errors = append(errors, fmt.Sprintf("%s [%s]: %s", fileName, p, e))
	}
	if len(res.Righe) == 0 {
		return 0, 0, 1, append(errors, fmt.Sprintf("%s [%s]: no account lines read", fileName, p))
	}

	// Check if the trial balance exists (natural key: client + period + description)
	exists, existingID, err := db.BilancioExists(ctx, p, descrizione)
	if err != nil {
		return 0, 0, 1, append(errors, fmt.Sprintf("%s [%s]: check error: %v", fileName, p, err))
	}
	if exists && !opts.Force {
		if opts.Verbose {
			db.log.Info().Str("file", fileName).Str("periodo", p.String()).Msg("SKIP (already exists)")
		}
		return 0, 1, 0, errors
	}

	// If forcing, delete existing trial balance first
	if exists {
		if err := db.DeleteBilancio(ctx, existingID); err != nil {
			return 0, 0, 1, append(errors, fmt.Sprintf("%s [%s]: delete error: %v", fileName, p, err))
		}
	}

	if _, err := db.CreateBilancio(ctx, p, descrizione, fileName, res.Righe); err != nil {
		return 0, 0, 1, append(errors, fmt.Sprintf("%s [%s]: %v", fileName, p, err))
	}

	if opts.Locale != nil {
		if _, err := opts.Locale.Importa(ctx, p, descrizione, res.Righe); err != nil {
			errors = append(errors, fmt.Sprintf("%s [%s]: local store: %v", fileName, p, err))
		}
	}

	if opts.Verbose {
		db.log.Info().Str("file", fileName).Str("periodo", p.String()).Int("righe", len(res.Righe)).Int("saltate", res.Saltate).Msg("OK")
	}
	return 1, 0, 0, errors
}

// ImportDirectory processes all xlsx workbooks in a directory
func (db *DB) ImportDirectory(ctx context.Context, dirPath string, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	// A period override makes no sense across many workbooks
	opts.Periodo = nil
	opts.Descrizione = ""

	var dataFiles []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".xlsx") {
			dataFiles = append(dataFiles, filepath.Join(dirPath, e.Name()))
		}
	}

	db.log.Info().Str("dir", dirPath).Int("files", len(dataFiles)).Msg("Scanning")

	for _, filePath := range dataFiles {
		processed, skipped, failed, errors := db.ImportFile(ctx, filePath, opts)

		result.Processed += processed
		result.Skipped += skipped
		result.Failed += failed
		result.Errors = append(result.Errors, errors...)

		if opts.Verbose && failed > 0 {
			for _, errMsg := range errors {
				db.log.Warn().Msg("FAIL " + errMsg)
			}
		}
	}

	return result, nil
}

// Import handles both file and directory imports
func (db *DB) Import(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return db.ImportDirectory(ctx, path, opts)
	}

	// Single file
	result := &ImportResult{}
	processed, skipped, failed, errors := db.ImportFile(ctx, path, opts)

	result.Processed = processed
	result.Skipped = skipped
	result.Failed = failed
	result.Errors = errors

	return result, nil
}
