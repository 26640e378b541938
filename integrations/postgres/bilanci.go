package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aqlanhadi/gestionale/bilancio"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BilancioExists checks if a trial balance already exists using natural key
func (db *DB) BilancioExists(ctx context.Context, p bilancio.Periodo, descrizione string) (bool, string, error) {
	var id string
	err := db.Pool.QueryRow(ctx, `
		SELECT id::text FROM bilanci
		WHERE cliente_id = $1 AND anno = $2 AND mese = $3 AND descrizione = $4
	`, p.ClienteID, p.Anno, p.Mese, descrizione).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to check trial balance: %w", err)
	}
	return true, id, nil
}

// CreateBilancio inserts the header and its lines in one transaction.
func (db *DB) CreateBilancio(ctx context.Context, p bilancio.Periodo, descrizione, source string, righe []bilancio.RigaImport) (string, error) {
	totale := decimal.Zero
	for _, r := range righe {
		totale = totale.Add(r.Importo)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO bilanci (cliente_id, mese, anno, descrizione, source, totale)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text
	`, p.ClienteID, p.Mese, p.Anno, descrizione, source, totale).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create trial balance: %w", err)
	}

	if len(righe) > 0 {
		batch := &pgx.Batch{}
		for i, r := range righe {
			riga := r.Riga
			if riga == 0 {
				riga = i + 1
			}
			batch.Queue(`
				INSERT INTO bilancio_righe (bilancio_id, riga, codice_mastrino, descrizione_mastrino, importo)
				VALUES ($1, $2, $3, $4, $5)
			`, id, riga, r.Codice, r.Descrizione, r.Importo)
		}

		br := tx.SendBatch(ctx, batch)
		for range righe {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return "", fmt.Errorf("failed to insert trial balance line: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return "", fmt.Errorf("failed to insert trial balance lines: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit trial balance: %w", err)
	}
	return id, nil
}

// DeleteBilancio removes a trial balance and its lines (cascade)
func (db *DB) DeleteBilancio(ctx context.Context, id string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM bilanci WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trial balance: %w", err)
	}
	return nil
}

// RigheBilancio reads back the lines of a trial balance in file order.
func (db *DB) RigheBilancio(ctx context.Context, id string) ([]bilancio.RigaImport, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT riga, codice_mastrino, descrizione_mastrino, importo
		FROM bilancio_righe WHERE bilancio_id = $1 ORDER BY riga
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read trial balance lines: %w", err)
	}
	defer rows.Close()

	var out []bilancio.RigaImport
	for rows.Next() {
		var r bilancio.RigaImport
		if err := rows.Scan(&r.Riga, &r.Codice, &r.Descrizione, &r.Importo); err != nil {
			return nil, fmt.Errorf("failed to scan trial balance line: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
