package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/jackc/pgx/v5"
)

// Registry is the license registry backed by the licenze table.
type Registry struct {
	db *DB
}

func (db *DB) Registry() *Registry {
	return &Registry{db: db}
}

// Registra records an issued key. Re-registering a key updates its owner.
func (r *Registry) Registra(ctx context.Context, l licenza.Licenza) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO licenze (chiave, modulo, guid, intestatario, emessa_il)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chiave) DO UPDATE
		SET intestatario = EXCLUDED.intestatario
	`, l.Chiave, l.Modulo, l.GUID, l.Intestatario, l.EmessaIl)
	if err != nil {
		return fmt.Errorf("failed to register license: %w", err)
	}
	r.db.log.Debug().Str("modulo", l.Modulo).Msg("License registered")
	return nil
}

// Trova looks a key up, returning licenza.ErrLicenzaNonTrovata when absent.
func (r *Registry) Trova(ctx context.Context, chiave string) (*licenza.Licenza, error) {
	var l licenza.Licenza
	err := r.db.Pool.QueryRow(ctx, `
		SELECT chiave, modulo, guid::text, intestatario, emessa_il, revocata_il
		FROM licenze WHERE chiave = $1
	`, chiave).Scan(&l.Chiave, &l.Modulo, &l.GUID, &l.Intestatario, &l.EmessaIl, &l.RevocataIl)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, licenza.ErrLicenzaNonTrovata
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up license: %w", err)
	}
	return &l, nil
}

// Revoca marks a key revoked. Revoking twice keeps the first date.
func (r *Registry) Revoca(ctx context.Context, chiave string, quando time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE licenze SET revocata_il = COALESCE(revocata_il, $2) WHERE chiave = $1
	`, chiave, quando)
	if err != nil {
		return fmt.Errorf("failed to revoke license: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return licenza.ErrLicenzaNonTrovata
	}
	return nil
}

// Elenco lists the registry, newest first, optionally for one module.
func (r *Registry) Elenco(ctx context.Context, modulo string) ([]licenza.Licenza, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT chiave, modulo, guid::text, intestatario, emessa_il, revocata_il
		FROM licenze
		WHERE $1::text = '' OR modulo = $1
		ORDER BY emessa_il DESC
	`, modulo)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}
	defer rows.Close()

	var out []licenza.Licenza
	for rows.Next() {
		var l licenza.Licenza
		if err := rows.Scan(&l.Chiave, &l.Modulo, &l.GUID, &l.Intestatario, &l.EmessaIl, &l.RevocataIl); err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

var _ licenza.Registry = (*Registry)(nil)
