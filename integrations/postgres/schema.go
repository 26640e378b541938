package postgres

import (
	"context"
	"fmt"
)

const ddl = `
-- License registry shared by every workstation
CREATE TABLE IF NOT EXISTS licenze (
    chiave VARCHAR(64) PRIMARY KEY,
    modulo VARCHAR(50) NOT NULL,
    guid UUID NOT NULL,
    intestatario VARCHAR(255) NOT NULL DEFAULT '',
    emessa_il TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    revocata_il TIMESTAMPTZ
);

-- Trial balances with natural key (cliente_id, anno, mese, descrizione)
CREATE TABLE IF NOT EXISTS bilanci (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    cliente_id VARCHAR(64) NOT NULL,
    mese SMALLINT NOT NULL CHECK (mese BETWEEN 1 AND 12),
    anno SMALLINT NOT NULL,
    descrizione VARCHAR(255) NOT NULL DEFAULT '',
    source VARCHAR(255) NOT NULL DEFAULT '',
    totale NUMERIC(18,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW(),

    -- Natural key for deduplication
    UNIQUE(cliente_id, anno, mese, descrizione)
);

-- Account lines of a trial balance
CREATE TABLE IF NOT EXISTS bilancio_righe (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    bilancio_id UUID NOT NULL REFERENCES bilanci(id) ON DELETE CASCADE,
    riga INTEGER NOT NULL,
    codice_mastrino VARCHAR(64) NOT NULL,
    descrizione_mastrino TEXT NOT NULL DEFAULT '',
    importo NUMERIC(18,2) NOT NULL,

    UNIQUE(bilancio_id, riga)
);

CREATE INDEX IF NOT EXISTS idx_licenze_modulo ON licenze(modulo);
CREATE INDEX IF NOT EXISTS idx_bilanci_cliente ON bilanci(cliente_id, anno, mese);
CREATE INDEX IF NOT EXISTS idx_bilancio_righe_bilancio_id ON bilancio_righe(bilancio_id);
CREATE INDEX IF NOT EXISTS idx_bilancio_righe_codice ON bilancio_righe(codice_mastrino);
`

// migrateDDL brings tables created by older releases up to date
const migrateDDL = `
-- Add totale column if not exists
DO $$ BEGIN
    IF NOT EXISTS (SELECT 1 FROM information_schema.columns
                   WHERE table_name = 'bilanci' AND column_name = 'totale') THEN
        ALTER TABLE bilanci ADD COLUMN totale NUMERIC(18,2) NOT NULL DEFAULT 0;
    END IF;
END $$;

-- Add intestatario column if not exists
DO $$ BEGIN
    IF NOT EXISTS (SELECT 1 FROM information_schema.columns
                   WHERE table_name = 'licenze' AND column_name = 'intestatario') THEN
        ALTER TABLE licenze ADD COLUMN intestatario VARCHAR(255) NOT NULL DEFAULT '';
    END IF;
END $$;
`

// EnsureSchema creates tables if they don't exist and runs migrations
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Run migrations for existing tables
	_, err = db.Pool.Exec(ctx, migrateDDL)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
