package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// balance is an unconstrained NUMERIC so that every decimal amount the ledger
// accepts is stored without rounding.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id             BIGSERIAL PRIMARY KEY,
	account_number VARCHAR(32)    NOT NULL UNIQUE,
	name           TEXT           NOT NULL,
	pin            TEXT           NOT NULL,
	balance        NUMERIC        NOT NULL DEFAULT 0 CHECK (balance >= 0),
	version        BIGINT         NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ    NOT NULL,
	updated_at     TIMESTAMPTZ    NOT NULL
)`

// Tables created with a fixed scale rounded sub-scale amounts.
const widenBalance = `ALTER TABLE accounts ALTER COLUMN balance TYPE NUMERIC`

// Migrate creates the accounts table if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{schema, widenBalance} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate accounts table: %w", err)
		}
	}
	return nil
}
