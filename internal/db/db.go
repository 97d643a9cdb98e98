package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens the pgx pool and verifies the database is reachable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables the service depends on if they are missing.
// The service owns its schema, so idempotent DDL at startup replaces a
// separate migration step.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			phone_number TEXT NOT NULL UNIQUE,
			pin TEXT NOT NULL,
			name TEXT,
			email TEXT UNIQUE,
			password TEXT,
			language TEXT NOT NULL DEFAULT 'fr',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS wallets (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			balance NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			currency CHAR(3) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
			fees NUMERIC(18,2) NOT NULL DEFAULT 0,
			type TEXT NOT NULL CHECK (type IN ('debit','credit')),
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','completed','failed')),
			currency CHAR(3) NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id),
			recipient_id BIGINT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_recipient ON transactions(recipient_id)`,
		`CREATE TABLE IF NOT EXISTS currency_rates (
			id BIGSERIAL PRIMARY KEY,
			from_currency CHAR(3) NOT NULL,
			to_currency CHAR(3) NOT NULL,
			rate NUMERIC(18,6) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (from_currency, to_currency)
		)`,
		`CREATE TABLE IF NOT EXISTS merchants (
			id BIGSERIAL PRIMARY KEY,
			owner_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			business_name TEXT NOT NULL UNIQUE,
			phone_number TEXT NOT NULL UNIQUE,
			email TEXT,
			merchant_code TEXT NOT NULL,
			registered_by BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS partners (
			id BIGSERIAL PRIMARY KEY,
			owner_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			phone_number TEXT NOT NULL UNIQUE,
			email TEXT,
			partner_code TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id BIGSERIAL PRIMARY KEY,
			owner_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			registered_by BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			id BIGSERIAL PRIMARY KEY,
			owner_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS payment_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
