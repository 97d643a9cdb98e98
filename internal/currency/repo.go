package currency

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Rate returns the stored rate for the ordered pair (from, to).
func (r *Repo) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT rate FROM currency_rates WHERE from_currency = $1 AND to_currency = $2`,
		from, to,
	).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrRateNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

// Upsert writes the rate for the ordered pair, relying on the unique
// constraint to resolve concurrent refreshes.
func (r *Repo) Upsert(ctx context.Context, from, to string, rate decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO currency_rates (from_currency, to_currency, rate, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (from_currency, to_currency)
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()`,
		from, to, rate,
	)
	return err
}

// All lists every stored rate, newest update first.
func (r *Repo) All(ctx context.Context) ([]Rate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, from_currency, to_currency, rate, updated_at
		 FROM currency_rates ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var rt Rate
		if err := rows.Scan(&rt.ID, &rt.FromCurrency, &rt.ToCurrency, &rt.Rate, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		rates = append(rates, rt)
	}
	return rates, rows.Err()
}
