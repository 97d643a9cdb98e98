package currency

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provider fetches a live rate from an external rate service.
type Provider interface {
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// RateStore is the writable side of the rate table.
type RateStore interface {
	Upsert(ctx context.Context, from, to string, rate decimal.Decimal) error
}

// fallbackRates are used only when the provider is unreachable during a
// refresh. Convert never reads these; a wallet operation sees whatever the
// last successful refresh (or fallback upsert) stored.
var fallbackRates = map[[2]string]decimal.Decimal{
	{"USD", "EUR"}: decimal.RequireFromString("0.92"),
	{"USD", "XAF"}: decimal.RequireFromString("600"),
	{"EUR", "USD"}: decimal.RequireFromString("1.09"),
	{"EUR", "XAF"}: decimal.RequireFromString("655.96"),
	{"XAF", "USD"}: decimal.RequireFromString("0.0017"),
	{"XAF", "EUR"}: decimal.RequireFromString("0.0015"),
}

// SeedFallback writes the fallback table into the store. Used by the seed
// CLI so a fresh environment can convert before the first live refresh.
func SeedFallback(ctx context.Context, store RateStore) error {
	for pair, rate := range fallbackRates {
		if err := store.Upsert(ctx, pair[0], pair[1], rate); err != nil {
			return err
		}
	}
	return nil
}

// Refresher keeps the rate table current for the supported currency set.
// Scheduled daily from main.
type Refresher struct {
	store      RateStore
	provider   Provider
	currencies []string
	log        *zap.Logger
}

func NewRefresher(store RateStore, provider Provider, currencies []string, log *zap.Logger) *Refresher {
	return &Refresher{store: store, provider: provider, currencies: currencies, log: log}
}

// RefreshAll upserts a rate for every ordered pair of supported currencies.
// Provider failures degrade to the fallback constant for that pair; a store
// failure is returned after the remaining pairs are attempted.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	var lastErr error
	for _, from := range r.currencies {
		for _, to := range r.currencies {
			if from == to {
				continue
			}
			rate, err := r.provider.FetchRate(ctx, from, to)
			if err != nil {
				fb, ok := fallbackRates[[2]string{from, to}]
				if !ok {
					r.log.Warn("no rate and no fallback for pair",
						zap.String("from", from), zap.String("to", to), zap.Error(err))
					lastErr = err
					continue
				}
				r.log.Warn("rate provider unavailable, using fallback",
					zap.String("from", from), zap.String("to", to),
					zap.String("fallback", fb.String()), zap.Error(err))
				rate = fb
			}
			if err := r.store.Upsert(ctx, from, to, rate); err != nil {
				r.log.Error("rate upsert failed",
					zap.String("from", from), zap.String("to", to), zap.Error(err))
				lastErr = err
			}
		}
	}
	return lastErr
}

// Run performs one refresh with a bounded deadline; suitable as a cron job
// entry.
func (r *Refresher) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := r.RefreshAll(ctx); err != nil {
		r.log.Error("rate refresh finished with errors", zap.Error(err))
		return
	}
	r.log.Info("currency rates refreshed")
}
