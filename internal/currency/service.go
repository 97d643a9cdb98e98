package currency

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateSource yields the stored rate for an ordered pair, or ErrRateNotFound.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Service converts amounts between wallet currencies using stored rates.
type Service struct {
	rates RateSource
}

func NewService(rates RateSource) *Service {
	return &Service{rates: rates}
}

// Convert returns amount expressed in the target currency. Same-currency
// conversion is the identity and never touches the rate store. A missing rate
// surfaces as ErrRateNotFound; there is no default and no inversion of the
// reverse pair.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	rate, err := s.rates.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}
