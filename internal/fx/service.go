package fx

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/domain"
)

// RateService converts amounts between currencies for display purposes.
// Settlement netting never crosses currencies; conversion is a pure
// presentation concern layered on top of per-currency balances.
type RateService struct {
	rates map[string]decimal.Decimal
}

func NewRateService() *RateService {
	return &RateService{
		rates: map[string]decimal.Decimal{
			"USD_EUR": decimal.NewFromFloat(0.92),
			"EUR_USD": decimal.NewFromFloat(1.087),
			"USD_GBP": decimal.NewFromFloat(0.79),
			"GBP_USD": decimal.NewFromFloat(1.266),
			"EUR_GBP": decimal.NewFromFloat(0.858),
			"GBP_EUR": decimal.NewFromFloat(1.166),
		},
	}
}

func pairKey(from, to domain.Currency) string {
	return string(from) + "_" + string(to)
}

func (s *RateService) Convert(_ context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("Convert: %w", domain.ErrInvalidAmount)
	}
	if !from.IsValid() || !to.IsValid() {
		return decimal.Zero, fmt.Errorf("Convert: invalid currency pair %s/%s", from, to)
	}
	if from == to {
		return amount, nil
	}

	rate, ok := s.rates[pairKey(from, to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("Convert: unsupported pair %s/%s", from, to)
	}
	return amount.Mul(rate).Round(2), nil
}
