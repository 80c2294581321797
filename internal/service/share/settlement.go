package share

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/domain"
	"github.com/balancebeacon/backend/internal/repository"
)

// SettlementBalances computes, per counterparty and currency, what the
// user owes and is owed across all live shares. Only pending shares count
// on either side: a paid share is settled debt, not an open balance, and
// declined shares never entered the ledger. Currencies are never netted
// against each other; a relationship spanning two currencies yields two
// entries.
func (s *Service) SettlementBalances(ctx context.Context, userID uuid.UUID) ([]domain.SettlementBalance, error) {
	owedToMe, err := s.participants.OwedToUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SettlementBalances: %w", err)
	}
	owedByMe, err := s.participants.OwedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SettlementBalances: %w", err)
	}

	type key struct {
		counterparty uuid.UUID
		currency     domain.Currency
	}

	merged := make(map[key]*domain.SettlementBalance)

	upsert := func(row repository.BalanceRow) *domain.SettlementBalance {
		k := key{row.CounterpartyID, row.Currency}
		b, ok := merged[k]
		if !ok {
			b = &domain.SettlementBalance{
				CounterpartyID:    row.CounterpartyID,
				CounterpartyName:  row.CounterpartyName,
				CounterpartyEmail: row.CounterpartyEmail,
				Currency:          row.Currency,
				YouOwe:            decimal.Zero,
				TheyOwe:           decimal.Zero,
			}
			merged[k] = b
		}
		return b
	}

	for _, row := range owedToMe {
		upsert(row).TheyOwe = row.Total
	}
	for _, row := range owedByMe {
		upsert(row).YouOwe = row.Total
	}

	balances := make([]domain.SettlementBalance, 0, len(merged))
	for _, b := range merged {
		b.Net = b.TheyOwe.Sub(b.YouOwe)
		balances = append(balances, *b)
	}

	// Deterministic order for API consumers and tests.
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].CounterpartyEmail != balances[j].CounterpartyEmail {
			return balances[i].CounterpartyEmail < balances[j].CounterpartyEmail
		}
		return balances[i].Currency < balances[j].Currency
	})
	return balances, nil
}
