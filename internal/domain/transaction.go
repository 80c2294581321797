package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Currency  Currency
	CreatedAt time.Time
}

// Transaction is owned by the account/transaction subsystem; the sharing
// engine only reads it to snapshot amount and currency at share time.
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	OwnerUserID uuid.UUID
	Type        TransactionType
	Amount      decimal.Decimal
	Currency    Currency
	Description string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}
