package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SplitType string

const (
	SplitTypeEqual      SplitType = "equal"
	SplitTypePercentage SplitType = "percentage"
	SplitTypeFixed      SplitType = "fixed"
)

func (s SplitType) IsValid() bool {
	switch s {
	case SplitTypeEqual, SplitTypePercentage, SplitTypeFixed:
		return true
	}
	return false
}

type ParticipantStatus string

const (
	ParticipantStatusPending  ParticipantStatus = "pending"
	ParticipantStatusPaid     ParticipantStatus = "paid"
	ParticipantStatusDeclined ParticipantStatus = "declined"
)

// SharedExpense binds one transaction to a set of participant shares.
// TotalAmount is a snapshot of the transaction amount at share time;
// the row is immutable after creation except for soft deletion.
type SharedExpense struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	OwnerID       uuid.UUID
	SplitType     SplitType
	TotalAmount   decimal.Decimal
	Currency      Currency
	Description   string
	CreatedAt     time.Time
	DeletedAt     *time.Time
}

// Participant is one non-owner party to a shared expense. Status moves
// pending -> paid or pending -> declined, never back.
type Participant struct {
	ID              uuid.UUID
	SharedExpenseID uuid.UUID
	UserID          uuid.UUID
	ShareAmount     decimal.Decimal
	SharePercentage *decimal.Decimal
	Status          ParticipantStatus
	PaidAt          *time.Time
	DeclinedAt      *time.Time
	DeclineReason   *string
	ReminderSentAt  *time.Time
	CreatedAt       time.Time
}

// SettlementBalance is derived on read, never persisted. Amounts are
// per-currency: relationships spanning currencies surface as separate
// entries rather than being netted across a conversion.
type SettlementBalance struct {
	CounterpartyID    uuid.UUID
	CounterpartyName  string
	CounterpartyEmail string
	Currency          Currency
	YouOwe            decimal.Decimal
	TheyOwe           decimal.Decimal
	Net               decimal.Decimal
}
