package share

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/domain"
	"github.com/balancebeacon/backend/internal/notify"
	"github.com/balancebeacon/backend/internal/repository"
)

type sharedExpenseRepo interface {
	Create(ctx context.Context, tx *sql.Tx, se *domain.SharedExpense) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SharedExpense, error)
	ExistsLiveByTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.SharedExpense, error)
}

type participantRepo interface {
	CreateAll(ctx context.Context, tx *sql.Tx, participants []*domain.Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Participant, error)
	MarkPaid(ctx context.Context, id uuid.UUID, now time.Time) error
	Decline(ctx context.Context, id uuid.UUID, now time.Time, reason *string) error
	ClaimReminder(ctx context.Context, id uuid.UUID, now time.Time, prior *time.Time) error
	ResetReminder(ctx context.Context, id uuid.UUID, claimed time.Time, prior *time.Time) error
	ListByExpenseIDs(ctx context.Context, expenseIDs []uuid.UUID) ([]repository.ParticipantWithUser, error)
	ListParticipations(ctx context.Context, userID uuid.UUID) ([]repository.ParticipationRow, error)
	OwedToUser(ctx context.Context, ownerID uuid.UUID) ([]repository.BalanceRow, error)
	OwedByUser(ctx context.Context, userID uuid.UUID) ([]repository.BalanceRow, error)
}

type transactionRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmails(ctx context.Context, emails []string) ([]domain.User, error)
}

type mailer interface {
	Send(ctx context.Context, msg notify.Message) error
}

type converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error)
}

type Options struct {
	ReminderCooldown      time.Duration
	RequireFullPercentage bool
}

type Service struct {
	shares       sharedExpenseRepo
	participants participantRepo
	transactions transactionRepo
	users        userRepo
	mailer       mailer
	fx           converter
	db           *sql.DB
	opts         Options
}

func NewService(
	shares sharedExpenseRepo,
	participants participantRepo,
	transactions transactionRepo,
	users userRepo,
	m mailer,
	fx converter,
	db *sql.DB,
	opts Options,
) *Service {
	if opts.ReminderCooldown <= 0 {
		opts.ReminderCooldown = 24 * time.Hour
	}
	return &Service{
		shares:       shares,
		participants: participants,
		transactions: transactions,
		users:        users,
		mailer:       m,
		fx:           fx,
		db:           db,
		opts:         opts,
	}
}

// ParticipantView pairs a participant row with the user identity behind it.
type ParticipantView struct {
	domain.Participant
	UserName  string
	UserEmail string
}

// SharedExpenseView is the full aggregate: the expense plus every
// participant with resolved identities.
type SharedExpenseView struct {
	domain.SharedExpense
	Participants []ParticipantView
}

// SharedExpenseSummary annotates an owned share with settlement progress.
type SharedExpenseSummary struct {
	SharedExpenseView
	TotalOwed       decimal.Decimal
	TotalPaid       decimal.Decimal
	AllSettled      bool
	DisplayAmount   *decimal.Decimal
	DisplayCurrency *domain.Currency
}

// ParticipationSummary is one share the user owes on, with the owner's
// identity for display.
type ParticipationSummary struct {
	Participant     domain.Participant
	Expense         domain.SharedExpense
	OwnerName       string
	OwnerEmail      string
	DisplayAmount   *decimal.Decimal
	DisplayCurrency *domain.Currency
}

// Ownership predicates are kept in one place so every lifecycle operation
// authorizes against the same definition.

func isShareOwner(se *domain.SharedExpense, actorID uuid.UUID) bool {
	return se.OwnerID == actorID
}

func isShareParticipant(p *domain.Participant, actorID uuid.UUID) bool {
	return p.UserID == actorID
}
