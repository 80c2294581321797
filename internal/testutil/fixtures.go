package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/balancebeacon/backend/internal/domain"
)

func SeedUser(t *testing.T, db *sql.DB, email, name string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func SeedAccount(t *testing.T, db *sql.DB, userID uuid.UUID, name, currency string) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Currency:  domain.Currency(currency),
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, user_id, name, currency, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.UserID, a.Name, a.Currency, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s/%s: %v", userID, currency, err)
	}
	return a
}

func SeedTransaction(t *testing.T, db *sql.DB, account *domain.Account, txType domain.TransactionType, amount, description string) *domain.Transaction {
	t.Helper()

	txn := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   account.ID,
		OwnerUserID: account.UserID,
		Type:        txType,
		Amount:      decimal.RequireFromString(amount),
		Currency:    account.Currency,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO transactions (id, account_id, type, amount, currency, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		txn.ID, txn.AccountID, txn.Type, txn.Amount, txn.Currency, txn.Description, txn.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return txn
}

// SeedExpenseTransaction is the common case: an expense on a fresh account.
func SeedExpenseTransaction(t *testing.T, db *sql.DB, user *domain.User, currency, amount, description string) *domain.Transaction {
	t.Helper()
	account := SeedAccount(t, db, user.ID, "main", currency)
	return SeedTransaction(t, db, account, domain.TransactionTypeExpense, amount, description)
}

func GetParticipantStatus(t *testing.T, db *sql.DB, participantID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(`SELECT status FROM expense_participants WHERE id = $1`, participantID).Scan(&status)
	if err != nil {
		t.Fatalf("get participant status %s: %v", participantID, err)
	}
	return status
}

func GetReminderSentAt(t *testing.T, db *sql.DB, participantID uuid.UUID) *time.Time {
	t.Helper()

	var ts sql.NullTime
	err := db.QueryRow(`SELECT reminder_sent_at FROM expense_participants WHERE id = $1`, participantID).Scan(&ts)
	if err != nil {
		t.Fatalf("get reminder_sent_at %s: %v", participantID, err)
	}
	if !ts.Valid {
		return nil
	}
	return &ts.Time
}

// BackdateReminder rewinds reminder_sent_at so cooldown expiry can be
// exercised without sleeping through it.
func BackdateReminder(t *testing.T, db *sql.DB, participantID uuid.UUID, by time.Duration) {
	t.Helper()

	_, err := db.Exec(
		`UPDATE expense_participants SET reminder_sent_at = reminder_sent_at - ($1 * interval '1 second') WHERE id = $2`,
		int64(by.Seconds()), participantID,
	)
	if err != nil {
		t.Fatalf("backdate reminder %s: %v", participantID, err)
	}
}
