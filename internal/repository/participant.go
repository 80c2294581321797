package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/domain"
)

const participantColumns = `id, shared_expense_id, user_id, share_amount, share_percentage,
	status, paid_at, declined_at, decline_reason, reminder_sent_at, created_at`

type ParticipantRepository struct {
	db *sql.DB
}

func NewParticipantRepository(db *sql.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) CreateAll(ctx context.Context, tx *sql.Tx, participants []*domain.Participant) error {
	for _, p := range participants {
		var pct decimal.NullDecimal
		if p.SharePercentage != nil {
			pct = decimal.NullDecimal{Decimal: *p.SharePercentage, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expense_participants (id, shared_expense_id, user_id, share_amount, share_percentage, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.SharedExpenseID, p.UserID, p.ShareAmount, pct, p.Status, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("CreateAll: %w", err)
		}
	}
	return nil
}

func (r *ParticipantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Participant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM expense_participants WHERE id = $1`, id,
	)
	p, err := scanParticipant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

// MarkPaid flips a pending share to paid. The status precondition is part
// of the same atomic update: when two callers race, the second observes
// zero affected rows and gets domain.ErrShareNotPending.
func (r *ParticipantRepository) MarkPaid(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expense_participants SET status = $2, paid_at = $3
		WHERE id = $1 AND status = $4`,
		id, domain.ParticipantStatusPaid, now, domain.ParticipantStatusPending,
	)
	if err != nil {
		return fmt.Errorf("MarkPaid: %w", err)
	}
	return requireOneRow(res, "MarkPaid")
}

// Decline follows the same compare-and-swap discipline as MarkPaid;
// whichever of pay/decline commits first wins.
func (r *ParticipantRepository) Decline(ctx context.Context, id uuid.UUID, now time.Time, reason *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expense_participants SET status = $2, declined_at = $3, decline_reason = $4
		WHERE id = $1 AND status = $5`,
		id, domain.ParticipantStatusDeclined, now, reason, domain.ParticipantStatusPending,
	)
	if err != nil {
		return fmt.Errorf("Decline: %w", err)
	}
	return requireOneRow(res, "Decline")
}

// ClaimReminder advances reminder_sent_at only if the row still carries the
// prior value the caller read and is still pending. Concurrent reminder
// attempts read the same prior value, so exactly one claim succeeds.
func (r *ParticipantRepository) ClaimReminder(ctx context.Context, id uuid.UUID, now time.Time, prior *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expense_participants SET reminder_sent_at = $2
		WHERE id = $1 AND status = $3 AND reminder_sent_at IS NOT DISTINCT FROM $4`,
		id, now, domain.ParticipantStatusPending, prior,
	)
	if err != nil {
		return fmt.Errorf("ClaimReminder: %w", err)
	}
	return requireOneRow(res, "ClaimReminder")
}

// ResetReminder is the compensating write for a failed email send: it
// restores the prior timestamp, but only if our claim is still in place.
func (r *ParticipantRepository) ResetReminder(ctx context.Context, id uuid.UUID, claimed time.Time, prior *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expense_participants SET reminder_sent_at = $3
		WHERE id = $1 AND reminder_sent_at = $2`,
		id, claimed, prior,
	)
	if err != nil {
		return fmt.Errorf("ResetReminder: %w", err)
	}
	return nil
}

// ParticipantWithUser carries a participant row joined with the
// participant's identity for display.
type ParticipantWithUser struct {
	domain.Participant
	UserName  string
	UserEmail string
}

func (r *ParticipantRepository) ListByExpenseIDs(ctx context.Context, expenseIDs []uuid.UUID) ([]ParticipantWithUser, error) {
	ids := make([]string, len(expenseIDs))
	for i, id := range expenseIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.shared_expense_id, p.user_id, p.share_amount, p.share_percentage,
			p.status, p.paid_at, p.declined_at, p.decline_reason, p.reminder_sent_at, p.created_at,
			u.name, u.email
		FROM expense_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.shared_expense_id = ANY($1::uuid[])
		ORDER BY u.email`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByExpenseIDs: %w", err)
	}
	defer rows.Close()

	var result []ParticipantWithUser
	for rows.Next() {
		var pw ParticipantWithUser
		var pct decimal.NullDecimal
		err := rows.Scan(
			&pw.ID, &pw.SharedExpenseID, &pw.UserID, &pw.ShareAmount, &pct,
			&pw.Status, &pw.PaidAt, &pw.DeclinedAt, &pw.DeclineReason, &pw.ReminderSentAt, &pw.CreatedAt,
			&pw.UserName, &pw.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("ListByExpenseIDs: %w", err)
		}
		if pct.Valid {
			pw.SharePercentage = &pct.Decimal
		}
		result = append(result, pw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByExpenseIDs: %w", err)
	}
	return result, nil
}

// ParticipationRow is one share the user is a party to, joined with the
// parent expense and its owner's identity.
type ParticipationRow struct {
	Participant domain.Participant
	Expense     domain.SharedExpense
	OwnerName   string
	OwnerEmail  string
}

func (r *ParticipantRepository) ListParticipations(ctx context.Context, userID uuid.UUID) ([]ParticipationRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.shared_expense_id, p.user_id, p.share_amount, p.share_percentage,
			p.status, p.paid_at, p.declined_at, p.decline_reason, p.reminder_sent_at, p.created_at,
			se.id, se.transaction_id, se.owner_id, se.split_type, se.total_amount, se.currency,
			se.description, se.created_at, se.deleted_at,
			u.name, u.email
		FROM expense_participants p
		JOIN shared_expenses se ON se.id = p.shared_expense_id
		JOIN users u ON u.id = se.owner_id
		WHERE p.user_id = $1 AND se.deleted_at IS NULL
		ORDER BY se.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListParticipations: %w", err)
	}
	defer rows.Close()

	var result []ParticipationRow
	for rows.Next() {
		var row ParticipationRow
		var pct decimal.NullDecimal
		err := rows.Scan(
			&row.Participant.ID, &row.Participant.SharedExpenseID, &row.Participant.UserID,
			&row.Participant.ShareAmount, &pct, &row.Participant.Status,
			&row.Participant.PaidAt, &row.Participant.DeclinedAt, &row.Participant.DeclineReason,
			&row.Participant.ReminderSentAt, &row.Participant.CreatedAt,
			&row.Expense.ID, &row.Expense.TransactionID, &row.Expense.OwnerID, &row.Expense.SplitType,
			&row.Expense.TotalAmount, &row.Expense.Currency, &row.Expense.Description,
			&row.Expense.CreatedAt, &row.Expense.DeletedAt,
			&row.OwnerName, &row.OwnerEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("ListParticipations: %w", err)
		}
		if pct.Valid {
			row.Participant.SharePercentage = &pct.Decimal
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListParticipations: %w", err)
	}
	return result, nil
}

// BalanceRow is one (counterparty, currency) outstanding sum.
type BalanceRow struct {
	CounterpartyID    uuid.UUID
	CounterpartyName  string
	CounterpartyEmail string
	Currency          domain.Currency
	Total             decimal.Decimal
}

// OwedToUser sums pending shares on live expenses the user owns, grouped
// by the counterparty who owes them.
func (r *ParticipantRepository) OwedToUser(ctx context.Context, ownerID uuid.UUID) ([]BalanceRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.user_id, u.name, u.email, se.currency, SUM(p.share_amount)
		FROM expense_participants p
		JOIN shared_expenses se ON se.id = p.shared_expense_id
		JOIN users u ON u.id = p.user_id
		WHERE se.owner_id = $1 AND se.deleted_at IS NULL AND p.status = $2
		GROUP BY p.user_id, u.name, u.email, se.currency`,
		ownerID, domain.ParticipantStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("OwedToUser: %w", err)
	}
	return collectBalanceRows(rows, "OwedToUser")
}

// OwedByUser sums the user's own pending shares on live expenses owned by
// others, grouped by the owner they owe.
func (r *ParticipantRepository) OwedByUser(ctx context.Context, userID uuid.UUID) ([]BalanceRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT se.owner_id, u.name, u.email, se.currency, SUM(p.share_amount)
		FROM expense_participants p
		JOIN shared_expenses se ON se.id = p.shared_expense_id
		JOIN users u ON u.id = se.owner_id
		WHERE p.user_id = $1 AND se.deleted_at IS NULL AND p.status = $2
		GROUP BY se.owner_id, u.name, u.email, se.currency`,
		userID, domain.ParticipantStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("OwedByUser: %w", err)
	}
	return collectBalanceRows(rows, "OwedByUser")
}

func collectBalanceRows(rows *sql.Rows, op string) ([]BalanceRow, error) {
	defer rows.Close()

	var result []BalanceRow
	for rows.Next() {
		var b BalanceRow
		if err := rows.Scan(&b.CounterpartyID, &b.CounterpartyName, &b.CounterpartyEmail, &b.Currency, &b.Total); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func requireOneRow(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrShareNotPending)
	}
	return nil
}

func scanParticipant(s scanner) (*domain.Participant, error) {
	var p domain.Participant
	var pct decimal.NullDecimal
	err := s.Scan(
		&p.ID, &p.SharedExpenseID, &p.UserID, &p.ShareAmount, &pct,
		&p.Status, &p.PaidAt, &p.DeclinedAt, &p.DeclineReason, &p.ReminderSentAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pct.Valid {
		p.SharePercentage = &pct.Decimal
	}
	return &p, nil
}
