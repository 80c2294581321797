package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/balancebeacon/backend/internal/domain"
)

const sharedExpenseColumns = `id, transaction_id, owner_id, split_type, total_amount, currency, description, created_at, deleted_at`

type SharedExpenseRepository struct {
	db *sql.DB
}

func NewSharedExpenseRepository(db *sql.DB) *SharedExpenseRepository {
	return &SharedExpenseRepository{db: db}
}

// Create inserts the aggregate root inside the caller's transaction. A
// unique violation on the live-transaction index means another request
// shared the same transaction first; that race is reported as
// domain.ErrAlreadyShared so callers see the same error as the
// precondition check.
func (r *SharedExpenseRepository) Create(ctx context.Context, tx *sql.Tx, se *domain.SharedExpense) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO shared_expenses (id, transaction_id, owner_id, split_type, total_amount, currency, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		se.ID, se.TransactionID, se.OwnerID, se.SplitType, se.TotalAmount,
		se.Currency, se.Description, se.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("Create: %w", domain.ErrAlreadyShared)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *SharedExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SharedExpense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sharedExpenseColumns+` FROM shared_expenses WHERE id = $1`, id,
	)
	se, err := scanSharedExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return se, nil
}

func (r *SharedExpenseRepository) ExistsLiveByTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM shared_expenses WHERE transaction_id = $1 AND deleted_at IS NULL)`,
		transactionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsLiveByTransaction: %w", err)
	}
	return exists, nil
}

// SoftDelete cancels a live share. Participant rows stay behind as the
// historical record.
func (r *SharedExpenseRepository) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shared_expenses SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, now,
	)
	if err != nil {
		return fmt.Errorf("SoftDelete: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SoftDelete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SoftDelete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *SharedExpenseRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.SharedExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sharedExpenseColumns+` FROM shared_expenses
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	defer rows.Close()

	var expenses []domain.SharedExpense
	for rows.Next() {
		se, err := scanSharedExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOwner: %w", err)
		}
		expenses = append(expenses, *se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	return expenses, nil
}

func scanSharedExpense(s scanner) (*domain.SharedExpense, error) {
	var se domain.SharedExpense
	err := s.Scan(
		&se.ID, &se.TransactionID, &se.OwnerID, &se.SplitType, &se.TotalAmount,
		&se.Currency, &se.Description, &se.CreatedAt, &se.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &se, nil
}
