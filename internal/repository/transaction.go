package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/balancebeacon/backend/internal/domain"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetByID loads a transaction together with its owning account's user id,
// which is what the sharing engine authorizes against.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.account_id, a.user_id, t.type, t.amount, t.currency, t.description, t.created_at, t.deleted_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1`, id,
	)

	var tx domain.Transaction
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.OwnerUserID, &tx.Type, &tx.Amount,
		&tx.Currency, &tx.Description, &tx.CreatedAt, &tx.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &tx, nil
}
