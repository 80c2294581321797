package share

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/domain"
	"github.com/balancebeacon/backend/internal/logging"
	"github.com/balancebeacon/backend/internal/notify"
	"github.com/balancebeacon/backend/internal/split"
)

type ParticipantInput struct {
	Email      string
	Amount     *decimal.Decimal
	Percentage *decimal.Decimal
}

type CreateRequest struct {
	TransactionID uuid.UUID
	OwnerID       uuid.UUID
	SplitType     domain.SplitType
	Description   *string
	Participants  []ParticipantInput
}

// Create shares an expense transaction among participants. All
// preconditions are checked before any write; the expense and its
// participant rows are then inserted in one database transaction, so a
// reader never observes a share with a partial participant set.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*SharedExpenseView, error) {
	log := logging.FromContext(ctx)

	txn, owner, err := s.resolveShareSource(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	resolved, err := s.resolveParticipants(ctx, owner, req.Participants)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	shared, err := s.shares.ExistsLiveByTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if shared {
		return nil, fmt.Errorf("Create: %w", domain.ErrAlreadyShared)
	}

	specs := make([]split.Spec, len(req.Participants))
	for i, p := range req.Participants {
		specs[i] = split.Spec{Email: strings.ToLower(p.Email), Amount: p.Amount, Percentage: p.Percentage}
	}

	shares, err := split.Calculate(req.SplitType, txn.Amount, specs)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	if s.opts.RequireFullPercentage && req.SplitType == domain.SplitTypePercentage {
		if err := requireFullAllocation(shares); err != nil {
			return nil, fmt.Errorf("Create: %w", err)
		}
	}

	view, err := s.persistShare(ctx, req, txn, shares, resolved)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log.Info("expense shared",
		"shared_expense_id", view.ID,
		"transaction_id", req.TransactionID,
		"split_type", req.SplitType,
		"participants", len(view.Participants),
	)

	// Notification is informational: the committed rows are the source of
	// truth, so a failed send never fails the share creation.
	for _, p := range view.Participants {
		msg := notify.Message{
			Kind:        notify.KindShareCreated,
			Recipient:   p.UserEmail,
			OwnerName:   owner.Name,
			Description: view.Description,
			Amount:      p.ShareAmount,
			Currency:    view.Currency,
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			log.Warn("share notification failed", "recipient", p.UserEmail, "error", err)
		}
	}

	return view, nil
}

func (s *Service) resolveShareSource(ctx context.Context, req CreateRequest) (*domain.Transaction, *domain.User, error) {
	txn, err := s.transactions.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolveShareSource: %w", err)
	}

	if txn.DeletedAt != nil {
		return nil, nil, fmt.Errorf("resolveShareSource: %w", domain.ErrTransactionNotFound)
	}
	if txn.OwnerUserID != req.OwnerID {
		return nil, nil, fmt.Errorf("resolveShareSource: %w", domain.ErrNotShareOwner)
	}
	if txn.Type != domain.TransactionTypeExpense {
		return nil, nil, fmt.Errorf("resolveShareSource: %w", domain.ErrIncomeNotShareable)
	}

	owner, err := s.users.GetByID(ctx, req.OwnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolveShareSource: %w", err)
	}
	return txn, owner, nil
}

// resolveParticipants validates the participant set against the owner and
// the user directory: no self-sharing, no duplicates, every email known.
func (s *Service) resolveParticipants(ctx context.Context, owner *domain.User, inputs []ParticipantInput) (map[string]domain.User, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("resolveParticipants: %w", &domain.SplitError{Reason: "at least one participant is required"})
	}

	seen := make(map[string]bool, len(inputs))
	emails := make([]string, 0, len(inputs))
	for _, in := range inputs {
		email := strings.ToLower(strings.TrimSpace(in.Email))
		if email == "" {
			return nil, fmt.Errorf("resolveParticipants: %w", &domain.SplitError{Reason: "participant email is required"})
		}
		if email == strings.ToLower(owner.Email) {
			return nil, fmt.Errorf("resolveParticipants: %w", domain.ErrSelfShare)
		}
		if seen[email] {
			return nil, fmt.Errorf("resolveParticipants: %s: %w", email, domain.ErrDuplicateParticipant)
		}
		seen[email] = true
		emails = append(emails, email)
	}

	users, err := s.users.GetByEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("resolveParticipants: %w", err)
	}

	byEmail := make(map[string]domain.User, len(users))
	for _, u := range users {
		byEmail[strings.ToLower(u.Email)] = u
	}

	var unknown []string
	for _, email := range emails {
		if _, ok := byEmail[email]; !ok {
			unknown = append(unknown, email)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("resolveParticipants: %w", &domain.UnknownParticipantsError{Emails: unknown})
	}

	return byEmail, nil
}

func (s *Service) persistShare(
	ctx context.Context,
	req CreateRequest,
	txn *domain.Transaction,
	shares []split.Share,
	resolved map[string]domain.User,
) (*SharedExpenseView, error) {
	now := time.Now().UTC()

	description := txn.Description
	if req.Description != nil {
		description = *req.Description
	}

	se := &domain.SharedExpense{
		ID:            uuid.New(),
		TransactionID: req.TransactionID,
		OwnerID:       req.OwnerID,
		SplitType:     req.SplitType,
		TotalAmount:   txn.Amount,
		Currency:      txn.Currency,
		Description:   description,
		CreatedAt:     now,
	}

	participants := make([]*domain.Participant, len(shares))
	views := make([]ParticipantView, len(shares))
	for i, sh := range shares {
		u := resolved[strings.ToLower(sh.Email)]
		p := &domain.Participant{
			ID:              uuid.New(),
			SharedExpenseID: se.ID,
			UserID:          u.ID,
			ShareAmount:     sh.Amount,
			SharePercentage: sh.Percentage,
			Status:          domain.ParticipantStatusPending,
			CreatedAt:       now,
		}
		participants[i] = p
		views[i] = ParticipantView{Participant: *p, UserName: u.Name, UserEmail: u.Email}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("persistShare: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.shares.Create(ctx, tx, se); err != nil {
		return nil, fmt.Errorf("persistShare: %w", err)
	}
	if err := s.participants.CreateAll(ctx, tx, participants); err != nil {
		return nil, fmt.Errorf("persistShare: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("persistShare: commit: %w", err)
	}

	return &SharedExpenseView{SharedExpense: *se, Participants: views}, nil
}

func requireFullAllocation(shares []split.Share) error {
	sum := decimal.Zero
	for _, sh := range shares {
		if sh.Percentage != nil {
			sum = sum.Add(*sh.Percentage)
		}
	}
	if !sum.Equal(decimal.NewFromInt(100)) {
		return &domain.SplitError{Reason: fmt.Sprintf("percentages sum to %s, expected 100", sum)}
	}
	return nil
}

// Cancel soft-deletes a share. Only the owner may cancel, and participant
// rows are left behind as the historical record; paid shares are not
// reversed.
func (s *Service) Cancel(ctx context.Context, sharedExpenseID, actingUserID uuid.UUID) error {
	se, err := s.shares.GetByID(ctx, sharedExpenseID)
	if err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}
	if se.DeletedAt != nil {
		return fmt.Errorf("Cancel: %w", domain.ErrNotFound)
	}
	if !isShareOwner(se, actingUserID) {
		return fmt.Errorf("Cancel: %w", domain.ErrNotShareOwner)
	}

	if err := s.shares.SoftDelete(ctx, sharedExpenseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}

	logging.FromContext(ctx).Info("shared expense canceled", "shared_expense_id", sharedExpenseID)
	return nil
}
