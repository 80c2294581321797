package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/balancebeacon/backend/internal/domain"
	"github.com/balancebeacon/backend/internal/logging"
	"github.com/balancebeacon/backend/internal/notify"
)

// MarkPaid records that the owner received a participant's payment. The
// status precondition rides inside the repository's conditional update, so
// two racing calls resolve to exactly one success.
func (s *Service) MarkPaid(ctx context.Context, participantID, actingUserID uuid.UUID) (*domain.Participant, error) {
	p, se, err := s.loadLiveShare(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("MarkPaid: %w", err)
	}
	if !isShareOwner(se, actingUserID) {
		return nil, fmt.Errorf("MarkPaid: %w", domain.ErrNotShareOwner)
	}

	now := time.Now().UTC()
	if err := s.participants.MarkPaid(ctx, participantID, now); err != nil {
		if errors.Is(err, domain.ErrShareNotPending) {
			return nil, fmt.Errorf("MarkPaid: %w", s.currentStatusError(ctx, participantID))
		}
		return nil, fmt.Errorf("MarkPaid: %w", err)
	}

	logging.FromContext(ctx).Info("participant share paid",
		"participant_id", participantID,
		"shared_expense_id", se.ID,
	)

	p.Status = domain.ParticipantStatusPaid
	p.PaidAt = &now
	return p, nil
}

// Decline lets a participant refuse their own share. It follows the same
// compare-and-swap discipline as MarkPaid: a decline racing an owner's
// mark-paid resolves to whichever commits first.
func (s *Service) Decline(ctx context.Context, participantID, actingUserID uuid.UUID, reason *string) (*domain.Participant, error) {
	p, se, err := s.loadLiveShare(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("Decline: %w", err)
	}
	if !isShareParticipant(p, actingUserID) {
		return nil, fmt.Errorf("Decline: %w", domain.ErrNotParticipant)
	}

	now := time.Now().UTC()
	if err := s.participants.Decline(ctx, participantID, now, reason); err != nil {
		if errors.Is(err, domain.ErrShareNotPending) {
			return nil, fmt.Errorf("Decline: %w", s.currentStatusError(ctx, participantID))
		}
		return nil, fmt.Errorf("Decline: %w", err)
	}

	logging.FromContext(ctx).Info("participant share declined",
		"participant_id", participantID,
		"shared_expense_id", se.ID,
	)

	p.Status = domain.ParticipantStatusDeclined
	p.DeclinedAt = &now
	p.DeclineReason = reason
	return p, nil
}

// SendReminder emails a pending participant, at most once per cooldown
// window. The cooldown gate is claimed with a conditional update keyed on
// the previously observed timestamp before any email goes out; if the send
// then fails, the claim is compensated away so the owner can retry.
func (s *Service) SendReminder(ctx context.Context, participantID, actingUserID uuid.UUID) (*domain.Participant, error) {
	p, se, err := s.loadLiveShare(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("SendReminder: %w", err)
	}
	if !isShareOwner(se, actingUserID) {
		return nil, fmt.Errorf("SendReminder: %w", domain.ErrNotShareOwner)
	}
	if p.Status != domain.ParticipantStatusPending {
		return nil, fmt.Errorf("SendReminder: %w", &domain.StatusError{Current: p.Status})
	}

	now := time.Now().UTC()
	prior := p.ReminderSentAt
	if prior != nil && now.Sub(*prior) < s.opts.ReminderCooldown {
		return nil, fmt.Errorf("SendReminder: %w", domain.ErrReminderCooldown)
	}

	if err := s.participants.ClaimReminder(ctx, participantID, now, prior); err != nil {
		if errors.Is(err, domain.ErrShareNotPending) {
			// Lost a race: either the status moved or another reminder
			// claimed the slot first.
			current, ferr := s.participants.GetByID(ctx, participantID)
			if ferr == nil && current.Status != domain.ParticipantStatusPending {
				return nil, fmt.Errorf("SendReminder: %w", &domain.StatusError{Current: current.Status})
			}
			return nil, fmt.Errorf("SendReminder: %w", domain.ErrReminderCooldown)
		}
		return nil, fmt.Errorf("SendReminder: %w", err)
	}

	owner, err := s.users.GetByID(ctx, se.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("SendReminder: %w", err)
	}
	recipient, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("SendReminder: %w", err)
	}

	msg := notify.Message{
		Kind:        notify.KindShareReminder,
		Recipient:   recipient.Email,
		OwnerName:   owner.Name,
		Description: se.Description,
		Amount:      p.ShareAmount,
		Currency:    se.Currency,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		// Compensate so a later retry is not locked out by a reminder
		// that never reached the participant.
		if rerr := s.participants.ResetReminder(ctx, participantID, now, prior); rerr != nil {
			logging.FromContext(ctx).Error("reminder compensation failed",
				"participant_id", participantID, "error", rerr)
		}
		return nil, fmt.Errorf("SendReminder: send: %w", err)
	}

	logging.FromContext(ctx).Info("reminder sent",
		"participant_id", participantID,
		"shared_expense_id", se.ID,
	)

	p.ReminderSentAt = &now
	return p, nil
}

// loadLiveShare fetches a participant and its parent expense, rejecting
// canceled shares as not found.
func (s *Service) loadLiveShare(ctx context.Context, participantID uuid.UUID) (*domain.Participant, *domain.SharedExpense, error) {
	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, nil, err
	}

	se, err := s.shares.GetByID(ctx, p.SharedExpenseID)
	if err != nil {
		return nil, nil, err
	}
	if se.DeletedAt != nil {
		return nil, nil, domain.ErrNotFound
	}
	return p, se, nil
}

// currentStatusError refetches the participant to report which terminal
// state beat the caller's transition.
func (s *Service) currentStatusError(ctx context.Context, participantID uuid.UUID) error {
	current, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return domain.ErrShareNotPending
	}
	return &domain.StatusError{Current: current.Status}
}
