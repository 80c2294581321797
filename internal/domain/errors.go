package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotShareOwner        = errors.New("not the share owner")
	ErrNotParticipant       = errors.New("not your share")
	ErrAlreadyShared        = errors.New("transaction already shared")
	ErrSelfShare            = errors.New("cannot share an expense with yourself")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrIncomeNotShareable   = errors.New("income transactions cannot be shared")
	ErrInvalidSplit         = errors.New("invalid split")
	ErrShareNotPending      = errors.New("share is not pending")
	ErrReminderCooldown     = errors.New("reminder cooldown still active")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
)

// StatusError reports a lifecycle transition rejected because the
// participant share has already left the pending state.
type StatusError struct {
	Current ParticipantStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("share already %s", e.Current)
}

func (e *StatusError) Unwrap() error { return ErrShareNotPending }

// SplitError reports a share-computation failure with the offending detail.
type SplitError struct {
	Reason string
}

func (e *SplitError) Error() string { return e.Reason }

func (e *SplitError) Unwrap() error { return ErrInvalidSplit }

// UnknownParticipantsError lists participant emails that did not resolve
// to registered users.
type UnknownParticipantsError struct {
	Emails []string
}

func (e *UnknownParticipantsError) Error() string {
	return fmt.Sprintf("unknown participants: %s", strings.Join(e.Emails, ", "))
}

func (e *UnknownParticipantsError) Unwrap() error { return ErrNotFound }
