package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/balancebeacon/backend/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondDomainError translates engine errors into API errors, preserving
// the structured detail (current status, offending emails, split reason)
// that lets clients render an actionable message.
func RespondDomainError(w http.ResponseWriter, err error) {
	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		RespondAppError(w, ErrShareNotPending, map[string]string{"current_status": string(statusErr.Current)})
		return
	}

	var splitErr *domain.SplitError
	if errors.As(err, &splitErr) {
		RespondAppError(w, ErrInvalidSplit, map[string]string{"reason": splitErr.Reason})
		return
	}

	var unknownErr *domain.UnknownParticipantsError
	if errors.As(err, &unknownErr) {
		RespondAppError(w, ErrValidationFailed, map[string]any{"unknown_participants": unknownErr.Emails})
		return
	}

	var appErr *AppError
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		appErr = ErrTransactionNotFound
	case errors.Is(err, domain.ErrNotShareOwner):
		appErr = ErrNotShareOwner
	case errors.Is(err, domain.ErrNotParticipant):
		appErr = ErrNotParticipant
	case errors.Is(err, domain.ErrAlreadyShared):
		appErr = ErrAlreadyShared
	case errors.Is(err, domain.ErrSelfShare):
		appErr = ErrSelfShare
	case errors.Is(err, domain.ErrDuplicateParticipant):
		appErr = ErrDuplicateParticipant
	case errors.Is(err, domain.ErrIncomeNotShareable):
		appErr = ErrIncomeNotShareable
	case errors.Is(err, domain.ErrInvalidSplit):
		appErr = ErrInvalidSplit
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrShareNotPending):
		appErr = ErrShareNotPending
	case errors.Is(err, domain.ErrReminderCooldown):
		appErr = ErrReminderCooldown
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
