package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrTransactionNotFound  = &AppError{http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found"}
	ErrNotShareOwner        = &AppError{http.StatusForbidden, "NOT_SHARE_OWNER", "Only the share owner may perform this action"}
	ErrNotParticipant       = &AppError{http.StatusForbidden, "NOT_YOUR_SHARE", "Not your share to act on"}
	ErrAlreadyShared        = &AppError{http.StatusConflict, "ALREADY_SHARED", "Transaction is already shared"}
	ErrSelfShare            = &AppError{http.StatusBadRequest, "SELF_SHARE_NOT_ALLOWED", "Cannot share an expense with yourself"}
	ErrDuplicateParticipant = &AppError{http.StatusBadRequest, "DUPLICATE_PARTICIPANT", "Duplicate participant email"}
	ErrIncomeNotShareable   = &AppError{http.StatusBadRequest, "INCOME_NOT_SHAREABLE", "Income transactions cannot be shared"}
	ErrInvalidSplit         = &AppError{http.StatusBadRequest, "INVALID_SPLIT", "Invalid split"}
	ErrInvalidAmount        = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrShareNotPending      = &AppError{http.StatusUnprocessableEntity, "SHARE_NOT_PENDING", "Share is no longer pending"}
	ErrReminderCooldown     = &AppError{http.StatusUnprocessableEntity, "REMINDER_COOLDOWN", "A reminder was already sent recently"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
