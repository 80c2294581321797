package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/auth"
	"github.com/balancebeacon/backend/internal/domain"
	"github.com/balancebeacon/backend/internal/logging"
	"github.com/balancebeacon/backend/internal/service/share"
)

type shareService interface {
	Create(ctx context.Context, req share.CreateRequest) (*share.SharedExpenseView, error)
	Cancel(ctx context.Context, sharedExpenseID, actingUserID uuid.UUID) error
	MarkPaid(ctx context.Context, participantID, actingUserID uuid.UUID) (*domain.Participant, error)
	Decline(ctx context.Context, participantID, actingUserID uuid.UUID, reason *string) (*domain.Participant, error)
	SendReminder(ctx context.Context, participantID, actingUserID uuid.UUID) (*domain.Participant, error)
	SharedByUser(ctx context.Context, userID uuid.UUID, display *domain.Currency) ([]share.SharedExpenseSummary, error)
	SharedWithUser(ctx context.Context, userID uuid.UUID, display *domain.Currency) ([]share.ParticipationSummary, error)
	SettlementBalances(ctx context.Context, userID uuid.UUID) ([]domain.SettlementBalance, error)
}

type ShareHandler struct {
	shares shareService
}

func NewShareHandler(shares shareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

func userFromContext(r *http.Request) (uuid.UUID, *AppError) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

func idFromPath(r *http.Request, name string) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}

// displayCurrencyParam reads the optional ?display_currency= query param.
func displayCurrencyParam(r *http.Request) (*domain.Currency, *AppError) {
	raw := r.URL.Query().Get("display_currency")
	if raw == "" {
		return nil, nil
	}
	c := domain.Currency(raw)
	if !c.IsValid() {
		return nil, ErrValidationFailed
	}
	return &c, nil
}

type participantPayload struct {
	Email           string           `json:"email"`
	ShareAmount     *decimal.Decimal `json:"share_amount"`
	SharePercentage *decimal.Decimal `json:"share_percentage"`
}

type createSharedExpenseRequest struct {
	TransactionID string               `json:"transaction_id"`
	SplitType     string               `json:"split_type"`
	Description   *string              `json:"description"`
	Participants  []participantPayload `json:"participants"`
}

func (r createSharedExpenseRequest) Validate() []FieldError {
	var errs []FieldError
	if r.TransactionID == "" {
		errs = append(errs, FieldError{Field: "transaction_id", Message: "required"})
	} else if _, err := uuid.Parse(r.TransactionID); err != nil {
		errs = append(errs, FieldError{Field: "transaction_id", Message: "must be a valid UUID"})
	}
	if r.SplitType == "" {
		errs = append(errs, FieldError{Field: "split_type", Message: "required"})
	} else if !domain.SplitType(r.SplitType).IsValid() {
		errs = append(errs, FieldError{Field: "split_type", Message: "must be equal, percentage, or fixed"})
	}
	if len(r.Participants) == 0 {
		errs = append(errs, FieldError{Field: "participants", Message: "at least one participant is required"})
	}
	for _, p := range r.Participants {
		if p.Email == "" {
			errs = append(errs, FieldError{Field: "participants", Message: "email is required"})
			continue
		}
		switch domain.SplitType(r.SplitType) {
		case domain.SplitTypeFixed:
			if p.ShareAmount == nil {
				errs = append(errs, FieldError{Field: "participants", Message: p.Email + ": share_amount is required for fixed splits"})
			}
		case domain.SplitTypePercentage:
			if p.SharePercentage == nil {
				errs = append(errs, FieldError{Field: "participants", Message: p.Email + ": share_percentage is required for percentage splits"})
			}
		}
	}
	return errs
}

type declineRequest struct {
	Reason *string `json:"reason"`
}

type participantDTO struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	Name            string           `json:"name,omitempty"`
	Email           string           `json:"email,omitempty"`
	ShareAmount     decimal.Decimal  `json:"share_amount"`
	SharePercentage *decimal.Decimal `json:"share_percentage,omitempty"`
	Status          string           `json:"status"`
	PaidAt          *time.Time       `json:"paid_at,omitempty"`
	DeclinedAt      *time.Time       `json:"declined_at,omitempty"`
	DeclineReason   *string          `json:"decline_reason,omitempty"`
	ReminderSentAt  *time.Time       `json:"reminder_sent_at,omitempty"`
}

func toParticipantDTO(p *domain.Participant) participantDTO {
	return participantDTO{
		ID:              p.ID,
		UserID:          p.UserID,
		ShareAmount:     p.ShareAmount,
		SharePercentage: p.SharePercentage,
		Status:          string(p.Status),
		PaidAt:          p.PaidAt,
		DeclinedAt:      p.DeclinedAt,
		DeclineReason:   p.DeclineReason,
		ReminderSentAt:  p.ReminderSentAt,
	}
}

func toParticipantViewDTO(v share.ParticipantView) participantDTO {
	dto := toParticipantDTO(&v.Participant)
	dto.Name = v.UserName
	dto.Email = v.UserEmail
	return dto
}

type sharedExpenseDTO struct {
	ID            uuid.UUID        `json:"id"`
	TransactionID uuid.UUID        `json:"transaction_id"`
	OwnerID       uuid.UUID        `json:"owner_id"`
	SplitType     string           `json:"split_type"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	Currency      string           `json:"currency"`
	Description   string           `json:"description"`
	CreatedAt     time.Time        `json:"created_at"`
	Participants  []participantDTO `json:"participants"`
}

func toSharedExpenseDTO(v *share.SharedExpenseView) sharedExpenseDTO {
	participants := make([]participantDTO, len(v.Participants))
	for i, p := range v.Participants {
		participants[i] = toParticipantViewDTO(p)
	}
	return sharedExpenseDTO{
		ID:            v.ID,
		TransactionID: v.TransactionID,
		OwnerID:       v.OwnerID,
		SplitType:     string(v.SplitType),
		TotalAmount:   v.TotalAmount,
		Currency:      string(v.Currency),
		Description:   v.Description,
		CreatedAt:     v.CreatedAt,
		Participants:  participants,
	}
}

type sharedExpenseSummaryDTO struct {
	sharedExpenseDTO
	TotalOwed       decimal.Decimal  `json:"total_owed"`
	TotalPaid       decimal.Decimal  `json:"total_paid"`
	AllSettled      bool             `json:"all_settled"`
	DisplayAmount   *decimal.Decimal `json:"display_amount,omitempty"`
	DisplayCurrency *string          `json:"display_currency,omitempty"`
}

type participationDTO struct {
	Participant     participantDTO   `json:"participant"`
	SharedExpenseID uuid.UUID        `json:"shared_expense_id"`
	Description     string           `json:"description"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	Currency        string           `json:"currency"`
	OwnerName       string           `json:"owner_name"`
	OwnerEmail      string           `json:"owner_email"`
	CreatedAt       time.Time        `json:"created_at"`
	DisplayAmount   *decimal.Decimal `json:"display_amount,omitempty"`
	DisplayCurrency *string          `json:"display_currency,omitempty"`
}

type settlementBalanceDTO struct {
	CounterpartyID    uuid.UUID       `json:"counterparty_id"`
	CounterpartyName  string          `json:"counterparty_name"`
	CounterpartyEmail string          `json:"counterparty_email"`
	Currency          string          `json:"currency"`
	YouOwe            decimal.Decimal `json:"you_owe"`
	TheyOwe           decimal.Decimal `json:"they_owe"`
	Net               decimal.Decimal `json:"net"`
}

func currencyString(c *domain.Currency) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createSharedExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	transactionID, _ := uuid.Parse(req.TransactionID)
	participants := make([]share.ParticipantInput, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = share.ParticipantInput{
			Email:      p.Email,
			Amount:     p.ShareAmount,
			Percentage: p.SharePercentage,
		}
	}

	view, err := h.shares.Create(r.Context(), share.CreateRequest{
		TransactionID: transactionID,
		OwnerID:       userID,
		SplitType:     domain.SplitType(req.SplitType),
		Description:   req.Description,
		Participants:  participants,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create shared expense", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toSharedExpenseDTO(view))
}

func (h *ShareHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	expenseID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.shares.Cancel(r.Context(), expenseID, userID); err != nil {
		logging.FromContext(r.Context()).Error("failed to cancel shared expense", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "canceled"})
}

func (h *ShareHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	participantID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	p, err := h.shares.MarkPaid(r.Context(), participantID, userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to mark participant paid", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toParticipantDTO(p))
}

func (h *ShareHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	participantID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	// The body is optional: declining without a reason is valid.
	var req declineRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondAppError(w, ErrInvalidRequest, nil)
			return
		}
	}

	p, err := h.shares.Decline(r.Context(), participantID, userID, req.Reason)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to decline share", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toParticipantDTO(p))
}

func (h *ShareHandler) Remind(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	participantID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	p, err := h.shares.SendReminder(r.Context(), participantID, userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to send reminder", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toParticipantDTO(p))
}

func (h *ShareHandler) ListShared(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	display, appErr := displayCurrencyParam(r)
	if appErr != nil {
		RespondValidationError(w, []FieldError{{Field: "display_currency", Message: "must be USD, EUR, or GBP"}})
		return
	}

	summaries, err := h.shares.SharedByUser(r.Context(), userID, display)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list shared expenses", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]sharedExpenseSummaryDTO, len(summaries))
	for i := range summaries {
		s := &summaries[i]
		dtos[i] = sharedExpenseSummaryDTO{
			sharedExpenseDTO: toSharedExpenseDTO(&s.SharedExpenseView),
			TotalOwed:        s.TotalOwed,
			TotalPaid:        s.TotalPaid,
			AllSettled:       s.AllSettled,
			DisplayAmount:    s.DisplayAmount,
			DisplayCurrency:  currencyString(s.DisplayCurrency),
		}
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *ShareHandler) ListSharedWithMe(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	display, appErr := displayCurrencyParam(r)
	if appErr != nil {
		RespondValidationError(w, []FieldError{{Field: "display_currency", Message: "must be USD, EUR, or GBP"}})
		return
	}

	summaries, err := h.shares.SharedWithUser(r.Context(), userID, display)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list participations", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]participationDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = participationDTO{
			Participant:     toParticipantDTO(&s.Participant),
			SharedExpenseID: s.Expense.ID,
			Description:     s.Expense.Description,
			TotalAmount:     s.Expense.TotalAmount,
			Currency:        string(s.Expense.Currency),
			OwnerName:       s.OwnerName,
			OwnerEmail:      s.OwnerEmail,
			CreatedAt:       s.Expense.CreatedAt,
			DisplayAmount:   s.DisplayAmount,
			DisplayCurrency: currencyString(s.DisplayCurrency),
		}
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *ShareHandler) Settlement(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	balances, err := h.shares.SettlementBalances(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to compute settlement balances", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]settlementBalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = settlementBalanceDTO{
			CounterpartyID:    b.CounterpartyID,
			CounterpartyName:  b.CounterpartyName,
			CounterpartyEmail: b.CounterpartyEmail,
			Currency:          string(b.Currency),
			YouOwe:            b.YouOwe,
			TheyOwe:           b.TheyOwe,
			Net:               b.Net,
		}
	}

	RespondSuccess(w, http.StatusOK, dtos)
}
