package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balancebeacon/backend/internal/auth"
	"github.com/balancebeacon/backend/internal/domain"
	"github.com/balancebeacon/backend/internal/service/share"
)

type stubShareService struct {
	createView *share.SharedExpenseView
	createErr  error

	participant *domain.Participant
	actionErr   error

	cancelErr error

	summaries      []share.SharedExpenseSummary
	participations []share.ParticipationSummary
	balances       []domain.SettlementBalance
	listErr        error

	lastCreate share.CreateRequest
}

func (s *stubShareService) Create(_ context.Context, req share.CreateRequest) (*share.SharedExpenseView, error) {
	s.lastCreate = req
	return s.createView, s.createErr
}

func (s *stubShareService) Cancel(_ context.Context, _, _ uuid.UUID) error {
	return s.cancelErr
}

func (s *stubShareService) MarkPaid(_ context.Context, _, _ uuid.UUID) (*domain.Participant, error) {
	return s.participant, s.actionErr
}

func (s *stubShareService) Decline(_ context.Context, _, _ uuid.UUID, _ *string) (*domain.Participant, error) {
	return s.participant, s.actionErr
}

func (s *stubShareService) SendReminder(_ context.Context, _, _ uuid.UUID) (*domain.Participant, error) {
	return s.participant, s.actionErr
}

func (s *stubShareService) SharedByUser(_ context.Context, _ uuid.UUID, _ *domain.Currency) ([]share.SharedExpenseSummary, error) {
	return s.summaries, s.listErr
}

func (s *stubShareService) SharedWithUser(_ context.Context, _ uuid.UUID, _ *domain.Currency) ([]share.ParticipationSummary, error) {
	return s.participations, s.listErr
}

func (s *stubShareService) SettlementBalances(_ context.Context, _ uuid.UUID) ([]domain.SettlementBalance, error) {
	return s.balances, s.listErr
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.ContextWithUserID(req.Context(), uuid.New())
	return req.WithContext(ctx)
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func validCreateBody() string {
	body := map[string]any{
		"transaction_id": uuid.NewString(),
		"split_type":     "equal",
		"participants": []map[string]any{
			{"email": "ama@test.com"},
			{"email": "kofi@test.com"},
		},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func TestShareHandlerCreate_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid JSON",
			body:       "not-json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name: "missing transaction_id",
			body: `{"split_type":"equal","participants":[{"email":"ama@test.com"}]}`,

			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad split type",
			body:       fmt.Sprintf(`{"transaction_id":%q,"split_type":"thirds","participants":[{"email":"ama@test.com"}]}`, uuid.NewString()),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "no participants",
			body:       fmt.Sprintf(`{"transaction_id":%q,"split_type":"equal","participants":[]}`, uuid.NewString()),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "fixed split without amounts",
			body:       fmt.Sprintf(`{"transaction_id":%q,"split_type":"fixed","participants":[{"email":"ama@test.com"}]}`, uuid.NewString()),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "percentage split without percentages",
			body:       fmt.Sprintf(`{"transaction_id":%q,"split_type":"percentage","participants":[{"email":"ama@test.com"}]}`, uuid.NewString()),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewShareHandler(&stubShareService{})

			req := authedRequest(http.MethodPost, "/shared-expenses", tc.body)
			rr := httptest.NewRecorder()
			h.Create(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp := decodeResponse(t, rr)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestShareHandlerCreate_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"already shared", domain.ErrAlreadyShared, http.StatusConflict, "ALREADY_SHARED"},
		{"self share", domain.ErrSelfShare, http.StatusBadRequest, "SELF_SHARE_NOT_ALLOWED"},
		{"duplicate participant", domain.ErrDuplicateParticipant, http.StatusBadRequest, "DUPLICATE_PARTICIPANT"},
		{"income not shareable", domain.ErrIncomeNotShareable, http.StatusBadRequest, "INCOME_NOT_SHAREABLE"},
		{"transaction not found", domain.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_NOT_FOUND"},
		{"not the owner", domain.ErrNotShareOwner, http.StatusForbidden, "NOT_SHARE_OWNER"},
		{"bad split", &domain.SplitError{Reason: "fixed amounts exceed the total"}, http.StatusBadRequest, "INVALID_SPLIT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewShareHandler(&stubShareService{createErr: fmt.Errorf("Create: %w", tc.err)})

			req := authedRequest(http.MethodPost, "/shared-expenses", validCreateBody())
			rr := httptest.NewRecorder()
			h.Create(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp := decodeResponse(t, rr)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestShareHandlerCreate_Success(t *testing.T) {
	view := &share.SharedExpenseView{
		SharedExpense: domain.SharedExpense{
			ID:          uuid.New(),
			SplitType:   domain.SplitTypeEqual,
			TotalAmount: decimal.RequireFromString("300.00"),
			Currency:    domain.CurrencyUSD,
			Description: "Dinner",
		},
		Participants: []share.ParticipantView{
			{
				Participant: domain.Participant{
					ID:          uuid.New(),
					ShareAmount: decimal.RequireFromString("100.00"),
					Status:      domain.ParticipantStatusPending,
				},
				UserName:  "Ama",
				UserEmail: "ama@test.com",
			},
		},
	}
	svc := &stubShareService{createView: view}
	h := NewShareHandler(svc)

	req := authedRequest(http.MethodPost, "/shared-expenses", validCreateBody())
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	resp := decodeResponse(t, rr)
	assert.True(t, resp.Success)

	assert.Equal(t, domain.SplitTypeEqual, svc.lastCreate.SplitType)
	require.Len(t, svc.lastCreate.Participants, 2)
	assert.Equal(t, "ama@test.com", svc.lastCreate.Participants[0].Email)
}

func TestShareHandlerCreate_Unauthenticated(t *testing.T) {
	h := NewShareHandler(&stubShareService{})

	req := httptest.NewRequest(http.MethodPost, "/shared-expenses", strings.NewReader(validCreateBody()))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestShareHandlerMarkPaid_StatusConflictDetail(t *testing.T) {
	err := fmt.Errorf("MarkPaid: %w", &domain.StatusError{Current: domain.ParticipantStatusDeclined})
	h := NewShareHandler(&stubShareService{actionErr: err})

	req := authedRequest(http.MethodPost, "/participants/"+uuid.NewString()+"/pay", "")
	req.SetPathValue("id", uuid.NewString())
	rr := httptest.NewRecorder()
	h.MarkPaid(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decodeResponse(t, rr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SHARE_NOT_PENDING", resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "declined", details["current_status"])
}

func TestShareHandlerMarkPaid_BadParticipantID(t *testing.T) {
	h := NewShareHandler(&stubShareService{})

	req := authedRequest(http.MethodPost, "/participants/nope/pay", "")
	req.SetPathValue("id", "nope")
	rr := httptest.NewRecorder()
	h.MarkPaid(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestShareHandlerDecline_NoBody(t *testing.T) {
	p := &domain.Participant{
		ID:          uuid.New(),
		ShareAmount: decimal.RequireFromString("50.00"),
		Status:      domain.ParticipantStatusDeclined,
	}
	h := NewShareHandler(&stubShareService{participant: p})

	req := authedRequest(http.MethodPost, "/participants/"+p.ID.String()+"/decline", "")
	req.SetPathValue("id", p.ID.String())
	rr := httptest.NewRecorder()
	h.Decline(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decodeResponse(t, rr)
	assert.True(t, resp.Success)
}

func TestShareHandlerRemind_Cooldown(t *testing.T) {
	err := fmt.Errorf("SendReminder: %w", domain.ErrReminderCooldown)
	h := NewShareHandler(&stubShareService{actionErr: err})

	req := authedRequest(http.MethodPost, "/participants/"+uuid.NewString()+"/remind", "")
	req.SetPathValue("id", uuid.NewString())
	rr := httptest.NewRecorder()
	h.Remind(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decodeResponse(t, rr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "REMINDER_COOLDOWN", resp.Error.Code)
}

func TestShareHandlerListShared_BadDisplayCurrency(t *testing.T) {
	h := NewShareHandler(&stubShareService{})

	req := authedRequest(http.MethodGet, "/shared-expenses?display_currency=XYZ", "")
	rr := httptest.NewRecorder()
	h.ListShared(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeResponse(t, rr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestShareHandlerSettlement(t *testing.T) {
	counterparty := uuid.New()
	h := NewShareHandler(&stubShareService{
		balances: []domain.SettlementBalance{
			{
				CounterpartyID:    counterparty,
				CounterpartyName:  "Ama",
				CounterpartyEmail: "ama@test.com",
				Currency:          domain.CurrencyUSD,
				YouOwe:            decimal.RequireFromString("20.00"),
				TheyOwe:           decimal.RequireFromString("50.00"),
				Net:               decimal.RequireFromString("30.00"),
			},
		},
	})

	req := authedRequest(http.MethodGet, "/settlement", "")
	rr := httptest.NewRecorder()
	h.Settlement(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeResponse(t, rr)
	assert.True(t, resp.Success)

	entries, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, counterparty.String(), entry["counterparty_id"])
	assert.Equal(t, "30", entry["net"])
	assert.Equal(t, "50", entry["they_owe"])
}
