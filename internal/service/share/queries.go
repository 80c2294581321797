package share

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/domain"
	"github.com/balancebeacon/backend/internal/logging"
)

// SharedByUser returns every live share the user owns, annotated with how
// much is still outstanding and how much has been collected. When a
// display currency is given, each total is additionally converted for
// presentation.
func (s *Service) SharedByUser(ctx context.Context, userID uuid.UUID, display *domain.Currency) ([]SharedExpenseSummary, error) {
	expenses, err := s.shares.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SharedByUser: %w", err)
	}
	if len(expenses) == 0 {
		return []SharedExpenseSummary{}, nil
	}

	ids := make([]uuid.UUID, len(expenses))
	for i, se := range expenses {
		ids[i] = se.ID
	}

	participants, err := s.participants.ListByExpenseIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("SharedByUser: %w", err)
	}

	byExpense := make(map[uuid.UUID][]ParticipantView, len(expenses))
	for _, pw := range participants {
		byExpense[pw.SharedExpenseID] = append(byExpense[pw.SharedExpenseID], ParticipantView{
			Participant: pw.Participant,
			UserName:    pw.UserName,
			UserEmail:   pw.UserEmail,
		})
	}

	summaries := make([]SharedExpenseSummary, len(expenses))
	for i, se := range expenses {
		views := byExpense[se.ID]

		totalOwed := decimal.Zero
		totalPaid := decimal.Zero
		allSettled := true
		for _, v := range views {
			switch v.Status {
			case domain.ParticipantStatusPaid:
				totalPaid = totalPaid.Add(v.ShareAmount)
			case domain.ParticipantStatusDeclined:
				// Declined shares count toward neither total.
			default:
				totalOwed = totalOwed.Add(v.ShareAmount)
				allSettled = false
			}
		}

		summary := SharedExpenseSummary{
			SharedExpenseView: SharedExpenseView{SharedExpense: se, Participants: views},
			TotalOwed:         totalOwed,
			TotalPaid:         totalPaid,
			AllSettled:        allSettled,
		}
		s.annotateDisplay(ctx, &summary.DisplayAmount, &summary.DisplayCurrency, se.TotalAmount, se.Currency, display)
		summaries[i] = summary
	}
	return summaries, nil
}

// SharedWithUser returns every live share the user participates in, with
// the owner's identity attached.
func (s *Service) SharedWithUser(ctx context.Context, userID uuid.UUID, display *domain.Currency) ([]ParticipationSummary, error) {
	rows, err := s.participants.ListParticipations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SharedWithUser: %w", err)
	}

	summaries := make([]ParticipationSummary, len(rows))
	for i, row := range rows {
		summary := ParticipationSummary{
			Participant: row.Participant,
			Expense:     row.Expense,
			OwnerName:   row.OwnerName,
			OwnerEmail:  row.OwnerEmail,
		}
		s.annotateDisplay(ctx, &summary.DisplayAmount, &summary.DisplayCurrency, row.Participant.ShareAmount, row.Expense.Currency, display)
		summaries[i] = summary
	}
	return summaries, nil
}

// annotateDisplay attaches a converted amount when a display currency was
// requested. Conversion failures only cost the annotation, never the read.
func (s *Service) annotateDisplay(ctx context.Context, amountOut **decimal.Decimal, currencyOut **domain.Currency, amount decimal.Decimal, from domain.Currency, display *domain.Currency) {
	if display == nil || s.fx == nil {
		return
	}
	converted, err := s.fx.Convert(ctx, amount, from, *display)
	if err != nil {
		logging.FromContext(ctx).Warn("display conversion failed",
			"from", from, "to", *display, "error", err)
		return
	}
	c := *display
	*amountOut = &converted
	*currencyOut = &c
}
