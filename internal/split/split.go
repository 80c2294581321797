package split

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/domain"
)

// Spec describes one participant's input to the calculator. Amount is
// required for fixed splits, Percentage for percentage splits; equal
// splits need neither.
type Spec struct {
	Email      string
	Amount     *decimal.Decimal
	Percentage *decimal.Decimal
}

// Share is one participant's computed portion.
type Share struct {
	Email      string
	Amount     decimal.Decimal
	Percentage *decimal.Decimal
}

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.NewFromFloat(0.01)
)

// Calculate computes per-participant shares for the given split type.
// The result is ordered by email (case-insensitive) and is deterministic:
// identical inputs always yield identical output, which is what makes
// idempotent retries of share creation safe.
//
// For equal splits the owner implicitly holds one share, so the divisor is
// len(specs)+1; the sub-division rounding remainder goes to the first
// participant in sorted order so the allocated total never exceeds the
// owner's complement of the total amount.
//
// Percentage splits are deliberately lax about the percentage sum: callers
// that want a full 100% allocation enforce it themselves. An under-allocated
// split means the owner retains the remainder.
func Calculate(splitType domain.SplitType, total decimal.Decimal, specs []Spec) ([]Share, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.SplitError{Reason: "total amount must be positive"}
	}
	if len(specs) == 0 {
		return nil, &domain.SplitError{Reason: "at least one participant is required"}
	}

	sorted := make([]Spec, len(specs))
	copy(sorted, specs)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Email) < strings.ToLower(sorted[j].Email)
	})

	switch splitType {
	case domain.SplitTypeEqual:
		return equalShares(total, sorted), nil
	case domain.SplitTypePercentage:
		return percentageShares(total, sorted)
	case domain.SplitTypeFixed:
		return fixedShares(total, sorted)
	default:
		return nil, &domain.SplitError{Reason: fmt.Sprintf("unknown split type %q", splitType)}
	}
}

func equalShares(total decimal.Decimal, specs []Spec) []Share {
	headcount := decimal.NewFromInt(int64(len(specs) + 1))
	base := total.Div(headcount).RoundDown(2)

	// Everything not retained by the owner is allocated to participants;
	// the rounding remainder lands on the first participant.
	remainder := total.Sub(base.Mul(headcount))

	shares := make([]Share, len(specs))
	for i, s := range specs {
		amount := base
		if i == 0 {
			amount = amount.Add(remainder)
		}
		shares[i] = Share{Email: s.Email, Amount: amount}
	}
	return shares
}

func percentageShares(total decimal.Decimal, specs []Spec) ([]Share, error) {
	shares := make([]Share, len(specs))
	for i, s := range specs {
		if s.Percentage == nil {
			return nil, &domain.SplitError{Reason: fmt.Sprintf("participant %s is missing a share percentage", s.Email)}
		}
		pct := *s.Percentage
		if pct.LessThanOrEqual(decimal.Zero) || pct.GreaterThan(hundred) {
			return nil, &domain.SplitError{Reason: fmt.Sprintf("participant %s has an invalid percentage %s", s.Email, pct)}
		}
		// Round down so the allocated sum can never exceed the total; any
		// rounding deficit stays with the owner, as in the equal branch.
		amount := total.Mul(pct).Div(hundred).RoundDown(2)
		p := pct
		shares[i] = Share{Email: s.Email, Amount: amount, Percentage: &p}
	}
	return shares, nil
}

func fixedShares(total decimal.Decimal, specs []Spec) ([]Share, error) {
	sum := decimal.Zero
	shares := make([]Share, len(specs))
	for i, s := range specs {
		if s.Amount == nil {
			return nil, &domain.SplitError{Reason: fmt.Sprintf("participant %s is missing a share amount", s.Email)}
		}
		amount := *s.Amount
		if amount.LessThan(cent) {
			return nil, &domain.SplitError{Reason: fmt.Sprintf("participant %s has a non-positive share amount", s.Email)}
		}
		sum = sum.Add(amount)
		shares[i] = Share{Email: s.Email, Amount: amount}
	}

	// The owner implicitly retains any unallocated remainder, but fixed
	// shares can never exceed the transaction total.
	if sum.GreaterThan(total) {
		return nil, &domain.SplitError{
			Reason: fmt.Sprintf("fixed shares sum to %s which exceeds the total %s", sum, total),
		}
	}
	return shares, nil
}
