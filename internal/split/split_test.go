package split

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balancebeacon/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestCalculateEqual(t *testing.T) {
	tests := []struct {
		name  string
		total string
		specs []Spec
		want  map[string]string
	}{
		{
			name:  "single participant takes half",
			total: "300.00",
			specs: []Spec{{Email: "bob@test.com"}},
			want:  map[string]string{"bob@test.com": "150"},
		},
		{
			name:  "two participants three-way split",
			total: "90.00",
			specs: []Spec{{Email: "bob@test.com"}, {Email: "ann@test.com"}},
			want:  map[string]string{"ann@test.com": "30", "bob@test.com": "30"},
		},
		{
			name:  "rounding remainder goes to first sorted participant",
			total: "100.00",
			specs: []Spec{{Email: "bob@test.com"}, {Email: "ann@test.com"}},
			want:  map[string]string{"ann@test.com": "33.34", "bob@test.com": "33.33"},
		},
		{
			name:  "sort is case-insensitive",
			total: "100.00",
			specs: []Spec{{Email: "Bob@test.com"}, {Email: "ann@test.com"}},
			want:  map[string]string{"ann@test.com": "33.34", "Bob@test.com": "33.33"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			shares, err := Calculate(domain.SplitTypeEqual, dec(tc.total), tc.specs)
			require.NoError(t, err)
			require.Len(t, shares, len(tc.specs))

			for _, sh := range shares {
				want, ok := tc.want[sh.Email]
				require.True(t, ok, "unexpected participant %s", sh.Email)
				assert.True(t, sh.Amount.Equal(dec(want)),
					"%s: got %s want %s", sh.Email, sh.Amount, want)
			}
		})
	}
}

func TestCalculateEqual_SumNeverExceedsTotal(t *testing.T) {
	totals := []string{"100.00", "0.05", "33.33", "7.77", "999999.99"}
	for _, total := range totals {
		for n := 1; n <= 7; n++ {
			specs := make([]Spec, n)
			for i := range specs {
				specs[i] = Spec{Email: string(rune('a'+i)) + "@test.com"}
			}
			shares, err := Calculate(domain.SplitTypeEqual, dec(total), specs)
			require.NoError(t, err)

			sum := decimal.Zero
			for _, sh := range shares {
				sum = sum.Add(sh.Amount)
			}
			assert.True(t, sum.LessThanOrEqual(dec(total)),
				"total=%s n=%d: participant sum %s exceeds total", total, n, sum)
		}
	}
}

func TestCalculatePercentage(t *testing.T) {
	shares, err := Calculate(domain.SplitTypePercentage, dec("200.00"), []Spec{
		{Email: "bob@test.com", Percentage: decPtr("25")},
		{Email: "ann@test.com", Percentage: decPtr("30")},
	})
	require.NoError(t, err)
	require.Len(t, shares, 2)

	assert.Equal(t, "ann@test.com", shares[0].Email)
	assert.True(t, shares[0].Amount.Equal(dec("60")))
	assert.True(t, shares[0].Percentage.Equal(dec("30")))
	assert.Equal(t, "bob@test.com", shares[1].Email)
	assert.True(t, shares[1].Amount.Equal(dec("50")))
}

func TestCalculatePercentage_SumNeverExceedsTotal(t *testing.T) {
	// A half-cent total must not round both shares up past the total.
	shares, err := Calculate(domain.SplitTypePercentage, dec("100.01"), []Spec{
		{Email: "bob@test.com", Percentage: decPtr("50")},
		{Email: "ann@test.com", Percentage: decPtr("50")},
	})
	require.NoError(t, err)
	require.Len(t, shares, 2)

	sum := decimal.Zero
	for _, sh := range shares {
		assert.True(t, sh.Amount.Equal(dec("50.00")), "got %s", sh.Amount)
		sum = sum.Add(sh.Amount)
	}
	assert.True(t, sum.LessThanOrEqual(dec("100.01")),
		"participant sum %s exceeds total", sum)

	totals := []string{"100.01", "0.05", "33.33", "7.77", "999999.99"}
	pcts := []string{"33.33", "50", "49.99", "0.01"}
	for _, total := range totals {
		for _, pct := range pcts {
			shares, err := Calculate(domain.SplitTypePercentage, dec(total), []Spec{
				{Email: "bob@test.com", Percentage: decPtr(pct)},
				{Email: "ann@test.com", Percentage: decPtr(pct)},
			})
			require.NoError(t, err)

			sum := decimal.Zero
			for _, sh := range shares {
				sum = sum.Add(sh.Amount)
			}
			assert.True(t, sum.LessThanOrEqual(dec(total)),
				"total=%s pct=%s: participant sum %s exceeds total", total, pct, sum)
		}
	}
}

func TestCalculatePercentage_LaxSum(t *testing.T) {
	// Percentages need not reach 100; the owner retains the remainder.
	shares, err := Calculate(domain.SplitTypePercentage, dec("100.00"), []Spec{
		{Email: "bob@test.com", Percentage: decPtr("10")},
	})
	require.NoError(t, err)
	assert.True(t, shares[0].Amount.Equal(dec("10")))
}

func TestCalculatePercentage_MissingPercentage(t *testing.T) {
	_, err := Calculate(domain.SplitTypePercentage, dec("100.00"), []Spec{
		{Email: "bob@test.com"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidSplit)
	assert.Contains(t, err.Error(), "bob@test.com")
}

func TestCalculateFixed(t *testing.T) {
	shares, err := Calculate(domain.SplitTypeFixed, dec("100.00"), []Spec{
		{Email: "bob@test.com", Amount: decPtr("60.00")},
		{Email: "ann@test.com", Amount: decPtr("30.00")},
	})
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.True(t, shares[0].Amount.Equal(dec("30.00")))
	assert.True(t, shares[1].Amount.Equal(dec("60.00")))
}

func TestCalculateFixed_OverAllocation(t *testing.T) {
	_, err := Calculate(domain.SplitTypeFixed, dec("100.00"), []Spec{
		{Email: "bob@test.com", Amount: decPtr("60.00")},
		{Email: "ann@test.com", Amount: decPtr("50.00")},
	})
	require.ErrorIs(t, err, domain.ErrInvalidSplit)
	assert.Contains(t, err.Error(), "110")
	assert.Contains(t, err.Error(), "100")
}

func TestCalculateFixed_MissingAmount(t *testing.T) {
	_, err := Calculate(domain.SplitTypeFixed, dec("100.00"), []Spec{
		{Email: "bob@test.com"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidSplit)
}

func TestCalculateErrors(t *testing.T) {
	tests := []struct {
		name      string
		splitType domain.SplitType
		total     string
		specs     []Spec
	}{
		{"zero total", domain.SplitTypeEqual, "0", []Spec{{Email: "a@test.com"}}},
		{"negative total", domain.SplitTypeEqual, "-5", []Spec{{Email: "a@test.com"}}},
		{"no participants", domain.SplitTypeEqual, "10", nil},
		{"unknown split type", domain.SplitType("weird"), "10", []Spec{{Email: "a@test.com"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.splitType, dec(tc.total), tc.specs)
			require.ErrorIs(t, err, domain.ErrInvalidSplit)
		})
	}
}

func TestCalculateDeterminism(t *testing.T) {
	specs := []Spec{{Email: "zoe@test.com"}, {Email: "bob@test.com"}, {Email: "ann@test.com"}}

	first, err := Calculate(domain.SplitTypeEqual, dec("77.77"), specs)
	require.NoError(t, err)

	for range 10 {
		again, err := Calculate(domain.SplitTypeEqual, dec("77.77"), specs)
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for i := range first {
			assert.Equal(t, first[i].Email, again[i].Email)
			assert.True(t, first[i].Amount.Equal(again[i].Amount))
		}
	}
}
