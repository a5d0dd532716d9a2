package interest_test

import (
	"testing"

	"github.com/harambee-apps/table_banking_app/internal/utils/interest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRate_ReproducesMonthlyRate(t *testing.T) {
	principal := decimal.NewFromInt(10000)

	testCases := []struct {
		name        string
		monthlyRate string
		days        int
	}{
		{"10% over 30 days", "0.10", 30},
		{"10% over 31 days", "0.10", 31},
		{"10% over 28 days", "0.10", 28},
		{"5% over 30 days", "0.05", 30},
		{"1.5% over 29 days", "0.015", 29},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			monthly := decimal.RequireFromString(tc.monthlyRate)
			daily, err := interest.DailyRate(monthly, tc.days)
			require.NoError(t, err)

			// Compounding the derived daily rate for the full month must
			// reproduce the monthly rate within 0.01%.
			got := interest.CompoundInterest(principal, daily, tc.days)
			want := principal.Mul(monthly)
			tolerance := want.Mul(decimal.RequireFromString("0.0001"))
			assert.True(t, got.Sub(want).Abs().LessThanOrEqual(tolerance),
				"compounded interest %s deviates from target %s", got, want)
		})
	}
}

func TestDailyRate_TenPercentThirtyDays(t *testing.T) {
	daily, err := interest.DailyRate(decimal.RequireFromString("0.10"), 30)
	require.NoError(t, err)

	// (1.10)^(1/30) − 1 ≈ 0.00318
	assert.True(t, daily.GreaterThan(decimal.RequireFromString("0.0031")))
	assert.True(t, daily.LessThan(decimal.RequireFromString("0.0033")))

	// 10,000 compounded for 30 days pays off at ≈ 11,000.00.
	total := interest.ProjectedTotal(decimal.NewFromInt(10000), daily, 30)
	diff := total.Sub(decimal.NewFromInt(11000)).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromInt(1)), "projected total %s", total)
}

func TestDailyRate_ZeroAndNegativeRates(t *testing.T) {
	daily, err := interest.DailyRate(decimal.Zero, 30)
	require.NoError(t, err)
	assert.True(t, daily.IsZero())

	daily, err = interest.DailyRate(decimal.RequireFromString("-0.05"), 31)
	require.NoError(t, err)
	assert.True(t, daily.IsZero())

	assert.True(t, interest.DailyInterest(decimal.NewFromInt(5000), daily).IsZero())
}

func TestDailyRate_InvalidDays(t *testing.T) {
	_, err := interest.DailyRate(decimal.RequireFromString("0.10"), 0)
	assert.Error(t, err)

	_, err = interest.DailyRate(decimal.RequireFromString("0.10"), -3)
	assert.Error(t, err)
}

func TestDailyInterest_RoundsHalfUpToCents(t *testing.T) {
	// 1234.56 × 0.003 = 3.70368 -> 3.70
	got := interest.DailyInterest(decimal.RequireFromString("1234.56"), decimal.RequireFromString("0.003"))
	assert.True(t, got.Equal(decimal.RequireFromString("3.70")), "got %s", got)

	// 1000 × 0.003175 = 3.175 -> 3.18 (half-up)
	got = interest.DailyInterest(decimal.NewFromInt(1000), decimal.RequireFromString("0.003175"))
	assert.True(t, got.Equal(decimal.RequireFromString("3.18")), "got %s", got)
}

func TestCompoundInterest_EdgeCases(t *testing.T) {
	daily := decimal.RequireFromString("0.0031")

	assert.True(t, interest.CompoundInterest(decimal.NewFromInt(1000), daily, 0).IsZero())
	assert.True(t, interest.CompoundInterest(decimal.Zero, daily, 10).IsZero())

	// One day of compounding equals one day of simple daily interest.
	oneDay := interest.CompoundInterest(decimal.NewFromInt(1000), daily, 1)
	simple := interest.DailyInterest(decimal.NewFromInt(1000), daily)
	assert.True(t, oneDay.Equal(simple), "compound %s vs daily %s", oneDay, simple)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, interest.DaysInMonth(2026, 8))
	assert.Equal(t, 30, interest.DaysInMonth(2026, 9))
	assert.Equal(t, 28, interest.DaysInMonth(2026, 2))
	assert.Equal(t, 29, interest.DaysInMonth(2028, 2))
	assert.Equal(t, 28, interest.DaysInMonth(2100, 2))
	assert.Equal(t, 29, interest.DaysInMonth(2000, 2))
}
