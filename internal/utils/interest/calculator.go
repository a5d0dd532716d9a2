// Package interest derives daily compounding rates from monthly target
// rates and computes interest amounts. All functions are pure; monetary
// results are rounded to 2 decimal places (half-up) and rates are retained
// at 8 decimal places to avoid compounding drift.
package interest

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// RatePrecision is the number of decimal places a derived daily rate keeps.
const RatePrecision = 8

// MoneyPrecision is the number of decimal places for monetary amounts.
const MoneyPrecision = 2

// DailyRate derives the daily compounding rate d for a target monthly rate
// such that compounding d for daysInMonth days reproduces the monthly rate
// exactly: d = (1+r)^(1/n) − 1. This keeps the effective monthly rate
// constant regardless of month length (28–31 days). A zero or negative
// monthly rate is valid (interest-free) and yields zero.
func DailyRate(monthlyRate decimal.Decimal, daysInMonth int) (decimal.Decimal, error) {
	if daysInMonth < 1 {
		return decimal.Zero, fmt.Errorf("days in month must be at least 1, got %d", daysInMonth)
	}
	if monthlyRate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}

	r, _ := monthlyRate.Float64()
	d := math.Pow(1+r, 1/float64(daysInMonth)) - 1
	return decimal.NewFromFloat(d).Round(RatePrecision), nil
}

// DailyRateFor derives the daily rate for the calendar month containing the
// given year and month.
func DailyRateFor(monthlyRate decimal.Decimal, year int, month int) (decimal.Decimal, error) {
	return DailyRate(monthlyRate, DaysInMonth(year, month))
}

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year int, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	}
	return 30
}

// DailyInterest computes one day's interest on a balance:
// round(b × d, 2, half-up).
func DailyInterest(balance, dailyRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(dailyRate).Round(MoneyPrecision)
}

// CompoundInterest computes the interest earned by compounding a balance at
// the daily rate for the given number of days: round(b×(1+d)^k − b, 2).
func CompoundInterest(balance, dailyRate decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 || balance.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	factor := compoundFactor(dailyRate, days)
	return balance.Mul(factor).Sub(balance).Round(MoneyPrecision)
}

// ProjectedTotal computes the total payoff amount for a principal compounded
// daily for the given number of days.
func ProjectedTotal(principal, dailyRate decimal.Decimal, days int) decimal.Decimal {
	return principal.Add(CompoundInterest(principal, dailyRate, days))
}

// compoundFactor computes (1+d)^k by repeated multiplication, keeping the
// intermediate product at full decimal precision.
func compoundFactor(dailyRate decimal.Decimal, days int) decimal.Decimal {
	one := decimal.NewFromInt(1)
	base := one.Add(dailyRate)
	factor := one
	for i := 0; i < days; i++ {
		factor = factor.Mul(base)
	}
	return factor
}
