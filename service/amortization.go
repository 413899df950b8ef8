package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"profitpulse/domain"
)

// ComputeSchedule projects the payoff of a debt month by month, starting at
// start. Each period accrues a twelfth of the annual rate on the remaining
// balance and applies the fixed monthly payment. The loop stops once the
// balance reaches zero or the schedule holds more than
// MaxAmortizationPeriods entries.
//
// Inputs are not validated. A payment that does not cover the accruing
// interest never reduces the balance, so the schedule runs to the cap.
func ComputeSchedule(debt domain.Debt, start time.Time) []domain.AmortizationEntry {
	schedule := []domain.AmortizationEntry{}
	balance := debt.Balance
	current := start

	for balance > 0 && len(schedule) <= MaxAmortizationPeriods {
		interest := balance * (debt.InterestRate / 100) / 12
		principal := min(debt.MonthlyPayment-interest, balance)
		balance -= principal

		schedule = append(schedule, domain.AmortizationEntry{
			Date:             current,
			Payment:          debt.MonthlyPayment,
			Principal:        principal,
			Interest:         interest,
			RemainingBalance: balance,
		})

		current = addMonths(current, 1)
	}

	return schedule
}

// SummarizeDebt computes the full schedule and keeps what a debt view shows:
// the first DisplayedScheduleEntries periods, the months to payoff and the
// total interest paid.
func SummarizeDebt(debt domain.Debt, start time.Time) domain.DebtSummary {
	schedule := ComputeSchedule(debt, start)

	totalInterest := 0.0
	for _, entry := range schedule {
		totalInterest += entry.Interest
	}

	preview := schedule
	if len(preview) > DisplayedScheduleEntries {
		preview = preview[:DisplayedScheduleEntries]
	}

	return domain.DebtSummary{
		DebtID:         debt.ID,
		Schedule:       preview,
		MonthsToPayoff: len(schedule),
		TotalInterest:  roundTo2Decimals(totalInterest),
		CapReached:     len(schedule) > MaxAmortizationPeriods,
	}
}

// roundTo2Decimals rounds half away from zero to cents. Non-finite values
// pass through untouched since decimal cannot represent them.
func roundTo2Decimals(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}
