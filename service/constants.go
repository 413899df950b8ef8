package service

const (
	MaxDebtAmount   = 100_000_000.0 // 100 million
	MaxInterestRate = 1000.0        // 1000% per year
	MaxTermMonths   = 600           // 50 years
	MinTermMonths   = 1

	// MaxAmortizationPeriods caps the payoff projection. The loop condition
	// is inclusive so a schedule can hold one more entry than this.
	MaxAmortizationPeriods = 360

	// DisplayedScheduleEntries is how many periods a debt summary carries.
	DisplayedScheduleEntries = 12

	// BudgetLimitFactor sizes a budget created from a first expense.
	BudgetLimitFactor = 1.2

	// UpcomingPaymentWindowDays bounds the dashboard's upcoming payments list.
	UpcomingPaymentWindowDays = 5

	DebtCategory = "Debt"
)
