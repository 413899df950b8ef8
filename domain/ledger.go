package domain

// Ledger is the whole persisted document: every transaction, debt and budget.
type Ledger struct {
	Transactions []Transaction `json:"transactions"`
	Debts        []Debt        `json:"debts"`
	Budgets      []Budget      `json:"budgets"`
}

type Dashboard struct {
	TotalIncome             float64       `json:"totalIncome"`
	TotalExpenses           float64       `json:"totalExpenses"`
	Balance                 float64       `json:"balance"`
	TotalDebt               float64       `json:"totalDebt"`
	TotalMonthlyDebtPayment float64       `json:"totalMonthlyDebtPayment"`
	ExceededBudgets         []Budget      `json:"exceededBudgets"`
	UpcomingPayments        []Transaction `json:"upcomingPayments"`
}

type User struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Name                string `json:"name,omitempty"`
	HasPaidSubscription bool   `json:"hasPaidSubscription"`
}
