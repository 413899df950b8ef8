package domain

import "time"

type Debt struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Balance        float64 `json:"balance"`
	InterestRate   float64 `json:"interestRate"`
	MinimumPayment float64 `json:"minimumPayment"`
	MonthlyPayment float64 `json:"monthlyPayment"`
}

// MonthlyInterest is the interest accrued on the current balance in one period.
func (d Debt) MonthlyInterest() float64 {
	return d.Balance * (d.InterestRate / 100) / 12
}

type AmortizationEntry struct {
	Date             time.Time `json:"date"`
	Payment          float64   `json:"payment"`
	Principal        float64   `json:"principal"`
	Interest         float64   `json:"interest"`
	RemainingBalance float64   `json:"remainingBalance"`
}

type DebtSummary struct {
	DebtID         string              `json:"debtId"`
	Schedule       []AmortizationEntry `json:"schedule"`
	MonthsToPayoff int                 `json:"monthsToPayoff"`
	TotalInterest  float64             `json:"totalInterest"`
	CapReached     bool                `json:"capReached"`
}

type RequiredPaymentInput struct {
	Balance      float64
	InterestRate float64
	Months       int
}

type RequiredPaymentResult struct {
	Months         int     `json:"months"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalPayment   float64 `json:"totalPayment"`
	TotalInterest  float64 `json:"totalInterest"`
}
