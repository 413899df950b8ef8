package domain

import "time"

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

type Recurrence string

const (
	RecurrenceNone     Recurrence = "none"
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceFourWeek Recurrence = "4weekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

// Valid reports whether r is a rule that actually repeats.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceFourWeek, RecurrenceMonthly:
		return true
	}
	return false
}

// Transaction is an income or expense record. Recurring transactions carry
// the recurrence metadata; SourceDebtID links a generated debt payment back
// to the debt it was created for.
type Transaction struct {
	ID               string          `json:"id"`
	Type             TransactionType `json:"type"`
	Category         string          `json:"category"`
	Amount           float64         `json:"amount"`
	OriginalAmount   float64         `json:"originalAmount,omitempty"`
	OriginalCurrency string          `json:"originalCurrency,omitempty"`
	Date             time.Time       `json:"date"`
	Description      string          `json:"description"`
	Label            string          `json:"label,omitempty"`
	PaymentDate      *time.Time      `json:"paymentDate,omitempty"`
	IsRecurring      bool            `json:"isRecurring,omitempty"`
	Recurrence       Recurrence      `json:"recurrence,omitempty"`
	NextDueDate      *time.Time      `json:"nextDueDate,omitempty"`
	LastPaidDate     *time.Time      `json:"lastPaidDate,omitempty"`
	SourceDebtID     string          `json:"sourceDebtId,omitempty"`
}

type TransactionFilter struct {
	Type     TransactionType
	Category string
}

// Match reports whether t passes the filter. Empty fields match everything.
func (f TransactionFilter) Match(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	return true
}

type Budget struct {
	Category string  `json:"category"`
	Limit    float64 `json:"limit"`
	Spent    float64 `json:"spent"`
}

func (b Budget) Exceeded() bool {
	return b.Spent > b.Limit
}
