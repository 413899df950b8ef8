package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/repository"
)

var (
	ErrDebtNotFound        = errors.New("debt not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidDebt         = errors.New("invalid debt")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidRecurrence   = errors.New("invalid recurrence")
)

// LedgerService owns the canonical lists of transactions, debts and budgets.
// Every mutation is written through to the repository; if the write fails
// the in-memory state is rolled back.
type LedgerService struct {
	mu     sync.Mutex
	repo   repository.LedgerRepository
	logger *logrus.Logger
	newID  func() string
	now    func() time.Time
	ledger domain.Ledger
}

type LedgerOption func(*LedgerService)

// WithClock overrides time.Now for the dates the service stamps itself.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(newID func() string) LedgerOption {
	return func(s *LedgerService) { s.newID = newID }
}

// NewLedgerService loads the persisted ledger and returns a service over it.
func NewLedgerService(
	ctx context.Context,
	repo repository.LedgerRepository,
	logger *logrus.Logger,
	opts ...LedgerOption,
) (*LedgerService, error) {

	s := &LedgerService{
		repo:   repo,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ledger, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	s.ledger = ledger
	s.retireInvalidRecurrences()

	logger.WithFields(logrus.Fields{
		"transactions": len(ledger.Transactions),
		"debts":        len(ledger.Debts),
		"budgets":      len(ledger.Budgets),
	}).Info("ledger loaded")

	return s, nil
}

// AddTransaction creates a transaction, or replaces the stored one when tx
// carries an ID. Expenses are counted against their category budget.
func (s *LedgerService) AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	tx, err := normalizeTransaction(tx)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()
	if tx.ID == "" {
		tx.ID = s.newID()
		s.appendLocked(tx)
	} else if err := s.replaceLocked(tx); err != nil {
		return domain.Transaction{}, err
	}

	if err := s.commit(ctx, prev); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// DeleteTransaction removes a transaction and takes an expense back out of
// its category budget.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()
	if !s.deleteLocked(func(t domain.Transaction) bool { return t.ID == id }) {
		return ErrTransactionNotFound
	}
	return s.commit(ctx, prev)
}

func (s *LedgerService) Transactions(filter domain.TransactionFilter) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Transaction{}
	for _, t := range s.ledger.Transactions {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *LedgerService) Budgets() []domain.Budget {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.Budget{}, s.ledger.Budgets...)
}

// AddDebt stores a new debt together with the recurring monthly payment
// expense that tracks it.
func (s *LedgerService) AddDebt(ctx context.Context, debt domain.Debt) (domain.Debt, error) {
	if err := validateDebt(debt); err != nil {
		return domain.Debt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()
	debt.ID = s.newID()
	s.ledger.Debts = append(s.ledger.Debts, debt)

	now := s.now()
	next := addMonths(now, 1)
	paid := now
	s.appendLocked(domain.Transaction{
		ID:           s.newID(),
		Type:         domain.TransactionExpense,
		Category:     DebtCategory,
		Amount:       debt.MonthlyPayment,
		Date:         now,
		Description:  debtPaymentDescription(debt.Name),
		Label:        debt.Name,
		PaymentDate:  &paid,
		IsRecurring:  true,
		Recurrence:   domain.RecurrenceMonthly,
		NextDueDate:  &next,
		SourceDebtID: debt.ID,
	})

	if err := s.commit(ctx, prev); err != nil {
		return domain.Debt{}, err
	}

	s.warnIfUncollectable(debt)
	return debt, nil
}

// UpdateDebt replaces the debt's fields. A changed monthly payment or name is
// carried to the recurring payment transactions generated for the debt.
func (s *LedgerService) UpdateDebt(ctx context.Context, id string, debt domain.Debt) (domain.Debt, error) {
	if err := validateDebt(debt); err != nil {
		return domain.Debt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.ledger.Debts, func(d domain.Debt) bool { return d.ID == id })
	if idx < 0 {
		return domain.Debt{}, ErrDebtNotFound
	}

	prev := s.snapshot()
	old := s.ledger.Debts[idx]
	debt.ID = id
	s.ledger.Debts[idx] = debt

	if old.MonthlyPayment != debt.MonthlyPayment || old.Name != debt.Name {
		for _, t := range s.ledger.Transactions {
			if t.SourceDebtID != id || !t.IsRecurring {
				continue
			}
			t.Amount = debt.MonthlyPayment
			t.Label = debt.Name
			t.Description = debtPaymentDescription(debt.Name)
			if err := s.replaceLocked(t); err != nil {
				s.ledger = prev
				return domain.Debt{}, err
			}
		}
	}

	if err := s.commit(ctx, prev); err != nil {
		return domain.Debt{}, err
	}

	s.warnIfUncollectable(debt)
	return debt, nil
}

// DeleteDebt removes the debt and every transaction generated for it.
func (s *LedgerService) DeleteDebt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.ledger.Debts, func(d domain.Debt) bool { return d.ID == id })
	if idx < 0 {
		return ErrDebtNotFound
	}

	prev := s.snapshot()
	s.ledger.Debts = slices.Delete(s.ledger.Debts, idx, idx+1)
	for _, t := range slices.Clone(s.ledger.Transactions) {
		if t.SourceDebtID == id {
			s.deleteLocked(func(x domain.Transaction) bool { return x.ID == t.ID })
		}
	}

	return s.commit(ctx, prev)
}

func (s *LedgerService) Debt(id string) (domain.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.ledger.Debts {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Debt{}, ErrDebtNotFound
}

func (s *LedgerService) Debts() []domain.Debt {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.Debt{}, s.ledger.Debts...)
}

// DebtSummary projects the payoff of a stored debt from start.
func (s *LedgerService) DebtSummary(id string, start time.Time) (domain.DebtSummary, error) {
	debt, err := s.Debt(id)
	if err != nil {
		return domain.DebtSummary{}, err
	}

	summary := SummarizeDebt(debt, start)
	if summary.CapReached {
		s.logger.WithFields(logrus.Fields{
			"debt":    debt.ID,
			"periods": summary.MonthsToPayoff,
		}).Warn("amortization reached the period cap; payment does not cover interest")
	}
	return summary, nil
}

// RunSchedulingPass materializes every recurring transaction due today. Each
// new instance goes through the same path as a manual entry and becomes the
// template for the next cycle; the transaction it was copied from is retired
// with its due date advanced, so running the pass twice on one day creates
// nothing the second time.
func (s *LedgerService) RunSchedulingPass(ctx context.Context, today time.Time) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()
	created := []domain.Transaction{}

	n := len(s.ledger.Transactions)
	for i := 0; i < n; i++ {
		source := s.ledger.Transactions[i]
		due := MaterializeDue([]domain.Transaction{source}, today, s.newID)
		if len(due) == 0 {
			continue
		}

		instance := due[0]
		source.IsRecurring = false
		source.NextDueDate = instance.NextDueDate
		source.LastPaidDate = instance.LastPaidDate
		s.ledger.Transactions[i] = source

		s.appendLocked(instance)
		created = append(created, instance)
	}

	if len(created) == 0 {
		return created, nil
	}
	if err := s.commit(ctx, prev); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"date":    today.Format(time.DateOnly),
		"created": len(created),
	}).Info("recurring transactions materialized")
	return created, nil
}

// Dashboard aggregates the ledger as of now.
func (s *LedgerService) Dashboard(now time.Time) domain.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := domain.Dashboard{
		ExceededBudgets:  []domain.Budget{},
		UpcomingPayments: []domain.Transaction{},
	}

	for _, t := range s.ledger.Transactions {
		switch t.Type {
		case domain.TransactionIncome:
			d.TotalIncome += t.Amount
			d.Balance += t.Amount
		case domain.TransactionExpense:
			d.TotalExpenses += t.Amount
			d.Balance -= t.Amount
		}

		if t.IsRecurring && t.NextDueDate != nil {
			days := daysBetween(now, *t.NextDueDate)
			if days >= 0 && days <= UpcomingPaymentWindowDays {
				d.UpcomingPayments = append(d.UpcomingPayments, t)
			}
		}
	}
	sort.SliceStable(d.UpcomingPayments, func(i, j int) bool {
		return d.UpcomingPayments[i].NextDueDate.Before(*d.UpcomingPayments[j].NextDueDate)
	})

	for _, debt := range s.ledger.Debts {
		d.TotalDebt += debt.Balance
		d.TotalMonthlyDebtPayment += debt.MonthlyPayment
	}

	for _, b := range s.ledger.Budgets {
		if b.Exceeded() {
			d.ExceededBudgets = append(d.ExceededBudgets, b)
		}
	}

	d.TotalIncome = roundTo2Decimals(d.TotalIncome)
	d.TotalExpenses = roundTo2Decimals(d.TotalExpenses)
	d.Balance = roundTo2Decimals(d.Balance)
	d.TotalDebt = roundTo2Decimals(d.TotalDebt)
	d.TotalMonthlyDebtPayment = roundTo2Decimals(d.TotalMonthlyDebtPayment)
	return d
}

func (s *LedgerService) Export() domain.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// Import replaces the whole ledger. Every record goes through the same
// checks as a manual entry; one bad record rejects the document.
func (s *LedgerService) Import(ctx context.Context, ledger domain.Ledger) error {
	txs := make([]domain.Transaction, 0, len(ledger.Transactions))
	for i, tx := range ledger.Transactions {
		tx, err := normalizeTransaction(tx)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	for i, debt := range ledger.Debts {
		if err := validateDebt(debt); err != nil {
			return fmt.Errorf("debt %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()
	s.ledger = domain.Ledger{
		Transactions: txs,
		Debts:        slices.Clone(ledger.Debts),
		Budgets:      slices.Clone(ledger.Budgets),
	}
	return s.commit(ctx, prev)
}

func (s *LedgerService) appendLocked(tx domain.Transaction) {
	s.ledger.Transactions = append(s.ledger.Transactions, tx)
	s.applyBudget(tx, 1)
}

func (s *LedgerService) replaceLocked(tx domain.Transaction) error {
	idx := slices.IndexFunc(s.ledger.Transactions, func(t domain.Transaction) bool { return t.ID == tx.ID })
	if idx < 0 {
		return ErrTransactionNotFound
	}
	s.applyBudget(s.ledger.Transactions[idx], -1)
	s.ledger.Transactions[idx] = tx
	s.applyBudget(tx, 1)
	return nil
}

// deleteLocked removes the first transaction matching match.
func (s *LedgerService) deleteLocked(match func(domain.Transaction) bool) bool {
	idx := slices.IndexFunc(s.ledger.Transactions, match)
	if idx < 0 {
		return false
	}
	s.applyBudget(s.ledger.Transactions[idx], -1)
	s.ledger.Transactions = slices.Delete(s.ledger.Transactions, idx, idx+1)
	return true
}

// applyBudget adds (sign 1) or removes (sign -1) an expense from its
// category budget. The first expense in a category creates the budget with
// a limit of 120% of that expense.
func (s *LedgerService) applyBudget(tx domain.Transaction, sign float64) {
	if tx.Type != domain.TransactionExpense {
		return
	}

	for i := range s.ledger.Budgets {
		if s.ledger.Budgets[i].Category == tx.Category {
			s.ledger.Budgets[i].Spent += sign * tx.Amount
			return
		}
	}
	if sign < 0 {
		return
	}
	s.ledger.Budgets = append(s.ledger.Budgets, domain.Budget{
		Category: tx.Category,
		Limit:    tx.Amount * BudgetLimitFactor,
		Spent:    tx.Amount,
	})
}

func (s *LedgerService) snapshot() domain.Ledger {
	return domain.Ledger{
		Transactions: slices.Clone(s.ledger.Transactions),
		Debts:        slices.Clone(s.ledger.Debts),
		Budgets:      slices.Clone(s.ledger.Budgets),
	}
}

func (s *LedgerService) commit(ctx context.Context, prev domain.Ledger) error {
	if err := s.repo.Save(ctx, s.ledger); err != nil {
		s.ledger = prev
		s.logger.WithError(err).Error("failed to persist ledger")
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (s *LedgerService) warnIfUncollectable(debt domain.Debt) {
	if debt.Balance > 0 && debt.MonthlyPayment <= debt.MonthlyInterest() {
		s.logger.WithFields(logrus.Fields{
			"debt":            debt.ID,
			"monthlyPayment":  debt.MonthlyPayment,
			"monthlyInterest": debt.MonthlyInterest(),
			"minimumViable":   MinimumViablePayment(debt),
		}).Warn("monthly payment does not cover interest; debt will not amortize")
	}
}

// retireInvalidRecurrences stops recurring transactions whose rule cannot
// advance a due date. Left alone they would be materialized again on every
// pass of the same day.
func (s *LedgerService) retireInvalidRecurrences() {
	for i, t := range s.ledger.Transactions {
		if !t.IsRecurring || t.Recurrence.Valid() {
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"transaction": t.ID,
			"recurrence":  t.Recurrence,
		}).Warn("stored transaction has an unknown recurrence; no longer recurring")
		s.ledger.Transactions[i].IsRecurring = false
	}
}

func normalizeTransaction(tx domain.Transaction) (domain.Transaction, error) {
	if tx.Type != domain.TransactionIncome && tx.Type != domain.TransactionExpense {
		return tx, fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, tx.Type)
	}
	if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
		return tx, fmt.Errorf("%w: amount is not a number", ErrInvalidTransaction)
	}

	if !tx.IsRecurring {
		if tx.Recurrence == domain.RecurrenceNone {
			tx.Recurrence = ""
		}
		return tx, nil
	}

	if !tx.Recurrence.Valid() {
		return tx, fmt.Errorf("%w: %q", ErrInvalidRecurrence, tx.Recurrence)
	}
	if tx.NextDueDate == nil {
		next := NextDueDate(tx.Date, tx.Recurrence)
		tx.NextDueDate = &next
	}
	return tx, nil
}

func validateDebt(debt domain.Debt) error {
	if debt.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDebt)
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"balance", debt.Balance},
		{"interestRate", debt.InterestRate},
		{"minimumPayment", debt.MinimumPayment},
		{"monthlyPayment", debt.MonthlyPayment},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidDebt, f.name)
		}
	}
	return nil
}

func debtPaymentDescription(name string) string {
	return "Monthly Payment - " + name
}

// daysBetween counts whole calendar days from a to b in a's location.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
