package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/repository"
)

// BusinessBaseCurrency is the currency business prices and amounts are
// stored in.
const BusinessBaseCurrency = "USD"

const defaultEmployeeID = "default"

var (
	ErrProductNotFound             = errors.New("product not found")
	ErrInvalidProduct              = errors.New("invalid product")
	ErrInsufficientStock           = errors.New("insufficient stock")
	ErrBusinessTransactionNotFound = errors.New("business transaction not found")
	ErrInvalidBusinessTransaction  = errors.New("invalid business transaction")
	ErrAccountsEntryNotFound       = errors.New("accounts entry not found")
	ErrInvalidAccountsEntry        = errors.New("invalid accounts entry")
)

// BusinessService owns the inventory, the sales/refund log and the
// payables/receivables of the business module. Like LedgerService it writes
// every mutation through to its repository and rolls back on failure.
type BusinessService struct {
	mu        sync.Mutex
	repo      repository.BusinessRepository
	converter *CurrencyConverter
	logger    *logrus.Logger
	newID     func() string
	now       func() time.Time
	ledger    domain.BusinessLedger
}

type BusinessOption func(*BusinessService)

func WithBusinessClock(now func() time.Time) BusinessOption {
	return func(s *BusinessService) { s.now = now }
}

func WithBusinessIDGenerator(newID func() string) BusinessOption {
	return func(s *BusinessService) { s.newID = newID }
}

func NewBusinessService(
	ctx context.Context,
	repo repository.BusinessRepository,
	converter *CurrencyConverter,
	logger *logrus.Logger,
	opts ...BusinessOption,
) (*BusinessService, error) {

	s := &BusinessService{
		repo:      repo,
		converter: converter,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ledger, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load business ledger: %w", err)
	}
	s.ledger = ledger

	logger.WithFields(logrus.Fields{
		"products":     len(ledger.Inventory),
		"transactions": len(ledger.Transactions),
		"accounts":     len(ledger.Accounts),
	}).Info("business ledger loaded")

	return s, nil
}

// SaveProduct creates a product, or replaces the stored one when p carries
// an ID. SKUs are unique across the inventory.
func (s *BusinessService) SaveProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.ledger.Inventory {
		if other.SKU == p.SKU && other.ID != p.ID {
			return domain.Product{}, fmt.Errorf("%w: sku %q already in use", ErrInvalidProduct, p.SKU)
		}
	}

	prev := s.snapshot()
	if p.ID == "" {
		p.ID = s.newID()
		s.ledger.Inventory = append(s.ledger.Inventory, p)
	} else {
		idx := slices.IndexFunc(s.ledger.Inventory, func(x domain.Product) bool { return x.ID == p.ID })
		if idx < 0 {
			return domain.Product{}, ErrProductNotFound
		}
		s.ledger.Inventory[idx] = p
	}

	if err := s.commit(ctx, prev); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *BusinessService) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.ledger.Inventory, func(p domain.Product) bool { return p.ID == id })
	if idx < 0 {
		return ErrProductNotFound
	}

	prev := s.snapshot()
	s.ledger.Inventory = slices.Delete(s.ledger.Inventory, idx, idx+1)
	return s.commit(ctx, prev)
}

func (s *BusinessService) Inventory(filter domain.InventoryFilter) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Product{}
	for _, p := range s.ledger.Inventory {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// RecordTransaction prices the requested lines from the inventory, moves
// stock (down for a sale, up for a refund or exchange) and logs the
// transaction. A sale is refused when any product lacks the stock for it.
func (s *BusinessService) RecordTransaction(
	ctx context.Context,
	req domain.BusinessTransactionRequest,
) (domain.BusinessTransaction, error) {

	switch req.Type {
	case domain.BusinessSale, domain.BusinessRefund, domain.BusinessExchange:
	default:
		return domain.BusinessTransaction{}, fmt.Errorf("%w: unknown type %q", ErrInvalidBusinessTransaction, req.Type)
	}
	if len(req.Items) == 0 {
		return domain.BusinessTransaction{}, fmt.Errorf("%w: no items", ErrInvalidBusinessTransaction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requested := map[string]int{}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return domain.BusinessTransaction{}, fmt.Errorf("%w: quantity for %q must be positive", ErrInvalidBusinessTransaction, line.SKU)
		}
		requested[line.SKU] += line.Quantity
	}

	for _, line := range req.Items {
		idx := s.productIndexBySKU(line.SKU)
		if idx < 0 {
			return domain.BusinessTransaction{}, fmt.Errorf("%w: sku %q", ErrProductNotFound, line.SKU)
		}
		available := s.ledger.Inventory[idx].Quantity
		if req.Type == domain.BusinessSale && available < requested[line.SKU] {
			return domain.BusinessTransaction{}, fmt.Errorf("%w: only %d units of %q available", ErrInsufficientStock, available, line.SKU)
		}
	}

	prev := s.snapshot()
	now := s.now()
	tx := domain.BusinessTransaction{
		ID:            s.newID(),
		Timestamp:     now,
		Type:          req.Type,
		Items:         make([]domain.BusinessTransactionItem, 0, len(req.Items)),
		EmployeeID:    req.EmployeeID,
		Notes:         req.Notes,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		PaymentMethod: req.PaymentMethod,
		Customer:      req.Customer,
	}
	tx.InvoiceNumber = fmt.Sprintf("INV-%s-%s", now.Format("20060102"), invoiceSuffix(tx.ID))
	if tx.EmployeeID == "" {
		tx.EmployeeID = defaultEmployeeID
	}
	if tx.Status == "" {
		tx.Status = domain.BusinessStatusPending
	}
	if tx.PaymentStatus == "" {
		tx.PaymentStatus = domain.PaymentUnpaid
	}

	for _, line := range req.Items {
		idx := s.productIndexBySKU(line.SKU)
		product := s.ledger.Inventory[idx]

		item := domain.BusinessTransactionItem{
			ID:             s.newID(),
			Description:    product.Name,
			Quantity:       line.Quantity,
			UnitPrice:      product.Price,
			TotalPrice:     float64(line.Quantity) * product.Price,
			Cost:           product.Cost,
			SKU:            product.SKU,
			Category:       product.Category,
			TaxRate:        line.TaxRate,
			DiscountAmount: line.DiscountAmount,
		}
		tx.Items = append(tx.Items, item)
		tx.TotalAmount += item.TotalPrice
		if req.Type == domain.BusinessSale {
			tx.ProfitMargin += (item.UnitPrice - product.Cost) * float64(item.Quantity)
			s.ledger.Inventory[idx].Quantity -= line.Quantity
		} else {
			s.ledger.Inventory[idx].Quantity += line.Quantity
		}
	}
	tx.TotalAmount = roundTo2Decimals(tx.TotalAmount)
	tx.ProfitMargin = roundTo2Decimals(tx.ProfitMargin)

	s.ledger.Transactions = append(s.ledger.Transactions, tx)
	if err := s.commit(ctx, prev); err != nil {
		return domain.BusinessTransaction{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"invoice": tx.InvoiceNumber,
		"type":    tx.Type,
		"total":   tx.TotalAmount,
	}).Info("business transaction recorded")
	return tx, nil
}

// DeleteTransaction drops a transaction from the log. Stock is not moved
// back.
func (s *BusinessService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.ledger.Transactions, func(t domain.BusinessTransaction) bool { return t.ID == id })
	if idx < 0 {
		return ErrBusinessTransactionNotFound
	}

	prev := s.snapshot()
	s.ledger.Transactions = slices.Delete(s.ledger.Transactions, idx, idx+1)
	return s.commit(ctx, prev)
}

func (s *BusinessService) Transactions() []domain.BusinessTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.BusinessTransaction{}, s.ledger.Transactions...)
}

// AddAccountsEntry stores a payable or receivable. Recurring entries get
// their next due date one step after DueDate.
func (s *BusinessService) AddAccountsEntry(ctx context.Context, e domain.AccountsEntry) (domain.AccountsEntry, error) {
	e, err := normalizeAccountsEntry(e)
	if err != nil {
		return domain.AccountsEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()
	e.ID = s.newID()
	s.ledger.Accounts = append(s.ledger.Accounts, e)

	if err := s.commit(ctx, prev); err != nil {
		return domain.AccountsEntry{}, err
	}
	return e, nil
}

func (s *BusinessService) DeleteAccountsEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.ledger.Accounts, func(e domain.AccountsEntry) bool { return e.ID == id })
	if idx < 0 {
		return ErrAccountsEntryNotFound
	}

	prev := s.snapshot()
	s.ledger.Accounts = slices.Delete(s.ledger.Accounts, idx, idx+1)
	return s.commit(ctx, prev)
}

func (s *BusinessService) Accounts(filter domain.AccountsFilter) []domain.AccountsEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.AccountsEntry{}
	for _, e := range s.ledger.Accounts {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// MarkOverdue flags pending entries whose due day is before today.
func (s *BusinessService) MarkOverdue(ctx context.Context, today time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()
	marked := 0
	for i, e := range s.ledger.Accounts {
		if e.Status == domain.AccountsPending && daysBetween(today, e.DueDate) < 0 {
			s.ledger.Accounts[i].Status = domain.AccountsOverdue
			marked++
		}
	}
	if marked == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, prev); err != nil {
		return 0, err
	}

	s.logger.WithField("entries", marked).Info("accounts entries marked overdue")
	return marked, nil
}

// Dashboard aggregates the business ledger and expresses the amounts in
// currency (the base currency when empty). Refunds and the cost of the
// stock on hand count as expenses.
func (s *BusinessService) Dashboard(currency string) domain.BusinessDashboard {
	if currency == "" {
		currency = BusinessBaseCurrency
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var d domain.BusinessDashboard
	for _, t := range s.ledger.Transactions {
		switch t.Type {
		case domain.BusinessSale:
			d.TotalRevenue += t.TotalAmount
		case domain.BusinessRefund:
			d.TotalExpenses += t.TotalAmount
		}
		if t.Status == domain.BusinessStatusPending {
			d.PendingTransactions++
		}
	}

	for _, p := range s.ledger.Inventory {
		qty := float64(p.Quantity)
		d.InventoryCost += p.Cost * qty
		d.InventoryValue += p.Price * qty
		if p.Quantity <= p.MinStockLevel {
			d.LowStockItems++
		}
	}
	d.TotalExpenses += d.InventoryCost

	for _, e := range s.ledger.Accounts {
		if e.Status == domain.AccountsOverdue {
			d.OverdueAccounts++
		}
		if e.Status == domain.AccountsPaid {
			continue
		}
		switch e.Type {
		case domain.Payable:
			d.TotalPayable += e.Amount
		case domain.Receivable:
			d.TotalReceivable += e.Amount
		}
	}

	d.NetProfit = d.TotalRevenue - d.TotalExpenses

	convert := func(v float64) float64 {
		if s.converter != nil {
			v = s.converter.Convert(v, BusinessBaseCurrency, currency)
		}
		return roundTo2Decimals(v)
	}
	d.Currency = strings.ToUpper(currency)
	d.TotalRevenue = convert(d.TotalRevenue)
	d.TotalExpenses = convert(d.TotalExpenses)
	d.NetProfit = convert(d.NetProfit)
	d.InventoryValue = convert(d.InventoryValue)
	d.InventoryCost = convert(d.InventoryCost)
	d.TotalPayable = convert(d.TotalPayable)
	d.TotalReceivable = convert(d.TotalReceivable)
	return d
}

func (s *BusinessService) productIndexBySKU(sku string) int {
	return slices.IndexFunc(s.ledger.Inventory, func(p domain.Product) bool { return p.SKU == sku })
}

func (s *BusinessService) snapshot() domain.BusinessLedger {
	return domain.BusinessLedger{
		Transactions: slices.Clone(s.ledger.Transactions),
		Inventory:    slices.Clone(s.ledger.Inventory),
		Accounts:     slices.Clone(s.ledger.Accounts),
	}
}

func (s *BusinessService) commit(ctx context.Context, prev domain.BusinessLedger) error {
	if err := s.repo.Save(ctx, s.ledger); err != nil {
		s.ledger = prev
		s.logger.WithError(err).Error("failed to persist business ledger")
		return fmt.Errorf("save business ledger: %w", err)
	}
	return nil
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	}
	for _, v := range []float64{p.Price, p.Cost} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: price and cost must be non-negative numbers", ErrInvalidProduct)
		}
	}
	if p.Quantity < 0 || p.MinStockLevel < 0 {
		return fmt.Errorf("%w: quantities must not be negative", ErrInvalidProduct)
	}
	return nil
}

// Accounts entries repeat daily, weekly or monthly; the four-weekly rule is
// personal-ledger only.
func normalizeAccountsEntry(e domain.AccountsEntry) (domain.AccountsEntry, error) {
	switch e.Type {
	case domain.Payable, domain.Receivable:
	default:
		return e, fmt.Errorf("%w: unknown type %q", ErrInvalidAccountsEntry, e.Type)
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) || e.Amount <= 0 {
		return e, fmt.Errorf("%w: amount must be positive", ErrInvalidAccountsEntry)
	}
	if strings.TrimSpace(e.Description) == "" {
		return e, fmt.Errorf("%w: description is required", ErrInvalidAccountsEntry)
	}
	if e.DueDate.IsZero() {
		return e, fmt.Errorf("%w: due date is required", ErrInvalidAccountsEntry)
	}

	switch e.Status {
	case "":
		e.Status = domain.AccountsPending
	case domain.AccountsPending, domain.AccountsPaid, domain.AccountsOverdue:
	default:
		return e, fmt.Errorf("%w: unknown status %q", ErrInvalidAccountsEntry, e.Status)
	}

	switch e.Recurrence {
	case "", domain.RecurrenceNone:
		e.Recurrence = domain.RecurrenceNone
		e.NextDueDate = nil
	case domain.RecurrenceDaily, domain.RecurrenceWeekly, domain.RecurrenceMonthly:
		next := NextDueDate(e.DueDate, e.Recurrence)
		e.NextDueDate = &next
	default:
		return e, fmt.Errorf("%w: %q", ErrInvalidRecurrence, e.Recurrence)
	}
	return e, nil
}

func invoiceSuffix(id string) string {
	var b strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == 4 {
				break
			}
		}
	}
	return b.String()
}
