package domain

import "time"

type BusinessTransactionType string

const (
	BusinessSale     BusinessTransactionType = "sale"
	BusinessRefund   BusinessTransactionType = "refund"
	BusinessExchange BusinessTransactionType = "exchange"
)

type BusinessTransactionStatus string

const (
	BusinessStatusPending   BusinessTransactionStatus = "pending"
	BusinessStatusCompleted BusinessTransactionStatus = "completed"
	BusinessStatusCancelled BusinessTransactionStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
)

type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Product is a stock line. Prices and costs are in the business base
// currency.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	SKU           string  `json:"sku"`
	Price         float64 `json:"price"`
	Cost          float64 `json:"cost"`
	Quantity      int     `json:"quantity"`
	Category      string  `json:"category"`
	MinStockLevel int     `json:"minStockLevel,omitempty"`
	Supplier      string  `json:"supplier,omitempty"`
}

// LowStock reports whether the product has a minimum stock level and is at
// or below it.
func (p Product) LowStock() bool {
	return p.MinStockLevel > 0 && p.Quantity <= p.MinStockLevel
}

type BusinessTransactionItem struct {
	ID             string  `json:"id"`
	Description    string  `json:"description"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unitPrice"`
	TotalPrice     float64 `json:"totalPrice"`
	Cost           float64 `json:"cost"`
	SKU            string  `json:"sku,omitempty"`
	Category       string  `json:"category,omitempty"`
	TaxRate        float64 `json:"taxRate,omitempty"`
	DiscountAmount float64 `json:"discountAmount,omitempty"`
}

type BusinessTransaction struct {
	ID            string                    `json:"id"`
	InvoiceNumber string                    `json:"invoiceNumber"`
	Timestamp     time.Time                 `json:"timestamp"`
	Type          BusinessTransactionType   `json:"type"`
	Items         []BusinessTransactionItem `json:"items"`
	TotalAmount   float64                   `json:"totalAmount"`
	ProfitMargin  float64                   `json:"profitMargin"`
	EmployeeID    string                    `json:"employeeId"`
	Notes         string                    `json:"notes,omitempty"`
	Status        BusinessTransactionStatus `json:"status"`
	PaymentStatus PaymentStatus             `json:"paymentStatus"`
	PaymentMethod string                    `json:"paymentMethod,omitempty"`
	Customer      *ContactInfo              `json:"customerInfo,omitempty"`
}

// LineRequest asks for quantity units of the product with the given SKU.
type LineRequest struct {
	SKU            string  `json:"sku"`
	Quantity       int     `json:"quantity"`
	TaxRate        float64 `json:"taxRate,omitempty"`
	DiscountAmount float64 `json:"discountAmount,omitempty"`
}

// BusinessTransactionRequest is a sale, refund or exchange before prices
// are looked up in the inventory.
type BusinessTransactionRequest struct {
	Type          BusinessTransactionType   `json:"type"`
	Items         []LineRequest             `json:"items"`
	EmployeeID    string                    `json:"employeeId,omitempty"`
	Notes         string                    `json:"notes,omitempty"`
	Status        BusinessTransactionStatus `json:"status,omitempty"`
	PaymentStatus PaymentStatus             `json:"paymentStatus,omitempty"`
	PaymentMethod string                    `json:"paymentMethod,omitempty"`
	Customer      *ContactInfo              `json:"customerInfo,omitempty"`
}

type AccountsEntryType string

const (
	Payable    AccountsEntryType = "payable"
	Receivable AccountsEntryType = "receivable"
)

type AccountsStatus string

const (
	AccountsPending AccountsStatus = "pending"
	AccountsPaid    AccountsStatus = "paid"
	AccountsOverdue AccountsStatus = "overdue"
)

// AccountsEntry is a payable or receivable. Recurring entries carry the
// next due date after DueDate.
type AccountsEntry struct {
	ID                   string            `json:"id"`
	Type                 AccountsEntryType `json:"type"`
	Amount               float64           `json:"amount"`
	DueDate              time.Time         `json:"dueDate"`
	Recurrence           Recurrence        `json:"recurrence"`
	NextDueDate          *time.Time        `json:"nextDueDate,omitempty"`
	Description          string            `json:"description"`
	Status               AccountsStatus    `json:"status"`
	RelatedTransactionID string            `json:"relatedTransactionId,omitempty"`
	Contact              ContactInfo       `json:"contactInfo"`
}

type AccountsFilter struct {
	Type   AccountsEntryType
	Status AccountsStatus
	// Recurring filters on whether the entry repeats; nil matches both.
	Recurring *bool
}

func (f AccountsFilter) Match(e AccountsEntry) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Recurring != nil && *f.Recurring != (e.Recurrence != RecurrenceNone) {
		return false
	}
	return true
}

type StockLevel string

const (
	StockIn  StockLevel = "in-stock"
	StockLow StockLevel = "low-stock"
	StockOut StockLevel = "out-of-stock"
)

type InventoryFilter struct {
	Category string
	Stock    StockLevel
}

func (f InventoryFilter) Match(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	switch f.Stock {
	case StockOut:
		return p.Quantity <= 0
	case StockLow:
		return p.LowStock()
	case StockIn:
		return p.Quantity > 0
	}
	return true
}

// BusinessLedger is everything the business module persists.
type BusinessLedger struct {
	Transactions []BusinessTransaction `json:"transactions"`
	Inventory    []Product             `json:"inventory"`
	Accounts     []AccountsEntry       `json:"accounts"`
}

type BusinessDashboard struct {
	Currency            string  `json:"currency"`
	TotalRevenue        float64 `json:"totalRevenue"`
	TotalExpenses       float64 `json:"totalExpenses"`
	NetProfit           float64 `json:"netProfit"`
	InventoryValue      float64 `json:"inventoryValue"`
	InventoryCost       float64 `json:"inventoryCost"`
	LowStockItems       int     `json:"lowStockItems"`
	OverdueAccounts     int     `json:"overdueAccounts"`
	PendingTransactions int     `json:"pendingTransactions"`
	TotalPayable        float64 `json:"totalPayable"`
	TotalReceivable     float64 `json:"totalReceivable"`
}
