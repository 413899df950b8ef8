package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/repository"
	"profitpulse/service"
)

var testNow = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, limiter *RateLimiter) http.Handler {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := repository.NewMemoryStore()
	ledger, err := service.NewLedgerService(
		context.Background(),
		repository.NewDocumentLedgerRepository(store, ""),
		logger,
		service.WithClock(func() time.Time { return testNow }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	converter := service.NewCurrencyConverter(service.NewHTTPRateSource("http://127.0.0.1:0"), store)
	business, err := service.NewBusinessService(
		context.Background(),
		repository.NewDocumentBusinessRepository(store, ""),
		converter,
		logger,
		service.WithBusinessClock(func() time.Time { return testNow }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return NewRouter(RouterDeps{
		Ledger:     ledger,
		Business:   business,
		Converter:  converter,
		Planner:    service.NewPaymentPlanner(store, logger),
		Auth:       service.NewStaticAuthProvider([]string{"owner@shop.com"}),
		Redirector: service.NewStaticRedirector("https://pay.example.com/checkout"),
		Limiter:    limiter,
		Now:        func() time.Time { return testNow },
		Logger:     logger,
	})
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doAs(router http.Handler, email, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+email)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createDebt(t *testing.T, router http.Handler, body string) domain.Debt {
	t.Helper()

	w := do(router, http.MethodPost, "/debts", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var debt domain.Debt
	if err := json.NewDecoder(w.Body).Decode(&debt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return debt
}

func TestCreateDebtAndSchedule(t *testing.T) {
	router := newTestRouter(t, nil)
	debt := createDebt(t, router, `{"name":"Car","balance":1200,"interestRate":12,"monthlyPayment":200}`)

	w := do(router, http.MethodGet, "/debts/"+debt.ID+"/schedule", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var summary domain.DebtSummary
	if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.MonthsToPayoff != 7 {
		t.Errorf("expected 7 months, got %d", summary.MonthsToPayoff)
	}
	if len(summary.Schedule) != 7 {
		t.Errorf("expected 7 entries, got %d", len(summary.Schedule))
	}
	if !summary.Schedule[0].Date.Equal(testNow) {
		t.Errorf("expected the schedule to start now, got %v", summary.Schedule[0].Date)
	}
}

func TestCreateDebt_BadRequest(t *testing.T) {
	router := newTestRouter(t, nil)

	if w := do(router, http.MethodPost, "/debts", `{invalid-json}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := do(router, http.MethodPost, "/debts", `{"name":"","balance":10}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDebtRoutes_NotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/debts/missing", "/debts/missing/schedule", "/debts/missing/required-payment?months=12"} {
		if w := do(router, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
	if w := do(router, http.MethodDelete, "/debts/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUpdateAndDeleteDebt(t *testing.T) {
	router := newTestRouter(t, nil)
	debt := createDebt(t, router, `{"name":"Card","balance":1000,"interestRate":20,"monthlyPayment":100}`)

	w := do(router, http.MethodPut, "/debts/"+debt.ID, `{"name":"Card","balance":900,"interestRate":20,"monthlyPayment":120}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = do(router, http.MethodGet, "/transactions?category=Debt", "")
	var txs []domain.Transaction
	if err := json.NewDecoder(w.Body).Decode(&txs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 || txs[0].Amount != 120 {
		t.Errorf("expected the linked payment to follow the debt, got %+v", txs)
	}

	if w := do(router, http.MethodDelete, "/debts/"+debt.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w = do(router, http.MethodGet, "/transactions", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected no transactions left, got %s", w.Body.String())
	}
}

func TestRequiredPayment(t *testing.T) {
	router := newTestRouter(t, nil)
	debt := createDebt(t, router, `{"name":"Loan","balance":1200,"interestRate":0,"monthlyPayment":50}`)

	w := do(router, http.MethodGet, "/debts/"+debt.ID+"/required-payment?months=12", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result domain.RequiredPaymentResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MonthlyPayment != 100 {
		t.Errorf("expected 100, got %v", result.MonthlyPayment)
	}

	if w := do(router, http.MethodGet, "/debts/"+debt.ID+"/required-payment?months=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := do(router, http.MethodGet, "/debts/"+debt.ID+"/required-payment?months=0", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestTransactionsAndRecurringRun(t *testing.T) {
	router := newTestRouter(t, nil)

	body := `{"type":"expense","category":"Housing","amount":950,"date":"2024-02-01T00:00:00Z",
		"isRecurring":true,"recurrence":"monthly","nextDueDate":"2024-03-01T00:00:00Z"}`
	if w := do(router, http.MethodPost, "/transactions", body); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w := do(router, http.MethodPost, "/recurring/run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var created []domain.Transaction
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 materialized transaction, got %d", len(created))
	}
	if want := time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC); !created[0].NextDueDate.Equal(want) {
		t.Errorf("expected next due %v, got %v", want, created[0].NextDueDate)
	}

	w = do(router, http.MethodGet, "/budgets", "")
	var budgets []domain.Budget
	if err := json.NewDecoder(w.Body).Decode(&budgets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(budgets) != 1 || budgets[0].Spent != 1900 {
		t.Errorf("expected Housing spent 1900, got %+v", budgets)
	}
}

func TestCreateTransaction_InvalidRecurrence(t *testing.T) {
	router := newTestRouter(t, nil)

	body := `{"type":"expense","category":"Food","amount":10,"isRecurring":true,"recurrence":"none"}`
	if w := do(router, http.MethodPost, "/transactions", body); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDeleteTransaction_NotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	if w := do(router, http.MethodDelete, "/transactions/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDashboardAndLedgerExportImport(t *testing.T) {
	router := newTestRouter(t, nil)

	doc := `{"transactions":[{"id":"t1","type":"income","category":"Salary","amount":2500,"date":"2024-02-25T00:00:00Z"}],
		"debts":[{"id":"d1","name":"Loan","balance":800,"interestRate":5,"monthlyPayment":80}],
		"budgets":[]}`
	if w := do(router, http.MethodPost, "/ledger/import", doc); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w := do(router, http.MethodGet, "/dashboard", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var dash domain.Dashboard
	if err := json.NewDecoder(w.Body).Decode(&dash); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dash.TotalIncome != 2500 || dash.TotalDebt != 800 || dash.TotalMonthlyDebtPayment != 80 {
		t.Errorf("unexpected dashboard %+v", dash)
	}

	w = do(router, http.MethodGet, "/ledger/export", "")
	if !strings.Contains(w.Header().Get("Content-Disposition"), "finance-tracker-data.json") {
		t.Errorf("expected an attachment header")
	}
	var ledger domain.Ledger
	if err := json.NewDecoder(w.Body).Decode(&ledger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.Debts) != 1 || ledger.Debts[0].ID != "d1" {
		t.Errorf("unexpected export %+v", ledger)
	}

	if w := do(router, http.MethodPost, "/ledger/import", "not json"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCheckout(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/business/checkout", nil)
	req.Header.Set("Authorization", "Bearer owner@shop.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for a subscriber, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/business/checkout", nil)
	req.Header.Set("Authorization", "Bearer visitor@shop.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "https://pay.example.com/checkout?") {
		t.Errorf("unexpected redirect %q", loc)
	}

	req = httptest.NewRequest(http.MethodGet, "/business/checkout", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	router := newTestRouter(t, limiter)

	for i := 0; i < 2; i++ {
		if w := do(router, http.MethodGet, "/debts", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	if w := do(router, http.MethodGet, "/debts", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestImport_UnknownRecurrenceRejected(t *testing.T) {
	router := newTestRouter(t, nil)

	doc := `{"transactions":[{"id":"t1","type":"expense","category":"Misc","amount":6,
		"date":"2024-03-01T00:00:00Z","isRecurring":true,"recurrence":"yearly","nextDueDate":"2024-03-01T00:00:00Z"}]}`
	if w := do(router, http.MethodPost, "/ledger/import", doc); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	for i := 0; i < 3; i++ {
		do(router, http.MethodPost, "/recurring/run", "")
	}
	w := do(router, http.MethodGet, "/transactions", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected no transactions, got %s", w.Body.String())
	}
}

func TestBusinessRoutes_RequireSubscription(t *testing.T) {
	router := newTestRouter(t, nil)

	if w := do(router, http.MethodGet, "/business/products", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}

	w := doAs(router, "visitor@shop.com", http.MethodGet, "/business/products", "")
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(body["checkoutUrl"], "https://pay.example.com/checkout?") {
		t.Errorf("expected a checkout url, got %q", body["checkoutUrl"])
	}

	if w := doAs(router, "owner@shop.com", http.MethodGet, "/business/products", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200 for a subscriber, got %d", w.Code)
	}
}

func TestBusinessSaleFlow(t *testing.T) {
	router := newTestRouter(t, nil)
	const owner = "owner@shop.com"

	w := doAs(router, owner, http.MethodPost, "/business/products",
		`{"name":"Mug","sku":"MUG-1","price":12,"cost":5,"quantity":4,"category":"Kitchen","minStockLevel":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doAs(router, owner, http.MethodPost, "/business/transactions",
		`{"type":"sale","items":[{"sku":"MUG-1","quantity":3}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var tx domain.BusinessTransaction
	if err := json.NewDecoder(w.Body).Decode(&tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.TotalAmount != 36 || tx.ProfitMargin != 21 {
		t.Errorf("expected total 36 and profit 21, got %v and %v", tx.TotalAmount, tx.ProfitMargin)
	}

	w = doAs(router, owner, http.MethodPost, "/business/transactions",
		`{"type":"sale","items":[{"sku":"MUG-1","quantity":2}]}`)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a sale beyond stock, got %d", w.Code)
	}

	w = doAs(router, owner, http.MethodGet, "/business/products?stock=low-stock", "")
	var low []domain.Product
	if err := json.NewDecoder(w.Body).Decode(&low); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(low) != 1 || low[0].Quantity != 1 {
		t.Errorf("expected the mug to be low with 1 left, got %+v", low)
	}

	w = doAs(router, owner, http.MethodGet, "/business/dashboard", "")
	var dash domain.BusinessDashboard
	if err := json.NewDecoder(w.Body).Decode(&dash); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dash.TotalRevenue != 36 || dash.LowStockItems != 1 {
		t.Errorf("unexpected dashboard %+v", dash)
	}
}

func TestBusinessAccounts(t *testing.T) {
	router := newTestRouter(t, nil)
	const owner = "owner@shop.com"

	w := doAs(router, owner, http.MethodPost, "/business/accounts",
		`{"type":"payable","amount":400,"dueDate":"2024-03-31T00:00:00Z","recurrence":"monthly","description":"Rent",
		"contactInfo":{"name":"Landlord","email":"rent@example.com"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var entry domain.AccountsEntry
	if err := json.NewDecoder(w.Body).Decode(&entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC); entry.NextDueDate == nil || !entry.NextDueDate.Equal(want) {
		t.Errorf("expected next due %v, got %v", want, entry.NextDueDate)
	}

	if w := doAs(router, owner, http.MethodGet, "/business/accounts?recurring=maybe", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := doAs(router, owner, http.MethodDelete, "/business/accounts/"+entry.ID, ""); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}

func TestCurrencyRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, http.MethodGet, "/currency/convert?amount=100&from=usd&to=eur", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Result float64 `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Result < 91.99 || body.Result > 92.01 {
		t.Errorf("expected 92, got %v", body.Result)
	}

	if w := do(router, http.MethodGet, "/currency/convert?amount=abc&from=USD&to=EUR", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	tx := `{"type":"expense","category":"Travel","amount":79,"originalAmount":79,"originalCurrency":"GBP","date":"2024-02-01T00:00:00Z"}`
	if w := do(router, http.MethodPost, "/transactions", tx); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	w = do(router, http.MethodGet, "/transactions?currency=USD", "")
	var txs []domain.Transaction
	if err := json.NewDecoder(w.Body).Decode(&txs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 || txs[0].Amount < 99.99 || txs[0].Amount > 100.01 {
		t.Errorf("expected 100 USD, got %+v", txs)
	}
}
