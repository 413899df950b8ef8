package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/service"
)

// BusinessHandler serves the business module. Routes are registered on a
// subrouter that sits behind the subscription check.
type BusinessHandler struct {
	business *service.BusinessService
	logger   *logrus.Logger
}

func NewBusinessHandler(business *service.BusinessService, logger *logrus.Logger) *BusinessHandler {
	return &BusinessHandler{business: business, logger: logger}
}

func (h *BusinessHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost)
	router.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	router.HandleFunc("/products/{productId}", h.UpdateProduct).Methods(http.MethodPut)
	router.HandleFunc("/products/{productId}", h.DeleteProduct).Methods(http.MethodDelete)
	router.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	router.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{transactionId}", h.DeleteTransaction).Methods(http.MethodDelete)
	router.HandleFunc("/accounts", h.CreateAccountsEntry).Methods(http.MethodPost)
	router.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{entryId}", h.DeleteAccountsEntry).Methods(http.MethodDelete)
	router.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
}

func (h *BusinessHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = ""

	created, err := h.business.SaveProduct(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, created)
}

func (h *BusinessHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = mux.Vars(r)["productId"]

	updated, err := h.business.SaveProduct(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, updated)
}

// ListProducts filters by ?category= and ?stock=in-stock|low-stock|out-of-stock.
func (h *BusinessHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.InventoryFilter{
		Category: q.Get("category"),
		Stock:    domain.StockLevel(q.Get("stock")),
	}
	writeJSON(w, h.logger, http.StatusOK, h.business.Inventory(filter))
}

func (h *BusinessHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.business.DeleteProduct(r.Context(), mux.Vars(r)["productId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BusinessHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.BusinessTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.business.RecordTransaction(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, tx)
}

func (h *BusinessHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.business.Transactions())
}

func (h *BusinessHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.business.DeleteTransaction(r.Context(), mux.Vars(r)["transactionId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BusinessHandler) CreateAccountsEntry(w http.ResponseWriter, r *http.Request) {
	var e domain.AccountsEntry
	if err := decodeJSON(r, &e); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.business.AddAccountsEntry(r.Context(), e)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, created)
}

// ListAccounts filters by ?type=, ?status= and ?recurring=true|false.
func (h *BusinessHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AccountsFilter{
		Type:   domain.AccountsEntryType(q.Get("type")),
		Status: domain.AccountsStatus(q.Get("status")),
	}
	if raw := q.Get("recurring"); raw != "" {
		recurring, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "recurring must be true or false", http.StatusBadRequest)
			return
		}
		filter.Recurring = &recurring
	}
	writeJSON(w, h.logger, http.StatusOK, h.business.Accounts(filter))
}

func (h *BusinessHandler) DeleteAccountsEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.business.DeleteAccountsEntry(r.Context(), mux.Vars(r)["entryId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BusinessHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.business.Dashboard(r.URL.Query().Get("currency")))
}
