package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/service"
)

type TransactionHandler struct {
	ledger    *service.LedgerService
	converter *service.CurrencyConverter
	now       func() time.Time
	logger    *logrus.Logger
}

func NewTransactionHandler(
	ledger *service.LedgerService,
	converter *service.CurrencyConverter,
	now func() time.Time,
	logger *logrus.Logger,
) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, converter: converter, now: now, logger: logger}
}

func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	router.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{transactionId}", h.UpdateTransaction).Methods(http.MethodPut)
	router.HandleFunc("/transactions/{transactionId}", h.DeleteTransaction).Methods(http.MethodDelete)
	router.HandleFunc("/budgets", h.ListBudgets).Methods(http.MethodGet)
	router.HandleFunc("/recurring/run", h.RunRecurring).Methods(http.MethodPost)
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// ids are assigned here, updates go through PUT
	tx.ID = ""

	created, err := h.ledger.AddTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, created)
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	tx.ID = mux.Vars(r)["transactionId"]

	updated, err := h.ledger.AddTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, updated)
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Type:     domain.TransactionType(q.Get("type")),
		Category: q.Get("category"),
	}
	txs := h.ledger.Transactions(filter)

	// ?currency= shows amounts converted from what they were entered in
	if currency := q.Get("currency"); currency != "" && h.converter != nil {
		for i, tx := range txs {
			txs[i] = h.converter.ConvertTransaction(tx, currency)
		}
	}
	writeJSON(w, h.logger, http.StatusOK, txs)
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteTransaction(r.Context(), mux.Vars(r)["transactionId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.ledger.Budgets())
}

// RunRecurring runs the scheduling pass for today outside the cron schedule.
func (h *TransactionHandler) RunRecurring(w http.ResponseWriter, r *http.Request) {
	created, err := h.ledger.RunSchedulingPass(r.Context(), h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, created)
}
