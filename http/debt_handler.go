package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/service"
)

type DebtHandler struct {
	ledger  *service.LedgerService
	planner *service.PaymentPlanner
	now     func() time.Time
	logger  *logrus.Logger
}

func NewDebtHandler(
	ledger *service.LedgerService,
	planner *service.PaymentPlanner,
	now func() time.Time,
	logger *logrus.Logger,
) *DebtHandler {
	return &DebtHandler{ledger: ledger, planner: planner, now: now, logger: logger}
}

func (h *DebtHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.CreateDebt).Methods(http.MethodPost)
	router.HandleFunc("", h.ListDebts).Methods(http.MethodGet)
	router.HandleFunc("/{debtId}", h.GetDebt).Methods(http.MethodGet)
	router.HandleFunc("/{debtId}", h.UpdateDebt).Methods(http.MethodPut)
	router.HandleFunc("/{debtId}", h.DeleteDebt).Methods(http.MethodDelete)
	router.HandleFunc("/{debtId}/schedule", h.GetSchedule).Methods(http.MethodGet)
	router.HandleFunc("/{debtId}/required-payment", h.GetRequiredPayment).Methods(http.MethodGet)
}

func (h *DebtHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var debt domain.Debt
	if err := decodeJSON(r, &debt); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.ledger.AddDebt(r.Context(), debt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, created)
}

func (h *DebtHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.ledger.Debts())
}

func (h *DebtHandler) GetDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := h.ledger.Debt(mux.Vars(r)["debtId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, debt)
}

func (h *DebtHandler) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	var debt domain.Debt
	if err := decodeJSON(r, &debt); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.ledger.UpdateDebt(r.Context(), mux.Vars(r)["debtId"], debt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, updated)
}

func (h *DebtHandler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteDebt(r.Context(), mux.Vars(r)["debtId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchedule returns the first periods of the payoff projection starting
// now, with the totals of the full projection.
func (h *DebtHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.DebtSummary(mux.Vars(r)["debtId"], h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, summary)
}

func (h *DebtHandler) GetRequiredPayment(w http.ResponseWriter, r *http.Request) {
	months, err := strconv.Atoi(r.URL.Query().Get("months"))
	if err != nil {
		http.Error(w, "months must be an integer", http.StatusBadRequest)
		return
	}

	debt, err := h.ledger.Debt(mux.Vars(r)["debtId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.planner.RequiredPayment(r.Context(), domain.RequiredPaymentInput{
		Balance:      debt.Balance,
		InterestRate: debt.InterestRate,
		Months:       months,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}
