package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/service"
)

type LedgerHandler struct {
	ledger *service.LedgerService
	now    func() time.Time
	logger *logrus.Logger
}

func NewLedgerHandler(ledger *service.LedgerService, now func() time.Time, logger *logrus.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, now: now, logger: logger}
}

func (h *LedgerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	router.HandleFunc("/ledger/export", h.Export).Methods(http.MethodGet)
	router.HandleFunc("/ledger/import", h.Import).Methods(http.MethodPost)
}

func (h *LedgerHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.ledger.Dashboard(h.now()))
}

func (h *LedgerHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="finance-tracker-data.json"`)
	writeJSON(w, h.logger, http.StatusOK, h.ledger.Export())
}

func (h *LedgerHandler) Import(w http.ResponseWriter, r *http.Request) {
	var ledger domain.Ledger
	if err := decodeJSON(r, &ledger); err != nil {
		http.Error(w, "error importing data, check the file format", http.StatusBadRequest)
		return
	}
	if err := h.ledger.Import(r.Context(), ledger); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
