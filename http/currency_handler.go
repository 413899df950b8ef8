package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"profitpulse/service"
)

type CurrencyHandler struct {
	converter *service.CurrencyConverter
	logger    *logrus.Logger
}

func NewCurrencyHandler(converter *service.CurrencyConverter, logger *logrus.Logger) *CurrencyHandler {
	return &CurrencyHandler{converter: converter, logger: logger}
}

func (h *CurrencyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/currency/rates", h.GetRates).Methods(http.MethodGet)
	router.HandleFunc("/currency/convert", h.Convert).Methods(http.MethodGet)
}

func (h *CurrencyHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.converter.Rates())
}

// Convert handles ?amount=&from=&to=.
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		http.Error(w, "amount must be a number", http.StatusBadRequest)
		return
	}
	from, to := strings.ToUpper(q.Get("from")), strings.ToUpper(q.Get("to"))
	if from == "" || to == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"amount": amount,
		"from":   from,
		"to":     to,
		"result": h.converter.Convert(amount, from, to),
	})
}
