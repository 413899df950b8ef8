package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"profitpulse/service"
)

// writeJSON encodes into a buffer first so a failed encode can still send a
// 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, logger *logrus.Logger, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.WithError(err).Error("encode response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.WithError(err).Warn("write response")
	}
}

func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrDebtNotFound),
		errors.Is(err, service.ErrTransactionNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrBusinessTransactionNotFound),
		errors.Is(err, service.ErrAccountsEntryNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidDebt),
		errors.Is(err, service.ErrInvalidTransaction),
		errors.Is(err, service.ErrInvalidRecurrence),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidBusinessTransaction),
		errors.Is(err, service.ErrInvalidAccountsEntry):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrUnauthenticated):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		logger.WithError(err).Error("request failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
