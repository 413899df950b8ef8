package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/service"
)

// AccessHandler gates the paid business features.
type AccessHandler struct {
	auth       service.AuthProvider
	redirector service.PaymentRedirector
	logger     *logrus.Logger
}

func NewAccessHandler(
	auth service.AuthProvider,
	redirector service.PaymentRedirector,
	logger *logrus.Logger,
) *AccessHandler {
	return &AccessHandler{auth: auth, redirector: redirector, logger: logger}
}

func (h *AccessHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/business/checkout", h.Checkout).Methods(http.MethodGet)
}

// Checkout answers 204 for subscribers and redirects everyone else to the
// payment page.
func (h *AccessHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if user.HasPaidSubscription {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	target, err := h.redirector.CheckoutURL(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.WithField("user", user.ID).Info("redirecting to checkout")
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RequireSubscription only lets subscribers through. Signed-in users without
// a subscription get 402 and the checkout URL.
func (h *AccessHandler) RequireSubscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.authenticate(r)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if user.HasPaidSubscription {
			next.ServeHTTP(w, r)
			return
		}

		target, err := h.redirector.CheckoutURL(r.Context(), user)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusPaymentRequired, map[string]string{
			"error":       "subscription required",
			"checkoutUrl": target,
		})
	})
}

func (h *AccessHandler) authenticate(r *http.Request) (domain.User, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return h.auth.Authenticate(r.Context(), token)
}
