package http

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"profitpulse/service"
)

type RouterDeps struct {
	Ledger     *service.LedgerService
	Business   *service.BusinessService
	Converter  *service.CurrencyConverter
	Planner    *service.PaymentPlanner
	Auth       service.AuthProvider
	Redirector service.PaymentRedirector
	Limiter    *RateLimiter
	Now        func() time.Time
	Logger     *logrus.Logger
}

func NewRouter(deps RouterDeps) *mux.Router {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	router := mux.NewRouter()
	router.Use(LoggingMiddleware(deps.Logger))
	if deps.Limiter != nil {
		router.Use(RateLimitMiddleware(deps.Limiter, deps.Logger))
	}

	NewDebtHandler(deps.Ledger, deps.Planner, deps.Now, deps.Logger).
		RegisterRoutes(router.PathPrefix("/debts").Subrouter())
	NewTransactionHandler(deps.Ledger, deps.Converter, deps.Now, deps.Logger).RegisterRoutes(router)
	NewLedgerHandler(deps.Ledger, deps.Now, deps.Logger).RegisterRoutes(router)
	if deps.Converter != nil {
		NewCurrencyHandler(deps.Converter, deps.Logger).RegisterRoutes(router)
	}

	// checkout is registered before the gated /business subrouter
	access := NewAccessHandler(deps.Auth, deps.Redirector, deps.Logger)
	access.RegisterRoutes(router)
	if deps.Business != nil {
		business := router.PathPrefix("/business").Subrouter()
		business.Use(access.RequireSubscription)
		NewBusinessHandler(deps.Business, deps.Logger).RegisterRoutes(business)
	}

	return router
}
