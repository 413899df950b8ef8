package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"profitpulse/config"
	httpLayer "profitpulse/http"
	"profitpulse/repository"
	"profitpulse/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	location, err := cfg.Location()
	if err != nil {
		logger.Fatalf("%v", err)
	}
	now := func() time.Time { return time.Now().In(location) }

	store, err := openStore(cfg.Store)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer store.Close()
	logger.WithField("driver", cfg.Store.Driver).Info("store ready")

	ledgerRepo := repository.NewDocumentLedgerRepository(store, cfg.Store.Key)
	ledgerService, err := service.NewLedgerService(
		context.Background(),
		ledgerRepo,
		logger,
		service.WithClock(now),
	)
	if err != nil {
		logger.Fatalf("init ledger: %v", err)
	}
	planner := service.NewPaymentPlanner(store, logger)

	converter := service.NewCurrencyConverter(service.NewHTTPRateSource(cfg.Currency.RatesURL), store)
	businessService, err := service.NewBusinessService(
		context.Background(),
		repository.NewDocumentBusinessRepository(store, cfg.Store.BusinessKey),
		converter,
		logger,
		service.WithBusinessClock(now),
	)
	if err != nil {
		logger.Fatalf("init business: %v", err)
	}

	scheduler, err := service.NewRecurringScheduler(ledgerService, cfg.Scheduler.Cron, location, logger)
	if err != nil {
		logger.Fatalf("init scheduler: %v", err)
	}
	err = scheduler.AddJob(cfg.Currency.RefreshCron, "exchange rates", func(ctx context.Context, _ time.Time) error {
		return converter.Refresh(ctx)
	})
	if err != nil {
		logger.Fatalf("init scheduler: %v", err)
	}
	err = scheduler.AddJob(cfg.Scheduler.Cron, "overdue accounts", func(ctx context.Context, today time.Time) error {
		_, err := businessService.MarkOverdue(ctx, today)
		return err
	})
	if err != nil {
		logger.Fatalf("init scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Window)
	defer rateLimiter.Stop()

	router := httpLayer.NewRouter(httpLayer.RouterDeps{
		Ledger:     ledgerService,
		Business:   businessService,
		Converter:  converter,
		Planner:    planner,
		Auth:       service.NewStaticAuthProvider(cfg.Access.PaidUsers),
		Redirector: service.NewStaticRedirector(cfg.Access.CheckoutURL),
		Limiter:    rateLimiter,
		Now:        now,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Errorf("server error: %v", err)
		return
	case <-quit:
		logger.Info("shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}

	logger.Info("server exited")
}

func openStore(cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Driver {
	case "redis":
		store := repository.NewRedisStore(cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case "sqlite":
		return repository.OpenSQLiteStore(cfg.SQLitePath)
	default:
		return repository.NewMemoryStore(), nil
	}
}
