package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"profitpulse/domain"
	"profitpulse/repository"
)

// DefaultRateURL serves USD-based spot rates.
const DefaultRateURL = "https://api.exchangerate-api.com/v4/latest/USD"

const ratesCacheKey = "exchange-rates"

// DefaultRates are USD-based rates used until a refresh succeeds.
var DefaultRates = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"JPY": 151.67,
	"AUD": 1.53,
	"CAD": 1.35,
	"CHF": 0.90,
	"CNY": 7.23,
}

// RateSource returns exchange rates keyed by currency code, all relative to
// the same base.
type RateSource interface {
	Latest(ctx context.Context) (map[string]float64, error)
}

type HTTPRateSource struct {
	url        string
	httpClient *http.Client
}

func NewHTTPRateSource(url string) *HTTPRateSource {
	if url == "" {
		url = DefaultRateURL
	}
	return &HTTPRateSource{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *HTTPRateSource) Latest(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rate API error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, errors.New("rate API returned no rates")
	}
	return payload.Rates, nil
}

// CurrencyConverter does best-effort spot conversion. Amounts in a currency
// without a known rate are returned unconverted.
type CurrencyConverter struct {
	mu     sync.RWMutex
	rates  map[string]float64
	source RateSource
	cache  repository.Store
}

func NewCurrencyConverter(source RateSource, cache repository.Store) *CurrencyConverter {
	return &CurrencyConverter{
		rates:  maps.Clone(DefaultRates),
		source: source,
		cache:  cache,
	}
}

// Refresh fetches the latest rates. When the source fails, the last rates
// saved in the cache are used instead, if any; the current rates are kept
// otherwise. The source error is returned either way.
func (c *CurrencyConverter) Refresh(ctx context.Context) error {
	rates, err := c.source.Latest(ctx)
	if err != nil {
		if cached, cerr := c.cachedRates(ctx); cerr == nil {
			c.setRates(cached)
		}
		return fmt.Errorf("refresh rates: %w", err)
	}

	c.setRates(rates)
	if raw, err := json.Marshal(rates); err == nil {
		if err := c.cache.Set(ctx, ratesCacheKey, string(raw)); err != nil {
			return fmt.Errorf("cache rates: %w", err)
		}
	}
	return nil
}

func (c *CurrencyConverter) cachedRates(ctx context.Context) (map[string]float64, error) {
	raw, err := c.cache.Get(ctx, ratesCacheKey)
	if err != nil {
		return nil, err
	}
	var rates map[string]float64
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, repository.ErrNotFound
	}
	return rates, nil
}

func (c *CurrencyConverter) setRates(rates map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rates = make(map[string]float64, len(rates))
	for code, rate := range rates {
		if rate > 0 {
			c.rates[strings.ToUpper(code)] = rate
		}
	}
}

func (c *CurrencyConverter) Rates() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.rates)
}

// Convert goes through the rates' base currency.
func (c *CurrencyConverter) Convert(amount float64, from, to string) float64 {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount
	}

	c.mu.RLock()
	fromRate, okFrom := c.rates[from]
	toRate, okTo := c.rates[to]
	c.mu.RUnlock()

	if !okFrom || !okTo {
		return amount
	}
	return amount / fromRate * toRate
}

// ConvertTransaction expresses tx in currency to, starting from the amount
// it was entered with. Transactions without an original amount are returned
// as they are.
func (c *CurrencyConverter) ConvertTransaction(tx domain.Transaction, to string) domain.Transaction {
	if tx.OriginalCurrency == "" || tx.OriginalAmount == 0 {
		return tx
	}
	tx.Amount = c.Convert(tx.OriginalAmount, tx.OriginalCurrency, to)
	return tx
}
