package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"profitpulse/domain"
)

const (
	// DefaultLedgerKey is the key the personal ledger document is stored under.
	DefaultLedgerKey = "financeTrackerData"
	// DefaultBusinessKey is the key the business ledger document is stored under.
	DefaultBusinessKey = "financeTrackerBusinessData"
)

type LedgerRepository interface {
	Load(ctx context.Context) (domain.Ledger, error)
	Save(ctx context.Context, ledger domain.Ledger) error
}

type BusinessRepository interface {
	Load(ctx context.Context) (domain.BusinessLedger, error)
	Save(ctx context.Context, ledger domain.BusinessLedger) error
}

// DocumentRepository stores a whole document as one JSON value in a Store.
type DocumentRepository[T any] struct {
	store Store
	key   string
}

func NewDocumentLedgerRepository(store Store, key string) *DocumentRepository[domain.Ledger] {
	if key == "" {
		key = DefaultLedgerKey
	}
	return &DocumentRepository[domain.Ledger]{store: store, key: key}
}

func NewDocumentBusinessRepository(store Store, key string) *DocumentRepository[domain.BusinessLedger] {
	if key == "" {
		key = DefaultBusinessKey
	}
	return &DocumentRepository[domain.BusinessLedger]{store: store, key: key}
}

// Load returns the zero document when nothing has been saved yet.
func (r *DocumentRepository[T]) Load(ctx context.Context) (T, error) {
	var doc T

	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}

	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return doc, nil
}

func (r *DocumentRepository[T]) Save(ctx context.Context, doc T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	return r.store.Set(ctx, r.key, string(raw))
}
