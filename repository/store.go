package repository

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// Store is a string key/value store. Get returns ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Close() error
}
