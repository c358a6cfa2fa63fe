// Package storage persists client-side state such as the bearer token.
package storage

import (
	"context"
	"errors"
)

// TokenKey is the fixed key the bearer token is stored under.
const TokenKey = "token"

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a small key/value store for local client state.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TokenStore reads and writes the bearer token on top of a Store.
type TokenStore struct {
	store Store
}

// NewTokenStore creates a token store.
func NewTokenStore(store Store) *TokenStore {
	return &TokenStore{store: store}
}

// Token returns the persisted token, or "" when none is stored or the store
// cannot be read.
func (t *TokenStore) Token() string {
	token, err := t.store.Get(context.Background(), TokenKey)
	if err != nil {
		return ""
	}
	return token
}

// Save persists the token.
func (t *TokenStore) Save(ctx context.Context, token string) error {
	return t.store.Set(ctx, TokenKey, token)
}

// Clear removes the persisted token. Clearing an absent token is not an error.
func (t *TokenStore) Clear(ctx context.Context) error {
	if err := t.store.Delete(ctx, TokenKey); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
