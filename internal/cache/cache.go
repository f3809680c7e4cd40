package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

// CartCache holds the line items of one user's cart.
//
// Every Delete bumps a per-user version. A reader takes the version before
// loading the cart from the store and hands it to Set, which drops the write
// when a mutation happened in between.
type CartCache interface {
	Get(ctx context.Context, userID string) ([]domain.CartItem, error)
	Version(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, version int64, items []domain.CartItem) error
	Delete(ctx context.Context, userID string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrUnavailable is returned by Version while the cache is switched off.
	ErrUnavailable = errors.New("cache unavailable")
)

// NopCache never stores anything. Used when no Redis address is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]domain.CartItem, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Version(context.Context, string) (int64, error) { return 0, nil }

func (NopCache) Set(context.Context, string, int64, []domain.CartItem) error { return nil }

func (NopCache) Delete(context.Context, string) error { return nil }
