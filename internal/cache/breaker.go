package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerCache stops calling a failing cache for a while. An open breaker
// turns reads into misses, versions into ErrUnavailable and writes into
// no-ops, so the store keeps serving requests without waiting on Redis
// timeouts.
type BreakerCache struct {
	next CartCache
	cb   *gobreaker.CircuitBreaker[[]domain.CartItem]
}

func NewBreakerCache(next CartCache, settings gobreaker.Settings) *BreakerCache {
	healthy := settings.IsSuccessful
	settings.IsSuccessful = func(err error) bool {
		if errors.Is(err, ErrCacheMiss) {
			return true
		}
		if healthy != nil {
			return healthy(err)
		}
		return err == nil
	}
	return &BreakerCache{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[[]domain.CartItem](settings),
	}
}

func (b *BreakerCache) Get(ctx context.Context, userID string) ([]domain.CartItem, error) {
	items, err := b.cb.Execute(func() ([]domain.CartItem, error) {
		return b.next.Get(ctx, userID)
	})
	if isOpen(err) {
		return nil, ErrCacheMiss
	}
	return items, err
}

func (b *BreakerCache) Version(ctx context.Context, userID string) (int64, error) {
	var version int64
	_, err := b.cb.Execute(func() ([]domain.CartItem, error) {
		var err error
		version, err = b.next.Version(ctx, userID)
		return nil, err
	})
	if isOpen(err) {
		return 0, ErrUnavailable
	}
	return version, err
}

func (b *BreakerCache) Set(ctx context.Context, userID string, version int64, items []domain.CartItem) error {
	_, err := b.cb.Execute(func() ([]domain.CartItem, error) {
		return nil, b.next.Set(ctx, userID, version, items)
	})
	if isOpen(err) {
		return nil
	}
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, userID string) error {
	_, err := b.cb.Execute(func() ([]domain.CartItem, error) {
		return nil, b.next.Delete(ctx, userID)
	})
	if isOpen(err) {
		return nil
	}
	return err
}

func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}

func isOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
