package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BreakerSettings returns the breaker configuration shared by the store and
// cache wrappers. The breaker opens after five consecutive failures and
// probes again after timeout.
func BreakerSettings(name string, timeout time.Duration, logger *slog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// a missing document, a rejected total or a caller that gave up says
			// nothing about store health
			return err == nil || errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrAmountOverflow) || errors.Is(err, context.Canceled)
		},
	}
}

// BreakerCartRepository fails fast with gobreaker.ErrOpenState while the
// wrapped store keeps failing.
type BreakerCartRepository struct {
	next CartRepository
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerCartRepository(next CartRepository, settings gobreaker.Settings) *BreakerCartRepository {
	return &BreakerCartRepository{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

type incrementResult struct {
	item    *domain.CartItem
	created bool
}

func run[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

func (b *BreakerCartRepository) Increment(ctx context.Context, userID, productID primitive.ObjectID, amount int) (*domain.CartItem, bool, error) {
	res, err := run(b.cb, func() (incrementResult, error) {
		item, created, err := b.next.Increment(ctx, userID, productID, amount)
		return incrementResult{item, created}, err
	})
	return res.item, res.created, err
}

func (b *BreakerCartRepository) SetAmount(ctx context.Context, userID, productID primitive.ObjectID, amount int) (*domain.CartItem, error) {
	return run(b.cb, func() (*domain.CartItem, error) {
		return b.next.SetAmount(ctx, userID, productID, amount)
	})
}

func (b *BreakerCartRepository) Delete(ctx context.Context, userID, productID primitive.ObjectID) (*domain.CartItem, error) {
	return run(b.cb, func() (*domain.CartItem, error) {
		return b.next.Delete(ctx, userID, productID)
	})
}

func (b *BreakerCartRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return run(b.cb, func() (int64, error) {
		return b.next.DeleteByUser(ctx, userID)
	})
}

func (b *BreakerCartRepository) List(ctx context.Context, userID primitive.ObjectID) ([]domain.CartItem, error) {
	return run(b.cb, func() ([]domain.CartItem, error) {
		return b.next.List(ctx, userID)
	})
}

func (b *BreakerCartRepository) State() gobreaker.State {
	return b.cb.State()
}

// BreakerPinger reports the store unhealthy while the cart breaker is open,
// and otherwise defers to Next.
type BreakerPinger struct {
	Breaker *BreakerCartRepository
	Next    interface{ Ping(ctx context.Context) error }
}

func (p BreakerPinger) Ping(ctx context.Context) error {
	if state := p.Breaker.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("cart store circuit breaker is %s", state)
	}
	return p.Next.Ping(ctx)
}
