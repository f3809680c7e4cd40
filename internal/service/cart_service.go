package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// listTimeout bounds a shared cart load once it is detached from the caller.
const listTimeout = 10 * time.Second

// CartService keeps at most one line item per (user, product) pair and
// accumulates amounts on repeated adds.
type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	logger *slog.Logger
	sfg    singleflight.Group
}

func NewCartService(repo repository.CartRepository, c cache.CartCache, logger *slog.Logger) *CartService {
	if c == nil {
		c = cache.NopCache{}
	}
	return &CartService{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

func parseKey(userID, productID string) (primitive.ObjectID, primitive.ObjectID, error) {
	uid, err := validation.ParseID("userId", userID)
	if err != nil {
		return uid, primitive.NilObjectID, err
	}
	pid, err := validation.ParseID("productId", productID)
	return uid, pid, err
}

// AddOrIncrement creates the line item or adds amount to the existing one.
// created is true when no item existed for the pair before the call.
func (s *CartService) AddOrIncrement(ctx context.Context, userID, productID, amount string) (*domain.CartItem, bool, error) {
	uid, pid, err := parseKey(userID, productID)
	if err != nil {
		return nil, false, err
	}
	n, err := validation.ParseAmount(amount)
	if err != nil {
		return nil, false, err
	}

	item, created, err := s.repo.Increment(ctx, uid, pid, n)
	if err != nil {
		return nil, false, s.storeError(ctx, "add to cart", err)
	}

	s.invalidateCache(uid)
	return item, created, nil
}

// SetAmount replaces the amount of an existing line item. It never creates one.
func (s *CartService) SetAmount(ctx context.Context, userID, productID, amount string) (*domain.CartItem, error) {
	uid, pid, err := parseKey(userID, productID)
	if err != nil {
		return nil, err
	}
	n, err := validation.ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.SetAmount(ctx, uid, pid, n)
	if err != nil {
		return nil, s.storeError(ctx, "update cart item", err)
	}

	s.invalidateCache(uid)
	return item, nil
}

func (s *CartService) Remove(ctx context.Context, userID, productID string) (*domain.CartItem, error) {
	uid, pid, err := parseKey(userID, productID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.Delete(ctx, uid, pid)
	if err != nil {
		return nil, s.storeError(ctx, "remove cart item", err)
	}

	s.invalidateCache(uid)
	return item, nil
}

// Clear removes every line item of the user and returns how many were removed.
func (s *CartService) Clear(ctx context.Context, userID string) (int64, error) {
	uid, err := validation.ParseID("userId", userID)
	if err != nil {
		return 0, err
	}

	n, err := s.repo.DeleteByUser(ctx, uid)
	if err != nil {
		return 0, s.storeError(ctx, "clear cart", err)
	}

	s.invalidateCache(uid)
	return n, nil
}

// List returns the items of userID, or every item when userID is empty.
// A malformed userID owns nothing and yields an empty list. Per-user lists
// are read through the cache.
func (s *CartService) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	if userID == "" {
		items, err := s.repo.List(ctx, primitive.NilObjectID)
		if err != nil {
			return nil, s.storeError(ctx, "list cart", err)
		}
		return items, nil
	}

	uid, err := validation.ParseID("userId", userID)
	if err != nil {
		return []domain.CartItem{}, nil
	}

	// Concurrent misses for the same user share one load. The load is not
	// tied to whichever caller started it, and each caller only waits as
	// long as its own context allows.
	ch := s.sfg.DoChan(uid.Hex(), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listTimeout)
		defer cancel()
		return s.load(loadCtx, uid)
	})

	select {
	case <-ctx.Done():
		return nil, s.storeError(ctx, "list cart", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, s.storeError(ctx, "list cart", res.Err)
		}
		return res.Val.([]domain.CartItem), nil
	}
}

// load reads the cart from the cache, falling back to the store and filling
// the cache before returning.
func (s *CartService) load(ctx context.Context, uid primitive.ObjectID) ([]domain.CartItem, error) {
	key := uid.Hex()
	items, err := s.cache.Get(ctx, key)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "cache get failed", "user_id", key, "error", err)
	}

	// read before the store so a mutation in between voids the fill
	version, versionErr := s.cache.Version(ctx, key)

	items, err = s.repo.List(ctx, uid)
	if err != nil {
		return nil, err
	}

	switch {
	case versionErr == nil:
		if err := s.cache.Set(ctx, key, version, items); err != nil {
			s.logger.WarnContext(ctx, "cache set failed", "user_id", key, "error", err)
		}
	case !errors.Is(versionErr, cache.ErrUnavailable):
		s.logger.WarnContext(ctx, "cache version failed", "user_id", key, "error", versionErr)
	}
	return items, nil
}

func (s *CartService) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.DebugContext(ctx, op+": not found")
		return ErrNotFound
	}
	if errors.Is(err, repository.ErrAmountOverflow) {
		return validation.TotalTooLarge()
	}
	s.logger.ErrorContext(ctx, op+" failed", "error", err)
	return &StoreError{Op: op, Err: err}
}

func (s *CartService) invalidateCache(userID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID.Hex()); err != nil {
		s.logger.Warn("cache invalidate failed", "user_id", userID.Hex(), "error", err)
	}
}
