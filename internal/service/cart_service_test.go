package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/validation"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	userA    = "507f1f77bcf86cd799439011"
	userB    = "507f1f77bcf86cd799439012"
	product1 = "65a1b2c3d4e5f60718293a4b"
	product2 = "65a1b2c3d4e5f60718293a4c"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockCache struct {
	m        sync.RWMutex
	entries  map[string][]domain.CartItem
	versions map[string]int64
	err      error
	deletes  int
	// setDelay stands in for the round trip of a remote cache
	setDelay time.Duration
}

func newMockCache() *mockCache {
	return &mockCache{
		entries:  make(map[string][]domain.CartItem),
		versions: make(map[string]int64),
	}
}

func (m *mockCache) Get(_ context.Context, userID string) ([]domain.CartItem, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	items, ok := m.entries[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return items, nil
}

func (m *mockCache) Version(_ context.Context, userID string) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.versions[userID], nil
}

func (m *mockCache) Set(_ context.Context, userID string, version int64, items []domain.CartItem) error {
	m.m.RLock()
	delay := m.setDelay
	m.m.RUnlock()
	time.Sleep(delay)

	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.versions[userID] != version {
		return nil
	}
	m.entries[userID] = items
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	m.versions[userID]++
	delete(m.entries, userID)
	return m.err
}

func (m *mockCache) cached(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.entries[userID]
	return ok
}

// countingRepository records how many calls reach the store.
type countingRepository struct {
	repository.CartRepository
	mu    sync.Mutex
	lists int
	err   error
}

func (c *countingRepository) List(ctx context.Context, userID primitive.ObjectID) ([]domain.CartItem, error) {
	c.mu.Lock()
	c.lists++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	time.Sleep(20 * time.Millisecond)
	return c.CartRepository.List(ctx, userID)
}

func (c *countingRepository) Increment(ctx context.Context, u, p primitive.ObjectID, n int) (*domain.CartItem, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	return c.CartRepository.Increment(ctx, u, p, n)
}

func (c *countingRepository) listCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists
}

func newTestService() (*CartService, *mockCache) {
	c := newMockCache()
	return NewCartService(repository.NewMemoryCartRepository(), c, discardLogger()), c
}

func TestAddOrIncrement_CreatesThenAccumulates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	item, created, err := svc.AddOrIncrement(ctx, userA, product1, "2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, item.Amount)
	assert.Equal(t, userA, item.UserID.Hex())
	assert.Equal(t, product1, item.ProductID.Hex())

	item, created, err = svc.AddOrIncrement(ctx, userA, product1, "3")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 5, item.Amount)

	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Amount)
}

func TestAddOrIncrement_IdempotentCreation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, _, err := svc.AddOrIncrement(ctx, userA, product1, "1")
	require.NoError(t, err)
	second, _, err := svc.AddOrIncrement(ctx, userA, product1, "1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	items, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAddOrIncrement_ConcurrentAddsKeepOneItem(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AddOrIncrement(ctx, userA, product1, "2")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 50, items[0].Amount)
}

func TestAddOrIncrement_ValidationBoundary(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		productID string
		amount    string
		is        error
	}{
		{"zero amount", userA, product1, "0", validation.ErrInvalidAmount},
		{"negative amount", userA, product1, "-5", validation.ErrInvalidAmount},
		{"non numeric amount", userA, product1, "abc", validation.ErrInvalidAmount},
		{"bad user id", "u1", product1, "1", validation.ErrInvalidIdentifier},
		{"bad product id", userA, "p1", "1", validation.ErrInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			ctx := context.Background()

			_, _, err := svc.AddOrIncrement(ctx, tt.userID, tt.productID, tt.amount)
			assert.ErrorIs(t, err, tt.is)
			assert.ErrorIs(t, err, validation.ErrValidation)

			items, err := svc.List(ctx, "")
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestSetAmount(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SetAmount(ctx, userA, product1, "4")
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	assert.Empty(t, items, "set must never create")

	_, _, err = svc.AddOrIncrement(ctx, userA, product1, "5")
	require.NoError(t, err)

	item, err := svc.SetAmount(ctx, userA, product1, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Amount)

	_, err = svc.SetAmount(ctx, userA, product1, "0")
	assert.ErrorIs(t, err, validation.ErrInvalidAmount)

	items, err = svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Amount)
}

func TestRemove(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.AddOrIncrement(ctx, userA, product1, "2")
	require.NoError(t, err)

	removed, err := svc.Remove(ctx, userA, product1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed.Amount)

	_, err = svc.Remove(ctx, userA, product1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Remove(ctx, userA, "nope")
	assert.ErrorIs(t, err, validation.ErrInvalidIdentifier)
}

func TestListScopesByUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, _ = svc.AddOrIncrement(ctx, userA, product1, "1")
	_, _, _ = svc.AddOrIncrement(ctx, userA, product2, "1")
	_, _, _ = svc.AddOrIncrement(ctx, userB, product1, "1")

	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = svc.List(ctx, "bogus")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestAddOrIncrement_NegativeAmountEndToEnd(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.AddOrIncrement(ctx, "u1", "p1", "-5")
	assert.ErrorIs(t, err, validation.ErrValidation)

	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClear(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, _ = svc.AddOrIncrement(ctx, userA, product1, "1")
	_, _, _ = svc.AddOrIncrement(ctx, userA, product2, "1")
	_, _, _ = svc.AddOrIncrement(ctx, userB, product1, "1")

	n, err := svc.Clear(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestList_ReadsThroughCache(t *testing.T) {
	svc, c := newTestService()
	ctx := context.Background()

	_, _, err := svc.AddOrIncrement(ctx, userA, product1, "1")
	require.NoError(t, err)

	_, err = svc.List(ctx, userA)
	require.NoError(t, err)
	assert.True(t, c.cached(userA), "list fills the cache before returning")

	_, _, err = svc.AddOrIncrement(ctx, userA, product1, "1")
	require.NoError(t, err)
	assert.False(t, c.cached(userA), "mutation must invalidate the cached list")

	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].Amount)
}

func TestList_CacheErrorFallsBackToStore(t *testing.T) {
	svc, c := newTestService()
	ctx := context.Background()

	_, _, err := svc.AddOrIncrement(ctx, userA, product1, "3")
	require.NoError(t, err)

	c.m.Lock()
	c.err = errors.New("redis down")
	c.m.Unlock()

	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Amount)
}

func TestList_SingleflightCollapsesMisses(t *testing.T) {
	repo := &countingRepository{CartRepository: repository.NewMemoryCartRepository()}
	svc := NewCartService(repo, cache.NopCache{}, discardLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.List(ctx, userA)
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Less(t, repo.listCalls(), 10)
}

func TestStoreErrors(t *testing.T) {
	cause := errors.New("connection reset")
	repo := &countingRepository{CartRepository: repository.NewMemoryCartRepository(), err: cause}
	svc := NewCartService(repo, nil, discardLogger())
	ctx := context.Background()

	_, _, err := svc.AddOrIncrement(ctx, userA, product1, "1")
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "add to cart", storeErr.Op)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	_, err = svc.List(ctx, userA)
	assert.ErrorIs(t, err, cause)
}

func TestStoreErrors_OpenBreaker(t *testing.T) {
	inner := &countingRepository{CartRepository: repository.NewMemoryCartRepository(), err: errors.New("timeout")}
	settings := repository.BreakerSettings("cart-store", time.Minute, discardLogger())
	svc := NewCartService(repository.NewBreakerCartRepository(inner, settings), nil, discardLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, _ = svc.AddOrIncrement(ctx, userA, product1, "1")
	}

	_, _, err := svc.AddOrIncrement(ctx, userA, product1, "1")
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestList_SequentialReadsSeeOwnWrites(t *testing.T) {
	svc, c := newTestService()
	c.setDelay = 30 * time.Millisecond
	ctx := context.Background()

	_, _, err := svc.AddOrIncrement(ctx, userA, product1, "2")
	require.NoError(t, err)
	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Amount)

	_, _, err = svc.AddOrIncrement(ctx, userA, product1, "3")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	items, err = svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Amount)
}

// gatedCache blocks the first Set until released.
type gatedCache struct {
	*mockCache
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCache) Set(ctx context.Context, userID string, version int64, items []domain.CartItem) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.mockCache.Set(ctx, userID, version, items)
}

func TestList_FillRacingMutationIsDropped(t *testing.T) {
	c := &gatedCache{mockCache: newMockCache(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewCartService(repository.NewMemoryCartRepository(), c, discardLogger())
	ctx := context.Background()

	_, _, err := svc.AddOrIncrement(ctx, userA, product1, "2")
	require.NoError(t, err)

	done := make(chan []domain.CartItem, 1)
	go func() {
		items, err := svc.List(ctx, userA)
		assert.NoError(t, err)
		done <- items
	}()

	<-c.entered
	_, _, err = svc.AddOrIncrement(ctx, userA, product1, "3")
	require.NoError(t, err)
	close(c.release)

	stale := <-done
	require.Len(t, stale, 1)
	assert.Equal(t, 2, stale[0].Amount, "the read started before the add")
	assert.False(t, c.cached(userA), "the superseded snapshot must not be cached")

	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Amount)
}

// gatedRepository blocks List until released and honours its context
// afterwards.
type gatedRepository struct {
	repository.CartRepository
	mu      sync.Mutex
	lists   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepository) List(ctx context.Context, userID primitive.ObjectID) ([]domain.CartItem, error) {
	g.mu.Lock()
	g.lists++
	g.mu.Unlock()
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.CartRepository.List(ctx, userID)
}

func TestList_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	mem := repository.NewMemoryCartRepository()
	repo := &gatedRepository{CartRepository: mem, entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewCartService(repo, cache.NopCache{}, discardLogger())

	uid, err := primitive.ObjectIDFromHex(userA)
	require.NoError(t, err)
	pid, err := primitive.ObjectIDFromHex(product1)
	require.NoError(t, err)
	_, _, err = mem.Increment(context.Background(), uid, pid, 4)
	require.NoError(t, err)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.List(firstCtx, userA)
		firstErr <- err
	}()
	<-repo.entered

	second := make(chan []domain.CartItem, 1)
	go func() {
		items, err := svc.List(context.Background(), userA)
		assert.NoError(t, err)
		second <- items
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	err = <-firstErr
	assert.ErrorIs(t, err, context.Canceled)

	close(repo.release)
	items := <-second
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Amount)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 1, repo.lists)
}

func TestAddOrIncrement_RejectsOverflowingTotal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.AddOrIncrement(ctx, userA, product1, "9223372036854775807")
	assert.ErrorIs(t, err, validation.ErrInvalidAmount)

	limit := strconv.Itoa(domain.MaxAmount)
	item, _, err := svc.AddOrIncrement(ctx, userA, product1, limit)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxAmount, item.Amount)

	_, _, err = svc.AddOrIncrement(ctx, userA, product1, "1")
	var ve *validation.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "amount", ve.Field)
	assert.ErrorIs(t, err, validation.ErrInvalidAmount)

	items, err := svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.MaxAmount, items[0].Amount)
	assert.Positive(t, items[0].Amount)
}
