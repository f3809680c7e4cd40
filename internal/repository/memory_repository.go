package repository

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartKey struct {
	userID    primitive.ObjectID
	productID primitive.ObjectID
}

// MemoryCartRepository keeps cart items in process memory. Every operation
// runs under one lock, so Increment is atomic per key.
type MemoryCartRepository struct {
	mu    sync.RWMutex
	items map[cartKey]*domain.CartItem
	order []cartKey
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{items: make(map[cartKey]*domain.CartItem)}
}

func (s *MemoryCartRepository) Increment(_ context.Context, userID, productID primitive.ObjectID, amount int) (*domain.CartItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cartKey{userID, productID}
	if item, ok := s.items[key]; ok {
		if item.Amount > domain.MaxAmount-amount {
			return nil, false, ErrAmountOverflow
		}
		item.Amount += amount
		cp := *item
		return &cp, false, nil
	}

	item := &domain.CartItem{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		ProductID: productID,
		Amount:    amount,
	}
	s.items[key] = item
	s.order = append(s.order, key)
	cp := *item
	return &cp, true, nil
}

func (s *MemoryCartRepository) SetAmount(_ context.Context, userID, productID primitive.ObjectID, amount int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[cartKey{userID, productID}]
	if !ok {
		return nil, ErrNotFound
	}
	item.Amount = amount
	cp := *item
	return &cp, nil
}

func (s *MemoryCartRepository) Delete(_ context.Context, userID, productID primitive.ObjectID) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cartKey{userID, productID}
	item, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.items, key)
	s.removeFromOrder(func(k cartKey) bool { return k == key })
	return item, nil
}

func (s *MemoryCartRepository) DeleteByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key := range s.items {
		if key.userID == userID {
			delete(s.items, key)
			n++
		}
	}
	s.removeFromOrder(func(k cartKey) bool { return k.userID == userID })
	return n, nil
}

func (s *MemoryCartRepository) List(_ context.Context, userID primitive.ObjectID) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.CartItem, 0, len(s.order))
	for _, key := range s.order {
		if userID.IsZero() || key.userID == userID {
			items = append(items, *s.items[key])
		}
	}
	return items, nil
}

func (s *MemoryCartRepository) removeFromOrder(match func(cartKey) bool) {
	kept := s.order[:0]
	for _, k := range s.order {
		if !match(k) {
			kept = append(kept, k)
		}
	}
	s.order = kept
}

// memoryDocumentRepository is the in-process counterpart of
// mongoDocumentRepository. id and name read the fields it needs from T.
type memoryDocumentRepository[T any] struct {
	mu    sync.RWMutex
	docs  map[primitive.ObjectID]T
	order []primitive.ObjectID
	id    func(*T) *primitive.ObjectID
	name  func(*T) string
}

func NewMemoryProductRepository() ProductRepository {
	return &memoryDocumentRepository[domain.Product]{
		docs: make(map[primitive.ObjectID]domain.Product),
		id:   func(p *domain.Product) *primitive.ObjectID { return &p.ID },
		name: func(p *domain.Product) string { return p.Name },
	}
}

func NewMemoryUserRepository() UserRepository {
	return &memoryDocumentRepository[domain.User]{
		docs: make(map[primitive.ObjectID]domain.User),
		id:   func(u *domain.User) *primitive.ObjectID { return &u.ID },
		name: func(u *domain.User) string { return u.Name },
	}
}

func (s *memoryDocumentRepository[T]) filter(match func(*T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]T, 0, len(s.order))
	for _, id := range s.order {
		doc := s.docs[id]
		if match(&doc) {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (s *memoryDocumentRepository[T]) List(context.Context) ([]T, error) {
	return s.filter(func(*T) bool { return true }), nil
}

func (s *memoryDocumentRepository[T]) Get(_ context.Context, id primitive.ObjectID) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *memoryDocumentRepository[T]) Insert(_ context.Context, doc *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id(doc)
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	if _, ok := s.docs[*id]; !ok {
		s.order = append(s.order, *id)
	}
	s.docs[*id] = *doc
	return nil
}

func (s *memoryDocumentRepository[T]) Update(_ context.Context, id primitive.ObjectID, doc *T) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.docs[id]
	if !ok {
		return false, ErrNotFound
	}
	next := *doc
	*s.id(&next) = id
	if reflect.DeepEqual(old, next) {
		return false, nil
	}
	s.docs[id] = next
	return true, nil
}

func (s *memoryDocumentRepository[T]) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memoryDocumentRepository[T]) SearchByName(_ context.Context, query string) ([]T, error) {
	q := strings.ToLower(query)
	return s.filter(func(doc *T) bool {
		return strings.Contains(strings.ToLower(s.name(doc)), q)
	}), nil
}

func (s *memoryDocumentRepository[T]) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}
