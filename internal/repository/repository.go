package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrAmountOverflow is returned by Increment when the new total would
	// pass domain.MaxAmount. The stored item is left unchanged.
	ErrAmountOverflow = errors.New("cart item amount would exceed the maximum")
)

// CartRepository stores cart line items keyed by (userID, productID).
// Implementations keep at most one item per key.
type CartRepository interface {
	// Increment adds amount to the item for the key, creating it when absent.
	// created reports whether the item did not exist before the call.
	Increment(ctx context.Context, userID, productID primitive.ObjectID, amount int) (item *domain.CartItem, created bool, err error)

	// SetAmount overwrites the amount of an existing item. ErrNotFound if absent.
	SetAmount(ctx context.Context, userID, productID primitive.ObjectID, amount int) (*domain.CartItem, error)

	// Delete removes the item for the key and returns it. ErrNotFound if absent.
	Delete(ctx context.Context, userID, productID primitive.ObjectID) (*domain.CartItem, error)

	// DeleteByUser removes every item owned by userID.
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)

	// List returns the items of userID, or every item when userID is NilObjectID.
	List(ctx context.Context, userID primitive.ObjectID) ([]domain.CartItem, error)
}

// DocumentRepository is the CRUD surface shared by the catalog collections.
type DocumentRepository[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id primitive.ObjectID) (*T, error)
	Insert(ctx context.Context, doc *T) error
	// Update replaces the stored fields of id with doc; the id itself never
	// changes. modified is false when the stored document already matched.
	Update(ctx context.Context, id primitive.ObjectID, doc *T) (modified bool, err error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// SearchByName matches a case-insensitive substring of the name field.
	SearchByName(ctx context.Context, query string) ([]T, error)
	Count(ctx context.Context) (int64, error)
}

type (
	ProductRepository = DocumentRepository[domain.Product]
	UserRepository    = DocumentRepository[domain.User]
)
