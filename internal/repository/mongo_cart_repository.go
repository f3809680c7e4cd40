package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartCollection),
	}
}

func itemFilter(userID, productID primitive.ObjectID) bson.M {
	return bson.M{"userId": userID, "productId": productID}
}

func (m *mongoCartRepository) Increment(ctx context.Context, userID, productID primitive.ObjectID, amount int) (*domain.CartItem, bool, error) {
	// An item whose total would pass MaxAmount does not match, so the upsert
	// tries to insert and the unique index rejects it.
	filter := itemFilter(userID, productID)
	filter["amount"] = bson.M{"$lte": domain.MaxAmount - amount}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var err error
	// Two upserts racing on a fresh key can both try to insert; the unique
	// index rejects the loser, and the retry finds the winner's document.
	for attempt := 0; attempt < 2; attempt++ {
		id := primitive.NewObjectID()
		update := bson.M{
			"$inc":         bson.M{"amount": amount},
			"$setOnInsert": bson.M{"_id": id},
		}

		var before domain.CartItem
		err = m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &domain.CartItem{ID: id, UserID: userID, ProductID: productID, Amount: amount}, true, nil
		}
		if err == nil {
			before.Amount += amount
			return &before, false, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			break
		}

		var current domain.CartItem
		if ferr := m.collection.FindOne(ctx, itemFilter(userID, productID)).Decode(&current); ferr == nil &&
			current.Amount > domain.MaxAmount-amount {
			return nil, false, ErrAmountOverflow
		}
	}
	return nil, false, fmt.Errorf("failed to upsert cart item: %w", err)
}

func (m *mongoCartRepository) SetAmount(ctx context.Context, userID, productID primitive.ObjectID, amount int) (*domain.CartItem, error) {
	update := bson.M{"$set": bson.M{"amount": amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item domain.CartItem
	err := m.collection.FindOneAndUpdate(ctx, itemFilter(userID, productID), update, opts).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update cart item amount: %w", err)
	}
	return &item, nil
}

func (m *mongoCartRepository) Delete(ctx context.Context, userID, productID primitive.ObjectID) (*domain.CartItem, error) {
	var item domain.CartItem
	err := m.collection.FindOneAndDelete(ctx, itemFilter(userID, productID)).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete cart item: %w", err)
	}
	return &item, nil
}

func (m *mongoCartRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := m.collection.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoCartRepository) List(ctx context.Context, userID primitive.ObjectID) ([]domain.CartItem, error) {
	filter := bson.M{}
	if !userID.IsZero() {
		filter["userId"] = userID
	}

	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	items := make([]domain.CartItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}
	return items, nil
}
