package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoDocumentRepository serves one catalog collection. T must tag its id
// field `bson:"_id,omitempty"` so a zero id is left out of replacements.
type mongoDocumentRepository[T any] struct {
	collection *mongo.Collection
	kind       string
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoDocumentRepository[domain.Product]{collection: db.Collection(productCollection), kind: "product"}
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoDocumentRepository[domain.User]{collection: db.Collection(userCollection), kind: "user"}
}

func (m *mongoDocumentRepository[T]) find(ctx context.Context, filter bson.M) ([]T, error) {
	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query %ss: %w", m.kind, err)
	}

	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %ss: %w", m.kind, err)
	}
	return docs, nil
}

func (m *mongoDocumentRepository[T]) List(ctx context.Context) ([]T, error) {
	return m.find(ctx, bson.M{})
}

func (m *mongoDocumentRepository[T]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	var doc T
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", m.kind, err)
	}
	return &doc, nil
}

func (m *mongoDocumentRepository[T]) Insert(ctx context.Context, doc *T) error {
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert %s: %w", m.kind, err)
	}
	return nil
}

func (m *mongoDocumentRepository[T]) Update(ctx context.Context, id primitive.ObjectID, doc *T) (bool, error) {
	// a replacement drops optional fields the caller left empty
	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", m.kind, err)
	}
	if result.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return result.ModifiedCount > 0, nil
}

func (m *mongoDocumentRepository[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", m.kind, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *mongoDocumentRepository[T]) SearchByName(ctx context.Context, query string) ([]T, error) {
	return m.find(ctx, bson.M{
		"name": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
	})
}

func (m *mongoDocumentRepository[T]) Count(ctx context.Context) (int64, error) {
	n, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count %ss: %w", m.kind, err)
	}
	return n, nil
}
