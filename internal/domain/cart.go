package domain

import (
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxAmount bounds the amount of a single line item, including the total
// reached by repeated adds.
const MaxAmount = math.MaxInt32

// CartItem is one line of a user's cart: the chosen amount of a single product.
// There is at most one CartItem per (UserID, ProductID) pair.
type CartItem struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Amount    int                `bson:"amount" json:"amount"`
}
