package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stock(n int) *int { return &n }

func validProduct() validation.ProductInput {
	return validation.ProductInput{Name: "Hammer", Price: 12.5, Image: "hammer.png", AmountInStock: stock(3)}
}

func TestProductService_CreateGetUpdateDelete(t *testing.T) {
	svc := NewProductService(repository.NewMemoryProductRepository(), discardLogger())
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	p, err := svc.Create(ctx, validProduct())
	require.NoError(t, err)
	assert.False(t, p.ID.IsZero())

	got, err := svc.Get(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Hammer", got.Name)
	assert.Equal(t, 3, got.AmountInStock)

	changed, err := svc.Update(ctx, p.ID.Hex(), validProduct())
	require.NoError(t, err)
	assert.False(t, changed)

	in := validProduct()
	in.Price = 15
	changed, err = svc.Update(ctx, p.ID.Hex(), in)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err = svc.Get(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 15.0, got.Price)
	assert.Equal(t, p.ID, got.ID)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, svc.Delete(ctx, p.ID.Hex()))
	assert.ErrorIs(t, svc.Delete(ctx, p.ID.Hex()), ErrNotFound)
	_, err = svc.Get(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductService_Validation(t *testing.T) {
	svc := NewProductService(repository.NewMemoryProductRepository(), discardLogger())
	ctx := context.Background()

	in := validProduct()
	in.Price = 0
	_, err := svc.Create(ctx, in)
	var ve *validation.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "product.price", ve.Field)

	_, err = svc.Update(ctx, "123", validProduct())
	assert.ErrorIs(t, err, validation.ErrInvalidIdentifier)

	_, err = svc.Update(ctx, "507f1f77bcf86cd799439011", validProduct())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "xyz")
	assert.ErrorIs(t, err, validation.ErrInvalidIdentifier)

	_, err = svc.Search(ctx, "  ")
	assert.ErrorIs(t, err, validation.ErrValidation)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProductService_Search(t *testing.T) {
	svc := NewProductService(repository.NewMemoryProductRepository(), discardLogger())
	ctx := context.Background()

	for _, name := range []string{"Claw Hammer", "Sledge hammer", "Saw"} {
		in := validProduct()
		in.Name = name
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	found, err := svc.Search(ctx, "HAMMER")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestUserService_DeleteClearsCart(t *testing.T) {
	carts, _ := newTestService()
	users := NewUserService(repository.NewMemoryUserRepository(), carts, discardLogger())
	ctx := context.Background()

	u, err := users.Create(ctx, validation.UserInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	_, _, err = carts.AddOrIncrement(ctx, u.ID.Hex(), product1, "2")
	require.NoError(t, err)
	_, _, err = carts.AddOrIncrement(ctx, userB, product1, "1")
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, u.ID.Hex()))

	items, err := carts.List(ctx, u.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = carts.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.ErrorIs(t, users.Delete(ctx, u.ID.Hex()), ErrNotFound)
}

func TestUserService_CreateAndUpdate(t *testing.T) {
	users := NewUserService(repository.NewMemoryUserRepository(), nil, discardLogger())
	ctx := context.Background()

	_, err := users.Create(ctx, validation.UserInput{Name: "Ada", Email: "nope"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	u, err := users.Create(ctx, validation.UserInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	changed, err := users.Update(ctx, u.ID.Hex(), validation.UserInput{Name: "Ada", Email: "ada@example.com", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := users.Get(ctx, u.ID.Hex())
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	found, err := users.Search(ctx, "ad")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, users.Delete(ctx, u.ID.Hex()))
}
