package service

import (
	"context"
	"log/slog"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductService struct {
	catalog[domain.Product]
}

func NewProductService(repo repository.ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{catalog[domain.Product]{repo: repo, kind: "product", logger: logger}}
}

func productFromInput(in validation.ProductInput) domain.Product {
	return domain.Product{
		Name:          in.Name,
		Price:         in.Price,
		Image:         in.Image,
		AmountInStock: *in.AmountInStock,
		Category:      in.Category,
		Description:   in.Description,
	}
}

func (s *ProductService) Create(ctx context.Context, in validation.ProductInput) (*domain.Product, error) {
	if err := validation.Validate(in); err != nil {
		return nil, err
	}
	p := productFromInput(in)
	p.ID = primitive.NewObjectID()
	if err := s.insert(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update replaces every field but the id. changed is false when the stored
// product already had these values.
func (s *ProductService) Update(ctx context.Context, id string, in validation.ProductInput) (bool, error) {
	if _, err := validation.ParseID("id", id); err != nil {
		return false, err
	}
	if err := validation.Validate(in); err != nil {
		return false, err
	}
	p := productFromInput(in)
	return s.update(ctx, id, &p)
}

func (s *ProductService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.fail(ctx, "count products", err)
	}
	return n, nil
}
