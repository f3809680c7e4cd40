// Package seed generates mock catalog data for local runs.
package seed

import (
	"context"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/validation"
)

// Products returns n deterministic mock products. Product i is priced
// (i+1)*10 and categories alternate between A and B.
func Products(n int) []domain.Product {
	products := make([]domain.Product, 0, n)
	for i := 0; i < n; i++ {
		category := "Category A"
		if i%2 == 1 {
			category = "Category B"
		}
		products = append(products, domain.Product{
			Name:          fmt.Sprintf("Product %d", i+1),
			Price:         float64((i + 1) * 10),
			Image:         fmt.Sprintf("https://picsum.photos/seed/product-%d/400/400", i+1),
			AmountInStock: (i%5 + 1) * 10,
			Category:      category,
			Description:   fmt.Sprintf("This is a description for product %d", i+1),
		})
	}
	return products
}

// Catalog is the part of the product service the seeder needs.
type Catalog interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, in validation.ProductInput) (*domain.Product, error)
}

// Seed creates n mock products through c when the catalog is empty and
// reports how many were created.
func Seed(ctx context.Context, c Catalog, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	count, err := c.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	created := 0
	for _, p := range Products(n) {
		stock := p.AmountInStock
		in := validation.ProductInput{
			Name:          p.Name,
			Price:         p.Price,
			Image:         p.Image,
			AmountInStock: &stock,
			Category:      p.Category,
			Description:   p.Description,
		}
		if _, err := c.Create(ctx, in); err != nil {
			return created, fmt.Errorf("failed to seed %q: %w", p.Name, err)
		}
		created++
	}
	return created, nil
}
