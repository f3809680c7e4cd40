package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/validation"
)

// catalog holds the lookups products and users share.
type catalog[T any] struct {
	repo   repository.DocumentRepository[T]
	kind   string
	logger *slog.Logger
}

func (c *catalog[T]) fail(ctx context.Context, op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	c.logger.ErrorContext(ctx, op+" failed", "kind", c.kind, "error", err)
	return &StoreError{Op: op, Err: err}
}

func (c *catalog[T]) List(ctx context.Context) ([]T, error) {
	docs, err := c.repo.List(ctx)
	if err != nil {
		return nil, c.fail(ctx, "list "+c.kind+"s", err)
	}
	return docs, nil
}

func (c *catalog[T]) Get(ctx context.Context, id string) (*T, error) {
	oid, err := validation.ParseID("id", id)
	if err != nil {
		return nil, err
	}
	doc, err := c.repo.Get(ctx, oid)
	if err != nil {
		return nil, c.fail(ctx, "get "+c.kind, err)
	}
	return doc, nil
}

func (c *catalog[T]) Delete(ctx context.Context, id string) error {
	oid, err := validation.ParseID("id", id)
	if err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, oid); err != nil {
		return c.fail(ctx, "delete "+c.kind, err)
	}
	return nil
}

// Search matches a case-insensitive substring of the name.
func (c *catalog[T]) Search(ctx context.Context, query string) ([]T, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &validation.ValidationError{Field: "q", Reason: "is required"}
	}
	docs, err := c.repo.SearchByName(ctx, query)
	if err != nil {
		return nil, c.fail(ctx, "search "+c.kind+"s", err)
	}
	return docs, nil
}

func (c *catalog[T]) insert(ctx context.Context, doc *T) error {
	if err := c.repo.Insert(ctx, doc); err != nil {
		return c.fail(ctx, "create "+c.kind, err)
	}
	return nil
}

func (c *catalog[T]) update(ctx context.Context, id string, doc *T) (bool, error) {
	oid, err := validation.ParseID("id", id)
	if err != nil {
		return false, err
	}
	changed, err := c.repo.Update(ctx, oid, doc)
	if err != nil {
		return false, c.fail(ctx, "update "+c.kind, err)
	}
	return changed, nil
}
