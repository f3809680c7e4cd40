package service

import (
	"context"
	"log/slog"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartClearer drops every line item of a user.
type CartClearer interface {
	Clear(ctx context.Context, userID string) (int64, error)
}

type UserService struct {
	catalog[domain.User]
	carts CartClearer
}

func NewUserService(repo repository.UserRepository, carts CartClearer, logger *slog.Logger) *UserService {
	return &UserService{
		catalog: catalog[domain.User]{repo: repo, kind: "user", logger: logger},
		carts:   carts,
	}
}

func userFromInput(in validation.UserInput) domain.User {
	return domain.User{Name: in.Name, Email: in.Email, IsAdmin: in.IsAdmin}
}

func (s *UserService) Create(ctx context.Context, in validation.UserInput) (*domain.User, error) {
	if err := validation.Validate(in); err != nil {
		return nil, err
	}
	u := userFromInput(in)
	u.ID = primitive.NewObjectID()
	if err := s.insert(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) Update(ctx context.Context, id string, in validation.UserInput) (bool, error) {
	if _, err := validation.ParseID("id", id); err != nil {
		return false, err
	}
	if err := validation.Validate(in); err != nil {
		return false, err
	}
	u := userFromInput(in)
	return s.update(ctx, id, &u)
}

// Delete removes the user and then their cart. A failed cart cleanup is
// logged; the user is already gone at that point.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.catalog.Delete(ctx, id); err != nil {
		return err
	}
	if s.carts == nil {
		return nil
	}
	if n, err := s.carts.Clear(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart of deleted user", "user_id", id, "error", err)
	} else if n > 0 {
		s.logger.InfoContext(ctx, "cleared cart of deleted user", "user_id", id, "items", n)
	}
	return nil
}
