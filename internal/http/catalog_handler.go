package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/validation"
	"github.com/go-chi/chi/v5"
)

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in validation.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in validation.ProductInput) (bool, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]domain.Product, error)
}

type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, in validation.UserInput) (*domain.User, error)
	Update(ctx context.Context, id string, in validation.UserInput) (bool, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]domain.User, error)
}

type ProductHandler struct {
	products ProductService
	timeout  time.Duration
}

func NewProductHandler(products ProductService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{products: products, timeout: timeout}
}

const productNotFound = "Product not found"

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.List(ctx)
	if err != nil {
		respondServiceError(w, err, productNotFound)
		return
	}
	if len(products) == 0 {
		respondJSON(w, http.StatusNotFound, MessageResponse{Message: "No products found"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, productNotFound)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Product found", Data: p})
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in validation.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.products.Create(ctx, in)
	if err != nil {
		respondServiceError(w, err, productNotFound)
		return
	}

	respondJSON(w, http.StatusCreated, MessageResponse{Message: "Product created successfully", Data: p})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in validation.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}

	changed, err := h.products.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		respondServiceError(w, err, productNotFound)
		return
	}
	if !changed {
		respondJSON(w, http.StatusOK, MessageResponse{Message: "No changes were made to the product."})
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Product updated successfully."})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.products.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, productNotFound)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted successfully"})
}

func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, err, productNotFound)
		return
	}

	respondJSON(w, http.StatusOK, products)
}

type UserHandler struct {
	users   UserService
	timeout time.Duration
}

func NewUserHandler(users UserService, timeout time.Duration) *UserHandler {
	return &UserHandler{users: users, timeout: timeout}
}

const userNotFound = "User not found"

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	users, err := h.users.List(ctx)
	if err != nil {
		respondServiceError(w, err, userNotFound)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	u, err := h.users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, userNotFound)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "User found", Data: u})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in validation.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}

	u, err := h.users.Create(ctx, in)
	if err != nil {
		respondServiceError(w, err, userNotFound)
		return
	}

	respondJSON(w, http.StatusCreated, MessageResponse{Message: "User created successfully", Data: u})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in validation.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}

	changed, err := h.users.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		respondServiceError(w, err, userNotFound)
		return
	}
	if !changed {
		respondJSON(w, http.StatusOK, MessageResponse{Message: "No changes were made to the user"})
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "User updated successfully"})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.users.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, userNotFound)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	users, err := h.users.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, err, userNotFound)
		return
	}

	respondJSON(w, http.StatusOK, users)
}
