package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	AddOrIncrement(ctx context.Context, userID, productID, amount string) (*domain.CartItem, bool, error)
	SetAmount(ctx context.Context, userID, productID, amount string) (*domain.CartItem, error)
	Remove(ctx context.Context, userID, productID string) (*domain.CartItem, error)
	Clear(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
}

const cartItemNotFound = "Product not found in cart"

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

// List serves GET /cart, GET /cart?userId= and GET /cart/{userId}.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "userId")
	if userID == "" {
		userID = r.URL.Query().Get("userId")
	}

	items, err := h.carts.List(ctx, userID)
	if err != nil {
		respondServiceError(w, err, cartItemNotFound)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	item, created, err := h.carts.AddOrIncrement(ctx,
		chi.URLParam(r, "userId"),
		chi.URLParam(r, "productId"),
		chi.URLParam(r, "amount"),
	)
	if err != nil {
		respondServiceError(w, err, cartItemNotFound)
		return
	}

	if created {
		respondJSON(w, http.StatusCreated, MessageResponse{Message: "Product added to cart", Data: item})
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Product quantity updated in cart", Data: item})
}

func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	item, err := h.carts.SetAmount(ctx,
		chi.URLParam(r, "userId"),
		chi.URLParam(r, "productId"),
		chi.URLParam(r, "amount"),
	)
	if err != nil {
		respondServiceError(w, err, cartItemNotFound)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Product quantity updated in cart", Data: item})
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	item, err := h.carts.Remove(ctx, chi.URLParam(r, "userId"), chi.URLParam(r, "productId"))
	if err != nil {
		respondServiceError(w, err, cartItemNotFound)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted from cart", Data: item})
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.carts.Clear(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		respondServiceError(w, err, cartItemNotFound)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Cart cleared", "removed": n})
}
