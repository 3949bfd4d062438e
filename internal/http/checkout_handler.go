package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

const msgEmptyCart = "Your cart is empty"

type CheckoutService interface {
	Checkout(ctx context.Context, cart *domain.Cart, buyer domain.BuyerInfo) (*domain.Order, error)
}

type CheckoutHandler struct {
	carts    CartService
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(carts CartService, checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		carts:    carts,
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutPageResponse struct {
	Cart CartDTO `json:"cart"`
}

// GET /api/checkout
func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.ResolveCart(ctx, identityFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	view, err := h.carts.GetCart(ctx, cart)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if len(view.Items) == 0 {
		redirectEmptyCart(w, r)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutPageResponse{Cart: toCartDTO(view)})
}

// POST /api/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.ResolveCart(ctx, identityFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// an empty cart wins over a malformed form
	view, err := h.carts.GetCart(ctx, cart)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if len(view.Items) == 0 {
		redirectEmptyCart(w, r)
		return
	}

	buyer, err := decodeBuyer(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	order, err := h.checkout.Checkout(ctx, cart, buyer)
	if errors.Is(err, domain.ErrEmptyCart) {
		redirectEmptyCart(w, r)
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	addFlash(w, r, "success", fmt.Sprintf("Order #%d placed successfully!", order.ID))
	http.Redirect(w, r, fmt.Sprintf("/api/orders/%d/success", order.ID), http.StatusSeeOther)
}

func redirectEmptyCart(w http.ResponseWriter, r *http.Request) {
	addFlash(w, r, "warning", msgEmptyCart)
	http.Redirect(w, r, "/api/cart", http.StatusSeeOther)
}

// decodeBuyer accepts either a JSON body or a classic form post.
func decodeBuyer(r *http.Request) (domain.BuyerInfo, error) {
	var buyer domain.BuyerInfo

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&buyer)
		return buyer, err
	}

	if err := r.ParseForm(); err != nil {
		return buyer, err
	}
	buyer = domain.BuyerInfo{
		FirstName: r.PostForm.Get("first_name"),
		LastName:  r.PostForm.Get("last_name"),
		Email:     r.PostForm.Get("email"),
		Phone:     r.PostForm.Get("phone"),
		Address:   r.PostForm.Get("address"),
	}
	return buyer, nil
}
