package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
	"go.uber.org/zap"
)

const (
	msgInvalidRequest = "Invalid request"
	msgAddFailed      = "Error adding product to cart"
	msgUpdateFailed   = "Error updating cart"
)

type CartService interface {
	ResolveCart(ctx context.Context, owner domain.Identity) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.Product, domain.CartTotals, error)
	UpdateItem(ctx context.Context, cartID, itemID int64, quantity int) (*service.ItemUpdate, error)
	RemoveItem(ctx context.Context, cartID, itemID int64) (string, error)
	GetCart(ctx context.Context, cart *domain.Cart) (*domain.CartView, error)
}

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

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type UpdateItemRequestDTO struct {
	ItemID   int64 `json:"item_id"`
	Quantity *int  `json:"quantity"`
}

// CartActionResponse is the body of every cart JSON endpoint. Failures use
// the same shape with success=false and never expose error details.
type CartActionResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message,omitempty"`
	CartTotalItems *int     `json:"cart_total_items,omitempty"`
	CartTotalPrice *float64 `json:"cart_total_price,omitempty"`
	ItemTotal      *float64 `json:"item_total,omitempty"`
}

func cartFailure(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, CartActionResponse{Success: false, Message: message})
}

func withTotals(resp CartActionResponse, totals domain.CartTotals) CartActionResponse {
	items := totals.Items
	price := totals.Price.InexactFloat64()
	resp.CartTotalItems = &items
	resp.CartTotalPrice = &price
	return resp
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
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

	resp := toCartDTO(view)
	resp.Messages = popFlashes(w, r)
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cartFailure(w, msgInvalidRequest)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.carts.ResolveCart(ctx, identityFromRequest(r))
	if err != nil {
		h.logFailure(r, "resolve cart", err)
		cartFailure(w, msgAddFailed)
		return
	}

	product, totals, err := h.carts.AddItem(ctx, cart.ID, req.ProductID, quantity)
	if err != nil {
		h.logFailure(r, "add item", err)
		cartFailure(w, msgAddFailed)
		return
	}

	respondJSON(w, http.StatusOK, withTotals(CartActionResponse{
		Success: true,
		Message: fmt.Sprintf("%s added to cart", product.Name),
	}, totals))
}

// POST /api/cart/update
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		cartFailure(w, msgInvalidRequest)
		return
	}

	cart, err := h.carts.ResolveCart(ctx, identityFromRequest(r))
	if err != nil {
		h.logFailure(r, "resolve cart", err)
		cartFailure(w, msgUpdateFailed)
		return
	}

	update, err := h.carts.UpdateItem(ctx, cart.ID, req.ItemID, *req.Quantity)
	if err != nil {
		h.logFailure(r, "update item", err)
		cartFailure(w, msgUpdateFailed)
		return
	}

	itemTotal := update.ItemTotal.InexactFloat64()
	resp := withTotals(CartActionResponse{Success: true}, update.Totals)
	resp.ItemTotal = &itemTotal
	respondJSON(w, http.StatusOK, resp)
}

// GET /api/cart/remove/{itemID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := idParam(r, "itemID")
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "not found")
		return
	}

	cart, err := h.carts.ResolveCart(ctx, identityFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	name, err := h.carts.RemoveItem(ctx, cart.ID, itemID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	addFlash(w, r, "success", fmt.Sprintf("%s removed from cart", name))
	http.Redirect(w, r, "/api/cart", http.StatusSeeOther)
}

func (h *CartHandler) logFailure(r *http.Request, op string, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		zap.L().Debug("cart request rejected", zap.String("op", op), zap.Error(err))
		return
	}
	zap.L().Error("cart request failed",
		zap.String("op", op),
		zap.String("request_id", getRequestID(r.Context())),
		zap.Error(err))
}
