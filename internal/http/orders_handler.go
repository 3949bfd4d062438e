package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	GetOrder(ctx context.Context, owner domain.Identity, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrdersResponse struct {
	Orders []OrderDTO `json:"orders"`
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, toOrderDTO(&orders[i]))
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: dtos})
}

// GET /api/orders/{orderID}/success
func (h *OrdersHandler) OrderSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := idParam(r, "orderID")
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "not found")
		return
	}

	order, err := h.orders.GetOrder(ctx, identityFromRequest(r), orderID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := toOrderDTO(order)
	resp.Messages = popFlashes(w, r)
	respondJSON(w, http.StatusOK, resp)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
