package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(id int64) domain.Order {
	return domain.Order{
		ID:          id,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(250),
		Buyer:       domain.BuyerInfo{FirstName: "Ada", Email: "ada@example.com"},
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Amp", Price: decimal.NewFromInt(100), Quantity: 2},
			{ProductID: 2, ProductName: "Cable", Price: decimal.NewFromInt(50), Quantity: 1},
		},
	}
}

func TestListOrders_Unauthorized(t *testing.T) {
	handler := NewOrdersHandler(&OrderServiceMock{}, testTimeout)

	recorder := serve(handler.ListOrders, httptest.NewRequest(http.MethodGet, "/api/orders", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "unauthorized", resp.Code)
}

func TestListOrders_Success(t *testing.T) {
	handler := NewOrdersHandler(&OrderServiceMock{orders: []domain.Order{sampleOrder(2), sampleOrder(1)}}, testTimeout)

	request := withUser(httptest.NewRequest(http.MethodGet, "/api/orders", nil), 5)
	recorder := serve(handler.ListOrders, request, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp OrdersResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, int64(2), resp.Orders[0].ID)
	assert.Equal(t, "250.00", resp.Orders[0].TotalAmount)
	assert.Equal(t, "200.00", resp.Orders[0].Items[0].LineTotal)
}

func TestOrderSuccess(t *testing.T) {
	orders := &OrderServiceMock{orders: []domain.Order{sampleOrder(9)}}
	handler := NewOrdersHandler(orders, testTimeout)

	recorder := serve(handler.OrderSuccess, httptest.NewRequest(http.MethodGet, "/api/orders/9/success", nil), map[string]string{"orderID": "9"})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, orders.lastOwner.SessionToken)

	var resp OrderDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "Ada", resp.Buyer.FirstName)
}

func TestOrderSuccess_NotFound(t *testing.T) {
	handler := NewOrdersHandler(&OrderServiceMock{}, testTimeout)

	recorder := serve(handler.OrderSuccess, httptest.NewRequest(http.MethodGet, "/api/orders/9/success", nil), map[string]string{"orderID": "9"})
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = serve(handler.OrderSuccess, httptest.NewRequest(http.MethodGet, "/api/orders/x/success", nil), map[string]string{"orderID": "x"})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
