package service

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(repo *mockOrderRepository, owner domain.Identity, status domain.OrderStatus) *domain.Order {
	o := &domain.Order{ID: int64(len(repo.orders) + 1), Owner: owner, Status: status}
	repo.orders[o.ID] = o
	return o
}

func TestGetOrder_OwnerOnly(t *testing.T) {
	repo := newMockOrderRepository()
	svc := NewOrderService(repo)
	ctx := context.Background()
	userOrder := seedOrder(repo, domain.UserIdentity(1), domain.OrderStatusPending)
	anonOrder := seedOrder(repo, domain.SessionIdentity("tok"), domain.OrderStatusPending)

	got, err := svc.GetOrder(ctx, domain.UserIdentity(1), userOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, userOrder.ID, got.ID)

	_, err = svc.GetOrder(ctx, domain.UserIdentity(2), userOrder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetOrder(ctx, domain.SessionIdentity("tok"), userOrder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetOrder(ctx, domain.SessionIdentity("tok"), anonOrder.ID)
	require.NoError(t, err)
	_, err = svc.GetOrder(ctx, domain.SessionIdentity("other"), anonOrder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetOrder(ctx, domain.UserIdentity(1), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrders(t *testing.T) {
	repo := newMockOrderRepository()
	svc := NewOrderService(repo)
	seedOrder(repo, domain.UserIdentity(1), domain.OrderStatusPending)
	seedOrder(repo, domain.UserIdentity(1), domain.OrderStatusShipped)
	seedOrder(repo, domain.UserIdentity(2), domain.OrderStatusPending)

	orders, err := svc.ListOrders(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestUpdateStatus_FollowsStatusMachine(t *testing.T) {
	repo := newMockOrderRepository()
	svc := NewOrderService(repo)
	ctx := context.Background()
	o := seedOrder(repo, domain.UserIdentity(1), domain.OrderStatusPending)

	for _, next := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		updated, err := svc.UpdateStatus(ctx, o.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err := svc.UpdateStatus(ctx, o.ID, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestUpdateStatus_Rejections(t *testing.T) {
	repo := newMockOrderRepository()
	svc := NewOrderService(repo)
	ctx := context.Background()
	pending := seedOrder(repo, domain.UserIdentity(1), domain.OrderStatusPending)
	cancelled := seedOrder(repo, domain.UserIdentity(1), domain.OrderStatusCancelled)

	_, err := svc.UpdateStatus(ctx, pending.ID, domain.OrderStatusShipped)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	_, err = svc.UpdateStatus(ctx, pending.ID, domain.OrderStatusPending)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	_, err = svc.UpdateStatus(ctx, cancelled.ID, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	_, err = svc.UpdateStatus(ctx, pending.ID, "lost")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateStatus(ctx, 999, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_ConcurrentChange(t *testing.T) {
	repo := newMockOrderRepository()
	repo.updateErr = domain.ErrConflict
	svc := NewOrderService(repo)
	o := seedOrder(repo, domain.UserIdentity(1), domain.OrderStatusPending)

	_, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrConflict)
}
