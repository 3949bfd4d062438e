package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBuyer() domain.BuyerInfo {
	return domain.BuyerInfo{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
		Phone:     "555-0100",
		Address:   "1 Harbor Way",
	}
}

func TestCheckout_Success(t *testing.T) {
	repo := newMockOrderRepository()
	svc := NewCheckoutService(repo)
	cart := &domain.Cart{ID: 4, Owner: domain.UserIdentity(8)}

	buyer := validBuyer()
	buyer.FirstName = "  Grace "
	order, err := svc.Checkout(context.Background(), cart, buyer)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "Grace", repo.lastBuyer.FirstName)
	assert.Equal(t, domain.UserIdentity(8), repo.lastOwner)
}

func TestCheckout_ValidationListsEveryField(t *testing.T) {
	repo := newMockOrderRepository()
	svc := NewCheckoutService(repo)

	_, err := svc.Checkout(context.Background(), &domain.Cart{ID: 1}, domain.BuyerInfo{Email: "not-an-email"})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Reason
	}
	assert.Len(t, fields, 5)
	assert.Equal(t, "Enter a valid email address.", fields["email"])
	assert.Equal(t, "This field is required.", fields["first_name"])
	assert.Contains(t, fields, "address")
	assert.Equal(t, 0, repo.checkoutCalls)
}

func TestCheckout_FieldTooLong(t *testing.T) {
	svc := NewCheckoutService(newMockOrderRepository())
	buyer := validBuyer()
	buyer.Phone = "012345678901234567890"

	_, err := svc.Checkout(context.Background(), &domain.Cart{ID: 1}, buyer)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "phone", verr.Fields[0].Field)
	assert.Equal(t, "Ensure this value has at most 20 characters.", verr.Fields[0].Reason)
}

func TestCheckout_EmptyCart(t *testing.T) {
	repo := newMockOrderRepository()
	repo.checkoutErr = domain.ErrEmptyCart
	svc := NewCheckoutService(repo)

	order, err := svc.Checkout(context.Background(), &domain.Cart{ID: 1}, validBuyer())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Nil(t, order)
}

func TestCheckout_RepositoryError(t *testing.T) {
	repo := newMockOrderRepository()
	repo.checkoutErr = errBoom
	svc := NewCheckoutService(repo)

	_, err := svc.Checkout(context.Background(), &domain.Cart{ID: 1}, validBuyer())
	assert.ErrorIs(t, err, errBoom)
}
