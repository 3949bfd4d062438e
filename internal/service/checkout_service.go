package service

import (
	"context"
	"errors"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type CheckoutService struct {
	repo     repository.OrderRepository
	validate *validator.Validate
}

func NewCheckoutService(repo repository.OrderRepository) *CheckoutService {
	return &CheckoutService{repo: repo, validate: newValidator()}
}

// Checkout turns the cart into a pending order. Buyer fields are trimmed and
// validated before anything is written.
func (s *CheckoutService) Checkout(ctx context.Context, cart *domain.Cart, buyer domain.BuyerInfo) (*domain.Order, error) {
	buyer = domain.BuyerInfo{
		FirstName: strings.TrimSpace(buyer.FirstName),
		LastName:  strings.TrimSpace(buyer.LastName),
		Email:     strings.TrimSpace(buyer.Email),
		Phone:     strings.TrimSpace(buyer.Phone),
		Address:   strings.TrimSpace(buyer.Address),
	}
	if err := validateStruct(s.validate, buyer); err != nil {
		return nil, err
	}

	order, err := s.repo.Checkout(ctx, cart.ID, cart.Owner, buyer)
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyCart) {
			zap.L().Error("checkout failed", zap.Int64("cart_id", cart.ID), zap.Error(err))
		}
		return nil, err
	}

	zap.L().Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("cart_id", cart.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(order.Items)))
	return order, nil
}
