package service

import (
	"context"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"go.uber.org/zap"
)

type OrderService struct {
	repo repository.OrderRepository
}

func NewOrderService(repo repository.OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// GetOrder returns the order only to the identity that placed it; everyone
// else gets NotFound.
func (s *OrderService) GetOrder(ctx context.Context, owner domain.Identity, id int64) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownsOrder(owner, order) {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	return order, nil
}

func ownsOrder(owner domain.Identity, order *domain.Order) bool {
	if order.Owner.IsUser() {
		return owner.IsUser() && owner.UserID == order.Owner.UserID
	}
	return order.Owner.SessionToken != "" && owner.SessionToken == order.Owner.SessionToken
}

func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, userID)
}

// UpdateStatus moves an order along the status machine.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError(domain.FieldError{
			Field:  "status",
			Reason: fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", status),
		})
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if !domain.CanTransitionTo(from, status) {
		return nil, fmt.Errorf("order %d from %s to %s: %w", id, from, status, domain.ErrIllegalTransition)
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, from, status); err != nil {
		return nil, err
	}
	zap.L().Info("order status changed",
		zap.Int64("order_id", id),
		zap.Stringer("from", from),
		zap.Stringer("to", status))

	return s.repo.GetOrder(ctx, id)
}
