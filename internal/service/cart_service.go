package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo    repository.CartRepository
	catalog repository.CatalogRepository
	cache   cache.CartCache
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, catalog repository.CatalogRepository, cartCache cache.CartCache) *CartService {
	if cartCache == nil {
		cartCache = cache.NoopCache{}
	}
	return &CartService{
		repo:    repo,
		catalog: catalog,
		cache:   cartCache,
	}
}

const resolveTimeout = 5 * time.Second

// ItemUpdate is the outcome of changing a cart line's quantity.
type ItemUpdate struct {
	Totals    domain.CartTotals
	ItemTotal decimal.Decimal
	Removed   bool
}

// ResolveCart returns the cart of owner, creating it on first use.
func (s *CartService) ResolveCart(ctx context.Context, owner domain.Identity) (*domain.Cart, error) {
	if !owner.Valid() {
		return nil, domain.NewValidationError(domain.FieldError{Field: "identity", Reason: "A user or session is required."})
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key.
	// The shared call outlives any single caller's cancellation.
	v, err, _ := s.sfg.Do(owner.Key(), func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()

		id, err := s.cache.GetCartID(ctx, owner)
		if err == nil {
			cart, errGet := s.repo.GetCart(ctx, id)
			if errGet == nil {
				return cart, nil
			}
			if !errors.Is(errGet, domain.ErrNotFound) {
				return nil, errGet
			}
			// stale mapping, fall through and recreate
			s.invalidate(owner)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			zap.L().Warn("cache get error", zap.String("owner", owner.Key()), zap.Error(err))
		}

		cart, err := s.repo.GetOrCreateCart(ctx, owner)
		if err != nil {
			return nil, err
		}

		if errSet := s.cache.SetCartID(ctx, owner, cart.ID); errSet != nil {
			zap.L().Warn("cache set error", zap.String("owner", owner.Key()), zap.Error(errSet))
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem adds quantity units of a product, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.Product, domain.CartTotals, error) {
	if quantity <= 0 {
		return nil, domain.CartTotals{}, domain.NewValidationError(domain.FieldError{
			Field:  "quantity",
			Reason: "Ensure this value is greater than or equal to 1.",
		})
	}

	product, err := s.catalog.GetProductByID(ctx, productID)
	if err != nil {
		return nil, domain.CartTotals{}, err
	}

	if err := s.repo.AddItem(ctx, cartID, productID, quantity); err != nil {
		zap.L().Error("repo add item error", zap.Int64("cart_id", cartID), zap.Int64("product_id", productID), zap.Error(err))
		return nil, domain.CartTotals{}, err
	}

	totals, err := s.GetTotals(ctx, cartID)
	if err != nil {
		return nil, domain.CartTotals{}, err
	}
	return product, totals, nil
}

// UpdateItem sets a line's quantity. A quantity of zero or less removes the
// line.
func (s *CartService) UpdateItem(ctx context.Context, cartID, itemID int64, quantity int) (*ItemUpdate, error) {
	result := &ItemUpdate{ItemTotal: decimal.Zero}

	if quantity <= 0 {
		if err := s.repo.DeleteItem(ctx, cartID, itemID); err != nil {
			return nil, err
		}
		result.Removed = true
	} else {
		if err := s.repo.SetItemQuantity(ctx, cartID, itemID, quantity); err != nil {
			return nil, err
		}
		item, err := s.repo.GetItem(ctx, cartID, itemID)
		if err != nil {
			return nil, err
		}
		result.ItemTotal = item.LineTotal()
	}

	totals, err := s.GetTotals(ctx, cartID)
	if err != nil {
		return nil, err
	}
	result.Totals = totals
	return result, nil
}

// RemoveItem deletes a line and returns the product name it referred to.
func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID int64) (string, error) {
	item, err := s.repo.GetItem(ctx, cartID, itemID)
	if err != nil {
		return "", err
	}
	if err := s.repo.DeleteItem(ctx, cartID, itemID); err != nil {
		return "", err
	}
	return item.ProductName, nil
}

// GetTotals derives totals from the current product prices.
func (s *CartService) GetTotals(ctx context.Context, cartID int64) (domain.CartTotals, error) {
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return domain.CartTotals{}, fmt.Errorf("cart totals: %w", err)
	}
	return domain.ComputeTotals(items), nil
}

func (s *CartService) GetCart(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	return &domain.CartView{
		Cart:   *cart,
		Items:  items,
		Totals: domain.ComputeTotals(items),
	}, nil
}

func (s *CartService) invalidate(owner domain.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		zap.L().Warn("cache invalidate error", zap.String("owner", owner.Key()), zap.Error(err))
	}
}
