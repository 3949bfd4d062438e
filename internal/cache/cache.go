package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

// CartCache remembers which cart belongs to an identity.
type CartCache interface {
	GetCartID(ctx context.Context, owner domain.Identity) (int64, error)
	SetCartID(ctx context.Context, owner domain.Identity, cartID int64) error
	Delete(ctx context.Context, owner domain.Identity) error
}

var ErrCacheMiss = errors.New("cache miss")

// NoopCache always misses. It stands in when Redis is not configured.
type NoopCache struct{}

func (NoopCache) GetCartID(context.Context, domain.Identity) (int64, error) {
	return 0, ErrCacheMiss
}

func (NoopCache) SetCartID(context.Context, domain.Identity, int64) error { return nil }

func (NoopCache) Delete(context.Context, domain.Identity) error { return nil }
