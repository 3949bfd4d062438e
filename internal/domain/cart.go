package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Identity selects whose cart a request works on. Exactly one of the fields
// is set: an authenticated user wins over the anonymous session token.
type Identity struct {
	UserID       int64
	SessionToken string
}

func UserIdentity(userID int64) Identity {
	return Identity{UserID: userID}
}

func SessionIdentity(token string) Identity {
	return Identity{SessionToken: token}
}

func (i Identity) IsUser() bool {
	return i.UserID > 0
}

func (i Identity) Valid() bool {
	return i.IsUser() || i.SessionToken != ""
}

// Key is a stable string form used for cache keys and singleflight.
func (i Identity) Key() string {
	if i.IsUser() {
		return "user:" + strconv.FormatInt(i.UserID, 10)
	}
	return "session:" + i.SessionToken
}

type Cart struct {
	ID        int64
	Owner     Identity
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a cart line joined with the live product row.
type CartItem struct {
	ID          int64
	CartID      int64
	ProductID   int64
	ProductName string
	ProductSlug string
	UnitPrice   decimal.Decimal
	Quantity    int
	CreatedAt   time.Time
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartTotals struct {
	Items int
	Price decimal.Decimal
}

// ComputeTotals derives cart totals from the current line prices.
func ComputeTotals(items []CartItem) CartTotals {
	totals := CartTotals{Price: decimal.Zero}
	for _, item := range items {
		totals.Items += item.Quantity
		totals.Price = totals.Price.Add(item.LineTotal())
	}
	return totals
}

// CartView is everything the cart page shows.
type CartView struct {
	Cart   Cart
	Items  []CartItem
	Totals CartTotals
}
