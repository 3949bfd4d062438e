package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

const cartItemQuery = `SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.slug, p.price, ci.quantity, ci.created_at
	FROM cart_items ci JOIN products p ON p.id = ci.product_id`

func scanCart(row rowScanner) (*domain.Cart, error) {
	var (
		c       domain.Cart
		userID  sql.NullInt64
		session sql.NullString
	)
	if err := row.Scan(&c.ID, &userID, &session, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Owner = domain.Identity{UserID: userID.Int64, SessionToken: session.String}
	return &c, nil
}

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	var item domain.CartItem
	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.ProductName,
		&item.ProductSlug,
		&item.UnitPrice,
		&item.Quantity,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetOrCreateCart returns the cart of owner, creating it on first use. The
// unique owner columns make concurrent first calls converge on one row.
func (r *Repository) GetOrCreateCart(ctx context.Context, owner domain.Identity) (*domain.Cart, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("cart owner: %w", domain.ErrValidation)
	}

	var (
		userID  sql.NullInt64
		session sql.NullString
		column  string
		key     any
	)
	if owner.IsUser() {
		userID = sql.NullInt64{Int64: owner.UserID, Valid: true}
		column, key = "user_id", owner.UserID
	} else {
		session = sql.NullString{String: owner.SessionToken, Valid: true}
		column, key = "session_key", owner.SessionToken
	}

	now := time.Now().UTC()
	insert := `INSERT INTO carts (user_id, session_key, created_at, updated_at)
	           VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, userID, session, now, now); err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}

	query := `SELECT id, user_id, session_key, created_at, updated_at FROM carts WHERE ` + column + ` = $1`
	c, err := scanCart(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, fmt.Errorf("query cart for %s: %w", owner.Key(), err)
	}
	return c, nil
}

func (r *Repository) GetCart(ctx context.Context, id int64) (*domain.Cart, error) {
	query := `SELECT id, user_id, session_key, created_at, updated_at FROM carts WHERE id = $1`
	c, err := scanCart(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query cart by id: %w", err)
	}
	return c, nil
}

// touchCart bumps updated_at. Inside a transaction it also takes the row
// lock that serializes writers of the same cart.
func touchCart(ctx context.Context, tx *sql.Tx, cartID int64, now time.Time) error {
	result, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = $1 WHERE id = $2`, now, cartID)
	if err != nil {
		return fmt.Errorf("lock cart: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("lock cart: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("cart %d: %w", cartID, domain.ErrNotFound)
	}
	return nil
}

// AddItem inserts a cart line or increments the existing line for the same
// product in a single statement.
func (r *Repository) AddItem(ctx context.Context, cartID, productID int64, quantity int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if err := touchCart(ctx, tx, cartID, now); err != nil {
			return err
		}

		upsert := `INSERT INTO cart_items (cart_id, product_id, quantity, created_at)
		           VALUES ($1, $2, $3, $4)
		           ON CONFLICT (cart_id, product_id)
		           DO UPDATE SET quantity = cart_items.quantity + excluded.quantity`
		if _, err := tx.ExecContext(ctx, upsert, cartID, productID, quantity, now); err != nil {
			if mapped := constraintError(err); mapped != nil {
				return fmt.Errorf("product %d: %w", productID, mapped)
			}
			return fmt.Errorf("upsert cart item: %w", err)
		}
		return nil
	})
}

func (r *Repository) SetItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchCart(ctx, tx, cartID, time.Now().UTC()); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE cart_items SET quantity = $1 WHERE id = $2 AND cart_id = $3`,
			quantity, itemID, cartID)
		if err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
		return expectOneRow(result, fmt.Sprintf("cart item %d", itemID))
	})
}

func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchCart(ctx, tx, cartID, time.Now().UTC()); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}
		return expectOneRow(result, fmt.Sprintf("cart item %d", itemID))
	})
}

func (r *Repository) GetItem(ctx context.Context, cartID, itemID int64) (*domain.CartItem, error) {
	query := cartItemQuery + ` WHERE ci.id = $1 AND ci.cart_id = $2`
	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, itemID, cartID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query cart item: %w", err)
	}
	return item, nil
}

func (r *Repository) ListItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	query := cartItemQuery + ` WHERE ci.cart_id = $1 ORDER BY ci.created_at, ci.id`
	return listCartItems(ctx, r.db, query, cartID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listCartItems(ctx context.Context, q queryer, query string, params ...any) ([]domain.CartItem, error) {
	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func expectOneRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
