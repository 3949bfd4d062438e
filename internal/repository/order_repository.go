package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
)

const orderColumns = `id, user_id, session_key, first_name, last_name, email, phone, address,
	status, total_amount, created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o       domain.Order
		userID  sql.NullInt64
		session sql.NullString
		status  string
	)
	err := row.Scan(
		&o.ID,
		&userID,
		&session,
		&o.Buyer.FirstName,
		&o.Buyer.LastName,
		&o.Buyer.Email,
		&o.Buyer.Phone,
		&o.Buyer.Address,
		&status,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Owner = domain.Identity{UserID: userID.Int64, SessionToken: session.String}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

// Checkout converts the cart into a pending order. Order, order items, the
// order.created outbox event and the emptied cart commit together or not at
// all.
func (r *Repository) Checkout(ctx context.Context, cartID int64, owner domain.Identity, buyer domain.BuyerInfo) (*domain.Order, error) {
	var order *domain.Order
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if err := touchCart(ctx, tx, cartID, now); err != nil {
			return err
		}

		items, err := listCartItems(ctx, tx, cartItemQuery+` WHERE ci.cart_id = $1 ORDER BY ci.created_at, ci.id`, cartID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrEmptyCart
		}
		totals := domain.ComputeTotals(items)

		o := &domain.Order{
			Owner:       owner,
			Buyer:       buyer,
			Status:      domain.OrderStatusPending,
			TotalAmount: totals.Price,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := insertOrder(ctx, tx, o); err != nil {
			return err
		}

		for _, item := range items {
			oi := domain.OrderItem{
				OrderID:     o.ID,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Price:       item.UnitPrice,
				Quantity:    item.Quantity,
			}
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, product_name, price, quantity)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				oi.OrderID, oi.ProductID, oi.ProductName, oi.Price.StringFixed(2), oi.Quantity,
			).Scan(&oi.ID)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			o.Items = append(o.Items, oi)
		}

		if err := insertOrderCreatedEvent(ctx, tx, o); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	var (
		userID  sql.NullInt64
		session sql.NullString
	)
	if o.Owner.IsUser() {
		userID = sql.NullInt64{Int64: o.Owner.UserID, Valid: true}
	} else if o.Owner.SessionToken != "" {
		session = sql.NullString{String: o.Owner.SessionToken, Valid: true}
	}

	query := `INSERT INTO orders (user_id, session_key, first_name, last_name, email, phone, address,
	              status, total_amount, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`

	err := tx.QueryRowContext(ctx, query,
		userID,
		session,
		o.Buyer.FirstName,
		o.Buyer.LastName,
		o.Buyer.Email,
		o.Buyer.Phone,
		o.Buyer.Address,
		string(o.Status),
		o.TotalAmount.StringFixed(2),
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func insertOrderCreatedEvent(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	event := domain.OrderCreatedEvent{
		EventID:     uuid.New().String(),
		OrderID:     o.ID,
		UserID:      o.Owner.UserID,
		Email:       o.Buyer.Email,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
	}
	for _, item := range o.Items {
		event.Items = append(event.Items, domain.OrderEventItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4)`,
		strconv.FormatInt(o.ID, 10), domain.EventOrderCreated, string(payload), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	o.Items, err = r.listOrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	// Items are loaded after the cursor is released; SQLite runs on one
	// connection.
	rows.Close()

	for i := range orders {
		orders[i].Items, err = r.listOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) listOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, price, quantity FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item      domain.OrderItem
			productID sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &productID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.ProductID = productID.Int64
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// UpdateOrderStatus moves the order from one status to another. It fails
// with ErrConflict when the stored status is no longer from.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query order by id: %w", err)
	}
	return fmt.Errorf("order %d is no longer %s: %w", id, from, domain.ErrConflict)
}
