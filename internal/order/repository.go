package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart has no items")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartAlreadyClosed = errors.New("cart is no longer open")
)

type Repository interface {
	// CheckoutFromCart converts an open cart into an order inside one
	// transaction and returns the new order id and its total.
	CheckoutFromCart(ctx context.Context, cartID uuid.UUID, buyerID int64, addressID *int64) (uuid.UUID, int64, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]Order, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// CheckoutFromCart runs the whole conversion as a single transaction: read
// the snapshotted lines, insert the order, copy the lines, conditionally
// decrement stock, close the cart. Any failure rolls back every write.
func (r *postgresRepository) CheckoutFromCart(ctx context.Context, cartID uuid.UUID, buyerID int64, addressID *int64) (orderID uuid.UUID, totalCents int64, err error) {
	orderID, genErr := uuid.NewV4()
	if genErr != nil {
		return uuid.Nil, 0, fmt.Errorf("repository: failed to generate order ID: %w", genErr)
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return uuid.Nil, 0, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("cart_id", cartID).Msg("Panic recovered during checkout, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("cart_id", cartID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Stringer("cart_id", cartID).Msg("Checkout transaction failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("cart_id", cartID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Stringer("order_id", orderID).Msg("Failed to commit checkout transaction")
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	// 1. Read the snapshotted lines. The live product price is deliberately
	// not consulted: the total is defined by the add-time snapshots.
	rows, err := tx.Query(ctx, `
		SELECT product_id, qty, price_cents_snapshot
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY product_id
	`, cartID)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("repository: failed to query cart items for cart %s: %w", cartID, err)
	}

	type line struct {
		productID  int64
		qty        int
		priceCents int64
	}
	lines := make([]line, 0)
	for rows.Next() {
		var l line
		if err = rows.Scan(&l.productID, &l.qty, &l.priceCents); err != nil {
			rows.Close()
			return uuid.Nil, 0, fmt.Errorf("repository: failed to scan cart item for cart %s: %w", cartID, err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return uuid.Nil, 0, fmt.Errorf("repository: error iterating cart items for cart %s: %w", cartID, err)
	}

	if len(lines) == 0 {
		err = ErrEmptyCart
		return uuid.Nil, 0, err
	}

	for _, l := range lines {
		totalCents += int64(l.qty) * l.priceCents
	}

	// 2. Create the order.
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, buyer_id, cart_id, address_id, status, total_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, buyerID, cartID, addressID, string(StatusCreated), totalCents)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("repository: failed to insert order for cart %s: %w", cartID, err)
	}

	// 3. Copy lines and decrement stock. The decrement is conditional on the
	// live stock value; zero rows affected means oversell and aborts the
	// whole checkout.
	for _, l := range lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4)
		`, orderID, l.productID, l.qty, l.priceCents)
		if err != nil {
			return uuid.Nil, 0, fmt.Errorf("repository: failed to insert order item for order %s: %w", orderID, err)
		}

		cmdTag, decErr := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
		`, l.productID, l.qty)
		if decErr != nil {
			err = fmt.Errorf("repository: failed to decrement stock for product %d: %w", l.productID, decErr)
			return uuid.Nil, 0, err
		}
		if cmdTag.RowsAffected() == 0 {
			err = fmt.Errorf("%w: product %d", ErrInsufficientStock, l.productID)
			return uuid.Nil, 0, err
		}
	}

	// 4. Close the cart. Guarded on the current status so a cart converted by
	// a concurrent checkout aborts this one instead of double-converting.
	cmdTag, closeErr := tx.Exec(ctx, `
		UPDATE carts
		SET status = 'converted'
		WHERE id = $1 AND status = 'open'
	`, cartID)
	if closeErr != nil {
		err = fmt.Errorf("repository: failed to close cart %s: %w", cartID, closeErr)
		return uuid.Nil, 0, err
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrCartAlreadyClosed
		return uuid.Nil, 0, err
	}

	return orderID, totalCents, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, `
		SELECT id, buyer_id, cart_id, address_id, status, total_cents, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.BuyerID, &o.CartID, &o.AddressID, &o.Status, &o.TotalCents, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT order_id, product_id, qty, price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", id, err)
	}
	defer rows.Close()

	o.Items = make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Qty, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", id, err)
		}
		o.Items = append(o.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", id, err)
	}

	return &o, nil
}

func (r *postgresRepository) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]Order, error) {
	orderRows, err := r.db.Query(ctx, `
		SELECT id, buyer_id, cart_id, address_id, status, total_cents, created_at
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for buyer %d: %w", buyerID, err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		var o Order
		err := orderRows.Scan(&o.ID, &o.BuyerID, &o.CartID, &o.AddressID, &o.Status, &o.TotalCents, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for buyer %d: %w", buyerID, err)
		}
		o.Items = make([]OrderItem, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err = orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for buyer %d: %w", buyerID, err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT order_id, product_id, qty, price_cents
		FROM order_items
		WHERE order_id = ANY($1)
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for buyer %d: %w", buyerID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item OrderItem
		if err := itemRows.Scan(&item.OrderID, &item.ProductID, &item.Qty, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for buyer %d: %w", buyerID, err)
		}
		if o, ok := ordersMap[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for buyer %d: %w", buyerID, err)
	}

	orders := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		if o, ok := ordersMap[id]; ok {
			orders = append(orders, *o)
		}
	}

	return orders, nil
}
