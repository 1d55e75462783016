package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCartNotOpen  = errors.New("cart is not open")
	ErrNoOpenCart   = errors.New("no open cart for buyer")
)

type Repository interface {
	GetOrCreateOpenCart(ctx context.Context, buyerID int64) (uuid.UUID, error)
	FindOpenCart(ctx context.Context, buyerID int64) (uuid.UUID, error)
	AddItem(ctx context.Context, cartID uuid.UUID, productID int64, qty int, priceCentsSnapshot int64) error
	GetCart(ctx context.Context, cartID uuid.UUID) (*Cart, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// GetOrCreateOpenCart returns the buyer's open cart, creating one atomically
// if none exists. The insert races through the partial unique index on
// (buyer_id) WHERE status = 'open': a concurrent creator wins the index, the
// loser's insert affects no rows and the follow-up select observes the
// winner's cart.
func (r *postgresRepository) GetOrCreateOpenCart(ctx context.Context, buyerID int64) (uuid.UUID, error) {
	cartID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate cart ID: %w", err)
	}

	var createdID uuid.UUID
	err = r.db.QueryRow(ctx, `
		INSERT INTO carts (id, buyer_id, status)
		VALUES ($1, $2, 'open')
		ON CONFLICT (buyer_id) WHERE status = 'open' DO NOTHING
		RETURNING id
	`, cartID, buyerID).Scan(&createdID)
	if err == nil {
		return createdID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("repository: failed to create cart for buyer %d: %w", buyerID, err)
	}

	// Insert lost the race or an open cart already existed.
	existingID, err := r.FindOpenCart(ctx, buyerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to find open cart for buyer %d after conflict: %w", buyerID, err)
	}
	return existingID, nil
}

func (r *postgresRepository) FindOpenCart(ctx context.Context, buyerID int64) (uuid.UUID, error) {
	var cartID uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT id FROM carts
		WHERE buyer_id = $1 AND status = 'open'
		ORDER BY created_at DESC
		LIMIT 1
	`, buyerID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoOpenCart
		}
		return uuid.Nil, fmt.Errorf("repository: failed to find open cart for buyer %d: %w", buyerID, err)
	}
	return cartID, nil
}

// AddItem upserts a cart line. A repeat add for the same product increments
// the quantity and keeps the snapshot from the first add.
func (r *postgresRepository) AddItem(ctx context.Context, cartID uuid.UUID, productID int64, qty int, priceCentsSnapshot int64) error {
	var status CartStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM carts WHERE id = $1`, cartID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartNotFound
		}
		return fmt.Errorf("repository: failed to select cart %s: %w", cartID, err)
	}
	if status != StatusOpen {
		return ErrCartNotOpen
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, qty, price_cents_snapshot)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty
	`, cartID, productID, qty, priceCentsSnapshot)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert cart item for cart %s: %w", cartID, err)
	}

	return nil
}

func (r *postgresRepository) GetCart(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	var c Cart
	err := r.db.QueryRow(ctx, `
		SELECT id, buyer_id, status, created_at FROM carts WHERE id = $1
	`, cartID).Scan(&c.ID, &c.BuyerID, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart %s: %w", cartID, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT ci.cart_id, ci.product_id, p.sku, p.name, ci.qty, ci.price_cents_snapshot
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.product_id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for cart %s: %w", cartID, err)
	}
	defer rows.Close()

	c.Items = make([]CartItem, 0)
	for rows.Next() {
		var item CartItem
		err := rows.Scan(&item.CartID, &item.ProductID, &item.SKU, &item.Name, &item.Qty, &item.PriceCentsSnapshot)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for cart %s: %w", cartID, err)
		}
		c.Items = append(c.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for cart %s: %w", cartID, err)
	}

	return &c, nil
}
