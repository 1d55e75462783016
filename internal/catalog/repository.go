package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrSKUExists        = errors.New("product with this SKU already exists")
	ErrCategoryExists   = errors.New("category with this name already exists")
)

type Repository interface {
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) (int64, error)
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id int64) error
	PriceOf(ctx context.Context, productID int64) (int64, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (int64, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `
		SELECT p.id, p.sku, p.name, p.description, p.price_cents, p.stock, p.status,
		       p.category_id, p.seller_id,
		       (SELECT url FROM product_images WHERE product_id = p.id ORDER BY sort_order LIMIT 1),
		       p.created_at, p.updated_at
		FROM products p
		WHERE p.status = 'active'
	`
	args := []any{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		query += fmt.Sprintf(" AND p.category_id = $%d", len(args))
	}

	query += " ORDER BY p.id DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		var imageURL *string
		err := rows.Scan(
			&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Status,
			&p.CategoryID, &p.SellerID, &imageURL, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		p.Images = make([]string, 0, 1)
		if imageURL != nil {
			p.Images = append(p.Images, *imageURL)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	query := `
		SELECT id, sku, name, description, price_cents, stock, status, category_id, seller_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Status,
		&p.CategoryID, &p.SellerID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %d: %w", id, err)
	}

	imageRows, err := r.db.Query(ctx,
		`SELECT url FROM product_images WHERE product_id = $1 ORDER BY sort_order`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query product images for %d: %w", id, err)
	}
	defer imageRows.Close()

	p.Images = make([]string, 0)
	for imageRows.Next() {
		var url string
		if err := imageRows.Scan(&url); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product image for %d: %w", id, err)
		}
		p.Images = append(p.Images, url)
	}
	if err = imageRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating product images for %d: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, product *Product) (productID int64, err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return 0, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	now := time.Now().UTC()
	err = tx.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, price_cents, stock, status, category_id, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`,
		product.SKU, product.Name, product.Description, product.PriceCents,
		product.Stock, string(product.Status), product.CategoryID, product.SellerID, now,
	).Scan(&productID)
	if err != nil {
		return 0, mapProductError(err, fmt.Errorf("repository: failed to insert product: %w", err))
	}

	if err = r.saveImages(ctx, tx, productID, product.Images, false); err != nil {
		return 0, err
	}

	product.ID = productID
	product.CreatedAt = now
	product.UpdatedAt = now
	return productID, nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, product *Product) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	cmdTag, err := tx.Exec(ctx, `
		UPDATE products
		SET sku = $1, name = $2, description = $3, price_cents = $4, stock = $5,
		    status = $6, category_id = $7, updated_at = $8
		WHERE id = $9
	`,
		product.SKU, product.Name, product.Description, product.PriceCents,
		product.Stock, string(product.Status), product.CategoryID, time.Now().UTC(), product.ID,
	)
	if err != nil {
		return mapProductError(err, fmt.Errorf("repository: failed to update product %d: %w", product.ID, err))
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	if len(product.Images) > 0 {
		if err = r.saveImages(ctx, tx, product.ID, product.Images, true); err != nil {
			return err
		}
	}

	return nil
}

// saveImages replaces or appends product image rows inside an open transaction.
func (r *postgresRepository) saveImages(ctx context.Context, tx pgx.Tx, productID int64, urls []string, replace bool) error {
	if replace {
		if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("repository: failed to delete product images for %d: %w", productID, err)
		}
	}

	for i, url := range urls {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_images (product_id, url, sort_order) VALUES ($1, $2, $3)`,
			productID, url, i+1)
		if err != nil {
			return fmt.Errorf("repository: failed to insert product image for %d: %w", productID, err)
		}
	}
	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// PriceOf reads the live unit price of a product. It is a point read on
// purpose: cart lines snapshot this value at add time, so it must never be
// served from a cache.
func (r *postgresRepository) PriceOf(ctx context.Context, productID int64) (int64, error) {
	var priceCents int64
	err := r.db.QueryRow(ctx, `SELECT price_cents FROM products WHERE id = $1`, productID).Scan(&priceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("repository: failed to select price for product %d: %w", productID, err)
	}
	return priceCents, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, ErrCategoryExists
		}
		return 0, fmt.Errorf("repository: failed to insert category: %w", err)
	}
	return id, nil
}

func mapProductError(err error, wrapped error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrSKUExists
		case pgerrcode.ForeignKeyViolation:
			return ErrCategoryNotFound
		}
	}
	return wrapped
}
