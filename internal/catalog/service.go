package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cache"
)

var (
	ErrInvalidPrice = errors.New("price must be non-negative")
	ErrInvalidStock = errors.New("stock must be non-negative")
	ErrMissingField = errors.New("required field is missing")
)

const cacheTTL = 5 * time.Minute

type Service interface {
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) (int64, error)
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id int64) error
	PriceOf(ctx context.Context, productID int64) (int64, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (int64, error)
}

type service struct {
	repo  Repository
	cache cache.Cache // nil when no Redis is configured
}

func NewService(repo Repository, c cache.Cache) Service {
	return &service{repo: repo, cache: c}
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	if s.cache != nil {
		key := s.cache.GenerateKey("product", strconv.FormatInt(id, 10))
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
			var p Product
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return &p, nil
			}
		}
	}

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(product); err == nil {
			key := s.cache.GenerateKey("product", strconv.FormatInt(id, 10))
			if err := s.cache.Set(ctx, key, payload, cacheTTL); err != nil {
				log.Warn().Err(err).Int64("product_id", id).Msg("service: failed to cache product")
			}
		}
	}

	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, product *Product) (int64, error) {
	if err := validateProduct(product); err != nil {
		return 0, err
	}
	if product.Status == "" {
		product.Status = StatusActive
	}

	id, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if errors.Is(err, ErrSKUExists) || errors.Is(err, ErrCategoryNotFound) {
			return 0, err
		}
		log.Error().Err(err).Str("sku", product.SKU).Msg("service: failed to create product")
		return 0, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Int64("product_id", id).Str("sku", product.SKU).Msg("service: product created")
	return id, nil
}

func (s *service) UpdateProduct(ctx context.Context, product *Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrSKUExists) || errors.Is(err, ErrCategoryNotFound) {
			return err
		}
		log.Error().Err(err).Int64("product_id", product.ID).Msg("service: failed to update product")
		return fmt.Errorf("service: failed to update product: %w", err)
	}

	return nil
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
	return nil
}

// PriceOf resolves the live unit price for a product. Deliberately bypasses
// the cache: cart lines snapshot this value and staleness must stay bounded
// by one lookup per add-item call.
func (s *service) PriceOf(ctx context.Context, productID int64) (int64, error) {
	return s.repo.PriceOf(ctx, productID)
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	if s.cache != nil {
		key := s.cache.GenerateKey("categories", "all")
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
			var categories []Category
			if err := json.Unmarshal([]byte(cached), &categories); err == nil {
				return categories, nil
			}
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(categories); err == nil {
			key := s.cache.GenerateKey("categories", "all")
			if err := s.cache.Set(ctx, key, payload, cacheTTL); err != nil {
				log.Warn().Err(err).Msg("service: failed to cache categories")
			}
		}
	}

	return categories, nil
}

func (s *service) CreateCategory(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: name", ErrMissingField)
	}

	id, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return 0, ErrCategoryExists
		}
		log.Error().Err(err).Str("name", name).Msg("service: failed to create category")
		return 0, fmt.Errorf("service: failed to create category: %w", err)
	}

	return id, nil
}

func validateProduct(product *Product) error {
	if product.SKU == "" {
		return fmt.Errorf("%w: sku", ErrMissingField)
	}
	if product.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if product.PriceCents < 0 {
		return ErrInvalidPrice
	}
	if product.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}
