package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// PriceResolver returns the current unit price of a product in minor currency
// units. Satisfied by catalog.Service.
type PriceResolver interface {
	PriceOf(ctx context.Context, productID int64) (int64, error)
}

type Service interface {
	// AddItem resolves the live product price, snapshots it and adds the line
	// to the buyer's open cart, creating the cart on first add.
	AddItem(ctx context.Context, buyerID, productID int64, qty int) (uuid.UUID, error)
	// GetOpenCart returns the buyer's open cart with lines, or ErrNoOpenCart.
	GetOpenCart(ctx context.Context, buyerID int64) (*Cart, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*Cart, error)
}

type service struct {
	repo   Repository
	prices PriceResolver
}

func NewService(repo Repository, prices PriceResolver) Service {
	return &service{repo: repo, prices: prices}
}

func (s *service) AddItem(ctx context.Context, buyerID, productID int64, qty int) (uuid.UUID, error) {
	if qty <= 0 {
		return uuid.Nil, ErrInvalidQuantity
	}

	cartID, err := s.repo.GetOrCreateOpenCart(ctx, buyerID)
	if err != nil {
		log.Error().Err(err).Int64("buyer_id", buyerID).Msg("service: failed to get or create open cart")
		return uuid.Nil, fmt.Errorf("service: failed to get or create open cart: %w", err)
	}

	priceCents, err := s.prices.PriceOf(ctx, productID)
	if err != nil {
		// Unknown products surface as the resolver's not-found error.
		return uuid.Nil, err
	}

	if err := s.repo.AddItem(ctx, cartID, productID, qty, priceCents); err != nil {
		if errors.Is(err, ErrCartNotFound) || errors.Is(err, ErrCartNotOpen) {
			return uuid.Nil, err
		}
		log.Error().Err(err).Stringer("cart_id", cartID).Int64("product_id", productID).Msg("service: failed to add cart item")
		return uuid.Nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	log.Info().
		Stringer("cart_id", cartID).
		Int64("buyer_id", buyerID).
		Int64("product_id", productID).
		Int("qty", qty).
		Int64("price_cents", priceCents).
		Msg("service: item added to cart")

	return cartID, nil
}

func (s *service) GetOpenCart(ctx context.Context, buyerID int64) (*Cart, error) {
	cartID, err := s.repo.FindOpenCart(ctx, buyerID)
	if err != nil {
		if errors.Is(err, ErrNoOpenCart) {
			return nil, ErrNoOpenCart
		}
		log.Error().Err(err).Int64("buyer_id", buyerID).Msg("service: failed to find open cart")
		return nil, fmt.Errorf("service: failed to find open cart: %w", err)
	}

	return s.GetCart(ctx, cartID)
}

func (s *service) GetCart(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	c, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		log.Error().Err(err).Stringer("cart_id", cartID).Msg("service: failed to fetch cart")
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}
	return c, nil
}
