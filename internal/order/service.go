package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/pkg/events"
)

// ErrCheckoutFailed wraps any failure inside the checkout transaction that is
// not one of the dedicated sentinels. The transaction is fully rolled back by
// the time the caller sees it.
var ErrCheckoutFailed = errors.New("checkout failed")

// CartFinder locates a buyer's open cart. Satisfied by cart.Repository.
type CartFinder interface {
	FindOpenCart(ctx context.Context, buyerID int64) (uuid.UUID, error)
}

// Publisher emits order lifecycle events. Satisfied by events.Publisher.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, evt events.OrderCreated) error
}

type Service interface {
	// Checkout converts the buyer's open cart into an order. The empty-cart
	// case is rejected with ErrEmptyCart rather than producing a zero-total
	// order.
	Checkout(ctx context.Context, buyerID int64, addressID *int64) (uuid.UUID, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]Order, error)
}

type service struct {
	orderRepo Repository
	carts     CartFinder
	publisher Publisher // nil when Kafka is not configured
}

func NewService(orderRepo Repository, carts CartFinder, publisher Publisher) Service {
	return &service{orderRepo: orderRepo, carts: carts, publisher: publisher}
}

func (s *service) Checkout(ctx context.Context, buyerID int64, addressID *int64) (uuid.UUID, error) {
	cartID, err := s.carts.FindOpenCart(ctx, buyerID)
	if err != nil {
		if errors.Is(err, cart.ErrNoOpenCart) {
			return uuid.Nil, cart.ErrNoOpenCart
		}
		log.Error().Err(err).Int64("buyer_id", buyerID).Msg("service: failed to find open cart for checkout")
		return uuid.Nil, fmt.Errorf("service: failed to find open cart: %w", err)
	}

	orderID, totalCents, err := s.orderRepo.CheckoutFromCart(ctx, cartID, buyerID, addressID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrCartAlreadyClosed):
			return uuid.Nil, err
		default:
			log.Error().Err(err).Stringer("cart_id", cartID).Int64("buyer_id", buyerID).Msg("service: checkout transaction failed")
			return uuid.Nil, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
		}
	}

	log.Info().
		Stringer("order_id", orderID).
		Stringer("cart_id", cartID).
		Int64("buyer_id", buyerID).
		Int64("total_cents", totalCents).
		Msg("service: checkout completed")

	if s.publisher != nil {
		evt := events.OrderCreated{
			OrderID:    orderID.String(),
			BuyerID:    buyerID,
			TotalCents: totalCents,
			CreatedAt:  time.Now().UTC(),
		}
		// Best effort after commit. The order exists either way.
		if err := s.publisher.PublishOrderCreated(ctx, evt); err != nil {
			log.Warn().Err(err).Stringer("order_id", orderID).Msg("service: failed to publish order created event")
		}
	}

	return orderID, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]Order, error) {
	orders, err := s.orderRepo.ListOrdersByBuyer(ctx, buyerID)
	if err != nil {
		log.Error().Err(err).Int64("buyer_id", buyerID).Msg("service: failed to fetch buyer orders")
		return nil, fmt.Errorf("service: failed to fetch buyer orders: %w", err)
	}
	return orders, nil
}
