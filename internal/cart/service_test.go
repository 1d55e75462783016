package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
)

type mockCartRepository struct {
	getOrCreateFunc func(ctx context.Context, buyerID int64) (uuid.UUID, error)
	findOpenFunc    func(ctx context.Context, buyerID int64) (uuid.UUID, error)
	addItemFunc     func(ctx context.Context, cartID uuid.UUID, productID int64, qty int, priceCentsSnapshot int64) error
	getCartFunc     func(ctx context.Context, cartID uuid.UUID) (*cart.Cart, error)
}

func (m *mockCartRepository) GetOrCreateOpenCart(ctx context.Context, buyerID int64) (uuid.UUID, error) {
	return m.getOrCreateFunc(ctx, buyerID)
}

func (m *mockCartRepository) FindOpenCart(ctx context.Context, buyerID int64) (uuid.UUID, error) {
	return m.findOpenFunc(ctx, buyerID)
}

func (m *mockCartRepository) AddItem(ctx context.Context, cartID uuid.UUID, productID int64, qty int, priceCentsSnapshot int64) error {
	return m.addItemFunc(ctx, cartID, productID, qty, priceCentsSnapshot)
}

func (m *mockCartRepository) GetCart(ctx context.Context, cartID uuid.UUID) (*cart.Cart, error) {
	return m.getCartFunc(ctx, cartID)
}

type mockPriceResolver struct {
	priceOfFunc func(ctx context.Context, productID int64) (int64, error)
	calls       int
}

func (m *mockPriceResolver) PriceOf(ctx context.Context, productID int64) (int64, error) {
	m.calls++
	return m.priceOfFunc(ctx, productID)
}

func TestCartService_AddItem(t *testing.T) {
	cartID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

	tests := []struct {
		name          string
		qty           int
		priceOfFunc   func(ctx context.Context, productID int64) (int64, error)
		addItemFunc   func(ctx context.Context, cartID uuid.UUID, productID int64, qty int, priceCentsSnapshot int64) error
		wantErrIs     error
		wantCartID    uuid.UUID
		wantSnapshots []int64
	}{
		{
			name: "success_snapshots_resolved_price",
			qty:  2,
			priceOfFunc: func(ctx context.Context, productID int64) (int64, error) {
				return 500, nil
			},
			addItemFunc: func(ctx context.Context, cartID uuid.UUID, productID int64, qty int, priceCentsSnapshot int64) error {
				return nil
			},
			wantCartID:    cartID,
			wantSnapshots: []int64{500},
		},
		{
			name:      "rejects_zero_quantity",
			qty:       0,
			wantErrIs: cart.ErrInvalidQuantity,
		},
		{
			name:      "rejects_negative_quantity",
			qty:       -3,
			wantErrIs: cart.ErrInvalidQuantity,
		},
		{
			name: "unknown_product",
			qty:  1,
			priceOfFunc: func(ctx context.Context, productID int64) (int64, error) {
				return 0, catalog.ErrProductNotFound
			},
			wantErrIs: catalog.ErrProductNotFound,
		},
		{
			name: "cart_converted_concurrently",
			qty:  1,
			priceOfFunc: func(ctx context.Context, productID int64) (int64, error) {
				return 500, nil
			},
			addItemFunc: func(ctx context.Context, cartID uuid.UUID, productID int64, qty int, priceCentsSnapshot int64) error {
				return cart.ErrCartNotOpen
			},
			wantErrIs: cart.ErrCartNotOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var snapshots []int64

			repo := &mockCartRepository{
				getOrCreateFunc: func(ctx context.Context, buyerID int64) (uuid.UUID, error) {
					return cartID, nil
				},
				addItemFunc: func(ctx context.Context, id uuid.UUID, productID int64, qty int, priceCentsSnapshot int64) error {
					snapshots = append(snapshots, priceCentsSnapshot)
					if tt.addItemFunc != nil {
						return tt.addItemFunc(ctx, id, productID, qty, priceCentsSnapshot)
					}
					return nil
				},
			}
			resolver := &mockPriceResolver{priceOfFunc: tt.priceOfFunc}

			svc := cart.NewService(repo, resolver)
			gotCartID, err := svc.AddItem(context.Background(), 1, 42, tt.qty)

			if tt.wantErrIs != nil {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErrIs))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantCartID, gotCartID)
			assert.Equal(t, tt.wantSnapshots, snapshots)
		})
	}
}

func TestCartService_AddItem_InvalidQuantitySkipsResolver(t *testing.T) {
	resolver := &mockPriceResolver{
		priceOfFunc: func(ctx context.Context, productID int64) (int64, error) {
			return 500, nil
		},
	}
	repo := &mockCartRepository{
		getOrCreateFunc: func(ctx context.Context, buyerID int64) (uuid.UUID, error) {
			t.Fatal("GetOrCreateOpenCart should not be called for invalid quantity")
			return uuid.Nil, nil
		},
	}

	svc := cart.NewService(repo, resolver)
	_, err := svc.AddItem(context.Background(), 1, 42, 0)

	assert.True(t, errors.Is(err, cart.ErrInvalidQuantity))
	assert.Equal(t, 0, resolver.calls)
}

func TestCartService_GetOpenCart(t *testing.T) {
	cartID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

	t.Run("no_open_cart", func(t *testing.T) {
		repo := &mockCartRepository{
			findOpenFunc: func(ctx context.Context, buyerID int64) (uuid.UUID, error) {
				return uuid.Nil, cart.ErrNoOpenCart
			},
		}
		svc := cart.NewService(repo, &mockPriceResolver{})

		_, err := svc.GetOpenCart(context.Background(), 1)
		assert.True(t, errors.Is(err, cart.ErrNoOpenCart))
	})

	t.Run("returns_cart_with_lines", func(t *testing.T) {
		want := &cart.Cart{
			ID:      cartID,
			BuyerID: 1,
			Status:  cart.StatusOpen,
			Items: []cart.CartItem{
				{CartID: cartID, ProductID: 42, SKU: "SKU-42", Name: "Widget", Qty: 2, PriceCentsSnapshot: 500},
			},
		}
		repo := &mockCartRepository{
			findOpenFunc: func(ctx context.Context, buyerID int64) (uuid.UUID, error) {
				return cartID, nil
			},
			getCartFunc: func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
				assert.Equal(t, cartID, id)
				return want, nil
			},
		}
		svc := cart.NewService(repo, &mockPriceResolver{})

		got, err := svc.GetOpenCart(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
