package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/handler"
)

type mockCartService struct {
	addItemFunc     func(ctx context.Context, buyerID, productID int64, qty int) (uuid.UUID, error)
	getOpenCartFunc func(ctx context.Context, buyerID int64) (*cart.Cart, error)
	getCartFunc     func(ctx context.Context, cartID uuid.UUID) (*cart.Cart, error)
}

func (m *mockCartService) AddItem(ctx context.Context, buyerID, productID int64, qty int) (uuid.UUID, error) {
	return m.addItemFunc(ctx, buyerID, productID, qty)
}

func (m *mockCartService) GetOpenCart(ctx context.Context, buyerID int64) (*cart.Cart, error) {
	return m.getOpenCartFunc(ctx, buyerID)
}

func (m *mockCartService) GetCart(ctx context.Context, cartID uuid.UUID) (*cart.Cart, error) {
	return m.getCartFunc(ctx, cartID)
}

// serve runs the request through BuyerIDMiddleware the way the router does.
func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.BuyerIDMiddleware(h).ServeHTTP(rr, req)
	return rr
}

func TestCartHandler_AddItem(t *testing.T) {
	cartID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

	tests := []struct {
		name        string
		userHeader  string
		body        string
		addItemFunc func(ctx context.Context, buyerID, productID int64, qty int) (uuid.UUID, error)
		wantStatus  int
		wantBody    string
	}{
		{
			name:       "success",
			userHeader: "7",
			body:       `{"product_id": 42, "qty": 2}`,
			addItemFunc: func(ctx context.Context, buyerID, productID int64, qty int) (uuid.UUID, error) {
				assert.Equal(t, int64(7), buyerID)
				assert.Equal(t, int64(42), productID)
				assert.Equal(t, 2, qty)
				return cartID, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"cart_id":"550e8400-e29b-41d4-a716-446655440000"}`,
		},
		{
			name:       "missing_user_header",
			userHeader: "",
			body:       `{"product_id": 42, "qty": 2}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed_user_header",
			userHeader: "abc",
			body:       `{"product_id": 42, "qty": 2}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed_json",
			userHeader: "7",
			body:       `{"product_id": 42,`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown_field",
			userHeader: "7",
			body:       `{"product_id": 42, "qty": 2, "color": "red"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "zero_quantity",
			userHeader: "7",
			body:       `{"product_id": 42, "qty": 0}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "negative_quantity",
			userHeader: "7",
			body:       `{"product_id": 42, "qty": -1}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown_product",
			userHeader: "7",
			body:       `{"product_id": 42, "qty": 2}`,
			addItemFunc: func(ctx context.Context, buyerID, productID int64, qty int) (uuid.UUID, error) {
				return uuid.Nil, catalog.ErrProductNotFound
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "cart_no_longer_open",
			userHeader: "7",
			body:       `{"product_id": 42, "qty": 2}`,
			addItemFunc: func(ctx context.Context, buyerID, productID int64, qty int) (uuid.UUID, error) {
				return uuid.Nil, cart.ErrCartNotOpen
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCartService{addItemFunc: tt.addItemFunc}
			h := handler.NewCartHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(tt.body))
			if tt.userHeader != "" {
				req.Header.Set("X-User-ID", tt.userHeader)
			}

			rr := serve(h.AddItem, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestCartHandler_GetCart(t *testing.T) {
	cartID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

	t.Run("no_open_cart_returns_null_cart", func(t *testing.T) {
		svc := &mockCartService{
			getOpenCartFunc: func(ctx context.Context, buyerID int64) (*cart.Cart, error) {
				return nil, cart.ErrNoOpenCart
			},
		}
		h := handler.NewCartHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("X-User-ID", "7")
		rr := serve(h.GetCart, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"cart":null}`, rr.Body.String())
	})

	t.Run("returns_cart_with_lines", func(t *testing.T) {
		svc := &mockCartService{
			getOpenCartFunc: func(ctx context.Context, buyerID int64) (*cart.Cart, error) {
				return &cart.Cart{
					ID:      cartID,
					BuyerID: buyerID,
					Status:  cart.StatusOpen,
					Items: []cart.CartItem{
						{CartID: cartID, ProductID: 42, SKU: "SKU-42", Name: "Widget", Qty: 2, PriceCentsSnapshot: 500},
					},
				}, nil
			},
		}
		h := handler.NewCartHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("X-User-ID", "7")
		rr := serve(h.GetCart, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"price_cents_snapshot":500`)
		assert.Contains(t, rr.Body.String(), `"qty":2`)
	})

	t.Run("missing_user_header", func(t *testing.T) {
		h := handler.NewCartHandler(&mockCartService{})

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		rr := serve(h.GetCart, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
