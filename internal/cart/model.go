package cart

import (
	"time"

	"github.com/gofrs/uuid"
)

type CartStatus string

const (
	StatusOpen      CartStatus = "open"
	StatusConverted CartStatus = "converted"
)

func (cs CartStatus) String() string {
	return string(cs)
}

// CartItem is one line of an open cart. PriceCentsSnapshot is captured from
// the live product price at the moment of the first add and never refreshed,
// so checkout totals stay deterministic if catalog prices change later.
type CartItem struct {
	CartID             uuid.UUID `json:"cart_id"`
	ProductID          int64     `json:"product_id"`
	SKU                string    `json:"sku"`
	Name               string    `json:"name"`
	Qty                int       `json:"qty"`
	PriceCentsSnapshot int64     `json:"price_cents_snapshot"`
}

type Cart struct {
	ID        uuid.UUID  `json:"id"`
	BuyerID   int64      `json:"buyer_id"`
	Status    CartStatus `json:"status"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}
