package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type OrderStatus string

const StatusCreated OrderStatus = "created"

func (os OrderStatus) String() string {
	return string(os)
}

// OrderItem is an immutable copy of a cart line. PriceCents carries the
// cart's snapshot verbatim, not the product price at checkout time.
type OrderItem struct {
	OrderID    uuid.UUID `json:"order_id"`
	ProductID  int64     `json:"product_id"`
	Qty        int       `json:"qty"`
	PriceCents int64     `json:"price_cents"`
}

type Order struct {
	ID         uuid.UUID   `json:"id"`
	BuyerID    int64       `json:"buyer_id"`
	CartID     uuid.UUID   `json:"cart_id"`
	AddressID  *int64      `json:"address_id,omitempty"`
	Status     OrderStatus `json:"status"`
	TotalCents int64       `json:"total_cents"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
}
