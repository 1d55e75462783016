package catalog

import "time"

type ProductStatus string

const (
	StatusActive   ProductStatus = "active"
	StatusInactive ProductStatus = "inactive"
)

func (ps ProductStatus) String() string {
	return string(ps)
}

type Product struct {
	ID          int64         `json:"id"`
	SKU         string        `json:"sku"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	PriceCents  int64         `json:"price_cents"`
	Stock       int           `json:"stock"`
	Status      ProductStatus `json:"status"`
	CategoryID  *int64        `json:"category_id,omitempty"`
	SellerID    int64         `json:"seller_id"`
	Images      []string      `json:"images"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListFilter narrows the active-product listing. Zero limit means no paging.
type ListFilter struct {
	Limit      int
	Offset     int
	CategoryID *int64
}
