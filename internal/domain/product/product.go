package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	// SalePrice is the optional discounted price. Display logic assumes
	// SalePrice < Price when present; the schema does not enforce it.
	SalePrice *decimal.Decimal
	Stock     int
	Images    []string
	Variants  map[string][]VariantOption
}

// VariantOption is one selectable value for a configurable attribute
// (e.g. size "XL"), optionally overriding the product price or image.
type VariantOption struct {
	Value string           `json:"value"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Image string           `json:"image,omitempty"`
}

// EffectivePrice returns the sale price when one is set, the base price
// otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// MainImage returns the first image reference, or an empty string.
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Repository defines read operations for the product catalog. Stock is
// never written through this interface; the only stock mutation in the
// system happens inside the checkout transaction.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
