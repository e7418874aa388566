package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/glowmart/storefront/internal/domain/product"
)

type productResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	SalePrice   *float64 `json:"salePrice,omitempty"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`

	Variants map[string][]variantOptionResponse `json:"variants,omitempty"`
}

type variantOptionResponse struct {
	Value string   `json:"value"`
	Price *float64 `json:"price,omitempty"`
	Image string   `json:"image,omitempty"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list products"))
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toProductResponse(p)
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "get product"))
		return
	}

	writeJSON(w, r, http.StatusOK, h.toProductResponse(*p))
}

// toProductResponse converts a domain product into the response shape.
// Image paths are prefixed with the configured imageBaseURL.
func (h *Handler) toProductResponse(p product.Product) productResponse {
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		images[i] = h.imageBaseURL + img
	}

	var variants map[string][]variantOptionResponse
	if len(p.Variants) > 0 {
		variants = make(map[string][]variantOptionResponse, len(p.Variants))
		for attr, options := range p.Variants {
			out := make([]variantOptionResponse, len(options))
			for i, opt := range options {
				out[i] = variantOptionResponse{
					Value: opt.Value,
					Price: toFloat(opt.Price),
					Image: opt.Image,
				}
				if opt.Image != "" {
					out[i].Image = h.imageBaseURL + opt.Image
				}
			}
			variants[attr] = out
		}
	}

	return productResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		SalePrice:   toFloat(p.SalePrice),
		Stock:       p.Stock,
		Images:      images,
		Variants:    variants,
	}
}

func toFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
