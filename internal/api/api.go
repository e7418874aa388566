// Package api exposes the storefront HTTP surface: catalog reads, order
// placement, payment webhooks and the admin order operations.
package api

import (
	"context"
	"net/http"

	"github.com/glowmart/storefront/internal/domain/notify"
	"github.com/glowmart/storefront/internal/domain/order"
	"github.com/glowmart/storefront/internal/domain/payment"
	"github.com/glowmart/storefront/internal/domain/product"
	"github.com/glowmart/storefront/internal/domain/settings"
	"github.com/glowmart/storefront/internal/gateway"
)

// APIKeyInfo holds the identity and permission data for a validated admin
// API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// APIKeyRepository provides lookup of admin API keys by their peppered
// HMAC-SHA256 hash.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, image paths are returned as stored.
	ImageBaseURL string
	// APIKeyPepper is the HMAC key for admin API key hashing.
	APIKeyPepper []byte
}

// Handler serves the storefront API, delegating business logic to the
// injected domain services.
type Handler struct {
	products     product.Repository
	orders       *order.Service
	reconciler   *payment.Reconciler
	dispatcher   *notify.Dispatcher
	codecs       map[string]gateway.WebhookCodec
	settings     settings.Provider
	apikeys      APIKeyRepository
	imageBaseURL string
	pepper       []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	orders *order.Service,
	reconciler *payment.Reconciler,
	dispatcher *notify.Dispatcher,
	codecs map[string]gateway.WebhookCodec,
	provider settings.Provider,
	apikeys APIKeyRepository,
) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		reconciler:   reconciler,
		dispatcher:   dispatcher,
		codecs:       codecs,
		settings:     provider,
		apikeys:      apikeys,
		imageBaseURL: cfg.ImageBaseURL,
		pepper:       cfg.APIKeyPepper,
	}
}

// Register mounts all API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)

	mux.HandleFunc("POST /webhooks/{provider}", h.handleWebhook)

	mux.HandleFunc("POST /api/admin/orders/{id}/refund", h.requireAPIKey(h.refundOrder))
	mux.HandleFunc("POST /api/admin/orders/{id}/status", h.requireAPIKey(h.updateOrderStatus))
	mux.HandleFunc("POST /api/admin/orders/{id}/resend-confirmation", h.requireAPIKey(h.resendConfirmation))
	mux.HandleFunc("GET /api/admin/customers/{id}/orders", h.requireAPIKey(h.listCustomerOrders))
}
