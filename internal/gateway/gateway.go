// Package gateway integrates payment providers: REST clients for payment
// creation and refunds, and webhook codecs for signature verification and
// event decoding.
package gateway

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/glowmart/storefront/internal/domain/order"
	"github.com/glowmart/storefront/internal/domain/payment"
	"github.com/glowmart/storefront/internal/domain/settings"
)

var (
	// ErrBadSignature is returned on any signature mismatch. The message
	// deliberately does not reveal which part of the check failed.
	ErrBadSignature = errors.New("signature verification failed")
	// ErrMalformed is returned when a webhook body cannot be decoded.
	ErrMalformed = errors.New("malformed event payload")
	// ErrDisabled is returned when the gateway is not enabled in settings.
	ErrDisabled = errors.New("gateway disabled")
)

// WebhookCodec verifies and decodes one provider's webhook deliveries.
type WebhookCodec interface {
	// SignatureHeader is the HTTP header carrying the delivery signature.
	SignatureHeader() string
	// Verify checks the signature over the raw request body. It must use
	// constant-time comparison.
	Verify(body []byte, signature, secret string) error
	// Decode parses the provider envelope into a typed event. Unknown
	// event types decode to payment.EventIgnored, never an error.
	Decode(body []byte) (payment.Event, error)
}

// Codecs returns the webhook codec for each supported provider, keyed by
// the provider path segment of the webhook endpoint.
func Codecs() map[string]WebhookCodec {
	return map[string]WebhookCodec{
		"razorpay": RazorpayCodec{},
		"stripe":   StripeCodec{},
	}
}

// Resolver hands out gateway clients. Credentials are not captured at
// construction; clients resolve them from settings on every call so
// rotated keys take effect immediately.
type Resolver struct {
	settings settings.Provider
}

// NewResolver creates a Resolver backed by the given settings provider.
func NewResolver(provider settings.Provider) *Resolver {
	return &Resolver{settings: provider}
}

// Client returns the client for gw. Cash on delivery has no client; the
// order service never asks for one.
func (r *Resolver) Client(_ context.Context, gw order.Gateway) (order.GatewayClient, error) {
	switch gw {
	case order.GatewayRazorpay:
		return NewRazorpayClient(r.settings), nil
	case order.GatewayStripe:
		return NewStripeClient(r.settings), nil
	default:
		return nil, errors.Errorf("no gateway client for %q", gw)
	}
}
