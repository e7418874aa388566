package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/guonaihong/gout"
	"github.com/shopspring/decimal"

	"github.com/glowmart/storefront/internal/domain/order"
	"github.com/glowmart/storefront/internal/domain/payment"
	"github.com/glowmart/storefront/internal/domain/settings"
)

const stripeBaseURL = "https://api.stripe.com/v1"

var _ order.GatewayClient = (*StripeClient)(nil)

// StripeClient talks to the Stripe PaymentIntents and Refunds APIs.
type StripeClient struct {
	settings settings.Provider
	baseURL  string
}

// NewStripeClient creates a StripeClient.
func NewStripeClient(provider settings.Provider) *StripeClient {
	return &StripeClient{settings: provider, baseURL: stripeBaseURL}
}

// CreatePayment creates a PaymentIntent for o with the display id in the
// metadata so the webhook can resolve the order later.
func (c *StripeClient) CreatePayment(ctx context.Context, o *order.Order) (*order.GatewayCheckout, error) {
	cfg, err := c.settings.Payment(ctx, string(order.GatewayStripe))
	if err != nil {
		return nil, errors.Wrap(err, "load stripe settings")
	}
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	var (
		rsp struct {
			ID           string `json:"id"`
			ClientSecret string `json:"client_secret"`
		}
		code int
	)
	err = gout.POST(c.baseURL+"/payment_intents").
		WithContext(ctx).
		SetHeader(gout.H{"Authorization": "Bearer " + cfg.KeySecret}).
		SetForm(gout.H{
			"amount":             o.Total.Mul(minorUnits).IntPart(),
			"currency":           strings.ToLower(o.PaymentDetails.Currency),
			"metadata[order_id]": o.DisplayID,
		}).
		BindJSON(&rsp).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "stripe create payment intent")
	}
	if code != http.StatusOK {
		return nil, errors.Errorf("stripe create payment intent: status %d", code)
	}

	return &order.GatewayCheckout{
		GatewayOrderID: rsp.ID,
		ClientSecret:   rsp.ClientSecret,
		KeyID:          cfg.KeyID,
	}, nil
}

// Refund issues a full refund against the original PaymentIntent.
func (c *StripeClient) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (string, error) {
	cfg, err := c.settings.Payment(ctx, string(order.GatewayStripe))
	if err != nil {
		return "", errors.Wrap(err, "load stripe settings")
	}

	var (
		rsp  struct{ ID string `json:"id"` }
		code int
	)
	err = gout.POST(c.baseURL+"/refunds").
		WithContext(ctx).
		SetHeader(gout.H{"Authorization": "Bearer " + cfg.KeySecret}).
		SetForm(gout.H{
			"payment_intent": transactionID,
			"amount":         amount.Mul(minorUnits).IntPart(),
		}).
		BindJSON(&rsp).
		Code(&code).
		Do()
	if err != nil {
		return "", errors.Wrap(err, "stripe refund")
	}
	if code != http.StatusOK {
		return "", errors.Errorf("stripe refund: status %d", code)
	}

	return rsp.ID, nil
}

// StripeCodec verifies and decodes Stripe webhook deliveries.
type StripeCodec struct{}

var _ WebhookCodec = StripeCodec{}

// SignatureHeader implements WebhookCodec.
func (StripeCodec) SignatureHeader() string { return "Stripe-Signature" }

// Verify checks the Stripe-Signature header: the signed payload is the
// timestamp joined to the raw body with a dot, and any v1 entry may
// match. Comparison is constant time per candidate.
func (StripeCodec) Verify(body []byte, signature, secret string) error {
	var (
		timestamp  string
		candidates []string
	)
	for _, part := range strings.Split(signature, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1 {
			return nil
		}
	}
	return ErrBadSignature
}

// Decode parses the Stripe event envelope. Only payment_intent.succeeded
// and payment_intent.payment_failed are meaningful; everything else maps
// to an ignored event.
func (StripeCodec) Decode(body []byte) (payment.Event, error) {
	ev := payment.Event{Provider: string(order.GatewayStripe)}

	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "type":
			name, err := d.Str()
			if err != nil {
				return err
			}
			switch name {
			case "payment_intent.succeeded":
				ev.Type = payment.EventCaptured
			case "payment_intent.payment_failed":
				ev.Type = payment.EventFailed
			default:
				ev.Type = payment.EventIgnored
			}
			return nil
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "object" {
					return d.Skip()
				}
				return decodeStripeIntent(d, &ev)
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return payment.Event{}, errors.Wrap(ErrMalformed, err.Error())
	}

	return ev, nil
}

func decodeStripeIntent(d *jx.Decoder, ev *payment.Event) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			ev.TransactionID, err = d.Str()
		case "amount":
			// Stripe reports minor units (cents).
			var n int64
			if n, err = d.Int64(); err == nil {
				ev.Amount = decimal.NewFromInt(n).Div(minorUnits)
			}
		case "currency":
			if ev.Currency, err = d.Str(); err == nil {
				ev.Currency = strings.ToUpper(ev.Currency)
			}
		case "metadata":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "order_id" {
					return d.Skip()
				}
				var err error
				ev.OrderDisplayID, err = d.Str()
				return err
			})
		case "last_payment_error":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "message" {
					return d.Skip()
				}
				var err error
				ev.FailureReason, err = d.Str()
				return err
			})
		default:
			return d.Skip()
		}
		return err
	})
}
