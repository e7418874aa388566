package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/guonaihong/gout"
	"github.com/shopspring/decimal"

	"github.com/glowmart/storefront/internal/domain/order"
	"github.com/glowmart/storefront/internal/domain/payment"
	"github.com/glowmart/storefront/internal/domain/settings"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

var minorUnits = decimal.NewFromInt(100)

var _ order.GatewayClient = (*RazorpayClient)(nil)

// RazorpayClient talks to the Razorpay Orders and Refunds APIs.
type RazorpayClient struct {
	settings settings.Provider
	baseURL  string
}

// NewRazorpayClient creates a RazorpayClient.
func NewRazorpayClient(provider settings.Provider) *RazorpayClient {
	return &RazorpayClient{settings: provider, baseURL: razorpayBaseURL}
}

// CreatePayment creates a Razorpay order for o. The display id travels in
// both the receipt and the notes so the capture webhook can resolve the
// order without a lookup table.
func (c *RazorpayClient) CreatePayment(ctx context.Context, o *order.Order) (*order.GatewayCheckout, error) {
	cfg, err := c.settings.Payment(ctx, string(order.GatewayRazorpay))
	if err != nil {
		return nil, errors.Wrap(err, "load razorpay settings")
	}
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	var (
		rsp  struct{ ID string `json:"id"` }
		code int
	)
	err = gout.POST(c.baseURL+"/orders").
		WithContext(ctx).
		SetHeader(gout.H{"Authorization": basicAuth(cfg.KeyID, cfg.KeySecret)}).
		SetJSON(gout.H{
			"amount":   o.Total.Mul(minorUnits).IntPart(),
			"currency": o.PaymentDetails.Currency,
			"receipt":  o.DisplayID,
			"notes":    gout.H{"order_id": o.DisplayID},
		}).
		BindJSON(&rsp).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "razorpay create order")
	}
	if code != http.StatusOK {
		return nil, errors.Errorf("razorpay create order: status %d", code)
	}

	return &order.GatewayCheckout{
		GatewayOrderID: rsp.ID,
		KeyID:          cfg.KeyID,
	}, nil
}

// Refund issues a full refund against the captured payment.
func (c *RazorpayClient) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (string, error) {
	cfg, err := c.settings.Payment(ctx, string(order.GatewayRazorpay))
	if err != nil {
		return "", errors.Wrap(err, "load razorpay settings")
	}

	var (
		rsp  struct{ ID string `json:"id"` }
		code int
	)
	err = gout.POST(c.baseURL+"/payments/"+transactionID+"/refund").
		WithContext(ctx).
		SetHeader(gout.H{"Authorization": basicAuth(cfg.KeyID, cfg.KeySecret)}).
		SetJSON(gout.H{"amount": amount.Mul(minorUnits).IntPart()}).
		BindJSON(&rsp).
		Code(&code).
		Do()
	if err != nil {
		return "", errors.Wrap(err, "razorpay refund")
	}
	if code != http.StatusOK {
		return "", errors.Errorf("razorpay refund: status %d", code)
	}

	return rsp.ID, nil
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// RazorpayCodec verifies and decodes Razorpay webhook deliveries.
type RazorpayCodec struct{}

var _ WebhookCodec = RazorpayCodec{}

// SignatureHeader implements WebhookCodec.
func (RazorpayCodec) SignatureHeader() string { return "X-Razorpay-Signature" }

// Verify recomputes the HMAC-SHA256 hex digest of the raw body and
// compares it against the header value in constant time.
func (RazorpayCodec) Verify(body []byte, signature, secret string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrBadSignature
	}
	return nil
}

// Decode parses the Razorpay event envelope. Only payment.captured and
// payment.failed are meaningful; everything else maps to an ignored
// event so future event types never cause an error response.
func (RazorpayCodec) Decode(body []byte) (payment.Event, error) {
	ev := payment.Event{Provider: string(order.GatewayRazorpay)}

	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "event":
			name, err := d.Str()
			if err != nil {
				return err
			}
			switch name {
			case "payment.captured":
				ev.Type = payment.EventCaptured
			case "payment.failed":
				ev.Type = payment.EventFailed
			default:
				ev.Type = payment.EventIgnored
			}
			return nil
		case "payload":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "payment" {
					return d.Skip()
				}
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "entity" {
						return d.Skip()
					}
					return decodeRazorpayEntity(d, &ev)
				})
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

func decodeRazorpayEntity(d *jx.Decoder, ev *payment.Event) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			ev.TransactionID, err = d.Str()
		case "amount":
			// Razorpay reports minor units (paise).
			var n int64
			if n, err = d.Int64(); err == nil {
				ev.Amount = decimal.NewFromInt(n).Div(minorUnits)
			}
		case "currency":
			ev.Currency, err = d.Str()
		case "method":
			ev.Method, err = d.Str()
		case "error_description":
			if d.Next() == jx.Null {
				return d.Null()
			}
			ev.FailureReason, err = d.Str()
		case "notes":
			// Razorpay serializes empty notes as [] instead of {}.
			if d.Next() != jx.Object {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "order_id" {
					return d.Skip()
				}
				var err error
				ev.OrderDisplayID, err = d.Str()
				return err
			})
		default:
			return d.Skip()
		}
		return err
	})
}
