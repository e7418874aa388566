// Package settings exposes store configuration kept in the settings store.
// Values are resolved at call time on every invocation so that rotated
// credentials (gateway keys, SMTP passwords) take effect without a restart.
package settings

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when a requested settings group has not
// been set up by an administrator.
var ErrNotConfigured = errors.New("settings not configured")

// Payment holds the credentials for one payment gateway.
type Payment struct {
	Gateway       string `json:"gateway"`
	KeyID         string `json:"key_id"`
	KeySecret     string `json:"key_secret"`
	WebhookSecret string `json:"webhook_secret"`
	Enabled       bool   `json:"enabled"`
}

// Email holds the SMTP relay credentials and sender identity.
type Email struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
	Enabled  bool   `json:"enabled"`
}

// Store holds display and pricing configuration used at checkout.
type Store struct {
	Name           string          `json:"name"`
	CurrencyCode   string          `json:"currency_code"`
	CurrencySymbol string          `json:"currency_symbol"`
	TaxPercent     decimal.Decimal `json:"tax_percent"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
}

// Provider resolves settings groups. Implementations must not cache
// across invocations; every call re-reads the backing store.
type Provider interface {
	Payment(ctx context.Context, gateway string) (*Payment, error)
	Email(ctx context.Context) (*Email, error)
	Store(ctx context.Context) (*Store, error)
}
