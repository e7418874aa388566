// Package payment reconciles asynchronous payment-gateway events against
// order state.
package payment

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNoOrderRef is returned when an event carries no order reference,
// meaning the payment was not originated by this system.
var ErrNoOrderRef = errors.New("event carries no order reference")

// EventType classifies a gateway webhook event.
type EventType uint8

const (
	// EventIgnored covers every event class the system does not act on.
	// Unknown types decode to this and are acknowledged, never rejected:
	// repeated error responses would get the webhook disabled.
	EventIgnored EventType = iota
	// EventCaptured is a successful payment capture.
	EventCaptured
	// EventFailed is a failed payment attempt.
	EventFailed
)

// Event is the strongly-typed internal representation of a gateway
// webhook, decoded and validated at the boundary before any business
// logic runs.
type Event struct {
	Type     EventType
	Provider string
	// OrderDisplayID round-trips through the gateway's metadata field,
	// embedded at payment-creation time.
	OrderDisplayID string
	TransactionID  string
	// Amount is in major currency units; gateway minor units are
	// converted during decoding.
	Amount        decimal.Decimal
	Currency      string
	Method        string
	FailureReason string
}
