package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/glowmart/storefront/internal/domain/product"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped,
		StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further business-driven transition is
// expected from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded || s == StatusCompleted
}

// PaymentStatus is the payment state of an order, driven by the gateway.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Settled reports whether s has left its initial value. A settled payment
// status acts as the idempotency gate for webhook redelivery: once an
// order is settled, no webhook event may transition it again.
func (s PaymentStatus) Settled() bool {
	return s != PaymentPending && s != PaymentProcessing
}

// Gateway identifies the payment method chosen at checkout.
type Gateway string

const (
	GatewayCOD      Gateway = "cod"
	GatewayRazorpay Gateway = "razorpay"
	GatewayStripe   Gateway = "stripe"
)

// Valid reports whether g is a supported gateway.
func (g Gateway) Valid() bool {
	return g == GatewayCOD || g == GatewayRazorpay || g == GatewayStripe
}

// LineItem is one purchased product line. Title, price and image are
// snapshots taken at order time so the order stays historically accurate
// if the product is later edited or deleted.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Image     string          `json:"image,omitempty"`
}

// CustomerInfo is the shipping contact snapshot embedded in the order.
type CustomerInfo struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
}

// PaymentDetails carries gateway-specific transaction metadata. Amount is
// in major currency units regardless of what the gateway reports.
type PaymentDetails struct {
	GatewayOrderID string          `json:"gateway_order_id,omitempty"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	Amount         decimal.Decimal `json:"amount,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	Method         string          `json:"method,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	RefundID       string          `json:"refund_id,omitempty"`
}

// Order is a placed customer order. ID is the store-assigned primary key;
// DisplayID is the human-readable identifier shown to customers and
// round-tripped through payment gateways.
type Order struct {
	ID             string
	DisplayID      string
	CustomerID     string
	Items          []LineItem
	Customer       CustomerInfo
	Status         Status
	PaymentStatus  PaymentStatus
	Gateway        Gateway
	PaymentDetails PaymentDetails
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Shipping       decimal.Decimal
	Total          decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository defines persistence operations for orders outside the
// checkout transaction.
type Repository interface {
	GetByDisplayID(ctx context.Context, displayID string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	// Update persists the mutable fields of an existing order: status,
	// payment status, payment details and the update timestamp.
	Update(ctx context.Context, o *Order) error
}

// CheckoutStore runs fn as one atomic unit against the backing store.
// Everything fn does (stock reads, the order insert, stock decrements)
// commits together or not at all, isolated from concurrent checkouts
// touching the same products.
type CheckoutStore interface {
	Run(ctx context.Context, fn func(tx CheckoutTx) error) error
}

// CheckoutTx is the operation set available inside a checkout transaction.
type CheckoutTx interface {
	// ProductForUpdate reads a product with its stock row locked until the
	// transaction ends, so a concurrent checkout for the same product
	// blocks until this one commits or aborts.
	ProductForUpdate(ctx context.Context, id string) (*product.Product, error)
	CreateOrder(ctx context.Context, o *Order) error
	SetStock(ctx context.Context, productID string, stock int) error
}
