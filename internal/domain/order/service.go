package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/glowmart/storefront/internal/domain/customer"
	"github.com/glowmart/storefront/internal/domain/product"
	"github.com/glowmart/storefront/internal/domain/settings"
)

// Sentinel errors for order operations.
var (
	ErrEmptyItems      = errors.New("items required")
	ErrInvalidGateway  = errors.New("unsupported payment method")
	ErrNotCancellable  = errors.New("order can no longer be cancelled")
	ErrAlreadyRefunded = errors.New("order already refunded")
	ErrNoTransaction   = errors.New("order has no gateway transaction to refund")
)

// ProductNotFoundError indicates a cart line references a product that
// does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates the persisted stock cannot satisfy the
// requested quantity. Available is the stock observed inside the checkout
// transaction, so the caller can show the customer what is left.
type InsufficientStockError struct {
	ProductID string
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested",
		e.Title, e.Available, e.Requested)
}

// MissingFieldError indicates a required customer field was not supplied.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// GatewayCheckout is the provider-side payment handle returned to the
// storefront so it can open the gateway's payment flow.
type GatewayCheckout struct {
	GatewayOrderID string
	ClientSecret   string
	KeyID          string
}

// GatewayClient creates provider-side payment records and refunds. The
// order display id is embedded in the provider-visible metadata so the
// webhook can resolve the order later.
type GatewayClient interface {
	CreatePayment(ctx context.Context, o *Order) (*GatewayCheckout, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (string, error)
}

// GatewayResolver returns the client for a gateway, with credentials
// resolved at call time.
type GatewayResolver interface {
	Client(ctx context.Context, gw Gateway) (GatewayClient, error)
}

// Notifier fires transactional emails as side effects of order state
// transitions. Implementations log and swallow delivery failures; none of
// these calls may fail the primary operation.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order)
	Welcome(ctx context.Context, c *customer.Customer)
	StatusChanged(ctx context.Context, o *Order)
}

// CartItem is one requested line of a checkout.
type CartItem struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items    []CartItem
	Customer CustomerInfo
	Gateway  Gateway
}

// PlaceOrderResult holds the persisted order and, for gateway-processed
// payments, the provider checkout handle.
type PlaceOrderResult struct {
	Order    *Order
	Checkout *GatewayCheckout
}

// Service encapsulates order lifecycle business logic.
type Service struct {
	checkout  CheckoutStore
	orders    Repository
	customers customer.Repository
	settings  settings.Provider
	gateways  GatewayResolver
	notifier  Notifier
}

// NewService creates an order Service with the required dependencies.
func NewService(
	checkout CheckoutStore,
	orders Repository,
	customers customer.Repository,
	provider settings.Provider,
	gateways GatewayResolver,
	notifier Notifier,
) *Service {
	return &Service{
		checkout:  checkout,
		orders:    orders,
		customers: customers,
		settings:  provider,
		gateways:  gateways,
		notifier:  notifier,
	}
}

// PlaceOrder validates the cart, then atomically checks stock, creates
// the order with snapshotted prices, and decrements stock within one
// transaction. Any precondition failure aborts with zero side
// effects: stock writes happen only after every line has validated
// against the stock read inside the same transaction, so two concurrent
// checkouts for the last unit cannot both succeed.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if !req.Gateway.Valid() {
		return nil, ErrInvalidGateway
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}
	if err := validateCustomer(req.Customer); err != nil {
		return nil, err
	}

	store, err := s.settings.Store(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load store settings")
	}

	// Best-effort account linkage by email. A missing account is fine;
	// only the lookup itself failing is ignored too (the link is optional).
	var linked *customer.Customer
	if c, err := s.customers.FindByEmail(ctx, req.Customer.Email); err == nil {
		linked = c
	}

	o := s.buildOrder(req, store, linked)

	err = s.checkout.Run(ctx, func(tx CheckoutTx) error {
		// Read every product with its row locked, validating existence and
		// stock before any write.
		stocks := make([]int, len(req.Items))
		for i, item := range req.Items {
			p, err := tx.ProductForUpdate(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, product.ErrNotFound) {
					return &ProductNotFoundError{ProductID: item.ProductID}
				}
				return errors.Wrapf(err, "read product %s", item.ProductID)
			}
			if p.Stock < item.Quantity {
				return &InsufficientStockError{
					ProductID: p.ID,
					Title:     p.Title,
					Available: p.Stock,
					Requested: item.Quantity,
				}
			}
			stocks[i] = p.Stock

			// Snapshot title, price and image into the line item.
			o.Items[i].Title = p.Title
			o.Items[i].UnitPrice = p.EffectivePrice()
			o.Items[i].Subtotal = p.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity)))
			o.Items[i].Image = p.MainImage()
		}

		s.priceOrder(o, store)

		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		for i, item := range req.Items {
			newStock := max(0, stocks[i]-item.Quantity)
			if err := tx.SetStock(ctx, item.ProductID, newStock); err != nil {
				return errors.Wrapf(err, "decrement stock for %s", item.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &PlaceOrderResult{Order: o}

	// For gateway-processed payments, create the provider-side payment
	// record after the transaction commits. Holding stock row locks across
	// a network call is not acceptable; a gateway failure here leaves the
	// order awaiting payment and is reported to the caller.
	if o.Gateway != GatewayCOD {
		client, err := s.gateways.Client(ctx, o.Gateway)
		if err != nil {
			return nil, errors.Wrap(err, "resolve gateway")
		}
		checkout, err := client.CreatePayment(ctx, o)
		if err != nil {
			return nil, errors.Wrapf(err, "create %s payment", o.Gateway)
		}
		o.PaymentDetails.GatewayOrderID = checkout.GatewayOrderID
		o.UpdatedAt = time.Now()
		if err := s.orders.Update(ctx, o); err != nil {
			return nil, errors.Wrap(err, "record gateway order id")
		}
		result.Checkout = checkout
	}

	s.notifier.OrderCreated(ctx, o)
	if linked != nil {
		s.notifier.Welcome(ctx, linked)
	}

	return result, nil
}

// buildOrder constructs the order shell before the transaction fills in
// the per-line snapshots.
func (s *Service) buildOrder(req PlaceOrderRequest, store *settings.Store, linked *customer.Customer) *Order {
	now := time.Now()

	paymentStatus := PaymentProcessing
	if req.Gateway == GatewayCOD {
		paymentStatus = PaymentPending
	}

	items := make([]LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	o := &Order{
		ID:            uuid.New().String(),
		DisplayID:     GenerateDisplayID(now),
		Items:         items,
		Customer:      req.Customer,
		Status:        StatusPending,
		PaymentStatus: paymentStatus,
		Gateway:       req.Gateway,
		PaymentDetails: PaymentDetails{
			Currency: store.CurrencyCode,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if linked != nil {
		o.CustomerID = linked.ID
	}
	return o
}

// priceOrder computes the monetary breakdown once, at creation. Totals
// are never recomputed afterward.
func (s *Service) priceOrder(o *Order, store *settings.Store) {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Subtotal)
	}
	o.Subtotal = subtotal.Round(2)
	o.Tax = subtotal.Mul(store.TaxPercent).Div(decimal.NewFromInt(100)).Round(2)
	o.Shipping = store.ShippingFee.Round(2)
	o.Total = o.Subtotal.Add(o.Tax).Add(o.Shipping)
}

// GetOrder returns an order by its display id.
func (s *Service) GetOrder(ctx context.Context, displayID string) (*Order, error) {
	return s.orders.GetByDisplayID(ctx, displayID)
}

// CustomerOrders returns a customer's order history, newest first.
func (s *Service) CustomerOrders(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// CancelOrder cancels a customer's order while it is still pending.
// Stock is not restored: inventory reconciliation after cancellation is a
// manual process.
func (s *Service) CancelOrder(ctx context.Context, displayID string) (*Order, error) {
	o, err := s.orders.GetByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, ErrNotCancellable
	}

	o.Status = StatusCancelled
	o.UpdatedAt = time.Now()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "cancel order")
	}

	s.notifier.StatusChanged(ctx, o)
	return o, nil
}

// UpdateStatus applies an administrator status transition and notifies
// the customer.
func (s *Service) UpdateStatus(ctx context.Context, displayID string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, errors.Errorf("unknown status %q", status)
	}

	o, err := s.orders.GetByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}

	o.Status = status
	o.UpdatedAt = time.Now()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	s.notifier.StatusChanged(ctx, o)
	return o, nil
}

// Refund marks an order refunded. Gateway-processed orders are refunded
// through the provider using the original transaction id; cash-on-delivery
// orders are marked directly with no external call. Stock is not
// restored. The returned string is the refund identifier.
func (s *Service) Refund(ctx context.Context, displayID string) (string, error) {
	o, err := s.orders.GetByDisplayID(ctx, displayID)
	if err != nil {
		return "", err
	}
	if o.Status == StatusRefunded || o.PaymentStatus == PaymentRefunded {
		return "", ErrAlreadyRefunded
	}

	refundID := "cod-" + o.DisplayID
	if o.Gateway != GatewayCOD {
		if o.PaymentDetails.TransactionID == "" {
			return "", ErrNoTransaction
		}
		client, err := s.gateways.Client(ctx, o.Gateway)
		if err != nil {
			return "", errors.Wrap(err, "resolve gateway")
		}
		refundID, err = client.Refund(ctx, o.PaymentDetails.TransactionID, o.Total)
		if err != nil {
			return "", errors.Wrapf(err, "refund via %s", o.Gateway)
		}
	}

	o.Status = StatusRefunded
	o.PaymentStatus = PaymentRefunded
	o.PaymentDetails.RefundID = refundID
	o.UpdatedAt = time.Now()
	if err := s.orders.Update(ctx, o); err != nil {
		return "", errors.Wrap(err, "mark refunded")
	}

	s.notifier.StatusChanged(ctx, o)
	return refundID, nil
}

func validateCustomer(c CustomerInfo) error {
	switch {
	case c.Name == "":
		return &MissingFieldError{Field: "name"}
	case c.Phone == "":
		return &MissingFieldError{Field: "phone"}
	case c.Email == "":
		return &MissingFieldError{Field: "email"}
	case c.Address == "":
		return &MissingFieldError{Field: "address"}
	case c.PostalCode == "":
		return &MissingFieldError{Field: "postal code"}
	}
	return nil
}
