// Package notify dispatches transactional emails in response to order
// state transitions. It never mutates order state and, when invoked as a
// side effect of a primary operation, never propagates delivery failures
// to that operation's caller.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/glowmart/storefront/internal/domain/customer"
	"github.com/glowmart/storefront/internal/domain/order"
	"github.com/glowmart/storefront/internal/domain/settings"
)

// welcomeWindow bounds how old a customer record may be for a welcome
// email to fire. Profile updates re-trigger the same event source; the
// recency check keeps those from re-sending the welcome.
const welcomeWindow = 5 * time.Minute

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// Dispatcher renders and sends transactional emails. The dispatcher does
// not deduplicate by message content; its callers gate repeat sends (the
// webhook idempotency gate for payment emails, the recency window for
// welcome emails).
type Dispatcher struct {
	mailer   Mailer
	settings settings.Provider
	lg       *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(mailer Mailer, provider settings.Provider, lg *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:   mailer,
		settings: provider,
		lg:       lg,
		now:      time.Now,
	}
}

// OrderCreated sends the order receipt. Side effect of order placement;
// failures are logged and swallowed.
func (d *Dispatcher) OrderCreated(ctx context.Context, o *order.Order) {
	d.sideEffect("order_created", o.DisplayID, d.sendOrderEmail(ctx, o,
		"order_created.tmpl", "Your order "+o.DisplayID))
}

// PaymentConfirmed sends the payment receipt and the order confirmation.
// Side effect of the payment webhook; failures are logged and swallowed.
// The two emails are independent and sent concurrently.
func (d *Dispatcher) PaymentConfirmed(ctx context.Context, o *order.Order) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.sendOrderEmail(ctx, o, "payment_confirmed.tmpl", "Payment received for "+o.DisplayID)
	})
	g.Go(func() error {
		return d.sendOrderEmail(ctx, o, "order_confirmed.tmpl", "Order "+o.DisplayID+" confirmed")
	})
	d.sideEffect("payment_confirmed", o.DisplayID, g.Wait())
}

// StatusChanged notifies the customer of a status transition. Side
// effect; failures are logged and swallowed.
func (d *Dispatcher) StatusChanged(ctx context.Context, o *order.Order) {
	d.sideEffect("status_changed", o.DisplayID, d.sendOrderEmail(ctx, o,
		"status_changed.tmpl", "Order "+o.DisplayID+" is now "+string(o.Status)))
}

// Welcome greets a newly registered customer. The email only fires when
// the account was created within the recency window of the triggering
// event. Side effect; failures are logged and swallowed.
func (d *Dispatcher) Welcome(ctx context.Context, c *customer.Customer) {
	if d.now().Sub(c.CreatedAt) > welcomeWindow {
		return
	}

	err := func() error {
		store, err := d.settings.Store(ctx)
		if err != nil {
			return errors.Wrap(err, "load store settings")
		}
		html, err := render("welcome.tmpl", welcomeEmail{
			StoreName:    store.Name,
			CustomerName: c.Name,
		})
		if err != nil {
			return err
		}
		return d.mailer.Send(ctx, &Message{
			To:      c.Email,
			Subject: "Welcome to " + store.Name,
			HTML:    html,
		})
	}()
	d.sideEffect("welcome", c.Email, err)
}

// ResendConfirmation re-sends the order confirmation. Unlike the trigger
// methods, email is the primary operation here, so failures propagate to
// the caller.
func (d *Dispatcher) ResendConfirmation(ctx context.Context, o *order.Order) error {
	return d.sendOrderEmail(ctx, o, "order_confirmed.tmpl", "Order "+o.DisplayID+" confirmed")
}

func (d *Dispatcher) sendOrderEmail(ctx context.Context, o *order.Order, tmpl, subject string) error {
	store, err := d.settings.Store(ctx)
	if err != nil {
		return errors.Wrap(err, "load store settings")
	}

	rows, err := renderItemRows(o.Items, store.CurrencySymbol)
	if err != nil {
		return err
	}

	html, err := render(tmpl, orderEmail{
		StoreName:      store.Name,
		OrderID:        o.DisplayID,
		CustomerName:   o.Customer.Name,
		Status:         string(o.Status),
		CurrencySymbol: store.CurrencySymbol,
		Subtotal:       o.Subtotal,
		Tax:            o.Tax,
		Shipping:       o.Shipping,
		Total:          o.Total,
		PaymentMethod:  string(o.Gateway),
		TransactionID:  o.PaymentDetails.TransactionID,
		ItemRows:       rows,
	})
	if err != nil {
		return err
	}

	return d.mailer.Send(ctx, &Message{
		To:      o.Customer.Email,
		Subject: subject,
		HTML:    html,
	})
}

// sideEffect logs a delivery failure without letting it reach the
// triggering operation.
func (d *Dispatcher) sideEffect(event, ref string, err error) {
	if err != nil {
		d.lg.Warn("email dispatch failed",
			zap.String("event", event),
			zap.String("ref", ref),
			zap.Error(err),
		)
	}
}
