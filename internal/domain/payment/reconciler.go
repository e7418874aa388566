package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/glowmart/storefront/internal/domain/order"
)

// Outcome reports what applying an event did.
type Outcome uint8

const (
	// OutcomeApplied means the event transitioned the order.
	OutcomeApplied Outcome = iota
	// OutcomeDuplicate means the order was already settled and nothing
	// changed. Duplicate deliveries are acknowledged as success.
	OutcomeDuplicate
	// OutcomeIgnored means the event class is not acted on.
	OutcomeIgnored
)

// Notifier fires the post-capture emails. Implementations log and
// swallow delivery failures; the payment transition has already persisted
// and must not be rolled back because a mail relay was unreachable.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, o *order.Order)
}

// Reconciler applies gateway events to orders exactly once.
type Reconciler struct {
	orders   order.Repository
	notifier Notifier
}

// NewReconciler creates a Reconciler.
func NewReconciler(orders order.Repository, notifier Notifier) *Reconciler {
	return &Reconciler{orders: orders, notifier: notifier}
}

// Apply transitions the referenced order according to the event.
//
// Idempotency is inferred from the order's own state rather than a
// delivery ledger: any settled payment status short-circuits as a
// duplicate. The gate also treats cancelled and refunded orders as
// settled, which is stricter than gating on success values alone: a
// delayed capture can never resurrect a cancelled order into paid.
//
// Errors leave the order untouched; the gateway retries on a non-2xx
// response.
func (r *Reconciler) Apply(ctx context.Context, ev Event) (Outcome, error) {
	if ev.Type == EventIgnored {
		return OutcomeIgnored, nil
	}
	if ev.OrderDisplayID == "" {
		return 0, ErrNoOrderRef
	}

	o, err := r.orders.GetByDisplayID(ctx, ev.OrderDisplayID)
	if err != nil {
		return 0, err
	}

	if o.PaymentStatus.Settled() || o.Status == order.StatusCancelled || o.Status == order.StatusRefunded {
		return OutcomeDuplicate, nil
	}

	switch ev.Type {
	case EventCaptured:
		o.Status = order.StatusPaid
		o.PaymentStatus = order.PaymentPaid
		o.PaymentDetails.TransactionID = ev.TransactionID
		o.PaymentDetails.Amount = ev.Amount
		o.PaymentDetails.Currency = ev.Currency
		o.PaymentDetails.Method = ev.Method
	case EventFailed:
		// Order status is untouched, but the gate above treats failed as
		// settled: retrying requires a fresh order and payment intent.
		o.PaymentStatus = order.PaymentFailed
		o.PaymentDetails.FailureReason = ev.FailureReason
	default:
		return 0, errors.Errorf("unhandled event type %d", ev.Type)
	}
	o.UpdatedAt = time.Now()

	if err := r.orders.Update(ctx, o); err != nil {
		return 0, errors.Wrap(err, "update order")
	}

	// Only the first capture reaches this point; duplicates were gated
	// above, so the confirmation emails fire at most once.
	if ev.Type == EventCaptured {
		r.notifier.PaymentConfirmed(ctx, o)
	}

	return OutcomeApplied, nil
}
