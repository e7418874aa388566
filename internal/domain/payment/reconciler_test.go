package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowmart/storefront/internal/domain/order"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byDisplayID map[string]*order.Order
	updated     []*order.Order
	updateErr   error
}

func (m *mockOrderRepo) GetByDisplayID(_ context.Context, displayID string) (*order.Order, error) {
	o, ok := m.byDisplayID[displayID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, _ string) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *order.Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, o)
	m.byDisplayID[o.DisplayID] = o
	return nil
}

type mockNotifier struct {
	confirmed int
}

func (m *mockNotifier) PaymentConfirmed(_ context.Context, _ *order.Order) { m.confirmed++ }

// --- Helpers ---

func newAwaitingOrder(displayID string) *order.Order {
	return &order.Order{
		ID:            "ord-uuid-1",
		DisplayID:     displayID,
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentProcessing,
		Gateway:       order.GatewayRazorpay,
	}
}

func capturedEvent(displayID string) Event {
	return Event{
		Type:           EventCaptured,
		Provider:       "razorpay",
		OrderDisplayID: displayID,
		TransactionID:  "pay_123",
		Amount:         decimal.RequireFromString("575.00"),
		Currency:       "INR",
		Method:         "upi",
	}
}

// --- Tests ---

func TestApply_Captured(t *testing.T) {
	repo := &mockOrderRepo{byDisplayID: map[string]*order.Order{
		"ORD-20250314-ABCD": newAwaitingOrder("ORD-20250314-ABCD"),
	}}
	notifier := &mockNotifier{}
	r := NewReconciler(repo, notifier)

	outcome, err := r.Apply(context.Background(), capturedEvent("ORD-20250314-ABCD"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	require.Len(t, repo.updated, 1)
	o := repo.updated[0]
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, "pay_123", o.PaymentDetails.TransactionID)
	assert.Equal(t, "upi", o.PaymentDetails.Method)
	assert.True(t, decimal.RequireFromString("575.00").Equal(o.PaymentDetails.Amount))
	assert.Equal(t, 1, notifier.confirmed)
}

func TestApply_Redelivery(t *testing.T) {
	repo := &mockOrderRepo{byDisplayID: map[string]*order.Order{
		"ORD-20250314-ABCD": newAwaitingOrder("ORD-20250314-ABCD"),
	}}
	notifier := &mockNotifier{}
	r := NewReconciler(repo, notifier)

	ev := capturedEvent("ORD-20250314-ABCD")

	outcome, err := r.Apply(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	// The gateway redelivers the same event. The order must not be
	// touched again and the confirmation email must not repeat.
	outcome, err = r.Apply(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Len(t, repo.updated, 1)
	assert.Equal(t, 1, notifier.confirmed)
}

func TestApply_Failed(t *testing.T) {
	repo := &mockOrderRepo{byDisplayID: map[string]*order.Order{
		"ORD-20250314-ABCD": newAwaitingOrder("ORD-20250314-ABCD"),
	}}
	notifier := &mockNotifier{}
	r := NewReconciler(repo, notifier)

	outcome, err := r.Apply(context.Background(), Event{
		Type:           EventFailed,
		Provider:       "razorpay",
		OrderDisplayID: "ORD-20250314-ABCD",
		FailureReason:  "card declined",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	require.Len(t, repo.updated, 1)
	o := repo.updated[0]
	assert.Equal(t, order.PaymentFailed, o.PaymentStatus)
	assert.Equal(t, "card declined", o.PaymentDetails.FailureReason)
	// Fulfillment status stays pending so the customer can retry.
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Zero(t, notifier.confirmed)
}

func TestApply_FailureAfterCaptureIsDuplicate(t *testing.T) {
	repo := &mockOrderRepo{byDisplayID: map[string]*order.Order{
		"ORD-20250314-ABCD": newAwaitingOrder("ORD-20250314-ABCD"),
	}}
	r := NewReconciler(repo, &mockNotifier{})

	_, err := r.Apply(context.Background(), capturedEvent("ORD-20250314-ABCD"))
	require.NoError(t, err)

	outcome, err := r.Apply(context.Background(), Event{
		Type:           EventFailed,
		OrderDisplayID: "ORD-20250314-ABCD",
		FailureReason:  "late failure",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, order.PaymentPaid, repo.byDisplayID["ORD-20250314-ABCD"].PaymentStatus)
}

func TestApply_CancelledOrderNotResurrected(t *testing.T) {
	o := newAwaitingOrder("ORD-20250314-ABCD")
	o.Status = order.StatusCancelled
	repo := &mockOrderRepo{byDisplayID: map[string]*order.Order{o.DisplayID: o}}
	notifier := &mockNotifier{}
	r := NewReconciler(repo, notifier)

	outcome, err := r.Apply(context.Background(), capturedEvent("ORD-20250314-ABCD"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Empty(t, repo.updated)
	assert.Zero(t, notifier.confirmed)
}

func TestApply_IgnoredEvent(t *testing.T) {
	repo := &mockOrderRepo{byDisplayID: map[string]*order.Order{}}
	r := NewReconciler(repo, &mockNotifier{})

	outcome, err := r.Apply(context.Background(), Event{Type: EventIgnored, Provider: "stripe"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestApply_NoOrderRef(t *testing.T) {
	repo := &mockOrderRepo{byDisplayID: map[string]*order.Order{}}
	r := NewReconciler(repo, &mockNotifier{})

	_, err := r.Apply(context.Background(), Event{Type: EventCaptured})
	require.ErrorIs(t, err, ErrNoOrderRef)
}

func TestApply_OrderNotFound(t *testing.T) {
	repo := &mockOrderRepo{byDisplayID: map[string]*order.Order{}}
	r := NewReconciler(repo, &mockNotifier{})

	_, err := r.Apply(context.Background(), capturedEvent("ORD-20250314-ZZZZ"))
	require.ErrorIs(t, err, order.ErrNotFound)
}
