package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glowmart/storefront/internal/domain/customer"
	"github.com/glowmart/storefront/internal/domain/order"
	"github.com/glowmart/storefront/internal/domain/settings"
)

// --- Mock implementations ---

type mockMailer struct {
	sent []*Message
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg *Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// syncMailer guards sent against the concurrent sends in PaymentConfirmed.
type syncMailer struct {
	mockMailer
	mu sync.Mutex
}

func (m *syncMailer) Send(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mockMailer.Send(ctx, msg)
}

type mockSettings struct {
	store *settings.Store
}

func (m *mockSettings) Payment(_ context.Context, _ string) (*settings.Payment, error) {
	return nil, settings.ErrNotConfigured
}

func (m *mockSettings) Email(_ context.Context) (*settings.Email, error) {
	return nil, settings.ErrNotConfigured
}

func (m *mockSettings) Store(_ context.Context) (*settings.Store, error) {
	return m.store, nil
}

// --- Helpers ---

func newTestDispatcher(mailer Mailer) *Dispatcher {
	return NewDispatcher(mailer, &mockSettings{store: &settings.Store{
		Name:           "Glow Mart",
		CurrencyCode:   "INR",
		CurrencySymbol: "₹",
	}}, zap.NewNop())
}

func testOrder() *order.Order {
	return &order.Order{
		DisplayID: "ORD-20250314-ABCD",
		Customer: order.CustomerInfo{
			Name:  "Asha Rao",
			Email: "asha@example.com",
		},
		Items: []order.LineItem{{
			ProductID: "p1",
			Title:     "Kettle",
			UnitPrice: decimal.RequireFromString("250.00"),
			Quantity:  2,
			Subtotal:  decimal.RequireFromString("500.00"),
		}},
		Status:   order.StatusPending,
		Gateway:  order.GatewayCOD,
		Subtotal: decimal.RequireFromString("500.00"),
		Tax:      decimal.RequireFromString("25.00"),
		Shipping: decimal.RequireFromString("50.00"),
		Total:    decimal.RequireFromString("575.00"),
	}
}

// --- Tests ---

func TestOrderCreated_SendsReceipt(t *testing.T) {
	mailer := &mockMailer{}
	d := newTestDispatcher(mailer)

	d.OrderCreated(context.Background(), testOrder())

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Your order ORD-20250314-ABCD", msg.Subject)
	assert.Contains(t, msg.HTML, "ORD-20250314-ABCD")
	assert.Contains(t, msg.HTML, "Kettle")
	assert.Contains(t, msg.HTML, "575.00")
}

func TestOrderCreated_SwallowsMailerError(t *testing.T) {
	mailer := &mockMailer{err: errors.New("smtp refused")}
	d := newTestDispatcher(mailer)

	// Must not panic or propagate; the order placement already succeeded.
	d.OrderCreated(context.Background(), testOrder())
	assert.Empty(t, mailer.sent)
}

func TestPaymentConfirmed_SendsBothEmails(t *testing.T) {
	mailer := &syncMailer{}
	d := newTestDispatcher(mailer)

	d.PaymentConfirmed(context.Background(), testOrder())

	require.Len(t, mailer.sent, 2)
	subjects := []string{mailer.sent[0].Subject, mailer.sent[1].Subject}
	assert.Contains(t, subjects, "Payment received for ORD-20250314-ABCD")
	assert.Contains(t, subjects, "Order ORD-20250314-ABCD confirmed")
}

func TestStatusChanged_MentionsNewStatus(t *testing.T) {
	mailer := &mockMailer{}
	d := newTestDispatcher(mailer)

	o := testOrder()
	o.Status = order.StatusShipped
	d.StatusChanged(context.Background(), o)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Order ORD-20250314-ABCD is now shipped", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].HTML, "shipped")
}

func TestWelcome_RecentCustomer(t *testing.T) {
	mailer := &mockMailer{}
	d := newTestDispatcher(mailer)
	now := time.Now()
	d.now = func() time.Time { return now }

	d.Welcome(context.Background(), &customer.Customer{
		Email:     "asha@example.com",
		Name:      "Asha Rao",
		CreatedAt: now.Add(-time.Minute),
	})

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Welcome to Glow Mart", mailer.sent[0].Subject)
}

func TestWelcome_OldCustomerSkipped(t *testing.T) {
	mailer := &mockMailer{}
	d := newTestDispatcher(mailer)
	now := time.Now()
	d.now = func() time.Time { return now }

	d.Welcome(context.Background(), &customer.Customer{
		Email:     "asha@example.com",
		Name:      "Asha Rao",
		CreatedAt: now.Add(-time.Hour),
	})

	assert.Empty(t, mailer.sent)
}

func TestResendConfirmation_PropagatesError(t *testing.T) {
	wantErr := errors.New("smtp refused")
	d := newTestDispatcher(&mockMailer{err: wantErr})

	err := d.ResendConfirmation(context.Background(), testOrder())
	require.ErrorIs(t, err, wantErr)
}

func TestOrderEmail_EscapesCustomerInput(t *testing.T) {
	mailer := &mockMailer{}
	d := newTestDispatcher(mailer)

	o := testOrder()
	o.Customer.Name = `<script>alert("x")</script>`
	o.Items[0].Title = `<img src=x onerror=alert(1)>`
	d.OrderCreated(context.Background(), o)

	require.Len(t, mailer.sent, 1)
	html := mailer.sent[0].HTML
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<img src=x")
	assert.Contains(t, html, "&lt;script&gt;")
}
