package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowmart/storefront/internal/domain/order"
)

const (
	selectOrderSQL = `SELECT id, display_id, COALESCE(customer_id, ''), items, customer,
			status, payment_status, payment_gateway, payment_details,
			subtotal, tax, shipping, total, created_at, updated_at
		FROM orders`

	getOrderByDisplayIDSQL = selectOrderSQL + ` WHERE display_id = $1`

	listOrdersByCustomerSQL = selectOrderSQL + ` WHERE customer_id = $1 ORDER BY created_at DESC`

	updateOrderSQL = `UPDATE orders
		SET status = $2, payment_status = $3, payment_details = $4, updated_at = $5
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByDisplayID returns the order with the given display identifier.
func (r *OrderRepository) GetByDisplayID(ctx context.Context, displayID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByDisplayIDSQL, displayID)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", displayID)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", displayID)
	}
	return &o, nil
}

// ListByCustomer returns a customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing orders for %q", customerID)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Update persists the mutable fields of an existing order.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	details, err := json.Marshal(o.PaymentDetails)
	if err != nil {
		return errors.Wrap(err, "marshaling payment details")
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.PaymentStatus, details, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "updating order %q", o.DisplayID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o       order.Order
		items   []byte
		cust    []byte
		details []byte
	)
	err := row.Scan(
		&o.ID, &o.DisplayID, &o.CustomerID, &items, &cust,
		&o.Status, &o.PaymentStatus, &o.Gateway, &details,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, errors.Wrap(err, "decoding items")
	}
	if err := json.Unmarshal(cust, &o.Customer); err != nil {
		return o, errors.Wrap(err, "decoding customer")
	}
	if err := json.Unmarshal(details, &o.PaymentDetails); err != nil {
		return o, errors.Wrap(err, "decoding payment details")
	}
	return o, nil
}
