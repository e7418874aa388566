package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowmart/storefront/internal/domain/order"
	"github.com/glowmart/storefront/internal/domain/product"
)

const (
	productForUpdateSQL = `SELECT id, title, description, price, sale_price, stock, images, variants
		FROM products WHERE id = $1 FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders (id, display_id, customer_id, items, customer,
			status, payment_status, payment_gateway, payment_details,
			subtotal, tax, shipping, total, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	setStockSQL = `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`
)

var _ order.CheckoutStore = (*Checkout)(nil)

// Checkout implements order.CheckoutStore on a PostgreSQL transaction.
// The FOR UPDATE row locks taken by ProductForUpdate serialize concurrent
// checkouts touching the same products: the second transaction blocks on
// the lock and then observes the already-decremented stock.
type Checkout struct {
	pool *pgxpool.Pool
}

// NewCheckout returns a Checkout that uses the given pool.
func NewCheckout(pool *pgxpool.Pool) *Checkout {
	return &Checkout{pool: pool}
}

// Run executes fn inside a transaction. Any error from fn rolls the
// transaction back, leaving zero residue.
func (c *Checkout) Run(ctx context.Context, fn func(tx order.CheckoutTx) error) error {
	return pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		return fn(&checkoutTx{tx: tx})
	})
}

type checkoutTx struct {
	tx pgx.Tx
}

func (t *checkoutTx) ProductForUpdate(ctx context.Context, id string) (*product.Product, error) {
	rows, err := t.tx.Query(ctx, productForUpdateSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "locking product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "locking product %q", id)
	}
	return &p, nil
}

func (t *checkoutTx) CreateOrder(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshaling items")
	}
	cust, err := json.Marshal(o.Customer)
	if err != nil {
		return errors.Wrap(err, "marshaling customer")
	}
	details, err := json.Marshal(o.PaymentDetails)
	if err != nil {
		return errors.Wrap(err, "marshaling payment details")
	}

	_, err = t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.DisplayID, o.CustomerID, items, cust,
		o.Status, o.PaymentStatus, o.Gateway, details,
		o.Subtotal, o.Tax, o.Shipping, o.Total, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "creating order %q", o.DisplayID)
	}
	return nil
}

func (t *checkoutTx) SetStock(ctx context.Context, productID string, stock int) error {
	if _, err := t.tx.Exec(ctx, setStockSQL, productID, stock); err != nil {
		return errors.Wrapf(err, "setting stock for %q", productID)
	}
	return nil
}
