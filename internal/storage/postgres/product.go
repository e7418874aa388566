package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glowmart/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, title, description, price, sale_price, stock, images, variants
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, title, description, price, sale_price, stock, images, variants
		FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %q", id)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		price    decimal.Decimal
		images   []byte
		variants []byte
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &price, &p.SalePrice, &p.Stock,
		&images, &variants,
	)
	if err != nil {
		return p, err
	}
	p.Price = price

	if err := json.Unmarshal(images, &p.Images); err != nil {
		return p, errors.Wrap(err, "decoding images")
	}
	if err := json.Unmarshal(variants, &p.Variants); err != nil {
		return p, errors.Wrap(err, "decoding variants")
	}
	return p, nil
}
