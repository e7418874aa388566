// Command seed-db loads an initial catalog, store settings and an admin
// API key into the database. Seed data is a gzipped JSON fixture so large
// catalogs stay small in the repo.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/glowmart/storefront/internal/storage/postgres"
)

type seedFile struct {
	Products []productJSON              `json:"products"`
	Settings map[string]json.RawMessage `json:"settings"`
}

type productJSON struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice,omitempty"`
	Stock       int              `json:"stock"`
	Images      []string         `json:"images"`
	Variants    json.RawMessage  `json:"variants,omitempty"`
}

func main() {
	var (
		databaseURL  string
		seedPath     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/storefront.json.gz", "path to gzipped seed JSON")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seed, err := readSeed(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}

	if err := seedProducts(ctx, pool, seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedSettings(ctx, pool, seed.Settings); err != nil {
		return errors.Wrap(err, "seed settings")
	}
	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

func readSeed(path string) (*seedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		r = gz
	}

	var seed seedFile
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, errors.Wrap(err, "decode seed JSON")
	}
	return &seed, nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	const upsert = `INSERT INTO products (id, title, description, price, sale_price, stock, images, variants)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, '{}'::jsonb))
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description,
			price = EXCLUDED.price, sale_price = EXCLUDED.sale_price,
			stock = EXCLUDED.stock, images = EXCLUDED.images,
			variants = EXCLUDED.variants, updated_at = now()`

	for _, p := range products {
		images, err := json.Marshal(p.Images)
		if err != nil {
			return errors.Wrapf(err, "marshal images for %q", p.ID)
		}
		var variants []byte
		if len(p.Variants) > 0 {
			variants = p.Variants
		}
		if _, err := pool.Exec(ctx, upsert,
			p.ID, p.Title, p.Description, p.Price, p.SalePrice, p.Stock, images, variants,
		); err != nil {
			return errors.Wrapf(err, "insert product %q", p.ID)
		}
	}

	slog.Info("seeded products", slog.Int("count", len(products)))
	return nil
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool, groups map[string]json.RawMessage) error {
	const upsert = `INSERT INTO settings (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	for name, value := range groups {
		if _, err := pool.Exec(ctx, upsert, name, []byte(value)); err != nil {
			return errors.Wrapf(err, "insert setting %q", name)
		}
	}

	slog.Info("seeded settings", slog.Int("count", len(groups)))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	const upsert = `INSERT INTO api_keys (id, key_hash, name, scopes)
		VALUES ($1, $2, 'seed-admin', '{admin}')
		ON CONFLICT (key_hash) DO NOTHING`

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsert, uuid.New().String(), hash); err != nil {
		return errors.Wrap(err, "insert api key")
	}

	slog.Info("seeded admin api key")
	return nil
}
