package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no customer matches the lookup.
var ErrNotFound = errors.New("customer not found")

// Customer mirrors an account record from the hosted auth provider. The
// order core only reads it: orders link to a customer by a best-effort
// email lookup, and the welcome notification checks CreatedAt recency.
type Customer struct {
	ID        string
	Email     string
	Name      string
	Phone     string
	CreatedAt time.Time
}

// Repository defines read operations over the customer directory.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
}
