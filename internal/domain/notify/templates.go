package notify

import (
	"embed"
	"html/template"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/glowmart/storefront/internal/domain/order"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// orderEmail is the data merged into order-related templates. Every field
// is escaped by html/template on substitution except ItemRows, which is
// whitelisted as pre-rendered HTML: it is produced by an escaping
// sub-template, never from raw user input.
type orderEmail struct {
	StoreName      string
	OrderID        string
	CustomerName   string
	Status         string
	CurrencySymbol string
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Shipping       decimal.Decimal
	Total          decimal.Decimal
	PaymentMethod  string
	TransactionID  string
	ItemRows       template.HTML
}

type welcomeEmail struct {
	StoreName    string
	CustomerName string
}

// render executes the named template into a string.
func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", errors.Wrapf(err, "render %s", name)
	}
	return sb.String(), nil
}

// renderItemRows pre-renders the line-item table rows. User-controlled
// fields (product titles) pass through the escaping sub-template before
// the result is marked safe for inclusion.
func renderItemRows(items []order.LineItem, currencySymbol string) (template.HTML, error) {
	var sb strings.Builder
	for _, item := range items {
		err := templates.ExecuteTemplate(&sb, "item_row.tmpl", struct {
			order.LineItem
			CurrencySymbol string
		}{item, currencySymbol})
		if err != nil {
			return "", errors.Wrap(err, "render item row")
		}
	}
	return template.HTML(sb.String()), nil
}
