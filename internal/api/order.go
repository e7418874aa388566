package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/glowmart/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	Items    []cartItemRequest   `json:"items"`
	Customer customerInfoRequest `json:"customer"`
	Payment  string              `json:"paymentMethod"`
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type customerInfoRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Items         []lineItemResponse  `json:"items"`
	Customer      customerInfoRequest `json:"customer"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	Gateway       string              `json:"paymentGateway"`
	Subtotal      float64             `json:"subtotal"`
	Tax           float64             `json:"tax"`
	Shipping      float64             `json:"shipping"`
	Total         float64             `json:"total"`
	TransactionID string              `json:"transactionId,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`

	Checkout *checkoutResponse `json:"checkout,omitempty"`
}

type lineItemResponse struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
	Image     string  `json:"image,omitempty"`
}

type checkoutResponse struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	KeyID          string `json:"keyId,omitempty"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	items := make([]order.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CartItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	result, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Items: items,
		Customer: order.CustomerInfo{
			Name:       req.Customer.Name,
			Phone:      req.Customer.Phone,
			Email:      req.Customer.Email,
			Address:    req.Customer.Address,
			PostalCode: req.Customer.PostalCode,
		},
		Gateway: order.Gateway(req.Payment),
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	resp := toOrderResponse(result.Order)
	if result.Checkout != nil {
		resp.Checkout = &checkoutResponse{
			GatewayOrderID: result.Checkout.GatewayOrderID,
			ClientSecret:   result.Checkout.ClientSecret,
			KeyID:          result.Checkout.KeyID,
		}
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.CancelOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// writeOrderError maps domain errors onto the HTTP error envelope.
// Validation failures are 400, precondition failures are 422 (409 for
// state conflicts), unknown orders are 404.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missingField *order.MissingFieldError
		invalidQty   *order.InvalidQuantityError
		notFoundProd *order.ProductNotFoundError
		outOfStock   *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidGateway),
		errors.As(err, &missingField),
		errors.As(err, &invalidQty):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundProd), errors.As(err, &outOfStock):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, order.ErrAlreadyRefunded),
		errors.Is(err, order.ErrNoTransaction):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeInternalError(w, r, err)
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = lineItemResponse{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal.InexactFloat64(),
			Image:     item.Image,
		}
	}

	return orderResponse{
		ID:    o.DisplayID,
		Items: items,
		Customer: customerInfoRequest{
			Name:       o.Customer.Name,
			Phone:      o.Customer.Phone,
			Email:      o.Customer.Email,
			Address:    o.Customer.Address,
			PostalCode: o.Customer.PostalCode,
		},
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Gateway:       string(o.Gateway),
		Subtotal:      o.Subtotal.InexactFloat64(),
		Tax:           o.Tax.InexactFloat64(),
		Shipping:      o.Shipping.InexactFloat64(),
		Total:         o.Total.InexactFloat64(),
		TransactionID: o.PaymentDetails.TransactionID,
		CreatedAt:     o.CreatedAt,
	}
}
