package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/glowmart/storefront/internal/domain/order"
)

type refundResponse struct {
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	refundID, err := h.orders.Refund(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, refundResponse{
		RefundID: refundID,
		Status:   string(order.StatusRefunded),
	})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status := order.Status(req.Status)
	if !status.Valid() {
		writeError(w, r, http.StatusBadRequest, "unknown status")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// listCustomerOrders returns a customer's order history for support
// tooling.
func (h *Handler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.CustomerOrders(r.Context(), r.PathValue("id"))
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list customer orders"))
		return
	}

	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = toOrderResponse(&list[i])
	}
	writeJSON(w, r, http.StatusOK, out)
}

// resendConfirmation re-sends the order confirmation email. Here email
// delivery is the primary operation, so a failure is reported to the
// caller instead of being swallowed.
func (h *Handler) resendConfirmation(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	if err := h.dispatcher.ResendConfirmation(r.Context(), o); err != nil {
		writeInternalError(w, r, errors.Wrap(err, "resend confirmation"))
		return
	}
	writeJSON(w, r, http.StatusOK, webhookAck{Status: "ok"})
}
