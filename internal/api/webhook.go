package api

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/glowmart/storefront/internal/domain/order"
	"github.com/glowmart/storefront/internal/domain/payment"
)

// maxWebhookBody bounds webhook payload size. Gateway events are a few
// KB; anything near the limit is hostile.
const maxWebhookBody = 1 << 20

type webhookAck struct {
	Status string `json:"status"`
}

// handleWebhook processes an asynchronous payment-provider callback.
// Every step is a hard gate: signature verification over the raw body,
// envelope decoding, order resolution, then the idempotent state
// transition. Any rejection responds without mutating state; the
// provider retries on non-2xx.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())
	provider := r.PathValue("provider")

	codec, ok := h.codecs[provider]
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown provider")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unreadable body")
		return
	}

	cfg, err := h.settings.Payment(r.Context(), provider)
	if err != nil {
		writeInternalError(w, r, errors.Wrapf(err, "load %s settings", provider))
		return
	}

	// The signature is the endpoint's sole authentication; there is no
	// other caller credential. The response does not reveal which part of
	// the check failed.
	sig := r.Header.Get(codec.SignatureHeader())
	if err := codec.Verify(body, sig, cfg.WebhookSecret); err != nil {
		lg.Warn("webhook signature rejected", zap.String("provider", provider))
		writeError(w, r, http.StatusBadRequest, "invalid signature")
		return
	}

	ev, err := codec.Decode(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed payload")
		return
	}

	outcome, err := h.reconciler.Apply(r.Context(), ev)
	switch {
	case errors.Is(err, payment.ErrNoOrderRef):
		// A payment not originated by this system.
		writeError(w, r, http.StatusBadRequest, "no order reference")
		return
	case errors.Is(err, order.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "order not found")
		return
	case err != nil:
		writeInternalError(w, r, errors.Wrap(err, "apply webhook event"))
		return
	}

	lg.Info("webhook processed",
		zap.String("provider", provider),
		zap.String("order", ev.OrderDisplayID),
		zap.Int("outcome", int(outcome)),
	)
	writeJSON(w, r, http.StatusOK, webhookAck{Status: "ok"})
}
