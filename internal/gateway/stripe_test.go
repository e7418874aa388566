package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowmart/storefront/internal/domain/payment"
)

func stripeSign(timestamp string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestStripeVerify(t *testing.T) {
	body := []byte(`{"type":"payment_intent.succeeded"}`)
	secret := "whsec_test"
	codec := StripeCodec{}

	header := "t=1710412200,v1=" + stripeSign("1710412200", body, secret)
	require.NoError(t, codec.Verify(body, header, secret))

	// Multiple v1 entries: any match passes.
	multi := "t=1710412200,v1=deadbeef,v1=" + stripeSign("1710412200", body, secret)
	require.NoError(t, codec.Verify(body, multi, secret))

	tampered := append([]byte(nil), body...)
	tampered[2] ^= 0x01
	assert.ErrorIs(t, codec.Verify(tampered, header, secret), ErrBadSignature)

	// The timestamp participates in the signed payload.
	shifted := "t=1710412201,v1=" + stripeSign("1710412200", body, secret)
	assert.ErrorIs(t, codec.Verify(body, shifted, secret), ErrBadSignature)

	assert.ErrorIs(t, codec.Verify(body, "v1=abc", secret), ErrBadSignature)
	assert.ErrorIs(t, codec.Verify(body, "t=1710412200", secret), ErrBadSignature)
	assert.ErrorIs(t, codec.Verify(body, "", secret), ErrBadSignature)
}

func TestStripeDecode_Succeeded(t *testing.T) {
	body := []byte(`{
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_ABC123",
				"amount": 57500,
				"currency": "inr",
				"metadata": {"order_id": "ORD-20250314-ABCD"},
				"last_payment_error": null
			}
		}
	}`)

	ev, err := StripeCodec{}.Decode(body)
	require.NoError(t, err)

	assert.Equal(t, payment.EventCaptured, ev.Type)
	assert.Equal(t, "stripe", ev.Provider)
	assert.Equal(t, "ORD-20250314-ABCD", ev.OrderDisplayID)
	assert.Equal(t, "pi_ABC123", ev.TransactionID)
	assert.True(t, decimal.RequireFromString("575").Equal(ev.Amount), "amount %s", ev.Amount)
	assert.Equal(t, "INR", ev.Currency)
}

func TestStripeDecode_Failed(t *testing.T) {
	body := []byte(`{
		"type": "payment_intent.payment_failed",
		"data": {
			"object": {
				"id": "pi_ABC123",
				"amount": 57500,
				"currency": "inr",
				"metadata": {"order_id": "ORD-20250314-ABCD"},
				"last_payment_error": {"message": "Your card was declined."}
			}
		}
	}`)

	ev, err := StripeCodec{}.Decode(body)
	require.NoError(t, err)

	assert.Equal(t, payment.EventFailed, ev.Type)
	assert.Equal(t, "Your card was declined.", ev.FailureReason)
	assert.Equal(t, "ORD-20250314-ABCD", ev.OrderDisplayID)
}

func TestStripeDecode_UnknownEventIgnored(t *testing.T) {
	ev, err := StripeCodec{}.Decode([]byte(`{"type":"charge.updated","data":{"object":{"id":"ch_1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, payment.EventIgnored, ev.Type)
}

func TestStripeDecode_Malformed(t *testing.T) {
	_, err := StripeCodec{}.Decode([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformed)
}
