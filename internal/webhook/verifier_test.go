package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
	"github.com/stretchr/testify/assert"
)

const testSecret = "sk_test_secret"

func sign(t *testing.T, body []byte) string {
	t.Helper()
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(testSecret)

	t.Run("valid payload", func(t *testing.T) {
		body := []byte(`{"data":{"reference":"R1","status":"success","email":"a@x.com","amount":500000}}`)
		n, err := v.Verify(body, sign(t, body))
		assert.NoError(t, err)
		assert.Equal(t, "R1", n.Reference)
		assert.Equal(t, "success", n.Status)
		assert.Equal(t, "a@x.com", n.Email)
		assert.Equal(t, int64(500000), n.Amount)
		assert.False(t, n.HasCardAuthorization())
	})

	t.Run("card authorization fields", func(t *testing.T) {
		body := []byte(`{"data":{"reference":"R2","status":"success","email":"a@x.com","authorizationCode":"AUTH_x","cardType":"visa","last4":"4081","expMonth":"12","expYear":"2030","bank":"Test Bank","reusable":true}}`)
		n, err := v.Verify(body, sign(t, body))
		assert.NoError(t, err)
		assert.True(t, n.HasCardAuthorization())
		assert.Equal(t, "AUTH_x", n.AuthorizationCode)
		assert.Equal(t, "visa", n.CardType)
		assert.Equal(t, "4081", n.Last4)
		assert.True(t, n.Reusable)
	})

	t.Run("signature mismatch", func(t *testing.T) {
		body := []byte(`{"data":{"reference":"R1","status":"success"}}`)
		n, err := v.Verify(body, "deadbeef")
		assert.ErrorIs(t, err, pkgerrors.ErrSignatureMismatch)
		assert.Nil(t, n)
	})

	t.Run("signature computed over raw bytes", func(t *testing.T) {
		// Same JSON value, different byte representation: the signature
		// of one must not validate the other.
		body := []byte(`{"data":{"reference":"R1","status":"success"}}`)
		reordered := []byte(`{"data":{"status":"success","reference":"R1"}}`)
		_, err := v.Verify(reordered, sign(t, body))
		assert.ErrorIs(t, err, pkgerrors.ErrSignatureMismatch)
	})

	t.Run("invalid json", func(t *testing.T) {
		body := []byte(`{not json`)
		_, err := v.Verify(body, sign(t, body))
		assert.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)
	})

	t.Run("missing data", func(t *testing.T) {
		body := []byte(`{"event":"charge.success"}`)
		_, err := v.Verify(body, sign(t, body))
		assert.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)
	})

	t.Run("missing reference", func(t *testing.T) {
		body := []byte(`{"data":{"status":"success","email":"a@x.com"}}`)
		_, err := v.Verify(body, sign(t, body))
		assert.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)
	})

	t.Run("missing status", func(t *testing.T) {
		body := []byte(`{"data":{"reference":"R1","email":"a@x.com"}}`)
		_, err := v.Verify(body, sign(t, body))
		assert.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)
	})
}
