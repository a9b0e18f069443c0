package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("sk_test_123", "whsec_test")
	c.baseURL = srv.URL
	return c
}

func TestCreatePaymentIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "899", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "m", r.PostForm.Get("metadata[package_size]"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","client_secret":"pi_123_secret","status":"requires_payment_method","amount":899,"currency":"usd"}`)
	})

	intent, err := client.CreatePaymentIntent(context.Background(), 899, "USD", map[string]string{"package_size": "m"})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
	assert.Equal(t, StatusRequiresPaymentMethod, intent.Status)
}

func TestGetPaymentIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payment_intents/pi_123", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","status":"succeeded","amount":899,"currency":"usd"}`)
	})

	intent, err := client.GetPaymentIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, intent.Status)
	assert.Equal(t, int64(899), intent.Amount)
}

func TestGetPaymentIntent_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`)
	})

	_, err := client.GetPaymentIntent(context.Background(), "pi_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such payment_intent")
}

func signPayload(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	client := NewClient("sk_test_123", "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","status":"succeeded","amount":899,"currency":"usd"}}}`)
	ts := time.Now().Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_test", ts, payload))

	event, err := client.VerifyWebhookSignature(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventPaymentIntentSucceeded, event.Type)
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	client := NewClient("sk_test_123", "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	ts := time.Now().Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_other", ts, payload))

	_, err := client.VerifyWebhookSignature(payload, header)
	require.Error(t, err)
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	client := NewClient("sk_test_123", "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	ts := time.Now().Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_test", ts, payload))

	tampered := []byte(`{"id":"evt_1","type":"charge.refunded"}`)
	_, err := client.VerifyWebhookSignature(tampered, header)
	require.Error(t, err)
}

func TestVerifyWebhookSignature_StaleTimestamp(t *testing.T) {
	client := NewClient("sk_test_123", "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	ts := time.Now().Add(-10 * time.Minute).Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_test", ts, payload))

	_, err := client.VerifyWebhookSignature(payload, header)
	require.Error(t, err)
}

func TestVerifyWebhookSignature_MissingHeader(t *testing.T) {
	client := NewClient("sk_test_123", "whsec_test")

	_, err := client.VerifyWebhookSignature([]byte(`{}`), "")
	require.Error(t, err)
}
