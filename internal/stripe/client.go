// Package stripe is a minimal client for the Stripe PaymentIntents API and
// webhook signature verification.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/droppit-app/service-booking/internal/domain"
)

const defaultBaseURL = "https://api.stripe.com/v1"

// Payment intent statuses returned by Stripe.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusProcessing            = "processing"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
)

// Webhook event types this service handles.
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventChargeRefunded         = "charge.refunded"
)

// signatureTolerance bounds how stale a webhook timestamp may be.
const signatureTolerance = 5 * time.Minute

// PaymentIntent is the subset of Stripe's payment intent object we consume.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// WebhookEvent is the envelope Stripe posts to the webhook endpoint.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Stripe REST API using a secret key.
type Client struct {
	httpClient    *http.Client
	secretKey     string
	webhookSecret string
	baseURL       string
}

// NewClient creates a Stripe client.
func NewClient(secretKey, webhookSecret string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       defaultBaseURL,
	}
}

// CreatePaymentIntent creates a payment intent for the given amount in the
// smallest currency unit. Metadata keys are attached verbatim.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var intent PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// GetPaymentIntent fetches a payment intent by id.
func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	if intentID == "" {
		return nil, domain.NewValidationError("payment intent id is required")
	}
	var intent PaymentIntent
	if err := c.do(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(intentID), nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)
		}
		return fmt.Errorf("stripe returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode stripe response: %w", err)
	}
	return nil
}

// VerifyWebhookSignature checks the Stripe-Signature header against the raw
// request payload and returns the parsed event on success.
func (c *Client) VerifyWebhookSignature(payload []byte, header string) (*WebhookEvent, error) {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return nil, err
	}

	if time.Since(time.Unix(timestamp, 0)) > signatureTolerance {
		return nil, domain.NewUnauthorizedError("webhook timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	valid := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, domain.NewUnauthorizedError("invalid webhook signature")
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.NewValidationError("malformed webhook payload")
	}
	return &event, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, domain.NewUnauthorizedError("missing webhook signature")
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, domain.NewUnauthorizedError("malformed webhook signature")
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, domain.NewUnauthorizedError("malformed webhook signature")
	}
	return timestamp, signatures, nil
}
