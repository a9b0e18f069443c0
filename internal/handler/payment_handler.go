package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/droppit-app/service-booking/internal/application"
	"github.com/droppit-app/service-booking/internal/auth"
	"github.com/droppit-app/service-booking/internal/contracts"
	"github.com/droppit-app/service-booking/internal/domain/user"
	"github.com/droppit-app/service-booking/internal/kafka"
	"github.com/droppit-app/service-booking/internal/middleware"
	"github.com/droppit-app/service-booking/internal/response"
	"github.com/droppit-app/service-booking/internal/stripe"
)

// WebhookVerifier authenticates incoming Stripe webhook requests.
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, header string) (*stripe.WebhookEvent, error)
}

// PaymentHandler handles HTTP requests for payment intents and webhooks.
// Verified webhook events are relayed to the payment topic; the consumer
// reconciles payment records asynchronously.
type PaymentHandler struct {
	service  *application.PaymentService
	verifier WebhookVerifier
	producer application.EventPublisher
	logger   *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(
	service *application.PaymentService,
	verifier WebhookVerifier,
	producer application.EventPublisher,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		verifier: verifier,
		producer: producer,
		logger:   logger,
	}
}

// RegisterRoutes registers all payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	payments := r.Group("/api/v1/payments")
	{
		payments.POST("/intent", authMW, middleware.RequireRole(user.RoleCustomer), h.CreateIntent)
		payments.POST("/webhook", h.Webhook)
	}
}

// CreateIntent handles POST /api/v1/payments/intent.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateIntent(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Webhook handles POST /api/v1/payments/webhook. The raw body is needed for
// signature verification, so this route must not use the JSON binder.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.BadRequest(c, "failed to read request body")
		return
	}

	event, err := h.verifier.VerifyWebhookSignature(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		response.Error(c, err)
		return
	}

	switch event.Type {
	case stripe.EventPaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			response.BadRequest(c, "malformed event object")
			return
		}
		h.relay(c, contracts.EventTypePaymentSucceeded, intent.ID, contracts.PaymentSucceededEvent{
			PaymentIntentID: intent.ID,
			AmountCents:     intent.Amount,
			Currency:        intent.Currency,
			OccurredAt:      time.Now().UTC(),
		})

	case stripe.EventChargeRefunded:
		var charge struct {
			PaymentIntent  string `json:"payment_intent"`
			AmountRefunded int64  `json:"amount_refunded"`
			Currency       string `json:"currency"`
		}
		if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
			response.BadRequest(c, "malformed event object")
			return
		}
		h.relay(c, contracts.EventTypePaymentRefunded, charge.PaymentIntent, contracts.PaymentRefundedEvent{
			PaymentIntentID: charge.PaymentIntent,
			AmountCents:     charge.AmountRefunded,
			Currency:        charge.Currency,
			OccurredAt:      time.Now().UTC(),
		})

	default:
		h.logger.Debug("ignoring webhook event", zap.String("type", event.Type))
	}

	// Stripe only needs a 2xx acknowledgement.
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *PaymentHandler) relay(c *gin.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(contracts.EventSource, eventType, data)
	if err != nil {
		h.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := h.producer.PublishEvent(c.Request.Context(), contracts.TopicPaymentEvents, key, cloudEvent); err != nil {
		h.logger.Error("failed to relay payment event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
