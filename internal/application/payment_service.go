package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/droppit-app/service-booking/internal/domain"
	bookingDomain "github.com/droppit-app/service-booking/internal/domain/booking"
	paymentDomain "github.com/droppit-app/service-booking/internal/domain/payment"
	"github.com/droppit-app/service-booking/internal/stripe"
)

// StripeGateway is the slice of the Stripe client the payment service needs.
type StripeGateway interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
}

// CreateIntentRequest holds the package details priced before checkout.
type CreateIntentRequest struct {
	Carrier     string `json:"carrier" binding:"required"`
	ReturnType  string `json:"return_type" binding:"required"`
	PackageSize string `json:"package_size" binding:"required"`
}

// PaymentIntentDTO is returned to the client to drive Stripe confirmation.
type PaymentIntentDTO struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
}

// PaymentService prices bookings and tracks payment intent state.
type PaymentService struct {
	repo    paymentDomain.PaymentRepository
	pricing bookingDomain.PricingStrategy
	gateway StripeGateway
	logger  *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	repo paymentDomain.PaymentRepository,
	pricing bookingDomain.PricingStrategy,
	gateway StripeGateway,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		repo:    repo,
		pricing: pricing,
		gateway: gateway,
		logger:  logger,
	}
}

// CreateIntent prices the package and creates a Stripe payment intent for the
// acting customer, recording a pending payment row.
func (s *PaymentService) CreateIntent(ctx context.Context, actor Actor, req CreateIntentRequest) (*PaymentIntentDTO, error) {
	priceCents, err := s.pricing.Calculate(bookingDomain.PricingParams{
		Size:       bookingDomain.PackageSize(req.PackageSize),
		Carrier:    bookingDomain.Carrier(req.Carrier),
		ReturnType: bookingDomain.ReturnType(req.ReturnType),
	})
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("pricing error: %v", err))
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, priceCents, domain.CurrencyUSD, map[string]string{
		"customer_id":  actor.ID.String(),
		"package_size": req.PackageSize,
		"carrier":      req.Carrier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	pmt, err := paymentDomain.NewPayment(intent.ID, priceCents, domain.CurrencyUSD)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, pmt); err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.logger.Info("payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount_cents", priceCents),
	)

	return &PaymentIntentDTO{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     priceCents,
		Currency:        domain.CurrencyUSD,
	}, nil
}

// VerifySucceeded checks with Stripe that the intent has succeeded and that
// the captured amount covers the booking price. Any other intent state is a
// validation failure, so no booking is ever written against an unpaid intent.
func (s *PaymentService) VerifySucceeded(ctx context.Context, paymentIntentID string, amountCents int64, currency string) error {
	intent, err := s.gateway.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to verify payment intent: %w", err)
	}
	if intent.Status != stripe.StatusSucceeded {
		return domain.NewValidationError(fmt.Sprintf("payment has not succeeded (status: %s)", intent.Status))
	}
	if intent.Amount < amountCents {
		return domain.NewValidationError("paid amount does not cover the booking price")
	}
	return nil
}

// AttachBooking links a payment row to the booking it funded and marks it
// succeeded.
func (s *PaymentService) AttachBooking(ctx context.Context, paymentIntentID string, bookingID uuid.UUID) error {
	pmt, err := s.repo.FindByIntentID(ctx, paymentIntentID)
	if err != nil {
		return err
	}
	if err := pmt.AttachBooking(bookingID); err != nil {
		return err
	}
	if err := pmt.MarkSucceeded(); err != nil {
		return err
	}
	return s.repo.Update(ctx, pmt)
}

// MarkSucceeded records a successful payment reported by Stripe.
func (s *PaymentService) MarkSucceeded(ctx context.Context, paymentIntentID string) error {
	pmt, err := s.repo.FindByIntentID(ctx, paymentIntentID)
	if err != nil {
		return err
	}
	if err := pmt.MarkSucceeded(); err != nil {
		return err
	}
	return s.repo.Update(ctx, pmt)
}

// MarkRefunded records a refund reported by Stripe.
func (s *PaymentService) MarkRefunded(ctx context.Context, paymentIntentID string) error {
	pmt, err := s.repo.FindByIntentID(ctx, paymentIntentID)
	if err != nil {
		return err
	}
	if err := pmt.MarkRefunded(); err != nil {
		return err
	}
	return s.repo.Update(ctx, pmt)
}
