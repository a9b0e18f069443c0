package payment

import (
	"fmt"
	"time"

	"github.com/droppit-app/service-booking/internal/domain"
	"github.com/google/uuid"
)

// Status represents the state of a payment record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusRefunded  Status = "refunded"
	StatusFailed    Status = "failed"
)

// IsValid returns true if the status is a recognized payment status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSucceeded, StatusRefunded, StatusFailed:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid payment status: %s", s)
	}
	return status, nil
}

// Payment is the aggregate root mirroring one payment intent at the payment
// processor. It is bookkeeping only: booking status never depends on it after
// creation.
type Payment struct {
	id              uuid.UUID
	paymentIntentID string
	bookingID       *uuid.UUID
	amountCents     int64
	currency        string
	status          Status
	createdAt       time.Time
	updatedAt       time.Time
}

// NewPayment creates a pending payment record for a freshly created intent.
func NewPayment(paymentIntentID string, amountCents int64, currency string) (*Payment, error) {
	if paymentIntentID == "" {
		return nil, domain.NewValidationError("payment intent ID is required")
	}
	if amountCents <= 0 {
		return nil, domain.NewValidationError("amount must be positive")
	}

	now := time.Now().UTC()
	return &Payment{
		id:              uuid.New(),
		paymentIntentID: paymentIntentID,
		amountCents:     amountCents,
		currency:        currency,
		status:          StatusPending,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds a Payment from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	paymentIntentID string,
	bookingID *uuid.UUID,
	amountCents int64,
	currency string,
	status Status,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:              id,
		paymentIntentID: paymentIntentID,
		bookingID:       bookingID,
		amountCents:     amountCents,
		currency:        currency,
		status:          status,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// ID returns the payment's unique identifier.
func (p *Payment) ID() uuid.UUID { return p.id }

// PaymentIntentID returns the processor-side intent identifier.
func (p *Payment) PaymentIntentID() string { return p.paymentIntentID }

// BookingID returns the funded booking's ID, or nil until one is created.
func (p *Payment) BookingID() *uuid.UUID { return p.bookingID }

// AmountCents returns the charged amount in cents.
func (p *Payment) AmountCents() int64 { return p.amountCents }

// Currency returns the currency code.
func (p *Payment) Currency() string { return p.currency }

// Status returns the current payment status.
func (p *Payment) Status() Status { return p.status }

// CreatedAt returns the creation timestamp.
func (p *Payment) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (p *Payment) UpdatedAt() time.Time { return p.updatedAt }

// AttachBooking links the payment to the booking it funded.
func (p *Payment) AttachBooking(bookingID uuid.UUID) error {
	if bookingID == uuid.Nil {
		return domain.NewValidationError("booking ID is required")
	}
	p.bookingID = &bookingID
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkSucceeded records processor confirmation. Idempotent.
func (p *Payment) MarkSucceeded() error {
	if p.status == StatusSucceeded {
		return nil
	}
	if p.status != StatusPending {
		return domain.NewConflictError(fmt.Sprintf("payment is %s, cannot mark succeeded", p.status))
	}
	p.status = StatusSucceeded
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkRefunded records a processor-side refund. Idempotent.
func (p *Payment) MarkRefunded() error {
	if p.status == StatusRefunded {
		return nil
	}
	if p.status != StatusSucceeded {
		return domain.NewConflictError(fmt.Sprintf("payment is %s, cannot mark refunded", p.status))
	}
	p.status = StatusRefunded
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records a terminal processor failure.
func (p *Payment) MarkFailed() error {
	if p.status == StatusFailed {
		return nil
	}
	if p.status != StatusPending {
		return domain.NewConflictError(fmt.Sprintf("payment is %s, cannot mark failed", p.status))
	}
	p.status = StatusFailed
	p.updatedAt = time.Now().UTC()
	return nil
}
