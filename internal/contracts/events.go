// Package contracts defines the Kafka topics and event payloads exchanged
// between the booking service and its consumers.
package contracts

import "time"

const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

const (
	EventTypeBookingCreated       = "booking.created"
	EventTypeBookingClaimed       = "booking.claimed"
	EventTypeBookingStatusChanged = "booking.status_changed"
	EventTypeBookingCompleted     = "booking.completed"
	EventTypeBookingCancelled     = "booking.cancelled"

	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentRefunded  = "payment.refunded"
)

// EventSource identifies this service as the producer of booking events.
const EventSource = "service-booking"

type BookingCreatedEvent struct {
	BookingID       string    `json:"booking_id"`
	CustomerID      string    `json:"customer_id"`
	Carrier         string    `json:"carrier"`
	ReturnType      string    `json:"return_type"`
	PackageSize     string    `json:"package_size"`
	PriceTotalCents int64     `json:"price_total_cents"`
	Currency        string    `json:"currency"`
	PaymentIntentID string    `json:"payment_intent_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type BookingClaimedEvent struct {
	BookingID string    `json:"booking_id"`
	CourierID string    `json:"courier_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

type BookingStatusChangedEvent struct {
	BookingID      string    `json:"booking_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	ChangedByRole  string    `json:"changed_by_role"`
	ChangedAt      time.Time `json:"changed_at"`
}

type BookingCompletedEvent struct {
	BookingID         string    `json:"booking_id"`
	CourierID         string    `json:"courier_id"`
	PickupProofRef    string    `json:"pickup_proof_ref"`
	DropoffReceiptRef string    `json:"dropoff_receipt_ref"`
	CompletedAt       time.Time `json:"completed_at"`
}

type BookingCancelledEvent struct {
	BookingID   string    `json:"booking_id"`
	CancelledBy string    `json:"cancelled_by"`
	CancelNote  string    `json:"cancel_note,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type PaymentSucceededEvent struct {
	PaymentIntentID string    `json:"payment_intent_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type PaymentRefundedEvent struct {
	PaymentIntentID string    `json:"payment_intent_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	OccurredAt      time.Time `json:"occurred_at"`
}
