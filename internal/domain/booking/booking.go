package booking

import (
	"time"

	"github.com/droppit-app/service-booking/internal/domain"
	"github.com/droppit-app/service-booking/internal/domain/user"
	"github.com/google/uuid"
)

// Booking is the aggregate root for the booking domain: one package handoff
// request and its lifecycle record. Bookings are never deleted; cancellation
// is a terminal status, not a removal.
type Booking struct {
	id         uuid.UUID
	customerID uuid.UUID
	courierID  *uuid.UUID
	status     Status

	carrier    Carrier
	returnType ReturnType
	size       PackageSize
	dropoff    DropoffSpec
	pickup     PickupSpec

	priceTotalCents int64
	currency        string
	paymentIntentID string

	returnAsset    Artifact
	pickupProof    Artifact
	dropoffReceipt Artifact

	cancelNote string
	canceledAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a new Booking aggregate with status=booked. The return
// asset (QR code or shipping label) is captured during the wizard, so it is
// required at creation; the two delivery proofs start out not captured.
func NewBooking(
	customerID uuid.UUID,
	carrier Carrier,
	returnType ReturnType,
	size PackageSize,
	dropoff DropoffSpec,
	pickup PickupSpec,
	priceTotalCents int64,
	currency string,
	returnAsset Artifact,
	paymentIntentID string,
) (*Booking, error) {
	if customerID == uuid.Nil {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if !carrier.IsValid() {
		return nil, domain.NewValidationError("invalid carrier: " + string(carrier))
	}
	if !returnType.IsValid() {
		return nil, domain.NewValidationError("invalid return type: " + string(returnType))
	}
	if !size.IsValid() {
		return nil, domain.NewValidationError("invalid package size: " + string(size))
	}
	if dropoff.Name == "" || dropoff.Address == "" {
		return nil, domain.NewValidationError("drop-off name and address are required")
	}
	if pickup.Name == "" || pickup.Phone == "" || pickup.Address == "" {
		return nil, domain.NewValidationError("pickup name, phone and address are required")
	}
	if priceTotalCents <= 0 {
		return nil, domain.NewValidationError("price must be positive")
	}
	if !returnAsset.Captured() {
		return nil, domain.NewValidationError("return QR code or shipping label is required")
	}

	now := time.Now().UTC()
	return &Booking{
		id:              uuid.New(),
		customerID:      customerID,
		status:          StatusBooked,
		carrier:         carrier,
		returnType:      returnType,
		size:            size,
		dropoff:         dropoff,
		pickup:          pickup,
		priceTotalCents: priceTotalCents,
		currency:        currency,
		paymentIntentID: paymentIntentID,
		returnAsset:     returnAsset,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	customerID uuid.UUID,
	courierID *uuid.UUID,
	status Status,
	carrier Carrier,
	returnType ReturnType,
	size PackageSize,
	dropoff DropoffSpec,
	pickup PickupSpec,
	priceTotalCents int64,
	currency string,
	paymentIntentID string,
	returnAsset, pickupProof, dropoffReceipt Artifact,
	cancelNote string,
	canceledAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		customerID:      customerID,
		courierID:       courierID,
		status:          status,
		carrier:         carrier,
		returnType:      returnType,
		size:            size,
		dropoff:         dropoff,
		pickup:          pickup,
		priceTotalCents: priceTotalCents,
		currency:        currency,
		paymentIntentID: paymentIntentID,
		returnAsset:     returnAsset,
		pickupProof:     pickupProof,
		dropoffReceipt:  dropoffReceipt,
		cancelNote:      cancelNote,
		canceledAt:      canceledAt,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// CustomerID returns the owning customer's user ID.
func (b *Booking) CustomerID() uuid.UUID { return b.customerID }

// CourierID returns the assigned courier's user ID, or nil if unclaimed.
func (b *Booking) CourierID() *uuid.UUID { return b.courierID }

// Status returns the current booking status.
func (b *Booking) Status() Status { return b.status }

// Carrier returns the shipping carrier.
func (b *Booking) Carrier() Carrier { return b.carrier }

// ReturnType returns how the return is identified at the counter.
func (b *Booking) ReturnType() ReturnType { return b.returnType }

// Size returns the declared package size.
func (b *Booking) Size() PackageSize { return b.size }

// Dropoff returns the drop-off specification.
func (b *Booking) Dropoff() DropoffSpec { return b.dropoff }

// Pickup returns the pickup specification.
func (b *Booking) Pickup() PickupSpec { return b.pickup }

// PriceTotalCents returns the total price in cents.
func (b *Booking) PriceTotalCents() int64 { return b.priceTotalCents }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// PaymentIntentID returns the reference of the payment that funded the booking.
func (b *Booking) PaymentIntentID() string { return b.paymentIntentID }

// ReturnAsset returns the QR code or shipping label artifact.
func (b *Booking) ReturnAsset() Artifact { return b.returnAsset }

// PickupProof returns the pickup-proof photo artifact.
func (b *Booking) PickupProof() Artifact { return b.pickupProof }

// DropoffReceipt returns the drop-off receipt photo artifact.
func (b *Booking) DropoffReceipt() Artifact { return b.dropoffReceipt }

// CancelNote returns the cancellation reason.
func (b *Booking) CancelNote() string { return b.cancelNote }

// CanceledAt returns the time the booking was canceled.
func (b *Booking) CanceledAt() *time.Time { return b.canceledAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// IsActive returns true while the booking has not reached a terminal status.
func (b *Booking) IsActive() bool {
	return !b.status.IsTerminal()
}

// --- Behavior ---

// Claim atomically assigns a courier to an unclaimed booking and moves it to
// courier_assigned. Assignment and status change are one mutation: there is
// never a state where the courier is set but the status is still booked, or
// the reverse.
func (b *Booking) Claim(courierID uuid.UUID) error {
	if courierID == uuid.Nil {
		return domain.NewValidationError("courier ID is required")
	}
	if b.courierID != nil {
		return domain.NewConflictError("booking has already been claimed")
	}
	if !b.status.CanTransitionTo(StatusCourierAssigned) {
		return domain.NewInvalidTransitionError(string(b.status), string(StatusCourierAssigned))
	}
	b.courierID = &courierID
	b.status = StatusCourierAssigned
	b.updatedAt = time.Now().UTC()
	return nil
}

// TransitionTo moves the booking to the next status if the change is legal
// for the acting role. Transitioning into canceled stamps the cancellation
// time. Returning to booked releases the courier with it, so a booking in
// the open pool never carries a stale assignment.
func (b *Booking) TransitionTo(next Status, role user.Role) error {
	if !CanTransition(b.status, next, role) {
		return domain.NewInvalidTransitionError(string(b.status), string(next))
	}
	now := time.Now().UTC()
	if next == StatusCanceled && b.status != StatusCanceled {
		b.canceledAt = &now
	}
	if next == StatusBooked {
		b.courierID = nil
	}
	b.status = next
	b.updatedAt = now
	return nil
}

// Unassign returns the booking to the open pool: the courier is cleared and
// the status drops back to booked in one mutation, mirroring Claim in
// reverse.
func (b *Booking) Unassign() error {
	if b.status.IsTerminal() {
		return domain.NewInvalidTransitionError(string(b.status), string(StatusBooked))
	}
	b.courierID = nil
	b.status = StatusBooked
	b.updatedAt = time.Now().UTC()
	return nil
}

// AttachPickupProof records the pickup-proof photo.
func (b *Booking) AttachPickupProof(a Artifact) error {
	if !a.Captured() {
		return domain.NewValidationError("pickup proof ref is required")
	}
	b.pickupProof = a
	b.updatedAt = time.Now().UTC()
	return nil
}

// AttachDropoffReceipt records the drop-off receipt photo.
func (b *Booking) AttachDropoffReceipt(a Artifact) error {
	if !a.Captured() {
		return domain.NewValidationError("drop-off receipt ref is required")
	}
	b.dropoffReceipt = a
	b.updatedAt = time.Now().UTC()
	return nil
}

// MissingProofs lists the delivery-proof artifacts that are not captured yet.
// An empty result means the completion gate's evidence requirement is met.
func (b *Booking) MissingProofs() []string {
	var missing []string
	if !b.pickupProof.Captured() {
		missing = append(missing, "pickup proof")
	}
	if !b.dropoffReceipt.Captured() {
		missing = append(missing, "drop-off receipt")
	}
	return missing
}

// IsAssignedTo returns true if the given courier is assigned to this booking.
func (b *Booking) IsAssignedTo(courierID uuid.UUID) bool {
	return b.courierID != nil && *b.courierID == courierID
}

// SetDropoffInstructions updates the drop-off instructions.
func (b *Booking) SetDropoffInstructions(instructions string) {
	b.dropoff.Instructions = instructions
	b.updatedAt = time.Now().UTC()
}

// SetPickupDetails updates the pickup contact details.
func (b *Booking) SetPickupDetails(name, phone, address string) error {
	if name == "" || phone == "" || address == "" {
		return domain.NewValidationError("pickup name, phone and address are required")
	}
	b.pickup = PickupSpec{Name: name, Phone: phone, Address: address}
	b.updatedAt = time.Now().UTC()
	return nil
}

// SetCancelNote records the cancellation reason.
func (b *Booking) SetCancelNote(note string) {
	b.cancelNote = note
	b.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

// VisibleTo decides whether a viewer may see this booking. Admins see
// everything; couriers see their own assignments plus the open pool of
// unclaimed jobs; customers see only their own bookings. Unrecognized roles
// see nothing.
func (b *Booking) VisibleTo(viewerID uuid.UUID, role user.Role) bool {
	switch role {
	case user.RoleAdmin:
		return true
	case user.RoleCourier:
		return b.IsAssignedTo(viewerID) || b.status == StatusBooked
	case user.RoleCustomer:
		return b.customerID == viewerID
	default:
		return false
	}
}
