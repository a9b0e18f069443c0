package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/droppit-app/service-booking/internal/contracts"
	"github.com/droppit-app/service-booking/internal/domain"
	bookingDomain "github.com/droppit-app/service-booking/internal/domain/booking"
	"github.com/droppit-app/service-booking/internal/domain/user"
	"github.com/droppit-app/service-booking/internal/kafka"
)

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role user.Role
}

// PaymentVerifier confirms payment state before a booking is committed. A
// booking is only ever written after an explicit success signal.
type PaymentVerifier interface {
	VerifySucceeded(ctx context.Context, paymentIntentID string, amountCents int64, currency string) error
	AttachBooking(ctx context.Context, paymentIntentID string, bookingID uuid.UUID) error
}

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// CreateBookingRequest holds the data collected by the return wizard.
type CreateBookingRequest struct {
	Carrier         string                    `json:"carrier" binding:"required"`
	ReturnType      string                    `json:"return_type" binding:"required"`
	PackageSize     string                    `json:"package_size" binding:"required"`
	Dropoff         bookingDomain.DropoffSpec `json:"dropoff" binding:"required"`
	Pickup          bookingDomain.PickupSpec  `json:"pickup" binding:"required"`
	ReturnAssetRef  string                    `json:"return_asset_ref" binding:"required"`
	PaymentIntentID string                    `json:"payment_intent_id" binding:"required"`
}

// UpdateBookingRequest is the partial-update payload. Nil fields are left
// untouched.
type UpdateBookingRequest struct {
	Status              *string                   `json:"status"`
	DropoffInstructions *string                   `json:"dropoff_instructions"`
	Pickup              *bookingDomain.PickupSpec `json:"pickup"`
	PickupProofRef      *string                   `json:"pickup_proof_ref"`
	DropoffReceiptRef   *string                   `json:"dropoff_receipt_ref"`
	CancelNote          *string                   `json:"cancel_note"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                uuid.UUID                 `json:"id"`
	CustomerID        uuid.UUID                 `json:"customer_id"`
	CourierID         *uuid.UUID                `json:"courier_id,omitempty"`
	Status            string                    `json:"status"`
	Carrier           string                    `json:"carrier"`
	ReturnType        string                    `json:"return_type"`
	PackageSize       string                    `json:"package_size"`
	Dropoff           bookingDomain.DropoffSpec `json:"dropoff"`
	Pickup            bookingDomain.PickupSpec  `json:"pickup"`
	PriceTotalCents   int64                     `json:"price_total_cents"`
	Currency          string                    `json:"currency"`
	PaymentIntentID   string                    `json:"payment_intent_id"`
	ReturnAssetRef    string                    `json:"return_asset_ref"`
	PickupProofRef    string                    `json:"pickup_proof_ref,omitempty"`
	DropoffReceiptRef string                    `json:"dropoff_receipt_ref,omitempty"`
	CancelNote        string                    `json:"cancel_note,omitempty"`
	CanceledAt        *time.Time                `json:"canceled_at,omitempty"`
	Version           int64                     `json:"version"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo     bookingDomain.BookingRepository
	pricing  bookingDomain.PricingStrategy
	payments PaymentVerifier
	producer EventPublisher
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	pricing bookingDomain.PricingStrategy,
	payments PaymentVerifier,
	producer EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:     repo,
		pricing:  pricing,
		payments: payments,
		producer: producer,
		logger:   logger,
	}
}

// CreateBooking creates a new booking for the acting customer. The payment
// intent must already be in the succeeded state; nothing is written otherwise.
func (s *BookingService) CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*BookingDTO, error) {
	priceCents, err := s.pricing.Calculate(bookingDomain.PricingParams{
		Size:       bookingDomain.PackageSize(req.PackageSize),
		Carrier:    bookingDomain.Carrier(req.Carrier),
		ReturnType: bookingDomain.ReturnType(req.ReturnType),
	})
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("pricing error: %v", err))
	}

	if err := s.payments.VerifySucceeded(ctx, req.PaymentIntentID, priceCents, domain.CurrencyUSD); err != nil {
		return nil, err
	}

	returnAsset, err := bookingDomain.CapturedArtifact(req.ReturnAssetRef)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		actor.ID,
		bookingDomain.Carrier(req.Carrier),
		bookingDomain.ReturnType(req.ReturnType),
		bookingDomain.PackageSize(req.PackageSize),
		req.Dropoff,
		req.Pickup,
		priceCents,
		domain.CurrencyUSD,
		returnAsset,
		req.PaymentIntentID,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	if err := s.payments.AttachBooking(ctx, req.PaymentIntentID, bk.ID()); err != nil {
		s.logger.Error("failed to link payment to booking",
			zap.String("booking_id", bk.ID().String()),
			zap.String("payment_intent_id", req.PaymentIntentID),
			zap.Error(err),
		)
	}

	s.publishEvent(ctx, contracts.TopicBookingEvents, contracts.EventTypeBookingCreated, bk.ID().String(), contracts.BookingCreatedEvent{
		BookingID:       bk.ID().String(),
		CustomerID:      bk.CustomerID().String(),
		Carrier:         string(bk.Carrier()),
		ReturnType:      string(bk.ReturnType()),
		PackageSize:     string(bk.Size()),
		PriceTotalCents: bk.PriceTotalCents(),
		Currency:        bk.Currency(),
		PaymentIntentID: bk.PaymentIntentID(),
		CreatedAt:       bk.CreatedAt(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking, applying role-scoped visibility.
// Bookings outside the actor's scope read as not found.
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.VisibleTo(actor.ID, actor.Role) {
		return nil, domain.NewNotFoundError("booking", bookingID.String())
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings returns the bookings visible to the actor, partitioned into
// active jobs or history, newest-first.
func (s *BookingService) ListBookings(ctx context.Context, actor Actor, partition bookingDomain.Partition, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.ListVisibleTo(ctx, actor.ID, actor.Role, partition, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// UpdateBooking applies a partial update under the mutation-authorization
// rules. Checks run in order and short-circuit on the first failure:
// existence, visibility, role restrictions on the status field, the
// completion gate, transition legality, then the courier-assignment
// requirement. Only then is anything merged and committed.
func (s *BookingService) UpdateBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, req UpdateBookingRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.VisibleTo(actor.ID, actor.Role) {
		return nil, domain.NewForbiddenError("you do not have access to this booking")
	}

	previousStatus := bk.Status()

	var nextStatus *bookingDomain.Status
	if req.Status != nil {
		parsed, err := bookingDomain.ParseStatus(*req.Status)
		if err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		nextStatus = &parsed
	}

	// Customers may only ever request cancellation; pickup and delivery
	// progression is reserved for the courier so proof-of-custody cannot
	// be self-reported.
	if actor.Role == user.RoleCustomer && nextStatus != nil && *nextStatus != bookingDomain.StatusCanceled {
		return nil, domain.NewForbiddenError("customers may only cancel a booking")
	}

	if nextStatus != nil && *nextStatus == bookingDomain.StatusCompleted && previousStatus != bookingDomain.StatusCompleted {
		if actor.Role != user.RoleAdmin && !bk.IsAssignedTo(actor.ID) {
			return nil, domain.NewForbiddenError("only the assigned courier may complete this booking")
		}
		if missing := bk.MissingProofs(); len(missing) > 0 {
			return nil, domain.NewIncompleteArtifactsError(missing...)
		}
	}

	if nextStatus != nil && !bookingDomain.CanTransition(previousStatus, *nextStatus, actor.Role) {
		return nil, domain.NewInvalidTransitionError(string(previousStatus), string(*nextStatus))
	}

	// The pipeline statuses imply a courier on record. Assignment only
	// happens through Claim, which sets the courier and the status as one
	// mutation; the generic path must not smuggle an unclaimed booking
	// past it.
	if nextStatus != nil && actor.Role != user.RoleAdmin && nextStatus.RequiresCourier() && bk.CourierID() == nil {
		return nil, domain.NewForbiddenError("booking has no assigned courier; claim it instead of setting the status directly")
	}

	// All checks passed; merge the proposed changes.
	if req.Pickup != nil {
		if err := bk.SetPickupDetails(req.Pickup.Name, req.Pickup.Phone, req.Pickup.Address); err != nil {
			return nil, err
		}
	}
	if req.DropoffInstructions != nil {
		bk.SetDropoffInstructions(*req.DropoffInstructions)
	}
	if req.PickupProofRef != nil {
		proof, err := bookingDomain.CapturedArtifact(*req.PickupProofRef)
		if err != nil {
			return nil, err
		}
		if err := bk.AttachPickupProof(proof); err != nil {
			return nil, err
		}
	}
	if req.DropoffReceiptRef != nil {
		receipt, err := bookingDomain.CapturedArtifact(*req.DropoffReceiptRef)
		if err != nil {
			return nil, err
		}
		if err := bk.AttachDropoffReceipt(receipt); err != nil {
			return nil, err
		}
	}
	if req.CancelNote != nil {
		bk.SetCancelNote(*req.CancelNote)
	}
	if nextStatus != nil {
		if err := bk.TransitionTo(*nextStatus, actor.Role); err != nil {
			return nil, err
		}
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	if nextStatus != nil && *nextStatus != previousStatus {
		s.publishStatusChanged(ctx, actor, bk, previousStatus)
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// ClaimBooking assigns the acting courier to an unclaimed job. Assignment
// and the move to courier_assigned commit as one mutation.
func (s *BookingService) ClaimBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BookingDTO, error) {
	if actor.Role != user.RoleCourier && actor.Role != user.RoleAdmin {
		return nil, domain.NewForbiddenError("only couriers may claim bookings")
	}

	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// Claim enforces its own rules: already-claimed jobs conflict, and only
	// a booked job can be taken from the pool.
	if err := bk.Claim(actor.ID); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, contracts.TopicBookingEvents, contracts.EventTypeBookingClaimed, bk.ID().String(), contracts.BookingClaimedEvent{
		BookingID: bk.ID().String(),
		CourierID: actor.ID.String(),
		ClaimedAt: bk.UpdatedAt(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// CapturePickupProof records the pickup-proof photo and advances the booking
// to picked_up in the same mutation.
func (s *BookingService) CapturePickupProof(ctx context.Context, actor Actor, bookingID uuid.UUID, proofRef string) (*BookingDTO, error) {
	status := string(bookingDomain.StatusPickedUp)
	return s.UpdateBooking(ctx, actor, bookingID, UpdateBookingRequest{
		Status:         &status,
		PickupProofRef: &proofRef,
	})
}

// CaptureDropoffReceipt records the drop-off receipt photo and advances the
// booking to at_dropoff in the same mutation.
func (s *BookingService) CaptureDropoffReceipt(ctx context.Context, actor Actor, bookingID uuid.UUID, receiptRef string) (*BookingDTO, error) {
	status := string(bookingDomain.StatusAtDropoff)
	return s.UpdateBooking(ctx, actor, bookingID, UpdateBookingRequest{
		Status:            &status,
		DropoffReceiptRef: &receiptRef,
	})
}

// CompleteBooking finalizes a delivered booking. Both proof artifacts must be
// captured and the actor must be the assigned courier or an admin.
func (s *BookingService) CompleteBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BookingDTO, error) {
	status := string(bookingDomain.StatusCompleted)
	dto, err := s.UpdateBooking(ctx, actor, bookingID, UpdateBookingRequest{Status: &status})
	if err != nil {
		return nil, err
	}

	bk, err := s.repo.FindByID(ctx, bookingID)
	if err == nil {
		var courierID string
		if bk.CourierID() != nil {
			courierID = bk.CourierID().String()
		}
		s.publishEvent(ctx, contracts.TopicBookingEvents, contracts.EventTypeBookingCompleted, bk.ID().String(), contracts.BookingCompletedEvent{
			BookingID:         bk.ID().String(),
			CourierID:         courierID,
			PickupProofRef:    bk.PickupProof().Ref(),
			DropoffReceiptRef: bk.DropoffReceipt().Ref(),
			CompletedAt:       bk.UpdatedAt(),
		})
	}

	return dto, nil
}

// CancelBooking cancels a booking with an optional note.
func (s *BookingService) CancelBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, note string) (*BookingDTO, error) {
	status := string(bookingDomain.StatusCanceled)
	req := UpdateBookingRequest{Status: &status}
	if note != "" {
		req.CancelNote = &note
	}

	dto, err := s.UpdateBooking(ctx, actor, bookingID, req)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, contracts.TopicBookingEvents, contracts.EventTypeBookingCancelled, dto.ID.String(), contracts.BookingCancelledEvent{
		BookingID:   dto.ID.String(),
		CancelledBy: actor.ID.String(),
		CancelNote:  note,
		CancelledAt: dto.UpdatedAt,
	})

	return dto, nil
}

// --- Admin methods ---

// ResetBooking releases a booking back to the open pool: the courier is
// unassigned and the status returns to booked as one mutation. Admin only.
func (s *BookingService) ResetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BookingDTO, error) {
	if actor.Role != user.RoleAdmin {
		return nil, domain.NewForbiddenError("only admins may reset a booking")
	}

	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	previousStatus := bk.Status()
	if err := bk.Unassign(); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	if previousStatus != bk.Status() {
		s.publishStatusChanged(ctx, actor, bk, previousStatus)
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos, total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

func (s *BookingService) publishStatusChanged(ctx context.Context, actor Actor, bk *bookingDomain.Booking, previous bookingDomain.Status) {
	evt := contracts.BookingStatusChangedEvent{
		BookingID:      bk.ID().String(),
		PreviousStatus: string(previous),
		NewStatus:      string(bk.Status()),
		ChangedBy:      actor.ID.String(),
		ChangedByRole:  string(actor.Role),
		ChangedAt:      bk.UpdatedAt(),
	}
	s.publishEvent(ctx, contracts.TopicBookingEvents, contracts.EventTypeBookingStatusChanged, bk.ID().String(), evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(contracts.EventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, topic, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:                bk.ID(),
		CustomerID:        bk.CustomerID(),
		CourierID:         bk.CourierID(),
		Status:            string(bk.Status()),
		Carrier:           string(bk.Carrier()),
		ReturnType:        string(bk.ReturnType()),
		PackageSize:       string(bk.Size()),
		Dropoff:           bk.Dropoff(),
		Pickup:            bk.Pickup(),
		PriceTotalCents:   bk.PriceTotalCents(),
		Currency:          bk.Currency(),
		PaymentIntentID:   bk.PaymentIntentID(),
		ReturnAssetRef:    bk.ReturnAsset().Ref(),
		PickupProofRef:    bk.PickupProof().Ref(),
		DropoffReceiptRef: bk.DropoffReceipt().Ref(),
		CancelNote:        bk.CancelNote(),
		CanceledAt:        bk.CanceledAt(),
		Version:           bk.Version(),
		CreatedAt:         bk.CreatedAt(),
		UpdatedAt:         bk.UpdatedAt(),
	}
}
