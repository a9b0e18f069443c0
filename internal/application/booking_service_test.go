package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/droppit-app/service-booking/internal/domain"
	bookingDomain "github.com/droppit-app/service-booking/internal/domain/booking"
	"github.com/droppit-app/service-booking/internal/domain/user"
	"github.com/droppit-app/service-booking/internal/kafka"
)

// --- Fakes ---

type fakeBookingRepo struct {
	bookings map[uuid.UUID]*bookingDomain.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*bookingDomain.Booking)}
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	bk, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id.String())
	}
	return bk, nil
}

func (r *fakeBookingRepo) ListVisibleTo(_ context.Context, viewerID uuid.UUID, role user.Role, partition bookingDomain.Partition, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var visible []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if !bk.VisibleTo(viewerID, role) {
			continue
		}
		switch partition {
		case bookingDomain.PartitionActive:
			if !bk.IsActive() {
				continue
			}
		case bookingDomain.PartitionHistory:
			if bk.IsActive() {
				continue
			}
		}
		visible = append(visible, bk)
	}
	return visible, int64(len(visible)), nil
}

func (r *fakeBookingRepo) ListAll(_ context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var all []*bookingDomain.Booking
	for _, bk := range r.bookings {
		all = append(all, bk)
	}
	return all, int64(len(all)), nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *fakeBookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	r.bookings[bk.ID()] = bk
	return nil
}

func (r *fakeBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking) error {
	if _, ok := r.bookings[bk.ID()]; !ok {
		return domain.NewNotFoundError("booking", bk.ID().String())
	}
	r.bookings[bk.ID()] = bk
	return nil
}

type fakeVerifier struct {
	err      error
	attached map[string]uuid.UUID
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{attached: make(map[string]uuid.UUID)}
}

func (v *fakeVerifier) VerifySucceeded(_ context.Context, _ string, _ int64, _ string) error {
	return v.err
}

func (v *fakeVerifier) AttachBooking(_ context.Context, intentID string, bookingID uuid.UUID) error {
	v.attached[intentID] = bookingID
	return nil
}

type fakePublisher struct {
	events []kafka.CloudEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, _, _ string, event kafka.CloudEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) eventTypes() []string {
	var types []string
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// --- Setup ---

type serviceFixture struct {
	service   *BookingService
	repo      *fakeBookingRepo
	verifier  *fakeVerifier
	publisher *fakePublisher
}

func newServiceFixture() *serviceFixture {
	repo := newFakeBookingRepo()
	verifier := newFakeVerifier()
	publisher := &fakePublisher{}
	service := NewBookingService(repo, bookingDomain.NewStandardPricingStrategy(), verifier, publisher, zap.NewNop())
	return &serviceFixture{service: service, repo: repo, verifier: verifier, publisher: publisher}
}

func validCreateRequest() CreateBookingRequest {
	return CreateBookingRequest{
		Carrier:         "UPS",
		ReturnType:      "qr",
		PackageSize:     "m",
		Dropoff:         bookingDomain.DropoffSpec{Name: "UPS Store Downtown", Address: "100 Main St"},
		Pickup:          bookingDomain.PickupSpec{Name: "Jordan Lee", Phone: "+15550100", Address: "42 Elm St"},
		ReturnAssetRef:  "assets/qr-123.png",
		PaymentIntentID: "pi_test_123",
	}
}

func customer(id uuid.UUID) Actor { return Actor{ID: id, Role: user.RoleCustomer} }
func courier(id uuid.UUID) Actor  { return Actor{ID: id, Role: user.RoleCourier} }
func admin(id uuid.UUID) Actor    { return Actor{ID: id, Role: user.RoleAdmin} }

// seedClaimed creates a booking via the service and has a courier claim it.
func seedClaimed(t *testing.T, f *serviceFixture, customerID, courierID uuid.UUID) uuid.UUID {
	t.Helper()
	dto, err := f.service.CreateBooking(context.Background(), customer(customerID), validCreateRequest())
	require.NoError(t, err)
	_, err = f.service.ClaimBooking(context.Background(), courier(courierID), dto.ID)
	require.NoError(t, err)
	return dto.ID
}

// --- Tests ---

func TestCreateBooking_VerifiesPaymentFirst(t *testing.T) {
	f := newServiceFixture()
	f.verifier.err = domain.NewValidationError("payment has not succeeded (status: processing)")

	_, err := f.service.CreateBooking(context.Background(), customer(uuid.New()), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	// Nothing is written when payment verification fails.
	assert.Empty(t, f.repo.bookings)
	assert.Empty(t, f.publisher.events)
}

func TestCreateBooking_SavesAndPublishes(t *testing.T) {
	f := newServiceFixture()
	customerID := uuid.New()

	dto, err := f.service.CreateBooking(context.Background(), customer(customerID), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "booked", dto.Status)
	assert.Equal(t, customerID, dto.CustomerID)
	assert.Equal(t, int64(899), dto.PriceTotalCents)
	assert.Equal(t, "USD", dto.Currency)
	assert.Len(t, f.repo.bookings, 1)
	assert.Equal(t, dto.ID, f.verifier.attached["pi_test_123"])
	assert.Contains(t, f.publisher.eventTypes(), "booking.created")
}

func TestUpdateBooking_NotFound(t *testing.T) {
	f := newServiceFixture()
	status := "canceled"

	_, err := f.service.UpdateBooking(context.Background(), customer(uuid.New()), uuid.New(), UpdateBookingRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestUpdateBooking_ForeignBookingIsForbidden(t *testing.T) {
	f := newServiceFixture()
	owner := uuid.New()
	dto, err := f.service.CreateBooking(context.Background(), customer(owner), validCreateRequest())
	require.NoError(t, err)

	status := "canceled"
	_, err = f.service.UpdateBooking(context.Background(), customer(uuid.New()), dto.ID, UpdateBookingRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
}

func TestUpdateBooking_CustomerMayOnlyCancel(t *testing.T) {
	f := newServiceFixture()
	customerID := uuid.New()
	dto, err := f.service.CreateBooking(context.Background(), customer(customerID), validCreateRequest())
	require.NoError(t, err)

	for _, next := range []string{"courier_assigned", "picked_up", "at_dropoff", "completed", "issue_hold"} {
		status := next
		_, err := f.service.UpdateBooking(context.Background(), customer(customerID), dto.ID, UpdateBookingRequest{Status: &status})
		require.Error(t, err, "customer should not set status %s", next)
		assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err), "status %s", next)
	}
}

func TestUpdateBooking_CustomerCancelBeforeCustody(t *testing.T) {
	f := newServiceFixture()
	customerID := uuid.New()
	dto, err := f.service.CreateBooking(context.Background(), customer(customerID), validCreateRequest())
	require.NoError(t, err)

	result, err := f.service.CancelBooking(context.Background(), customer(customerID), dto.ID, "ordered the wrong size")
	require.NoError(t, err)
	assert.Equal(t, "canceled", result.Status)
	assert.Equal(t, "ordered the wrong size", result.CancelNote)
	assert.NotNil(t, result.CanceledAt)
}

func TestUpdateBooking_CustomerCannotCancelAfterPickup(t *testing.T) {
	f := newServiceFixture()
	customerID := uuid.New()
	courierID := uuid.New()
	bookingID := seedClaimed(t, f, customerID, courierID)

	_, err := f.service.CapturePickupProof(context.Background(), courier(courierID), bookingID, "assets/pickup.jpg")
	require.NoError(t, err)

	_, err = f.service.CancelBooking(context.Background(), customer(customerID), bookingID, "changed my mind")
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidTransition, domain.CodeOf(err))
}

func TestUpdateBooking_SameStatusResaveIsAccepted(t *testing.T) {
	f := newServiceFixture()
	customerID := uuid.New()
	courierID := uuid.New()
	bookingID := seedClaimed(t, f, customerID, courierID)

	_, err := f.service.CapturePickupProof(context.Background(), courier(courierID), bookingID, "assets/pickup.jpg")
	require.NoError(t, err)
	f.publisher.events = nil

	status := "picked_up"
	result, err := f.service.UpdateBooking(context.Background(), courier(courierID), bookingID, UpdateBookingRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "picked_up", result.Status)

	// Re-saving the current status is not a status change.
	assert.NotContains(t, f.publisher.eventTypes(), "booking.status_changed")
}

func TestUpdateBooking_CourierCannotAssignWithoutClaiming(t *testing.T) {
	f := newServiceFixture()
	dto, err := f.service.CreateBooking(context.Background(), customer(uuid.New()), validCreateRequest())
	require.NoError(t, err)

	// Setting the status directly would leave the booking assigned with no
	// courier on record; only the claim path may take a job from the pool.
	status := "courier_assigned"
	_, err = f.service.UpdateBooking(context.Background(), courier(uuid.New()), dto.ID, UpdateBookingRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))

	stored := f.repo.bookings[dto.ID]
	assert.Equal(t, bookingDomain.StatusBooked, stored.Status())
	assert.Nil(t, stored.CourierID())
}

func TestResetBooking_ReturnsToPool(t *testing.T) {
	f := newServiceFixture()
	customerID := uuid.New()
	courierID := uuid.New()
	bookingID := seedClaimed(t, f, customerID, courierID)

	result, err := f.service.ResetBooking(context.Background(), admin(uuid.New()), bookingID)
	require.NoError(t, err)
	assert.Equal(t, "booked", result.Status)
	assert.Nil(t, result.CourierID)

	// The released job is claimable again.
	_, err = f.service.ClaimBooking(context.Background(), courier(uuid.New()), bookingID)
	require.NoError(t, err)
}

func TestResetBooking_AdminOnly(t *testing.T) {
	f := newServiceFixture()
	courierID := uuid.New()
	bookingID := seedClaimed(t, f, uuid.New(), courierID)

	_, err := f.service.ResetBooking(context.Background(), courier(courierID), bookingID)
	require.Error(t, err)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
}

func TestUpdateBooking_AdminForceToBookedReleasesCourier(t *testing.T) {
	f := newServiceFixture()
	bookingID := seedClaimed(t, f, uuid.New(), uuid.New())

	status := "booked"
	result, err := f.service.UpdateBooking(context.Background(), admin(uuid.New()), bookingID, UpdateBookingRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "booked", result.Status)
	assert.Nil(t, result.CourierID)
}

func TestClaimBooking_AssignsCourier(t *testing.T) {
	f := newServiceFixture()
	courierID := uuid.New()
	dto, err := f.service.CreateBooking(context.Background(), customer(uuid.New()), validCreateRequest())
	require.NoError(t, err)

	claimed, err := f.service.ClaimBooking(context.Background(), courier(courierID), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "courier_assigned", claimed.Status)
	require.NotNil(t, claimed.CourierID)
	assert.Equal(t, courierID, *claimed.CourierID)
	assert.Contains(t, f.publisher.eventTypes(), "booking.claimed")
}

func TestClaimBooking_SecondClaimConflicts(t *testing.T) {
	f := newServiceFixture()
	dto, err := f.service.CreateBooking(context.Background(), customer(uuid.New()), validCreateRequest())
	require.NoError(t, err)

	_, err = f.service.ClaimBooking(context.Background(), courier(uuid.New()), dto.ID)
	require.NoError(t, err)

	_, err = f.service.ClaimBooking(context.Background(), courier(uuid.New()), dto.ID)
	require.Error(t, err)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
}

func TestCompleteBooking_RequiresAssignedCourier(t *testing.T) {
	f := newServiceFixture()
	customerID := uuid.New()
	courierID := uuid.New()
	bookingID := seedClaimed(t, f, customerID, courierID)

	_, err := f.service.CapturePickupProof(context.Background(), courier(courierID), bookingID, "assets/pickup.jpg")
	require.NoError(t, err)
	_, err = f.service.CaptureDropoffReceipt(context.Background(), courier(courierID), bookingID, "assets/receipt.jpg")
	require.NoError(t, err)

	// A different courier cannot complete someone else's job, and the
	// rejection is an authorization failure, not a transition failure.
	_, err = f.service.CompleteBooking(context.Background(), courier(uuid.New()), bookingID)
	require.Error(t, err)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))

	// The assigned courier can.
	result, err := f.service.CompleteBooking(context.Background(), courier(courierID), bookingID)
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
}

func TestCompleteBooking_IncompleteArtifacts(t *testing.T) {
	f := newServiceFixture()
	customerID := uuid.New()
	courierID := uuid.New()
	bookingID := seedClaimed(t, f, customerID, courierID)

	_, err := f.service.CapturePickupProof(context.Background(), courier(courierID), bookingID, "assets/pickup.jpg")
	require.NoError(t, err)

	// Force the booking into at_dropoff without the receipt via admin.
	status := "at_dropoff"
	_, err = f.service.UpdateBooking(context.Background(), admin(uuid.New()), bookingID, UpdateBookingRequest{Status: &status})
	require.NoError(t, err)

	_, err = f.service.CompleteBooking(context.Background(), courier(courierID), bookingID)
	require.Error(t, err)
	assert.Equal(t, domain.CodeIncompleteArtifacts, domain.CodeOf(err))
}

func TestCompleteBooking_AdminBypassesAssignmentButNotArtifacts(t *testing.T) {
	f := newServiceFixture()
	bookingID := seedClaimed(t, f, uuid.New(), uuid.New())
	adminActor := admin(uuid.New())

	// Even the admin's override cannot skip the evidence requirement.
	_, err := f.service.CompleteBooking(context.Background(), adminActor, bookingID)
	require.Error(t, err)
	assert.Equal(t, domain.CodeIncompleteArtifacts, domain.CodeOf(err))
}

func TestArtifactCapture_AdvancesStatus(t *testing.T) {
	f := newServiceFixture()
	courierID := uuid.New()
	bookingID := seedClaimed(t, f, uuid.New(), courierID)

	dto, err := f.service.CapturePickupProof(context.Background(), courier(courierID), bookingID, "assets/pickup.jpg")
	require.NoError(t, err)
	assert.Equal(t, "picked_up", dto.Status)
	assert.Equal(t, "assets/pickup.jpg", dto.PickupProofRef)

	dto, err = f.service.CaptureDropoffReceipt(context.Background(), courier(courierID), bookingID, "assets/receipt.jpg")
	require.NoError(t, err)
	assert.Equal(t, "at_dropoff", dto.Status)
	assert.Equal(t, "assets/receipt.jpg", dto.DropoffReceiptRef)
}

func TestArtifactCapture_StillValidatesTransition(t *testing.T) {
	f := newServiceFixture()
	courierID := uuid.New()
	dto, err := f.service.CreateBooking(context.Background(), customer(uuid.New()), validCreateRequest())
	require.NoError(t, err)

	// Capturing a drop-off receipt on a booked job would imply an illegal
	// booked -> at_dropoff jump.
	_, err = f.service.CaptureDropoffReceipt(context.Background(), courier(courierID), dto.ID, "assets/receipt.jpg")
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidTransition, domain.CodeOf(err))
}

func TestListBookings_RoleScopes(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	customer1 := uuid.New()
	customer2 := uuid.New()
	courierID := uuid.New()

	// b1: open pool job from customer1. b2: customer2's, claimed by courier.
	// b3: customer1's, canceled.
	_, err := f.service.CreateBooking(ctx, customer(customer1), validCreateRequest())
	require.NoError(t, err)
	b2, err := f.service.CreateBooking(ctx, customer(customer2), validCreateRequest())
	require.NoError(t, err)
	_, err = f.service.ClaimBooking(ctx, courier(courierID), b2.ID)
	require.NoError(t, err)
	b3, err := f.service.CreateBooking(ctx, customer(customer1), validCreateRequest())
	require.NoError(t, err)
	_, err = f.service.CancelBooking(ctx, customer(customer1), b3.ID, "")
	require.NoError(t, err)

	// customer1 sees their two bookings.
	res, err := f.service.ListBookings(ctx, customer(customer1), bookingDomain.PartitionAll, 1, 20)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	// customer1's history partition holds only the canceled one.
	res, err = f.service.ListBookings(ctx, customer(customer1), bookingDomain.PartitionHistory, 1, 20)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "canceled", res.Items[0].Status)

	// The courier sees the open job plus their own assignment, not the
	// canceled booking.
	res, err = f.service.ListBookings(ctx, courier(courierID), bookingDomain.PartitionAll, 1, 20)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	// Admin sees all three.
	res, err = f.service.ListBookings(ctx, admin(uuid.New()), bookingDomain.PartitionAll, 1, 20)
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)

	// An unrecognized role sees nothing.
	res, err = f.service.ListBookings(ctx, Actor{ID: customer1, Role: user.Role("auditor")}, bookingDomain.PartitionAll, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestGetBookingStats(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.service.CreateBooking(ctx, customer(uuid.New()), validCreateRequest())
	require.NoError(t, err)
	dto, err := f.service.CreateBooking(ctx, customer(uuid.New()), validCreateRequest())
	require.NoError(t, err)
	_, err = f.service.ClaimBooking(ctx, courier(uuid.New()), dto.ID)
	require.NoError(t, err)

	stats, err := f.service.GetBookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.ByStatus["booked"])
	assert.Equal(t, int64(1), stats.ByStatus["courier_assigned"])
}
