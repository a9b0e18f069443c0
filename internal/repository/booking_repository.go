package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/droppit-app/service-booking/internal/domain"
	bookingDomain "github.com/droppit-app/service-booking/internal/domain/booking"
	"github.com/droppit-app/service-booking/internal/domain/user"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	CourierID         *uuid.UUID      `gorm:"type:uuid;index"`
	Status            string          `gorm:"not null;size:30;index"`
	Carrier           string          `gorm:"not null;size:20"`
	ReturnType        string          `gorm:"not null;size:10"`
	PackageSize       string          `gorm:"not null;size:5"`
	Dropoff           json.RawMessage `gorm:"type:jsonb;not null"`
	Pickup            json.RawMessage `gorm:"type:jsonb;not null"`
	PriceTotalCents   int64           `gorm:"not null"`
	Currency          string          `gorm:"not null;size:3;default:'USD'"`
	PaymentIntentID   string          `gorm:"not null;size:100;index"`
	ReturnAssetRef    string          `gorm:"not null;size:500"`
	PickupProofRef    string          `gorm:"size:500"`
	DropoffReceiptRef string          `gorm:"size:500"`
	CancelNote        string          `gorm:"size:500"`
	CanceledAt        *time.Time      `gorm:""`
	Version           int64           `gorm:"not null;default:1"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// ListVisibleTo retrieves the bookings the viewer may see. Admins see every
// booking, couriers see their assignments plus the unclaimed pool, customers
// see their own. Unknown roles match nothing.
func (r *GormBookingRepository) ListVisibleTo(ctx context.Context, viewerID uuid.UUID, role user.Role, partition bookingDomain.Partition, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{})

	switch role {
	case user.RoleAdmin:
		// no scope filter
	case user.RoleCourier:
		query = query.Where("courier_id = ? OR status = ?", viewerID, string(bookingDomain.StatusBooked))
	case user.RoleCustomer:
		query = query.Where("customer_id = ?", viewerID)
	default:
		return []*bookingDomain.Booking{}, 0, nil
	}

	switch partition {
	case bookingDomain.PartitionActive:
		query = query.Where("status NOT IN ?", terminalStatuses())
	case bookingDomain.PartitionHistory:
		query = query.Where("status IN ?", terminalStatuses())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count visible bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list visible bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}

	return bookings, total, nil
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}

	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// Only update if the version matches (current version - 1, since
	// IncrementVersion was called before Update).
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"courier_id":          model.CourierID,
			"status":              model.Status,
			"dropoff":             model.Dropoff,
			"pickup":              model.Pickup,
			"pickup_proof_ref":    model.PickupProofRef,
			"dropoff_receipt_ref": model.DropoffReceiptRef,
			"cancel_note":         model.CancelNote,
			"canceled_at":         model.CanceledAt,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func terminalStatuses() []string {
	var terminal []string
	for _, s := range bookingDomain.AllStatuses() {
		if s.IsTerminal() {
			terminal = append(terminal, string(s))
		}
	}
	return terminal
}

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	dropoffJSON, err := json.Marshal(bk.Dropoff())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dropoff spec: %w", err)
	}

	pickupJSON, err := json.Marshal(bk.Pickup())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pickup spec: %w", err)
	}

	return &BookingModel{
		ID:                bk.ID(),
		CustomerID:        bk.CustomerID(),
		CourierID:         bk.CourierID(),
		Status:            string(bk.Status()),
		Carrier:           string(bk.Carrier()),
		ReturnType:        string(bk.ReturnType()),
		PackageSize:       string(bk.Size()),
		Dropoff:           dropoffJSON,
		Pickup:            pickupJSON,
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
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var dropoff bookingDomain.DropoffSpec
	if err := json.Unmarshal(m.Dropoff, &dropoff); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dropoff spec: %w", err)
	}

	var pickup bookingDomain.PickupSpec
	if err := json.Unmarshal(m.Pickup, &pickup); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pickup spec: %w", err)
	}

	return bookingDomain.Reconstruct(
		m.ID,
		m.CustomerID,
		m.CourierID,
		bookingDomain.Status(m.Status),
		bookingDomain.Carrier(m.Carrier),
		bookingDomain.ReturnType(m.ReturnType),
		bookingDomain.PackageSize(m.PackageSize),
		dropoff,
		pickup,
		m.PriceTotalCents,
		m.Currency,
		m.PaymentIntentID,
		bookingDomain.ArtifactFromRef(m.ReturnAssetRef),
		bookingDomain.ArtifactFromRef(m.PickupProofRef),
		bookingDomain.ArtifactFromRef(m.DropoffReceiptRef),
		m.CancelNote,
		m.CanceledAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
