package booking

import (
	"context"
	"fmt"

	"github.com/droppit-app/service-booking/internal/domain/user"
	"github.com/google/uuid"
)

// Partition splits a viewer's bookings into active jobs and history. It is
// applied after the role-scoped visibility filter.
type Partition string

const (
	PartitionAll     Partition = "all"
	PartitionActive  Partition = "active"
	PartitionHistory Partition = "history"
)

// ParsePartition converts a string to a Partition, defaulting to all.
func ParsePartition(s string) (Partition, error) {
	switch s {
	case "", string(PartitionAll):
		return PartitionAll, nil
	case string(PartitionActive):
		return PartitionActive, nil
	case string(PartitionHistory):
		return PartitionHistory, nil
	default:
		return "", fmt.Errorf("invalid partition: %s", s)
	}
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// ListVisibleTo retrieves the bookings the viewer may see, scoped by role,
	// partitioned, newest-first, with pagination.
	ListVisibleTo(ctx context.Context, viewerID uuid.UUID, role user.Role, partition Partition, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
