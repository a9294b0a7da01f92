package booking

import (
	"context"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByNumber retrieves a booking by its human-readable booking number.
	FindByNumber(ctx context.Context, number string) (*Booking, error)

	// ListByOrg retrieves bookings belonging to an organization with pagination.
	ListByOrg(ctx context.Context, orgID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	// It fails with a conflict when the stored version does not match the
	// version the caller read, which is what serializes concurrent status
	// transitions on the same booking.
	Update(ctx context.Context, booking *Booking) error
}

// StatusHistoryRepository is the append-only audit trail. The booking
// application service is its only writer; rows are never updated or deleted.
type StatusHistoryRepository interface {
	// Append stores one transition record.
	Append(ctx context.Context, record StatusRecord) error

	// ListByBooking returns a booking's records in transition order.
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]StatusRecord, error)
}
