package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
	"github.com/moveboard/service-booking/internal/scheduling"
)

// ReservationModel is the GORM model for the reservations table. Effective
// bounds are denormalized so the overlap predicate stays a plain indexed
// range comparison.
type ReservationModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ResourceID     uuid.UUID `gorm:"type:uuid;index:idx_reservations_resource;not null"`
	BookingID      uuid.UUID `gorm:"type:uuid;index;not null"`
	WindowStart    time.Time `gorm:"not null"`
	WindowEnd      time.Time `gorm:"not null"`
	BufferMinutes  int       `gorm:"not null;default:0"`
	EffectiveStart time.Time `gorm:"index:idx_reservations_resource;not null"`
	EffectiveEnd   time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ReservationModel) TableName() string {
	return "reservations"
}

// GormReservationStore is the GORM-based implementation of
// scheduling.ReservationStore.
type GormReservationStore struct {
	db *gorm.DB
}

// NewGormReservationStore creates a new GormReservationStore.
func NewGormReservationStore(db *gorm.DB) *GormReservationStore {
	return &GormReservationStore{db: db}
}

// FindOverlapping returns reservations on the resource whose effective windows
// intersect the candidate's effective window. Half-open intervals: windows
// that merely touch do not overlap.
func (s *GormReservationStore) FindOverlapping(ctx context.Context, resourceID uuid.UUID, window bookingDomain.TimeWindow) ([]scheduling.Reservation, error) {
	var models []ReservationModel
	if err := s.db.WithContext(ctx).
		Where("resource_id = ? AND effective_start < ? AND effective_end > ?",
			resourceID, window.EffectiveEnd(), window.EffectiveStart()).
		Order("effective_start ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
	}
	return toDomainReservations(models), nil
}

// Insert persists a reservation.
func (s *GormReservationStore) Insert(ctx context.Context, r scheduling.Reservation) error {
	model := ReservationModel{
		ID:             r.ID,
		ResourceID:     r.ResourceID,
		BookingID:      r.BookingID,
		WindowStart:    r.Window.Start,
		WindowEnd:      r.Window.End,
		BufferMinutes:  r.Window.BufferMinutes,
		EffectiveStart: r.Window.EffectiveStart(),
		EffectiveEnd:   r.Window.EffectiveEnd(),
		CreatedAt:      r.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

// DeleteByBooking removes the booking's reservation on the resource. Deleting
// a reservation that does not exist is not an error.
func (s *GormReservationStore) DeleteByBooking(ctx context.Context, resourceID, bookingID uuid.UUID) error {
	if err := s.db.WithContext(ctx).
		Where("resource_id = ? AND booking_id = ?", resourceID, bookingID).
		Delete(&ReservationModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}

// ListByResource returns all reservations for a resource ordered by effective
// start.
func (s *GormReservationStore) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]scheduling.Reservation, error) {
	var models []ReservationModel
	if err := s.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("effective_start ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return toDomainReservations(models), nil
}

func toDomainReservations(models []ReservationModel) []scheduling.Reservation {
	reservations := make([]scheduling.Reservation, len(models))
	for i, m := range models {
		reservations[i] = scheduling.Reservation{
			ID:         m.ID,
			ResourceID: m.ResourceID,
			BookingID:  m.BookingID,
			Window: bookingDomain.TimeWindow{
				Start:         m.WindowStart,
				End:           m.WindowEnd,
				BufferMinutes: m.BufferMinutes,
			},
			CreatedAt: m.CreatedAt,
		}
	}
	return reservations
}
