package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
)

// StatusRecordModel is the GORM model for the booking_status_history table.
// Rows are append-only; nothing in the service updates or deletes them.
type StatusRecordModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookingID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	FromStatus     string     `gorm:"not null;size:30"`
	ToStatus       string     `gorm:"not null;size:30"`
	ActorID        *uuid.UUID `gorm:"type:uuid"`
	ActorType      string     `gorm:"not null;size:30"`
	Reason         string     `gorm:"size:500"`
	TransitionedAt time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (StatusRecordModel) TableName() string {
	return "booking_status_history"
}

// GormStatusHistoryRepository is the GORM-based implementation of
// StatusHistoryRepository.
type GormStatusHistoryRepository struct {
	db *gorm.DB
}

// NewGormStatusHistoryRepository creates a new GormStatusHistoryRepository.
func NewGormStatusHistoryRepository(db *gorm.DB) *GormStatusHistoryRepository {
	return &GormStatusHistoryRepository{db: db}
}

// Append persists a status record.
func (r *GormStatusHistoryRepository) Append(ctx context.Context, record bookingDomain.StatusRecord) error {
	model := StatusRecordModel{
		ID:             record.ID,
		BookingID:      record.BookingID,
		FromStatus:     string(record.FromStatus),
		ToStatus:       string(record.ToStatus),
		ActorID:        record.ActorID,
		ActorType:      string(record.ActorType),
		Reason:         record.Reason,
		TransitionedAt: record.TransitionedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to append status record: %w", err)
	}
	return nil
}

// ListByBooking returns the booking's status records in transition order.
func (r *GormStatusHistoryRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]bookingDomain.StatusRecord, error) {
	var models []StatusRecordModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("transitioned_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list status records: %w", err)
	}

	records := make([]bookingDomain.StatusRecord, len(models))
	for i, m := range models {
		fromStatus, err := bookingDomain.ParseBookingStatus(m.FromStatus)
		if err != nil {
			return nil, err
		}
		toStatus, err := bookingDomain.ParseBookingStatus(m.ToStatus)
		if err != nil {
			return nil, err
		}
		records[i] = bookingDomain.StatusRecord{
			ID:             m.ID,
			BookingID:      m.BookingID,
			FromStatus:     fromStatus,
			ToStatus:       toStatus,
			ActorID:        m.ActorID,
			ActorType:      bookingDomain.ActorType(m.ActorType),
			Reason:         m.Reason,
			TransitionedAt: m.TransitionedAt,
		}
	}
	return records, nil
}
