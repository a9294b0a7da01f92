package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moveboard/service-booking/internal/domain"
	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
	"github.com/moveboard/service-booking/internal/domain/pricing"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber string          `gorm:"uniqueIndex;not null;size:20"`
	OrgID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	TruckID       *uuid.UUID      `gorm:"type:uuid;index"`
	Status        string          `gorm:"not null;size:30;index"`
	MoveDate      time.Time       `gorm:"not null;index"`
	Customer      json.RawMessage `gorm:"type:jsonb;not null"`
	Move          json.RawMessage `gorm:"type:jsonb;not null"`
	// "window" is a reserved word in PostgreSQL, so the column is time_window.
	Window        json.RawMessage `gorm:"column:time_window;type:jsonb;not null"`
	Breakdown     json.RawMessage `gorm:"type:jsonb;not null"`
	Refund        json.RawMessage `gorm:"type:jsonb"`
	CancelNote    string          `gorm:"size:500"`
	CancelledAt   *time.Time      `gorm:""`
	CompletedAt   *time.Time      `gorm:""`
	Version       int64           `gorm:"not null;default:1"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
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
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", number)
		}
		return nil, fmt.Errorf("failed to find booking by number: %w", err)
	}
	return toDomainBooking(&model)
}

// ListByOrg retrieves bookings for an organization with pagination.
func (r *GormBookingRepository) ListByOrg(ctx context.Context, orgID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("org_id = ?", orgID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count org bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("move_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find org bookings: %w", err)
	}

	return toDomainBookings(models, total)
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

	return toDomainBookings(models, total)
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

// Update persists changes to an existing booking with optimistic locking. The
// version guard is what serializes concurrent transitions on one booking:
// a transition applied against a stale read affects zero rows and fails.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// IncrementVersion was called before Update, so the stored row must
	// still hold version-1.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"truck_id":     model.TruckID,
			"status":       model.Status,
			"move_date":    model.MoveDate,
			"customer":     model.Customer,
			"move":         model.Move,
			"time_window":  model.Window,
			"breakdown":    model.Breakdown,
			"refund":       model.Refund,
			"cancel_note":  model.CancelNote,
			"cancelled_at": model.CancelledAt,
			"completed_at": model.CompletedAt,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewStaleUpdateError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	customerJSON, err := json.Marshal(bk.Customer())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal customer: %w", err)
	}

	moveJSON, err := json.Marshal(bk.Move())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal move: %w", err)
	}

	windowJSON, err := json.Marshal(bk.Window())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal window: %w", err)
	}

	breakdownJSON, err := json.Marshal(bk.Breakdown())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	var refundJSON json.RawMessage
	if bk.Refund() != nil {
		data, err := json.Marshal(bk.Refund())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal refund decision: %w", err)
		}
		refundJSON = data
	}

	return &BookingModel{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OrgID:         bk.OrgID(),
		TruckID:       bk.TruckID(),
		Status:        string(bk.Status()),
		MoveDate:      bk.Move().MoveDate,
		Customer:      customerJSON,
		Move:          moveJSON,
		Window:        windowJSON,
		Breakdown:     breakdownJSON,
		Refund:        refundJSON,
		CancelNote:    bk.CancelNote(),
		CancelledAt:   bk.CancelledAt(),
		CompletedAt:   bk.CompletedAt(),
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var customer bookingDomain.CustomerContact
	if err := json.Unmarshal(m.Customer, &customer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer: %w", err)
	}

	var move bookingDomain.MoveDetails
	if err := json.Unmarshal(m.Move, &move); err != nil {
		return nil, fmt.Errorf("failed to unmarshal move: %w", err)
	}

	var window bookingDomain.TimeWindow
	if err := json.Unmarshal(m.Window, &window); err != nil {
		return nil, fmt.Errorf("failed to unmarshal window: %w", err)
	}

	var breakdown pricing.PriceBreakdown
	if err := json.Unmarshal(m.Breakdown, &breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}

	var refund *bookingDomain.RefundDecision
	if len(m.Refund) > 0 {
		var rd bookingDomain.RefundDecision
		if err := json.Unmarshal(m.Refund, &rd); err != nil {
			return nil, fmt.Errorf("failed to unmarshal refund decision: %w", err)
		}
		refund = &rd
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.OrgID,
		m.TruckID,
		customer,
		move,
		window,
		status,
		breakdown,
		refund,
		m.CancelNote,
		m.CancelledAt,
		m.CompletedAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel, total int64) ([]*bookingDomain.Booking, int64, error) {
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
