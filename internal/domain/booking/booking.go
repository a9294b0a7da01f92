package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/moveboard/service-booking/internal/domain"
	"github.com/moveboard/service-booking/internal/domain/pricing"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for the booking domain. It is owned by the
// moving organization and never physically removed: terminal statuses are the
// only form of deletion, to preserve the financial and audit record.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	orgID         uuid.UUID
	truckID       *uuid.UUID
	customer      CustomerContact
	move          MoveDetails
	window        TimeWindow
	status        BookingStatus
	breakdown     pricing.PriceBreakdown

	refund      *RefundDecision
	cancelNote  string
	cancelledAt *time.Time
	completedAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "MV-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "MV-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=pending. The truck
// may be nil; conflict checking is then deferred to assignment time.
func NewBooking(
	orgID uuid.UUID,
	truckID *uuid.UUID,
	customer CustomerContact,
	move MoveDetails,
	window TimeWindow,
	breakdown pricing.PriceBreakdown,
) (*Booking, error) {
	if orgID == uuid.Nil {
		return nil, domain.NewValidationError("organization ID is required")
	}
	if truckID != nil && *truckID == uuid.Nil {
		return nil, domain.NewValidationError("truck ID cannot be the zero UUID")
	}
	if customer.Name == "" {
		return nil, domain.NewValidationError("customer name is required")
	}
	if customer.Email == "" {
		return nil, domain.NewValidationError("customer email is required")
	}
	if err := move.Validate(); err != nil {
		return nil, err
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		orgID:         orgID,
		truckID:       truckID,
		customer:      customer,
		move:          move,
		window:        window,
		status:        StatusPending,
		breakdown:     breakdown,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	orgID uuid.UUID,
	truckID *uuid.UUID,
	customer CustomerContact,
	move MoveDetails,
	window TimeWindow,
	status BookingStatus,
	breakdown pricing.PriceBreakdown,
	refund *RefundDecision,
	cancelNote string,
	cancelledAt *time.Time,
	completedAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		bookingNumber: bookingNumber,
		orgID:         orgID,
		truckID:       truckID,
		customer:      customer,
		move:          move,
		window:        window,
		status:        status,
		breakdown:     breakdown,
		refund:        refund,
		cancelNote:    cancelNote,
		cancelledAt:   cancelledAt,
		completedAt:   completedAt,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// OrgID returns the owning organization's ID.
func (b *Booking) OrgID() uuid.UUID { return b.orgID }

// TruckID returns the assigned truck's ID, or nil if unassigned.
func (b *Booking) TruckID() *uuid.UUID { return b.truckID }

// Customer returns the customer contact details.
func (b *Booking) Customer() CustomerContact { return b.customer }

// Move returns the move description.
func (b *Booking) Move() MoveDetails { return b.move }

// Window returns the booking's time window.
func (b *Booking) Window() TimeWindow { return b.window }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Breakdown returns the computed price breakdown.
func (b *Booking) Breakdown() pricing.PriceBreakdown { return b.breakdown }

// Refund returns the refund decision, or nil if the booking was never cancelled.
func (b *Booking) Refund() *RefundDecision { return b.refund }

// CancelNote returns the cancellation reason.
func (b *Booking) CancelNote() string { return b.cancelNote }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CompletedAt returns the time the move was completed.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// TransitionTo moves the booking to the target status if the transition is
// legal. Cancellation must go through Cancel so the refund decision is
// captured.
func (b *Booking) TransitionTo(to BookingStatus) error {
	if to == StatusCancelled {
		return domain.NewValidationError("cancellation requires a refund decision; use Cancel")
	}
	if !b.status.CanTransitionTo(to) {
		return domain.NewInvalidTransitionError(string(b.status), string(to))
	}
	now := time.Now().UTC()
	b.status = to
	if to == StatusCompleted {
		b.completedAt = &now
	}
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking to cancelled and records the refund
// decision and reason.
func (b *Booking) Cancel(reason string, decision RefundDecision) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidTransitionError(string(b.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.refund = &decision
	b.cancelNote = reason
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// AssignTruck sets the truck for a booking created without one. The caller
// must have already reserved the slot through the conflict guard.
func (b *Booking) AssignTruck(truckID uuid.UUID) error {
	if truckID == uuid.Nil {
		return domain.NewValidationError("truck ID is required")
	}
	if b.status != StatusPending && b.status != StatusConfirmed {
		return domain.NewValidationError(fmt.Sprintf("cannot assign truck to a %s booking", b.status))
	}
	b.truckID = &truckID
	b.updatedAt = time.Now().UTC()
	return nil
}

// Reschedule replaces the window and move date/duration. Only pending
// bookings may be rescheduled; a confirmed schedule is a commitment.
func (b *Booking) Reschedule(window TimeWindow, moveDate time.Time, durationHours float64) error {
	if b.status != StatusPending {
		return domain.NewValidationError(fmt.Sprintf("cannot reschedule a %s booking", b.status))
	}
	b.window = window
	b.move.MoveDate = moveDate
	b.move.EstimatedDurationHours = durationHours
	b.updatedAt = time.Now().UTC()
	return nil
}

// Reprice attaches a freshly computed breakdown. Breakdowns attached to a
// confirmed booking are immutable, so this is only legal while pending.
func (b *Booking) Reprice(breakdown pricing.PriceBreakdown) error {
	if b.status != StatusPending {
		return domain.NewValidationError(fmt.Sprintf("cannot reprice a %s booking", b.status))
	}
	b.breakdown = breakdown
	b.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
