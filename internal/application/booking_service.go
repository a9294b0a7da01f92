package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moveboard/service-booking/internal/domain"
	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
	"github.com/moveboard/service-booking/internal/domain/pricing"
	"github.com/moveboard/service-booking/internal/events"
	"github.com/moveboard/service-booking/internal/scheduling"
)

const eventSource = "service-booking"

// suggestionGap is how far past the blocking reservation an alternative slot
// is proposed.
const suggestionGap = 15 * time.Minute

// Transient lock timeouts on the guard are retried a bounded number of times
// before surfacing as a user-facing "try again" error.
const (
	lockRetryAttempts = 3
	lockRetryBackoff  = 75 * time.Millisecond
)

// BookingService orchestrates booking admission: pricing, conflict guarding,
// persistence, the audit trail and event publication. It is the only writer of
// bookings and of the status history.
type BookingService struct {
	bookings      bookingDomain.BookingRepository
	history       bookingDomain.StatusHistoryRepository
	configs       pricing.ConfigRepository
	engine        *pricing.Engine
	guard         *scheduling.Guard
	policy        *bookingDomain.CancellationPolicy
	publisher     events.Publisher
	bufferMinutes int
	logger        *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings bookingDomain.BookingRepository,
	history bookingDomain.StatusHistoryRepository,
	configs pricing.ConfigRepository,
	engine *pricing.Engine,
	guard *scheduling.Guard,
	policy *bookingDomain.CancellationPolicy,
	publisher events.Publisher,
	bufferMinutes int,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:      bookings,
		history:       history,
		configs:       configs,
		engine:        engine,
		guard:         guard,
		policy:        policy,
		publisher:     publisher,
		bufferMinutes: bufferMinutes,
		logger:        logger,
	}
}

// --- Requests and DTOs ---

// CreateBookingRequest carries everything needed to admit a new booking.
type CreateBookingRequest struct {
	OrgID    uuid.UUID
	TruckID  *uuid.UUID
	Customer bookingDomain.CustomerContact
	Move     bookingDomain.MoveDetails
}

// TransitionRequest asks for a status change on an existing booking.
type TransitionRequest struct {
	BookingID uuid.UUID
	ToStatus  bookingDomain.BookingStatus
	ActorID   *uuid.UUID
	ActorType bookingDomain.ActorType
	Reason    string
}

// CancelBookingRequest asks for a cancellation with its refund computation.
type CancelBookingRequest struct {
	BookingID uuid.UUID
	ActorID   *uuid.UUID
	ActorType bookingDomain.ActorType
	Reason    string
}

// AvailabilityResult reports whether a window is free on a truck and, when it
// is not, the bookings in the way plus the next slot worth trying.
type AvailabilityResult struct {
	Available      bool                     `json:"available"`
	ConflictingIDs []uuid.UUID              `json:"conflicting_ids,omitempty"`
	SuggestedStart *time.Time               `json:"suggested_start,omitempty"`
	Window         bookingDomain.TimeWindow `json:"window"`
}

// BookingDTO is the read model handed to the transport layer.
type BookingDTO struct {
	ID            uuid.UUID                     `json:"id"`
	BookingNumber string                        `json:"booking_number"`
	OrgID         uuid.UUID                     `json:"org_id"`
	TruckID       *uuid.UUID                    `json:"truck_id,omitempty"`
	Customer      bookingDomain.CustomerContact `json:"customer"`
	Move          bookingDomain.MoveDetails     `json:"move"`
	Window        bookingDomain.TimeWindow      `json:"window"`
	Status        string                        `json:"status"`
	Breakdown     pricing.PriceBreakdown        `json:"breakdown"`
	Refund        *bookingDomain.RefundDecision `json:"refund,omitempty"`
	CancelNote    string                        `json:"cancel_note,omitempty"`
	CancelledAt   *time.Time                    `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time                    `json:"completed_at,omitempty"`
	Version       int64                         `json:"version"`
	CreatedAt     time.Time                     `json:"created_at"`
	UpdatedAt     time.Time                     `json:"updated_at"`
}

// ReservationDTO is one held slot on a truck's schedule.
type ReservationDTO struct {
	BookingID      uuid.UUID `json:"booking_id"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	EffectiveStart time.Time `json:"effective_start"`
	EffectiveEnd   time.Time `json:"effective_end"`
}

// StatusRecordDTO is one audit-trail row for transport.
type StatusRecordDTO struct {
	FromStatus     string     `json:"from_status"`
	ToStatus       string     `json:"to_status"`
	ActorID        *uuid.UUID `json:"actor_id,omitempty"`
	ActorType      string     `json:"actor_type"`
	Reason         string     `json:"reason,omitempty"`
	TransitionedAt time.Time  `json:"transitioned_at"`
}

// --- Operations ---

// CreateBooking admits a new booking: it prices the move against the
// organization's active configuration, reserves the truck slot if a truck was
// requested, and persists the booking as pending. The reservation lock is
// never held across persistence or publication.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingDTO, error) {
	if err := req.Move.Validate(); err != nil {
		return nil, err
	}

	cfg, err := s.configs.FindActiveByOrg(ctx, req.OrgID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.engine.Price(toPricingMove(req.Move), cfg)
	if err != nil {
		return nil, err
	}

	window, err := bookingDomain.WindowForMove(req.Move.MoveDate, req.Move.EstimatedDurationHours, s.bufferMinutes)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(req.OrgID, req.TruckID, req.Customer, req.Move, window, breakdown)
	if err != nil {
		return nil, err
	}

	if _, err := s.reserveWithRetry(ctx, req.TruckID, bk.ID(), window); err != nil {
		return nil, err
	}

	if err := s.bookings.Save(ctx, bk); err != nil {
		if req.TruckID != nil {
			s.releaseQuietly(ctx, *req.TruckID, bk.ID())
		}
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("total", bk.Breakdown().Total.String()),
	)

	s.publish(ctx, events.TopicBookingEvents, bk.ID().String(), events.BookingCreated, events.BookingCreatedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OrgID:         bk.OrgID(),
		TruckID:       bk.TruckID(),
		MoveDate:      bk.Move().MoveDate,
		Total:         bk.Breakdown().Total,
		PlatformFee:   bk.Breakdown().PlatformFee,
		OccurredAt:    time.Now().UTC(),
	})

	return toBookingDTO(bk), nil
}

// Transition applies a non-cancellation status change. Concurrent transitions
// on the same booking are serialized by the version check in the repository:
// the loser fails and must re-read.
func (s *BookingService) Transition(ctx context.Context, req TransitionRequest) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	from := bk.Status()
	if err := bk.TransitionTo(req.ToStatus); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, bk, from, req.ActorID, req.ActorType, req.Reason)

	if req.ToStatus == bookingDomain.StatusCompleted && bk.TruckID() != nil {
		s.releaseQuietly(ctx, *bk.TruckID(), bk.ID())
	}

	return toBookingDTO(bk), nil
}

// CancelBooking computes the refund, transitions the booking to cancelled,
// frees the truck slot, and hands the refund decision to the payment
// collaborator via the cancellation event.
func (s *BookingService) CancelBooking(ctx context.Context, req CancelBookingRequest) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	from := bk.Status()
	decision := s.policy.ComputeRefund(bk.Breakdown().Total, bk.Window().Start, time.Now().UTC())
	if err := bk.Cancel(req.Reason, decision); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, bk, from, req.ActorID, req.ActorType, req.Reason)

	if bk.TruckID() != nil {
		s.releaseQuietly(ctx, *bk.TruckID(), bk.ID())
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bk.ID().String()),
		zap.String("tier", decision.TierApplied),
		zap.String("refund_amount", decision.RefundAmount.String()),
	)

	s.publish(ctx, events.TopicBookingEvents, bk.ID().String(), events.BookingCancelled, events.BookingCancelledEvent{
		BookingID:      bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		OrgID:          bk.OrgID(),
		CancelledBy:    req.ActorID,
		Reason:         req.Reason,
		RefundFraction: decision.RefundFraction,
		RefundAmount:   decision.RefundAmount,
		OccurredAt:     time.Now().UTC(),
	})

	return toBookingDTO(bk), nil
}

// ConfirmFromPayment confirms a pending booking in response to a captured
// payment. Replayed capture events for an already-confirmed booking are
// acknowledged without effect.
func (s *BookingService) ConfirmFromPayment(ctx context.Context, event events.PaymentCapturedEvent) error {
	bk, err := s.bookings.FindByID(ctx, event.BookingID)
	if err != nil {
		return err
	}

	if bk.Status() != bookingDomain.StatusPending {
		s.logger.Info("ignoring payment capture for non-pending booking",
			zap.String("booking_id", bk.ID().String()),
			zap.String("status", string(bk.Status())),
		)
		return nil
	}

	_, err = s.Transition(ctx, TransitionRequest{
		BookingID: event.BookingID,
		ToStatus:  bookingDomain.StatusConfirmed,
		ActorType: bookingDomain.ActorSystem,
		Reason:    "payment captured: " + event.PaymentID.String(),
	})
	return err
}

// AssignTruck puts a booking created without a truck onto one, running the
// same conflict check as admission. Reassignment releases the previous
// truck's slot only after the new one is committed.
func (s *BookingService) AssignTruck(ctx context.Context, bookingID, truckID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	previous := bk.TruckID()
	if previous != nil && *previous == truckID {
		return toBookingDTO(bk), nil
	}

	if _, err := s.reserveWithRetry(ctx, &truckID, bk.ID(), bk.Window()); err != nil {
		return nil, err
	}

	if err := bk.AssignTruck(truckID); err != nil {
		s.releaseQuietly(ctx, truckID, bk.ID())
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		s.releaseQuietly(ctx, truckID, bk.ID())
		return nil, err
	}

	if previous != nil {
		s.releaseQuietly(ctx, *previous, bk.ID())
	}

	return toBookingDTO(bk), nil
}

// CheckAvailability reports whether a truck is free for a prospective move
// window and proposes the next slot after the blocking reservations when it
// is not. Read-only; admission re-checks under the guard's critical section.
func (s *BookingService) CheckAvailability(ctx context.Context, truckID uuid.UUID, moveDate time.Time, durationHours float64) (*AvailabilityResult, error) {
	window, err := bookingDomain.WindowForMove(moveDate, durationHours, s.bufferMinutes)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.guard.Conflicts(ctx, truckID, window)
	if err != nil {
		return nil, err
	}

	result := &AvailabilityResult{Available: len(conflicts) == 0, Window: window}
	if result.Available {
		return result, nil
	}

	latestEnd := conflicts[0].Window.EffectiveEnd()
	for _, c := range conflicts {
		result.ConflictingIDs = append(result.ConflictingIDs, c.BookingID)
		if end := c.Window.EffectiveEnd(); end.After(latestEnd) {
			latestEnd = end
		}
	}

	suggested := latestEnd.Add(suggestionGap).Add(time.Duration(s.bufferMinutes) * time.Minute)
	result.SuggestedStart = &suggested
	return result, nil
}

// TruckSchedule lists every slot currently held on a truck, earliest first,
// with both the raw and the buffer-padded bounds.
func (s *BookingService) TruckSchedule(ctx context.Context, truckID uuid.UUID) ([]ReservationDTO, error) {
	reservations, err := s.guard.Schedule(ctx, truckID)
	if err != nil {
		return nil, err
	}

	dtos := make([]ReservationDTO, len(reservations))
	for i, r := range reservations {
		dtos[i] = ReservationDTO{
			BookingID:      r.BookingID,
			WindowStart:    r.Window.Start,
			WindowEnd:      r.Window.End,
			EffectiveStart: r.Window.EffectiveStart(),
			EffectiveEnd:   r.Window.EffectiveEnd(),
		}
	}
	return dtos, nil
}

// Quote prices a move against the organization's active configuration without
// persisting anything.
func (s *BookingService) Quote(ctx context.Context, orgID uuid.UUID, move bookingDomain.MoveDetails) (*pricing.PriceBreakdown, error) {
	if err := move.Validate(); err != nil {
		return nil, err
	}

	cfg, err := s.configs.FindActiveByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.engine.Price(toPricingMove(move), cfg)
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// Rebook creates a fresh pending booking from a cancelled one with a new move
// date, repriced against the organization's current configuration. The
// original booking and its refund decision are untouched.
func (s *BookingService) Rebook(ctx context.Context, bookingID uuid.UUID, moveDate time.Time) (*BookingDTO, error) {
	original, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if original.Status() != bookingDomain.StatusCancelled {
		return nil, domain.NewValidationError("only cancelled bookings can be rebooked")
	}

	move := original.Move()
	move.MoveDate = moveDate

	return s.CreateBooking(ctx, CreateBookingRequest{
		OrgID:    original.OrgID(),
		TruckID:  original.TruckID(),
		Customer: original.Customer(),
		Move:     move,
	})
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toBookingDTO(bk), nil
}

// GetBookingByNumber retrieves a booking by its booking number.
func (s *BookingService) GetBookingByNumber(ctx context.Context, number string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return toBookingDTO(bk), nil
}

// GetHistory returns a booking's audit trail in transition order.
func (s *BookingService) GetHistory(ctx context.Context, bookingID uuid.UUID) ([]StatusRecordDTO, error) {
	if _, err := s.bookings.FindByID(ctx, bookingID); err != nil {
		return nil, err
	}

	records, err := s.history.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	dtos := make([]StatusRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = StatusRecordDTO{
			FromStatus:     string(r.FromStatus),
			ToStatus:       string(r.ToStatus),
			ActorID:        r.ActorID,
			ActorType:      string(r.ActorType),
			Reason:         r.Reason,
			TransitionedAt: r.TransitionedAt,
		}
	}
	return dtos, nil
}

// ListBookings returns the organization's bookings with pagination.
func (s *BookingService) ListBookings(ctx context.Context, orgID uuid.UUID, page, limit int) ([]*BookingDTO, int64, error) {
	bookings, total, err := s.bookings.ListByOrg(ctx, orgID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toBookingDTOs(bookings), total, nil
}

// ListAllBookings returns all bookings with pagination (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]*BookingDTO, int64, error) {
	bookings, total, err := s.bookings.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toBookingDTOs(bookings), total, nil
}

// BookingStats returns booking counts grouped by status (admin).
func (s *BookingService) BookingStats(ctx context.Context) (map[string]int64, error) {
	return s.bookings.CountByStatus(ctx)
}

// --- Helpers ---

// recordTransition appends the audit record and publishes the status-changed
// event. Neither failure rolls back the transition itself; both are logged.
func (s *BookingService) recordTransition(ctx context.Context, bk *bookingDomain.Booking, from bookingDomain.BookingStatus, actorID *uuid.UUID, actorType bookingDomain.ActorType, reason string) {
	record := bookingDomain.NewStatusRecord(bk.ID(), from, bk.Status(), actorID, actorType, reason)
	if err := s.history.Append(ctx, record); err != nil {
		s.logger.Error("failed to append status record",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, events.TopicBookingEvents, bk.ID().String(), events.BookingStatusChanged, events.BookingStatusChangedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OrgID:         bk.OrgID(),
		FromStatus:    string(from),
		ToStatus:      string(bk.Status()),
		ActorID:       actorID,
		ActorType:     string(actorType),
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	})
}

func (s *BookingService) publish(ctx context.Context, topic, key, eventType string, payload any) {
	event, err := events.NewCloudEvent(eventSource, eventType, payload)
	if err != nil {
		s.logger.Error("failed to build cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		s.logger.Error("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// reserveWithRetry runs the guard's check-and-reserve, retrying when the
// per-truck critical section is briefly held by another caller. A conflict is
// a real answer and is never retried.
func (s *BookingService) reserveWithRetry(ctx context.Context, truckID *uuid.UUID, bookingID uuid.UUID, window bookingDomain.TimeWindow) (*scheduling.Reservation, error) {
	var lastErr error
	for attempt := 1; attempt <= lockRetryAttempts; attempt++ {
		reservation, err := s.guard.Reserve(ctx, truckID, bookingID, window)
		if err == nil || !isTransientLock(err) {
			return reservation, err
		}
		lastErr = err
		s.logger.Warn("reservation lock busy",
			zap.String("booking_id", bookingID.String()),
			zap.Int("attempt", attempt),
		)
		if attempt < lockRetryAttempts {
			if err := sleepBackoff(ctx); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// releaseQuietly frees the truck slot, retrying transient lock timeouts. The
// booking state change is already committed at this point, so a final failure
// is logged rather than surfaced.
func (s *BookingService) releaseQuietly(ctx context.Context, truckID, bookingID uuid.UUID) {
	var err error
	for attempt := 1; attempt <= lockRetryAttempts; attempt++ {
		err = s.guard.Release(ctx, truckID, bookingID)
		if err == nil || !isTransientLock(err) {
			break
		}
		if attempt < lockRetryAttempts {
			if sleepBackoff(ctx) != nil {
				break
			}
		}
	}
	if err != nil {
		s.logger.Error("failed to release reservation",
			zap.String("truck_id", truckID.String()),
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
	}
}

func isTransientLock(err error) bool {
	var lockErr *domain.TransientLockError
	return errors.As(err, &lockErr)
}

func sleepBackoff(ctx context.Context) error {
	select {
	case <-time.After(lockRetryBackoff):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toPricingMove(m bookingDomain.MoveDetails) pricing.Move {
	return pricing.Move{
		MoveDate:               m.MoveDate,
		EstimatedDistanceMiles: m.EstimatedDistanceMiles,
		EstimatedDurationHours: m.EstimatedDurationHours,
		PickupFloors:           m.Pickup.Floors,
		PickupHasElevator:      m.Pickup.HasElevator,
		DropoffFloors:          m.Dropoff.Floors,
		DropoffHasElevator:     m.Dropoff.HasElevator,
		SpecialItems:           m.SpecialItems,
	}
}

func toBookingDTO(bk *bookingDomain.Booking) *BookingDTO {
	return &BookingDTO{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OrgID:         bk.OrgID(),
		TruckID:       bk.TruckID(),
		Customer:      bk.Customer(),
		Move:          bk.Move(),
		Window:        bk.Window(),
		Status:        string(bk.Status()),
		Breakdown:     bk.Breakdown(),
		Refund:        bk.Refund(),
		CancelNote:    bk.CancelNote(),
		CancelledAt:   bk.CancelledAt(),
		CompletedAt:   bk.CompletedAt(),
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []*BookingDTO {
	dtos := make([]*BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}
