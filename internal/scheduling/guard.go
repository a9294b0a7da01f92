package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moveboard/service-booking/internal/domain"
	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
)

// Reservation is a committed claim on a resource's effective time window.
type Reservation struct {
	ID         uuid.UUID
	ResourceID uuid.UUID
	BookingID  uuid.UUID
	Window     bookingDomain.TimeWindow
	CreatedAt  time.Time
}

// ReservationStore is the persistence contract behind the guard. The guard
// serializes all calls for a given resource, so implementations only need
// per-call atomicity, not their own overlap locking. A storage engine with a
// native exclusion constraint may additionally reject overlapping inserts as
// defense in depth.
type ReservationStore interface {
	// FindOverlapping returns reservations for the resource whose effective
	// windows intersect the candidate window.
	FindOverlapping(ctx context.Context, resourceID uuid.UUID, window bookingDomain.TimeWindow) ([]Reservation, error)

	// Insert persists a reservation.
	Insert(ctx context.Context, r Reservation) error

	// DeleteByBooking removes the booking's reservation on the resource.
	DeleteByBooking(ctx context.Context, resourceID, bookingID uuid.UUID) error

	// ListByResource returns all reservations for a resource ordered by
	// effective start.
	ListByResource(ctx context.Context, resourceID uuid.UUID) ([]Reservation, error)
}

// Guard guarantees that no two bookings hold overlapping effective windows on
// the same resource, under concurrent reservation attempts. Check-and-reserve
// runs inside a per-resource critical section: there is no window where two
// callers both observe "no conflict" and both commit.
type Guard struct {
	store    ReservationStore
	locks    *keyedLocks
	lockWait time.Duration
	logger   *zap.Logger
}

// NewGuard creates a Guard. lockWait bounds how long a reservation attempt
// may wait for the per-resource critical section before failing with a
// retryable TransientLockError.
func NewGuard(store ReservationStore, lockWait time.Duration, logger *zap.Logger) *Guard {
	return &Guard{
		store:    store,
		locks:    newKeyedLocks(),
		lockWait: lockWait,
		logger:   logger,
	}
}

// Reserve atomically verifies that no overlapping reservation exists for the
// resource and claims the slot. A nil resourceID means the booking has no
// truck yet; the reservation trivially succeeds and conflict checking is
// deferred to assignment time.
func (g *Guard) Reserve(ctx context.Context, resourceID *uuid.UUID, bookingID uuid.UUID, window bookingDomain.TimeWindow) (*Reservation, error) {
	if resourceID == nil {
		return nil, nil
	}

	if err := g.locks.acquire(ctx, *resourceID, g.lockWait); err != nil {
		return nil, err
	}
	defer g.locks.release(*resourceID)

	overlapping, err := g.store.FindOverlapping(ctx, *resourceID, window)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		ids := make([]uuid.UUID, len(overlapping))
		for i, r := range overlapping {
			ids[i] = r.ID
		}
		g.logger.Warn("reservation conflict",
			zap.String("resource_id", resourceID.String()),
			zap.Int("overlapping", len(ids)),
		)
		return nil, domain.NewConflictError(*resourceID, ids)
	}

	reservation := Reservation{
		ID:         uuid.New(),
		ResourceID: *resourceID,
		BookingID:  bookingID,
		Window:     window,
		CreatedAt:  time.Now().UTC(),
	}
	if err := g.store.Insert(ctx, reservation); err != nil {
		return nil, err
	}

	g.logger.Debug("slot reserved",
		zap.String("resource_id", resourceID.String()),
		zap.String("booking_id", bookingID.String()),
	)
	return &reservation, nil
}

// Release removes the booking's reservation on the resource. It takes the
// same per-resource critical section as Reserve, so a released slot can never
// ghost back while a concurrent insert is mid-flight.
func (g *Guard) Release(ctx context.Context, resourceID, bookingID uuid.UUID) error {
	if err := g.locks.acquire(ctx, resourceID, g.lockWait); err != nil {
		return err
	}
	defer g.locks.release(resourceID)

	return g.store.DeleteByBooking(ctx, resourceID, bookingID)
}

// Schedule lists every reservation held on the resource, earliest effective
// start first. Read-only.
func (g *Guard) Schedule(ctx context.Context, resourceID uuid.UUID) ([]Reservation, error) {
	return g.store.ListByResource(ctx, resourceID)
}

// Conflicts returns the reservations overlapping the candidate window without
// reserving anything. Read-only; used by availability checks.
func (g *Guard) Conflicts(ctx context.Context, resourceID uuid.UUID, window bookingDomain.TimeWindow) ([]Reservation, error) {
	return g.store.FindOverlapping(ctx, resourceID, window)
}

// keyedLocks is a set of per-key binary semaphores with bounded-wait acquire.
type keyedLocks struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{slots: make(map[uuid.UUID]chan struct{})}
}

func (l *keyedLocks) acquire(ctx context.Context, key uuid.UUID, wait time.Duration) error {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.NewTransientLockError(key)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *keyedLocks) release(key uuid.UUID) {
	l.mu.Lock()
	slot := l.slots[key]
	l.mu.Unlock()
	<-slot
}
