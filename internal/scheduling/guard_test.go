package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moveboard/service-booking/internal/domain"
	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
)

// memStore is an in-memory ReservationStore. It deliberately has no locking
// of its own beyond a mutex per call, mirroring the contract that the guard
// serializes check-and-insert per resource.
type memStore struct {
	mu           sync.Mutex
	reservations []Reservation
	// gate, when set, blocks FindOverlapping until released. Used to hold the
	// guard's critical section open from a test.
	gate chan struct{}
}

func (s *memStore) FindOverlapping(_ context.Context, resourceID uuid.UUID, window bookingDomain.TimeWindow) ([]Reservation, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if r.ResourceID == resourceID && r.Window.Overlaps(window) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, r Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations = append(s.reservations, r)
	return nil
}

func (s *memStore) DeleteByBooking(_ context.Context, resourceID, bookingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.reservations[:0]
	for _, r := range s.reservations {
		if r.ResourceID == resourceID && r.BookingID == bookingID {
			continue
		}
		kept = append(kept, r)
	}
	s.reservations = kept
	return nil
}

func (s *memStore) ListByResource(_ context.Context, resourceID uuid.UUID) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if r.ResourceID == resourceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func testWindow(t *testing.T, startHour int, hours int) bookingDomain.TimeWindow {
	t.Helper()
	start := time.Date(2026, 6, 10, startHour, 0, 0, 0, time.UTC)
	w, err := bookingDomain.NewTimeWindow(start, start.Add(time.Duration(hours)*time.Hour), 30)
	require.NoError(t, err)
	return w
}

func TestReserve_NilResourceTriviallySucceeds(t *testing.T) {
	guard := NewGuard(&memStore{}, time.Second, zap.NewNop())

	r, err := guard.Reserve(context.Background(), nil, uuid.New(), testWindow(t, 9, 4))
	require.NoError(t, err)
	assert.Nil(t, r, "no reservation without a truck")
}

func TestReserve_ThenConflict(t *testing.T) {
	store := &memStore{}
	guard := NewGuard(store, time.Second, zap.NewNop())
	truckID := uuid.New()

	first, err := guard.Reserve(context.Background(), &truckID, uuid.New(), testWindow(t, 9, 4))
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = guard.Reserve(context.Background(), &truckID, uuid.New(), testWindow(t, 10, 2))
	require.Error(t, err)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, truckID, conflictErr.ResourceID)
	assert.Equal(t, []uuid.UUID{first.ID}, conflictErr.OverlappingIDs)
}

func TestReserve_DifferentTrucksDoNotContend(t *testing.T) {
	guard := NewGuard(&memStore{}, time.Second, zap.NewNop())
	truckA, truckB := uuid.New(), uuid.New()
	window := testWindow(t, 9, 4)

	_, err := guard.Reserve(context.Background(), &truckA, uuid.New(), window)
	require.NoError(t, err)
	_, err = guard.Reserve(context.Background(), &truckB, uuid.New(), window)
	require.NoError(t, err)
}

func TestRelease_FreesTheSlot(t *testing.T) {
	store := &memStore{}
	guard := NewGuard(store, time.Second, zap.NewNop())
	truckID := uuid.New()
	bookingID := uuid.New()
	window := testWindow(t, 9, 4)

	_, err := guard.Reserve(context.Background(), &truckID, bookingID, window)
	require.NoError(t, err)

	require.NoError(t, guard.Release(context.Background(), truckID, bookingID))

	_, err = guard.Reserve(context.Background(), &truckID, uuid.New(), window)
	assert.NoError(t, err, "slot is free again after release")
}

// The core guarantee: many goroutines racing for one overlapping slot on one
// truck produce exactly one reservation.
func TestReserve_ConcurrentRaceAdmitsExactlyOne(t *testing.T) {
	store := &memStore{}
	guard := NewGuard(store, 5*time.Second, zap.NewNop())
	truckID := uuid.New()
	window := testWindow(t, 9, 4)

	const racers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	var successes, conflicts int

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := guard.Reserve(context.Background(), &truckID, uuid.New(), window)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			default:
				var conflictErr *domain.ConflictError
				if assert.ErrorAs(t, err, &conflictErr) {
					conflicts++
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one racer wins")
	assert.Equal(t, racers-1, conflicts)

	stored, err := store.ListByResource(context.Background(), truckID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestReserve_BoundedWaitTimesOut(t *testing.T) {
	store := &memStore{gate: make(chan struct{})}
	guard := NewGuard(store, 50*time.Millisecond, zap.NewNop())
	truckID := uuid.New()

	// First caller enters the critical section and parks inside the store.
	go func() {
		_, _ = guard.Reserve(context.Background(), &truckID, uuid.New(), testWindow(t, 9, 4))
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := guard.Reserve(context.Background(), &truckID, uuid.New(), testWindow(t, 14, 2))
	require.Error(t, err)
	var lockErr *domain.TransientLockError
	assert.ErrorAs(t, err, &lockErr, "bounded wait yields a retryable error, not a conflict")

	close(store.gate)
}

func TestSchedule_ListsHeldSlots(t *testing.T) {
	store := &memStore{}
	guard := NewGuard(store, time.Second, zap.NewNop())
	truckID := uuid.New()

	morning, err := guard.Reserve(context.Background(), &truckID, uuid.New(), testWindow(t, 9, 2))
	require.NoError(t, err)
	afternoon, err := guard.Reserve(context.Background(), &truckID, uuid.New(), testWindow(t, 15, 2))
	require.NoError(t, err)

	schedule, err := guard.Schedule(context.Background(), truckID)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, morning.ID, schedule[0].ID)
	assert.Equal(t, afternoon.ID, schedule[1].ID)

	empty, err := guard.Schedule(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConflicts_ReadOnly(t *testing.T) {
	store := &memStore{}
	guard := NewGuard(store, time.Second, zap.NewNop())
	truckID := uuid.New()

	_, err := guard.Reserve(context.Background(), &truckID, uuid.New(), testWindow(t, 9, 4))
	require.NoError(t, err)

	conflicts, err := guard.Conflicts(context.Background(), truckID, testWindow(t, 10, 1))
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)

	stored, err := store.ListByResource(context.Background(), truckID)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "Conflicts never writes")
}
