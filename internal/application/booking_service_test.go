package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moveboard/service-booking/internal/domain"
	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
	"github.com/moveboard/service-booking/internal/domain/pricing"
	"github.com/moveboard/service-booking/internal/events"
	"github.com/moveboard/service-booking/internal/scheduling"
)

// --- Fakes ---

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookingDomain.Booking
	versions map[uuid.UUID]int64
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{
		bookings: make(map[uuid.UUID]*bookingDomain.Booking),
		versions: make(map[uuid.UUID]int64),
	}
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return bk, nil
}

func (r *memBookingRepo) FindByNumber(_ context.Context, number string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.bookings {
		if bk.BookingNumber() == number {
			return bk, nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", number)
}

func (r *memBookingRepo) ListByOrg(_ context.Context, orgID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.OrgID() == orgID {
			out = append(out, bk)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) ListAll(_ context.Context, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		out = append(out, bk)
	}
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *memBookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[bk.ID()] = bk
	r.versions[bk.ID()] = bk.Version()
	return nil
}

func (r *memBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.versions[bk.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", bk.ID().String())
	}
	if stored != bk.Version()-1 {
		return domain.NewStaleUpdateError("booking was modified by another transaction")
	}
	r.bookings[bk.ID()] = bk
	r.versions[bk.ID()] = bk.Version()
	return nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	records []bookingDomain.StatusRecord
}

func (r *memHistoryRepo) Append(_ context.Context, record bookingDomain.StatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *memHistoryRepo) ListByBooking(_ context.Context, bookingID uuid.UUID) ([]bookingDomain.StatusRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bookingDomain.StatusRecord
	for _, rec := range r.records {
		if rec.BookingID == bookingID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memConfigRepo struct {
	cfg *pricing.PricingConfig
}

func (r *memConfigRepo) FindActiveByOrg(_ context.Context, orgID uuid.UUID) (*pricing.PricingConfig, error) {
	if r.cfg == nil {
		return nil, domain.NewNotFoundError("PricingConfig", orgID.String())
	}
	return r.cfg, nil
}

func (r *memConfigRepo) Save(_ context.Context, cfg *pricing.PricingConfig) error {
	r.cfg = cfg
	return nil
}

type memReservationStore struct {
	mu           sync.Mutex
	reservations []scheduling.Reservation
}

func (s *memReservationStore) FindOverlapping(_ context.Context, resourceID uuid.UUID, window bookingDomain.TimeWindow) ([]scheduling.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scheduling.Reservation
	for _, r := range s.reservations {
		if r.ResourceID == resourceID && r.Window.Overlaps(window) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memReservationStore) Insert(_ context.Context, r scheduling.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations = append(s.reservations, r)
	return nil
}

func (s *memReservationStore) DeleteByBooking(_ context.Context, resourceID, bookingID uuid.UUID) error {
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

func (s *memReservationStore) ListByResource(_ context.Context, resourceID uuid.UUID) ([]scheduling.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scheduling.Reservation
	for _, r := range s.reservations {
		if r.ResourceID == resourceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memReservationStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

// gatedReservationStore parks FindOverlapping until the gate closes, holding
// the guard's per-truck critical section open from the test.
type gatedReservationStore struct {
	memReservationStore
	gate chan struct{}
}

func (s *gatedReservationStore) FindOverlapping(ctx context.Context, resourceID uuid.UUID, window bookingDomain.TimeWindow) ([]scheduling.Reservation, error) {
	<-s.gate
	return s.memReservationStore.FindOverlapping(ctx, resourceID, window)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu       sync.Mutex
	captured []events.CloudEvent
}

func (p *recordingPublisher) Publish(_ context.Context, _, _ string, event events.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captured = append(p.captured, event)
	return nil
}

func (p *recordingPublisher) eventsOfType(eventType string) []events.CloudEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.CloudEvent
	for _, e := range p.captured {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// --- Fixtures ---

type serviceFixture struct {
	svc       *BookingService
	bookings  *memBookingRepo
	history   *memHistoryRepo
	store     *memReservationStore
	publisher *recordingPublisher
	orgID     uuid.UUID
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	bookings := newMemBookingRepo()
	history := &memHistoryRepo{}
	store := &memReservationStore{}
	publisher := &recordingPublisher{}

	configs := &memConfigRepo{cfg: &pricing.PricingConfig{
		BaseHourlyRate:  decimal.RequireFromString("150"),
		BaseMileageRate: decimal.RequireFromString("2.50"),
		MinimumCharge:   decimal.Zero,
		SurchargeRules: []pricing.SurchargeRule{
			{Kind: pricing.RuleStairs, Enabled: true, RatePerFlight: decimal.RequireFromString("50")},
		},
	}}

	engine := pricing.NewEngine(decimal.RequireFromString("0.05"))
	guard := scheduling.NewGuard(store, time.Second, zap.NewNop())
	policy := bookingDomain.NewCancellationPolicy()

	svc := NewBookingService(bookings, history, configs, engine, guard, policy, publisher, 30, zap.NewNop())
	return &serviceFixture{
		svc:       svc,
		bookings:  bookings,
		history:   history,
		store:     store,
		publisher: publisher,
		orgID:     uuid.New(),
	}
}

func fixtureMove(daysAhead int) bookingDomain.MoveDetails {
	return bookingDomain.MoveDetails{
		MoveDate:               time.Now().UTC().AddDate(0, 0, daysAhead).Truncate(time.Hour),
		EstimatedDistanceMiles: 10,
		EstimatedDurationHours: 4,
		Pickup:                 bookingDomain.Location{Address: "12 Oak St", City: "Austin", State: "TX", Zip: "78701"},
		Dropoff:                bookingDomain.Location{Address: "88 Pine Ave", City: "Austin", State: "TX", Zip: "78704"},
	}
}

func fixtureCustomer() bookingDomain.CustomerContact {
	return bookingDomain.CustomerContact{Name: "Dana Lee", Email: "dana@example.com", Phone: "+1-555-0100"}
}

func (f *serviceFixture) create(t *testing.T, truckID *uuid.UUID, daysAhead int) *BookingDTO {
	t.Helper()
	dto, err := f.svc.CreateBooking(context.Background(), CreateBookingRequest{
		OrgID:    f.orgID,
		TruckID:  truckID,
		Customer: fixtureCustomer(),
		Move:     fixtureMove(daysAhead),
	})
	require.NoError(t, err)
	return dto
}

// --- Tests ---

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	truckID := uuid.New()

	dto := f.create(t, &truckID, 7)

	assert.Equal(t, "pending", dto.Status)
	assert.Regexp(t, `^MV-`, dto.BookingNumber)
	assert.True(t, dto.Breakdown.Total.Equal(decimal.RequireFromString("625.00")), "total: %s", dto.Breakdown.Total)
	assert.True(t, dto.Breakdown.PlatformFee.Equal(decimal.RequireFromString("31.25")))
	assert.Equal(t, 1, f.store.count(), "truck slot reserved")

	created := f.publisher.eventsOfType(events.BookingCreated)
	require.Len(t, created, 1)
	var payload events.BookingCreatedEvent
	require.NoError(t, created[0].ParseData(&payload))
	assert.Equal(t, dto.ID, payload.BookingID)
}

func TestCreateBooking_WithoutTruckSkipsReservation(t *testing.T) {
	f := newFixture(t)

	dto := f.create(t, nil, 7)

	assert.Nil(t, dto.TruckID)
	assert.Equal(t, 0, f.store.count())
}

func TestCreateBooking_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	truckID := uuid.New()

	f.create(t, &truckID, 7)

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingRequest{
		OrgID:    f.orgID,
		TruckID:  &truckID,
		Customer: fixtureCustomer(),
		Move:     fixtureMove(7),
	})
	require.Error(t, err)
	var conflictErr *domain.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, 1, f.store.count(), "loser reserved nothing")
}

func TestConfirmFromPayment(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, nil, 7)

	event := events.PaymentCapturedEvent{
		PaymentID: uuid.New(),
		BookingID: dto.ID,
		Amount:    dto.Breakdown.Total,
	}
	require.NoError(t, f.svc.ConfirmFromPayment(context.Background(), event))

	confirmed, err := f.svc.GetBooking(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", confirmed.Status)

	history, err := f.svc.GetHistory(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "pending", history[0].FromStatus)
	assert.Equal(t, "confirmed", history[0].ToStatus)
	assert.Equal(t, "system", history[0].ActorType)

	// Replayed capture events are idempotent.
	require.NoError(t, f.svc.ConfirmFromPayment(context.Background(), event))
	history, err = f.svc.GetHistory(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTransition_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	truckID := uuid.New()
	dto := f.create(t, &truckID, 7)
	actorID := uuid.New()

	_, err := f.svc.Transition(context.Background(), TransitionRequest{
		BookingID: dto.ID, ToStatus: bookingDomain.StatusConfirmed,
		ActorID: &actorID, ActorType: bookingDomain.ActorAdmin, Reason: "manual confirm",
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), TransitionRequest{
		BookingID: dto.ID, ToStatus: bookingDomain.StatusInProgress,
		ActorID: &actorID, ActorType: bookingDomain.ActorMoverStaff,
	})
	require.NoError(t, err)

	result, err := f.svc.Transition(context.Background(), TransitionRequest{
		BookingID: dto.ID, ToStatus: bookingDomain.StatusCompleted,
		ActorID: &actorID, ActorType: bookingDomain.ActorMoverStaff,
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", result.Status)
	assert.NotNil(t, result.CompletedAt)
	assert.Equal(t, 0, f.store.count(), "completion frees the truck slot")
	assert.Len(t, f.publisher.eventsOfType(events.BookingStatusChanged), 3)
}

func TestTransition_IllegalPairRejected(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, nil, 7)

	_, err := f.svc.Transition(context.Background(), TransitionRequest{
		BookingID: dto.ID, ToStatus: bookingDomain.StatusCompleted,
		ActorType: bookingDomain.ActorAdmin,
	})
	require.Error(t, err)
	var transitionErr *domain.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)

	history, err := f.svc.GetHistory(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "rejected transitions leave no audit record")
}

func TestCancelBooking_RefundAndRelease(t *testing.T) {
	f := newFixture(t)
	truckID := uuid.New()

	// Move in ~50 hours lands in the 75% tier.
	dto, err := f.svc.CreateBooking(context.Background(), CreateBookingRequest{
		OrgID:    f.orgID,
		TruckID:  &truckID,
		Customer: fixtureCustomer(),
		Move: func() bookingDomain.MoveDetails {
			m := fixtureMove(0)
			m.MoveDate = time.Now().UTC().Add(50 * time.Hour)
			return m
		}(),
	})
	require.NoError(t, err)

	actorID := uuid.New()
	result, err := f.svc.CancelBooking(context.Background(), CancelBookingRequest{
		BookingID: dto.ID,
		ActorID:   &actorID,
		ActorType: bookingDomain.ActorCustomer,
		Reason:    "found another mover",
	})
	require.NoError(t, err)

	assert.Equal(t, "cancelled", result.Status)
	require.NotNil(t, result.Refund)
	assert.True(t, result.Refund.RefundFraction.Equal(decimal.RequireFromString("0.75")))
	// 625 * 0.75
	assert.True(t, result.Refund.RefundAmount.Equal(decimal.RequireFromString("468.75")),
		"refund: %s", result.Refund.RefundAmount)
	assert.Equal(t, 0, f.store.count(), "cancellation frees the truck slot")

	cancelled := f.publisher.eventsOfType(events.BookingCancelled)
	require.Len(t, cancelled, 1)
	var payload events.BookingCancelledEvent
	require.NoError(t, cancelled[0].ParseData(&payload))
	assert.True(t, payload.RefundAmount.Equal(result.Refund.RefundAmount))
}

func TestCancelBooking_TerminalRejected(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, nil, 7)

	_, err := f.svc.CancelBooking(context.Background(), CancelBookingRequest{
		BookingID: dto.ID, ActorType: bookingDomain.ActorCustomer,
	})
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(context.Background(), CancelBookingRequest{
		BookingID: dto.ID, ActorType: bookingDomain.ActorCustomer,
	})
	require.Error(t, err)
	var transitionErr *domain.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestAssignTruck(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, nil, 7)
	truckID := uuid.New()

	result, err := f.svc.AssignTruck(context.Background(), dto.ID, truckID)
	require.NoError(t, err)
	require.NotNil(t, result.TruckID)
	assert.Equal(t, truckID, *result.TruckID)
	assert.Equal(t, 1, f.store.count())

	// Another booking cannot take the same slot now.
	other := f.create(t, nil, 7)
	_, err = f.svc.AssignTruck(context.Background(), other.ID, truckID)
	require.Error(t, err)
	var conflictErr *domain.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	truckID := uuid.New()
	move := fixtureMove(7)
	f.create(t, &truckID, 7)

	result, err := f.svc.CheckAvailability(context.Background(), truckID, move.MoveDate, 4)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Len(t, result.ConflictingIDs, 1)
	require.NotNil(t, result.SuggestedStart)
	assert.True(t, result.SuggestedStart.After(move.MoveDate.Add(4*time.Hour)),
		"suggested slot clears the blocking reservation")

	free, err := f.svc.CheckAvailability(context.Background(), truckID, move.MoveDate.AddDate(0, 0, 1), 4)
	require.NoError(t, err)
	assert.True(t, free.Available)
	assert.Nil(t, free.SuggestedStart)
}

func TestQuote_DoesNotPersist(t *testing.T) {
	f := newFixture(t)

	breakdown, err := f.svc.Quote(context.Background(), f.orgID, fixtureMove(7))
	require.NoError(t, err)
	assert.True(t, breakdown.Total.Equal(decimal.RequireFromString("625.00")))

	_, total, err := f.svc.ListBookings(context.Background(), f.orgID, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.publisher.captured)
}

func TestRebook_OnlyFromCancelled(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, nil, 7)

	_, err := f.svc.Rebook(context.Background(), dto.ID, time.Now().UTC().AddDate(0, 0, 14))
	require.Error(t, err, "pending bookings cannot be rebooked")

	_, err = f.svc.CancelBooking(context.Background(), CancelBookingRequest{
		BookingID: dto.ID, ActorType: bookingDomain.ActorCustomer, Reason: "postponing",
	})
	require.NoError(t, err)

	newDate := time.Now().UTC().AddDate(0, 0, 14).Truncate(time.Hour)
	rebooked, err := f.svc.Rebook(context.Background(), dto.ID, newDate)
	require.NoError(t, err)

	assert.NotEqual(t, dto.ID, rebooked.ID)
	assert.Equal(t, "pending", rebooked.Status)
	assert.Equal(t, newDate, rebooked.Move.MoveDate)
	assert.NotEqual(t, dto.BookingNumber, rebooked.BookingNumber)

	original, err := f.svc.GetBooking(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", original.Status, "original is untouched")
}

func TestTruckSchedule(t *testing.T) {
	f := newFixture(t)
	truckID := uuid.New()
	first := f.create(t, &truckID, 7)
	second := f.create(t, &truckID, 8)

	schedule, err := f.svc.TruckSchedule(context.Background(), truckID)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, first.ID, schedule[0].BookingID)
	assert.Equal(t, second.ID, schedule[1].BookingID)
	assert.Equal(t, first.Window.Start, schedule[0].WindowStart)
	assert.True(t, schedule[0].EffectiveStart.Before(schedule[0].WindowStart),
		"padded bound includes the commute buffer")

	other, err := f.svc.TruckSchedule(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}

// newContendedFixture builds a service around a caller-supplied store and
// lock wait, for exercising lock contention on the guard.
func newContendedFixture(t *testing.T, store scheduling.ReservationStore, lockWait time.Duration) (*BookingService, *scheduling.Guard) {
	t.Helper()
	configs := &memConfigRepo{cfg: &pricing.PricingConfig{
		BaseHourlyRate:  decimal.RequireFromString("150"),
		BaseMileageRate: decimal.RequireFromString("2.50"),
		MinimumCharge:   decimal.Zero,
	}}
	guard := scheduling.NewGuard(store, lockWait, zap.NewNop())
	svc := NewBookingService(newMemBookingRepo(), &memHistoryRepo{}, configs,
		pricing.NewEngine(decimal.RequireFromString("0.05")), guard,
		bookingDomain.NewCancellationPolicy(), &recordingPublisher{}, 30, zap.NewNop())
	return svc, guard
}

func TestCreateBooking_RetriesBriefLockContention(t *testing.T) {
	store := &gatedReservationStore{gate: make(chan struct{})}
	svc, guard := newContendedFixture(t, store, 40*time.Millisecond)
	truckID := uuid.New()

	// A competing caller enters the per-truck critical section and parks
	// inside the store, on a window far from the one under test.
	holderWindow, err := bookingDomain.WindowForMove(
		time.Now().UTC().AddDate(0, 0, 14).Truncate(time.Hour), 4, 30)
	require.NoError(t, err)
	holderDone := make(chan struct{})
	go func() {
		defer close(holderDone)
		_, _ = guard.Reserve(context.Background(), &truckID, uuid.New(), holderWindow)
	}()
	time.Sleep(10 * time.Millisecond)
	time.AfterFunc(60*time.Millisecond, func() { close(store.gate) })

	// The first attempt times out on the lock; a retry lands once the holder
	// has finished.
	dto, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
		OrgID: uuid.New(), TruckID: &truckID, Customer: fixtureCustomer(), Move: fixtureMove(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", dto.Status)
	<-holderDone
	assert.Equal(t, 2, store.count())
}

func TestCreateBooking_LockTimeoutSurfacesAfterRetries(t *testing.T) {
	store := &gatedReservationStore{gate: make(chan struct{})}
	defer close(store.gate)
	svc, guard := newContendedFixture(t, store, 20*time.Millisecond)
	truckID := uuid.New()

	holderWindow, err := bookingDomain.WindowForMove(
		time.Now().UTC().AddDate(0, 0, 14).Truncate(time.Hour), 4, 30)
	require.NoError(t, err)
	go func() {
		_, _ = guard.Reserve(context.Background(), &truckID, uuid.New(), holderWindow)
	}()
	time.Sleep(10 * time.Millisecond)

	// The holder never lets go, so every attempt times out and the error
	// reaches the caller as retryable.
	_, err = svc.CreateBooking(context.Background(), CreateBookingRequest{
		OrgID: uuid.New(), TruckID: &truckID, Customer: fixtureCustomer(), Move: fixtureMove(7),
	})
	require.Error(t, err)
	var lockErr *domain.TransientLockError
	assert.ErrorAs(t, err, &lockErr)
}

func TestBookingStats(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, nil, 7)
	f.create(t, nil, 8)

	_, err := f.svc.CancelBooking(context.Background(), CancelBookingRequest{
		BookingID: a.ID, ActorType: bookingDomain.ActorCustomer,
	})
	require.NoError(t, err)

	stats, err := f.svc.BookingStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["pending"])
	assert.Equal(t, int64(1), stats["cancelled"])
}
