package booking

import (
	"time"

	"github.com/google/uuid"
)

// ActorType classifies who performed a status transition.
type ActorType string

const (
	ActorCustomer   ActorType = "customer"
	ActorMoverStaff ActorType = "mover_staff"
	ActorAdmin      ActorType = "admin"
	ActorSystem     ActorType = "system"
)

// StatusRecord is one row of the append-only booking audit trail. Records are
// never mutated or deleted; the trail is the sole source of truth for who
// changed what, when.
type StatusRecord struct {
	ID             uuid.UUID
	BookingID      uuid.UUID
	FromStatus     BookingStatus
	ToStatus       BookingStatus
	ActorID        *uuid.UUID
	ActorType      ActorType
	Reason         string
	TransitionedAt time.Time
}

// NewStatusRecord creates an audit record for a transition that just happened.
func NewStatusRecord(bookingID uuid.UUID, from, to BookingStatus, actorID *uuid.UUID, actorType ActorType, reason string) StatusRecord {
	return StatusRecord{
		ID:             uuid.New(),
		BookingID:      bookingID,
		FromStatus:     from,
		ToStatus:       to,
		ActorID:        actorID,
		ActorType:      actorType,
		Reason:         reason,
		TransitionedAt: time.Now().UTC(),
	}
}
