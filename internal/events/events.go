package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kafka topics this service produces to and consumes from.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Event types on booking.events.
const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	BookingCancelled     = "booking.cancelled"
)

// Event types on payment.events (produced by the payment collaborator).
const (
	PaymentCaptured        = "payment.captured"
	PaymentRefundCompleted = "payment.refund_completed"
	PaymentRefundFailed    = "payment.refund_failed"
)

// BookingCreatedEvent announces a new pending booking.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID       `json:"booking_id"`
	BookingNumber string          `json:"booking_number"`
	OrgID         uuid.UUID       `json:"org_id"`
	TruckID       *uuid.UUID      `json:"truck_id,omitempty"`
	MoveDate      time.Time       `json:"move_date"`
	Total         decimal.Decimal `json:"total"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// BookingStatusChangedEvent is emitted for every accepted status transition.
// The notification system consumes it asynchronously; this service performs
// no email/SMS I/O itself.
type BookingStatusChangedEvent struct {
	BookingID     uuid.UUID  `json:"booking_id"`
	BookingNumber string     `json:"booking_number"`
	OrgID         uuid.UUID  `json:"org_id"`
	FromStatus    string     `json:"from_status"`
	ToStatus      string     `json:"to_status"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
	ActorType     string     `json:"actor_type"`
	Reason        string     `json:"reason,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// BookingCancelledEvent carries the refund decision for the payment
// collaborator to execute.
type BookingCancelledEvent struct {
	BookingID      uuid.UUID       `json:"booking_id"`
	BookingNumber  string          `json:"booking_number"`
	OrgID          uuid.UUID       `json:"org_id"`
	CancelledBy    *uuid.UUID      `json:"cancelled_by,omitempty"`
	Reason         string          `json:"reason"`
	RefundFraction decimal.Decimal `json:"refund_fraction"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// PaymentCapturedEvent signals a successful customer payment; the booking
// service confirms the pending booking in response.
type PaymentCapturedEvent struct {
	PaymentID  uuid.UUID       `json:"payment_id"`
	BookingID  uuid.UUID       `json:"booking_id"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// RefundResultEvent reports the outcome of an attempted refund. It never
// changes the refund decision, only whether a retry is warranted.
type RefundResultEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	BookingID     uuid.UUID       `json:"booking_id"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	FailureReason string          `json:"failure_reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
