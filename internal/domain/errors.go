package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError indicates a malformed request that was rejected before
// reaching pricing or scheduling.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NotFoundError indicates the requested entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given entity and identifier.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError indicates a reservation overlaps existing commitments for the
// same resource. It carries the overlapping reservation IDs so the caller can
// surface enough detail for the customer to pick another slot.
type ConflictError struct {
	ResourceID     uuid.UUID
	OverlappingIDs []uuid.UUID
	Message        string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("resource %s has %d overlapping reservation(s)", e.ResourceID, len(e.OverlappingIDs))
}

// NewConflictError creates a ConflictError for a resource with the overlapping reservation IDs.
func NewConflictError(resourceID uuid.UUID, overlapping []uuid.UUID) *ConflictError {
	return &ConflictError{ResourceID: resourceID, OverlappingIDs: overlapping}
}

// NewStaleUpdateError creates a ConflictError for an optimistic-lock failure.
func NewStaleUpdateError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// TransientLockError indicates the per-resource critical section could not be
// acquired within the bounded wait. Unlike ConflictError it is retryable by
// the caller with backoff.
type TransientLockError struct {
	ResourceID uuid.UUID
}

func (e *TransientLockError) Error() string {
	return fmt.Sprintf("timed out waiting for reservation lock on resource %s", e.ResourceID)
}

// NewTransientLockError creates a TransientLockError for the given resource.
func NewTransientLockError(resourceID uuid.UUID) *TransientLockError {
	return &TransientLockError{ResourceID: resourceID}
}

// InvalidTransitionError indicates an illegal booking status change. It names
// both states so the caller can report the current and attempted status.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition booking from %s to %s", e.From, e.To)
}

// NewInvalidTransitionError creates an InvalidTransitionError naming both states.
func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

// PricingConfigError indicates a structurally invalid organization pricing
// configuration. It is raised at config load/validation time, never during
// price computation, and is surfaced to the organization rather than the
// customer.
type PricingConfigError struct {
	Reason string
}

func (e *PricingConfigError) Error() string {
	return fmt.Sprintf("invalid pricing configuration: %s", e.Reason)
}

// NewPricingConfigError creates a PricingConfigError with the given reason.
func NewPricingConfigError(format string, args ...any) *PricingConfigError {
	return &PricingConfigError{Reason: fmt.Sprintf(format, args...)}
}

// ForbiddenError indicates the actor is not allowed to perform the operation.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// NewForbiddenError creates a ForbiddenError with the given message.
func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}
