package booking

import (
	"time"

	"github.com/moveboard/service-booking/internal/domain"
)

// TimeWindow is a half-open interval [Start, End) in UTC plus a commute
// buffer padded symmetrically on both sides. The padded interval is the one
// actually checked for overlap.
type TimeWindow struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	BufferMinutes int       `json:"buffer_minutes"`
}

// NewTimeWindow creates a validated TimeWindow. Timestamps are normalized to UTC.
func NewTimeWindow(start, end time.Time, bufferMinutes int) (TimeWindow, error) {
	if !start.Before(end) {
		return TimeWindow{}, domain.NewValidationError("window start must be before end")
	}
	if bufferMinutes < 0 {
		return TimeWindow{}, domain.NewValidationError("buffer minutes cannot be negative")
	}
	return TimeWindow{
		Start:         start.UTC(),
		End:           end.UTC(),
		BufferMinutes: bufferMinutes,
	}, nil
}

// WindowForMove derives the window for a move starting at moveDate and
// lasting durationHours.
func WindowForMove(moveDate time.Time, durationHours float64, bufferMinutes int) (TimeWindow, error) {
	if durationHours <= 0 {
		return TimeWindow{}, domain.NewValidationError("estimated duration must be positive")
	}
	end := moveDate.Add(time.Duration(durationHours * float64(time.Hour)))
	return NewTimeWindow(moveDate, end, bufferMinutes)
}

// EffectiveStart returns the window start minus the commute buffer.
func (w TimeWindow) EffectiveStart() time.Time {
	return w.Start.Add(-time.Duration(w.BufferMinutes) * time.Minute)
}

// EffectiveEnd returns the window end plus the commute buffer.
func (w TimeWindow) EffectiveEnd() time.Time {
	return w.End.Add(time.Duration(w.BufferMinutes) * time.Minute)
}

// Overlaps reports whether the effective intervals of two windows intersect.
// Intervals are half-open: [a,b) and [c,d) overlap iff a < d && c < b.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.EffectiveStart().Before(other.EffectiveEnd()) &&
		other.EffectiveStart().Before(w.EffectiveEnd())
}

// Duration returns the unpadded length of the window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
