package booking

import (
	"strings"
	"time"

	"github.com/moveboard/service-booking/internal/domain"
)

// Location is a value object describing one end of a move.
type Location struct {
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	Floors      int    `json:"floors"`
	HasElevator bool   `json:"has_elevator"`
}

// CustomerContact identifies the customer requesting the move. No account is
// required to book.
type CustomerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// MoveDetails is an immutable value object describing the requested move.
type MoveDetails struct {
	MoveDate               time.Time `json:"move_date"`
	EstimatedDistanceMiles float64   `json:"estimated_distance_miles"`
	EstimatedDurationHours float64   `json:"estimated_duration_hours"`
	Pickup                 Location  `json:"pickup"`
	Dropoff                Location  `json:"dropoff"`
	SpecialItems           []string  `json:"special_items"`
	Notes                  string    `json:"notes"`
}

// Validate checks the move description before it reaches pricing or scheduling.
func (m MoveDetails) Validate() error {
	if m.MoveDate.IsZero() {
		return domain.NewValidationError("move date is required")
	}
	if m.EstimatedDistanceMiles < 0 {
		return domain.NewValidationError("estimated distance cannot be negative")
	}
	if m.EstimatedDurationHours <= 0 {
		return domain.NewValidationError("estimated duration must be positive")
	}
	if m.Pickup.Address == "" {
		return domain.NewValidationError("pickup address is required")
	}
	if m.Dropoff.Address == "" {
		return domain.NewValidationError("dropoff address is required")
	}
	if m.Pickup.Floors < 0 || m.Dropoff.Floors < 0 {
		return domain.NewValidationError("floors cannot be negative")
	}
	return nil
}

// DistinctSpecialItems returns the special items lowercased and deduplicated,
// preserving first-seen order. The same item listed twice never double-counts
// in pricing.
func (m MoveDetails) DistinctSpecialItems() []string {
	seen := make(map[string]struct{}, len(m.SpecialItems))
	items := make([]string, 0, len(m.SpecialItems))
	for _, item := range m.SpecialItems {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, key)
	}
	return items
}
