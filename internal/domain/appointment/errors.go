package appointment

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no appointment exists for an id.
var ErrNotFound = errors.New("appointment not found")

// errStaleStatus is returned by the repository when an optimistic status
// update matched no row, meaning the status changed under us.
var errStaleStatus = errors.New("appointment status changed concurrently")

// ValidationError rejects malformed input before any storage access.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// CapacityError refuses a reservation because the requested day or slot
// cannot admit another booking. Slot is empty for day-level refusals.
type CapacityError struct {
	Date      string `json:"date"`
	Slot      string `json:"slot,omitempty"`
	Reason    string `json:"reason"`
	Remaining int    `json:"remaining"`
}

func (e *CapacityError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("cannot book %s at %s: %s", e.Date, e.Slot, e.Reason)
	}
	return fmt.Sprintf("cannot book %s: %s", e.Date, e.Reason)
}

// InvalidTransitionError rejects a lifecycle move the state graph does not
// permit, or one whose expected source state went stale.
type InvalidTransitionError struct {
	From   Status `json:"from"`
	To     Status `json:"to"`
	Detail string `json:"detail,omitempty"`
}

func (e *InvalidTransitionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Detail)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}
