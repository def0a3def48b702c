package appointment

import (
	"fmt"
	"time"
)

// Status is the appointment lifecycle state. Labels form a closed set;
// anything else is rejected at the boundary.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// ParseStatus validates a status label. Unrecognized labels, including
// case variants, are rejected rather than defaulted.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusConfirmed, StatusDone, StatusCancelled, StatusNoShow:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// Active reports whether the status consumes slot capacity.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled || s == StatusNoShow
}

// transitions is the full lifecycle graph. Terminal states have no entry;
// repeating a terminal transition is a rejected attempt, not a no-op.
var transitions = map[Status]map[Status]bool{
	StatusScheduled: {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusDone: true, StatusCancelled: true, StatusNoShow: true},
}

// CanTransition reports whether the lifecycle graph permits from -> to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Appointment is one row in the booking ledger. Provider, patient, and slot
// are immutable after creation; rescheduling is a cancel plus a new
// reservation.
type Appointment struct {
	ID                 string     `json:"id"`
	ProviderID         string     `json:"provider_id"`
	PatientID          string     `json:"patient_id"`
	VisitDate          string     `json:"visit_date"`
	TimeOfDay          string     `json:"time_of_day"`
	Status             Status     `json:"status"`
	Reason             string     `json:"reason,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	ConfirmationSentAt *time.Time `json:"confirmation_sent_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ConfirmationSent reports whether a confirmation notification has already
// been dispatched for this appointment.
func (a *Appointment) ConfirmationSent() bool {
	return a.ConfirmationSentAt != nil
}
