package appointment

import (
	"context"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain/availability"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// Repository is the booking ledger. Reserve and UpdateStatusIf are the two
// write paths; both are single atomic storage operations so an abandoned
// request cannot leave a half-applied change.
type Repository interface {
	// Reserve inserts the appointment only while the day count stays under
	// dailyCapacity and, when slotLimit is positive, the slot count stays
	// under slotLimit. The count and insert happen as one atomic unit; on
	// refusal a *CapacityError is returned and nothing is written.
	Reserve(ctx context.Context, a *Appointment, dailyCapacity, slotLimit int) error

	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListByProvider(ctx context.Context, providerID string, p pagination.Params) ([]Appointment, int, error)
	ListByPatient(ctx context.Context, patientID string, p pagination.Params) ([]Appointment, int, error)

	// CountByDay and CountBySlot report active bookings only; they make the
	// repository usable as the availability resolver's booking counter.
	CountByDay(ctx context.Context, providerID, from, to string) (map[string]int, error)
	CountBySlot(ctx context.Context, providerID, date string) (map[string]int, error)

	// UpdateStatusIf moves the appointment from -> to only if its current
	// status still equals from, returning errStaleStatus otherwise.
	UpdateStatusIf(ctx context.Context, id string, from, to Status) (*Appointment, error)

	// MarkConfirmationSent records the confirmation-dispatch timestamp.
	MarkConfirmationSent(ctx context.Context, id string, at time.Time) error
}

// AvailabilityResolver is the read side the reservation guard consults
// before attempting an insert. Satisfied by the availability service.
type AvailabilityResolver interface {
	ResolveDay(ctx context.Context, providerID, date string) (*availability.DayAvailability, error)
	SlotLimits(ctx context.Context, providerID, date string) (map[string]int, error)
}

// ContactDirectory resolves a patient's notification address. An empty
// string means no contact is on file.
type ContactDirectory interface {
	PhoneFor(ctx context.Context, patientID string) (string, error)
}
