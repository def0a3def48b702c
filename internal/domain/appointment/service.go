package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/availability"
	"github.com/clinicdesk/clinicdesk/internal/platform/notification"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// Service is the reservation guard and status state machine over the
// booking ledger.
type Service struct {
	repo       Repository
	resolver   AvailabilityResolver
	contacts   ContactDirectory
	dispatcher notification.Dispatcher

	notifyTimeout time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(repo Repository, resolver AvailabilityResolver, contacts ContactDirectory, dispatcher notification.Dispatcher, notifyTimeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		resolver:      resolver,
		contacts:      contacts,
		dispatcher:    dispatcher,
		notifyTimeout: notifyTimeout,
		logger:        logger,
		now:           time.Now,
	}
}

// ReserveInput is a reservation request for one slot.
type ReserveInput struct {
	ProviderID string `json:"provider_id"`
	PatientID  string `json:"patient_id"`
	Date       string `json:"date"`
	TimeOfDay  string `json:"time_of_day"`
	Reason     string `json:"reason"`
	Notes      string `json:"notes"`
}

func (in ReserveInput) validate() error {
	if in.ProviderID == "" {
		return &ValidationError{Field: "provider_id", Detail: "is required"}
	}
	if in.PatientID == "" {
		return &ValidationError{Field: "patient_id", Detail: "is required"}
	}
	if !availability.ValidDate(in.Date) {
		return &ValidationError{Field: "date", Detail: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", in.Date)}
	}
	if !availability.ValidTimeOfDay(in.TimeOfDay) {
		return &ValidationError{Field: "time_of_day", Detail: fmt.Sprintf("%q is not a valid HH:MM time", in.TimeOfDay)}
	}
	return nil
}

// Reserve admits or refuses a reservation. Preconditions are checked in
// order against the resolved day, short-circuiting on the first failure;
// the final count-and-insert is delegated to the ledger as one atomic unit,
// so a stale resolver read can never overshoot capacity.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*Appointment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	day, err := s.resolver.ResolveDay(ctx, in.ProviderID, in.Date)
	if err != nil {
		return nil, err
	}
	switch day.Status {
	case availability.StatusWeekend:
		return nil, &CapacityError{Date: in.Date, Reason: "provider does not work weekends"}
	case availability.StatusUnavailable:
		return nil, &CapacityError{Date: in.Date, Reason: "provider is unavailable on this date"}
	}
	if day.Remaining <= 0 {
		return nil, &CapacityError{Date: in.Date, Reason: "day is fully booked"}
	}

	limits, err := s.resolver.SlotLimits(ctx, in.ProviderID, in.Date)
	if err != nil {
		return nil, err
	}
	slotLimit := limits[in.TimeOfDay]
	if slotLimit > 0 && day.PerSlotRemaining[in.TimeOfDay] <= 0 {
		return nil, &CapacityError{Date: in.Date, Slot: in.TimeOfDay, Reason: "slot is fully booked"}
	}

	a := &Appointment{
		ID:         uuid.NewString(),
		ProviderID: in.ProviderID,
		PatientID:  in.PatientID,
		VisitDate:  in.Date,
		TimeOfDay:  in.TimeOfDay,
		Status:     StatusScheduled,
		Reason:     in.Reason,
		Notes:      in.Notes,
	}
	if err := s.repo.Reserve(ctx, a, day.TotalCapacity, slotLimit); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID).
		Str("provider_id", a.ProviderID).
		Str("date", a.VisitDate).
		Str("time_of_day", a.TimeOfDay).
		Msg("appointment reserved")
	return a, nil
}

// GetByID returns one appointment.
func (s *Service) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByProvider returns a provider's appointments, newest slot first.
func (s *Service) ListByProvider(ctx context.Context, providerID string, p pagination.Params) ([]Appointment, int, error) {
	return s.repo.ListByProvider(ctx, providerID, p)
}

// ListByPatient returns a patient's appointments, newest slot first.
func (s *Service) ListByPatient(ctx context.Context, patientID string, p pagination.Params) ([]Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, p)
}

// NotificationOutcome reports what happened to the notification attempted
// during a transition. A failed send never fails the transition itself.
type NotificationOutcome struct {
	Attempted bool   `json:"attempted"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

// TransitionResult is the caller-visible outcome of a committed transition.
type TransitionResult struct {
	Appointment       *Appointment         `json:"appointment"`
	Notification      *NotificationOutcome `json:"notification,omitempty"`
	PromptVisitRecord bool                 `json:"prompt_visit_record,omitempty"`
}

// Transition validates the lifecycle move, commits it with an optimistic
// status check, and then runs side effects. The commit stands regardless of
// notification outcome.
func (s *Service) Transition(ctx context.Context, id string, target Status) (*TransitionResult, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, target) {
		return nil, &InvalidTransitionError{From: a.Status, To: target}
	}

	updated, err := s.repo.UpdateStatusIf(ctx, id, a.Status, target)
	if errors.Is(err, errStaleStatus) {
		return nil, &InvalidTransitionError{From: a.Status, To: target, Detail: "appointment status changed concurrently"}
	}
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Appointment: updated}
	switch target {
	case StatusConfirmed:
		s.notifyConfirmed(ctx, updated, result)
	case StatusCancelled:
		s.notifyCancelled(ctx, updated, result)
	case StatusDone:
		result.PromptVisitRecord = true
	}

	s.logger.Info().
		Str("appointment_id", id).
		Str("from", string(a.Status)).
		Str("to", string(target)).
		Msg("appointment status changed")
	return result, nil
}

// notifyConfirmed sends the confirmation message once per appointment. The
// sent flag is only set after a successful dispatch, so a failed send can be
// retried by a later confirmation attempt on a rescheduled booking.
func (s *Service) notifyConfirmed(ctx context.Context, a *Appointment, result *TransitionResult) {
	if a.ConfirmationSent() {
		return
	}
	msg := fmt.Sprintf("Your appointment on %s at %s is confirmed.", a.VisitDate, a.TimeOfDay)
	outcome := s.dispatch(ctx, a, msg)
	result.Notification = outcome
	if outcome.Attempted && outcome.Success {
		at := s.now()
		if err := s.repo.MarkConfirmationSent(ctx, a.ID, at); err != nil {
			s.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("failed to record confirmation flag")
			return
		}
		a.ConfirmationSentAt = &at
	}
}

// notifyCancelled always attempts a cancellation message, independent of the
// confirmation flag. Duplicate suppression is the dispatcher's concern.
func (s *Service) notifyCancelled(ctx context.Context, a *Appointment, result *TransitionResult) {
	msg := fmt.Sprintf("Your appointment on %s at %s has been cancelled.", a.VisitDate, a.TimeOfDay)
	result.Notification = s.dispatch(ctx, a, msg)
}

func (s *Service) dispatch(ctx context.Context, a *Appointment, message string) *NotificationOutcome {
	phone, err := s.contacts.PhoneFor(ctx, a.PatientID)
	if err != nil {
		s.logger.Error().Err(err).Str("patient_id", a.PatientID).Msg("contact lookup failed")
		return &NotificationOutcome{Attempted: false, Message: "contact lookup failed"}
	}
	if phone == "" {
		return &NotificationOutcome{Attempted: false, Message: "no contact on file"}
	}

	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	res := s.dispatcher.Send(nctx, phone, message, a.ID)
	if !res.Success {
		s.logger.Warn().
			Str("appointment_id", a.ID).
			Str("detail", res.Message).
			Msg("notification dispatch failed")
	}
	return &NotificationOutcome{Attempted: true, Success: res.Success, Message: res.Message}
}
