package availability

import (
	"context"
	"fmt"
	"time"
)

// maxRangeDays bounds a single resolve request.
const maxRangeDays = 366

// Service applies override edits and resolves day-level availability from
// overrides, live booking counts, and the configured working week.
type Service struct {
	overrides OverrideRepository
	counter   BookingCounter

	hours                WorkingHours
	weekend              map[time.Weekday]bool
	defaultDailyCapacity int

	now func() time.Time
}

func NewService(overrides OverrideRepository, counter BookingCounter, hours WorkingHours, weekend map[time.Weekday]bool, defaultDailyCapacity int) *Service {
	return &Service{
		overrides:            overrides,
		counter:              counter,
		hours:                hours,
		weekend:              weekend,
		defaultDailyCapacity: defaultDailyCapacity,
		now:                  time.Now,
	}
}

// Hours returns the configured working-hours grid.
func (s *Service) Hours() WorkingHours {
	return s.hours
}

// GetOverride loads the provider's override, materializing a default
// document when none has been stored yet.
func (s *Service) GetOverride(ctx context.Context, providerID string) (*Override, error) {
	o, err := s.overrides.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		o = NewOverride(providerID, s.defaultDailyCapacity)
	}
	if o.DefaultDailyCapacity <= 0 {
		o.DefaultDailyCapacity = s.defaultDailyCapacity
	}
	return o, nil
}

// ApplyDayPatch edits a single date on the provider's override and persists
// the whole document. Limits at or below zero are dropped rather than stored.
func (s *Service) ApplyDayPatch(ctx context.Context, providerID string, p DayPatch) (*Override, error) {
	if !ValidDate(p.Date) {
		return nil, &ValidationError{Field: "date", Detail: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", p.Date)}
	}
	for t := range p.PerSlotLimits {
		if !ValidTimeOfDay(t) {
			return nil, &ValidationError{Field: "per_slot_limits", Detail: fmt.Sprintf("%q is not a valid HH:MM time", t)}
		}
	}

	o, err := s.GetOverride(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if !p.IsAvailable {
		o.addBlocked(p.Date)
	} else {
		o.removeBlocked(p.Date)
		if p.DailyLimit != nil && *p.DailyLimit > 0 {
			o.DailyCapacity[p.Date] = *p.DailyLimit
		} else {
			delete(o.DailyCapacity, p.Date)
		}
		slots := map[string]int{}
		for t, limit := range p.PerSlotLimits {
			if limit > 0 {
				slots[t] = limit
			}
		}
		if len(slots) > 0 {
			o.SlotCapacity[p.Date] = slots
		} else {
			delete(o.SlotCapacity, p.Date)
		}
	}
	o.stripCapacityKeys()

	o.UpdatedAt = s.now()
	if err := s.overrides.Put(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ApplyBulkPatch replaces the blocked-date set and/or daily-capacity map
// wholesale. Malformed date keys and non-positive limits are discarded
// silently so one bad entry does not fail the batch. Blocked state wins over
// capacity entries for the same date.
func (s *Service) ApplyBulkPatch(ctx context.Context, providerID string, p BulkPatch) (*Override, error) {
	o, err := s.GetOverride(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if p.BlockedDates != nil {
		o.BlockedDates = []string{}
		for _, d := range *p.BlockedDates {
			if ValidDate(d) {
				o.addBlocked(d)
			}
		}
	}
	if p.DailyCapacity != nil {
		caps := map[string]int{}
		for d, limit := range *p.DailyCapacity {
			if ValidDate(d) && limit > 0 {
				caps[d] = limit
			}
		}
		o.DailyCapacity = caps
	}
	o.stripCapacityKeys()

	o.UpdatedAt = s.now()
	if err := s.overrides.Put(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Resolve computes day-level availability for every date in the inclusive
// range. Weekend and blocked checks short-circuit before capacity math.
func (s *Service) Resolve(ctx context.Context, providerID, from, to string) ([]DayAvailability, error) {
	if !ValidDate(from) {
		return nil, &ValidationError{Field: "from", Detail: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", from)}
	}
	if !ValidDate(to) {
		return nil, &ValidationError{Field: "to", Detail: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", to)}
	}
	fromT, _ := time.Parse(DateLayout, from)
	toT, _ := time.Parse(DateLayout, to)
	if toT.Before(fromT) {
		return nil, &ValidationError{Field: "to", Detail: "range end precedes range start"}
	}
	if toT.Sub(fromT) > maxRangeDays*24*time.Hour {
		return nil, &ValidationError{Field: "to", Detail: fmt.Sprintf("range exceeds %d days", maxRangeDays)}
	}

	o, err := s.GetOverride(ctx, providerID)
	if err != nil {
		return nil, err
	}
	counts, err := s.counter.CountByDay(ctx, providerID, from, to)
	if err != nil {
		return nil, err
	}

	var days []DayAvailability
	for d := fromT; !d.After(toT); d = d.AddDate(0, 0, 1) {
		day, err := s.resolveOne(ctx, o, d, counts[d.Format(DateLayout)])
		if err != nil {
			return nil, err
		}
		days = append(days, *day)
	}
	return days, nil
}

// ResolveDay computes availability for a single date.
func (s *Service) ResolveDay(ctx context.Context, providerID, date string) (*DayAvailability, error) {
	if !ValidDate(date) {
		return nil, &ValidationError{Field: "date", Detail: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", date)}
	}
	o, err := s.GetOverride(ctx, providerID)
	if err != nil {
		return nil, err
	}
	counts, err := s.counter.CountByDay(ctx, providerID, date, date)
	if err != nil {
		return nil, err
	}
	d, _ := time.Parse(DateLayout, date)
	return s.resolveOne(ctx, o, d, counts[date])
}

func (s *Service) resolveOne(ctx context.Context, o *Override, d time.Time, booked int) (*DayAvailability, error) {
	date := d.Format(DateLayout)
	day := &DayAvailability{Date: date, Booked: booked}

	if s.weekend[d.Weekday()] {
		day.Status = StatusWeekend
		return day, nil
	}
	if o.IsBlocked(date) {
		day.Status = StatusUnavailable
		return day, nil
	}

	day.TotalCapacity = o.CapacityFor(date)
	day.Remaining = day.TotalCapacity - booked
	if day.Remaining < 0 {
		day.Remaining = 0
	}
	switch {
	case day.Remaining == 0:
		day.Status = StatusFull
	case day.Remaining <= limitedThreshold:
		day.Status = StatusLimited
	default:
		day.Status = StatusAvailable
	}

	if limits := o.SlotLimits(date); len(limits) > 0 {
		slotCounts, err := s.counter.CountBySlot(ctx, o.ProviderID, date)
		if err != nil {
			return nil, err
		}
		day.PerSlotRemaining = map[string]int{}
		for t, limit := range limits {
			rem := limit - slotCounts[t]
			if rem < 0 {
				rem = 0
			}
			day.PerSlotRemaining[t] = rem
		}
	}
	return day, nil
}

// SlotLimits returns the per-slot limits in force for a provider's date, or
// nil when the date caps slots by daily capacity alone.
func (s *Service) SlotLimits(ctx context.Context, providerID, date string) (map[string]int, error) {
	o, err := s.GetOverride(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return o.SlotLimits(date), nil
}

// IsWeekend reports whether the date falls on a configured weekend day.
func (s *Service) IsWeekend(date string) bool {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	return s.weekend[d.Weekday()]
}
