package availability

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

const (
	// DateLayout is the canonical calendar-date form used across the engine.
	DateLayout = "2006-01-02"
	// TimeLayout is the canonical time-of-day form for slot keys.
	TimeLayout = "15:04"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether s is a strict YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidTimeOfDay reports whether s is a strict HH:MM time of day.
func ValidTimeOfDay(s string) bool {
	_, err := time.Parse(TimeLayout, s)
	return err == nil && len(s) == 5
}

// ValidationError signals malformed input rejected before touching storage.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// Override is a provider's stored availability exceptions: fully blocked
// dates, per-date daily capacity, and per-date per-slot capacity. A date may
// appear either in BlockedDates or in the capacity maps, never both; every
// writer re-establishes that invariant before persisting.
type Override struct {
	ProviderID           string                    `json:"provider_id"`
	BlockedDates         []string                  `json:"blocked_dates"`
	DailyCapacity        map[string]int            `json:"daily_capacity"`
	SlotCapacity         map[string]map[string]int `json:"slot_capacity"`
	DefaultDailyCapacity int                       `json:"default_daily_capacity"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// NewOverride returns a default-initialized override for a provider that has
// never stored one.
func NewOverride(providerID string, defaultDailyCapacity int) *Override {
	return &Override{
		ProviderID:           providerID,
		BlockedDates:         []string{},
		DailyCapacity:        map[string]int{},
		SlotCapacity:         map[string]map[string]int{},
		DefaultDailyCapacity: defaultDailyCapacity,
	}
}

// IsBlocked reports whether the date is fully closed.
func (o *Override) IsBlocked(date string) bool {
	for _, d := range o.BlockedDates {
		if d == date {
			return true
		}
	}
	return false
}

// CapacityFor returns the daily capacity for a date, falling back to the
// provider's default when no per-date override exists.
func (o *Override) CapacityFor(date string) int {
	if cap, ok := o.DailyCapacity[date]; ok {
		return cap
	}
	return o.DefaultDailyCapacity
}

// SlotLimits returns the per-slot limits configured for a date, or nil when
// the date has none. Slots absent from the map are bounded only by the daily
// capacity.
func (o *Override) SlotLimits(date string) map[string]int {
	return o.SlotCapacity[date]
}

func (o *Override) addBlocked(date string) {
	if o.IsBlocked(date) {
		return
	}
	o.BlockedDates = append(o.BlockedDates, date)
	sort.Strings(o.BlockedDates)
}

func (o *Override) removeBlocked(date string) {
	for i, d := range o.BlockedDates {
		if d == date {
			o.BlockedDates = append(o.BlockedDates[:i], o.BlockedDates[i+1:]...)
			return
		}
	}
}

// stripCapacityKeys removes every capacity entry for dates in BlockedDates,
// keeping blocked and capacity state mutually exclusive.
func (o *Override) stripCapacityKeys() {
	for _, d := range o.BlockedDates {
		delete(o.DailyCapacity, d)
		delete(o.SlotCapacity, d)
	}
}

// DayStatus classifies a resolved calendar date.
type DayStatus string

const (
	StatusWeekend     DayStatus = "weekend"
	StatusUnavailable DayStatus = "unavailable"
	StatusFull        DayStatus = "full"
	StatusLimited     DayStatus = "limited"
	StatusAvailable   DayStatus = "available"
)

// limitedThreshold is the remaining-capacity count at or below which a day is
// reported as limited rather than available.
const limitedThreshold = 3

// DayAvailability is the derived per-date availability view. It is computed
// on demand and never cached across requests, since booking counts change
// concurrently.
type DayAvailability struct {
	Date             string         `json:"date"`
	Status           DayStatus      `json:"status"`
	TotalCapacity    int            `json:"total_capacity"`
	Booked           int            `json:"booked"`
	Remaining        int            `json:"remaining"`
	PerSlotRemaining map[string]int `json:"per_slot_remaining,omitempty"`
}

// WorkingHours describes the daily slot grid candidates are drawn from.
type WorkingHours struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	IntervalMinutes int    `json:"interval_minutes"`
}

// SlotTimes enumerates every candidate time of day between Start (inclusive)
// and End (exclusive) on the configured interval.
func (w WorkingHours) SlotTimes() []string {
	start, err := time.Parse(TimeLayout, w.Start)
	if err != nil {
		return nil
	}
	end, err := time.Parse(TimeLayout, w.End)
	if err != nil || w.IntervalMinutes <= 0 {
		return nil
	}

	var times []string
	for t := start; t.Before(end); t = t.Add(time.Duration(w.IntervalMinutes) * time.Minute) {
		times = append(times, t.Format(TimeLayout))
	}
	return times
}

// DayPatch edits a single date: closing it outright, or opening it with an
// optional daily limit and a wholesale replacement of its per-slot limits.
type DayPatch struct {
	Date          string         `json:"date"`
	IsAvailable   bool           `json:"is_available"`
	DailyLimit    *int           `json:"daily_limit,omitempty"`
	PerSlotLimits map[string]int `json:"per_slot_limits,omitempty"`
}

// BulkPatch replaces the blocked-date set and/or the daily-capacity map
// wholesale. Malformed date keys are discarded rather than failing the whole
// request.
type BulkPatch struct {
	BlockedDates  *[]string       `json:"blocked_dates,omitempty"`
	DailyCapacity *map[string]int `json:"daily_capacity,omitempty"`
}
