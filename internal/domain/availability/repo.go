package availability

import "context"

// OverrideRepository stores one override document per provider with
// last-writer-wins whole-document semantics.
type OverrideRepository interface {
	// Get returns the stored override for a provider, or nil when the
	// provider has never saved one.
	Get(ctx context.Context, providerID string) (*Override, error)

	// Put upserts the provider's override document atomically.
	Put(ctx context.Context, o *Override) error
}

// BookingCounter exposes live booking counts from the appointment ledger.
// Counts cover active statuses only; cancelled and no-show bookings release
// their capacity.
type BookingCounter interface {
	// CountByDay returns activeBookings per date for a provider over an
	// inclusive date range. Dates with zero bookings are absent.
	CountByDay(ctx context.Context, providerID, from, to string) (map[string]int, error)

	// CountBySlot returns active bookings per time of day for a provider on
	// a single date.
	CountBySlot(ctx context.Context, providerID, date string) (map[string]int, error)
}
