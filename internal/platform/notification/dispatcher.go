// Package notification delivers outbound patient messages. The scheduling
// engine depends only on the Dispatcher result contract; delivery transport
// and duplicate suppression live entirely in this package.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Result reports the outcome of a single send attempt.
type Result struct {
	Success     bool   `json:"success"`
	ReferenceID string `json:"reference_id,omitempty"`
	Message     string `json:"message"`
}

// Dispatcher sends a message to a destination address. Implementations must
// never panic and must honor context cancellation; a failed send is reported
// through the Result, not an error, because callers treat delivery as
// best-effort.
type Dispatcher interface {
	Send(ctx context.Context, destination, message, correlationID string) Result
}

// Sender is the delivery transport behind a Dispatcher.
type Sender interface {
	Send(ctx context.Context, to, body string) (referenceID string, err error)
}

// DedupDispatcher fronts a Sender with a rolling window that suppresses
// identical (destination, message) pairs. Suppressed sends report success so
// callers do not retry them.
type DedupDispatcher struct {
	sender Sender
	window time.Duration
	logger zerolog.Logger

	mu     sync.Mutex
	recent map[string]time.Time
	now    func() time.Time
}

func NewDedupDispatcher(sender Sender, window time.Duration, logger zerolog.Logger) *DedupDispatcher {
	return &DedupDispatcher{
		sender: sender,
		window: window,
		logger: logger,
		recent: make(map[string]time.Time),
		now:    time.Now,
	}
}

func dedupKey(destination, message string) string {
	return destination + "\x00" + message
}

// Send delivers the message unless an identical one went to the same
// destination within the dedup window.
func (d *DedupDispatcher) Send(ctx context.Context, destination, message, correlationID string) Result {
	key := dedupKey(destination, message)
	now := d.now()

	d.mu.Lock()
	if last, ok := d.recent[key]; ok && now.Sub(last) < d.window {
		d.mu.Unlock()
		d.logger.Debug().
			Str("correlation_id", correlationID).
			Str("destination", destination).
			Msg("duplicate notification suppressed")
		return Result{Success: true, Message: "duplicate suppressed within dedup window"}
	}
	d.recent[key] = now
	d.prune(now)
	d.mu.Unlock()

	ref, err := d.sender.Send(ctx, destination, message)
	if err != nil {
		// Forget the attempt so a retry after a transport failure is not
		// treated as a duplicate.
		d.mu.Lock()
		delete(d.recent, key)
		d.mu.Unlock()

		d.logger.Warn().
			Err(err).
			Str("correlation_id", correlationID).
			Str("destination", destination).
			Msg("notification send failed")
		return Result{Success: false, Message: err.Error()}
	}

	return Result{Success: true, ReferenceID: ref, Message: "sent"}
}

// prune drops entries older than the window. Caller holds d.mu.
func (d *DedupDispatcher) prune(now time.Time) {
	for key, at := range d.recent {
		if now.Sub(at) >= d.window {
			delete(d.recent, key)
		}
	}
}
