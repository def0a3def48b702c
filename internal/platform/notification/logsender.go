package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogSender is a stand-in transport for environments without an SMS gateway.
// Messages are logged and reported as delivered.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, body string) (string, error) {
	ref := "log-" + uuid.NewString()
	s.logger.Info().
		Str("to", to).
		Str("body", body).
		Str("reference_id", ref).
		Msg("notification logged (no gateway configured)")
	return ref, nil
}
