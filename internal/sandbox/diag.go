package sandbox

import (
	"io"

	"github.com/rs/zerolog"
)

// Diag is the host diagnostic sink. Warnings and recoverable errors from the
// sandbox and the script loader are reported here instead of being printed
// directly.
type Diag interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// LogDiag is the default Diag, writing through a zerolog console logger.
type LogDiag struct {
	logger zerolog.Logger
}

// NewLogDiag creates a diagnostic sink writing human-readable output to w.
func NewLogDiag(w io.Writer) *LogDiag {
	return &LogDiag{
		logger: zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Logger(),
	}
}

func (d *LogDiag) Warnf(format string, args ...any) {
	d.logger.Warn().Msgf(format, args...)
}

func (d *LogDiag) Errorf(format string, args ...any) {
	d.logger.Error().Msgf(format, args...)
}
