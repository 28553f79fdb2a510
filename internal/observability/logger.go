package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const serviceName = "prevailing-winds"

// NewLogger builds the shared structured logger, installs it as the slog default and
// tags its records with the service name.
func NewLogger(level, format string) *slog.Logger {
	return sharedobs.NewLogger(level, format).With("service", serviceName)
}
