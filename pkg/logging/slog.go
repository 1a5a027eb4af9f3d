package logging

import (
	"log/slog"
	"os"
)

// New builds the JSON logger shared by all services. The service name is
// attached once so log aggregation can split streams per deployment.
func New(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h).With("service", service)
}
