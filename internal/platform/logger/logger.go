package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON on stdout so log shippers can index
// the audit attributes without a parsing step.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
