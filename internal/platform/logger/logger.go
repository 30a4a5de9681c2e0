package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger. Development builds log at debug level.
func New(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
