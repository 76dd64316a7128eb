// Package logging configures the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// New builds a slog.Logger according to the configured format.
// "auto" picks a colorized terminal handler when stderr is a TTY and JSON
// otherwise, so container logs stay machine-parseable.
func New(format string) *slog.Logger {
	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, nil)
	case "text":
		h = tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.TimeOnly})
	default:
		if isatty.IsTerminal(os.Stderr.Fd()) {
			h = tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.TimeOnly})
		} else {
			h = slog.NewJSONHandler(os.Stderr, nil)
		}
	}
	return slog.New(h)
}
