package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Init initializes the default logger at the given level ("debug", "info",
// "warn", "error"). An unknown level falls back to warn.
func Init(level string, noColor bool) {
	InitWriter(os.Stderr, level, noColor)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, noColor bool) {
	log.SetDefault(log.NewWithOptions(w,
		log.Options{
			ReportCaller:    true,
			ReportTimestamp: false,
			TimeFormat:      time.RFC3339,
			Prefix:          "INTERPCORE",
		}))

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	log.SetLevel(lvl)

	log.SetColorProfile(termenv.ANSI256)
	if noColor {
		log.SetColorProfile(termenv.Ascii)
	}
}

// Component returns a sub-logger of the default logger tagged with name.
func Component(name string) *log.Logger {
	return log.Default().With("component", name)
}
