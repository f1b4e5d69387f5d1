package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"interpcore/internal/logger"
)

func TestInitWriter(t *testing.T) {
	prev := log.Default()
	t.Cleanup(func() { log.SetDefault(prev) })

	tests := []struct {
		level     string
		wantDebug bool
		wantWarn  bool
	}{
		{"debug", true, true},
		{"warn", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger.InitWriter(&buf, tt.level, true)

			logger.Component("test").Debug("debug line")
			log.Warn("warn line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v\n%s", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "warn line"); got != tt.wantWarn {
				t.Errorf("warn logged = %v, want %v\n%s", got, tt.wantWarn, out)
			}
			if out != "" && !strings.Contains(out, "INTERPCORE") {
				t.Errorf("missing prefix:\n%s", out)
			}
		})
	}
}

func TestComponentField(t *testing.T) {
	prev := log.Default()
	t.Cleanup(func() { log.SetDefault(prev) })

	var buf bytes.Buffer
	logger.InitWriter(&buf, "info", true)
	logger.Component("workload").Info("started")

	if !strings.Contains(buf.String(), "component=workload") {
		t.Errorf("expected component field, got:\n%s", buf.String())
	}
}
