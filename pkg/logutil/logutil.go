package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	log "github.com/charmbracelet/log"
)

var (
	outputMu sync.Mutex
	output   io.Writer = os.Stderr
	logger   *log.Logger
)

// Configure routes slog through a charm logger on stderr. Stdout stays
// reserved for command output, which hook mode relies on.
func Configure(levelRaw string) error {
	levelRaw = strings.TrimSpace(levelRaw)
	if levelRaw == "" {
		levelRaw = "warn"
	}
	level, err := parseConfiguredLevel(levelRaw)
	if err != nil {
		return err
	}
	outputMu.Lock()
	defer outputMu.Unlock()
	logger = log.NewWithOptions(output, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "usageguard",
	})
	log.SetDefault(logger)
	slog.SetDefault(slog.New(logger))
	return nil
}

func parseConfiguredLevel(levelRaw string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(levelRaw)) {
	case "trace", "trac":
		// No native trace level.
		return log.DebugLevel, nil
	default:
		level, err := log.ParseLevel(levelRaw)
		if err != nil {
			return 0, fmt.Errorf("invalid loglevel %q", levelRaw)
		}
		return level, nil
	}
}

// SetOutput redirects subsequent log lines. Configure must run again for
// the change to reach slog.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
	if logger != nil {
		logger.SetOutput(w)
	}
}
