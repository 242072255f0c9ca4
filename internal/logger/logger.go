package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/haven-hmis/haven-ledger/internal/config"
)

// NewLogger builds the process-wide slog.Logger. Output is JSON on stdout and
// every record carries the service name so gateway and processor logs can be
// told apart in a shared stream.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level: level,
		// Source locations only at debug verbosity
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}

	logger.Info("logger initialized", "level", level, "env", cfg.Application.Env)

	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
