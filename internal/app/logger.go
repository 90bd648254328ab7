package app

import (
	"log/slog"
	"os"
	"strings"

	"onfleet-workers-go/internal/logx"
)

// NewLogger returns a JSON logger on stdout. LOG_LEVEL=debug enables debug output.
func NewLogger() logx.Logger {
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	base := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	return logx.NewSlogAdapter(base)
}
