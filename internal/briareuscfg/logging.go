// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package briareuscfg

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger: a JSONHandler for
// production/CI use, a TextHandler for interactive CLI use, selected by
// format ("json" or "text", default "text").
func NewLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
