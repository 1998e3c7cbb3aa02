// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging configures the process-wide slog logger and provides
// utilities for keeping secrets out of log output. Debug logging is opt-in
// via the --verbose flag; everything user-facing goes through pterm instead.
package logging

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr as the default slog logger.
// Verbose enables debug level; otherwise only warnings and errors are emitted
// so log lines never interleave with query output on stdout.
func Setup(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
