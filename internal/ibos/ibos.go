// Package ibos holds the process-wide logger. Every package that needs to
// log reaches for ibos.Log rather than constructing its own handler, so the
// whole build shares one destination and verbosity level.
package ibos

import (
	"log/slog"
	"os"
)

var Log = slog.New(slog.NewTextHandler(os.Stderr, nil))

// SetVerbose swaps in a debug-level handler when --verbose is passed, or a
// warn-level handler otherwise, so routine wave/job chatter only shows up
// when asked for.
func SetVerbose(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
