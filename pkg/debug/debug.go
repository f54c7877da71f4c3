// Package debug provides global verbose logging switches.
// Structured logs go through internal/log; this is for the per-frame firehose.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// Enabled controls whether debug logging is active.
var Enabled atomic.Bool

// Tracking controls whether per-frame tracking logs are shown (landmarks, solves, filter output).
// Use --debug-tracking flag to enable these very verbose logs.
var Tracking atomic.Bool

// Output is where debug lines are written.
var Output io.Writer = os.Stdout

// Log prints a message only if debug mode is enabled.
func Log(format string, args ...any) {
	if Enabled.Load() {
		fmt.Fprintf(Output, format, args...)
	}
}

// TrackLog prints a message only if tracking debug mode is enabled.
func TrackLog(format string, args ...any) {
	if Tracking.Load() {
		fmt.Fprintf(Output, format, args...)
	}
}
