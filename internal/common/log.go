package common

import (
	"fmt"
	"io"
	"os"
	"time"
)

// LoggingEnabled controls whether Logf produces output.
var LoggingEnabled = true

// Output is where Logf writes. Tests redirect it to capture log lines.
var Output io.Writer = os.Stdout

// Logf prints a formatted message if logging is enabled.
func Logf(format string, args ...interface{}) {
	if LoggingEnabled {
		fmt.Fprintf(Output, format, args...)
	}
}

// formatDuration formats a duration with 2 decimal places, picking the unit
// that keeps the number readable: "3.20 us", "1.23 ms" or "2.50 s".
func formatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	switch {
	case ms >= 1000:
		return fmt.Sprintf("%.2f s", ms/1000)
	case ms < 0.01:
		return fmt.Sprintf("%.2f us", ms*1000)
	}
	return fmt.Sprintf("%.2f ms", ms)
}

// LogDuration prints a message with the elapsed time since start. The
// duration is right-padded so consecutive lines align.
func LogDuration(start time.Time, format string, args ...interface{}) {
	elapsed := time.Since(start)
	msg := fmt.Sprintf(format, args...)
	durStr := fmt.Sprintf("(%s)", formatDuration(elapsed))
	Logf("%-10s%s\n", durStr, msg)
}
