package presence

import (
	"fmt"
	"time"
)

// FormatLastPing renders a last-heartbeat timestamp for display.
// Buckets: under a minute "just now", under an hour minutes, under a day
// hours, otherwise the absolute timestamp. Zero means no heartbeat yet.
func FormatLastPing(lastPing int64, now time.Time) string {
	if lastPing <= 0 {
		return "never"
	}

	elapsed := now.Sub(time.Unix(lastPing, 0))
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d min ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(elapsed.Hours()))
	default:
		return time.Unix(lastPing, 0).UTC().Format(time.RFC3339)
	}
}
