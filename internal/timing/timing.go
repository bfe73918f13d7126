// Package timing formats the processing durations the worker reports.
package timing

import (
	"fmt"
	"time"
)

// Clock formats d as HH:MM:SS. Hours are not wrapped at 24.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Since is Clock(time.Since(start)).
func Since(start time.Time) string {
	return Clock(time.Since(start))
}
