package timing

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Minute, "01:01:00"},
		{26*time.Hour + 3*time.Second, "26:00:03"},
		{1500 * time.Millisecond, "00:00:01"},
	}
	for _, tt := range tests {
		if got := Clock(tt.d); got != tt.want {
			t.Fatalf("Clock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
