package services

import (
	"fmt"
	"testing"
	"time"
)

func TestFlushCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// scheduled flush keeps the write-behind window
	got := flushCutoff(now, LogBufferMaxAge)
	want := fmt.Sprintf("%d", now.Add(-LogBufferMaxAge).UnixNano())
	if got != want {
		t.Fatalf("flushCutoff(24h) = %s, want %s", got, want)
	}

	// manual flush drains everything buffered so far
	for _, maxAge := range []time.Duration{0, -time.Hour} {
		got := flushCutoff(now, maxAge)
		want := fmt.Sprintf("%d", now.UnixNano())
		if got != want {
			t.Fatalf("flushCutoff(%v) = %s, want %s", maxAge, got, want)
		}
	}
}
