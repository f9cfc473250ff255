package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	if now.Before(before) {
		t.Errorf("Now() = %v, expected not before %v", now, before)
	}

	past := time.Now().Add(-time.Second)
	if d := clock.Since(past); d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}

	start := time.Now()
	clock.Sleep(5 * time.Millisecond)
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Sleep returned early")
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	clock.Advance(time.Minute)
	if got := clock.Since(start); got != time.Minute {
		t.Errorf("Since() after Advance = %v, want 1m", got)
	}

	clock.Sleep(10 * time.Millisecond)
	clock.Sleep(20 * time.Millisecond)
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	got := clock.Sleeps()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Sleeps() = %v, want %v", got, want)
	}
	if d := clock.Since(start); d != time.Minute+30*time.Millisecond {
		t.Errorf("Sleep should advance the clock, got %v", d)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Errorf("Set() did not move the clock")
	}
}
