package playback

import (
	"testing"
	"time"
)

func TestSeekSettlement_SettlesWithinTolerance(t *testing.T) {
	var s SeekSettlement
	now := time.Now()

	s.Begin(120, now)

	// far from the target: still seeking, target stays displayed
	if s.Observe(30, now.Add(500*time.Millisecond)) {
		t.Fatal("30s is not within tolerance of 120s")
	}
	if got := s.Displayed(30, now.Add(500*time.Millisecond)); got != 120 {
		t.Errorf("Expected target displayed while seeking, got %v", got)
	}

	// report lands within 2s of target: settled
	if !s.Observe(121.5, now.Add(time.Second)) {
		t.Fatal("121.5 should settle a seek to 120")
	}
	if s.Seeking(now.Add(time.Second)) {
		t.Error("Expected seeking flag cleared after settlement")
	}
	if got := s.Displayed(121.5, now.Add(time.Second)); got != 121.5 {
		t.Errorf("Expected live position after settlement, got %v", got)
	}
}

func TestSeekSettlement_WatchdogClears(t *testing.T) {
	var s SeekSettlement
	now := time.Now()

	s.Begin(120, now)

	// player never picked the seek up; after 5s the flag clears anyway
	// and playback continues from wherever it actually is
	if s.Seeking(now.Add(SettleWatchdog + time.Second)) {
		t.Fatal("Expected watchdog to clear the seeking flag")
	}
	if got := s.Displayed(33, now.Add(SettleWatchdog+time.Second)); got != 33 {
		t.Errorf("Expected live position after watchdog, got %v", got)
	}
}

func TestSeekSettlement_NewSeekSupersedes(t *testing.T) {
	var s SeekSettlement
	now := time.Now()

	s.Begin(120, now)
	s.Begin(30, now.Add(time.Second))

	if s.Observe(119, now.Add(2*time.Second)) {
		t.Error("Old target must not settle a superseded seek")
	}
	if !s.Observe(29, now.Add(3*time.Second)) {
		t.Error("Expected the new target to settle")
	}
}

func TestSeekSettlement_ObserveWhenIdle(t *testing.T) {
	var s SeekSettlement
	if s.Observe(10, time.Now()) {
		t.Error("Idle settlement must not report a settle")
	}
}
