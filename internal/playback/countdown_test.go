package playback

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCountdown_ArmsOnFailure(t *testing.T) {
	c := NewCountdown(10 * time.Second)
	id := uuid.New()
	now := time.Now()

	c.ObserveFailure(id, now)

	if c.State() != Degraded {
		t.Fatalf("Expected Degraded, got %v", c.State())
	}
	if got := c.Remaining(now); got != 10 {
		t.Errorf("Expected 10s remaining, got %d", got)
	}
}

func TestCountdown_RepeatedFailureKeepsDeadline(t *testing.T) {
	c := NewCountdown(10 * time.Second)
	id := uuid.New()
	now := time.Now()

	c.ObserveFailure(id, now)
	// same item failing again 4s later must not extend the grace period
	c.ObserveFailure(id, now.Add(4*time.Second))

	if got := c.Remaining(now.Add(4 * time.Second)); got != 6 {
		t.Errorf("Expected 6s remaining, got %d", got)
	}
}

func TestCountdown_NewItemRestartsDeadline(t *testing.T) {
	c := NewCountdown(10 * time.Second)
	now := time.Now()

	c.ObserveFailure(uuid.New(), now)
	c.ObserveFailure(uuid.New(), now.Add(4*time.Second))

	if got := c.Remaining(now.Add(4 * time.Second)); got != 10 {
		t.Errorf("Expected fresh 10s for new item, got %d", got)
	}
}

func TestCountdown_PlayableCancels(t *testing.T) {
	c := NewCountdown(10 * time.Second)
	id := uuid.New()
	now := time.Now()

	c.ObserveFailure(id, now)
	c.ObservePlayable()

	if c.State() != Stable {
		t.Fatalf("Expected Stable after playable result, got %v", c.State())
	}
	if _, fired := c.Expire(now.Add(time.Minute)); fired {
		t.Error("Cancelled countdown must not fire")
	}
}

func TestCountdown_ExpireFiresOnce(t *testing.T) {
	c := NewCountdown(10 * time.Second)
	id := uuid.New()
	now := time.Now()

	c.ObserveFailure(id, now)

	if _, fired := c.Expire(now.Add(9 * time.Second)); fired {
		t.Fatal("Must not fire before the deadline")
	}

	got, fired := c.Expire(now.Add(10 * time.Second))
	if !fired {
		t.Fatal("Expected fire at the deadline")
	}
	if got != id {
		t.Errorf("Expected request %s, got %s", id, got)
	}

	if _, fired := c.Expire(now.Add(11 * time.Second)); fired {
		t.Error("Must fire at most once per episode")
	}
}

func TestCountdown_RemainingRoundsUp(t *testing.T) {
	c := NewCountdown(10 * time.Second)
	now := time.Now()
	c.ObserveFailure(uuid.New(), now)

	if got := c.Remaining(now.Add(9500 * time.Millisecond)); got != 1 {
		t.Errorf("Expected 1s remaining (rounded up), got %d", got)
	}
}
