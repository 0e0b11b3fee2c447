// Package playback holds the pure state machines behind the playback
// session actors: the auto-skip countdown that recovers from extraction
// failures, and the seek settlement tracker the dashboard uses to decide
// when a requested seek has landed. The settlement tracker codifies the
// dashboard actor's client-side contract; nothing on the server path
// calls it, the server only carries the seek register it consumes.
package playback

import (
	"time"

	"github.com/google/uuid"
)

// DefaultGrace is how long a stuck item keeps its slot before auto-skip.
const DefaultGrace = 10 * time.Second

type CountdownState int

const (
	// Stable: the current item is playable (or nothing is playing).
	Stable CountdownState = iota
	// Degraded: the current item failed extraction; the deadline is running.
	Degraded
)

// Countdown tracks one streamer's degraded-playback grace period. It is a
// clock-driven state machine with no timers of its own; the owner observes
// extraction results and polls Expire. Not safe for concurrent use.
type Countdown struct {
	grace     time.Duration
	state     CountdownState
	requestID uuid.UUID
	deadline  time.Time
}

func NewCountdown(grace time.Duration) *Countdown {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Countdown{grace: grace}
}

func (c *Countdown) State() CountdownState {
	return c.state
}

// ObserveFailure arms the countdown for the failing request. Repeated
// failures of the same request keep the original deadline; a different
// request restarts it.
func (c *Countdown) ObserveFailure(requestID uuid.UUID, now time.Time) {
	if c.state == Degraded && c.requestID == requestID {
		return
	}
	c.state = Degraded
	c.requestID = requestID
	c.deadline = now.Add(c.grace)
}

// ObservePlayable cancels any running countdown: a playable item arrived
// before the deadline.
func (c *Countdown) ObservePlayable() {
	c.state = Stable
	c.requestID = uuid.Nil
	c.deadline = time.Time{}
}

// Remaining reports the seconds left before auto-skip, rounded up, for
// display. Zero when not degraded.
func (c *Countdown) Remaining(now time.Time) int {
	if c.state != Degraded {
		return 0
	}
	left := c.deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Expire returns the request to skip once the deadline has passed. It
// fires at most once per degraded episode; the machine returns to Stable.
func (c *Countdown) Expire(now time.Time) (uuid.UUID, bool) {
	if c.state != Degraded || now.Before(c.deadline) {
		return uuid.Nil, false
	}
	id := c.requestID
	c.ObservePlayable()
	return id, true
}
