package playback

import "time"

const (
	// SettleTolerance is how close a reported position must come to the
	// seek target before the seek counts as landed.
	SettleTolerance = 2.0
	// SettleWatchdog force-clears a seek that never settles, e.g. when
	// the player reloaded and missed the seek register entirely.
	SettleWatchdog = 5 * time.Second
)

// SeekSettlement tracks one in-flight dashboard seek. While seeking, the
// locally buffered target is authoritative for display; live position
// reads take over again once the seek settles or the watchdog fires.
// Not safe for concurrent use.
type SeekSettlement struct {
	target   float64
	issuedAt time.Time
	seeking  bool
}

// Begin records a new seek target, superseding any in-flight one.
func (s *SeekSettlement) Begin(target float64, now time.Time) {
	s.target = target
	s.issuedAt = now
	s.seeking = true
}

// Seeking reports whether a seek is still in flight at the given instant,
// applying the watchdog.
func (s *SeekSettlement) Seeking(now time.Time) bool {
	if s.seeking && now.Sub(s.issuedAt) > SettleWatchdog {
		s.seeking = false
	}
	return s.seeking
}

// Observe feeds a live position report. It returns true when this report
// settles the seek; the flag also clears if the watchdog expired.
func (s *SeekSettlement) Observe(actual float64, now time.Time) bool {
	if !s.Seeking(now) {
		return false
	}
	diff := actual - s.target
	if diff < 0 {
		diff = -diff
	}
	if diff <= SettleTolerance {
		s.seeking = false
		return true
	}
	return false
}

// Displayed returns the position the dashboard should render: the seek
// target while in flight, the live reading otherwise.
func (s *SeekSettlement) Displayed(live float64, now time.Time) float64 {
	if s.Seeking(now) {
		return s.target
	}
	return live
}
