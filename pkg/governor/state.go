// Package governor paces outbound gateway requests and tracks
// server-imposed flood waits. It combines a local minimum-interval pacer
// with Redis-shared flood-wait state so that every process talking
// through the same gateway session respects the same FLOOD_WAIT penalty.
package governor

import (
	"time"
)

// Redis keys for flood-wait state storage.
const (
	RedisKeyFloodWaitUntil = "tg:governor:flood_wait_until"
	RedisKeyLastUpdate     = "tg:governor:last_update"
)

// Windows for flood-wait decisions.
const (
	// CooldownWindow applies gentle throttling for this long after a
	// flood wait expires, since immediately resuming at full rate tends
	// to trigger the next penalty.
	CooldownWindow = 30 * time.Second

	// ThrottleDelay is the extra delay applied per request inside the
	// cooldown window.
	ThrottleDelay = 1 * time.Second
)

// FloodState represents the current flood-wait state of the shared
// gateway session.
type FloodState struct {
	// WaitUntil is the deadline before which the server refuses requests.
	// Zero when no flood wait has been observed.
	WaitUntil time.Time `json:"wait_until"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`

	// Healthy is true when no wait is pending and the cooldown window
	// has passed.
	Healthy bool `json:"healthy"`
}

// Remaining returns the time left on the pending flood wait.
// Returns 0 if no wait is pending.
func (s *FloodState) Remaining() time.Duration {
	remaining := time.Until(s.WaitUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NeedsBlock returns true while the flood-wait deadline is in the future.
func (s *FloodState) NeedsBlock() bool {
	return s.Remaining() > 0
}

// NeedsThrottling returns true inside the cooldown window following an
// expired flood wait.
func (s *FloodState) NeedsThrottling() bool {
	if s.NeedsBlock() || s.WaitUntil.IsZero() {
		return false
	}
	return time.Since(s.WaitUntil) < CooldownWindow
}

// UpdateHealth updates the Healthy field from the current wait state.
func (s *FloodState) UpdateHealth() {
	s.Healthy = !s.NeedsBlock() && !s.NeedsThrottling()
}

// IsStale returns true if the state data is older than the given duration.
func (s *FloodState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
