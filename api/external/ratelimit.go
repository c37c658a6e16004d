/* ratelimit.go
 * Contains the shared rate-limit cooldown state used to collectively slow down
 * all pollers after the upstream API starts returning HTTP 429
 */

package external

import (
	"sync"
	"time"
)

const (
	// cooldownWindow is how long after a 429 every request keeps paying a
	// pre-request delay.
	cooldownWindow = 60 * time.Second
	// cooldownBase doubles per consecutive 429 episode, capped at cooldownMax.
	cooldownBase = time.Second
	cooldownMax  = 10 * time.Second
	// cooldownCap bounds the consecutive-429 counter.
	cooldownCap = 5
)

// RateLimitTracker records when the upstream last rate limited us and how many
// consecutive episodes there have been. It is shared by every request path of
// a client: many independent pollers hitting the same limit must slow down
// collectively, not just retry individually. A tracker is owned by the client
// that created it so tests can run isolated instances.
type RateLimitTracker struct {
	mu      sync.Mutex
	now     func() time.Time
	lastHit time.Time
	count   int
}

// NewRateLimitTracker returns an empty tracker.
func NewRateLimitTracker() *RateLimitTracker {
	return &RateLimitTracker{now: time.Now}
}

// Record notes that a 429 was observed. The consecutive count is capped at
// cooldownCap so the delay formula stays bounded.
func (t *RateLimitTracker) Record() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastHit = t.now()
	if t.count < cooldownCap {
		t.count++
	}
}

// Delay returns how long the next request must wait before being attempted:
// min(cooldownBase * 2^count, cooldownMax) while within cooldownWindow of the
// last 429, zero otherwise.
func (t *RateLimitTracker) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastHit.IsZero() || t.now().Sub(t.lastHit) >= cooldownWindow {
		return 0
	}
	delay := cooldownBase << t.count
	if delay > cooldownMax {
		delay = cooldownMax
	}
	return delay
}

// Decay reduces the consecutive count by one if a full cooldownWindow has
// passed without a new 429. Called after each successful request, mirroring
// the recovery path of the upstream dashboard.
func (t *RateLimitTracker) Decay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count > 0 && (t.lastHit.IsZero() || t.now().Sub(t.lastHit) > cooldownWindow) {
		t.count--
	}
}

// Count returns the current consecutive-429 count.
func (t *RateLimitTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}
