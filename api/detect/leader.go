/* leader.go
 * Contains the stateful leader-change detector that compares rank 1 between
 * successive leaderboard snapshots
 */

package detect

import (
	"sync"

	"ctfd-board/api/shared"
)

// LeaderChangeDetector remembers the last-known identity at rank 1 and
// raises a one-shot event when it changes. Positional rank is trusted as
// given: the detector never re-sorts, so ties break however the upstream
// snapshot ordered them.
type LeaderChangeDetector struct {
	mu         sync.Mutex
	seeded     bool
	leaderID   int
	leaderName string
}

// NewLeaderChangeDetector creates a detector with no known leader.
func NewLeaderChangeDetector() *LeaderChangeDetector {
	return &LeaderChangeDetector{}
}

// Observe ingests the latest ranked snapshot. It returns a change event when
// the rank-1 account id differs from the stored one, nil otherwise. The
// first successful snapshot seeds the state without an event, an empty
// snapshot keeps prior state (leader unknown, not "no leader"), and a score
// change without an identity change never fires.
func (d *LeaderChangeDetector) Observe(entries []shared.ScoreboardEntry) *shared.LeaderChangeEvent {
	if len(entries) == 0 {
		return nil
	}
	top := entries[0]
	if top.ID == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seeded {
		d.seeded = true
		d.leaderID = top.ID
		d.leaderName = top.Name
		return nil
	}
	if top.ID == d.leaderID {
		return nil
	}

	event := &shared.LeaderChangeEvent{
		PreviousID:   d.leaderID,
		PreviousName: d.leaderName,
		NewID:        top.ID,
		NewName:      top.Name,
	}
	d.leaderID = top.ID
	d.leaderName = top.Name
	return event
}

// Leader returns the last-known rank-1 identity, with ok false before the
// first successful snapshot.
func (d *LeaderChangeDetector) Leader() (id int, name string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaderID, d.leaderName, d.seeded
}
