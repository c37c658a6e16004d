/* firstblood.go
 * Contains the stateful first-blood detector: spotting the moment a challenge
 * goes from unsolved to solved, and resolving who got there first
 */

package detect

import (
	"context"
	"sync"

	"ctfd-board/api/shared"
)

// SolvesFetcher is the one upstream lookup the detector needs: the ordered
// solve list for a challenge, earliest first. *external.Client satisfies it.
type SolvesFetcher interface {
	ChallengeSolves(ctx context.Context, challengeID int) ([]shared.Solve, error)
}

// FirstBloodDetector watches successive challenge snapshots. It raises a
// one-shot event per challenge when the solve count is first observed
// crossing zero, and separately resolves first-solver attribution with a
// lazy per-challenge lookup. Attribution, once resolved, is never
// invalidated within a session; solves are not retractable on the platforms
// this has been run against.
type FirstBloodDetector struct {
	fetcher SolvesFetcher

	mu         sync.Mutex
	seeded     bool
	prevSolves map[int]int
	resolved   map[int]int
	names      map[int]string
	resolving  map[int]bool
}

// NewFirstBloodDetector creates a detector with empty state.
func NewFirstBloodDetector(fetcher SolvesFetcher) *FirstBloodDetector {
	return &FirstBloodDetector{
		fetcher:    fetcher,
		prevSolves: make(map[int]int),
		resolved:   make(map[int]int),
		names:      make(map[int]string),
		resolving:  make(map[int]bool),
	}
}

// Observe ingests the latest challenge snapshot and returns the one-shot
// first-blood events it triggers. An event fires only for a challenge seen
// at zero solves on the previous snapshot and above zero now, so the first
// snapshot is a baseline and challenges that appear already solved are
// history, not news. Multiple challenges crossing in the same cycle each get
// their own event; any sequencing is the consumer's problem.
//
// The event carries the challenge identity immediately; the solver fields
// are only filled if attribution already resolved. Usually it has not, and
// the name arrives later via ResolvePending.
func (d *FirstBloodDetector) Observe(challenges []shared.Challenge) []shared.FirstBloodEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	var events []shared.FirstBloodEvent
	next := make(map[int]int, len(challenges))
	for _, challenge := range challenges {
		next[challenge.ID] = challenge.Solves

		prev, seen := d.prevSolves[challenge.ID]
		if d.seeded && seen && prev == 0 && challenge.Solves > 0 {
			event := shared.FirstBloodEvent{
				ChallengeID:   challenge.ID,
				ChallengeName: challenge.Name,
				Category:      challenge.Category,
				Value:         challenge.Value,
			}
			if account, ok := d.resolved[challenge.ID]; ok {
				event.SolverID = account
				event.SolverName = d.names[challenge.ID]
			}
			events = append(events, event)
		}
	}
	d.prevSolves = next
	d.seeded = true
	return events
}

// ResolvePending runs the attribution lookups for every challenge observed
// with solves and no recorded first blood yet. Lookups are best-effort: a
// failure is swallowed, does not block the other challenges, and the
// challenge is retried on the next call. Already-resolved challenges are
// never looked up again.
func (d *FirstBloodDetector) ResolvePending(ctx context.Context) {
	d.mu.Lock()
	var pending []int
	for id, solves := range d.prevSolves {
		if solves <= 0 || d.resolving[id] {
			continue
		}
		if _, ok := d.resolved[id]; ok {
			continue
		}
		d.resolving[id] = true
		pending = append(pending, id)
	}
	d.mu.Unlock()

	for _, id := range pending {
		solves, err := d.fetcher.ChallengeSolves(ctx, id)

		d.mu.Lock()
		delete(d.resolving, id)
		if err == nil && len(solves) > 0 {
			first := solves[0]
			d.resolved[id] = first.AccountID
			d.names[id] = first.Name
		}
		d.mu.Unlock()
	}
}

// FirstBloods returns a copy of the challenge id to first-solver account id
// mapping resolved so far.
func (d *FirstBloodDetector) FirstBloods() map[int]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[int]int, len(d.resolved))
	for id, account := range d.resolved {
		out[id] = account
	}
	return out
}

// SolverNames returns a copy of the challenge id to first-solver display
// name mapping resolved so far.
func (d *FirstBloodDetector) SolverNames() map[int]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[int]string, len(d.names))
	for id, name := range d.names {
		out[id] = name
	}
	return out
}
