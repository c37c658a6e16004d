/* firstblood_test.go
 * Contains unit tests for the first-blood detector: the zero-crossing event
 * rule and the lazy attribution lookups
 */

package detect

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctfd-board/api/shared"
)

// mockSolvesFetcher serves canned solve lists and records how often each
// challenge was looked up.
type mockSolvesFetcher struct {
	mu     sync.Mutex
	solves map[int][]shared.Solve
	errs   map[int]error
	calls  map[int]int
}

func newMockSolvesFetcher() *mockSolvesFetcher {
	return &mockSolvesFetcher{
		solves: make(map[int][]shared.Solve),
		errs:   make(map[int]error),
		calls:  make(map[int]int),
	}
}

func (m *mockSolvesFetcher) ChallengeSolves(ctx context.Context, challengeID int) ([]shared.Solve, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[challengeID]++
	if err := m.errs[challengeID]; err != nil {
		return nil, err
	}
	return m.solves[challengeID], nil
}

func (m *mockSolvesFetcher) callCount(challengeID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[challengeID]
}

func snapshot(solveCounts map[int]int) []shared.Challenge {
	challenges := make([]shared.Challenge, 0, len(solveCounts))
	for id, solves := range solveCounts {
		challenges = append(challenges, shared.Challenge{ID: id, Name: "chal", Solves: solves})
	}
	return challenges
}

// region event tests

func TestFirstBlood_FiresExactlyOnceOnZeroCrossing(t *testing.T) {
	detector := NewFirstBloodDetector(newMockSolvesFetcher())

	assert.Empty(t, detector.Observe(snapshot(map[int]int{7: 0})))
	assert.Empty(t, detector.Observe(snapshot(map[int]int{7: 0})))

	events := detector.Observe(snapshot(map[int]int{7: 1}))
	require.Len(t, events, 1)
	assert.Equal(t, 7, events[0].ChallengeID)

	// further growth is not a first blood
	assert.Empty(t, detector.Observe(snapshot(map[int]int{7: 3})))
}

func TestFirstBlood_FirstSnapshotIsBaseline(t *testing.T) {
	detector := NewFirstBloodDetector(newMockSolvesFetcher())

	// already-solved challenges on the first snapshot are history, not news
	assert.Empty(t, detector.Observe(snapshot(map[int]int{7: 5})))
	assert.Empty(t, detector.Observe(snapshot(map[int]int{7: 6})))
}

func TestFirstBlood_NewChallengeAppearingSolvedIsNotNews(t *testing.T) {
	detector := NewFirstBloodDetector(newMockSolvesFetcher())

	assert.Empty(t, detector.Observe(snapshot(map[int]int{1: 0})))
	// challenge 2 was never seen at zero, so its arrival with solves is silent
	assert.Empty(t, detector.Observe(snapshot(map[int]int{1: 0, 2: 4})))
}

func TestFirstBlood_NewChallengeAtZeroThenSolvedFires(t *testing.T) {
	detector := NewFirstBloodDetector(newMockSolvesFetcher())

	assert.Empty(t, detector.Observe(snapshot(map[int]int{1: 0})))
	assert.Empty(t, detector.Observe(snapshot(map[int]int{1: 0, 2: 0})))

	events := detector.Observe(snapshot(map[int]int{1: 0, 2: 1}))
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].ChallengeID)
}

func TestFirstBlood_SimultaneousCrossingsEachFire(t *testing.T) {
	detector := NewFirstBloodDetector(newMockSolvesFetcher())

	assert.Empty(t, detector.Observe(snapshot(map[int]int{1: 0, 2: 0, 3: 0})))

	events := detector.Observe(snapshot(map[int]int{1: 1, 2: 2, 3: 0}))
	assert.Len(t, events, 2)
}

func TestFirstBlood_EventCarriesChallengeIdentity(t *testing.T) {
	detector := NewFirstBloodDetector(newMockSolvesFetcher())

	detector.Observe([]shared.Challenge{{ID: 7, Name: "Baby Pwn", Category: "pwn", Value: 100, Solves: 0}})
	events := detector.Observe([]shared.Challenge{{ID: 7, Name: "Baby Pwn", Category: "pwn", Value: 100, Solves: 1}})

	require.Len(t, events, 1)
	assert.Equal(t, "Baby Pwn", events[0].ChallengeName)
	assert.Equal(t, "pwn", events[0].Category)
	assert.Equal(t, 100, events[0].Value)
	// attribution has not resolved yet
	assert.Equal(t, 0, events[0].SolverID)
	assert.Equal(t, "", events[0].SolverName)
}

// endregion

// region attribution tests

func TestResolvePending_RecordsFirstSolver(t *testing.T) {
	fetcher := newMockSolvesFetcher()
	fetcher.solves[7] = []shared.Solve{
		{AccountID: 42, Name: "alice", Date: "2026-08-30T10:00:00Z"},
		{AccountID: 43, Name: "bob", Date: "2026-08-30T11:00:00Z"},
	}
	detector := NewFirstBloodDetector(fetcher)

	detector.Observe(snapshot(map[int]int{7: 2}))
	detector.ResolvePending(context.Background())

	assert.Equal(t, map[int]int{7: 42}, detector.FirstBloods())
	assert.Equal(t, map[int]string{7: "alice"}, detector.SolverNames())
}

func TestResolvePending_ResolvedChallengesAreNeverLookedUpAgain(t *testing.T) {
	fetcher := newMockSolvesFetcher()
	fetcher.solves[7] = []shared.Solve{{AccountID: 42, Name: "alice"}}
	detector := NewFirstBloodDetector(fetcher)

	detector.Observe(snapshot(map[int]int{7: 1}))
	detector.ResolvePending(context.Background())
	detector.ResolvePending(context.Background())
	detector.Observe(snapshot(map[int]int{7: 5}))
	detector.ResolvePending(context.Background())

	assert.Equal(t, 1, fetcher.callCount(7))
}

func TestResolvePending_UnsolvedChallengesAreNotLookedUp(t *testing.T) {
	fetcher := newMockSolvesFetcher()
	detector := NewFirstBloodDetector(fetcher)

	detector.Observe(snapshot(map[int]int{7: 0}))
	detector.ResolvePending(context.Background())

	assert.Equal(t, 0, fetcher.callCount(7))
}

func TestResolvePending_FailureIsSwallowedAndRetried(t *testing.T) {
	fetcher := newMockSolvesFetcher()
	fetcher.errs[7] = errors.New("rate limited")
	detector := NewFirstBloodDetector(fetcher)

	detector.Observe(snapshot(map[int]int{7: 1}))
	detector.ResolvePending(context.Background())

	assert.Empty(t, detector.FirstBloods())

	// upstream recovers; the next cycle resolves it
	fetcher.mu.Lock()
	delete(fetcher.errs, 7)
	fetcher.solves[7] = []shared.Solve{{AccountID: 42, Name: "alice"}}
	fetcher.mu.Unlock()

	detector.ResolvePending(context.Background())

	assert.Equal(t, map[int]int{7: 42}, detector.FirstBloods())
	assert.Equal(t, 2, fetcher.callCount(7))
}

func TestResolvePending_FailureDoesNotBlockOtherChallenges(t *testing.T) {
	fetcher := newMockSolvesFetcher()
	fetcher.errs[1] = errors.New("rate limited")
	fetcher.solves[2] = []shared.Solve{{AccountID: 42, Name: "alice"}}
	detector := NewFirstBloodDetector(fetcher)

	detector.Observe(snapshot(map[int]int{1: 1, 2: 1}))
	detector.ResolvePending(context.Background())

	assert.Equal(t, map[int]int{2: 42}, detector.FirstBloods())
}

func TestResolvePending_EmptySolveListIsRetried(t *testing.T) {
	fetcher := newMockSolvesFetcher()
	detector := NewFirstBloodDetector(fetcher)

	// the count endpoint and the solve list can briefly disagree
	detector.Observe(snapshot(map[int]int{7: 1}))
	detector.ResolvePending(context.Background())
	assert.Empty(t, detector.FirstBloods())

	fetcher.mu.Lock()
	fetcher.solves[7] = []shared.Solve{{AccountID: 42, Name: "alice"}}
	fetcher.mu.Unlock()

	detector.ResolvePending(context.Background())
	assert.Equal(t, map[int]int{7: 42}, detector.FirstBloods())
}

func TestObserve_IncludesResolvedAttribution(t *testing.T) {
	fetcher := newMockSolvesFetcher()
	fetcher.solves[7] = []shared.Solve{{AccountID: 42, Name: "alice"}}
	detector := NewFirstBloodDetector(fetcher)

	// seed at zero, then resolve attribution before the crossing is observed;
	// this is the race going the unusual way around
	detector.Observe(snapshot(map[int]int{7: 0}))
	detector.mu.Lock()
	detector.resolved[7] = 42
	detector.names[7] = "alice"
	detector.mu.Unlock()

	events := detector.Observe(snapshot(map[int]int{7: 1}))
	require.Len(t, events, 1)
	assert.Equal(t, 42, events[0].SolverID)
	assert.Equal(t, "alice", events[0].SolverName)
}

// endregion
