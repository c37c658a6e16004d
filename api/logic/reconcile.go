/* reconcile.go
 * Contains the logic for cross-referencing raw scoreboard solves against the
 * challenge catalog so stale or orphaned solve records never reach a display
 */

package logic

import (
	"time"

	"ctfd-board/api/shared"
)

// RankedEntry is a scoreboard entry after reconciliation, with the derived
// fields every view of the leaderboard shares. Keeping the derivation in one
// place is what keeps the rank table, analytics and totals in agreement.
type RankedEntry struct {
	Rank             int            `json:"rank"`
	AccountID        int            `json:"account_id"`
	Name             string         `json:"name"`
	Score            int            `json:"score"`
	Solves           []shared.Solve `json:"solves"`
	SolvedChallenges int            `json:"solved_challenges"`
	FirstBloods      int            `json:"first_bloods"`
	LastSolve        *time.Time     `json:"last_solve,omitempty"`
}

// ValidSolves filters a raw solve list down to solves referencing a real,
// currently-known challenge. A solve with a nil challenge id is always
// orphaned data from a deleted challenge. When the challenge catalog has not
// loaded yet every solve is provisionally accepted, so the board does not
// flash zero solve counts before data is ready; they get re-validated once
// challenges arrive. The filter is idempotent.
func ValidSolves(solves []shared.Solve, challenges []shared.Challenge) []shared.Solve {
	if challenges == nil {
		return solves
	}

	known := make(map[int]struct{}, len(challenges))
	for _, challenge := range challenges {
		known[challenge.ID] = struct{}{}
	}

	valid := make([]shared.Solve, 0, len(solves))
	for _, solve := range solves {
		if solve.ChallengeID == nil {
			continue
		}
		if _, ok := known[*solve.ChallengeID]; !ok {
			continue
		}
		valid = append(valid, solve)
	}
	return valid
}

// ReconcileEntries produces the cleaned leaderboard view: solves filtered
// through ValidSolves plus the derived solve count, first-blood count and
// most recent solve time per entry. firstBloods maps challenge id to the
// account id of its recorded first solver and may be nil while attribution
// is still resolving.
func ReconcileEntries(entries []shared.ScoreboardEntry, challenges []shared.Challenge, firstBloods map[int]int) []RankedEntry {
	ranked := make([]RankedEntry, 0, len(entries))
	for i, entry := range entries {
		valid := ValidSolves(entry.Solves, challenges)

		bloods := 0
		var last *time.Time
		for _, solve := range valid {
			if solve.ChallengeID != nil && firstBloods[*solve.ChallengeID] == entry.ID && entry.ID != 0 {
				bloods++
			}
			if t := solve.ParseTime(); t != nil && (last == nil || t.After(*last)) {
				last = t
			}
		}

		rank := entry.Pos
		if rank == 0 {
			rank = i + 1
		}

		ranked = append(ranked, RankedEntry{
			Rank:             rank,
			AccountID:        entry.ID,
			Name:             entry.Name,
			Score:            entry.Score,
			Solves:           valid,
			SolvedChallenges: len(valid),
			FirstBloods:      bloods,
			LastSolve:        last,
		})
	}
	return ranked
}
