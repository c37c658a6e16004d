/* models.go
 * This file contains the structs and helper functions that are shared between sub packages
 */

package shared

import (
	"strings"
	"time"
)

// NoChallengeName is the placeholder the platform substitutes when a
// submission references a challenge that has since been deleted or hidden.
// Submissions carrying it should not be rendered.
const NoChallengeName = "None"

// Solve is one correct-answer record attached to a scoreboard entry or
// returned by the per-challenge solves endpoint. ChallengeID is a pointer
// because the upstream API is known to emit null ids for solves that
// reference deleted challenges; those records are invalid and get filtered
// out by logic.ValidSolves.
type Solve struct {
	ChallengeID *int   `json:"challenge_id"`
	AccountID   int    `json:"account_id"`
	Name        string `json:"name,omitempty"`
	Date        string `json:"date"`
}

// ParseTime parses the solve timestamp. Returns nil if the date is empty or
// in a format the platform has never been observed to use.
func (s Solve) ParseTime() *time.Time {
	return ParseAPITime(s.Date)
}

// ScoreboardEntry is one competitor's standing as reported by the platform.
// Pos is only populated by the top-N endpoint (the full scoreboard is an
// ordered array). Score is trusted as given and never recomputed locally.
type ScoreboardEntry struct {
	Pos    int     `json:"pos,omitempty"`
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Score  int     `json:"score"`
	Solves []Solve `json:"solves"`
}

// Challenge is one entry of the challenge catalog. Solves is the solve count
// as reported by the platform, independent of any scoreboard solve list.
type Challenge struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Value       int    `json:"value"`
	Solves      int    `json:"solves"`
	SolvedByMe  bool   `json:"solved_by_me"`
	Description string `json:"description,omitempty"`
}

// Practice reports whether this is a non-scored practice challenge.
func (c Challenge) Practice() bool {
	return c.Value <= 0
}

// SubmissionUser identifies who submitted a correct flag.
type SubmissionUser struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SubmissionChallenge is the challenge info denormalized into a submission
// record.
type SubmissionChallenge struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Value    int    `json:"value"`
}

// Submission is one correct-flag event from the submissions feed.
type Submission struct {
	ID        int                  `json:"id"`
	User      SubmissionUser       `json:"user"`
	Challenge *SubmissionChallenge `json:"challenge"`
	Date      string               `json:"date"`
}

// Renderable reports whether this submission carries a real challenge
// reference. The platform can emit records whose embedded challenge is null
// or the NoChallengeName placeholder; those must not be displayed.
func (s Submission) Renderable() bool {
	return s.Challenge != nil && s.Challenge.Name != NoChallengeName && strings.TrimSpace(s.Challenge.Name) != ""
}

// ParseTime parses the submission timestamp, nil on failure.
func (s Submission) ParseTime() *time.Time {
	return ParseAPITime(s.Date)
}

// CompetitionMeta is the cosmetic competition metadata from the configs
// endpoint. Start and End are unix epoch seconds, nil when the platform did
// not provide them (metadata failures are silent by design).
type CompetitionMeta struct {
	Name  string `json:"name,omitempty"`
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

// Event types emitted by the detectors.
const (
	EventFirstBlood   = "first_blood"
	EventLeaderChange = "leader_change"
)

// FirstBloodEvent fires once per challenge when its solve count is first
// observed crossing from zero to at least one. Solver fields may be empty:
// the who-got-it attribution resolves asynchronously and can arrive after
// the event itself.
type FirstBloodEvent struct {
	ChallengeID   int    `json:"challenge_id"`
	ChallengeName string `json:"challenge_name"`
	Category      string `json:"category"`
	Value         int    `json:"value"`
	SolverID      int    `json:"solver_id,omitempty"`
	SolverName    string `json:"solver_name,omitempty"`
}

// LeaderChangeEvent fires once when the identity at rank 1 changes between
// two leaderboard snapshots. A leader extending their lead is not a change.
type LeaderChangeEvent struct {
	PreviousID   int    `json:"previous_id"`
	PreviousName string `json:"previous_name"`
	NewID        int    `json:"new_id"`
	NewName      string `json:"new_name"`
}

// Event is the fan-out wrapper the facade hands to presentation consumers.
// Exactly one of FirstBlood and LeaderChange is set, matching Type.
type Event struct {
	Type         string             `json:"type"`
	Time         time.Time          `json:"time"`
	FirstBlood   *FirstBloodEvent   `json:"first_blood,omitempty"`
	LeaderChange *LeaderChangeEvent `json:"leader_change,omitempty"`
}

// apiTimeLayouts are the timestamp formats the platform has been observed
// emitting, most specific first.
var apiTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseAPITime parses a platform timestamp into UTC, returning nil when the
// value is empty or unrecognized.
func ParseAPITime(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}
