/* models.go
 * Contains the wire-level response shapes for the upstream competition API
 */

package external

import (
	"encoding/json"

	"ctfd-board/api/shared"
)

// envelope is the standard response wrapper: {success, data, errors?}.
// Success is a pointer so an endpoint that omits the flag is not mistaken for
// a reported failure.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors,omitempty"`
	Message string          `json:"message,omitempty"`
}

// wireScoreboardEntry tolerates both id conventions the platform uses: the
// top-N endpoint labels accounts "id" while the full scoreboard uses
// "account_id".
type wireScoreboardEntry struct {
	Pos       int            `json:"pos,omitempty"`
	ID        int            `json:"id,omitempty"`
	AccountID int            `json:"account_id,omitempty"`
	Name      string         `json:"name"`
	Score     int            `json:"score"`
	Solves    []shared.Solve `json:"solves,omitempty"`
}

func (e wireScoreboardEntry) toShared() shared.ScoreboardEntry {
	id := e.ID
	if id == 0 {
		id = e.AccountID
	}
	return shared.ScoreboardEntry{
		Pos:    e.Pos,
		ID:     id,
		Name:   e.Name,
		Score:  e.Score,
		Solves: e.Solves,
	}
}

type pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

type submissionsMeta struct {
	Pagination pagination `json:"pagination"`
}

// submissionsEnvelope is decoded whole because the pagination meta lives next
// to the data array rather than inside it.
type submissionsEnvelope struct {
	Success *bool               `json:"success"`
	Data    []shared.Submission `json:"data"`
	Meta    submissionsMeta     `json:"meta"`
	Errors  []string            `json:"errors,omitempty"`
}

// SubmissionsPage is one page of the correct-submissions feed plus the
// pagination totals needed to find the newest page.
type SubmissionsPage struct {
	Submissions []shared.Submission `json:"submissions"`
	Total       int                 `json:"total"`
	Pages       int                 `json:"pages"`
}

type configEntry struct {
	Value string `json:"value"`
}
