/* models.go
 * Contains the config and response structs for the dashboard HTTP server
 */

package web

import (
	"ctfd-board/api/api"
	"ctfd-board/api/logic"
	"ctfd-board/api/shared"
)

// Config holds the configuration for the web server
type Config struct {
	Addr string
	API  *api.API
}

// Server is the HTTP server that serves the dashboard JSON API
type Server struct {
	api *api.API
}

// statusResponse is the dashboard-wide state: configuration gate, auth
// banner flag and the competition header info.
type statusResponse struct {
	Configured      bool   `json:"configured"`
	Unauthorized    bool   `json:"unauthorized"`
	Name            string `json:"name,omitempty"`
	Start           *int64 `json:"start,omitempty"`
	End             *int64 `json:"end,omitempty"`
	TimeLeft        string `json:"time_left"`
	IntervalSeconds int    `json:"interval_seconds"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// boardResponse is a leaderboard payload: reconciled entries plus the error
// note when the newest poll failed and the entries are stale.
type boardResponse struct {
	Entries []logic.RankedEntry `json:"entries"`
	Error   string              `json:"error,omitempty"`
}

type challengesResponse struct {
	Challenges []api.ChallengeView `json:"challenges"`
	Error      string              `json:"error,omitempty"`
}

type submissionsResponse struct {
	Submissions []shared.Submission `json:"submissions"`
	Total       int                 `json:"total"`
	Error       string              `json:"error,omitempty"`
}

type eventsResponse struct {
	Events []shared.Event `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}
