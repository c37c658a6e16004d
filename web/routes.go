/* routes.go
 * Contains the route table for the dashboard JSON API
 */

package web

import (
	"net/http"

	"ctfd-board/api/api"
)

// NewServer creates a Server serving the given API facade.
func NewServer(apiPtr *api.API) *Server {
	return &Server{api: apiPtr}
}

// Routes binds the handler methods that have access to s.api.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.StatusHandler)
	mux.HandleFunc("GET /api/scoreboard", s.ScoreboardHandler)
	mux.HandleFunc("GET /api/scoreboard/full", s.FullScoreboardHandler)
	mux.HandleFunc("GET /api/challenges", s.ChallengesHandler)
	mux.HandleFunc("GET /api/challenges/{id}", s.ChallengeDetailHandler)
	mux.HandleFunc("GET /api/submissions", s.SubmissionsHandler)
	mux.HandleFunc("GET /api/stats", s.StatsHandler)
	mux.HandleFunc("GET /api/events", s.EventsHandler)
	mux.HandleFunc("POST /api/refresh", s.RefreshHandler)
	return mux
}
