/* handlers.go
 * Contains the HTTP handlers serving the dashboard JSON API. All endpoints
 * are read-only views over the facade's polled state; refresh is the one
 * action and it only nudges the pollers
 */

package web

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"ctfd-board/api/logic"
	"ctfd-board/api/shared"
)

// StatusHandler reports the configuration gate, the auth-warning flag and
// the competition header data.
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	meta := s.api.Meta()
	resp := statusResponse{
		Configured:      s.api.IsConfigured(),
		Unauthorized:    s.api.Unauthorized(),
		Name:            meta.Name,
		Start:           meta.Start,
		End:             meta.End,
		TimeLeft:        logic.TimeLeft(meta.End, time.Now()),
		IntervalSeconds: int(s.api.Interval().Seconds()),
	}
	if t := s.api.UpdatedAt(); !t.IsZero() {
		resp.UpdatedAt = t.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ScoreboardHandler serves the reconciled top-N leaderboard.
func (s *Server) ScoreboardHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.api.Scoreboard()
	writeJSON(w, http.StatusOK, boardResponse{Entries: entries, Error: errText(err)})
}

// FullScoreboardHandler serves the reconciled complete leaderboard.
func (s *Server) FullScoreboardHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.api.FullScoreboard()
	writeJSON(w, http.StatusOK, boardResponse{Entries: entries, Error: errText(err)})
}

// ChallengesHandler serves the enriched challenge catalog.
func (s *Server) ChallengesHandler(w http.ResponseWriter, r *http.Request) {
	challenges, err := s.api.Challenges()
	writeJSON(w, http.StatusOK, challengesResponse{Challenges: challenges, Error: errText(err)})
}

// ChallengeDetailHandler fetches one challenge with its description on
// demand.
func (s *Server) ChallengeDetailHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid challenge id"})
		return
	}

	challenge, err := s.api.ChallengeDetail(r.Context(), id)
	if err != nil {
		log.Println("challenge detail fetch failed:", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: errText(err)})
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// SubmissionsHandler serves the live feed of correct submissions, newest
// first, with unrenderable records (deleted/hidden challenges) dropped.
func (s *Server) SubmissionsHandler(w http.ResponseWriter, r *http.Request) {
	page, err := s.api.Submissions()

	visible := make([]shared.Submission, 0, len(page.Submissions))
	for _, submission := range page.Submissions {
		if submission.Renderable() {
			visible = append(visible, submission)
		}
	}
	writeJSON(w, http.StatusOK, submissionsResponse{Submissions: visible, Total: page.Total, Error: errText(err)})
}

// StatsHandler serves the analytics tiles.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.api.Stats())
}

// EventsHandler serves the recent first-blood and leader-change events.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, eventsResponse{Events: s.api.RecentEvents()})
}

// RefreshHandler triggers an immediate out-of-band poll of every resource.
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	s.api.Refresh()
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Println("failed to encode response:", err)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
