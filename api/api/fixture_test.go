/* fixture_test.go
 * Contains a mutable in-memory competition platform served over httptest,
 * used by the facade tests to exercise full poll cycles without a real
 * upstream
 */

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"ctfd-board/api/shared"
)

type ctfdFixture struct {
	mu           sync.Mutex
	requests     int
	unauthorized bool
	failing      bool

	board       []shared.ScoreboardEntry
	challenges  []shared.Challenge
	solves      map[int][]shared.Solve
	submissions []shared.Submission
	configs     map[string]string

	server *httptest.Server
}

func newCTFDFixture(t *testing.T) *ctfdFixture {
	t.Helper()
	f := &ctfdFixture{
		solves:  make(map[int][]shared.Solve),
		configs: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/scoreboard/top/{count}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ranked := make(map[string]shared.ScoreboardEntry, len(f.board))
		for i, entry := range f.board {
			ranked[strconv.Itoa(i+1)] = entry
		}
		writeEnvelope(w, ranked)
	})
	mux.HandleFunc("GET /api/v1/scoreboard", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeEnvelope(w, f.board)
	})
	mux.HandleFunc("GET /api/v1/challenges", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeEnvelope(w, f.challenges)
	})
	mux.HandleFunc("GET /api/v1/challenges/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, _ := strconv.Atoi(r.PathValue("id"))
		for _, challenge := range f.challenges {
			if challenge.ID == id {
				writeEnvelope(w, challenge)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/v1/challenges/{id}/solves", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, _ := strconv.Atoi(r.PathValue("id"))
		writeEnvelope(w, f.solves[id])
	})
	mux.HandleFunc("GET /api/v1/submissions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    f.submissions,
			"meta": map[string]any{
				"pagination": map[string]any{
					"page": 1, "per_page": 20, "total": len(f.submissions), "pages": 1,
				},
			},
		})
	})
	mux.HandleFunc("GET /api/v1/configs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		value, ok := f.configs[r.URL.Query().Get("key")]
		if !ok {
			writeEnvelope(w, []any{})
			return
		}
		writeEnvelope(w, []map[string]string{{"value": value}})
	})

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		unauthorized, failing := f.unauthorized, f.failing
		f.mu.Unlock()
		if unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func writeEnvelope(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func (f *ctfdFixture) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *ctfdFixture) setUnauthorized(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized = v
}

func (f *ctfdFixture) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *ctfdFixture) setBoard(entries []shared.ScoreboardEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.board = entries
}

func (f *ctfdFixture) setChallenges(challenges []shared.Challenge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges = challenges
}

func (f *ctfdFixture) setSolves(challengeID int, solves []shared.Solve) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.solves[challengeID] = solves
}
