/* api.go
 * This file contains the public methods for interacting with this package.
 * The facade owns the upstream client, one poller per logical resource and
 * the two detectors, and fans detector events out to presentation layers
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"ctfd-board/api/detect"
	"ctfd-board/api/external"
	"ctfd-board/api/logic"
	"ctfd-board/api/poller"
	"ctfd-board/api/shared"
)

const (
	submissionsPerPage = 20
	recentEventsCap    = 50
	eventBuffer        = 64
)

// Config is the client-local configuration consumed by the core.
type Config struct {
	BaseURL  string
	Token    string
	Interval time.Duration
	TopTeams int
}

// API provides the read methods for the dashboard data layer. Every instance
// is an independent poller with its own local state; there is no cross-
// instance coordination.
type API struct {
	Client *external.Client
	cfg    Config

	firstBlood *detect.FirstBloodDetector
	leader     *detect.LeaderChangeDetector

	scoreboard  *poller.Poller[[]shared.ScoreboardEntry]
	fullBoard   *poller.Poller[[]shared.ScoreboardEntry]
	challenges  *poller.Poller[[]shared.Challenge]
	submissions *poller.Poller[external.SubmissionsPage]
	meta        *poller.Poller[shared.CompetitionMeta]

	mu      sync.Mutex
	recent  []shared.Event
	eventCh chan shared.Event
}

// NewAPI creates the facade. An empty base URL or token is allowed: the
// instance then reports IsConfigured false and never issues a network call.
func NewAPI(cfg Config) (*API, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.TopTeams <= 0 {
		cfg.TopTeams = 10
	}

	a := &API{
		cfg:     cfg,
		leader:  detect.NewLeaderChangeDetector(),
		eventCh: make(chan shared.Event, eventBuffer),
	}

	if cfg.BaseURL != "" {
		client, err := external.NewClient(external.Config{BaseURL: cfg.BaseURL, Token: cfg.Token})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize API client: %w", err)
		}
		a.Client = client
	}
	a.firstBlood = detect.NewFirstBloodDetector(a.Client)

	a.scoreboard = poller.New("scoreboard", cfg.Interval, a.fetchScoreboard)
	a.fullBoard = poller.New("scoreboard-full", cfg.Interval, a.fetchFullScoreboard)
	a.challenges = poller.New("challenges", cfg.Interval, a.fetchChallenges)
	a.submissions = poller.New("submissions", cfg.Interval, a.fetchSubmissions)
	a.meta = poller.New("meta", cfg.Interval, a.fetchMeta)

	a.scoreboard.OnUpdate(a.onScoreboard)
	a.challenges.OnUpdate(a.onChallenges)
	return a, nil
}

// IsConfigured reports whether both the base URL and token are present.
// Unconfigured instances issue zero network calls.
func (a *API) IsConfigured() bool {
	return a.cfg.BaseURL != "" && a.cfg.Token != ""
}

// Interval returns the poll interval in use.
func (a *API) Interval() time.Duration {
	return a.cfg.Interval
}

// Start launches the pollers. Resources poll independently of each other;
// only the client's rate-limit cooldown is shared between them.
func (a *API) Start() {
	if a.IsConfigured() {
		a.scoreboard.SetEnabled(true)
		a.fullBoard.SetEnabled(true)
		a.challenges.SetEnabled(true)
		a.submissions.SetEnabled(true)
		a.meta.SetEnabled(true)
	}
	a.scoreboard.Start()
	a.fullBoard.Start()
	a.challenges.Start()
	a.submissions.Start()
	a.meta.Start()
}

// Stop tears down the polling loops. In-flight requests finish and their
// results are discarded.
func (a *API) Stop() {
	a.scoreboard.Stop()
	a.fullBoard.Stop()
	a.challenges.Stop()
	a.submissions.Stop()
	a.meta.Stop()
}

// Refresh forces an immediate out-of-band fetch of every resource.
func (a *API) Refresh() {
	a.scoreboard.Refresh()
	a.fullBoard.Refresh()
	a.challenges.Refresh()
	a.submissions.Refresh()
	a.meta.Refresh()
}

// Scoreboard returns the reconciled top-N leaderboard. On a failed poll the
// last good entries are still returned together with the error, so callers
// can render stale data with an error note instead of a blank table.
func (a *API) Scoreboard() ([]logic.RankedEntry, error) {
	state := a.scoreboard.State()
	return logic.ReconcileEntries(state.Value, a.challengeSet(), a.firstBlood.FirstBloods()), state.Err
}

// FullScoreboard returns the reconciled complete leaderboard.
func (a *API) FullScoreboard() ([]logic.RankedEntry, error) {
	state := a.fullBoard.State()
	return logic.ReconcileEntries(state.Value, a.challengeSet(), a.firstBlood.FirstBloods()), state.Err
}

// Challenges returns the catalog enriched for display.
func (a *API) Challenges() ([]ChallengeView, error) {
	state := a.challenges.State()
	bloods := a.firstBlood.FirstBloods()
	names := a.firstBlood.SolverNames()

	views := make([]ChallengeView, 0, len(state.Value))
	for _, challenge := range state.Value {
		views = append(views, ChallengeView{
			Challenge:          challenge,
			NormalizedCategory: logic.NormalizeCategory(challenge.Category),
			Practice:           challenge.Practice(),
			FirstBloodID:       bloods[challenge.ID],
			FirstBloodName:     names[challenge.ID],
		})
	}
	return views, state.Err
}

// ChallengeDetail fetches a single challenge with its description. The
// description is only wanted on demand, so it is not part of any poll cycle.
func (a *API) ChallengeDetail(ctx context.Context, id int) (*shared.Challenge, error) {
	if a.Client == nil {
		return nil, fmt.Errorf("not configured")
	}
	return a.Client.Challenge(ctx, id)
}

// Submissions returns the newest page of the correct-submissions feed,
// sorted newest first.
func (a *API) Submissions() (external.SubmissionsPage, error) {
	state := a.submissions.State()
	return state.Value, state.Err
}

// Meta returns the competition metadata. Zero values mean the endpoint never
// answered; that is not an error state.
func (a *API) Meta() shared.CompetitionMeta {
	return a.meta.State().Value
}

// Stats computes the analytics tiles from the reconciled leaderboard.
func (a *API) Stats() logic.Stats {
	entries, _ := a.FullScoreboard()
	if len(entries) == 0 {
		entries, _ = a.Scoreboard()
	}
	submissions, _ := a.Submissions()
	meta := a.Meta()
	return logic.ComputeStats(entries, len(a.challengeSet()), submissions.Total, meta.End, time.Now())
}

// Unauthorized reports whether any primary resource is currently failing
// with an auth error. Presentation layers show a persistent reconfigure
// banner while this is true, as opposed to the transient note other
// failures get.
func (a *API) Unauthorized() bool {
	for _, err := range []error{
		a.scoreboard.State().Err,
		a.fullBoard.State().Err,
		a.challenges.State().Err,
		a.submissions.State().Err,
	} {
		if errors.Is(err, external.ErrUnauthorized) {
			return true
		}
	}
	return false
}

// UpdatedAt returns when the leaderboard was last successfully refreshed.
func (a *API) UpdatedAt() time.Time {
	return a.scoreboard.State().UpdatedAt
}

// Events returns the live event stream. The channel is buffered; a consumer
// that falls behind loses oldest-first, never blocks polling.
func (a *API) Events() <-chan shared.Event {
	return a.eventCh
}

// RecentEvents returns a copy of the most recent detector events.
func (a *API) RecentEvents() []shared.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]shared.Event, len(a.recent))
	copy(out, a.recent)
	return out
}

func (a *API) challengeSet() []shared.Challenge {
	state := a.challenges.State()
	if !state.HasValue {
		// Not loaded yet: reconciliation provisionally accepts all solves.
		return nil
	}
	return state.Value
}

func (a *API) fetchScoreboard(ctx context.Context) ([]shared.ScoreboardEntry, error) {
	return a.Client.ScoreboardTop(ctx, a.cfg.TopTeams)
}

func (a *API) fetchFullScoreboard(ctx context.Context) ([]shared.ScoreboardEntry, error) {
	return a.Client.FullScoreboard(ctx)
}

func (a *API) fetchChallenges(ctx context.Context) ([]shared.Challenge, error) {
	return a.Client.Challenges(ctx)
}

// fetchSubmissions implements the live feed: page 1 gives the pagination
// totals, the last page holds the newest records.
func (a *API) fetchSubmissions(ctx context.Context) (external.SubmissionsPage, error) {
	first, err := a.Client.Submissions(ctx, 1, submissionsPerPage)
	if err != nil {
		return external.SubmissionsPage{}, err
	}

	lastPage := 1
	if first.Total > 0 {
		lastPage = (first.Total + submissionsPerPage - 1) / submissionsPerPage
	}

	page := first
	if lastPage > 1 {
		page, err = a.Client.Submissions(ctx, lastPage, submissionsPerPage)
		if err != nil {
			return external.SubmissionsPage{}, err
		}
	}

	sort.SliceStable(page.Submissions, func(i, j int) bool {
		ti := page.Submissions[i].ParseTime()
		tj := page.Submissions[j].ParseTime()
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	return page, nil
}

// fetchMeta pulls the cosmetic competition metadata. Failures here are
// swallowed by design: a missing name or end time degrades the header, not
// the dashboard.
func (a *API) fetchMeta(ctx context.Context) (shared.CompetitionMeta, error) {
	meta := shared.CompetitionMeta{}
	if name, err := a.Client.ConfigValue(ctx, "ctf_name"); err == nil {
		meta.Name = name
	}
	if value, err := a.Client.ConfigValue(ctx, "start"); err == nil && value != "" {
		if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
			meta.Start = &epoch
		}
	}
	if value, err := a.Client.ConfigValue(ctx, "end"); err == nil && value != "" {
		if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
			meta.End = &epoch
		}
	}
	return meta, nil
}

func (a *API) onScoreboard(entries []shared.ScoreboardEntry) {
	if event := a.leader.Observe(entries); event != nil {
		a.emit(shared.Event{Type: shared.EventLeaderChange, LeaderChange: event})
	}
}

func (a *API) onChallenges(challenges []shared.Challenge) {
	for _, event := range a.firstBlood.Observe(challenges) {
		// The event fires before attribution resolves; the who arrives
		// asynchronously through ResolvePending.
		fb := event
		a.emit(shared.Event{Type: shared.EventFirstBlood, FirstBlood: &fb})
	}
	go a.firstBlood.ResolvePending(context.Background())
}

func (a *API) emit(event shared.Event) {
	event.Time = time.Now()
	a.mu.Lock()
	a.recent = append(a.recent, event)
	if len(a.recent) > recentEventsCap {
		a.recent = a.recent[len(a.recent)-recentEventsCap:]
	}
	a.mu.Unlock()

	select {
	case a.eventCh <- event:
	default:
	}
}
