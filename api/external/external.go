/* external.go
 * Contains the HTTP client used to fetch data from the upstream competition
 * API. All reads go through here: auth header, retry with backoff, the shared
 * rate-limit cooldown and the error taxonomy surfaced to callers
 */

package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ctfd-board/api/shared"
)

// Config holds the upstream connection settings consumed by the client.
type Config struct {
	BaseURL string // no trailing slash
	Token   string
}

// Error taxonomy surfaced to callers. ErrUnauthorized must stay
// distinguishable so the presentation layer can show a persistent
// reconfigure-credentials state instead of a transient error.
var (
	ErrUnauthorized      = errors.New("unauthorized: missing or invalid API token")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrMalformedResponse = errors.New("malformed API response")
	ErrNetworkFailure    = errors.New("network failure contacting the API")
)

const (
	apiBasePath = "/api/v1"
	maxRetries  = 3
	// retryBackoff doubles per attempt: 300, 600, 1200 ms.
	retryBackoff = 300 * time.Millisecond
)

// Client performs authenticated reads against one upstream platform. The
// rate-limit tracker and pacer are shared by every request made through the
// same client, which is what makes the cooldown a collective signal across
// all pollers of a session.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	tracker *RateLimitTracker
	pacer   *rate.Limiter
	backoff time.Duration
	sleep   func(time.Duration)
}

// NewClient creates a client for the given upstream. The token may be empty;
// requests will then surface ErrUnauthorized from the platform.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required but none was provided")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: 30 * time.Second},
		tracker: NewRateLimitTracker(),
		pacer:   rate.NewLimiter(rate.Limit(8), 8),
		backoff: retryBackoff,
		sleep:   time.Sleep,
	}, nil
}

// Tracker exposes the shared cooldown state, mainly for wiring and tests.
func (c *Client) Tracker() *RateLimitTracker {
	return c.tracker
}

// ScoreboardTop fetches the top-N leaderboard. The endpoint returns a map of
// rank string to entry; the result is converted to a slice ordered by rank.
func (c *Client) ScoreboardTop(ctx context.Context, count int) ([]shared.ScoreboardEntry, error) {
	data, err := c.getData(ctx, fmt.Sprintf("/scoreboard/top/%d", count), nil)
	if err != nil {
		return nil, err
	}

	var ranked map[string]wireScoreboardEntry
	if err := json.Unmarshal(data, &ranked); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	entries := make([]shared.ScoreboardEntry, 0, len(ranked))
	for pos, wire := range ranked {
		rank, err := strconv.Atoi(pos)
		if err != nil {
			continue
		}
		entry := wire.toShared()
		entry.Pos = rank
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Pos < entries[j].Pos
	})
	return entries, nil
}

// FullScoreboard fetches the complete ranked leaderboard.
func (c *Client) FullScoreboard(ctx context.Context) ([]shared.ScoreboardEntry, error) {
	data, err := c.getData(ctx, "/scoreboard", nil)
	if err != nil {
		return nil, err
	}

	var wires []wireScoreboardEntry
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	entries := make([]shared.ScoreboardEntry, 0, len(wires))
	for i, wire := range wires {
		entry := wire.toShared()
		if entry.Pos == 0 {
			entry.Pos = i + 1
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Challenges fetches the challenge catalog.
func (c *Client) Challenges(ctx context.Context) ([]shared.Challenge, error) {
	data, err := c.getData(ctx, "/challenges", nil)
	if err != nil {
		return nil, err
	}

	var challenges []shared.Challenge
	if err := json.Unmarshal(data, &challenges); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return challenges, nil
}

// Challenge fetches a single challenge including its description.
func (c *Client) Challenge(ctx context.Context, id int) (*shared.Challenge, error) {
	data, err := c.getData(ctx, fmt.Sprintf("/challenges/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var challenge shared.Challenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &challenge, nil
}

// ChallengeSolves fetches the ordered solve list for one challenge, earliest
// first. The first record is that challenge's first blood.
func (c *Client) ChallengeSolves(ctx context.Context, challengeID int) ([]shared.Solve, error) {
	data, err := c.getData(ctx, fmt.Sprintf("/challenges/%d/solves", challengeID), nil)
	if err != nil {
		return nil, err
	}

	var solves []shared.Solve
	if err := json.Unmarshal(data, &solves); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return solves, nil
}

// Submissions fetches one page of the correct-submissions feed. Zero page or
// perPage values are omitted so the platform applies its defaults.
func (c *Client) Submissions(ctx context.Context, page, perPage int) (SubmissionsPage, error) {
	params := url.Values{}
	params.Set("type", "correct")
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}

	body, err := c.get(ctx, "/submissions", params)
	if err != nil {
		return SubmissionsPage{}, err
	}

	var env submissionsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return SubmissionsPage{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Success != nil && !*env.Success {
		return SubmissionsPage{}, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(env.Errors, ", "))
	}
	return SubmissionsPage{
		Submissions: env.Data,
		Total:       env.Meta.Pagination.Total,
		Pages:       env.Meta.Pagination.Pages,
	}, nil
}

// ConfigValue fetches one competition metadata value by key (e.g. "ctf_name",
// "start", "end"). An empty string means the key is unset.
func (c *Client) ConfigValue(ctx context.Context, key string) (string, error) {
	params := url.Values{}
	params.Set("key", key)

	data, err := c.getData(ctx, "/configs", params)
	if err != nil {
		return "", err
	}

	var entries []configEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0].Value, nil
}

// getData performs a GET and unwraps the standard {success, data} envelope.
func (c *Client) getData(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Success != nil && !*env.Success {
		if len(env.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(env.Errors, ", "))
		}
		return nil, fmt.Errorf("%w: API reported failure", ErrMalformedResponse)
	}
	return env.Data, nil
}

// get performs one authenticated GET with the cooldown delay, retry loop and
// status-code mapping applied.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	// Collective backpressure: if any request path saw a 429 recently, every
	// request pays a delay before it is even attempted.
	if d := c.tracker.Delay(); d > 0 {
		c.sleep(d)
	}

	reqURL := c.baseURL + apiBasePath + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := c.doWithRetry(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrNetworkFailure, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		c.tracker.Decay()
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		c.tracker.Record()
		if hint := resp.Header.Get("Retry-After"); hint != "" {
			return nil, fmt.Errorf("%w: try again after %s seconds", ErrRateLimited, hint)
		}
		return nil, fmt.Errorf("%w: try increasing the poll interval", ErrRateLimited)
	default:
		return nil, fmt.Errorf("request to %s failed: %s", endpoint, resp.Status)
	}
}

// doWithRetry issues the request, retrying transport errors and 429 responses
// up to maxRetries times with exponential backoff (300, 600, 1200 ms). A 429
// that survives all retries is returned as a response so the caller can read
// the Retry-After hint.
func (c *Client) doWithRetry(ctx context.Context, reqURL string) (*http.Response, error) {
	backoff := c.backoff
	for attempt := 0; ; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}

		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
		req.Header.Set("Authorization", "Token "+c.token)
		req.Header.Set("Content-Type", "application/json")
		// Live dashboard: every call must reach the network.
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if err != nil {
			if attempt >= maxRetries {
				return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
			}
			log.Printf("error fetching %s, retrying after %v", sanitizeURL(reqURL), backoff)
		} else {
			if attempt >= maxRetries {
				return resp, nil
			}
			resp.Body.Close()
			log.Printf("rate limited when accessing %s, retrying after %v", sanitizeURL(reqURL), backoff)
		}

		c.sleep(backoff)
		backoff *= 2
	}
}

// sanitizeURL strips query parameters and fragments before logging so tokens
// or filters never end up in log output.
func sanitizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}
